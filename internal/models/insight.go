package models

// InsightType enumerates the analysis families an insight can come from.
type InsightType string

const (
	InsightPattern        InsightType = "pattern"
	InsightStatistical    InsightType = "statistical"
	InsightTemporal       InsightType = "temporal"
	InsightCorrelation    InsightType = "correlation"
	InsightRecommendation InsightType = "recommendation"
)

// Severity captures impact levels.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityRank maps severities onto a total order for sorting. Unknown
// severities rank below low.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// QuestionTag is one of the four fixed explanation categories surfaced to end
// users. Every insight carries exactly one so the formatter never drops it.
type QuestionTag string

const (
	QuestionWhatHappened    QuestionTag = "what_happened"
	QuestionRootCause       QuestionTag = "root_cause"
	QuestionPatterns        QuestionTag = "patterns"
	QuestionRecommendations QuestionTag = "recommendations"
)

// Insight is the lowest-level explanatory unit produced by the analyzers.
type Insight struct {
	Type        InsightType
	Severity    Severity
	Title       string
	Description string
	Confidence  float64
	Question    QuestionTag
	Data        map[string]any
}
