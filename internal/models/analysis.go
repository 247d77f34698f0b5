package models

import "time"

// Category buckets merged insights for the dashboard collaborator.
type Category string

const (
	CategoryPerformance     Category = "performance"
	CategoryErrors          Category = "errors"
	CategoryVolume          Category = "volume"
	CategoryPatterns        Category = "patterns"
	CategoryCorrelations    Category = "correlations"
	CategoryRecommendations Category = "recommendations"
)

// ComprehensiveAnalysis is the merged, ranked unit returned to callers: an
// insight plus routing metadata. Priority is an integer in [1,10] used purely
// for sort order.
type ComprehensiveAnalysis struct {
	Insight

	Category   Category
	Actionable bool
	Priority   int
}

// AnalysisSummary aggregates counts over the final insight list.
type AnalysisSummary struct {
	TotalInsights        int
	SeverityBreakdown    map[Severity]int
	CategoryBreakdown    map[Category]int
	ActionableInsights   int
	HighPriorityInsights int
}

// AnalysisMetadata records bookkeeping for one generateAnalysis call.
type AnalysisMetadata struct {
	AnalysisDuration        time.Duration
	LogCount                int
	PatternCount            int
	StatisticalInsightCount int
}

// AnalysisResult is the engine's top-level output.
type AnalysisResult struct {
	AnalysisID string
	Insights   []ComprehensiveAnalysis
	Summary    AnalysisSummary
	Metadata   AnalysisMetadata
	CreatedAt  time.Time
}

// ExplainRequest is the engine boundary input. Logs may be empty when
// TimeRange is set and a log source is configured; DetectorConfig is opaque
// and threaded through for forward compatibility.
type ExplainRequest struct {
	TenantID       string
	Logs           []LogEntry
	Anomaly        AnomalyContext
	DetectorConfig map[string]any
	TimeRange      *TimeRange
}
