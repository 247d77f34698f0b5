package engine

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-explain/internal/models"
)

// RuleEngine turns accumulated insights into recommendation insights, first
// via the built-in keyword buckets and then via an optional YAML rule pack.
type RuleEngine struct {
	rules  []Rule
	logger *slog.Logger
}

// Rule is a single recommendation rule from the rule pack.
type Rule struct {
	ID              string    `yaml:"id"`
	Match           RuleMatch `yaml:"match"`
	Recommendations []string  `yaml:"recommendations"`
}

// RuleMatch defines the optional attributes an insight list must exhibit for
// the rule to fire. Empty attributes match everything.
type RuleMatch struct {
	Severity      string   `yaml:"severity"`
	TitleContains []string `yaml:"title_contains"`
	Types         []string `yaml:"types"`
}

// RuleConfigFile is the YAML root structure.
type RuleConfigFile struct {
	Rules []Rule `yaml:"rules"`
}

// NewRuleEngine loads rules from the provided path. An empty path or missing
// file yields an engine with keyword buckets only.
func NewRuleEngine(path string, logger *slog.Logger) (*RuleEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	engine := &RuleEngine{logger: logger}
	if path == "" {
		return engine, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("rule pack not found, using keyword buckets only", slog.String("path", path))
			return engine, nil
		}
		return nil, err
	}
	var cfg RuleConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	engine.rules = cfg.Rules
	return engine, nil
}

// Recommend scans the accumulated insights and emits recommendation insights.
// When insights exist but no bucket or rule matched, a generic review
// recommendation is emitted so callers always get a next step.
func (e *RuleEngine) Recommend(insights []models.Insight) []models.Insight {
	if len(insights) == 0 {
		return nil
	}

	var recs []models.Insight
	recs = append(recs, e.keywordBuckets(insights)...)
	recs = append(recs, e.ruleMatches(insights)...)

	if len(recs) == 0 {
		recs = append(recs, recommendation(
			"Review Analysis Results",
			"Review the detected insights and correlate them with recent changes to the system",
			models.SeverityLow, 0.5))
	}
	return recs
}

func (e *RuleEngine) keywordBuckets(insights []models.Insight) []models.Insight {
	var hasErrors, hasPerformance, hasCorrelations, hasPatterns bool
	for _, in := range insights {
		title := strings.ToLower(in.Title)
		switch {
		case strings.Contains(title, "error"):
			hasErrors = true
		case strings.Contains(title, "response") || strings.Contains(title, "performance") || strings.Contains(title, "latency"):
			hasPerformance = true
		case in.Type == models.InsightCorrelation || strings.Contains(title, "correlat"):
			hasCorrelations = true
		case strings.Contains(title, "pattern") || strings.Contains(title, "cluster"):
			hasPatterns = true
		}
	}

	var recs []models.Insight
	if hasErrors {
		recs = append(recs, recommendation(
			"Investigate Error Sources",
			"Error activity rose around the anomaly; inspect the failing components and recent deployments for regressions",
			models.SeverityHigh, 0.8))
	}
	if hasPerformance {
		recs = append(recs, recommendation(
			"Check Resource Utilization",
			"Latency degraded during the anomaly; check CPU, memory, and downstream dependency health",
			models.SeverityMedium, 0.7))
	}
	if hasCorrelations {
		recs = append(recs, recommendation(
			"Examine Correlated Fields",
			"Strongly correlated fields may share a common driver; verify whether one is causing the other",
			models.SeverityMedium, 0.6))
	}
	if hasPatterns {
		recs = append(recs, recommendation(
			"Review Recurring Patterns",
			"Recurring log patterns were detected; confirm whether they are expected behavior or a symptom",
			models.SeverityLow, 0.6))
	}
	return recs
}

func (e *RuleEngine) ruleMatches(insights []models.Insight) []models.Insight {
	var recs []models.Insight
	for _, rule := range e.rules {
		if !ruleApplies(rule.Match, insights) {
			continue
		}
		for _, text := range rule.Recommendations {
			if text == "" {
				continue
			}
			recs = append(recs, recommendation(
				"Recommended Action",
				text,
				models.SeverityMedium, 0.7))
		}
		e.logger.Debug("recommendation rule fired", slog.String("rule", rule.ID))
	}
	return recs
}

func ruleApplies(match RuleMatch, insights []models.Insight) bool {
	if match.Severity != "" && !insightsHaveSeverity(match.Severity, insights) {
		return false
	}
	if len(match.TitleContains) > 0 && !insightsContainTitle(match.TitleContains, insights) {
		return false
	}
	if len(match.Types) > 0 && !insightsHaveType(match.Types, insights) {
		return false
	}
	return true
}

func insightsHaveSeverity(severity string, insights []models.Insight) bool {
	for _, in := range insights {
		if strings.EqualFold(severity, string(in.Severity)) {
			return true
		}
	}
	return false
}

func insightsContainTitle(keywords []string, insights []models.Insight) bool {
	for _, in := range insights {
		title := strings.ToLower(in.Title)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(title, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

func insightsHaveType(types []string, insights []models.Insight) bool {
	for _, in := range insights {
		for _, t := range types {
			if strings.EqualFold(t, string(in.Type)) {
				return true
			}
		}
	}
	return false
}

func recommendation(title, description string, severity models.Severity, confidence float64) models.Insight {
	return models.Insight{
		Type:        models.InsightRecommendation,
		Severity:    severity,
		Title:       title,
		Description: description,
		Confidence:  confidence,
		Question:    models.QuestionRecommendations,
	}
}
