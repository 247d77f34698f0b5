package stats

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/miradorstack/mirador-explain/internal/config"
	"github.com/miradorstack/mirador-explain/internal/enhance"
	"github.com/miradorstack/mirador-explain/internal/models"
	"github.com/miradorstack/mirador-explain/internal/utils"
)

// Analyzer runs the advanced statistical suite. It is stateless across calls;
// the orchestrator constructs a fresh one per request.
type Analyzer struct {
	cfg    config.Thresholds
	logger *slog.Logger
}

// NewAnalyzer constructs an Analyzer with the provided thresholds.
func NewAnalyzer(cfg config.Thresholds, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{cfg: cfg, logger: logger}
}

// Insights runs every capability of the suite over enhanced logs and converts
// the findings into tiered insights. Weak-but-present results still emit a
// low-confidence insight so signal is never silently dropped. An error from
// one capability degrades to the insights already computed.
func (a *Analyzer) Insights(logs []models.LogEntry, anomaly models.AnomalyContext) ([]models.Insight, error) {
	if len(logs) == 0 {
		return nil, nil
	}

	fields := enhance.NumericFields(logs)
	sorted := models.SortedByTime(logs)

	var insights []models.Insight
	insights = append(insights, a.correlationInsights(sorted, fields)...)
	insights = append(insights, a.causalInsights(sorted, fields)...)
	insights = append(insights, a.timeSeriesInsights(sorted, fields)...)
	if anomaly.Valid() {
		insights = append(insights, a.clusterInsights([]models.AnomalyContext{anomaly})...)
		insights = append(insights, a.significanceInsights(sorted, anomaly)...)
	}
	return insights, nil
}

func (a *Analyzer) correlationInsights(logs []models.LogEntry, fields []string) []models.Insight {
	results := a.FieldCorrelations(logs, fields)
	if len(results) == 0 {
		return nil
	}

	sort.SliceStable(results, func(i, j int) bool {
		return math.Abs(results[i].Correlation) > math.Abs(results[j].Correlation)
	})

	var insights []models.Insight
	emitted := 0
	for _, r := range results {
		abs := math.Abs(r.Correlation)
		if abs < a.cfg.Correlation.Moderate {
			continue
		}
		severity := models.SeverityLow
		confidence := 0.5
		if abs > a.cfg.Correlation.Strong {
			severity = models.SeverityMedium
			confidence = clamp01(abs)
			if r.Significance == models.SignificanceHigh {
				severity = models.SeverityHigh
			}
		}
		insights = append(insights, models.Insight{
			Type:        models.InsightCorrelation,
			Severity:    severity,
			Title:       fmt.Sprintf("Correlated fields: %s and %s", r.Field1, r.Field2),
			Description: fmt.Sprintf("%s correlation of %.2f (p=%.4f) between %q and %q", r.Method, r.Correlation, r.PValue, r.Field1, r.Field2),
			Confidence:  confidence,
			Question:    models.QuestionPatterns,
			Data: map[string]any{
				"correlation": r,
			},
		})
		emitted++
		if emitted >= 3 {
			break
		}
	}

	if emitted == 0 {
		// Results exist but none were moderate; surface the strongest weakly.
		r := results[0]
		insights = append(insights, models.Insight{
			Type:        models.InsightCorrelation,
			Severity:    models.SeverityLow,
			Title:       "Weak field correlations only",
			Description: fmt.Sprintf("Strongest pair %q/%q at %.2f; no strong relationships found", r.Field1, r.Field2, r.Correlation),
			Confidence:  0.3,
			Question:    models.QuestionPatterns,
		})
	}
	return insights
}

func (a *Analyzer) causalInsights(logs []models.LogEntry, fields []string) []models.Insight {
	relationships := a.CausalRelationships(logs, fields)
	if len(relationships) == 0 {
		return nil
	}

	sort.SliceStable(relationships, func(i, j int) bool {
		return relationships[i].Strength > relationships[j].Strength
	})

	top := relationships[0]
	severity := models.SeverityLow
	confidence := utils.Clamp(top.Confidence, 0.2, 1)
	if top.Strength > a.cfg.Causality.Strong {
		severity = models.SeverityMedium
	}
	return []models.Insight{{
		Type:        models.InsightStatistical,
		Severity:    severity,
		Title:       fmt.Sprintf("Possible causal link: %s -> %s", top.Cause, top.Effect),
		Description: fmt.Sprintf("%s proxy strength %.2f suggests %q influences %q", top.Method, top.Strength, top.Cause, top.Effect),
		Confidence:  confidence,
		Question:    models.QuestionRootCause,
		Data: map[string]any{
			"relationship": top,
		},
	}}
}

func (a *Analyzer) timeSeriesInsights(logs []models.LogEntry, fields []string) []models.Insight {
	return a.temporalInsights(a.TimeSeriesPatterns(logs, fields))
}

func (a *Analyzer) temporalInsights(patterns []models.TimeSeriesPattern) []models.Insight {
	var insights []models.Insight
	for _, p := range patterns {
		if p.Strength < 0.3 {
			continue
		}
		severity := models.SeverityLow
		if p.Strength > 0.7 {
			severity = models.SeverityMedium
		}
		desc := fmt.Sprintf("Field %q shows a %s pattern (strength %.2f)", p.Field, p.Kind, p.Strength)
		if p.Kind == models.TimeSeriesTrend {
			desc = fmt.Sprintf("Field %q is %s over the window (strength %.2f)", p.Field, p.Direction, p.Strength)
		}
		if p.Kind == models.TimeSeriesCyclical {
			desc = fmt.Sprintf("Field %q repeats roughly every %d samples (autocorrelation %.2f)", p.Field, p.Lag, p.Strength)
		}
		insights = append(insights, models.Insight{
			Type:        models.InsightTemporal,
			Severity:    severity,
			Title:       fmt.Sprintf("Temporal pattern in %s", p.Field),
			Description: desc,
			Confidence:  clamp01(p.Strength),
			Question:    models.QuestionPatterns,
			Data:        map[string]any{"pattern": p},
		})
	}

	if len(insights) == 0 && len(patterns) > 0 {
		// Patterns exist but none cleared the bar; surface the strongest weakly.
		strongest := patterns[0]
		for _, p := range patterns[1:] {
			if p.Strength > strongest.Strength {
				strongest = p
			}
		}
		insights = append(insights, models.Insight{
			Type:        models.InsightTemporal,
			Severity:    models.SeverityLow,
			Title:       "Weak temporal structure only",
			Description: fmt.Sprintf("Strongest pattern is a %s in %q at %.2f; no clear temporal structure found", strongest.Kind, strongest.Field, strongest.Strength),
			Confidence:  0.3,
			Question:    models.QuestionPatterns,
			Data:        map[string]any{"pattern": strongest},
		})
	}
	return insights
}

func (a *Analyzer) clusterInsights(anomalies []models.AnomalyContext) []models.Insight {
	clusters := a.ClusterAnomalies(anomalies)

	var insights []models.Insight
	for _, c := range clusters {
		if len(c.Anomalies) < 2 {
			continue
		}
		insights = append(insights, models.Insight{
			Type:        models.InsightStatistical,
			Severity:    c.Severity,
			Title:       fmt.Sprintf("Cluster of %d similar anomalies", len(c.Anomalies)),
			Description: fmt.Sprintf("Anomalies cluster around %s with average confidence %.2f", c.Centroid.Start.Format("15:04:05"), c.Centroid.Confidence),
			Confidence:  clamp01(c.Centroid.Confidence),
			Question:    models.QuestionPatterns,
			Data:        map[string]any{"cluster_id": c.ID, "size": len(c.Anomalies)},
		})
	}
	return insights
}

func (a *Analyzer) significanceInsights(logs []models.LogEntry, anomaly models.AnomalyContext) []models.Insight {
	results := a.SignificanceTests(logs, anomaly)

	var insights []models.Insight
	for _, r := range results {
		if !r.Significant {
			continue
		}
		severity := models.SeverityMedium
		if r.PValue < 0.001 {
			severity = models.SeverityHigh
		}
		insights = append(insights, models.Insight{
			Type:        models.InsightStatistical,
			Severity:    severity,
			Title:       fmt.Sprintf("Significant shift in %s", r.Field),
			Description: fmt.Sprintf("%s on %q: statistic %.2f, p=%.4f comparing pre-anomaly vs anomaly window", r.Test, r.Field, r.Statistic, r.PValue),
			Confidence:  clamp01(1 - r.PValue),
			Question:    models.QuestionWhatHappened,
			Data:        map[string]any{"test": r},
		})
	}
	return insights
}
