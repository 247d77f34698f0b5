package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-explain/internal/config"
	"github.com/miradorstack/mirador-explain/internal/enhance"
	"github.com/miradorstack/mirador-explain/internal/ml"
	"github.com/miradorstack/mirador-explain/internal/models"
	"github.com/miradorstack/mirador-explain/internal/patterns"
	"github.com/miradorstack/mirador-explain/internal/stats"
	"github.com/miradorstack/mirador-explain/internal/utils"
)

// sustainedAnomalyDuration is the span beyond which an anomaly is called out
// as sustained rather than transient.
const sustainedAnomalyDuration = 5 * time.Minute

// highPriorityFloor is the priority at and above which an insight counts as
// high priority in the summary.
const highPriorityFloor = 8

// Generator is the top-level orchestrator: it fans out the statistical path
// and the pattern detector, merges their findings, augments them with
// anomaly-specific insights, and ranks everything by priority.
type Generator struct {
	logger   *slog.Logger
	cfg      config.Thresholds
	detector *patterns.Detector
	analyzer *stats.Analyzer
	mlSuite  *ml.Suite
	windows  *WindowAnalyzer
	rules    *RuleEngine
}

// NewGenerator constructs a Generator. A nil rule engine disables the YAML
// rule pack but keeps the keyword buckets.
func NewGenerator(cfg config.Thresholds, rules *RuleEngine, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if rules == nil {
		rules = &RuleEngine{logger: logger}
	}
	return &Generator{
		logger:   logger,
		cfg:      cfg,
		detector: patterns.NewDetector(cfg.Pattern, utils.ComponentLogger(logger, "patterns")),
		analyzer: stats.NewAnalyzer(cfg, utils.ComponentLogger(logger, "stats")),
		mlSuite:  ml.NewSuite(cfg.ML, utils.ComponentLogger(logger, "ml")),
		windows:  NewWindowAnalyzer(cfg.Windows, utils.ComponentLogger(logger, "windows")),
		rules:    rules,
	}
}

// Generate runs the full analysis for one request. Inverted anomaly bounds
// fail fast; analyzer failures inside the statistical path degrade to the
// insights already computed.
func (g *Generator) Generate(ctx context.Context, req models.ExplainRequest) (*models.AnalysisResult, error) {
	if !req.Anomaly.Valid() {
		return nil, utils.NewAppError("engine.Generate", "anomaly window is invalid: end precedes start or bounds are zero", nil)
	}

	started := time.Now()
	sorted := models.SortedByTime(req.Logs)

	var (
		wg            sync.WaitGroup
		statInsights  []models.Insight
		patternReport models.PatternReport
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		statInsights = g.statisticalPath(ctx, append([]models.LogEntry(nil), sorted...), req.Anomaly)
	}()
	go func() {
		defer wg.Done()
		patternReport = g.detector.Detect(append([]models.LogEntry(nil), sorted...))
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	insights := make([]models.ComprehensiveAnalysis, 0, len(statInsights)+len(patternReport.Patterns)+5)
	for _, in := range statInsights {
		insights = append(insights, g.merge(in))
	}
	for _, p := range patternReport.Patterns {
		insights = append(insights, g.mergePattern(p))
	}
	insights = append(insights, g.anomalyInsights(req.Anomaly)...)

	sort.SliceStable(insights, func(i, j int) bool {
		if insights[i].Priority != insights[j].Priority {
			return insights[i].Priority > insights[j].Priority
		}
		return models.SeverityRank(insights[i].Severity) > models.SeverityRank(insights[j].Severity)
	})

	result := &models.AnalysisResult{
		AnalysisID: "analysis-" + uuid.NewString(),
		Insights:   insights,
		Summary:    summarize(insights),
		Metadata: models.AnalysisMetadata{
			AnalysisDuration:        time.Since(started),
			LogCount:                len(req.Logs),
			PatternCount:            len(patternReport.Patterns),
			StatisticalInsightCount: len(statInsights),
		},
		CreatedAt: time.Now().UTC(),
	}

	g.logger.Info("analysis generated",
		slog.String("analysis_id", result.AnalysisID),
		slog.Int("insights", len(insights)),
		slog.Duration("took", result.Metadata.AnalysisDuration))
	return result, nil
}

// statisticalPath runs window comparisons, the advanced suite, the ML suite,
// and finally recommendations over everything accumulated. Each stage's
// failure is logged and skipped.
func (g *Generator) statisticalPath(ctx context.Context, logs []models.LogEntry, anomaly models.AnomalyContext) []models.Insight {
	report := g.windows.Analyze(logs, anomaly)
	insights := report.Insights

	enhanced := enhance.Enhance(logs)

	if ctx.Err() == nil {
		advanced, err := g.analyzer.Insights(enhanced, anomaly)
		if err != nil {
			g.logger.Warn("advanced analysis failed", slog.Any("error", err))
		} else {
			insights = append(insights, advanced...)
		}
	}

	if ctx.Err() == nil {
		mlInsights, err := g.mlSuite.Insights(enhanced)
		if err != nil {
			g.logger.Warn("ml analysis failed", slog.Any("error", err))
		} else {
			insights = append(insights, mlInsights...)
		}
	}

	insights = append(insights, g.rules.Recommend(insights)...)
	return insights
}

func (g *Generator) merge(in models.Insight) models.ComprehensiveAnalysis {
	return models.ComprehensiveAnalysis{
		Insight:    in,
		Category:   categoryFor(in),
		Actionable: actionableFor(in),
		Priority:   priorityFor(in),
	}
}

func (g *Generator) mergePattern(p models.DetectedPattern) models.ComprehensiveAnalysis {
	in := models.Insight{
		Type:        models.InsightPattern,
		Severity:    p.Severity,
		Title:       patternTitle(p.Type),
		Description: p.Description,
		Confidence:  p.Confidence,
		Question:    models.QuestionPatterns,
		Data: map[string]any{
			"pattern_type":  p.Type,
			"affected_logs": p.AffectedLogs,
			"metadata":      p.Metadata,
		},
	}
	return models.ComprehensiveAnalysis{
		Insight:    in,
		Category:   patternCategory(p.Type),
		Actionable: p.Type == models.PatternErrorSequence || p.Type == models.PatternVolumeSpike,
		Priority:   priorityFor(in),
	}
}

// anomalyInsights derives insights directly from the anomaly context fields.
func (g *Generator) anomalyInsights(anomaly models.AnomalyContext) []models.ComprehensiveAnalysis {
	var insights []models.ComprehensiveAnalysis

	switch {
	case anomaly.Grade > 0.8:
		insights = append(insights, models.ComprehensiveAnalysis{
			Insight: models.Insight{
				Type:        models.InsightStatistical,
				Severity:    models.SeverityCritical,
				Title:       "Critical Anomaly Detected",
				Description: fmt.Sprintf("Anomaly grade %.2f indicates a severe deviation from normal behavior", anomaly.Grade),
				Confidence:  anomaly.Confidence,
				Question:    models.QuestionWhatHappened,
			},
			Category:   models.CategoryErrors,
			Actionable: true,
			Priority:   10,
		})
	case anomaly.Grade > 0.5:
		in := models.Insight{
			Type:        models.InsightStatistical,
			Severity:    models.SeverityHigh,
			Title:       "Significant Anomaly Detected",
			Description: fmt.Sprintf("Anomaly grade %.2f indicates a notable deviation from normal behavior", anomaly.Grade),
			Confidence:  anomaly.Confidence,
			Question:    models.QuestionWhatHappened,
		}
		insights = append(insights, models.ComprehensiveAnalysis{
			Insight:    in,
			Category:   models.CategoryErrors,
			Actionable: true,
			Priority:   priorityFor(in),
		})
	}

	if anomaly.Confidence < 0.7 {
		in := models.Insight{
			Type:        models.InsightStatistical,
			Severity:    models.SeverityMedium,
			Title:       "Low Detection Confidence",
			Description: fmt.Sprintf("The detector reported confidence %.2f; treat this anomaly as a candidate rather than a certainty", anomaly.Confidence),
			Confidence:  1 - anomaly.Confidence,
			Question:    models.QuestionWhatHappened,
		}
		insights = append(insights, models.ComprehensiveAnalysis{
			Insight:  in,
			Category: models.CategoryPatterns,
			Priority: priorityFor(in),
		})
	}

	if len(anomaly.Entity) > 0 {
		parts := make([]string, 0, len(anomaly.Entity))
		for _, attr := range anomaly.Entity {
			parts = append(parts, attr.Name+"="+attr.Value)
		}
		in := models.Insight{
			Type:        models.InsightStatistical,
			Severity:    models.SeverityMedium,
			Title:       "Anomaly Scoped To Specific Entities",
			Description: "The anomaly is attributed to " + strings.Join(parts, ", "),
			Confidence:  anomaly.Confidence,
			Question:    models.QuestionRootCause,
		}
		insights = append(insights, models.ComprehensiveAnalysis{
			Insight:    in,
			Category:   models.CategoryCorrelations,
			Actionable: true,
			Priority:   priorityFor(in),
		})
	}

	if anomaly.Duration() > sustainedAnomalyDuration {
		in := models.Insight{
			Type:        models.InsightTemporal,
			Severity:    models.SeverityMedium,
			Title:       "Sustained Anomaly",
			Description: fmt.Sprintf("The anomaly lasted %.1f minutes, suggesting an ongoing condition rather than a transient blip", anomaly.Duration().Minutes()),
			Confidence:  anomaly.Confidence,
			Question:    models.QuestionPatterns,
		}
		insights = append(insights, models.ComprehensiveAnalysis{
			Insight:  in,
			Category: models.CategoryPatterns,
			Priority: priorityFor(in),
		})
	}
	return insights
}

// categoryFor routes an insight by type with a keyword refinement pass so
// error and volume findings land in their own buckets.
func categoryFor(in models.Insight) models.Category {
	title := strings.ToLower(in.Title)
	switch {
	case in.Type == models.InsightRecommendation:
		return models.CategoryRecommendations
	case strings.Contains(title, "error"):
		return models.CategoryErrors
	case strings.Contains(title, "volume") || strings.Contains(title, "spike") || strings.Contains(title, "traffic"):
		return models.CategoryVolume
	case strings.Contains(title, "response") || strings.Contains(title, "latency") || strings.Contains(title, "performance"):
		return models.CategoryPerformance
	case in.Type == models.InsightCorrelation:
		return models.CategoryCorrelations
	case in.Type == models.InsightTemporal, in.Type == models.InsightPattern:
		return models.CategoryPatterns
	default:
		return models.CategoryPatterns
	}
}

func patternCategory(patternType string) models.Category {
	switch patternType {
	case models.PatternErrorSequence:
		return models.CategoryErrors
	case models.PatternVolumeSpike, models.PatternVolumeDrop:
		return models.CategoryVolume
	case models.PatternFieldCorrelation:
		return models.CategoryCorrelations
	default:
		return models.CategoryPatterns
	}
}

func patternTitle(patternType string) string {
	switch patternType {
	case models.PatternRepeatingMessage:
		return "Repeating Message Pattern"
	case models.PatternErrorSequence:
		return "Consecutive Error Sequence"
	case models.PatternAnomalousValue:
		return "Anomalous Field Values"
	case models.PatternVolumeSpike:
		return "Log Volume Spike"
	case models.PatternVolumeDrop:
		return "Log Volume Drop"
	case models.PatternFieldCorrelation:
		return "Correlated Field Pair"
	case models.PatternTemporalPeak:
		return "Hourly Activity Peak"
	default:
		return "Detected Pattern"
	}
}

func actionableFor(in models.Insight) bool {
	if in.Type == models.InsightRecommendation {
		return true
	}
	if in.Severity == models.SeverityCritical {
		return true
	}
	title := strings.ToLower(in.Title)
	return strings.Contains(title, "error") || strings.Contains(title, "degraded")
}

// priorityFor maps severity, confidence, and type onto the 1-10 priority
// scale.
func priorityFor(in models.Insight) int {
	priority := 2
	switch in.Severity {
	case models.SeverityCritical:
		priority = 8
	case models.SeverityHigh:
		priority = 6
	case models.SeverityMedium:
		priority = 4
	}
	if in.Confidence > 0.8 {
		priority++
	}
	switch in.Type {
	case models.InsightRecommendation:
		priority++
	case models.InsightPattern, models.InsightCorrelation:
		if in.Confidence >= 0.9 {
			priority++
		}
	}
	if priority > 10 {
		priority = 10
	}
	if priority < 1 {
		priority = 1
	}
	return priority
}

func summarize(insights []models.ComprehensiveAnalysis) models.AnalysisSummary {
	summary := models.AnalysisSummary{
		TotalInsights:     len(insights),
		SeverityBreakdown: make(map[models.Severity]int),
		CategoryBreakdown: make(map[models.Category]int),
	}
	for _, in := range insights {
		summary.SeverityBreakdown[in.Severity]++
		summary.CategoryBreakdown[in.Category]++
		if in.Actionable {
			summary.ActionableInsights++
		}
		if in.Priority >= highPriorityFloor {
			summary.HighPriorityInsights++
		}
	}
	return summary
}
