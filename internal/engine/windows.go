package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/miradorstack/mirador-explain/internal/config"
	"github.com/miradorstack/mirador-explain/internal/models"
	"github.com/miradorstack/mirador-explain/internal/patterns"
)

// responseTimeFields are the candidate field names probed for latency data,
// in priority order.
var responseTimeFields = []string{"response_time", "duration", "latency", "execution_time", "processing_time"}

// userFields are the candidate field names probed for a user identifier.
var userFields = []string{"user", "user_id", "username", "client_id"}

// StatisticalSummary carries the key metrics of one window analysis.
type StatisticalSummary struct {
	LogCount         int
	AnomalyDuration  time.Duration
	TimeRange        models.TimeRange
	ErrorRate        float64
	MeanResponseTime float64
	HasResponseTime  bool
	Throughput       float64
	UniqueUsers      int
}

// WindowReport is the window analyzer's full output, insights sorted by
// severity then confidence.
type WindowReport struct {
	Insights []models.Insight
	Summary  StatisticalSummary
}

// WindowAnalyzer compares the log windows before, during, and after the
// anomaly bounds.
type WindowAnalyzer struct {
	cfg    config.WindowThresholds
	logger *slog.Logger
}

// NewWindowAnalyzer constructs a WindowAnalyzer.
func NewWindowAnalyzer(cfg config.WindowThresholds, logger *slog.Logger) *WindowAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WindowAnalyzer{cfg: cfg, logger: logger}
}

// Analyze runs the five window comparisons over time-ordered logs. The
// padding window never crosses the anomaly bounds: before ends at the anomaly
// start, after begins at the anomaly end.
func (w *WindowAnalyzer) Analyze(logs []models.LogEntry, anomaly models.AnomalyContext) WindowReport {
	paddedStart := anomaly.Start.Add(-w.cfg.Padding)
	paddedEnd := anomaly.End.Add(w.cfg.Padding)

	var before, during, after []models.LogEntry
	for _, entry := range logs {
		ts := entry.Timestamp
		switch {
		case !ts.Before(anomaly.Start) && !ts.After(anomaly.End):
			during = append(during, entry)
		case !ts.Before(paddedStart) && ts.Before(anomaly.Start):
			before = append(before, entry)
		case ts.After(anomaly.End) && !ts.After(paddedEnd):
			after = append(after, entry)
		}
	}

	var insights []models.Insight
	insights = append(insights, w.volumeInsights(before, during, anomaly.Duration())...)
	insights = append(insights, w.errorRateInsights(before, during)...)
	insights = append(insights, w.responseTimeInsights(before, during)...)
	insights = append(insights, w.coOccurrenceInsights(before, during)...)
	insights = append(insights, w.trafficInsights(logs)...)

	sort.SliceStable(insights, func(i, j int) bool {
		ri, rj := models.SeverityRank(insights[i].Severity), models.SeverityRank(insights[j].Severity)
		if ri != rj {
			return ri > rj
		}
		return insights[i].Confidence > insights[j].Confidence
	})

	return WindowReport{
		Insights: insights,
		Summary:  w.summarize(logs, during, anomaly, paddedStart, paddedEnd),
	}
}

func (w *WindowAnalyzer) volumeInsights(before, during []models.LogEntry, anomalySpan time.Duration) []models.Insight {
	if anomalySpan <= 0 {
		anomalySpan = time.Second
	}
	beforeRate := logRate(before, w.cfg.Padding)
	duringRate := logRate(during, anomalySpan)
	if beforeRate <= 0 {
		return nil
	}

	if duringRate > w.cfg.VolumeSpikeFactor*beforeRate {
		ratio := duringRate / beforeRate
		return []models.Insight{{
			Type:        models.InsightStatistical,
			Severity:    models.SeverityHigh,
			Title:       "Log Volume Spike During Anomaly",
			Description: fmt.Sprintf("Log volume during the anomaly is %.1fx the preceding window (%.2f vs %.2f entries/sec)", ratio, duringRate, beforeRate),
			Confidence:  clampUnit(ratio / 5),
			Question:    models.QuestionWhatHappened,
			Data: map[string]any{
				"before_rate": beforeRate,
				"during_rate": duringRate,
			},
		}}
	}

	if duringRate < beforeRate/w.cfg.VolumeSpikeFactor {
		return []models.Insight{{
			Type:        models.InsightStatistical,
			Severity:    models.SeverityHigh,
			Title:       "Log Volume Drop During Anomaly",
			Description: fmt.Sprintf("Log volume during the anomaly fell to %.2f entries/sec from %.2f before it; the system may have stopped emitting", duringRate, beforeRate),
			Confidence:  clampUnit(1 - duringRate/beforeRate),
			Question:    models.QuestionWhatHappened,
			Data: map[string]any{
				"before_rate": beforeRate,
				"during_rate": duringRate,
			},
		}}
	}
	return nil
}

func (w *WindowAnalyzer) errorRateInsights(before, during []models.LogEntry) []models.Insight {
	duringRate := errorRate(during)
	if duringRate <= w.cfg.ErrorRateThreshold {
		return nil
	}

	insights := []models.Insight{{
		Type:        models.InsightStatistical,
		Severity:    models.SeverityCritical,
		Title:       "High Error Rate During Anomaly",
		Description: fmt.Sprintf("%.0f%% of logs during the anomaly are error-like", duringRate*100),
		Confidence:  clampUnit(duringRate * 2),
		Question:    models.QuestionWhatHappened,
		Data: map[string]any{
			"error_rate": duringRate,
		},
	}}

	// A high during-window error rate always pairs with a root-cause insight;
	// the before-window comparison only enriches it.
	beforeRate := errorRate(before)
	grew := beforeRate > 0 && duringRate > w.cfg.ErrorRateGrowth*beforeRate

	title := "Errors Concentrated In The Anomaly Window"
	desc := fmt.Sprintf("Errors run at %.0f%% inside the anomaly window against a clean preceding window", duringRate*100)
	confidence := clampUnit(duringRate * 1.5)
	if grew {
		title = "Error Rate Grew With The Anomaly"
		desc = fmt.Sprintf("Error rate rose from %.0f%% to %.0f%% when the anomaly began, pointing at a fault introduced in that window", beforeRate*100, duringRate*100)
		confidence = clampUnit(duringRate / beforeRate / 3)
	} else if beforeRate > 0 {
		desc = fmt.Sprintf("Errors run at %.0f%% inside the anomaly window against %.0f%% before it", duringRate*100, beforeRate*100)
	}

	insights = append(insights, models.Insight{
		Type:        models.InsightStatistical,
		Severity:    models.SeverityHigh,
		Title:       title,
		Description: desc,
		Confidence:  confidence,
		Question:    models.QuestionRootCause,
		Data: map[string]any{
			"before_error_rate": beforeRate,
			"during_error_rate": duringRate,
			"grew_past_factor":  grew,
		},
	})
	return insights
}

func (w *WindowAnalyzer) responseTimeInsights(before, during []models.LogEntry) []models.Insight {
	field, beforeMean, ok := meanResponseTime(before)
	if !ok || beforeMean <= 0 {
		return nil
	}
	duringField, duringMean, ok := meanResponseTime(during)
	if !ok || duringField != field {
		return nil
	}
	if duringMean <= w.cfg.ResponseDegradeFactor*beforeMean {
		return nil
	}

	ratio := duringMean / beforeMean
	return []models.Insight{{
		Type:        models.InsightStatistical,
		Severity:    models.SeverityHigh,
		Title:       "Response Time Degraded During Anomaly",
		Description: fmt.Sprintf("Mean %s rose %.1fx during the anomaly (%.1f vs %.1f)", field, ratio, duringMean, beforeMean),
		Confidence:  clampUnit(ratio / 3),
		Question:    models.QuestionWhatHappened,
		Data: map[string]any{
			"field":       field,
			"before_mean": beforeMean,
			"during_mean": duringMean,
		},
	}}
}

// coOccurrenceInsights flags categorical values that only start appearing
// together once the anomaly begins.
func (w *WindowAnalyzer) coOccurrenceInsights(before, during []models.LogEntry) []models.Insight {
	beforePairs := valuePairCounts(before)
	duringPairs := valuePairCounts(during)
	if len(duringPairs) == 0 {
		return nil
	}

	type novelPair struct {
		pair  string
		count int
	}
	var novel []novelPair
	for pair, count := range duringPairs {
		if beforePairs[pair] == 0 && count >= 3 {
			novel = append(novel, novelPair{pair: pair, count: count})
		}
	}
	if len(novel) == 0 {
		return nil
	}
	sort.Slice(novel, func(i, j int) bool {
		if novel[i].count != novel[j].count {
			return novel[i].count > novel[j].count
		}
		return novel[i].pair < novel[j].pair
	})

	top := novel[0]
	return []models.Insight{{
		Type:        models.InsightCorrelation,
		Severity:    models.SeverityMedium,
		Title:       "New Field Combination During Anomaly",
		Description: fmt.Sprintf("The combination %s appears %d times during the anomaly but never before it", top.pair, top.count),
		Confidence:  clampUnit(float64(top.count) / 10),
		Question:    models.QuestionRootCause,
		Data: map[string]any{
			"pair":  top.pair,
			"count": top.count,
		},
	}}
}

func (w *WindowAnalyzer) trafficInsights(logs []models.LogEntry) []models.Insight {
	counts := make(map[int]int)
	for _, entry := range logs {
		counts[entry.Timestamp.UTC().Hour()]++
	}
	if len(counts) < 2 {
		return nil
	}

	hourly := make([]float64, 0, len(counts))
	maxCount := 0.0
	for _, c := range counts {
		hourly = append(hourly, float64(c))
		if float64(c) > maxCount {
			maxCount = float64(c)
		}
	}
	sort.Float64s(hourly)
	median := hourly[len(hourly)/2]
	if median <= 0 {
		return nil
	}

	pattern := "steady"
	severity := models.SeverityLow
	if maxCount > w.cfg.BurstyFactor*median {
		pattern = "bursty"
		severity = models.SeverityMedium
	}
	return []models.Insight{{
		Type:        models.InsightTemporal,
		Severity:    severity,
		Title:       fmt.Sprintf("Traffic pattern is %s", pattern),
		Description: fmt.Sprintf("Peak hourly volume is %.1fx the median across the analyzed window", maxCount/median),
		Confidence:  0.6,
		Question:    models.QuestionPatterns,
		Data: map[string]any{
			"pattern":    pattern,
			"peak_ratio": maxCount / median,
			"hour_count": len(counts),
		},
	}}
}

func (w *WindowAnalyzer) summarize(logs, during []models.LogEntry, anomaly models.AnomalyContext, paddedStart, paddedEnd time.Time) StatisticalSummary {
	summary := StatisticalSummary{
		LogCount:        len(logs),
		AnomalyDuration: anomaly.Duration(),
		TimeRange:       models.TimeRange{Start: paddedStart, End: paddedEnd},
		ErrorRate:       errorRate(during),
	}

	if _, mean, ok := meanResponseTime(logs); ok {
		summary.MeanResponseTime = mean
		summary.HasResponseTime = true
	}

	if span := paddedEnd.Sub(paddedStart).Seconds(); span > 0 {
		summary.Throughput = float64(len(logs)) / span
	}

	users := make(map[string]struct{})
	for _, entry := range logs {
		for _, field := range userFields {
			if v, ok := entry.StringField(field); ok {
				users[v] = struct{}{}
				break
			}
		}
	}
	summary.UniqueUsers = len(users)
	return summary
}

func logRate(logs []models.LogEntry, window time.Duration) float64 {
	if window <= 0 {
		return 0
	}
	return float64(len(logs)) / window.Seconds()
}

func errorRate(logs []models.LogEntry) float64 {
	if len(logs) == 0 {
		return 0
	}
	errors := 0
	for _, entry := range logs {
		if patterns.IsErrorLike(entry) {
			errors++
		}
	}
	return float64(errors) / float64(len(logs))
}

func meanResponseTime(logs []models.LogEntry) (string, float64, bool) {
	for _, field := range responseTimeFields {
		var sum float64
		var count int
		for _, entry := range logs {
			if v, ok := entry.NumberField(field); ok {
				sum += v
				count++
			}
		}
		if count > 0 {
			return field, sum / float64(count), true
		}
	}
	return "", 0, false
}

// valuePairCounts counts co-occurring (field=value, field=value) pairs per
// entry, bounded to the first few categorical fields to stay linear.
func valuePairCounts(logs []models.LogEntry) map[string]int {
	const maxPairFields = 6
	counts := make(map[string]int)
	for _, entry := range logs {
		var kvs []string
		for name, fv := range entry.Fields {
			if fv.Kind == models.FieldString && fv.Str != "" {
				kvs = append(kvs, name+"="+fv.Str)
			}
		}
		sort.Strings(kvs)
		if len(kvs) > maxPairFields {
			kvs = kvs[:maxPairFields]
		}
		for i := 0; i < len(kvs); i++ {
			for j := i + 1; j < len(kvs); j++ {
				counts[kvs[i]+" & "+kvs[j]]++
			}
		}
	}
	return counts
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
