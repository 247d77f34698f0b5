package patterns

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/miradorstack/mirador-explain/internal/config"
	"github.com/miradorstack/mirador-explain/internal/enhance"
	"github.com/miradorstack/mirador-explain/internal/models"
)

// errorKeywords match messages that count towards error sequences and error
// rates.
var errorKeywords = []string{"error", "exception", "failed", "timeout", "denied", "unauthorized"}

// Detector finds six rule-based pattern families in a log window. It holds no
// state across calls; construct one per request or share freely.
type Detector struct {
	cfg    config.PatternThresholds
	logger *slog.Logger
}

// NewDetector constructs a Detector with the provided thresholds.
func NewDetector(cfg config.PatternThresholds, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{cfg: cfg, logger: logger}
}

// Detect runs all pattern families over the logs. The input is not mutated;
// detection operates on a timestamp-sorted copy. Fewer than MinLogCount
// entries yield an empty report.
func (d *Detector) Detect(logs []models.LogEntry) models.PatternReport {
	report := models.PatternReport{
		Patterns: []models.DetectedPattern{},
		Summary: models.PatternSummary{
			ByType:     make(map[string]int),
			BySeverity: make(map[models.Severity]int),
		},
	}
	if len(logs) < d.cfg.MinLogCount {
		return report
	}

	sorted := models.SortedByTime(logs)

	var found []models.DetectedPattern
	found = append(found, d.repeatingMessages(sorted)...)
	found = append(found, d.errorSequences(sorted)...)
	found = append(found, d.anomalousValues(sorted)...)
	found = append(found, d.volumeShifts(sorted)...)
	found = append(found, d.fieldCorrelations(sorted)...)
	found = append(found, d.hourlyPeaks(sorted)...)

	for _, p := range found {
		if !d.keep(p) {
			continue
		}
		report.Patterns = append(report.Patterns, p)
		report.Summary.ByType[p.Type]++
		report.Summary.BySeverity[p.Severity]++
	}
	report.Summary.TotalPatterns = len(report.Patterns)

	sort.SliceStable(report.Patterns, func(i, j int) bool {
		return report.Patterns[i].Confidence > report.Patterns[j].Confidence
	})

	return report
}

// keep applies the global confidence filter. Count-gated families (repeats,
// error runs, outliers) already passed their own occurrence gates and are
// kept regardless, so low-rate but real repetition is never silently dropped.
func (d *Detector) keep(p models.DetectedPattern) bool {
	switch p.Type {
	case models.PatternRepeatingMessage, models.PatternErrorSequence, models.PatternAnomalousValue:
		return true
	default:
		return p.Confidence >= d.cfg.ConfidenceThreshold
	}
}

func (d *Detector) severityFor(confidence float64) models.Severity {
	switch {
	case confidence >= d.cfg.SeverityCritical:
		return models.SeverityCritical
	case confidence >= d.cfg.SeverityHigh:
		return models.SeverityHigh
	case confidence >= d.cfg.SeverityMedium:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

type messageGroup struct {
	first time.Time
	last  time.Time
	count int
}

func (d *Detector) repeatingMessages(logs []models.LogEntry) []models.DetectedPattern {
	groups := make(map[string]*messageGroup)
	for _, entry := range logs {
		key := entry.Message
		if key == "" {
			key = serializeEntry(entry)
		}
		g, ok := groups[key]
		if !ok {
			g = &messageGroup{first: entry.Timestamp, last: entry.Timestamp}
			groups[key] = g
		}
		if entry.Timestamp.Before(g.first) {
			g.first = entry.Timestamp
		}
		if entry.Timestamp.After(g.last) {
			g.last = entry.Timestamp
		}
		g.count++
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var patterns []models.DetectedPattern
	for _, key := range keys {
		g := groups[key]
		if g.count < d.cfg.RepeatMinCount {
			continue
		}
		span := g.last.Sub(g.first).Seconds()
		rate := float64(g.count)
		if span > 0 {
			rate = float64(g.count) / span
		}
		if rate <= d.cfg.RepeatMinRate {
			continue
		}
		confidence := math.Min(0.95, float64(g.count)/50.0)
		patterns = append(patterns, models.DetectedPattern{
			Type:         models.PatternRepeatingMessage,
			Description:  fmt.Sprintf("Message repeated %d times: %s", g.count, truncate(key, 120)),
			Confidence:   confidence,
			Severity:     d.severityFor(confidence),
			TimeRange:    models.TimeRange{Start: g.first, End: g.last},
			AffectedLogs: g.count,
			Metadata: map[string]any{
				"message":         key,
				"rate_per_second": rate,
			},
		})
	}
	return patterns
}

func (d *Detector) errorSequences(logs []models.LogEntry) []models.DetectedPattern {
	var patterns []models.DetectedPattern
	runStart := -1

	flush := func(end int) {
		if runStart < 0 {
			return
		}
		length := end - runStart
		if length >= d.cfg.ErrorRunLength {
			confidence := math.Min(0.9, float64(length)/10.0)
			patterns = append(patterns, models.DetectedPattern{
				Type:         models.PatternErrorSequence,
				Description:  fmt.Sprintf("Sequence of %d consecutive error-like entries", length),
				Confidence:   confidence,
				Severity:     d.severityFor(confidence),
				TimeRange:    models.TimeRange{Start: logs[runStart].Timestamp, End: logs[end-1].Timestamp},
				AffectedLogs: length,
				Metadata: map[string]any{
					"first_message": logs[runStart].Message,
				},
			})
		}
		runStart = -1
	}

	for i, entry := range logs {
		if IsErrorLike(entry) {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		flush(i)
	}
	flush(len(logs))

	return patterns
}

func (d *Detector) anomalousValues(logs []models.LogEntry) []models.DetectedPattern {
	var patterns []models.DetectedPattern
	for _, field := range enhance.NumericFields(logs) {
		samples := enhance.NumericSamples(logs, field)
		if len(samples) < d.cfg.MinFieldSamples {
			continue
		}
		mean := stat.Mean(samples, nil)
		sd := math.Sqrt(stat.Variance(samples, nil))
		if sd == 0 {
			continue
		}

		outliers := 0
		var firstOutlier, lastOutlier time.Time
		for _, entry := range logs {
			v, ok := entry.NumberField(field)
			if !ok {
				continue
			}
			if math.Abs(v-mean) > d.cfg.OutlierStdDevs*sd {
				if outliers == 0 || entry.Timestamp.Before(firstOutlier) {
					firstOutlier = entry.Timestamp
				}
				if entry.Timestamp.After(lastOutlier) {
					lastOutlier = entry.Timestamp
				}
				outliers++
			}
		}
		if outliers == 0 {
			continue
		}

		confidence := math.Min(0.9, float64(outliers)/float64(len(samples)))
		patterns = append(patterns, models.DetectedPattern{
			Type:         models.PatternAnomalousValue,
			Description:  fmt.Sprintf("Field %q has %d values beyond %.0f standard deviations", field, outliers, d.cfg.OutlierStdDevs),
			Confidence:   confidence,
			Severity:     d.severityFor(confidence),
			TimeRange:    models.TimeRange{Start: firstOutlier, End: lastOutlier},
			AffectedLogs: outliers,
			Metadata: map[string]any{
				"field":  field,
				"mean":   mean,
				"stddev": sd,
			},
		})
	}
	return patterns
}

func (d *Detector) volumeShifts(logs []models.LogEntry) []models.DetectedPattern {
	window := d.cfg.TimeWindow
	if window <= 0 {
		window = time.Minute
	}

	start := logs[0].Timestamp.Truncate(window)
	buckets := make(map[int64]int)
	for _, entry := range logs {
		idx := int64(entry.Timestamp.Sub(start) / window)
		buckets[idx]++
	}
	if len(buckets) < d.cfg.MinVolumeWindows {
		return nil
	}

	counts := make([]float64, 0, len(buckets))
	indices := make([]int64, 0, len(buckets))
	for idx := range buckets {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	for _, idx := range indices {
		counts = append(counts, float64(buckets[idx]))
	}

	mean := stat.Mean(counts, nil)
	sd := math.Sqrt(stat.Variance(counts, nil))
	if sd == 0 {
		return nil
	}

	var patterns []models.DetectedPattern
	for i, idx := range indices {
		count := counts[i]
		z := (count - mean) / sd
		if math.Abs(z) <= 2 {
			continue
		}
		bucketStart := start.Add(time.Duration(idx) * window)
		confidence := math.Min(0.95, math.Abs(z)/3.0)
		patternType := models.PatternVolumeSpike
		desc := fmt.Sprintf("Log volume spike: %d entries in %s window (mean %.1f)", int(count), window, mean)
		if z < 0 {
			patternType = models.PatternVolumeDrop
			desc = fmt.Sprintf("Log volume drop: %d entries in %s window (mean %.1f)", int(count), window, mean)
		}
		patterns = append(patterns, models.DetectedPattern{
			Type:         patternType,
			Description:  desc,
			Confidence:   confidence,
			Severity:     d.severityFor(confidence),
			TimeRange:    models.TimeRange{Start: bucketStart, End: bucketStart.Add(window)},
			AffectedLogs: int(count),
			Metadata: map[string]any{
				"zscore":      z,
				"mean_volume": mean,
			},
		})
	}
	return patterns
}

func (d *Detector) fieldCorrelations(logs []models.LogEntry) []models.DetectedPattern {
	fields := coercibleFields(logs)
	var patterns []models.DetectedPattern
	for i := 0; i < len(fields); i++ {
		for j := i + 1; j < len(fields); j++ {
			xs, ys := coercedPairs(logs, fields[i], fields[j])
			if len(xs) < d.cfg.MinFieldSamples {
				continue
			}
			r := stat.Correlation(xs, ys, nil)
			if math.IsNaN(r) || math.Abs(r) <= d.cfg.CorrelationFlag {
				continue
			}
			confidence := math.Min(0.95, math.Abs(r))
			patterns = append(patterns, models.DetectedPattern{
				Type:         models.PatternFieldCorrelation,
				Description:  fmt.Sprintf("Fields %q and %q are correlated (r=%.2f)", fields[i], fields[j], r),
				Confidence:   confidence,
				Severity:     d.severityFor(confidence),
				TimeRange:    models.TimeRange{Start: logs[0].Timestamp, End: logs[len(logs)-1].Timestamp},
				AffectedLogs: len(xs),
				Metadata: map[string]any{
					"field1":      fields[i],
					"field2":      fields[j],
					"correlation": r,
				},
			})
		}
	}
	return patterns
}

func (d *Detector) hourlyPeaks(logs []models.LogEntry) []models.DetectedPattern {
	var hours [24]int
	for _, entry := range logs {
		hours[entry.Timestamp.UTC().Hour()]++
	}

	total := 0
	maxCount, maxHour := 0, 0
	for h, count := range hours {
		total += count
		if count > maxCount {
			maxCount = count
			maxHour = h
		}
	}
	avg := float64(total) / 24.0
	if avg == 0 || float64(maxCount) <= d.cfg.HourlyPeakFactor*avg {
		return nil
	}

	type hourCount struct {
		hour  int
		count int
	}
	ranked := make([]hourCount, 0, 24)
	for h, count := range hours {
		if count > 0 {
			ranked = append(ranked, hourCount{hour: h, count: count})
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].count > ranked[j].count })
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}
	peaks := make([]int, 0, len(ranked))
	for _, hc := range ranked {
		peaks = append(peaks, hc.hour)
	}

	ratio := float64(maxCount) / avg
	confidence := math.Min(0.95, 0.5+ratio/10.0)
	return []models.DetectedPattern{{
		Type:         models.PatternTemporalPeak,
		Description:  fmt.Sprintf("Activity peaks at hour %02d:00 UTC (%.1fx the hourly average)", maxHour, ratio),
		Confidence:   confidence,
		Severity:     d.severityFor(confidence),
		TimeRange:    models.TimeRange{Start: logs[0].Timestamp, End: logs[len(logs)-1].Timestamp},
		AffectedLogs: maxCount,
		Metadata: map[string]any{
			"peak_hours": peaks,
			"peak_ratio": ratio,
		},
	}}
}

// IsErrorLike reports whether a log entry matches the error keyword set by
// level or message.
func IsErrorLike(entry models.LogEntry) bool {
	if strings.EqualFold(entry.Level, "error") || strings.EqualFold(entry.Level, "fatal") {
		return true
	}
	msg := strings.ToLower(entry.Message)
	for _, kw := range errorKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// coercibleFields returns fields usable for correlation: numeric fields plus
// categorical fields whose values parse as numbers.
func coercibleFields(logs []models.LogEntry) []string {
	fields := enhance.NumericFields(logs)
	for _, field := range enhance.CategoricalFields(logs) {
		for _, entry := range logs {
			if s, ok := entry.StringField(field); ok {
				if _, err := strconv.ParseFloat(s, 64); err == nil {
					fields = append(fields, field)
				}
				break
			}
		}
	}
	sort.Strings(fields)
	return fields
}

func coercedPairs(logs []models.LogEntry, field1, field2 string) ([]float64, []float64) {
	xs := make([]float64, 0, len(logs))
	ys := make([]float64, 0, len(logs))
	for _, entry := range logs {
		x, ok1 := coerceNumber(entry, field1)
		y, ok2 := coerceNumber(entry, field2)
		if ok1 && ok2 {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}

func coerceNumber(entry models.LogEntry, field string) (float64, bool) {
	if v, ok := entry.NumberField(field); ok {
		return v, true
	}
	if s, ok := entry.StringField(field); ok {
		if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v, true
		}
	}
	return 0, false
}

func serializeEntry(entry models.LogEntry) string {
	var b strings.Builder
	b.WriteString(entry.Level)
	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fv := entry.Fields[k]
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		if fv.Kind == models.FieldNumber {
			b.WriteString(strconv.FormatFloat(fv.Num, 'g', -1, 64))
		} else {
			b.WriteString(fv.Str)
		}
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
