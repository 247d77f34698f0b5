package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/miradorstack/mirador-explain/internal/enhance"
	"github.com/miradorstack/mirador-explain/internal/models"
)

// maxAutocorrLag bounds the cyclical pattern search.
const maxAutocorrLag = 20

// TimeSeriesPatterns detects trend, seasonal, and cyclical structure per
// numeric field. Logs must already be time-ordered.
func (a *Analyzer) TimeSeriesPatterns(logs []models.LogEntry, fields []string) []models.TimeSeriesPattern {
	minSamples := a.cfg.Correlation.MinSamples

	var patterns []models.TimeSeriesPattern
	for _, field := range fields {
		values := enhance.NumericSamples(logs, field)
		if len(values) < minSamples {
			continue
		}

		if p, ok := trendPattern(field, values); ok {
			patterns = append(patterns, p)
		}
		if p, ok := seasonalPattern(field, logs); ok {
			patterns = append(patterns, p)
		}
		if p, ok := cyclicalPattern(field, values); ok {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

func trendPattern(field string, values []float64) (models.TimeSeriesPattern, bool) {
	idx := make([]float64, len(values))
	for i := range idx {
		idx[i] = float64(i)
	}

	_, slope := stat.LinearRegression(idx, values, nil, false)
	strength := math.Abs(finite(stat.Correlation(idx, values, nil), 0))
	if strength == 0 || slope == 0 {
		return models.TimeSeriesPattern{}, false
	}

	direction := "increasing"
	if slope < 0 {
		direction = "decreasing"
	}
	return models.TimeSeriesPattern{
		Field:     field,
		Kind:      models.TimeSeriesTrend,
		Direction: direction,
		Strength:  clamp01(strength),
	}, true
}

func seasonalPattern(field string, logs []models.LogEntry) (models.TimeSeriesPattern, bool) {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	all := make([]float64, 0, len(logs))
	for _, entry := range logs {
		v, ok := entry.NumberField(field)
		if !ok {
			continue
		}
		h := entry.Timestamp.UTC().Hour()
		sums[h] += v
		counts[h]++
		all = append(all, v)
	}
	if len(counts) < 2 {
		return models.TimeSeriesPattern{}, false
	}

	overall := stat.Variance(all, nil)
	if overall == 0 {
		return models.TimeSeriesPattern{}, false
	}

	means := make([]float64, 0, len(sums))
	for h, sum := range sums {
		means = append(means, sum/float64(counts[h]))
	}
	strength := stat.Variance(means, nil) / overall
	if strength > 1 {
		strength = 1
	}
	if strength <= 0 {
		return models.TimeSeriesPattern{}, false
	}
	return models.TimeSeriesPattern{
		Field:     field,
		Kind:      models.TimeSeriesSeasonal,
		Direction: "hourly",
		Strength:  clamp01(strength),
	}, true
}

func cyclicalPattern(field string, values []float64) (models.TimeSeriesPattern, bool) {
	bestLag, bestCorr := 0, 0.0
	maxLag := maxAutocorrLag
	if maxLag > len(values)/2 {
		maxLag = len(values) / 2
	}
	for lag := 1; lag <= maxLag; lag++ {
		c := autocorrelation(values, lag)
		if c > bestCorr {
			bestCorr = c
			bestLag = lag
		}
	}
	if bestLag == 0 || bestCorr <= 0 {
		return models.TimeSeriesPattern{}, false
	}
	return models.TimeSeriesPattern{
		Field:    field,
		Kind:     models.TimeSeriesCyclical,
		Strength: clamp01(bestCorr),
		Lag:      bestLag,
	}, true
}

func autocorrelation(values []float64, lag int) float64 {
	n := len(values)
	if lag <= 0 || lag >= n {
		return 0
	}
	mean := stat.Mean(values, nil)

	var num, den float64
	for i := 0; i < n; i++ {
		den += (values[i] - mean) * (values[i] - mean)
	}
	if den == 0 {
		return 0
	}
	for i := 0; i < n-lag; i++ {
		num += (values[i] - mean) * (values[i+lag] - mean)
	}
	return finite(num/den, 0)
}
