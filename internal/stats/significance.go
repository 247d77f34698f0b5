package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/miradorstack/mirador-explain/internal/enhance"
	"github.com/miradorstack/mirador-explain/internal/models"
)

// significanceAlpha is the cutoff for flagging a test as significant.
const significanceAlpha = 0.05

// minTestSamples is the minimum per-window sample count for any test.
const minTestSamples = 5

// SignificanceResult is one classical test comparing the window before the
// anomaly against the anomaly window itself.
type SignificanceResult struct {
	Field       string
	Test        string
	Statistic   float64
	PValue      float64
	Significant bool
}

// SignificanceTests compares numeric fields (Welch t-test, Mann-Whitney U)
// and categorical fields (chi-square) between the pre-anomaly window and the
// anomaly window. Insufficient samples skip a test rather than erroring.
func (a *Analyzer) SignificanceTests(logs []models.LogEntry, anomaly models.AnomalyContext) []SignificanceResult {
	window := a.cfg.Windows.ComparisonWindow
	beforeStart := anomaly.Start.Add(-window)

	var before, during []models.LogEntry
	for _, entry := range logs {
		switch {
		case !entry.Timestamp.Before(anomaly.Start) && !entry.Timestamp.After(anomaly.End):
			during = append(during, entry)
		case !entry.Timestamp.Before(beforeStart) && entry.Timestamp.Before(anomaly.Start):
			before = append(before, entry)
		}
	}

	var results []SignificanceResult
	for _, field := range enhance.NumericFields(logs) {
		b := enhance.NumericSamples(before, field)
		d := enhance.NumericSamples(during, field)
		if len(b) < minTestSamples || len(d) < minTestSamples {
			continue
		}
		if r, ok := welchTTest(field, b, d); ok {
			results = append(results, r)
		}
		if r, ok := mannWhitneyU(field, b, d); ok {
			results = append(results, r)
		}
	}

	for _, field := range enhance.CategoricalFields(logs) {
		if r, ok := chiSquare(field, before, during); ok {
			results = append(results, r)
		}
	}
	return results
}

func welchTTest(field string, a, b []float64) (SignificanceResult, bool) {
	meanA, varA := stat.MeanVariance(a, nil)
	meanB, varB := stat.MeanVariance(b, nil)
	na, nb := float64(len(a)), float64(len(b))

	se := varA/na + varB/nb
	if se <= 0 {
		// Identical constant windows: no evidence of change.
		return SignificanceResult{Field: field, Test: "t_test", PValue: 1}, true
	}

	t := (meanA - meanB) / math.Sqrt(se)
	// Welch-Satterthwaite degrees of freedom.
	df := se * se / ((varA*varA)/(na*na*(na-1)) + (varB*varB)/(nb*nb*(nb-1)))
	if df < 1 || math.IsNaN(df) {
		df = 1
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := clamp01(finite(2*(1-dist.CDF(math.Abs(t))), 1))
	return SignificanceResult{
		Field:       field,
		Test:        "t_test",
		Statistic:   finite(t, 0),
		PValue:      p,
		Significant: p < significanceAlpha,
	}, true
}

func mannWhitneyU(field string, a, b []float64) (SignificanceResult, bool) {
	na, nb := float64(len(a)), float64(len(b))
	combined := append(append([]float64(nil), a...), b...)
	r := ranks(combined)

	var rankSumA float64
	for i := range a {
		rankSumA += r[i]
	}
	u := rankSumA - na*(na+1)/2

	mu := na * nb / 2
	sigma := math.Sqrt(na * nb * (na + nb + 1) / 12)
	if sigma == 0 {
		return SignificanceResult{Field: field, Test: "mann_whitney", PValue: 1}, true
	}

	z := (u - mu) / sigma
	norm := distuv.Normal{Mu: 0, Sigma: 1}
	p := clamp01(finite(2*(1-norm.CDF(math.Abs(z))), 1))
	return SignificanceResult{
		Field:       field,
		Test:        "mann_whitney",
		Statistic:   finite(z, 0),
		PValue:      p,
		Significant: p < significanceAlpha,
	}, true
}

func chiSquare(field string, before, during []models.LogEntry) (SignificanceResult, bool) {
	beforeCounts := categoryCounts(before, field)
	duringCounts := categoryCounts(during, field)
	if len(beforeCounts) == 0 || len(duringCounts) == 0 {
		return SignificanceResult{}, false
	}

	categories := make(map[string]struct{})
	for c := range beforeCounts {
		categories[c] = struct{}{}
	}
	for c := range duringCounts {
		categories[c] = struct{}{}
	}
	if len(categories) < 2 {
		return SignificanceResult{}, false
	}

	ordered := make([]string, 0, len(categories))
	for c := range categories {
		ordered = append(ordered, c)
	}
	sort.Strings(ordered)

	var totalBefore, totalDuring float64
	for _, c := range ordered {
		totalBefore += float64(beforeCounts[c])
		totalDuring += float64(duringCounts[c])
	}
	total := totalBefore + totalDuring
	if totalBefore < minTestSamples || totalDuring < minTestSamples {
		return SignificanceResult{}, false
	}

	var chi2 float64
	for _, c := range ordered {
		rowTotal := float64(beforeCounts[c] + duringCounts[c])
		for _, obs := range []struct{ count, colTotal float64 }{
			{float64(beforeCounts[c]), totalBefore},
			{float64(duringCounts[c]), totalDuring},
		} {
			expected := rowTotal * obs.colTotal / total
			if expected == 0 {
				continue
			}
			diff := obs.count - expected
			chi2 += diff * diff / expected
		}
	}

	df := float64(len(categories) - 1)
	dist := distuv.ChiSquared{K: df}
	p := clamp01(finite(1-dist.CDF(chi2), 1))
	return SignificanceResult{
		Field:       field,
		Test:        "chi_square",
		Statistic:   finite(chi2, 0),
		PValue:      p,
		Significant: p < significanceAlpha,
	}, true
}

func categoryCounts(logs []models.LogEntry, field string) map[string]int {
	counts := make(map[string]int)
	for _, entry := range logs {
		if s, ok := entry.StringField(field); ok {
			counts[s]++
		}
	}
	return counts
}
