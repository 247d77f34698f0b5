package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/miradorstack/mirador-explain/internal/enhance"
	"github.com/miradorstack/mirador-explain/internal/models"
)

// FieldCorrelations computes a correlation result for every unordered field
// pair with enough aligned samples. The reported method is selected per pair:
// strong clean Pearson stays Pearson, outlier-contaminated pairs fall back to
// Spearman, everything else reports Kendall.
func (a *Analyzer) FieldCorrelations(logs []models.LogEntry, fields []string) []models.CorrelationResult {
	cfg := a.cfg.Correlation
	if len(fields) > cfg.MaxFields {
		fields = fields[:cfg.MaxFields]
	}

	var results []models.CorrelationResult
	for i := 0; i < len(fields); i++ {
		for j := i + 1; j < len(fields); j++ {
			xs, ys := enhance.PairedSamples(logs, fields[i], fields[j])
			if len(xs) < cfg.MinSamples {
				continue
			}

			pearson := finite(stat.Correlation(xs, ys, nil), 0)
			method := models.MethodKendall
			r := 0.0

			outliers := hasIQROutliers(xs) || hasIQROutliers(ys)
			switch {
			case math.Abs(pearson) > cfg.PearsonCutoff && !outliers:
				method = models.MethodPearson
				r = pearson
			case outliers:
				method = models.MethodSpearman
				r = finite(stat.Correlation(ranks(xs), ranks(ys), nil), 0)
			default:
				method = models.MethodKendall
				kx := subsample(xs, cfg.MaxKendallSamples)
				ky := subsample(ys, cfg.MaxKendallSamples)
				r = finite(stat.Kendall(kx, ky, nil), 0)
			}

			if r > 1 {
				r = 1
			}
			if r < -1 {
				r = -1
			}

			p := CorrelationPValue(r, len(xs))
			results = append(results, models.CorrelationResult{
				Field1:       fields[i],
				Field2:       fields[j],
				Correlation:  r,
				PValue:       p,
				Significance: significanceFor(p),
				Method:       method,
			})
		}
	}
	return results
}

// CorrelationPValue is the two-sided p-value of a correlation coefficient
// under the t-distribution with n-2 degrees of freedom. Degenerate inputs
// return the neutral value 1.
func CorrelationPValue(r float64, n int) float64 {
	if n < 3 {
		return 1
	}
	r = math.Abs(r)
	if r >= 1 {
		return 0
	}
	t := r * math.Sqrt(float64(n-2)/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	p := 2 * (1 - dist.CDF(t))
	return clamp01(finite(p, 1))
}

func significanceFor(p float64) models.SignificanceLevel {
	switch {
	case p < 0.001:
		return models.SignificanceHigh
	case p < 0.01:
		return models.SignificanceMedium
	default:
		return models.SignificanceLow
	}
}
