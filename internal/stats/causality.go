package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/miradorstack/mirador-explain/internal/enhance"
	"github.com/miradorstack/mirador-explain/internal/models"
)

// CausalRelationships estimates directed cause/effect strengths for every
// ordered field pair using three lightweight proxies. These are heuristics,
// not real causal inference: the granger proxy uses correlation magnitude,
// the mutual-information proxy derives from r^2, and the transfer-entropy
// proxy scales the mutual information.
func (a *Analyzer) CausalRelationships(logs []models.LogEntry, fields []string) []models.CausalRelationship {
	cfg := a.cfg.Causality
	maxFields := a.cfg.Correlation.MaxFields
	if len(fields) > maxFields {
		fields = fields[:maxFields]
	}

	var relationships []models.CausalRelationship
	for i := 0; i < len(fields); i++ {
		for j := 0; j < len(fields); j++ {
			if i == j {
				continue
			}
			cause, effect := fields[i], fields[j]
			xs, ys := enhance.PairedSamples(logs, cause, effect)
			if len(xs) < cfg.MinSamples {
				continue
			}

			r := finite(stat.Correlation(xs, ys, nil), 0)
			p := CorrelationPValue(r, len(xs))
			confidence := clamp01(1 - p)

			granger := math.Abs(r)
			mutualInfo := mutualInformationProxy(r)

			relationships = append(relationships,
				models.CausalRelationship{
					Cause:      cause,
					Effect:     effect,
					Strength:   granger,
					Confidence: confidence,
					Method:     models.CausalGranger,
				},
				models.CausalRelationship{
					Cause:      cause,
					Effect:     effect,
					Strength:   0.8 * mutualInfo,
					Confidence: confidence,
					Method:     models.CausalTransferEntropy,
				},
				models.CausalRelationship{
					Cause:      cause,
					Effect:     effect,
					Strength:   mutualInfo,
					Confidence: confidence,
					Method:     models.CausalMutualInfo,
				},
			)
		}
	}
	return relationships
}

// mutualInformationProxy is -0.5*ln(1-r^2) for a bivariate gaussian, clamped
// to be non-negative and finite.
func mutualInformationProxy(r float64) float64 {
	r2 := r * r
	if r2 >= 1 {
		// Perfect correlation would be infinite information; cap it.
		return 10
	}
	mi := -0.5 * math.Log(1-r2)
	if mi < 0 || math.IsNaN(mi) {
		return 0
	}
	return mi
}
