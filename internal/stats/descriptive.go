package stats

import (
	"math"
	"sort"
)

// finite replaces NaN/Inf with a fallback so downstream sorting and threshold
// comparisons always see finite numbers.
func finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// ranks returns average ranks (1-based, ties averaged) for Spearman.
func ranks(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	out := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		// Average rank over the tie group.
		avg := float64(i+j)/2.0 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}

// hasIQROutliers applies the 1.5x IQR fence to either sample.
func hasIQROutliers(values []float64) bool {
	if len(values) < 4 {
		return false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	q1 := quantileSorted(sorted, 0.25)
	q3 := quantileSorted(sorted, 0.75)
	iqr := q3 - q1
	low := q1 - 1.5*iqr
	high := q3 + 1.5*iqr
	for _, v := range sorted {
		if v < low || v > high {
			return true
		}
	}
	return false
}

func quantileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// subsample bounds a sample to max entries using a deterministic stride so
// repeated runs see the same data.
func subsample(values []float64, max int) []float64 {
	if max <= 0 || len(values) <= max {
		return values
	}
	out := make([]float64, 0, max)
	stride := float64(len(values)) / float64(max)
	for i := 0; i < max; i++ {
		out = append(out, values[int(float64(i)*stride)])
	}
	return out
}
