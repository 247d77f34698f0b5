package ml

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/miradorstack/mirador-explain/internal/enhance"
	"github.com/miradorstack/mirador-explain/internal/models"
)

// featureMatrix builds one row per log entry from the union of numeric
// fields. Rows align with the input; entries missing a field contribute zero
// for that dimension.
func featureMatrix(logs []models.LogEntry) ([][]float64, []string) {
	fields := enhance.NumericFields(logs)
	if len(fields) == 0 {
		return nil, nil
	}

	points := make([][]float64, len(logs))
	for i, entry := range logs {
		row := make([]float64, len(fields))
		for d, field := range fields {
			if v, ok := entry.NumberField(field); ok {
				row[d] = v
			}
		}
		points[i] = row
	}
	return points, fields
}

// normalize z-scores each column in place. Zero-variance columns collapse to
// zero so one dominant-scale field cannot drown the rest.
func normalize(points [][]float64) {
	if len(points) == 0 {
		return
	}
	dims := len(points[0])
	col := make([]float64, len(points))
	for d := 0; d < dims; d++ {
		for i := range points {
			col[i] = points[i][d]
		}
		mean, variance := stat.MeanVariance(col, nil)
		if variance == 0 {
			for i := range points {
				points[i][d] = 0
			}
			continue
		}
		std := math.Sqrt(variance)
		for i := range points {
			points[i][d] = (points[i][d] - mean) / std
		}
	}
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
