package ml

import (
	"math"
	"math/rand"
	"sort"
)

// ScoredPoint is one point with its isolation anomaly score in [0,1], higher
// meaning easier to isolate.
type ScoredPoint struct {
	Index int
	Score float64
}

type isoNode struct {
	dim       int
	split     float64
	left      *isoNode
	right     *isoNode
	leafDepth int
}

// isolationScores builds nTrees random isolation trees capped at
// ceil(log2(n)) depth and averages each point's leaf depth across them.
// Scores are inverted and normalized so shallow isolation (few cuts needed)
// maps to 1 and the deepest point maps to 0.
func isolationScores(points [][]float64, nTrees int, rng *rand.Rand) []float64 {
	n := len(points)
	if n == 0 || nTrees <= 0 {
		return nil
	}
	maxDepth := int(math.Ceil(math.Log2(float64(n))))
	if maxDepth < 1 {
		maxDepth = 1
	}

	depths := make([]float64, n)
	for t := 0; t < nTrees; t++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		tree := buildIsoTree(points, idx, 0, maxDepth, rng)
		for i := range points {
			depths[i] += float64(isoLeafDepth(tree, points[i]))
		}
	}

	maxAvg := 0.0
	for i := range depths {
		depths[i] /= float64(nTrees)
		if depths[i] > maxAvg {
			maxAvg = depths[i]
		}
	}
	scores := make([]float64, n)
	if maxAvg == 0 {
		return scores
	}
	for i := range depths {
		scores[i] = 1 - depths[i]/maxAvg
	}
	return scores
}

// isolationAnomalies thresholds the scores at fraction x the maximum score
// and returns the points above it, sorted by descending score.
func isolationAnomalies(scores []float64, fraction float64) []ScoredPoint {
	maxScore := 0.0
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	if maxScore == 0 {
		return nil
	}
	threshold := fraction * maxScore

	var anomalies []ScoredPoint
	for i, s := range scores {
		if s > threshold {
			anomalies = append(anomalies, ScoredPoint{Index: i, Score: s})
		}
	}
	sort.SliceStable(anomalies, func(a, b int) bool {
		return anomalies[a].Score > anomalies[b].Score
	})
	return anomalies
}

func buildIsoTree(points [][]float64, idx []int, depth, maxDepth int, rng *rand.Rand) *isoNode {
	if len(idx) <= 1 || depth >= maxDepth {
		return &isoNode{leafDepth: depth}
	}

	dims := len(points[idx[0]])
	dim := rng.Intn(dims)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, i := range idx {
		v := points[i][dim]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return &isoNode{leafDepth: depth}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right []int
	for _, i := range idx {
		if points[i][dim] < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &isoNode{leafDepth: depth}
	}

	return &isoNode{
		dim:   dim,
		split: split,
		left:  buildIsoTree(points, left, depth+1, maxDepth, rng),
		right: buildIsoTree(points, right, depth+1, maxDepth, rng),
	}
}

func isoLeafDepth(node *isoNode, p []float64) int {
	for node.left != nil {
		if p[node.dim] < node.split {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.leafDepth
}
