package ml

import (
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/miradorstack/mirador-explain/internal/models"
)

// treeNode is one node of a CART classifier. Leaves carry a label and no
// children.
type treeNode struct {
	label     string
	dim       int
	threshold float64
	left      *treeNode
	right     *treeNode
}

// Label categories assigned by labelFor.
const (
	labelError       = "error"
	labelWarning     = "warning"
	labelPerformance = "performance"
	labelSecurity    = "security"
	labelInfo        = "info"
)

// labelFor derives a training label from the level and message keywords.
func labelFor(entry models.LogEntry) string {
	level := strings.ToLower(entry.Level)
	msg := strings.ToLower(entry.Message)
	switch {
	case level == "error" || level == "err" || level == "fatal" ||
		strings.Contains(msg, "error") || strings.Contains(msg, "fail"):
		return labelError
	case level == "warn" || level == "warning" || strings.Contains(msg, "warn"):
		return labelWarning
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "slow") || strings.Contains(msg, "latency"):
		return labelPerformance
	case strings.Contains(msg, "auth") || strings.Contains(msg, "denied") || strings.Contains(msg, "unauthorized"):
		return labelSecurity
	default:
		return labelInfo
	}
}

// buildTree grows a CART tree by maximizing information gain. Recursion stops
// on pure nodes, at maxDepth, or when no split improves entropy.
func buildTree(points [][]float64, labels []string, idx []int, depth, maxDepth int) *treeNode {
	if len(idx) == 0 {
		return &treeNode{label: labelInfo}
	}
	majority, pure := majorityLabel(labels, idx)
	if pure || depth >= maxDepth {
		return &treeNode{label: majority}
	}

	dim, threshold, gain := bestSplit(points, labels, idx)
	if gain <= 0 {
		return &treeNode{label: majority}
	}

	var left, right []int
	for _, i := range idx {
		if points[i][dim] < threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &treeNode{label: majority}
	}

	return &treeNode{
		dim:       dim,
		threshold: threshold,
		left:      buildTree(points, labels, left, depth+1, maxDepth),
		right:     buildTree(points, labels, right, depth+1, maxDepth),
	}
}

func (n *treeNode) predict(p []float64) string {
	for n.left != nil {
		if p[n.dim] < n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.label
}

// bestSplit scans every (dimension, midpoint) candidate and returns the one
// with the highest entropy reduction.
func bestSplit(points [][]float64, labels []string, idx []int) (int, float64, float64) {
	base := entropy(labels, idx)
	dims := len(points[idx[0]])

	bestDim, bestThreshold, bestGain := 0, 0.0, 0.0
	values := make([]float64, 0, len(idx))
	for dim := 0; dim < dims; dim++ {
		values = values[:0]
		for _, i := range idx {
			values = append(values, points[i][dim])
		}
		sort.Float64s(values)

		for v := 1; v < len(values); v++ {
			if values[v] == values[v-1] {
				continue
			}
			threshold := (values[v] + values[v-1]) / 2

			var left, right []int
			for _, i := range idx {
				if points[i][dim] < threshold {
					left = append(left, i)
				} else {
					right = append(right, i)
				}
			}

			nf := float64(len(idx))
			weighted := float64(len(left))/nf*entropy(labels, left) +
				float64(len(right))/nf*entropy(labels, right)
			if gain := base - weighted; gain > bestGain {
				bestDim, bestThreshold, bestGain = dim, threshold, gain
			}
		}
	}
	return bestDim, bestThreshold, bestGain
}

func entropy(labels []string, idx []int) float64 {
	counts := make(map[string]int)
	for _, i := range idx {
		counts[labels[i]]++
	}
	n := float64(len(idx))
	var h float64
	for _, c := range counts {
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

func majorityLabel(labels []string, idx []int) (string, bool) {
	counts := make(map[string]int)
	for _, i := range idx {
		counts[labels[i]]++
	}

	ordered := make([]string, 0, len(counts))
	for label := range counts {
		ordered = append(ordered, label)
	}
	sort.Strings(ordered)

	best, bestCount := "", 0
	for _, label := range ordered {
		if counts[label] > bestCount {
			best, bestCount = label, counts[label]
		}
	}
	return best, len(counts) == 1
}

// Forest is a bag of bootstrap-trained CART trees.
type Forest struct {
	trees []*treeNode
}

// trainForest bootstrap-resamples the training set nTrees times and grows one
// tree per sample.
func trainForest(points [][]float64, labels []string, nTrees, maxDepth int, rng *rand.Rand) *Forest {
	n := len(points)
	if n == 0 || nTrees <= 0 {
		return &Forest{}
	}

	forest := &Forest{trees: make([]*treeNode, 0, nTrees)}
	for t := 0; t < nTrees; t++ {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.Intn(n)
		}
		forest.trees = append(forest.trees, buildTree(points, labels, sample, 0, maxDepth))
	}
	return forest
}

// Predict returns the majority vote and its vote share.
func (f *Forest) Predict(p []float64) (string, float64) {
	if len(f.trees) == 0 {
		return labelInfo, 0
	}
	votes := make(map[string]int)
	for _, tree := range f.trees {
		votes[tree.predict(p)]++
	}

	ordered := make([]string, 0, len(votes))
	for label := range votes {
		ordered = append(ordered, label)
	}
	sort.Strings(ordered)

	best, bestCount := "", 0
	for _, label := range ordered {
		if votes[label] > bestCount {
			best, bestCount = label, votes[label]
		}
	}
	return best, float64(bestCount) / float64(len(f.trees))
}
