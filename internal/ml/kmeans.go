package ml

import (
	"math"
	"math/rand"
)

// KMeansCluster is one non-empty cluster produced by Lloyd's algorithm.
type KMeansCluster struct {
	Centroid []float64
	Indices  []int
}

// kMeans runs Lloyd's algorithm. Centroids are seeded by sampling existing
// points; iteration stops once no centroid moves more than tol or maxIter
// passes elapse. Empty clusters are dropped from the output.
func kMeans(points [][]float64, k, maxIter int, tol float64, rng *rand.Rand) []KMeansCluster {
	n := len(points)
	if n == 0 || k <= 0 {
		return nil
	}
	if k > n {
		k = n
	}

	perm := rng.Perm(n)
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float64(nil), points[perm[i]]...)
	}

	assignments := make([]int, n)
	for iter := 0; iter < maxIter; iter++ {
		for i, p := range points {
			assignments[i] = nearestCentroid(p, centroids)
		}

		moved := 0.0
		for c := range centroids {
			next := meanOfMembers(points, assignments, c)
			if next == nil {
				continue
			}
			if d := euclidean(centroids[c], next); d > moved {
				moved = d
			}
			centroids[c] = next
		}
		if moved <= tol {
			break
		}
	}

	clusters := make([]KMeansCluster, 0, k)
	for c := range centroids {
		var members []int
		for i, a := range assignments {
			if a == c {
				members = append(members, i)
			}
		}
		if len(members) == 0 {
			continue
		}
		clusters = append(clusters, KMeansCluster{Centroid: centroids[c], Indices: members})
	}
	return clusters
}

func nearestCentroid(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := euclidean(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func meanOfMembers(points [][]float64, assignments []int, cluster int) []float64 {
	var count int
	var sum []float64
	for i, a := range assignments {
		if a != cluster {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(points[i]))
		}
		for d, v := range points[i] {
			sum[d] += v
		}
		count++
	}
	if count == 0 {
		return nil
	}
	for d := range sum {
		sum[d] /= float64(count)
	}
	return sum
}

// clusterRadius is the largest member distance to the centroid.
func clusterRadius(points [][]float64, c KMeansCluster) float64 {
	var radius float64
	for _, i := range c.Indices {
		if d := euclidean(points[i], c.Centroid); d > radius {
			radius = d
		}
	}
	return radius
}
