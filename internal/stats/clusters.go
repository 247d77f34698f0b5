package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-explain/internal/models"
)

// Similarity decay scales for the three anomaly comparison terms.
const (
	startDecay    = 10 * time.Minute
	durationDecay = 5 * time.Minute
	confDecay     = 5.0
)

// ClusterAnomalies groups anomalies with a greedy single pass: each
// unprocessed anomaly seeds a cluster which absorbs every remaining anomaly
// whose similarity to the seed exceeds the configured threshold.
func (a *Analyzer) ClusterAnomalies(anomalies []models.AnomalyContext) []models.AnomalyCluster {
	threshold := a.cfg.Clustering.Similarity
	processed := make([]bool, len(anomalies))

	var clusters []models.AnomalyCluster
	for i := range anomalies {
		if processed[i] {
			continue
		}
		processed[i] = true
		members := []models.AnomalyContext{anomalies[i]}

		for j := i + 1; j < len(anomalies); j++ {
			if processed[j] {
				continue
			}
			if anomalySimilarity(anomalies[i], anomalies[j]) > threshold {
				processed[j] = true
				members = append(members, anomalies[j])
			}
		}

		clusters = append(clusters, buildCluster(anomalies[i], members, threshold))
	}
	return clusters
}

// anomalySimilarity is the mean of three exponential-decay terms on start
// gap, duration gap, and confidence gap. Result stays in [0,1].
func anomalySimilarity(a, b models.AnomalyContext) float64 {
	startGap := math.Abs(a.Start.Sub(b.Start).Minutes())
	durGap := math.Abs(a.Duration().Minutes() - b.Duration().Minutes())
	confGap := math.Abs(a.Confidence - b.Confidence)

	sim := (math.Exp(-startGap/startDecay.Minutes()) +
		math.Exp(-durGap/durationDecay.Minutes()) +
		math.Exp(-confGap*confDecay)) / 3.0
	return clamp01(sim)
}

func buildCluster(seed models.AnomalyContext, members []models.AnomalyContext, threshold float64) models.AnomalyCluster {
	var sumConf float64
	var sumDur time.Duration
	earliest := members[0].Start
	radius := 0.0
	for _, m := range members {
		sumConf += m.Confidence
		sumDur += m.Duration()
		if m.Start.Before(earliest) {
			earliest = m.Start
		}
		if d := 1 - anomalySimilarity(seed, m); d > radius {
			radius = d
		}
	}
	avgConf := sumConf / float64(len(members))

	cluster := models.AnomalyCluster{
		ID:        "cluster-" + uuid.NewString(),
		Anomalies: members,
		Centroid: models.ClusterCentroid{
			Start:      earliest,
			Duration:   sumDur / time.Duration(len(members)),
			Confidence: avgConf,
		},
		Radius:   radius,
		Severity: clusterSeverity(len(members), avgConf),
		Characteristics: []string{
			fmt.Sprintf("%d anomalies", len(members)),
			fmt.Sprintf("average confidence %.2f", avgConf),
		},
	}
	if len(members) > 1 {
		cluster.Characteristics = append(cluster.Characteristics,
			fmt.Sprintf("grouped at similarity > %.2f", threshold))
	}
	return cluster
}

func clusterSeverity(size int, avgConf float64) models.Severity {
	switch {
	case size >= 5 && avgConf > 0.9:
		return models.SeverityCritical
	case size >= 3 && avgConf > 0.8:
		return models.SeverityHigh
	case size >= 2 && avgConf > 0.7:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
