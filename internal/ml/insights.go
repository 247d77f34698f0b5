package ml

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/miradorstack/mirador-explain/internal/config"
	"github.com/miradorstack/mirador-explain/internal/models"
)

// Suite runs the numeric-ML approximations over a feature matrix derived
// from enhanced logs. It is stateless across calls; randomness is seeded from
// the input size so repeated runs over the same logs agree.
type Suite struct {
	cfg    config.MLThresholds
	logger *slog.Logger
}

// NewSuite constructs a Suite with the provided thresholds.
func NewSuite(cfg config.MLThresholds, logger *slog.Logger) *Suite {
	if logger == nil {
		logger = slog.Default()
	}
	return &Suite{cfg: cfg, logger: logger}
}

// Insights runs clustering, isolation scoring, and forest classification and
// converts the findings that clear their population thresholds into insights.
func (s *Suite) Insights(logs []models.LogEntry) ([]models.Insight, error) {
	if len(logs) < s.cfg.MinLogCount {
		return nil, nil
	}

	points, fields := featureMatrix(logs)
	if len(points) == 0 {
		return nil, nil
	}
	normalize(points)

	rng := rand.New(rand.NewSource(int64(len(logs))))

	var insights []models.Insight
	insights = append(insights, s.clusterInsights(points, rng)...)
	insights = append(insights, s.densityInsights(points)...)
	insights = append(insights, s.anomalyInsights(logs, points, rng)...)
	insights = append(insights, s.classificationInsights(logs, points, rng)...)

	s.logger.Debug("ml suite finished",
		"logs", len(logs), "features", len(fields), "insights", len(insights))
	return insights, nil
}

func (s *Suite) clusterInsights(points [][]float64, rng *rand.Rand) []models.Insight {
	clusters := kMeans(points, s.cfg.KMeansClusters, s.cfg.KMeansMaxIter, s.cfg.KMeansTolerance, rng)
	if len(clusters) < 2 {
		return nil
	}

	largest := 0
	for _, c := range clusters {
		if len(c.Indices) > largest {
			largest = len(c.Indices)
		}
	}
	share := float64(largest) / float64(len(points))

	severity := models.SeverityLow
	if share > s.cfg.DominantShare {
		severity = models.SeverityMedium
	}
	return []models.Insight{{
		Type:        models.InsightPattern,
		Severity:    severity,
		Title:       fmt.Sprintf("Logs form %d behavioral groups", len(clusters)),
		Description: fmt.Sprintf("K-means split the logs into %d groups; the largest covers %.0f%% of entries", len(clusters), share*100),
		Confidence:  0.6,
		Question:    models.QuestionPatterns,
		Data: map[string]any{
			"clusters":      len(clusters),
			"largest_share": share,
		},
	}}
}

func (s *Suite) densityInsights(points [][]float64) []models.Insight {
	clusters, noise := dbscan(points, s.cfg.DBSCANEps, s.cfg.DBSCANMinPts)
	if len(noise) == 0 {
		return nil
	}

	share := float64(len(noise)) / float64(len(points))
	severity := models.SeverityLow
	if share > 0.2 {
		severity = models.SeverityMedium
	}
	return []models.Insight{{
		Type:        models.InsightStatistical,
		Severity:    severity,
		Title:       fmt.Sprintf("%d logs fall outside dense behavior", len(noise)),
		Description: fmt.Sprintf("Density clustering found %d groups and left %d entries (%.0f%%) unassigned", len(clusters), len(noise), share*100),
		Confidence:  0.5,
		Question:    models.QuestionWhatHappened,
		Data: map[string]any{
			"clusters": len(clusters),
			"noise":    len(noise),
		},
	}}
}

func (s *Suite) anomalyInsights(logs []models.LogEntry, points [][]float64, rng *rand.Rand) []models.Insight {
	scores := isolationScores(points, s.cfg.IsolationTrees, rng)
	anomalies := isolationAnomalies(scores, s.cfg.AnomalyFraction)
	if len(anomalies) == 0 {
		return nil
	}

	share := float64(len(anomalies)) / float64(len(points))
	severity := models.SeverityMedium
	if share > 0.25 {
		severity = models.SeverityHigh
	}

	examples := make([]string, 0, 3)
	for _, a := range anomalies {
		if msg := logs[a.Index].Message; msg != "" {
			examples = append(examples, msg)
		}
		if len(examples) == 3 {
			break
		}
	}

	return []models.Insight{{
		Type:        models.InsightStatistical,
		Severity:    severity,
		Title:       fmt.Sprintf("%d unusual log entries isolated", len(anomalies)),
		Description: fmt.Sprintf("Isolation scoring flagged %d of %d entries as easy to separate from the rest", len(anomalies), len(points)),
		Confidence:  clampShare(anomalies[0].Score),
		Question:    models.QuestionWhatHappened,
		Data: map[string]any{
			"anomaly_count": len(anomalies),
			"top_score":     anomalies[0].Score,
			"examples":      examples,
		},
	}}
}

func (s *Suite) classificationInsights(logs []models.LogEntry, points [][]float64, rng *rand.Rand) []models.Insight {
	labels := make([]string, len(logs))
	for i, entry := range logs {
		labels[i] = labelFor(entry)
	}

	forest := trainForest(points, labels, s.cfg.ForestTrees, s.cfg.TreeMaxDepth, rng)

	counts := make(map[string]int)
	var confSum float64
	for _, p := range points {
		label, conf := forest.Predict(p)
		counts[label]++
		confSum += conf
	}

	ordered := make([]string, 0, len(counts))
	for label := range counts {
		ordered = append(ordered, label)
	}
	sort.Strings(ordered)

	dominant, dominantCount := "", 0
	for _, label := range ordered {
		if counts[label] > dominantCount {
			dominant, dominantCount = label, counts[label]
		}
	}

	share := float64(dominantCount) / float64(len(points))
	if share <= s.cfg.DominantShare || dominant == labelInfo {
		return nil
	}

	severity := models.SeverityMedium
	question := models.QuestionPatterns
	if dominant == labelError || dominant == labelSecurity {
		severity = models.SeverityHigh
		question = models.QuestionRootCause
	}
	return []models.Insight{{
		Type:        models.InsightPattern,
		Severity:    severity,
		Title:       fmt.Sprintf("Logs dominated by %s activity", dominant),
		Description: fmt.Sprintf("Forest classification labels %.0f%% of entries as %q (mean vote share %.2f)", share*100, dominant, confSum/float64(len(points))),
		Confidence:  clampShare(share),
		Question:    question,
		Data: map[string]any{
			"dominant": dominant,
			"share":    share,
		},
	}}
}

func clampShare(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
