package ml

import (
	"math/rand"
	"testing"
	"time"

	"github.com/miradorstack/mirador-explain/internal/config"
	"github.com/miradorstack/mirador-explain/internal/models"
)

func TestKMeansDistinctPointsZeroRadius(t *testing.T) {
	points := [][]float64{{0, 0}, {10, 0}, {0, 10}, {10, 10}}
	rng := rand.New(rand.NewSource(1))

	clusters := kMeans(points, len(points), 100, 0.001, rng)
	if len(clusters) != len(points) {
		t.Fatalf("k=n distinct points must keep every cluster, got %d", len(clusters))
	}
	for _, c := range clusters {
		if len(c.Indices) != 1 {
			t.Fatalf("expected singleton clusters, got size %d", len(c.Indices))
		}
		if r := clusterRadius(points, c); r != 0 {
			t.Fatalf("singleton cluster radius must be zero, got %f", r)
		}
	}
}

func TestKMeansDropsEmptyClusters(t *testing.T) {
	// Two tight groups, k=3: one centroid inevitably starves.
	points := [][]float64{{0, 0}, {0.1, 0}, {0, 0.1}, {100, 100}, {100.1, 100}, {100, 100.1}}
	rng := rand.New(rand.NewSource(7))

	clusters := kMeans(points, 3, 100, 0.001, rng)
	total := 0
	for _, c := range clusters {
		if len(c.Indices) == 0 {
			t.Fatal("empty cluster must be dropped")
		}
		total += len(c.Indices)
	}
	if total != len(points) {
		t.Fatalf("every point must stay assigned, got %d of %d", total, len(points))
	}
}

func TestDBSCANMinPtsOneNoNoise(t *testing.T) {
	points := [][]float64{{0, 0}, {50, 50}, {1, 1}, {-40, 12}}
	clusters, noise := dbscan(points, 1.5, 1)
	if len(noise) != 0 {
		t.Fatalf("minPts=1 must leave no noise, got %d", len(noise))
	}
	assigned := 0
	for _, c := range clusters {
		assigned += len(c)
	}
	if assigned != len(points) {
		t.Fatalf("every point must land in a cluster, got %d of %d", assigned, len(points))
	}
}

func TestDBSCANIsolatesNoise(t *testing.T) {
	points := [][]float64{
		{0, 0}, {0.5, 0}, {0, 0.5}, {0.5, 0.5},
		{1000, 1000},
	}
	clusters, noise := dbscan(points, 1.5, 4)
	if len(clusters) != 1 {
		t.Fatalf("expected one dense cluster, got %d", len(clusters))
	}
	if len(noise) != 1 || noise[0] != 4 {
		t.Fatalf("the distant point must be noise, got %v", noise)
	}
}

func TestIsolationScoresRange(t *testing.T) {
	points := [][]float64{
		{1, 1}, {1.1, 1}, {0.9, 1.1}, {1, 0.9}, {1.05, 1.05},
		{1, 1.1}, {0.95, 0.95}, {1.1, 1.1},
		{25, 25},
	}
	rng := rand.New(rand.NewSource(3))

	scores := isolationScores(points, 10, rng)
	if len(scores) != len(points) {
		t.Fatalf("one score per point, got %d", len(scores))
	}
	for i, s := range scores {
		if s < 0 || s > 1 {
			t.Fatalf("score %d out of range: %f", i, s)
		}
	}

	anomalies := isolationAnomalies(scores, 0.5)
	if len(anomalies) == 0 {
		t.Fatal("the outlier must be flagged")
	}
	if anomalies[0].Index != 8 {
		t.Fatalf("distant point should score highest, got index %d", anomalies[0].Index)
	}
	for i := 1; i < len(anomalies); i++ {
		if anomalies[i].Score > anomalies[i-1].Score {
			t.Fatal("anomalies must sort by descending score")
		}
	}
}

func TestDecisionTreePurity(t *testing.T) {
	// Dimension 0 perfectly separates the labels.
	points := [][]float64{{0, 5}, {0.2, 7}, {0.1, 3}, {10, 5}, {10.2, 6}, {9.8, 4}}
	labels := []string{labelInfo, labelInfo, labelInfo, labelError, labelError, labelError}
	idx := []int{0, 1, 2, 3, 4, 5}

	tree := buildTree(points, labels, idx, 0, 10)
	for i, p := range points {
		if got := tree.predict(p); got != labels[i] {
			t.Fatalf("separable data must classify exactly: point %d got %s want %s", i, got, labels[i])
		}
	}
}

func TestDecisionTreePureNodeIsLeaf(t *testing.T) {
	points := [][]float64{{1}, {2}, {3}}
	labels := []string{labelWarning, labelWarning, labelWarning}
	tree := buildTree(points, labels, []int{0, 1, 2}, 0, 10)
	if tree.left != nil || tree.label != labelWarning {
		t.Fatalf("pure training set must yield a single leaf, got %+v", tree)
	}
}

func TestForestVoteShare(t *testing.T) {
	points := [][]float64{{0}, {0.1}, {0.2}, {5}, {5.1}, {5.2}}
	labels := []string{labelInfo, labelInfo, labelInfo, labelError, labelError, labelError}
	rng := rand.New(rand.NewSource(11))

	forest := trainForest(points, labels, 5, 10, rng)
	label, share := forest.Predict([]float64{5.1})
	if label != labelError {
		t.Fatalf("expected error label, got %s", label)
	}
	if share <= 0 || share > 1 {
		t.Fatalf("vote share out of range: %f", share)
	}
}

func TestLabelFor(t *testing.T) {
	cases := []struct {
		level, message, want string
	}{
		{"error", "request handled", labelError},
		{"info", "connection failed", labelError},
		{"warn", "disk filling", labelWarning},
		{"info", "request timeout exceeded", labelPerformance},
		{"info", "access denied for user", labelSecurity},
		{"debug", "cache refreshed", labelInfo},
	}
	for _, tc := range cases {
		entry := models.LogEntry{Level: tc.level, Message: tc.message}
		if got := labelFor(entry); got != tc.want {
			t.Errorf("labelFor(%q, %q) = %s, want %s", tc.level, tc.message, got, tc.want)
		}
	}
}

func TestSuiteRespectsMinimumPopulation(t *testing.T) {
	suite := NewSuite(config.DefaultThresholds().ML, nil)

	logs := []models.LogEntry{{Timestamp: time.Now(), Message: "too few"}}
	insights, err := suite.Insights(logs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(insights) != 0 {
		t.Fatalf("below the minimum population nothing runs, got %d insights", len(insights))
	}
}

func TestSuiteDeterministic(t *testing.T) {
	suite := NewSuite(config.DefaultThresholds().ML, nil)
	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	logs := make([]models.LogEntry, 0, 40)
	for i := 0; i < 40; i++ {
		msg := "request handled"
		if i%7 == 0 {
			msg = "request failed with error"
		}
		logs = append(logs, models.LogEntry{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Level:     "info",
			Message:   msg,
			Fields: map[string]models.FieldValue{
				"latency": models.Number(float64(10 + i%5)),
			},
		})
	}

	first, err := suite.Insights(logs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := suite.Insights(logs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("repeated runs must agree: %d vs %d insights", len(first), len(second))
	}
	for i := range first {
		if first[i].Title != second[i].Title || first[i].Confidence != second[i].Confidence {
			t.Fatalf("insight %d differs between runs", i)
		}
	}
}

func TestNormalizeZeroVarianceColumn(t *testing.T) {
	points := [][]float64{{5, 1}, {5, 2}, {5, 3}}
	normalize(points)
	for i := range points {
		if points[i][0] != 0 {
			t.Fatalf("constant column must collapse to zero, got %f", points[i][0])
		}
	}
}
