package stats

import (
	"testing"
	"time"

	"github.com/miradorstack/mirador-explain/internal/models"
)

func anomalyAt(t time.Time, dur time.Duration, conf float64) models.AnomalyContext {
	return models.AnomalyContext{
		Start:      t,
		End:        t.Add(dur),
		Grade:      conf,
		Confidence: conf,
	}
}

func TestClusterAnomaliesGroupsSimilar(t *testing.T) {
	a := newTestAnalyzer()
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	anomalies := []models.AnomalyContext{
		anomalyAt(base, 5*time.Minute, 0.9),
		anomalyAt(base.Add(time.Minute), 5*time.Minute, 0.88),
		anomalyAt(base.Add(6*time.Hour), 30*time.Minute, 0.4),
	}

	clusters := a.ClusterAnomalies(anomalies)
	if len(clusters) != 2 {
		t.Fatalf("expected two clusters, got %d", len(clusters))
	}
	if len(clusters[0].Anomalies) != 2 {
		t.Fatalf("first cluster should absorb the near-identical pair, got size %d", len(clusters[0].Anomalies))
	}
	if len(clusters[1].Anomalies) != 1 {
		t.Fatalf("distant anomaly should stand alone, got size %d", len(clusters[1].Anomalies))
	}
	if clusters[0].Centroid.Start != base {
		t.Fatalf("centroid start should be the earliest member, got %v", clusters[0].Centroid.Start)
	}
	if clusters[0].Radius < 0 || clusters[0].Radius > 1 {
		t.Fatalf("radius out of range: %f", clusters[0].Radius)
	}
}

func TestClusterAnomaliesSingleton(t *testing.T) {
	a := newTestAnalyzer()
	base := time.Now()

	clusters := a.ClusterAnomalies([]models.AnomalyContext{anomalyAt(base, time.Minute, 0.5)})
	if len(clusters) != 1 {
		t.Fatalf("expected one cluster, got %d", len(clusters))
	}
	c := clusters[0]
	if len(c.Anomalies) != 1 {
		t.Fatalf("singleton cluster size %d", len(c.Anomalies))
	}
	if c.Radius != 0 {
		t.Fatalf("seed-only cluster must have zero radius, got %f", c.Radius)
	}
	if c.ID == "" {
		t.Fatal("cluster must carry an ID")
	}
}

func TestClusterAnomaliesEmpty(t *testing.T) {
	a := newTestAnalyzer()
	if clusters := a.ClusterAnomalies(nil); len(clusters) != 0 {
		t.Fatalf("no anomalies must yield no clusters, got %d", len(clusters))
	}
}

func TestAnomalySimilarityIdentical(t *testing.T) {
	base := time.Now()
	x := anomalyAt(base, 5*time.Minute, 0.8)
	if sim := anomalySimilarity(x, x); sim != 1 {
		t.Fatalf("identical anomalies must have similarity 1, got %f", sim)
	}

	far := anomalyAt(base.Add(24*time.Hour), 2*time.Hour, 0.1)
	if sim := anomalySimilarity(x, far); sim > 0.4 {
		t.Fatalf("distant anomalies should score low, got %f", sim)
	}
}

func TestClusterSeverityTiers(t *testing.T) {
	cases := []struct {
		size int
		conf float64
		want models.Severity
	}{
		{5, 0.95, models.SeverityCritical},
		{3, 0.85, models.SeverityHigh},
		{2, 0.75, models.SeverityMedium},
		{1, 0.99, models.SeverityLow},
		{5, 0.5, models.SeverityLow},
	}
	for _, tc := range cases {
		if got := clusterSeverity(tc.size, tc.conf); got != tc.want {
			t.Errorf("clusterSeverity(%d, %.2f) = %s, want %s", tc.size, tc.conf, got, tc.want)
		}
	}
}
