package stats

import (
	"math"
	"testing"
	"time"

	"github.com/miradorstack/mirador-explain/internal/config"
	"github.com/miradorstack/mirador-explain/internal/models"
)

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(config.DefaultThresholds(), nil)
}

func linearLogs(n int, noise func(i int) float64) []models.LogEntry {
	now := time.Now()
	logs := make([]models.LogEntry, 0, n)
	for i := 0; i < n; i++ {
		logs = append(logs, models.LogEntry{
			Timestamp: now.Add(time.Duration(i) * time.Second),
			Fields: map[string]models.FieldValue{
				"a": models.Number(float64(i)),
				"b": models.Number(float64(i)*2 + noise(i)),
			},
		})
	}
	return logs
}

func TestFieldCorrelationsBounds(t *testing.T) {
	a := newTestAnalyzer()
	logs := linearLogs(30, func(i int) float64 { return float64(i%3) * 0.1 })

	results := a.FieldCorrelations(logs, []string{"a", "b"})
	if len(results) != 1 {
		t.Fatalf("expected one pair, got %d", len(results))
	}
	r := results[0]
	if r.Correlation < -1 || r.Correlation > 1 {
		t.Fatalf("correlation out of range: %f", r.Correlation)
	}
	if r.PValue < 0 || r.PValue > 1 {
		t.Fatalf("p-value out of range: %f", r.PValue)
	}
	if r.Correlation < 0.9 {
		t.Fatalf("expected strong positive correlation, got %f", r.Correlation)
	}
}

func TestFieldCorrelationsSymmetry(t *testing.T) {
	a := newTestAnalyzer()
	logs := linearLogs(20, func(i int) float64 { return math.Sin(float64(i)) })

	forward := a.FieldCorrelations(logs, []string{"a", "b"})
	reverse := a.FieldCorrelations(logs, []string{"b", "a"})
	if len(forward) != 1 || len(reverse) != 1 {
		t.Fatalf("expected one result each, got %d/%d", len(forward), len(reverse))
	}
	if math.Abs(math.Abs(forward[0].Correlation)-math.Abs(reverse[0].Correlation)) > 1e-9 {
		t.Fatalf("correlation magnitude not symmetric: %f vs %f", forward[0].Correlation, reverse[0].Correlation)
	}
}

func TestMethodSelection(t *testing.T) {
	a := newTestAnalyzer()

	clean := linearLogs(30, func(i int) float64 { return 0 })
	results := a.FieldCorrelations(clean, []string{"a", "b"})
	if len(results) != 1 || results[0].Method != models.MethodPearson {
		t.Fatalf("expected pearson for strong clean data, got %+v", results)
	}

	// One extreme outlier in b forces the Spearman fallback.
	dirty := linearLogs(30, func(i int) float64 {
		if i == 29 {
			return 100000
		}
		return 0
	})
	results = a.FieldCorrelations(dirty, []string{"a", "b"})
	if len(results) != 1 || results[0].Method != models.MethodSpearman {
		t.Fatalf("expected spearman with outliers, got %+v", results)
	}
}

func TestCorrelationPValueMonotonic(t *testing.T) {
	// Larger |r| and larger n must both shrink the p-value.
	if CorrelationPValue(0.9, 30) >= CorrelationPValue(0.5, 30) {
		t.Fatal("p-value should shrink as |r| grows")
	}
	if CorrelationPValue(0.5, 100) >= CorrelationPValue(0.5, 12) {
		t.Fatal("p-value should shrink as n grows")
	}
	if p := CorrelationPValue(0, 50); p < 0.99 {
		t.Fatalf("zero correlation should be insignificant, got p=%f", p)
	}
	if p := CorrelationPValue(0.3, 2); p != 1 {
		t.Fatalf("tiny samples must return neutral p=1, got %f", p)
	}
}

func TestZeroVarianceNeutral(t *testing.T) {
	a := newTestAnalyzer()
	now := time.Now()
	logs := make([]models.LogEntry, 0, 15)
	for i := 0; i < 15; i++ {
		logs = append(logs, models.LogEntry{
			Timestamp: now.Add(time.Duration(i) * time.Second),
			Fields: map[string]models.FieldValue{
				"const": models.Number(5),
				"vary":  models.Number(float64(i)),
			},
		})
	}

	results := a.FieldCorrelations(logs, []string{"const", "vary"})
	if len(results) != 1 {
		t.Fatalf("expected one pair, got %d", len(results))
	}
	if results[0].Correlation != 0 {
		t.Fatalf("zero-variance pair must report correlation 0, got %f", results[0].Correlation)
	}
	if results[0].PValue != 1 {
		t.Fatalf("zero-variance pair must report neutral p-value, got %f", results[0].PValue)
	}
}
