package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/miradorstack/mirador-explain/internal/models"
)

func TestRecommendEmptyInput(t *testing.T) {
	e, err := NewRuleEngine("", nil)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}
	if recs := e.Recommend(nil); len(recs) != 0 {
		t.Fatalf("no insights means no recommendations, got %d", len(recs))
	}
}

func TestRecommendKeywordBuckets(t *testing.T) {
	e, err := NewRuleEngine("", nil)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	insights := []models.Insight{
		{Type: models.InsightStatistical, Title: "High Error Rate During Anomaly", Severity: models.SeverityCritical},
		{Type: models.InsightStatistical, Title: "Response Time Degraded During Anomaly", Severity: models.SeverityHigh},
	}
	recs := e.Recommend(insights)

	titles := make(map[string]bool)
	for _, r := range recs {
		if r.Type != models.InsightRecommendation {
			t.Fatalf("recommendation insight has type %s", r.Type)
		}
		if r.Question != models.QuestionRecommendations {
			t.Fatalf("recommendation must answer the recommendations question, got %s", r.Question)
		}
		titles[r.Title] = true
	}
	if !titles["Investigate Error Sources"] {
		t.Fatal("error insights must trigger the error bucket")
	}
	if !titles["Check Resource Utilization"] {
		t.Fatal("latency insights must trigger the performance bucket")
	}
}

func TestRecommendFallback(t *testing.T) {
	e, err := NewRuleEngine("", nil)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	insights := []models.Insight{
		{Type: models.InsightTemporal, Title: "Traffic is steady", Severity: models.SeverityLow},
	}
	recs := e.Recommend(insights)
	if len(recs) != 1 || recs[0].Title != "Review Analysis Results" {
		t.Fatalf("unmatched insights must produce the generic review recommendation, got %+v", recs)
	}
}

func TestRuleEngineLoadsYAMLPack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	pack := `rules:
  - id: db-errors
    match:
      severity: critical
      title_contains: ["error"]
    recommendations:
      - "Check database connection pool saturation"
  - id: never-fires
    match:
      title_contains: ["quantum"]
    recommendations:
      - "Should not appear"
`
	if err := os.WriteFile(path, []byte(pack), 0o600); err != nil {
		t.Fatalf("write pack: %v", err)
	}

	e, err := NewRuleEngine(path, nil)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	insights := []models.Insight{
		{Type: models.InsightStatistical, Title: "High Error Rate During Anomaly", Severity: models.SeverityCritical},
	}
	recs := e.Recommend(insights)

	var fromPack, neverFired bool
	for _, r := range recs {
		if r.Description == "Check database connection pool saturation" {
			fromPack = true
		}
		if r.Description == "Should not appear" {
			neverFired = true
		}
	}
	if !fromPack {
		t.Fatal("matching rule must contribute its recommendation")
	}
	if neverFired {
		t.Fatal("non-matching rule must not fire")
	}
}

func TestRuleEngineMissingFile(t *testing.T) {
	e, err := NewRuleEngine("/nonexistent/rules.yaml", nil)
	if err != nil {
		t.Fatalf("missing rule pack must not error: %v", err)
	}
	if e == nil {
		t.Fatal("engine must still be usable without a pack")
	}
}
