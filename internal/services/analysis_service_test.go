package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/miradorstack/mirador-explain/internal/models"
)

type fakeGenerator struct {
	result *models.AnalysisResult
	err    error
	got    models.ExplainRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req models.ExplainRequest) (*models.AnalysisResult, error) {
	f.got = req
	return f.result, f.err
}

type fakeFetcher struct {
	logs []models.LogEntry
	err  error
}

func (f *fakeFetcher) FetchLogs(context.Context, string, models.TimeRange) ([]models.LogEntry, error) {
	return f.logs, f.err
}

func sampleResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		AnalysisID: "analysis-test",
		Insights: []models.ComprehensiveAnalysis{{
			Insight: models.Insight{
				Title:       "High Error Rate During Anomaly",
				Description: "errors rose",
				Severity:    models.SeverityCritical,
				Question:    models.QuestionWhatHappened,
			},
			Priority: 9,
		}},
	}
}

func TestExplainInlineLogs(t *testing.T) {
	gen := &fakeGenerator{result: sampleResult()}
	svc := NewAnalysisService(nil, gen, nil)

	logs := []models.LogEntry{{Timestamp: time.Now(), Message: "hello"}}
	result, text, err := svc.Explain(context.Background(), models.ExplainRequest{Logs: logs})
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if result.AnalysisID != "analysis-test" {
		t.Fatalf("result passthrough broken: %+v", result)
	}
	if !strings.Contains(text, "What Was Happening") {
		t.Fatalf("summary text not rendered: %q", text)
	}
	if len(gen.got.Logs) != 1 {
		t.Fatalf("inline logs must reach the generator, got %d", len(gen.got.Logs))
	}
}

func TestExplainFetchesWhenLogsEmpty(t *testing.T) {
	gen := &fakeGenerator{result: sampleResult()}
	fetched := []models.LogEntry{{Timestamp: time.Now(), Message: "from backend"}}
	svc := NewAnalysisService(nil, gen, &fakeFetcher{logs: fetched})

	window := models.TimeRange{Start: time.Now().Add(-time.Hour), End: time.Now()}
	_, _, err := svc.Explain(context.Background(), models.ExplainRequest{TenantID: "acme", TimeRange: &window})
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if len(gen.got.Logs) != 1 || gen.got.Logs[0].Message != "from backend" {
		t.Fatalf("fetched logs must reach the generator, got %+v", gen.got.Logs)
	}
}

func TestExplainFetchFailure(t *testing.T) {
	gen := &fakeGenerator{result: sampleResult()}
	svc := NewAnalysisService(nil, gen, &fakeFetcher{err: errors.New("backend down")})

	window := models.TimeRange{Start: time.Now().Add(-time.Hour), End: time.Now()}
	_, _, err := svc.Explain(context.Background(), models.ExplainRequest{TimeRange: &window})

	var fetchErr *ErrLogFetch
	if !errors.As(err, &fetchErr) {
		t.Fatalf("fetch failures must wrap as ErrLogFetch, got %v", err)
	}
}

func TestExplainGeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("invalid anomaly")}
	svc := NewAnalysisService(nil, gen, nil)

	_, _, err := svc.Explain(context.Background(), models.ExplainRequest{
		Logs: []models.LogEntry{{Timestamp: time.Now()}},
	})
	if err == nil {
		t.Fatal("generator errors must propagate")
	}
	var fetchErr *ErrLogFetch
	if errors.As(err, &fetchErr) {
		t.Fatal("generator errors must not masquerade as fetch errors")
	}
}
