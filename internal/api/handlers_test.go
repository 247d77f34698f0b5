package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/miradorstack/mirador-explain/internal/models"
	"github.com/miradorstack/mirador-explain/internal/services"
)

type fakeService struct {
	result *models.AnalysisResult
	text   string
	err    error
	got    models.ExplainRequest
}

func (f *fakeService) Explain(_ context.Context, req models.ExplainRequest) (*models.AnalysisResult, string, error) {
	f.got = req
	return f.result, f.text, f.err
}

func testRouter(svc ExplainService) *mux.Router {
	router := mux.NewRouter()
	NewHandlers(nil, svc).Register(router)
	return router
}

func analysisFixture() *models.AnalysisResult {
	return &models.AnalysisResult{
		AnalysisID: "analysis-fixture",
		Insights: []models.ComprehensiveAnalysis{{
			Insight: models.Insight{
				Type:        models.InsightStatistical,
				Severity:    models.SeverityCritical,
				Title:       "High Error Rate During Anomaly",
				Description: "error rate reached 35%",
				Confidence:  0.9,
				Question:    models.QuestionWhatHappened,
			},
			Category:   models.CategoryErrors,
			Actionable: true,
			Priority:   9,
		}},
		Summary: models.AnalysisSummary{
			TotalInsights:     1,
			SeverityBreakdown: map[models.Severity]int{models.SeverityCritical: 1},
			CategoryBreakdown: map[models.Category]int{models.CategoryErrors: 1},
		},
		Metadata: models.AnalysisMetadata{
			AnalysisDuration: 120 * time.Millisecond,
			LogCount:         40,
		},
		CreatedAt: time.Now().UTC(),
	}
}

func explainBody(t *testing.T, anomaly *anomalyDTO) *bytes.Buffer {
	t.Helper()
	body := explainRequestDTO{
		TenantID: "acme",
		Anomaly:  anomaly,
		Logs: []logEntryDTO{
			{
				TimestampMs: 1700000000000,
				Level:       "error",
				Message:     "connection failed",
				Fields: map[string]any{
					"response_time": 250.0,
					"region":        "us-east-1",
					"retried":       true,
				},
			},
		},
	}
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		t.Fatalf("encode request: %v", err)
	}
	return buf
}

func TestExplainEndpoint(t *testing.T) {
	svc := &fakeService{result: analysisFixture(), text: "What Was Happening:\n- ..."}
	router := testRouter(svc)

	body := explainBody(t, &anomalyDTO{
		StartMs:    1700000000000,
		EndMs:      1700000300000,
		Grade:      0.9,
		Confidence: 0.85,
		Entity:     []entityAttributeDTO{{Name: "service", Value: "checkout"}},
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/explain", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}

	var resp explainResponseDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Analysis.AnalysisID != "analysis-fixture" {
		t.Fatalf("analysis id %q", resp.Analysis.AnalysisID)
	}
	if len(resp.Analysis.Insights) != 1 || resp.Analysis.Insights[0].Severity != "critical" {
		t.Fatalf("insights not mapped: %+v", resp.Analysis.Insights)
	}
	if resp.Analysis.Summary.SeverityBreakdown["critical"] != 1 {
		t.Fatalf("severity breakdown not mapped: %+v", resp.Analysis.Summary)
	}
	if resp.Analysis.Metadata.AnalysisDurationMs != 120 {
		t.Fatalf("duration mapping wrong: %d", resp.Analysis.Metadata.AnalysisDurationMs)
	}
	if resp.SummaryText == "" {
		t.Fatal("summary text missing")
	}

	// Request mapping checks on what reached the service.
	if svc.got.TenantID != "acme" {
		t.Fatalf("tenant %q", svc.got.TenantID)
	}
	if !svc.got.Anomaly.Start.Equal(time.UnixMilli(1700000000000)) {
		t.Fatalf("anomaly start %v", svc.got.Anomaly.Start)
	}
	if len(svc.got.Anomaly.Entity) != 1 || svc.got.Anomaly.Entity[0].Value != "checkout" {
		t.Fatalf("entity not mapped: %+v", svc.got.Anomaly.Entity)
	}
	entry := svc.got.Logs[0]
	if v, ok := entry.NumberField("response_time"); !ok || v != 250 {
		t.Fatalf("numeric field lost: %v %v", v, ok)
	}
	if v, ok := entry.NumberField("retried"); !ok || v != 1 {
		t.Fatalf("bool field must coerce to 1, got %v %v", v, ok)
	}
	if v, ok := entry.StringField("region"); !ok || v != "us-east-1" {
		t.Fatalf("string field lost: %v %v", v, ok)
	}
}

func TestExplainMissingAnomaly(t *testing.T) {
	svc := &fakeService{result: analysisFixture()}
	router := testRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/explain",
		bytes.NewBufferString(`{"logs":[]}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestExplainInvertedAnomaly(t *testing.T) {
	svc := &fakeService{result: analysisFixture()}
	router := testRouter(svc)

	body := explainBody(t, &anomalyDTO{StartMs: 1700000300000, EndMs: 1700000000000})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/explain", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.got.TenantID != "" {
		t.Fatal("service must not be called for invalid anomaly bounds")
	}
}

func TestExplainFetchFailureMapsToBadGateway(t *testing.T) {
	svc := &fakeService{err: &services.ErrLogFetch{Err: errors.New("backend down")}}
	router := testRouter(svc)

	body := explainBody(t, &anomalyDTO{StartMs: 1700000000000, EndMs: 1700000300000})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/explain", body))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestExplainInvalidJSON(t *testing.T) {
	router := testRouter(&fakeService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/explain",
		bytes.NewBufferString(`{not json`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(&fakeService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("status %q", payload["status"])
	}
}
