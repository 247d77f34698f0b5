package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/miradorstack/mirador-explain/internal/engine"
	"github.com/miradorstack/mirador-explain/internal/metrics"
	"github.com/miradorstack/mirador-explain/internal/models"
	"github.com/miradorstack/mirador-explain/internal/utils"
)

// LogFetcher retrieves the log window around an anomaly when the request
// carries no inline logs.
type LogFetcher interface {
	FetchLogs(ctx context.Context, tenantID string, window models.TimeRange) ([]models.LogEntry, error)
}

// Generator runs the full analysis over one request.
type Generator interface {
	Generate(ctx context.Context, req models.ExplainRequest) (*models.AnalysisResult, error)
}

// ErrLogFetch marks failures retrieving logs from the external source so the
// transport layer can map them to a gateway error.
type ErrLogFetch struct{ Err error }

func (e *ErrLogFetch) Error() string { return "log fetch failed: " + e.Err.Error() }
func (e *ErrLogFetch) Unwrap() error { return e.Err }

// AnalysisService is the facade between the transport layer and the engine.
type AnalysisService struct {
	logger    *slog.Logger
	generator Generator
	logSource LogFetcher
	latencies *utils.LatencyTracker
}

// NewAnalysisService constructs the service facade. A nil log source
// disables remote fetching; requests must then carry inline logs.
func NewAnalysisService(logger *slog.Logger, generator Generator, logSource LogFetcher) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		logger:    logger,
		generator: generator,
		logSource: logSource,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Explain resolves the log window and runs the analysis. Inline logs win over
// remote fetching; an empty request with a time range triggers a fetch.
func (s *AnalysisService) Explain(ctx context.Context, req models.ExplainRequest) (*models.AnalysisResult, string, error) {
	start := time.Now()

	if len(req.Logs) == 0 && req.TimeRange != nil && s.logSource != nil {
		logs, err := s.logSource.FetchLogs(ctx, req.TenantID, *req.TimeRange)
		if err != nil {
			metrics.ObserveAnalysis(time.Since(start), metrics.OutcomeError, 0)
			s.logger.Error("log fetch failed", slog.Any("error", err))
			return nil, "", &ErrLogFetch{Err: err}
		}
		req.Logs = logs
	}

	result, err := s.generator.Generate(ctx, req)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveAnalysis(duration, metrics.OutcomeError, len(req.Logs))
		s.logger.Error("analysis failed", slog.Any("error", err))
		return nil, "", err
	}

	s.latencies.Observe(duration)
	metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess, len(req.Logs))
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("analysis latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("samples", count))
	}

	return result, engine.FormatAnalysis(result), nil
}

// LatencyP95 returns the current p95 analysis latency.
func (s *AnalysisService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}
