package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/miradorstack/mirador-explain/internal/models"
	"github.com/miradorstack/mirador-explain/internal/services"
	"github.com/miradorstack/mirador-explain/internal/utils"
)

// ExplainService is the facade the transport layer depends on.
type ExplainService interface {
	Explain(ctx context.Context, req models.ExplainRequest) (*models.AnalysisResult, string, error)
}

// Handlers holds the HTTP handler set for the explain API.
type Handlers struct {
	logger  *slog.Logger
	service ExplainService
}

// NewHandlers constructs the handler set.
func NewHandlers(logger *slog.Logger, service ExplainService) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{logger: logger, service: service}
}

// Register attaches the API routes to the router.
func (h *Handlers) Register(router *mux.Router) {
	router.HandleFunc("/api/v1/explain", h.explain).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/health", h.health).Methods(http.MethodGet)
}

// Wire DTOs. Timestamps travel as epoch milliseconds.

type logEntryDTO struct {
	TimestampMs int64          `json:"timestamp"`
	Level       string         `json:"level,omitempty"`
	Message     string         `json:"message,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
}

type entityAttributeDTO struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type anomalyDTO struct {
	StartMs    int64                `json:"start_time"`
	EndMs      int64                `json:"end_time"`
	Grade      float64              `json:"anomaly_grade"`
	Confidence float64              `json:"confidence"`
	Entity     []entityAttributeDTO `json:"entity,omitempty"`
}

type timeRangeDTO struct {
	StartMs int64 `json:"start"`
	EndMs   int64 `json:"end"`
}

type explainRequestDTO struct {
	TenantID       string         `json:"tenant_id,omitempty"`
	Logs           []logEntryDTO  `json:"logs,omitempty"`
	Anomaly        *anomalyDTO    `json:"anomaly"`
	DetectorConfig map[string]any `json:"detector_config,omitempty"`
	TimeRange      *timeRangeDTO  `json:"time_range,omitempty"`
}

type insightDTO struct {
	Type        string         `json:"type"`
	Severity    string         `json:"severity"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Confidence  float64        `json:"confidence"`
	Question    string         `json:"question"`
	Category    string         `json:"category"`
	Actionable  bool           `json:"actionable"`
	Priority    int            `json:"priority"`
	Data        map[string]any `json:"data,omitempty"`
}

type summaryDTO struct {
	TotalInsights        int            `json:"total_insights"`
	SeverityBreakdown    map[string]int `json:"severity_breakdown"`
	CategoryBreakdown    map[string]int `json:"category_breakdown"`
	ActionableInsights   int            `json:"actionable_insights"`
	HighPriorityInsights int            `json:"high_priority_insights"`
}

type metadataDTO struct {
	AnalysisDurationMs      int64 `json:"analysis_duration_ms"`
	LogCount                int   `json:"log_count"`
	PatternCount            int   `json:"pattern_count"`
	StatisticalInsightCount int   `json:"statistical_insight_count"`
}

type analysisDTO struct {
	AnalysisID string       `json:"analysis_id"`
	Insights   []insightDTO `json:"insights"`
	Summary    summaryDTO   `json:"summary"`
	Metadata   metadataDTO  `json:"metadata"`
	CreatedAt  time.Time    `json:"created_at"`
}

type explainResponseDTO struct {
	Analysis    analysisDTO `json:"analysis"`
	SummaryText string      `json:"summary_text"`
}

type errorResponseDTO struct {
	Error string `json:"error"`
}

func (h *Handlers) explain(w http.ResponseWriter, r *http.Request) {
	var dto explainRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if dto.Anomaly == nil {
		writeError(w, http.StatusBadRequest, "anomaly is required")
		return
	}

	req := fromRequestDTO(dto)
	if !req.Anomaly.Valid() {
		writeError(w, http.StatusBadRequest, "anomaly bounds are invalid: end_time must not precede start_time")
		return
	}

	result, text, err := h.service.Explain(r.Context(), req)
	if err != nil {
		var fetchErr *services.ErrLogFetch
		switch {
		case errors.As(err, &fetchErr):
			writeError(w, http.StatusBadGateway, "failed to retrieve logs for the requested window")
		default:
			var appErr *utils.AppError
			if errors.As(err, &appErr) {
				writeError(w, http.StatusBadRequest, appErr.Error())
				return
			}
			h.logger.Error("explain request failed", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "analysis failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, explainResponseDTO{
		Analysis:    toAnalysisDTO(result),
		SummaryText: text,
	})
}

func (h *Handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func fromRequestDTO(dto explainRequestDTO) models.ExplainRequest {
	req := models.ExplainRequest{
		TenantID:       dto.TenantID,
		DetectorConfig: dto.DetectorConfig,
		Anomaly: models.AnomalyContext{
			Start:      utils.MillisToTime(dto.Anomaly.StartMs),
			End:        utils.MillisToTime(dto.Anomaly.EndMs),
			Grade:      dto.Anomaly.Grade,
			Confidence: dto.Anomaly.Confidence,
		},
	}
	for _, attr := range dto.Anomaly.Entity {
		req.Anomaly.Entity = append(req.Anomaly.Entity, models.EntityAttribute{Name: attr.Name, Value: attr.Value})
	}
	for _, entry := range dto.Logs {
		req.Logs = append(req.Logs, toLogEntry(entry))
	}
	if dto.TimeRange != nil {
		req.TimeRange = &models.TimeRange{
			Start: utils.MillisToTime(dto.TimeRange.StartMs),
			End:   utils.MillisToTime(dto.TimeRange.EndMs),
		}
	}
	return req
}

func toLogEntry(dto logEntryDTO) models.LogEntry {
	entry := models.LogEntry{
		Timestamp: utils.MillisToTime(dto.TimestampMs),
		Level:     dto.Level,
		Message:   dto.Message,
	}
	if len(dto.Fields) > 0 {
		entry.Fields = make(map[string]models.FieldValue, len(dto.Fields))
		for name, raw := range dto.Fields {
			switch v := raw.(type) {
			case float64:
				entry.Fields[name] = models.Number(v)
			case bool:
				if v {
					entry.Fields[name] = models.Number(1)
				} else {
					entry.Fields[name] = models.Number(0)
				}
			case string:
				entry.Fields[name] = models.String(v)
			}
		}
	}
	return entry
}

func toAnalysisDTO(result *models.AnalysisResult) analysisDTO {
	dto := analysisDTO{
		AnalysisID: result.AnalysisID,
		Insights:   make([]insightDTO, 0, len(result.Insights)),
		Summary: summaryDTO{
			TotalInsights:        result.Summary.TotalInsights,
			SeverityBreakdown:    make(map[string]int, len(result.Summary.SeverityBreakdown)),
			CategoryBreakdown:    make(map[string]int, len(result.Summary.CategoryBreakdown)),
			ActionableInsights:   result.Summary.ActionableInsights,
			HighPriorityInsights: result.Summary.HighPriorityInsights,
		},
		Metadata: metadataDTO{
			AnalysisDurationMs:      result.Metadata.AnalysisDuration.Milliseconds(),
			LogCount:                result.Metadata.LogCount,
			PatternCount:            result.Metadata.PatternCount,
			StatisticalInsightCount: result.Metadata.StatisticalInsightCount,
		},
		CreatedAt: result.CreatedAt,
	}
	for severity, count := range result.Summary.SeverityBreakdown {
		dto.Summary.SeverityBreakdown[string(severity)] = count
	}
	for category, count := range result.Summary.CategoryBreakdown {
		dto.Summary.CategoryBreakdown[string(category)] = count
	}
	for _, in := range result.Insights {
		dto.Insights = append(dto.Insights, insightDTO{
			Type:        string(in.Type),
			Severity:    string(in.Severity),
			Title:       in.Title,
			Description: in.Description,
			Confidence:  in.Confidence,
			Question:    string(in.Question),
			Category:    string(in.Category),
			Actionable:  in.Actionable,
			Priority:    in.Priority,
			Data:        in.Data,
		})
	}
	return dto
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponseDTO{Error: message})
}
