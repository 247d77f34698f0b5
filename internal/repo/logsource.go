package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/miradorstack/mirador-explain/internal/cache"
	"github.com/miradorstack/mirador-explain/internal/models"
	"github.com/miradorstack/mirador-explain/internal/utils"
)

// logEntryDTO is the wire shape of one log record. Timestamps travel as
// epoch milliseconds; everything beyond the first-class keys lands in Fields.
type logEntryDTO struct {
	TimestampMs int64          `json:"timestamp"`
	Level       string         `json:"level,omitempty"`
	Message     string         `json:"message,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
}

// LogSourceClient fetches the raw log window around an anomaly from the
// search backend, with cache-aside reads keyed on tenant and window.
type LogSourceClient struct {
	baseURL    string
	logsPath   string
	httpClient *http.Client
	cache      cache.Provider
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// NewLogSourceClient constructs a client targeting the configured backend.
// A nil provider disables caching.
func NewLogSourceClient(baseURL, logsPath string, timeout time.Duration, provider cache.Provider, cacheTTL time.Duration, logger *slog.Logger) *LogSourceClient {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSourceClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		logsPath:   logsPath,
		httpClient: &http.Client{Timeout: timeout},
		cache:      provider,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// FetchLogs retrieves the log entries for one tenant and time window.
func (c *LogSourceClient) FetchLogs(ctx context.Context, tenantID string, window models.TimeRange) ([]models.LogEntry, error) {
	if c == nil || c.baseURL == "" {
		return nil, utils.NewAppError("repo.FetchLogs", "log source base URL not configured", nil)
	}

	key := cacheKey(tenantID, window)
	if cached, err := c.cache.Get(ctx, key); err == nil {
		var dtos []logEntryDTO
		if err := json.Unmarshal(cached, &dtos); err == nil {
			return toModels(dtos), nil
		}
		// Unreadable cache entries are dropped and refetched.
		_ = c.cache.Del(ctx, key)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn("log cache read failed", slog.Any("error", err))
	}

	payload := map[string]any{
		"tenant_id": tenantID,
		"start":     window.Start.UnixMilli(),
		"end":       window.End.UnixMilli(),
	}
	var response struct {
		Entries []logEntryDTO `json:"entries"`
	}
	if err := c.postJSON(ctx, c.logsURL(), payload, &response); err != nil {
		return nil, fmt.Errorf("log source request failed: %w", err)
	}

	if body, err := json.Marshal(response.Entries); err == nil {
		if err := c.cache.Set(ctx, key, body, c.cacheTTL); err != nil {
			c.logger.Warn("log cache write failed", slog.Any("error", err))
		}
	}
	return toModels(response.Entries), nil
}

func toModels(dtos []logEntryDTO) []models.LogEntry {
	entries := make([]models.LogEntry, 0, len(dtos))
	for _, dto := range dtos {
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
		entries = append(entries, entry)
	}
	return entries
}

func cacheKey(tenantID string, window models.TimeRange) string {
	return fmt.Sprintf("logs:%s:%d:%d", tenantID, window.Start.UnixMilli(), window.End.UnixMilli())
}

func (c *LogSourceClient) logsURL() string {
	cleaned := "/" + strings.TrimLeft(c.logsPath, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *LogSourceClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("log source returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
