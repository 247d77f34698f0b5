package enhance

import (
	"strings"

	"github.com/miradorstack/mirador-explain/internal/models"
)

// Synthetic field names added by Enhance. Downstream analyzers rely on these
// existing even when the raw logs are sparse.
const (
	FieldIndex         = "index"
	FieldMessageLength = "message_length"
	FieldHour          = "hour"
	FieldMinute        = "minute"
	FieldDayOfWeek     = "day_of_week"
	FieldLevelValue    = "level_value"
	FieldMessageType   = "message_type"
	FieldTimePeriod    = "time_period"
)

// Enhance derives synthetic numeric and categorical fields from raw log
// records. It is pure: input order and length are preserved and the caller's
// entries are never mutated.
func Enhance(logs []models.LogEntry) []models.LogEntry {
	enhanced := make([]models.LogEntry, len(logs))
	for i, entry := range logs {
		out := entry.Clone()
		if out.Fields == nil {
			out.Fields = make(map[string]models.FieldValue, 8)
		}

		out.Fields[FieldIndex] = models.Number(float64(i))
		out.Fields[FieldMessageLength] = models.Number(float64(len(entry.Message)))

		ts := entry.Timestamp.UTC()
		out.Fields[FieldHour] = models.Number(float64(ts.Hour()))
		out.Fields[FieldMinute] = models.Number(float64(ts.Minute()))
		out.Fields[FieldDayOfWeek] = models.Number(float64(ts.Weekday()))
		out.Fields[FieldLevelValue] = models.Number(levelValue(entry.Level))
		out.Fields[FieldMessageType] = models.String(messageType(entry.Message))
		out.Fields[FieldTimePeriod] = models.String(timePeriod(ts.Hour()))

		enhanced[i] = out
	}
	return enhanced
}

func levelValue(level string) float64 {
	switch strings.ToLower(level) {
	case "error", "err", "fatal":
		return 4
	case "warn", "warning":
		return 3
	case "info":
		return 2
	case "debug", "trace":
		return 1
	default:
		return 0
	}
}

func messageType(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "error") || strings.Contains(msg, "fail"):
		return "error"
	case strings.Contains(msg, "warn"):
		return "warning"
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "slow") || strings.Contains(msg, "latency"):
		return "performance"
	case strings.Contains(msg, "auth") || strings.Contains(msg, "denied") || strings.Contains(msg, "unauthorized"):
		return "security"
	default:
		return "general"
	}
}

func timePeriod(hour int) string {
	switch {
	case hour < 6:
		return "night"
	case hour < 12:
		return "morning"
	case hour < 18:
		return "afternoon"
	default:
		return "evening"
	}
}
