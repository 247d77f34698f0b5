package enhance

import (
	"sort"

	"github.com/miradorstack/mirador-explain/internal/models"
)

// NumericFields returns the union of field names that carry a numeric value
// in at least one entry. Output order is deterministic.
func NumericFields(logs []models.LogEntry) []string {
	return collectFields(logs, models.FieldNumber)
}

// CategoricalFields returns the union of field names that carry a non-empty
// string value in at least one entry. Output order is deterministic.
func CategoricalFields(logs []models.LogEntry) []string {
	return collectFields(logs, models.FieldString)
}

func collectFields(logs []models.LogEntry, kind models.FieldKind) []string {
	set := make(map[string]struct{})
	for _, entry := range logs {
		for name, fv := range entry.Fields {
			if fv.Kind != kind {
				continue
			}
			if kind == models.FieldString && fv.Str == "" {
				continue
			}
			set[name] = struct{}{}
		}
	}
	fields := make([]string, 0, len(set))
	for name := range set {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}

// NumericSamples extracts the values of one numeric field across all entries
// that carry it, preserving log order.
func NumericSamples(logs []models.LogEntry, field string) []float64 {
	samples := make([]float64, 0, len(logs))
	for _, entry := range logs {
		if v, ok := entry.NumberField(field); ok {
			samples = append(samples, v)
		}
	}
	return samples
}

// PairedSamples extracts aligned value pairs for two fields from entries that
// carry both.
func PairedSamples(logs []models.LogEntry, field1, field2 string) ([]float64, []float64) {
	xs := make([]float64, 0, len(logs))
	ys := make([]float64, 0, len(logs))
	for _, entry := range logs {
		x, ok1 := entry.NumberField(field1)
		y, ok2 := entry.NumberField(field2)
		if ok1 && ok2 {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}
