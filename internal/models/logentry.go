package models

import (
	"math"
	"sort"
	"time"
)

// FieldKind tags the scalar type carried by a log field.
type FieldKind int

const (
	// FieldNumber marks a finite numeric field value.
	FieldNumber FieldKind = iota
	// FieldString marks a string field value.
	FieldString
)

// FieldValue is a tagged scalar attached to a log entry. Log records are
// heterogeneous, so analyzers dispatch on Kind instead of reflection.
type FieldValue struct {
	Kind FieldKind
	Num  float64
	Str  string
}

// Number wraps a float into a FieldValue. Non-finite values are stored as zero
// so downstream math never sees NaN or Infinity.
func Number(v float64) FieldValue {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return FieldValue{Kind: FieldNumber, Num: v}
}

// String wraps a string into a FieldValue.
func String(s string) FieldValue {
	return FieldValue{Kind: FieldString, Str: s}
}

// LogEntry is a single raw or enhanced log record. Timestamp, Level and
// Message are first-class; everything else lives in Fields as tagged scalars.
type LogEntry struct {
	Timestamp time.Time
	Level     string
	Message   string
	Fields    map[string]FieldValue
}

// NumberField returns the numeric value of a named field when present.
func (e LogEntry) NumberField(name string) (float64, bool) {
	fv, ok := e.Fields[name]
	if !ok || fv.Kind != FieldNumber {
		return 0, false
	}
	return fv.Num, true
}

// StringField returns the string value of a named field when present and
// non-empty.
func (e LogEntry) StringField(name string) (string, bool) {
	fv, ok := e.Fields[name]
	if !ok || fv.Kind != FieldString || fv.Str == "" {
		return "", false
	}
	return fv.Str, true
}

// Clone returns a deep copy of the entry so enhancers never mutate caller
// data.
func (e LogEntry) Clone() LogEntry {
	out := e
	if e.Fields != nil {
		out.Fields = make(map[string]FieldValue, len(e.Fields))
		for k, v := range e.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// SortedByTime returns a timestamp-ordered copy of the given entries.
func SortedByTime(logs []LogEntry) []LogEntry {
	sorted := append([]LogEntry(nil), logs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}
