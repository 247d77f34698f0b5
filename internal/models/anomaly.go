package models

import "time"

// EntityAttribute is one name/value pair of the anomaly's entity breakdown.
// Order is meaningful and preserved.
type EntityAttribute struct {
	Name  string
	Value string
}

// AnomalyContext describes the detected anomaly being explained. It is input
// only; the engine never mutates it.
type AnomalyContext struct {
	Start      time.Time
	End        time.Time
	Grade      float64
	Confidence float64
	Entity     []EntityAttribute
}

// Duration returns the anomaly span. Zero when bounds are inverted.
func (a AnomalyContext) Duration() time.Duration {
	if a.End.Before(a.Start) {
		return 0
	}
	return a.End.Sub(a.Start)
}

// Valid reports whether the anomaly window is usable for analysis.
func (a AnomalyContext) Valid() bool {
	return !a.Start.IsZero() && !a.End.IsZero() && !a.End.Before(a.Start)
}

// TimeRange bounds a signal window.
type TimeRange struct {
	Start time.Time
	End   time.Time
}
