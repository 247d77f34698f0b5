package models

// Pattern type tags emitted by the rule-based detector.
const (
	PatternRepeatingMessage = "repeating_message"
	PatternErrorSequence    = "error_sequence"
	PatternAnomalousValue   = "anomalous_value"
	PatternVolumeSpike      = "volume_spike"
	PatternVolumeDrop       = "volume_drop"
	PatternFieldCorrelation = "field_correlation"
	PatternTemporalPeak     = "temporal_peak"
)

// DetectedPattern is one occurrence of a rule-based pattern family.
type DetectedPattern struct {
	Type         string
	Description  string
	Confidence   float64
	Severity     Severity
	TimeRange    TimeRange
	AffectedLogs int
	Metadata     map[string]any
}

// PatternSummary aggregates a detection run.
type PatternSummary struct {
	TotalPatterns int
	ByType        map[string]int
	BySeverity    map[Severity]int
}

// PatternReport is the detector's full output.
type PatternReport struct {
	Patterns []DetectedPattern
	Summary  PatternSummary
}
