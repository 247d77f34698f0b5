package models

import "time"

// CorrelationMethod names the statistic backing a correlation result.
type CorrelationMethod string

const (
	MethodPearson  CorrelationMethod = "pearson"
	MethodSpearman CorrelationMethod = "spearman"
	MethodKendall  CorrelationMethod = "kendall"
)

// SignificanceLevel buckets a p-value.
type SignificanceLevel string

const (
	SignificanceLow    SignificanceLevel = "low"
	SignificanceMedium SignificanceLevel = "medium"
	SignificanceHigh   SignificanceLevel = "high"
)

// CorrelationResult relates two fields. Correlation stays in [-1,1], PValue
// in [0,1]; swapping the field order yields the same magnitude.
type CorrelationResult struct {
	Field1       string
	Field2       string
	Correlation  float64
	PValue       float64
	Significance SignificanceLevel
	Method       CorrelationMethod
}

// CausalMethod names the causality proxy used.
type CausalMethod string

const (
	CausalGranger         CausalMethod = "granger"
	CausalTransferEntropy CausalMethod = "transfer_entropy"
	CausalMutualInfo      CausalMethod = "mutual_information"
)

// CausalRelationship is a directed cause/effect estimate between two fields.
type CausalRelationship struct {
	Cause      string
	Effect     string
	Strength   float64
	Confidence float64
	Lag        time.Duration
	Method     CausalMethod
}

// TimeSeriesPatternKind labels the temporal structure found in a field.
type TimeSeriesPatternKind string

const (
	TimeSeriesTrend    TimeSeriesPatternKind = "trend"
	TimeSeriesSeasonal TimeSeriesPatternKind = "seasonal"
	TimeSeriesCyclical TimeSeriesPatternKind = "cyclical"
)

// TimeSeriesPattern describes trend/seasonal/cyclical structure in one field.
type TimeSeriesPattern struct {
	Field     string
	Kind      TimeSeriesPatternKind
	Direction string
	Strength  float64
	Lag       int
}

// ClusterCentroid summarises the centre of an anomaly cluster.
type ClusterCentroid struct {
	Start      time.Time
	Duration   time.Duration
	Confidence float64
}

// AnomalyCluster groups similar anomalies.
type AnomalyCluster struct {
	ID              string
	Anomalies       []AnomalyContext
	Centroid        ClusterCentroid
	Radius          float64
	Characteristics []string
	Severity        Severity
}
