package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the explain service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LogSource LogSourceConfig `yaml:"logSource"`
	Logging   LoggingConfig   `yaml:"logging"`
	Rules     RulesConfig     `yaml:"rules"`
	Cache     CacheConfig     `yaml:"cache"`
	Analysis  Thresholds      `yaml:"analysis"`
}

// ServerConfig controls the HTTP listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LogSourceConfig configures the backend the engine fetches log windows from
// when a request carries a time range but no inline logs.
type LogSourceConfig struct {
	BaseURL  string        `yaml:"baseURL"`
	LogsPath string        `yaml:"logsPath"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RulesConfig controls rule-pack loading for the recommender.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls the embedded cache for log-source responses.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	TTL       time.Duration `yaml:"ttl"`
	MaxSizeMB int           `yaml:"maxSizeMB"`
}

// Thresholds is the single tunables struct for every analyzer. Tests override
// individual fields.
type Thresholds struct {
	Pattern     PatternThresholds     `yaml:"pattern"`
	Correlation CorrelationThresholds `yaml:"correlation"`
	Causality   CausalityThresholds   `yaml:"causality"`
	Clustering  ClusteringThresholds  `yaml:"clustering"`
	Windows     WindowThresholds      `yaml:"windows"`
	ML          MLThresholds          `yaml:"ml"`
}

// PatternThresholds tunes the rule-based pattern detector.
type PatternThresholds struct {
	// MinLogCount is the minimum input size before any detection runs.
	MinLogCount int `yaml:"minLogCount"`
	// TimeWindow is the volume bucketing window.
	TimeWindow time.Duration `yaml:"timeWindow"`
	// ConfidenceThreshold filters patterns globally.
	ConfidenceThreshold float64 `yaml:"confidenceThreshold"`
	// Severity cut points applied uniformly across pattern types.
	SeverityLow      float64 `yaml:"severityLow"`
	SeverityMedium   float64 `yaml:"severityMedium"`
	SeverityHigh     float64 `yaml:"severityHigh"`
	SeverityCritical float64 `yaml:"severityCritical"`
	// RepeatMinCount and RepeatMinRate gate the repeating-message family.
	RepeatMinCount int     `yaml:"repeatMinCount"`
	RepeatMinRate  float64 `yaml:"repeatMinRate"`
	// ErrorRunLength is the minimum consecutive error-keyword run.
	ErrorRunLength int `yaml:"errorRunLength"`
	// OutlierStdDevs is the z-score fence for anomalous values.
	OutlierStdDevs float64 `yaml:"outlierStdDevs"`
	// MinFieldSamples gates per-field numeric analysis.
	MinFieldSamples int `yaml:"minFieldSamples"`
	// CorrelationFlag is the |r| above which a field pair is reported.
	CorrelationFlag float64 `yaml:"correlationFlag"`
	// HourlyPeakFactor flags the busiest hour against the 24h average.
	HourlyPeakFactor float64 `yaml:"hourlyPeakFactor"`
	// MinVolumeWindows gates spike/drop detection.
	MinVolumeWindows int `yaml:"minVolumeWindows"`
}

// CorrelationThresholds tunes the advanced correlation suite.
type CorrelationThresholds struct {
	MinSamples int `yaml:"minSamples"`
	// MaxFields caps the number of fields entering the pair loops.
	MaxFields int `yaml:"maxFields"`
	// MaxKendallSamples bounds the quadratic Kendall computation.
	MaxKendallSamples int `yaml:"maxKendallSamples"`
	// PearsonCutoff selects Pearson as the reported method when exceeded
	// with no outliers present.
	PearsonCutoff float64 `yaml:"pearsonCutoff"`
	// Strong and Moderate tier the generated insights.
	Strong   float64 `yaml:"strong"`
	Moderate float64 `yaml:"moderate"`
}

// CausalityThresholds tunes the causal-relationship proxies.
type CausalityThresholds struct {
	MinSamples int     `yaml:"minSamples"`
	Strong     float64 `yaml:"strong"`
}

// ClusteringThresholds tunes greedy anomaly clustering.
type ClusteringThresholds struct {
	Similarity float64 `yaml:"similarity"`
}

// WindowThresholds tunes the before/during/after comparisons.
type WindowThresholds struct {
	// Padding is applied on each side of the anomaly bounds.
	Padding time.Duration `yaml:"padding"`
	// ComparisonWindow centres the significance tests (per side).
	ComparisonWindow time.Duration `yaml:"comparisonWindow"`
	// ErrorRateThreshold is the during-window error rate considered high.
	ErrorRateThreshold float64 `yaml:"errorRateThreshold"`
	// ErrorRateGrowth is the before-to-during growth factor that pairs the
	// error insight with a root-cause insight.
	ErrorRateGrowth float64 `yaml:"errorRateGrowth"`
	// VolumeSpikeFactor flags during-window throughput against baseline.
	VolumeSpikeFactor float64 `yaml:"volumeSpikeFactor"`
	// ResponseDegradeFactor flags mean latency growth.
	ResponseDegradeFactor float64 `yaml:"responseDegradeFactor"`
	// BurstyFactor classifies hour-bucketed traffic as bursty.
	BurstyFactor float64 `yaml:"burstyFactor"`
}

// MLThresholds tunes the ML pattern detection suite.
type MLThresholds struct {
	KMeansClusters  int     `yaml:"kmeansClusters"`
	KMeansMaxIter   int     `yaml:"kmeansMaxIter"`
	KMeansTolerance float64 `yaml:"kmeansTolerance"`
	DBSCANEps       float64 `yaml:"dbscanEps"`
	DBSCANMinPts    int     `yaml:"dbscanMinPts"`
	IsolationTrees  int     `yaml:"isolationTrees"`
	AnomalyFraction float64 `yaml:"anomalyFraction"`
	TreeMaxDepth    int     `yaml:"treeMaxDepth"`
	ForestTrees     int     `yaml:"forestTrees"`
	MinLogCount     int     `yaml:"minLogCount"`
	DominantShare   float64 `yaml:"dominantShare"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MIRADOR_EXPLAIN_CONFIG")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			GracefulTimeout: 10 * time.Second,
		},
		LogSource: LogSourceConfig{
			LogsPath: "/api/v1/explain/logs",
			Timeout:  5 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Rules:   RulesConfig{Path: "configs/rules/default.yaml"},
		Cache: CacheConfig{
			Enabled:   false,
			TTL:       2 * time.Minute,
			MaxSizeMB: 64,
		},
		Analysis: DefaultThresholds(),
	}
}

// DefaultThresholds names every analyzer constant in one place.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Pattern: PatternThresholds{
			MinLogCount:         10,
			TimeWindow:          time.Minute,
			ConfidenceThreshold: 0.6,
			SeverityLow:         0.6,
			SeverityMedium:      0.7,
			SeverityHigh:        0.8,
			SeverityCritical:    0.9,
			RepeatMinCount:      5,
			RepeatMinRate:       0.1,
			ErrorRunLength:      3,
			OutlierStdDevs:      2.0,
			MinFieldSamples:     10,
			CorrelationFlag:     0.7,
			HourlyPeakFactor:    2.0,
			MinVolumeWindows:    5,
		},
		Correlation: CorrelationThresholds{
			MinSamples:        10,
			MaxFields:         12,
			MaxKendallSamples: 200,
			PearsonCutoff:     0.8,
			Strong:            0.7,
			Moderate:          0.5,
		},
		Causality: CausalityThresholds{
			MinSamples: 10,
			Strong:     0.3,
		},
		Clustering: ClusteringThresholds{Similarity: 0.7},
		Windows: WindowThresholds{
			Padding:               10 * time.Minute,
			ComparisonWindow:      time.Hour,
			ErrorRateThreshold:    0.1,
			ErrorRateGrowth:       1.5,
			VolumeSpikeFactor:     2.0,
			ResponseDegradeFactor: 1.3,
			BurstyFactor:          2.0,
		},
		ML: MLThresholds{
			KMeansClusters:  3,
			KMeansMaxIter:   100,
			KMeansTolerance: 0.001,
			DBSCANEps:       1.5,
			DBSCANMinPts:    4,
			IsolationTrees:  10,
			AnomalyFraction: 0.5,
			TreeMaxDepth:    10,
			ForestTrees:     5,
			MinLogCount:     20,
			DominantShare:   0.5,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIRADOR_EXPLAIN_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("MIRADOR_EXPLAIN_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("MIRADOR_EXPLAIN_LOG_SOURCE_URL"); v != "" {
		cfg.LogSource.BaseURL = v
	}
	if v := os.Getenv("MIRADOR_EXPLAIN_LOG_SOURCE_PATH"); v != "" {
		cfg.LogSource.LogsPath = v
	}
	if v := os.Getenv("MIRADOR_EXPLAIN_LOG_SOURCE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LogSource.Timeout = d
		}
	}
	if v := os.Getenv("MIRADOR_EXPLAIN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MIRADOR_EXPLAIN_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("MIRADOR_EXPLAIN_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("MIRADOR_EXPLAIN_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("MIRADOR_EXPLAIN_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := os.Getenv("MIRADOR_EXPLAIN_CACHE_MAX_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Cache.MaxSizeMB = n
		}
	}
	if v := os.Getenv("MIRADOR_EXPLAIN_MIN_LOG_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Analysis.Pattern.MinLogCount = n
		}
	}
	if v := os.Getenv("MIRADOR_EXPLAIN_WINDOW_PADDING"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Analysis.Windows.Padding = d
		}
	}
}
