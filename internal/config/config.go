// Package config loads and validates the tool configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/Upsolver/iceberg-diag/internal/catalog"
	"github.com/Upsolver/iceberg-diag/internal/diag"
	"github.com/Upsolver/iceberg-diag/internal/submit"
)

// Config holds the full tool configuration. Values come from an optional
// YAML file with CLI flags layered on top.
type Config struct {
	// Catalog configures the catalog connection.
	Catalog catalog.Config `yaml:"catalog"`

	// Analysis configures scanning, aggregation and projection.
	Analysis AnalysisConfig `yaml:"analysis"`

	// Submit configures optional remote submission.
	Submit submit.Config `yaml:"submit"`
}

// AnalysisConfig holds the pipeline tuning knobs.
type AnalysisConfig struct {
	// TargetFileSize is the compaction target for projections.
	TargetFileSize ByteSize `yaml:"target_file_size"`

	// HistogramBounds are the ascending file-size histogram boundaries.
	HistogramBounds []ByteSize `yaml:"histogram_bounds"`

	// MaxTrackedPartitions caps per-partition tracking.
	MaxTrackedPartitions int `yaml:"max_tracked_partitions"`

	// TableConcurrency bounds parallel table pipelines.
	TableConcurrency int `yaml:"table_concurrency"`

	// ManifestConcurrency bounds parallel manifest reads per table.
	ManifestConcurrency int `yaml:"manifest_concurrency"`

	// CorruptThreshold is the tolerated proportion of corrupt manifests.
	CorruptThreshold float64 `yaml:"corrupt_threshold"`

	// CallTimeout bounds each remote call.
	CallTimeout Duration `yaml:"call_timeout"`

	// MaxAttempts bounds attempts per transient failure, including the first.
	MaxAttempts int `yaml:"max_attempts"`

	// InitialBackoff and MaxBackoff bound the retry delays.
	InitialBackoff Duration `yaml:"initial_backoff"`
	MaxBackoff     Duration `yaml:"max_backoff"`

	// PerFileOverhead is the modeled fixed cost per file scanned.
	PerFileOverhead Duration `yaml:"per_file_overhead"`

	// ScanThroughput is the modeled sequential scan rate per second.
	ScanThroughput ByteSize `yaml:"scan_throughput"`
}

const mib = 1024 * 1024

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		Analysis: AnalysisConfig{
			TargetFileSize:       512 * mib,
			HistogramBounds:      []ByteSize{1 * mib, 8 * mib, 32 * mib, 128 * mib, 512 * mib},
			MaxTrackedPartitions: 10000,
			TableConcurrency:     10,
			ManifestConcurrency:  8,
			CorruptThreshold:     0.5,
			CallTimeout:          Duration(60 * time.Second),
			MaxAttempts:          3,
			InitialBackoff:       Duration(500 * time.Millisecond),
			MaxBackoff:           Duration(8 * time.Second),
			PerFileOverhead:      Duration(20 * time.Millisecond),
			ScanThroughput:       32 * mib,
		},
		Submit: submit.Config{
			Endpoint: submit.DefaultEndpoint,
		},
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the full configuration.
func (cfg Config) Validate() error {
	var errs error

	if err := cfg.Catalog.Validate(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := cfg.Analysis.validate(); err != nil {
		errs = multierr.Append(errs, err)
	}

	return errs
}

func (cfg AnalysisConfig) validate() error {
	var errs error

	if cfg.TargetFileSize <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("analysis.target_file_size must be positive"))
	}
	if cfg.MaxTrackedPartitions <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("analysis.max_tracked_partitions must be positive"))
	}
	if cfg.CorruptThreshold < 0 || cfg.CorruptThreshold > 1 {
		errs = multierr.Append(errs, fmt.Errorf("analysis.corrupt_threshold must be within [0, 1]"))
	}
	if cfg.ScanThroughput <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("analysis.scan_throughput must be positive"))
	}
	if cfg.PerFileOverhead < 0 {
		errs = multierr.Append(errs, fmt.Errorf("analysis.per_file_overhead must not be negative"))
	}

	return errs
}

// RetryPolicy builds the retry policy for remote calls.
func (cfg AnalysisConfig) RetryPolicy() diag.RetryPolicy {
	return diag.RetryPolicy{
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: time.Duration(cfg.InitialBackoff),
		MaxBackoff:     time.Duration(cfg.MaxBackoff),
	}
}

// PipelineConfig builds the diagnostics pipeline configuration.
func (cfg AnalysisConfig) PipelineConfig() diag.PipelineConfig {
	bounds := make([]int64, 0, len(cfg.HistogramBounds))
	for _, b := range cfg.HistogramBounds {
		bounds = append(bounds, int64(b))
	}

	return diag.PipelineConfig{
		TableConcurrency:    cfg.TableConcurrency,
		TargetFileSizeBytes: int64(cfg.TargetFileSize),
		CostModel: diag.CostModel{
			PerFileOverhead:       time.Duration(cfg.PerFileOverhead),
			ThroughputBytesPerSec: int64(cfg.ScanThroughput),
		},
		Aggregator: diag.AggregatorConfig{
			HistogramBounds:      bounds,
			MaxTrackedPartitions: cfg.MaxTrackedPartitions,
		},
		Scanner: diag.ScannerConfig{
			ManifestConcurrency: cfg.ManifestConcurrency,
			CorruptThreshold:    cfg.CorruptThreshold,
			CallTimeout:         time.Duration(cfg.CallTimeout),
			Retry:               cfg.RetryPolicy(),
		},
	}
}

// LoaderConfig builds the metadata loader configuration.
func (cfg AnalysisConfig) LoaderConfig() diag.LoaderConfig {
	return diag.LoaderConfig{
		CallTimeout: time.Duration(cfg.CallTimeout),
		Retry:       cfg.RetryPolicy(),
	}
}
