package runner

import (
	"fmt"
	"regexp"
	"time"

	"kvbench/config"
	"kvbench/store"
)

// BenchmarkRunConfig holds all configuration parameters
type BenchmarkRunConfig struct {
	PoolID   string
	ObjectID store.ObjectID

	// Workload parameters
	Matrix     Matrix
	Operations []string
	PageSize   int
	Iterations int
	Verify     bool

	// Benchmarks whose name does not match are skipped, nil runs everything
	Filter *regexp.Regexp

	// Report parameters
	TimeUnit time.Duration
	UnitName string

	// Results parameters
	ResultsFile      string
	ResultsBatchSize int
}

func NewRunConfig(cfg *config.BenchConfig) (*BenchmarkRunConfig, error) {
	unit, ok := config.TimeUnits[cfg.TimeUnit]
	if !ok {
		return nil, fmt.Errorf("%w: unknown time unit %q", config.ErrInvalid, cfg.TimeUnit)
	}

	var filter *regexp.Regexp
	if cfg.Filter != "" {
		re, err := regexp.Compile(cfg.Filter)
		if err != nil {
			return nil, fmt.Errorf("%w: benchmark filter: %w", config.ErrInvalid, err)
		}
		filter = re
	}

	matrix := Matrix{
		KeySizes:   cfg.KeySizes,
		ValueSizes: cfg.ValueSizes,
		NumOps:     cfg.NumOps,
	}
	if err := matrix.Validate(); err != nil {
		return nil, err
	}
	if cfg.PageSize < 1 || cfg.Iterations < 1 {
		return nil, fmt.Errorf("%w: page size and iterations must be positive", config.ErrInvalid)
	}

	return &BenchmarkRunConfig{
		PoolID:           cfg.PoolID,
		ObjectID:         store.ObjectID(cfg.ObjectID),
		Matrix:           matrix,
		Operations:       cfg.Operations,
		PageSize:         cfg.PageSize,
		Iterations:       cfg.Iterations,
		Verify:           cfg.Verify,
		Filter:           filter,
		TimeUnit:         unit,
		UnitName:         cfg.TimeUnit,
		ResultsFile:      cfg.ResultsFile,
		ResultsBatchSize: cfg.ResultsBatchSize,
	}, nil
}
