package runner

import (
	"context"
	"errors"
	"fmt"

	"kvbench/generator"
	"kvbench/store"

	"go.uber.org/zap"
)

// Benchmark is one planned benchmark: an operation on one matrix configuration.
type Benchmark struct {
	Operation string
	Config    OperationConfig
}

func (b Benchmark) Name() string {
	return benchmarkName(b.Operation, b.Config)
}

func benchmarkName(op string, cfg OperationConfig) string {
	return fmt.Sprintf("kv_%s/%s", op, cfg)
}

// BenchmarkRunner manages the benchmark execution
type BenchmarkRunner struct {
	config         *BenchmarkRunConfig
	driver         store.Driver
	logger         *zap.SugaredLogger
	results        []Result
	resultExporter *ResultExporter
	newTimer       func() *Timer
}

func NewBenchmarkRunner(config *BenchmarkRunConfig, driver store.Driver, logger *zap.SugaredLogger) (*BenchmarkRunner, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	var resultExporter *ResultExporter
	if config.ResultsFile != "" {
		var err error
		resultExporter, err = NewResultExporter(config.ResultsFile, config.ResultsBatchSize, config.TimeUnit, config.UnitName)
		if err != nil {
			return nil, fmt.Errorf("failed to create result exporter: %w", err)
		}
	}
	return &BenchmarkRunner{
		config:         config,
		driver:         driver,
		logger:         logger,
		results:        make([]Result, 0),
		resultExporter: resultExporter,
		newTimer:       NewTimer,
	}, nil
}

// Plan lists the benchmarks Run executes, in order: operations outermost,
// then the matrix, skipping names rejected by the filter.
func (r *BenchmarkRunner) Plan() []Benchmark {
	plan := make([]Benchmark, 0, len(r.config.Operations)*r.config.Matrix.Len())
	for _, op := range r.config.Operations {
		for cfg := range r.config.Matrix.All() {
			b := Benchmark{Operation: op, Config: cfg}
			if r.config.Filter != nil && !r.config.Filter.MatchString(b.Name()) {
				continue
			}
			plan = append(plan, b)
		}
	}
	return plan
}

// Results returns the results of a completed run. A failed run has none.
func (r *BenchmarkRunner) Results() []Result {
	return r.results
}

// Run executes the plan and stops at the first failing benchmark. A failed
// run reports nothing: results of the benchmarks before the failure are
// dropped, exported rows included.
func (r *BenchmarkRunner) Run(ctx context.Context) error {
	plan := r.Plan()
	r.logger.Infof("Running %d benchmarks against the %s backend", len(plan), r.driver.Name())

	for _, b := range plan {
		if err := ctx.Err(); err != nil {
			r.discardResults()
			return err
		}
		result, err := r.runBenchmark(ctx, b)
		if err != nil {
			r.discardResults()
			return fmt.Errorf("benchmark %s failed: %w", b.Name(), err)
		}
		r.results = append(r.results, result)
		r.logger.Infof("%s: %v per iteration, %.2f ops/s", b.Name(), result.PerIteration(), result.OpsPerSecond())

		if r.resultExporter != nil {
			if err := r.resultExporter.AddResult(result); err != nil {
				r.logger.Errorf("Failed to export result: %v", err)
			}
		}
	}

	r.logger.Infof("All benchmarks are completed")
	return nil
}

func (r *BenchmarkRunner) runBenchmark(ctx context.Context, b Benchmark) (result Result, err error) {
	gen, err := generator.NewGenerator(b.Config.KeySize, b.Config.ValueSize)
	if err != nil {
		return result, err
	}

	session, err := store.OpenSession(ctx, r.driver, r.config.PoolID, r.config.ObjectID)
	if err != nil {
		return result, fmt.Errorf("failed to open session: %w", err)
	}
	r.logger.Debugf("%s: opened container %s", b.Name(), session.ContainerID())
	defer func() {
		// teardown must run even when ctx was cancelled
		closeErr := session.Close(context.WithoutCancel(ctx))
		if closeErr == nil {
			return
		}
		if err != nil {
			r.logger.Errorf("%s: teardown after failure: %v", b.Name(), closeErr)
			return
		}
		err = fmt.Errorf("teardown: %w", closeErr)
	}()

	timer := r.newTimer()
	w := &workload{
		obj:      session.Object(),
		gen:      gen,
		numOps:   b.Config.NumOps,
		pageSize: r.config.PageSize,
		verify:   r.config.Verify,
		timer:    timer,
	}
	for i := 0; i < r.config.Iterations; i++ {
		if err := w.run(ctx, b.Operation); err != nil {
			if errors.Is(err, context.Canceled) {
				return result, err
			}
			return result, fmt.Errorf("iteration %d: %w", i, err)
		}
	}

	return Result{
		Operation:  b.Operation,
		Config:     b.Config,
		Iterations: r.config.Iterations,
		Elapsed:    timer.Elapsed(),
		Ops:        timer.Ops(),
	}, nil
}

func (r *BenchmarkRunner) discardResults() {
	if len(r.results) > 0 {
		r.logger.Warnf("Discarding %d results of the failed run", len(r.results))
	}
	r.results = r.results[:0]
	if r.resultExporter != nil {
		if err := r.resultExporter.Discard(); err != nil {
			r.logger.Errorf("Failed to discard exported results: %v", err)
		}
	}
}

func (r *BenchmarkRunner) Close() error {
	if r.resultExporter != nil {
		if err := r.resultExporter.Close(); err != nil {
			return fmt.Errorf("failed to close result exporter: %w", err)
		}
	}
	return nil
}
