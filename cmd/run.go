package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	benchCfg "kvbench/config"
	"kvbench/constants"
	"kvbench/logger"
	"kvbench/runner"
	"kvbench/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

var runFlags struct {
	filter     string
	iterations int
	timeUnit   string
	backend    string
	pageSize   int
}

var RunCmd = &cobra.Command{
	Use:   "run [flags]",
	Short: "Run benchmarks",
	Long:  "Run the put, get, list and remove benchmarks over every key size, value size and operation count of the config. Each benchmark gets a fresh container that is destroyed afterwards",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := effectiveConfig(cmd)
		if err != nil {
			return err
		}
		return runBenchmarks(cfg, cmd.OutOrStdout())
	},
}

func init() {
	addRunFlags(RunCmd)
}

func addRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&runFlags.filter, "benchmark_filter", "", "Only run benchmarks whose name matches this regular expression, e.g. 'kv_get/64/.*'")
	flags.IntVar(&runFlags.iterations, "benchmark_iterations", constants.DEFAULT_ITERATIONS, "Number of iterations per benchmark")
	flags.StringVar(&runFlags.timeUnit, "benchmark_time_unit", constants.TIME_UNIT_MS, "Time unit of the report: ns, us, ms or s")
	flags.StringVar(&runFlags.backend, "backend", constants.BACKEND_MEMORY, "Store backend: memory or etcd")
	flags.IntVar(&runFlags.pageSize, "page_size", constants.DEFAULT_PAGE_SIZE, "Number of keys fetched per listing call")
}

// effectiveConfig returns the loaded config, or the defaults, with the flags
// the user set applied on top.
func effectiveConfig(cmd *cobra.Command) (*benchCfg.BenchConfig, error) {
	cfg := benchCfg.GetDefaultConfig()
	if GConfig.benchConfig != nil {
		c := *GConfig.benchConfig
		cfg = &c
	}

	flags := cmd.Flags()
	if flags.Changed("benchmark_filter") {
		cfg.Filter = runFlags.filter
	}
	if flags.Changed("benchmark_iterations") {
		cfg.Iterations = runFlags.iterations
	}
	if flags.Changed("benchmark_time_unit") {
		cfg.TimeUnit = runFlags.timeUnit
	}
	if flags.Changed("backend") {
		cfg.Backend = runFlags.backend
	}
	if flags.Changed("page_size") {
		cfg.PageSize = runFlags.pageSize
	}

	if err := benchCfg.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// driverFactory picks the store backend of a run.
var driverFactory = newDriver

func newDriver(cfg *benchCfg.BenchConfig, log *logger.Logger) (store.Driver, error) {
	switch cfg.Backend {
	case constants.BACKEND_MEMORY:
		return store.NewMemoryDriver(cfg.PoolID), nil
	case constants.BACKEND_ETCD:
		return store.NewEtcdDriver(cfg.Endpoints, time.Duration(cfg.DialTimeout), log.Child("etcd-client")), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", benchCfg.ErrInvalid, cfg.Backend)
	}
}

func runBenchmarks(cfg *benchCfg.BenchConfig, out io.Writer) (err error) {
	level := zapcore.InfoLevel
	if GConfig.verbose {
		level = zapcore.DebugLevel
	}
	log, err := logger.NewLogger(cfg.LogFile, level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		if closeErr := log.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close logger: %w", closeErr)
		}
	}()

	runConfig, err := runner.NewRunConfig(cfg)
	if err != nil {
		return err
	}
	driver, err := driverFactory(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	benchmarkRunner, err := runner.NewBenchmarkRunner(runConfig, driver, log.SugaredLogger)
	if err != nil {
		return err
	}

	runErr := benchmarkRunner.Run(ctx)
	if closeErr := benchmarkRunner.Close(); closeErr != nil {
		log.Errorf("%v", closeErr)
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			log.Warnf("Benchmark run interrupted")
		}
		// no partial results
		return runErr
	}

	if err := runner.Report(out, benchmarkRunner.Results(), runConfig.TimeUnit, runConfig.UnitName); err != nil {
		log.Errorf("Failed to print report: %v", err)
	}
	log.Infof("Results written to %s", runConfig.ResultsFile)
	return nil
}
