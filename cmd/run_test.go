package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	benchCfg "kvbench/config"
	"kvbench/constants"
	"kvbench/logger"
	"kvbench/store"
)

// refusingDriver accepts the first healthy connections and refuses the rest.
type refusingDriver struct {
	*store.MemoryDriver
	healthy  int
	connects int
}

func (d *refusingDriver) Connect(ctx context.Context, poolID string) (store.Conn, error) {
	d.connects++
	if d.connects > d.healthy {
		return nil, fmt.Errorf("%w: injected failure", store.ErrConnection)
	}
	return d.MemoryDriver.Connect(ctx, poolID)
}

func testBenchConfig(t *testing.T) *benchCfg.BenchConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := benchCfg.GetDefaultConfig()
	cfg.Backend = constants.BACKEND_MEMORY
	cfg.KeySizes = []int{16}
	cfg.ValueSizes = []int{8}
	cfg.NumOps = []int{1, 2}
	cfg.Operations = []string{constants.OP_PUT}
	cfg.Iterations = 1
	cfg.ResultsBatchSize = 1
	cfg.ResultsFile = filepath.Join(dir, "results.csv")
	cfg.LogFile = filepath.Join(dir, "bench.log")
	return cfg
}

func useDriver(t *testing.T, driver store.Driver) {
	t.Helper()
	saved := driverFactory
	t.Cleanup(func() { driverFactory = saved })
	driverFactory = func(*benchCfg.BenchConfig, *logger.Logger) (store.Driver, error) {
		return driver, nil
	}
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return rows
}

func TestRunBenchmarksReport(t *testing.T) {
	cfg := testBenchConfig(t)
	useDriver(t, store.NewMemoryDriver(cfg.PoolID))

	var out bytes.Buffer
	if err := runBenchmarks(cfg, &out); err != nil {
		t.Fatalf("runBenchmarks() error = %v", err)
	}
	for _, name := range []string{"kv_put/16/8/1", "kv_put/16/8/2"} {
		if !strings.Contains(out.String(), name) {
			t.Errorf("report misses %s:\n%s", name, out.String())
		}
	}
	if rows := readRows(t, cfg.ResultsFile); len(rows) != 3 {
		t.Errorf("results file has %d rows, want 3", len(rows))
	}
}

func TestRunBenchmarksFailureReportsNothing(t *testing.T) {
	cfg := testBenchConfig(t)
	useDriver(t, &refusingDriver{MemoryDriver: store.NewMemoryDriver(cfg.PoolID), healthy: 1})

	var out bytes.Buffer
	err := runBenchmarks(cfg, &out)
	if !errors.Is(err, store.ErrConnection) {
		t.Fatalf("runBenchmarks() error = %v, want %v", err, store.ErrConnection)
	}
	if out.Len() != 0 {
		t.Errorf("failed run printed a report:\n%s", out.String())
	}
	rows := readRows(t, cfg.ResultsFile)
	if len(rows) != 1 || rows[0][0] != "name" {
		t.Errorf("results file = %v, want the header only", rows)
	}
}

func TestRootWithoutCommandPrintsHelp(t *testing.T) {
	saved := *GConfig
	t.Cleanup(func() {
		*GConfig = saved
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})
	GConfig.benchConfigPath = t.TempDir()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{})
	if err := Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Errorf("help output = %q", out.String())
	}
}
