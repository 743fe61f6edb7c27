package runner

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"text/tabwriter"
	"time"
)

// Result holds the measurement of one benchmark
type Result struct {
	Operation  string
	Config     OperationConfig
	Iterations int
	Elapsed    time.Duration // measured time summed over all iterations
	Ops        int64         // measured store calls over all iterations
}

func (r Result) Name() string {
	return benchmarkName(r.Operation, r.Config)
}

// PerIteration returns the mean measured time of one iteration.
func (r Result) PerIteration() time.Duration {
	if r.Iterations == 0 {
		return 0
	}
	return r.Elapsed / time.Duration(r.Iterations)
}

// OpsPerSecond returns the benchmarked operations per second of measured time.
// For LIST the GETs issued for listed keys are part of the measured time but
// only NumOps keys count.
func (r Result) OpsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Config.NumOps) * float64(r.Iterations) / r.Elapsed.Seconds()
}

func inUnit(d time.Duration, unit time.Duration) float64 {
	return float64(d) / float64(unit)
}

// ResultExporter handles the export of benchmark results to CSV
type ResultExporter struct {
	file      *os.File
	batchSize int
	unit      time.Duration
	unitName  string
	results   []Result

	// size of the header, Discard truncates back to it
	headerSize int64
	mu         sync.Mutex
}

func NewResultExporter(filename string, batchSize int, unit time.Duration, unitName string) (*ResultExporter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	// Write CSV header
	writer := csv.NewWriter(file)
	err = writer.Write([]string{
		"name",
		"operation",
		"key_size",
		"value_size",
		"num_ops",
		"iterations",
		"elapsed_ns",
		"elapsed",
		"time_unit",
		"ops_per_sec",
	})
	if err != nil {
		file.Close()
		return nil, err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return nil, err
	}

	headerSize, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		file.Close()
		return nil, err
	}

	if batchSize < 1 {
		batchSize = 1
	}
	return &ResultExporter{
		file:       file,
		batchSize:  batchSize,
		unit:       unit,
		unitName:   unitName,
		results:    make([]Result, 0, batchSize),
		headerSize: headerSize,
	}, nil
}

func (e *ResultExporter) AddResult(result Result) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.results = append(e.results, result)

	if len(e.results) >= e.batchSize {
		return e.flush()
	}
	return nil
}

func (e *ResultExporter) flush() error {
	writer := csv.NewWriter(e.file)
	for _, result := range e.results {
		err := writer.Write([]string{
			result.Name(),
			result.Operation,
			strconv.Itoa(result.Config.KeySize),
			strconv.Itoa(result.Config.ValueSize),
			strconv.Itoa(result.Config.NumOps),
			strconv.Itoa(result.Iterations),
			strconv.FormatInt(result.PerIteration().Nanoseconds(), 10),
			strconv.FormatFloat(inUnit(result.PerIteration(), e.unit), 'f', 3, 64),
			e.unitName,
			strconv.FormatFloat(result.OpsPerSecond(), 'f', 2, 64),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	e.results = e.results[:0]
	return writer.Error()
}

// Discard drops every result added so far, buffered or already flushed,
// leaving only the header in the file.
func (e *ResultExporter) Discard() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.results = e.results[:0]
	if err := e.file.Truncate(e.headerSize); err != nil {
		return err
	}
	_, err := e.file.Seek(e.headerSize, io.SeekStart)
	return err
}

func (e *ResultExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.results) > 0 {
		if err := e.flush(); err != nil {
			e.file.Close()
			return err
		}
	}
	return e.file.Close()
}

// Report prints one aligned line per result with the per-iteration time in unit.
func Report(w io.Writer, results []Result, unit time.Duration, unitName string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Benchmark\tTime\tIterations\tOps/s\t\n")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%.3f %s\t%d\t%.2f\t\n",
			r.Name(), inUnit(r.PerIteration(), unit), unitName, r.Iterations, r.OpsPerSecond())
	}
	return tw.Flush()
}
