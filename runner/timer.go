package runner

import (
	"context"
	"fmt"
	"time"
)

// Timer accumulates the wall-clock time spent inside measured calls only.
// Work done between Measure calls never reaches the total.
type Timer struct {
	now     func() time.Time
	elapsed time.Duration
	ops     int64
}

func NewTimer() *Timer {
	return &Timer{now: time.Now}
}

// Measure runs fn with the timer running. The time is accounted even when fn fails.
func (t *Timer) Measure(fn func() error) error {
	start := t.now()
	err := fn()
	t.elapsed += t.now().Sub(start)
	t.ops++
	return err
}

// Elapsed returns the total measured time.
func (t *Timer) Elapsed() time.Duration {
	return t.elapsed
}

// Ops returns the number of measured calls.
func (t *Timer) Ops() int64 {
	return t.ops
}

func (t *Timer) Reset() {
	t.elapsed = 0
	t.ops = 0
}

// Step describes one operation of a timed loop. Only Measure is timed.
type Step struct {
	// Prepare runs before the measured call, e.g. to generate the key or pre-populate it.
	Prepare func(i int) error
	// Measure issues exactly one store call.
	Measure func(i int) error
	// Check runs after the measured call, e.g. to verify what was read.
	Check func(i int) error
}

// Run executes step numOps times, stopping at the first error. The context is
// checked between operations, outside the measured interval.
func (t *Timer) Run(ctx context.Context, numOps int, step Step) error {
	for i := 0; i < numOps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if step.Prepare != nil {
			if err := step.Prepare(i); err != nil {
				return fmt.Errorf("prepare op %d: %w", i, err)
			}
		}
		if err := t.Measure(func() error { return step.Measure(i) }); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
		if step.Check != nil {
			if err := step.Check(i); err != nil {
				return fmt.Errorf("check op %d: %w", i, err)
			}
		}
	}
	return nil
}

// RunTimed runs numOps prepare/measure pairs on a fresh timer and returns the measured time.
func RunTimed(ctx context.Context, numOps int, prepare, measure func(i int) error) (time.Duration, error) {
	t := NewTimer()
	err := t.Run(ctx, numOps, Step{Prepare: prepare, Measure: measure})
	return t.Elapsed(), err
}
