package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"kvbench/constants"
	"kvbench/generator"
	"kvbench/store"
)

// ErrVerify is returned when the store hands back data the benchmark did not write.
var ErrVerify = errors.New("verification failed")

// workload is one benchmark invocation. It owns its key generator, buffers
// and timer; the object belongs to the session of the invocation.
type workload struct {
	obj      store.Object
	gen      *generator.Generator
	numOps   int
	pageSize int
	verify   bool
	timer    *Timer
}

func (w *workload) run(ctx context.Context, op string) error {
	switch op {
	case constants.OP_PUT:
		return w.put(ctx)
	case constants.OP_GET:
		return w.get(ctx)
	case constants.OP_LIST:
		return w.list(ctx)
	case constants.OP_REMOVE:
		return w.remove(ctx)
	default:
		return fmt.Errorf("unknown operation %q", op)
	}
}

func (w *workload) checkValue(buf []byte) error {
	if !w.verify || bytes.Equal(buf, w.gen.Value()) {
		return nil
	}
	return fmt.Errorf("%w: value read back differs from value written", ErrVerify)
}

// put measures PUT of a new key per operation, all keys share one value.
func (w *workload) put(ctx context.Context) error {
	var key []byte
	return w.timer.Run(ctx, w.numOps, Step{
		Prepare: func(i int) (err error) {
			key, err = w.gen.Key(i)
			return err
		},
		Measure: func(int) error {
			return w.obj.Put(ctx, key, w.gen.Value())
		},
	})
}

// get measures GET of a key that was written right before it.
func (w *workload) get(ctx context.Context) error {
	var key []byte
	buf := make([]byte, w.gen.ValueSize())
	return w.timer.Run(ctx, w.numOps, Step{
		Prepare: func(i int) (err error) {
			key, err = w.gen.Key(i)
			if err != nil {
				return err
			}
			clear(buf)
			return w.obj.Put(ctx, key, w.gen.Value())
		},
		Measure: func(int) error {
			return w.obj.Get(ctx, key, buf)
		},
		Check: func(int) error {
			return w.checkValue(buf)
		},
	})
}

// remove measures REMOVE of a key that was written right before it.
func (w *workload) remove(ctx context.Context) error {
	var key []byte
	return w.timer.Run(ctx, w.numOps, Step{
		Prepare: func(i int) (err error) {
			key, err = w.gen.Key(i)
			if err != nil {
				return err
			}
			return w.obj.Put(ctx, key, w.gen.Value())
		},
		Measure: func(int) error {
			return w.obj.Remove(ctx, key)
		},
	})
}

// populate writes keys 0..numOps-1 without measuring.
func (w *workload) populate(ctx context.Context) error {
	for i := 0; i < w.numOps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		key, err := w.gen.Key(i)
		if err != nil {
			return err
		}
		if err := w.obj.Put(ctx, key, w.gen.Value()); err != nil {
			return fmt.Errorf("populate op %d: %w", i, err)
		}
	}
	return nil
}

// list writes numOps keys up front, then measures paging through them with
// the listing anchor and reading every listed key back.
func (w *workload) list(ctx context.Context) error {
	if err := w.populate(ctx); err != nil {
		return err
	}

	anchor := &store.Anchor{}
	page := store.NewPage(w.pageSize)
	buf := make([]byte, w.gen.ValueSize())
	seen := make([]bool, w.numOps)
	visited := 0

	for !anchor.EOF() {
		if err := ctx.Err(); err != nil {
			return err
		}
		page.Reset()
		if err := w.timer.Measure(func() error {
			return w.obj.List(ctx, anchor, page)
		}); err != nil {
			return fmt.Errorf("list after %d keys: %w", visited, err)
		}

		// an empty page before EOF is valid, fetch again
		for i := 0; i < page.Len(); i++ {
			key, err := page.Key(i)
			if err != nil {
				return err
			}
			clear(buf)
			if err := w.timer.Measure(func() error {
				return w.obj.Get(ctx, key, buf)
			}); err != nil {
				return fmt.Errorf("get listed key %q: %w", key, err)
			}
			if err := w.checkValue(buf); err != nil {
				return err
			}

			index, err := generator.ParseIndex(key, w.gen.KeySize())
			if err != nil {
				return fmt.Errorf("%w: listed unexpected key %q: %v", ErrVerify, key, err)
			}
			if index >= w.numOps {
				return fmt.Errorf("%w: listed key number %d, only %d keys were written", ErrVerify, index, w.numOps)
			}
			if seen[index] {
				return fmt.Errorf("%w: key number %d listed twice", ErrVerify, index)
			}
			seen[index] = true
			visited++
		}
	}

	if visited != w.numOps {
		return fmt.Errorf("%w: listing visited %d keys, %d were written", ErrVerify, visited, w.numOps)
	}
	return nil
}
