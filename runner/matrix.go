package runner

import (
	"fmt"
	"iter"

	"kvbench/config"
	"kvbench/constants"
)

// OperationConfig is one point of the benchmark matrix.
type OperationConfig struct {
	KeySize   int
	ValueSize int
	NumOps    int
}

func (c OperationConfig) String() string {
	return fmt.Sprintf("%d/%d/%d", c.KeySize, c.ValueSize, c.NumOps)
}

// Matrix is the cross product of key sizes, value sizes and operation counts.
type Matrix struct {
	KeySizes   []int
	ValueSizes []int
	NumOps     []int
}

func (m Matrix) Validate() error {
	if len(m.KeySizes) == 0 || len(m.ValueSizes) == 0 || len(m.NumOps) == 0 {
		return fmt.Errorf("%w: every matrix dimension needs at least one value", config.ErrInvalid)
	}
	for _, k := range m.KeySizes {
		if k < constants.MIN_KEY_SIZE {
			return fmt.Errorf("%w: key size %d is less than minimum required size %d", config.ErrInvalid, k, constants.MIN_KEY_SIZE)
		}
	}
	for _, v := range m.ValueSizes {
		if v < 1 {
			return fmt.Errorf("%w: value size %d must be positive", config.ErrInvalid, v)
		}
	}
	for _, n := range m.NumOps {
		if n < 1 {
			return fmt.Errorf("%w: operation count %d must be positive", config.ErrInvalid, n)
		}
	}
	return nil
}

// Len returns the number of configurations All yields.
func (m Matrix) Len() int {
	return len(m.KeySizes) * len(m.ValueSizes) * len(m.NumOps)
}

// All yields every configuration, key size outermost and operation count innermost.
func (m Matrix) All() iter.Seq[OperationConfig] {
	return func(yield func(OperationConfig) bool) {
		for _, k := range m.KeySizes {
			for _, v := range m.ValueSizes {
				for _, n := range m.NumOps {
					if !yield(OperationConfig{KeySize: k, ValueSize: v, NumOps: n}) {
						return
					}
				}
			}
		}
	}
}
