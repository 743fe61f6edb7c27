package store

import (
	"errors"
	"fmt"
)

// Error kinds returned by every driver. Use errors.Is to test for them.
var (
	ErrConnection   = errors.New("connection error")
	ErrResource     = errors.New("resource error")
	ErrStore        = errors.New("store error")
	ErrNotFound     = errors.New("key not found")
	ErrSizeMismatch = errors.New("value size mismatch")
)

// OpError describes a failed store call.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func opError(op string, kind error, err error) error {
	return &OpError{Op: op, Kind: kind, Err: err}
}
