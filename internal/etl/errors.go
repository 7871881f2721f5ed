package etl

import (
	"errors"
	"fmt"
)

// ErrStore matches every StoreError.
var ErrStore = errors.New("store error")

// StoreError wraps a failure reported by the database.
type StoreError struct {
	Op    string // begin, suspend, truncate, restore, insert, commit
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// SourceError reports a source file that could not be opened or decoded.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }
