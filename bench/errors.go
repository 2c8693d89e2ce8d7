package bench

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration aborts a run before any trial starts.
	ErrConfiguration = errors.New("configuration error")
	// ErrStrategyUnavailable means the sink lacks a capability the strategy needs.
	ErrStrategyUnavailable = errors.New("strategy unavailable")
	// ErrTrialFailed marks a trial that started but did not complete.
	ErrTrialFailed = errors.New("trial failed")
	// ErrRowCountMismatch is reported when the sink's row count disagrees with the dataset.
	ErrRowCountMismatch = errors.New("row count mismatch")
)

// Trial phases reported in TrialError.Op.
const (
	OpReset  = "reset"
	OpInsert = "insert"
	OpVerify = "verify"
)

// TrialError describes a failed trial. It matches ErrTrialFailed with errors.Is and
// unwraps to the underlying sink error.
type TrialError struct {
	Table    string
	Strategy string
	Op       string
	Err      error
}

func (e *TrialError) Error() string {
	return fmt.Sprintf("%s on %s: %s: %v", e.Strategy, e.Table, e.Op, e.Err)
}

func (e *TrialError) Unwrap() error { return e.Err }

func (e *TrialError) Is(target error) bool { return target == ErrTrialFailed }

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
