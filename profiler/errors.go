package profiler

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the Profiler.
var (
	// ErrInvalidTarget is returned by Start when the target is neither SQL
	// text nor a *Statement.
	ErrInvalidTarget = errors.New("profiler: invalid profiling target")

	// ErrUnknownProfile is returned by Stop for a handle that was never
	// issued or was dropped by Reset.
	ErrUnknownProfile = errors.New("profiler: unknown profile")

	// ErrProfileStopped is returned by Stop for a profile that already has
	// an end time.
	ErrProfileStopped = errors.New("profiler: profile already stopped")
)

// InvalidTargetError reports the value that was passed to Start.
type InvalidTargetError struct {
	target any
}

// Error returns the error string.
func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("profiler: Start takes either a string or a *Statement, got %T", e.target)
}

// Is reports whether err is ErrInvalidTarget.
func (e *InvalidTargetError) Is(err error) bool {
	return err == ErrInvalidTarget
}

// Target returns the rejected value.
func (e *InvalidTargetError) Target() any {
	return e.target
}

// NewInvalidTargetError returns an InvalidTargetError for target.
func NewInvalidTargetError(target any) *InvalidTargetError {
	return &InvalidTargetError{target: target}
}

// IsInvalidTarget returns true if the error is an InvalidTargetError.
func IsInvalidTarget(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidTargetError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidTarget)
}
