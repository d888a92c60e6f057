package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a malformed request. No run is created.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRunIncomplete is returned when a report is requested before its run finished.
	ErrRunIncomplete = errors.New("run not completed")
	// ErrInvalidTransition is returned for a run status change that would go backwards.
	ErrInvalidTransition = errors.New("invalid run status transition")
)

// InputErrorf wraps ErrInvalidInput with a message.
func InputErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// EvidenceSourceError reports a failed chunk retrieval for one requirement.
type EvidenceSourceError struct {
	Requirement string
	Err         error
}

func (e *EvidenceSourceError) Error() string {
	return fmt.Sprintf("evidence retrieval for %q: %v", e.Requirement, e.Err)
}

func (e *EvidenceSourceError) Unwrap() error { return e.Err }

// RationaleError reports a failed, timed out or empty rationale generation.
type RationaleError struct {
	Err error
}

func (e *RationaleError) Error() string {
	return fmt.Sprintf("rationale generation: %v", e.Err)
}

func (e *RationaleError) Unwrap() error { return e.Err }

// RenderError reports a report that could not be rendered or persisted.
type RenderError struct {
	Path string
	Err  error
}

func (e *RenderError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("render report: %v", e.Err)
	}
	return fmt.Sprintf("render report %s: %v", e.Path, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
