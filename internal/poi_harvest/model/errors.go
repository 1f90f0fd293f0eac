package model

import (
	"errors"
	"fmt"
)

// ErrRateLimited marks a provider over-quota / HTTP 429 condition.
var ErrRateLimited = errors.New("rate limited by provider")

// TransientError is a network or 5xx-class failure worth retrying.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// TerminalError stops pagination of the current item. It is never retried.
type TerminalError struct {
	Status  string
	Message string
}

func (e *TerminalError) Error() string {
	if e.Message == "" {
		return "terminal status " + e.Status
	}
	return fmt.Sprintf("terminal status %s: %s", e.Status, e.Message)
}

// FetchError is returned once a call has used up its retry budget.
type FetchError struct {
	Cause    error
	Attempts int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// FatalError aborts the whole run (artifact writes, setup).
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

func Fatal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Op: op, Err: err}
}

func IsTerminal(err error) bool {
	var t *TerminalError
	return errors.As(err, &t)
}

func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}
