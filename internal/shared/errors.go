package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrInvalidConfig   = fmt.Errorf("invalid configuration")
	ErrInvalidRegistry = fmt.Errorf("invalid chunk registry")

	// Scan errors. These abort the current scan only.
	ErrTruncatedBuffer = fmt.Errorf("truncated buffer")
	ErrTruncatedChunk  = fmt.Errorf("truncated chunk")
	ErrEmptyContainer  = fmt.Errorf("empty container")
	ErrLogUnavailable  = fmt.Errorf("session log unavailable")

	// Tracker conditions
	ErrResetDetected = fmt.Errorf("session log reset detected")

	// Runtime errors
	ErrIsolationUnavailable   = fmt.Errorf("process isolation unavailable")
	ErrSubscribeDuringPublish = fmt.Errorf("subscription changed during publish")
	ErrUnknownTaskKind        = fmt.Errorf("unknown task kind")
	ErrAlreadyRunning         = fmt.Errorf("another instance is already running")
	ErrServiceUnavailable     = fmt.Errorf("service unavailable")
	ErrNotFound               = fmt.Errorf("not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// IsRecoverable reports whether err only invalidates the scan that produced it.
//
// Recoverable errors leave the previous snapshot authoritative; the next tick retries.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrTruncatedBuffer) ||
		errors.Is(err, ErrTruncatedChunk) ||
		errors.Is(err, ErrEmptyContainer) ||
		errors.Is(err, ErrLogUnavailable)
}
