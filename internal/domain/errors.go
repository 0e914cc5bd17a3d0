package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrExpired means the hold's expiresOn has passed. Fatal to the current
	// transaction; the only recovery is a fresh hold.
	ErrExpired = errors.New("transaction expired")

	// ErrOperationInFlight means another workflow operation is still pending.
	// Calls are rejected, not queued.
	ErrOperationInFlight = errors.New("another operation is in flight")

	// ErrCommitRetriesExhausted means the bounded commit retry budget is spent.
	ErrCommitRetriesExhausted = errors.New("commit retries exhausted")

	ErrSessionNotFound     = errors.New("booking session not found")
	ErrReservationNotFound = errors.New("reservation not found")
)

// FieldErrors maps a field path (e.g. "travellers[0].identity_number") to a
// human-readable message. A non-empty map is a validation failure; it never
// reaches the network.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation failed"
	}
	paths := make([]string, 0, len(fe))
	for p := range fe {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		parts = append(parts, p+": "+fe[p])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add sets a message for path unless one is already present; the first error
// reported for a field wins.
func (fe FieldErrors) Add(path, msg string) {
	if _, ok := fe[path]; !ok {
		fe[path] = msg
	}
}

// Merge copies other's entries under an optional path prefix.
func (fe FieldErrors) Merge(prefix string, other FieldErrors) {
	for p, m := range other {
		fe.Add(prefix+p, m)
	}
}

// TransportError is a network/HTTP level failure. Retryable; workflow state
// is untouched.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("gateway %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// DomainError is a gateway response that declared failure in its envelope
// header even though the transport call succeeded. Messages are surfaced
// verbatim.
type DomainError struct {
	Op       string
	Messages []string
}

func (e *DomainError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("gateway %s: request rejected", e.Op)
	}
	return fmt.Sprintf("gateway %s: %s", e.Op, strings.Join(e.Messages, "; "))
}

// Message returns the first gateway message, or a generic fallback.
func (e *DomainError) Message() string {
	if len(e.Messages) > 0 && e.Messages[0] != "" {
		return e.Messages[0]
	}
	return "the booking could not be processed"
}

// SequenceError is a workflow call made out of the allowed state. It is a
// programming or integration defect, not user input.
type SequenceError struct {
	State string
	Op    string
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("operation %s not allowed in state %s", e.Op, e.State)
}
