package tts

import (
	"errors"
	"fmt"
)

// Common errors returned by pipeline operations.
var (
	// Input errors
	ErrEmptyText = errors.New("text is empty")

	// Configuration errors
	ErrNoBackend    = errors.New("no synthesis backend configured")
	ErrUnknownVoice = errors.New("unknown voice")
	ErrInvalidSpeed = errors.New("speed out of range")
)

// ValidationReason identifies which guardrail rejected the input.
type ValidationReason int

const (
	ReasonTooLong ValidationReason = iota + 1
	ReasonTooManyChunks
	ReasonBinaryContent
)

func (r ValidationReason) String() string {
	switch r {
	case ReasonTooLong:
		return "text too long"
	case ReasonTooManyChunks:
		return "too many chunks"
	case ReasonBinaryContent:
		return "binary content"
	default:
		return "invalid input"
	}
}

// ValidationError reports input rejected before any synthesis work is
// spent on it.
type ValidationError struct {
	Reason ValidationReason
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("validate: %s: %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("validate: %s", e.Reason)
}

// FailureKind classifies a failed synthesis attempt. The kind decides
// whether the client retries: timeouts, network faults, and server
// errors are transient; malformed payloads and client errors are not.
type FailureKind int

const (
	KindTimeout FailureKind = iota + 1
	KindNetwork
	KindBadResponse
	KindServerError
	KindClientError
)

func (k FailureKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network error"
	case KindBadResponse:
		return "bad response"
	case KindServerError:
		return "server error"
	case KindClientError:
		return "client error"
	default:
		return "unknown failure"
	}
}

// SynthesisError describes why a synthesis attempt failed.
type SynthesisError struct {
	Kind    FailureKind
	Backend string // backend name, if known
	Status  int    // HTTP status for remote backends, else 0
	Err     error  // underlying error
}

func (e *SynthesisError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("synthesize [%s]: %s (status %d): %v", e.Backend, e.Kind, e.Status, e.Err)
	}
	if e.Backend != "" {
		return fmt.Sprintf("synthesize [%s]: %s: %v", e.Backend, e.Kind, e.Err)
	}
	return fmt.Sprintf("synthesize: %s: %v", e.Kind, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could plausibly succeed.
func (e *SynthesisError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindNetwork, KindServerError:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	var se *SynthesisError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return false
}

// DispatchError aggregates per-chunk failures from one batch. Results
// for the chunks that succeeded remain usable alongside it.
type DispatchError struct {
	Failures []ChunkFailure
	Total    int
}

func (e *DispatchError) Error() string {
	if len(e.Failures) == 1 {
		return fmt.Sprintf("dispatch: chunk %d failed: %v", e.Failures[0].Index, e.Failures[0].Err)
	}
	return fmt.Sprintf("dispatch: %d of %d chunks failed", len(e.Failures), e.Total)
}
