package tts

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationErrorMessage(t *testing.T) {
	tests := []struct {
		err  *ValidationError
		want string
	}{
		{&ValidationError{Reason: ReasonTooLong, Detail: "1200000 chars over the 1000000 limit"},
			"validate: text too long: 1200000 chars over the 1000000 limit"},
		{&ValidationError{Reason: ReasonTooManyChunks},
			"validate: too many chunks"},
		{&ValidationError{Reason: ReasonBinaryContent, Detail: "NUL byte at offset 3"},
			"validate: binary content: NUL byte at offset 3"},
		{&ValidationError{},
			"validate: invalid input"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestSynthesisErrorMessage(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		err  *SynthesisError
		want string
	}{
		{&SynthesisError{Kind: KindServerError, Backend: "kokoro", Status: 503, Err: cause},
			"synthesize [kokoro]: server error (status 503): boom"},
		{&SynthesisError{Kind: KindTimeout, Backend: "command", Err: cause},
			"synthesize [command]: timeout: boom"},
		{&SynthesisError{Kind: KindBadResponse, Err: cause},
			"synthesize: bad response: boom"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestSynthesisErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("chunk 3: %w", &SynthesisError{Kind: KindNetwork, Err: cause})

	var se *SynthesisError
	if !errors.As(err, &se) {
		t.Fatal("errors.As failed to find SynthesisError in chain")
	}
	if se.Kind != KindNetwork {
		t.Errorf("kind = %v, want %v", se.Kind, KindNetwork)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is lost the underlying cause")
	}
}

func TestIsRetryableWrappedChain(t *testing.T) {
	wrapped := fmt.Errorf("attempt 2: %w", &SynthesisError{Kind: KindTimeout, Err: errors.New("deadline")})
	if !IsRetryable(wrapped) {
		t.Error("wrapped timeout should be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain error must not be retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil must not be retryable")
	}
}

func TestFailureKindStrings(t *testing.T) {
	kinds := map[FailureKind]string{
		KindTimeout:     "timeout",
		KindNetwork:     "network error",
		KindBadResponse: "bad response",
		KindServerError: "server error",
		KindClientError: "client error",
		FailureKind(99): "unknown failure",
	}
	for k, want := range kinds {
		if got := k.String(); got != want {
			t.Errorf("FailureKind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestDispatchErrorMessage(t *testing.T) {
	single := &DispatchError{
		Failures: []ChunkFailure{{Index: 2, Err: errors.New("no route to host")}},
		Total:    5,
	}
	if got, want := single.Error(), "dispatch: chunk 2 failed: no route to host"; got != want {
		t.Errorf("single failure = %q, want %q", got, want)
	}

	multi := &DispatchError{
		Failures: []ChunkFailure{
			{Index: 0, Err: errors.New("a")},
			{Index: 3, Err: errors.New("b")},
		},
		Total: 5,
	}
	if got, want := multi.Error(), "dispatch: 2 of 5 chunks failed"; got != want {
		t.Errorf("multi failure = %q, want %q", got, want)
	}

	var derr *DispatchError
	if !errors.As(fmt.Errorf("run: %w", multi), &derr) {
		t.Fatal("errors.As failed to find DispatchError in chain")
	}
	if len(derr.Failures) != 2 {
		t.Errorf("got %d failures through the chain, want 2", len(derr.Failures))
	}
}
