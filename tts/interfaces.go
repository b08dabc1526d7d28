package tts

import "context"

// Backend converts one request into audio bytes. Implementations talk
// to a synthesis engine (an HTTP service, a local process) and classify
// failures as *SynthesisError so the client knows what to retry.
type Backend interface {
	// Synthesize returns audio for req. The context carries the
	// per-attempt deadline set by the caller.
	Synthesize(ctx context.Context, req Request) ([]byte, error)

	// Name identifies the backend in errors and logs.
	Name() string
}

// Synthesizer is the narrow view of the client that the dispatcher
// needs. The dispatcher never sees the cache or retry machinery behind
// it.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error)
}
