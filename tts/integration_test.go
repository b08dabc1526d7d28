package tts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dgnsrekt/readable/internal/cache"
)

// TestPipelineEndToEnd drives the whole reading pipeline: validate,
// split, dispatch through a caching client, then run the same text
// again and confirm the second pass never touches the backend.
func TestPipelineEndToEnd(t *testing.T) {
	text := strings.Repeat("The pipeline reads long documents aloud. ", 60)
	if err := NewValidator(DefaultLimits()).Validate(text); err != nil {
		t.Fatalf("validate: %v", err)
	}
	chunks := Split(text, 200)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	backend := &fakeBackend{}
	store, err := cache.Open(cache.Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	client, err := NewClient(backend, store, ClientConfig{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	var mu sync.Mutex
	var lastCompleted int
	progress := func(completed, total, index int, err error) {
		mu.Lock()
		defer mu.Unlock()
		if completed != lastCompleted+1 {
			t.Errorf("completed jumped from %d to %d", lastCompleted, completed)
		}
		lastCompleted = completed
	}

	d := NewDispatcher(client, 4)
	results, err := d.Dispatch(context.Background(), chunks, "af_bella", 1.0, progress)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(results) != len(chunks) {
		t.Fatalf("got %d results, want %d", len(results), len(chunks))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("result %d carries index %d", i, r.Index)
		}
		if string(r.Audio) != "audio:"+chunks[i].Text {
			t.Errorf("result %d audio does not match its chunk", i)
		}
	}
	if lastCompleted != len(chunks) {
		t.Errorf("progress ended at %d, want %d", lastCompleted, len(chunks))
	}
	firstCalls := backend.callCount()
	if firstCalls != len(chunks) {
		t.Errorf("backend saw %d calls, want %d", firstCalls, len(chunks))
	}

	// Second pass: every chunk must come out of the cache.
	again, err := d.Dispatch(context.Background(), chunks, "af_bella", 1.0, nil)
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if backend.callCount() != firstCalls {
		t.Errorf("second pass reached the backend (%d calls, had %d)", backend.callCount(), firstCalls)
	}
	for i := range again {
		if string(again[i].Audio) != string(results[i].Audio) {
			t.Errorf("cached audio for chunk %d differs", i)
		}
	}
	if st := store.Stats(); st.Hits != int64(len(chunks)) {
		t.Errorf("cache hits = %d, want %d", st.Hits, len(chunks))
	}
}

// TestPipelineSkipsFailedChunk checks that one chunk failing with a
// permanent error leaves the neighbors' audio usable.
func TestPipelineSkipsFailedChunk(t *testing.T) {
	chunks := Split("First sentence here. Second sentence here. Third sentence here.", 25)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	poison := chunks[1].Text

	backend := &fakeBackend{
		outcome: func(_ int, req Request) ([]byte, error) {
			if req.Text == poison {
				return nil, &SynthesisError{Kind: KindClientError, Backend: "fake", Status: 400, Err: errors.New("rejected")}
			}
			return []byte("audio:" + req.Text), nil
		},
	}
	client, err := NewClient(backend, nil, ClientConfig{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	results, err := NewDispatcher(client, 2).Dispatch(context.Background(), chunks, "af_bella", 1.0, nil)
	var derr *DispatchError
	if !errors.As(err, &derr) {
		t.Fatalf("want *DispatchError, got %v", err)
	}
	if len(derr.Failures) != 1 || derr.Failures[0].Index != 1 {
		t.Fatalf("unexpected failures: %+v", derr.Failures)
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Error("healthy chunks carried errors")
	}
	if results[1].Err == nil {
		t.Error("poisoned chunk carried no error")
	}
	if string(results[0].Audio) != "audio:"+chunks[0].Text {
		t.Error("first chunk audio lost")
	}
	// Permanent failures burn exactly one attempt.
	if got := backend.callCount(); got != 3 {
		t.Errorf("backend saw %d calls, want 3", got)
	}
}

// TestPipelineRetriesInsidePool checks that transient failures are
// retried inside a parallel dispatch and end up invisible to the
// caller.
func TestPipelineRetriesInsidePool(t *testing.T) {
	chunks := Split("Alpha beta gamma. Delta epsilon zeta. Eta theta iota.", 20)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	var mu sync.Mutex
	firstTry := make(map[string]bool)
	backend := &fakeBackend{
		outcome: func(_ int, req Request) ([]byte, error) {
			mu.Lock()
			tried := firstTry[req.Text]
			firstTry[req.Text] = true
			mu.Unlock()
			if !tried {
				return nil, &SynthesisError{Kind: KindServerError, Backend: "fake", Status: 503, Err: errors.New("busy")}
			}
			return []byte("audio:" + req.Text), nil
		},
	}
	client := newTestClient(t, backend, false)

	results, err := NewDispatcher(client, 3).Dispatch(context.Background(), chunks, "af_bella", 1.0, nil)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	for i, r := range results {
		if r.Err != nil {
			t.Errorf("chunk %d failed: %v", i, r.Err)
		}
	}
	// Every chunk fails once then succeeds: two calls apiece.
	if got := backend.callCount(); got != len(chunks)*2 {
		t.Errorf("backend saw %d calls, want %d", got, len(chunks)*2)
	}
}
