package engines

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/readable/internal/audio"
	"github.com/dgnsrekt/readable/tts"
)

func TestMockProducesValidWAV(t *testing.T) {
	m := NewMock(MockConfig{})

	wav, err := m.Synthesize(context.Background(), tts.Request{Text: "hello world", Voice: "af_bella", Speed: 1.0})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	info, err := audio.Probe(wav)
	if err != nil {
		t.Fatalf("mock output failed probe: %v", err)
	}
	if info.SampleRate != mockSampleRate || info.Channels != 1 {
		t.Errorf("format = %d Hz/%d ch", info.SampleRate, info.Channels)
	}
	if info.Duration <= 0 {
		t.Error("mock audio has no duration")
	}
	if m.Calls() != 1 {
		t.Errorf("Calls = %d, want 1", m.Calls())
	}
}

func TestMockSpeedShortensAudio(t *testing.T) {
	m := NewMock(MockConfig{})
	text := "the quick brown fox jumps over the lazy dog repeatedly"

	slow, _ := m.Synthesize(context.Background(), tts.Request{Text: text, Voice: "af_bella", Speed: 1.0})
	fast, _ := m.Synthesize(context.Background(), tts.Request{Text: text, Voice: "af_bella", Speed: 2.0})

	slowInfo, _ := audio.Probe(slow)
	fastInfo, _ := audio.Probe(fast)
	if fastInfo.Duration >= slowInfo.Duration {
		t.Errorf("fast %v should be shorter than slow %v", fastInfo.Duration, slowInfo.Duration)
	}
}

func TestMockFailFirst(t *testing.T) {
	m := NewMock(MockConfig{FailFirst: 2})
	req := tts.Request{Text: "x", Voice: "af_bella", Speed: 1.0}

	for i := 0; i < 2; i++ {
		_, err := m.Synthesize(context.Background(), req)
		var synthErr *tts.SynthesisError
		if !errors.As(err, &synthErr) || synthErr.Kind != tts.KindServerError {
			t.Fatalf("call %d: err = %v, want scripted server error", i+1, err)
		}
		if !tts.IsRetryable(err) {
			t.Error("scripted failure should be retryable")
		}
	}
	if _, err := m.Synthesize(context.Background(), req); err != nil {
		t.Fatalf("call 3 should succeed, got %v", err)
	}
}

func TestMockFixedError(t *testing.T) {
	boom := errors.New("boom")
	m := NewMock(MockConfig{Err: boom})

	_, err := m.Synthesize(context.Background(), tts.Request{Text: "x", Voice: "af_bella", Speed: 1.0})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want configured error", err)
	}
}

func TestMockConcurrencyTracking(t *testing.T) {
	m := NewMock(MockConfig{Delay: 30 * time.Millisecond})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Synthesize(context.Background(), tts.Request{Text: "x", Voice: "af_bella", Speed: 1.0})
		}()
	}
	wg.Wait()

	if m.Calls() != 6 {
		t.Errorf("Calls = %d, want 6", m.Calls())
	}
	if m.MaxConcurrent() < 2 {
		t.Errorf("MaxConcurrent = %d, expected overlap", m.MaxConcurrent())
	}
}

func TestMockCancelledDuringDelay(t *testing.T) {
	m := NewMock(MockConfig{Delay: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := m.Synthesize(ctx, tts.Request{Text: "x", Voice: "af_bella", Speed: 1.0})
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("mock did not honor cancellation")
	}
}
