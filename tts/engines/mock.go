package engines

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dgnsrekt/readable/internal/audio"
	"github.com/dgnsrekt/readable/tts"
)

// mockSampleRate keeps fabricated audio small.
const mockSampleRate = 22050

// MockConfig scripts the mock backend.
type MockConfig struct {
	// Delay is simulated synthesis time per request. Cancellation is
	// honored while waiting.
	Delay time.Duration

	// FailFirst makes the first N requests fail with a retryable
	// server error.
	FailFirst int

	// Err, when set, is returned by every request.
	Err error
}

// Mock fabricates silent WAV audio sized to the text it is given. It
// stands in for a real server in tests and demos.
type Mock struct {
	cfg MockConfig

	mu        sync.Mutex
	calls     int
	active    int
	maxActive int
}

// NewMock returns a mock behaving per cfg.
func NewMock(cfg MockConfig) *Mock {
	return &Mock{cfg: cfg}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Synthesize(ctx context.Context, req tts.Request) ([]byte, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.active++
	if m.active > m.maxActive {
		m.maxActive = m.active
	}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
	}()

	if m.cfg.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.cfg.Delay):
		}
	}
	if m.cfg.Err != nil {
		return nil, m.cfg.Err
	}
	if call <= m.cfg.FailFirst {
		return nil, &tts.SynthesisError{
			Kind:    tts.KindServerError,
			Backend: "mock",
			Status:  503,
			Err:     errors.New("scripted failure"),
		}
	}

	speed := req.Speed
	if speed <= 0 {
		speed = 1.0
	}
	seconds := float64(utf8.RuneCountInString(req.Text)) / 11.8 / speed
	return audio.Silence(time.Duration(seconds*float64(time.Second)), mockSampleRate, 1), nil
}

// Calls reports how many synthesis requests were made.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MaxConcurrent reports the peak number of simultaneous requests.
func (m *Mock) MaxConcurrent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxActive
}

var _ tts.Backend = (*Mock)(nil)
