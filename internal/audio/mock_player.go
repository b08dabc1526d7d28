package audio

import (
	"context"
	"sync"
	"time"
)

// MockPlayer implements Player for tests. It records every stream it
// is asked to play instead of touching an audio device.
type MockPlayer struct {
	mu     sync.Mutex
	played [][]byte
	closed bool

	// Delay simulates playback time per stream. Play honors context
	// cancellation while waiting.
	Delay time.Duration

	// Err, when set, is returned by every Play call.
	Err error
}

// NewMockPlayer returns an empty recording player.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

func (m *MockPlayer) Play(ctx context.Context, wav []byte) error {
	if m.Err != nil {
		return m.Err
	}
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(wav))
	copy(buf, wav)
	m.played = append(m.played, buf)
	return nil
}

// Played returns copies of the streams played so far, in order.
func (m *MockPlayer) Played() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.played))
	copy(out, m.played)
	return out
}

func (m *MockPlayer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockPlayer) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
