// Package history keeps a journal of recent listening sessions so a
// long article can be replayed without pasting it again.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dgnsrekt/readable/internal/speech"
)

const (
	historyFile = "history.json"

	// DefaultMaxSessions caps the journal length.
	DefaultMaxSessions = 50

	// charsPerSecond approximates spoken English at normal speed.
	charsPerSecond = 11.8
)

// ErrNotFound reports a session number outside the journal.
var ErrNotFound = errors.New("history: no such session")

// Session records one completed listen.
type Session struct {
	CreatedAt        time.Time `json:"created_at"`
	Preview          string    `json:"preview"`
	Text             string    `json:"full_text"`
	TextLength       int       `json:"text_length"`
	ChunkCount       int       `json:"chunk_count"`
	Voice            string    `json:"voice"`
	Speed            float64   `json:"speed"`
	DurationEstimate float64   `json:"duration_estimate"`
}

// NewSession builds a record from the inputs of a completed listen.
// Add stamps the creation time.
func NewSession(text, voice string, speed float64, chunks int) Session {
	n := utf8.RuneCountInString(text)
	return Session{
		Preview:          speech.Preview(text, 100),
		Text:             text,
		TextLength:       n,
		ChunkCount:       chunks,
		Voice:            voice,
		Speed:            speed,
		DurationEstimate: EstimateDuration(n, speed),
	}
}

// EstimateDuration predicts listening time in seconds for textLen
// characters at the given speed.
func EstimateDuration(textLen int, speed float64) float64 {
	if textLen <= 0 {
		return 0
	}
	if speed <= 0 {
		speed = 1.0
	}
	return float64(textLen) / charsPerSecond / speed
}

// Journal persists sessions to a JSON file, newest first.
type Journal struct {
	path string
	max  int

	mu       sync.Mutex
	sessions []Session

	now func() time.Time
}

// Open loads or creates the journal under dir. A corrupt file starts
// the journal over rather than failing.
func Open(dir string, max int) (*Journal, error) {
	if dir == "" {
		return nil, errors.New("history: dir is required")
	}
	if max <= 0 {
		max = DefaultMaxSessions
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}
	j := &Journal{
		path: filepath.Join(dir, historyFile),
		max:  max,
		now:  time.Now,
	}
	j.load()
	return j, nil
}

func (j *Journal) load() {
	data, err := os.ReadFile(j.path)
	if err != nil {
		return
	}
	var sessions []Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return
	}
	j.sessions = sessions
}

// Add prepends a session and trims the journal to its cap.
func (j *Journal) Add(s Session) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if s.CreatedAt.IsZero() {
		s.CreatedAt = j.now()
	}
	j.sessions = append([]Session{s}, j.sessions...)
	if len(j.sessions) > j.max {
		j.sessions = j.sessions[:j.max]
	}
	return j.saveLocked()
}

// Recent returns up to limit sessions, newest first. A limit of zero
// or less returns everything.
func (j *Journal) Recent(limit int) []Session {
	j.mu.Lock()
	defer j.mu.Unlock()

	n := len(j.sessions)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Session, n)
	copy(out, j.sessions[:n])
	return out
}

// Get returns session number n, counted from 1 = most recent.
func (j *Journal) Get(n int) (Session, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if n < 1 || n > len(j.sessions) {
		return Session{}, fmt.Errorf("%w: %d", ErrNotFound, n)
	}
	return j.sessions[n-1], nil
}

// Len reports the number of stored sessions.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.sessions)
}

// Clear drops every session and removes the file.
func (j *Journal) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.sessions = nil
	if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("history: clear: %w", err)
	}
	return nil
}

func (j *Journal) saveLocked() error {
	data, err := json.MarshalIndent(j.sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("history: encode: %w", err)
	}
	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("history: write: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("history: write: %w", err)
	}
	return nil
}
