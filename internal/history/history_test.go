package history

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestJournal(t *testing.T, max int) (*Journal, string) {
	t.Helper()
	dir := t.TempDir()
	j, err := Open(dir, max)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return j, dir
}

func TestAddAndRecent(t *testing.T) {
	j, _ := openTestJournal(t, 10)

	for i := 1; i <= 3; i++ {
		s := NewSession(fmt.Sprintf("session number %d", i), "af_bella", 1.0, i)
		if err := j.Add(s); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	recent := j.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("Recent returned %d sessions, want 3", len(recent))
	}
	if recent[0].ChunkCount != 3 || recent[2].ChunkCount != 1 {
		t.Error("sessions not ordered newest first")
	}
	if recent[0].CreatedAt.IsZero() {
		t.Error("Add did not stamp CreatedAt")
	}

	limited := j.Recent(2)
	if len(limited) != 2 || limited[0].ChunkCount != 3 {
		t.Errorf("Recent(2) = %d sessions starting at chunk count %d", len(limited), limited[0].ChunkCount)
	}
}

func TestJournalTrimsToCap(t *testing.T) {
	j, _ := openTestJournal(t, 5)

	for i := 1; i <= 8; i++ {
		if err := j.Add(NewSession(fmt.Sprintf("text %d", i), "af_bella", 1.0, i)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	if j.Len() != 5 {
		t.Fatalf("Len = %d, want 5", j.Len())
	}
	recent := j.Recent(0)
	if recent[0].ChunkCount != 8 || recent[4].ChunkCount != 4 {
		t.Errorf("kept chunk counts %d..%d, want 8..4", recent[0].ChunkCount, recent[4].ChunkCount)
	}
}

func TestGetOneBased(t *testing.T) {
	j, _ := openTestJournal(t, 10)
	j.Add(NewSession("older", "af_bella", 1.0, 1))
	j.Add(NewSession("newest", "am_adam", 1.25, 2))

	s, err := j.Get(1)
	if err != nil {
		t.Fatalf("Get(1): %v", err)
	}
	if s.Text != "newest" || s.Voice != "am_adam" {
		t.Errorf("Get(1) = %q/%s, want newest/am_adam", s.Text, s.Voice)
	}

	if _, err := j.Get(0); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(0) err = %v, want ErrNotFound", err)
	}
	if _, err := j.Get(3); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(3) err = %v, want ErrNotFound", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	j, dir := openTestJournal(t, 10)
	s := NewSession("remember me across restarts", "bf_emma", 1.5, 4)
	if err := j.Add(s); err != nil {
		t.Fatalf("Add: %v", err)
	}

	j2, err := Open(dir, 10)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := j2.Get(1)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Text != s.Text || got.Voice != s.Voice || got.Speed != s.Speed {
		t.Errorf("reloaded session = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt lost across reopen")
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	if err := os.WriteFile(path, []byte("{{{ not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	j, err := Open(dir, 10)
	if err != nil {
		t.Fatalf("Open with corrupt file: %v", err)
	}
	if j.Len() != 0 {
		t.Errorf("Len = %d, want 0", j.Len())
	}
	if err := j.Add(NewSession("fresh start", "af_bella", 1.0, 1)); err != nil {
		t.Fatalf("Add after corruption: %v", err)
	}
}

func TestClear(t *testing.T) {
	j, dir := openTestJournal(t, 10)
	j.Add(NewSession("gone soon", "af_bella", 1.0, 1))

	if err := j.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if j.Len() != 0 {
		t.Errorf("Len after Clear = %d", j.Len())
	}
	if _, err := os.Stat(filepath.Join(dir, "history.json")); !os.IsNotExist(err) {
		t.Error("history file still present after Clear")
	}

	// Clearing an empty journal is fine.
	if err := j.Clear(); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

func TestNewSessionFields(t *testing.T) {
	text := strings.Repeat("word ", 40) // 200 chars
	s := NewSession(text, "bm_george", 2.0, 3)

	if s.TextLength != 200 {
		t.Errorf("TextLength = %d, want 200", s.TextLength)
	}
	if len([]rune(s.Preview)) > 101 {
		t.Errorf("preview too long: %d runes", len([]rune(s.Preview)))
	}
	if s.ChunkCount != 3 || s.Voice != "bm_george" || s.Speed != 2.0 {
		t.Errorf("session = %+v", s)
	}
}

func TestEstimateDuration(t *testing.T) {
	tests := []struct {
		chars int
		speed float64
		want  float64
	}{
		{1180, 1.0, 100},
		{1180, 2.0, 50},
		{590, 0.5, 100},
		{0, 1.0, 0},
		{118, 0, 10}, // zero speed treated as 1.0
	}
	for _, tt := range tests {
		got := EstimateDuration(tt.chars, tt.speed)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("EstimateDuration(%d, %v) = %v, want %v", tt.chars, tt.speed, got, tt.want)
		}
	}
}

func TestCreatedAtUsesClock(t *testing.T) {
	j, _ := openTestJournal(t, 10)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return fixed }

	j.Add(NewSession("clocked", "af_bella", 1.0, 1))
	s, _ := j.Get(1)
	if !s.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", s.CreatedAt, fixed)
	}
}
