package engines

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/readable/internal/audio"
	"github.com/dgnsrekt/readable/tts"
)

// shCommand builds a backend that runs the given shell snippet. The
// tests below lean on sh, so they skip on Windows.
func shCommand(t *testing.T, script string) *Command {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests use sh")
	}
	c, err := NewCommand(CommandConfig{Path: "sh", Args: []string{"-c", script}})
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}
	return c
}

func writeTestWAV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "speech.wav")
	if err := os.WriteFile(path, audio.Encode(make([]byte, 2000), 22050, 1, 16), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCommandSynthesize(t *testing.T) {
	wavPath := writeTestWAV(t)
	c := shCommand(t, "cat "+wavPath)

	got, err := c.Synthesize(context.Background(), tts.Request{Text: "hello", Voice: "af_bella", Speed: 1.0})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	want, _ := os.ReadFile(wavPath)
	if !bytes.Equal(got, want) {
		t.Error("stdout audio differs from source file")
	}
}

func TestCommandPlaceholderSubstitution(t *testing.T) {
	wavPath := writeTestWAV(t)
	argFile := filepath.Join(t.TempDir(), "args.txt")
	c := shCommand(t, "printf '%s %s' {voice} {speed} > "+argFile+"; cat "+wavPath)

	_, err := c.Synthesize(context.Background(), tts.Request{Text: "x", Voice: "bm_george", Speed: 1.25})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	got, err := os.ReadFile(argFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "bm_george 1.25" {
		t.Errorf("substituted args = %q, want %q", got, "bm_george 1.25")
	}
}

func TestCommandReadsStdin(t *testing.T) {
	wavPath := writeTestWAV(t)
	textFile := filepath.Join(t.TempDir(), "text.txt")
	c := shCommand(t, "cat > "+textFile+"; cat "+wavPath)

	_, err := c.Synthesize(context.Background(), tts.Request{Text: "the chunk text", Voice: "af_bella", Speed: 1.0})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	got, _ := os.ReadFile(textFile)
	if string(got) != "the chunk text" {
		t.Errorf("command stdin = %q", got)
	}
}

func TestCommandFailureCarriesStderr(t *testing.T) {
	c := shCommand(t, "echo boom >&2; exit 3")

	_, err := c.Synthesize(context.Background(), tts.Request{Text: "x", Voice: "af_bella", Speed: 1.0})
	var synthErr *tts.SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("err = %v, want SynthesisError", err)
	}
	if synthErr.Kind != tts.KindServerError {
		t.Errorf("kind = %v, want KindServerError", synthErr.Kind)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error %q should carry stderr output", err)
	}
}

func TestCommandEmptyOutput(t *testing.T) {
	c := shCommand(t, ":")

	_, err := c.Synthesize(context.Background(), tts.Request{Text: "x", Voice: "af_bella", Speed: 1.0})
	var synthErr *tts.SynthesisError
	if !errors.As(err, &synthErr) || synthErr.Kind != tts.KindBadResponse {
		t.Errorf("err = %v, want KindBadResponse", err)
	}
}

func TestCommandNonWAVOutput(t *testing.T) {
	c := shCommand(t, "echo this is definitely not audio data at all")

	_, err := c.Synthesize(context.Background(), tts.Request{Text: "x", Voice: "af_bella", Speed: 1.0})
	var synthErr *tts.SynthesisError
	if !errors.As(err, &synthErr) || synthErr.Kind != tts.KindBadResponse {
		t.Errorf("err = %v, want KindBadResponse", err)
	}
}

func TestCommandTimeout(t *testing.T) {
	c := shCommand(t, "sleep 5")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.Synthesize(ctx, tts.Request{Text: "x", Voice: "af_bella", Speed: 1.0})
	var synthErr *tts.SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("err = %v, want SynthesisError", err)
	}
	if synthErr.Kind != tts.KindTimeout {
		t.Errorf("kind = %v, want KindTimeout", synthErr.Kind)
	}
}

func TestCommandCancellation(t *testing.T) {
	c := shCommand(t, "sleep 5")
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := c.Synthesize(ctx, tts.Request{Text: "x", Voice: "af_bella", Speed: 1.0})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestCommandValidate(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("tests use sh")
	}
	c, err := NewCommand(CommandConfig{Path: "sh"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate(sh): %v", err)
	}

	c, _ = NewCommand(CommandConfig{Path: "definitely-not-a-real-binary-xyz"})
	if err := c.Validate(); err == nil {
		t.Error("Validate should fail for a missing binary")
	}
}

func TestCommandRequiresPath(t *testing.T) {
	if _, err := NewCommand(CommandConfig{}); err == nil {
		t.Error("NewCommand without a path should fail")
	}
}
