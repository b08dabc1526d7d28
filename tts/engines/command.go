package engines

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/dgnsrekt/readable/internal/audio"
	"github.com/dgnsrekt/readable/tts"
)

// CommandConfig configures a local command backend.
type CommandConfig struct {
	// Path is the executable to run.
	Path string

	// Args are passed verbatim, except the placeholders {voice} and
	// {speed}, which are substituted per request.
	Args []string
}

// Command pipes chunk text to a local program's stdin and reads WAV
// from its stdout. It covers piper, say wrappers, and anything else
// that speaks the same pipe shape.
type Command struct {
	path string
	args []string
}

// NewCommand returns a backend running cfg.Path for every chunk.
func NewCommand(cfg CommandConfig) (*Command, error) {
	if cfg.Path == "" {
		return nil, errors.New("engines: command path is required")
	}
	return &Command{
		path: cfg.Path,
		args: append([]string(nil), cfg.Args...),
	}, nil
}

func (c *Command) Name() string { return "command" }

// Synthesize runs the command once. The process is killed when ctx
// expires.
func (c *Command) Synthesize(ctx context.Context, req tts.Request) ([]byte, error) {
	args := make([]string, len(c.args))
	for i, a := range c.args {
		a = strings.ReplaceAll(a, "{voice}", req.Voice)
		a = strings.ReplaceAll(a, "{speed}", strconv.FormatFloat(req.Speed, 'f', -1, 64))
		args[i] = a
	}

	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Stdin = strings.NewReader(req.Text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, ctx.Err()
			}
			return nil, &tts.SynthesisError{Kind: tts.KindTimeout, Backend: "command", Err: ctx.Err()}
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, &tts.SynthesisError{Kind: tts.KindServerError, Backend: "command", Err: err}
	}

	wav := stdout.Bytes()
	if len(wav) == 0 {
		return nil, &tts.SynthesisError{Kind: tts.KindBadResponse, Backend: "command", Err: errors.New("no audio on stdout")}
	}
	if _, err := audio.Probe(wav); err != nil {
		return nil, &tts.SynthesisError{Kind: tts.KindBadResponse, Backend: "command", Err: err}
	}
	return wav, nil
}

// Validate checks that the executable can be found.
func (c *Command) Validate() error {
	if _, err := exec.LookPath(c.path); err != nil {
		return fmt.Errorf("engines: %w", err)
	}
	return nil
}

var _ tts.Backend = (*Command)(nil)
