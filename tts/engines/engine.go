// Package engines provides the synthesis backends behind the client:
// a Kokoro HTTP server, an arbitrary local command, and a mock that
// fabricates silence for tests and demos.
package engines

import (
	"fmt"
	"strings"

	"github.com/dgnsrekt/readable/tts"
)

// New builds the backend named by cfg.Backend. Recognized names are
// "kokoro", "command", and "mock".
func New(cfg tts.Config) (tts.Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "kokoro":
		return NewKokoro(KokoroConfig{URL: cfg.Kokoro.URL}), nil
	case "command":
		return NewCommand(CommandConfig{Path: cfg.Command.Path, Args: cfg.Command.Args})
	case "mock":
		return NewMock(MockConfig{}), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", tts.ErrNoBackend, cfg.Backend)
	}
}
