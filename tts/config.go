package tts

import (
	"fmt"
	"strings"
	"time"
)

// Config is the pipeline configuration, loaded from the config file,
// the environment, and flags, in that order of precedence.
type Config struct {
	Voice   string  `yaml:"voice" env:"READABLE_VOICE"`
	Speed   float64 `yaml:"speed" env:"READABLE_SPEED"`
	Workers int     `yaml:"workers" env:"READABLE_WORKERS"`
	Serial  bool    `yaml:"serial" env:"READABLE_SERIAL"`
	Backend string  `yaml:"backend" env:"READABLE_BACKEND"` // "kokoro", "command", or "mock"

	// Input guardrails
	MaxChunkChars int `yaml:"max_chunk_chars" env:"READABLE_MAX_CHUNK_CHARS"`
	MaxTextChars  int `yaml:"max_text_chars" env:"READABLE_MAX_TEXT_CHARS"`
	MaxChunks     int `yaml:"max_chunks" env:"READABLE_MAX_CHUNKS"`

	// Network behavior
	Timeout           time.Duration `yaml:"timeout" env:"READABLE_TIMEOUT"`
	Attempts          int           `yaml:"attempts" env:"READABLE_ATTEMPTS"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"READABLE_REQUESTS_PER_MINUTE"`

	// Backend-specific configuration
	Kokoro  KokoroConfig  `yaml:"kokoro"`
	Command CommandConfig `yaml:"command"`

	Cache   CacheConfig   `yaml:"cache"`
	History HistoryConfig `yaml:"history"`
}

// KokoroConfig points at a kokoro-fastapi server.
type KokoroConfig struct {
	URL string `yaml:"url" env:"READABLE_KOKORO_URL"`
}

// CommandConfig runs an external synthesizer. Text is piped to stdin
// and WAV audio is read from stdout. "{voice}" and "{speed}"
// placeholders in Args are substituted per request.
type CommandConfig struct {
	Path string   `yaml:"path" env:"READABLE_COMMAND_PATH"`
	Args []string `yaml:"args" env:"READABLE_COMMAND_ARGS" envSeparator:" "`
}

// CacheConfig controls the on-disk audio cache.
type CacheConfig struct {
	Enabled     bool   `yaml:"enabled" env:"READABLE_CACHE_ENABLED"`
	Dir         string `yaml:"dir" env:"READABLE_CACHE_DIR"`
	MaxMB       int    `yaml:"max_mb" env:"READABLE_CACHE_MAX_MB"`
	Compression bool   `yaml:"compression" env:"READABLE_CACHE_COMPRESSION"`
}

// HistoryConfig controls the reading history.
type HistoryConfig struct {
	Enabled     bool `yaml:"enabled" env:"READABLE_HISTORY_ENABLED"`
	MaxSessions int  `yaml:"max_sessions" env:"READABLE_HISTORY_MAX_SESSIONS"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Voice:   DefaultVoice,
		Speed:   1.0,
		Workers: DefaultWorkers,
		Backend: "kokoro",

		MaxChunkChars: DefaultMaxChunkChars,
		MaxTextChars:  1_000_000,
		MaxChunks:     100,

		Timeout:  DefaultTimeout,
		Attempts: 3,

		Kokoro: KokoroConfig{URL: "http://localhost:8880"},
		Cache: CacheConfig{
			Enabled:     true,
			MaxMB:       100,
			Compression: true,
		},
		History: HistoryConfig{
			Enabled:     true,
			MaxSessions: 50,
		},
	}
}

// Limits returns the validation guardrails for this configuration.
func (c *Config) Limits() Limits {
	return Limits{
		MaxTextChars:  c.MaxTextChars,
		MaxChunks:     c.MaxChunks,
		MaxChunkChars: c.MaxChunkChars,
	}
}

// Validate checks for values the pipeline cannot run with and
// normalizes the backend name. Voice IDs are not checked against the
// stock catalog; a custom server may carry voices we do not know
// about.
func (c *Config) Validate() error {
	if err := ValidateSpeed(c.Speed); err != nil {
		return err
	}
	if c.Workers < 1 || c.Workers > 32 {
		return fmt.Errorf("workers must be between 1 and 32, got %d", c.Workers)
	}
	if c.MaxChunkChars < 50 || c.MaxChunkChars > 2000 {
		return fmt.Errorf("max_chunk_chars must be between 50 and 2000, got %d", c.MaxChunkChars)
	}
	if c.MaxTextChars < 1 {
		return fmt.Errorf("max_text_chars must be positive, got %d", c.MaxTextChars)
	}
	if c.MaxChunks < 1 {
		return fmt.Errorf("max_chunks must be positive, got %d", c.MaxChunks)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}
	if c.Attempts < 1 || c.Attempts > 10 {
		return fmt.Errorf("attempts must be between 1 and 10, got %d", c.Attempts)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute cannot be negative, got %d", c.RequestsPerMinute)
	}

	c.Backend = strings.ToLower(c.Backend)
	switch c.Backend {
	case "kokoro":
		if c.Kokoro.URL == "" {
			return fmt.Errorf("kokoro backend needs a url")
		}
	case "command":
		if c.Command.Path == "" {
			return fmt.Errorf("command backend needs a path")
		}
	case "mock":
	default:
		return fmt.Errorf("invalid backend %q: must be one of [kokoro command mock]", c.Backend)
	}

	if c.Cache.Enabled && c.Cache.MaxMB < 1 {
		return fmt.Errorf("cache max_mb must be positive, got %d", c.Cache.MaxMB)
	}
	if c.History.Enabled && c.History.MaxSessions < 1 {
		return fmt.Errorf("history max_sessions must be positive, got %d", c.History.MaxSessions)
	}
	return nil
}
