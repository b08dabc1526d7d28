package tts

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dgnsrekt/readable/internal/cache"
	"github.com/dgnsrekt/readable/internal/speech"
)

// DefaultTimeout caps a single synthesis attempt. Long chunks on a
// busy engine can take a while; anything past this is treated as a
// timeout and retried.
const DefaultTimeout = 30 * time.Second

// ClientConfig configures a Client.
type ClientConfig struct {
	Timeout           time.Duration // per-attempt cap; default DefaultTimeout
	Retry             RetryPolicy   // zero value selects DefaultRetryPolicy
	RequestsPerMinute int           // request throttle shared by all workers; 0 disables
}

// Client is the synthesis entry point the dispatcher fans work into.
// It checks the cache before spending any network time, retries
// transient failures with exponential backoff, and optionally
// rate-limits requests so a batch of workers cannot stampede the
// engine.
type Client struct {
	backend Backend
	store   *cache.Store
	retry   RetryPolicy
	timeout time.Duration
	limiter *rate.Limiter

	// sleep is swapped out by tests to observe backoff without
	// waiting through it.
	sleep func(ctx context.Context, d time.Duration) error
}

var _ Synthesizer = (*Client)(nil)

// NewClient builds a client around backend. store may be nil to run
// uncached.
func NewClient(backend Backend, store *cache.Store, cfg ClientConfig) (*Client, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry.Attempts = 1
	}
	c := &Client{
		backend: backend,
		store:   store,
		retry:   cfg.Retry,
		timeout: cfg.Timeout,
		sleep:   sleepContext,
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return c, nil
}

// Synthesize returns audio for the text, consulting the cache first. A
// cache hit costs no network call and no rate-limit token. Fresh audio
// is written back to the cache before returning; a failed cache write
// only costs a future network call, so it is not an error here.
func (c *Client) Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	req := Request{Text: text, Voice: voice, Speed: speed}
	key := req.Fingerprint()

	if c.store != nil {
		if audio, ok := c.store.Get(key); ok {
			return audio, nil
		}
	}

	audio, err := c.synthesizeWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}

	if c.store != nil {
		_ = c.store.Put(key, audio, cache.Meta{
			TextPreview: speech.Preview(req.Text, 50),
			Voice:       voice,
			Speed:       speed,
		})
	}
	return audio, nil
}

func (c *Client) synthesizeWithRetry(ctx context.Context, req Request) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retry.Attempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		audio, err := c.attemptOnce(ctx, req)
		if err == nil {
			return audio, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == c.retry.Attempts {
			break
		}
		if err := c.sleep(ctx, c.retry.Delay(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// attemptOnce runs one backend call under the per-attempt timeout and
// normalizes its error into the retry taxonomy.
func (c *Client) attemptOnce(ctx context.Context, req Request) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	audio, err := c.backend.Synthesize(attemptCtx, req)
	if err != nil {
		return nil, c.classify(ctx, err)
	}
	if len(audio) == 0 {
		return nil, &SynthesisError{
			Kind:    KindBadResponse,
			Backend: c.backend.Name(),
			Err:     errors.New("empty audio payload"),
		}
	}
	return audio, nil
}

// classify maps raw backend errors onto the retry taxonomy. Errors the
// backend already classified pass through untouched. Cancellation of
// the parent context is never dressed up as a synthesis failure; the
// per-attempt deadline expiring is a retryable timeout.
func (c *Client) classify(parent context.Context, err error) error {
	var se *SynthesisError
	if errors.As(err, &se) {
		return err
	}
	if parent.Err() != nil {
		return parent.Err()
	}
	kind := KindNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &SynthesisError{Kind: kind, Backend: c.backend.Name(), Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
