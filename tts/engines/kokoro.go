package engines

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dgnsrekt/readable/internal/audio"
	"github.com/dgnsrekt/readable/tts"
)

const (
	// DefaultKokoroURL is where a local Kokoro-FastAPI server listens.
	DefaultKokoroURL = "http://localhost:8880"

	userAgent = "readable/0.1"

	voicesTimeout = 10 * time.Second

	// maxResponseBytes bounds how much of a response body is read.
	// Base64 WAV for one chunk stays far under this.
	maxResponseBytes = 128 << 20
)

// KokoroConfig configures the Kokoro HTTP backend.
type KokoroConfig struct {
	// URL is the server base, without a trailing slash. Empty means
	// DefaultKokoroURL.
	URL string

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Kokoro synthesizes speech against a Kokoro-FastAPI server.
type Kokoro struct {
	base string
	http *http.Client
}

// NewKokoro returns a backend for the server at cfg.URL.
func NewKokoro(cfg KokoroConfig) *Kokoro {
	base := strings.TrimSuffix(cfg.URL, "/")
	if base == "" {
		base = DefaultKokoroURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Kokoro{base: base, http: client}
}

func (k *Kokoro) Name() string { return "kokoro" }

type synthesizeRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

type synthesizeResponse struct {
	AudioData string `json:"audio_data"`
}

type voicesResponse struct {
	Voices []string `json:"voices"`
}

// Synthesize posts one chunk to the server and decodes the WAV it
// returns. Deadlines come from ctx; the caller owns retry policy.
func (k *Kokoro) Synthesize(ctx context.Context, req tts.Request) ([]byte, error) {
	body, err := json.Marshal(synthesizeRequest{Text: req.Text, Voice: req.Voice, Speed: req.Speed})
	if err != nil {
		return nil, fmt.Errorf("kokoro: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, k.base+"/tts/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("kokoro: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := k.http.Do(httpReq)
	if err != nil {
		return nil, k.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, k.statusError(resp)
	}

	var out synthesizeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, k.badResponse(fmt.Errorf("decode response: %w", err))
	}
	if out.AudioData == "" {
		return nil, k.badResponse(errors.New("response carried no audio_data"))
	}
	wav, err := base64.StdEncoding.DecodeString(out.AudioData)
	if err != nil {
		return nil, k.badResponse(fmt.Errorf("decode audio_data: %w", err))
	}
	if _, err := audio.Probe(wav); err != nil {
		return nil, k.badResponse(err)
	}
	return wav, nil
}

// Voices asks the server which voice IDs it can speak with.
func (k *Kokoro) Voices(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, voicesTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.base+"/tts/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("kokoro: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := k.http.Do(req)
	if err != nil {
		return nil, k.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, k.statusError(resp)
	}

	var out voicesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, k.badResponse(fmt.Errorf("decode voices: %w", err))
	}
	return out.Voices, nil
}

// transportError separates caller cancellation, which must pass
// through untouched, from attempt timeouts and network faults.
func (k *Kokoro) transportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &tts.SynthesisError{Kind: tts.KindTimeout, Backend: "kokoro", Err: err}
	default:
		return &tts.SynthesisError{Kind: tts.KindNetwork, Backend: "kokoro", Err: err}
	}
}

func (k *Kokoro) statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(snippet))
	if msg == "" {
		msg = resp.Status
	}

	kind := tts.KindClientError
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		kind = tts.KindServerError
	}
	return &tts.SynthesisError{
		Kind:    kind,
		Backend: "kokoro",
		Status:  resp.StatusCode,
		Err:     errors.New(msg),
	}
}

func (k *Kokoro) badResponse(err error) error {
	return &tts.SynthesisError{Kind: tts.KindBadResponse, Backend: "kokoro", Err: err}
}

var _ tts.Backend = (*Kokoro)(nil)
