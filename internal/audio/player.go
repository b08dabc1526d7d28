package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Player plays a WAV buffer to completion or until the context is
// cancelled.
type Player interface {
	Play(ctx context.Context, wav []byte) error
	Close() error
}

// NopPlayer discards audio. Used when playback is disabled or no
// device is available.
type NopPlayer struct{}

func (NopPlayer) Play(context.Context, []byte) error { return nil }
func (NopPlayer) Close() error                       { return nil }

// OtoPlayer plays WAV audio through the system audio device. The oto
// context is created lazily from the first stream's parameters and
// reused; later streams must share them.
type OtoPlayer struct {
	mu       sync.Mutex
	ctx      *oto.Context
	rate     int
	channels int
}

// NewOtoPlayer returns a player that opens the audio device on first
// use.
func NewOtoPlayer() *OtoPlayer {
	return &OtoPlayer{}
}

// Play blocks until the stream finishes or ctx is cancelled. The PCM
// payload is copied so the caller may reuse the buffer.
func (p *OtoPlayer) Play(ctx context.Context, wav []byte) error {
	info, err := Probe(wav)
	if err != nil {
		return err
	}
	if info.BitsPerSample != 16 {
		return fmt.Errorf("audio: unsupported bit depth %d", info.BitsPerSample)
	}

	octx, err := p.contextFor(info)
	if err != nil {
		return err
	}

	pcm := make([]byte, info.DataBytes)
	copy(pcm, wav[info.DataOffset:info.DataOffset+info.DataBytes])

	player := octx.NewPlayer(bytes.NewReader(pcm))
	defer player.Close()
	player.Play()

	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}

func (p *OtoPlayer) contextFor(info Info) (*oto.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx != nil {
		if info.SampleRate != p.rate || info.Channels != p.channels {
			return nil, fmt.Errorf("audio: stream format %d Hz/%d ch does not match device %d Hz/%d ch",
				info.SampleRate, info.Channels, p.rate, p.channels)
		}
		return p.ctx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   info.SampleRate,
		ChannelCount: info.Channels,
		Format:       oto.FormatSignedInt16LE,
	}
	octx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("audio: open device: %w", err)
	}
	<-ready

	p.ctx = octx
	p.rate = info.SampleRate
	p.channels = info.Channels
	return octx, nil
}

// Close drops the device reference. oto contexts cannot be closed in
// v3, so the device stays open until process exit.
func (p *OtoPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctx = nil
	return nil
}
