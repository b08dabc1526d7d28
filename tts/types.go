// Package tts turns long-form text into speakable audio. It covers the
// whole reading pipeline: input validation, sentence-aware chunking, a
// caching synthesis client with retries, and a parallel dispatcher that
// returns audio in document order.
package tts

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Chunk is one synthesizable slice of a larger document. Index is the
// chunk's position in the original text and the sort key used when
// audio is reassembled for playback.
type Chunk struct {
	Index int
	Text  string
}

// Request identifies a single synthesis call. Text is expected to be
// cleaned and whitespace-normalized before it gets here; the same text
// at a different voice or speed is a different request.
type Request struct {
	Text  string
	Voice string
	Speed float64
}

// Fingerprint returns the cache key for the request: the SHA-256 hex
// digest over text, voice, and speed. Speed uses the shortest decimal
// form so equal values always produce equal keys.
func (r Request) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(r.Text))
	h.Write([]byte{'|'})
	h.Write([]byte(r.Voice))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.FormatFloat(r.Speed, 'f', -1, 64)))
	return hex.EncodeToString(h.Sum(nil))
}

// Result is the outcome of synthesizing one chunk. Exactly one of
// Audio and Err is set.
type Result struct {
	Index int
	Audio []byte
	Err   error
}

// ChunkFailure pairs a chunk index with the error that sank it.
type ChunkFailure struct {
	Index int
	Err   error
}

// ProgressFunc receives dispatch updates. The completed count grows by
// one per update and never regresses, regardless of which worker
// finished. Index identifies the chunk that just resolved; err is
// non-nil when that chunk failed.
type ProgressFunc func(completed, total, index int, err error)
