// Package cache stores synthesized audio on disk so repeated reads of
// the same text cost no network calls. A JSON index carries the
// metadata; blobs live next to it, optionally zstd-compressed.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	indexFile = "index.json"
	blobExt   = ".wav"
	zstExt    = ".zst"
	tmpExt    = ".tmp"

	// DefaultMaxBytes caps the cache at 100MB of stored audio.
	DefaultMaxBytes = 100 << 20

	// Blobs smaller than this are not worth compressing.
	compressMin = 512
)

// ErrTooLarge is returned by Put when a single blob exceeds the whole
// cache ceiling.
var ErrTooLarge = errors.New("cache: blob larger than cache ceiling")

// Meta is caller-supplied context stored alongside a blob, purely for
// humans inspecting the cache.
type Meta struct {
	TextPreview string
	Voice       string
	Speed       float64
}

// Entry is one cached blob's index record.
type Entry struct {
	Key          string    `json:"-"`
	File         string    `json:"file"`
	Size         int64     `json:"size"`
	OriginalSize int64     `json:"original_size"`
	Compressed   bool      `json:"compressed"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccess   time.Time `json:"last_accessed"`
	Hits         int64     `json:"hit_count"`
	TextPreview  string    `json:"text_preview"`
	Voice        string    `json:"voice"`
	Speed        float64   `json:"speed"`
}

// Stats is a point-in-time summary. Hit and miss counters are scoped
// to the process, not persisted.
type Stats struct {
	Entries       int
	TotalBytes    int64 // stored bytes, what counts against the ceiling
	OriginalBytes int64 // bytes before compression
	MaxBytes      int64
	Hits          int64
	Misses        int64
	Evictions     int64
	HitRate       float64
}

// Config configures a Store.
type Config struct {
	Dir         string
	MaxBytes    int64 // ceiling for stored bytes; 0 selects DefaultMaxBytes
	Compression bool
	Level       int // zstd level 1..19; 0 selects the default
}

// Store is a size-capped LRU cache of audio blobs. One mutex guards
// every operation; nothing network-bound ever runs under it, so
// contention stays in the microseconds. The index is rewritten
// synchronously after every mutation, access-time bumps included, so a
// crash can lose at most the mutation in flight.
type Store struct {
	dir      string
	maxBytes int64

	mu        sync.Mutex
	entries   map[string]*Entry
	size      int64
	hits      int64
	misses    int64
	evictions int64

	enc *zstd.Encoder
	dec *zstd.Decoder

	now func() time.Time
}

// Open loads or creates a store in cfg.Dir. A corrupt index is
// discarded and the store starts empty; entries whose blob went
// missing are dropped, and blobs no entry references are deleted.
func Open(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("cache: dir is required")
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create dir: %w", err)
	}

	s := &Store{
		dir:      cfg.Dir,
		maxBytes: cfg.MaxBytes,
		entries:  make(map[string]*Entry),
		now:      time.Now,
	}

	if cfg.Compression {
		level := zstd.SpeedDefault
		if cfg.Level > 0 {
			level = zstd.EncoderLevelFromZstd(cfg.Level)
		}
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
		if err != nil {
			return nil, fmt.Errorf("cache: init compressor: %w", err)
		}
		s.enc = enc
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("cache: init decompressor: %w", err)
	}
	s.dec = dec

	s.loadIndex()
	if s.reconcile() {
		if err := s.saveIndexLocked(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Get returns the audio for key. A hit bumps the entry's access time
// and hit count. An entry whose blob is missing or unreadable is
// dropped and reported as a miss.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		s.misses++
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(s.dir, e.File))
	if err == nil && e.Compressed {
		data, err = s.dec.DecodeAll(data, nil)
	}
	if err != nil {
		// Stale entry: heal the index and treat it as a miss.
		_ = os.Remove(filepath.Join(s.dir, e.File))
		delete(s.entries, key)
		s.size -= e.Size
		_ = s.saveIndexLocked()
		s.misses++
		return nil, false
	}

	e.LastAccess = s.now()
	e.Hits++
	s.hits++
	_ = s.saveIndexLocked()
	return data, true
}

// Put stores audio under key, overwriting any previous blob for the
// same key. When the insert pushes the cache over its ceiling, the
// least recently used entries are evicted until it fits again.
func (s *Store) Put(key string, audio []byte, meta Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob := audio
	compressed := false
	if s.enc != nil && len(audio) >= compressMin {
		if c := s.enc.EncodeAll(audio, nil); len(c) < len(audio) {
			blob = c
			compressed = true
		}
	}
	if int64(len(blob)) > s.maxBytes {
		return ErrTooLarge
	}

	file := key + blobExt
	if compressed {
		file += zstExt
	}
	if err := s.writeFile(file, blob); err != nil {
		return err
	}

	if old, ok := s.entries[key]; ok {
		s.size -= old.Size
		if old.File != file {
			_ = os.Remove(filepath.Join(s.dir, old.File))
		}
	}

	now := s.now()
	e := &Entry{
		Key:          key,
		File:         file,
		Size:         int64(len(blob)),
		OriginalSize: int64(len(audio)),
		Compressed:   compressed,
		CreatedAt:    now,
		LastAccess:   now,
		TextPreview:  meta.TextPreview,
		Voice:        meta.Voice,
		Speed:        meta.Speed,
	}
	s.entries[key] = e
	s.size += e.Size

	s.evictLocked()
	return s.saveIndexLocked()
}

// Clear removes every blob and empties the index. Session counters
// keep running.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		_ = os.Remove(filepath.Join(s.dir, e.File))
	}
	s.entries = make(map[string]*Entry)
	s.size = 0
	return s.saveIndexLocked()
}

// Stats reports the current totals.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Entries:   len(s.entries),
		MaxBytes:  s.maxBytes,
		Hits:      s.hits,
		Misses:    s.misses,
		Evictions: s.evictions,
	}
	for _, e := range s.entries {
		st.TotalBytes += e.Size
		st.OriginalBytes += e.OriginalSize
	}
	if lookups := s.hits + s.misses; lookups > 0 {
		st.HitRate = float64(s.hits) / float64(lookups)
	}
	return st
}

// Entries returns index records sorted most recently used first.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastAccess.After(out[j].LastAccess) })
	return out
}

// Close flushes the index and releases compressor resources.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.saveIndexLocked()
	if s.enc != nil {
		s.enc.Close()
	}
	s.dec.Close()
	return err
}

// evictLocked removes least recently used entries until the stored
// size is at or below the ceiling. Eviction order follows access time
// only; a frequently hit entry that has gone cold is still evicted
// before a fresh one.
func (s *Store) evictLocked() {
	for s.size > s.maxBytes && len(s.entries) > 0 {
		var oldest *Entry
		for _, e := range s.entries {
			if oldest == nil || e.LastAccess.Before(oldest.LastAccess) {
				oldest = e
			}
		}
		_ = os.Remove(filepath.Join(s.dir, oldest.File))
		delete(s.entries, oldest.Key)
		s.size -= oldest.Size
		s.evictions++
	}
}

func (s *Store) loadIndex() {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if err != nil {
		return
	}
	var raw map[string]*Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		// A corrupt index is not worth dying over; the blobs it
		// described get swept by reconcile.
		return
	}
	for key, e := range raw {
		if e == nil || e.File == "" {
			continue
		}
		e.Key = key
		s.entries[key] = e
	}
}

// saveIndexLocked writes the index through a temp file so a crash
// never leaves a half-written document behind.
func (s *Store) saveIndexLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: encode index: %w", err)
	}
	return s.writeFile(indexFile, data)
}

func (s *Store) writeFile(name string, data []byte) error {
	path := filepath.Join(s.dir, name)
	tmp := path + tmpExt
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("cache: write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("cache: rename %s: %w", name, err)
	}
	return nil
}

// reconcile makes the index and the blob directory agree: entries
// without a blob are dropped, sizes are trusted from disk, and blobs
// without an entry are deleted. Returns whether the index changed.
func (s *Store) reconcile() bool {
	changed := false
	for key, e := range s.entries {
		fi, err := os.Stat(filepath.Join(s.dir, e.File))
		if err != nil {
			delete(s.entries, key)
			changed = true
			continue
		}
		if fi.Size() != e.Size {
			e.Size = fi.Size()
			changed = true
		}
	}

	known := map[string]bool{indexFile: true}
	for _, e := range s.entries {
		known[e.File] = true
	}
	dirents, err := os.ReadDir(s.dir)
	if err == nil {
		for _, d := range dirents {
			name := d.Name()
			if d.IsDir() || known[name] {
				continue
			}
			if strings.HasSuffix(name, tmpExt) ||
				strings.HasSuffix(name, blobExt) ||
				strings.HasSuffix(name, blobExt+zstExt) {
				_ = os.Remove(filepath.Join(s.dir, name))
			}
		}
	}

	s.size = 0
	for _, e := range s.entries {
		s.size += e.Size
	}
	return changed
}
