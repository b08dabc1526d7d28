package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNotWAV reports data that does not start with a RIFF/WAVE header.
var ErrNotWAV = errors.New("audio: not a RIFF/WAVE stream")

// Info describes a parsed WAV stream.
type Info struct {
	SampleRate    int
	Channels      int
	BitsPerSample int

	// DataOffset and DataBytes locate the PCM payload inside the
	// original buffer.
	DataOffset int
	DataBytes  int

	Duration time.Duration
}

// Probe parses the RIFF header and chunk list of a WAV buffer. It
// walks chunks until both "fmt " and "data" are found, tolerating
// extra chunks (LIST, fact) in between and data sizes that overrun a
// truncated buffer.
func Probe(data []byte) (Info, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Info{}, ErrNotWAV
	}

	var info Info
	var haveFmt, haveData bool
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return Info{}, errors.New("audio: malformed fmt chunk")
			}
			info.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			n := size
			if body+n > len(data) {
				n = len(data) - body
			}
			info.DataOffset = body
			info.DataBytes = n
			haveData = true
		}
		if haveFmt && haveData {
			break
		}

		// Chunks are word aligned.
		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if !haveFmt {
		return Info{}, errors.New("audio: missing fmt chunk")
	}
	if !haveData {
		return Info{}, errors.New("audio: missing data chunk")
	}

	frame := info.Channels * info.BitsPerSample / 8
	if frame > 0 && info.SampleRate > 0 {
		samples := info.DataBytes / frame
		info.Duration = time.Duration(samples) * time.Second / time.Duration(info.SampleRate)
	}
	return info, nil
}

// Encode wraps raw little-endian PCM samples in a WAV container.
func Encode(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	frame := channels * bitsPerSample / 8
	out := make([]byte, 44+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(sampleRate*frame))
	binary.LittleEndian.PutUint16(out[32:34], uint16(frame))
	binary.LittleEndian.PutUint16(out[34:36], uint16(bitsPerSample))
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[44:], pcm)
	return out
}

// Silence returns a 16-bit PCM WAV of the given duration.
func Silence(d time.Duration, sampleRate, channels int) []byte {
	if d < 0 {
		d = 0
	}
	samples := int(int64(sampleRate) * int64(d) / int64(time.Second))
	pcm := make([]byte, samples*channels*2)
	return Encode(pcm, sampleRate, channels, 16)
}

// WriteOrdered writes one WAV file per chunk under dir, named
// chunk_000.wav onward, and returns the paths written.
func WriteOrdered(dir string, chunks [][]byte) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audio: create output dir: %w", err)
	}
	paths := make([]string, 0, len(chunks))
	for i, data := range chunks {
		path := filepath.Join(dir, fmt.Sprintf("chunk_%03d.wav", i))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("audio: write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
