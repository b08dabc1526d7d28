package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestProbeRoundTrip(t *testing.T) {
	pcm := make([]byte, 88200) // one second, 44100 Hz mono 16-bit
	wav := Encode(pcm, 44100, 1, 16)

	info, err := Probe(wav)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", info.SampleRate)
	}
	if info.Channels != 1 {
		t.Errorf("Channels = %d, want 1", info.Channels)
	}
	if info.BitsPerSample != 16 {
		t.Errorf("BitsPerSample = %d, want 16", info.BitsPerSample)
	}
	if info.DataOffset != 44 {
		t.Errorf("DataOffset = %d, want 44", info.DataOffset)
	}
	if info.DataBytes != len(pcm) {
		t.Errorf("DataBytes = %d, want %d", info.DataBytes, len(pcm))
	}
	if info.Duration != time.Second {
		t.Errorf("Duration = %v, want 1s", info.Duration)
	}
}

func TestProbeStereo(t *testing.T) {
	pcm := make([]byte, 48000*2*2) // half a second, 48 kHz stereo
	wav := Encode(pcm, 48000, 2, 16)

	info, err := Probe(wav)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.Channels != 2 || info.SampleRate != 48000 {
		t.Errorf("format = %d Hz/%d ch, want 48000/2", info.SampleRate, info.Channels)
	}
	if info.Duration != 500*time.Millisecond {
		t.Errorf("Duration = %v, want 500ms", info.Duration)
	}
}

func TestProbeRejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		[]byte("short"),
		[]byte("this is not audio at all, just text padding out bytes"),
		append([]byte("RIFF\x00\x00\x00\x00JUNK"), make([]byte, 64)...),
	} {
		if _, err := Probe(data); !errors.Is(err, ErrNotWAV) {
			t.Errorf("Probe(%d bytes) err = %v, want ErrNotWAV", len(data), err)
		}
	}
}

func TestProbeMissingData(t *testing.T) {
	wav := Encode(nil, 44100, 1, 16)
	// Strip the data chunk header off the end.
	if _, err := Probe(wav[:36]); err == nil {
		t.Fatal("expected error for missing data chunk")
	}
}

func TestProbeSkipsExtraChunks(t *testing.T) {
	// RIFF header, then a LIST chunk before fmt and data.
	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(0)) // size, unused here
	b.WriteString("WAVE")

	b.WriteString("LIST")
	binary.Write(&b, binary.LittleEndian, uint32(4))
	b.WriteString("INFO")

	full := Encode(make([]byte, 200), 22050, 1, 16)
	b.Write(full[12:]) // fmt and data chunks

	info, err := Probe(b.Bytes())
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.SampleRate != 22050 || info.DataBytes != 200 {
		t.Errorf("got %d Hz, %d data bytes", info.SampleRate, info.DataBytes)
	}
}

func TestProbeTruncatedData(t *testing.T) {
	wav := Encode(make([]byte, 1000), 44100, 1, 16)
	cut := wav[:len(wav)-400]

	info, err := Probe(cut)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.DataBytes != 600 {
		t.Errorf("DataBytes = %d, want 600 after truncation", info.DataBytes)
	}
}

func TestSilence(t *testing.T) {
	wav := Silence(250*time.Millisecond, 44100, 1)
	info, err := Probe(wav)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.Duration != 250*time.Millisecond {
		t.Errorf("Duration = %v, want 250ms", info.Duration)
	}
	for _, b := range wav[info.DataOffset:] {
		if b != 0 {
			t.Fatal("silence contains non-zero samples")
		}
	}
}

func TestWriteOrdered(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	chunks := [][]byte{
		Encode(make([]byte, 100), 44100, 1, 16),
		Encode(make([]byte, 200), 44100, 1, 16),
		Encode(make([]byte, 300), 44100, 1, 16),
	}

	paths, err := WriteOrdered(dir, chunks)
	if err != nil {
		t.Fatalf("WriteOrdered: %v", err)
	}
	want := []string{"chunk_000.wav", "chunk_001.wav", "chunk_002.wav"}
	if len(paths) != len(want) {
		t.Fatalf("wrote %d files, want %d", len(paths), len(want))
	}
	for i, p := range paths {
		if filepath.Base(p) != want[i] {
			t.Errorf("path[%d] = %s, want %s", i, filepath.Base(p), want[i])
		}
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if !bytes.Equal(data, chunks[i]) {
			t.Errorf("%s content differs from chunk %d", p, i)
		}
	}
}
