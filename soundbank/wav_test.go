package soundbank

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

func writeStereoWAV(t *testing.T, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	data := make([]float32, frames*2)
	for i := range data {
		data[i] = 0.5
	}
	enc := wav.NewEncoder(f, 22050, 16, 2, 1)
	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  22050,
			NumChannels: 2,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("wav write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("wav close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func TestLoadWAVSampleMixesToMono(t *testing.T) {
	s, err := LoadWAVSample(writeStereoWAV(t, 300), 57)
	if err != nil {
		t.Fatalf("LoadWAVSample: %v", err)
	}
	if len(s.Data) != 300 || s.SampleRate != 22050 || s.OriginalKey != 57 {
		t.Fatalf("sample = %d frames at %d Hz key %d", len(s.Data), s.SampleRate, s.OriginalKey)
	}
	if s.Data[0] <= 0 || s.Data[0] != s.Data[299] {
		t.Fatalf("unexpected data %v .. %v", s.Data[0], s.Data[299])
	}
	if s.LoopStart != 0 || s.LoopEnd != 299 {
		t.Fatalf("loop = %d..%d", s.LoopStart, s.LoopEnd)
	}
}

func TestDecodeWAVSampleRejectsGarbage(t *testing.T) {
	if _, err := DecodeWAVSample(bytes.NewReader([]byte("definitely not RIFF")), "x", 60); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadWAVSampleMissingFile(t *testing.T) {
	if _, err := LoadWAVSample(filepath.Join(t.TempDir(), "missing.wav"), 60); err == nil {
		t.Fatalf("expected error")
	}
}
