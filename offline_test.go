package sfsynth

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/cwbudde/wav"

	intseq "github.com/cbegin/sfsynth-go/internal/sequencer"
)

var _ intseq.Synth = (*Processor)(nil)

// shortSong plays two notes of a quarter beat each at 120 BPM.
func shortSong() *Song {
	s := &Song{
		TimeDivision: 480,
		Tracks: []intseq.Track{{Port: -1, Events: []intseq.Event{
			{Tick: 0, Status: 0xC0, Data: []byte{3}},
			{Tick: 0, Status: 0x90, Data: []byte{60, 100}},
			{Tick: 240, Status: 0x80, Data: []byte{60, 0}},
			{Tick: 240, Status: 0x90, Data: []byte{64, 100}},
			{Tick: 480, Status: 0x80, Data: []byte{64, 0}},
		}}},
	}
	s.ComputeUsedChannels()
	return s
}

func TestRenderSongProducesAudioAndStops(t *testing.T) {
	out, err := RenderSong(shortSong(), testBank(), testRate, 5, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("RenderSong: %v", err)
	}
	frames := len(out) / 2
	if frames < testRate/2 || frames >= 5*testRate {
		t.Fatalf("rendered %d frames, want the song plus a short tail", frames)
	}
	var energy float64
	for _, s := range out {
		energy += float64(s * s)
	}
	if energy == 0 {
		t.Fatalf("expected non-zero audio energy")
	}
}

func TestRenderSongRejectsBadRate(t *testing.T) {
	if _, err := RenderSong(shortSong(), testBank(), 0, 1); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
}

func TestRenderBatchMatchesSequentialRenders(t *testing.T) {
	opts := []Option{WithLogger(quietLogger())}
	jobs := []RenderJob{
		{Song: shortSong(), MaxSeconds: 3, Options: opts},
		{Song: shortSong(), MaxSeconds: 0.25, Options: opts},
	}
	got, err := RenderBatch(context.Background(), testBank(), testRate, jobs)
	if err != nil {
		t.Fatalf("RenderBatch: %v", err)
	}
	want, err := RenderSong(shortSong(), testBank(), testRate, 3, opts...)
	if err != nil {
		t.Fatalf("RenderSong: %v", err)
	}
	if !slices.Equal(got[0], want) {
		t.Fatalf("batch render differs from a direct render")
	}
	if len(got[1]) >= len(got[0]) {
		t.Fatalf("max seconds not honoured: %d vs %d", len(got[1]), len(got[0]))
	}
}

func TestRenderBatchPropagatesErrors(t *testing.T) {
	jobs := []RenderJob{{Song: shortSong(), Options: []Option{WithVoiceCap(0)}}}
	if _, err := RenderBatch(context.Background(), testBank(), testRate, jobs); err == nil {
		t.Fatalf("expected error from invalid job options")
	}
}

func TestWriteWAVFileRoundTrip(t *testing.T) {
	samples := make([]float32, 2*1000)
	for i := range samples {
		samples[i] = 0.25
	}
	path := filepath.Join(t.TempDir(), "out.wav")
	if err := WriteWAVFile(path, samples, testRate); err != nil {
		t.Fatalf("WriteWAVFile: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(raw[0:4], []byte("RIFF")) || !bytes.Equal(raw[8:12], []byte("WAVE")) {
		t.Fatalf("missing RIFF/WAVE header")
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatalf("decoder rejected file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if buf.Format.NumChannels != 2 || buf.Format.SampleRate != testRate {
		t.Fatalf("format = %+v", buf.Format)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(samples))
	}
}

func TestLoadMIDIRejectsGarbage(t *testing.T) {
	if _, err := LoadMIDI(bytes.NewReader([]byte("MThd"))); err == nil {
		t.Fatalf("expected error")
	}
}
