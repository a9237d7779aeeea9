// Package audio streams synthesized float32 stereo frames to the system
// audio device through ebiten's audio context.
package audio

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/pkg/errors"
)

const bytesPerFrame = 8 // two float32 channels

// SampleSource fills interleaved stereo frames.
type SampleSource interface {
	Process(dst []float32)
}

// FinishingSource is a SampleSource that can signal when playback has ended.
// When Finished returns true, the stream returns io.EOF after the current
// read.
type FinishingSource interface {
	SampleSource
	Finished() bool
}

// StreamReader adapts a SampleSource to the little-endian float32 byte
// stream ebiten expects.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
	frames int64
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, s := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	r.frames += int64(frames)
	n := frames * bytesPerFrame
	if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
		return n, io.EOF
	}
	return n, nil
}

// Frames returns how many frames were pulled from the source so far.
func (r *StreamReader) Frames() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func (r *StreamReader) Close() error { return nil }

// Player owns one ebiten audio player fed by a StreamReader.
type Player struct {
	player *ebitaudio.Player
	reader *StreamReader
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

// sharedAudioContext returns the process-wide context. ebiten allows only
// one, so every player must use the same sample rate.
func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, errors.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

func NewPlayer(sampleRate int, source SampleSource) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, errors.Wrap(err, "new audio player")
	}
	return &Player{player: pl, reader: reader}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }

func (p *Player) IsPlaying() bool { return p.player.IsPlaying() }

// SetVolume scales the device output; 1 is unity.
func (p *Player) SetVolume(v float64) { p.player.SetVolume(v) }

// Position returns what the listener hears right now.
func (p *Player) Position() time.Duration { return p.player.Position() }

// Rendered returns the number of frames synthesized ahead of the device.
func (p *Player) Rendered() int64 { return p.reader.Frames() }

func (p *Player) Stop() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return errors.Wrap(err, "close audio player")
	}
	return p.reader.Close()
}
