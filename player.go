package sfsynth

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	intaudio "github.com/cbegin/sfsynth-go/internal/audio"
	intseq "github.com/cbegin/sfsynth-go/internal/sequencer"
	"github.com/cbegin/sfsynth-go/soundbank"
)

// PlaybackEvent carries song-level events from Player.Watch.
type PlaybackEvent struct {
	Kind PlaybackEventKind
}

type PlaybackEventKind int

const (
	PlaybackLoopCompleted PlaybackEventKind = iota
	PlaybackEnded
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	loopPlayback bool
	sampleTap    func([]float32)
	options      []Option
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{loopPlayback: false}
}

func WithLoopPlayback(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.loopPlayback = enabled
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

// WithProcessorOptions configures the Processor created for every Play.
func WithProcessorOptions(opts ...Option) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.options = append(cfg.options, opts...)
	}
}

// Player plays songs in real time on the system audio device.
type Player struct {
	mu           sync.Mutex
	synthMu      sync.Mutex
	sampleRate   int
	bank         *soundbank.SoundBank
	options      []Option
	proc         *Processor
	seq          *intseq.Sequencer
	audio        *intaudio.Player
	volume       float64
	loopPlayback bool
	sampleTap    func([]float32)
	done         chan struct{}
	eventCh      chan PlaybackEvent
	eventChMu    sync.Mutex
}

// eventWrapper drives the sequencer from the audio thread and implements
// FinishingSource so the stream ends with non-looping playback.
type eventWrapper struct {
	seq       *intseq.Sequencer
	mu        *sync.Mutex
	finished  atomic.Bool
	signaled  atomic.Bool
	onEnd     func()
	sampleTap func([]float32)
}

func (w *eventWrapper) Process(dst []float32) {
	w.mu.Lock()
	w.seq.Process(dst)
	w.mu.Unlock()
	if w.sampleTap != nil {
		w.sampleTap(dst)
	}
	// outside the synth lock: onEnd takes the player lock
	if w.finished.Load() && w.signaled.CompareAndSwap(false, true) {
		w.onEnd()
	}
}

func (w *eventWrapper) Finished() bool {
	return w.finished.Load()
}

func NewPlayer(sampleRate int, bank *soundbank.SoundBank, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	if bank == nil {
		return nil, errors.New("nil sound bank")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Player{
		sampleRate:   sampleRate,
		bank:         bank,
		options:      cfg.options,
		volume:       1,
		loopPlayback: cfg.loopPlayback,
		sampleTap:    cfg.sampleTap,
	}, nil
}

// start builds a fresh Processor and Sequencer for song and returns the
// audio source driving them. The caller holds p.mu.
func (p *Player) start(song *Song) (*eventWrapper, error) {
	proc, err := NewProcessor(p.sampleRate, p.bank, p.options...)
	if err != nil {
		return nil, err
	}
	wrapper := &eventWrapper{mu: &p.synthMu, onEnd: p.signalDone, sampleTap: p.sampleTap}
	onEvent := func(kind intseq.EventKind) {
		switch kind {
		case intseq.EventPlaybackEnded:
			wrapper.finished.Store(true)
			p.sendEvent(PlaybackEvent{Kind: PlaybackEnded})
		case intseq.EventLoopCompleted:
			p.sendEvent(PlaybackEvent{Kind: PlaybackLoopCompleted})
		}
	}
	seq := intseq.NewWithOptions(song, proc, intseq.Options{
		LoopWholeScore: p.loopPlayback,
		OnEvent:        onEvent,
		Logger:         proc.logger,
	})
	wrapper.seq = seq

	p.synthMu.Lock()
	p.proc, p.seq = proc, seq
	p.synthMu.Unlock()
	return wrapper, nil
}

func (p *Player) Play(song *Song) error {
	if song == nil {
		return errors.New("nil song")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	// Signal any existing Wait() that the previous playback was replaced
	if p.done != nil {
		close(p.done)
	}
	p.done = make(chan struct{})

	// A new Processor per song keeps voice and controller state from
	// leaking between songs.
	wrapper, err := p.start(song)
	if err != nil {
		return err
	}
	backend, err := intaudio.NewPlayer(p.sampleRate, wrapper)
	if err != nil {
		return err
	}
	if p.audio != nil {
		_ = p.audio.Stop()
	}
	p.audio = backend
	p.audio.SetVolume(p.volume)
	p.audio.Play()
	return nil
}

// Do runs fn with exclusive access to the current Processor, e.g. to send
// live notes or controller changes on top of the song. fn is not called
// when nothing is playing.
func (p *Player) Do(fn func(*Processor)) {
	p.synthMu.Lock()
	defer p.synthMu.Unlock()
	if p.proc != nil {
		fn(p.proc)
	}
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

func (p *Player) signalDone() {
	p.mu.Lock()
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
	}
}

// Stop silences the song immediately and ends playback.
func (p *Player) Stop() error {
	p.synthMu.Lock()
	if p.seq != nil {
		p.seq.StopAllNotes()
	}
	p.synthMu.Unlock()

	p.mu.Lock()
	if p.audio == nil {
		p.mu.Unlock()
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	done := p.done
	p.done = nil
	p.mu.Unlock()
	p.sendEvent(PlaybackEvent{Kind: PlaybackEnded})
	if done != nil {
		close(done)
	}
	return err
}

// Wait blocks until the current playback ends. When loop playback is enabled,
// Wait blocks indefinitely (use Watch for loop-counting instead).
// Wait returns immediately if no playback is active or if it was stopped.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch returns a channel that receives playback events. The channel is
// buffered (cap 8) and events are dropped when it is full. Only the most
// recent Watch() channel receives events; call Watch before Play.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

// SetMasterVolume sets the device volume scalar. 1.0 is default.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	if p.audio != nil {
		p.audio.SetVolume(volume)
	}
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SongPosition returns the sequencer position in seconds. It runs ahead of
// PlaybackPosition by the device buffer.
func (p *Player) SongPosition() float64 {
	p.synthMu.Lock()
	defer p.synthMu.Unlock()
	if p.seq == nil {
		return 0
	}
	return p.seq.Position()
}

// PlaybackPosition returns the current output position of the audio driver,
// i.e. what the listener actually hears right now. Returns 0 if not playing.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	pos := a.Position()
	return int64(pos.Seconds() * float64(p.sampleRate))
}
