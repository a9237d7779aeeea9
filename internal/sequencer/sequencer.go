// Package sequencer plays a multi-track MIDI Song on a Synth, turning
// tick-stamped track events into synth calls at the right render block.
package sequencer

import (
	"log/slog"
	"math"
	"slices"
)

// Synth is the engine a Sequencer drives.
type Synth interface {
	NoteOn(channel, note, velocity int)
	NoteOff(channel, note int)
	KillNote(channel, note int)
	ControllerChange(channel, cc, value int, force bool)
	ProgramChange(channel, program int)
	PitchWheel(channel, value int)
	PolyPressure(channel, note, pressure int)
	ChannelPressure(channel, pressure int)
	SystemExclusive(data []byte, channelOffset int)
	StopAllChannels(force bool)
	ResetAllControllers()
	// EnsureChannels grows the synth to at least n channels.
	EnsureChannels(n int)
	// VoiceCount returns the number of voices still sounding, including
	// release tails. Used to detect the end of playback.
	VoiceCount() int
	SampleRate() int
	Process(dst []float32)
}

// EventKind identifies sequencer lifecycle events.
type EventKind int

const (
	EventLoopCompleted EventKind = iota
	EventPlaybackEnded
)

type Options struct {
	LoopWholeScore bool
	OnEvent        func(EventKind)
	// OnMeta is called for every meta event after it was applied.
	OnMeta            func(ev Event, track int)
	ReleaseTailFrames int // extra frames to render after the last voice ends (0 = 0.1s default)
	Logger            *slog.Logger
}

// Note is a (channel, key) pair the sequencer started and has not yet
// stopped.
type Note struct {
	Channel  int
	Note     int
	Velocity int
}

const (
	chunkFrames     = 128
	defaultTempo    = 500000 // microseconds per quarter, 120 BPM
	fallbackBPM     = 120
	portChannelSpan = 16
)

type Sequencer struct {
	song   *Song
	synth  Synth
	logger *slog.Logger

	sampleRate     int
	secondsPerTick float64
	cursor         *cursor
	lastTick       int
	lastTime       float64
	position       float64

	ports       []int
	portOffsets map[int]int
	nextOffset  int
	playing     []Note

	loopWholeScore     bool
	onEvent            func(EventKind)
	onMeta             func(Event, int)
	exhausted          bool
	pendingReset       bool
	playbackEndedFired bool
	releaseTailFrames  int
	tailCountdown      int
}

func New(song *Song, synth Synth) *Sequencer {
	return NewWithOptions(song, synth, Options{})
}

func NewWithOptions(song *Song, synth Synth, opts Options) *Sequencer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if song.TimeDivision <= 0 {
		logger.Warn("song has no time division, assuming default", "division", DefaultTimeDivision)
	}
	tail := opts.ReleaseTailFrames
	if tail <= 0 {
		tail = synth.SampleRate() / 10
	}
	s := &Sequencer{
		song:              song,
		synth:             synth,
		logger:            logger,
		sampleRate:        synth.SampleRate(),
		cursor:            newCursor(song),
		ports:             make([]int, len(song.Tracks)),
		portOffsets:       map[int]int{},
		loopWholeScore:    opts.LoopWholeScore,
		onEvent:           opts.OnEvent,
		onMeta:            opts.OnMeta,
		releaseTailFrames: tail,
	}
	s.rewind()
	if song.IsMultiPort {
		for i, tr := range song.Tracks {
			s.assignPort(i, max(tr.Port, 0))
		}
	}
	return s
}

func (s *Sequencer) rewind() {
	s.cursor.reset()
	s.secondsPerTick = tickSeconds(defaultTempo, s.song.division())
	s.lastTick = 0
	s.lastTime = s.position
	s.exhausted = false
	s.tailCountdown = s.releaseTailFrames
}

// tickSeconds converts a tempo to seconds per tick:
// 60 / (BPM * ticks per quarter).
func tickSeconds(microsPerQuarter, division int) float64 {
	bpm := 60000000 / float64(microsPerQuarter)
	return 60 / (bpm * float64(division))
}

func validTick(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func tempoMicros(data []byte) int {
	v := 0
	for _, b := range data[:min(3, len(data))] {
		v = v<<8 | int(b)
	}
	return v
}

// SecondsPerTick returns the current tick length.
func (s *Sequencer) SecondsPerTick() float64 { return s.secondsPerTick }

// Position returns the playback time in seconds.
func (s *Sequencer) Position() float64 { return s.position }

// Duration returns the length of the song in seconds.
func (s *Sequencer) Duration() float64 { return s.song.Duration() }

// Finished reports whether non-looping playback has ended, release tails
// included.
func (s *Sequencer) Finished() bool { return s.playbackEndedFired }

// PlayingNotes returns the notes started and not yet stopped.
func (s *Sequencer) PlayingNotes() []Note {
	return slices.Clone(s.playing)
}

// StopAllNotes kills every note the sequencer started, skipping release.
func (s *Sequencer) StopAllNotes() {
	for _, n := range s.playing {
		s.synth.KillNote(n.Channel, n.Note)
	}
	s.playing = s.playing[:0]
}

// PlayTo applies every event due at or before seconds.
func (s *Sequencer) PlayTo(seconds float64) {
	for {
		ev, track, ok := s.cursor.peek()
		if !ok {
			s.exhausted = true
			return
		}
		at := s.lastTime + float64(ev.Tick-s.lastTick)*s.secondsPerTick
		if at > seconds {
			return
		}
		s.cursor.next()
		s.lastTime, s.lastTick = at, ev.Tick
		s.ProcessEvent(ev, track)
	}
}

// Process renders interleaved stereo frames, dispatching events at chunk
// boundaries.
func (s *Sequencer) Process(dst []float32) {
	frames := len(dst) / 2
	for off := 0; off < frames; off += chunkFrames {
		n := min(chunkFrames, frames-off)
		if s.pendingReset {
			s.pendingReset = false
			s.rewind()
		}
		s.PlayTo(s.position)
		s.synth.Process(dst[off*2 : (off+n)*2])
		s.position += float64(n) / float64(s.sampleRate)
		s.checkEnd(n)
	}
}

func (s *Sequencer) checkEnd(frames int) {
	if !s.exhausted || s.playbackEndedFired || s.synth.VoiceCount() > 0 {
		return
	}
	s.tailCountdown -= frames
	if s.tailCountdown > 0 {
		return
	}
	if s.loopWholeScore {
		s.pendingReset = true
		s.exhausted = false
		s.fire(EventLoopCompleted)
		return
	}
	s.playbackEndedFired = true
	s.fire(EventPlaybackEnded)
}

func (s *Sequencer) fire(kind EventKind) {
	if s.onEvent != nil {
		s.onEvent(kind)
	}
}

// ProcessEvent applies one event of track to the synth.
func (s *Sequencer) ProcessEvent(ev Event, track int) {
	offset := s.portOffsets[s.portOf(track)]
	data := func(i int) int {
		if i >= len(ev.Data) {
			return 0
		}
		return int(ev.Data[i] & 0x7F)
	}
	switch {
	case ev.Status >= 0x80 && ev.Status < 0xF0:
		ch := int(ev.Status&0x0F) + offset
		switch ev.Status & 0xF0 {
		case 0x90:
			if vel := data(1); vel > 0 {
				s.synth.NoteOn(ch, data(0), vel)
				s.playing = append(s.playing, Note{Channel: ch, Note: data(0), Velocity: vel})
				return
			}
			s.noteOff(ch, data(0))
		case 0x80:
			s.noteOff(ch, data(0))
		case 0xA0:
			s.synth.PolyPressure(ch, data(0), data(1))
		case 0xB0:
			// placeholder tracks must not reassign controllers
			if s.song.IsMultiPort && s.song.UsesNoChannels(track) {
				return
			}
			s.synth.ControllerChange(ch, data(0), data(1), false)
		case 0xC0:
			if s.song.IsMultiPort && s.song.UsesNoChannels(track) {
				return
			}
			s.synth.ProgramChange(ch, data(0))
		case 0xD0:
			s.synth.ChannelPressure(ch, data(0))
		case 0xE0:
			s.synth.PitchWheel(ch, data(1)<<7|data(0))
		}
	case ev.Status == StatusSysEx:
		s.synth.SystemExclusive(ev.Data, offset)
	case ev.Status == StatusReset:
		s.synth.StopAllChannels(false)
		s.synth.ResetAllControllers()
	case ev.Status == MetaTempo:
		s.setTempo(tempoMicros(ev.Data))
	case ev.Status == MetaPort:
		if len(ev.Data) > 0 {
			s.assignPort(track, int(ev.Data[0]))
		}
	case ev.Status == StatusSongPosition, ev.Status == StatusActiveSensing:
	case ev.Status < 0x80 && knownMeta(ev.Status):
	default:
		s.logger.Warn("unrecognized event", "status", ev.Status, "track", track, "tick", ev.Tick)
	}
	if ev.Status < 0x80 && s.onMeta != nil {
		s.onMeta(ev, track)
	}
}

func knownMeta(t byte) bool {
	switch t {
	case MetaSequenceNumber, MetaText, MetaCopyright, MetaTrackName, MetaInstrumentName,
		MetaLyric, MetaMarker, MetaCuePoint, MetaProgramName, MetaChannelPrefix,
		MetaEndOfTrack, MetaSMPTEOffset, MetaTimeSignature, MetaKeySignature,
		MetaSequencerSpecific:
		return true
	}
	return false
}

func (s *Sequencer) noteOff(ch, note int) {
	s.synth.NoteOff(ch, note)
	if i := slices.IndexFunc(s.playing, func(n Note) bool { return n.Channel == ch && n.Note == note }); i >= 0 {
		s.playing = slices.Delete(s.playing, i, i+1)
	}
}

// setTempo applies a tempo in microseconds per quarter note. A tempo that
// yields no usable tick length falls back to 120 BPM.
func (s *Sequencer) setTempo(micros int) {
	spt := tickSeconds(micros, s.song.division())
	if !validTick(spt) {
		s.logger.Warn("invalid tempo, falling back to 120 BPM", "microsPerQuarter", micros)
		spt = 60 / float64(fallbackBPM*s.song.division())
	}
	s.secondsPerTick = spt
}

func (s *Sequencer) portOf(track int) int {
	if track < 0 || track >= len(s.ports) {
		return 0
	}
	return s.ports[track]
}

// assignPort binds track to a MIDI port. Each new port takes the next
// block of 16 channels.
func (s *Sequencer) assignPort(track, port int) {
	if track < 0 || track >= len(s.ports) || s.song.UsesNoChannels(track) {
		return
	}
	if _, ok := s.portOffsets[port]; !ok {
		s.portOffsets[port] = s.nextOffset
		s.nextOffset += portChannelSpan
		s.synth.EnsureChannels(s.nextOffset)
	}
	s.ports[track] = port
}
