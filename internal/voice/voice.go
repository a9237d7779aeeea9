// Package voice implements a single sounding note: the sample cursor,
// envelopes, filter, LFOs and panner of one zone, rendered block by block.
package voice

import (
	"math"

	"github.com/cbegin/sfsynth-go/internal/controller"
	"github.com/cbegin/sfsynth-go/internal/envelope"
	"github.com/cbegin/sfsynth-go/internal/filter"
	"github.com/cbegin/sfsynth-go/internal/lfo"
	"github.com/cbegin/sfsynth-go/internal/modulator"
	"github.com/cbegin/sfsynth-go/internal/panner"
	"github.com/cbegin/sfsynth-go/soundbank"
)

const (
	// MinNoteLength is the shortest time a voice sounds before a NoteOff
	// may release it.
	MinNoteLength = 0.03
	// MinExclusiveLength is the shortest time a voice sounds before an
	// exclusive class sibling may cut it.
	MinExclusiveLength = 0.07
	// ExclusiveReleaseTimecents is the release time forced on voices cut
	// by their exclusive class.
	ExclusiveReleaseTimecents = -2320
	// QuickReleaseTimecents is the release used when polyphony is culled.
	QuickReleaseTimecents = -6950
	// RetriggerReleaseTimecents is the release of a voice cut by a new
	// NoteOn of the same key in monophonic retrigger mode.
	RetriggerReleaseTimecents = -7200

	// per-sample smoothing factors at 44.1 kHz
	volumeSmoothing = 0.01
	panSmoothing    = 0.05
	filterSmoothing = 0.1

	fracOne = 1 << 32
)

// State is the lifecycle state of a voice.
type State int

const (
	Sounding State = iota
	Releasing
	Finished
	ExclusiveKilled
	HardKilled
)

func (s State) String() string {
	switch s {
	case Sounding:
		return "sounding"
	case Releasing:
		return "releasing"
	case Finished:
		return "finished"
	case ExclusiveKilled:
		return "exclusive-killed"
	case HardKilled:
		return "hard-killed"
	}
	return "unknown"
}

// Interpolation selects how the sample cursor reads between frames.
type Interpolation int

const (
	InterpolationLinear Interpolation = iota
	InterpolationNearest
	InterpolationHermite
)

// Params describes one NoteOn as seen by a voice.
type Params struct {
	Channel int
	// Note is the channel key the voice answers NoteOff for.
	Note int
	// Key is the key addressed to the preset (after tuning remaps).
	Key      int
	Velocity int
	// Time is the absolute synth time of the NoteOn in seconds.
	Time       float64
	SampleRate float64

	// PortamentoFrom is the key the pitch glides from, or -1.
	PortamentoFrom    int
	PortamentoSeconds float64

	// Pan overrides the pan generator when HasPan is set.
	Pan    float64
	HasPan bool
	// Gain scales the voice output; 0 means unity.
	Gain float64
	// TuningCents retunes this voice only.
	TuningCents float64

	// Modulators are merged into the template's list by identity.
	Modulators []soundbank.Modulator
	// Overrides replace template generators for this voice.
	Overrides []GeneratorOverride
}

// GeneratorOverride pins one generator to a fixed value.
type GeneratorOverride struct {
	Type  soundbank.GeneratorType
	Value int32
}

// Voice is one rendering instance of a template.
type Voice struct {
	template *Template

	Channel  int
	Note     int
	Key      int
	Velocity int
	// PolyPressure is the latest aftertouch for Note.
	PolyPressure int
	// StartTime is the absolute time of the NoteOn.
	StartTime float64
	// ReleaseTime is the absolute time the release segment starts, or +Inf.
	ReleaseTime float64

	// Sustained marks a NoteOff deferred by the damper pedal.
	Sustained bool
	// Sostenuto marks a voice held by the sostenuto pedal.
	Sostenuto bool

	state      State
	sampleRate float64
	genKey     int
	genVel     int

	modulated      Generators
	mods           []soundbank.Modulator
	releaseSeconds float64 // forced release time, <0 when unset

	cursor    uint64 // 32.32 fixed point frame position
	end       int
	loopStart int
	loopEnd   int
	loopMode  int

	volEnv  envelope.Volume
	modEnv  envelope.Modulation
	modLFO  lfo.LFO
	vibLFO  lfo.LFO
	lowpass filter.LowPass
	pan     panner.Panner

	overridePan    float64
	hasOverridePan bool
	gain           float64

	portamentoFrom    int
	portamentoSeconds float64
	tuningCents       float64

	rendered bool
	buf      []float32
	gains    []float32
}

// Spawn creates a fresh voice from t, resolves its modulators against
// controllers and places the sample cursor.
func Spawn(t *Template, p Params, controllers *controller.Table) *Voice {
	if len(p.Overrides) > 0 {
		own := *t
		for _, o := range p.Overrides {
			if o.Type >= 0 && int(o.Type) < len(own.Generators) {
				own.Generators[o.Type] = o.Value
			}
		}
		t = &own
	}
	v := &Voice{
		template:          t,
		Channel:           p.Channel,
		Note:              p.Note,
		Key:               p.Key,
		Velocity:          p.Velocity,
		StartTime:         p.Time,
		ReleaseTime:       math.Inf(1),
		sampleRate:        p.SampleRate,
		genKey:            t.key(p.Key),
		genVel:            t.velocity(p.Velocity),
		mods:              t.Modulators,
		releaseSeconds:    -1,
		overridePan:       p.Pan,
		hasOverridePan:    p.HasPan,
		gain:              p.Gain,
		portamentoFrom:    p.PortamentoFrom,
		portamentoSeconds: p.PortamentoSeconds,
		tuningCents:       p.TuningCents,
	}
	if v.gain == 0 {
		v.gain = 1
	}
	for _, m := range p.Modulators {
		v.AddModulator(m)
	}
	v.volEnv.Init(&t.Generators, v.genKey, p.SampleRate)
	v.modEnv.Init(&t.Generators, v.genKey)
	v.lowpass.Init(p.SampleRate)
	v.ComputeModulators(controllers)
	v.placeCursor()
	v.volEnv.SetAttenuation(float64(v.modulated[soundbank.GenInitialAttenuation]))
	return v
}

// placeCursor applies the (non real-time) address offsets.
func (v *Voice) placeCursor() {
	s := v.template.Sample
	g := &v.modulated
	last := len(s.Data) - 1
	clamp := func(n int) int {
		return max(0, min(last, n))
	}
	offset := func(fine, coarse soundbank.GeneratorType) int {
		return int(g[fine]) + int(g[coarse])*32768
	}
	start := clamp(offset(soundbank.GenStartAddrsOffset, soundbank.GenStartAddrsCoarseOffset))
	v.end = clamp(last + offset(soundbank.GenEndAddrOffset, soundbank.GenEndAddrsCoarseOffset))
	v.loopStart = clamp(s.LoopStart + offset(soundbank.GenStartLoopAddrsOffset, soundbank.GenStartLoopAddrsCoarseOffset))
	v.loopEnd = clamp(s.LoopEnd + offset(soundbank.GenEndLoopAddrsOffset, soundbank.GenEndLoopAddrsCoarseOffset))
	if v.loopEnd < v.loopStart {
		v.loopStart, v.loopEnd = v.loopEnd, v.loopStart
	}
	v.loopMode = int(g[soundbank.GenSampleModes])
	if v.loopEnd-v.loopStart < 1 {
		v.loopMode = 0
	}
	v.cursor = uint64(start) << 32
}

// Template returns the template v was spawned from.
func (v *Voice) Template() *Template { return v.template }

// State returns the lifecycle state.
func (v *Voice) State() State { return v.state }

// ExclusiveClass returns the voice's exclusive class; 0 means none.
func (v *Voice) ExclusiveClass() int { return v.template.ExclusiveClass() }

// Modulators returns the modulator list applied to v.
func (v *Voice) Modulators() []soundbank.Modulator { return v.mods }

// Generator returns the modulated value of g.
func (v *Voice) Generator(g soundbank.GeneratorType) int32 { return v.modulated[g] }

// Portamento returns the key the pitch glides from (-1 for none) and the
// glide time in seconds.
func (v *Voice) Portamento() (from int, seconds float64) {
	return v.portamentoFrom, v.portamentoSeconds
}

// Position returns the sample cursor in frames.
func (v *Voice) Position() float64 {
	return float64(v.cursor) / fracOne
}

// Loop returns the effective loop points and whether the voice loops.
func (v *Voice) Loop() (start, end int, looping bool) {
	return v.loopStart, v.loopEnd, v.loopMode == 1 || v.loopMode == 3
}

// AddModulator merges mod into the voice's own modulator list, replacing
// an identical entry. The template is left untouched.
func (v *Voice) AddModulator(mod soundbank.Modulator) {
	mods := make([]soundbank.Modulator, 0, len(v.mods)+1)
	replaced := false
	for _, m := range v.mods {
		if soundbank.Identical(m, mod) {
			m = mod
			replaced = true
		}
		mods = append(mods, m)
	}
	if !replaced {
		mods = append(mods, mod)
	}
	v.mods = mods
}

// ComputeModulators re-evaluates every modulator against the channel's
// controllers and refreshes the parameters derived from them.
func (v *Voice) ComputeModulators(controllers *controller.Table) {
	mods := v.mods
	if controllers != nil && controllers.ModulationDepth != 1 {
		mods = scaleModWheel(mods, controllers.ModulationDepth)
	}
	var ctl modulator.Controllers
	if controllers != nil {
		ctl = controllers
	}
	modulator.Compute(&v.modulated, &v.template.Generators, mods, modulator.Sources{
		Controllers:  ctl,
		Key:          v.genKey,
		Velocity:     v.genVel,
		PolyPressure: v.PolyPressure,
	})
	g := &v.modulated
	v.volEnv.Update(g, v.genKey)
	v.modEnv.Update(g, v.genKey)
	if v.releaseSeconds >= 0 {
		v.volEnv.SetReleaseTime(v.releaseSeconds)
		v.modEnv.SetReleaseTime(v.releaseSeconds)
	}
	v.modLFO.Set(lfo.TimecentsToSeconds(float64(g[soundbank.GenDelayModLFO])), lfo.AbsCentsToHz(float64(g[soundbank.GenFreqModLFO])))
	v.vibLFO.Set(lfo.TimecentsToSeconds(float64(g[soundbank.GenDelayVibLFO])), lfo.AbsCentsToHz(float64(g[soundbank.GenFreqVibLFO])))
}

// scaleModWheel scales the modulation wheel vibrato depth.
func scaleModWheel(mods []soundbank.Modulator, depth float64) []soundbank.Modulator {
	out := append([]soundbank.Modulator(nil), mods...)
	for i, m := range out {
		if m.Source.UsesCC(controller.ModulationWheel) && m.Destination == soundbank.GenVibLFOToPitch {
			out[i].Amount = int16(max(math.MinInt16, min(math.MaxInt16, math.Round(float64(m.Amount)*depth))))
		}
	}
	return out
}

// Release starts the release no earlier than minLength seconds after the
// NoteOn.
func (v *Voice) Release(now, minLength float64) {
	if v.state != Sounding {
		return
	}
	v.state = Releasing
	v.startRelease(now, minLength)
}

// QuickRelease releases the voice with a very short fixed release time.
func (v *Voice) QuickRelease(now float64) {
	if v.state != Sounding {
		return
	}
	v.forceReleaseTime(lfo.TimecentsToSeconds(QuickReleaseTimecents))
	v.Release(now, MinNoteLength)
}

// Retrigger cuts the voice with a very short release, including voices
// that are already releasing.
func (v *Voice) Retrigger(now float64) {
	if v.Done() {
		return
	}
	v.forceReleaseTime(lfo.TimecentsToSeconds(RetriggerReleaseTimecents))
	v.Release(now, MinNoteLength)
}

func (v *Voice) forceReleaseTime(seconds float64) {
	v.releaseSeconds = seconds
	v.volEnv.SetReleaseTime(seconds)
	v.modEnv.SetReleaseTime(seconds)
}

// ExclusiveRelease cuts the voice with the short exclusive class release.
func (v *Voice) ExclusiveRelease(now float64) {
	if v.state == Finished || v.state == HardKilled || v.state == ExclusiveKilled {
		return
	}
	v.state = ExclusiveKilled
	v.forceReleaseTime(lfo.TimecentsToSeconds(ExclusiveReleaseTimecents))
	if v.volEnv.Released() {
		return
	}
	v.startRelease(now, MinExclusiveLength)
}

func (v *Voice) startRelease(now, minLength float64) {
	at := math.Max(now, v.StartTime+minLength)
	v.ReleaseTime = at
	v.volEnv.Release(at - v.StartTime)
	v.modEnv.Release(at - v.StartTime)
}

// Kill stops the voice immediately, bypassing its release.
func (v *Voice) Kill() {
	v.state = HardKilled
}

// Done reports whether the voice produces no more output.
func (v *Voice) Done() bool {
	return v.state == Finished || v.state == HardKilled
}

// Releasing reports whether the voice is past its NoteOff.
func (v *Voice) Releasing() bool {
	return v.state == Releasing || v.state == ExclusiveKilled
}

// Amplitude returns the current linear gain of the voice. Before the first
// block it is estimated from the initial attenuation.
func (v *Voice) Amplitude() float64 {
	if !v.rendered {
		return math.Pow(10, -float64(v.modulated[soundbank.GenInitialAttenuation])/200)
	}
	return v.volEnv.Gain()
}

// Remaining estimates the seconds of audible output left.
func (v *Voice) Remaining() float64 {
	if v.Done() {
		return 0
	}
	if v.volEnv.Released() {
		return v.volEnv.RemainingRelease()
	}
	release := lfo.TimecentsToSeconds(float64(v.modulated[soundbank.GenReleaseVolEnv]))
	if v.loopMode == 1 || v.loopMode == 3 {
		return release + 1
	}
	step := v.baseStep()
	if step <= 0 || v.sampleRate <= 0 {
		return release
	}
	frames := float64(v.end) - v.Position()
	return math.Max(frames, 0)/step/v.sampleRate + release
}

// Priority orders eviction victims: lower values go first. Amplitude is
// weighted by the remaining duration.
func (v *Voice) Priority() float64 {
	return v.Amplitude() * (v.Remaining() + MinNoteLength)
}

func (v *Voice) baseStep() float64 {
	s := v.template.Sample
	if v.sampleRate <= 0 || s.SampleRate <= 0 {
		return 0
	}
	return float64(s.SampleRate) / v.sampleRate
}
