// Package sfsynth is a real-time polyphonic SoundFont synthesizer. A
// Processor owns MIDI channels and renders their voices block by block;
// the sequencer, offline renderer and Player drive it.
package sfsynth

import (
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/cbegin/sfsynth-go/internal/effects"
	"github.com/cbegin/sfsynth-go/internal/voice"
	"github.com/cbegin/sfsynth-go/soundbank"
)

// BlockSize is the number of frames Process renders per internal block.
const BlockSize = 128

// Stereo is a pair of non-interleaved sample buffers of equal length.
type Stereo struct {
	Left, Right []float32
}

// NewStereo allocates a Stereo pair of n frames.
func NewStereo(n int) Stereo {
	return Stereo{Left: make([]float32, n), Right: make([]float32, n)}
}

func (s Stereo) clear() {
	clear(s.Left)
	clear(s.Right)
}

// Processor is the synthesizer engine. It is not safe for concurrent use:
// all calls must come from one goroutine, or be serialized by the caller.
type Processor struct {
	cfg        config
	sampleRate int
	bank       *soundbank.SoundBank
	channels   []*Channel
	cache      *voice.Cache
	queue      eventQueue
	time       float64

	system          System
	voiceCap        int
	highPerformance bool
	monoRetrigger   bool
	interpolation   Interpolation
	effectsOn       bool

	masterGain   float64
	masterPan    float64
	gainL, gainR float64
	transpose    float64
	fineTuning   float64 // cents
	coarseTuning float64 // semitones

	logger *slog.Logger
	rng    *rand.Rand

	reverb *effects.Reverb
	chorus *effects.Chorus
	// master bus stages run on the final mix
	master *effects.Chain

	observers observers

	// keyed by program and key
	tunings map[[2]int]KeyTuning

	dry, rev, cho Stereo
}

const (
	defaultReverbLevel = 0.6
	defaultChorusLevel = 0.5
)

// NewProcessor creates a synth rendering bank at sampleRate.
func NewProcessor(sampleRate int, bank *soundbank.SoundBank, opts ...Option) (*Processor, error) {
	if sampleRate <= 0 {
		return nil, errors.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if bank == nil {
		return nil, errors.New("sound bank is nil")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.voiceCap < 1 {
		return nil, errors.Errorf("voice cap must be at least 1, got %d", cfg.voiceCap)
	}
	if cfg.channels < 1 {
		return nil, errors.Errorf("channel count must be at least 1, got %d", cfg.channels)
	}
	if cfg.system == "" {
		cfg.system = SystemGS
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	seed1, seed2 := rand.Uint64(), rand.Uint64()
	if cfg.seeded {
		seed1, seed2 = cfg.seed, cfg.seed^0x9e3779b97f4a7c15
	}
	p := &Processor{
		cfg:             cfg,
		sampleRate:      sampleRate,
		bank:            bank,
		cache:           voice.NewCache(),
		time:            cfg.initialTime,
		system:          cfg.system,
		voiceCap:        cfg.voiceCap,
		highPerformance: cfg.highPerformance,
		monoRetrigger:   cfg.monoRetrigger,
		interpolation:   cfg.interpolation,
		effectsOn:       cfg.effects,
		logger:          logger,
		rng:             rand.New(rand.NewPCG(seed1, seed2)),
		reverb:          effects.NewReverb(sampleRate, 0.5, 0.75, defaultReverbLevel),
		chorus:          effects.NewChorus(sampleRate, 15, 0.2, 3, 1.2, defaultChorusLevel),
		master:          effects.NewChain(),
		dry:             NewStereo(BlockSize),
		rev:             NewStereo(BlockSize),
		cho:             NewStereo(BlockSize),
	}
	if cfg.limiter {
		p.master.Add(effects.NewLimiter(sampleRate, -1, 20, 1, 120))
	}
	p.setMaster(1, 0)
	for i := 0; i < cfg.channels; i++ {
		p.channels = append(p.channels, newChannel(p, i))
	}
	return p, nil
}

func (p *Processor) SampleRate() int { return p.sampleRate }

// CurrentTime returns the synth clock in seconds.
func (p *Processor) CurrentTime() float64 { return p.time }

// SoundBank returns the bank the synth plays.
func (p *Processor) SoundBank() *soundbank.SoundBank { return p.bank }

// SetSoundBank replaces the bank. Every voice is killed, cached templates
// are dropped and each channel rebinds its program.
func (p *Processor) SetSoundBank(bank *soundbank.SoundBank) error {
	if bank == nil {
		return errors.New("sound bank is nil")
	}
	p.StopAllChannels(true)
	p.cache.Clear()
	p.bank = bank
	for _, c := range p.channels {
		c.selectPreset()
	}
	return nil
}

// ClearCache drops every cached voice template.
func (p *Processor) ClearCache() { p.cache.Clear() }

func (p *Processor) templates(preset *soundbank.Preset, key, velocity int) []*voice.Template {
	k := voice.CacheKey{BankMSB: preset.Bank, BankLSB: preset.BankLSB, Program: preset.Program, Note: key, Velocity: velocity}
	if t, ok := p.cache.Get(k); ok {
		return t
	}
	t := voice.Templates(preset, p.bank.DefaultModulators, key, velocity)
	p.cache.Put(k, t)
	return t
}

func (p *Processor) ChannelCount() int { return len(p.channels) }

// Channel returns channel i, or nil when it does not exist.
func (p *Processor) Channel(i int) *Channel {
	if i < 0 || i >= len(p.channels) {
		return nil
	}
	return p.channels[i]
}

// AddChannel appends a channel. Channel 9 of every group of 16 starts as
// a drum part.
func (p *Processor) AddChannel() *Channel {
	c := newChannel(p, len(p.channels))
	c.SetTranspose(p.transpose, false)
	p.channels = append(p.channels, c)
	return c
}

// EnsureChannels adds channels until there are at least n.
func (p *Processor) EnsureChannels(n int) {
	for len(p.channels) < n {
		p.AddChannel()
	}
}

func (p *Processor) channel(i int) *Channel {
	c := p.Channel(i)
	if c == nil {
		p.logger.Warn("channel out of range", "channel", i, "channels", len(p.channels))
	}
	return c
}

// VoiceCount returns the number of voices on all channels.
func (p *Processor) VoiceCount() int {
	n := 0
	for _, c := range p.channels {
		n += len(c.voices)
	}
	return n
}

func (p *Processor) NoteOn(channel, note, velocity int) {
	if c := p.channel(channel); c != nil {
		c.NoteOn(note, velocity)
	}
}

func (p *Processor) NoteOff(channel, note int) {
	if c := p.channel(channel); c != nil {
		c.NoteOff(note)
	}
}

func (p *Processor) KillNote(channel, note int) {
	if c := p.channel(channel); c != nil {
		c.KillNote(note)
	}
}

func (p *Processor) ControllerChange(channel, cc, value int, force bool) {
	if c := p.channel(channel); c != nil {
		c.ControllerChange(cc, value, force)
	}
}

func (p *Processor) ProgramChange(channel, program int) {
	if c := p.channel(channel); c != nil {
		c.ProgramChange(program)
	}
}

func (p *Processor) PitchWheel(channel, value int) {
	if c := p.channel(channel); c != nil {
		c.PitchWheel(value)
	}
}

func (p *Processor) PolyPressure(channel, note, pressure int) {
	if c := p.channel(channel); c != nil {
		c.PolyPressure(note, pressure)
	}
}

func (p *Processor) ChannelPressure(channel, pressure int) {
	if c := p.channel(channel); c != nil {
		c.ChannelPressure(pressure)
	}
}

// StopAllChannels releases every voice, or kills them when force is set.
func (p *Processor) StopAllChannels(force bool) {
	for _, c := range p.channels {
		c.StopAll(force)
	}
}

// ResetAllControllers restores the controllers of every channel.
func (p *Processor) ResetAllControllers() {
	for _, c := range p.channels {
		c.ResetControllers()
	}
}

// Reset is a MIDI system reset: voices are killed, every channel returns
// to power-on state and the master parameters to their defaults. Scheduled
// messages are dropped.
func (p *Processor) Reset() {
	p.queue.clear()
	p.reset(p.system)
}

func (p *Processor) reset(system System) {
	p.StopAllChannels(true)
	p.system = system
	p.transpose = 0
	p.fineTuning = 0
	p.coarseTuning = 0
	p.setMaster(1, 0)
	p.reverb.SetLevel(defaultReverbLevel)
	p.chorus.SetLevel(defaultChorusLevel)
	p.reverb.Reset()
	p.chorus.Reset()
	p.master.Reset()
	for _, c := range p.channels {
		c.reset()
	}
	p.emit(Event{Kind: EventReset})
}

// SetMasterGain sets the linear output gain.
func (p *Processor) SetMasterGain(gain float64) {
	p.setMaster(gain, p.masterPan)
}

func (p *Processor) MasterGain() float64 { return p.masterGain }

// SetMasterPan sets the stereo balance from -1 (left) to 1 (right).
func (p *Processor) SetMasterPan(pan float64) {
	p.setMaster(p.masterGain, pan)
}

func (p *Processor) setMaster(gain, pan float64) {
	p.masterGain = max(gain, 0)
	p.masterPan = max(-1, min(1, pan))
	p.gainL = p.masterGain * min(1, 1-p.masterPan)
	p.gainR = p.masterGain * min(1, 1+p.masterPan)
}

// SetTransposition transposes every melodic channel by semitones.
func (p *Processor) SetTransposition(semitones float64) {
	p.transpose = semitones
	for _, c := range p.channels {
		c.SetTranspose(semitones, false)
	}
}

// SetMasterTuning sets the global fine tuning in cents.
func (p *Processor) SetMasterTuning(cents float64) { p.fineTuning = cents }

func (p *Processor) tuningCents() float64 {
	return p.fineTuning + p.coarseTuning*100
}

// SetVoiceCap changes the polyphony ceiling; values below 1 are ignored.
// Lowering it evicts voices right away.
func (p *Processor) SetVoiceCap(n int) {
	if n < 1 {
		p.logger.Warn("invalid voice cap ignored", "cap", n)
		return
	}
	p.voiceCap = n
	p.evict(p.VoiceCount() - n)
}

func (p *Processor) VoiceCap() int { return p.voiceCap }

// SetSystem changes the bank select rules. Channels keep their presets
// until the next program change.
func (p *Processor) SetSystem(s System) { p.system = s }

func (p *Processor) System() System { return p.system }

func (p *Processor) SetHighPerformance(enabled bool) { p.highPerformance = enabled }

// SetMonophonicRetrigger makes a NoteOn cut the voices still playing the
// same note on its channel.
func (p *Processor) SetMonophonicRetrigger(enabled bool) { p.monoRetrigger = enabled }

// KeyTuning retunes one key: it plays the preset's Note, shifted by Cents.
type KeyTuning struct {
	Note  int
	Cents float64
}

// SetKeyTuning retunes key for presets with the given program number.
func (p *Processor) SetKeyTuning(program, key int, t KeyTuning) {
	if program < 0 || program > 127 || key < 0 || key > 127 || t.Note < 0 || t.Note > 127 {
		p.logger.Warn("invalid key tuning ignored", "program", program, "key", key, "note", t.Note)
		return
	}
	if p.tunings == nil {
		p.tunings = make(map[[2]int]KeyTuning)
	}
	p.tunings[[2]int{program, key}] = t
}

// KeyTuning returns the retuning of key for program, if any.
func (p *Processor) KeyTuning(program, key int) (KeyTuning, bool) {
	t, ok := p.tunings[[2]int{program, key}]
	return t, ok
}

// ClearKeyTunings restores equal temperament on every program.
func (p *Processor) ClearKeyTunings() { clear(p.tunings) }

func (p *Processor) SetInterpolation(i Interpolation) { p.interpolation = i }

// ProcessMessage applies one raw MIDI message. Channel messages are
// shifted by channelOffset; 0xF0 starts a SysEx and 0xFF is a system
// reset. force overrides controller locks.
func (p *Processor) ProcessMessage(msg []byte, channelOffset int, force bool) {
	if len(msg) == 0 {
		return
	}
	status := msg[0]
	switch {
	case status == 0xF0:
		p.SystemExclusive(msg[1:], channelOffset)
		return
	case status == 0xFF:
		p.reset(p.system)
		return
	case status < 0x80 || status > 0xEF:
		p.logger.Warn("unsupported MIDI message", "status", status)
		return
	}
	ch := int(status&0x0F) + channelOffset
	d1, d2 := dataByte(msg, 1), dataByte(msg, 2)
	switch status & 0xF0 {
	case 0x80:
		p.NoteOff(ch, d1)
	case 0x90:
		p.NoteOn(ch, d1, d2)
	case 0xA0:
		p.PolyPressure(ch, d1, d2)
	case 0xB0:
		p.ControllerChange(ch, d1, d2, force)
	case 0xC0:
		p.ProgramChange(ch, d1)
	case 0xD0:
		p.ChannelPressure(ch, d1)
	case 0xE0:
		p.PitchWheel(ch, d2<<7|d1)
	}
}

func dataByte(msg []byte, i int) int {
	if i >= len(msg) {
		return 0
	}
	return int(msg[i] & 0x7F)
}

// ScheduleMessage queues msg for absolute synth time at. Messages due at
// or before the current time are applied immediately.
func (p *Processor) ScheduleMessage(at float64, msg []byte, channelOffset int) {
	if at <= p.time {
		p.ProcessMessage(msg, channelOffset, false)
		return
	}
	m := append([]byte(nil), msg...)
	p.queue.push(at, func() { p.ProcessMessage(m, channelOffset, false) })
}

// Schedule queues fn for absolute synth time at.
func (p *Processor) Schedule(at float64, fn func()) {
	p.queue.push(at, fn)
}

// Pending returns the number of queued actions.
func (p *Processor) Pending() int { return p.queue.len() }

func (p *Processor) runDue() {
	for {
		run, ok := p.queue.popDue(p.time)
		if !ok {
			return
		}
		run()
	}
}

// Render adds one block to out and the effect sends. All buffers must
// have the length of out.Left; reverb and chorus may be empty to drop the
// sends. The clock advances by the block length.
func (p *Processor) Render(out, reverb, chorus Stereo) {
	p.RenderSplit([]Stereo{out}, reverb, chorus)
}

// RenderSplit is Render with channel i mixed into outs[i%len(outs)].
func (p *Processor) RenderSplit(outs []Stereo, reverb, chorus Stereo) {
	if len(outs) == 0 {
		return
	}
	n := len(outs[0].Left)
	p.runDue()
	if n == 0 {
		return
	}
	ctx := voice.RenderContext{
		Time:          p.time,
		GainLeft:      p.gainL,
		GainRight:     p.gainR,
		Interpolation: p.interpolation,
		Effects:       p.effectsOn,
	}
	sends := voice.Output{}
	if len(reverb.Left) >= n && len(reverb.Right) >= n {
		sends.ReverbLeft, sends.ReverbRight = reverb.Left[:n], reverb.Right[:n]
	}
	if len(chorus.Left) >= n && len(chorus.Right) >= n {
		sends.ChorusLeft, sends.ChorusRight = chorus.Left[:n], chorus.Right[:n]
	}
	for i, c := range p.channels {
		if c.muted {
			continue
		}
		dst := outs[i%len(outs)]
		out := sends
		out.Left, out.Right = dst.Left[:n], dst.Right[:n]
		c.render(&ctx, out)
	}
	p.time += float64(n) / float64(p.sampleRate)
}

// Process fills dst with interleaved stereo frames: the dry mix plus the
// reverb and chorus returns, optionally limited, then clipped to [-1, 1].
func (p *Processor) Process(dst []float32) {
	frames := len(dst) / 2
	for off := 0; off < frames; off += BlockSize {
		n := min(BlockSize, frames-off)
		dry := Stereo{Left: p.dry.Left[:n], Right: p.dry.Right[:n]}
		rev := Stereo{Left: p.rev.Left[:n], Right: p.rev.Right[:n]}
		cho := Stereo{Left: p.cho.Left[:n], Right: p.cho.Right[:n]}
		dry.clear()
		rev.clear()
		cho.clear()
		p.Render(dry, rev, cho)
		if p.effectsOn {
			p.reverb.Process(rev.Left, rev.Right)
			p.chorus.Process(cho.Left, cho.Right)
			for i := 0; i < n; i++ {
				dry.Left[i] += rev.Left[i] + cho.Left[i]
				dry.Right[i] += rev.Right[i] + cho.Right[i]
			}
		}
		if p.master.Len() > 0 {
			p.master.Process(dry.Left, dry.Right)
		}
		for i := 0; i < n; i++ {
			dst[(off+i)*2] = clip(dry.Left[i])
			dst[(off+i)*2+1] = clip(dry.Right[i])
		}
	}
}

func clip(v float32) float32 {
	if math.IsNaN(float64(v)) {
		return 0
	}
	return max(-1, min(1, v))
}
