package sfsynth

import (
	"math"
	"slices"

	"github.com/cbegin/sfsynth-go/internal/controller"
	"github.com/cbegin/sfsynth-go/internal/modulator"
	"github.com/cbegin/sfsynth-go/internal/panner"
	"github.com/cbegin/sfsynth-go/internal/voice"
	"github.com/cbegin/sfsynth-go/soundbank"
)

// Channel is one MIDI part: its controllers, bound preset and sounding
// voices. Channels are owned by a Processor and share its goroutine.
type Channel struct {
	p     *Processor
	index int
	table *controller.Table

	preset  *soundbank.Preset
	program int
	bankMSB int
	bankLSB int
	drums   bool

	muted        bool
	presetLocked bool
	lockedCC     [controller.Count]bool

	keyShift         int
	tuningCents      float64
	velocityOverride int
	randomPan        bool

	portamentoFrom int
	lastKey        int

	// per key overrides; -1 / 0 mean unset
	keyVelocity [128]int
	keyGain     [128]float64

	// merged into every new voice
	dynamicMods []soundbank.Modulator
	overrides   []voice.GeneratorOverride
	overridesOn bool

	voices []*voice.Voice
}

func newChannel(p *Processor, index int) *Channel {
	c := &Channel{p: p, index: index, table: controller.NewTable()}
	c.reset()
	return c
}

// reset returns the channel to power-on state and binds program 0.
func (c *Channel) reset() {
	c.table.Reset()
	c.program = 0
	c.bankMSB = controller.DefaultBank(c.p.system)
	c.bankLSB = 0
	c.drums = c.index%16 == PercussionChannel
	c.muted = false
	c.presetLocked = false
	c.lockedCC = [controller.Count]bool{}
	c.keyShift = 0
	c.tuningCents = 0
	c.velocityOverride = 0
	c.randomPan = false
	c.portamentoFrom = -1
	c.lastKey = -1
	c.ClearKeyModifiers()
	c.dynamicMods = nil
	c.overrides = nil
	c.overridesOn = true
	c.selectPreset()
}

func (c *Channel) Index() int { return c.index }

// Preset returns the bound preset, or nil when the bank has none.
func (c *Channel) Preset() *soundbank.Preset { return c.preset }

func (c *Channel) Program() int { return c.program }

func (c *Channel) Drums() bool { return c.drums }

func (c *Channel) Muted() bool { return c.muted }

// ControllerValue returns the 7-bit value of cc.
func (c *Channel) ControllerValue(cc int) int { return c.table.Value(cc) }

// VoiceCount returns the number of voices still producing sound.
func (c *Channel) VoiceCount() int { return len(c.voices) }

// NoteOn starts every zone of the bound preset that matches the note. A
// velocity of 0 is a NoteOff. A new voice with an exclusive class cuts the
// channel's older voices of that class; voices started by the same NoteOn
// keep sounding together even when they share a class.
func (c *Channel) NoteOn(note, velocity int) {
	p := c.p
	if velocity <= 0 {
		c.NoteOff(note)
		return
	}
	if note < 0 || note > 127 {
		p.logger.Warn("note out of range", "channel", c.index, "note", note)
		return
	}
	velocity = min(velocity, 127)
	if c.muted {
		return
	}
	if p.highPerformance && (velocity < 10 || (velocity < 40 && p.VoiceCount() > 200)) {
		return
	}
	if c.preset == nil {
		p.logger.Warn("no preset bound", "channel", c.index, "note", note)
		return
	}
	key := note + c.keyShift
	if key < 0 || key > 127 {
		return
	}
	// the preset sees the retuned key, modifiers the shifted one
	target, tuneCents := key, 0.0
	if kt, ok := p.KeyTuning(c.preset.Program, key); ok {
		target, tuneCents = kt.Note, kt.Cents
	}
	if c.velocityOverride > 0 {
		velocity = c.velocityOverride
	}
	if p.monoRetrigger {
		c.retrigger(note)
	}
	if v := c.keyVelocity[key]; v >= 0 {
		velocity = max(v, 1)
	}

	portaFrom, portaSeconds := -1, 0.0
	if t := c.table.Value(controller.PortamentoTime); c.table.Portamento() && !c.drums && t > 0 {
		from := c.lastKey
		if c.portamentoFrom >= 0 {
			from = c.portamentoFrom
		}
		if from >= 0 && from != target {
			portaFrom, portaSeconds = from, controller.PortamentoSeconds(t, target-from)
		}
	}
	c.portamentoFrom = -1
	c.lastKey = target

	templates := p.templates(c.preset, target, velocity)
	if len(templates) == 0 {
		return
	}
	params := voice.Params{
		Channel:           c.index,
		Note:              note,
		Key:               target,
		Velocity:          velocity,
		Time:              p.time,
		SampleRate:        float64(p.sampleRate),
		PortamentoFrom:    portaFrom,
		PortamentoSeconds: portaSeconds,
		Gain:              c.keyGain[key],
		TuningCents:       tuneCents,
		Modulators:        c.dynamicMods,
	}
	if c.overridesOn {
		params.Overrides = c.overrides
	}
	if c.randomPan {
		params.Pan, params.HasPan = panner.RandomPan(p.rng), true
	}
	fresh := make([]*voice.Voice, 0, len(templates))
	for _, t := range templates {
		fresh = append(fresh, voice.Spawn(t, params, c.table))
	}

	// Siblings from this NoteOn share a class without cutting each other:
	// only voices already on the channel are released.
	for _, nv := range fresh {
		class := nv.ExclusiveClass()
		if class == 0 {
			continue
		}
		for _, old := range c.voices {
			if old.ExclusiveClass() == class {
				old.ExclusiveRelease(p.time)
			}
		}
	}

	fresh = p.admit(fresh)
	c.voices = append(c.voices, fresh...)
	p.emit(Event{Kind: EventNoteOn, Channel: c.index, Note: note, Velocity: velocity, Preset: c.preset.Name})
}

// NoteOff releases the voices of note unless a pedal holds them.
func (c *Channel) NoteOff(note int) {
	if note < 0 || note > 127 {
		c.p.logger.Warn("note out of range", "channel", c.index, "note", note)
		return
	}
	sustain := c.table.Sustain()
	for _, v := range c.voices {
		if v.Note != note || v.State() != voice.Sounding || v.Sustained {
			continue
		}
		if sustain || v.Sostenuto {
			v.Sustained = true
			continue
		}
		c.release(v)
	}
	c.p.emit(Event{Kind: EventNoteOff, Channel: c.index, Note: note})
}

func (c *Channel) release(v *voice.Voice) {
	v.Sustained = false
	if c.p.highPerformance {
		v.QuickRelease(c.p.time)
		return
	}
	v.Release(c.p.time, voice.MinNoteLength)
}

// retrigger cuts the earlier voices of note before it sounds again.
func (c *Channel) retrigger(note int) {
	for _, v := range c.voices {
		if v.Note == note {
			v.Sustained = false
			v.Sostenuto = false
			v.Retrigger(c.p.time)
		}
	}
}

// KillNote silences note immediately, skipping the release.
func (c *Channel) KillNote(note int) {
	c.voices = slices.DeleteFunc(c.voices, func(v *voice.Voice) bool {
		if v.Note != note {
			return false
		}
		v.Kill()
		return true
	})
}

// StopAll releases every voice, or kills them when force is set.
func (c *Channel) StopAll(force bool) {
	if force {
		for _, v := range c.voices {
			v.Kill()
		}
		c.voices = c.voices[:0]
	} else {
		for _, v := range c.voices {
			c.release(v)
		}
	}
	c.p.emit(Event{Kind: EventStopAll, Channel: c.index})
}

func (c *Channel) PolyPressure(note, pressure int) {
	pressure = max(0, min(127, pressure))
	for _, v := range c.voices {
		if v.Note != note {
			continue
		}
		v.PolyPressure = pressure
		if modulator.UsesSource(v.Modulators(), soundbank.SourcePolyPressure) {
			v.ComputeModulators(c.table)
		}
	}
	c.p.emit(Event{Kind: EventPolyPressure, Channel: c.index, Note: note, Value: pressure})
}

func (c *Channel) ChannelPressure(pressure int) {
	c.table.SetChannelPressure(pressure)
	c.recomputeSource(soundbank.SourceChannelPressure)
	c.p.emit(Event{Kind: EventChannelPressure, Channel: c.index, Value: c.table.ChannelPressure()})
}

// PitchWheel sets the 14-bit wheel position; 8192 is center.
func (c *Channel) PitchWheel(value int) {
	c.table.SetPitchWheel(value)
	c.recomputeSource(soundbank.SourcePitchWheel)
	c.p.emit(Event{Kind: EventPitchWheel, Channel: c.index, Value: c.table.PitchWheel()})
}

// ControllerChange applies a MIDI CC. Locked controllers are ignored
// unless force is set.
func (c *Channel) ControllerChange(cc, value int, force bool) {
	p := c.p
	if cc < 0 || cc >= controller.Count {
		p.logger.Warn("controller out of range", "channel", c.index, "controller", cc)
		return
	}
	value = max(0, min(127, value))
	if c.lockedCC[cc] && !force {
		p.logger.Debug("locked controller ignored", "channel", c.index, "controller", cc)
		return
	}
	switch {
	case cc == controller.AllSoundOff:
		c.StopAll(true)
		return
	case cc == controller.AllNotesOff:
		c.StopAll(false)
		return
	case cc == controller.ResetAllControllers:
		c.table.ResetRP15()
		for _, v := range c.voices {
			v.Sostenuto = false
		}
		c.releaseHeld()
		c.recomputeAll()
	case cc == controller.BankSelect || cc == controller.BankSelectLSB:
		lsb := cc == controller.BankSelectLSB
		before := c.bankMSB
		if lsb {
			before = c.bankLSB
		}
		bank, change := controller.ParseBankSelect(p.system, before, value, lsb, c.index)
		if lsb {
			c.bankLSB = bank
		} else {
			c.bankMSB = bank
		}
		c.table.Set(cc, value)
		switch change {
		case controller.DrumsOn:
			c.setDrums(true, false)
		case controller.DrumsOff:
			c.setDrums(false, false)
		}
	case controller.IsDataEntry(cc):
		entry := c.table.DataEntry(cc, value)
		switch entry.Param {
		case controller.ParamController:
			c.ControllerChange(entry.Controller, entry.Value, true)
			return
		case controller.ParamPitchBendRange:
			c.recomputeSource(soundbank.SourcePitchWheelRange)
		case controller.ParamModulationDepth:
			c.recomputeCC(controller.ModulationWheel)
		}
	case cc == controller.SustainPedal:
		c.table.Set(cc, value)
		if !c.table.Sustain() {
			c.releaseHeld()
		}
	case cc == controller.SostenutoPedal:
		wasDown := c.table.Sostenuto()
		c.table.Set(cc, value)
		switch down := c.table.Sostenuto(); {
		case down && !wasDown:
			for _, v := range c.voices {
				if v.State() == voice.Sounding && !v.Sustained {
					v.Sostenuto = true
				}
			}
		case !down && wasDown:
			for _, v := range c.voices {
				v.Sostenuto = false
			}
			c.releaseHeld()
		}
	case cc == controller.PortamentoControl:
		c.table.Set(cc, value)
		c.portamentoFrom = value
	default:
		c.table.Set(cc, value)
		c.recomputeCC(cc)
	}
	p.emit(Event{Kind: EventControllerChange, Channel: c.index, Controller: cc, Value: value})
}

// releaseHeld releases voices whose NoteOff was deferred by a pedal that
// no longer holds them.
func (c *Channel) releaseHeld() {
	sustain := c.table.Sustain()
	for _, v := range c.voices {
		if v.Sustained && !sustain && !v.Sostenuto {
			c.release(v)
		}
	}
}

func (c *Channel) recomputeCC(cc int) {
	for _, v := range c.voices {
		if modulator.UsesController(v.Modulators(), cc) {
			v.ComputeModulators(c.table)
		}
	}
}

func (c *Channel) recomputeSource(index int) {
	for _, v := range c.voices {
		if modulator.UsesSource(v.Modulators(), index) {
			v.ComputeModulators(c.table)
		}
	}
}

func (c *Channel) recomputeAll() {
	for _, v := range c.voices {
		v.ComputeModulators(c.table)
	}
}

// ProgramChange selects a preset from the buffered bank select. It does
// nothing while the preset is locked.
func (c *Channel) ProgramChange(program int) {
	if c.presetLocked {
		return
	}
	c.program = max(0, min(127, program))
	c.selectPreset()
	ev := Event{Kind: EventProgramChange, Channel: c.index, Program: c.program}
	if c.preset != nil {
		ev.Bank = c.preset.Bank
		ev.Preset = c.preset.Name
	}
	c.p.emit(ev)
}

func (c *Channel) selectPreset() {
	p := c.p
	if p.bank == nil {
		c.preset = nil
		return
	}
	bank, lsb := controller.ChooseBank(p.system, c.bankMSB, c.bankLSB, c.drums)
	preset, exact := p.bank.FindPreset(bank, lsb, c.program, p.system.IsXG())
	if preset != nil && !exact {
		p.logger.Warn("preset not found, using fallback",
			"channel", c.index, "bank", bank, "bankLSB", lsb, "program", c.program,
			"fallback", preset.Name)
	}
	c.preset = preset
}

// SetDrums switches the channel between melodic and percussion banks and
// reselects its preset.
func (c *Channel) SetDrums(drums bool) {
	c.setDrums(drums, true)
}

func (c *Channel) setDrums(drums, always bool) {
	if c.drums == drums && !always {
		return
	}
	c.drums = drums
	if !c.presetLocked {
		c.selectPreset()
	}
	v := 0
	if drums {
		v = 1
	}
	c.p.emit(Event{Kind: EventDrumChange, Channel: c.index, Velocity: v})
}

// SetMuted silences the channel. Muting kills the sounding voices.
func (c *Channel) SetMuted(muted bool) {
	c.muted = muted
	if muted {
		c.StopAll(true)
	}
	v := 0
	if muted {
		v = 1
	}
	c.p.emit(Event{Kind: EventMute, Channel: c.index, Velocity: v})
}

// LockPreset makes program changes and bank driven preset switches no-ops.
func (c *Channel) LockPreset(locked bool) { c.presetLocked = locked }

// LockController makes non-forced changes of cc no-ops. cc -1 locks or
// unlocks every controller.
func (c *Channel) LockController(cc int, locked bool) {
	if cc == -1 {
		for i := range c.lockedCC {
			c.lockedCC[i] = locked
		}
		return
	}
	if cc >= 0 && cc < controller.Count {
		c.lockedCC[cc] = locked
	}
}

// ResetControllers restores every controller to its power-on value.
func (c *Channel) ResetControllers() {
	c.table.Reset()
	c.portamentoFrom = -1
	for _, v := range c.voices {
		v.Sostenuto = false
	}
	c.releaseHeld()
	c.recomputeAll()
}

// SetTranspose shifts the channel by semitones. The whole part moves the
// key, the fraction becomes a tuning offset. Drum channels only move when
// force is set.
func (c *Channel) SetTranspose(semitones float64, force bool) {
	if c.drums && !force {
		return
	}
	whole := math.Trunc(semitones)
	c.keyShift = int(whole)
	c.tuningCents = (semitones - whole) * 100
}

// Transpose returns the channel transposition in semitones.
func (c *Channel) Transpose() float64 {
	return float64(c.keyShift) + c.tuningCents/100
}

// SetVelocityOverride plays every note at velocity; 0 disables it.
func (c *Channel) SetVelocityOverride(velocity int) {
	c.velocityOverride = max(0, min(127, velocity))
}

// SetRandomPan gives every new note a random pan position.
func (c *Channel) SetRandomPan(enabled bool) { c.randomPan = enabled }

// SetDynamicModulator adds mod to every voice started from now on. A
// modulator identical to one already set replaces it, and a preset
// modulator identical to it is replaced in the voice.
func (c *Channel) SetDynamicModulator(mod soundbank.Modulator) {
	mods := slices.Clone(c.dynamicMods)
	if i := slices.IndexFunc(mods, func(m soundbank.Modulator) bool { return soundbank.Identical(m, mod) }); i >= 0 {
		mods[i] = mod
	} else {
		mods = append(mods, mod)
	}
	c.dynamicMods = mods
}

// DynamicModulators returns the modulators merged into new voices.
func (c *Channel) DynamicModulators() []soundbank.Modulator { return c.dynamicMods }

func (c *Channel) ClearDynamicModulators() { c.dynamicMods = nil }

// SetGeneratorOverride pins generator g to value for every voice started
// from now on, replacing the preset's value.
func (c *Channel) SetGeneratorOverride(g soundbank.GeneratorType, value int32) {
	if g < 0 || int(g) >= soundbank.GeneratorCount {
		return
	}
	overrides := slices.Clone(c.overrides)
	i := slices.IndexFunc(overrides, func(o voice.GeneratorOverride) bool { return o.Type == g })
	if i >= 0 {
		overrides[i].Value = value
	} else {
		overrides = append(overrides, voice.GeneratorOverride{Type: g, Value: value})
	}
	c.overrides = overrides
}

// ClearGeneratorOverride removes the override of g.
func (c *Channel) ClearGeneratorOverride(g soundbank.GeneratorType) {
	c.overrides = slices.DeleteFunc(slices.Clone(c.overrides), func(o voice.GeneratorOverride) bool { return o.Type == g })
}

// SetGeneratorOverridesEnabled turns the overrides on or off without
// discarding them.
func (c *Channel) SetGeneratorOverridesEnabled(enabled bool) { c.overridesOn = enabled }

// SetKeyModifier overrides the velocity (unless velocity < 0) and gain of
// one key. Keys are counted after the channel transposition.
func (c *Channel) SetKeyModifier(note, velocity int, gain float64) {
	if note < 0 || note > 127 {
		return
	}
	c.keyVelocity[note] = min(velocity, 127)
	c.keyGain[note] = max(gain, 0)
}

func (c *Channel) ClearKeyModifier(note int) {
	if note < 0 || note > 127 {
		return
	}
	c.keyVelocity[note] = -1
	c.keyGain[note] = 0
}

func (c *Channel) ClearKeyModifiers() {
	for i := range c.keyVelocity {
		c.keyVelocity[i] = -1
		c.keyGain[i] = 0
	}
}

// render mixes one block of every voice into out and drops the voices
// that finished.
func (c *Channel) render(ctx *voice.RenderContext, out voice.Output) {
	if len(c.voices) == 0 {
		return
	}
	ctx.Controllers = c.table
	ctx.TuningCents = c.p.tuningCents() + c.tuningCents
	for _, v := range c.voices {
		v.Render(ctx, out)
	}
	c.voices = slices.DeleteFunc(c.voices, (*voice.Voice).Done)
}
