// Package controller holds per-channel MIDI controller state: the CC table,
// pitch wheel and pressure, the RPN/NRPN data entry pipeline and the bank
// select rules of each MIDI system.
package controller

import "github.com/cbegin/sfsynth-go/soundbank"

const (
	pitchWheelCenter       = 8192
	defaultPitchWheelRange = 200
)

// Vibrato is the channel-wide vibrato set through GS NRPNs. It is applied
// on top of the SoundFont vibrato LFO.
type Vibrato struct {
	RateHz      float64
	DepthCents  float64
	DelaySecond float64
}

// Active reports whether the vibrato has any audible effect.
func (v Vibrato) Active() bool {
	return v.RateHz > 0 && v.DepthCents > 0
}

// Table is the live controller state of one channel. Controller values are
// stored as 14-bit numbers (MSB<<7 | LSB).
type Table struct {
	cc              [Count]int
	pitchWheel      int
	channelPressure int
	pitchWheelRange float64

	// FineTuning is the RPN 1 channel fine tuning in cents.
	FineTuning float64
	// CoarseTuning is the RPN 2 channel coarse tuning in semitones.
	CoarseTuning float64
	// ModulationDepth scales the modulation wheel vibrato; 1 is 50 cents.
	ModulationDepth float64
	Vibrato         Vibrato

	entry dataEntryState
}

// NewTable returns a table at power-on values.
func NewTable() *Table {
	t := &Table{}
	t.Reset()
	return t
}

// Reset restores every controller and derived value to power-on state.
func (t *Table) Reset() {
	for i := range t.cc {
		t.cc[i] = defaults[i] << 7
	}
	t.pitchWheel = pitchWheelCenter
	t.channelPressure = 0
	t.pitchWheelRange = defaultPitchWheelRange
	t.FineTuning = 0
	t.CoarseTuning = 0
	t.ModulationDepth = 1
	t.Vibrato = Vibrato{}
	t.entry = entryIdle
}

// ResetRP15 implements "reset all controllers" as RP-15 describes it:
// performance controllers return to default while volume, pan, bank and
// sound controllers are kept.
func (t *Table) ResetRP15() {
	for i := range t.cc {
		if keptOnReset[i] {
			continue
		}
		t.cc[i] = defaults[i] << 7
	}
	t.pitchWheel = pitchWheelCenter
	t.channelPressure = 0
	t.entry = entryIdle
}

// Set stores a 7-bit controller value. Controllers 32-63 also become the
// LSB of their 0-31 counterpart.
func (t *Table) Set(cc, value int) {
	if cc < 0 || cc >= Count {
		return
	}
	value = clampInt(value, 0, 127)
	t.cc[cc] = value << 7
	if cc >= 32 && cc < 64 {
		msb := cc - 32
		t.cc[msb] = t.cc[msb]&^0x7f | value
	}
}

// Value returns the 7-bit value of cc.
func (t *Table) Value(cc int) int {
	if cc < 0 || cc >= Count {
		return 0
	}
	return t.cc[cc] >> 7
}

// Value14 returns the full 14-bit value of cc.
func (t *Table) Value14(cc int) int {
	if cc < 0 || cc >= Count {
		return 0
	}
	return t.cc[cc]
}

// SetPitchWheel stores a 14-bit pitch wheel position (8192 is center).
func (t *Table) SetPitchWheel(value int) {
	t.pitchWheel = clampInt(value, 0, 16383)
}

func (t *Table) PitchWheel() int { return t.pitchWheel }

// SetChannelPressure stores channel aftertouch.
func (t *Table) SetChannelPressure(value int) {
	t.channelPressure = clampInt(value, 0, 127)
}

func (t *Table) ChannelPressure() int { return t.channelPressure }

// PitchWheelRange returns the pitch bend sensitivity in cents.
func (t *Table) PitchWheelRange() float64 { return t.pitchWheelRange }

// SetPitchWheelRange sets the pitch bend sensitivity in cents.
func (t *Table) SetPitchWheelRange(cents float64) {
	if cents < 0 {
		cents = 0
	}
	t.pitchWheelRange = cents
}

// Sustain reports whether the damper pedal is down.
func (t *Table) Sustain() bool { return t.Value(SustainPedal) >= 64 }

// Sostenuto reports whether the sostenuto pedal is down.
func (t *Table) Sostenuto() bool { return t.Value(SostenutoPedal) >= 64 }

// Portamento reports whether portamento is switched on.
func (t *Table) Portamento() bool { return t.Value(PortamentoOnOff) >= 64 }

// SourceValue returns the channel-level modulator source value normalised
// to [0, 1]. Voice-level sources (velocity, key, poly pressure) are not
// known to the table and read as 0.
func (t *Table) SourceValue(src soundbank.ModulatorSource) float64 {
	if src.IsCC() {
		return float64(t.cc[src.Index()]) / 16384
	}
	switch src.Index() {
	case soundbank.SourceNoController:
		return 1
	case soundbank.SourceChannelPressure:
		return float64(t.channelPressure<<7) / 16384
	case soundbank.SourcePitchWheel:
		return float64(t.pitchWheel) / 16384
	case soundbank.SourcePitchWheelRange:
		return t.pitchWheelRange / 12700
	}
	return 0
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
