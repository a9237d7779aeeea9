package envelope

import (
	"math"

	"github.com/cbegin/sfsynth-go/internal/lfo"
	"github.com/cbegin/sfsynth-go/soundbank"
)

// Modulation is the SoundFont modulation envelope. Its output in [0, 1]
// is scaled by modEnvToPitch and modEnvToFilterFc.
type Modulation struct {
	delayEnd    float64
	attackEnd   float64
	holdEnd     float64
	decayTime   float64
	sustain     float64
	releaseTime float64

	released     bool
	releaseStart float64
	releaseLevel float64
}

// Init prepares the envelope for a voice playing key.
func (m *Modulation) Init(gens *Generators, key int) {
	*m = Modulation{}
	m.Update(gens, key)
}

// Update re-reads segment times from gens.
func (m *Modulation) Update(gens *Generators, key int) {
	keyOffset := float64(60 - key)
	delay := lfo.TimecentsToSeconds(float64(gens[soundbank.GenDelayModEnv]))
	attack := lfo.TimecentsToSeconds(float64(gens[soundbank.GenAttackModEnv]))
	hold := lfo.TimecentsToSeconds(float64(gens[soundbank.GenHoldModEnv]) + keyOffset*float64(gens[soundbank.GenKeyNumToModEnvHold]))
	m.decayTime = lfo.TimecentsToSeconds(float64(gens[soundbank.GenDecayModEnv]) + keyOffset*float64(gens[soundbank.GenKeyNumToModEnvDecay]))
	m.delayEnd = delay
	m.attackEnd = delay + attack
	m.holdEnd = m.attackEnd + hold
	m.sustain = 1 - math.Min(math.Max(float64(gens[soundbank.GenSustainModEnv]), 0), 1000)/1000
	m.releaseTime = lfo.TimecentsToSeconds(float64(gens[soundbank.GenReleaseModEnv]))
}

// SetReleaseTime overrides the release duration in seconds.
func (m *Modulation) SetReleaseTime(seconds float64) {
	m.releaseTime = seconds
}

// Release starts the release segment at t seconds from note-on.
func (m *Modulation) Release(t float64) {
	if m.released {
		return
	}
	m.releaseLevel = m.Value(t)
	m.releaseStart = t
	m.released = true
}

// Value returns the envelope output at t seconds from note-on.
func (m *Modulation) Value(t float64) float64 {
	if m.released && t >= m.releaseStart {
		if m.releaseTime <= 0 {
			return 0
		}
		return math.Max(m.releaseLevel*(1-(t-m.releaseStart)/m.releaseTime), 0)
	}
	switch {
	case t < m.delayEnd:
		return 0
	case t < m.attackEnd:
		return (t - m.delayEnd) / (m.attackEnd - m.delayEnd)
	case t < m.holdEnd:
		return 1
	}
	if m.decayTime <= 0 {
		return m.sustain
	}
	return math.Max(1-(t-m.holdEnd)/m.decayTime, m.sustain)
}
