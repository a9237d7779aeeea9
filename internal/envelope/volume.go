// Package envelope implements the SoundFont volume and modulation
// envelopes. Both are evaluated from the time elapsed since note-on, so a
// render block only costs a handful of evaluations regardless of its
// length.
package envelope

import (
	"math"

	"github.com/cbegin/sfsynth-go/internal/lfo"
	"github.com/cbegin/sfsynth-go/soundbank"
)

// Generators is a resolved generator set.
type Generators = [soundbank.GeneratorCount]int32

const (
	// SilenceCb is the attenuation (100 dB) at which a voice is inaudible.
	SilenceCb = 1000.0
	maxCb     = 1440.0
)

// State is the segment an envelope is in.
type State int

const (
	StateDelay State = iota
	StateAttack
	StateHold
	StateDecay
	StateSustain
	StateRelease
)

// Volume is the six-segment (delay, attack, hold, decay, sustain, release)
// amplitude envelope. Attack is linear in amplitude; decay and release are
// linear in decibels and take their full time to cover 100 dB.
type Volume struct {
	sampleRate float64

	delayEnd    float64
	attackEnd   float64
	holdEnd     float64
	decayTime   float64
	sustainCb   float64
	releaseTime float64

	released       bool
	releaseStart   float64
	releaseStartCb float64

	attenuation float64
	levelCb     float64
	gain        float64
	state       State
	finished    bool
}

// Init prepares the envelope for a voice playing key.
func (e *Volume) Init(gens *Generators, key int, sampleRate float64) {
	*e = Volume{sampleRate: sampleRate}
	e.Update(gens, key)
	e.attenuation = float64(gens[soundbank.GenInitialAttenuation])
	e.levelCb = maxCb
}

// Update re-reads segment times after the generators were re-modulated.
// Progress through the envelope is preserved.
func (e *Volume) Update(gens *Generators, key int) {
	keyOffset := float64(60 - key)
	delay := lfo.TimecentsToSeconds(float64(gens[soundbank.GenDelayVolEnv]))
	attack := lfo.TimecentsToSeconds(float64(gens[soundbank.GenAttackVolEnv]))
	hold := lfo.TimecentsToSeconds(float64(gens[soundbank.GenHoldVolEnv]) + keyOffset*float64(gens[soundbank.GenKeyNumToVolEnvHold]))
	e.decayTime = lfo.TimecentsToSeconds(float64(gens[soundbank.GenDecayVolEnv]) + keyOffset*float64(gens[soundbank.GenKeyNumToVolEnvDecay]))
	e.delayEnd = delay
	e.attackEnd = delay + attack
	e.holdEnd = e.attackEnd + hold
	e.sustainCb = math.Min(math.Max(float64(gens[soundbank.GenSustainVolEnv]), 0), maxCb)
	e.releaseTime = lfo.TimecentsToSeconds(float64(gens[soundbank.GenReleaseVolEnv]))
}

// SetReleaseTime overrides the release duration in seconds.
func (e *Volume) SetReleaseTime(seconds float64) {
	e.releaseTime = seconds
}

// Release starts the release segment at t seconds from note-on, from
// whatever level the envelope has reached by then.
func (e *Volume) Release(t float64) {
	if e.released {
		return
	}
	e.releaseStartCb = e.level(t)
	e.releaseStart = t
	e.released = true
}

// SetAttenuation jumps the smoothed attenuation to cb so a fresh voice
// does not fade in from its unmodulated level.
func (e *Volume) SetAttenuation(cb float64) {
	e.attenuation = cb
}

// Released reports whether the release segment has started.
func (e *Volume) Released() bool { return e.released }

// level returns the envelope attenuation in cB at t seconds.
func (e *Volume) level(t float64) float64 {
	if e.released && t >= e.releaseStart {
		if e.releaseTime <= 0 {
			return maxCb
		}
		return math.Min(e.releaseStartCb+(t-e.releaseStart)/e.releaseTime*SilenceCb, maxCb)
	}
	switch {
	case t < e.delayEnd:
		return maxCb
	case t < e.attackEnd:
		return gainToCb((t - e.delayEnd) / (e.attackEnd - e.delayEnd))
	case t < e.holdEnd:
		return 0
	}
	if e.decayTime <= 0 {
		return e.sustainCb
	}
	return math.Min((t-e.holdEnd)/e.decayTime*SilenceCb, e.sustainCb)
}

func (e *Volume) stateAt(t float64) State {
	if e.released && t >= e.releaseStart {
		return StateRelease
	}
	switch {
	case t < e.delayEnd:
		return StateDelay
	case t < e.attackEnd:
		return StateAttack
	case t < e.holdEnd:
		return StateHold
	case e.level(t) < e.sustainCb:
		return StateDecay
	}
	return StateSustain
}

// Advance fills out with the per-sample gain of the block starting t
// seconds after note-on. Only the block end points are evaluated: gain is
// interpolated linearly in decibels between them, and the extra
// attenuation (initial attenuation plus modulation, in cB) approaches
// target through an exponential smoothing coefficient scaled to the block
// length.
func (e *Volume) Advance(t float64, out []float32, target, smoothing float64) {
	n := len(out)
	if n == 0 {
		return
	}
	startEnv := e.level(t)
	end := t + float64(n)/e.sampleRate
	endEnv := e.level(end)

	startAtt := e.attenuation
	coef := 1 - math.Pow(1-smoothing, float64(n))
	endAtt := startAtt + (target-startAtt)*coef
	e.attenuation = endAtt

	startCb := startEnv + startAtt
	endCb := endEnv + endAtt
	if startCb >= SilenceCb && endCb >= SilenceCb {
		for i := range out {
			out[i] = 0
		}
	} else {
		g := math.Pow(10, -startCb/200)
		ratio := math.Pow(10, -(endCb-startCb)/(200*float64(n)))
		for i := range out {
			out[i] = float32(g)
			g *= ratio
		}
	}

	e.levelCb = endEnv
	e.gain = cbToGain(endCb)
	e.state = e.stateAt(end)
	switch {
	case e.released && endEnv >= SilenceCb:
		e.finished = true
	case e.state == StateSustain && e.sustainCb >= SilenceCb:
		e.finished = true
	}
}

// Gain returns the total linear gain reached at the end of the last block.
func (e *Volume) Gain() float64 { return e.gain }

// LevelCb returns the envelope attenuation reached at the end of the last
// block, excluding initial attenuation.
func (e *Volume) LevelCb() float64 { return e.levelCb }

// State returns the segment reached at the end of the last block.
func (e *Volume) State() State { return e.state }

// Finished reports whether the envelope has decayed to silence.
func (e *Volume) Finished() bool { return e.finished }

// RemainingRelease estimates the seconds left until silence once released.
func (e *Volume) RemainingRelease() float64 {
	if e.releaseTime <= 0 {
		return 0
	}
	return math.Max(SilenceCb-e.levelCb, 0) / SilenceCb * e.releaseTime
}

func cbToGain(cb float64) float64 {
	if cb >= SilenceCb {
		return 0
	}
	return math.Pow(10, -cb/200)
}

func gainToCb(g float64) float64 {
	if g <= 0 {
		return maxCb
	}
	return math.Min(-200*math.Log10(g), maxCb)
}
