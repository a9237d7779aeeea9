package lfo

import "math"

// LFO is a delayed triangle oscillator evaluated at a time measured from
// the start of the voice that owns it. It has no running phase, so any
// number of render blocks may query it without drift.
type LFO struct {
	delay  float64 // seconds of silence before the oscillator starts
	rateHz float64 // oscillation rate in Hz
}

// Set configures the LFO parameters.
func (l *LFO) Set(delay, rateHz float64) {
	if delay < 0 {
		delay = 0
	}
	if rateHz < 0 {
		rateHz = 0
	}
	l.delay = delay
	l.rateHz = rateHz
}

// Value returns the oscillator output at t seconds, in [-1, +1]. The
// triangle starts at 0 and rises; it returns 0 before the delay elapses.
func (l *LFO) Value(t float64) float64 {
	if l.rateHz == 0 || t < l.delay {
		return 0
	}
	return Triangle((t - l.delay) * l.rateHz)
}

// Active returns true if the LFO has a non-zero rate.
func (l *LFO) Active() bool {
	return l.rateHz != 0
}

// Reset zeros the LFO parameters.
func (l *LFO) Reset() {
	l.delay = 0
	l.rateHz = 0
}

// Triangle maps a phase in cycles to a triangle wave that is 0 at phase 0,
// +1 at a quarter cycle and -1 at three quarters.
func Triangle(phase float64) float64 {
	x := phase + 0.25
	return math.Abs(x-math.Floor(x+0.5))*4 - 1
}

// TimecentsToSeconds converts SoundFont timecents to seconds.
func TimecentsToSeconds(tc float64) float64 {
	if tc <= -32768 {
		return 0
	}
	return math.Pow(2, tc/1200)
}

// AbsCentsToHz converts SoundFont absolute cents to Hz.
func AbsCentsToHz(cents float64) float64 {
	return 8.176 * math.Pow(2, cents/1200)
}
