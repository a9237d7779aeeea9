// Package filter implements the resonant low-pass filter every voice runs
// its samples through.
package filter

import "math"

const (
	// BypassCents is the cutoff (about 20 kHz) at which an unresonant
	// filter is skipped entirely.
	BypassCents = 13500
	minCents    = 1500
)

// LowPass is a biquad low-pass filter whose cutoff is given in absolute
// cents and resonance in centibels, as SoundFont generators express them.
// Coefficients are recomputed at most once per block.
type LowPass struct {
	sampleRate float64

	cents       float64
	resonanceCb float64
	primed      bool

	// coefficients for the current (cents, resonance) pair
	b0, b1, b2, a1, a2 float64
	coefCents          float64
	coefResonance      float64
	haveCoef           bool

	x1, x2, y1, y2 float64
}

// Init resets the filter state for a new voice.
func (f *LowPass) Init(sampleRate float64) {
	*f = LowPass{sampleRate: sampleRate}
}

// Cents returns the smoothed cutoff reached by the last block.
func (f *LowPass) Cents() float64 { return f.cents }

// Process filters buf in place. The cutoff moves toward targetCents by an
// exponential smoothing coefficient scaled to the block length; the first
// block jumps straight to the target.
func (f *LowPass) Process(buf []float32, targetCents, resonanceCb, smoothing float64) {
	targetCents = math.Min(math.Max(targetCents, minCents), BypassCents)
	if !f.primed {
		f.cents = targetCents
		f.primed = true
	} else {
		coef := 1 - math.Pow(1-smoothing, float64(len(buf)))
		f.cents += (targetCents - f.cents) * coef
	}
	f.resonanceCb = resonanceCb
	if f.cents >= BypassCents-0.5 && resonanceCb <= 0 {
		return
	}
	f.updateCoefficients()
	b0, b1, b2, a1, a2 := f.b0, f.b1, f.b2, f.a1, f.a2
	x1, x2, y1, y2 := f.x1, f.x2, f.y1, f.y2
	for i, s := range buf {
		x := float64(s)
		y := b0*x + b1*x1 + b2*x2 - a1*y1 - a2*y2
		x2, x1 = x1, x
		y2, y1 = y1, y
		buf[i] = float32(y)
	}
	f.x1, f.x2, f.y1, f.y2 = x1, x2, y1, y2
}

func (f *LowPass) updateCoefficients() {
	if f.haveCoef && math.Abs(f.coefCents-f.cents) < 1 && f.coefResonance == f.resonanceCb {
		return
	}
	f.coefCents = f.cents
	f.coefResonance = f.resonanceCb
	f.haveCoef = true

	hz := 8.176 * math.Pow(2, f.cents/1200)
	hz = math.Min(hz, f.sampleRate*0.45)
	q := math.Pow(10, (f.resonanceCb/10-3.01)/20)
	// lower the passband by half the resonance peak
	gain := 1 / math.Sqrt(math.Pow(10, f.resonanceCb/200))

	w := 2 * math.Pi * hz / f.sampleRate
	cos, sin := math.Cos(w), math.Sin(w)
	alpha := sin / (2 * q)
	a0 := 1 + alpha
	f.b0 = (1 - cos) / 2 * gain / a0
	f.b1 = (1 - cos) * gain / a0
	f.b2 = f.b0
	f.a1 = -2 * cos / a0
	f.a2 = (1 - alpha) / a0
}

// CentsToHz converts absolute cents to Hz.
func CentsToHz(cents float64) float64 {
	return 8.176 * math.Pow(2, cents/1200)
}
