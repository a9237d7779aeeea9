// Package panner places a mono voice signal in the stereo field and feeds
// the shared effect sends.
package panner

import (
	"math"
	"math/rand/v2"
)

// Panner holds the smoothed pan position of one voice.
type Panner struct {
	pan    float64
	primed bool
}

// Gains returns constant-power left/right gains for a SoundFont pan value
// in [-500, 500].
func Gains(pan float64) (float64, float64) {
	pan = math.Min(math.Max(pan, -500), 500)
	angle := (pan + 500) / 1000 * math.Pi / 2
	return math.Cos(angle), math.Sin(angle)
}

// Pan returns the smoothed pan position reached by the last block.
func (p *Panner) Pan() float64 { return p.pan }

// Mix adds in, scaled by gainL/gainR and placed at pan, to outL and outR.
// The pan position approaches target through an exponential smoothing
// coefficient scaled to the block length, and the channel gains are ramped
// linearly across the block.
func (p *Panner) Mix(in []float32, target, smoothing, gainL, gainR float64, outL, outR []float32) {
	n := len(in)
	if n == 0 {
		return
	}
	start := p.pan
	if !p.primed {
		start = target
		p.primed = true
	}
	end := start + (target-start)*(1-math.Pow(1-smoothing, float64(n)))
	p.pan = end

	l0, r0 := Gains(start)
	l1, r1 := Gains(end)
	l0, l1 = l0*gainL, l1*gainL
	r0, r1 = r0*gainR, r1*gainR
	dl := (l1 - l0) / float64(n)
	dr := (r1 - r0) / float64(n)
	l, r := l0, r0
	for i, s := range in {
		outL[i] += s * float32(l)
		outR[i] += s * float32(r)
		l += dl
		r += dr
	}
}

// Send adds in scaled by level to both sides of an effect send.
func Send(in []float32, level float64, outL, outR []float32) {
	if level <= 0 {
		return
	}
	g := float32(level)
	for i, s := range in {
		v := s * g
		outL[i] += v
		outR[i] += v
	}
}

// RandomPan returns a uniformly distributed pan position in [-500, 500].
func RandomPan(r *rand.Rand) float64 {
	return math.Round(r.Float64()*1000 - 500)
}
