package effects

import "math"

// Limiter is a stereo-linked peak compressor for the master bus. Both
// sides share one envelope so the stereo image does not shift under gain
// reduction.
type Limiter struct {
	threshold float32
	ratio     float32
	attack    float32 // coefficient
	release   float32 // coefficient
	env       float32
}

// NewLimiter creates a limiter.
// thresholdDB: threshold in dB (e.g., -3)
// ratio: compression ratio above threshold (e.g., 20 for 20:1)
// attackMs, releaseMs: envelope follower times
func NewLimiter(sampleRate int, thresholdDB, ratio, attackMs, releaseMs float32) *Limiter {
	sr := float64(sampleRate)
	return &Limiter{
		threshold: float32(math.Pow(10, float64(thresholdDB)/20)),
		ratio:     max(ratio, 1),
		attack:    float32(1.0 - math.Exp(-1.0/(float64(attackMs)*sr/1000.0))),
		release:   float32(1.0 - math.Exp(-1.0/(float64(releaseMs)*sr/1000.0))),
	}
}

func (c *Limiter) Process(l, r []float32) {
	for i := range l {
		peak := max(float32(math.Abs(float64(l[i]))), float32(math.Abs(float64(r[i]))))
		if peak > c.env {
			c.env += c.attack * (peak - c.env)
		} else {
			c.env += c.release * (peak - c.env)
		}
		g := c.gain(c.env)
		l[i] *= g
		r[i] *= g
	}
}

func (c *Limiter) gain(env float32) float32 {
	if env <= c.threshold || c.threshold <= 0 {
		return 1.0
	}
	over := env / c.threshold
	return float32(math.Pow(float64(over), float64(1.0/c.ratio-1)))
}

func (c *Limiter) Reset() {
	c.env = 0
}
