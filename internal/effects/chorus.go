package effects

import "math"

// Chorus is a modulated delay whose two sides are swept a quarter cycle
// apart. Like Reverb it returns only the wet signal.
type Chorus struct {
	bufL, bufR []float32
	pos        int
	size       int
	depth      float32 // modulation depth in samples
	rate       float64 // modulation rate in radians per sample
	phase      float64
	feedback   float32
	level      float32
}

// NewChorus creates a chorus.
// delayMs: base delay time in ms (typically 5-30ms)
// feedback: 0..1
// depthMs: modulation depth in ms
// rateHz: modulation rate in Hz
// level: output gain of the wet signal
func NewChorus(sampleRate int, delayMs, feedback, depthMs, rateHz, level float32) *Chorus {
	baseSamples := int(float64(delayMs) * float64(sampleRate) / 1000.0)
	depthSamples := float64(depthMs) * float64(sampleRate) / 1000.0
	size := 2*(baseSamples+int(depthSamples)) + 4
	return &Chorus{
		bufL:     make([]float32, size),
		bufR:     make([]float32, size),
		size:     size,
		depth:    float32(depthSamples),
		rate:     2.0 * math.Pi * float64(rateHz) / float64(sampleRate),
		feedback: clamp(feedback, 0, 0.9),
		level:    level,
	}
}

// Process replaces the send signal in l and r with the chorus return.
func (c *Chorus) Process(l, r []float32) {
	for i := range l {
		modL := float32(math.Sin(c.phase)) * c.depth
		modR := float32(math.Cos(c.phase)) * c.depth
		c.phase += c.rate
		if c.phase > 2*math.Pi {
			c.phase -= 2 * math.Pi
		}
		c.bufL[c.pos] = l[i]
		c.bufR[c.pos] = r[i]
		delL := c.read(c.bufL, modL)
		delR := c.read(c.bufR, modR)
		c.bufL[c.pos] += delL * c.feedback
		c.bufR[c.pos] += delR * c.feedback
		c.pos++
		if c.pos >= c.size {
			c.pos = 0
		}
		l[i] = delL * c.level
		r[i] = delR * c.level
	}
}

// read returns the fractionally delayed sample half a buffer behind the
// write position, offset by mod samples.
func (c *Chorus) read(buf []float32, mod float32) float32 {
	readPos := float32(c.pos) - (float32(c.size/2) + mod)
	for readPos < 0 {
		readPos += float32(c.size)
	}
	idx := int(readPos) % c.size
	frac := readPos - float32(int(readPos))
	idx2 := idx + 1
	if idx2 >= c.size {
		idx2 = 0
	}
	return buf[idx]*(1-frac) + buf[idx2]*frac
}

func (c *Chorus) Reset() {
	clear(c.bufL)
	clear(c.bufR)
	c.pos = 0
	c.phase = 0
}

// SetLevel changes the wet output gain.
func (c *Chorus) SetLevel(level float32) { c.level = level }
