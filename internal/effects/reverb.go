package effects

// stereoSpread offsets the right channel's delay lines.
const stereoSpread = 23

// Reverb is a Schroeder reverb (parallel combs into series allpasses)
// with independent delay lines per side. It returns only the wet signal,
// so it runs on the reverb send buffers rather than the dry mix.
type Reverb struct {
	left, right reverbLine
	level       float32
}

type reverbLine struct {
	combs   [4]combFilter
	allpass [2]allpassFilter
}

type combFilter struct {
	buf []float32
	pos int
	fb  float32
	// one-pole damping inside the feedback loop
	damp  float32
	store float32
}

type allpassFilter struct {
	buf []float32
	pos int
	fb  float32
}

// NewReverb creates a reverb.
// roomSize: 0..1 scales the delay lengths
// feedback: 0..1 sets the decay time
// level: output gain of the wet signal
func NewReverb(sampleRate int, roomSize, feedback, level float32) *Reverb {
	base := int(float32(sampleRate) * roomSize * 0.05)
	if base < 10 {
		base = 10
	}
	fb := clamp(feedback, 0, 0.95)
	r := &Reverb{level: level}
	r.left.init(base, 0, fb)
	r.right.init(base, stereoSpread*sampleRate/44100, fb)
	return r
}

func (l *reverbLine) init(base, spread int, fb float32) {
	combLens := [4]int{base, base * 1117 / 1000, base * 1271 / 1000, base * 1437 / 1000}
	for i := range l.combs {
		l.combs[i] = combFilter{buf: make([]float32, combLens[i]+spread), fb: fb, damp: 0.2}
	}
	apLens := [2]int{base * 347 / 1000, base * 213 / 1000}
	for i := range l.allpass {
		l.allpass[i] = allpassFilter{buf: make([]float32, max(apLens[i]+spread, 1)), fb: 0.5}
	}
}

func (l *reverbLine) process(in float32) float32 {
	var out float32
	for i := range l.combs {
		out += l.combs[i].process(in)
	}
	out *= 0.25
	for i := range l.allpass {
		out = l.allpass[i].process(out)
	}
	return out
}

func (l *reverbLine) reset() {
	for i := range l.combs {
		clear(l.combs[i].buf)
		l.combs[i].pos = 0
		l.combs[i].store = 0
	}
	for i := range l.allpass {
		clear(l.allpass[i].buf)
		l.allpass[i].pos = 0
	}
}

// Process replaces the send signal in l and r with the reverb return.
func (r *Reverb) Process(l, rr []float32) {
	for i := range l {
		mono := (l[i] + rr[i]) * 0.5
		l[i] = r.left.process(mono) * r.level
		rr[i] = r.right.process(mono) * r.level
	}
}

func (r *Reverb) Reset() {
	r.left.reset()
	r.right.reset()
}

// SetLevel changes the wet output gain.
func (r *Reverb) SetLevel(level float32) { r.level = level }

func (c *combFilter) process(in float32) float32 {
	out := c.buf[c.pos]
	c.store = out*(1-c.damp) + c.store*c.damp
	c.buf[c.pos] = in + c.store*c.fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpassFilter) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}
