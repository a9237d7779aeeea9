// Package effects holds the shared processors that run once per block on
// the mixed output: reverb and chorus returns fed by the voices' effect
// sends, and the master limiter.
package effects

// Processor transforms a stereo block in place.
type Processor interface {
	Process(l, r []float32)
	Reset()
}

// Chain applies processors in order.
type Chain struct {
	stages []Processor
}

func NewChain(stages ...Processor) *Chain {
	return &Chain{stages: stages}
}

func (c *Chain) Process(l, r []float32) {
	for _, s := range c.stages {
		s.Process(l, r)
	}
}

func (c *Chain) Reset() {
	for _, s := range c.stages {
		s.Reset()
	}
}

func (c *Chain) Add(p Processor) {
	c.stages = append(c.stages, p)
}

// Len returns the number of stages.
func (c *Chain) Len() int { return len(c.stages) }

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
