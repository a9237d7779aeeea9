package sfsynth

import (
	"cmp"
	"slices"

	"github.com/cbegin/sfsynth-go/internal/voice"
)

// admit makes room for fresh under the voice cap and returns the voices
// that may start. Existing voices are evicted first; if the batch alone
// exceeds the cap its quietest members are dropped.
func (p *Processor) admit(fresh []*voice.Voice) []*voice.Voice {
	over := p.VoiceCount() + len(fresh) - p.voiceCap
	if over <= 0 {
		return fresh
	}
	over -= p.evict(over)
	if over <= 0 {
		return fresh
	}
	keep := max(0, len(fresh)-over)
	ranked := slices.Clone(fresh)
	slices.SortStableFunc(ranked, func(a, b *voice.Voice) int {
		return cmp.Compare(b.Priority(), a.Priority())
	})
	kept := ranked[:keep]
	// restore spawn order
	return slices.DeleteFunc(slices.Clone(fresh), func(v *voice.Voice) bool {
		return !slices.Contains(kept, v)
	})
}

// evict kills up to n sounding voices across all channels and returns how
// many were removed.
func (p *Processor) evict(n int) int {
	if n <= 0 {
		return 0
	}
	var all []*voice.Voice
	for _, c := range p.channels {
		all = append(all, c.voices...)
	}
	slices.SortStableFunc(all, byEviction)
	n = min(n, len(all))
	for _, v := range all[:n] {
		v.Kill()
	}
	for _, c := range p.channels {
		c.voices = slices.DeleteFunc(c.voices, (*voice.Voice).Done)
	}
	if n > 0 {
		p.logger.Debug("voices evicted", "count", n, "cap", p.voiceCap)
	}
	return n
}

// byEviction puts releasing voices first, then the lowest priority.
func byEviction(a, b *voice.Voice) int {
	if ra, rb := a.Releasing(), b.Releasing(); ra != rb {
		if ra {
			return -1
		}
		return 1
	}
	return cmp.Compare(a.Priority(), b.Priority())
}
