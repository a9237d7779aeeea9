package voice

import (
	"github.com/cbegin/sfsynth-go/internal/modulator"
	"github.com/cbegin/sfsynth-go/soundbank"
)

// Generators is a resolved generator set.
type Generators = modulator.Generators

// Template is the resolved, controller-independent part of a voice: one
// matching zone pair of a preset with its combined generators and
// modulators. Templates are immutable and shared by every voice spawned
// from them.
type Template struct {
	Sample     *soundbank.Sample
	Generators Generators
	Modulators []soundbank.Modulator
}

// Templates resolves every zone of preset that sounds for key and
// velocity. The result is empty when nothing matches.
func Templates(preset *soundbank.Preset, defaults []soundbank.Modulator, key, velocity int) []*Template {
	if preset == nil {
		return nil
	}
	matches := preset.ZonesFor(key, velocity)
	out := make([]*Template, 0, len(matches))
	for _, m := range matches {
		out = append(out, &Template{
			Sample:     m.Sample,
			Generators: modulator.CombineGenerators(m),
			Modulators: modulator.CombineModulators(defaults, m),
		})
	}
	return out
}

// ExclusiveClass returns the exclusive class generator; 0 means none.
func (t *Template) ExclusiveClass() int {
	return int(t.Generators[soundbank.GenExclusiveClass])
}

// RootKey returns the key at which the sample plays at its recorded pitch.
func (t *Template) RootKey() int {
	if k := t.Generators[soundbank.GenOverridingRootKey]; k >= 0 {
		return int(k)
	}
	return t.Sample.OriginalKey
}

// key returns the key the generators and modulators see, honouring the
// keyNum generator override.
func (t *Template) key(played int) int {
	if k := t.Generators[soundbank.GenKeyNum]; k >= 0 {
		return int(k)
	}
	return played
}

func (t *Template) velocity(played int) int {
	if v := t.Generators[soundbank.GenVelocity]; v >= 0 {
		return int(v)
	}
	return played
}
