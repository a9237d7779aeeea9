// Package modulator combines zone generators and modulators into the
// effective parameter set of a voice and evaluates modulators against live
// controller values.
package modulator

import (
	"math"

	"github.com/cbegin/sfsynth-go/soundbank"
)

// Generators is a resolved generator set indexed by soundbank.GeneratorType.
type Generators = [soundbank.GeneratorCount]int32

// Controllers supplies channel-level modulator sources.
type Controllers interface {
	SourceValue(src soundbank.ModulatorSource) float64
}

// Sources is everything a modulator may read for one voice.
type Sources struct {
	Controllers  Controllers
	Key          int
	Velocity     int
	PolyPressure int
}

// Value returns the normalised value of src.
func (s Sources) Value(src soundbank.ModulatorSource) float64 {
	if !src.IsCC() {
		switch src.Index() {
		case soundbank.SourceVelocity:
			return float64(s.Velocity<<7) / 16384
		case soundbank.SourceKeyNum:
			return float64(s.Key<<7) / 16384
		case soundbank.SourcePolyPressure:
			return float64(s.PolyPressure<<7) / 16384
		case soundbank.SourceLink:
			return 0
		}
	}
	if s.Controllers == nil {
		if !src.IsCC() && src.Index() == soundbank.SourceNoController {
			return 1
		}
		return 0
	}
	return s.Controllers.SourceValue(src)
}

// CombineGenerators resolves the generator set of one zone match: defaults,
// then the instrument global zone, then the instrument zone overriding it.
// Preset generators (local overriding global) are added on top, except the
// ones that only make sense at instrument level. Invalid generator ids are
// skipped.
func CombineGenerators(m soundbank.ZoneMatch) Generators {
	gens := soundbank.DefaultGenerators()
	apply := func(z *soundbank.Zone) {
		if z == nil {
			return
		}
		for _, g := range z.Generators {
			if g.Type.Valid() {
				gens[g.Type] = int32(g.Value)
			}
		}
	}
	apply(m.InstrumentGlobal)
	apply(m.Instrument)

	var preset Generators
	var set [soundbank.GeneratorCount]bool
	for _, z := range []*soundbank.Zone{m.PresetGlobal, m.Preset} {
		if z == nil {
			continue
		}
		for _, g := range z.Generators {
			if g.Type.PresetAdditive() {
				preset[g.Type] = int32(g.Value)
				set[g.Type] = true
			}
		}
	}
	for i := range gens {
		if set[i] {
			gens[i] += preset[i]
		}
	}
	return gens
}

// CombineModulators builds the modulator list of one zone match. Levels are
// applied in order default, instrument global, instrument, preset global,
// preset; a modulator identical to an earlier one replaces it, others are
// appended.
func CombineModulators(defaults []soundbank.Modulator, m soundbank.ZoneMatch) []soundbank.Modulator {
	out := append([]soundbank.Modulator(nil), defaults...)
	for _, z := range []*soundbank.Zone{m.InstrumentGlobal, m.Instrument, m.PresetGlobal, m.Preset} {
		if z == nil {
			continue
		}
		for _, mod := range z.Modulators {
			out = merge(out, mod)
		}
	}
	return out
}

func merge(list []soundbank.Modulator, mod soundbank.Modulator) []soundbank.Modulator {
	for i := range list {
		if soundbank.Identical(list[i], mod) {
			list[i] = mod
			return list
		}
	}
	return append(list, mod)
}

// Evaluate returns the contribution of one modulator.
func Evaluate(mod soundbank.Modulator, src Sources) float64 {
	if mod.Amount == 0 {
		return 0
	}
	v := Transform(mod.Source, src.Value(mod.Source))
	if v == 0 {
		return 0
	}
	v *= Transform(mod.SecondarySource, src.Value(mod.SecondarySource))
	v *= float64(mod.Amount)
	if mod.Transform == soundbank.TransformAbsolute {
		v = math.Abs(v)
	}
	return v
}

// Compute writes gens plus every modulator contribution into dst, clamped
// to each generator's legal range.
func Compute(dst *Generators, gens *Generators, mods []soundbank.Modulator, src Sources) {
	var sum [soundbank.GeneratorCount]float64
	for _, mod := range mods {
		if mod.Destination < 0 || int(mod.Destination) >= soundbank.GeneratorCount {
			continue
		}
		sum[mod.Destination] += Evaluate(mod, src)
	}
	for i := range dst {
		v := gens[i] + int32(math.Round(sum[i]))
		dst[i] = soundbank.GeneratorType(i).Clamp(v)
	}
}

// UsesController reports whether any modulator reads MIDI controller cc.
func UsesController(mods []soundbank.Modulator, cc int) bool {
	for _, mod := range mods {
		if mod.Source.UsesCC(cc) || mod.SecondarySource.UsesCC(cc) {
			return true
		}
	}
	return false
}

// UsesSource reports whether any modulator reads the non-CC source index.
func UsesSource(mods []soundbank.Modulator, index int) bool {
	for _, mod := range mods {
		for _, s := range []soundbank.ModulatorSource{mod.Source, mod.SecondarySource} {
			if !s.IsCC() && s.Index() == index {
				return true
			}
		}
	}
	return false
}
