package soundbank

// Range is an inclusive key or velocity span.
type Range struct {
	Min, Max int
}

// Contains reports whether v falls inside r.
func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Zone is the generator and modulator payload shared by instrument and
// preset zones. A nil range means "unspecified": the global zone's range
// applies, and with no global range every key or velocity matches.
type Zone struct {
	KeyRange   *Range
	VelRange   *Range
	Generators []Generator
	Modulators []Modulator
}

// SetGenerator replaces or appends the generator of type t.
func (z *Zone) SetGenerator(t GeneratorType, value int16) *Zone {
	for i := range z.Generators {
		if z.Generators[i].Type == t {
			z.Generators[i].Value = value
			return z
		}
	}
	z.Generators = append(z.Generators, Generator{Type: t, Value: value})
	return z
}

// Generator returns the value of t stored directly in z.
func (z *Zone) Generator(t GeneratorType) (int16, bool) {
	for _, g := range z.Generators {
		if g.Type == t {
			return g.Value, true
		}
	}
	return 0, false
}

// AddModulator appends m to z.
func (z *Zone) AddModulator(m Modulator) *Zone {
	z.Modulators = append(z.Modulators, m)
	return z
}

// SetKeyRange restricts z to keys lo..hi.
func (z *Zone) SetKeyRange(lo, hi int) *Zone {
	z.KeyRange = &Range{Min: lo, Max: hi}
	return z
}

// SetVelRange restricts z to velocities lo..hi.
func (z *Zone) SetVelRange(lo, hi int) *Zone {
	z.VelRange = &Range{Min: lo, Max: hi}
	return z
}

func (z *Zone) matches(global *Zone, key, velocity int) bool {
	kr, vr := z.KeyRange, z.VelRange
	if kr == nil {
		kr = global.KeyRange
	}
	if vr == nil {
		vr = global.VelRange
	}
	if kr != nil && !kr.Contains(key) {
		return false
	}
	if vr != nil && !vr.Contains(velocity) {
		return false
	}
	return true
}

// InstrumentZone binds a zone to the sample it plays.
type InstrumentZone struct {
	Zone
	Sample *Sample
}

// Instrument is a named set of sample zones with an optional global zone.
type Instrument struct {
	Name   string
	Global Zone
	Zones  []*InstrumentZone
}

// NewInstrument returns an empty instrument.
func NewInstrument(name string) *Instrument {
	return &Instrument{Name: name}
}

// AddZone appends a zone playing s and returns it for further setup.
func (in *Instrument) AddZone(s *Sample) *InstrumentZone {
	z := &InstrumentZone{Sample: s}
	in.Zones = append(in.Zones, z)
	return z
}

// PresetZone binds a zone to the instrument it layers.
type PresetZone struct {
	Zone
	Instrument *Instrument
}

// ZoneMatch is one resolved (preset zone, instrument zone) pair for a
// note and velocity, carrying the four zones the resolver combines.
type ZoneMatch struct {
	PresetGlobal     *Zone
	Preset           *Zone
	InstrumentGlobal *Zone
	Instrument       *Zone
	Sample           *Sample
}
