package soundbank

import "github.com/pkg/errors"

// Validate checks the structural invariants a synthesizer relies on.
// Loaders should call it before handing the bank over.
func (b *SoundBank) Validate() error {
	if len(b.Presets) == 0 {
		return errors.New("soundbank: no presets")
	}
	for _, p := range b.Presets {
		if err := validateZone(&p.Global); err != nil {
			return errors.Wrapf(err, "preset %q global zone", p.Name)
		}
		for i, pz := range p.Zones {
			if pz.Instrument == nil {
				return errors.Errorf("soundbank: preset %q zone %d has no instrument", p.Name, i)
			}
			if err := validateZone(&pz.Zone); err != nil {
				return errors.Wrapf(err, "preset %q zone %d", p.Name, i)
			}
		}
	}
	for _, in := range b.Instruments {
		if err := validateZone(&in.Global); err != nil {
			return errors.Wrapf(err, "instrument %q global zone", in.Name)
		}
		for i, iz := range in.Zones {
			if err := validateSample(iz.Sample); err != nil {
				return errors.Wrapf(err, "instrument %q zone %d", in.Name, i)
			}
			if err := validateZone(&iz.Zone); err != nil {
				return errors.Wrapf(err, "instrument %q zone %d", in.Name, i)
			}
		}
	}
	return nil
}

func validateZone(z *Zone) error {
	for _, g := range z.Generators {
		if !g.Type.Valid() {
			return errors.Errorf("soundbank: invalid generator %d", g.Type)
		}
	}
	for _, r := range []*Range{z.KeyRange, z.VelRange} {
		if r != nil && (r.Min > r.Max || r.Min < 0 || r.Max > 127) {
			return errors.Errorf("soundbank: bad range %d-%d", r.Min, r.Max)
		}
	}
	return nil
}

func validateSample(s *Sample) error {
	if s == nil {
		return errors.New("soundbank: zone without sample")
	}
	if len(s.Data) == 0 {
		return errors.Errorf("soundbank: sample %q is empty", s.Name)
	}
	if s.SampleRate <= 0 {
		return errors.Errorf("soundbank: sample %q has sample rate %d", s.Name, s.SampleRate)
	}
	if s.LoopStart < 0 || s.LoopEnd > len(s.Data) {
		return errors.Errorf("soundbank: sample %q loop %d-%d outside %d frames", s.Name, s.LoopStart, s.LoopEnd, len(s.Data))
	}
	return nil
}
