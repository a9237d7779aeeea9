// Package soundbank holds the read-only instrument data a synthesizer plays:
// presets, instruments, zones, generators, modulators and samples.
//
// A SoundBank is immutable once handed to a synthesizer and may be shared by
// any number of them concurrently. Loaders build banks with the constructors
// in this package and check them with Validate.
package soundbank

import "time"

// Version is a major.minor format or ROM version.
type Version struct {
	Major, Minor int
}

// FeatureFlagKey addresses one flag of the extended feature-flag table.
type FeatureFlagKey struct {
	Branch uint8
	Leaf   uint8
}

// Info is the descriptive record of a bank. Optional fields are nil when
// the source format did not carry them.
type Info struct {
	Name         string
	Version      Version
	CreationDate time.Time
	SoundEngine  string
	Engineer     *string
	Product      *string
	Copyright    *string
	Comment      *string
	Subject      *string
	Software     *string
	ROMName      *string
	ROMVersion   *Version
	FeatureFlags map[FeatureFlagKey]uint32
}

// FeatureFlag returns the flag stored at (branch, leaf).
func (i *Info) FeatureFlag(branch, leaf uint8) (uint32, bool) {
	v, ok := i.FeatureFlags[FeatureFlagKey{Branch: branch, Leaf: leaf}]
	return v, ok
}

// SetFeatureFlag stores a flag at (branch, leaf).
func (i *Info) SetFeatureFlag(branch, leaf uint8, flags uint32) {
	if i.FeatureFlags == nil {
		i.FeatureFlags = make(map[FeatureFlagKey]uint32)
	}
	i.FeatureFlags[FeatureFlagKey{Branch: branch, Leaf: leaf}] = flags
}

// SoundBank is a complete, resolved instrument collection.
type SoundBank struct {
	Info              Info
	Presets           []*Preset
	Instruments       []*Instrument
	Samples           []*Sample
	DefaultModulators []Modulator
}

// New returns an empty bank using the standard default modulators.
func New(name string) *SoundBank {
	return &SoundBank{
		Info:              Info{Name: name, Version: Version{Major: 2, Minor: 4}, SoundEngine: "E-mu 10K2"},
		DefaultModulators: append([]Modulator(nil), DefaultModulators...),
	}
}

// AddPreset registers p together with the instruments and samples it
// references.
func (b *SoundBank) AddPreset(p *Preset) {
	b.Presets = append(b.Presets, p)
	for _, pz := range p.Zones {
		in := pz.Instrument
		if in == nil || b.hasInstrument(in) {
			continue
		}
		b.Instruments = append(b.Instruments, in)
		for _, iz := range in.Zones {
			if iz.Sample != nil && !b.hasSample(iz.Sample) {
				b.Samples = append(b.Samples, iz.Sample)
			}
		}
	}
}

func (b *SoundBank) hasInstrument(in *Instrument) bool {
	for _, x := range b.Instruments {
		if x == in {
			return true
		}
	}
	return false
}

func (b *SoundBank) hasSample(s *Sample) bool {
	for _, x := range b.Samples {
		if x == s {
			return true
		}
	}
	return false
}

// FindPreset looks up (bank, bankLSB, program). When no preset matches
// exactly it falls back in order to: the same bank ignoring the LSB, a
// percussion kit for drum banks or the capital tone (bank 0) for melodic
// ones, any preset with the program, and finally the program 0 default.
// exact reports whether the first step matched. FindPreset returns nil only
// for an empty bank.
func (b *SoundBank) FindPreset(bank, bankLSB, program int, xg bool) (p *Preset, exact bool) {
	if len(b.Presets) == 0 {
		return nil, false
	}
	for _, p := range b.Presets {
		if p.Bank == bank && p.BankLSB == bankLSB && p.Program == program {
			return p, true
		}
	}
	if p := b.find(func(p *Preset) bool { return p.Bank == bank && p.Program == program }); p != nil {
		return p, false
	}
	drums := bank >= DrumBank || (xg && isXGDrumBank(bank))
	if drums {
		for _, want := range []int{program, 0} {
			if p := b.find(func(p *Preset) bool { return p.IsDrums() && p.Program == want }); p != nil {
				return p, false
			}
		}
		if p := b.find((*Preset).IsDrums); p != nil {
			return p, false
		}
	}
	melodic := func(p *Preset) bool { return !p.IsDrums() }
	steps := []func(*Preset) bool{
		func(p *Preset) bool { return p.Bank == 0 && p.Program == program },
		func(p *Preset) bool { return melodic(p) && p.Program == program },
		func(p *Preset) bool { return p.Bank == 0 && p.Program == 0 },
		melodic,
	}
	for _, match := range steps {
		if p := b.find(match); p != nil {
			return p, false
		}
	}
	return b.Presets[0], false
}

func (b *SoundBank) find(match func(*Preset) bool) *Preset {
	for _, p := range b.Presets {
		if match(p) {
			return p
		}
	}
	return nil
}
