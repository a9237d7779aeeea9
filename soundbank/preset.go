package soundbank

// DrumBank is the bank number SoundFont banks use for percussion kits.
const DrumBank = 128

// Preset is the playable unit selected by bank and program.
type Preset struct {
	Name    string
	Program int
	Bank    int
	BankLSB int
	Global  Zone
	Zones   []*PresetZone
}

// NewPreset returns an empty preset.
func NewPreset(name string, bank, program int) *Preset {
	return &Preset{Name: name, Bank: bank, Program: program}
}

// AddZone appends a zone layering in and returns it for further setup.
func (p *Preset) AddZone(in *Instrument) *PresetZone {
	z := &PresetZone{Instrument: in}
	p.Zones = append(p.Zones, z)
	return z
}

// IsDrums reports whether the preset lives in a percussion bank.
func (p *Preset) IsDrums() bool {
	return p.Bank == DrumBank
}

// ZonesFor returns every preset/instrument zone pair that sounds for key
// and velocity, in bank order. The result may be empty.
func (p *Preset) ZonesFor(key, velocity int) []ZoneMatch {
	var out []ZoneMatch
	for _, pz := range p.Zones {
		if pz.Instrument == nil || !pz.matches(&p.Global, key, velocity) {
			continue
		}
		in := pz.Instrument
		for _, iz := range in.Zones {
			if iz.Sample == nil || !iz.matches(&in.Global, key, velocity) {
				continue
			}
			out = append(out, ZoneMatch{
				PresetGlobal:     &p.Global,
				Preset:           &pz.Zone,
				InstrumentGlobal: &in.Global,
				Instrument:       &iz.Zone,
				Sample:           iz.Sample,
			})
		}
	}
	return out
}

func isXGDrumBank(bank int) bool {
	return bank == 120 || bank == 126 || bank == 127
}
