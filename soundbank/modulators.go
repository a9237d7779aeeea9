package soundbank

// CurveType is the shape a modulator source is mapped through.
type CurveType int

const (
	CurveLinear CurveType = iota
	CurveConcave
	CurveConvex
	CurveSwitch
)

// Non-controller source indexes (CC flag clear).
const (
	SourceNoController    = 0
	SourceVelocity        = 2
	SourceKeyNum          = 3
	SourcePolyPressure    = 10
	SourceChannelPressure = 13
	SourcePitchWheel      = 14
	SourcePitchWheelRange = 16
	SourceLink            = 127
)

// TransformAbsolute makes the modulator output its absolute value.
const TransformAbsolute uint16 = 2

// ModulatorSource is a packed SoundFont 2 modulator source: bits 0-6 hold
// the index, bit 7 selects a MIDI CC, bit 8 the direction, bit 9 the
// polarity and bits 10-15 the curve type.
type ModulatorSource uint16

// NewSource packs a modulator source.
func NewSource(curve CurveType, bipolar, negative, cc bool, index int) ModulatorSource {
	s := ModulatorSource(index&0x7f) | ModulatorSource(curve&0x3f)<<10
	if cc {
		s |= 1 << 7
	}
	if negative {
		s |= 1 << 8
	}
	if bipolar {
		s |= 1 << 9
	}
	return s
}

func (s ModulatorSource) Index() int         { return int(s & 0x7f) }
func (s ModulatorSource) IsCC() bool         { return s&(1<<7) != 0 }
func (s ModulatorSource) Negative() bool     { return s&(1<<8) != 0 }
func (s ModulatorSource) Bipolar() bool      { return s&(1<<9) != 0 }
func (s ModulatorSource) Curve() CurveType   { return CurveType(s >> 10) }
func (s ModulatorSource) UsesCC(cc int) bool { return s.IsCC() && s.Index() == cc }

// Modulator routes one or two sources into a generator destination.
type Modulator struct {
	Source          ModulatorSource
	SecondarySource ModulatorSource
	Destination     GeneratorType
	Amount          int16
	Transform       uint16
}

// Identical reports whether a and b share the same identity, meaning a
// more local zone's modulator replaces rather than adds to the other.
func Identical(a, b Modulator) bool {
	return a.Source == b.Source &&
		a.SecondarySource == b.SecondarySource &&
		a.Destination == b.Destination &&
		a.Transform == b.Transform
}

func ccSource(curve CurveType, bipolar, negative bool, cc int) ModulatorSource {
	return NewSource(curve, bipolar, negative, true, cc)
}

// DefaultModulators is the implicit modulator list applied to every voice:
// the SoundFont 2.04 defaults plus the sound controllers GS/XG files expect.
var DefaultModulators = []Modulator{
	// velocity to attenuation
	{Source: NewSource(CurveConcave, false, true, false, SourceVelocity), Destination: GenInitialAttenuation, Amount: 960},
	// velocity to filter cutoff
	{Source: NewSource(CurveLinear, false, true, false, SourceVelocity), Destination: GenInitialFilterFc, Amount: -2400},
	{Source: NewSource(CurveLinear, false, false, false, SourceChannelPressure), Destination: GenVibLFOToPitch, Amount: 50},
	{Source: NewSource(CurveLinear, false, false, false, SourcePolyPressure), Destination: GenVibLFOToPitch, Amount: 50},
	{Source: ccSource(CurveLinear, false, false, 1), Destination: GenVibLFOToPitch, Amount: 50},
	{Source: ccSource(CurveConcave, false, true, 7), Destination: GenInitialAttenuation, Amount: 960},
	{Source: ccSource(CurveLinear, true, false, 10), Destination: GenPan, Amount: 1000},
	{Source: ccSource(CurveConcave, false, true, 11), Destination: GenInitialAttenuation, Amount: 960},
	{Source: ccSource(CurveLinear, false, false, 91), Destination: GenReverbEffectsSend, Amount: 200},
	{Source: ccSource(CurveLinear, false, false, 93), Destination: GenChorusEffectsSend, Amount: 200},
	{
		Source:          NewSource(CurveLinear, true, false, false, SourcePitchWheel),
		SecondarySource: NewSource(CurveLinear, false, false, false, SourcePitchWheelRange),
		Destination:     GenFineTune,
		Amount:          12700,
	},
	// sound controllers
	{Source: ccSource(CurveLinear, true, false, 71), Destination: GenInitialFilterQ, Amount: 250},
	{Source: ccSource(CurveLinear, true, false, 72), Destination: GenReleaseVolEnv, Amount: 3600},
	{Source: ccSource(CurveLinear, true, false, 73), Destination: GenAttackVolEnv, Amount: 6000},
	{Source: ccSource(CurveLinear, true, false, 74), Destination: GenInitialFilterFc, Amount: 6000},
	{Source: ccSource(CurveLinear, true, false, 75), Destination: GenDecayVolEnv, Amount: 3600},
	{Source: ccSource(CurveLinear, false, false, 92), Destination: GenModLFOToVolume, Amount: 24},
}
