package controller

type dataEntryState int

const (
	entryIdle dataEntryState = iota
	entryRPCoarse
	entryRPFine
	entryNRPCoarse
	entryNRPFine
)

// Registered parameter numbers.
const (
	RPNPitchBendRange  = 0x0000
	RPNFineTuning      = 0x0001
	RPNCoarseTuning    = 0x0002
	RPNModulationDepth = 0x0005
	RPNNull            = 0x3fff
)

// gsNRPNMSB is the NRPN MSB of Roland GS part parameters.
const gsNRPNMSB = 0x01

// Param names the derived value a data entry message changed.
type Param int

const (
	ParamNone Param = iota
	ParamPitchBendRange
	ParamFineTuning
	ParamCoarseTuning
	ParamModulationDepth
	ParamVibrato
	// ParamController means the NRPN maps onto a plain controller; the
	// caller must apply Entry.Controller = Entry.Value as a CC.
	ParamController
)

// Entry is the outcome of a parameter-number or data-entry controller.
type Entry struct {
	Param      Param
	Controller int
	Value      int
}

// IsDataEntry reports whether cc belongs to the RPN/NRPN pipeline.
func IsDataEntry(cc int) bool {
	switch cc {
	case DataEntryMSB, DataEntryLSB, DataIncrement, DataDecrement,
		NRPNLSB, NRPNMSB, RPNLSB, RPNMSB:
		return true
	}
	return false
}

// gsRemap maps GS NRPN (MSB 0x01) LSBs onto the sound controllers they
// alias.
var gsRemap = map[int]int{
	0x20: Brightness,
	0x21: FilterResonance,
	0x63: AttackTime,
	0x64: DecayTime,
	0x66: ReleaseTime,
}

// DataEntry runs one controller of the RPN/NRPN pipeline. Parameter
// number controllers select the target; data entry and increment/decrement
// controllers compose a value and apply it.
func (t *Table) DataEntry(cc, value int) Entry {
	value = clampInt(value, 0, 127)
	switch cc {
	case RPNMSB, RPNLSB, NRPNMSB, NRPNLSB:
		t.Set(cc, value)
		t.entry = map[int]dataEntryState{
			RPNMSB:  entryRPCoarse,
			RPNLSB:  entryRPFine,
			NRPNMSB: entryNRPCoarse,
			NRPNLSB: entryNRPFine,
		}[cc]
		return Entry{}
	case DataEntryMSB:
		t.Set(cc, value)
		return t.dataCoarse(value)
	case DataEntryLSB:
		t.Set(cc, value)
		return t.dataFine(value)
	case DataIncrement, DataDecrement:
		return t.dataStep(cc == DataIncrement)
	}
	return Entry{}
}

func (t *Table) rpn() int  { return t.Value(RPNMSB)<<7 | t.Value(RPNLSB) }
func (t *Table) nrpn() int { return t.Value(NRPNMSB)<<7 | t.Value(NRPNLSB) }

func (t *Table) dataCoarse(value int) Entry {
	switch t.entry {
	case entryRPCoarse, entryRPFine:
		switch t.rpn() {
		case RPNPitchBendRange:
			t.SetPitchWheelRange(float64(value * 100))
			return Entry{Param: ParamPitchBendRange}
		case RPNFineTuning:
			t.FineTuning = fineTuningCents(value<<7 | t.Value(DataEntryLSB))
			return Entry{Param: ParamFineTuning}
		case RPNCoarseTuning:
			t.CoarseTuning = float64(value - 64)
			return Entry{Param: ParamCoarseTuning}
		case RPNModulationDepth:
			t.ModulationDepth = float64(value*100) / 50
			return Entry{Param: ParamModulationDepth}
		}
	case entryNRPCoarse, entryNRPFine:
		if t.Value(NRPNMSB) != gsNRPNMSB {
			return Entry{}
		}
		lsb := t.Value(NRPNLSB)
		switch lsb {
		case 0x08:
			t.Vibrato.RateHz = float64(value) / 64 * 8
			return Entry{Param: ParamVibrato}
		case 0x09:
			t.Vibrato.DepthCents = float64(value) / 2
			return Entry{Param: ParamVibrato}
		case 0x0a:
			t.Vibrato.DelaySecond = float64(value) / 64 / 3
			return Entry{Param: ParamVibrato}
		}
		if target, ok := gsRemap[lsb]; ok {
			return Entry{Param: ParamController, Controller: target, Value: value}
		}
	}
	return Entry{}
}

func (t *Table) dataFine(value int) Entry {
	if t.entry != entryRPCoarse && t.entry != entryRPFine {
		return Entry{}
	}
	msb := t.Value(DataEntryMSB)
	switch t.rpn() {
	case RPNPitchBendRange:
		semis := int(t.pitchWheelRange) / 100
		t.SetPitchWheelRange(float64(semis*100 + value))
		return Entry{Param: ParamPitchBendRange}
	case RPNFineTuning:
		t.FineTuning = fineTuningCents(msb<<7 | value)
		return Entry{Param: ParamFineTuning}
	case RPNModulationDepth:
		t.ModulationDepth = (float64(msb*100) + float64(value)*100/128) / 50
		return Entry{Param: ParamModulationDepth}
	}
	return Entry{}
}

func (t *Table) dataStep(up bool) Entry {
	if (t.entry != entryRPCoarse && t.entry != entryRPFine) || t.rpn() != RPNPitchBendRange {
		return Entry{}
	}
	step := 100.0
	if !up {
		step = -100
	}
	t.SetPitchWheelRange(t.pitchWheelRange + step)
	return Entry{Param: ParamPitchBendRange}
}

// fineTuningCents maps a 14-bit RPN 1 value to +-100 cents.
func fineTuningCents(v int) float64 {
	return float64(v-8192) / 8192 * 100
}
