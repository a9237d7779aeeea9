package soundbank

// GeneratorType identifies a SoundFont 2 generator.
type GeneratorType int

const (
	GenStartAddrsOffset GeneratorType = iota
	GenEndAddrOffset
	GenStartLoopAddrsOffset
	GenEndLoopAddrsOffset
	GenStartAddrsCoarseOffset
	GenModLFOToPitch
	GenVibLFOToPitch
	GenModEnvToPitch
	GenInitialFilterFc
	GenInitialFilterQ
	GenModLFOToFilterFc
	GenModEnvToFilterFc
	GenEndAddrsCoarseOffset
	GenModLFOToVolume
	genUnused1
	GenChorusEffectsSend
	GenReverbEffectsSend
	GenPan
	genUnused2
	genUnused3
	genUnused4
	GenDelayModLFO
	GenFreqModLFO
	GenDelayVibLFO
	GenFreqVibLFO
	GenDelayModEnv
	GenAttackModEnv
	GenHoldModEnv
	GenDecayModEnv
	GenSustainModEnv
	GenReleaseModEnv
	GenKeyNumToModEnvHold
	GenKeyNumToModEnvDecay
	GenDelayVolEnv
	GenAttackVolEnv
	GenHoldVolEnv
	GenDecayVolEnv
	GenSustainVolEnv
	GenReleaseVolEnv
	GenKeyNumToVolEnvHold
	GenKeyNumToVolEnvDecay
	GenInstrument
	genReserved1
	GenKeyRange
	GenVelRange
	GenStartLoopAddrsCoarseOffset
	GenKeyNum
	GenVelocity
	GenInitialAttenuation
	genReserved2
	GenEndLoopAddrsCoarseOffset
	GenCoarseTune
	GenFineTune
	GenSampleID
	GenSampleModes
	genReserved3
	GenScaleTuning
	GenExclusiveClass
	GenOverridingRootKey
	genUnused5
	genEndOper

	// GeneratorCount is the size of a resolved generator set.
	GeneratorCount = int(genEndOper)
)

// Limit is the legal range and default of a generator.
type Limit struct {
	Min, Max, Default int32
}

var generatorLimits = [GeneratorCount]Limit{
	GenStartAddrsOffset:           {0, 32768, 0},
	GenEndAddrOffset:              {-32768, 32768, 0},
	GenStartLoopAddrsOffset:       {-32768, 32768, 0},
	GenEndLoopAddrsOffset:         {-32768, 32768, 0},
	GenStartAddrsCoarseOffset:     {0, 32768, 0},
	GenModLFOToPitch:              {-12000, 12000, 0},
	GenVibLFOToPitch:              {-12000, 12000, 0},
	GenModEnvToPitch:              {-12000, 12000, 0},
	GenInitialFilterFc:            {1500, 13500, 13500},
	GenInitialFilterQ:             {0, 960, 0},
	GenModLFOToFilterFc:           {-12000, 12000, 0},
	GenModEnvToFilterFc:           {-12000, 12000, 0},
	GenEndAddrsCoarseOffset:       {-32768, 32768, 0},
	GenModLFOToVolume:             {-960, 960, 0},
	GenChorusEffectsSend:          {0, 1000, 0},
	GenReverbEffectsSend:          {0, 1000, 0},
	GenPan:                        {-500, 500, 0},
	GenDelayModLFO:                {-12000, 5000, -12000},
	GenFreqModLFO:                 {-16000, 4500, 0},
	GenDelayVibLFO:                {-12000, 5000, -12000},
	GenFreqVibLFO:                 {-16000, 4500, 0},
	GenDelayModEnv:                {-32768, 5000, -32768},
	GenAttackModEnv:               {-32768, 8000, -32768},
	GenHoldModEnv:                 {-32768, 5000, -32768},
	GenDecayModEnv:                {-32768, 8000, -32768},
	GenSustainModEnv:              {0, 1000, 0},
	GenReleaseModEnv:              {-32768, 8000, -32768},
	GenKeyNumToModEnvHold:         {-1200, 1200, 0},
	GenKeyNumToModEnvDecay:        {-1200, 1200, 0},
	GenDelayVolEnv:                {-32768, 5000, -32768},
	GenAttackVolEnv:               {-32768, 8000, -32768},
	GenHoldVolEnv:                 {-32768, 5000, -32768},
	GenDecayVolEnv:                {-32768, 8000, -32768},
	GenSustainVolEnv:              {0, 1440, 0},
	GenReleaseVolEnv:              {-32768, 8000, -32768},
	GenKeyNumToVolEnvHold:         {-1200, 1200, 0},
	GenKeyNumToVolEnvDecay:        {-1200, 1200, 0},
	GenStartLoopAddrsCoarseOffset: {-32768, 32768, 0},
	GenKeyNum:                     {-1, 127, -1},
	GenVelocity:                   {-1, 127, -1},
	GenInitialAttenuation:         {0, 1440, 0},
	GenEndLoopAddrsCoarseOffset:   {-32768, 32768, 0},
	GenCoarseTune:                 {-120, 120, 0},
	GenFineTune:                   {-12700, 12700, 0},
	GenSampleModes:                {0, 3, 0},
	GenScaleTuning:                {0, 1200, 100},
	GenExclusiveClass:             {0, 99999, 0},
	GenOverridingRootKey:          {-1, 127, -1},
}

// Valid reports whether t names a generator that may appear in a zone.
func (t GeneratorType) Valid() bool {
	switch t {
	case genUnused1, genUnused2, genUnused3, genUnused4, genReserved1,
		genReserved2, genReserved3, genUnused5:
		return false
	}
	return t >= 0 && t < genEndOper
}

// Limits returns the legal range and default of t.
func (t GeneratorType) Limits() Limit {
	if t < 0 || t >= genEndOper {
		return Limit{}
	}
	return generatorLimits[t]
}

// Clamp forces v into the legal range of t. Selector and range generators
// have no limits and pass through untouched.
func (t GeneratorType) Clamp(v int32) int32 {
	l := t.Limits()
	if l.Min == 0 && l.Max == 0 {
		return v
	}
	if v < l.Min {
		return l.Min
	}
	if v > l.Max {
		return l.Max
	}
	return v
}

// PresetAdditive reports whether a preset-level value of t is summed on
// top of the instrument value. Selectors, ranges, sample addressing and
// per-key overrides only make sense at instrument level.
func (t GeneratorType) PresetAdditive() bool {
	switch t {
	case GenStartAddrsOffset, GenEndAddrOffset, GenStartLoopAddrsOffset,
		GenEndLoopAddrsOffset, GenStartAddrsCoarseOffset, GenEndAddrsCoarseOffset,
		GenStartLoopAddrsCoarseOffset, GenEndLoopAddrsCoarseOffset,
		GenInstrument, GenSampleID, GenKeyRange, GenVelRange, GenKeyNum,
		GenVelocity, GenSampleModes, GenExclusiveClass, GenOverridingRootKey:
		return false
	}
	return t.Valid()
}

// DefaultGenerators returns a generator set holding every default value.
func DefaultGenerators() [GeneratorCount]int32 {
	var g [GeneratorCount]int32
	for i := range g {
		g[i] = generatorLimits[i].Default
	}
	return g
}

// Generator is a single (type, amount) pair stored in a zone.
type Generator struct {
	Type  GeneratorType
	Value int16
}
