package controller

// MIDI controller numbers handled by the channel.
const (
	BankSelect          = 0
	ModulationWheel     = 1
	PortamentoTime      = 5
	DataEntryMSB        = 6
	MainVolume          = 7
	Balance             = 8
	Pan                 = 10
	Expression          = 11
	BankSelectLSB       = 32
	DataEntryLSB        = 38
	SustainPedal        = 64
	PortamentoOnOff     = 65
	SostenutoPedal      = 66
	SoftPedal           = 67
	FilterResonance     = 71
	ReleaseTime         = 72
	AttackTime          = 73
	Brightness          = 74
	DecayTime           = 75
	VibratoRate         = 76
	VibratoDepth        = 77
	VibratoDelay        = 78
	PortamentoControl   = 84
	ReverbDepth         = 91
	TremoloDepth        = 92
	ChorusDepth         = 93
	DataIncrement       = 96
	DataDecrement       = 97
	NRPNLSB             = 98
	NRPNMSB             = 99
	RPNLSB              = 100
	RPNMSB              = 101
	AllSoundOff         = 120
	ResetAllControllers = 121
	LocalControl        = 122
	AllNotesOff         = 123
	OmniModeOff         = 124
	OmniModeOn          = 125
	MonoModeOn          = 126
	PolyModeOn          = 127
)

// Count is the number of MIDI continuous controllers.
const Count = 128

// defaults holds the 7-bit power-on value of every controller that is not 0.
var defaults = map[int]int{
	MainVolume:      100,
	Balance:         64,
	Pan:             64,
	Expression:      127,
	FilterResonance: 64,
	ReleaseTime:     64,
	AttackTime:      64,
	Brightness:      64,
	DecayTime:       64,
	VibratoRate:     64,
	VibratoDepth:    64,
	VibratoDelay:    64,
	NRPNLSB:         127,
	NRPNMSB:         127,
	RPNLSB:          127,
	RPNMSB:          127,
}

// keptOnReset lists the controllers RP-15 says "reset all controllers"
// must leave alone.
var keptOnReset = map[int]bool{
	BankSelect:      true,
	BankSelectLSB:   true,
	MainVolume:      true,
	Pan:             true,
	ReverbDepth:     true,
	ChorusDepth:     true,
	FilterResonance: true,
	ReleaseTime:     true,
	AttackTime:      true,
	Brightness:      true,
	DecayTime:       true,
	VibratoRate:     true,
	VibratoDepth:    true,
	VibratoDelay:    true,
	PortamentoTime:  true,
}
