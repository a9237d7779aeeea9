package controller

import "strings"

// System is the MIDI system whose bank select semantics a synth follows.
type System string

const (
	SystemGM  System = "gm"
	SystemGM2 System = "gm2"
	SystemGS  System = "gs"
	SystemXG  System = "xg"
)

// Bank numbers with a fixed meaning in XG and GM2.
const (
	xgSFXBank      = 64
	gm2DrumBank    = 120
	gm2DefaultBank = 121
	drumBank       = 128
)

// ParseSystem accepts "gm", "gm2", "gs" or "xg" in any case.
func ParseSystem(s string) (System, bool) {
	switch sys := System(strings.ToLower(strings.TrimSpace(s))); sys {
	case SystemGM, SystemGM2, SystemGS, SystemXG:
		return sys, true
	}
	return "", false
}

// IsXG reports whether bank numbers follow the XG/GM2 layout.
func (s System) IsXG() bool {
	return s == SystemXG || s == SystemGM2
}

// IsXGDrums reports whether an XG bank MSB selects a drum kit.
func IsXGDrums(bank int) bool {
	return bank == gm2DrumBank || bank == 126 || bank == 127
}

// IsValidXGMSB reports whether an XG bank MSB is one XG defines.
func IsValidXGMSB(bank int) bool {
	return bank == 0 || IsXGDrums(bank) || bank == xgSFXBank || bank == gm2DefaultBank
}

// DefaultBank is the bank MSB a channel starts with.
func DefaultBank(s System) int {
	if s == SystemGM2 {
		return gm2DefaultBank
	}
	return 0
}

// DrumChange is the effect a bank select has on a channel's drum flag.
type DrumChange int

const (
	DrumsUnchanged DrumChange = iota
	DrumsOn
	DrumsOff
)

// ParseBankSelect applies a bank select MSB (or LSB when lsb is set) under
// the rules of s. before is the buffered bank; the result replaces it and
// becomes effective at the next program change.
func ParseBankSelect(s System, before, value int, lsb bool, channel int) (int, DrumChange) {
	if lsb {
		switch {
		case s == SystemXG && !IsValidXGMSB(value):
			return value, DrumsUnchanged
		case s == SystemGM2:
			return value, DrumsUnchanged
		}
		return before, DrumsUnchanged
	}
	switch s {
	case SystemGM:
		return before, DrumsUnchanged
	case SystemXG:
		if !IsValidXGMSB(value) {
			return before, DrumsUnchanged
		}
		if IsXGDrums(value) {
			return value, DrumsOn
		}
		if channel%16 == 9 && value == 0 {
			return value, DrumsUnchanged
		}
		return value, DrumsOff
	case SystemGM2:
		if value == gm2DrumBank {
			return value, DrumsOn
		}
		if channel%16 != 9 {
			return value, DrumsOff
		}
	}
	return value, DrumsUnchanged
}

// ChooseBank maps the buffered bank select of a channel onto the
// (bank, bankLSB) pair a SoundFont preset lookup expects.
func ChooseBank(s System, msb, lsb int, drums bool) (int, int) {
	switch s {
	case SystemGM:
		if drums {
			return drumBank, 0
		}
		return 0, 0
	case SystemXG:
		if drums {
			if IsXGDrums(msb) {
				return msb, 0
			}
			return drumBank, 0
		}
		return msb, lsb
	case SystemGM2:
		if drums || msb == gm2DrumBank {
			return drumBank, 0
		}
		if msb == gm2DefaultBank {
			return 0, lsb
		}
		return msb, lsb
	}
	if drums {
		// GS drum kits live in the reserved range above the melodic banks.
		return drumBank + msb, lsb
	}
	return msb, lsb
}
