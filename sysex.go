package sfsynth

import (
	"github.com/cbegin/sfsynth-go/internal/controller"
	"github.com/cbegin/sfsynth-go/soundbank"
)

// SysEx manufacturer IDs.
const (
	sysexNonRealtime = 0x7E
	sysexRealtime    = 0x7F
	sysexRoland      = 0x41
	sysexYamaha      = 0x43

	broadcastDevice = 0x7F
)

// gsParts maps GS part block numbers (the x of address 40 1x) onto MIDI
// channels: part 0 is the rhythm part on channel 9.
var gsParts = [16]int{9, 0, 1, 2, 3, 4, 5, 6, 7, 8, 10, 11, 12, 13, 14, 15}

// SystemExclusive applies a SysEx message. The leading 0xF0 and trailing
// 0xF7 are optional. Part parameters address channels shifted by
// channelOffset. Messages for other devices are ignored.
func (p *Processor) SystemExclusive(data []byte, channelOffset int) {
	if len(data) > 0 && data[0] == 0xF0 {
		data = data[1:]
	}
	if n := len(data); n > 0 && data[n-1] == 0xF7 {
		data = data[:n-1]
	}
	if len(data) < 3 {
		p.logger.Warn("short SysEx ignored", "len", len(data))
		return
	}
	var handled bool
	switch data[0] {
	case sysexNonRealtime:
		if !p.acceptsDevice(data[1]) {
			return
		}
		handled = p.universalNonRealtime(data)
	case sysexRealtime:
		if !p.acceptsDevice(data[1]) {
			return
		}
		handled = p.universalRealtime(data)
	case sysexRoland:
		if !p.acceptsDevice(data[1]) {
			return
		}
		handled = p.roland(data, channelOffset)
	case sysexYamaha:
		if !p.acceptsDevice(data[1] & 0x0F) {
			return
		}
		handled = p.yamaha(data, channelOffset)
	}
	if !handled {
		p.logger.Warn("unrecognized SysEx", "data", data)
		return
	}
	p.emit(Event{Kind: EventSystemExclusive, Data: append([]byte(nil), data...)})
}

func (p *Processor) acceptsDevice(id byte) bool {
	return p.cfg.deviceID == AllDevices || id == broadcastDevice || int(id) == p.cfg.deviceID
}

// universalNonRealtime handles General MIDI system on/off.
func (p *Processor) universalNonRealtime(data []byte) bool {
	if len(data) < 4 || data[2] != 0x09 {
		return false
	}
	switch data[3] {
	case 0x01:
		p.logger.Info("GM system on")
		p.reset(SystemGM)
	case 0x02:
		p.logger.Info("GM system off")
		p.reset(SystemGS)
	case 0x03:
		p.logger.Info("GM2 system on")
		p.reset(SystemGM2)
	default:
		return false
	}
	return true
}

// universalRealtime handles the device control messages (master volume,
// balance and tuning) and MIDI Tuning Standard note changes.
func (p *Processor) universalRealtime(data []byte) bool {
	if len(data) >= 4 && data[2] == 0x08 && data[3] == 0x02 {
		return p.noteTuningChange(data)
	}
	if len(data) < 6 || data[2] != 0x04 {
		return false
	}
	value := int(data[5]&0x7F)<<7 | int(data[4]&0x7F)
	switch data[3] {
	case 0x01:
		p.SetMasterGain(float64(value) / 16383)
	case 0x02:
		p.SetMasterPan(float64(value-8192) / 8192)
	case 0x03:
		p.SetMasterTuning(float64(value-8192) / 8192 * 100)
	case 0x04:
		p.coarseTuning = float64(int(data[5]&0x7F) - 64)
	default:
		return false
	}
	return true
}

// noteTuningChange applies a single note tuning change:
// 7F dev 08 02 program count [key semitone msb lsb]...
// A 7F 7F 7F entry means no change.
func (p *Processor) noteTuningChange(data []byte) bool {
	if len(data) < 6 {
		return false
	}
	program, count := int(data[4]&0x7F), int(data[5]&0x7F)
	entries := data[6:]
	if len(entries) < count*4 {
		p.logger.Warn("truncated tuning change", "program", program, "count", count)
		count = len(entries) / 4
	}
	for i := 0; i < count; i++ {
		e := entries[i*4 : i*4+4]
		if e[1] == 0x7F && e[2] == 0x7F && e[3] == 0x7F {
			continue
		}
		fraction := int(e[2]&0x7F)<<7 | int(e[3]&0x7F)
		p.SetKeyTuning(program, int(e[0]&0x7F), KeyTuning{
			Note:  int(e[1] & 0x7F),
			Cents: float64(fraction) / 16384 * 100,
		})
	}
	return true
}

// roland handles GS DT1 parameter writes: 41 dev 42 12 a1 a2 a3 value...
// checksum.
func (p *Processor) roland(data []byte, channelOffset int) bool {
	if len(data) < 8 || data[2] != 0x42 || data[3] != 0x12 {
		return false
	}
	a1, a2, a3 := data[4], data[5], data[6]
	value := int(data[7] & 0x7F)
	if a1 != 0x40 {
		return false
	}
	switch {
	case a2 == 0x00 && a3 == 0x7F:
		p.logger.Info("GS reset")
		p.reset(SystemGS)
	case a2 == 0x00 && a3 == 0x04:
		p.SetMasterGain(float64(value) / 127)
	case a2 == 0x00 && a3 == 0x05:
		p.SetTransposition(float64(value - 64))
	case a2 == 0x00 && a3 == 0x06:
		p.SetMasterPan(float64(value-64) / 64)
	case a2 == 0x01 && a3 == 0x33:
		p.reverb.SetLevel(float32(value) / 127)
	case a2 == 0x01 && a3 == 0x3A:
		p.chorus.SetLevel(float32(value) / 127)
	case a2&0xF0 == 0x10:
		c := p.channel(gsParts[a2&0x0F] + channelOffset)
		if c == nil {
			return true
		}
		return p.gsPart(c, a3, value)
	case a2&0xF0 == 0x20:
		c := p.channel(gsParts[a2&0x0F] + channelOffset)
		if c == nil {
			return true
		}
		return gsControllerAssign(c, a3, value)
	default:
		return false
	}
	return true
}

func (p *Processor) gsPart(c *Channel, param byte, value int) bool {
	switch param {
	case 0x00:
		c.ControllerChange(controller.BankSelect, value, true)
	case 0x01:
		c.ProgramChange(value)
	case 0x15:
		c.SetDrums(value > 0)
	case 0x16:
		c.SetTranspose(float64(value-64), true)
	case 0x19:
		c.ControllerChange(controller.MainVolume, value, true)
	case 0x1C:
		p.partPan(c, value)
	case 0x21:
		c.ControllerChange(controller.ChorusDepth, value, true)
	case 0x22:
		c.ControllerChange(controller.ReverbDepth, value, true)
	default:
		return false
	}
	return true
}

// gsControllerSources are the sources of the GS controller blocks at
// 40 2x 00 (modulation wheel), 20 (channel pressure) and 30 (poly pressure).
var gsControllerSources = map[byte]soundbank.ModulatorSource{
	0x00: soundbank.NewSource(soundbank.CurveLinear, false, false, true, controller.ModulationWheel),
	0x20: soundbank.NewSource(soundbank.CurveLinear, false, false, false, soundbank.SourceChannelPressure),
	0x30: soundbank.NewSource(soundbank.CurveLinear, false, false, false, soundbank.SourcePolyPressure),
}

// gsControllerAssign turns a GS controller block parameter into a dynamic
// modulator on c: pitch control, filter cutoff control and LFO pitch depth.
func gsControllerAssign(c *Channel, param byte, value int) bool {
	source, ok := gsControllerSources[param&0xF0]
	if !ok {
		return false
	}
	mod := soundbank.Modulator{Source: source}
	switch param & 0x0F {
	case 0x00:
		// semitones, 0x40 is no change
		mod.Destination = soundbank.GenFineTune
		mod.Amount = int16(max(-24, min(24, value-64)) * 100)
	case 0x01:
		// -9600..+9600 cents
		mod.Destination = soundbank.GenInitialFilterFc
		mod.Amount = int16((value - 64) * 150)
	case 0x04:
		// 0..600 cents
		mod.Destination = soundbank.GenVibLFOToPitch
		mod.Amount = int16(value * 600 / 127)
	default:
		return false
	}
	c.SetDynamicModulator(mod)
	return true
}

// partPan applies a part pan where 0 selects random panning.
func (p *Processor) partPan(c *Channel, value int) {
	if value == 0 {
		c.SetRandomPan(true)
		return
	}
	c.SetRandomPan(false)
	c.ControllerChange(controller.Pan, value, true)
}

// yamaha handles XG parameter changes: 43 1n 4C a1 a2 a3 value.
func (p *Processor) yamaha(data []byte, channelOffset int) bool {
	if len(data) < 7 || data[1]&0xF0 != 0x10 || data[2] != 0x4C {
		return false
	}
	a1, a2, a3 := data[3], data[4], data[5]
	value := int(data[6] & 0x7F)
	switch {
	case a1 == 0x00 && a2 == 0x00 && a3 == 0x7E:
		p.logger.Info("XG system on")
		p.reset(SystemXG)
	case a1 == 0x00 && a2 == 0x00 && a3 == 0x7F:
		p.reset(p.system)
	case a1 == 0x00 && a2 == 0x00 && a3 == 0x04:
		p.SetMasterGain(float64(value) / 127)
	case a1 == 0x00 && a2 == 0x00 && a3 == 0x06:
		p.SetTransposition(float64(value - 64))
	case a1 == 0x08:
		c := p.channel(int(a2) + channelOffset)
		if c == nil {
			return true
		}
		return p.xgPart(c, a3, value)
	default:
		return false
	}
	return true
}

func (p *Processor) xgPart(c *Channel, param byte, value int) bool {
	switch param {
	case 0x01:
		c.ControllerChange(controller.BankSelect, value, true)
	case 0x02:
		c.ControllerChange(controller.BankSelectLSB, value, true)
	case 0x03:
		c.ProgramChange(value)
	case 0x07:
		c.SetDrums(value != 0)
	case 0x08:
		c.SetTranspose(float64(value-64), true)
	case 0x0B:
		c.ControllerChange(controller.MainVolume, value, true)
	case 0x0E:
		p.partPan(c, value)
	case 0x12:
		c.ControllerChange(controller.ChorusDepth, value, true)
	case 0x13:
		c.ControllerChange(controller.ReverbDepth, value, true)
	default:
		return false
	}
	return true
}
