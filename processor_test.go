package sfsynth

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/cbegin/sfsynth-go/internal/voice"
	"github.com/cbegin/sfsynth-go/soundbank"
)

const testRate = 44100

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dc(n int) []float32 {
	data := make([]float32, n)
	for i := range data {
		data[i] = 0.5
	}
	return data
}

// addPreset adds a preset with one looping zone per setup function (or a
// single plain zone when none is given).
func addPreset(b *soundbank.SoundBank, name string, bank, program int, setups ...func(z *soundbank.InstrumentZone)) *soundbank.Preset {
	in := soundbank.NewInstrument(name)
	if len(setups) == 0 {
		setups = []func(z *soundbank.InstrumentZone){nil}
	}
	for _, setup := range setups {
		z := in.AddZone(soundbank.NewSample(name, dc(4410), testRate, 60))
		z.SetGenerator(soundbank.GenSampleModes, 1)
		if setup != nil {
			setup(z)
		}
	}
	p := soundbank.NewPreset(name, bank, program)
	p.AddZone(in)
	b.AddPreset(p)
	return p
}

func testBank() *soundbank.SoundBank {
	b := soundbank.New("test")
	addPreset(b, "Piano", 0, 0)
	addPreset(b, "Organ", 0, 3)
	addPreset(b, "Bank5 Organ", 5, 3)
	addPreset(b, "Standard Kit", 128, 0)
	addPreset(b, "Room Kit", 128+5, 8)
	class := func(z *soundbank.InstrumentZone) { z.SetGenerator(soundbank.GenExclusiveClass, 1) }
	addPreset(b, "Hi-Hat", 0, 10, class, class)
	return b
}

func newTestProcessor(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger()), WithRandomSeed(1)}, opts...)
	p, err := NewProcessor(testRate, testBank(), opts...)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	return p
}

// renderSeconds renders the dry mix for roughly d seconds and returns the
// peak absolute sample.
func renderSeconds(p *Processor, d float64) float32 {
	out := NewStereo(BlockSize)
	var peak float32
	for i := 0; i < int(d*testRate)/BlockSize+1; i++ {
		out.clear()
		p.Render(out, Stereo{}, Stereo{})
		for j := range out.Left {
			peak = max(peak, float32(math.Abs(float64(out.Left[j]))), float32(math.Abs(float64(out.Right[j]))))
		}
	}
	return peak
}

func TestNewProcessorValidatesConfig(t *testing.T) {
	cases := []struct {
		name string
		rate int
		bank *soundbank.SoundBank
		opts []Option
	}{
		{"zero rate", 0, testBank(), nil},
		{"nil bank", testRate, nil, nil},
		{"zero cap", testRate, testBank(), []Option{WithVoiceCap(0)}},
		{"no channels", testRate, testBank(), []Option{WithChannelCount(0)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewProcessor(tc.rate, tc.bank, tc.opts...); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestProcessorStartsWithDefaults(t *testing.T) {
	p := newTestProcessor(t)
	if p.ChannelCount() != DefaultChannelCount {
		t.Fatalf("channels = %d", p.ChannelCount())
	}
	if p.System() != SystemGS {
		t.Fatalf("system = %s", p.System())
	}
	if p.VoiceCap() != DefaultVoiceCap {
		t.Fatalf("cap = %d", p.VoiceCap())
	}
	if got := p.Channel(0).Preset().Name; got != "Piano" {
		t.Fatalf("channel 0 preset = %q", got)
	}
	if !p.Channel(PercussionChannel).Drums() {
		t.Fatalf("channel 9 must start as drums")
	}
	if got := p.Channel(PercussionChannel).Preset().Name; got != "Standard Kit" {
		t.Fatalf("channel 9 preset = %q", got)
	}
}

func TestNoteOnSpawnsOneVoice(t *testing.T) {
	p := newTestProcessor(t)
	p.NoteOn(0, 60, 100)
	if got := p.VoiceCount(); got != 1 {
		t.Fatalf("voices = %d, want 1", got)
	}
	if peak := renderSeconds(p, 0.05); peak == 0 {
		t.Fatalf("expected audible output")
	}
}

func TestNoteOffReleasesAndRemovesVoice(t *testing.T) {
	p := newTestProcessor(t)
	p.NoteOn(0, 60, 100)
	renderSeconds(p, 0.1)
	p.NoteOff(0, 60)
	renderSeconds(p, 0.5)
	if got := p.VoiceCount(); got != 0 {
		t.Fatalf("voices after release = %d, want 0", got)
	}
}

func TestVelocityZeroIsNoteOff(t *testing.T) {
	p := newTestProcessor(t)
	p.ProcessMessage([]byte{0x90, 60, 100}, 0, false)
	renderSeconds(p, 0.1)
	p.ProcessMessage([]byte{0x90, 60, 0}, 0, false)
	renderSeconds(p, 0.5)
	if got := p.VoiceCount(); got != 0 {
		t.Fatalf("voices = %d, want 0", got)
	}
}

func TestVoiceCapEvictsExistingVoices(t *testing.T) {
	p := newTestProcessor(t, WithVoiceCap(350))
	for i := 0; i < 400; i++ {
		p.NoteOn(i%8, 20+i%80, 100)
	}
	if got := p.VoiceCount(); got != 350 {
		t.Fatalf("voices = %d, want 350", got)
	}
	p.SetVoiceCap(100)
	if got := p.VoiceCount(); got != 100 {
		t.Fatalf("voices after lowering cap = %d, want 100", got)
	}
}

func TestVoiceCapEvictsReleasingThenQuietest(t *testing.T) {
	b := soundbank.New("pads")
	addPreset(b, "Pad", 0, 0, func(z *soundbank.InstrumentZone) {
		z.SetGenerator(soundbank.GenReleaseVolEnv, 1200)
	})
	p, err := NewProcessor(testRate, b, WithLogger(quietLogger()), WithVoiceCap(350), WithEffects(false))
	if err != nil {
		t.Fatal(err)
	}
	for ch := 0; ch < 4; ch++ {
		for note := 20; note < 95; note++ {
			p.NoteOn(ch, note, 127)
		}
	}
	renderSeconds(p, 0.05)
	for note := 20; note < 95; note++ {
		p.NoteOff(0, note)
	}
	for note := 20; note < 45; note++ {
		p.NoteOff(1, note)
	}
	for note := 20; note < 70; note++ {
		p.NoteOn(4, note, 127)
		p.NoteOn(5, note, 20)
	}
	count := func() (sounding, releasing int) {
		for _, c := range p.channels {
			for _, v := range c.voices {
				if v.Releasing() {
					releasing++
				} else {
					sounding++
				}
			}
		}
		return sounding, releasing
	}
	if s, r := count(); s != 300 || r != 50 {
		t.Fatalf("after admitting 100 notes: sounding=%d releasing=%d, want 300/50", s, r)
	}
	renderSeconds(p, 0.02)
	p.SetVoiceCap(250)
	if s, r := count(); s != 250 || r != 0 {
		t.Fatalf("after lowering cap: sounding=%d releasing=%d, want 250/0", s, r)
	}
	if got := p.Channel(5).VoiceCount(); got != 0 {
		t.Fatalf("quiet channel kept %d voices, want 0", got)
	}
	if got := p.Channel(4).VoiceCount(); got != 50 {
		t.Fatalf("loud channel kept %d voices, want 50", got)
	}
}

func TestEvictionPrefersReleasingVoices(t *testing.T) {
	p := newTestProcessor(t, WithVoiceCap(2))
	p.NoteOn(0, 60, 127)
	p.NoteOn(0, 62, 127)
	renderSeconds(p, 0.01)
	p.NoteOff(0, 60)
	p.NoteOn(0, 64, 127)
	c := p.Channel(0)
	if c.VoiceCount() != 2 {
		t.Fatalf("voices = %d", c.VoiceCount())
	}
	for _, v := range c.voices {
		if v.Note == 60 {
			t.Fatalf("releasing voice survived eviction")
		}
	}
}

func TestGSBankSelectRoundTrip(t *testing.T) {
	p := newTestProcessor(t)
	p.ControllerChange(0, 0, 5, false)
	p.ControllerChange(0, 32, 0, false)
	p.ProgramChange(0, 3)
	if got := p.Channel(0).Preset().Name; got != "Bank5 Organ" {
		t.Fatalf("preset = %q, want Bank5 Organ", got)
	}
	p.ControllerChange(0, 0, 0, false)
	p.ProgramChange(0, 3)
	if got := p.Channel(0).Preset().Name; got != "Organ" {
		t.Fatalf("preset = %q, want Organ", got)
	}
	// GS drum kits are addressed above bank 128
	p.ControllerChange(PercussionChannel, 0, 5, false)
	p.ProgramChange(PercussionChannel, 8)
	if got := p.Channel(PercussionChannel).Preset().Name; got != "Room Kit" {
		t.Fatalf("drum preset = %q, want Room Kit", got)
	}
}

func TestMissingPresetFallsBack(t *testing.T) {
	p := newTestProcessor(t)
	p.ProgramChange(0, 99)
	if got := p.Channel(0).Preset().Name; got != "Piano" {
		t.Fatalf("fallback preset = %q, want Piano", got)
	}
}

func TestPresetLockIgnoresProgramChange(t *testing.T) {
	p := newTestProcessor(t)
	c := p.Channel(0)
	c.LockPreset(true)
	p.ProgramChange(0, 3)
	if c.Preset().Name != "Piano" {
		t.Fatalf("locked preset changed to %q", c.Preset().Name)
	}
	c.LockPreset(false)
	p.ProgramChange(0, 3)
	if c.Preset().Name != "Organ" {
		t.Fatalf("preset = %q", c.Preset().Name)
	}
}

func TestExclusiveClassReleasesPreviousNote(t *testing.T) {
	p := newTestProcessor(t)
	p.ProgramChange(0, 10)
	c := p.Channel(0)
	p.NoteOn(0, 42, 100)
	if c.VoiceCount() != 2 {
		t.Fatalf("voices = %d, want 2 layered zones", c.VoiceCount())
	}
	for _, v := range c.voices {
		if v.Releasing() {
			t.Fatalf("siblings of one NoteOn must not cut each other")
		}
	}
	sounding := 0
	for _, v := range c.voices {
		if v.ExclusiveClass() == 1 && v.State() == voice.Sounding {
			sounding++
		}
	}
	if sounding != 2 {
		t.Fatalf("sounding class 1 voices = %d, want both siblings", sounding)
	}
	first := append(c.voices[:0:0], c.voices...)
	p.NoteOn(0, 46, 100)
	for _, v := range first {
		if !v.Releasing() {
			t.Fatalf("previous class member not released: %s", v.State())
		}
	}
	for _, v := range c.voices[2:] {
		if v.Releasing() {
			t.Fatalf("new voice released")
		}
	}
}

func TestSustainPedalDefersRelease(t *testing.T) {
	p := newTestProcessor(t)
	p.ControllerChange(0, 64, 127, false)
	p.NoteOn(0, 60, 100)
	p.NoteOff(0, 60)
	renderSeconds(p, 0.3)
	if p.VoiceCount() != 1 {
		t.Fatalf("sustained voice released")
	}
	p.ControllerChange(0, 64, 0, false)
	renderSeconds(p, 0.3)
	if p.VoiceCount() != 0 {
		t.Fatalf("voice not released on pedal up")
	}
}

func TestSostenutoHoldsOnlyEarlierNotes(t *testing.T) {
	p := newTestProcessor(t)
	p.NoteOn(0, 60, 100)
	p.ControllerChange(0, 66, 127, false)
	p.NoteOn(0, 64, 100)
	p.NoteOff(0, 60)
	p.NoteOff(0, 64)
	renderSeconds(p, 0.3)
	c := p.Channel(0)
	if c.VoiceCount() != 1 || c.voices[0].Note != 60 {
		t.Fatalf("sostenuto should hold note 60 only, voices = %d", c.VoiceCount())
	}
	p.ControllerChange(0, 66, 0, false)
	renderSeconds(p, 0.3)
	if c.VoiceCount() != 0 {
		t.Fatalf("voice not released on sostenuto up")
	}
}

func TestHighPerformanceCullsQuietNotes(t *testing.T) {
	p := newTestProcessor(t, WithHighPerformance(true))
	p.NoteOn(0, 60, 5)
	if p.VoiceCount() != 0 {
		t.Fatalf("quiet note should be culled")
	}
	p.NoteOn(0, 60, 30)
	if p.VoiceCount() != 1 {
		t.Fatalf("note under low load should play")
	}
}

func TestMutedChannelIgnoresNotes(t *testing.T) {
	p := newTestProcessor(t)
	p.NoteOn(0, 60, 100)
	p.Channel(0).SetMuted(true)
	if p.VoiceCount() != 0 {
		t.Fatalf("mute must kill voices")
	}
	p.NoteOn(0, 60, 100)
	if p.VoiceCount() != 0 {
		t.Fatalf("muted channel started a voice")
	}
}

func TestAllSoundOffKillsImmediately(t *testing.T) {
	p := newTestProcessor(t)
	p.NoteOn(0, 60, 100)
	p.NoteOn(0, 64, 100)
	p.ControllerChange(0, 120, 0, false)
	if p.VoiceCount() != 0 {
		t.Fatalf("voices = %d", p.VoiceCount())
	}
}

func TestLockedControllerNeedsForce(t *testing.T) {
	p := newTestProcessor(t)
	c := p.Channel(0)
	c.LockController(7, true)
	p.ControllerChange(0, 7, 10, false)
	if c.ControllerValue(7) != 100 {
		t.Fatalf("locked CC changed to %d", c.ControllerValue(7))
	}
	p.ControllerChange(0, 7, 10, true)
	if c.ControllerValue(7) != 10 {
		t.Fatalf("forced CC = %d", c.ControllerValue(7))
	}
}

func TestTranspositionSkipsDrums(t *testing.T) {
	p := newTestProcessor(t)
	p.SetTransposition(2.5)
	if got := p.Channel(0).Transpose(); got != 2.5 {
		t.Fatalf("melodic transpose = %v", got)
	}
	if got := p.Channel(PercussionChannel).Transpose(); got != 0 {
		t.Fatalf("drum transpose = %v", got)
	}
	p.NoteOn(0, 60, 100)
	if key := p.Channel(0).voices[0].Key; key != 62 {
		t.Fatalf("voice key = %d, want 62", key)
	}
}

func TestScheduleMessageRunsInOrder(t *testing.T) {
	p := newTestProcessor(t)
	var order []EventKind
	p.Subscribe(func(ev Event) { order = append(order, ev.Kind) })
	p.ScheduleMessage(0.01, []byte{0x90, 60, 100}, 0)
	p.ScheduleMessage(0.01, []byte{0x80, 60, 0}, 0)
	p.ScheduleMessage(0.005, []byte{0xB0, 7, 90}, 0)
	if p.Pending() != 3 {
		t.Fatalf("pending = %d", p.Pending())
	}
	renderSeconds(p, 0.02)
	want := []EventKind{EventControllerChange, EventNoteOn, EventNoteOff}
	if len(order) != len(want) {
		t.Fatalf("events = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("event %d = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestRenderAdvancesClock(t *testing.T) {
	p := newTestProcessor(t, WithInitialTime(1))
	p.Render(NewStereo(441), Stereo{}, Stereo{})
	if got := p.CurrentTime(); math.Abs(got-1.01) > 1e-9 {
		t.Fatalf("time = %v, want 1.01", got)
	}
}

func TestRenderSplitSeparatesChannels(t *testing.T) {
	p := newTestProcessor(t)
	p.NoteOn(1, 60, 127)
	outs := []Stereo{NewStereo(256), NewStereo(256)}
	p.RenderSplit(outs, Stereo{}, Stereo{})
	var e0, e1 float64
	for i := range outs[0].Left {
		e0 += math.Abs(float64(outs[0].Left[i]))
		e1 += math.Abs(float64(outs[1].Left[i]))
	}
	if e0 != 0 || e1 == 0 {
		t.Fatalf("channel 1 should only reach output 1: %f %f", e0, e1)
	}
}

func TestProcessInterleavesAndClips(t *testing.T) {
	p := newTestProcessor(t, WithLimiter(true))
	p.SetMasterGain(50)
	p.NoteOn(0, 60, 127)
	dst := make([]float32, 2*1000)
	p.Process(dst)
	var peak float32
	for _, v := range dst {
		if v > 1 || v < -1 {
			t.Fatalf("sample out of range: %f", v)
		}
		peak = max(peak, v)
	}
	if peak == 0 {
		t.Fatalf("expected output")
	}
	if math.Abs(p.CurrentTime()-1000.0/testRate) > 1e-9 {
		t.Fatalf("time = %v", p.CurrentTime())
	}
}

func TestMasterPanMovesBalance(t *testing.T) {
	p := newTestProcessor(t)
	p.SetMasterPan(-1)
	p.NoteOn(0, 60, 127)
	out := NewStereo(512)
	p.Render(out, Stereo{}, Stereo{})
	for i := range out.Right {
		if out.Right[i] != 0 {
			t.Fatalf("hard left master pan leaked right: %f", out.Right[i])
		}
	}
}

func TestSetSoundBankClearsCacheAndRebinds(t *testing.T) {
	p := newTestProcessor(t)
	p.NoteOn(0, 60, 100)
	if p.cache.Len() == 0 {
		t.Fatalf("expected cached templates")
	}
	b := soundbank.New("other")
	addPreset(b, "Strings", 0, 0)
	if err := p.SetSoundBank(b); err != nil {
		t.Fatal(err)
	}
	if p.VoiceCount() != 0 || p.cache.Len() != 0 {
		t.Fatalf("voices = %d cache = %d", p.VoiceCount(), p.cache.Len())
	}
	if p.Channel(0).Preset().Name != "Strings" {
		t.Fatalf("preset = %q", p.Channel(0).Preset().Name)
	}
	if err := p.SetSoundBank(nil); err == nil {
		t.Fatalf("expected error for nil bank")
	}
}

func TestAddChannelGrowsWithDrumsOnTen(t *testing.T) {
	p := newTestProcessor(t)
	for p.ChannelCount() < 32 {
		p.AddChannel()
	}
	if !p.Channel(16 + PercussionChannel).Drums() {
		t.Fatalf("channel 25 should be drums")
	}
	p.ProcessMessage([]byte{0x91, 60, 100}, 16, false)
	if p.Channel(17).VoiceCount() != 1 {
		t.Fatalf("offset message missed channel 17")
	}
	p.ProcessMessage([]byte{0x91, 60, 100}, 64, false)
}

func TestWatchDeliversEvents(t *testing.T) {
	p := newTestProcessor(t)
	ch := p.Watch()
	p.NoteOn(0, 60, 100)
	select {
	case ev := <-ch:
		if ev.Kind != EventNoteOn || ev.Note != 60 || ev.Preset != "Piano" {
			t.Fatalf("event = %+v", ev)
		}
	default:
		t.Fatalf("no event delivered")
	}
}

func TestSubscribeCancel(t *testing.T) {
	p := newTestProcessor(t)
	n := 0
	cancel := p.Subscribe(func(Event) { n++ })
	p.NoteOn(0, 60, 100)
	cancel()
	p.NoteOn(0, 61, 100)
	if n != 1 {
		t.Fatalf("callbacks = %d, want 1", n)
	}
}

func TestPitchWheelChangesPitch(t *testing.T) {
	p := newTestProcessor(t)
	p.NoteOn(0, 60, 100)
	v := p.Channel(0).voices[0]
	before := v.Generator(soundbank.GenFineTune)
	p.PitchWheel(0, 16383)
	if after := v.Generator(soundbank.GenFineTune); after <= before {
		t.Fatalf("fine tune %d -> %d, want increase", before, after)
	}
}

func TestResetRestoresChannels(t *testing.T) {
	p := newTestProcessor(t)
	p.ProgramChange(0, 3)
	p.ControllerChange(0, 7, 10, false)
	p.NoteOn(0, 60, 100)
	p.SetMasterGain(0.2)
	p.ProcessMessage([]byte{0xFF}, 0, false)
	c := p.Channel(0)
	if c.Preset().Name != "Piano" || c.ControllerValue(7) != 100 || p.VoiceCount() != 0 {
		t.Fatalf("reset left preset %q volume %d voices %d", c.Preset().Name, c.ControllerValue(7), p.VoiceCount())
	}
	if p.MasterGain() != 1 {
		t.Fatalf("master gain = %v", p.MasterGain())
	}
}

func TestRandomPanIsSeeded(t *testing.T) {
	pan := func() int32 {
		p := newTestProcessor(t)
		p.Channel(0).SetRandomPan(true)
		p.NoteOn(0, 60, 100)
		out := NewStereo(BlockSize)
		p.Render(out, Stereo{}, Stereo{})
		return int32(out.Left[BlockSize-1] * 1e6)
	}
	if a, b := pan(), pan(); a != b {
		t.Fatalf("same seed produced different output: %d %d", a, b)
	}
}

func TestKeyModifierOverridesVelocity(t *testing.T) {
	p := newTestProcessor(t)
	c := p.Channel(0)
	c.SetKeyModifier(60, 20, 0.5)
	p.NoteOn(0, 60, 127)
	if v := c.voices[0].Velocity; v != 20 {
		t.Fatalf("velocity = %d, want 20", v)
	}
	c.ClearKeyModifier(60)
	c.SetVelocityOverride(90)
	p.NoteOn(0, 60, 10)
	if v := c.voices[1].Velocity; v != 90 {
		t.Fatalf("velocity = %d, want 90", v)
	}
}

func TestResetAllControllersReleasesPedalHeldNotes(t *testing.T) {
	p := newTestProcessor(t)
	p.NoteOn(0, 60, 100)
	p.ControllerChange(0, 64, 127, false)
	p.NoteOff(0, 60)
	p.NoteOn(0, 64, 100)
	p.ControllerChange(0, 66, 127, false)
	p.NoteOff(0, 64)
	renderSeconds(p, 0.1)
	if p.VoiceCount() != 2 {
		t.Fatalf("pedals should hold both notes, voices = %d", p.VoiceCount())
	}
	p.ControllerChange(0, 121, 0, false)
	renderSeconds(p, 0.5)
	if got := p.VoiceCount(); got != 0 {
		t.Fatalf("voices after reset all controllers = %d, want 0", got)
	}
	if p.Channel(0).ControllerValue(64) != 0 {
		t.Fatalf("sustain pedal not reset")
	}
}

func TestKeyModifierFollowsTransposedKey(t *testing.T) {
	p := newTestProcessor(t)
	c := p.Channel(0)
	c.SetTranspose(2, false)
	c.SetKeyModifier(62, 20, 0)
	p.NoteOn(0, 60, 127)
	if v := c.voices[0].Velocity; v != 20 {
		t.Fatalf("velocity = %d, want 20 from key 62", v)
	}
	p.NoteOn(0, 62, 127)
	if v := c.voices[1].Velocity; v != 127 {
		t.Fatalf("velocity = %d, want untouched 127", v)
	}
}

func TestPortamentoFollowsTimeController(t *testing.T) {
	p := newTestProcessor(t)
	c := p.Channel(0)
	p.ControllerChange(0, 65, 127, false)
	p.ControllerChange(0, 5, 64, false)
	p.NoteOn(0, 60, 100)
	p.NoteOn(0, 72, 100)
	from, seconds := c.voices[1].Portamento()
	if from != 60 || math.Abs(seconds-2.06/3) > 1e-9 {
		t.Fatalf("portamento = (%d, %v), want (60, %v)", from, seconds, 2.06/3)
	}
	p.ControllerChange(0, 5, 0, false)
	p.NoteOn(0, 67, 100)
	if from, _ := c.voices[2].Portamento(); from != -1 {
		t.Fatalf("zero portamento time still glides from %d", from)
	}
}

func TestKeyTuningRetunesPresetKey(t *testing.T) {
	p := newTestProcessor(t)
	p.SetKeyTuning(0, 60, KeyTuning{Note: 67, Cents: 25})
	p.NoteOn(0, 60, 100)
	c := p.Channel(0)
	v := c.voices[0]
	if v.Note != 60 || v.Key != 67 {
		t.Fatalf("note %d key %d, want 60 / 67", v.Note, v.Key)
	}
	// program 3 has no tuning
	p.ProgramChange(1, 3)
	p.NoteOn(1, 60, 100)
	if k := p.Channel(1).voices[0].Key; k != 60 {
		t.Fatalf("untuned program key = %d", k)
	}
	p.NoteOff(0, 60)
	renderSeconds(p, 0.3)
	if c.VoiceCount() != 0 {
		t.Fatalf("retuned note ignored NoteOff")
	}
	p.ClearKeyTunings()
	if _, ok := p.KeyTuning(0, 60); ok {
		t.Fatalf("tuning survived clear")
	}
}

func TestMonophonicRetriggerCutsSameNote(t *testing.T) {
	p := newTestProcessor(t, WithMonophonicRetrigger(true))
	c := p.Channel(0)
	p.NoteOn(0, 60, 100)
	p.NoteOn(0, 64, 100)
	p.NoteOn(0, 60, 100)
	if c.VoiceCount() != 3 {
		t.Fatalf("voices = %d", c.VoiceCount())
	}
	if !c.voices[0].Releasing() || c.voices[1].Releasing() || c.voices[2].Releasing() {
		t.Fatalf("only the first note 60 should be cut: %s %s %s", c.voices[0].State(), c.voices[1].State(), c.voices[2].State())
	}
	p.SetMonophonicRetrigger(false)
	p.NoteOn(0, 64, 100)
	if c.voices[1].Releasing() {
		t.Fatalf("retrigger disabled but note 64 was cut")
	}
}

func TestDynamicModulatorReplacesIdenticalDefault(t *testing.T) {
	p := newTestProcessor(t)
	c := p.Channel(0)
	p.NoteOn(0, 60, 100)
	base := len(c.voices[0].Modulators())
	wheel := soundbank.NewSource(soundbank.CurveLinear, false, false, true, 1)
	c.SetDynamicModulator(soundbank.Modulator{Source: wheel, Destination: soundbank.GenVibLFOToPitch, Amount: 300})
	c.SetDynamicModulator(soundbank.Modulator{Source: wheel, Destination: soundbank.GenVibLFOToPitch, Amount: 400})
	c.SetDynamicModulator(soundbank.Modulator{Source: wheel, Destination: soundbank.GenInitialFilterFc, Amount: -2400})
	if got := len(c.DynamicModulators()); got != 2 {
		t.Fatalf("dynamic modulators = %d, want 2", got)
	}
	p.NoteOn(0, 62, 100)
	mods := c.voices[1].Modulators()
	if len(mods) != base+1 {
		t.Fatalf("voice modulators = %d, want %d", len(mods), base+1)
	}
	found := false
	for _, m := range mods {
		if m.Source == wheel && m.Destination == soundbank.GenVibLFOToPitch {
			if m.Amount != 400 {
				t.Fatalf("vibrato depth amount = %d, want 400", m.Amount)
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("wheel vibrato modulator missing")
	}
	if len(c.voices[0].Modulators()) != base {
		t.Fatalf("existing voice picked up dynamic modulators")
	}
	c.ClearDynamicModulators()
	p.NoteOn(0, 64, 100)
	if len(c.voices[2].Modulators()) != base {
		t.Fatalf("cleared modulators still applied")
	}
}

func TestGeneratorOverridePinsVoiceGenerator(t *testing.T) {
	p := newTestProcessor(t)
	c := p.Channel(0)
	c.SetGeneratorOverride(soundbank.GenCoarseTune, 5)
	c.SetGeneratorOverride(soundbank.GenCoarseTune, 12)
	p.NoteOn(0, 60, 100)
	if got := c.voices[0].Generator(soundbank.GenCoarseTune); got != 12 {
		t.Fatalf("coarse tune = %d, want 12", got)
	}
	if got := p.templates(c.Preset(), 60, 100)[0].Generators[soundbank.GenCoarseTune]; got != 0 {
		t.Fatalf("override leaked into cached template: %d", got)
	}
	c.SetGeneratorOverridesEnabled(false)
	p.NoteOn(0, 62, 100)
	if got := c.voices[1].Generator(soundbank.GenCoarseTune); got != 0 {
		t.Fatalf("disabled override applied: %d", got)
	}
	c.SetGeneratorOverridesEnabled(true)
	c.ClearGeneratorOverride(soundbank.GenCoarseTune)
	p.NoteOn(0, 64, 100)
	if got := c.voices[2].Generator(soundbank.GenCoarseTune); got != 0 {
		t.Fatalf("cleared override applied: %d", got)
	}
}

func TestResetDropsScheduledMessages(t *testing.T) {
	p := newTestProcessor(t)
	p.ScheduleMessage(1, []byte{0x90, 60, 100}, 0)
	p.ProcessMessage([]byte{0xFF}, 0, false)
	if p.Pending() != 1 {
		t.Fatalf("in-stream reset dropped scheduled messages")
	}
	p.Reset()
	if p.Pending() != 0 {
		t.Fatalf("pending after Reset = %d", p.Pending())
	}
}
