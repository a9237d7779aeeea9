package envelope

import (
	"math"
	"testing"

	"github.com/cbegin/sfsynth-go/soundbank"
)

const sr = 44100.0

func gens(set map[soundbank.GeneratorType]int32) *Generators {
	g := soundbank.DefaultGenerators()
	for k, v := range set {
		g[k] = v
	}
	return &g
}

// render advances e block by block from t and returns the last gain.
func render(e *Volume, t *float64, seconds float64) float32 {
	buf := make([]float32, 128)
	var last float32
	for *t < seconds {
		e.Advance(*t, buf, 0, 0.01)
		last = buf[len(buf)-1]
		*t += float64(len(buf)) / sr
	}
	return last
}

func TestVolumeInstantAttackSustains(t *testing.T) {
	var e Volume
	e.Init(gens(nil), 60, sr)
	now := 0.0
	g := render(&e, &now, 0.5)
	if math.Abs(float64(g)-1) > 1e-3 {
		t.Fatalf("sustained gain = %f, want 1", g)
	}
	if e.State() != StateSustain || e.Finished() {
		t.Fatalf("state = %v finished=%v", e.State(), e.Finished())
	}
}

func TestVolumeAttackRamps(t *testing.T) {
	var e Volume
	e.Init(gens(map[soundbank.GeneratorType]int32{soundbank.GenAttackVolEnv: 0}), 60, sr) // 1s attack
	now := 0.0
	early := render(&e, &now, 0.1)
	if e.State() != StateAttack {
		t.Fatalf("state = %v, want attack", e.State())
	}
	late := render(&e, &now, 0.9)
	if !(early < late) || late > 1 {
		t.Fatalf("attack must rise: early=%f late=%f", early, late)
	}
	if math.Abs(float64(late)-0.9) > 0.02 {
		t.Fatalf("linear attack at 0.9s = %f, want ~0.9", late)
	}
}

func TestVolumeDecayToSustain(t *testing.T) {
	// 1s decay for 100 dB, sustain at 20 dB (200 cB) -> reached after 0.2s
	var e Volume
	e.Init(gens(map[soundbank.GeneratorType]int32{
		soundbank.GenDecayVolEnv:   0,
		soundbank.GenSustainVolEnv: 200,
	}), 60, sr)
	now := 0.0
	render(&e, &now, 0.1)
	if e.State() != StateDecay {
		t.Fatalf("state = %v, want decay", e.State())
	}
	g := render(&e, &now, 0.5)
	if math.Abs(float64(g)-0.1) > 1e-3 {
		t.Fatalf("sustain gain = %f, want 0.1", g)
	}
	if e.State() != StateSustain {
		t.Fatalf("state = %v, want sustain", e.State())
	}
}

func TestVolumeReleaseReachesSilence(t *testing.T) {
	var e Volume
	e.Init(gens(map[soundbank.GeneratorType]int32{soundbank.GenReleaseVolEnv: -1200}), 60, sr) // 0.5s
	now := 0.0
	render(&e, &now, 0.1)
	e.Release(now)
	if !e.Released() {
		t.Fatalf("not released")
	}
	render(&e, &now, now+0.25)
	if e.Finished() {
		t.Fatalf("finished too early")
	}
	if e.Gain() > 0.01 {
		t.Fatalf("gain halfway through release = %f, want ~-50 dB", e.Gain())
	}
	render(&e, &now, now+0.3)
	if !e.Finished() || e.Gain() != 0 {
		t.Fatalf("release must end silent: finished=%v gain=%f", e.Finished(), e.Gain())
	}
}

func TestVolumeDelaySilent(t *testing.T) {
	var e Volume
	e.Init(gens(map[soundbank.GeneratorType]int32{soundbank.GenDelayVolEnv: -1200}), 60, sr) // 0.5s delay
	buf := make([]float32, 128)
	e.Advance(0, buf, 0, 0.01)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("sample %d = %f during delay", i, v)
		}
	}
	if e.State() != StateDelay {
		t.Fatalf("state = %v", e.State())
	}
}

func TestVolumeAttenuationSmoothing(t *testing.T) {
	var e Volume
	e.Init(gens(nil), 60, sr)
	buf := make([]float32, 128)
	e.Advance(0, buf, 600, 0.01)
	first := e.Gain()
	if first <= cbToGain(600) || first >= 1 {
		t.Fatalf("smoothed gain after one block = %f, want between target and start", first)
	}
	now := 128 / sr
	for i := 0; i < 100; i++ {
		e.Advance(now, buf, 600, 0.01)
		now += 128 / sr
	}
	if math.Abs(e.Gain()-cbToGain(600)) > 1e-4 {
		t.Fatalf("gain = %f, want %f", e.Gain(), cbToGain(600))
	}
}

func TestVolumeKeyScaledHold(t *testing.T) {
	set := map[soundbank.GeneratorType]int32{
		soundbank.GenHoldVolEnv:         0,
		soundbank.GenKeyNumToVolEnvHold: 100,
	}
	var low, high Volume
	low.Init(gens(set), 48, sr)
	high.Init(gens(set), 72, sr)
	if !(low.holdEnd > high.holdEnd) {
		t.Fatalf("lower keys must hold longer: %f vs %f", low.holdEnd, high.holdEnd)
	}
}

func TestModulationEnvelope(t *testing.T) {
	var m Modulation
	m.Init(gens(map[soundbank.GeneratorType]int32{
		soundbank.GenAttackModEnv:  -1200, // 0.5s
		soundbank.GenDecayModEnv:   0,     // 1s
		soundbank.GenSustainModEnv: 500,
		soundbank.GenReleaseModEnv: 0,
	}), 60)
	cases := []struct {
		t    float64
		want float64
	}{
		{0, 0},
		{0.25, 0.5},
		{0.5, 1},
		{0.75, 0.75},
		{3, 0.5},
	}
	for _, tc := range cases {
		if got := m.Value(tc.t); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("value at %.2f = %f, want %f", tc.t, got, tc.want)
		}
	}
	m.Release(3)
	if got := m.Value(3.5); math.Abs(got-0.25) > 1e-9 {
		t.Fatalf("release midpoint = %f, want 0.25", got)
	}
	if got := m.Value(10); got != 0 {
		t.Fatalf("after release = %f", got)
	}
}
