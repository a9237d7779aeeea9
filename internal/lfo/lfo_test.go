package lfo

import (
	"math"
	"testing"
)

func TestLFOTriangleBasicShape(t *testing.T) {
	l := &LFO{}
	l.Set(0, 1.0) // 1 Hz, no delay

	cases := []struct {
		t    float64
		want float64
	}{
		{0, 0},
		{0.25, 1},
		{0.5, 0},
		{0.75, -1},
		{1.0, 0},
		{1.125, 0.5},
	}
	for _, tc := range cases {
		if got := l.Value(tc.t); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("triangle at %.3fs: got %f, want %f", tc.t, got, tc.want)
		}
	}
}

func TestLFODelay(t *testing.T) {
	l := &LFO{}
	l.Set(0.5, 2.0)

	if v := l.Value(0.49); v != 0 {
		t.Errorf("before delay: got %f, want 0", v)
	}
	// 2 Hz: a quarter cycle after the delay is the positive peak
	if v := l.Value(0.625); math.Abs(v-1) > 1e-9 {
		t.Errorf("quarter cycle after delay: got %f, want 1", v)
	}
}

func TestLFOZeroRateReturnsZero(t *testing.T) {
	l := &LFO{}
	l.Set(0, 0)

	if v := l.Value(0.3); v != 0 {
		t.Errorf("zero rate should return 0, got %f", v)
	}
}

func TestLFOActive(t *testing.T) {
	l := &LFO{}
	if l.Active() {
		t.Error("default LFO should not be active")
	}
	l.Set(0, 5.0)
	if !l.Active() {
		t.Error("configured LFO should be active")
	}
	l.Reset()
	if l.Active() {
		t.Error("reset LFO should not be active")
	}
}

func TestLFOOutputBounded(t *testing.T) {
	l := &LFO{}
	l.Set(0.01, 7.3)
	for i := 0; i < 10000; i++ {
		v := l.Value(float64(i) / 4410)
		if v < -1 || v > 1 {
			t.Fatalf("value out of range at step %d: %f", i, v)
		}
	}
}

func TestUnitConversions(t *testing.T) {
	if got := TimecentsToSeconds(0); got != 1 {
		t.Errorf("0 timecents = %f s, want 1", got)
	}
	if got := TimecentsToSeconds(1200); math.Abs(got-2) > 1e-12 {
		t.Errorf("1200 timecents = %f s, want 2", got)
	}
	if got := TimecentsToSeconds(-32768); got != 0 {
		t.Errorf("-32768 timecents = %f s, want 0", got)
	}
	if got := AbsCentsToHz(0); math.Abs(got-8.176) > 1e-9 {
		t.Errorf("0 abs cents = %f Hz, want 8.176", got)
	}
}
