package voice

import (
	"math"

	"github.com/cbegin/sfsynth-go/internal/controller"
	"github.com/cbegin/sfsynth-go/internal/lfo"
	"github.com/cbegin/sfsynth-go/internal/panner"
	"github.com/cbegin/sfsynth-go/soundbank"
)

// Output is the set of buffers a voice mixes into. All slices have the
// block length; effect sends may be nil.
type Output struct {
	Left, Right             []float32
	ReverbLeft, ReverbRight []float32
	ChorusLeft, ChorusRight []float32
}

// RenderContext carries the channel and engine state a block depends on.
type RenderContext struct {
	// Time is the absolute synth time at the start of the block.
	Time        float64
	Controllers *controller.Table
	// TuningCents is added to every voice pitch (master and channel tuning).
	TuningCents   float64
	GainLeft      float64
	GainRight     float64
	Interpolation Interpolation
	Effects       bool
}

// Render adds one block of the voice to out. It returns false once the
// voice is silent for good and should be dropped.
func (v *Voice) Render(ctx *RenderContext, out Output) bool {
	if v.Done() {
		return false
	}
	n := len(out.Left)
	if n == 0 {
		return true
	}
	if cap(v.buf) < n {
		v.buf = make([]float32, n)
		v.gains = make([]float32, n)
	}
	buf, gains := v.buf[:n], v.gains[:n]
	g := &v.modulated
	t := ctx.Time - v.StartTime
	scale := 44100 / v.sampleRate

	modLFO := v.modLFO.Value(t)
	vibLFO := v.vibLFO.Value(t)
	modEnv := v.modEnv.Value(t)

	cents := v.pitchCents(ctx, t, modLFO, vibLFO, modEnv)
	step := v.baseStep() * math.Pow(2, cents/1200)
	inc := uint64(step * fracOne)

	looping := v.loopMode == 1 || (v.loopMode == 3 && ctx.Time < v.ReleaseTime)
	ended := v.fill(buf, inc, looping, ctx.Interpolation)

	cutoff := float64(g[soundbank.GenInitialFilterFc]) +
		modLFO*float64(g[soundbank.GenModLFOToFilterFc]) +
		modEnv*float64(g[soundbank.GenModEnvToFilterFc])
	v.lowpass.Process(buf, cutoff, float64(g[soundbank.GenInitialFilterQ]), filterSmoothing*scale)

	attenuation := float64(g[soundbank.GenInitialAttenuation]) + modLFO*float64(g[soundbank.GenModLFOToVolume])
	v.volEnv.Advance(t, gains, attenuation, volumeSmoothing*scale)
	v.rendered = true
	gain := float32(v.gain)
	for i := range buf {
		buf[i] *= gains[i] * gain
	}

	pan := float64(g[soundbank.GenPan])
	if v.hasOverridePan {
		pan = v.overridePan
	}
	v.pan.Mix(buf, pan, panSmoothing*scale, ctx.GainLeft, ctx.GainRight, out.Left, out.Right)

	if ctx.Effects {
		sendGain := (ctx.GainLeft + ctx.GainRight) / 2
		if out.ReverbLeft != nil {
			panner.Send(buf, float64(g[soundbank.GenReverbEffectsSend])/1000*sendGain, out.ReverbLeft, out.ReverbRight)
		}
		if out.ChorusLeft != nil {
			panner.Send(buf, float64(g[soundbank.GenChorusEffectsSend])/1000*sendGain, out.ChorusLeft, out.ChorusRight)
		}
	}

	if ended || v.volEnv.Finished() {
		v.state = Finished
		return false
	}
	return true
}

// pitchCents returns the block's pitch offset from the sample's recorded
// pitch.
func (v *Voice) pitchCents(ctx *RenderContext, t, modLFO, vibLFO, modEnv float64) float64 {
	g := &v.modulated
	scaleTuning := float64(g[soundbank.GenScaleTuning])
	key := float64(v.genKey)
	if v.portamentoFrom >= 0 && t < v.portamentoSeconds {
		// glide linearly from the previous key
		key += float64(v.portamentoFrom-v.genKey) * (1 - t/v.portamentoSeconds)
	}
	cents := (key-float64(v.template.RootKey()))*scaleTuning +
		float64(g[soundbank.GenFineTune]) +
		float64(g[soundbank.GenCoarseTune])*100 +
		float64(v.template.Sample.PitchCorrection) +
		ctx.TuningCents + v.tuningCents +
		modLFO*float64(g[soundbank.GenModLFOToPitch]) +
		vibLFO*float64(g[soundbank.GenVibLFOToPitch]) +
		modEnv*float64(g[soundbank.GenModEnvToPitch])
	if c := ctx.Controllers; c != nil {
		cents += c.FineTuning + c.CoarseTuning*100
		if vib := c.Vibrato; vib.Active() && t >= vib.DelaySecond {
			cents += lfo.Triangle((t-vib.DelaySecond)*vib.RateHz) * vib.DepthCents
		}
	}
	return cents
}

// fill reads the next len(buf) frames at inc frames per output sample. It
// reports true when a non-looping sample ran past its end.
func (v *Voice) fill(buf []float32, inc uint64, looping bool, interp Interpolation) bool {
	loopEnd := uint64(v.loopEnd) << 32
	loopLen := uint64(v.loopEnd-v.loopStart) << 32
	end := uint64(v.end) << 32
	for i := range buf {
		if looping {
			for v.cursor >= loopEnd {
				v.cursor -= loopLen
			}
		} else if v.cursor >= end {
			clear(buf[i:])
			return true
		}
		idx := int(v.cursor >> 32)
		frac := float32(v.cursor&(fracOne-1)) / fracOne
		switch interp {
		case InterpolationNearest:
			if frac >= 0.5 {
				idx++
			}
			buf[i] = v.frame(idx, looping)
		case InterpolationHermite:
			buf[i] = hermite(v.frame(idx-1, looping), v.frame(idx, looping), v.frame(idx+1, looping), v.frame(idx+2, looping), frac)
		default:
			a := v.frame(idx, looping)
			b := v.frame(idx+1, looping)
			buf[i] = a + (b-a)*frac
		}
		v.cursor += inc
	}
	return false
}

// frame returns sample frame i, wrapping inside the loop and clamping to
// the playable range.
func (v *Voice) frame(i int, looping bool) float32 {
	data := v.template.Sample.Data
	if looping && i >= v.loopEnd {
		i = v.loopStart + (i-v.loopEnd)%(v.loopEnd-v.loopStart)
	}
	if i < 0 {
		i = 0
	}
	if i > v.end {
		i = v.end
	}
	if i >= len(data) {
		return 0
	}
	return data[i]
}

func hermite(xm1, x0, x1, x2, t float32) float32 {
	c := (x1 - xm1) * 0.5
	vv := x0 - x1
	w := c + vv
	a := w + vv + (x2-x0)*0.5
	b := w + a
	return ((a*t-b)*t+c)*t + x0
}
