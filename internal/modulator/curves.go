package modulator

import (
	"math"

	"github.com/cbegin/sfsynth-go/soundbank"
)

// resolution is the number of precomputed points per curve.
const resolution = 16384

var concave, convex [resolution + 1]float64

func init() {
	concave[resolution] = 1
	convex[resolution] = 1
	for i := 1; i < resolution; i++ {
		x := -200.0 * 2 / 960 * math.Log10(float64(i)/resolution)
		convex[i] = clamp(1-x, 0, 1)
		concave[resolution-i] = clamp(x, 0, 1)
	}
}

// Transform maps a normalised source value in [0, 1] through the curve,
// direction and polarity packed in src. Unipolar results lie in [0, 1],
// bipolar ones in [-1, 1].
func Transform(src soundbank.ModulatorSource, value float64) float64 {
	value = clamp(value, 0, 1)
	if src.Negative() {
		value = 1 - value
	}
	bipolar := src.Bipolar()
	switch src.Curve() {
	case soundbank.CurveLinear:
		if bipolar {
			return value*2 - 1
		}
		return value
	case soundbank.CurveSwitch:
		if value > 0.5 {
			value = 1
		} else {
			value = 0
		}
		if bipolar {
			return value*2 - 1
		}
		return value
	case soundbank.CurveConcave:
		return shaped(&concave, value, bipolar)
	case soundbank.CurveConvex:
		return shaped(&convex, value, bipolar)
	}
	return 0
}

func shaped(table *[resolution + 1]float64, value float64, bipolar bool) float64 {
	if !bipolar {
		return table[int(value*resolution)]
	}
	v := value*2 - 1
	if v < 0 {
		return -table[int(-v*resolution)]
	}
	return table[int(v*resolution)]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
