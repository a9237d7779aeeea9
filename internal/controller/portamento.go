package controller

// portamentoTimes maps CC5 values to glide seconds over 36 semitones.
// Values between entries are interpolated linearly.
var portamentoTimes = []struct {
	value   int
	seconds float64
}{
	{0, 0},
	{1, 0.006},
	{2, 0.023},
	{4, 0.05},
	{8, 0.11},
	{16, 0.25},
	{32, 0.5},
	{64, 2.06},
	{80, 4.2},
	{96, 8.4},
	{112, 19.5},
	{116, 26.7},
	{120, 40},
	{124, 80},
	{127, 480},
}

// PortamentoSeconds returns the glide time for a portamento time value and
// a distance in semitones.
func PortamentoSeconds(time, distance int) float64 {
	time = max(0, min(127, time))
	seconds := 0.0
	for i, e := range portamentoTimes {
		if e.value == time {
			seconds = e.seconds
			break
		}
		if e.value > time {
			lo := portamentoTimes[i-1]
			f := float64(time-lo.value) / float64(e.value-lo.value)
			seconds = lo.seconds + (e.seconds-lo.seconds)*f
			break
		}
	}
	if distance < 0 {
		distance = -distance
	}
	return seconds * float64(distance) / 36
}
