package sfsynth

import (
	"log/slog"

	"github.com/cbegin/sfsynth-go/internal/controller"
	"github.com/cbegin/sfsynth-go/internal/voice"
)

// System is the MIDI system whose bank select and SysEx rules apply.
type System = controller.System

const (
	SystemGM  = controller.SystemGM
	SystemGM2 = controller.SystemGM2
	SystemGS  = controller.SystemGS
	SystemXG  = controller.SystemXG
)

// ParseSystem accepts "gm", "gm2", "gs" or "xg".
func ParseSystem(s string) (System, bool) { return controller.ParseSystem(s) }

// Interpolation selects how voices read their samples.
type Interpolation = voice.Interpolation

const (
	InterpolationLinear  = voice.InterpolationLinear
	InterpolationNearest = voice.InterpolationNearest
	InterpolationHermite = voice.InterpolationHermite
)

const (
	DefaultVoiceCap     = 350
	DefaultChannelCount = 16
	// PercussionChannel is the channel that starts as a drum part.
	PercussionChannel = 9
	// AllDevices disables SysEx device ID filtering.
	AllDevices = -1
)

type Option func(*config)

type config struct {
	voiceCap        int
	system          System
	channels        int
	highPerformance bool
	monoRetrigger   bool
	initialTime     float64
	effects         bool
	limiter         bool
	interpolation   Interpolation
	deviceID        int
	logger          *slog.Logger
	seed            uint64
	seeded          bool
}

func defaultConfig() config {
	return config{
		voiceCap:      DefaultVoiceCap,
		system:        SystemGS,
		channels:      DefaultChannelCount,
		effects:       true,
		interpolation: InterpolationLinear,
		deviceID:      AllDevices,
	}
}

// WithVoiceCap sets the global polyphony ceiling.
func WithVoiceCap(n int) Option {
	return func(cfg *config) {
		cfg.voiceCap = n
	}
}

func WithSystem(s System) Option {
	return func(cfg *config) {
		cfg.system = s
	}
}

func WithChannelCount(n int) Option {
	return func(cfg *config) {
		cfg.channels = n
	}
}

// WithHighPerformance culls quiet notes and shortens releases when the
// synth is under load.
func WithHighPerformance(enabled bool) Option {
	return func(cfg *config) {
		cfg.highPerformance = enabled
	}
}

// WithMonophonicRetrigger cuts a note's previous voices when it is played
// again on the same channel.
func WithMonophonicRetrigger(enabled bool) Option {
	return func(cfg *config) {
		cfg.monoRetrigger = enabled
	}
}

// WithInitialTime sets the synth clock at construction, in seconds.
func WithInitialTime(seconds float64) Option {
	return func(cfg *config) {
		cfg.initialTime = seconds
	}
}

// WithEffects enables the reverb and chorus sends.
func WithEffects(enabled bool) Option {
	return func(cfg *config) {
		cfg.effects = enabled
	}
}

// WithLimiter runs a master limiter before clipping in Process.
func WithLimiter(enabled bool) Option {
	return func(cfg *config) {
		cfg.limiter = enabled
	}
}

func WithInterpolation(i Interpolation) Option {
	return func(cfg *config) {
		cfg.interpolation = i
	}
}

// WithDeviceID makes the synth ignore SysEx addressed to other devices.
func WithDeviceID(id int) Option {
	return func(cfg *config) {
		cfg.deviceID = id
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = l
	}
}

// WithRandomSeed makes random pan reproducible.
func WithRandomSeed(seed uint64) Option {
	return func(cfg *config) {
		cfg.seed = seed
		cfg.seeded = true
	}
}
