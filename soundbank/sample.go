package soundbank

// SampleType is the SoundFont sample link type.
type SampleType int

const (
	SampleMono  SampleType = 1
	SampleRight SampleType = 2
	SampleLeft  SampleType = 4
	SampleLink  SampleType = 8
)

// Sample is a block of decoded mono PCM with its loop and pitch metadata.
// Data is shared between every voice playing the sample and must not be
// modified once the bank is in use.
type Sample struct {
	Name            string
	Data            []float32
	LoopStart       int
	LoopEnd         int
	OriginalKey     int
	PitchCorrection int
	SampleRate      int
	Type            SampleType
}

// NewSample builds a mono sample with its loop spanning the whole buffer.
func NewSample(name string, data []float32, sampleRate, originalKey int) *Sample {
	end := len(data) - 1
	if end < 0 {
		end = 0
	}
	return &Sample{
		Name:        name,
		Data:        data,
		LoopStart:   0,
		LoopEnd:     end,
		OriginalKey: originalKey,
		SampleRate:  sampleRate,
		Type:        SampleMono,
	}
}

// WithLoop sets the loop points and returns s.
func (s *Sample) WithLoop(start, end int) *Sample {
	s.LoopStart = start
	s.LoopEnd = end
	return s
}
