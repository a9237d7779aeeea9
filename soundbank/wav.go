package soundbank

import (
	"io"
	"os"

	"github.com/cwbudde/wav"
	"github.com/pkg/errors"
)

// DecodeWAVSample reads a PCM WAV stream into a mono Sample, averaging the
// channels of multi-channel files. The loop spans the whole buffer.
func DecodeWAVSample(r io.ReadSeeker, name string, originalKey int) (*Sample, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.Errorf("sample %q: invalid wav data", name)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrapf(err, "sample %q", name)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, errors.Errorf("sample %q: missing format", name)
	}
	if buf.Format.SampleRate <= 0 {
		return nil, errors.Errorf("sample %q: invalid sample rate %d", name, buf.Format.SampleRate)
	}
	numCh := buf.Format.NumChannels
	frames := len(buf.Data) / numCh
	if frames == 0 {
		return nil, errors.Errorf("sample %q: no audio frames", name)
	}
	data := make([]float32, frames)
	for i := range data {
		var sum float32
		for c := 0; c < numCh; c++ {
			sum += float32(buf.Data[i*numCh+c])
		}
		data[i] = sum / float32(numCh)
	}
	return NewSample(name, data, buf.Format.SampleRate, originalKey), nil
}

// LoadWAVSample decodes the WAV file at path.
func LoadWAVSample(path string, originalKey int) (*Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open sample")
	}
	defer f.Close()
	return DecodeWAVSample(f, path, originalKey)
}
