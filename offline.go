package sfsynth

import (
	"context"
	"io"
	"os"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/cbegin/sfsynth-go/internal/midifile"
	intseq "github.com/cbegin/sfsynth-go/internal/sequencer"
	"github.com/cbegin/sfsynth-go/soundbank"
)

// Song is a parsed multi-track MIDI sequence ready for playback.
type Song = intseq.Song

// LoadMIDI parses a Standard MIDI File.
func LoadMIDI(r io.Reader) (*Song, error) {
	return midifile.Read(r)
}

// LoadMIDIFile parses the Standard MIDI File at path.
func LoadMIDIFile(path string) (*Song, error) {
	return midifile.ReadFile(path)
}

// RenderSong plays song on a fresh Processor and returns interleaved stereo
// samples up to the end of the last release tail. maxSeconds bounds the
// render; 0 means the song duration plus ten seconds.
func RenderSong(song *Song, bank *soundbank.SoundBank, sampleRate int, maxSeconds float64, opts ...Option) ([]float32, error) {
	p, err := NewProcessor(sampleRate, bank, opts...)
	if err != nil {
		return nil, err
	}
	if maxSeconds <= 0 {
		maxSeconds = song.Duration() + 10
	}
	seq := intseq.NewWithOptions(song, p, intseq.Options{Logger: p.logger})
	limit := int(maxSeconds * float64(sampleRate))
	out := make([]float32, 0, min(limit, int(song.Duration()*float64(sampleRate))+sampleRate)*2)
	buf := make([]float32, BlockSize*2)
	for frames := 0; frames < limit && !seq.Finished(); frames += BlockSize {
		seq.Process(buf)
		out = append(out, buf...)
	}
	return out, nil
}

// RenderJob is one song of a RenderBatch.
type RenderJob struct {
	Song       *Song
	MaxSeconds float64
	Options    []Option
}

// RenderBatch renders every job concurrently, each on its own Processor
// sharing bank. Results are returned in job order.
func RenderBatch(ctx context.Context, bank *soundbank.SoundBank, sampleRate int, jobs []RenderJob) ([][]float32, error) {
	out := make([][]float32, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			samples, err := RenderSong(job.Song, bank, sampleRate, job.MaxSeconds, job.Options...)
			if err != nil {
				return errors.Wrapf(err, "render job %d", i)
			}
			out[i] = samples
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeWAV writes interleaved stereo samples as 16-bit PCM.
func EncodeWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 2, 1)
	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 2,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return errors.Wrap(err, "wav write")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "wav close")
	}
	return nil
}

// WriteWAVFile encodes samples into a new file at path.
func WriteWAVFile(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := EncodeWAV(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
