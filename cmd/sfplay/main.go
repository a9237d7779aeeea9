package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/cbegin/sfsynth-go"
	intseq "github.com/cbegin/sfsynth-go/internal/sequencer"
	"github.com/cbegin/sfsynth-go/soundbank"
)

// defaultNotes is played when no MIDI file is given.
var defaultNotes = []int{64, 67, 71, 62, 65, 69}

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		samplePath = flag.String("sample", "", "WAV file used as the instrument (required)")
		rootKey    = flag.Int("key", 60, "MIDI key the sample was recorded at")
		midiPath   = flag.String("midi", "", "path to a Standard MIDI File")
		outPath    = flag.String("out", "", "render to this WAV file instead of playing")
		loop       = flag.Bool("loop", false, "loop playback; use with -loops to count then stop")
		loops      = flag.Int("loops", 3, "when -loop, stop after N loops (0 = loop forever)")
		volume     = flag.Float64("volume", 1.0, "master volume scalar")
		system     = flag.String("system", "gs", "MIDI system: gm|gm2|gs|xg")
	)
	flag.Parse()

	if strings.TrimSpace(*samplePath) == "" {
		log.Fatal("-sample is required")
	}
	bank, err := sampleBank(*samplePath, *rootKey)
	if err != nil {
		log.Fatal(err)
	}
	song, err := resolveSong(*midiPath)
	if err != nil {
		log.Fatal(err)
	}
	sys, ok := sfsynth.ParseSystem(*system)
	if !ok {
		log.Fatalf("invalid -system %q (expected gm|gm2|gs|xg)", *system)
	}

	if *outPath != "" {
		samples, err := sfsynth.RenderSong(song, bank, *sampleRate, 0, sfsynth.WithSystem(sys))
		if err != nil {
			log.Fatal(err)
		}
		if err := sfsynth.WriteWAVFile(*outPath, samples, *sampleRate); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %s (%d frames)\n", *outPath, len(samples)/2)
		return
	}

	pl, err := sfsynth.NewPlayer(*sampleRate, bank,
		sfsynth.WithLoopPlayback(*loop),
		sfsynth.WithProcessorOptions(sfsynth.WithSystem(sys)),
	)
	if err != nil {
		log.Fatal(err)
	}
	pl.SetMasterVolume(*volume)
	ch := pl.Watch()
	if err := pl.Play(song); err != nil {
		log.Fatal(err)
	}
	loopCount := 0
	for event := range ch {
		switch event.Kind {
		case sfsynth.PlaybackEnded:
			fmt.Println("playback completed")
			goto done
		case sfsynth.PlaybackLoopCompleted:
			loopCount++
			fmt.Printf("loop %d completed\n", loopCount)
			if *loop && *loops > 0 && loopCount >= *loops {
				pl.Stop()
			}
		}
	}
done:
	pl.Wait()
}

// sampleBank builds a bank with the sample as a looped melodic preset on
// every program and as the standard drum kit.
func sampleBank(path string, key int) (*soundbank.SoundBank, error) {
	s, err := soundbank.LoadWAVSample(path, key)
	if err != nil {
		return nil, err
	}
	in := soundbank.NewInstrument(s.Name)
	in.AddZone(s).SetGenerator(soundbank.GenSampleModes, 1)
	bank := soundbank.New(s.Name)
	for program := 0; program < 128; program++ {
		p := soundbank.NewPreset(fmt.Sprintf("%s %d", s.Name, program), 0, program)
		p.AddZone(in)
		bank.AddPreset(p)
	}
	kit := soundbank.NewPreset(s.Name+" kit", soundbank.DrumBank, 0)
	kit.AddZone(in)
	bank.AddPreset(kit)
	return bank, bank.Validate()
}

func resolveSong(path string) (*sfsynth.Song, error) {
	if strings.TrimSpace(path) != "" {
		return sfsynth.LoadMIDIFile(path)
	}
	song := &sfsynth.Song{TimeDivision: intseq.DefaultTimeDivision, Tracks: []intseq.Track{{Port: -1}}}
	events := &song.Tracks[0].Events
	for i, note := range defaultNotes {
		tick := i * intseq.DefaultTimeDivision / 2
		*events = append(*events,
			intseq.Event{Tick: tick, Status: 0x90, Data: []byte{byte(note), 100}},
			intseq.Event{Tick: tick + intseq.DefaultTimeDivision/2, Status: 0x80, Data: []byte{byte(note), 0}},
		)
	}
	song.ComputeUsedChannels()
	return song, nil
}
