// Package midifile loads Standard MIDI Files into sequencer songs.
package midifile

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/sfsynth-go/internal/sequencer"
)

// Read parses an SMF stream.
func Read(r io.Reader) (*sequencer.Song, error) {
	file, err := smf.ReadFrom(r)
	if err != nil {
		return nil, errors.Wrap(err, "read midi")
	}
	return Convert(file)
}

// ReadFile parses the SMF at path.
func ReadFile(path string) (*sequencer.Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	song, err := Read(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return song, nil
}

// Convert turns a decoded SMF into a Song with absolute ticks.
func Convert(file *smf.SMF) (*sequencer.Song, error) {
	ticks, ok := file.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errors.Errorf("unsupported time format %v", file.TimeFormat)
	}
	song := &sequencer.Song{
		TimeDivision: int(ticks),
		Tracks:       make([]sequencer.Track, len(file.Tracks)),
	}
	ports := map[int]struct{}{}
	for i, tr := range file.Tracks {
		out := sequencer.Track{Port: -1}
		tick := 0
		for _, ev := range tr {
			tick += int(ev.Delta)
			e, ok := convertMessage(ev.Message)
			if !ok {
				continue
			}
			e.Tick = tick
			if e.Status == sequencer.MetaTrackName && song.Name == "" && i == 0 {
				song.Name = string(e.Data)
			}
			if e.Status == sequencer.MetaPort && out.Port < 0 && len(e.Data) > 0 {
				out.Port = int(e.Data[0])
				ports[out.Port] = struct{}{}
			}
			out.Events = append(out.Events, e)
		}
		song.Tracks[i] = out
	}
	song.IsMultiPort = len(ports) > 1
	song.ComputeUsedChannels()
	return song, nil
}

// convertMessage maps raw SMF bytes onto a sequencer event. Meta events
// keep their type as status and lose the 0xFF prefix and length.
func convertMessage(msg smf.Message) (sequencer.Event, bool) {
	if len(msg) == 0 {
		return sequencer.Event{}, false
	}
	switch status := msg[0]; {
	case status == 0xFF && len(msg) >= 2:
		data, ok := metaData(msg[2:])
		if !ok {
			return sequencer.Event{}, false
		}
		return sequencer.Event{Status: msg[1], Data: data}, true
	case status == 0xF0:
		data := msg[1:]
		if n := len(data); n > 0 && data[n-1] == 0xF7 {
			data = data[:n-1]
		}
		return sequencer.Event{Status: status, Data: clone(data)}, true
	case status >= 0x80 && status < 0xF0:
		return sequencer.Event{Status: status, Data: clone(msg[1:])}, true
	}
	return sequencer.Event{}, false
}

// metaData strips the variable-length size prefix.
func metaData(b []byte) ([]byte, bool) {
	size := 0
	for i, c := range b {
		if i == 4 {
			return nil, false
		}
		size = size<<7 | int(c&0x7F)
		if c&0x80 == 0 {
			rest := b[i+1:]
			if size > len(rest) {
				return nil, false
			}
			return clone(rest[:size]), true
		}
	}
	return nil, false
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
