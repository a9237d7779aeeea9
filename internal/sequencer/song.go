package sequencer

// Meta event types. A meta event carries its type as Event.Status.
const (
	MetaSequenceNumber    = 0x00
	MetaText              = 0x01
	MetaCopyright         = 0x02
	MetaTrackName         = 0x03
	MetaInstrumentName    = 0x04
	MetaLyric             = 0x05
	MetaMarker            = 0x06
	MetaCuePoint          = 0x07
	MetaProgramName       = 0x08
	MetaChannelPrefix     = 0x20
	MetaPort              = 0x21
	MetaEndOfTrack        = 0x2F
	MetaTempo             = 0x51
	MetaSMPTEOffset       = 0x54
	MetaTimeSignature     = 0x58
	MetaKeySignature      = 0x59
	MetaSequencerSpecific = 0x7F
)

// Status bytes with a fixed meaning besides channel messages.
const (
	StatusSysEx         = 0xF0
	StatusSongPosition  = 0xF2
	StatusActiveSensing = 0xFE
	StatusReset         = 0xFF
)

// DefaultTimeDivision is used when a song declares no ticks per quarter.
const DefaultTimeDivision = 480

// Event is one timed track event. Channel messages keep their MIDI status
// byte, meta events use their meta type (0x00-0x7F) as status and SysEx
// uses 0xF0 with Data holding the bytes after it.
type Event struct {
	Tick   int
	Status byte
	Data   []byte
}

type Track struct {
	// Port is the MIDI port declared by the track, or -1.
	Port   int
	Events []Event
}

// Song is a parsed multi-track MIDI sequence.
type Song struct {
	Name string
	// TimeDivision is the number of ticks per quarter note.
	TimeDivision int
	Tracks       []Track
	IsMultiPort  bool
	// UsedChannelsOnTrack holds the channels each track plays notes on.
	UsedChannelsOnTrack []map[int]struct{}
}

// UsesNoChannels reports whether track declared no channel usage.
func (s *Song) UsesNoChannels(track int) bool {
	return track < len(s.UsedChannelsOnTrack) && len(s.UsedChannelsOnTrack[track]) == 0
}

// ComputeUsedChannels fills UsedChannelsOnTrack from the note-on messages
// of every track.
func (s *Song) ComputeUsedChannels() {
	s.UsedChannelsOnTrack = make([]map[int]struct{}, len(s.Tracks))
	for i, tr := range s.Tracks {
		used := map[int]struct{}{}
		for _, ev := range tr.Events {
			if ev.Status&0xF0 == 0x90 {
				used[int(ev.Status&0x0F)] = struct{}{}
			}
		}
		s.UsedChannelsOnTrack[i] = used
	}
}

func (s *Song) division() int {
	if s.TimeDivision <= 0 {
		return DefaultTimeDivision
	}
	return s.TimeDivision
}

// Duration returns the time of the last event in seconds, following every
// tempo change.
func (s *Song) Duration() float64 {
	c := newCursor(s)
	spt := tickSeconds(500000, s.division())
	var now float64
	last := 0
	for {
		ev, _, ok := c.next()
		if !ok {
			return now
		}
		now += float64(ev.Tick-last) * spt
		last = ev.Tick
		if ev.Status == MetaTempo {
			if v := tickSeconds(tempoMicros(ev.Data), s.division()); validTick(v) {
				spt = v
			}
		}
	}
}

// cursor merges the tracks of a song into one tick-ordered stream. Events
// with the same tick come out in track order.
type cursor struct {
	song *Song
	idx  []int
}

func newCursor(s *Song) *cursor {
	return &cursor{song: s, idx: make([]int, len(s.Tracks))}
}

func (c *cursor) peek() (Event, int, bool) {
	best := -1
	for i, tr := range c.song.Tracks {
		if c.idx[i] >= len(tr.Events) {
			continue
		}
		if best < 0 || tr.Events[c.idx[i]].Tick < c.song.Tracks[best].Events[c.idx[best]].Tick {
			best = i
		}
	}
	if best < 0 {
		return Event{}, 0, false
	}
	return c.song.Tracks[best].Events[c.idx[best]], best, true
}

func (c *cursor) next() (Event, int, bool) {
	ev, track, ok := c.peek()
	if ok {
		c.idx[track]++
	}
	return ev, track, ok
}

func (c *cursor) reset() {
	clear(c.idx)
}
