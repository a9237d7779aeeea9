package sfsynth

import (
	"maps"
	"slices"
	"sync"
)

// EventKind identifies what an Event reports.
type EventKind int

const (
	EventNoteOn EventKind = iota
	EventNoteOff
	EventControllerChange
	EventProgramChange
	EventPitchWheel
	EventChannelPressure
	EventPolyPressure
	EventStopAll
	EventMute
	EventDrumChange
	EventReset
	EventSystemExclusive
)

func (k EventKind) String() string {
	switch k {
	case EventNoteOn:
		return "noteon"
	case EventNoteOff:
		return "noteoff"
	case EventControllerChange:
		return "controllerchange"
	case EventProgramChange:
		return "programchange"
	case EventPitchWheel:
		return "pitchwheel"
	case EventChannelPressure:
		return "channelpressure"
	case EventPolyPressure:
		return "polypressure"
	case EventStopAll:
		return "stopall"
	case EventMute:
		return "mute"
	case EventDrumChange:
		return "drumchange"
	case EventReset:
		return "reset"
	case EventSystemExclusive:
		return "systemexclusive"
	}
	return "unknown"
}

// Event is a notification about a state change on the synth. Fields not
// relevant to Kind are zero.
type Event struct {
	Kind    EventKind
	Channel int
	Note    int
	// Velocity is the note velocity, or 1/0 for flags like mute and drums.
	Velocity   int
	Controller int
	Value      int
	Program    int
	Bank       int
	Preset     string
	Data       []byte
}

const watchBuffer = 64

// observers fans events out to subscribers and the Watch channel. Every
// delivery is fire-and-forget: a full Watch channel drops the event.
type observers struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
	ch     chan Event
}

// Subscribe registers fn for every event. fn runs synchronously on the
// goroutine that changed the synth and must not call back into it.
func (p *Processor) Subscribe(fn func(Event)) (cancel func()) {
	o := &p.observers
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.subs == nil {
		o.subs = make(map[int]func(Event))
	}
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

// Watch returns a channel that receives events. The channel is buffered;
// events are dropped while it is full. Only the most recent Watch channel
// receives events.
func (p *Processor) Watch() <-chan Event {
	ch := make(chan Event, watchBuffer)
	p.observers.mu.Lock()
	p.observers.ch = ch
	p.observers.mu.Unlock()
	return ch
}

func (p *Processor) emit(ev Event) {
	o := &p.observers
	o.mu.Lock()
	ch := o.ch
	var subs []func(Event)
	if len(o.subs) > 0 {
		subs = make([]func(Event), 0, len(o.subs))
		for _, id := range slices.Sorted(maps.Keys(o.subs)) {
			subs = append(subs, o.subs[id])
		}
	}
	o.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
	if ch != nil {
		select {
		case ch <- ev:
		default:
		}
	}
}
