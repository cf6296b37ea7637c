package playback

import "sync"

// EventKind enumerates controller events.
type EventKind string

const (
	EventState      EventKind = "state"
	EventTrack      EventKind = "track"
	EventProgress   EventKind = "progress"
	EventModes      EventKind = "modes"
	EventVolume     EventKind = "volume"
	EventCrossfade  EventKind = "crossfade"
	EventNotice     EventKind = "notice"
	EventQueue      EventKind = "queue"
	EventSleepTimer EventKind = "sleep_timer"
)

// Severity of a user-facing notice.
type Severity int

const (
	// Passive notices are toasts that never interrupt playback.
	Passive Severity = iota
	// Blocking notices need the user's attention.
	Blocking
)

func (s Severity) String() string {
	if s == Blocking {
		return "blocking"
	}
	return "passive"
}

// Notice is a user-facing message attached to an [EventNotice].
type Notice struct {
	Severity Severity
	Message  string
	Err      error
}

// Event is published by the controller after every change.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
	Notice   *Notice
}

// Emitter is an in-process pub/sub whose Publish never blocks; full subscribers miss events.
type Emitter struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
}

// NewEmitter creates an emitter whose subscriber channels hold buffer events.
func NewEmitter(buffer int) *Emitter {
	if buffer <= 0 {
		buffer = 32
	}
	return &Emitter{subs: make(map[int]chan Event), buffer: buffer}
}

// Subscribe registers a subscriber. The returned func unsubscribes and closes the channel.
func (e *Emitter) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, e.buffer)

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = ch
	e.mu.Unlock()

	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if _, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(ch)
		}
	}
}

// Publish delivers ev to every subscriber with room for it.
func (e *Emitter) Publish(ev Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close unsubscribes everyone.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
}
