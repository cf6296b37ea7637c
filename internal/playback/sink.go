package playback

import "context"

// Sink renders one audio stream.
//
// Implementations deliver [Listener] callbacks on their own goroutine, never from inside a
// Sink method call.
type Sink interface {
	// Load assigns the source and blocks until the sink can render it or ctx is done.
	Load(ctx context.Context, url string) error
	Play() error
	Pause() error
	// Seek moves to an absolute position in seconds.
	Seek(position float64) error
	SetVolume(v float64) error
	Volume() float64
	Position() float64
	Duration() float64
	// SetListener replaces the callback target; nil detaches it.
	SetListener(l Listener)
	Close() error
}

// Listener receives sink events.
type Listener interface {
	OnEnded()
	OnError(err error)
	OnProgress(position, duration float64)
}

// SinkFactory creates a fresh, unloaded sink.
type SinkFactory func() (Sink, error)

type listenMode int

const (
	listenAll listenMode = iota
	// listenProgress ignores ended and error callbacks while a crossfade owns the sink.
	listenProgress
)

// sinkListener ties callbacks to the sink they were attached to, so events from a retired
// sink can be told apart from the current primary.
type sinkListener struct {
	c    *Controller
	sink Sink
	mode listenMode
}

func (l *sinkListener) OnEnded() {
	if l.mode == listenProgress {
		l.c.handleDetachedEnded(l.sink)
		return
	}
	l.c.handleEnded(l.sink)
}

func (l *sinkListener) OnError(err error) {
	if l.mode == listenProgress {
		l.c.handleDetachedError(l.sink, err)
		return
	}
	l.c.handleError(l.sink, err)
}

func (l *sinkListener) OnProgress(position, duration float64) {
	l.c.handleProgress(l.sink, position, duration)
}
