package playback

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/queue"
	"github.com/desertthunder/hifix/internal/shared"
	tu "github.com/desertthunder/hifix/internal/testing"
)

type fakeSink struct {
	mu       sync.Mutex
	id       int
	url      string
	volume   float64
	playing  bool
	pauses   int
	seeks    []float64
	closed   bool
	position float64
	duration float64
	listener Listener
	gate     chan error
	loading  chan struct{}
	playErr  error
	factory  *fakeFactory
}

func (s *fakeSink) Load(ctx context.Context, url string) error {
	s.mu.Lock()
	s.url = url
	gate := s.gate
	s.mu.Unlock()
	close(s.loading)

	if gate == nil {
		return nil
	}
	select {
	case err := <-gate:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *fakeSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playErr != nil {
		return s.playErr
	}
	s.playing = true
	return nil
}

func (s *fakeSink) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.pauses++
	return nil
}

func (s *fakeSink) Seek(position float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeks = append(s.seeks, position)
	s.position = position
	return nil
}

func (s *fakeSink) SetVolume(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
	return nil
}

func (s *fakeSink) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *fakeSink) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *fakeSink) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *fakeSink) SetListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	already := s.closed
	s.closed = true
	s.mu.Unlock()
	if !already {
		s.factory.release()
	}
	return nil
}

func (s *fakeSink) progress(pos float64) {
	s.mu.Lock()
	s.position = pos
	l, d := s.listener, s.duration
	s.mu.Unlock()
	if l != nil {
		l.OnProgress(pos, d)
	}
}

func (s *fakeSink) end() {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l != nil {
		l.OnEnded()
	}
}

func (s *fakeSink) fail(err error) {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l != nil {
		l.OnError(err)
	}
}

// mode returns the listener mode attached to the sink, or false when detached.
func (s *fakeSink) mode() (listenMode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listener.(*sinkListener)
	if !ok || l == nil {
		return 0, false
	}
	return l.mode, true
}

func (s *fakeSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSink) isPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *fakeSink) seekCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seeks)
}

func (s *fakeSink) loadedURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

type fakeFactory struct {
	mu       sync.Mutex
	sinks    []*fakeSink
	gates    map[int]chan error
	live     int
	peak     int
	duration float64
	err      error
}

func newFakeFactory(duration float64) *fakeFactory {
	return &fakeFactory{duration: duration, gates: make(map[int]chan error)}
}

func (f *fakeFactory) New() (Sink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	s := &fakeSink{
		id:       len(f.sinks),
		duration: f.duration,
		gate:     f.gates[len(f.sinks)],
		loading:  make(chan struct{}),
		factory:  f,
	}
	f.sinks = append(f.sinks, s)
	f.live++
	f.peak = max(f.peak, f.live)
	return s, nil
}

// gate makes the i-th sink block in Load until a value is sent or its context ends.
func (f *fakeFactory) gate(i int) chan error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan error, 1)
	f.gates[i] = ch
	return ch
}

func (f *fakeFactory) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live--
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sinks)
}

func (f *fakeFactory) peakLive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

// sink waits for the i-th sink to be created and to start loading.
func (f *fakeFactory) sink(t *testing.T, i int) *fakeSink {
	t.Helper()
	waitFor(t, fmt.Sprintf("sink %d", i), func() bool { return f.count() > i })

	f.mu.Lock()
	s := f.sinks[i]
	f.mu.Unlock()

	select {
	case <-s.loading:
	case <-time.After(2 * time.Second):
		t.Fatalf("sink %d never started loading", i)
	}
	return s
}

type fakeResolver struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{calls: make(map[string]int), fail: make(map[string]int)}
}

func (r *fakeResolver) Resolve(ctx context.Context, id string, q models.Quality) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[id]++
	if r.fail[id] > 0 {
		r.fail[id]--
		return "", fmt.Errorf("%w: %s", shared.ErrStreamNotFound, id)
	}
	return "https://stream.test/" + id + "?quality=" + string(q), nil
}

func (r *fakeResolver) failNext(id string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[id] = n
}

func (r *fakeResolver) callsFor(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[id]
}

type fakeLikes struct {
	mu    sync.Mutex
	liked map[string]models.Track
}

func newFakeLikes() *fakeLikes {
	return &fakeLikes{liked: make(map[string]models.Track)}
}

func (l *fakeLikes) IsLiked(id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.liked[id]
	return ok, nil
}

func (l *fakeLikes) Like(t models.Track) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.liked[t.ID] = t
	return nil
}

func (l *fakeLikes) Unlike(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.liked, id)
	return nil
}

func (l *fakeLikes) LikedIDs() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.liked))
	for id := range l.liked {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (b *fakeBroadcaster) Broadcast(ctx context.Context, s Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snaps = append(b.snaps, s)
	return nil
}

func (b *fakeBroadcaster) has(pred func(Snapshot) bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.snaps {
		if pred(s) {
			return true
		}
	}
	return false
}

// noticeRecorder drains a subscription and keeps every notice.
type noticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func recordNotices(c *Controller) *noticeRecorder {
	r := &noticeRecorder{}
	events, _ := c.Subscribe()
	go func() {
		for ev := range events {
			if ev.Kind == EventNotice && ev.Notice != nil {
				r.mu.Lock()
				r.notices = append(r.notices, *ev.Notice)
				r.mu.Unlock()
			}
		}
	}()
	return r
}

func (r *noticeRecorder) bySeverity(sev Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, notice := range r.notices {
		if notice.Severity == sev {
			n++
		}
	}
	return n
}

func (r *noticeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

type harness struct {
	c        *Controller
	factory  *fakeFactory
	resolver *fakeResolver
	prefs    *tu.MemoryPreferences
	likes    *fakeLikes
}

func newHarness(t *testing.T, configure func(*Options)) *harness {
	t.Helper()

	h := &harness{
		factory:  newFakeFactory(200),
		resolver: newFakeResolver(),
		prefs:    tu.NewMemoryPreferences(nil),
		likes:    newFakeLikes(),
	}
	logger := shared.NewLogger(io.Discard)
	opts := Options{
		Factory:  h.factory.New,
		Resolver: h.resolver,
		Queue: queue.NewManager(queue.ManagerOpts{
			Prefs:  h.prefs,
			Rand:   rand.New(rand.NewPCG(1, 2)),
			Logger: logger,
		}),
		Prefs:          h.prefs,
		Likes:          h.likes,
		Settings:       Settings{Volume: 0.3},
		CrossfadeSteps: 4,
		Logger:         logger,
	}
	if configure != nil {
		configure(&opts)
	}

	c, err := NewController(opts)
	if err != nil {
		t.Fatalf("failed to create controller: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	h.c = c
	return h
}

// withCrossfade enables crossfading for d.
func withCrossfade(d time.Duration) func(*Options) {
	return func(o *Options) {
		o.Settings.CrossfadeEnabled = true
		o.Settings.CrossfadeDuration = d
	}
}

func (h *harness) inTransition() bool {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	return h.c.xf != nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func playingTrack(c *Controller, id string) func() bool {
	return func() bool {
		s := c.Snapshot()
		return s.TrackID == id && s.State == StatePlaying.String()
	}
}
