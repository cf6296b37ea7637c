// Package playback implements the playback state machine, crossfade transitions, and the
// event stream consumed by the TUI and the now-playing bridges.
package playback

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/queue"
	"github.com/desertthunder/hifix/internal/shared"
)

const (
	DefaultCrossfadeSteps = 40
	DefaultSuppressWindow = 250 * time.Millisecond

	// restartThreshold is how far into a track Previous restarts it instead of going back.
	restartThreshold = 3.0
	broadcastBuffer  = 16
	broadcastTimeout = 5 * time.Second
)

// Options configures a [Controller].
type Options struct {
	Factory        SinkFactory
	Resolver       Resolver
	Queue          *queue.Manager
	Prefs          Preferences
	Likes          LikeStore
	Broadcaster    Broadcaster
	Settings       Settings
	CrossfadeSteps int
	SuppressWindow time.Duration
	Logger         *log.Logger
}

// transition is an in-flight crossfade.
type transition struct {
	cancel  context.CancelFunc
	done    chan struct{}
	primary Sink
}

// Controller owns the primary sink and is the only writer of the [Session].
//
// All state transitions happen under mu. mu is never held while resolving a stream, while a
// sink loads, or while the crossfade ticker waits.
type Controller struct {
	mu     sync.Mutex
	playMu sync.Mutex // serializes the resolve and load phase of starts

	session         Session
	state           State
	transition      TransitionState
	sink            Sink
	position        float64
	duration        float64
	fadeTriggered   bool
	endedDuringFade bool
	playSeq         uint64
	playCancel      context.CancelFunc
	xf              *transition
	suppressUntil   time.Time
	sleep           *sleepTimer
	closed          bool

	liveSinks atomic.Int32

	factory        SinkFactory
	resolver       Resolver
	queue          *queue.Manager
	prefs          Preferences
	likes          LikeStore
	steps          int
	suppressWindow time.Duration
	sleepStep      time.Duration

	emitter       *Emitter
	broadcasts    chan Snapshot
	broadcastDone chan struct{}

	now    func() time.Time
	logger *log.Logger
}

// NewController creates an idle controller. Stored preferences override opts.Settings.
func NewController(opts Options) (*Controller, error) {
	if opts.Factory == nil || opts.Resolver == nil || opts.Queue == nil {
		return nil, fmt.Errorf("%w: controller needs a sink factory, resolver and queue", shared.ErrInvalidConfig)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.CrossfadeSteps <= 0 {
		opts.CrossfadeSteps = DefaultCrossfadeSteps
	}
	if opts.SuppressWindow <= 0 {
		opts.SuppressWindow = DefaultSuppressWindow
	}

	settings := LoadSettings(opts.Prefs, opts.Settings)
	c := &Controller{
		session: Session{
			Volume:            settings.Volume,
			Quality:           settings.Quality,
			CrossfadeEnabled:  settings.CrossfadeEnabled,
			CrossfadeDuration: settings.CrossfadeDuration,
		},
		factory:        opts.Factory,
		resolver:       opts.Resolver,
		queue:          opts.Queue,
		prefs:          opts.Prefs,
		likes:          opts.Likes,
		steps:          opts.CrossfadeSteps,
		suppressWindow: opts.SuppressWindow,
		sleepStep:      defaultSleepStep,
		emitter:        NewEmitter(0),
		now:            time.Now,
		logger:         shared.WithLogger(opts.Logger, "component", "controller"),
	}

	if opts.Broadcaster != nil {
		c.broadcasts = make(chan Snapshot, broadcastBuffer)
		c.broadcastDone = make(chan struct{})
		go c.runBroadcasts(opts.Broadcaster, c.broadcasts)
	}
	return c, nil
}

// Subscribe returns a channel of controller events and a func to unsubscribe.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	return c.emitter.Subscribe()
}

// Queue returns the queue manager the controller advances.
func (c *Controller) Queue() *queue.Manager {
	return c.queue
}

// Snapshot returns the current session view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// State returns the playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transition returns the crossfade transition state.
func (c *Controller) Transition() TransitionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition
}

// Session returns a copy of the session.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	if s.Track != nil {
		t := *s.Track
		s.Track = &t
	}
	return s
}

// LiveSinks returns how many sinks exist right now.
func (c *Controller) LiveSinks() int {
	return int(c.liveSinks.Load())
}

// Play starts t, making it the current queue entry.
//
// A crossfade in flight is aborted and waited for first. A newer Play supersedes this one,
// which then returns [shared.ErrSuperseded].
func (c *Controller) Play(ctx context.Context, t models.Track) error {
	c.queue.Select(t)
	return c.start(ctx, t)
}

// PlayQueue replaces the queue with tracks and plays the entry at start.
func (c *Controller) PlayQueue(ctx context.Context, tracks []models.Track, start int) error {
	if len(tracks) == 0 {
		return fmt.Errorf("%w: empty queue", shared.ErrInvalidArgument)
	}
	c.queue.Set(tracks, start)
	return c.PlayAt(ctx, c.queue.CurrentIndex())
}

// PlayAt plays the queue entry at i.
func (c *Controller) PlayAt(ctx context.Context, i int) error {
	t, err := c.queue.Jump(i)
	if err != nil {
		return err
	}
	return c.start(ctx, t)
}

// Next advances forward. Under repeat-one the current track restarts.
func (c *Controller) Next(ctx context.Context) error {
	return c.advance(ctx, queue.Forward)
}

// Previous restarts the current track when more than three seconds in, otherwise goes back.
func (c *Controller) Previous(ctx context.Context) error {
	c.mu.Lock()
	if c.sink != nil && c.position > restartThreshold {
		err := c.rewindLocked()
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()
	return c.advance(ctx, queue.Backward)
}

// Retry reloads the current track after an error, resolving its stream again.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateError || c.session.Track == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: nothing to retry", shared.ErrInvalidInput)
	}
	t := c.session.Track.WithStreamURL("")
	c.mu.Unlock()

	return c.start(ctx, t)
}

// TogglePlayPause pauses or resumes the primary sink.
//
// Pausing marks the pause as user-initiated and cancels a crossfade in flight, waiting for it
// to restore the primary before returning.
func (c *Controller) TogglePlayPause() error {
	c.mu.Lock()
	sink := c.sink
	if sink == nil {
		c.mu.Unlock()
		return shared.ErrNothingPlaying
	}

	var xf *transition
	if c.session.Playing {
		c.session.IsUserPausing = true
		xf = c.cancelTransitionLocked()
		if err := sink.Pause(); err != nil {
			c.logger.Warn("pause failed", "err", err)
		}
		c.session.Playing = false
		c.state = StatePaused
	} else {
		if err := sink.Play(); err != nil {
			c.failLocked(sink, err)
			c.mu.Unlock()
			return err
		}
		c.session.Playing = true
		c.session.IsUserPausing = false
		c.state = StatePlaying
	}
	c.emitLocked(EventState)
	c.mu.Unlock()

	if xf != nil {
		<-xf.done
	}
	return nil
}

// Seek moves to fraction of the track, clamped to [0,1].
func (c *Controller) Seek(fraction float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sink == nil {
		return shared.ErrNothingPlaying
	}
	if c.duration <= 0 {
		return shared.ErrDurationUnknown
	}

	pos := max(0, min(1, fraction)) * c.duration
	if err := c.sink.Seek(pos); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	c.position = pos
	if pos < 1 {
		c.fadeTriggered = false
	}
	c.emitLocked(EventProgress)
	return nil
}

// SetVolume clamps v to [0,1], applies it, and stores it as a preference.
func (c *Controller) SetVolume(v float64) error {
	v = max(0, min(1, v))

	c.mu.Lock()
	c.session.Volume = v
	if c.sink != nil && !c.session.IsCrossfading {
		if err := c.sink.SetVolume(v); err != nil {
			c.logger.Warn("failed to apply volume", "err", err)
		}
	}
	c.emitLocked(EventVolume)
	c.mu.Unlock()

	return c.savePref(PrefVolume, strconv.FormatFloat(v, 'f', 2, 64))
}

// ToggleShuffle flips shuffle and returns the new value.
func (c *Controller) ToggleShuffle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Shuffle = !c.session.Shuffle
	c.emitLocked(EventModes)
	return c.session.Shuffle
}

// CycleRepeat moves Off -> All -> One -> Off and returns the new mode.
func (c *Controller) CycleRepeat() models.RepeatMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Repeat = c.session.Repeat.Next()
	c.emitLocked(EventModes)
	return c.session.Repeat
}

// SetRepeat sets the repeat mode.
func (c *Controller) SetRepeat(r models.RepeatMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Repeat = r
	c.emitLocked(EventModes)
}

// Enqueue appends tracks to the queue.
func (c *Controller) Enqueue(tracks ...models.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.Append(tracks...)
	c.emitLocked(EventQueue)
}

// PlayNext inserts t right after the current entry.
func (c *Controller) PlayNext(t models.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.InsertNext(t)
	c.emitLocked(EventQueue)
}

// RemoveFromQueue removes the entry at i. Removing the playing entry does not stop playback.
func (c *Controller) RemoveFromQueue(i int) (models.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.queue.Remove(i)
	if err != nil {
		return models.Track{}, err
	}
	c.emitLocked(EventQueue)
	return t, nil
}

// MoveInQueue moves the entry at from to to.
func (c *Controller) MoveInQueue(from, to int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.queue.Reorder(from, to); err != nil {
		return err
	}
	c.emitLocked(EventQueue)
	return nil
}

// ToggleLike likes or unlikes the current track and invalidates the suggestion pool.
func (c *Controller) ToggleLike(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if c.likes == nil {
		return false, fmt.Errorf("%w: no like store", shared.ErrMissingConfig)
	}

	c.mu.Lock()
	if c.session.Track == nil {
		c.mu.Unlock()
		return false, shared.ErrNothingPlaying
	}
	t := *c.session.Track
	liked := c.session.Liked
	c.mu.Unlock()

	var err error
	if liked {
		err = c.likes.Unlike(t.ID)
	} else {
		err = c.likes.Like(t.WithStreamURL(""))
	}
	if err != nil {
		return liked, fmt.Errorf("failed to update like: %w", err)
	}

	ids, err := c.likes.LikedIDs()
	if err != nil {
		c.logger.Warn("failed to list liked tracks", "err", err)
	}
	c.queue.Suggestions().Invalidate(ids)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Track != nil && c.session.Track.ID == t.ID {
		c.session.Liked = !liked
		c.emitLocked(EventModes)
	}
	return !liked, nil
}

// SetQuality changes the stream quality used by subsequent resolutions.
func (c *Controller) SetQuality(q models.Quality) error {
	q, err := models.ParseQuality(string(q))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	c.mu.Lock()
	c.session.Quality = q
	c.emitLocked(EventModes)
	c.mu.Unlock()

	return c.savePref(PrefQuality, string(q))
}

// SetCrossfade enables or disables crossfading and sets its duration.
func (c *Controller) SetCrossfade(enabled bool, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: crossfade duration must be positive", shared.ErrInvalidArgument)
	}

	c.mu.Lock()
	c.session.CrossfadeEnabled = enabled
	c.session.CrossfadeDuration = d
	c.emitLocked(EventModes)
	c.mu.Unlock()

	if err := c.savePref(PrefCrossfadeEnabled, strconv.FormatBool(enabled)); err != nil {
		return err
	}
	return c.savePref(PrefCrossfadeDuration, strconv.FormatFloat(d.Seconds(), 'f', -1, 64))
}

// Stop retires the sink and returns to idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.playSeq++
	if c.playCancel != nil {
		c.playCancel()
	}
	xf := c.cancelTransitionLocked()
	old := c.sink
	c.sink = nil
	c.session.Track = nil
	c.session.Playing = false
	c.session.IsUserPausing = false
	c.position, c.duration = 0, 0
	c.state = StateIdle
	c.emitLocked(EventState)
	c.mu.Unlock()

	if xf != nil {
		<-xf.done
	}
	if old != nil {
		c.retire(old)
	}
}

// Close stops playback and releases every sink and subscriber.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.sleep != nil {
		c.sleep.cancel()
		c.sleep = nil
	}
	c.mu.Unlock()

	c.Stop()

	c.mu.Lock()
	broadcasts := c.broadcasts
	c.broadcasts = nil
	c.mu.Unlock()

	if broadcasts != nil {
		close(broadcasts)
		<-c.broadcastDone
	}
	c.emitter.Close()
	return nil
}

// start runs the Loading phase for t and makes it the primary on success.
func (c *Controller) start(ctx context.Context, t models.Track) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return shared.ErrSinkUnavailable
	}

	c.playSeq++
	seq := c.playSeq
	if c.playCancel != nil {
		c.playCancel()
	}
	pctx, cancel := context.WithCancel(ctx)
	c.playCancel = cancel

	xf := c.cancelTransitionLocked()
	old := c.sink
	c.sink = nil

	loading := t
	c.session.Track = &loading
	c.session.Playing = false
	c.session.IsUserPausing = false
	c.session.Liked = c.isLiked(t.ID)
	c.position, c.duration = 0, float64(t.Duration)
	c.fadeTriggered = false
	c.state = StateLoading
	quality := c.session.Quality
	c.emitLocked(EventTrack)
	c.mu.Unlock()

	if xf != nil {
		<-xf.done
	}
	if old != nil {
		c.retire(old)
	}

	c.playMu.Lock()
	defer c.playMu.Unlock()

	if pctx.Err() != nil {
		return shared.ErrSuperseded
	}

	resolved := t
	if !t.Resolved() {
		u, err := c.resolver.Resolve(pctx, t.ID, quality)
		if err != nil {
			return c.failStart(seq, err)
		}
		resolved = t.WithStreamURL(u)
	}

	sink, err := c.newSink()
	if err != nil {
		return c.failStart(seq, err)
	}
	if err := sink.Load(pctx, resolved.StreamURL); err != nil {
		c.closeSink(sink)
		return c.failStart(seq, err)
	}

	c.mu.Lock()
	if seq != c.playSeq || c.closed {
		c.mu.Unlock()
		c.closeSink(sink)
		return shared.ErrSuperseded
	}

	if err := sink.SetVolume(c.session.Volume); err != nil {
		c.logger.Warn("failed to apply volume", "err", err)
	}
	sink.SetListener(&sinkListener{c: c, sink: sink})
	if err := sink.Play(); err != nil {
		sink.SetListener(nil)
		c.mu.Unlock()
		c.closeSink(sink)
		return c.failStart(seq, err)
	}

	c.sink = sink
	c.session.Track = &resolved
	c.session.Playing = true
	c.state = StatePlaying
	if d := sink.Duration(); d > 0 {
		c.duration = d
	}
	c.emitLocked(EventState)
	c.mu.Unlock()

	c.logger.Info("playing", "track", t.ID, "title", t.Title, "artist", t.Artist.Name)
	return nil
}

// failStart moves to Error with a blocking notice unless a newer start superseded seq.
func (c *Controller) failStart(seq uint64, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.playSeq {
		return shared.ErrSuperseded
	}

	c.logger.Error("failed to start playback", "err", err)
	c.state = StateError
	c.session.Playing = false
	c.noticeLocked(Blocking, "Failed to play track", err)
	c.emitLocked(EventState)
	return err
}

// advance plans and commits the next navigation step, then plays it.
func (c *Controller) advance(ctx context.Context, dir queue.Direction) error {
	c.mu.Lock()
	repeat, shuffle := c.session.Repeat, c.session.Shuffle
	xf := c.cancelTransitionLocked()
	c.mu.Unlock()

	if xf != nil {
		<-xf.done
	}

	plan, err := c.queue.Plan(ctx, dir, repeat, shuffle)
	if err != nil {
		if errors.Is(err, shared.ErrNoNextTrack) {
			c.logger.Info("nothing left to play", "direction", dir)
			c.Stop()
		}
		return err
	}

	if plan.Restart {
		return c.restart(ctx, plan.Track)
	}
	if err := c.queue.Apply(plan); err != nil {
		return err
	}
	return c.start(ctx, plan.Track)
}

// restart replays the primary from zero, or starts t when there is no primary.
func (c *Controller) restart(ctx context.Context, t models.Track) error {
	c.mu.Lock()
	if c.sink == nil || c.session.Track == nil || c.session.Track.ID != t.ID {
		c.mu.Unlock()
		return c.start(ctx, t)
	}
	defer c.mu.Unlock()

	if err := c.rewindLocked(); err != nil {
		return err
	}
	if err := c.sink.Play(); err != nil {
		c.failLocked(c.sink, err)
		return err
	}
	c.session.Playing = true
	c.session.IsUserPausing = false
	c.state = StatePlaying
	c.emitLocked(EventState)
	return nil
}

func (c *Controller) rewindLocked() error {
	if err := c.sink.Seek(0); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	c.position = 0
	c.fadeTriggered = false
	c.emitLocked(EventProgress)
	return nil
}

func (c *Controller) handleEnded(sink Sink) {
	c.mu.Lock()
	if sink != c.sink || c.xf != nil {
		c.mu.Unlock()
		return
	}
	c.state = StateEnded
	c.session.Playing = false
	c.emitLocked(EventState)
	c.mu.Unlock()

	go func() {
		if err := c.advance(context.Background(), queue.Forward); err != nil && !errors.Is(err, shared.ErrNoNextTrack) {
			c.logger.Warn("advance after end failed", "err", err)
		}
	}()
}

func (c *Controller) handleError(sink Sink, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sink != c.sink {
		c.logger.Debug("ignoring error from retired sink", "err", err)
		return
	}
	c.failLocked(sink, err)
}

// failLocked reports a sink error: passively during a crossfade or the suppression window,
// otherwise as a blocking failure that moves to Error.
func (c *Controller) failLocked(sink Sink, err error) {
	if c.session.IsCrossfading || c.now().Before(c.suppressUntil) {
		c.logger.Warn("suppressed playback error", "err", err)
		c.noticeLocked(Passive, "Playback hiccup", err)
		return
	}

	c.logger.Error("playback failed", "err", err, "class", shared.Classify(err))
	c.state = StateError
	c.session.Playing = false
	c.noticeLocked(Blocking, "Playback failed", err)
	c.emitLocked(EventState)
}

func (c *Controller) handleProgress(sink Sink, position, duration float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sink != c.sink {
		return
	}
	c.position = position
	if duration > 0 {
		c.duration = duration
	}
	if position < 1 {
		c.fadeTriggered = false
	}
	c.emitLocked(EventProgress)

	if !c.inCrossfadeWindowLocked() {
		return
	}
	c.fadeTriggered = true
	if !c.queue.HasNext(c.session.Repeat, c.session.Shuffle) {
		c.logger.Debug("no next track, letting the current one end")
		return
	}
	c.startCrossfadeLocked()
}

// inCrossfadeWindowLocked reports whether remaining time first fell into (D-0.5, D].
func (c *Controller) inCrossfadeWindowLocked() bool {
	if !c.session.CrossfadeEnabled || c.fadeTriggered || c.xf != nil {
		return false
	}
	if c.state != StatePlaying || c.session.Repeat == models.RepeatOne || c.session.IsUserPausing {
		return false
	}

	d := c.session.CrossfadeDuration.Seconds()
	if d <= 0 || c.duration <= 0 {
		return false
	}
	remaining := c.duration - c.position
	return remaining <= d && remaining > d-0.5
}

func (c *Controller) newSink() (Sink, error) {
	sink, err := c.factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSinkUnavailable, err)
	}
	c.liveSinks.Add(1)
	return sink, nil
}

// retire pauses, detaches, and closes a sink that is no longer primary.
func (c *Controller) retire(sink Sink) {
	sink.SetListener(nil)
	if err := sink.Pause(); err != nil {
		c.logger.Debug("pause on retire failed", "err", err)
	}
	c.closeSink(sink)
}

func (c *Controller) closeSink(sink Sink) {
	sink.SetListener(nil)
	if err := sink.Close(); err != nil {
		c.logger.Debug("sink close failed", "err", err)
	}
	c.liveSinks.Add(-1)
}

func (c *Controller) isLiked(id string) bool {
	if c.likes == nil || id == "" {
		return false
	}
	liked, err := c.likes.IsLiked(id)
	if err != nil {
		c.logger.Warn("failed to read like status", "err", err)
	}
	return liked
}

func (c *Controller) savePref(key, value string) error {
	if c.prefs == nil {
		return nil
	}
	if err := c.prefs.Set(key, value); err != nil {
		return fmt.Errorf("failed to save preference %s: %w", key, err)
	}
	return nil
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		IsPlaying:   c.session.Playing,
		Progress:    c.position,
		Duration:    c.duration,
		IsShuffled:  c.session.Shuffle,
		RepeatMode:  c.session.Repeat.String(),
		IsLiked:     c.session.Liked,
		State:       c.state.String(),
		Volume:      c.session.Volume,
		Quality:     string(c.session.Quality),
		Crossfading: c.session.IsCrossfading,
		Suggested:   c.queue.FromSuggestions(),

		Crossfade:        c.session.CrossfadeEnabled,
		CrossfadeSeconds: c.session.CrossfadeDuration.Seconds(),
	}
	if t := c.session.Track; t != nil {
		s.TrackID = t.ID
		s.Title = t.Title
		s.Artist = t.Artist.Name
		s.Album = t.Album.Title
		s.Cover = t.Album.Cover
	}
	return s
}

// emitLocked publishes kind and forwards track, state and mode changes to the broadcaster.
func (c *Controller) emitLocked(kind EventKind) {
	snap := c.snapshotLocked()
	c.emitter.Publish(Event{Kind: kind, Snapshot: snap})

	switch kind {
	case EventState, EventTrack, EventModes:
		c.broadcastLocked(snap)
	}
}

func (c *Controller) noticeLocked(sev Severity, msg string, err error) {
	c.emitter.Publish(Event{
		Kind:     EventNotice,
		Snapshot: c.snapshotLocked(),
		Notice:   &Notice{Severity: sev, Message: msg, Err: err},
	})
}

func (c *Controller) broadcastLocked(snap Snapshot) {
	if c.broadcasts == nil {
		return
	}
	select {
	case c.broadcasts <- snap:
	default:
		c.logger.Warn("broadcast queue full, dropping snapshot")
	}
}

func (c *Controller) runBroadcasts(b Broadcaster, snapshots <-chan Snapshot) {
	defer close(c.broadcastDone)
	for snap := range snapshots {
		ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
		if err := b.Broadcast(ctx, snap); err != nil {
			c.logger.Warn("broadcast failed", "err", err)
		}
		cancel()
	}
}
