package playback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/queue"
	"github.com/desertthunder/hifix/internal/shared"
)

// startCrossfadeLocked begins a transition to the next planned track on a secondary sink.
//
// The primary keeps playing and keeps reporting progress, but its ended and error callbacks
// are detached until the transition commits or aborts.
func (c *Controller) startCrossfadeLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	xf := &transition{cancel: cancel, done: make(chan struct{}), primary: c.sink}

	c.xf = xf
	c.endedDuringFade = false
	c.session.IsCrossfading = true
	c.transition = TransitionLoading
	c.sink.SetListener(&sinkListener{c: c, sink: c.sink, mode: listenProgress})
	c.emitLocked(EventCrossfade)

	c.logger.Debug("crossfade started", "duration", c.session.CrossfadeDuration)
	go c.runCrossfade(ctx, xf, c.session.Repeat, c.session.Shuffle, c.session.Quality, c.session.CrossfadeDuration)
}

// cancelTransitionLocked cancels the crossfade in flight, if any. The caller waits on the
// returned transition's done channel, after releasing mu, before touching sinks.
func (c *Controller) cancelTransitionLocked() *transition {
	xf := c.xf
	if xf == nil {
		return nil
	}
	xf.cancel()
	c.session.IsCrossfading = false
	c.endedDuringFade = false
	return xf
}

func (c *Controller) runCrossfade(ctx context.Context, xf *transition, repeat models.RepeatMode, shuffle bool, quality models.Quality, d time.Duration) {
	defer close(xf.done)

	plan, err := c.queue.Plan(ctx, queue.Forward, repeat, shuffle)
	if err != nil {
		c.abortCrossfade(xf, fmt.Errorf("%w: %v", shared.ErrNextUnresolvable, err))
		return
	}
	if plan.Restart {
		c.abortCrossfade(xf, fmt.Errorf("%w: plan restarts the current track", shared.ErrNextUnresolvable))
		return
	}

	url := plan.Track.StreamURL
	if url == "" {
		if url, err = c.resolver.Resolve(ctx, plan.Track.ID, quality); err != nil {
			c.abortCrossfade(xf, fmt.Errorf("%w: %v", shared.ErrNextUnresolvable, err))
			return
		}
	}

	next, err := c.newSink()
	if err != nil {
		c.abortCrossfade(xf, err)
		return
	}
	if err := next.SetVolume(0); err != nil {
		c.logger.Debug("failed to mute secondary", "err", err)
	}
	next.SetListener(&sinkListener{c: c, sink: next, mode: listenProgress})

	if err := next.Load(ctx, url); err != nil {
		c.closeSink(next)
		if ctx.Err() != nil {
			err = shared.ErrUserCancelled
		}
		c.abortCrossfade(xf, err)
		return
	}

	c.mu.Lock()
	if !c.ownsPrimaryLocked(ctx, xf) {
		c.mu.Unlock()
		c.closeSink(next)
		c.abortCrossfade(xf, shared.ErrUserCancelled)
		return
	}
	if err := next.Play(); err != nil {
		c.mu.Unlock()
		c.closeSink(next)
		c.abortCrossfade(xf, err)
		return
	}
	c.transition = TransitionRamping
	c.emitLocked(EventCrossfade)
	c.mu.Unlock()

	if !c.ramp(ctx, xf, next, d) {
		c.closeSink(next)
		c.abortCrossfade(xf, shared.ErrUserCancelled)
		return
	}
	c.commitCrossfade(ctx, xf, next, plan, url)
}

// ownsPrimaryLocked reports whether the transition may still act on its primary.
func (c *Controller) ownsPrimaryLocked(ctx context.Context, xf *transition) bool {
	return ctx.Err() == nil && !c.session.IsUserPausing && c.sink == xf.primary && c.xf == xf
}

// ramp moves volume from the primary to next in equal steps over d. Each step reads the
// session volume, so volume changes during the ramp apply to both sinks.
func (c *Controller) ramp(ctx context.Context, xf *transition, next Sink, d time.Duration) bool {
	interval := max(d/time.Duration(c.steps), time.Millisecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for step := 1; step <= c.steps; step++ {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}

		c.mu.Lock()
		if !c.ownsPrimaryLocked(ctx, xf) {
			c.mu.Unlock()
			return false
		}
		p := float64(step) / float64(c.steps)
		target := c.session.Volume
		if err := xf.primary.SetVolume(target * (1 - p)); err != nil {
			c.logger.Debug("ramp primary volume failed", "err", err)
		}
		if err := next.SetVolume(target * p); err != nil {
			c.logger.Debug("ramp secondary volume failed", "err", err)
		}
		c.mu.Unlock()
	}
	return true
}

// commitCrossfade promotes next to primary and retires the old one.
func (c *Controller) commitCrossfade(ctx context.Context, xf *transition, next Sink, plan queue.Plan, url string) {
	c.mu.Lock()
	if !c.ownsPrimaryLocked(ctx, xf) {
		c.mu.Unlock()
		c.closeSink(next)
		c.abortCrossfade(xf, shared.ErrUserCancelled)
		return
	}

	c.transition = TransitionCommitting
	if err := c.queue.Apply(plan); err != nil {
		c.mu.Unlock()
		c.closeSink(next)
		c.abortCrossfade(xf, err)
		return
	}

	old := xf.primary
	old.SetListener(nil)
	if err := old.Pause(); err != nil {
		c.logger.Debug("pause on commit failed", "err", err)
	}

	if err := next.SetVolume(c.session.Volume); err != nil {
		c.logger.Debug("failed to restore volume", "err", err)
	}
	next.SetListener(&sinkListener{c: c, sink: next})
	c.sink = next

	t := plan.Track.WithStreamURL(url)
	c.session.Track = &t
	c.session.Liked = c.isLiked(t.ID)
	c.session.IsCrossfading = false
	c.session.Playing = true
	c.state = StatePlaying
	c.position = next.Position()
	c.duration = float64(t.Duration)
	if d := next.Duration(); d > 0 {
		c.duration = d
	}
	c.fadeTriggered = false
	c.endedDuringFade = false
	c.suppressUntil = c.now().Add(c.suppressWindow)
	c.transition = NotCrossfading
	c.xf = nil
	xf.cancel()
	c.emitLocked(EventTrack)
	c.mu.Unlock()

	c.closeSink(old)
	c.logger.Info("crossfaded", "track", t.ID, "title", t.Title)
}

// abortCrossfade ends the transition without switching tracks. When the primary is still
// current its volume and listeners are restored; when it ended during the fade, playback
// advances the normal way.
func (c *Controller) abortCrossfade(xf *transition, cause error) {
	c.mu.Lock()
	if c.xf != xf {
		c.mu.Unlock()
		return
	}

	c.transition = TransitionAborting
	restored := c.sink != nil && c.sink == xf.primary
	if restored {
		if err := xf.primary.SetVolume(c.session.Volume); err != nil {
			c.logger.Debug("failed to restore volume", "err", err)
		}
		xf.primary.SetListener(&sinkListener{c: c, sink: xf.primary})
	}

	ended := restored && c.endedDuringFade
	c.endedDuringFade = false
	c.session.IsCrossfading = false
	c.transition = NotCrossfading
	c.xf = nil
	xf.cancel()
	c.emitLocked(EventCrossfade)
	if ended {
		c.state = StateEnded
		c.session.Playing = false
		c.emitLocked(EventState)
	}
	c.mu.Unlock()

	switch {
	case errors.Is(cause, shared.ErrUserCancelled):
		c.logger.Debug("crossfade cancelled")
	case errors.Is(cause, shared.ErrSuperseded):
		c.logger.Debug("crossfade superseded", "err", cause)
	default:
		c.logger.Warn("crossfade aborted", "err", cause)
	}

	if ended {
		go func() {
			if err := c.advance(context.Background(), queue.Forward); err != nil && !errors.Is(err, shared.ErrNoNextTrack) {
				c.logger.Warn("advance after end failed", "err", err)
			}
		}()
	}
}

func (c *Controller) handleDetachedEnded(sink Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.xf != nil && c.xf.primary == sink {
		c.endedDuringFade = true
	}
}

// handleDetachedError reports errors from sinks a crossfade owns without interrupting playback.
func (c *Controller) handleDetachedError(sink Sink, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.xf == nil && sink != c.sink {
		c.logger.Debug("ignoring error from retired sink", "err", err)
		return
	}
	c.logger.Warn("error during crossfade", "err", err)
	c.noticeLocked(Passive, "Playback hiccup during crossfade", err)
}
