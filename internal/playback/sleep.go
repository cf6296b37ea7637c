package playback

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/hifix/internal/shared"
)

const (
	defaultSleepStep = 100 * time.Millisecond
	sleepFadeSteps   = 20
)

type sleepTimer struct {
	cancel   context.CancelFunc
	deadline time.Time
}

// StartSleepTimer fades out and pauses after d. A running timer is replaced.
func (c *Controller) StartSleepTimer(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: sleep timer must be positive", shared.ErrInvalidArgument)
	}

	c.mu.Lock()
	if c.sleep != nil {
		c.sleep.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	st := &sleepTimer{cancel: cancel, deadline: c.now().Add(d)}
	c.sleep = st
	step := c.sleepStep
	c.emitLocked(EventSleepTimer)
	c.mu.Unlock()

	go c.runSleepTimer(ctx, st, d, step)
	return nil
}

// CancelSleepTimer stops a running timer and restores the volume if it was fading.
func (c *Controller) CancelSleepTimer() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sleep == nil {
		return false
	}
	c.sleep.cancel()
	c.sleep = nil
	c.emitLocked(EventSleepTimer)
	return true
}

// SleepRemaining reports the time left on the sleep timer.
func (c *Controller) SleepRemaining() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sleep == nil {
		return 0, false
	}
	return max(0, c.sleep.deadline.Sub(c.now())), true
}

func (c *Controller) runSleepTimer(ctx context.Context, st *sleepTimer, d, step time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	c.mu.Lock()
	xf := c.cancelTransitionLocked()
	c.mu.Unlock()
	if xf != nil {
		<-xf.done
	}

	ticker := time.NewTicker(step)
	defer ticker.Stop()
	for i := 1; i <= sleepFadeSteps; i++ {
		select {
		case <-ctx.Done():
			c.restoreVolume()
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.sink != nil {
			v := c.session.Volume * (1 - float64(i)/sleepFadeSteps)
			if err := c.sink.SetVolume(v); err != nil {
				c.logger.Debug("sleep fade failed", "err", err)
			}
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	if c.sleep != st {
		c.mu.Unlock()
		c.restoreVolume()
		return
	}
	c.sleep = nil
	if c.sink != nil {
		if c.session.Playing {
			c.session.IsUserPausing = true
			if err := c.sink.Pause(); err != nil {
				c.logger.Warn("sleep pause failed", "err", err)
			}
			c.session.Playing = false
			c.state = StatePaused
		}
		if err := c.sink.SetVolume(c.session.Volume); err != nil {
			c.logger.Debug("failed to restore volume", "err", err)
		}
	}
	c.emitLocked(EventSleepTimer)
	c.emitLocked(EventState)
	c.mu.Unlock()

	c.logger.Info("sleep timer paused playback")
}

func (c *Controller) restoreVolume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sink != nil && !c.session.IsCrossfading {
		if err := c.sink.SetVolume(c.session.Volume); err != nil {
			c.logger.Debug("failed to restore volume", "err", err)
		}
	}
}
