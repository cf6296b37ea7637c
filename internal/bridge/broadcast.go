// Package bridge connects the player to the host shell: now-playing surfaces that receive
// session snapshots, and the downloader used for offline caching.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/desertthunder/hifix/internal/playback"
)

// Latest keeps the most recent snapshot for pull-based surfaces such as the HTTP server.
type Latest struct {
	mu        sync.RWMutex
	snapshot  playback.Snapshot
	updatedAt time.Time
	set       bool
}

// NewLatest creates an empty snapshot holder.
func NewLatest() *Latest {
	return &Latest{}
}

// Broadcast implements [playback.Broadcaster].
func (l *Latest) Broadcast(ctx context.Context, s playback.Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshot = s
	l.updatedAt = time.Now()
	l.set = true
	return nil
}

// Snapshot returns the latest snapshot, and false when nothing has been broadcast yet.
func (l *Latest) Snapshot() (playback.Snapshot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot, l.set
}

// UpdatedAt returns when the last snapshot arrived.
func (l *Latest) UpdatedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.updatedAt
}

// Multi fans a snapshot out to several broadcasters. Every target is attempted.
type Multi []playback.Broadcaster

func (m Multi) Broadcast(ctx context.Context, s playback.Snapshot) error {
	var errs []error
	for _, b := range m {
		if b == nil {
			continue
		}
		if err := b.Broadcast(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
