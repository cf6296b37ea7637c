package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/hifix/internal/shared"
)

// EndpointPool is an ordered list of proxy base addresses with a rotation cooldown.
//
// Rotation advances the index (modulo the pool size) only when the cooldown has elapsed
// since the previous rotation; otherwise callers keep retrying the same base.
type EndpointPool struct {
	mu       sync.Mutex
	bases    []string
	current  int
	cooldown time.Duration
	limiter  *rate.Limiter
	now      func() time.Time
	logger   *log.Logger
}

// NewEndpointPool creates a pool over bases. A zero cooldown permits every rotation.
func NewEndpointPool(bases []string, cooldown time.Duration, logger *log.Logger) (*EndpointPool, error) {
	cleaned := make([]string, 0, len(bases))
	for _, b := range bases {
		if b = strings.TrimRight(strings.TrimSpace(b), "/"); b != "" {
			cleaned = append(cleaned, b)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: endpoint pool needs at least one base", shared.ErrInvalidConfig)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &EndpointPool{
		bases:    cleaned,
		cooldown: cooldown,
		limiter:  rate.NewLimiter(rate.Every(cooldown), 1),
		now:      time.Now,
		logger:   shared.WithLogger(logger, "component", "pool"),
	}, nil
}

// Current returns the active base address.
func (p *EndpointPool) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bases[p.current]
}

// Index returns the active position.
func (p *EndpointPool) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Size returns the number of bases.
func (p *EndpointPool) Size() int {
	return len(p.bases)
}

// Bases returns a copy of the configured bases, in rotation order.
func (p *EndpointPool) Bases() []string {
	out := make([]string, len(p.bases))
	copy(out, p.bases)
	return out
}

// Cooldown returns the minimum interval between rotations.
func (p *EndpointPool) Cooldown() time.Duration {
	return p.cooldown
}

// Rotate advances to the next base if the cooldown has elapsed and reports whether it did.
func (p *EndpointPool) Rotate() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.limiter.AllowN(p.now(), 1) {
		p.logger.Debug("rotation refused by cooldown", "base", p.bases[p.current])
		return false
	}

	from := p.bases[p.current]
	p.current = (p.current + 1) % len(p.bases)
	p.logger.Warn("rotated endpoint", "from", from, "to", p.bases[p.current],
		"position", fmt.Sprintf("%d/%d", p.current+1, len(p.bases)))
	return true
}
