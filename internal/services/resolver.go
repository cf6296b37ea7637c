package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/shared"
)

// streamKeys are the response fields that may carry a direct-play URL, in preference order.
var streamKeys = []string{"OriginalTrackUrl", "url", "streamUrl", "manifestUrl"}

// TrackSourceResolver turns a track identifier into a playable stream URL.
type TrackSourceResolver struct {
	api    *APIService
	logger *log.Logger
}

// NewTrackSourceResolver creates a resolver that issues lookups through api.
func NewTrackSourceResolver(api *APIService, logger *log.Logger) *TrackSourceResolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &TrackSourceResolver{api: api, logger: shared.WithLogger(logger, "component", "resolver")}
}

// Resolve looks up the stream URL for trackID at the given quality.
//
// Errors wrap [shared.ErrStreamNotFound] when an endpoint answered without a playable URL,
// [shared.ErrNetwork] when a failure could not rotate because of the cooldown, and
// [shared.ErrEndpointsExhausted] when every endpoint in the pool failed.
func (r *TrackSourceResolver) Resolve(ctx context.Context, trackID string, quality models.Quality) (string, error) {
	if trackID == "" {
		return "", fmt.Errorf("%w: track id is required", shared.ErrInvalidArgument)
	}
	if quality == "" {
		quality = models.QualityLossless
	}

	path := fmt.Sprintf("/track/?id=%s&quality=%s", url.QueryEscape(trackID), url.QueryEscape(string(quality)))

	var streamURL string
	err := withRotation(ctx, r.api.Pool(), r.logger, func(base string) error {
		resp, err := r.api.Fetch(ctx, base+path)
		if err != nil {
			return err
		}
		if !resp.IsJSON {
			return fmt.Errorf("%w: non-JSON response for track %s", shared.ErrStreamNotFound, trackID)
		}
		found, ok := findStreamURL(resp.JSONData)
		if !ok {
			return fmt.Errorf("%w: track %s at %s", shared.ErrStreamNotFound, trackID, base)
		}
		streamURL = found
		return nil
	})
	if err != nil {
		return "", err
	}

	r.logger.Debug("resolved stream", "track", trackID, "quality", quality)
	return streamURL, nil
}

// ResolveTrack returns a resolved copy of t.
func (r *TrackSourceResolver) ResolveTrack(ctx context.Context, t models.Track, quality models.Quality) (models.Track, error) {
	u, err := r.Resolve(ctx, t.ID, quality)
	if err != nil {
		return t, err
	}
	return t.WithStreamURL(u), nil
}

// withRotation runs attempt against the pool's current base, rotating on request failures.
//
// The loop makes at most Size() attempts and at most Size()-1 rotations. A refused rotation
// stops immediately with [shared.ErrNetwork]. Errors that are not request failures are returned as-is.
func withRotation(ctx context.Context, pool *EndpointPool, logger *log.Logger, attempt func(base string) error) error {
	if pool == nil {
		return fmt.Errorf("%w: no endpoint pool configured", shared.ErrMissingConfig)
	}

	n := pool.Size()
	var lastErr error
	for i := 0; i < n; i++ {
		base := pool.Current()
		err := attempt(base)
		if err == nil {
			return nil
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %v", shared.ErrNetwork, ctxErr)
		}

		logger.Warn("endpoint failed", "base", base, "attempt", i+1, "err", err)
		lastErr = err

		if i == n-1 {
			break
		}
		if !pool.Rotate() {
			return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
		}
	}

	return fmt.Errorf("%w: %d endpoint(s) failed, last: %v", shared.ErrEndpointsExhausted, n, lastErr)
}

// findStreamURL scans v depth-first for the first known key holding an absolute http(s) URL.
func findStreamURL(v any) (string, bool) {
	switch node := v.(type) {
	case map[string]any:
		for _, key := range streamKeys {
			if s, ok := node[key].(string); ok && isAbsoluteHTTP(s) {
				return s, true
			}
		}

		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			if found, ok := findStreamURL(node[k]); ok {
				return found, true
			}
		}
	case []any:
		for _, item := range node {
			if found, ok := findStreamURL(item); ok {
				return found, true
			}
		}
	}
	return "", false
}

func isAbsoluteHTTP(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
