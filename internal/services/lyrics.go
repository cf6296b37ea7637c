package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/hifix/internal/shared"
)

const defaultLyricsTimeout = 10 * time.Second

var syncedTimestamp = regexp.MustCompile(`\[\d{2}:\d{2}(?:\.\d{2,3})?\]`)

// LyricsService fetches plain-text lyrics from lrclib, falling back to lyrics.ovh.
type LyricsService struct {
	api       *APIService
	lrclib    string
	lyricsOvh string
	timeout   time.Duration
	logger    *log.Logger
}

// NewLyricsService creates a lyrics client from config. A nil client uses [http.DefaultClient].
func NewLyricsService(cfg shared.LyricsConfig, client *http.Client, logger *log.Logger) *LyricsService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = defaultLyricsTimeout
	}

	return &LyricsService{
		api:       NewAPIService(nil, client),
		lrclib:    strings.TrimRight(cfg.LrclibURL, "/"),
		lyricsOvh: strings.TrimRight(cfg.LyricsOvhURL, "/"),
		timeout:   timeout,
		logger:    shared.WithLogger(logger, "component", "lyrics"),
	}
}

type lyricsProvider struct {
	name  string
	url   string
	parse func(data map[string]any) string
}

func (l *LyricsService) providers(title, artist string) []lyricsProvider {
	var out []lyricsProvider
	if l.lrclib != "" {
		out = append(out, lyricsProvider{
			name: "lrclib",
			url: fmt.Sprintf("%s/api/get?artist_name=%s&track_name=%s",
				l.lrclib, url.QueryEscape(artist), url.QueryEscape(title)),
			parse: func(data map[string]any) string {
				if plain, _ := data["plainLyrics"].(string); strings.TrimSpace(plain) != "" {
					return plain
				}
				synced, _ := data["syncedLyrics"].(string)
				return strings.TrimSpace(syncedTimestamp.ReplaceAllString(synced, ""))
			},
		})
	}
	if l.lyricsOvh != "" {
		out = append(out, lyricsProvider{
			name: "lyrics.ovh",
			url:  fmt.Sprintf("%s/v1/%s/%s", l.lyricsOvh, url.PathEscape(artist), url.PathEscape(title)),
			parse: func(data map[string]any) string {
				s, _ := data["lyrics"].(string)
				return s
			},
		})
	}
	return out
}

// FetchLyrics returns the lyrics for a track, trying each provider in order.
//
// Parenthetical suffixes such as "(Remastered)" are stripped before querying. The whole
// lookup is bounded by the configured timeout and reports [shared.ErrTimeout] when it fires.
// [shared.ErrLyricsNotFound] is returned when no provider has the track.
func (l *LyricsService) FetchLyrics(ctx context.Context, title, artist string) (string, error) {
	cleanTitle := shared.StripParenthetical(title)
	cleanArtist := shared.StripParenthetical(artist)
	if cleanTitle == "" || cleanArtist == "" {
		return "", fmt.Errorf("%w: title and artist are required", shared.ErrMissingArgument)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	for _, p := range l.providers(cleanTitle, cleanArtist) {
		resp, err := l.api.Fetch(ctx, p.url)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: lyrics lookup after %s", shared.ErrTimeout, l.timeout)
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			l.logger.Debug("provider failed", "provider", p.name, "err", err)
			continue
		}

		data, ok := resp.JSONData.(map[string]any)
		if !ok {
			continue
		}
		if text := strings.TrimSpace(p.parse(data)); text != "" {
			l.logger.Debug("lyrics found", "provider", p.name, "title", cleanTitle)
			return text, nil
		}
	}

	return "", fmt.Errorf("%w: %s by %s", shared.ErrLyricsNotFound, cleanTitle, cleanArtist)
}

// LyricsLines splits lyrics text into display lines, dropping blank ones.
func LyricsLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// LyricsSync picks the line to highlight for a playback position.
type LyricsSync interface {
	ActiveLine(position, duration float64, lines int) int
}

// ProportionalSync spreads unsynchronized lyrics evenly across the middle of a track.
//
// The position is advanced by Lead seconds. The first Intro fraction of the track holds the
// first line, the last Outro fraction holds the last line, and the rest is divided evenly.
type ProportionalSync struct {
	Lead  float64
	Intro float64
	Outro float64
}

// DefaultLyricsSync returns the 2.5 s lead and 10/80/10 split.
func DefaultLyricsSync() ProportionalSync {
	return ProportionalSync{Lead: 2.5, Intro: 0.1, Outro: 0.1}
}

// ActiveLine returns the highlighted line index, or -1 when there is nothing to highlight.
func (s ProportionalSync) ActiveLine(position, duration float64, lines int) int {
	if lines <= 0 || duration <= 0 {
		return -1
	}

	ratio := math.Max(0, position+s.Lead) / duration
	switch {
	case ratio < s.Intro:
		return 0
	case ratio > 1-s.Outro:
		return lines - 1
	}

	body := 1 - s.Intro - s.Outro
	if body <= 0 {
		return 0
	}
	idx := int(math.Floor((ratio - s.Intro) / body * float64(lines)))
	return max(0, min(lines-1, idx))
}
