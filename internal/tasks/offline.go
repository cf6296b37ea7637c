package tasks

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/hifix/internal/bridge"
	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/services"
	"github.com/desertthunder/hifix/internal/shared"
)

const manifestName = "offline_manifest.json"

var _ Downloader = (*bridge.Downloader)(nil)

// Downloader saves a stream to disk and returns the local path.
type Downloader interface {
	Download(ctx context.Context, url, filename string) (string, error)
	Dir() string
}

// OfflineCacheOpts contains configuration for offline downloads.
type OfflineCacheOpts struct {
	Quality    models.Quality // Stream quality to resolve
	NumWorkers int            // Concurrent workers (default: 3)
	RateLimit  float64        // Resolutions per second (default: 2)
}

// TrackDownloadResult is the outcome for one track.
type TrackDownloadResult struct {
	Track models.Track `json:"track"`
	Path  string       `json:"path,omitempty"`
	Error error        `json:"-"`
	Cause string       `json:"error,omitempty"`
}

// OfflineCacheResult summarizes a playlist download.
type OfflineCacheResult struct {
	Playlist     models.Playlist       `json:"playlist"`
	Total        int                   `json:"total"`
	Downloaded   int                   `json:"downloaded"`
	Failed       int                   `json:"failed"`
	Results      []TrackDownloadResult `json:"results"`
	ManifestPath string                `json:"-"`
	FinishedAt   time.Time             `json:"finished_at"`
}

// OfflineCache downloads playlists for offline playback.
type OfflineCache struct {
	resolver   services.Resolver
	downloader Downloader
	logger     *log.Logger
}

// NewOfflineCache creates an OfflineCache.
func NewOfflineCache(resolver services.Resolver, downloader Downloader, logger *log.Logger) *OfflineCache {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &OfflineCache{
		resolver:   resolver,
		downloader: downloader,
		logger:     shared.WithLogger(logger, "component", "offline"),
	}
}

type downloadJob struct {
	index int
	track models.Track
}

type downloadOutcome struct {
	index  int
	result TrackDownloadResult
}

// Download resolves and downloads every track of export concurrently with rate limiting,
// then writes a manifest next to the files.
//
// Results keep playlist order. Failed tracks are recorded and do not abort the run.
func (c *OfflineCache) Download(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	export *models.PlaylistExport,
	opts OfflineCacheOpts,
) (*OfflineCacheResult, error) {
	if c.resolver == nil || c.downloader == nil {
		return nil, fmt.Errorf("%w: offline cache not initialized", shared.ErrServiceUnavailable)
	}
	if export == nil {
		return nil, fmt.Errorf("%w: playlist export", shared.ErrMissingArgument)
	}

	if opts.Quality == "" {
		opts.Quality = models.QualityLossless
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	total := len(export.Tracks)
	result := &OfflineCacheResult{
		Playlist: export.Playlist,
		Total:    total,
		Results:  make([]TrackDownloadResult, total),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan downloadJob, total)
	results := make(chan downloadOutcome, total)

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go c.worker(ctx, &wg, limiter, jobs, results, opts, prog, total)
	}

	for i, t := range export.Tracks {
		jobs <- downloadJob{index: i, track: t}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for out := range results {
		completed++
		res := out.result
		result.Results[out.index] = res

		if res.Error == nil {
			result.Downloaded++
			sendProgress(prog, downloadCompletedUpdate(completed, total, res))
		} else {
			result.Failed++
			sendProgress(prog, downloadFailedUpdate(completed, total, res))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("offline download interrupted: %w", err)
	}

	result.FinishedAt = time.Now()
	manifestPath := filepath.Join(c.downloader.Dir(), bridge.SanitizeFilename(export.Playlist.Name)+"_"+manifestName)
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("download completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	sendProgress(prog, manifestUpdate(manifestPath))

	c.logger.Info("offline download finished", "playlist", export.Playlist.Name, "downloaded", result.Downloaded, "failed", result.Failed)
	return result, nil
}

// worker resolves and downloads tracks from the jobs channel.
func (c *OfflineCache) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan downloadJob,
	results chan<- downloadOutcome,
	opts OfflineCacheOpts,
	prog chan<- ProgressUpdate,
	total int,
) {
	defer wg.Done()

	for job := range jobs {
		res := TrackDownloadResult{Track: job.track}

		if err := limiter.Wait(ctx); err != nil {
			res.Error = err
		} else {
			sendProgress(prog, resolveTrackUpdate(job.index+1, total, job.track))
			res.Path, res.Error = c.downloadTrack(ctx, job.track, opts.Quality)
		}

		if res.Error != nil {
			res.Cause = res.Error.Error()
			c.logger.Warn("track download failed", "track", job.track.ID, "err", res.Error)
		}
		results <- downloadOutcome{index: job.index, result: res}
	}
}

func (c *OfflineCache) downloadTrack(ctx context.Context, t models.Track, quality models.Quality) (string, error) {
	streamURL := t.StreamURL
	if streamURL == "" {
		resolved, err := c.resolver.Resolve(ctx, t.ID, quality)
		if err != nil {
			return "", err
		}
		streamURL = resolved
	}
	return c.downloader.Download(ctx, streamURL, t.Label()+streamExt(streamURL))
}

// streamExt returns the file extension of the stream URL's path, defaulting to .flac.
func streamExt(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ".flac"
	}
	if ext := path.Ext(u.Path); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".flac"
}

func writeManifest(result *OfflineCacheResult, path string) error {
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
