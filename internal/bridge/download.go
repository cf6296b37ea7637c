package bridge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/hifix/internal/shared"
)

// Downloader saves streams to a local directory.
type Downloader struct {
	dir    string
	client *http.Client
	logger *log.Logger
}

// NewDownloader creates a downloader writing into dir. A nil client uses [http.DefaultClient].
func NewDownloader(dir string, client *http.Client, logger *log.Logger) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Downloader{dir: dir, client: client, logger: shared.WithLogger(logger, "component", "bridge", "sink", "download")}
}

// Dir returns the target directory.
func (d *Downloader) Dir() string {
	return d.dir
}

// Download fetches url into filename inside the target directory and returns the local path.
// The file appears only once the body has been fully written.
func (d *Downloader) Download(ctx context.Context, url, filename string) (string, error) {
	name := SanitizeFilename(filename)
	if name == "" {
		return "", fmt.Errorf("%w: filename", shared.ErrMissingArgument)
	}
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: download returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(d.dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write download: %w", err)
	}

	path := filepath.Join(d.dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move download into place: %w", err)
	}

	d.logger.Debug("downloaded", "path", path, "bytes", n)
	return path, nil
}

// SanitizeFilename strips path separators and characters most filesystems reject.
func SanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 32 {
			return -1
		}
		return r
	}, name)
	return strings.Trim(strings.TrimSpace(name), ".")
}
