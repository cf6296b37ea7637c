package formatter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/shared"
)

const (
	m3uHeader      = "#EXTM3U"
	m3uPlaylist    = "#PLAYLIST:"
	m3uInfo        = "#EXTINF:"
	m3uTrackData   = "#HIFIX:"
	trackURIPrefix = "hifix://track/"
)

// ExportM3U writes the playlist as extended M3U.
//
// Each entry is an #EXTINF line, a #HIFIX line carrying the full track as JSON, and a hifix:// URI.
func ExportM3U(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(m3uHeader + "\n")
	if name := oneLine(export.Playlist.Name); name != "" {
		buf.WriteString(m3uPlaylist + name + "\n")
	}

	for _, track := range export.Tracks {
		if track.ID == "" {
			return nil, fmt.Errorf("%w: track %q has no id", shared.ErrInvalidArgument, track.Title)
		}

		track.StreamURL = ""
		data, err := json.Marshal(track)
		if err != nil {
			return nil, fmt.Errorf("failed to encode track %s: %w", track.ID, err)
		}

		fmt.Fprintf(&buf, "%s%d,%s\n", m3uInfo, track.Duration, oneLine(track.Label()))
		fmt.Fprintf(&buf, "%s%s\n", m3uTrackData, data)
		fmt.Fprintf(&buf, "%s%s\n", trackURIPrefix, track.ID)
	}

	return buf.Bytes(), nil
}

// ParseM3U reads a playlist written by [ExportM3U].
//
// Entries without a #HIFIX line fall back to the #EXTINF duration and "Artist - Title" label.
// URIs that are not hifix:// track references are skipped.
func ParseM3U(r io.Reader) (*models.PlaylistExport, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	export := &models.PlaylistExport{}
	var (
		info    *models.Track
		data    *models.Track
		lineNo  int
		started bool
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" {
			continue
		}

		if !started {
			if line != m3uHeader {
				return nil, fmt.Errorf("%w: missing %s header", shared.ErrInvalidInput, m3uHeader)
			}
			started = true
			continue
		}

		switch {
		case strings.HasPrefix(line, m3uPlaylist):
			export.Playlist.Name = strings.TrimSpace(strings.TrimPrefix(line, m3uPlaylist))

		case strings.HasPrefix(line, m3uInfo):
			t, err := parseInfo(strings.TrimPrefix(line, m3uInfo))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			info = &t

		case strings.HasPrefix(line, m3uTrackData):
			var t models.Track
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, m3uTrackData)), &t); err != nil {
				return nil, fmt.Errorf("%w: line %d: invalid track data: %v", shared.ErrInvalidInput, lineNo, err)
			}
			data = &t

		case strings.HasPrefix(line, "#"):
			continue

		default:
			id, ok := strings.CutPrefix(line, trackURIPrefix)
			if ok && id != "" {
				export.Tracks = append(export.Tracks, entry(id, info, data))
			}
			info, data = nil, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}
	if !started {
		return nil, fmt.Errorf("%w: empty playlist file", shared.ErrInvalidInput)
	}

	export.Playlist.TrackCount = len(export.Tracks)
	return export, nil
}

// entry merges the directives preceding a URI into a track. The URI's id wins.
func entry(id string, info, data *models.Track) models.Track {
	var t models.Track
	switch {
	case data != nil:
		t = *data
	case info != nil:
		t = *info
	}
	t.ID = id
	t.StreamURL = ""
	return t
}

// parseInfo parses "duration,Artist - Title".
func parseInfo(s string) (models.Track, error) {
	durPart, label, ok := strings.Cut(s, ",")
	if !ok {
		return models.Track{}, fmt.Errorf("%w: malformed %s line", shared.ErrInvalidInput, m3uInfo)
	}

	var t models.Track
	if d, err := strconv.Atoi(strings.TrimSpace(durPart)); err == nil && d > 0 {
		t.Duration = d
	}

	label = strings.TrimSpace(label)
	if artist, title, ok := strings.Cut(label, " - "); ok {
		t.Artist.Name = strings.TrimSpace(artist)
		t.Title = strings.TrimSpace(title)
	} else {
		t.Title = label
	}
	return t, nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
