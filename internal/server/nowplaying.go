package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/hifix/internal/playback"
	"github.com/desertthunder/hifix/internal/shared"
)

// SnapshotSource returns the most recent now-playing snapshot.
type SnapshotSource interface {
	Snapshot() (playback.Snapshot, bool)
}

// Controls are the transport operations exposed over HTTP.
type Controls interface {
	TogglePlayPause() error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
}

// NowPlayingHandler serves the now-playing snapshot and transport controls.
type NowPlayingHandler struct {
	source   SnapshotSource
	controls Controls
	started  time.Time
	mux      *http.ServeMux
	logger   *log.Logger
}

// NewNowPlayingHandler creates the handler. A nil controls disables the control routes with 503.
func NewNowPlayingHandler(source SnapshotSource, controls Controls, logger *log.Logger) *NowPlayingHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	h := &NowPlayingHandler{
		source:   source,
		controls: controls,
		started:  time.Now(),
		mux:      http.NewServeMux(),
		logger:   shared.WithLogger(logger, "component", "server"),
	}

	h.mux.HandleFunc("GET /api/now-playing", h.nowPlaying)
	h.mux.HandleFunc("GET /api/health", h.health)
	h.mux.HandleFunc("POST /api/control/{action}", h.control)
	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *NowPlayingHandler) Routes() []string {
	return []string{"/api/"}
}

// ServeHTTP implements [http.Handler].
func (h *NowPlayingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *NowPlayingHandler) nowPlaying(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.source.Snapshot()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *NowPlayingHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *NowPlayingHandler) control(w http.ResponseWriter, r *http.Request) {
	if h.controls == nil {
		writeError(w, http.StatusServiceUnavailable, "controls unavailable")
		return
	}

	action := r.PathValue("action")
	switch action {
	case "toggle":
		if err := h.controls.TogglePlayPause(); err != nil {
			if errors.Is(err, shared.ErrNothingPlaying) {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"action": action})

	case "next", "previous":
		run := h.controls.Next
		if action == "previous" {
			run = h.controls.Previous
		}
		// Navigation waits on stream resolution, so it outlives the request.
		go func() {
			if err := run(context.Background()); err != nil && !errors.Is(err, shared.ErrSuperseded) {
				h.logger.Warn("control action failed", "action", action, "err", err)
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]string{"action": action})

	default:
		writeError(w, http.StatusNotFound, "unknown action "+action)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
