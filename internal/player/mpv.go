// Package player provides the audio sink used by the playback controller: an mpv process driven
// over its JSON IPC socket.
package player

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/hifix/internal/playback"
	"github.com/desertthunder/hifix/internal/shared"
)

const (
	commandTimeout = 5 * time.Second
	dialTimeout    = 3 * time.Second
	dialInterval   = 50 * time.Millisecond
	eventBuffer    = 64

	observeTimePos  = 1
	observeDuration = 2
)

type request struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// message is either a command reply (request_id set) or an event.
type message struct {
	RequestID *int64          `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Event     string          `json:"event,omitempty"`
	Name      string          `json:"name,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	FileError string          `json:"file_error,omitempty"`
}

type reply struct {
	data json.RawMessage
	err  string
}

type eventKind int

const (
	eventProgress eventKind = iota
	eventEnded
	eventError
)

type event struct {
	kind     eventKind
	position float64
	duration float64
	err      error
}

// MPV is a [playback.Sink] backed by one mpv process.
type MPV struct {
	conn    net.Conn
	cmd     *exec.Cmd
	socket  string
	writeMu sync.Mutex

	mu       sync.Mutex
	pending  map[int64]chan reply
	nextID   int64
	listener playback.Listener
	loading  chan error
	volume   float64
	position float64
	duration float64
	quitting bool
	closed   bool

	events    chan event
	done      chan struct{}
	closeOnce sync.Once
	logger    *log.Logger
}

// NewFactory returns a [playback.SinkFactory] that starts a fresh mpv process per sink.
func NewFactory(cfg shared.PlayerConfig, logger *log.Logger) playback.SinkFactory {
	return func() (playback.Sink, error) {
		return Start(context.Background(), cfg, logger)
	}
}

// Start launches mpv in idle mode and connects to its IPC socket.
func Start(ctx context.Context, cfg shared.PlayerConfig, logger *log.Logger) (*MPV, error) {
	bin := cfg.MPVPath
	if bin == "" {
		bin = "mpv"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found: %v", shared.ErrSinkUnavailable, bin, err)
	}

	dir := cfg.SocketDir
	if dir == "" {
		dir = os.TempDir()
	}
	socket := filepath.Join(dir, "hifix-mpv-"+shared.GenerateID()+".sock")

	cmd := exec.Command(path,
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--pause=yes",
		"--volume=0",
		"--input-ipc-server="+socket,
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start mpv: %v", shared.ErrSinkUnavailable, err)
	}

	conn, err := dialSocket(ctx, socket)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}

	m := newMPV(conn, logger)
	m.cmd = cmd
	m.socket = socket

	if err := m.observe(ctx); err != nil {
		m.Close()
		return nil, err
	}
	m.logger.Debug("mpv started", "pid", cmd.Process.Pid, "socket", socket)
	return m, nil
}

func dialSocket(ctx context.Context, socket string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "unix", socket)
		if err == nil {
			return conn, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: mpv socket never came up: %v", shared.ErrSinkUnavailable, err)
		case <-time.After(dialInterval):
		}
	}
}

// newMPV wraps an established IPC connection and starts the reader and dispatcher.
func newMPV(conn net.Conn, logger *log.Logger) *MPV {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	m := &MPV{
		conn:    conn,
		pending: make(map[int64]chan reply),
		events:  make(chan event, eventBuffer),
		done:    make(chan struct{}),
		logger:  shared.WithLogger(logger, "component", "mpv"),
	}
	go m.read()
	go m.dispatch()
	return m
}

func (m *MPV) observe(ctx context.Context) error {
	if _, err := m.command(ctx, "observe_property", observeTimePos, "time-pos"); err != nil {
		return err
	}
	_, err := m.command(ctx, "observe_property", observeDuration, "duration")
	return err
}

// Load replaces the current file with url, paused, and waits until mpv has opened it.
func (m *MPV) Load(ctx context.Context, url string) error {
	ch := make(chan error, 1)
	m.mu.Lock()
	m.loading = ch
	m.position, m.duration = 0, 0
	m.mu.Unlock()

	if _, err := m.command(ctx, "set_property", "pause", true); err != nil {
		return err
	}
	if _, err := m.command(ctx, "loadfile", url, "replace"); err != nil {
		return err
	}

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		m.mu.Lock()
		if m.loading == ch {
			m.loading = nil
		}
		m.mu.Unlock()
		return ctx.Err()
	case <-m.done:
		return shared.ErrSinkUnavailable
	}
}

func (m *MPV) Play() error {
	return m.set("pause", false)
}

func (m *MPV) Pause() error {
	return m.set("pause", true)
}

func (m *MPV) Seek(position float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if _, err := m.command(ctx, "seek", position, "absolute"); err != nil {
		return err
	}

	m.mu.Lock()
	m.position = position
	m.mu.Unlock()
	return nil
}

// SetVolume takes v in [0,1]; mpv's scale is percent.
func (m *MPV) SetVolume(v float64) error {
	v = max(0, min(1, v))
	if err := m.set("volume", v*100); err != nil {
		return err
	}

	m.mu.Lock()
	m.volume = v
	m.mu.Unlock()
	return nil
}

func (m *MPV) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *MPV) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *MPV) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *MPV) SetListener(l playback.Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

// Close quits mpv and releases the socket.
func (m *MPV) Close() error {
	m.mu.Lock()
	if m.closed || m.quitting {
		m.mu.Unlock()
		return nil
	}
	m.quitting = true
	m.listener = nil
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	if _, err := m.command(ctx, "quit"); err != nil {
		m.logger.Debug("quit failed", "err", err)
	}
	cancel()

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.shutdown()

	err := m.conn.Close()
	if m.cmd != nil && m.cmd.Process != nil {
		_ = m.cmd.Process.Kill()
		_ = m.cmd.Wait()
	}
	if m.socket != "" {
		_ = os.Remove(m.socket)
	}
	return err
}

func (m *MPV) shutdown() {
	m.closeOnce.Do(func() { close(m.done) })
}

func (m *MPV) set(name string, value any) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	_, err := m.command(ctx, "set_property", name, value)
	return err
}

// command sends one IPC request and waits for its reply.
func (m *MPV) command(ctx context.Context, args ...any) (json.RawMessage, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, shared.ErrSinkUnavailable
	}
	m.nextID++
	id := m.nextID
	ch := make(chan reply, 1)
	m.pending[id] = ch
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.pending, id)
		m.mu.Unlock()
	}()

	b, err := json.Marshal(request{Command: args, RequestID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to encode mpv command: %w", err)
	}
	b = append(b, '\n')

	m.logger.Debug("ipc send", "id", id, "command", args[0])
	m.writeMu.Lock()
	_, err = m.conn.Write(b)
	m.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSinkUnavailable, err)
	}

	select {
	case r := <-ch:
		if r.err != "success" {
			return nil, fmt.Errorf("mpv %v failed: %s", args[0], r.err)
		}
		return r.data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.done:
		return nil, shared.ErrSinkUnavailable
	}
}

// read decodes replies and events until the connection closes.
func (m *MPV) read() {
	scanner := bufio.NewScanner(m.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		var msg message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			m.logger.Debug("ignoring malformed ipc line", "err", err)
			continue
		}
		if msg.Event == "" && msg.RequestID != nil {
			m.deliver(*msg.RequestID, reply{data: msg.Data, err: msg.Error})
			continue
		}
		m.handleEvent(msg)
	}

	m.mu.Lock()
	expected := m.closed || m.quitting
	m.mu.Unlock()
	if !expected {
		err := scanner.Err()
		if err == nil {
			err = errors.New("ipc connection closed")
		}
		m.logger.Warn("mpv connection lost", "err", err)
		m.emit(event{kind: eventError, err: fmt.Errorf("%w: %v", shared.ErrPlaybackAborted, err)})
	}
	m.shutdown()
}

func (m *MPV) deliver(id int64, r reply) {
	m.mu.Lock()
	ch, ok := m.pending[id]
	m.mu.Unlock()
	if ok {
		ch <- r
	}
}

func (m *MPV) handleEvent(msg message) {
	switch msg.Event {
	case "property-change":
		var v float64
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			return
		}
		m.mu.Lock()
		switch msg.Name {
		case "time-pos":
			m.position = v
		case "duration":
			m.duration = v
		}
		pos, dur := m.position, m.duration
		m.mu.Unlock()

		if msg.Name == "time-pos" {
			m.emit(event{kind: eventProgress, position: pos, duration: dur})
		}
	case "file-loaded":
		m.finishLoad(nil)
	case "end-file":
		switch msg.Reason {
		case "eof":
			m.emit(event{kind: eventEnded})
		case "error":
			err := fileError(msg.FileError)
			if !m.finishLoad(err) {
				m.emit(event{kind: eventError, err: err})
			}
		}
	}
}

// finishLoad resolves a pending Load and reports whether one was waiting.
func (m *MPV) finishLoad(err error) bool {
	m.mu.Lock()
	ch := m.loading
	m.loading = nil
	m.mu.Unlock()

	if ch == nil {
		return false
	}
	ch <- err
	return true
}

// emit queues an event for the listener. Progress is dropped when the queue is full.
func (m *MPV) emit(ev event) {
	if ev.kind == eventProgress {
		select {
		case m.events <- ev:
		default:
		}
		return
	}
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

// dispatch calls the listener outside of any lock, on its own goroutine. Events queued before
// shutdown are still delivered.
func (m *MPV) dispatch() {
	for {
		select {
		case ev := <-m.events:
			m.notify(ev)
		case <-m.done:
			for {
				select {
				case ev := <-m.events:
					m.notify(ev)
				default:
					return
				}
			}
		}
	}
}

func (m *MPV) notify(ev event) {
	m.mu.Lock()
	l := m.listener
	m.mu.Unlock()
	if l == nil {
		return
	}

	switch ev.kind {
	case eventProgress:
		l.OnProgress(ev.position, ev.duration)
	case eventEnded:
		l.OnEnded()
	case eventError:
		l.OnError(ev.err)
	}
}

// fileError maps mpv's end-file error text to a media error.
func fileError(text string) error {
	lower := strings.ToLower(text)
	code := 0
	switch {
	case strings.Contains(lower, "format"):
		code = 4
	case strings.Contains(lower, "loading failed"), strings.Contains(lower, "network"), strings.Contains(lower, "http"):
		code = 2
	case strings.Contains(lower, "no audio"), strings.Contains(lower, "decod"):
		code = 3
	case strings.Contains(lower, "abort"):
		code = 1
	}
	return fmt.Errorf("%w: %s", shared.MediaError(code), text)
}
