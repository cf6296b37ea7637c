package player

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/hifix/internal/shared"
)

// peer plays the mpv side of the IPC connection.
type peer struct {
	conn    net.Conn
	mu      sync.Mutex
	cmds    chan []any
	respond func(cmd []any) (string, []string)
}

func newPeer(t *testing.T, respond func(cmd []any) (string, []string)) (*MPV, *peer) {
	t.Helper()
	client, server := net.Pipe()
	p := &peer{conn: server, cmds: make(chan []any, 32), respond: respond}
	go p.serve()

	m := newMPV(client, shared.NewLogger(io.Discard))
	t.Cleanup(func() {
		m.Close()
		server.Close()
	})
	return m, p
}

func (p *peer) serve() {
	scanner := bufio.NewScanner(p.conn)
	for scanner.Scan() {
		var req request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil || len(req.Command) == 0 {
			continue
		}
		select {
		case p.cmds <- req.Command:
		default:
		}

		status, events := "success", []string(nil)
		if p.respond != nil {
			status, events = p.respond(req.Command)
		}
		p.send(fmt.Sprintf(`{"request_id":%d,"error":%q,"data":null}`, req.RequestID, status))
		for _, ev := range events {
			p.send(ev)
		}
		if req.Command[0] == "quit" {
			p.conn.Close()
			return
		}
	}
}

func (p *peer) send(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn.Write([]byte(line + "\n"))
}

func (p *peer) next(t *testing.T) []any {
	t.Helper()
	select {
	case cmd := <-p.cmds:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a command")
		return nil
	}
}

type recordingListener struct {
	progress chan [2]float64
	ended    chan struct{}
	errs     chan error
}

func newRecordingListener() *recordingListener {
	return &recordingListener{
		progress: make(chan [2]float64, 8),
		ended:    make(chan struct{}, 8),
		errs:     make(chan error, 8),
	}
}

func (r *recordingListener) OnProgress(pos, dur float64) { r.progress <- [2]float64{pos, dur} }
func (r *recordingListener) OnEnded()                    { r.ended <- struct{}{} }
func (r *recordingListener) OnError(err error)           { r.errs <- err }

func onLoad(events ...string) func([]any) (string, []string) {
	return func(cmd []any) (string, []string) {
		if cmd[0] == "loadfile" {
			return "success", events
		}
		return "success", nil
	}
}

func TestMPVLoad(t *testing.T) {
	t.Run("Waits For File Loaded", func(t *testing.T) {
		m, p := newPeer(t, onLoad(`{"event":"file-loaded"}`))

		if err := m.Load(context.Background(), "https://cdn.test/a.flac"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		pause := p.next(t)
		if pause[0] != "set_property" || pause[1] != "pause" || pause[2] != true {
			t.Errorf("expected paused load, got %v", pause)
		}
		load := p.next(t)
		if load[0] != "loadfile" || load[1] != "https://cdn.test/a.flac" || load[2] != "replace" {
			t.Errorf("unexpected loadfile command %v", load)
		}
	})

	t.Run("Reports File Error", func(t *testing.T) {
		m, _ := newPeer(t, onLoad(`{"event":"end-file","reason":"error","file_error":"unrecognized file format"}`))

		err := m.Load(context.Background(), "https://cdn.test/a.xyz")
		if !errors.Is(err, shared.ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})

	t.Run("Honors Context", func(t *testing.T) {
		m, _ := newPeer(t, nil)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		if err := m.Load(ctx, "https://cdn.test/slow.flac"); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}

func TestMPVCommands(t *testing.T) {
	t.Run("Transport", func(t *testing.T) {
		m, p := newPeer(t, nil)

		if err := m.Play(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cmd := p.next(t); cmd[1] != "pause" || cmd[2] != false {
			t.Errorf("expected unpause, got %v", cmd)
		}

		if err := m.SetVolume(0.5); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cmd := p.next(t); cmd[1] != "volume" || cmd[2] != 50.0 {
			t.Errorf("expected volume 50, got %v", cmd)
		}
		if m.Volume() != 0.5 {
			t.Errorf("expected cached volume 0.5, got %v", m.Volume())
		}

		if err := m.Seek(30); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cmd := p.next(t); cmd[0] != "seek" || cmd[1] != 30.0 || cmd[2] != "absolute" {
			t.Errorf("expected absolute seek, got %v", cmd)
		}
		if m.Position() != 30 {
			t.Errorf("expected position 30, got %v", m.Position())
		}
	})

	t.Run("Command Error", func(t *testing.T) {
		m, _ := newPeer(t, func(cmd []any) (string, []string) {
			if cmd[0] == "seek" {
				return "property unavailable", nil
			}
			return "success", nil
		})

		if err := m.Seek(10); err == nil {
			t.Fatal("expected error")
		}
		if m.Position() != 0 {
			t.Errorf("expected position unchanged, got %v", m.Position())
		}
	})

	t.Run("Closed", func(t *testing.T) {
		m, _ := newPeer(t, nil)

		if err := m.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := m.Play(); !errors.Is(err, shared.ErrSinkUnavailable) {
			t.Errorf("expected ErrSinkUnavailable, got %v", err)
		}
		if err := m.Close(); err != nil {
			t.Errorf("expected second close to be a no-op, got %v", err)
		}
	})
}

func TestMPVEvents(t *testing.T) {
	t.Run("Reach Listener", func(t *testing.T) {
		m, p := newPeer(t, nil)
		rec := newRecordingListener()
		m.SetListener(rec)

		p.send(`{"event":"property-change","id":2,"name":"duration","data":200}`)
		p.send(`{"event":"property-change","id":1,"name":"time-pos","data":12.5}`)
		select {
		case got := <-rec.progress:
			if got != [2]float64{12.5, 200} {
				t.Errorf("expected 12.5/200, got %v", got)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no progress")
		}

		p.send(`{"event":"end-file","reason":"eof"}`)
		select {
		case <-rec.ended:
		case <-time.After(2 * time.Second):
			t.Fatal("no end")
		}

		p.send(`{"event":"end-file","reason":"error","file_error":"loading failed"}`)
		select {
		case err := <-rec.errs:
			if !errors.Is(err, shared.ErrPlaybackNetwork) {
				t.Errorf("expected ErrPlaybackNetwork, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no error")
		}
	})

	t.Run("Detached Listener Receives Nothing", func(t *testing.T) {
		m, p := newPeer(t, nil)
		rec := newRecordingListener()
		m.SetListener(rec)
		m.SetListener(nil)

		p.send(`{"event":"end-file","reason":"eof"}`)
		select {
		case <-rec.ended:
			t.Error("expected no callback after detaching")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("Connection Lost", func(t *testing.T) {
		m, p := newPeer(t, nil)
		rec := newRecordingListener()
		m.SetListener(rec)

		p.conn.Close()
		select {
		case err := <-rec.errs:
			if !errors.Is(err, shared.ErrPlaybackAborted) {
				t.Errorf("expected ErrPlaybackAborted, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no error")
		}
	})
}

func TestFileError(t *testing.T) {
	tests := []struct {
		text string
		want error
	}{
		{"unrecognized file format", shared.ErrUnsupportedFormat},
		{"loading failed", shared.ErrPlaybackNetwork},
		{"no audio or video data played", shared.ErrDecode},
		{"aborted", shared.ErrPlaybackAborted},
		{"something else", shared.ErrPlayback},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if err := fileError(tt.text); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
