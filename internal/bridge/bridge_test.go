package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/hifix/internal/playback"
	"github.com/desertthunder/hifix/internal/shared"
	tu "github.com/desertthunder/hifix/internal/testing"
)

type failingBroadcaster struct{ calls int }

func (f *failingBroadcaster) Broadcast(ctx context.Context, s playback.Snapshot) error {
	f.calls++
	return errors.New("surface offline")
}

func TestLatest(t *testing.T) {
	l := NewLatest()
	if _, ok := l.Snapshot(); ok {
		t.Fatal("expected no snapshot before the first broadcast")
	}

	l.Broadcast(context.Background(), playback.Snapshot{TrackID: "1", Title: "Song"})
	s, ok := l.Snapshot()
	if !ok || s.TrackID != "1" {
		t.Errorf("expected snapshot 1, got %+v", s)
	}
	if l.UpdatedAt().IsZero() {
		t.Error("expected update time")
	}
}

func TestMulti(t *testing.T) {
	latest := NewLatest()
	failing := &failingBroadcaster{}
	m := Multi{failing, nil, latest}

	err := m.Broadcast(context.Background(), playback.Snapshot{TrackID: "1"})
	if err == nil {
		t.Error("expected joined error")
	}
	if _, ok := latest.Snapshot(); !ok {
		t.Error("expected later targets to still receive the snapshot")
	}
	if failing.calls != 1 {
		t.Errorf("expected 1 call, got %d", failing.calls)
	}
}

func TestDownloader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("FLACDATA"))
	}))
	defer server.Close()

	dir := t.TempDir()
	d := NewDownloader(filepath.Join(dir, "cache"), server.Client(), shared.NewLogger(io.Discard))

	t.Run("Writes File", func(t *testing.T) {
		path, err := d.Download(context.Background(), server.URL+"/a.flac", "Artist - Song?.flac")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if filepath.Base(path) != "Artist - Song_.flac" {
			t.Errorf("unexpected filename %s", filepath.Base(path))
		}
		tu.AssertFileExists(t, path)
		if got := tu.MustReadFile(t, path); got != "FLACDATA" {
			t.Errorf("unexpected contents %q", got)
		}
	})

	t.Run("Status Error", func(t *testing.T) {
		_, err := d.Download(context.Background(), server.URL+"/missing", "x.flac")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Empty Filename", func(t *testing.T) {
		_, err := d.Download(context.Background(), server.URL+"/a.flac", "..")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Song.flac", "Song.flac"},
		{"AC/DC - T.N.T.flac", "AC_DC - T.N.T.flac"},
		{`a:b*c?d"e<f>g|h`, "a_b_c_d_e_f_g_h"},
		{"  .hidden  ", "hidden"},
		{"tab\tname", "tabname"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// fakeRedis speaks just enough RESP2 for PING, PUBLISH and SET.
type fakeRedis struct {
	ln       net.Listener
	mu       sync.Mutex
	commands [][]string
}

func newFakeRedis(t *testing.T) *fakeRedis {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	f := &fakeRedis{ln: ln}
	go f.accept()
	t.Cleanup(func() { ln.Close() })
	return f
}

func (f *fakeRedis) accept() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.serve(conn)
	}
}

func (f *fakeRedis) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}

		f.mu.Lock()
		f.commands = append(f.commands, args)
		f.mu.Unlock()

		var reply string
		switch strings.ToUpper(args[0]) {
		case "PING":
			reply = "+PONG\r\n"
		case "PUBLISH":
			reply = ":1\r\n"
		case "SET":
			reply = "+OK\r\n"
		default:
			reply = "-ERR unknown command '" + args[0] + "'\r\n"
		}
		if _, err := conn.Write([]byte(reply)); err != nil {
			return
		}
	}
}

func (f *fakeRedis) find(name string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.commands {
		if strings.EqualFold(c[0], name) {
			return c
		}
	}
	return nil
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "*") {
		return strings.Fields(line), nil
	}

	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, n)
	for range n {
		header, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimRight(header, "\r\n")[1:])
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func TestRedisBroadcaster(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("Missing Address", func(t *testing.T) {
		_, err := NewRedisBroadcaster(context.Background(), shared.BridgeConfig{}, logger)
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Unreachable Server Disables", func(t *testing.T) {
		ln, _ := net.Listen("tcp", "127.0.0.1:0")
		addr := ln.Addr().String()
		ln.Close()

		rb, err := NewRedisBroadcaster(context.Background(), shared.BridgeConfig{RedisAddr: addr}, logger)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer rb.Close()

		if rb.Enabled() {
			t.Error("expected disabled broadcaster")
		}
		if err := rb.Broadcast(context.Background(), playback.Snapshot{TrackID: "1"}); err != nil {
			t.Errorf("expected disabled broadcast to be a no-op, got %v", err)
		}
	})

	t.Run("Publishes Snapshot", func(t *testing.T) {
		server := newFakeRedis(t)
		cfg := shared.BridgeConfig{RedisAddr: server.ln.Addr().String(), RedisChannel: "np"}

		rb, err := NewRedisBroadcaster(context.Background(), cfg, logger)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer rb.Close()
		if !rb.Enabled() {
			t.Fatal("expected enabled broadcaster")
		}

		snap := playback.Snapshot{TrackID: "42", Title: "Song", Artist: "Band", IsPlaying: true}
		if err := rb.Broadcast(context.Background(), snap); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		publish := server.find("PUBLISH")
		if publish == nil || publish[1] != "np" {
			t.Fatalf("expected publish on np, got %v", publish)
		}
		var got playback.Snapshot
		if err := json.Unmarshal([]byte(publish[2]), &got); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if got != snap {
			t.Errorf("expected %+v, got %+v", snap, got)
		}
		if set := server.find("SET"); set == nil || set[1] != "np:latest" {
			t.Errorf("expected latest key set, got %v", set)
		}
	})
}
