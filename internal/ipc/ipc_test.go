package ipc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/events"
)

// socketPath keeps the path short; unix socket paths are limited to about
// 100 bytes and t.TempDir names can exceed that.
func socketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "pz")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "s.sock")
}

func startServer(t *testing.T, h Handler, bus *events.Bus) (*Server, *Client) {
	t.Helper()
	path := socketPath(t)
	srv := NewServer(path, h, bus, zerolog.Nop())
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, NewClientWithPath(path)
}

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(`{"command":"GET_LAYOUT","payload":{"id":"x"}}`))
	if err != nil {
		t.Fatalf("ParseRequest() error: %v", err)
	}
	var p IDPayload
	if err := req.Decode(&p); err != nil || p.ID != "x" {
		t.Fatalf("Decode() = %+v, %v", p, err)
	}

	if _, err := ParseRequest([]byte(`{"payload":{}}`)); err == nil {
		t.Fatal("ParseRequest() without command succeeded")
	}
	if _, err := ParseRequest([]byte(`not json`)); err == nil {
		t.Fatal("ParseRequest() on garbage succeeded")
	}
}

func TestClientServerRoundTrip(t *testing.T) {
	_, client := startServer(t, HandlerFunc(func(req *Request) *Response {
		switch req.Command {
		case CommandGetStatus:
			resp, _ := NewOKResponse(StatusData{Mode: "manual", Screens: 2, DaemonRunning: true})
			return resp
		case CommandDuplicateLayout:
			var p IDPayload
			if err := req.Decode(&p); err != nil {
				return NewErrorResponse(err.Error())
			}
			resp, _ := NewOKResponse(IDPayload{ID: p.ID + "-copy"})
			return resp
		case CommandGetQuickLayoutSlots:
			resp, _ := NewOKResponse(map[int]string{3: "abc"})
			return resp
		}
		return NewErrorResponse("unknown command")
	}), nil)

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus() error: %v", err)
	}
	if status.Mode != "manual" || status.Screens != 2 || !status.DaemonRunning {
		t.Fatalf("GetStatus() = %+v", status)
	}

	id, err := client.DuplicateLayout("abc")
	if err != nil || id != "abc-copy" {
		t.Fatalf("DuplicateLayout() = %q, %v", id, err)
	}

	slots, err := client.QuickLayoutSlots()
	if err != nil || slots[3] != "abc" {
		t.Fatalf("QuickLayoutSlots() = %v, %v", slots, err)
	}

	err = client.DeleteLayout("abc")
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("DeleteLayout() error = %v, want daemon error", err)
	}
}

func TestClient_TimeoutSentinel(t *testing.T) {
	_, client := startServer(t, HandlerFunc(func(*Request) *Response {
		return NewErrorResponse(ErrTimeout.Error())
	}), nil)

	if err := client.Reload(); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Reload() error = %v, want ErrTimeout", err)
	}
}

func TestClient_NoDaemon(t *testing.T) {
	client := NewClientWithPath(filepath.Join(t.TempDir(), "missing.sock"))
	if err := client.Ping(); err == nil {
		t.Fatal("Ping() without daemon succeeded")
	}
}

func TestSubscribe_StreamsEvents(t *testing.T) {
	bus := events.NewBus()
	_, client := startServer(t, HandlerFunc(func(*Request) *Response {
		return NewErrorResponse("unused")
	}), bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan events.Event, 4)
	errc := make(chan error, 1)
	go func() {
		errc <- client.Subscribe(ctx, func(ev events.Event) {
			select {
			case got <- ev:
			default:
			}
		})
	}()

	// The subscription is registered after the acknowledgement; keep
	// emitting until the first event arrives.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case ev := <-got:
			if ev.Kind != events.LayoutChanged || ev.LayoutID != "L" {
				t.Fatalf("event = %+v", ev)
			}
			cancel()
			if err := <-errc; err != nil {
				t.Fatalf("Subscribe() after cancel = %v, want nil", err)
			}
			return
		case <-tick.C:
			bus.Emit(events.Event{Kind: events.LayoutChanged, LayoutID: "L"})
		case <-deadline:
			t.Fatal("no event received")
		}
	}
}

func TestServer_StopRemovesSocket(t *testing.T) {
	path := socketPath(t)
	srv := NewServer(path, HandlerFunc(func(*Request) *Response { return nil }), nil, zerolog.Nop())
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("socket missing after Start: %v", err)
	}
	srv.Stop()
	srv.Stop()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("socket still present after Stop: %v", err)
	}
}
