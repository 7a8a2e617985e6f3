package relayclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestCreateRoomIsSentOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/room" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).CreateRoom(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestHealthRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","rooms":2,"conns":1}`))
	}))
	defer srv.Close()

	h, err := NewClient(srv.URL).Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.Rooms != 2 || calls.Load() != 2 {
		t.Fatalf("health=%+v calls=%d", h, calls.Load())
	}
}

func TestCreateRoomDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).CreateRoom(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestWSURL(t *testing.T) {
	cases := map[string]string{
		"http://127.0.0.1:8080":  "ws://127.0.0.1:8080/ws",
		"https://relay.example/": "wss://relay.example/ws",
		"ws://already.example":   "ws://already.example/ws",
	}
	for in, want := range cases {
		if got := WSURL(in); got != want {
			t.Fatalf("WSURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBackoffDuration(t *testing.T) {
	if backoffDuration(0) != 100*time.Millisecond || backoffDuration(3) != 400*time.Millisecond {
		t.Fatalf("unexpected backoff")
	}
	if backoffDuration(10) != backoffDuration(6) {
		t.Fatalf("backoff should cap")
	}
}
