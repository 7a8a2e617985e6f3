package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/park285/cheese-relay/internal/relayclient"
	"github.com/park285/cheese-relay/pkg/relaydto"
)

// relaycheck creates a room against a running relay, seats two players and
// plays one move, printing every frame it sees.
func main() {
	baseURL := os.Getenv("RELAY_BASE_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	client := relayclient.NewClient(baseURL, relayclient.WithTimeout(5*time.Second))
	if h, err := client.Health(ctx); err != nil {
		log.Printf("/healthz error: %v", err)
	} else {
		log.Printf("/healthz ok: rooms=%d conns=%d", h.Rooms, h.Conns)
	}

	code, err := client.CreateRoom(ctx)
	if err != nil {
		log.Fatalf("create room: %v", err)
	}
	log.Printf("room %s created", code)

	wsURL := relayclient.WSURL(baseURL)
	white, err := relayclient.Dial(ctx, wsURL)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer white.Close()
	black, err := relayclient.Dial(ctx, wsURL)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer black.Close()

	steps := []struct {
		name string
		run  func() error
		read map[string]*relayclient.Socket
	}{
		{"join white", func() error { return white.Join(ctx, code, "relaycheck-white") }, map[string]*relayclient.Socket{"white": white}},
		{"join black", func() error { return black.Join(ctx, code, "relaycheck-black") }, map[string]*relayclient.Socket{"white": white, "black": black}},
		{"move e2e4", func() error {
			return white.Move(ctx, code, relaydto.Move{From: 12, To: 28, IsDoublePawnPush: true})
		}, map[string]*relayclient.Socket{"white": white, "black": black}},
	}
	for _, st := range steps {
		if err := st.run(); err != nil {
			log.Fatalf("%s: %v", st.name, err)
		}
		for who, s := range st.read {
			drain(ctx, who, s)
		}
	}
}

// drain prints frames until the socket stays quiet briefly.
func drain(ctx context.Context, who string, s *relayclient.Socket) {
	for {
		rctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		f, err := s.Next(rctx)
		cancel()
		if err != nil {
			return
		}
		fmt.Printf("[%s] %s %s\n", who, f.Event, string(f.Data))
	}
}
