package relayclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-relay/pkg/relaydto"
)

// ErrClosed is returned by Next once the connection has ended and every
// buffered frame was consumed.
var ErrClosed = errors.New("relay socket closed")

// Socket is one websocket session. A background reader buffers incoming
// frames so Next can time out without tearing down the connection.
type Socket struct {
	conn   *websocket.Conn
	frames chan relaydto.Frame
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

// Dial connects to wsURL (ws:// or wss://).
func Dial(ctx context.Context, wsURL string) (*Socket, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return nil, err
	}
	rootCtx, rootCancel := context.WithCancel(context.Background())
	s := &Socket{
		conn:   conn,
		frames: make(chan relaydto.Frame, 64),
		done:   make(chan struct{}),
		cancel: rootCancel,
	}
	go s.listen(rootCtx)
	return s, nil
}

// WSURL turns an http(s) base URL into the websocket endpoint URL.
func WSURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

func (s *Socket) listen(ctx context.Context) {
	defer close(s.done)
	for {
		var f relaydto.Frame
		if err := wsjson.Read(ctx, s.conn, &f); err != nil {
			s.err = err
			return
		}
		select {
		case s.frames <- f:
		case <-ctx.Done():
			s.err = ctx.Err()
			return
		}
	}
}

// Send writes one event frame.
func (s *Socket) Send(ctx context.Context, event string, payload any) error {
	f, err := relaydto.NewFrame(event, payload)
	if err != nil {
		return err
	}
	return wsjson.Write(ctx, s.conn, f)
}

// SendRaw writes a text message as-is.
func (s *Socket) SendRaw(ctx context.Context, msg []byte) error {
	return s.conn.Write(ctx, websocket.MessageText, msg)
}

func (s *Socket) Join(ctx context.Context, code, uid string) error {
	return s.Send(ctx, relaydto.EventJoinRoom, relaydto.JoinRequest{Code: code, UID: uid})
}

// Move sends a move event; mv is marshalled as the move object.
func (s *Socket) Move(ctx context.Context, code string, mv any) error {
	raw, err := json.Marshal(mv)
	if err != nil {
		return err
	}
	return s.Send(ctx, relaydto.EventMove, relaydto.MoveRequest{Code: code, Move: raw})
}

// Next returns the next buffered frame.
func (s *Socket) Next(ctx context.Context) (relaydto.Frame, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case <-ctx.Done():
		return relaydto.Frame{}, ctx.Err()
	case <-s.done:
		select {
		case f := <-s.frames:
			return f, nil
		default:
		}
		if s.err != nil {
			return relaydto.Frame{}, fmt.Errorf("%w: %v", ErrClosed, s.err)
		}
		return relaydto.Frame{}, ErrClosed
	}
}

// Expect reads the next frame, requires its event name and decodes its
// payload into v when v is non-nil.
func (s *Socket) Expect(ctx context.Context, event string, v any) error {
	f, err := s.Next(ctx)
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", event, err)
	}
	if f.Event != event {
		return fmt.Errorf("got %s %s, want %s", f.Event, string(f.Data), event)
	}
	if v == nil {
		return nil
	}
	return f.Decode(v)
}

// Closed is closed when the read side has ended.
func (s *Socket) Closed() <-chan struct{} { return s.done }

func (s *Socket) Close() error {
	err := s.conn.Close(websocket.StatusNormalClosure, "bye")
	s.cancel()
	<-s.done
	return err
}
