package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-relay/pkg/relaydto"
)

const readLimit = 64 << 10

// client is one websocket connection. out and closed belong to the hub
// goroutine; the writer only drains out.
type client struct {
	id     string
	conn   *websocket.Conn
	out    chan relaydto.Frame
	closed bool
}

// ServeWS upgrades the request and pumps frames until the peer goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     h.origins,
		InsecureSkipVerify: len(h.origins) == 0,
	})
	if err != nil {
		h.logger.Warn("ws_accept_error", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	conn.SetReadLimit(readLimit)

	c := &client{id: uuid.NewString(), conn: conn, out: make(chan relaydto.Frame, h.outboxSize)}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := h.do(ctx, func() { h.register(c) }); err != nil {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	go c.writeLoop(ctx)
	go c.pingLoop(ctx, h.pingInterval)

	err = h.readLoop(ctx, c)
	h.logger.Debug("conn_read_end", zap.String("conn", c.id), zap.Int("status", int(websocket.CloseStatus(err))), zap.Error(err))

	_ = h.do(context.Background(), func() { h.disconnect(c) })
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

// readLoop decodes frames itself so a malformed frame is answered with an
// error_msg instead of closing the connection.
func (h *Hub) readLoop(ctx context.Context, c *client) error {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return err
		}
		var f relaydto.Frame
		decodeErr := json.Unmarshal(data, &f)
		if decodeErr == nil && f.Event == "" {
			decodeErr = errors.New("missing event")
		}
		if err := h.do(ctx, func() { h.handleFrame(c, f, decodeErr) }); err != nil {
			return err
		}
	}
}

func (c *client) writeLoop(ctx context.Context) {
	for f := range c.out {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := wsjson.Write(wctx, c.conn, f)
		cancel()
		if err != nil {
			_ = c.conn.Close(websocket.StatusInternalError, "write failed")
			return
		}
	}
}

// pingLoop closes the connection after two consecutive failed pings.
func (c *client) pingLoop(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := c.conn.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				_ = c.conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}
