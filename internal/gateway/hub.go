package gateway

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/cheese-relay/internal/journal"
	"github.com/park285/cheese-relay/internal/lobby"
	"github.com/park285/cheese-relay/internal/membership"
	"github.com/park285/cheese-relay/internal/msgcat"
	"github.com/park285/cheese-relay/internal/obslog"
	"github.com/park285/cheese-relay/pkg/relaydto"
)

// ErrHubStopped is returned to callers once Run has exited.
var ErrHubStopped = errors.New("gateway hub stopped")

const (
	defaultOutboxSize   = 64
	defaultPingInterval = 30 * time.Second
	writeTimeout        = 5 * time.Second
)

// Hub serializes every room mutation. Rooms, memberships and the client
// table are touched only from the Run goroutine; other goroutines submit
// closures through do.
type Hub struct {
	store   *lobby.Store
	members *membership.Tracker
	clients map[string]*client

	catalog *msgcat.Catalog
	journal journal.Recorder
	logger  *zap.Logger
	now     func() time.Time

	sweepEvery   time.Duration
	pingInterval time.Duration
	outboxSize   int
	origins      []string

	cmds chan func()
	done chan struct{}
}

type Option func(*Hub)

func WithCatalog(c *msgcat.Catalog) Option { return func(h *Hub) { h.catalog = c } }

func WithJournal(r journal.Recorder) Option {
	return func(h *Hub) {
		if r != nil {
			h.journal = r
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithClock replaces time.Now for activity stamps and sweeps.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

func WithSweepInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.sweepEvery = d
		}
	}
}

func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithOutboxSize bounds the frames queued per connection before it is
// dropped as a slow consumer.
func WithOutboxSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.outboxSize = n
		}
	}
}

// WithAllowedOrigins restricts websocket upgrades and CORS to the given
// host patterns. Empty allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Hub) { h.origins = append([]string(nil), origins...) }
}

func NewHub(store *lobby.Store, opts ...Option) *Hub {
	h := &Hub{
		store:        store,
		members:      membership.NewTracker(),
		clients:      make(map[string]*client),
		journal:      journal.Nop{},
		logger:       obslog.L(),
		now:          time.Now,
		sweepEvery:   lobby.DefaultSweepInterval,
		pingInterval: defaultPingInterval,
		outboxSize:   defaultOutboxSize,
		cmds:         make(chan func()),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes commands and periodic sweeps until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	t := time.NewTicker(h.sweepEvery)
	defer t.Stop()
	h.logger.Info("hub_start", zap.Duration("sweep_every", h.sweepEvery), zap.Duration("retention", h.store.Retention()))
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case fn := <-h.cmds:
			fn()
		case <-t.C:
			h.sweep(ctx)
		}
	}
}

// Done is closed when Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

// do hands fn to the Run goroutine.
func (h *Hub) do(ctx context.Context, fn func()) error {
	select {
	case h.cmds <- fn:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call runs fn on the Run goroutine and waits for its result.
func call[T any](ctx context.Context, h *Hub, fn func() T) (T, error) {
	var zero T
	reply := make(chan T, 1)
	if err := h.do(ctx, func() { reply <- fn() }); err != nil {
		return zero, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// CreateRoom registers a new empty room and returns its code.
func (h *Hub) CreateRoom(ctx context.Context) (string, error) {
	return call(ctx, h, func() string { return h.createRoom(ctx) })
}

// Sweep reclaims idle empty rooms immediately and returns their codes.
func (h *Hub) Sweep(ctx context.Context) ([]string, error) {
	return call(ctx, h, func() []string { return h.sweep(ctx) })
}

// Stats reports the number of rooms and connected clients.
func (h *Hub) Stats(ctx context.Context) (relaydto.Health, error) {
	return call(ctx, h, func() relaydto.Health {
		return relaydto.Health{Status: "ok", Rooms: h.store.Len(), Conns: len(h.clients)}
	})
}

func (h *Hub) createRoom(ctx context.Context) string {
	now := h.now()
	code := h.store.Create(ctx, now)
	h.logger.Info("room_create", zap.String("code", code))
	h.journal.Record(journal.NewEntry(journal.EventRoomCreated, code, "", now, nil))
	return code
}

func (h *Hub) sweep(ctx context.Context) []string {
	now := h.now()
	removed := h.store.Sweep(ctx, now)
	for _, code := range removed {
		h.journal.Record(journal.NewEntry(journal.EventRoomReclaimed, code, "", now, nil))
	}
	if len(removed) > 0 {
		h.logger.Info("room_sweep", zap.Strings("reclaimed", removed), zap.Int("remaining", h.store.Len()))
	}
	return removed
}

func (h *Hub) register(c *client) {
	h.clients[c.id] = c
	h.logger.Debug("conn_open", zap.String("conn", c.id), zap.Int("conns", len(h.clients)))
}

// disconnect forgets c and leaves the room it was joined to.
func (h *Hub) disconnect(c *client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	h.closeOutbox(c)
	if m, ok := h.members.Clear(c.id); ok {
		h.leave(m, c.id)
	}
	h.logger.Debug("conn_close", zap.String("conn", c.id), zap.Int("conns", len(h.clients)))
}

func (h *Hub) closeOutbox(c *client) {
	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
}

// send queues f for c without blocking. A full outbox drops the client.
func (h *Hub) send(c *client, f relaydto.Frame) {
	if c == nil || c.closed {
		return
	}
	select {
	case c.out <- f:
	default:
		h.logger.Warn("conn_slow_consumer", zap.String("conn", c.id), zap.String("event", f.Event))
		h.closeOutbox(c)
		go func() { _ = c.conn.Close(websocket.StatusPolicyViolation, "slow consumer") }()
	}
}

func (h *Hub) sendEvent(c *client, event string, payload any) {
	f, err := relaydto.NewFrame(event, payload)
	if err != nil {
		h.logger.Error("frame_encode_error", zap.String("event", event), zap.Error(err))
		return
	}
	h.send(c, f)
}

func (h *Hub) sendTo(connID, event string, payload any) {
	if c, ok := h.clients[connID]; ok {
		h.sendEvent(c, event, payload)
	}
}

// broadcast sends to every connection currently joined to code.
func (h *Hub) broadcast(code, event string, payload any) {
	f, err := relaydto.NewFrame(event, payload)
	if err != nil {
		h.logger.Error("frame_encode_error", zap.String("event", event), zap.Error(err))
		return
	}
	for _, id := range h.members.Conns(code) {
		if c, ok := h.clients[id]; ok {
			h.send(c, f)
		}
	}
}

func (h *Hub) shutdown() {
	for id, c := range h.clients {
		h.closeOutbox(c)
		go func(c *client) { _ = c.conn.Close(websocket.StatusGoingAway, "server shutting down") }(c)
		delete(h.clients, id)
	}
	h.logger.Info("hub_stop", zap.Int("rooms", h.store.Len()))
}
