package lobby

import (
	"context"
	"sort"
	"time"

	"github.com/park285/cheese-relay/internal/obslog"
	"github.com/park285/cheese-relay/internal/room"
	"go.uber.org/zap"
)

const (
	DefaultRetention     = 10 * time.Minute
	DefaultSweepInterval = 60 * time.Second

	// maxReserveAttempts bounds how often Create asks the reserver before it
	// settles for local uniqueness.
	maxReserveAttempts = 16
	reserveTimeout     = 2 * time.Second
)

// Reserver claims room codes outside this process so several relays never
// hand out the same code.
type Reserver interface {
	Reserve(ctx context.Context, code string) (bool, error)
	Release(ctx context.Context, code string) error
	Keep(ctx context.Context, codes []string) error
}

// Store is the registry of live rooms. Rooms are only ever removed by Sweep.
//
// Store is not safe for concurrent use; it belongs to the gateway hub.
type Store struct {
	rooms     map[string]*room.Room
	rules     room.Rules
	retention time.Duration
	reserver  Reserver
	newCode   func() string
}

type Option func(*Store)

func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithRules sets the rules every new room is created with.
func WithRules(r room.Rules) Option {
	return func(s *Store) { s.rules = r }
}

func WithReserver(r Reserver) Option {
	return func(s *Store) { s.reserver = r }
}

// WithCodeSource replaces NewCode; tests use it to force collisions.
func WithCodeSource(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newCode = fn
		}
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		rooms:     make(map[string]*room.Room),
		rules:     room.PassThrough,
		retention: DefaultRetention,
		newCode:   NewCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers an empty room under a fresh code and returns the code.
// Reserver failures are logged and do not fail the call.
func (s *Store) Create(ctx context.Context, now time.Time) string {
	attempts := 0
	for {
		code := s.newCode()
		if _, taken := s.rooms[code]; taken {
			continue
		}
		if s.reserver != nil && attempts < maxReserveAttempts {
			attempts++
			ok, err := s.reserve(ctx, code)
			if err != nil {
				obslog.L().Warn("room_reserve_error", zap.String("code", code), zap.Error(err))
			} else if !ok {
				continue
			}
		}
		s.rooms[code] = room.New(code, now, s.rules)
		return code
	}
}

func (s *Store) reserve(ctx context.Context, code string) (bool, error) {
	rctx, cancel := context.WithTimeout(ctx, reserveTimeout)
	defer cancel()
	return s.reserver.Reserve(rctx, code)
}

// Lookup returns the room registered under code.
func (s *Store) Lookup(code string) (*room.Room, bool) {
	r, ok := s.rooms[code]
	return r, ok
}

// Sweep removes every empty room idle for longer than the retention window
// and returns the removed codes in sorted order. Surviving codes have their
// reservation refreshed.
func (s *Store) Sweep(ctx context.Context, now time.Time) []string {
	var removed, kept []string
	for code, r := range s.rooms {
		if r.Idle(now, s.retention) {
			delete(s.rooms, code)
			removed = append(removed, code)
			continue
		}
		kept = append(kept, code)
	}
	sort.Strings(removed)

	if s.reserver != nil {
		rctx, cancel := context.WithTimeout(ctx, reserveTimeout)
		defer cancel()
		for _, code := range removed {
			if err := s.reserver.Release(rctx, code); err != nil {
				obslog.L().Warn("room_release_error", zap.String("code", code), zap.Error(err))
			}
		}
		if len(kept) > 0 {
			if err := s.reserver.Keep(rctx, kept); err != nil {
				obslog.L().Warn("room_keep_error", zap.Int("rooms", len(kept)), zap.Error(err))
			}
		}
	}
	return removed
}

// Len returns the number of registered rooms.
func (s *Store) Len() int { return len(s.rooms) }

// Codes returns the registered codes in sorted order.
func (s *Store) Codes() []string {
	codes := make([]string, 0, len(s.rooms))
	for code := range s.rooms {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Retention returns the idle window after which empty rooms are reclaimed.
func (s *Store) Retention() time.Duration { return s.retention }
