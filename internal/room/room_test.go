package room

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"pgregory.net/rapid"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newActiveRoom(t *testing.T) *Room {
	t.Helper()
	r := New("ABCDEF", t0, nil)
	if _, err := r.Join("u1", "c1", t0); err != nil {
		t.Fatalf("join u1: %v", err)
	}
	if _, err := r.Join("u2", "c2", t0); err != nil {
		t.Fatalf("join u2: %v", err)
	}
	return r
}

func TestJoinAssignsColorsInOrder(t *testing.T) {
	r := New("ABCDEF", t0, nil)
	if r.Status() != StatusEmpty {
		t.Fatalf("expected EMPTY, got %s", r.Status())
	}

	res, err := r.Join("u1", "c1", t0)
	if err != nil {
		t.Fatalf("join u1: %v", err)
	}
	if res.Color != White || res.Started {
		t.Fatalf("unexpected first join result: %+v", res)
	}
	if r.Status() != StatusWaiting {
		t.Fatalf("expected WAITING, got %s", r.Status())
	}

	res, err = r.Join("u2", "c2", t0.Add(time.Second))
	if err != nil {
		t.Fatalf("join u2: %v", err)
	}
	if res.Color != Black || !res.Started || res.Opponent == nil || res.Opponent.UID != "u1" {
		t.Fatalf("unexpected second join result: %+v", res)
	}
	if r.Status() != StatusActive {
		t.Fatalf("expected ACTIVE, got %s", r.Status())
	}
	if !r.LastActive.Equal(t0.Add(time.Second)) {
		t.Fatalf("last activity not updated: %v", r.LastActive)
	}
}

func TestJoinIsIdempotentForKnownUID(t *testing.T) {
	r := newActiveRoom(t)
	res, err := r.Join("u2", "c9", t0)
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if !res.Reconnected || res.Color != Black || res.Started || res.PrevConn != "c2" {
		t.Fatalf("unexpected rejoin result: %+v", res)
	}
	if len(r.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(r.Players))
	}
	if r.Player("u2").Conn != "c9" {
		t.Fatalf("connection handle not replaced")
	}
}

func TestThirdPlayerGetsRoomFull(t *testing.T) {
	r := newActiveRoom(t)
	_, err := r.Join("u3", "c3", t0)
	if !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	var re *Error
	if !errors.As(err, &re) || re.Kind != KindCapacity {
		t.Fatalf("expected capacity kind, got %v", err)
	}
	if len(r.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(r.Players))
	}
}

func TestJoinRequiresUID(t *testing.T) {
	r := New("ABCDEF", t0, nil)
	if _, err := r.Join("  ", "c1", t0); !errors.Is(err, ErrJoinFieldsRequired) {
		t.Fatalf("expected ErrJoinFieldsRequired, got %v", err)
	}
}

func TestRejoinAfterLeaveKeepsFreeColor(t *testing.T) {
	r := newActiveRoom(t)
	if !r.Leave("u1", t0) {
		t.Fatalf("u1 should have been seated")
	}
	if len(r.Players) != 1 {
		t.Fatalf("expected 1 player, got %d", len(r.Players))
	}
	res, err := r.Join("u1", "c1b", t0)
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if res.Color != White {
		t.Fatalf("expected white on rejoin, got %s", res.Color)
	}
	if !res.Started || res.Opponent.UID != "u2" {
		t.Fatalf("expected u2 to be told about the opponent: %+v", res)
	}
}

func TestMoveAppliesAndFlipsTurn(t *testing.T) {
	r := newActiveRoom(t)
	mv, err := r.Move("u1", []byte(`{"from":12,"to":28}`), t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if mv.From != 12 || mv.To != 28 || mv.Promo != nil || mv.IsCastle || mv.IsEnPassant || mv.IsDoublePawnPush {
		t.Fatalf("unexpected normalized move: %+v", mv)
	}
	if r.SideToMove != SideBlack {
		t.Fatalf("expected BLACK to move, got %s", r.SideToMove)
	}
	if r.State.LastMove == nil || r.State.LastMove.To != 28 {
		t.Fatalf("last move not stored: %+v", r.State)
	}
	if !r.LastActive.Equal(t0.Add(time.Minute)) {
		t.Fatalf("last activity not updated")
	}
}

func TestMoveErrorOrder(t *testing.T) {
	r := newActiveRoom(t)
	cases := []struct {
		name string
		uid  string
		raw  string
		want error
	}{
		{"unknown player", "ghost", `{"from":12,"to":28}`, ErrPlayerNotFound},
		{"wrong turn beats bad payload", "u2", `{"from":5,"to":5}`, ErrNotYourTurn},
		{"same square", "u1", `{"from":5,"to":5}`, ErrSameSquare},
		{"out of range", "u1", `{"from":70,"to":5}`, squareRangeError("from")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Move(tc.uid, []byte(tc.raw), t0)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if r.SideToMove != SideWhite || r.State.LastMove != nil {
				t.Fatalf("state changed on failed move")
			}
		})
	}
}

func TestRulesRejectionIsIllegalMove(t *testing.T) {
	reject := RulesFunc(func(GameState, Move) (string, error) { return "", fmt.Errorf("nope") })
	r := New("ABCDEF", t0, reject)
	_, _ = r.Join("u1", "c1", t0)
	_, _ = r.Join("u2", "c2", t0)

	_, err := r.Move("u1", []byte(`{"from":12,"to":28}`), t0)
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	if r.SideToMove != SideWhite {
		t.Fatalf("turn flipped on rejected move")
	}
}

func TestRulesAdvancePosition(t *testing.T) {
	step := RulesFunc(func(s GameState, mv Move) (string, error) {
		return fmt.Sprintf("%s>%d-%d", s.Position, mv.From, mv.To), nil
	})
	r := New("ABCDEF", t0, step)
	_, _ = r.Join("u1", "c1", t0)
	_, _ = r.Join("u2", "c2", t0)
	if _, err := r.Move("u1", []byte(`{"from":12,"to":28}`), t0); err != nil {
		t.Fatalf("move: %v", err)
	}
	if r.State.Position != "startpos>12-28" {
		t.Fatalf("unexpected position %q", r.State.Position)
	}
}

func TestLeaveLastPlayerResetsGame(t *testing.T) {
	r := newActiveRoom(t)
	if _, err := r.Move("u1", []byte(`{"from":12,"to":28}`), t0); err != nil {
		t.Fatalf("move: %v", err)
	}
	r.Leave("u1", t0)
	if r.SideToMove != SideBlack || r.State.LastMove == nil {
		t.Fatalf("game must survive while a player remains")
	}
	r.Leave("u2", t0.Add(time.Hour))
	if r.Status() != StatusEmpty {
		t.Fatalf("expected EMPTY")
	}
	if r.SideToMove != SideWhite || r.State.LastMove != nil || r.State.Position != InitialPosition {
		t.Fatalf("empty room not reset: side=%s state=%+v", r.SideToMove, r.State)
	}
	if !r.LastActive.Equal(t0.Add(time.Hour)) {
		t.Fatalf("last activity not updated")
	}
}

func TestLeaveUnknownUIDTouchesOnly(t *testing.T) {
	r := newActiveRoom(t)
	if r.Leave("ghost", t0.Add(time.Minute)) {
		t.Fatalf("ghost was never seated")
	}
	if len(r.Players) != 2 || !r.LastActive.Equal(t0.Add(time.Minute)) {
		t.Fatalf("unexpected room after unknown leave")
	}
}

func TestTurnAlternationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := New("ABCDEF", t0, nil)
		_, _ = r.Join("u1", "c1", t0)
		_, _ = r.Join("u2", "c2", t0)

		n := rapid.IntRange(0, 40).Draw(t, "moves")
		for i := 0; i < n; i++ {
			uid := "u1"
			if r.SideToMove == SideBlack {
				uid = "u2"
			}
			from := rapid.IntRange(0, 63).Draw(t, "from")
			to := rapid.IntRange(0, 63).Filter(func(v int) bool { return v != from }).Draw(t, "to")
			raw := fmt.Sprintf(`{"from":%d,"to":%d}`, from, to)
			if _, err := r.Move(uid, []byte(raw), t0); err != nil {
				t.Fatalf("move %d: %v", i, err)
			}
		}
		want := SideWhite
		if n%2 == 1 {
			want = SideBlack
		}
		if r.SideToMove != want {
			t.Fatalf("after %d moves expected %s, got %s", n, want, r.SideToMove)
		}
	})
}

func TestIdle(t *testing.T) {
	r := New("ABCDEF", t0, nil)
	if r.Idle(t0.Add(10*time.Minute), 10*time.Minute) {
		t.Fatalf("exactly at retention is not idle")
	}
	if !r.Idle(t0.Add(10*time.Minute+time.Second), 10*time.Minute) {
		t.Fatalf("expected idle past retention")
	}
	_, _ = r.Join("u1", "c1", t0)
	if r.Idle(t0.Add(24*time.Hour), 10*time.Minute) {
		t.Fatalf("occupied room is never idle")
	}
}
