package room

import (
	"fmt"
	"strings"
	"time"
)

// New returns an empty room. A nil rules value means PassThrough.
func New(code string, now time.Time, rules Rules) *Room {
	if rules == nil {
		rules = PassThrough
	}
	return &Room{
		Code:       code,
		Players:    make([]*Player, 0, MaxPlayers),
		State:      InitialState(),
		SideToMove: SideWhite,
		LastActive: now,
		rules:      rules,
	}
}

// JoinResult describes the outcome of a successful Join.
type JoinResult struct {
	Color       Color
	Reconnected bool
	// PrevConn is the handle a reconnection replaced.
	PrevConn string
	// Started is set when the join filled the second seat; Opponent is then
	// the player who was already waiting.
	Started  bool
	Opponent *Player
}

// Status reports the occupancy state.
func (r *Room) Status() Status {
	switch len(r.Players) {
	case 0:
		return StatusEmpty
	case 1:
		return StatusWaiting
	default:
		return StatusActive
	}
}

// Player returns the seated player with the given uid, or nil.
func (r *Room) Player(uid string) *Player {
	for _, p := range r.Players {
		if p.UID == uid {
			return p
		}
	}
	return nil
}

// Join seats uid on conn. A uid that is already seated only has its
// connection replaced; its color and the seat count stay as they were.
func (r *Room) Join(uid, conn string, now time.Time) (JoinResult, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return JoinResult{}, ErrJoinFieldsRequired
	}
	if p := r.Player(uid); p != nil {
		prev := p.Conn
		p.Conn = conn
		r.LastActive = now
		return JoinResult{Color: p.Color, Reconnected: true, PrevConn: prev}, nil
	}
	if len(r.Players) >= MaxPlayers {
		return JoinResult{}, ErrRoomFull
	}

	p := &Player{UID: uid, Color: r.freeColor(), Conn: conn}
	r.Players = append(r.Players, p)
	r.LastActive = now

	res := JoinResult{Color: p.Color}
	if len(r.Players) == MaxPlayers {
		res.Started = true
		res.Opponent = r.Players[0]
	}
	return res, nil
}

// freeColor is white unless a seated player already holds it.
func (r *Room) freeColor() Color {
	for _, p := range r.Players {
		if p.Color == White {
			return Black
		}
	}
	return White
}

// Move applies a raw client move for uid. Checks run in order: seat, turn,
// payload shape, rules. On success the normalized move becomes the last move
// and the turn passes to the other side.
func (r *Room) Move(uid string, raw []byte, now time.Time) (Move, error) {
	p := r.Player(uid)
	if p == nil {
		return Move{}, ErrPlayerNotFound
	}
	if p.Color.Side() != r.SideToMove {
		return Move{}, ErrNotYourTurn
	}
	mv, err := ParseMove(raw)
	if err != nil {
		return Move{}, err
	}
	pos, err := r.rules.Apply(r.State, mv)
	if err != nil {
		return Move{}, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}

	r.State = GameState{LastMove: mv.clone(), Position: pos}
	r.SideToMove = r.SideToMove.Other()
	r.LastActive = now
	return mv, nil
}

// Leave unseats uid and reports whether it was seated. An emptied room
// forgets its game: state and side-to-move go back to the initial values.
func (r *Room) Leave(uid string, now time.Time) bool {
	removed := false
	for i, p := range r.Players {
		if p.UID == uid {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			removed = true
			break
		}
	}
	r.LastActive = now
	if len(r.Players) == 0 {
		r.State = InitialState()
		r.SideToMove = SideWhite
	}
	return removed
}

// Idle reports whether the room is empty and untouched for longer than d.
func (r *Room) Idle(now time.Time, d time.Duration) bool {
	return len(r.Players) == 0 && now.Sub(r.LastActive) > d
}
