package room

import "time"

// Color identifies the seat a player holds.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Side is the side-to-move as reported to clients.
type Side string

const (
	SideWhite Side = "WHITE"
	SideBlack Side = "BLACK"
)

// Side returns the side-to-move value owned by c.
func (c Color) Side() Side {
	if c == Black {
		return SideBlack
	}
	return SideWhite
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideWhite {
		return SideBlack
	}
	return SideWhite
}

// Status is the occupancy state of a room.
type Status string

const (
	StatusEmpty   Status = "EMPTY"
	StatusWaiting Status = "WAITING"
	StatusActive  Status = "ACTIVE"
)

const (
	// MaxPlayers is the seat limit of every room.
	MaxPlayers = 2

	// InitialPosition is the board token of a fresh game.
	InitialPosition = "startpos"
)

// Move is a normalized move. Promo is nil when no promotion was requested.
type Move struct {
	From             int
	To               int
	Promo            *string
	IsCastle         bool
	IsEnPassant      bool
	IsDoublePawnPush bool
}

// GameState is what a room remembers about the game: the last applied move
// and an opaque board position token.
type GameState struct {
	LastMove *Move
	Position string
}

// InitialState returns the state of a room nobody has moved in yet.
func InitialState() GameState {
	return GameState{Position: InitialPosition}
}

// Player is a seated participant. Conn is the ID of the connection that
// currently speaks for the player; it is replaced on reconnection.
type Player struct {
	UID   string
	Color Color
	Conn  string
}

// Room is a single two-seat session.
//
// A Room is not safe for concurrent use; the gateway hub owns all rooms and
// mutates them from one goroutine.
type Room struct {
	Code       string
	Players    []*Player
	State      GameState
	SideToMove Side
	LastActive time.Time

	rules Rules
}
