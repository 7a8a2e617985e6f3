package relaydto

import "encoding/json"

// JoinRequest is the join_room payload.
type JoinRequest struct {
	Code string `json:"code"`
	UID  string `json:"uid"`
}

// MoveRequest is the move payload. Move stays raw so the server can report
// structural problems field by field.
type MoveRequest struct {
	Code string          `json:"code"`
	Move json.RawMessage `json:"move"`
}

type CreateRoomResponse struct {
	Code string `json:"code"`
}

type RoomJoined struct {
	Code  string `json:"code"`
	Color string `json:"color"`
}

type OpponentJoined struct{}

type Player struct {
	UID   string `json:"uid"`
	Color string `json:"color"`
}

type Move struct {
	From             int     `json:"from"`
	To               int     `json:"to"`
	Promo            *string `json:"promo"`
	IsCastle         bool    `json:"isCastle"`
	IsEnPassant      bool    `json:"isEnPassant"`
	IsDoublePawnPush bool    `json:"isDoublePawnPush"`
}

type GameState struct {
	LastMove *Move  `json:"lastMove"`
	Position string `json:"position"`
}

type RoomState struct {
	Code       string    `json:"code"`
	Players    []Player  `json:"players"`
	SideToMove string    `json:"sideToMove"`
	State      GameState `json:"state"`
}

type MoveApplied struct {
	Move       Move      `json:"move"`
	SideToMove string    `json:"sideToMove"`
	State      GameState `json:"state"`
}

type ErrorMsg struct {
	Message string `json:"message"`
}

type Health struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
	Conns  int    `json:"conns"`
}
