package relaydto

import "encoding/json"

// Event names carried in Frame.Event.
const (
	EventJoinRoom = "join_room"
	EventMove     = "move"

	EventRoomJoined     = "room_joined"
	EventOpponentJoined = "opponent_joined"
	EventRoomState      = "room_state"
	EventMoveApplied    = "move_applied"
	EventErrorMsg       = "error_msg"
)

// Frame is the websocket envelope used in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame marshals payload into a frame.
func NewFrame(event string, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: raw}, nil
}

// Decode unmarshals the frame payload into v.
func (f Frame) Decode(v any) error {
	return json.Unmarshal(f.Data, v)
}
