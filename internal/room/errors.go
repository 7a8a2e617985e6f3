package room

import "fmt"

// Kind classifies a room error.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindCapacity      Kind = "capacity"
	KindNotFound      Kind = "not_found"
	KindRuleViolation Kind = "rule_violation"
)

// Error is a user-facing failure of a room operation. Code is stable and
// used as the message catalog key; Message is the default English text.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Args    map[string]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// Is matches errors by code so wrapped or parameterized copies compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrRoomNotFound   = &Error{Kind: KindNotFound, Code: "room_not_found", Message: "Room not found"}
	ErrRoomFull       = &Error{Kind: KindCapacity, Code: "room_full", Message: "Room is full"}
	ErrNotJoined      = &Error{Kind: KindAuthorization, Code: "not_joined", Message: "Not joined to a room"}
	ErrRoomMismatch   = &Error{Kind: KindAuthorization, Code: "room_mismatch", Message: "Room code mismatch"}
	ErrPlayerNotFound = &Error{Kind: KindAuthorization, Code: "player_not_found", Message: "Player not found"}
	ErrNotYourTurn    = &Error{Kind: KindAuthorization, Code: "not_your_turn", Message: "Not your turn"}
	ErrIllegalMove    = &Error{Kind: KindRuleViolation, Code: "illegal_move", Message: "Illegal move"}

	ErrInvalidPayload     = &Error{Kind: KindValidation, Code: "invalid_payload", Message: "Invalid payload"}
	ErrJoinFieldsRequired = &Error{Kind: KindValidation, Code: "join_fields_required", Message: "Room code and uid are required"}
	ErrInvalidMove        = &Error{Kind: KindValidation, Code: "invalid_move", Message: "Invalid move payload"}
	ErrSameSquare         = &Error{Kind: KindValidation, Code: "same_square", Message: "From and to squares must differ"}
	ErrInvalidPromo       = &Error{Kind: KindValidation, Code: "invalid_promo", Message: "Invalid promotion piece"}
	ErrUnknownEvent       = &Error{Kind: KindValidation, Code: "unknown_event", Message: "Unknown event"}
)

func squareRangeError(field string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    "square_out_of_range",
		Message: fmt.Sprintf("Square out of range: %s must be an integer between 0 and 63", field),
		Args:    map[string]string{"Field": field},
	}
}

func flagTypeError(field string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    "invalid_flag",
		Message: fmt.Sprintf("Invalid move flag: %s must be a boolean", field),
		Args:    map[string]string{"Field": field},
	}
}
