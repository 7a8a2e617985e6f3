package room

import (
	"encoding/json"
	"math"
)

const (
	minSquare = 0
	maxSquare = 63
)

var promoPieces = map[string]struct{}{"Q": {}, "R": {}, "B": {}, "N": {}}

// ParseMove validates a client move object and returns it normalized:
// promo is nil unless one of Q, R, B, N was given and every flag is set.
func ParseMove(raw []byte) (Move, error) {
	if len(raw) == 0 {
		return Move{}, ErrInvalidMove
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Move{}, ErrInvalidMove
	}

	from, ok := square(fields["from"])
	if !ok {
		return Move{}, squareRangeError("from")
	}
	to, ok := square(fields["to"])
	if !ok {
		return Move{}, squareRangeError("to")
	}
	if from == to {
		return Move{}, ErrSameSquare
	}
	mv := Move{From: from, To: to}

	switch p := fields["promo"].(type) {
	case nil:
	case string:
		if _, ok := promoPieces[p]; !ok {
			return Move{}, ErrInvalidPromo
		}
		mv.Promo = &p
	default:
		return Move{}, ErrInvalidPromo
	}

	flags := []struct {
		name string
		dst  *bool
	}{
		{"isCastle", &mv.IsCastle},
		{"isEnPassant", &mv.IsEnPassant},
		{"isDoublePawnPush", &mv.IsDoublePawnPush},
	}
	for _, f := range flags {
		switch v := fields[f.name].(type) {
		case nil:
		case bool:
			*f.dst = v
		default:
			return Move{}, flagTypeError(f.name)
		}
	}
	return mv, nil
}

// square accepts integral JSON numbers within the board.
func square(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	if f < minSquare || f > maxSquare {
		return 0, false
	}
	return int(f), true
}

func (m Move) clone() *Move {
	c := m
	if m.Promo != nil {
		p := *m.Promo
		c.Promo = &p
	}
	return &c
}
