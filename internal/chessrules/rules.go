// Package chessrules checks moves against real chess rules using
// corentings/chess. The position token is a FEN string; room.InitialPosition
// stands for the standard starting position.
package chessrules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/cheese-relay/internal/room"
)

// Standard implements room.Rules for orthodox chess.
type Standard struct{}

func New() Standard { return Standard{} }

// Apply plays mv on the position in state and returns the resulting FEN.
func (Standard) Apply(state room.GameState, mv room.Move) (string, error) {
	game, err := gameAt(state.Position)
	if err != nil {
		return "", err
	}
	uci := UCI(mv)
	if err := game.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
		return "", fmt.Errorf("%s: %w", uci, err)
	}
	return game.FEN(), nil
}

func gameAt(position string) (*nchess.Game, error) {
	position = strings.TrimSpace(position)
	if position == "" || position == room.InitialPosition {
		return nchess.NewGame(), nil
	}
	opt, err := nchess.FEN(position)
	if err != nil {
		return nil, fmt.Errorf("bad position %q: %w", position, err)
	}
	return nchess.NewGame(opt), nil
}

// UCI renders mv in UCI long algebraic form ("e7e8q"). Square 0 is a1 and
// square 63 is h8.
func UCI(mv room.Move) string {
	s := squareName(mv.From) + squareName(mv.To)
	if mv.Promo != nil {
		s += strings.ToLower(*mv.Promo)
	}
	return s
}

func squareName(sq int) string {
	const files = "abcdefgh"
	return string([]byte{files[sq%8], byte('1' + sq/8)})
}
