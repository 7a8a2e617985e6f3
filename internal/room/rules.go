package room

// Rules decides whether a move may be played from the current game state.
// Apply returns the position token after the move, or an error when the move
// is rejected.
type Rules interface {
	Apply(state GameState, mv Move) (string, error)
}

// RulesFunc adapts a function to Rules.
type RulesFunc func(state GameState, mv Move) (string, error)

func (f RulesFunc) Apply(state GameState, mv Move) (string, error) { return f(state, mv) }

// PassThrough accepts every move and keeps the position token as is.
var PassThrough Rules = RulesFunc(func(state GameState, _ Move) (string, error) {
	return state.Position, nil
})
