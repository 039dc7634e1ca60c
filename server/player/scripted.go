package player

import (
	"context"
	"errors"

	"agent-arena/server/game"
)

var ErrScriptExhausted = errors.New("scripted player ran out of moves")

// Scripted replays a fixed list of moves, one per Act call, including calls
// that retry a rejected move.
type Scripted struct {
	moves []string
	next  int
}

func NewScripted(moves ...string) *Scripted {
	return &Scripted{moves: append([]string(nil), moves...)}
}

func (s *Scripted) Act(context.Context, game.Action) (game.Move, error) {
	if s.next >= len(s.moves) {
		return game.Move{}, ErrScriptExhausted
	}
	m := s.moves[s.next]
	s.next++
	return game.Move{Value: m, Trace: map[string]any{"script_index": s.next - 1}}, nil
}
