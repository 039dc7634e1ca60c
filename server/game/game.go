// Package game defines the contract every arena game satisfies: a finite
// state machine that hands out one Action at a time and accepts Moves.
package game

import (
	"context"
	"time"
)

// Action describes the turn a seat is asked to play. Inputs is read-only for
// the player adapter.
type Action struct {
	Name      string         `json:"name"`
	PlayerKey string         `json:"player_key"`
	Inputs    map[string]any `json:"inputs,omitempty"`
}

// Move is a player's answer to an Action. Value syntax is game-specific,
// e.g. "[Bid] 3 2" or "Raise 20".
type Move struct {
	Value   string        `json:"value"`
	Trace   any           `json:"trace,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// PlayerDefinition declares one seat of a game.
type PlayerDefinition struct {
	Key            string   `json:"player_key"`
	Actions        []string `json:"actions"`
	DefaultAdapter string   `json:"default_adapter"`
	Optional       bool     `json:"optional,omitempty"`
}

// State is a single match in progress.
//
// NextAction must not mutate the state. UpdateGame is the only mutator: it
// either commits a legal transition and appends the move to the history, or
// returns an *InvalidMoveError and leaves every game field untouched. Once
// IsOver reports true UpdateGame returns ErrGameOver.
type State interface {
	NextAction() Action
	UpdateGame(move Move) error
	IsOver() bool
	Scores() map[string]float64
	History() []Move
	Players() []PlayerDefinition
	Display() string
	Export() map[string]any
}

// Forfeiter is implemented by states that know how to resolve a seat that
// ran out of move attempts.
type Forfeiter interface {
	Forfeit(playerKey string) (ForfeitPolicy, error)
}

// Player is the boundary to whatever decides moves (an LLM, a script, a
// random picker).
type Player interface {
	Act(ctx context.Context, action Action) (Move, error)
}

// PlayerFunc adapts a function to Player.
type PlayerFunc func(ctx context.Context, action Action) (Move, error)

func (f PlayerFunc) Act(ctx context.Context, action Action) (Move, error) {
	return f(ctx, action)
}

// SeatKeys returns the player keys of defs in order.
func SeatKeys(defs []PlayerDefinition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Key
	}
	return out
}

// CopyMoves returns a copy of the history slice.
func CopyMoves(in []Move) []Move {
	out := make([]Move, len(in))
	copy(out, in)
	return out
}
