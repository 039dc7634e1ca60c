package player

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"agent-arena/server/game"
)

// Random picks uniformly from the action's legal_moves hint.
type Random struct {
	rng *rand.Rand
}

func NewRandom(seed int64) *Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Act(_ context.Context, action game.Action) (game.Move, error) {
	legal, _ := action.Inputs["legal_moves"].([]string)
	if len(legal) == 0 {
		return game.Move{}, errors.New("random player: action carries no legal_moves")
	}
	return game.Move{Value: legal[r.rng.Intn(len(legal))]}, nil
}
