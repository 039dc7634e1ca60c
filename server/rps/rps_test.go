package rps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-arena/server/game"
)

func TestOutcomeMatrix(t *testing.T) {
	for a := Pick(0); a < numPicks; a++ {
		assert.Equal(t, 0, Outcome(a, a))
		wins := 0
		for b := Pick(0); b < numPicks; b++ {
			if a != b {
				assert.Equal(t, -Outcome(b, a), Outcome(a, b), "%s vs %s", a, b)
			}
			if Outcome(a, b) == 1 {
				wins++
			}
		}
		assert.Equal(t, 2, wins, "%s should beat exactly two picks", a)
	}
	assert.Equal(t, 1, Outcome(Paper, Rock))
	assert.Equal(t, 1, Outcome(Spock, Scissors))
}

func TestBestOfThree(t *testing.T) {
	s, err := New(DefaultConfig())
	require.NoError(t, err)

	for _, m := range []string{"Rock", "scissors", "[Paper]", "Paper", "Scissors", "Rock"} {
		require.NoError(t, s.UpdateGame(game.Move{Value: m}))
	}
	assert.True(t, s.IsOver())
	assert.Equal(t, map[string]float64{"player_0": 1, "player_1": 1}, s.Scores())
	assert.Len(t, s.History(), 6)
	assert.ErrorIs(t, s.UpdateGame(game.Move{Value: "Rock"}), game.ErrGameOver)
}

func TestSecondSeatDoesNotSeePendingPick(t *testing.T) {
	s, err := New(DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, s.UpdateGame(game.Move{Value: "Rock"}))
	a := s.NextAction()
	assert.Equal(t, "player_1", a.PlayerKey)
	assert.Empty(t, a.Inputs["past_rounds"])
	assert.NotContains(t, s.Display(), "Rock")
}

func TestVariantLimitsPicks(t *testing.T) {
	s, err := New(DefaultConfig())
	require.NoError(t, err)
	before := s.Export()
	err = s.UpdateGame(game.Move{Value: "Spock"})
	assert.True(t, game.IsInvalidMove(err))
	assert.Equal(t, before, s.Export())

	ls, err := New(Config{Rounds: 1, Variant: LizardSpock})
	require.NoError(t, err)
	require.NoError(t, ls.UpdateGame(game.Move{Value: "Spock"}))
	require.NoError(t, ls.UpdateGame(game.Move{Value: "Lizard"}))
	assert.Equal(t, map[string]float64{"player_0": 0, "player_1": 1}, ls.Scores())
}

func TestForfeit(t *testing.T) {
	t.Run("loss gives away the rest", func(t *testing.T) {
		s, err := New(Config{Rounds: 3})
		require.NoError(t, err)
		require.NoError(t, s.UpdateGame(game.Move{Value: "Rock"}))
		_, err = s.Forfeit("player_1")
		require.NoError(t, err)
		assert.True(t, s.IsOver())
		assert.Equal(t, map[string]float64{"player_0": 3, "player_1": 0}, s.Scores())
	})

	t.Run("default gives away one round", func(t *testing.T) {
		s, err := New(Config{Rounds: 3, Forfeit: "default"})
		require.NoError(t, err)
		_, err = s.Forfeit("player_0")
		require.NoError(t, err)
		assert.False(t, s.IsOver())
		assert.Equal(t, map[string]float64{"player_0": 0, "player_1": 1}, s.Scores())
		assert.Equal(t, "player_0", s.NextAction().PlayerKey)
	})
}

func TestUnknownVariant(t *testing.T) {
	_, err := Entry().New(map[string]any{"variant": "chess"})
	assert.Error(t, err)
}
