package arena

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-arena/server/game"
	"agent-arena/server/liarsdice"
	"agent-arena/server/player"
	"agent-arena/server/rps"
)

func newRPS(t *testing.T, cfg rps.Config) *rps.State {
	t.Helper()
	s, err := rps.New(cfg)
	require.NoError(t, err)
	return s
}

func TestTurnLogHasOneEntryPerAcceptedMove(t *testing.T) {
	st := newRPS(t, rps.Config{Rounds: 3})
	log, err := OpenJSONLTurnLog(filepath.Join(t.TempDir(), "turns.jsonl"))
	require.NoError(t, err)

	gm, err := NewGameManager(st, map[string]game.Player{
		"player_0": player.NewScripted("Rock", "Paper", "Scissors"),
		"player_1": player.NewScripted("Scissors", "Paper", "Rock"),
	}, GameManagerConfig{Game: rps.GameName, TurnLog: log, Logger: zerolog.Nop()})
	require.NoError(t, err)

	res, err := gm.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, log.Close())
	require.True(t, res.Over)
	assert.Equal(t, 6, res.Rounds)

	entries, err := ReadTurnLog(log.f.Name())
	require.NoError(t, err)
	assert.Len(t, entries, len(st.History()))
	assert.Len(t, entries, 6)
	for i, e := range entries {
		assert.Equal(t, i, e.Turn)
		assert.True(t, e.Accepted)
		assert.Equal(t, 1, e.Attempts)
	}
	assert.Equal(t, "player_1", entries[1].PlayerKey)
	assert.NotNil(t, entries[4].NextAction)
	assert.Nil(t, entries[5].NextAction)
	assert.Equal(t, map[string]float64{"player_0": 1, "player_1": 1}, res.Scores)
}

func TestRetriesStayOnSameSeat(t *testing.T) {
	st := newRPS(t, rps.Config{Rounds: 1})
	var seen []string
	p0 := player.NewScripted("Dance", "rock!", "Rock")
	gm, err := NewGameManager(st, map[string]game.Player{
		"player_0": game.PlayerFunc(func(ctx context.Context, a game.Action) (game.Move, error) {
			seen = append(seen, a.PlayerKey)
			return p0.Act(ctx, a)
		}),
		"player_1": player.NewScripted("Paper"),
	}, GameManagerConfig{Game: rps.GameName, Logger: zerolog.Nop()})
	require.NoError(t, err)

	res, err := gm.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"player_0", "player_0", "player_0"}, seen)

	entries := gm.cfg.TurnLog.(*MemoryTurnLog).Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, 3, entries[0].Attempts)
	assert.Len(t, entries[0].Errors, 2)
	assert.Equal(t, 2, res.Seats["player_0"].InvalidMoves)
	assert.Equal(t, 3, res.Seats["player_0"].AttemptsUsed)
	assert.False(t, res.Seats["player_0"].Exhausted)
}

func TestExhaustedSeatForfeits(t *testing.T) {
	st := newRPS(t, rps.Config{Rounds: 3})
	gm, err := NewGameManager(st, map[string]game.Player{
		"player_0": player.NewScripted("x", "y"),
		"player_1": player.NewScripted(),
	}, GameManagerConfig{Game: rps.GameName, MaxPlayerAttempts: 2, Logger: zerolog.Nop()})
	require.NoError(t, err)

	res, err := gm.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Over)
	assert.True(t, res.Seats["player_0"].Exhausted)
	assert.Equal(t, map[string]float64{"player_0": 0, "player_1": 3}, res.Scores)

	entries := gm.cfg.TurnLog.(*MemoryTurnLog).Entries()
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Accepted)
	assert.Equal(t, "loss", entries[0].Forfeit)
}

func TestHoldPolicyRunsOutTheRoundBudget(t *testing.T) {
	st, err := liarsdice.New(liarsdice.Config{Faces: 6, Dice: [][]int{{1}, {2}}, Forfeit: "hold"})
	require.NoError(t, err)
	stubborn := game.PlayerFunc(func(context.Context, game.Action) (game.Move, error) {
		return game.Move{Value: "no"}, nil
	})
	gm, err := NewGameManager(st, map[string]game.Player{"player_0": stubborn, "player_1": stubborn},
		GameManagerConfig{Game: liarsdice.GameName, MaxRounds: 4, Logger: zerolog.Nop()})
	require.NoError(t, err)

	res, err := gm.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Over)
	assert.Equal(t, 4, res.Rounds)
	for _, e := range gm.cfg.TurnLog.(*MemoryTurnLog).Entries() {
		assert.Equal(t, "hold", e.Forfeit)
		assert.Equal(t, "player_0", e.PlayerKey)
	}
}

func TestPlayerErrorAbortsMatch(t *testing.T) {
	st := newRPS(t, rps.Config{Rounds: 2})
	gm, err := NewGameManager(st, map[string]game.Player{
		"player_0": player.NewScripted("Rock"),
		"player_1": player.NewScripted("Rock"),
	}, GameManagerConfig{Game: rps.GameName, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = gm.Run(context.Background())
	assert.ErrorIs(t, err, player.ErrScriptExhausted)
	assert.Len(t, st.History(), 2)
}

func TestMissingSeatIsRejected(t *testing.T) {
	_, err := NewGameManager(newRPS(t, rps.Config{Rounds: 1}), map[string]game.Player{
		"player_0": player.NewScripted(),
	}, GameManagerConfig{})
	assert.EqualError(t, err, `no player for seat "player_1"`)
}

func TestCancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gm, err := NewGameManager(newRPS(t, rps.Config{Rounds: 1}), map[string]game.Player{
		"player_0": player.NewScripted("Rock"),
		"player_1": player.NewScripted("Rock"),
	}, GameManagerConfig{Logger: zerolog.Nop()})
	require.NoError(t, err)
	_, err = gm.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
