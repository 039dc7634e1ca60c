package arena

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-arena/server/game"
	"agent-arena/server/liarsdice"
	"agent-arena/server/player"
	"agent-arena/server/poker"
	"agent-arena/server/rating"
	"agent-arena/server/rps"
)

func testRegistry(t *testing.T) *game.Registry {
	t.Helper()
	r, err := game.NewRegistry(poker.Entry(), liarsdice.Entry(), rps.Entry())
	require.NoError(t, err)
	return r
}

func randomAgents(names ...string) []player.Agent {
	out := make([]player.Agent, len(names))
	for i, n := range names {
		out[i] = player.Agent{Name: n, Adapter: player.AdapterRandom, Seed: int64(i + 1)}
	}
	return out
}

func testConfig(t *testing.T, gameName string, gameCfg map[string]any, agents []player.Agent) Config {
	return Config{
		Registry:   testRegistry(t),
		Game:       gameName,
		GameConfig: gameCfg,
		Agents:     agents,
		Players:    &player.Factory{Log: zerolog.Nop()},
		OutputDir:  t.TempDir(),
		Logger:     zerolog.Nop(),
	}
}

func TestMatchManagerPersistsAfterEveryMatch(t *testing.T) {
	cfg := testConfig(t, rps.GameName, map[string]any{"rounds": 3}, randomAgents("a", "b", "c"))
	mm, err := NewMatchManager(cfg)
	require.NoError(t, err)

	require.NoError(t, mm.Run(context.Background(), 6))

	rows := mm.Leaderboard().Rows()
	require.Len(t, rows, 3)
	sum := 0.0
	for _, r := range rows {
		assert.Equal(t, 4, r.Games(), r.Model)
		sum += r.Elo
	}
	assert.InDelta(t, 4500, sum, 1e-6)

	reports, err := LoadReports(cfg.OutputDir)
	require.NoError(t, err)
	assert.Len(t, reports, 6)
	for _, rep := range reports {
		assert.FileExists(t, filepath.Join(rep.Dir, "turns.jsonl"))
		assert.FileExists(t, filepath.Join(rep.Dir, "scores.json"))
		assert.FileExists(t, filepath.Join(rep.Dir, "state.json"))
		entries, err := ReadTurnLog(filepath.Join(rep.Dir, "turns.jsonl"))
		require.NoError(t, err)
		assert.Equal(t, rep.Rounds, len(entries))
	}
	history, err := os.ReadDir(filepath.Join(cfg.OutputDir, "leaderboard_history"))
	require.NoError(t, err)
	assert.Len(t, history, 1)

	// a restarted manager starts from the persisted ratings
	mm2, err := NewMatchManager(cfg)
	require.NoError(t, err)
	board, err := mm2.LoadLeaderboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rows, board.Rows())
}

type recordingMirror struct {
	matches int
	rows    []Standing
}

func (m *recordingMirror) SaveRatings(_ context.Context, rows []Standing) error {
	m.rows = rows
	return nil
}

func (m *recordingMirror) InsertMatch(context.Context, MatchReport) error {
	m.matches++
	return nil
}

func TestMatchManagerMirror(t *testing.T) {
	mm, err := NewMatchManager(testConfig(t, rps.GameName, nil, randomAgents("a", "b")))
	require.NoError(t, err)
	mirror := &recordingMirror{}
	mm.Mirror = mirror
	require.NoError(t, mm.Run(context.Background(), 3))
	assert.Equal(t, 3, mirror.matches)
	assert.Len(t, mirror.rows, 2)
}

type storedRatings struct {
	recordingMirror
	stored []Standing
}

func (m *storedRatings) LoadRatings(context.Context) ([]Standing, error) {
	return m.stored, nil
}

func TestLeaderboardSeededFromMirror(t *testing.T) {
	cfg := testConfig(t, rps.GameName, nil, randomAgents("a", "b", "c"))
	mm, err := NewMatchManager(cfg)
	require.NoError(t, err)
	mirror := &storedRatings{stored: []Standing{{Model: "a", Elo: 1620, Wins: 7, Losses: 1}}}
	mm.Mirror = mirror

	board, err := mm.LoadLeaderboard(context.Background())
	require.NoError(t, err)
	a, _ := board.Get("a")
	assert.Equal(t, Standing{Model: "a", Elo: 1620, Wins: 7, Losses: 1}, a)
	b, ok := board.Get("b")
	require.True(t, ok)
	assert.Equal(t, 1500.0, b.Elo)

	// once the csv exists it wins over the mirror
	require.NoError(t, mm.Run(context.Background(), 1))
	mirror.stored = []Standing{{Model: "a", Elo: 900}}
	mm2, err := NewMatchManager(cfg)
	require.NoError(t, err)
	mm2.Mirror = mirror
	board2, err := mm2.LoadLeaderboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mm.Leaderboard().Rows(), board2.Rows())
}

func TestMatchManagerNeedsTwoSeats(t *testing.T) {
	_, err := NewMatchManager(testConfig(t, liarsdice.GameName, map[string]any{"num_players": 3}, randomAgents("a", "b", "c")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[player_0 player_1 player_2]")
}

func TestPoolFrequencyBalance(t *testing.T) {
	cfg := testConfig(t, liarsdice.GameName, map[string]any{"num_players": 3, "dice_per_player": 2}, randomAgents("a", "b", "c", "d"))
	pool, err := NewPoolManager(cfg, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, pool.GetNextMinMatch())

	const matches = 30
	wdl, err := pool.Run(context.Background(), matches)
	require.NoError(t, err)

	freq := pool.Frequencies()
	require.Len(t, freq, 24)
	lo, hi, total := math.MaxInt, 0, 0
	for _, n := range freq {
		lo, hi, total = min(lo, n), max(hi, n), total+n
	}
	assert.Equal(t, matches, total)
	assert.LessOrEqual(t, hi-lo, 1)

	games := 0
	for _, w := range wdl {
		games += w.Wins + w.Draws + w.Losses
	}
	assert.Equal(t, 3*matches, games)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "wdl.json"))
}

type failingFactory struct {
	inner PlayerFactory
	bad   string
}

var errDecisionDown = errors.New("decision service down")

func (f failingFactory) New(gameName, kind string, a player.Agent) (game.Player, error) {
	if a.Name == f.bad {
		return game.PlayerFunc(func(context.Context, game.Action) (game.Move, error) {
			return game.Move{}, errDecisionDown
		}), nil
	}
	return f.inner.New(gameName, kind, a)
}

func TestPoolFailsLoud(t *testing.T) {
	cfg := testConfig(t, rps.GameName, nil, randomAgents("a", "b", "c"))
	cfg.Players = failingFactory{inner: cfg.Players, bad: "c"}
	pool, err := NewPoolManager(cfg, 2)
	require.NoError(t, err)

	wdl, err := pool.Run(context.Background(), 12)
	assert.ErrorIs(t, err, errDecisionDown)
	assert.Nil(t, wdl)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "wdl.json"))
}

func TestPoolCancelled(t *testing.T) {
	cfg := testConfig(t, rps.GameName, nil, randomAgents("a", "b"))
	pool, err := NewPoolManager(cfg, 2)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pool.Run(ctx, 5)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "wdl.json"))
}

func TestRatingReport(t *testing.T) {
	cfg := testConfig(t, rps.GameName, map[string]any{"rounds": 5}, randomAgents("a", "b", "c"))
	mm, err := NewMatchManager(cfg)
	require.NoError(t, err)
	require.NoError(t, mm.Run(context.Background(), 12))

	reports, err := LoadReports(cfg.OutputDir)
	require.NoError(t, err)
	games := PairwiseGames(reports)
	assert.Len(t, games, 12)

	rows := RatingReport(reports, ReportOptions{BT: rating.DefaultBTOptions(), Samples: 50, Seed: 1})
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.Equal(t, 8, r.Wins+r.Draws+r.Losses, r.Agent)
		assert.LessOrEqual(t, r.WinRateCI.Low, r.WinRateCI.High)
		if i > 0 {
			assert.GreaterOrEqual(t, rows[i-1].BT, r.BT)
		}
	}
}
