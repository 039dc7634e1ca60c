package arena

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboardRecordIsZeroSum(t *testing.T) {
	l := NewLeaderboard(1500)
	l.Ensure("a", "b")
	da := l.Record("a", "b", Win, Loss, 32)
	assert.Equal(t, 16.0, da)

	a, _ := l.Get("a")
	b, _ := l.Get("b")
	assert.Equal(t, 1516.0, a.Elo)
	assert.Equal(t, 1484.0, b.Elo)
	assert.Equal(t, 1, a.Wins)
	assert.Equal(t, 1, b.Losses)

	before := a.Elo + b.Elo
	l.Record("b", "a", Loss, Loss, 32)
	a, _ = l.Get("a")
	b, _ = l.Get("b")
	assert.InDelta(t, before, a.Elo+b.Elo, 1e-9)
	assert.Equal(t, 2, b.Losses)
}

func TestLeaderboardSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leaderboard.csv")

	l, err := LoadLeaderboard(path, 1500)
	require.NoError(t, err)
	assert.Empty(t, l.Rows())

	l.Ensure("alpha", "beta", "gamma")
	l.Record("alpha", "beta", Win, Loss, 32)
	l.Record("gamma", "alpha", Draw, Draw, 32)
	require.NoError(t, l.Save(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Model,Elo,Wins,Draws,Losses\n")

	again, err := LoadLeaderboard(path, 1500)
	require.NoError(t, err)
	assert.Equal(t, l.Rows(), again.Rows())

	snap, err := l.Snapshot(dir, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "leaderboard_history", "leaderboard_20240501T120000Z.csv"), snap)
	assert.FileExists(t, snap)
}

func TestLeaderboardRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leaderboard.csv")
	require.NoError(t, os.WriteFile(path, []byte("Model,Elo,Wins,Draws,Losses\nx,abc,1,0,0\n"), 0o644))
	_, err := LoadLeaderboard(path, 1500)
	assert.Error(t, err)
}
