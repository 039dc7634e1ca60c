package arena

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"agent-arena/server/game"
	"agent-arena/server/rating"
)

// Mirror receives the leaderboard and every finished match, e.g. a database.
type Mirror interface {
	SaveRatings(ctx context.Context, rows []Standing) error
	InsertMatch(ctx context.Context, rep MatchReport) error
}

// RatingsSource is a Mirror that can also hand the stored ratings back.
type RatingsSource interface {
	LoadRatings(ctx context.Context) ([]Standing, error)
}

// MatchManager plays two-agent matches one after another, round-robin over
// the roster, and keeps Elo ratings. The leaderboard is written after every
// match so a restart picks up where the last run stopped.
type MatchManager struct {
	cfg      Config
	K        float64
	StartElo float64
	Mirror   Mirror

	rr    *RoundRobin
	board *Leaderboard
}

func NewMatchManager(cfg Config) (*MatchManager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seats, err := cfg.requiredSeats()
	if err != nil {
		return nil, err
	}
	if len(seats) != 2 {
		return nil, fmt.Errorf("tournaments need a two-seat game, %s seats %v", cfg.Game, game.SeatKeys(seats))
	}
	rr, err := NewRoundRobin(cfg.names(), 2)
	if err != nil {
		return nil, err
	}
	return &MatchManager{cfg: cfg, K: rating.DefaultK, StartElo: rating.DefaultStart, rr: rr}, nil
}

func (m *MatchManager) LeaderboardPath() string {
	return filepath.Join(m.cfg.OutputDir, "leaderboard.csv")
}

// LoadLeaderboard reads the persisted board and adds roster agents that are
// not on it yet. Without a leaderboard file the board is seeded from the
// Mirror when it can serve ratings.
func (m *MatchManager) LoadLeaderboard(ctx context.Context) (*Leaderboard, error) {
	path := m.LeaderboardPath()
	_, statErr := os.Stat(path)
	b, err := LoadLeaderboard(path, m.StartElo)
	if err != nil {
		return nil, err
	}
	if src, ok := m.Mirror.(RatingsSource); ok && errors.Is(statErr, os.ErrNotExist) {
		rows, err := src.LoadRatings(ctx)
		if err != nil {
			return nil, fmt.Errorf("seed leaderboard from mirror: %w", err)
		}
		b.Restore(rows)
		m.cfg.Logger.Info().Int("agents", len(rows)).Msg("leaderboard seeded from mirror")
	}
	b.Ensure(m.cfg.names()...)
	m.board = b
	return b, nil
}

func (m *MatchManager) SaveLeaderboard() error {
	return m.board.Save(m.LeaderboardPath())
}

func (m *MatchManager) SnapshotLeaderboard(now time.Time) (string, error) {
	return m.board.Snapshot(m.cfg.OutputDir, now)
}

// Leaderboard is nil until LoadLeaderboard or Run.
func (m *MatchManager) Leaderboard() *Leaderboard { return m.board }

// Run plays matches pairings. It stops early, without error, when ctx is
// cancelled between matches; a match interrupted mid-way returns ctx's
// error and leaves the leaderboard as of the previous match.
func (m *MatchManager) Run(ctx context.Context, matches int) error {
	log := m.cfg.Logger
	if m.board == nil {
		if _, err := m.LoadLeaderboard(ctx); err != nil {
			return err
		}
	}
	snap, err := m.SnapshotLeaderboard(time.Now())
	if err != nil {
		return err
	}
	log.Info().Str("snapshot", snap).Int("matches", matches).Int("pairings", m.rr.Len()).Msg("tournament starting")

	for i := 0; i < matches; i++ {
		if ctx.Err() != nil {
			log.Warn().Int("played", i).Msg("tournament stopped")
			return nil
		}
		pair := m.rr.Next()
		rep, err := playMatch(ctx, &m.cfg, pair)
		if err != nil {
			return err
		}
		a, b := pair[0], pair[1]
		da := m.board.Record(a, b, rep.Outcomes[a], rep.Outcomes[b], m.K)
		if err := m.SaveLeaderboard(); err != nil {
			return err
		}
		if m.Mirror != nil {
			if err := m.Mirror.InsertMatch(ctx, rep); err != nil {
				return err
			}
			if err := m.Mirror.SaveRatings(ctx, m.board.Rows()); err != nil {
				return err
			}
		}
		sa, _ := m.board.Get(a)
		sb, _ := m.board.Get(b)
		log.Info().
			Int("match", i+1).
			Str("a", a).Str("b", b).
			Str("outcome_a", string(rep.Outcomes[a])).
			Float64("delta", da).
			Float64("elo_a", sa.Elo).Float64("elo_b", sb.Elo).
			Msg("ratings updated")
	}
	return nil
}
