// Package arena runs games between agents: the turn loop for a single match,
// the sequential Elo tournament and the concurrent pool.
package arena

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"agent-arena/server/game"
	"agent-arena/server/monitor"
)

const (
	DefaultMaxRounds         = 1000
	DefaultMaxPlayerAttempts = 3
)

// SeatStats summarises how a seat behaved over a match.
type SeatStats struct {
	Moves        int  `json:"moves"`
	InvalidMoves int  `json:"invalid_moves"`
	AttemptsUsed int  `json:"attempts_used"` // most attempts spent on a single turn
	Exhausted    bool `json:"exhausted"`
	Forfeits     int  `json:"forfeits"`
}

// Result is what a finished GameManager run leaves behind.
type Result struct {
	Rounds int                   `json:"rounds"`
	Over   bool                  `json:"over"`
	Scores map[string]float64    `json:"scores"`
	Seats  map[string]*SeatStats `json:"seats"`
	State  game.State            `json:"-"`
}

type GameManagerConfig struct {
	Game              string
	MaxRounds         int
	MaxPlayerAttempts int
	TurnLog           TurnLog
	// Agents maps seat keys to agent names for logging.
	Agents map[string]string
	Logger zerolog.Logger
}

// GameManager drives one State to completion. It is single-threaded: one
// Act and one UpdateGame at a time.
type GameManager struct {
	cfg     GameManagerConfig
	state   game.State
	players map[string]game.Player
	stats   map[string]*SeatStats
}

// NewGameManager checks that every required seat has a player.
func NewGameManager(st game.State, players map[string]game.Player, cfg GameManagerConfig) (*GameManager, error) {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.MaxPlayerAttempts <= 0 {
		cfg.MaxPlayerAttempts = DefaultMaxPlayerAttempts
	}
	if cfg.TurnLog == nil {
		cfg.TurnLog = &MemoryTurnLog{}
	}
	stats := map[string]*SeatStats{}
	for _, def := range st.Players() {
		if _, ok := players[def.Key]; !ok && !def.Optional {
			return nil, fmt.Errorf("no player for seat %q", def.Key)
		}
		stats[def.Key] = &SeatStats{}
	}
	return &GameManager{cfg: cfg, state: st, players: players, stats: stats}, nil
}

func (m *GameManager) State() game.State { return m.state }

// Run plays until the state is over, the round budget is spent or ctx is
// cancelled. Rejected moves are retried on the same seat; a seat that runs
// out of attempts is handed to the state's forfeit policy. Errors from a
// player, non-InvalidMove errors from the state and turn log failures abort
// the match.
func (m *GameManager) Run(ctx context.Context) (Result, error) {
	st := m.state
	rounds := 0
	for ; rounds < m.cfg.MaxRounds && !st.IsOver(); rounds++ {
		if err := ctx.Err(); err != nil {
			return m.result(rounds), err
		}
		entry, err := m.turn(ctx, rounds)
		if err != nil {
			return m.result(rounds), err
		}
		if err := m.cfg.TurnLog.Append(entry); err != nil {
			return m.result(rounds), err
		}
	}
	if !st.IsOver() {
		m.cfg.Logger.Warn().Int("rounds", rounds).Msg("round budget exhausted before the game ended")
	}
	return m.result(rounds), nil
}

func (m *GameManager) turn(ctx context.Context, round int) (TurnEntry, error) {
	st := m.state
	action := st.NextAction()
	key := action.PlayerKey
	p, ok := m.players[key]
	if !ok {
		return TurnEntry{}, fmt.Errorf("turn %d: no player for seat %q", round, key)
	}
	stats := m.stats[key]
	if stats == nil {
		stats = &SeatStats{}
		m.stats[key] = stats
	}
	log := m.cfg.Logger.With().Int("turn", round).Str("seat", key).Str("agent", m.cfg.Agents[key]).Logger()

	entry := TurnEntry{Turn: round, Time: time.Now().UTC(), PlayerKey: key, Agent: m.cfg.Agents[key], Action: action.Name}
	for attempt := 1; attempt <= m.cfg.MaxPlayerAttempts; attempt++ {
		start := time.Now()
		mv, err := p.Act(ctx, action)
		took := time.Since(start)
		monitor.ActSeconds.WithLabelValues(m.cfg.Game).Observe(took.Seconds())
		if err != nil {
			return entry, fmt.Errorf("turn %d: %s act: %w", round, key, err)
		}
		if mv.Elapsed == 0 {
			mv.Elapsed = took
		}
		entry.Attempts = attempt
		entry.Move = mv.Value
		entry.Trace = mv.Trace
		entry.ElapsedMS = ms(mv.Elapsed)

		ustart := time.Now()
		err = st.UpdateGame(mv)
		entry.UpdateMS = ms(time.Since(ustart))
		if err == nil {
			entry.Accepted = true
			stats.Moves++
			break
		}
		if !game.IsInvalidMove(err) {
			return entry, fmt.Errorf("turn %d: %s update: %w", round, key, err)
		}
		stats.InvalidMoves++
		monitor.InvalidMoves.WithLabelValues(m.cfg.Game).Inc()
		entry.Errors = append(entry.Errors, err.Error())
		log.Debug().Int("attempt", attempt).Str("move", mv.Value).Err(err).Msg("move rejected")
	}
	stats.AttemptsUsed = max(stats.AttemptsUsed, entry.Attempts)

	if entry.Accepted {
		log.Info().Str("move", entry.Move).Float64("elapsed_ms", entry.ElapsedMS).Int("attempts", entry.Attempts).Msg("turn")
	} else {
		stats.Exhausted = true
		stats.Forfeits++
		policy := game.ForfeitHold
		if f, ok := st.(game.Forfeiter); ok {
			applied, err := f.Forfeit(key)
			if err != nil && !errors.Is(err, game.ErrGameOver) {
				return entry, fmt.Errorf("turn %d: %s forfeit: %w", round, key, err)
			}
			policy = applied
		}
		entry.Forfeit = string(policy)
		monitor.Forfeits.WithLabelValues(m.cfg.Game, string(policy)).Inc()
		log.Warn().Str("policy", string(policy)).Strs("errors", entry.Errors).Msg("seat exhausted its move attempts")
	}

	if !st.IsOver() {
		next := st.NextAction()
		entry.NextAction = &next
	}
	return entry, nil
}

func (m *GameManager) result(rounds int) Result {
	seats := make(map[string]*SeatStats, len(m.stats))
	for k, v := range m.stats {
		c := *v
		seats[k] = &c
	}
	return Result{
		Rounds: rounds,
		Over:   m.state.IsOver(),
		Scores: m.state.Scores(),
		Seats:  seats,
		State:  m.state,
	}
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
