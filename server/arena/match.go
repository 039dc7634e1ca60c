package arena

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"agent-arena/server/game"
	"agent-arena/server/monitor"
	"agent-arena/server/player"
)

// PlayerFactory builds the adapter for one seat. *player.Factory satisfies it.
type PlayerFactory interface {
	New(gameName, adapterType string, a player.Agent) (game.Player, error)
}

// Config is shared by MatchManager and PoolManager.
type Config struct {
	Registry          *game.Registry
	Game              string
	GameConfig        map[string]any
	Agents            []player.Agent
	Players           PlayerFactory
	OutputDir         string
	MaxRounds         int
	MaxPlayerAttempts int
	Condition         Condition
	Logger            zerolog.Logger
}

func (c *Config) validate() error {
	if c.Registry == nil || c.Players == nil {
		return errors.New("arena: registry and player factory are required")
	}
	if _, ok := c.Registry.Entry(c.Game); !ok {
		return fmt.Errorf("%w: %q", game.ErrUnknownGame, c.Game)
	}
	if c.OutputDir == "" {
		return errors.New("arena: output dir is required")
	}
	return c.Condition.Validate()
}

func (c *Config) agent(name string) (player.Agent, bool) {
	for _, a := range c.Agents {
		if a.Name == name {
			return a, true
		}
	}
	return player.Agent{}, false
}

func (c *Config) names() []string {
	out := make([]string, len(c.Agents))
	for i, a := range c.Agents {
		out[i] = a.Name
	}
	return out
}

// requiredSeats reads the seat list from a throwaway state.
func (c *Config) requiredSeats() ([]game.PlayerDefinition, error) {
	defs, err := c.Registry.Players(c.Game, c.GameConfig)
	if err != nil {
		return nil, err
	}
	var out []game.PlayerDefinition
	for _, d := range defs {
		if !d.Optional {
			out = append(out, d)
		}
	}
	return out, nil
}

// MatchReport is written to results.json.
type MatchReport struct {
	ID        string             `json:"match_id"`
	Game      string             `json:"game"`
	Agents    []string           `json:"agents"`
	Records   []Record           `json:"records"`
	Outcomes  map[string]Outcome `json:"outcomes"`
	Rounds    int                `json:"rounds"`
	Over      bool               `json:"over"`
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at"`
	Dir       string             `json:"-"`
}

// playMatch runs one match with agents[i] in the i-th required seat and
// leaves turns.jsonl, results.json, scores.json and state.json in its own
// directory.
func playMatch(ctx context.Context, cfg *Config, agents []string) (MatchReport, error) {
	started := time.Now()
	id := uuid.New()
	rep := MatchReport{ID: id.String(), Game: cfg.Game, Agents: agents, StartedAt: started.UTC()}
	log := cfg.Logger.With().Str("match", rep.ID[:8]).Strs("agents", agents).Logger()

	st, err := cfg.Registry.New(cfg.Game, cfg.GameConfig)
	if err != nil {
		return rep, err
	}
	var seats []game.PlayerDefinition
	for _, d := range st.Players() {
		if !d.Optional {
			seats = append(seats, d)
		}
	}
	if len(seats) != len(agents) {
		return rep, fmt.Errorf("%s needs %d agents, got %d", cfg.Game, len(seats), len(agents))
	}

	players := map[string]game.Player{}
	seatAgent := map[string]string{}
	for i, def := range seats {
		a, ok := cfg.agent(agents[i])
		if !ok {
			return rep, fmt.Errorf("unknown agent %q", agents[i])
		}
		kind := a.Adapter
		if kind == "" {
			kind = def.DefaultAdapter
		}
		p, err := cfg.Players.New(cfg.Game, kind, a)
		if err != nil {
			return rep, fmt.Errorf("seat %s: %w", def.Key, err)
		}
		players[def.Key] = p
		seatAgent[def.Key] = a.Name
	}

	dir, err := MatchDir(cfg.OutputDir, agents, started, id)
	if err != nil {
		return rep, err
	}
	rep.Dir = dir
	turns, err := OpenJSONLTurnLog(filepath.Join(dir, "turns.jsonl"))
	if err != nil {
		return rep, err
	}
	defer turns.Close()

	gm, err := NewGameManager(st, players, GameManagerConfig{
		Game:              cfg.Game,
		MaxRounds:         cfg.MaxRounds,
		MaxPlayerAttempts: cfg.MaxPlayerAttempts,
		TurnLog:           turns,
		Agents:            seatAgent,
		Logger:            log,
	})
	if err != nil {
		return rep, err
	}

	monitor.MatchesStarted.WithLabelValues(cfg.Game).Inc()
	monitor.MatchesInFlight.Inc()
	res, err := gm.Run(ctx)
	monitor.MatchesInFlight.Dec()
	if err != nil {
		monitor.MatchesFailed.WithLabelValues(cfg.Game).Inc()
		return rep, fmt.Errorf("match %s: %w", filepath.Base(dir), err)
	}
	monitor.MatchesFinished.WithLabelValues(cfg.Game).Inc()

	for _, def := range seats {
		ss := res.Seats[def.Key]
		r := Record{Agent: seatAgent[def.Key], Role: def.Key, Score: res.Scores[def.Key]}
		if ss != nil {
			r.AttemptsUsed, r.Exhausted = ss.AttemptsUsed, ss.Exhausted
		}
		rep.Records = append(rep.Records, r)
	}
	rep.Outcomes = Judge(rep.Records, cfg.Condition)
	for i := range rep.Records {
		rep.Records[i].Outcome = rep.Outcomes[rep.Records[i].Agent]
	}
	rep.Rounds, rep.Over, rep.EndedAt = res.Rounds, res.Over, time.Now().UTC()

	if err := writeJSON(filepath.Join(dir, "results.json"), rep); err != nil {
		return rep, err
	}
	if err := writeJSON(filepath.Join(dir, "scores.json"), res.Scores); err != nil {
		return rep, err
	}
	if err := writeJSON(filepath.Join(dir, "state.json"), st.Export()); err != nil {
		return rep, err
	}
	log.Info().Int("rounds", res.Rounds).Bool("over", res.Over).Interface("outcomes", rep.Outcomes).Msg("match finished")
	return rep, nil
}
