// Package rps plays a fixed number of rock-paper-scissors rounds between two
// seats. Picks are made one after the other but the second seat never sees
// the first pick of the round.
package rps

import (
	"fmt"
	"strings"

	"agent-arena/server/game"
)

const GameName = "rps"

type Pick uint8

const (
	Rock Pick = iota
	Paper
	Scissors
	Lizard
	Spock
	numPicks
)

var pickNames = [numPicks]string{"Rock", "Paper", "Scissors", "Lizard", "Spock"}

func (p Pick) String() string { return pickNames[p] }

// beats[p] is a bitmask of the picks p defeats.
var beats = [numPicks]uint8{
	Rock:     1<<Scissors | 1<<Lizard,
	Paper:    1<<Rock | 1<<Spock,
	Scissors: 1<<Paper | 1<<Lizard,
	Lizard:   1<<Spock | 1<<Paper,
	Spock:    1<<Scissors | 1<<Rock,
}

// Outcome returns 1 if a beats b, -1 if b beats a and 0 on a tie.
func Outcome(a, b Pick) int {
	switch {
	case a == b:
		return 0
	case beats[a]&(1<<b) != 0:
		return 1
	default:
		return -1
	}
}

const (
	Classic     = "classic"
	LizardSpock = "lizard_spock"
)

type Config struct {
	Rounds   int    `yaml:"rounds"`
	Variant  string `yaml:"variant"`
	Forfeit  string `yaml:"forfeit"`
	Feedback bool   `yaml:"feedback"`
}

func DefaultConfig() Config { return Config{Rounds: 3, Variant: Classic} }

// Round records both picks and who took it ("" for a tie).
type Round struct {
	Picks  [2]string `json:"picks"`
	Winner string    `json:"winner"`
}

type State struct {
	cfg       Config
	forfeit   game.ForfeitPolicy
	allowed   []Pick
	pending   *Pick
	rounds    []Round
	wins      [2]int
	history   []game.Move
	over      bool
	lastError string
}

var keys = [2]string{"player_0", "player_1"}

func Entry() game.Entry {
	return game.Entry{
		Name:        GameName,
		Description: "best-of-N rock-paper-scissors (optionally lizard-spock)",
		New: func(raw map[string]any) (game.State, error) {
			cfg := DefaultConfig()
			if err := game.DecodeConfig(raw, &cfg); err != nil {
				return nil, err
			}
			return New(cfg)
		},
	}
}

func New(cfg Config) (*State, error) {
	if cfg.Rounds <= 0 {
		return nil, fmt.Errorf("rounds must be positive, got %d", cfg.Rounds)
	}
	s := &State{cfg: cfg}
	switch cfg.Variant {
	case "", Classic:
		s.allowed = []Pick{Rock, Paper, Scissors}
	case LizardSpock:
		s.allowed = []Pick{Rock, Paper, Scissors, Lizard, Spock}
	default:
		return nil, fmt.Errorf("unknown variant %q", cfg.Variant)
	}
	p, err := game.ParseForfeitPolicy(cfg.Forfeit, game.ForfeitLoss)
	if err != nil {
		return nil, err
	}
	s.forfeit = p
	return s, nil
}

func (s *State) Players() []game.PlayerDefinition {
	return []game.PlayerDefinition{
		{Key: keys[0], Actions: []string{"pick"}, DefaultAdapter: "llm"},
		{Key: keys[1], Actions: []string{"pick"}, DefaultAdapter: "llm"},
	}
}

func (s *State) turn() int { return len(s.history) % 2 }

func (s *State) IsOver() bool         { return s.over }
func (s *State) History() []game.Move { return game.CopyMoves(s.history) }

func (s *State) Scores() map[string]float64 {
	return map[string]float64{keys[0]: float64(s.wins[0]), keys[1]: float64(s.wins[1])}
}

func (s *State) parse(value string) (Pick, error) {
	v := strings.Trim(strings.TrimSpace(value), "[]")
	for _, p := range s.allowed {
		if strings.EqualFold(v, p.String()) {
			return p, nil
		}
	}
	return 0, game.Invalidf("%q is not one of %s", value, strings.Join(s.legal(), ", "))
}

func (s *State) legal() []string {
	out := make([]string, len(s.allowed))
	for i, p := range s.allowed {
		out[i] = p.String()
	}
	return out
}

func (s *State) UpdateGame(move game.Move) error {
	if s.over {
		return game.ErrGameOver
	}
	p, err := s.parse(move.Value)
	if err != nil {
		if s.cfg.Feedback {
			s.lastError = err.Error()
		}
		return err
	}
	s.lastError = ""
	s.history = append(s.history, move)
	if s.pending == nil {
		s.pending = &p
		return nil
	}
	first := *s.pending
	s.pending = nil
	r := Round{Picks: [2]string{first.String(), p.String()}}
	switch Outcome(first, p) {
	case 1:
		s.wins[0]++
		r.Winner = keys[0]
	case -1:
		s.wins[1]++
		r.Winner = keys[1]
	}
	s.endRound(r)
	return nil
}

func (s *State) endRound(r Round) {
	s.rounds = append(s.rounds, r)
	if len(s.rounds) >= s.cfg.Rounds {
		s.over = true
	}
}

// Forfeit under "loss" hands every remaining round to the opponent; under
// "default" only the round in progress.
func (s *State) Forfeit(playerKey string) (game.ForfeitPolicy, error) {
	if s.over {
		return s.forfeit, game.ErrGameOver
	}
	loser := -1
	for i, k := range keys {
		if k == playerKey {
			loser = i
		}
	}
	if loser < 0 {
		return s.forfeit, fmt.Errorf("unknown seat %q", playerKey)
	}
	winner := 1 - loser
	if s.forfeit == game.ForfeitHold {
		return s.forfeit, nil
	}
	for !s.over {
		// a lone pending pick is discarded with the round; keep parity by
		// recording a placeholder move for whichever seat had not picked
		if s.pending == nil {
			s.history = append(s.history, game.Move{Value: "forfeit", Trace: "forfeit"})
		}
		s.history = append(s.history, game.Move{Value: "forfeit", Trace: "forfeit"})
		s.pending = nil
		s.wins[winner]++
		s.endRound(Round{Picks: [2]string{"-", "-"}, Winner: keys[winner]})
		if s.forfeit == game.ForfeitDefault {
			break
		}
	}
	return s.forfeit, nil
}

func (s *State) NextAction() game.Action {
	if s.over {
		return game.Action{Name: "game_over"}
	}
	t := s.turn()
	past := make([]map[string]any, len(s.rounds))
	for i, r := range s.rounds {
		past[i] = map[string]any{"you": r.Picks[t], "opponent": r.Picks[1-t], "winner": r.Winner}
	}
	inputs := map[string]any{
		"round":       len(s.rounds) + 1,
		"rounds":      s.cfg.Rounds,
		"your_wins":   s.wins[t],
		"their_wins":  s.wins[1-t],
		"past_rounds": past,
		"legal_moves": s.legal(),
	}
	if s.cfg.Feedback && s.lastError != "" {
		inputs["last_error"] = s.lastError
	}
	return game.Action{Name: "pick", PlayerKey: keys[t], Inputs: inputs}
}

func (s *State) Display() string {
	var b strings.Builder
	for i, r := range s.rounds {
		w := r.Winner
		if w == "" {
			w = "tie"
		}
		fmt.Fprintf(&b, "round %d: %s vs %s -> %s\n", i+1, r.Picks[0], r.Picks[1], w)
	}
	fmt.Fprintf(&b, "%s %d - %d %s\n", keys[0], s.wins[0], s.wins[1], keys[1])
	return b.String()
}

func (s *State) Export() map[string]any {
	var pending string
	if s.pending != nil {
		pending = s.pending.String()
	}
	return map[string]any{
		"game":    GameName,
		"variant": s.cfg.Variant,
		"rounds":  append([]Round(nil), s.rounds...),
		"pending": pending,
		"scores":  s.Scores(),
		"over":    s.over,
	}
}
