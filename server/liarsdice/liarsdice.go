// Package liarsdice is a single round of Liar's Dice: seats take turns
// raising a bid on how many dice across the table show a face, until one
// seat calls.
package liarsdice

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"agent-arena/server/game"
)

const GameName = "liars_dice"

type Config struct {
	NumPlayers    int     `yaml:"num_players"`
	DicePerPlayer int     `yaml:"dice_per_player"`
	Faces         int     `yaml:"faces"`
	Seed          int64   `yaml:"seed"`
	Dice          [][]int `yaml:"dice"` // fixed rolls, one slice per seat
	Forfeit       string  `yaml:"forfeit"`
	Feedback      bool    `yaml:"feedback"`
}

func DefaultConfig() Config {
	return Config{NumPlayers: 2, DicePerPlayer: 5, Faces: 6}
}

// Bid claims at least Quantity dice on the table show Face.
type Bid struct {
	Quantity int    `json:"quantity"`
	Face     int    `json:"face"`
	Player   string `json:"player"`
}

func (b Bid) String() string { return fmt.Sprintf("[Bid] %d %d", b.Quantity, b.Face) }

type State struct {
	cfg     Config
	forfeit game.ForfeitPolicy
	keys    []string
	dice    [][]int

	bid       *Bid
	bids      []Bid
	history   []game.Move
	over      bool
	caller    string
	counted   int
	scores    map[string]float64
	lastError string
}

func Entry() game.Entry {
	return game.Entry{
		Name:        GameName,
		Description: "one round of Liar's Dice, 2-6 seats",
		New: func(raw map[string]any) (game.State, error) {
			cfg := DefaultConfig()
			if err := game.DecodeConfig(raw, &cfg); err != nil {
				return nil, err
			}
			return New(cfg)
		},
	}
}

// New rolls the dice, or takes cfg.Dice as given.
func New(cfg Config) (*State, error) {
	if len(cfg.Dice) > 0 {
		cfg.NumPlayers = len(cfg.Dice)
	}
	if cfg.NumPlayers < 2 || cfg.NumPlayers > 6 {
		return nil, fmt.Errorf("expected 2-6 players, got %d", cfg.NumPlayers)
	}
	if cfg.Faces < 2 {
		return nil, fmt.Errorf("need at least 2 faces, got %d", cfg.Faces)
	}
	policy, err := game.ParseForfeitPolicy(cfg.Forfeit, game.ForfeitLoss)
	if err != nil {
		return nil, err
	}
	s := &State{cfg: cfg, forfeit: policy, scores: map[string]float64{}}
	for i := 0; i < cfg.NumPlayers; i++ {
		k := fmt.Sprintf("player_%d", i)
		s.keys = append(s.keys, k)
		s.scores[k] = 0
	}

	if len(cfg.Dice) > 0 {
		for i, roll := range cfg.Dice {
			if len(roll) == 0 {
				return nil, fmt.Errorf("seat %d has no dice", i)
			}
			for _, d := range roll {
				if d < 1 || d > cfg.Faces {
					return nil, fmt.Errorf("seat %d: die %d outside 1..%d", i, d, cfg.Faces)
				}
			}
			s.dice = append(s.dice, append([]int(nil), roll...))
		}
		return s, nil
	}

	if cfg.DicePerPlayer <= 0 {
		return nil, fmt.Errorf("dice per player must be positive")
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))
	for range s.keys {
		roll := make([]int, cfg.DicePerPlayer)
		for j := range roll {
			roll[j] = rng.Intn(cfg.Faces) + 1
		}
		s.dice = append(s.dice, roll)
	}
	return s, nil
}

func (s *State) Players() []game.PlayerDefinition {
	out := make([]game.PlayerDefinition, len(s.keys))
	for i, k := range s.keys {
		out[i] = game.PlayerDefinition{Key: k, Actions: []string{"bid"}, DefaultAdapter: "llm"}
	}
	return out
}

func (s *State) IsOver() bool         { return s.over }
func (s *State) History() []game.Move { return game.CopyMoves(s.history) }

func (s *State) Scores() map[string]float64 {
	out := make(map[string]float64, len(s.scores))
	for k, v := range s.scores {
		out[k] = v
	}
	return out
}

// turn alternates by history parity (round-robin for more than two seats).
func (s *State) turn() int { return len(s.history) % len(s.keys) }

func (s *State) totalDice() int {
	n := 0
	for _, r := range s.dice {
		n += len(r)
	}
	return n
}

type parsed struct {
	call     bool
	quantity int
	face     int
}

func parseMove(value string) (parsed, error) {
	fields := strings.Fields(strings.TrimSpace(value))
	if len(fields) == 0 {
		return parsed{}, game.Invalidf("empty move")
	}
	switch strings.ToLower(strings.Trim(fields[0], "[]")) {
	case "call":
		if len(fields) != 1 {
			return parsed{}, game.Invalidf("call takes no arguments")
		}
		return parsed{call: true}, nil
	case "bid":
		if len(fields) != 3 {
			return parsed{}, game.Invalidf("bid needs a quantity and a face, e.g. \"[Bid] 3 4\"")
		}
		q, err1 := strconv.Atoi(fields[1])
		f, err2 := strconv.Atoi(fields[2])
		if err1 != nil || err2 != nil {
			return parsed{}, game.Invalidf("bid quantity and face must be integers, got %q %q", fields[1], fields[2])
		}
		return parsed{quantity: q, face: f}, nil
	default:
		return parsed{}, game.Invalidf("unknown move %q (expected \"[Bid] <quantity> <face>\" or \"[Call]\")", fields[0])
	}
}

// validate only rejects a bid that raises neither quantity nor face. A bid
// that lowers the quantity while raising the face goes through.
func (s *State) validate(p parsed) error {
	if p.call {
		if s.bid == nil {
			return game.Invalidf("nothing to call yet; open with a bid")
		}
		return nil
	}
	if p.quantity < 1 {
		return game.Invalidf("bid quantity must be at least 1, got %d", p.quantity)
	}
	if p.face < 1 || p.face > s.cfg.Faces {
		return game.Invalidf("bid face must be 1..%d, got %d", s.cfg.Faces, p.face)
	}
	if s.bid != nil && p.quantity <= s.bid.Quantity && p.face <= s.bid.Face {
		return game.Invalidf("bid %d %d does not raise the previous bid %d %d",
			p.quantity, p.face, s.bid.Quantity, s.bid.Face)
	}
	return nil
}

func (s *State) UpdateGame(move game.Move) error {
	if s.over {
		return game.ErrGameOver
	}
	p, err := parseMove(move.Value)
	if err == nil {
		err = s.validate(p)
	}
	if err != nil {
		if s.cfg.Feedback {
			s.lastError = err.Error()
		}
		return err
	}
	s.lastError = ""
	key := s.keys[s.turn()]
	if p.call {
		s.resolve(key)
	} else {
		b := Bid{Quantity: p.quantity, Face: p.face, Player: key}
		s.bid = &b
		s.bids = append(s.bids, b)
	}
	s.history = append(s.history, move)
	return nil
}

// resolve counts the bid face across every seat. The caller wins when the
// bid overstated the count.
func (s *State) resolve(caller string) {
	count := 0
	for _, roll := range s.dice {
		for _, d := range roll {
			if d == s.bid.Face {
				count++
			}
		}
	}
	s.counted = count
	s.caller = caller
	if count < s.bid.Quantity {
		s.scores[caller] = 1
	} else {
		s.scores[s.bid.Player] = 1
	}
	s.over = true
}

// Forfeit applies the configured policy to a seat that ran out of attempts.
// Under "default" the seat calls the standing bid; with no bid on the table
// that falls back to a loss.
func (s *State) Forfeit(playerKey string) (game.ForfeitPolicy, error) {
	if s.over {
		return s.forfeit, game.ErrGameOver
	}
	if s.seat(playerKey) < 0 {
		return s.forfeit, fmt.Errorf("unknown seat %q", playerKey)
	}
	switch s.forfeit {
	case game.ForfeitHold:
		return s.forfeit, nil
	case game.ForfeitDefault:
		if s.bid != nil && s.keys[s.turn()] == playerKey {
			return s.forfeit, s.UpdateGame(game.Move{Value: "[Call]", Trace: "forfeit"})
		}
	}
	for _, k := range s.keys {
		if k != playerKey {
			s.scores[k] = 1
		}
	}
	s.over = true
	return game.ForfeitLoss, nil
}

func (s *State) seat(key string) int {
	for i, k := range s.keys {
		if k == key {
			return i
		}
	}
	return -1
}

func (s *State) NextAction() game.Action {
	if s.over {
		return game.Action{Name: "game_over"}
	}
	i := s.turn()
	inputs := map[string]any{
		"your_dice":   append([]int(nil), s.dice[i]...),
		"total_dice":  s.totalDice(),
		"faces":       s.cfg.Faces,
		"bids":        s.bidStrings(),
		"legal_moves": s.legalMoves(),
	}
	if s.bid != nil {
		inputs["last_bid"] = map[string]any{
			"quantity": s.bid.Quantity,
			"face":     s.bid.Face,
			"player":   s.bid.Player,
		}
	}
	if s.cfg.Feedback && s.lastError != "" {
		inputs["last_error"] = s.lastError
	}
	return game.Action{Name: "bid", PlayerKey: s.keys[i], Inputs: inputs}
}

func (s *State) legalMoves() []string {
	if s.bid == nil {
		return []string{"[Bid] 1 1"}
	}
	next := Bid{Quantity: s.bid.Quantity + 1, Face: s.bid.Face}
	return []string{next.String(), "[Call]"}
}

func (s *State) bidStrings() []string {
	out := make([]string, len(s.bids))
	for i, b := range s.bids {
		out[i] = b.Player + ": " + b.String()
	}
	return out
}

func (s *State) Display() string {
	var b strings.Builder
	for i, k := range s.keys {
		marker := " "
		if !s.over && i == s.turn() {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s %s dice=%v\n", marker, k, s.dice[i])
	}
	for _, bid := range s.bids {
		fmt.Fprintf(&b, "  %s %s\n", bid.Player, bid)
	}
	if s.over && s.bid != nil && s.caller != "" {
		fmt.Fprintf(&b, "%s called: %d x %d on the table against a bid of %d\n",
			s.caller, s.counted, s.bid.Face, s.bid.Quantity)
	}
	return b.String()
}

func (s *State) Export() map[string]any {
	dice := map[string][]int{}
	for i, k := range s.keys {
		dice[k] = append([]int(nil), s.dice[i]...)
	}
	out := map[string]any{
		"game":    GameName,
		"dice":    dice,
		"bids":    append([]Bid(nil), s.bids...),
		"scores":  s.Scores(),
		"over":    s.over,
		"caller":  s.caller,
		"counted": s.counted,
	}
	return out
}
