// Package poker implements no-limit hold'em for 2..10 seats as a
// game.State: staged betting, rotating blinds, side pots and multi-hand
// continuation until one seat holds every chip or the hand budget runs out.
package poker

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"agent-arena/server/game"
)

const GameName = "poker"

type Stage string

const (
	Preflop Stage = "preflop"
	Flop    Stage = "flop"
	Turn    Stage = "turn"
	River   Stage = "river"
)

// Config is decoded from the game config map.
type Config struct {
	NumPlayers    int      `yaml:"num_players"`
	StartingChips int      `yaml:"starting_chips"`
	SmallBlind    int      `yaml:"small_blind"`
	BigBlind      int      `yaml:"big_blind"` // 0 means twice the small blind
	NumHands      int      `yaml:"num_hands"`
	Seed          int64    `yaml:"seed"`
	Deck          []string `yaml:"deck"` // fixed top of deck for the first hand
	Forfeit       string   `yaml:"forfeit"`
	Feedback      bool     `yaml:"feedback"`
}

func DefaultConfig() Config {
	return Config{NumPlayers: 2, StartingChips: 1000, SmallBlind: 10, NumHands: 10}
}

type seat struct {
	Key    string
	Chips  int
	Bet    int // this betting round
	Total  int // this hand
	Hole   []Card
	Folded bool
	AllIn  bool
	Out    bool
	Acted  bool
}

func (s *seat) inHand() bool { return !s.Out && !s.Folded }
func (s *seat) canAct() bool { return s.inHand() && !s.AllIn }

func (s *seat) resetHand() {
	s.Bet, s.Total, s.Hole = 0, 0, nil
	s.Folded, s.AllIn, s.Acted = false, false, false
}

func (s *seat) resetRound() {
	s.Bet, s.Acted = 0, false
}
func (s *seat) owes(cur int) int {
	if d := cur - s.Bet; d > 0 {
		return d
	}
	return 0
}

// HandResult summarises one finished hand.
type HandResult struct {
	Hand     int               `json:"hand"`
	Board    []string          `json:"board"`
	Pot      int               `json:"pot"`
	Winnings map[string]int    `json:"winnings"`
	Shown    map[string]string `json:"shown,omitempty"`
}

// State is one poker match.
type State struct {
	cfg     Config
	forfeit game.ForfeitPolicy
	rng     *rand.Rand

	seats      []*seat
	dealer     int
	sb, bb     int
	deck       []Card
	board      []Card
	pot        int
	stage      Stage
	currentBet int
	current    int
	hand       int
	handMoves  []string
	history    []game.Move
	results    []HandResult
	over       bool
	lastError  string
}

// Entry registers poker with a game.Registry.
func Entry() game.Entry {
	return game.Entry{
		Name:        GameName,
		Description: "no-limit hold'em, 2-10 seats, multi-hand",
		New: func(raw map[string]any) (game.State, error) {
			cfg := DefaultConfig()
			if err := game.DecodeConfig(raw, &cfg); err != nil {
				return nil, err
			}
			return New(cfg)
		},
	}
}

// New validates cfg, seats the players and starts the first hand.
func New(cfg Config) (*State, error) {
	if cfg.NumPlayers < 2 || cfg.NumPlayers > 10 {
		return nil, fmt.Errorf("expected 2-10 players, got %d", cfg.NumPlayers)
	}
	if cfg.SmallBlind <= 0 {
		return nil, fmt.Errorf("small blind must be positive")
	}
	if cfg.BigBlind == 0 {
		cfg.BigBlind = 2 * cfg.SmallBlind
	}
	if cfg.BigBlind < cfg.SmallBlind {
		return nil, fmt.Errorf("big blind %d below small blind %d", cfg.BigBlind, cfg.SmallBlind)
	}
	if cfg.StartingChips <= 0 {
		return nil, fmt.Errorf("starting chips must be positive")
	}
	if cfg.NumHands <= 0 {
		cfg.NumHands = 1
	}
	policy, err := game.ParseForfeitPolicy(cfg.Forfeit, game.ForfeitDefault)
	if err != nil {
		return nil, err
	}
	s := &State{cfg: cfg, forfeit: policy, rng: rand.New(rand.NewSource(cfg.Seed))}
	if cfg.Seed == 0 {
		s.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	for i := 0; i < cfg.NumPlayers; i++ {
		s.seats = append(s.seats, &seat{Key: fmt.Sprintf("player_%d", i), Chips: cfg.StartingChips})
	}
	s.dealer = -1
	if err := s.startHand(); err != nil {
		return nil, err
	}
	s.settle()
	return s, nil
}

func (s *State) Players() []game.PlayerDefinition {
	out := make([]game.PlayerDefinition, len(s.seats))
	for i, st := range s.seats {
		out[i] = game.PlayerDefinition{
			Key:            st.Key,
			Actions:        []string{"bet"},
			DefaultAdapter: "llm",
		}
	}
	return out
}

func (s *State) IsOver() bool         { return s.over }
func (s *State) History() []game.Move { return game.CopyMoves(s.history) }
func (s *State) Pot() int             { return s.pot }
func (s *State) Stage() Stage         { return s.stage }
func (s *State) Hand() int            { return s.hand }
func (s *State) Results() []HandResult {
	return append([]HandResult(nil), s.results...)
}

// Scores are the chips each seat holds behind (not counting chips already in
// the pot).
func (s *State) Scores() map[string]float64 {
	out := make(map[string]float64, len(s.seats))
	for _, st := range s.seats {
		out[st.Key] = float64(st.Chips)
	}
	return out
}

func (s *State) seatIndex(key string) int {
	for i, st := range s.seats {
		if st.Key == key {
			return i
		}
	}
	return -1
}

// next returns the first seat after i (exclusive, wrapping) matching ok, or -1.
func (s *State) next(i int, ok func(*seat) bool) int {
	n := len(s.seats)
	for k := 1; k <= n; k++ {
		j := ((i+k)%n + n) % n
		if ok(s.seats[j]) {
			return j
		}
	}
	return -1
}

func (s *State) count(ok func(*seat) bool) int {
	c := 0
	for _, st := range s.seats {
		if ok(st) {
			c++
		}
	}
	return c
}

func alive(st *seat) bool  { return !st.Out }
func inHand(st *seat) bool { return st.inHand() }
func canAct(st *seat) bool { return st.canAct() }

func (s *State) needsAction(st *seat) bool {
	return st.canAct() && (!st.Acted || st.Bet < s.currentBet)
}

// startHand rotates the dealer, posts blinds and deals hole cards.
func (s *State) startHand() error {
	s.hand++
	for _, st := range s.seats {
		st.resetHand()
	}
	if s.dealer < 0 {
		s.dealer = 0
	} else {
		s.dealer = s.next(s.dealer, alive)
	}
	s.sb = s.next(s.dealer, alive)
	s.bb = s.next(s.sb, alive)

	if s.hand == 1 && len(s.cfg.Deck) > 0 {
		d, err := StackedDeck(s.cfg.Deck)
		if err != nil {
			return err
		}
		s.deck = d
	} else {
		s.deck = NewDeck(s.rng)
	}
	s.board = nil
	s.pot = 0
	s.currentBet = 0
	s.handMoves = nil
	s.stage = Preflop

	s.commit(s.seats[s.sb], s.cfg.SmallBlind)
	s.commit(s.seats[s.bb], s.cfg.BigBlind)

	for k := 0; k < 2; k++ {
		for i := range s.seats {
			j := (s.sb + i) % len(s.seats)
			if s.seats[j].Out {
				continue
			}
			s.seats[j].Hole = append(s.seats[j].Hole, s.pop())
		}
	}
	s.current = s.next(s.bb, canAct)
	return nil
}

func (s *State) pop() Card { c := s.deck[0]; s.deck = s.deck[1:]; return c }

// commit moves up to amt chips from the seat into the pot.
func (s *State) commit(st *seat, amt int) {
	if amt >= st.Chips {
		amt = st.Chips
		st.AllIn = true
	}
	st.Chips -= amt
	st.Bet += amt
	st.Total += amt
	s.pot += amt
	if st.Bet > s.currentBet {
		s.currentBet = st.Bet
	}
}

func (s *State) toCall(st *seat) int {
	o := st.owes(s.currentBet)
	if o > st.Chips {
		return st.Chips
	}
	return o
}

type parsedMove struct {
	verb   string
	amount int
}

func parseMove(value string) (parsedMove, error) {
	fields := strings.Fields(strings.TrimSpace(value))
	if len(fields) == 0 {
		return parsedMove{}, game.Invalidf("empty move")
	}
	verb := strings.ToLower(strings.Trim(fields[0], "[]"))
	switch verb {
	case "fold", "call", "check":
		if len(fields) != 1 {
			return parsedMove{}, game.Invalidf("%s takes no amount", verb)
		}
		return parsedMove{verb: verb}, nil
	case "raise", "bet":
		if len(fields) != 2 {
			return parsedMove{}, game.Invalidf("raise needs exactly one amount, e.g. \"Raise 20\"")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return parsedMove{}, game.Invalidf("raise amount %q is not an integer", fields[1])
		}
		return parsedMove{verb: "raise", amount: n}, nil
	default:
		return parsedMove{}, game.Invalidf("unknown move %q (expected Fold, Call, Check or Raise <amount>)", fields[0])
	}
}

// validate checks pm for the seat to act without touching any state.
func (s *State) validate(st *seat, pm parsedMove) error {
	switch pm.verb {
	case "check":
		if st.owes(s.currentBet) > 0 {
			return game.Invalidf("cannot check facing %d to call", st.owes(s.currentBet))
		}
	case "raise":
		if pm.amount < s.cfg.BigBlind {
			return game.Invalidf("raise of %d is below the big blind %d", pm.amount, s.cfg.BigBlind)
		}
		need := st.owes(s.currentBet) + pm.amount
		if need > st.Chips {
			return game.Invalidf("raise needs %d chips but only %d remain", need, st.Chips)
		}
		if s.count(func(o *seat) bool { return o != st && o.canAct() }) == 0 {
			return game.Invalidf("no opponent can respond to a raise; call or check instead")
		}
	}
	return nil
}

// UpdateGame applies one betting move for the seat whose turn it is.
func (s *State) UpdateGame(move game.Move) error {
	if s.over {
		return game.ErrGameOver
	}
	st := s.seats[s.current]
	pm, err := parseMove(move.Value)
	if err == nil {
		err = s.validate(st, pm)
	}
	if err != nil {
		if s.cfg.Feedback {
			s.lastError = err.Error()
		}
		return err
	}
	s.lastError = ""
	s.apply(st, pm)
	s.history = append(s.history, move)
	s.settle()
	return nil
}

func (s *State) apply(st *seat, pm parsedMove) {
	switch pm.verb {
	case "fold":
		st.Folded = true
		s.handMoves = append(s.handMoves, st.Key+": Fold")
	case "check":
		s.handMoves = append(s.handMoves, st.Key+": Check")
	case "call":
		amt := s.toCall(st)
		s.commit(st, amt)
		if amt == 0 {
			s.handMoves = append(s.handMoves, st.Key+": Check")
		} else {
			s.handMoves = append(s.handMoves, fmt.Sprintf("%s: Call %d", st.Key, amt))
		}
	case "raise":
		s.commit(st, st.owes(s.currentBet)+pm.amount)
		for _, o := range s.seats {
			if o != st {
				o.Acted = false
			}
		}
		s.handMoves = append(s.handMoves, fmt.Sprintf("%s: Raise %d", st.Key, pm.amount))
	}
	st.Acted = true
}

// roundComplete reports whether no seat still owes an action this round.
func (s *State) roundComplete() bool {
	lone := s.count(canAct) == 1
	for _, st := range s.seats {
		if !s.needsAction(st) {
			continue
		}
		// a lone seat that already covers the bet has nobody left to play against
		if lone && st.Bet >= s.currentBet {
			continue
		}
		return false
	}
	return true
}

// settle advances stages, hands and the seat to act until some seat owes a
// decision or the game is over.
func (s *State) settle() {
	for !s.over {
		if s.count(inHand) == 1 {
			s.awardUncontested()
			s.finishHand()
			continue
		}
		if !s.roundComplete() {
			if s.current < 0 || !s.needsAction(s.seats[s.current]) {
				s.current = s.next(s.current, s.needsAction)
			}
			return
		}
		if s.stage == River {
			s.showdown()
			s.finishHand()
			continue
		}
		s.nextStage()
	}
}

func (s *State) nextStage() {
	switch s.stage {
	case Preflop:
		s.board = append(s.board, s.pop(), s.pop(), s.pop())
		s.stage = Flop
	case Flop:
		s.board = append(s.board, s.pop())
		s.stage = Turn
	case Turn:
		s.board = append(s.board, s.pop())
		s.stage = River
	}
	for _, st := range s.seats {
		st.resetRound()
	}
	s.currentBet = 0
	if c := s.next(s.dealer, canAct); c >= 0 {
		s.current = c
	}
}

func (s *State) awardUncontested() {
	w := s.next(s.dealer, inHand)
	winner := s.seats[w]
	winner.Chips += s.pot
	s.results = append(s.results, HandResult{
		Hand: s.hand, Board: cardStrings(s.board), Pot: s.pot,
		Winnings: map[string]int{winner.Key: s.pot},
	})
	s.pot = 0
}

// showdown splits the pot into main and side pots by contribution level and
// awards each to the best eligible hand. Odd chips go to the first winner
// left of the dealer.
func (s *State) showdown() {
	values := map[*seat]HandValue{}
	shown := map[string]string{}
	for _, st := range s.seats {
		if st.inHand() {
			all := append(append([]Card{}, st.Hole...), s.board...)
			values[st] = Evaluate(all)
			shown[st.Key] = strings.Join(cardStrings(st.Hole), " ")
		}
	}

	var levels []int
	seen := map[int]bool{}
	for st := range values {
		if !seen[st.Total] {
			seen[st.Total] = true
			levels = append(levels, st.Total)
		}
	}
	sort.Ints(levels)

	winnings := map[string]int{}
	distributed, prev := 0, 0
	var lastWinners []*seat
	for _, lvl := range levels {
		size := 0
		for _, st := range s.seats {
			size += min(st.Total, lvl) - min(st.Total, prev)
		}
		var eligible []*seat
		for st := range values {
			if st.Total >= lvl {
				eligible = append(eligible, st)
			}
		}
		lastWinners = s.bestOf(eligible, values)
		s.split(size, lastWinners, winnings)
		distributed += size
		prev = lvl
	}
	// chips folded seats put in above every live seat's level
	if rest := s.pot - distributed; rest > 0 && len(lastWinners) > 0 {
		s.split(rest, lastWinners, winnings)
	}
	s.results = append(s.results, HandResult{
		Hand: s.hand, Board: cardStrings(s.board), Pot: s.pot, Winnings: winnings, Shown: shown,
	})
	s.pot = 0
}

// bestOf returns the winners among eligible, ordered from the dealer's left.
func (s *State) bestOf(eligible []*seat, values map[*seat]HandValue) []*seat {
	var best []*seat
	for i := 1; i <= len(s.seats); i++ {
		st := s.seats[(s.dealer+i)%len(s.seats)]
		ok := false
		for _, e := range eligible {
			if e == st {
				ok = true
				break
			}
		}
		if !ok {
			continue
		}
		if len(best) == 0 {
			best = []*seat{st}
			continue
		}
		switch Compare(values[st], values[best[0]]) {
		case 1:
			best = []*seat{st}
		case 0:
			best = append(best, st)
		}
	}
	return best
}

func (s *State) split(amount int, winners []*seat, winnings map[string]int) {
	share, odd := amount/len(winners), amount%len(winners)
	for i, w := range winners {
		win := share
		if i < odd {
			win++
		}
		w.Chips += win
		winnings[w.Key] += win
	}
}

// finishHand eliminates busted seats and either ends the game or deals again.
func (s *State) finishHand() {
	for _, st := range s.seats {
		if !st.Out && st.Chips == 0 {
			st.Out = true
		}
	}
	if s.count(alive) <= 1 || s.hand >= s.cfg.NumHands {
		s.over = true
		return
	}
	// a stacked deck only applies to hand one, so later deals cannot fail
	_ = s.startHand()
}

// Forfeit resolves a seat that exhausted its attempts according to the
// configured policy.
func (s *State) Forfeit(playerKey string) (game.ForfeitPolicy, error) {
	if s.over {
		return s.forfeit, game.ErrGameOver
	}
	i := s.seatIndex(playerKey)
	if i < 0 {
		return s.forfeit, fmt.Errorf("unknown seat %q", playerKey)
	}
	switch s.forfeit {
	case game.ForfeitHold:
		return s.forfeit, nil
	case game.ForfeitLoss:
		// Other seats take back what they put in this hand and share the
		// forfeiting seat's stack plus its contribution. Odd chips go to the
		// first seats on its left.
		loser := s.seats[i]
		forfeited := loser.Chips + loser.Total
		loser.Chips, loser.Total, loser.Out = 0, 0, true
		var rest []*seat
		for k := 1; k < len(s.seats); k++ {
			st := s.seats[(i+k)%len(s.seats)]
			if st.Out {
				continue
			}
			st.Chips += st.Total
			st.Total = 0
			rest = append(rest, st)
		}
		if len(rest) > 0 {
			share, odd := forfeited/len(rest), forfeited%len(rest)
			for k, st := range rest {
				st.Chips += share
				if k < odd {
					st.Chips++
				}
			}
		}
		s.pot = 0
		s.over = true
		return s.forfeit, nil
	default:
		if i != s.current {
			return s.forfeit, fmt.Errorf("seat %q is not to act", playerKey)
		}
		value := "Fold"
		if s.seats[i].owes(s.currentBet) == 0 {
			value = "Check"
		}
		return s.forfeit, s.UpdateGame(game.Move{Value: value, Trace: "forfeit"})
	}
}
