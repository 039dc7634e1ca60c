package poker

import (
	"fmt"
	"strings"

	"agent-arena/server/game"
)

// NextAction builds the observation for the seat to act. Only that seat's
// hole cards are included.
func (s *State) NextAction() game.Action {
	if s.over || s.current < 0 {
		return game.Action{Name: "game_over"}
	}
	p := s.seats[s.current]
	stacks := map[string]int{}
	bets := map[string]int{}
	status := map[string]string{}
	for _, st := range s.seats {
		stacks[st.Key] = st.Chips
		bets[st.Key] = st.Bet
		switch {
		case st.Out:
			status[st.Key] = "eliminated"
		case st.Folded:
			status[st.Key] = "folded"
		case st.AllIn:
			status[st.Key] = "all-in"
		default:
			status[st.Key] = "active"
		}
	}
	inputs := map[string]any{
		"hand":        s.hand,
		"num_hands":   s.cfg.NumHands,
		"stage":       string(s.stage),
		"hole_cards":  cardStrings(p.Hole),
		"board":       cardStrings(s.board),
		"pot":         s.pot,
		"to_call":     s.toCall(p),
		"current_bet": s.currentBet,
		"min_raise":   s.cfg.BigBlind,
		"max_raise":   max(p.Chips-p.owes(s.currentBet), 0),
		"chips":       p.Chips,
		"stacks":      stacks,
		"bets":        bets,
		"status":      status,
		"dealer":      s.seats[s.dealer].Key,
		"small_blind": s.cfg.SmallBlind,
		"big_blind":   s.cfg.BigBlind,
		"actions":     append([]string(nil), s.handMoves...),
		"legal_moves": s.legalMoves(p),
	}
	if s.cfg.Feedback && s.lastError != "" {
		inputs["last_error"] = s.lastError
	}
	return game.Action{Name: "bet", PlayerKey: p.Key, Inputs: inputs}
}

// legalMoves lists concrete example moves; any raise amount in
// [big blind, max_raise] is accepted.
func (s *State) legalMoves(p *seat) []string {
	var out []string
	if p.owes(s.currentBet) == 0 {
		out = append(out, "Check")
	} else {
		out = append(out, "Fold", "Call")
	}
	if s.validate(p, parsedMove{verb: "raise", amount: s.cfg.BigBlind}) == nil {
		out = append(out, fmt.Sprintf("Raise %d", s.cfg.BigBlind))
	}
	return out
}

func (s *State) Display() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hand %d/%d  %s  Pot=%d  Board: %s\n",
		s.hand, s.cfg.NumHands, s.stage, s.pot, strings.Join(cardStrings(s.board), " "))
	for i, st := range s.seats {
		tag := "  "
		switch i {
		case s.dealer:
			tag = "D "
		case s.sb:
			tag = "SB"
		case s.bb:
			tag = "BB"
		}
		marker := " "
		if i == s.current && !s.over {
			marker = ">"
		}
		state := ""
		switch {
		case st.Out:
			state = " (out)"
		case st.Folded:
			state = " (folded)"
		case st.AllIn:
			state = " (all-in)"
		}
		fmt.Fprintf(&b, "%s %s %-9s chips=%-6d bet=%-5d %s%s\n",
			marker, tag, st.Key, st.Chips, st.Bet, strings.Join(cardStrings(st.Hole), " "), state)
		if len(st.Hole) > 0 && len(s.board) >= 3 && st.inHand() {
			fmt.Fprintf(&b, "      %s\n", Describe(append(append([]Card{}, st.Hole...), s.board...)))
		}
	}
	if s.over {
		b.WriteString("game over\n")
	}
	return b.String()
}

// Export returns a JSON-friendly snapshot of the full (unhidden) state.
func (s *State) Export() map[string]any {
	seats := make([]map[string]any, len(s.seats))
	for i, st := range s.seats {
		seats[i] = map[string]any{
			"player_key": st.Key,
			"chips":      st.Chips,
			"bet":        st.Bet,
			"total":      st.Total,
			"hole_cards": cardStrings(st.Hole),
			"folded":     st.Folded,
			"all_in":     st.AllIn,
			"out":        st.Out,
		}
	}
	moves := make([]string, len(s.history))
	for i, m := range s.history {
		moves[i] = m.Value
	}
	return map[string]any{
		"game":        GameName,
		"hand":        s.hand,
		"num_hands":   s.cfg.NumHands,
		"stage":       string(s.stage),
		"dealer":      s.dealer,
		"pot":         s.pot,
		"current_bet": s.currentBet,
		"board":       cardStrings(s.board),
		"seats":       seats,
		"history":     moves,
		"hands":       s.Results(),
		"scores":      s.Scores(),
		"over":        s.over,
	}
}
