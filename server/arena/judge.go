package arena

import (
	"fmt"

	"agent-arena/server/rating"
)

// Outcome is one agent's result in a finished match.
type Outcome string

const (
	Win  Outcome = "win"
	Draw Outcome = "draw"
	Loss Outcome = "loss"
)

// pairScore is a's Elo score against b: the better outcome wins, equal
// outcomes draw.
func pairScore(oa, ob Outcome) float64 {
	return rating.Score(oa.rank() > ob.rank(), oa.rank() == ob.rank())
}

func (o Outcome) rank() int {
	switch o {
	case Win:
		return 2
	case Draw:
		return 1
	}
	return 0
}

// Condition labels how a final score map is read.
type Condition struct {
	// Win is "highest" (default) or "lowest".
	Win string `yaml:"win" json:"win"`
	// Draw is "tie" (default): agents sharing the best score draw. "loss"
	// makes a shared best score a loss for everyone involved.
	Draw string `yaml:"draw" json:"draw"`
}

func (c Condition) Validate() error {
	switch c.Win {
	case "", "highest", "lowest":
	default:
		return fmt.Errorf("unknown win condition %q", c.Win)
	}
	switch c.Draw {
	case "", "tie", "loss":
	default:
		return fmt.Errorf("unknown draw condition %q", c.Draw)
	}
	return nil
}

// Record is one seat's line in results.json.
type Record struct {
	Agent        string  `json:"agent"`
	Role         string  `json:"role"`
	Score        float64 `json:"score"`
	AttemptsUsed int     `json:"attempts_used"`
	Exhausted    bool    `json:"exhausted"`
	Outcome      Outcome `json:"outcome,omitempty"`
}

// Judge decides win/draw/loss per agent. An agent that exhausted its move
// attempts cannot win and scores a loss whatever its score. Eligible agents
// sharing the best score all draw.
func Judge(records []Record, cond Condition) map[string]Outcome {
	better := func(a, b float64) bool { return a > b }
	if cond.Win == "lowest" {
		better = func(a, b float64) bool { return a < b }
	}
	out := make(map[string]Outcome, len(records))
	var best []string
	var bestScore float64
	for _, r := range records {
		out[r.Agent] = Loss
		if r.Exhausted {
			continue
		}
		switch {
		case len(best) == 0 || better(r.Score, bestScore):
			best, bestScore = []string{r.Agent}, r.Score
		case r.Score == bestScore:
			best = append(best, r.Agent)
		}
	}
	switch {
	case len(best) == 1:
		out[best[0]] = Win
	case len(best) > 1 && cond.Draw != "loss":
		for _, a := range best {
			out[a] = Draw
		}
	}
	return out
}
