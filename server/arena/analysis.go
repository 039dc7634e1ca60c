package arena

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"agent-arena/server/rating"
)

// LoadReports reads every matches/*/results.json under root, oldest first.
func LoadReports(root string) ([]MatchReport, error) {
	paths, err := filepath.Glob(filepath.Join(root, "matches", "*", "results.json"))
	if err != nil {
		return nil, err
	}
	var out []MatchReport
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		var rep MatchReport
		if err := json.Unmarshal(b, &rep); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		rep.Dir = filepath.Dir(p)
		out = append(out, rep)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// PairwiseGames breaks each match into one game per pair of agents: the
// better outcome wins, equal outcomes draw.
func PairwiseGames(reports []MatchReport) []rating.Game {
	var games []rating.Game
	for _, rep := range reports {
		for i := 0; i < len(rep.Agents); i++ {
			for j := i + 1; j < len(rep.Agents); j++ {
				a, b := rep.Agents[i], rep.Agents[j]
				games = append(games, rating.Game{A: a, B: b, ScoreA: pairScore(rep.Outcomes[a], rep.Outcomes[b])})
			}
		}
	}
	return games
}

// RatingRow is one line of the offline rating report.
type RatingRow struct {
	Agent     string          `json:"agent"`
	BT        float64         `json:"bt"`
	BTCI      rating.Interval `json:"bt_ci95"`
	Glicko    float64         `json:"glicko"`
	GlickoRD  float64         `json:"glicko_rd"`
	Wins      int             `json:"wins"`
	Draws     int             `json:"draws"`
	Losses    int             `json:"losses"`
	WinRateCI rating.Interval `json:"win_rate_ci95"`
}

type ReportOptions struct {
	BT         rating.BTOptions
	Samples    int
	Seed       int64
	PeriodSize int
}

// RatingReport fits Bradley-Terry with bootstrap intervals and Glicko-2 over
// every recorded match, and adds Wilson intervals on the raw win rates.
func RatingReport(reports []MatchReport, opts ReportOptions) []RatingRow {
	games := PairwiseGames(reports)
	bt := rating.BradleyTerry(games, opts.BT)
	ci := rating.Bootstrap(games, opts.BT, opts.Samples, rand.New(rand.NewSource(opts.Seed)))
	gl := rating.Glicko2(games, opts.PeriodSize, rating.DefaultTau)

	tallies := map[string]*WDL{}
	for _, rep := range reports {
		for agent, o := range rep.Outcomes {
			w := tallies[agent]
			if w == nil {
				w = &WDL{}
				tallies[agent] = w
			}
			switch o {
			case Win:
				w.Wins++
			case Draw:
				w.Draws++
			default:
				w.Losses++
			}
		}
	}

	var rows []RatingRow
	for agent, w := range tallies {
		r := RatingRow{
			Agent: agent, BT: bt[agent], BTCI: ci[agent],
			Wins: w.Wins, Draws: w.Draws, Losses: w.Losses,
			WinRateCI: rating.WilsonCI95(w.Wins, w.Draws, w.Wins+w.Draws+w.Losses),
		}
		if g := gl[agent]; g != nil {
			r.Glicko, r.GlickoRD = g.Rating, g.RD
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].BT != rows[j].BT {
			return rows[i].BT > rows[j].BT
		}
		return rows[i].Agent < rows[j].Agent
	})
	return rows
}
