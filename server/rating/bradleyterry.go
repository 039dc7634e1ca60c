package rating

import (
	"math"
	"math/rand"
	"sort"
)

// Game is one pairwise result. ScoreA is 1 for an A win, 0.5 for a draw and
// 0 for a B win.
type Game struct {
	A      string  `json:"a"`
	B      string  `json:"b"`
	ScoreA float64 `json:"score_a"`
}

// BTOptions tunes the Bradley-Terry fit.
type BTOptions struct {
	// Prior adds this many virtual wins and losses for every agent against an
	// average opponent, which keeps undefeated or winless agents finite.
	Prior      float64
	Iterations int
	Tolerance  float64
	// Anchor is the rating of an average agent on the Elo-like scale.
	Anchor float64
}

func DefaultBTOptions() BTOptions {
	return BTOptions{Prior: 1, Iterations: 1000, Tolerance: 1e-9, Anchor: DefaultStart}
}

func (o *BTOptions) fill() {
	d := DefaultBTOptions()
	if o.Iterations <= 0 {
		o.Iterations = d.Iterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.Anchor == 0 {
		o.Anchor = d.Anchor
	}
}

func agentsOf(games []Game) []string {
	seen := map[string]bool{}
	var out []string
	for _, g := range games {
		for _, n := range [2]string{g.A, g.B} {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	sort.Strings(out)
	return out
}

// BradleyTerry returns maximum-likelihood strengths on an Elo-like scale
// (Anchor + 400*log10(strength), strengths normalised to a geometric mean of
// one). It uses the minorize-maximize iteration; draws count as half a win
// for each side.
func BradleyTerry(games []Game, opts BTOptions) map[string]float64 {
	opts.fill()
	names := agentsOf(games)
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i
	}
	n := len(names)
	wins := make([]float64, n)
	pairs := make([][]float64, n)
	for i := range pairs {
		pairs[i] = make([]float64, n)
	}
	for _, g := range games {
		a, b := idx[g.A], idx[g.B]
		if a == b {
			continue
		}
		wins[a] += g.ScoreA
		wins[b] += 1 - g.ScoreA
		pairs[a][b]++
		pairs[b][a]++
	}

	gamma := make([]float64, n)
	for i := range gamma {
		gamma[i] = 1
	}
	next := make([]float64, n)
	for it := 0; it < opts.Iterations; it++ {
		for i := 0; i < n; i++ {
			num := wins[i] + opts.Prior
			den := 2 * opts.Prior / (gamma[i] + 1)
			for j := 0; j < n; j++ {
				if pairs[i][j] > 0 {
					den += pairs[i][j] / (gamma[i] + gamma[j])
				}
			}
			switch {
			case den == 0:
				next[i] = gamma[i]
			case num == 0:
				// winless with no prior: push towards zero but keep it positive
				next[i] = gamma[i] / 2
			default:
				next[i] = num / den
			}
		}
		normalise(next)
		change := 0.0
		for i := range gamma {
			change = math.Max(change, math.Abs(next[i]-gamma[i]))
			gamma[i] = next[i]
		}
		if change < opts.Tolerance {
			break
		}
	}

	out := make(map[string]float64, n)
	for i, name := range names {
		out[name] = opts.Anchor + 400*math.Log10(gamma[i])
	}
	return out
}

func normalise(g []float64) {
	if len(g) == 0 {
		return
	}
	logSum := 0.0
	for _, v := range g {
		logSum += math.Log(v)
	}
	scale := math.Exp(logSum / float64(len(g)))
	for i := range g {
		g[i] /= scale
	}
}

// Bootstrap resamples games with replacement and refits, returning a 95%
// interval per agent. Agents missing from a resample are skipped for that
// draw.
func Bootstrap(games []Game, opts BTOptions, samples int, rng *rand.Rand) map[string]Interval {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	draws := map[string][]float64{}
	sample := make([]Game, len(games))
	for s := 0; s < samples && len(games) > 0; s++ {
		for i := range sample {
			sample[i] = games[rng.Intn(len(games))]
		}
		for name, r := range BradleyTerry(sample, opts) {
			draws[name] = append(draws[name], r)
		}
	}
	out := make(map[string]Interval, len(draws))
	for name, vals := range draws {
		out[name] = percentiles(vals)
	}
	return out
}
