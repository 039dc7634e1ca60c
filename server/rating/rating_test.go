package rating

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEloIsZeroSum(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		a := 1000 + rng.Float64()*1000
		b := 1000 + rng.Float64()*1000
		score := []float64{0, 0.5, 1}[rng.Intn(3)]
		na, nb := UpdateElo(a, b, score, DefaultK)
		assert.InDelta(t, na-a, -(nb - b), 1e-9, "a=%v b=%v score=%v", a, b, score)
		assert.InDelta(t, a+b, na+nb, 1e-9)
	}
}

func TestEloKnownValues(t *testing.T) {
	a, b := UpdateElo(1500, 1500, 1, 32)
	assert.Equal(t, 1516.0, a)
	assert.Equal(t, 1484.0, b)

	a, b = UpdateElo(1500, 1500, 0.5, 32)
	assert.Equal(t, 1500.0, a)
	assert.Equal(t, 1500.0, b)

	assert.InDelta(t, 0.76, Expected(1700, 1500), 0.001)
}

func TestBradleyTerrySymmetric(t *testing.T) {
	games := []Game{
		{"a", "b", 1}, {"b", "a", 1},
		{"b", "c", 1}, {"c", "b", 1},
		{"a", "c", 0.5},
	}
	r := BradleyTerry(games, DefaultBTOptions())
	for _, name := range []string{"a", "b", "c"} {
		assert.InDelta(t, 1500, r[name], 1e-6, name)
	}
}

func TestBradleyTerryOrdersByStrength(t *testing.T) {
	var games []Game
	for i := 0; i < 10; i++ {
		games = append(games, Game{"strong", "mid", 1}, Game{"mid", "weak", 1}, Game{"strong", "weak", 1})
	}
	games = append(games, Game{"weak", "strong", 1})
	r := BradleyTerry(games, DefaultBTOptions())
	assert.Greater(t, r["strong"], r["mid"])
	assert.Greater(t, r["mid"], r["weak"])
	for _, v := range r {
		assert.False(t, math.IsInf(v, 0) || math.IsNaN(v))
	}
	// geometric-mean normalisation keeps the average at the anchor
	assert.InDelta(t, 1500, (r["strong"]+r["mid"]+r["weak"])/3, 1e-6)
}

func TestBootstrapCoversFit(t *testing.T) {
	var games []Game
	for i := 0; i < 30; i++ {
		games = append(games, Game{"x", "y", []float64{1, 1, 0}[i%3]})
	}
	fit := BradleyTerry(games, DefaultBTOptions())
	ci := Bootstrap(games, DefaultBTOptions(), 200, rand.New(rand.NewSource(7)))
	require.Contains(t, ci, "x")
	assert.LessOrEqual(t, ci["x"].Low, fit["x"])
	assert.GreaterOrEqual(t, ci["x"].High, fit["x"])
}

func TestWilsonCI95(t *testing.T) {
	ci := WilsonCI95(50, 0, 100)
	assert.InDelta(t, 0.404, ci.Low, 0.001)
	assert.InDelta(t, 0.596, ci.High, 0.001)
	assert.Equal(t, Interval{0, 1}, WilsonCI95(0, 0, 0))
}

func TestGlicko2(t *testing.T) {
	games := []Game{{"a", "b", 1}, {"a", "b", 1}, {"a", "b", 0.5}}
	r := Glicko2(games, 0, DefaultTau)
	require.Len(t, r, 2)
	assert.Greater(t, r["a"].Rating, 1500.0)
	assert.Less(t, r["b"].Rating, 1500.0)
	assert.Less(t, r["a"].RD, 350.0)
	assert.Equal(t, 1, r["a"].Periods)

	// one game per period ages both agents three times
	r = Glicko2(games, 1, DefaultTau)
	assert.Equal(t, 3, r["b"].Periods)
}

// Worked example from Glickman's "Example of the Glicko-2 system".
func TestGlicko2WorkedExample(t *testing.T) {
	g := &Glicko{Rating: 1500, RD: 200, Volatility: 0.06}
	g.update([]glickoResult{
		{opp: Glicko{Rating: 1400, RD: 30}, s: 1},
		{opp: Glicko{Rating: 1550, RD: 100}, s: 0},
		{opp: Glicko{Rating: 1700, RD: 300}, s: 0},
	}, 0.5)
	assert.InDelta(t, 1464.06, g.Rating, 0.05)
	assert.InDelta(t, 151.52, g.RD, 0.05)
	assert.InDelta(t, 0.05999, g.Volatility, 1e-5)
}

func TestGlicko2IdlePeriodWidensRD(t *testing.T) {
	g := &Glicko{Rating: 1500, RD: 50, Volatility: 0.06}
	g.update(nil, DefaultTau)
	assert.Equal(t, 1500.0, g.Rating)
	assert.InDelta(t, math.Sqrt(50*50+(0.06*glickoScale)*(0.06*glickoScale)), g.RD, 1e-9)
}

func TestScore(t *testing.T) {
	assert.Equal(t, 1.0, Score(true, false))
	assert.Equal(t, 0.5, Score(false, true))
	assert.Equal(t, 0.0, Score(false, false))
}
