package rating

import "math"

const (
	glickoScale = 173.7178
	DefaultTau  = 0.5
)

// Glicko is one agent's Glicko-2 rating on the public 1500 scale.
type Glicko struct {
	Rating     float64 `json:"rating"`
	RD         float64 `json:"rd"`
	Volatility float64 `json:"volatility"`
	Periods    int     `json:"periods"`
}

func NewGlicko() *Glicko { return &Glicko{Rating: 1500, RD: 350, Volatility: 0.06} }

func (g *Glicko) muPhi() (mu, phi float64) {
	return (g.Rating - 1500) / glickoScale, g.RD / glickoScale
}

func (g *Glicko) set(mu, phi float64) {
	g.Rating, g.RD = mu*glickoScale+1500, phi*glickoScale
}

func gPhi(phi float64) float64 {
	return 1 / math.Sqrt(1+3*phi*phi/(math.Pi*math.Pi))
}

func expectMu(mu, muj, phij float64) float64 {
	return 1 / (1 + math.Exp(-gPhi(phij)*(mu-muj)))
}

// glickoResult is one game as seen from the rated agent, against the
// opponent's rating at the start of the period.
type glickoResult struct {
	opp Glicko
	s   float64
}

// update runs one rating period. With no games only the RD grows.
func (g *Glicko) update(results []glickoResult, tau float64) {
	mu, phi := g.muPhi()
	g.Periods++
	if len(results) == 0 {
		g.set(mu, math.Sqrt(phi*phi+g.Volatility*g.Volatility))
		return
	}

	var info, gain float64
	for _, r := range results {
		muj, phij := r.opp.muPhi()
		gj := gPhi(phij)
		e := expectMu(mu, muj, phij)
		info += gj * gj * e * (1 - e)
		gain += gj * (r.s - e)
	}
	v := 1 / info
	delta := v * gain

	sigma := g.Volatility
	if math.Abs(delta) > 1e-12 {
		sigma = solveVolatility(phi, v, delta, g.Volatility, tau)
	}
	phiStar := math.Sqrt(phi*phi + sigma*sigma)
	phiNew := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	g.set(mu+phiNew*phiNew*gain, phiNew)
	g.Volatility = sigma
}

// solveVolatility finds the new sigma with the Illinois variant of regula
// falsi from the Glickman paper.
func solveVolatility(phi, v, delta, sigma, tau float64) float64 {
	a := math.Log(sigma * sigma)
	f := func(x float64) float64 {
		ex := math.Exp(x)
		d := phi*phi + v + ex
		return ex*(delta*delta-phi*phi-v-ex)/(2*d*d) - (x-a)/(tau*tau)
	}
	A := a
	var B float64
	if delta*delta > phi*phi+v {
		B = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1.0
		for f(a-k*tau) < 0 && k < 1e6 {
			k++
		}
		B = a - k*tau
	}
	fA, fB := f(A), f(B)
	for i := 0; i < 100 && math.Abs(B-A) > 1e-6; i++ {
		C := A + (A-B)*fA/(fB-fA)
		fC := f(C)
		if math.IsNaN(fC) || math.IsInf(fC, 0) {
			break
		}
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}
	return math.Exp(A / 2)
}

// Glicko2 rates every agent over games, treating each chunk of periodSize
// games as one rating period. periodSize <= 0 puts everything in a single
// period.
func Glicko2(games []Game, periodSize int, tau float64) map[string]*Glicko {
	if tau <= 0 {
		tau = DefaultTau
	}
	out := map[string]*Glicko{}
	for _, name := range agentsOf(games) {
		out[name] = NewGlicko()
	}
	if periodSize <= 0 {
		periodSize = len(games)
	}
	for start := 0; start < len(games); start += periodSize {
		end := min(start+periodSize, len(games))
		snapshot := make(map[string]Glicko, len(out))
		for k, v := range out {
			snapshot[k] = *v
		}
		byAgent := map[string][]glickoResult{}
		for _, gm := range games[start:end] {
			byAgent[gm.A] = append(byAgent[gm.A], glickoResult{opp: snapshot[gm.B], s: gm.ScoreA})
			byAgent[gm.B] = append(byAgent[gm.B], glickoResult{opp: snapshot[gm.A], s: 1 - gm.ScoreA})
		}
		for name, g := range out {
			g.update(byAgent[name], tau)
		}
	}
	return out
}
