package rating

import (
	"math"
	"sort"
)

// Interval is a two-sided confidence interval.
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// WilsonCI95 bounds a win rate where draws count as half a win.
func WilsonCI95(wins, draws, total int) Interval {
	if total <= 0 {
		return Interval{0, 1}
	}
	const z = 1.96
	n := float64(total)
	p := (float64(wins) + 0.5*float64(draws)) / n
	den := 1 + z*z/n
	center := p + z*z/(2*n)
	half := z * math.Sqrt(p*(1-p)/n+z*z/(4*n*n))
	return Interval{(center - half) / den, (center + half) / den}
}

// percentiles returns the 2.5% and 97.5% points of vals (sorted in place).
func percentiles(vals []float64) Interval {
	if len(vals) == 0 {
		return Interval{}
	}
	sort.Float64s(vals)
	last := float64(len(vals) - 1)
	return Interval{vals[int(0.025*last)], vals[int(0.975*last)]}
}
