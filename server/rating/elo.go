// Package rating holds the online Elo update used by the tournament loop and
// the offline estimators used by the rate report.
package rating

import "math"

const (
	DefaultStart = 1500.0
	DefaultK     = 32.0
)

// Expected is the logistic expected score of a against b.
func Expected(a, b float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (b-a)/400.0))
}

// UpdateElo applies one match with scoreA in [0,1] (1 win, 0.5 draw, 0 loss)
// and returns both new ratings. B's change is the exact negation of A's.
func UpdateElo(a, b, scoreA, k float64) (newA, newB float64) {
	da := k * (scoreA - Expected(a, b))
	return a + da, b - da
}

// Score maps an outcome to the [0,1] score used by UpdateElo.
func Score(win, draw bool) float64 {
	switch {
	case draw:
		return 0.5
	case win:
		return 1
	default:
		return 0
	}
}
