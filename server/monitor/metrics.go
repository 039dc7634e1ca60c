// Package monitor exposes arena metrics and a small status API.
package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MatchesStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_matches_started_total",
			Help: "Matches started, by game",
		},
		[]string{"game"},
	)
	MatchesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_matches_finished_total",
			Help: "Matches that ran to completion, by game",
		},
		[]string{"game"},
	)
	MatchesFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_matches_failed_total",
			Help: "Matches aborted by an error, by game",
		},
		[]string{"game"},
	)
	InvalidMoves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_invalid_moves_total",
			Help: "Moves rejected by a game state",
		},
		[]string{"game"},
	)
	Forfeits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_forfeits_total",
			Help: "Seats that exhausted their move attempts, by policy applied",
		},
		[]string{"game", "policy"},
	)
	ActSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arena_player_act_seconds",
			Help:    "Time a player adapter took to answer one action",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"game"},
	)
	MatchesInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "arena_matches_in_flight",
			Help: "Matches currently being played",
		},
	)
)

func init() {
	prometheus.MustRegister(MatchesStarted)
	prometheus.MustRegister(MatchesFinished)
	prometheus.MustRegister(MatchesFailed)
	prometheus.MustRegister(InvalidMoves)
	prometheus.MustRegister(Forfeits)
	prometheus.MustRegister(ActSeconds)
	prometheus.MustRegister(MatchesInFlight)
}
