package arena

import (
	"errors"
	"fmt"
)

var ErrNoMatchups = errors.New("no matchups")

// RoundRobin cycles through every ordered seating of distinct agents. When
// the list is exhausted it starts over and bumps the round counter.
type RoundRobin struct {
	tuples [][]string
	next   int
	round  int
}

// NewRoundRobin lists all len(agents)!/(len(agents)-seats)! permutations in
// input order.
func NewRoundRobin(agents []string, seats int) (*RoundRobin, error) {
	seen := map[string]bool{}
	for _, a := range agents {
		if seen[a] {
			return nil, fmt.Errorf("duplicate agent %q", a)
		}
		seen[a] = true
	}
	if seats < 1 || seats > len(agents) {
		return nil, fmt.Errorf("%w: %d agents cannot fill %d seats", ErrNoMatchups, len(agents), seats)
	}
	return &RoundRobin{tuples: Permutations(agents, seats)}, nil
}

// Permutations returns the ordered k-tuples of distinct items, with earlier
// items leading.
func Permutations(items []string, k int) [][]string {
	var out [][]string
	used := make([]bool, len(items))
	cur := make([]string, 0, k)
	var rec func()
	rec = func() {
		if len(cur) == k {
			out = append(out, append([]string(nil), cur...))
			return
		}
		for i, it := range items {
			if used[i] {
				continue
			}
			used[i] = true
			cur = append(cur, it)
			rec()
			cur = cur[:len(cur)-1]
			used[i] = false
		}
	}
	rec()
	return out
}

// Next returns the next seating.
func (r *RoundRobin) Next() []string {
	t := r.tuples[r.next]
	r.next++
	if r.next == len(r.tuples) {
		r.next = 0
		r.round++
	}
	return append([]string(nil), t...)
}

// Round counts completed passes over the permutation list.
func (r *RoundRobin) Round() int { return r.round }

func (r *RoundRobin) Len() int { return len(r.tuples) }
