package poker

import (
	"math"
	"sort"

	ph "github.com/paulhankin/poker"
)

// Hand categories, weakest to strongest.
const (
	HighCard = iota
	OnePair
	TwoPair
	Trips
	Straight
	Flush
	FullHouse
	Quads
	StraightFlush
)

var categoryNames = [...]string{
	"high card", "one pair", "two pair", "three of a kind", "straight",
	"flush", "full house", "four of a kind", "straight flush",
}

// HandValue is a hand's strength. Score comes from the paulhankin/poker
// lookup tables (higher is better) and decides showdowns; Category and
// Tiebreak describe the same best five cards as a category 0-8 and the
// ranks that break ties within it.
type HandValue struct {
	Score    int16 `json:"score"`
	Category int   `json:"category"`
	Tiebreak []int `json:"tiebreak"`
}

func (v HandValue) Name() string { return categoryNames[v.Category] }

// Compare returns 1 if a beats b, -1 if b beats a, 0 for a split.
func Compare(a, b HandValue) int {
	switch {
	case a.Score > b.Score:
		return 1
	case a.Score < b.Score:
		return -1
	}
	return 0
}

// compareTuple orders by category, then tie-break ranks lexicographically.
func compareTuple(a, b HandValue) int {
	if a.Category != b.Category {
		if a.Category > b.Category {
			return 1
		}
		return -1
	}
	for i := 0; i < len(a.Tiebreak) && i < len(b.Tiebreak); i++ {
		if a.Tiebreak[i] != b.Tiebreak[i] {
			if a.Tiebreak[i] > b.Tiebreak[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// Evaluate returns the best five-card value among cards (5 to 7 of them).
func Evaluate(cards []Card) HandValue {
	v := describe5(cards)
	v.Score = libScore(cards)
	return v
}

// describe5 finds the category and tie-break of the best five cards.
func describe5(cards []Card) HandValue {
	n := len(cards)
	if n <= 5 {
		return eval5(cards)
	}
	var best HandValue
	first := true
	idx := [5]int{}
	five := make([]Card, 5)
	var rec func(start, k int)
	rec = func(start, k int) {
		if k == 5 {
			for i := 0; i < 5; i++ {
				five[i] = cards[idx[i]]
			}
			v := eval5(five)
			if first || compareTuple(v, best) > 0 {
				best, first = v, false
			}
			return
		}
		for i := start; i <= n-(5-k); i++ {
			idx[k] = i
			rec(i+1, k+1)
		}
	}
	rec(0, 0)
	return best
}

// libScore ranks cards with the library evaluators. Six cards take the best
// five-card subset.
func libScore(cards []Card) int16 {
	pcs := make([]ph.Card, len(cards))
	for i, c := range cards {
		pcs[i] = toPH(c)
	}
	switch len(pcs) {
	case 7:
		var a7 [7]ph.Card
		copy(a7[:], pcs)
		return ph.Eval7(&a7)
	case 5:
		var a5 [5]ph.Card
		copy(a5[:], pcs)
		return ph.Eval5(&a5)
	case 6:
		best := int16(math.MinInt16)
		var a5 [5]ph.Card
		for skip := range pcs {
			k := 0
			for i, c := range pcs {
				if i != skip {
					a5[k] = c
					k++
				}
			}
			best = max(best, ph.Eval5(&a5))
		}
		return best
	}
	return 0
}

func eval5(cards []Card) HandValue {
	counts := map[int]int{}
	flush := len(cards) == 5
	for i, c := range cards {
		counts[c.Rank]++
		if i > 0 && c.Suit != cards[0].Suit {
			flush = false
		}
	}

	// ranks grouped by multiplicity, then by rank, both descending
	groups := make([]int, 0, len(counts))
	for r := range counts {
		groups = append(groups, r)
	}
	sort.Slice(groups, func(i, j int) bool {
		ci, cj := counts[groups[i]], counts[groups[j]]
		if ci != cj {
			return ci > cj
		}
		return groups[i] > groups[j]
	})

	high, straight := straightHigh(groups, len(cards))
	switch {
	case straight && flush:
		return HandValue{Category: StraightFlush, Tiebreak: []int{high}}
	case counts[groups[0]] == 4:
		return HandValue{Category: Quads, Tiebreak: groups}
	case counts[groups[0]] == 3 && len(groups) > 1 && counts[groups[1]] >= 2:
		return HandValue{Category: FullHouse, Tiebreak: groups[:2]}
	case flush:
		return HandValue{Category: Flush, Tiebreak: groups}
	case straight:
		return HandValue{Category: Straight, Tiebreak: []int{high}}
	case counts[groups[0]] == 3:
		return HandValue{Category: Trips, Tiebreak: groups}
	case counts[groups[0]] == 2 && len(groups) > 1 && counts[groups[1]] == 2:
		return HandValue{Category: TwoPair, Tiebreak: groups}
	case counts[groups[0]] == 2:
		return HandValue{Category: OnePair, Tiebreak: groups}
	default:
		return HandValue{Category: HighCard, Tiebreak: groups}
	}
}

// straightHigh expects distinct ranks sorted descending.
func straightHigh(distinct []int, n int) (int, bool) {
	if n != 5 || len(distinct) != 5 {
		return 0, false
	}
	if distinct[0]-distinct[4] == 4 {
		return distinct[0], true
	}
	// wheel: A-5-4-3-2 plays as a five-high straight
	if distinct[0] == 14 && distinct[1] == 5 && distinct[4] == 2 {
		return 5, true
	}
	return 0, false
}

func toPH(c Card) ph.Card {
	var s ph.Suit
	switch c.Suit {
	case 'd':
		s = ph.Diamond
	case 'h':
		s = ph.Heart
	case 's':
		s = ph.Spade
	default:
		s = ph.Club
	}
	// library ranks are 1..13 with Ace=1
	r := ph.Rank(c.Rank)
	if c.Rank == 14 {
		r = ph.Rank(1)
	}
	card, _ := ph.MakeCard(s, r)
	return card
}

// Describe names the best hand in cards, e.g. "full house, kings over twos".
// It falls back to the category name if the description library rejects the
// card count.
func Describe(cards []Card) string {
	pcs := make([]ph.Card, len(cards))
	for i, c := range cards {
		pcs[i] = toPH(c)
	}
	if d, err := ph.Describe(pcs); err == nil {
		return d
	}
	return describe5(cards).Name()
}
