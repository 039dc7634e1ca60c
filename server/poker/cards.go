package poker

import (
	"fmt"
	"math/rand"
	"strings"
)

// Card ranks run 2..14 (Ace=14); suits are one of "cdhs".
type Card struct {
	Rank int
	Suit byte
}

const rankChars = "  23456789TJQKA"

func (c Card) String() string {
	return fmt.Sprintf("%c%c", rankChars[c.Rank], c.Suit)
}

// ParseCard reads strings like "As", "Td", "9c".
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if len(s) != 2 {
		return Card{}, fmt.Errorf("bad card %q", s)
	}
	r := strings.IndexByte(rankChars, strings.ToUpper(s[:1])[0])
	if r < 2 {
		return Card{}, fmt.Errorf("bad rank in %q", s)
	}
	suit := strings.ToLower(s[1:])[0]
	if strings.IndexByte("cdhs", suit) < 0 {
		return Card{}, fmt.Errorf("bad suit in %q", s)
	}
	return Card{Rank: r, Suit: suit}, nil
}

func fullDeck() []Card {
	deck := make([]Card, 0, 52)
	for s := 0; s < 4; s++ {
		for rnk := 2; rnk <= 14; rnk++ {
			deck = append(deck, Card{Rank: rnk, Suit: "cdhs"[s]})
		}
	}
	return deck
}

// NewDeck returns a shuffled 52-card deck.
func NewDeck(r *rand.Rand) []Card {
	deck := fullDeck()
	for i := len(deck) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}

// StackedDeck puts top first and the rest of the deck after it in standard
// order. Used to replay fixed deals.
func StackedDeck(top []string) ([]Card, error) {
	seen := map[Card]bool{}
	deck := make([]Card, 0, 52)
	for _, s := range top {
		c, err := ParseCard(s)
		if err != nil {
			return nil, err
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate card %s", c)
		}
		seen[c] = true
		deck = append(deck, c)
	}
	for _, c := range fullDeck() {
		if !seen[c] {
			deck = append(deck, c)
		}
	}
	return deck, nil
}

func cardStrings(cs []Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}
