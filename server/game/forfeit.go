package game

import (
	"fmt"
	"strings"
)

// ForfeitPolicy says what happens to a seat that exhausted its move attempts.
type ForfeitPolicy string

const (
	// ForfeitLoss ends the game with the seat losing.
	ForfeitLoss ForfeitPolicy = "loss"
	// ForfeitHold leaves the state unchanged; the turn loop moves on.
	ForfeitHold ForfeitPolicy = "hold"
	// ForfeitDefault makes the game play a safe move on the seat's behalf.
	ForfeitDefault ForfeitPolicy = "default"
)

// ParseForfeitPolicy returns def for an empty string.
func ParseForfeitPolicy(s string, def ForfeitPolicy) (ForfeitPolicy, error) {
	switch p := ForfeitPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return def, nil
	case ForfeitLoss, ForfeitHold, ForfeitDefault:
		return p, nil
	default:
		return "", fmt.Errorf("unknown forfeit policy %q", s)
	}
}
