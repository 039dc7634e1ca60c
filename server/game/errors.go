package game

import (
	"errors"
	"fmt"
)

var (
	ErrGameOver    = errors.New("game is already over")
	ErrUnknownGame = errors.New("unknown game")
)

// InvalidMoveError reports a move the state refused. The caller may retry
// the same seat.
type InvalidMoveError struct {
	Reason string
}

func (e *InvalidMoveError) Error() string { return "invalid move: " + e.Reason }

// Invalidf builds an *InvalidMoveError.
func Invalidf(format string, args ...any) error {
	return &InvalidMoveError{Reason: fmt.Sprintf(format, args...)}
}

// IsInvalidMove reports whether err (or anything it wraps) is an InvalidMoveError.
func IsInvalidMove(err error) bool {
	var im *InvalidMoveError
	return errors.As(err, &im)
}
