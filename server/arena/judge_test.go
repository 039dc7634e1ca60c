package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJudge(t *testing.T) {
	t.Run("highest wins", func(t *testing.T) {
		out := Judge([]Record{{Agent: "a", Score: 3}, {Agent: "b", Score: 1}}, Condition{})
		assert.Equal(t, map[string]Outcome{"a": Win, "b": Loss}, out)
	})

	t.Run("exhausted agent cannot win", func(t *testing.T) {
		out := Judge([]Record{
			{Agent: "a", Score: 10, Exhausted: true},
			{Agent: "b", Score: 1},
			{Agent: "c", Score: 0},
		}, Condition{})
		assert.Equal(t, map[string]Outcome{"a": Loss, "b": Win, "c": Loss}, out)
	})

	t.Run("tie for best draws", func(t *testing.T) {
		out := Judge([]Record{{Agent: "a", Score: 2}, {Agent: "b", Score: 2}, {Agent: "c", Score: 1}}, Condition{})
		assert.Equal(t, map[string]Outcome{"a": Draw, "b": Draw, "c": Loss}, out)

		out = Judge([]Record{{Agent: "a", Score: 2}, {Agent: "b", Score: 2}}, Condition{Draw: "loss"})
		assert.Equal(t, map[string]Outcome{"a": Loss, "b": Loss}, out)
	})

	t.Run("lowest wins", func(t *testing.T) {
		out := Judge([]Record{{Agent: "a", Score: 3}, {Agent: "b", Score: 1}}, Condition{Win: "lowest"})
		assert.Equal(t, map[string]Outcome{"a": Loss, "b": Win}, out)
	})

	t.Run("everyone exhausted", func(t *testing.T) {
		out := Judge([]Record{{Agent: "a", Exhausted: true}, {Agent: "b", Exhausted: true}}, Condition{})
		assert.Equal(t, map[string]Outcome{"a": Loss, "b": Loss}, out)
	})

	assert.Error(t, Condition{Win: "most"}.Validate())
}

func TestPairScore(t *testing.T) {
	assert.Equal(t, 1.0, pairScore(Win, Loss))
	assert.Equal(t, 0.0, pairScore(Loss, Draw))
	assert.Equal(t, 0.5, pairScore(Draw, Draw))
	// two losses rate as a draw
	assert.Equal(t, 0.5, pairScore(Loss, Loss))
}
