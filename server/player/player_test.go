package player

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-arena/server/game"
)

func TestExtractMove(t *testing.T) {
	cases := []struct{ in, want string }{
		{`{"move": "[Bid] 3 2"}`, "[Bid] 3 2"},
		{"```json\n{\"move\":\"Raise 40\"}\n```", "Raise 40"},
		{`{"action": "Fold"}`, "Fold"},
		{"Move: Call\nbecause pot odds", "Call"},
		{`"Rock"`, "Rock"},
		{"\n\n  Check  \n", "Check"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractMove(tc.in), "input %q", tc.in)
	}
}

func TestRandomPicksLegalMove(t *testing.T) {
	r := NewRandom(3)
	legal := []string{"Rock", "Paper", "Scissors"}
	for i := 0; i < 20; i++ {
		m, err := r.Act(context.Background(), game.Action{Inputs: map[string]any{"legal_moves": legal}})
		require.NoError(t, err)
		assert.Contains(t, legal, m.Value)
	}
	_, err := r.Act(context.Background(), game.Action{})
	assert.Error(t, err)
}

func TestScriptedReplaysThenFails(t *testing.T) {
	s := NewScripted("a", "b")
	m, err := s.Act(context.Background(), game.Action{})
	require.NoError(t, err)
	assert.Equal(t, "a", m.Value)
	m, err = s.Act(context.Background(), game.Action{})
	require.NoError(t, err)
	assert.Equal(t, "b", m.Value)
	_, err = s.Act(context.Background(), game.Action{})
	assert.ErrorIs(t, err, ErrScriptExhausted)
}

func TestFactory(t *testing.T) {
	f := &Factory{Log: zerolog.Nop()}

	p, err := f.New("rps", "", Agent{Name: "r", Adapter: AdapterRandom})
	require.NoError(t, err)
	assert.IsType(t, &Random{}, p)

	p, err = f.New("rps", AdapterScripted, Agent{Name: "s", Moves: []string{"Rock"}})
	require.NoError(t, err)
	assert.IsType(t, &Scripted{}, p)

	_, err = f.New("rps", "", Agent{Name: "m"})
	assert.Error(t, err, "llm adapter without a model")

	_, err = f.New("rps", "telepathy", Agent{Name: "x"})
	assert.ErrorIs(t, err, ErrUnknownAdapter)
}

func chatReply(content string) map[string]any {
	return map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 11, "completion_tokens": 3, "total_tokens": 14},
	}
}

func TestLLMAct(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		if assert.Len(t, body.Messages, 2) {
			assert.Contains(t, body.Messages[0].Content, "Liar's Dice")
			assert.Contains(t, body.Messages[1].Content, `"your_dice":[1,2]`)
		}

		if calls.Add(1) == 1 {
			http.Error(w, `{"error":{"message":"busy","type":"server_error"}}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatReply("```json\n{\"move\": \"[Bid] 3 2\"}\n```"))
	}))
	defer srv.Close()

	f := &Factory{LLM: LLMConfig{APIKey: "sk-test", BaseURL: srv.URL, MaxRetries: 1}, Log: zerolog.Nop()}
	p, err := f.New("liars_dice", "", Agent{Name: "m", Model: "test-model"})
	require.NoError(t, err)

	m, err := p.Act(context.Background(), game.Action{
		Name: "bid", PlayerKey: "player_0",
		Inputs: map[string]any{"your_dice": []int{1, 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "[Bid] 3 2", m.Value)
	tr, ok := m.Trace.(Trace)
	require.True(t, ok)
	assert.Equal(t, 2, tr.Requests)
	assert.Equal(t, 11, tr.PromptTokens)
	assert.EqualValues(t, 2, calls.Load())
}

func TestLLMGivesUpAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"nope","type":"invalid_request_error"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	f := &Factory{LLM: LLMConfig{APIKey: "k", BaseURL: srv.URL}, Log: zerolog.Nop()}
	p, err := f.New("rps", AdapterLLM, Agent{Name: "m", Model: "x"})
	require.NoError(t, err)
	_, err = p.Act(context.Background(), game.Action{Name: "pick"})
	assert.ErrorContains(t, err, "1 requests failed")
}
