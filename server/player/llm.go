package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"agent-arena/server/game"
)

// LLMConfig holds the knobs shared by every LLM seat.
type LLMConfig struct {
	APIKey          string
	BaseURL         string
	MaxOutputTokens int
	// MaxRetries bounds transport-level retries of one Act call. Rejected
	// moves are retried by the turn loop, not here.
	MaxRetries int
	// Timeout applies per request; zero means no timeout.
	Timeout time.Duration
}

// LLM asks an OpenAI-compatible chat completion endpoint for a move.
type LLM struct {
	client *openai.Client
	model  string
	system string
	cfg    LLMConfig
	seed   int64
	log    zerolog.Logger
}

// Trace is what the LLM adapter attaches to every Move.
type Trace struct {
	Model            string `json:"model"`
	Raw              string `json:"raw"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	Requests         int    `json:"requests"`
}

func (l *LLM) Act(ctx context.Context, action game.Action) (game.Move, error) {
	user, err := userPrompt(action)
	if err != nil {
		return game.Move{}, err
	}
	req := openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: l.system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}
	if l.cfg.MaxOutputTokens > 0 {
		req.MaxTokens = l.cfg.MaxOutputTokens
	}
	if l.seed != 0 {
		seed := int(l.seed)
		req.Seed = &seed
	}

	attempts := l.cfg.MaxRetries + 1
	var lastErr error
	for i := 1; i <= attempts; i++ {
		rctx, cancel := ctx, context.CancelFunc(func() {})
		if l.cfg.Timeout > 0 {
			rctx, cancel = context.WithTimeout(ctx, l.cfg.Timeout)
		}
		resp, err := l.client.CreateChatCompletion(rctx, req)
		cancel()
		if err == nil && len(resp.Choices) == 0 {
			err = errors.New("response has no choices")
		}
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return game.Move{}, ctx.Err()
			}
			l.log.Warn().Err(err).Int("request", i).Msg("chat completion failed")
			if i < attempts {
				select {
				case <-time.After(time.Duration(i) * 500 * time.Millisecond):
				case <-ctx.Done():
					return game.Move{}, ctx.Err()
				}
			}
			continue
		}
		raw := resp.Choices[0].Message.Content
		l.log.Debug().Str("action", action.Name).Str("raw", truncate(raw, 200)).Msg("model replied")
		return game.Move{
			Value: ExtractMove(raw),
			Trace: Trace{
				Model:            l.model,
				Raw:              raw,
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				Requests:         i,
			},
		}, nil
	}
	return game.Move{}, fmt.Errorf("llm %s: %d requests failed: %w", l.model, attempts, lastErr)
}

func userPrompt(action game.Action) (string, error) {
	obs, err := json.Marshal(action.Inputs)
	if err != nil {
		return "", fmt.Errorf("encode observation: %w", err)
	}
	return fmt.Sprintf(`You are %s. Action requested: %q.
Observation JSON:
%s

Respond ONLY with a single compact JSON object: {"move": "<your move>"}
No prose. No markdown.`, action.PlayerKey, action.Name, obs), nil
}

// ExtractMove salvages a move string from model output: a JSON object with a
// "move" (or "action") key, possibly inside a code fence, else the first
// non-empty line with any "move:" prefix and quotes removed.
func ExtractMove(text string) string {
	if obj := extractJSONObject(text); obj != "" {
		var parsed map[string]any
		if json.Unmarshal([]byte(obj), &parsed) == nil {
			for _, k := range []string{"move", "action"} {
				switch v := parsed[k].(type) {
				case string:
					return strings.TrimSpace(v)
				case float64:
					return fmt.Sprint(v)
				}
			}
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "`"))
		if line == "" {
			continue
		}
		if i := strings.Index(line, ":"); i > 0 && strings.EqualFold(strings.TrimSpace(line[:i]), "move") {
			line = strings.TrimSpace(line[i+1:])
		}
		return strings.Trim(line, `"'`)
	}
	return ""
}

// extractJSONObject returns the outermost {...} block of s, ignoring code
// fences, or "" if there is none.
func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(s, "```")
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
