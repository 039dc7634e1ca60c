// Package player builds the adapters that occupy game seats.
package player

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"agent-arena/server/game"
)

var ErrUnknownAdapter = errors.New("unknown player adapter")

const (
	AdapterLLM      = "llm"
	AdapterRandom   = "random"
	AdapterScripted = "scripted"
)

// Agent is one roster entry: a named decision maker and how to reach it.
type Agent struct {
	Name    string   `yaml:"name" json:"name"`
	Adapter string   `yaml:"adapter" json:"adapter,omitempty"`
	Model   string   `yaml:"model" json:"model,omitempty"`
	Seed    int64    `yaml:"seed" json:"seed,omitempty"`
	Moves   []string `yaml:"moves" json:"moves,omitempty"`
	Prompt  string   `yaml:"prompt" json:"prompt,omitempty"`
}

// Factory turns (game, adapter type, agent) into a fresh game.Player. A
// Factory is safe for concurrent use; the OpenAI client is shared.
type Factory struct {
	LLM     LLMConfig
	Prompts map[string]string
	Log     zerolog.Logger

	once   sync.Once
	client *openai.Client
}

func (f *Factory) chatClient() *openai.Client {
	f.once.Do(func() {
		cfg := openai.DefaultConfig(f.LLM.APIKey)
		if f.LLM.BaseURL != "" {
			cfg.BaseURL = strings.TrimRight(f.LLM.BaseURL, "/")
		}
		f.client = openai.NewClientWithConfig(cfg)
	})
	return f.client
}

// New returns a player for one seat. An empty adapterType falls back to the
// agent's own adapter, then to the LLM adapter.
func (f *Factory) New(gameName, adapterType string, a Agent) (game.Player, error) {
	kind := adapterType
	if kind == "" {
		kind = a.Adapter
	}
	if kind == "" {
		kind = AdapterLLM
	}
	switch kind {
	case AdapterLLM:
		if a.Model == "" {
			return nil, fmt.Errorf("agent %q: llm adapter needs a model", a.Name)
		}
		system := f.Prompts[gameName]
		if system == "" {
			system = DefaultPrompt(gameName)
		}
		if a.Prompt != "" {
			system += "\n\n" + a.Prompt
		}
		return &LLM{
			client: f.chatClient(),
			model:  a.Model,
			system: system,
			cfg:    f.LLM,
			seed:   a.Seed,
			log:    f.Log.With().Str("agent", a.Name).Str("model", a.Model).Logger(),
		}, nil
	case AdapterRandom:
		return NewRandom(a.Seed), nil
	case AdapterScripted:
		return NewScripted(a.Moves...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, kind)
	}
}
