// Package config reads process settings from the environment (and .env) and
// the arena description from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"agent-arena/server/arena"
	"agent-arena/server/player"
	"agent-arena/server/rating"
)

// Env holds everything that comes from environment variables.
type Env struct {
	OutputDir            string
	MaxPlayerAttempts    int
	MaxRounds            int
	MaxConcurrentMatches int
	EloStart             float64
	EloK                 float64
	DatabaseURL          string
	MetricsAddr          string
	LogLevel             string
	LogJSON              bool
	LLM                  player.LLMConfig
}

// Load reads .env files (missing files are fine) and then the environment.
func Load(files ...string) Env {
	_ = godotenv.Load(files...)
	loadAPIKeyFromSecret()
	return FromEnv()
}

func FromEnv() Env {
	return Env{
		OutputDir:            getenv("ARENA_OUTPUT_DIR", "./arena_out"),
		MaxPlayerAttempts:    atoiDef(os.Getenv("MAX_PLAYER_ATTEMPTS"), arena.DefaultMaxPlayerAttempts),
		MaxRounds:            atoiDef(os.Getenv("MAX_ROUNDS"), arena.DefaultMaxRounds),
		MaxConcurrentMatches: atoiDef(os.Getenv("MAX_CONCURRENT_MATCHES"), arena.DefaultMaxConcurrentMatches),
		EloStart:             atofDef(os.Getenv("ELO_START"), rating.DefaultStart),
		EloK:                 atofDef(os.Getenv("ELO_K"), rating.DefaultK),
		DatabaseURL:          strings.TrimSpace(os.Getenv("DATABASE_URL")),
		MetricsAddr:          strings.TrimSpace(os.Getenv("METRICS_ADDR")),
		LogLevel:             getenv("LOG_LEVEL", "info"),
		LogJSON:              asBool(os.Getenv("LOG_JSON")),
		LLM: player.LLMConfig{
			APIKey:          strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			BaseURL:         strings.TrimSpace(os.Getenv("OPENAI_API_BASE")),
			MaxOutputTokens: atoiDef(os.Getenv("OPENAI_MAX_OUTPUT_TOKENS"), 0),
			MaxRetries:      atoiDef(os.Getenv("OPENAI_MAX_RETRIES"), 2),
			Timeout:         time.Duration(atoiDef(os.Getenv("OPENAI_TIMEOUT_SECONDS"), 0)) * time.Second,
		},
	}
}

// loadAPIKeyFromSecret fills OPENAI_API_KEY from OPENAI_API_KEY_FILE or a
// mounted secret when it is not set directly.
func loadAPIKeyFromSecret() {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return
	}
	var candidates []string
	if p := strings.TrimSpace(os.Getenv("OPENAI_API_KEY_FILE")); p != "" {
		candidates = append(candidates, p)
	}
	candidates = append(candidates, "./secrets/openai_api_key.txt", "/run/secrets/openai_api_key")
	for _, path := range candidates {
		if b, err := os.ReadFile(path); err == nil {
			if key := strings.TrimSpace(string(b)); key != "" {
				os.Setenv("OPENAI_API_KEY", key)
				return
			}
		}
	}
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

func atofDef(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return f
}

func asBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// Arena is the YAML arena file.
//
//	game: liars_dice
//	game_config: {num_players: 2, dice_per_player: 5}
//	matches: 20
//	condition: {win: highest, draw: tie}
//	agents:
//	  - {name: gpt-4o-mini, adapter: llm, model: gpt-4o-mini}
//	  - {name: coin, adapter: random, seed: 7}
type Arena struct {
	Game              string            `yaml:"game"`
	GameConfig        map[string]any    `yaml:"game_config"`
	Agents            []player.Agent    `yaml:"agents"`
	Matches           int               `yaml:"matches"`
	Condition         arena.Condition   `yaml:"condition"`
	MaxRounds         int               `yaml:"max_rounds"`
	MaxPlayerAttempts int               `yaml:"max_player_attempts"`
	MaxConcurrent     int               `yaml:"max_concurrent_matches"`
	Prompts           map[string]string `yaml:"prompts"`
}

var ErrNoAgents = errors.New("arena file lists no agents")

func LoadArena(path string) (*Arena, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := ParseArena(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

func ParseArena(b []byte) (*Arena, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var a Arena
	if err := dec.Decode(&a); err != nil {
		return nil, err
	}
	if a.Game == "" {
		return nil, errors.New("arena file has no game")
	}
	if len(a.Agents) == 0 {
		return nil, ErrNoAgents
	}
	seen := map[string]bool{}
	for i, ag := range a.Agents {
		if strings.TrimSpace(ag.Name) == "" {
			return nil, fmt.Errorf("agent %d has no name", i)
		}
		if seen[ag.Name] {
			return nil, fmt.Errorf("duplicate agent %q", ag.Name)
		}
		seen[ag.Name] = true
	}
	if err := a.Condition.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Apply fills run limits the arena file leaves unset from env.
func (a *Arena) Apply(env Env) {
	if a.MaxRounds <= 0 {
		a.MaxRounds = env.MaxRounds
	}
	if a.MaxPlayerAttempts <= 0 {
		a.MaxPlayerAttempts = env.MaxPlayerAttempts
	}
	if a.MaxConcurrent <= 0 {
		a.MaxConcurrent = env.MaxConcurrentMatches
	}
}
