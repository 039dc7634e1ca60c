package arena

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"agent-arena/server/game"
)

// TurnEntry is one line of turns.jsonl: a single turn of the loop, whether
// the seat's move was accepted or the seat forfeited.
type TurnEntry struct {
	Turn       int          `json:"turn"`
	Time       time.Time    `json:"time"`
	PlayerKey  string       `json:"player_key"`
	Agent      string       `json:"agent,omitempty"`
	Action     string       `json:"action"`
	Move       string       `json:"move"`
	Trace      any          `json:"trace,omitempty"`
	ElapsedMS  float64      `json:"elapsed_ms"`
	UpdateMS   float64      `json:"update_ms"`
	Attempts   int          `json:"attempts"`
	Errors     []string     `json:"errors,omitempty"`
	Accepted   bool         `json:"accepted"`
	Forfeit    string       `json:"forfeit,omitempty"`
	NextAction *game.Action `json:"next_action,omitempty"`
}

// TurnLog is append-only.
type TurnLog interface {
	Append(TurnEntry) error
	Close() error
}

// JSONLTurnLog writes one JSON object per line.
type JSONLTurnLog struct {
	f   *os.File
	enc *json.Encoder
}

func OpenJSONLTurnLog(path string) (*JSONLTurnLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open turn log: %w", err)
	}
	return &JSONLTurnLog{f: f, enc: json.NewEncoder(f)}, nil
}

func (l *JSONLTurnLog) Append(e TurnEntry) error {
	if err := l.enc.Encode(e); err != nil {
		return fmt.Errorf("append turn %d: %w", e.Turn, err)
	}
	return nil
}

func (l *JSONLTurnLog) Close() error { return l.f.Close() }

// MemoryTurnLog keeps entries in memory.
type MemoryTurnLog struct {
	mu      sync.Mutex
	entries []TurnEntry
}

func (l *MemoryTurnLog) Append(e TurnEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

func (l *MemoryTurnLog) Close() error { return nil }

func (l *MemoryTurnLog) Entries() []TurnEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]TurnEntry(nil), l.entries...)
}

// ReadTurnLog loads a turns.jsonl file.
func ReadTurnLog(path string) ([]TurnEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []TurnEntry
	dec := json.NewDecoder(f)
	for dec.More() {
		var e TurnEntry
		if err := dec.Decode(&e); err != nil {
			return out, fmt.Errorf("%s: entry %d: %w", path, len(out), err)
		}
		out = append(out, e)
	}
	return out, nil
}
