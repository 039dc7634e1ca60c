package game

import (
	"bytes"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Factory builds a fresh State from a game config map.
type Factory func(cfg map[string]any) (State, error)

// Entry registers one game under a name.
type Entry struct {
	Name        string
	Description string
	New         Factory
}

// Registry maps game names to constructors. It is built once at startup and
// never mutated afterwards, so it is safe to share across goroutines.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry fails on duplicate or incomplete entries.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.Name == "" || e.New == nil {
			return nil, fmt.Errorf("registry: incomplete entry %q", e.Name)
		}
		if _, dup := r.entries[e.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate game %q", e.Name)
		}
		r.entries[e.Name] = e
	}
	return r, nil
}

// New builds a fresh state for the named game.
func (r *Registry) New(name string, cfg map[string]any) (State, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, name)
	}
	st, err := e.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return st, nil
}

// Players builds a throwaway state to read the seat declarations.
func (r *Registry) Players(name string, cfg map[string]any) ([]PlayerDefinition, error) {
	st, err := r.New(name, cfg)
	if err != nil {
		return nil, err
	}
	return st.Players(), nil
}

func (r *Registry) Entry(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Names returns the registered games sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for n := range r.entries {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// DecodeConfig copies a loosely typed config map (as read from YAML) into a
// typed struct carrying yaml tags. Fields absent from raw keep their values,
// so callers pre-fill defaults. Unknown keys are rejected.
func DecodeConfig(raw map[string]any, out any) error {
	if len(raw) == 0 {
		return nil
	}
	b, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}
