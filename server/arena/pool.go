package arena

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

const DefaultMaxConcurrentMatches = 4

// WDL is an agent's aggregate over a pool run.
type WDL struct {
	Wins   int `json:"wins"`
	Draws  int `json:"draws"`
	Losses int `json:"losses"`
}

// PoolManager plays many matches concurrently over every ordered seating of
// the roster, always dispatching the least-played seating next.
type PoolManager struct {
	cfg           Config
	maxConcurrent int
	tuples        [][]string

	mu   sync.Mutex
	freq map[string]int

	tallyMu sync.RWMutex
	tally   map[string]*WDL
}

func NewPoolManager(cfg Config, maxConcurrent int) (*PoolManager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seats, err := cfg.requiredSeats()
	if err != nil {
		return nil, err
	}
	rr, err := NewRoundRobin(cfg.names(), len(seats))
	if err != nil {
		return nil, err
	}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentMatches
	}
	p := &PoolManager{
		cfg:           cfg,
		maxConcurrent: maxConcurrent,
		tuples:        rr.tuples,
		freq:          make(map[string]int, rr.Len()),
		tally:         map[string]*WDL{},
	}
	for _, t := range p.tuples {
		p.freq[tupleKey(t)] = 0
	}
	for _, n := range cfg.names() {
		p.tally[n] = &WDL{}
	}
	return p, nil
}

func tupleKey(t []string) string { return strings.Join(t, " vs ") }

// GetNextMinMatch returns the first least-played seating in permutation
// order without claiming it.
func (p *PoolManager) GetNextMinMatch() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.argmin()...)
}

func (p *PoolManager) argmin() []string {
	var best []string
	bestN := 0
	for _, t := range p.tuples {
		if n := p.freq[tupleKey(t)]; best == nil || n < bestN {
			best, bestN = t, n
		}
	}
	return best
}

// claim picks the least-played seating and counts it before any worker
// starts, so concurrent dispatch never doubles up on one seating.
func (p *PoolManager) claim() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.argmin()
	p.freq[tupleKey(t)]++
	return append([]string(nil), t...)
}

// Frequencies returns how often each seating has been dispatched.
func (p *PoolManager) Frequencies() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int, len(p.freq))
	for k, v := range p.freq {
		out[k] = v
	}
	return out
}

// Standings is the tally so far.
func (p *PoolManager) Standings() any { return p.snapshot() }

func (p *PoolManager) snapshot() map[string]*WDL {
	p.tallyMu.RLock()
	defer p.tallyMu.RUnlock()
	out := make(map[string]*WDL, len(p.tally))
	for k, v := range p.tally {
		c := *v
		out[k] = &c
	}
	return out
}

// Run plays matches games with at most maxConcurrent in flight. The first
// failing match cancels the rest and its error is returned; wdl.json is
// written only when every match completed.
func (p *PoolManager) Run(ctx context.Context, matches int) (map[string]*WDL, error) {
	log := p.cfg.Logger
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrent)

	reports := make(chan MatchReport)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for rep := range reports {
			p.tallyMu.Lock()
			for agent, o := range rep.Outcomes {
				w := p.tally[agent]
				if w == nil {
					w = &WDL{}
					p.tally[agent] = w
				}
				switch o {
				case Win:
					w.Wins++
				case Draw:
					w.Draws++
				default:
					w.Losses++
				}
			}
			p.tallyMu.Unlock()
		}
	}()

	log.Info().Int("matches", matches).Int("seatings", len(p.tuples)).Int("workers", p.maxConcurrent).Msg("pool starting")
	for i := 0; i < matches; i++ {
		if gctx.Err() != nil {
			break
		}
		tuple := p.claim()
		n := i + 1
		g.Go(func() error {
			log.Debug().Int("match", n).Strs("agents", tuple).Msg("dispatch")
			rep, err := playMatch(gctx, &p.cfg, tuple)
			if err != nil {
				return fmt.Errorf("pool match %d (%s): %w", n, tupleKey(tuple), err)
			}
			select {
			case reports <- rep:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	err := g.Wait()
	close(reports)
	<-collected
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		log.Error().Err(err).Msg("pool aborted; wdl.json not written")
		return nil, err
	}

	out := p.snapshot()
	if err := writeJSON(filepath.Join(p.cfg.OutputDir, "wdl.json"), out); err != nil {
		return nil, err
	}
	log.Info().Interface("wdl", out).Msg("pool finished")
	return out, nil
}
