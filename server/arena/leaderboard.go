package arena

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"agent-arena/server/rating"
)

var leaderboardHeader = []string{"Model", "Elo", "Wins", "Draws", "Losses"}

// Standing is one leaderboard row.
type Standing struct {
	Model  string  `json:"model"`
	Elo    float64 `json:"elo"`
	Wins   int     `json:"wins"`
	Draws  int     `json:"draws"`
	Losses int     `json:"losses"`
}

func (s Standing) Games() int { return s.Wins + s.Draws + s.Losses }

// Leaderboard holds ratings and tallies. Reads may come from the status
// server while the tournament loop writes.
type Leaderboard struct {
	mu    sync.RWMutex
	start float64
	rows  map[string]*Standing
}

func NewLeaderboard(start float64) *Leaderboard {
	if start == 0 {
		start = rating.DefaultStart
	}
	return &Leaderboard{start: start, rows: map[string]*Standing{}}
}

// Ensure adds agents missing from the board at the starting rating.
func (l *Leaderboard) Ensure(names ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, n := range names {
		if _, ok := l.rows[n]; !ok {
			l.rows[n] = &Standing{Model: n, Elo: l.start}
		}
	}
}

// Restore replaces the board's rows, e.g. with ratings read back from a
// mirror.
func (l *Leaderboard) Restore(rows []Standing) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = make(map[string]*Standing, len(rows))
	for _, r := range rows {
		r := r // per-iteration copy; module targets go1.21 loop semantics
		l.rows[r.Model] = &r
	}
}

func (l *Leaderboard) Get(name string) (Standing, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.rows[name]
	if !ok {
		return Standing{}, false
	}
	return *s, true
}

// Record applies one finished two-agent match: Elo moves by the same amount
// in opposite directions and each side's tally grows. Two losses (both
// seats exhausted) rate as a draw so the update stays zero-sum.
func (l *Leaderboard) Record(a, b string, oa, ob Outcome, k float64) (da float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, n := range []string{a, b} {
		if _, ok := l.rows[n]; !ok {
			l.rows[n] = &Standing{Model: n, Elo: l.start}
		}
	}
	ra, rb := l.rows[a], l.rows[b]
	before := ra.Elo
	ra.Elo, rb.Elo = rating.UpdateElo(ra.Elo, rb.Elo, pairScore(oa, ob), k)
	tally(ra, oa)
	tally(rb, ob)
	return ra.Elo - before
}

func tally(s *Standing, o Outcome) {
	switch o {
	case Win:
		s.Wins++
	case Draw:
		s.Draws++
	default:
		s.Losses++
	}
}

// Rows returns the board sorted by Elo, best first.
func (l *Leaderboard) Rows() []Standing {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Standing, 0, len(l.rows))
	for _, s := range l.rows {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Elo != out[j].Elo {
			return out[i].Elo > out[j].Elo
		}
		return out[i].Model < out[j].Model
	})
	return out
}

// Standings lets the status server read the board.
func (l *Leaderboard) Standings() any { return l.Rows() }

// LoadLeaderboard reads a leaderboard CSV. A missing file yields an empty
// board at the starting rating.
func LoadLeaderboard(path string, start float64) (*Leaderboard, error) {
	l := NewLeaderboard(start)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(header) != len(leaderboardHeader) || header[0] != leaderboardHeader[0] {
		return nil, fmt.Errorf("%s: unexpected header %v", path, header)
	}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		s := Standing{Model: rec[0]}
		elo, err1 := strconv.ParseFloat(rec[1], 64)
		w, err2 := strconv.Atoi(rec[2])
		d, err3 := strconv.Atoi(rec[3])
		lo, err4 := strconv.Atoi(rec[4])
		if err := errors.Join(err1, err2, err3, err4); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		s.Elo, s.Wins, s.Draws, s.Losses = elo, w, d, lo
		l.rows[s.Model] = &s
	}
	return l, nil
}

func (l *Leaderboard) encode() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(leaderboardHeader); err != nil {
		return nil, err
	}
	for _, s := range l.Rows() {
		if err := w.Write([]string{
			s.Model,
			strconv.FormatFloat(s.Elo, 'f', -1, 64),
			strconv.Itoa(s.Wins),
			strconv.Itoa(s.Draws),
			strconv.Itoa(s.Losses),
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// Save overwrites path atomically.
func (l *Leaderboard) Save(path string) error {
	b, err := l.encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeFileAtomic(path, b)
}

// Snapshot writes {dir}/leaderboard_history/leaderboard_{ts}.csv.
func (l *Leaderboard) Snapshot(dir string, now time.Time) (string, error) {
	path := filepath.Join(dir, "leaderboard_history", fmt.Sprintf("leaderboard_%s.csv", now.UTC().Format("20060102T150405Z")))
	return path, l.Save(path)
}
