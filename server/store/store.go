package store

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agent-arena/server/arena"
)

//go:embed schema.sql
var schema embed.FS

// DB mirrors the leaderboard and finished matches into PostgreSQL. It
// satisfies arena.Mirror.
type DB struct{ *pgxpool.Pool }

func Open(ctx context.Context, dsn string) (*DB, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{p}, nil
}

func (db *DB) Close() { db.Pool.Close() }

func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// upsertAgent returns the agent's id, creating the row on first sight.
func upsertAgent(ctx context.Context, q querier, name string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
        INSERT INTO agents(name) VALUES ($1)
        ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
        RETURNING id
    `, name).Scan(&id)
	return id, err
}

// SaveRatings overwrites the stored ratings with rows in one transaction.
func (db *DB) SaveRatings(ctx context.Context, rows []arena.Standing) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, r := range rows {
		id, err := upsertAgent(ctx, tx, r.Model)
		if err != nil {
			return fmt.Errorf("agent %s: %w", r.Model, err)
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO agent_ratings(agent_id, elo, wins, draws, losses)
            VALUES ($1,$2,$3,$4,$5)
            ON CONFLICT (agent_id) DO UPDATE
              SET elo = EXCLUDED.elo,
                  wins = EXCLUDED.wins,
                  draws = EXCLUDED.draws,
                  losses = EXCLUDED.losses,
                  updated_at = now()
        `, id, r.Elo, r.Wins, r.Draws, r.Losses); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// InsertMatch stores a finished match and one participant row per seat.
// Inserting the same match id twice is a no-op.
func (db *DB) InsertMatch(ctx context.Context, rep arena.MatchReport) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
        INSERT INTO matches(id, game, rounds, over, dir, started_at, ended_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (id) DO NOTHING
    `, rep.ID, rep.Game, rep.Rounds, rep.Over, rep.Dir, rep.StartedAt, rep.EndedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil
	}
	for _, r := range rep.Records {
		id, err := upsertAgent(ctx, tx, r.Agent)
		if err != nil {
			return fmt.Errorf("agent %s: %w", r.Agent, err)
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO match_participants(match_id, seat, agent_id, score, outcome, attempts_used, exhausted)
            VALUES ($1,$2,$3,$4,$5,$6,$7)
        `, rep.ID, r.Role, id, r.Score, string(r.Outcome), r.AttemptsUsed, r.Exhausted); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// LoadRatings returns the stored leaderboard, best first.
func (db *DB) LoadRatings(ctx context.Context) ([]arena.Standing, error) {
	rows, err := db.Query(ctx, `
        SELECT a.name, r.elo, r.wins, r.draws, r.losses
          FROM agent_ratings r
          JOIN agents a ON a.id = r.agent_id
         ORDER BY r.elo DESC, a.name
    `)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (arena.Standing, error) {
		var s arena.Standing
		err := row.Scan(&s.Model, &s.Elo, &s.Wins, &s.Draws, &s.Losses)
		return s, err
	})
}

// MatchCount is used by the migrate command to report what is stored.
func (db *DB) MatchCount(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRow(ctx, `SELECT count(*)::int FROM matches`).Scan(&n)
	return n, err
}
