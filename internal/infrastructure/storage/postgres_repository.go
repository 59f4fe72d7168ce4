package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"

	"CinemaScanner/internal/domain"
	"CinemaScanner/internal/ports"
	"CinemaScanner/internal/reconcile"
)

const masterTable = "master_movies"

const createMasterTable = `CREATE TABLE IF NOT EXISTS master_movies (
    normalized_key TEXT PRIMARY KEY,
    title          TEXT NOT NULL,
    poster         TEXT NOT NULL DEFAULT '',
    new_poster     TEXT NOT NULL DEFAULT '',
    genres         TEXT[] NOT NULL DEFAULT '{}',
    languages      TEXT[] NOT NULL DEFAULT '{}',
    rating         TEXT NOT NULL DEFAULT '',
    duration       TEXT NOT NULL DEFAULT '',
    event_date     TEXT NOT NULL DEFAULT '',
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository mirrors the master dataset into Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.MasterMirror = (*PostgresRepository)(nil)

// OpenPostgres opens a pgx-backed sql.DB and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the mirror table when absent.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, createMasterTable); err != nil {
		return fmt.Errorf("create %s: %w", masterTable, err)
	}
	return nil
}

// Upsert writes every record inside one transaction, keyed by normalized title.
func (r *PostgresRepository) Upsert(ctx context.Context, records []domain.MasterRecord) error {
	if r.db == nil || len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}

	for _, rec := range records {
		query, args, err := upsertQuery(rec)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("build upsert %q: %w", rec.Title, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert %q: %w", rec.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

func upsertQuery(rec domain.MasterRecord) (string, []any, error) {
	return psql.Insert(masterTable).
		Columns("normalized_key", "title", "poster", "new_poster", "genres", "languages", "rating", "duration", "event_date").
		Values(
			reconcile.Normalize(rec.Title),
			rec.Title,
			rec.Poster,
			rec.NewPoster,
			nonNil(rec.Genres),
			nonNil(rec.Languages),
			rec.Rating,
			rec.Duration,
			rec.EventDate,
		).
		Suffix(`ON CONFLICT (normalized_key) DO UPDATE
              SET title = EXCLUDED.title,
                  poster = EXCLUDED.poster,
                  new_poster = EXCLUDED.new_poster,
                  genres = EXCLUDED.genres,
                  languages = EXCLUDED.languages,
                  rating = EXCLUDED.rating,
                  duration = EXCLUDED.duration,
                  event_date = EXCLUDED.event_date,
                  updated_at = NOW()`).
		ToSql()
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
