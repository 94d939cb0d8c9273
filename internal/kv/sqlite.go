package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Zachkp/portfolio/internal/clock"
)

// SQLite is a Store on the site's kv table.
type SQLite struct {
	db    *sql.DB
	clock clock.Clock
}

func NewSQLite(db *sql.DB, opts ...Option) *SQLite {
	o := newOptions(opts)
	return &SQLite{db: db, clock: o.clock}
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, s.clock.Now().UTC())
	return err
}

func (s *SQLite) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("sweeping kv: %w", err)
	}
	return result.RowsAffected()
}
