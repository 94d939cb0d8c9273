package docstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Zachkp/portfolio/internal/contact"
)

// SQLite stores submissions in the site database's contacts table,
// where the admin inbox reads them.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Create(ctx context.Context, collection string, doc contact.Document) error {
	if collection != contact.Collection {
		return fmt.Errorf("sqlite store has no collection %q", collection)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (name, email, message, user_agent, created_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, doc.Name, doc.Email, doc.Message, doc.UserAgent)
	if err != nil {
		return fmt.Errorf("inserting contact: %w", err)
	}
	return nil
}
