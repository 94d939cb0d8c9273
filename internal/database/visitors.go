package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// VisitorMetric is one page view, stored with a hashed IP.
type VisitorMetric struct {
	ID        int       `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// ContactMessage is a contact submission as stored by the SQLite sink.
type ContactMessage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

type AdminStats struct {
	TotalVisitors    int64            `json:"total_visitors"`
	UniqueVisitors   int64            `json:"unique_visitors"`
	VisitorsToday    int64            `json:"visitors_today"`
	VisitorsThisWeek int64            `json:"visitors_this_week"`
	TotalMessages    int64            `json:"total_messages"`
	RecentMessages   []ContactMessage `json:"recent_messages"`
	RecentVisitors   []VisitorMetric  `json:"recent_visitors"`
}

// Visitors reads and writes site metrics and the contact inbox.
type Visitors struct {
	db *sql.DB
}

func NewVisitors(db *sql.DB) *Visitors {
	return &Visitors{db: db}
}

// Record stores a page view. The caller hashes the IP.
func (v *Visitors) Record(ctx context.Context, hashedIP, userAgent, path string, at time.Time) error {
	_, err := v.db.ExecContext(ctx, `
		INSERT INTO visitors (hashed_ip, user_agent, path, timestamp)
		VALUES (?, ?, ?, ?)
	`, hashedIP, userAgent, path, at.UTC())
	if err != nil {
		return fmt.Errorf("recording visitor: %w", err)
	}
	return nil
}

// Cleanup removes visitor rows older than the cutoff and returns how
// many were deleted.
func (v *Visitors) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := v.db.ExecContext(ctx, `DELETE FROM visitors WHERE timestamp < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("cleaning up visitors: %w", err)
	}
	return result.RowsAffected()
}

// Stats gathers dashboard numbers relative to now.
func (v *Visitors) Stats(ctx context.Context, now time.Time) (*AdminStats, error) {
	stats := &AdminStats{}
	now = now.UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	counts := []struct {
		query string
		args  []any
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM visitors", nil, &stats.TotalVisitors},
		{"SELECT COUNT(DISTINCT hashed_ip) FROM visitors", nil, &stats.UniqueVisitors},
		{"SELECT COUNT(*) FROM visitors WHERE timestamp >= ?", []any{startOfDay}, &stats.VisitorsToday},
		{"SELECT COUNT(*) FROM visitors WHERE timestamp >= ?", []any{now.Add(-7 * 24 * time.Hour)}, &stats.VisitorsThisWeek},
		{"SELECT COUNT(*) FROM contacts", nil, &stats.TotalMessages},
	}
	for _, c := range counts {
		if err := v.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	var err error
	if stats.RecentMessages, err = v.Messages(ctx, 10); err != nil {
		return nil, err
	}
	if stats.RecentVisitors, err = v.Recent(ctx, 50); err != nil {
		return nil, err
	}
	return stats, nil
}

// Recent lists the newest page views.
func (v *Visitors) Recent(ctx context.Context, limit int) ([]VisitorMetric, error) {
	rows, err := v.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visitors []VisitorMetric
	for rows.Next() {
		var visitor VisitorMetric
		if err := rows.Scan(&visitor.ID, &visitor.HashedIP, &visitor.UserAgent, &visitor.Path, &visitor.Timestamp); err != nil {
			continue
		}
		visitors = append(visitors, visitor)
	}
	return visitors, rows.Err()
}

// Messages lists the newest contact messages.
func (v *Visitors) Messages(ctx context.Context, limit int) ([]ContactMessage, error) {
	rows, err := v.db.QueryContext(ctx, `
		SELECT id, name, email, message, COALESCE(user_agent, ''), created_at
		FROM contacts
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []ContactMessage
	for rows.Next() {
		var m ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Message, &m.UserAgent, &m.CreatedAt); err != nil {
			continue
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// DeleteMessage removes one contact message. It returns sql.ErrNoRows
// when the id does not exist.
func (v *Visitors) DeleteMessage(ctx context.Context, id int64) error {
	result, err := v.db.ExecContext(ctx, "DELETE FROM contacts WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
