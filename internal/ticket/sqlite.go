package ticket

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tooldesk-io/tooldesk/pkg/protocol"
)

// logTimeLayout is the fixed-width UTC format logged_at is stored in.
// Fixed width keeps lexicographic comparison equivalent to time order.
const logTimeLayout = "2006-01-02T15:04:05.000Z"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ticket store: open: %w", err)
	}

	// WAL for concurrent admin reads while chat turns write
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ticket store: wal: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tickets (
			id                TEXT PRIMARY KEY,
			schema_version    INTEGER NOT NULL DEFAULT 1,
			tool_name         TEXT NOT NULL,
			issue_description TEXT NOT NULL,
			business_impact   TEXT NOT NULL DEFAULT '',
			priority          TEXT NOT NULL DEFAULT 'Medium',
			channel           TEXT NOT NULL DEFAULT '',
			session_id        TEXT NOT NULL DEFAULT '',
			logged_at         TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		);

		CREATE INDEX IF NOT EXISTS idx_tickets_logged_at ON tickets(logged_at);
	`)
	if err != nil {
		return fmt.Errorf("ticket store: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, t *protocol.Ticket) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Priority == "" {
		t.Priority = protocol.DefaultPriority
	}

	// logged_at is left to the column default so the write timestamp is
	// store-assigned, reflecting commit order.
	var loggedAt string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tickets (id, schema_version, tool_name, issue_description, business_impact, priority, channel, session_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING logged_at
	`, t.ID, protocol.TicketSchemaVersion, t.ToolName, t.IssueDescription, t.BusinessImpact,
		t.Priority, t.Channel, t.SessionID).Scan(&loggedAt)
	if err != nil {
		return fmt.Errorf("ticket store: append: %w", err)
	}

	if ts, perr := time.Parse(logTimeLayout, loggedAt); perr == nil {
		t.Timestamp = &ts
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*protocol.Ticket, error) {
	query := `SELECT id, tool_name, issue_description, business_impact, priority, channel, session_id, logged_at
		FROM tickets ORDER BY logged_at DESC, id`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ticket store: list: %w", err)
	}
	defer rows.Close()

	var tickets []*protocol.Ticket
	for rows.Next() {
		var t protocol.Ticket
		var loggedAt sql.NullString
		if err := rows.Scan(&t.ID, &t.ToolName, &t.IssueDescription, &t.BusinessImpact,
			&t.Priority, &t.Channel, &t.SessionID, &loggedAt); err != nil {
			return nil, fmt.Errorf("ticket store: list scan: %w", err)
		}
		if loggedAt.Valid {
			if ts, perr := time.Parse(logTimeLayout, loggedAt.String); perr == nil {
				t.Timestamp = &ts
			}
		}
		tickets = append(tickets, &t)
	}
	return tickets, rows.Err()
}

func (s *SQLiteStore) CountSince(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE logged_at >= ?`,
		cutoff.UTC().Format(logTimeLayout)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ticket store: count since: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection (for tests).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}
