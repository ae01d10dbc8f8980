// Package transcript persists finished sessions and their messages to a
// local sqlite database.
package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nkall/periscope/internal/controller"
	"github.com/nkall/periscope/internal/domain"
)

type Store struct {
	db   *sql.DB
	path string
}

// Verify Store implements controller.TranscriptStore
var _ controller.TranscriptStore = (*Store)(nil)

func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "periscope.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		cancel_phase TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
	CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(session_id, timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession upserts the session row and inserts its messages. Safe to
// call more than once for the same session; messages are keyed by id.
func (s *Store) SaveSession(ctx context.Context, sess *domain.Session, messages []domain.ChatMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, status, cancel_phase, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			cancel_phase = excluded.cancel_phase,
			ended_at = excluded.ended_at
	`, sess.ID, sess.Status, sess.Cancel, sess.StartedAt, sess.EndedAt)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	for _, msg := range messages {
		if msg.ID == "" {
			continue
		}
		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO messages (id, session_id, role, content, timestamp)
			VALUES (?, ?, ?, ?, ?)
		`, msg.ID, msg.SessionID, msg.Role, msg.Content, msg.Timestamp)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var sess domain.Session
	var endedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, status, cancel_phase, started_at, ended_at
		FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.Status, &sess.Cancel, &sess.StartedAt, &endedAt)
	if err != nil {
		return nil, err
	}

	if endedAt.Valid {
		sess.EndedAt = endedAt.Time
	}
	return &sess, nil
}

func (s *Store) ListSessions(ctx context.Context, limit int) ([]*domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, cancel_phase, started_at, ended_at
		FROM sessions ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		var sess domain.Session
		var endedAt sql.NullTime

		if err := rows.Scan(&sess.ID, &sess.Status, &sess.Cancel, &sess.StartedAt, &endedAt); err != nil {
			return nil, err
		}

		if endedAt.Valid {
			sess.EndedAt = endedAt.Time
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

func (s *Store) GetMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, timestamp
		FROM messages WHERE session_id = ? ORDER BY timestamp ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, id)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}
