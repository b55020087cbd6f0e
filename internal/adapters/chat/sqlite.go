// Package chat persists conversations for the chat UI, the HTTP API and the
// history command.
package chat

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

const (
	titleLimit        = 50
	firstMessageLimit = 200
)

// SQLiteStore implements core.ChatStore on SQLite.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB // Write connection
	readDB *sql.DB // Read-only connection
	mu     sync.RWMutex
	now    func() time.Time

	maxRetries    int
	baseRetryWait time.Duration
}

// Option configures the store.
type Option func(*SQLiteStore)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		dbPath:        dbPath,
		now:           time.Now,
		maxRetries:    5,
		baseRetryWait: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating chat directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening write database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	s.db = db

	readDB, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&mode=ro&_pragma=busy_timeout(1000)")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening read database: %w", err)
	}
	readDB.SetMaxOpenConns(10)
	readDB.SetMaxIdleConns(5)
	readDB.SetConnMaxLifetime(5 * time.Minute)
	s.readDB = readDB

	if err := s.migrate(); err != nil {
		_ = db.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.dbPath }

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS chat_schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM chat_schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("checking schema version: %w", err)
	}

	for i, migration := range []string{migrationV1} {
		version := i + 1
		if version <= current {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration transaction: %w", err)
		}
		for _, stmt := range splitStatements(migration) {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("executing migration v%d: %w", version, err)
			}
		}
		if _, err := tx.Exec(
			"INSERT INTO chat_schema_migrations (version, applied_at) VALUES (?, ?)",
			version, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration v%d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration v%d: %w", version, err)
		}
	}
	return nil
}

// splitStatements splits a script on ";" and drops comment-only lines.
func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			t := strings.TrimSpace(line)
			if t != "" && !strings.HasPrefix(t, "--") {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			out = append(out, strings.Join(lines, "\n"))
		}
	}
	return out
}

func (s *SQLiteStore) retryWrite(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !isBusy(err) {
			return err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.baseRetryWait * time.Duration(1<<attempt)):
		}
	}
	return fmt.Errorf("%s failed after %d retries: %w", operation, s.maxRetries, lastErr)
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}

// NewConversationID returns a fresh conversation identifier.
func NewConversationID() string {
	return "conv_" + uuid.NewString()
}

// SaveMessage appends a message. The conversation row is created on first
// use; its title comes from the first user message.
func (s *SQLiteStore) SaveMessage(ctx context.Context, userID, role, content, conversationID string) error {
	if conversationID == "" {
		return core.ErrValidation(core.CodeInvalidRequest, "conversation id is required")
	}
	if role == "" {
		return core.ErrValidation(core.CodeInvalidRequest, "message role is required")
	}

	ts := s.now().UTC().Format(time.RFC3339Nano)
	title, first := "", ""
	if role == "user" {
		title = truncate(content, titleLimit, "...")
		first = truncate(content, firstMessageLimit, "")
	}

	return s.retryWrite(ctx, "SaveMessage", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var owner string
		err = tx.QueryRowContext(ctx, "SELECT user_id FROM conversations WHERE id = ?", conversationID).Scan(&owner)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO conversations (id, user_id, title, first_message, message_count, created_at, updated_at)
				VALUES (?, ?, ?, ?, 1, ?, ?)
			`, conversationID, userID, title, first, ts, ts); err != nil {
				return err
			}
		case err != nil:
			return err
		case owner != userID:
			return core.ErrNotFound("conversation", conversationID)
		default:
			if _, err := tx.ExecContext(ctx, `
				UPDATE conversations SET
					updated_at = ?,
					message_count = message_count + 1,
					title = CASE WHEN title = '' THEN ? ELSE title END,
					first_message = CASE WHEN first_message = '' THEN ? ELSE first_message END
				WHERE id = ?
			`, ts, title, first, conversationID); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_messages (id, conversation_id, user_id, role, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), conversationID, userID, role, content, ts); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// LoadHistory returns a conversation's messages in insertion order. An
// unknown conversation yields an empty history.
func (s *SQLiteStore) LoadHistory(ctx context.Context, userID, conversationID string) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.readDB.QueryContext(ctx, `
		SELECT role, content FROM chat_messages
		WHERE user_id = ? AND conversation_id = ?
		ORDER BY seq ASC
	`, userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var out []core.Message
	for rows.Next() {
		var m core.Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListConversations returns the user's conversations, most recent first.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID string) ([]core.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.readDB.QueryContext(ctx, `
		SELECT id, title, first_message, message_count, created_at, updated_at
		FROM conversations
		WHERE user_id = ?
		ORDER BY updated_at DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var out []core.ConversationSummary
	for rows.Next() {
		c, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetConversation returns one conversation summary.
func (s *SQLiteStore) GetConversation(ctx context.Context, userID, conversationID string) (core.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.readDB.QueryRowContext(ctx, `
		SELECT id, title, first_message, message_count, created_at, updated_at
		FROM conversations
		WHERE user_id = ? AND id = ?
	`, userID, conversationID)
	c, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ConversationSummary{}, core.ErrNotFound("conversation", conversationID)
	}
	return c, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(r scanner) (core.ConversationSummary, error) {
	var c core.ConversationSummary
	var createdAt, updatedAt string
	if err := r.Scan(&c.ID, &c.Title, &c.FirstMessage, &c.MessageCount, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("scanning conversation: %w", err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return c, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	return s.retryWrite(ctx, "DeleteConversation", func() error {
		res, err := s.db.ExecContext(ctx,
			"DELETE FROM conversations WHERE user_id = ? AND id = ?", userID, conversationID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.ErrNotFound("conversation", conversationID)
		}
		return nil
	})
}

// Close closes both connections.
func (s *SQLiteStore) Close() error {
	var errs []error
	if s.readDB != nil {
		if err := s.readDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing read connection: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing write connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

func truncate(s string, n int, suffix string) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + suffix
}
