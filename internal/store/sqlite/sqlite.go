package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pollchat/pollchat/internal/store"
)

// SQLiteStore implements store.MessageStore for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and ensures the message schema exists.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single connection: serializes writes so rowid assignment and
	// LastInsertId always refer to the same insert.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// ensureSchema creates the message table if missing and retrofits the room
// column onto pre-room deployments. Safe to run against an initialized
// database any number of times.
func ensureSchema(db *sql.DB) error {
	// AUTOINCREMENT forbids rowid reuse, so IDs stay strictly increasing
	// even after a crash or restart.
	createTable := `
		CREATE TABLE IF NOT EXISTS chat_messages (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			author     TEXT NOT NULL,
			room       TEXT NOT NULL DEFAULT 'public',
			text       TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := db.Exec(createTable); err != nil {
		return fmt.Errorf("create chat_messages: %w", err)
	}

	hasRoom, err := columnExists(db, "chat_messages", "room")
	if err != nil {
		return err
	}
	if !hasRoom {
		alter := `ALTER TABLE chat_messages ADD COLUMN room TEXT NOT NULL DEFAULT 'public'`
		if _, err := db.Exec(alter); err != nil {
			return fmt.Errorf("add room column: %w", err)
		}
	}

	createIndex := `
		CREATE INDEX IF NOT EXISTS idx_chat_messages_room_id
		ON chat_messages (room, id)
	`
	if _, err := db.Exec(createIndex); err != nil {
		return fmt.Errorf("create room index: %w", err)
	}

	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notNull    int
			dfltValue  sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &primaryKey); err != nil {
			return false, fmt.Errorf("scan table info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}

	return false, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertMessage atomically appends a message and returns the stored row.
func (s *SQLiteStore) InsertMessage(ctx context.Context, author, room, text string) (*store.Message, error) {
	query := `
		INSERT INTO chat_messages (author, room, text)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, author, room, text)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.getMessageByID(ctx, id)
}

// getMessageByID retrieves a single message row, including the
// store-assigned creation time.
func (s *SQLiteStore) getMessageByID(ctx context.Context, id int64) (*store.Message, error) {
	query := `
		SELECT id, author, room, text, created_at
		FROM chat_messages
		WHERE id = ?
	`
	var msg store.Message
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.Author,
		&msg.Room,
		&msg.Text,
		&msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message not found: %w", err)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}

	return &msg, nil
}

// ListMessagesSince returns every message in room with ID greater than
// afterID, ascending by ID.
func (s *SQLiteStore) ListMessagesSince(ctx context.Context, room string, afterID int64) ([]*store.Message, error) {
	query := `
		SELECT id, author, room, text, created_at
		FROM chat_messages
		WHERE room = ? AND id > ?
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, room, afterID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.Author, &msg.Room, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

// Ensure SQLiteStore implements store.MessageStore
var _ store.MessageStore = (*SQLiteStore)(nil)
