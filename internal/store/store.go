package store

import (
	"context"
	"time"
)

// Message is a persisted chat message row. Rows are append-only: once
// inserted they are never updated or deleted.
type Message struct {
	ID        int64
	Author    string
	Room      string
	Text      string
	CreatedAt time.Time
}

// MessageStore handles message persistence.
//
// Implementations must assign IDs themselves, strictly increasing with no
// reuse across process restarts, and must guarantee that a row becomes
// visible to readers only with its final ID.
type MessageStore interface {
	// InsertMessage atomically appends a message and returns the stored row
	// with its assigned ID and creation time.
	InsertMessage(ctx context.Context, author, room, text string) (*Message, error)

	// ListMessagesSince returns every message in room with ID greater than
	// afterID, ordered ascending by ID. An empty result is not an error.
	ListMessagesSince(ctx context.Context, room string, afterID int64) ([]*Message, error)

	// Close closes the underlying database connection.
	Close() error
}
