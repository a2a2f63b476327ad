package chat

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pollchat/pollchat/internal/store"
)

// Log is the append-only message log. It owns validation and the
// retrieval/ordering contract; all synchronization for ID assignment is
// delegated to the store's atomic insert-returning-id guarantee, so Log
// itself holds no locks and instances are fully independent.
type Log struct {
	store store.MessageStore
	log   *zerolog.Logger
}

// NewLog constructs a message log over the given store.
func NewLog(st store.MessageStore, logger *zerolog.Logger) *Log {
	return &Log{
		store: st,
		log:   logger,
	}
}

// Append validates, persists, and returns the store-assigned ID of a new
// message. Validation failures return an invalid_argument error and touch
// nothing; store failures surface as store_unavailable.
func (l *Log) Append(ctx context.Context, author, text, room string) (int64, error) {
	author = strings.TrimSpace(author)
	text = strings.TrimSpace(text)

	if author == "" {
		return 0, invalidArgument("author must be a non-empty string")
	}
	if text == "" {
		return 0, invalidArgument("text must be a non-empty string")
	}

	normalized, ok := NormalizeRoom(room)
	if !ok {
		return 0, invalidArgument("room must be either 'public' or 'founders'")
	}

	msg, err := l.store.InsertMessage(ctx, author, normalized, text)
	if err != nil {
		return 0, storeUnavailable("failed to store message", err)
	}

	l.log.Debug().
		Int64("id", msg.ID).
		Str("room", msg.Room).
		Str("author", msg.Author).
		Msg("message stored")

	return msg.ID, nil
}

// PollSince returns every message in room with ID greater than cursor,
// ascending by ID. An empty slice with nil error means no new messages.
func (l *Log) PollSince(ctx context.Context, cursor int64, room string) ([]Message, error) {
	normalized, ok := NormalizeRoom(room)
	if !ok {
		return nil, invalidArgument("room must be either 'public' or 'founders'")
	}

	rows, err := l.store.ListMessagesSince(ctx, normalized, cursor)
	if err != nil {
		return nil, storeUnavailable("failed to fetch messages", err)
	}

	messages := make([]Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, Message{
			ID:        row.ID,
			Room:      row.Room,
			Author:    row.Author,
			Text:      row.Text,
			CreatedAt: row.CreatedAt,
		})
	}

	return messages, nil
}
