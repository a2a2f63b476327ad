package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pollchat/pollchat/internal/store"
	"github.com/pollchat/pollchat/internal/store/sqlite"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := zerolog.Nop()
	return NewLog(st, &logger)
}

func TestAppendAndPollOrdering(t *testing.T) {
	chatLog := newTestLog(t)
	ctx := context.Background()

	id1, err := chatLog.Append(ctx, "alice", "hi", "public")
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if id1 != 1 {
		t.Errorf("expected first id 1, got %d", id1)
	}

	id2, err := chatLog.Append(ctx, "bob", "yo", "public")
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if id2 != 2 {
		t.Errorf("expected second id 2, got %d", id2)
	}

	msgs, err := chatLog.PollSince(ctx, 0, "public")
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != 1 || msgs[0].Author != "alice" || msgs[0].Text != "hi" {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].ID != 2 || msgs[1].Author != "bob" || msgs[1].Text != "yo" {
		t.Errorf("unexpected second message: %+v", msgs[1])
	}

	// Cursor past the first message returns only the second.
	msgs, err = chatLog.PollSince(ctx, 1, "public")
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != 2 {
		t.Fatalf("expected only message 2, got %+v", msgs)
	}

	// Cursor at the newest id returns nothing.
	msgs, err = chatLog.PollSince(ctx, 2, "public")
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages, got %+v", msgs)
	}
}

func TestRoomPartitionIsolation(t *testing.T) {
	chatLog := newTestLog(t)
	ctx := context.Background()

	if _, err := chatLog.Append(ctx, "alice", "for everyone", "public"); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if _, err := chatLog.Append(ctx, "alice", "founders only", "founders"); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	public, err := chatLog.PollSince(ctx, 0, "public")
	if err != nil {
		t.Fatalf("poll public failed: %v", err)
	}
	if len(public) != 1 || public[0].Text != "for everyone" {
		t.Errorf("unexpected public messages: %+v", public)
	}

	founders, err := chatLog.PollSince(ctx, 0, "founders")
	if err != nil {
		t.Fatalf("poll founders failed: %v", err)
	}
	if len(founders) != 1 || founders[0].Text != "founders only" {
		t.Errorf("unexpected founders messages: %+v", founders)
	}
}

func TestConcurrentAppendsDistinctIDs(t *testing.T) {
	chatLog := newTestLog(t)
	ctx := context.Background()

	const n = 20
	ids := make([]int64, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			room := "public"
			if i%2 == 1 {
				room = "founders"
			}
			id, err := chatLog.Append(ctx, "writer", "concurrent", room)
			if err != nil {
				t.Errorf("append %d failed: %v", i, err)
				return
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool, n)
	for i, id := range ids {
		if id == 0 {
			continue // append already reported its failure
		}
		if seen[id] {
			t.Errorf("id %d assigned twice (index %d)", id, i)
		}
		seen[id] = true
	}
}

func TestAppendValidation(t *testing.T) {
	tests := []struct {
		name   string
		author string
		text   string
		room   string
	}{
		{name: "empty author", author: "", text: "hello", room: "public"},
		{name: "blank author", author: "   ", text: "hello", room: "public"},
		{name: "empty text", author: "bob", text: "", room: "public"},
		{name: "blank text", author: "bob", text: "  \t ", room: "public"},
		{name: "unknown room", author: "bob", text: "hi", room: "secretroom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &recordingStore{}
			logger := zerolog.Nop()
			chatLog := NewLog(st, &logger)

			_, err := chatLog.Append(context.Background(), tt.author, tt.text, tt.room)
			if Kind(err) != KindInvalidArgument {
				t.Fatalf("expected invalid_argument, got %v", err)
			}
			if st.inserts != 0 {
				t.Errorf("validation failure reached the store (%d inserts)", st.inserts)
			}
		})
	}
}

func TestRoomNormalization(t *testing.T) {
	chatLog := newTestLog(t)
	ctx := context.Background()

	// Mixed case and padding normalize into the closed set.
	if _, err := chatLog.Append(ctx, "alice", "hi", "  FOUNDERS "); err != nil {
		t.Fatalf("append to ' FOUNDERS ' failed: %v", err)
	}
	msgs, err := chatLog.PollSince(ctx, 0, "Founders")
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Room != RoomFounders {
		t.Fatalf("expected one founders message, got %+v", msgs)
	}

	// Empty room defaults to public.
	if _, err := chatLog.Append(ctx, "alice", "hello", ""); err != nil {
		t.Fatalf("append with empty room failed: %v", err)
	}
	msgs, err = chatLog.PollSince(ctx, 0, "")
	if err != nil {
		t.Fatalf("poll with empty room failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Room != RoomPublic {
		t.Fatalf("expected one public message, got %+v", msgs)
	}
}

func TestStoreFailuresSurfaceAsStoreUnavailable(t *testing.T) {
	st := &failingStore{err: errors.New("connection refused")}
	logger := zerolog.Nop()
	chatLog := NewLog(st, &logger)
	ctx := context.Background()

	_, err := chatLog.Append(ctx, "alice", "hi", "public")
	if Kind(err) != KindStoreUnavailable {
		t.Errorf("expected store_unavailable from append, got %v", err)
	}
	if !errors.Is(err, st.err) {
		t.Errorf("expected wrapped store cause, got %v", err)
	}

	_, err = chatLog.PollSince(ctx, 0, "public")
	if Kind(err) != KindStoreUnavailable {
		t.Errorf("expected store_unavailable from poll, got %v", err)
	}
}

// recordingStore counts inserts so tests can prove validation fails closed.
type recordingStore struct {
	inserts int
}

func (r *recordingStore) InsertMessage(_ context.Context, author, room, text string) (*store.Message, error) {
	r.inserts++
	return &store.Message{ID: int64(r.inserts), Author: author, Room: room, Text: text}, nil
}

func (r *recordingStore) ListMessagesSince(context.Context, string, int64) ([]*store.Message, error) {
	return nil, nil
}

func (r *recordingStore) Close() error { return nil }

// failingStore fails every operation with a fixed error.
type failingStore struct {
	err error
}

func (f *failingStore) InsertMessage(context.Context, string, string, string) (*store.Message, error) {
	return nil, f.err
}

func (f *failingStore) ListMessagesSince(context.Context, string, int64) ([]*store.Message, error) {
	return nil, f.err
}

func (f *failingStore) Close() error { return nil }
