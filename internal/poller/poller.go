package poller

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pollchat/pollchat/internal/chat"
)

// Fetcher retrieves messages newer than a cursor. *rpc.Client satisfies it.
type Fetcher interface {
	GetMessages(ctx context.Context, cursor int64, room string) ([]chat.Message, error)
}

// Handler receives each newly observed message, in ID order.
type Handler func(msg chat.Message)

// Poller periodically fetches new messages for one room and advances its
// cursor past everything it has handed to the handler. A failed poll logs a
// warning and waits for the next tick; the loop only stops when its context
// is cancelled.
type Poller struct {
	fetcher  Fetcher
	room     string
	interval time.Duration
	handler  Handler
	log      *zerolog.Logger

	cursor atomic.Int64
}

// New constructs a poller starting from cursor 0 (full room history on the
// first poll).
func New(fetcher Fetcher, room string, interval time.Duration, handler Handler, logger *zerolog.Logger) *Poller {
	return &Poller{
		fetcher:  fetcher,
		room:     room,
		interval: interval,
		handler:  handler,
		log:      logger,
	}
}

// Cursor returns the highest message ID seen so far.
func (p *Poller) Cursor() int64 {
	return p.cursor.Load()
}

// Run polls until ctx is cancelled. The first poll happens immediately,
// subsequent polls on the configured interval.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	messages, err := p.fetcher.GetMessages(ctx, p.cursor.Load(), p.room)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Keep polling even if the server is temporarily unreachable.
		p.log.Warn().Err(err).Str("room", p.room).Msg("poll failed, will retry")
		return
	}

	for _, msg := range messages {
		p.handler(msg)
		if msg.ID > p.cursor.Load() {
			p.cursor.Store(msg.ID)
		}
	}
}
