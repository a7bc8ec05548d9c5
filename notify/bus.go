// Package notify fans claim-completed events out to in-process subscribers.
package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bitfsorg/sharepool-go/pool"
)

// ErrClosed is returned when publishing to a closed Bus.
var ErrClosed = errors.New("notify: bus closed")

// Compile-time interface check.
var _ pool.Notifier = (*Bus)(nil)

// Bus delivers ClaimEvents to subscribers without ever blocking the claim
// path. A subscriber whose buffer is full misses the event; misses are
// counted in Dropped.
type Bus struct {
	mu      sync.RWMutex
	subs    map[uint64]chan pool.ClaimEvent
	nextID  uint64
	closed  bool
	dropped atomic.Uint64
	logger  *slog.Logger
}

// NewBus returns an empty bus. A nil logger discards output.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bus{
		subs:   make(map[uint64]chan pool.ClaimEvent),
		logger: logger,
	}
}

// Subscribe registers a subscriber with the given channel buffer. The
// returned function unsubscribes and closes the channel; it is safe to call
// more than once.
func (b *Bus) Subscribe(buffer int) (<-chan pool.ClaimEvent, func()) {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan pool.ClaimEvent, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// ClaimCompleted publishes ev to every subscriber that has room.
func (b *Bus) ClaimCompleted(_ context.Context, ev pool.ClaimEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
			b.logger.Warn("claim event dropped", "event", ev.ID, "pool", ev.Pool)
		}
	}
	return nil
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped for full buffers.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Close closes every subscriber channel. Later publishes return ErrClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
