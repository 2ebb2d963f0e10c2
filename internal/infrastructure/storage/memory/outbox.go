package memory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"retailpos/internal/domain/events"
)

// Outbox implements events.Publisher in memory. Like the SQL outbox it
// accepts events only inside a transaction and drops them on rollback.
type Outbox struct {
	mu      sync.Mutex
	seq     int64
	entries []outboxEntry
}

type outboxEntry struct {
	seq   int64
	event events.DomainEvent
}

var _ events.Publisher = (*Outbox)(nil)

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{}
}

// Publish implements events.Publisher.
func (o *Outbox) Publish(ctx context.Context, event events.DomainEvent) error {
	if !InTx(ctx) {
		return errors.New("outbox publish requires transaction context")
	}

	o.mu.Lock()
	o.seq++
	seq := o.seq
	o.entries = append(o.entries, outboxEntry{seq: seq, event: event})
	o.mu.Unlock()

	onRollback(ctx, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.entries = slices.DeleteFunc(o.entries, func(e outboxEntry) bool { return e.seq == seq })
	})
	return nil
}

// Events returns a copy of the published events.
func (o *Outbox) Events() []events.DomainEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]events.DomainEvent, len(o.entries))
	for i, e := range o.entries {
		out[i] = e.event
	}
	return out
}

// Drain returns and removes the published events. The worker uses it as the relay.
func (o *Outbox) Drain(limit int) []events.DomainEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := len(o.entries)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]events.DomainEvent, n)
	for i, e := range o.entries[:n] {
		out[i] = e.event
	}
	o.entries = slices.Delete(o.entries, 0, n)
	return out
}
