// Package events delivers ordered change batches from committed transactions
// to registered subscribers.
//
// Delivery is synchronous and runs in subscriber-registration order before
// the facade call that triggered the commit returns. A subscriber that panics
// is recovered and logged and delivery continues with the remaining
// subscribers; the policy is uniform for change batches and time
// notifications.
package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sanderboers48/orbat-mapper/internal/model/core"
)

// Subscriber receives scenario change notifications. Implementations must not
// assume they run on a separate goroutine: delivery happens on the caller's
// goroutine and must not block.
type Subscriber interface {
	// OnChangeBatch receives the ordered change events of one committed
	// transaction. Subscribers re-query the scenario for current values.
	OnChangeBatch(batch []core.Change)
	// OnTimeChanged signals that the scenario's current time moved without
	// any entity changing.
	OnTimeChanged(t int64)
}

// Bus fans change batches out to subscribers.
//
// Each emit delivers to a snapshot of the subscriber list taken before the
// first call, so subscriptions and removals made during delivery (by any
// subscriber, against any subscriber) take effect on the next batch only.
type Bus struct {
	log zerolog.Logger

	mu   sync.Mutex
	subs []Subscriber

	batches   metric.Int64Counter
	emitted   metric.Int64Counter
	recovered metric.Int64Counter
}

// NewBus creates a bus logging through the given logger. Metrics use the
// global OTel meter and are no-ops when no provider is configured.
func NewBus(log zerolog.Logger) *Bus {
	m := meter()
	batches, _ := m.Int64Counter("events.batches",
		metric.WithDescription("Change batches delivered"))
	emitted, _ := m.Int64Counter("events.changes",
		metric.WithDescription("Individual change events emitted"))
	recovered, _ := m.Int64Counter("events.subscriber_panics",
		metric.WithDescription("Subscriber panics recovered during delivery"))
	return &Bus{
		log:       log.With().Str("component", "events").Logger(),
		batches:   batches,
		emitted:   emitted,
		recovered: recovered,
	}
}

// Subscribe registers a subscriber. Registering the same subscriber twice is
// a no-op; registration order is delivery order.
func (b *Bus) Subscribe(sub Subscriber) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if s == sub {
			return
		}
	}
	b.subs = append(b.subs, sub)
}

// Unsubscribe removes a subscriber. Safe to call during delivery: the batch
// in flight was snapshotted at emit time, so removal takes effect on the next
// batch, never interrupting or shortening the current one.
func (b *Bus) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := make([]Subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		if s != sub {
			kept = append(kept, s)
		}
	}
	b.subs = kept
}

// EmitBatch delivers one ordered change batch to all subscribers. Empty
// batches are not delivered.
func (b *Bus) EmitBatch(batch []core.Change) {
	if len(batch) == 0 {
		return
	}
	b.batches.Add(context.Background(), 1)
	b.emitted.Add(context.Background(), int64(len(batch)))
	for _, sub := range b.snapshot() {
		b.deliver(sub, func(sub Subscriber) { sub.OnChangeBatch(batch) })
	}
}

// EmitTimeChanged notifies all subscribers that the current time moved.
func (b *Bus) EmitTimeChanged(t int64) {
	for _, sub := range b.snapshot() {
		b.deliver(sub, func(sub Subscriber) { sub.OnTimeChanged(t) })
	}
}

func (b *Bus) deliver(sub Subscriber, fn func(Subscriber)) {
	defer func() {
		if r := recover(); r != nil {
			b.recovered.Add(context.Background(), 1,
				metric.WithAttributes(attribute.String("reason", "panic")))
			b.log.Error().Interface("panic", r).Msg("subscriber panicked during delivery")
		}
	}()
	fn(sub)
}

func (b *Bus) snapshot() []Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Subscriber(nil), b.subs...)
}
