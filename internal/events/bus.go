package events

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Kind identifies one independently synchronized entity kind.
type Kind string

const (
	KindOrders       Kind = "orders"
	KindMenuItems    Kind = "menu_items"
	KindSettings     Kind = "settings"
	KindReservations Kind = "reservations"
	KindCustomers    Kind = "customers"
	KindPromotions   Kind = "promotions"
	KindAutomations  Kind = "automations"
	KindSocialPosts  Kind = "social_posts"
)

// Kinds lists every entity kind in sync order.
func Kinds() []Kind {
	return []Kind{
		KindOrders, KindMenuItems, KindSettings, KindReservations,
		KindCustomers, KindPromotions, KindAutomations, KindSocialPosts,
	}
}

// ChangeEvent is published on every save of an entity kind's local cache,
// whether the save came from a local mutation or a remote pull. Subscribers
// must be idempotent re-renderers: one event is emitted per save regardless
// of whether the content changed.
type ChangeEvent struct {
	Kind Kind
}

// PressureEvent signals that the local store exceeded its capacity and the
// write could not be recovered.
type PressureEvent struct {
	Key string
}

// Bus is an in-process typed publish/subscribe registry keyed by entity
// kind. Publishing never blocks: a subscriber whose channel is full simply
// misses that notification, which is safe because events carry no payload
// beyond the kind.
type Bus struct {
	mu       sync.RWMutex
	subs     map[Kind][]chan ChangeEvent
	pressure []chan PressureEvent
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Kind][]chan ChangeEvent)}
}

// Subscribe registers for change events of one entity kind. The returned
// cancel func releases the subscription and closes the channel.
func (b *Bus) Subscribe(kind Kind) (<-chan ChangeEvent, func()) {
	ch := make(chan ChangeEvent, 16)

	b.mu.Lock()
	b.subs[kind] = append(b.subs[kind], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		chans := b.subs[kind]
		for i, c := range chans {
			if c == ch {
				b.subs[kind] = append(chans[:i], chans[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// Publish notifies all subscribers of the given kind.
func (b *Bus) Publish(kind Kind) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[kind] {
		select {
		case ch <- ChangeEvent{Kind: kind}:
		default:
			log.Debug().Str("kind", string(kind)).Msg("Dropping change event for slow subscriber")
		}
	}
}

// SubscribePressure registers for store-pressure signals.
func (b *Bus) SubscribePressure() (<-chan PressureEvent, func()) {
	ch := make(chan PressureEvent, 4)

	b.mu.Lock()
	b.pressure = append(b.pressure, ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, c := range b.pressure {
			if c == ch {
				b.pressure = append(b.pressure[:i], b.pressure[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// PublishPressure signals an unrecovered capacity failure on a store key.
func (b *Bus) PublishPressure(key string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.pressure {
		select {
		case ch <- PressureEvent{Key: key}:
		default:
		}
	}
}
