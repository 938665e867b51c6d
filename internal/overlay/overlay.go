// Package overlay keeps the reconciliation side table: optional order
// attributes remembered across pulls so a remote round-trip that silently
// drops them does not blank them in the UI. The overlay is only ever a
// fallback source, never an authority.
package overlay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"example.com/tableside/config"
	"example.com/tableside/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Attrs are the optional attributes carried for one order id.
type Attrs struct {
	Waiter      string              `json:"waiter,omitempty"`
	Fulfillment *models.Fulfillment `json:"fulfillment,omitempty"`
}

// Empty reports whether there is nothing worth remembering.
func (a Attrs) Empty() bool {
	return a.Waiter == "" && a.Fulfillment.Empty()
}

// Overlay is the id→attributes side table. Remember is called by every local
// mutation or pull that observes non-empty optional attributes; Lookup feeds
// Patch after a pull.
type Overlay interface {
	Remember(ctx context.Context, id string, attrs Attrs)
	Lookup(ctx context.Context, id string) (Attrs, bool)
	Forget(ctx context.Context, id string)
}

// Patch fills absent optional fields of order from attrs. A present pulled
// value always wins; the overlay never overwrites.
func Patch(order *models.Order, attrs Attrs) {
	if order.Waiter == "" && attrs.Waiter != "" {
		order.Waiter = attrs.Waiter
	}
	if order.Fulfillment.Empty() && !attrs.Fulfillment.Empty() {
		order.Fulfillment = attrs.Fulfillment
	}
}

// RedisOverlay implements Overlay using Redis.
type RedisOverlay struct {
	client  *redis.Client
	enabled bool
	ttl     time.Duration
}

// NewRedisOverlay creates a Redis-backed overlay. When Redis is disabled or
// unreachable the caller falls back to NewMemoryOverlay.
func NewRedisOverlay(cfg config.RedisConfig) (*RedisOverlay, error) {
	if !cfg.Enabled {
		return &RedisOverlay{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return &RedisOverlay{
		client:  client,
		enabled: true,
		ttl:     7 * 24 * time.Hour,
	}, nil
}

func overlayKey(id string) string {
	return fmt.Sprintf("order_attrs:%s", id)
}

// Remember stores attrs for id. Empty attrs are not stored.
func (o *RedisOverlay) Remember(ctx context.Context, id string, attrs Attrs) {
	if !o.enabled || attrs.Empty() {
		return
	}

	data, err := json.Marshal(attrs)
	if err != nil {
		log.Warn().Err(err).Str("order_id", id).Msg("Failed to marshal overlay attributes")
		return
	}
	if err := o.client.Set(ctx, overlayKey(id), data, o.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("order_id", id).Msg("Failed to update overlay")
	}
}

// Lookup returns the remembered attrs for id.
func (o *RedisOverlay) Lookup(ctx context.Context, id string) (Attrs, bool) {
	if !o.enabled {
		return Attrs{}, false
	}

	data, err := o.client.Get(ctx, overlayKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("order_id", id).Msg("Failed to read overlay")
		}
		return Attrs{}, false
	}

	var attrs Attrs
	if err := json.Unmarshal(data, &attrs); err != nil {
		return Attrs{}, false
	}
	return attrs, true
}

// Forget removes the entry for id.
func (o *RedisOverlay) Forget(ctx context.Context, id string) {
	if !o.enabled {
		return
	}
	if err := o.client.Del(ctx, overlayKey(id)).Err(); err != nil {
		log.Warn().Err(err).Str("order_id", id).Msg("Failed to remove overlay entry")
	}
}

// Close closes the Redis connection.
func (o *RedisOverlay) Close() error {
	if !o.enabled || o.client == nil {
		return nil
	}
	return o.client.Close()
}

// MemoryOverlay is the in-process fallback used when Redis is unavailable.
type MemoryOverlay struct {
	mu    sync.RWMutex
	attrs map[string]Attrs
}

// NewMemoryOverlay creates an empty in-memory overlay.
func NewMemoryOverlay() *MemoryOverlay {
	return &MemoryOverlay{attrs: make(map[string]Attrs)}
}

// Remember stores attrs for id.
func (o *MemoryOverlay) Remember(_ context.Context, id string, attrs Attrs) {
	if attrs.Empty() {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attrs[id] = attrs
}

// Lookup returns the remembered attrs for id.
func (o *MemoryOverlay) Lookup(_ context.Context, id string) (Attrs, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	attrs, ok := o.attrs[id]
	return attrs, ok
}

// Forget removes the entry for id.
func (o *MemoryOverlay) Forget(_ context.Context, id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.attrs, id)
}
