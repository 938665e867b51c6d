package services

import (
	"context"

	"example.com/tableside/internal/events"
	"example.com/tableside/internal/models"
	"example.com/tableside/internal/repos"

	"github.com/rs/zerolog/log"
)

// StatusWatcher observes order changes and fires automations when an order
// reaches READY or DELIVERED. Transitions are detected against the last
// status seen per order, so a repeated save in the same status fires
// nothing.
type StatusWatcher struct {
	orders     *repos.Orders
	engagement *EngagementService
	seen       map[string]models.OrderStatus
}

func NewStatusWatcher(orders *repos.Orders, engagement *EngagementService) *StatusWatcher {
	return &StatusWatcher{
		orders:     orders,
		engagement: engagement,
		seen:       make(map[string]models.OrderStatus),
	}
}

// Run blocks consuming order change events until the context is cancelled.
func (w *StatusWatcher) Run(ctx context.Context, bus *events.Bus) error {
	ch, cancel := bus.Subscribe(events.KindOrders)
	defer cancel()

	for _, o := range w.orders.GetAll() {
		w.seen[o.ID] = o.Status
	}

	log.Info().Msg("Starting order status watcher")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			w.sweep(ctx)
		}
	}
}

func (w *StatusWatcher) sweep(ctx context.Context) {
	current := make(map[string]models.OrderStatus)
	for _, o := range w.orders.GetAll() {
		current[o.ID] = o.Status

		prev, known := w.seen[o.ID]
		if known && prev == o.Status {
			continue
		}

		switch o.Status {
		case models.StatusReady:
			w.engagement.RunAutomations(ctx, TriggerOrderReady, o)
		case models.StatusDelivered:
			w.engagement.RunAutomations(ctx, TriggerOrderDelivered, o)
		}
	}
	w.seen = current
}
