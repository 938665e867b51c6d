package services

import (
	"context"
	"path/filepath"
	"testing"

	"example.com/tableside/internal/events"
	"example.com/tableside/internal/identity"
	"example.com/tableside/internal/models"
	"example.com/tableside/internal/overlay"
	"example.com/tableside/internal/remote"
	"example.com/tableside/internal/repos"
	"example.com/tableside/internal/store"

	"github.com/stretchr/testify/require"
)

func TestStatusWatcherFiresOnTransitionOnly(t *testing.T) {
	bus := events.NewBus()
	st, err := store.Open(filepath.Join(t.TempDir(), "store.db"), 0, bus)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	rc := remote.Unavailable()
	ids := identity.NewManager(st, rc, "tenant-1")
	orders := repos.NewOrders(st, bus, ids, rc, overlay.NewMemoryOverlay())
	automations := repos.NewAutomations(st, bus, ids, rc)
	automations.Save([]models.Automation{
		{ID: "1", Trigger: TriggerOrderReady, Action: "notify", Enabled: true},
	})

	messenger := &capturingMessenger{}
	engagement := NewEngagementService(
		repos.NewCustomers(st, bus, ids, rc),
		repos.NewPromotions(st, bus, ids, rc),
		automations,
		repos.NewSocialPosts(st, bus, ids, rc),
		messenger,
	)

	watcher := NewStatusWatcher(orders, engagement)
	ctx := context.Background()

	orders.Save([]models.Order{{ID: "1", Table: "7", Status: models.StatusCooking}})
	watcher.sweep(ctx)
	require.Empty(t, messenger.sent)

	orders.Save([]models.Order{{ID: "1", Table: "7", Status: models.StatusReady}})
	watcher.sweep(ctx)
	require.Len(t, messenger.sent, 1)

	// Re-saving in the same status fires nothing
	orders.Save([]models.Order{{ID: "1", Table: "7", Status: models.StatusReady}})
	watcher.sweep(ctx)
	require.Len(t, messenger.sent, 1)
}
