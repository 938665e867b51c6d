package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"example.com/tableside/config"
	"example.com/tableside/internal/collab"
	"example.com/tableside/internal/events"
	"example.com/tableside/internal/identity"
	"example.com/tableside/internal/models"
	"example.com/tableside/internal/overlay"
	"example.com/tableside/internal/remote"
	"example.com/tableside/internal/repos"
	"example.com/tableside/internal/store"
	"example.com/tableside/internal/tracing"

	"github.com/stretchr/testify/require"
)

// The service tests run in local-only mode: the remote client is the
// disabled one, so every commit must come from the local store alone.
func newTestService(t *testing.T) (*OrderService, *repos.Orders) {
	t.Helper()

	bus := events.NewBus()
	st, err := store.Open(filepath.Join(t.TempDir(), "store.db"), 0, bus)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	rc := remote.Unavailable()
	ids := identity.NewManager(st, rc, "tenant-1")

	orders := repos.NewOrders(st, bus, ids, rc, overlay.NewMemoryOverlay())
	settings := repos.NewSettings(st, bus, ids, rc)

	tracer, err := tracing.NewTracer(config.TracingConfig{})
	require.NoError(t, err)

	svc := NewOrderService(orders, settings, collab.NewLogPrinter(), nil, tracer)
	return svc, orders
}

func foodItem(id string, qty int) models.OrderItem {
	return models.OrderItem{
		MenuItem: models.MenuItem{ID: id, Name: id, Category: "food"},
		Quantity: qty,
	}
}

func drinkItem(id string) models.OrderItem {
	return models.OrderItem{
		MenuItem: models.MenuItem{ID: id, Name: id, Category: "drinks"},
		Quantity: 1,
	}
}

func TestCreateAssignsIDAndDerivesStatus(t *testing.T) {
	svc, _ := newTestService(t)

	o := svc.Create(context.Background(), models.Order{
		Table: "7",
		Items: []models.OrderItem{foodItem("soup", 1)},
	})

	require.NotEmpty(t, o.ID)
	require.Equal(t, models.StatusPending, o.Status)
	require.False(t, o.CreatedAt.IsZero())

	got, err := svc.Get(o.ID)
	require.NoError(t, err)
	require.Equal(t, o.ID, got.ID)
}

func TestCreateSeedsBarItemsPrecompleted(t *testing.T) {
	svc, _ := newTestService(t)

	// The default settings route drinks to the bar, which is
	// precompleted: a drinks-only order is READY at creation
	o := svc.Create(context.Background(), models.Order{
		Table: "7",
		Items: []models.OrderItem{drinkItem("beer")},
	})

	require.True(t, o.Items[0].Completed)
	require.Equal(t, models.StatusReady, o.Status)
}

func TestSetItemCompletedWalksTheLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	o := svc.Create(ctx, models.Order{
		Table: "7",
		Items: []models.OrderItem{foodItem("soup", 1), foodItem("steak", 1)},
	})

	o, err := svc.SetItemCompleted(ctx, o.ID, 0, true)
	require.NoError(t, err)
	require.Equal(t, models.StatusCooking, o.Status)

	o, err = svc.SetItemCompleted(ctx, o.ID, 1, true)
	require.NoError(t, err)
	require.Equal(t, models.StatusReady, o.Status)
}

func TestAppendMergesAndReopens(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	o := svc.Create(ctx, models.Order{
		Table: "7",
		Items: []models.OrderItem{foodItem("soup", 1)},
	})

	o, err := svc.SetItemCompleted(ctx, o.ID, 0, true)
	require.NoError(t, err)
	require.Equal(t, models.StatusReady, o.Status)

	o, err = svc.Append(ctx, o.ID, []models.OrderItem{foodItem("soup", 2)})
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	require.Equal(t, 3, o.Items[0].Quantity)
	require.Equal(t, models.StatusPending, o.Status)
}

func TestAppendToUnknownOrder(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Append(context.Background(), "missing", []models.OrderItem{foodItem("soup", 1)})
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestItemIndexOutOfRange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	o := svc.Create(ctx, models.Order{Table: "7", Items: []models.OrderItem{foodItem("soup", 1)}})

	_, err := svc.SetItemCompleted(ctx, o.ID, 5, true)
	require.Error(t, err)
}

func TestArchiveTableClosesEveryOrderOnTheTable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := svc.Create(ctx, models.Order{Table: "7", Items: []models.OrderItem{foodItem("soup", 1)}})
	second := svc.Create(ctx, models.Order{Table: "7", Items: []models.OrderItem{foodItem("steak", 1)}})
	other := svc.Create(ctx, models.Order{Table: "9", Items: []models.OrderItem{foodItem("fish", 1)}})

	archived := svc.ArchiveTable(ctx, "7", "7 (closed)")
	require.Len(t, archived, 2)

	for _, id := range []string{first.ID, second.ID} {
		o, err := svc.Get(id)
		require.NoError(t, err)
		require.Equal(t, models.StatusDelivered, o.Status)
		require.Equal(t, "7 (closed)", o.Table)
	}

	untouched, err := svc.Get(other.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, untouched.Status)
}

func TestPruneHistoryDropsOldDeliveredOrders(t *testing.T) {
	svc, orders := newTestService(t)
	ctx := context.Background()

	stale := models.Order{
		ID:        "stale",
		Table:     "archive",
		Status:    models.StatusDelivered,
		UpdatedAt: time.Now().UTC().AddDate(0, 0, -60),
	}
	fresh := models.Order{
		ID:        "fresh",
		Table:     "archive",
		Status:    models.StatusDelivered,
		UpdatedAt: time.Now().UTC(),
	}
	open := models.Order{
		ID:        "open",
		Table:     "7",
		Status:    models.StatusCooking,
		UpdatedAt: time.Now().UTC().AddDate(0, 0, -60),
	}
	orders.Save([]models.Order{stale, fresh, open})

	pruned := svc.PruneHistory(ctx)
	require.Equal(t, 1, pruned)

	_, err := svc.Get("stale")
	require.ErrorIs(t, err, ErrOrderNotFound)
	_, err = svc.Get("fresh")
	require.NoError(t, err)
	_, err = svc.Get("open")
	require.NoError(t, err)
}

func TestDeleteUnknownOrder(t *testing.T) {
	svc, _ := newTestService(t)
	require.ErrorIs(t, svc.Delete(context.Background(), "missing"), ErrOrderNotFound)
}
