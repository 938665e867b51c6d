package overlay

import (
	"context"
	"testing"

	"example.com/tableside/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPatchFillsOnlyAbsentFields(t *testing.T) {
	order := models.Order{ID: "1", Waiter: "ana"}
	attrs := Attrs{
		Waiter:      "bruno",
		Fulfillment: &models.Fulfillment{CustomerName: "carla"},
	}

	Patch(&order, attrs)

	// The pulled waiter wins, the missing fulfillment is filled
	require.Equal(t, "ana", order.Waiter)
	require.NotNil(t, order.Fulfillment)
	require.Equal(t, "carla", order.Fulfillment.CustomerName)
}

func TestPatchLeavesPresentFulfillmentAlone(t *testing.T) {
	order := models.Order{
		ID:          "1",
		Fulfillment: &models.Fulfillment{Address: "elm st 5"},
	}

	Patch(&order, Attrs{Fulfillment: &models.Fulfillment{Address: "other"}})

	require.Equal(t, "elm st 5", order.Fulfillment.Address)
}

func TestMemoryOverlayRoundTrip(t *testing.T) {
	ctx := context.Background()
	ov := NewMemoryOverlay()

	_, ok := ov.Lookup(ctx, "1")
	require.False(t, ok)

	ov.Remember(ctx, "1", Attrs{Waiter: "ana"})

	attrs, ok := ov.Lookup(ctx, "1")
	require.True(t, ok)
	require.Equal(t, "ana", attrs.Waiter)

	ov.Forget(ctx, "1")
	_, ok = ov.Lookup(ctx, "1")
	require.False(t, ok)
}

func TestMemoryOverlayIgnoresEmptyAttrs(t *testing.T) {
	ctx := context.Background()
	ov := NewMemoryOverlay()

	ov.Remember(ctx, "1", Attrs{})

	_, ok := ov.Lookup(ctx, "1")
	require.False(t, ok)
}

func TestAttrsEmpty(t *testing.T) {
	require.True(t, Attrs{}.Empty())
	require.True(t, Attrs{Fulfillment: &models.Fulfillment{}}.Empty())
	require.False(t, Attrs{Waiter: "ana"}.Empty())
	require.False(t, Attrs{Fulfillment: &models.Fulfillment{Phone: "555"}}.Empty())
}
