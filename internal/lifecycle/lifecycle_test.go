package lifecycle

import (
	"testing"

	"example.com/tableside/internal/models"

	"github.com/stretchr/testify/require"
)

func plainItem(id string, qty int) models.OrderItem {
	return models.OrderItem{
		MenuItem: models.MenuItem{ID: id, Name: id, Category: "food"},
		Quantity: qty,
	}
}

func comboItem(id string, components ...string) models.OrderItem {
	return models.OrderItem{
		MenuItem: models.MenuItem{ID: id, Name: id, Category: "food", ComponentIDs: components},
		Quantity: 1,
	}
}

func testSettings() models.Settings {
	return models.Settings{
		Departments: []models.Department{
			{Name: "kitchen"},
			{Name: "bar", Precompleted: true},
		},
		CategoryRouting: map[string]string{
			"food":   "kitchen",
			"drinks": "bar",
		},
	}
}

func TestDeriveStatusEmptyOrder(t *testing.T) {
	require.Equal(t, models.StatusPending, DeriveStatus(nil))
	require.Equal(t, models.StatusPending, DeriveStatus([]models.OrderItem{{Separator: true}}))
}

func TestDeriveStatusProgression(t *testing.T) {
	a := plainItem("a", 1)
	b := plainItem("b", 1)

	require.Equal(t, models.StatusPending, DeriveStatus([]models.OrderItem{a, b}))

	a.Completed = true
	require.Equal(t, models.StatusCooking, DeriveStatus([]models.OrderItem{a, b}))

	b.Completed = true
	require.Equal(t, models.StatusReady, DeriveStatus([]models.OrderItem{a, b}))
}

func TestDeriveStatusIsPureFunctionOfItems(t *testing.T) {
	a := plainItem("a", 1)
	a.Completed = true
	items := []models.OrderItem{a}

	first := DeriveStatus(items)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, DeriveStatus(items))
	}
}

func TestDeriveStatusAllServedRevertsToPending(t *testing.T) {
	a := plainItem("a", 1)
	a.Completed = true
	a.Served = true
	b := plainItem("b", 1)
	b.Completed = true
	b.Served = true

	// All cooked and all served reads PENDING, not READY
	require.Equal(t, models.StatusPending, DeriveStatus([]models.OrderItem{a, b}))
}

func TestComboCompletionRequiresAllComponents(t *testing.T) {
	order := models.Order{
		Status: models.StatusPending,
		Items:  []models.OrderItem{comboItem("menu", "starter", "main")},
	}

	ToggleComponentDone(&order, 0, "starter")
	require.False(t, ItemCompleted(order.Items[0]))
	require.Equal(t, models.StatusCooking, order.Status)

	ToggleComponentDone(&order, 0, "main")
	require.True(t, ItemCompleted(order.Items[0]))
	require.Equal(t, models.StatusReady, order.Status)

	// Toggling a component back off reopens the combo
	ToggleComponentDone(&order, 0, "main")
	require.False(t, ItemCompleted(order.Items[0]))
	require.Equal(t, models.StatusCooking, order.Status)
}

func TestSetItemCompletedMarksWholeComboComponentSet(t *testing.T) {
	order := models.Order{
		Status: models.StatusPending,
		Items:  []models.OrderItem{comboItem("menu", "starter", "main", "dessert")},
	}

	SetItemCompleted(&order, 0, true)
	require.ElementsMatch(t, []string{"starter", "main", "dessert"}, order.Items[0].ComponentsDone)
	require.Equal(t, models.StatusReady, order.Status)

	SetItemCompleted(&order, 0, false)
	require.Empty(t, order.Items[0].ComponentsDone)
}

func TestNextStatusKeepsDeliveredTerminal(t *testing.T) {
	a := plainItem("a", 1)
	require.Equal(t, models.StatusDelivered, NextStatus(models.StatusDelivered, []models.OrderItem{a}))
}

func TestMergeItemsSumsQuantityAndResetsProgress(t *testing.T) {
	existing := plainItem("burger", 2)
	existing.Completed = true
	order := models.Order{
		Status: models.StatusCooking,
		Items:  []models.OrderItem{existing},
	}

	MergeItems(&order, []models.OrderItem{plainItem("burger", 1)}, testSettings())

	require.Len(t, order.Items, 1)
	require.Equal(t, 3, order.Items[0].Quantity)
	require.False(t, order.Items[0].Completed)
	require.True(t, order.Items[0].AddedLater)
	require.Equal(t, models.StatusPending, order.Status)
}

func TestMergeItemsMatchesByMenuItemAndNote(t *testing.T) {
	existing := plainItem("burger", 1)
	existing.Note = "no onions"
	order := models.Order{
		Status: models.StatusPending,
		Items:  []models.OrderItem{existing},
	}

	// Same dish, different note: must not merge
	MergeItems(&order, []models.OrderItem{plainItem("burger", 1)}, testSettings())
	require.Len(t, order.Items, 2)
}

func TestMergeItemsSeedsCompletionFromDepartmentRouting(t *testing.T) {
	order := models.Order{Status: models.StatusPending}

	beer := models.OrderItem{
		MenuItem: models.MenuItem{ID: "beer", Name: "beer", Category: "drinks"},
		Quantity: 1,
	}
	MergeItems(&order, []models.OrderItem{beer, plainItem("soup", 1)}, testSettings())

	require.Len(t, order.Items, 2)
	require.True(t, order.Items[0].Completed)
	require.False(t, order.Items[1].Completed)
}

func TestMergeItemsReopensFinishedOrder(t *testing.T) {
	done := plainItem("burger", 1)
	done.Completed = true
	order := models.Order{
		Status: models.StatusDelivered,
		Items:  []models.OrderItem{done},
	}

	// Appending to a delivered order forces PENDING even though the new
	// item lands precompleted
	beer := models.OrderItem{
		MenuItem: models.MenuItem{ID: "beer", Name: "beer", Category: "drinks"},
		Quantity: 1,
	}
	MergeItems(&order, []models.OrderItem{beer}, testSettings())

	require.Equal(t, models.StatusPending, order.Status)
}

func TestMergeItemsDefaultsZeroQuantityToOne(t *testing.T) {
	order := models.Order{Status: models.StatusPending}
	MergeItems(&order, []models.OrderItem{plainItem("soup", 0)}, testSettings())
	require.Equal(t, 1, order.Items[0].Quantity)
}

func TestArchiveForcesDeliveredAndRelabels(t *testing.T) {
	order := models.Order{Table: "7", Status: models.StatusCooking, Items: []models.OrderItem{plainItem("a", 1)}}
	Archive(&order, "7 (closed 2026-02-11)")
	require.Equal(t, "7 (closed 2026-02-11)", order.Table)
	require.Equal(t, models.StatusDelivered, order.Status)
}
