// Package lifecycle derives an order's status from the completion and
// service state of its items. Staff never set the status directly: every
// item-flag change re-runs the derivation.
package lifecycle

import (
	"example.com/tableside/internal/models"
)

// ItemCompleted reports the effective kitchen-done state of an item. A combo
// item is completed iff every declared component id is in its done-set.
func ItemCompleted(item models.OrderItem) bool {
	if item.MenuItem.IsCombo() {
		return containsAll(item.ComponentsDone, item.MenuItem.ComponentIDs)
	}
	return item.Completed
}

// ItemServed reports the effective delivered-to-guest state of an item,
// with the same combo rollup as ItemCompleted.
func ItemServed(item models.OrderItem) bool {
	if item.MenuItem.IsCombo() {
		return containsAll(item.ComponentsServed, item.MenuItem.ComponentIDs)
	}
	return item.Served
}

// itemShowsProgress reports whether any work on the item has started.
func itemShowsProgress(item models.OrderItem) bool {
	return item.Completed || len(item.ComponentsDone) > 0
}

// DeriveStatus computes the status implied by a list of items. It is a pure
// function of the list: same items, same status, independent of history.
// Separator rows are ignored.
func DeriveStatus(items []models.OrderItem) models.OrderStatus {
	var real int
	allCooked := true
	anyCooked := false
	allServed := true

	for _, item := range items {
		if item.Separator {
			continue
		}
		real++
		if !ItemCompleted(item) {
			allCooked = false
		}
		if itemShowsProgress(item) {
			anyCooked = true
		}
		if !ItemServed(item) {
			allServed = false
		}
	}

	if real == 0 {
		return models.StatusPending
	}

	status := models.StatusPending
	if allCooked {
		status = models.StatusReady
	} else if anyCooked {
		status = models.StatusCooking
	}

	// Reproduced as observed: when every item has been served while the
	// order still reads READY/COOKING, the order reverts to PENDING rather
	// than finishing. Do not "fix" this without changing the other clients.
	if allServed && (status == models.StatusReady || status == models.StatusCooking) {
		status = models.StatusPending
	}

	return status
}

// NextStatus applies the derivation while keeping DELIVERED terminal.
func NextStatus(current models.OrderStatus, items []models.OrderItem) models.OrderStatus {
	if current == models.StatusDelivered {
		return models.StatusDelivered
	}
	return DeriveStatus(items)
}

// SetItemCompleted sets the kitchen-done flag of the item at index and
// re-derives the order status. For combo items the whole component set is
// marked at once.
func SetItemCompleted(order *models.Order, index int, done bool) {
	if index < 0 || index >= len(order.Items) {
		return
	}
	item := &order.Items[index]

	if item.MenuItem.IsCombo() {
		if done {
			item.ComponentsDone = append([]string(nil), item.MenuItem.ComponentIDs...)
		} else {
			item.ComponentsDone = nil
		}
	}
	item.Completed = done

	order.Status = NextStatus(order.Status, order.Items)
}

// SetItemServed sets the delivered-to-guest flag of the item at index and
// re-derives the order status.
func SetItemServed(order *models.Order, index int, served bool) {
	if index < 0 || index >= len(order.Items) {
		return
	}
	item := &order.Items[index]

	if item.MenuItem.IsCombo() {
		if served {
			item.ComponentsServed = append([]string(nil), item.MenuItem.ComponentIDs...)
		} else {
			item.ComponentsServed = nil
		}
	}
	item.Served = served

	order.Status = NextStatus(order.Status, order.Items)
}

// ToggleComponentDone flips one combo component in the done-set of the item
// at index, rolls the item's completed flag up, and re-derives the status.
func ToggleComponentDone(order *models.Order, index int, componentID string) {
	if index < 0 || index >= len(order.Items) {
		return
	}
	item := &order.Items[index]

	item.ComponentsDone = toggle(item.ComponentsDone, componentID)
	item.Completed = containsAll(item.ComponentsDone, item.MenuItem.ComponentIDs)

	order.Status = NextStatus(order.Status, order.Items)
}

// ToggleComponentServed flips one combo component in the served-set of the
// item at index, rolls the item's served flag up, and re-derives the status.
func ToggleComponentServed(order *models.Order, index int, componentID string) {
	if index < 0 || index >= len(order.Items) {
		return
	}
	item := &order.Items[index]

	item.ComponentsServed = toggle(item.ComponentsServed, componentID)
	item.Served = containsAll(item.ComponentsServed, item.MenuItem.ComponentIDs)

	order.Status = NextStatus(order.Status, order.Items)
}

// MergeItems merges a mid-service add-on into order. Incoming items are
// matched against existing ones by (menu item id, note): a match sums the
// quantities and resets the completion/service flags; anything unmatched is
// appended with its completion seeded from the destination department's
// routing default. New work invalidates "done": an order that was READY or
// DELIVERED drops back to PENDING.
func MergeItems(order *models.Order, incoming []models.OrderItem, settings models.Settings) {
	wasDone := order.Status == models.StatusReady || order.Status == models.StatusDelivered

	for _, inc := range incoming {
		if inc.Quantity <= 0 {
			inc.Quantity = 1
		}

		if idx := findMatch(order.Items, inc); idx >= 0 {
			existing := &order.Items[idx]
			existing.Quantity += inc.Quantity
			existing.Completed = false
			existing.Served = false
			existing.ComponentsDone = nil
			existing.ComponentsServed = nil
			existing.AddedLater = true
			continue
		}

		dept := settings.DepartmentFor(inc.MenuItem.Category)
		inc.Completed = dept.Precompleted
		if dept.Precompleted && inc.MenuItem.IsCombo() {
			inc.ComponentsDone = append([]string(nil), inc.MenuItem.ComponentIDs...)
		}
		inc.Served = false
		inc.ComponentsServed = nil
		order.Items = append(order.Items, inc)
	}

	if wasDone {
		order.Status = models.StatusPending
	} else {
		order.Status = NextStatus(order.Status, order.Items)
	}
}

// Archive relabels the order's location and forces terminal status; used
// when a table is freed. Archived orders stay in the cache until history
// pruning or explicit deletion removes them.
func Archive(order *models.Order, label string) {
	order.Table = label
	order.Status = models.StatusDelivered
}

func findMatch(items []models.OrderItem, inc models.OrderItem) int {
	for i, item := range items {
		if item.Separator {
			continue
		}
		if item.MenuItem.ID == inc.MenuItem.ID && item.Note == inc.Note {
			return i
		}
	}
	return -1
}

func toggle(set []string, id string) []string {
	for i, v := range set {
		if v == id {
			return append(set[:i], set[i+1:]...)
		}
	}
	return append(set, id)
}

func containsAll(set []string, required []string) bool {
	if len(required) == 0 {
		return false
	}
	for _, want := range required {
		found := false
		for _, have := range set {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
