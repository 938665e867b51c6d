package models

import (
	"time"
)

// OrderStatus is the derived lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusCooking   OrderStatus = "COOKING"
	StatusReady     OrderStatus = "READY"
	StatusDelivered OrderStatus = "DELIVERED"
)

// Fulfillment holds the delivery/pickup details of a non-dine-in order.
// The remote schema has no columns for these fields, so they travel through
// the metadata side-channel on the first order item.
type Fulfillment struct {
	CustomerName  string `json:"customerName,omitempty"`
	Address       string `json:"address,omitempty"`
	Phone         string `json:"phone,omitempty"`
	RequestedTime string `json:"requestedTime,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// Empty reports whether no fulfillment field is set.
func (f *Fulfillment) Empty() bool {
	if f == nil {
		return true
	}
	return f.CustomerName == "" && f.Address == "" && f.Phone == "" &&
		f.RequestedTime == "" && f.Notes == ""
}

// MenuItem is a catalog entry. Combo items reference the ids of their
// component menu items; completion of a combo order line is tracked per
// component.
type MenuItem struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Price        float64  `json:"price"`
	Category     string   `json:"category,omitempty"`
	Description  string   `json:"description,omitempty"`
	ComponentIDs []string `json:"componentIds,omitempty"`
}

// EntityID implements repos.Entity.
func (m MenuItem) EntityID() string { return m.ID }

// IsCombo reports whether the item is a composite of other menu items.
func (m MenuItem) IsCombo() bool { return len(m.ComponentIDs) > 0 }

// OrderItem is a single line of an order. The MenuItem is a value snapshot
// taken at order time, so later catalog edits never change historical orders.
type OrderItem struct {
	MenuItem   MenuItem `json:"menuItem"`
	Quantity   int      `json:"quantity"`
	Note       string   `json:"note,omitempty"`
	Completed  bool     `json:"completed"`
	Served     bool     `json:"served"`
	AddedLater bool     `json:"addedLater,omitempty"`
	Separator  bool     `json:"separator,omitempty"`

	// Combo progress: ids of components already cooked / already served.
	ComponentsDone   []string `json:"componentsDone,omitempty"`
	ComponentsServed []string `json:"componentsServed,omitempty"`
}

// Order is a table or takeaway order owned by a single tenant.
type Order struct {
	ID          string       `json:"id"`
	Table       string       `json:"table"`
	Items       []OrderItem  `json:"items"`
	Status      OrderStatus  `json:"status"`
	Waiter      string       `json:"waiter,omitempty"`
	Fulfillment *Fulfillment `json:"fulfillment,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// EntityID implements repos.Entity.
func (o Order) EntityID() string { return o.ID }

// Reservation is a booked table slot.
type Reservation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Table     string    `json:"table,omitempty"`
	Guests    int       `json:"guests"`
	Time      time.Time `json:"time"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// EntityID implements repos.Entity.
func (r Reservation) EntityID() string { return r.ID }

// Customer is a known guest used for messaging and promotions.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// EntityID implements repos.Entity.
func (c Customer) EntityID() string { return c.ID }

// Promotion is a discount or campaign entry.
type Promotion struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Discount    float64    `json:"discount,omitempty"`
	StartsAt    *time.Time `json:"startsAt,omitempty"`
	EndsAt      *time.Time `json:"endsAt,omitempty"`
	Active      bool       `json:"active"`
}

// EntityID implements repos.Entity.
func (p Promotion) EntityID() string { return p.ID }

// Automation is a staff-authored trigger/action rule, e.g. "message the
// customer when their takeaway order becomes READY".
type Automation struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Trigger string `json:"trigger"`
	Action  string `json:"action"`
	Enabled bool   `json:"enabled"`
}

// EntityID implements repos.Entity.
func (a Automation) EntityID() string { return a.ID }

// SocialPost is a scheduled or published social media post.
type SocialPost struct {
	ID          string     `json:"id"`
	Body        string     `json:"body"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	Published   bool       `json:"published"`
}

// EntityID implements repos.Entity.
func (s SocialPost) EntityID() string { return s.ID }
