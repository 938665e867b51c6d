package repos

import (
	"example.com/tableside/internal/events"
	"example.com/tableside/internal/identity"
	"example.com/tableside/internal/models"
	"example.com/tableside/internal/remote"
	"example.com/tableside/internal/store"
)

// NewMenuItems creates the menu catalog repository.
func NewMenuItems(st *store.Store, bus *events.Bus, ids *identity.Manager, rc remote.Client) *Repo[models.MenuItem] {
	return newRepo[models.MenuItem](events.KindMenuItems, st, bus, ids, rc)
}

// NewReservations creates the reservations repository.
func NewReservations(st *store.Store, bus *events.Bus, ids *identity.Manager, rc remote.Client) *Repo[models.Reservation] {
	return newRepo[models.Reservation](events.KindReservations, st, bus, ids, rc)
}

// NewCustomers creates the customers repository.
func NewCustomers(st *store.Store, bus *events.Bus, ids *identity.Manager, rc remote.Client) *Repo[models.Customer] {
	return newRepo[models.Customer](events.KindCustomers, st, bus, ids, rc)
}

// NewPromotions creates the promotions repository.
func NewPromotions(st *store.Store, bus *events.Bus, ids *identity.Manager, rc remote.Client) *Repo[models.Promotion] {
	return newRepo[models.Promotion](events.KindPromotions, st, bus, ids, rc)
}

// NewAutomations creates the automations repository.
func NewAutomations(st *store.Store, bus *events.Bus, ids *identity.Manager, rc remote.Client) *Repo[models.Automation] {
	return newRepo[models.Automation](events.KindAutomations, st, bus, ids, rc)
}

// NewSocialPosts creates the social posts repository.
func NewSocialPosts(st *store.Store, bus *events.Bus, ids *identity.Manager, rc remote.Client) *Repo[models.SocialPost] {
	return newRepo[models.SocialPost](events.KindSocialPosts, st, bus, ids, rc)
}
