package services

import (
	"context"
	"time"

	"example.com/tableside/internal/collab"
	"example.com/tableside/internal/models"
	"example.com/tableside/internal/repos"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Automation triggers recognised by RunAutomations.
const (
	TriggerOrderReady     = "order_ready"
	TriggerOrderDelivered = "order_delivered"
)

// EngagementService covers the guest-facing side: promotion broadcasts,
// automation rules and social posts. Delivery goes through the messenger
// and is always best effort.
type EngagementService struct {
	customers   *repos.Repo[models.Customer]
	promotions  *repos.Repo[models.Promotion]
	automations *repos.Repo[models.Automation]
	posts       *repos.Repo[models.SocialPost]
	messenger   collab.Messenger
}

func NewEngagementService(
	customers *repos.Repo[models.Customer],
	promotions *repos.Repo[models.Promotion],
	automations *repos.Repo[models.Automation],
	posts *repos.Repo[models.SocialPost],
	messenger collab.Messenger,
) *EngagementService {
	return &EngagementService{
		customers:   customers,
		promotions:  promotions,
		automations: automations,
		posts:       posts,
		messenger:   messenger,
	}
}

// BroadcastPromotion sends an active promotion to every customer with a
// phone number. Returns how many messages went out.
func (s *EngagementService) BroadcastPromotion(ctx context.Context, promotionID string) (int, error) {
	var promo *models.Promotion
	for _, p := range s.promotions.GetAll() {
		if p.ID == promotionID {
			promo = &p
			break
		}
	}
	if promo == nil {
		return 0, errors.Errorf("promotion %s not found", promotionID)
	}
	if !promo.Active {
		return 0, errors.Errorf("promotion %s is not active", promotionID)
	}

	sent := 0
	for _, c := range s.customers.GetAll() {
		if c.Phone == "" {
			continue
		}
		body := map[string]interface{}{
			"to":          c.Phone,
			"title":       promo.Title,
			"description": promo.Description,
		}
		if err := s.messenger.Send(ctx, "promotion", body); err != nil {
			log.Warn().Err(err).Str("customer_id", c.ID).Msg("Failed to send promotion")
			continue
		}
		sent++
	}
	return sent, nil
}

// RunAutomations fires every enabled rule matching the trigger, passing the
// order that caused it.
func (s *EngagementService) RunAutomations(ctx context.Context, trigger string, order models.Order) {
	for _, a := range s.automations.GetAll() {
		if !a.Enabled || a.Trigger != trigger {
			continue
		}
		body := map[string]interface{}{
			"action":   a.Action,
			"order_id": order.ID,
			"table":    order.Table,
			"status":   string(order.Status),
		}
		if order.Fulfillment != nil {
			body["customer"] = order.Fulfillment.CustomerName
			body["phone"] = order.Fulfillment.Phone
		}
		if err := s.messenger.Send(ctx, "automation", body); err != nil {
			log.Warn().Err(err).Str("automation_id", a.ID).Msg("Failed to run automation")
		}
	}
}

// PublishDuePosts sends every unpublished post whose schedule has passed and
// marks it published.
func (s *EngagementService) PublishDuePosts(ctx context.Context) int {
	now := time.Now().UTC()
	list := s.posts.GetAll()

	published := 0
	changed := false
	for i, p := range list {
		if p.Published || p.ScheduledAt == nil || p.ScheduledAt.After(now) {
			continue
		}
		body := map[string]interface{}{
			"body":      p.Body,
			"image_url": p.ImageURL,
		}
		if err := s.messenger.Send(ctx, "social", body); err != nil {
			log.Warn().Err(err).Str("post_id", p.ID).Msg("Failed to publish social post")
			continue
		}
		list[i].Published = true
		published++
		changed = true
	}
	if changed {
		s.posts.Save(list)
	}
	return published
}
