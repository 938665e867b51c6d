package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"example.com/tableside/internal/events"
	"example.com/tableside/internal/identity"
	"example.com/tableside/internal/models"
	"example.com/tableside/internal/remote"
	"example.com/tableside/internal/repos"
	"example.com/tableside/internal/store"

	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	Channel string
	Body    interface{}
}

// capturingMessenger records every message instead of sending it
type capturingMessenger struct {
	sent []sentMessage
}

func (m *capturingMessenger) Send(_ context.Context, channel string, body interface{}) error {
	m.sent = append(m.sent, sentMessage{Channel: channel, Body: body})
	return nil
}

func (m *capturingMessenger) Close() error { return nil }

func newEngagementFixture(t *testing.T) (*EngagementService, *capturingMessenger, *repos.Repo[models.Customer], *repos.Repo[models.Promotion], *repos.Repo[models.Automation], *repos.Repo[models.SocialPost]) {
	t.Helper()

	bus := events.NewBus()
	st, err := store.Open(filepath.Join(t.TempDir(), "store.db"), 0, bus)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	rc := remote.Unavailable()
	ids := identity.NewManager(st, rc, "tenant-1")

	customers := repos.NewCustomers(st, bus, ids, rc)
	promotions := repos.NewPromotions(st, bus, ids, rc)
	automations := repos.NewAutomations(st, bus, ids, rc)
	posts := repos.NewSocialPosts(st, bus, ids, rc)

	messenger := &capturingMessenger{}
	svc := NewEngagementService(customers, promotions, automations, posts, messenger)
	return svc, messenger, customers, promotions, automations, posts
}

func TestBroadcastPromotionReachesCustomersWithPhones(t *testing.T) {
	svc, messenger, customers, promotions, _, _ := newEngagementFixture(t)
	ctx := context.Background()

	customers.Save([]models.Customer{
		{ID: "1", Name: "Ana", Phone: "555-1"},
		{ID: "2", Name: "Bruno"},
		{ID: "3", Name: "Carla", Phone: "555-3"},
	})
	promotions.Save([]models.Promotion{{ID: "promo", Title: "Happy hour", Active: true}})

	sent, err := svc.BroadcastPromotion(ctx, "promo")
	require.NoError(t, err)
	require.Equal(t, 2, sent)
	require.Len(t, messenger.sent, 2)
	require.Equal(t, "promotion", messenger.sent[0].Channel)
}

func TestBroadcastInactivePromotion(t *testing.T) {
	svc, _, _, promotions, _, _ := newEngagementFixture(t)

	promotions.Save([]models.Promotion{{ID: "promo", Title: "Old", Active: false}})

	_, err := svc.BroadcastPromotion(context.Background(), "promo")
	require.Error(t, err)
}

func TestRunAutomationsFiresMatchingEnabledRulesOnly(t *testing.T) {
	svc, messenger, _, _, automations, _ := newEngagementFixture(t)

	automations.Save([]models.Automation{
		{ID: "1", Trigger: TriggerOrderReady, Action: "notify", Enabled: true},
		{ID: "2", Trigger: TriggerOrderReady, Action: "notify", Enabled: false},
		{ID: "3", Trigger: TriggerOrderDelivered, Action: "notify", Enabled: true},
	})

	svc.RunAutomations(context.Background(), TriggerOrderReady, models.Order{ID: "o1", Status: models.StatusReady})

	require.Len(t, messenger.sent, 1)
	require.Equal(t, "automation", messenger.sent[0].Channel)
}

func TestPublishDuePosts(t *testing.T) {
	svc, messenger, _, _, _, posts := newEngagementFixture(t)

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	posts.Save([]models.SocialPost{
		{ID: "due", Body: "We are open!", ScheduledAt: &past},
		{ID: "later", Body: "Coming up", ScheduledAt: &future},
		{ID: "done", Body: "Old news", ScheduledAt: &past, Published: true},
		{ID: "draft", Body: "No schedule"},
	})

	published := svc.PublishDuePosts(context.Background())
	require.Equal(t, 1, published)
	require.Len(t, messenger.sent, 1)

	var due models.SocialPost
	for _, p := range posts.GetAll() {
		if p.ID == "due" {
			due = p
		}
	}
	require.True(t, due.Published)

	// A second sweep finds nothing left to publish
	require.Zero(t, svc.PublishDuePosts(context.Background()))
}
