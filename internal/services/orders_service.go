package services

import (
	"context"
	"time"

	"example.com/tableside/internal/collab"
	"example.com/tableside/internal/lifecycle"
	"example.com/tableside/internal/models"
	"example.com/tableside/internal/repos"
	"example.com/tableside/internal/search"
	"example.com/tableside/internal/tracing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrOrderNotFound is returned when no order carries the requested id.
var ErrOrderNotFound = errors.New("order not found")

// OrderService is the high level order API. Every mutation commits locally
// first; replication, printing and indexing are best effort side effects.
type OrderService struct {
	orders   *repos.Orders
	settings *repos.SettingsRepo
	printer  collab.TicketPrinter
	elastic  *search.ElasticClient
	tracer   tracing.Tracer
}

func NewOrderService(
	orders *repos.Orders,
	settings *repos.SettingsRepo,
	printer collab.TicketPrinter,
	elastic *search.ElasticClient,
	tracer tracing.Tracer,
) *OrderService {
	return &OrderService{
		orders:   orders,
		settings: settings,
		printer:  printer,
		elastic:  elastic,
		tracer:   tracer,
	}
}

// List returns all local orders.
func (s *OrderService) List() []models.Order {
	return s.orders.GetAll()
}

// Get returns one order by id.
func (s *OrderService) Get(id string) (models.Order, error) {
	o, ok := s.orders.Get(id)
	if !ok {
		return models.Order{}, ErrOrderNotFound
	}
	return o, nil
}

// Create commits a new order. Items land with their completion seeded from
// department routing, status is derived from the items, and tickets go out
// to the department printers without blocking the commit.
func (s *OrderService) Create(ctx context.Context, o models.Order) models.Order {
	txn := s.tracer.StartTransaction("orders.create")
	defer s.tracer.EndTransaction(txn)

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	settings := s.settings.Get()
	seedCompletion(o.Items, settings)
	o.Status = lifecycle.DeriveStatus(o.Items)

	s.orders.Add(ctx, o)
	s.tracer.AddAttribute(txn, "order_id", o.ID)

	s.printTickets(o, settings)
	return o
}

// Append merges new items into an existing order. Matching items have their
// quantities summed and their progress reset, new items are appended, and
// a finished order reopens as pending.
func (s *OrderService) Append(ctx context.Context, id string, items []models.OrderItem) (models.Order, error) {
	o, ok := s.orders.Get(id)
	if !ok {
		return models.Order{}, ErrOrderNotFound
	}

	settings := s.settings.Get()
	lifecycle.MergeItems(&o, items, settings)
	o.UpdatedAt = time.Now().UTC()

	s.orders.Update(ctx, o)

	added := models.Order{Table: o.Table, Waiter: o.Waiter, Items: items}
	s.printTickets(added, settings)
	return o, nil
}

// SetItemCompleted marks one item cooked or uncooked and re-derives status.
func (s *OrderService) SetItemCompleted(ctx context.Context, id string, index int, done bool) (models.Order, error) {
	return s.mutate(ctx, id, index, func(o *models.Order) {
		lifecycle.SetItemCompleted(o, index, done)
	})
}

// SetItemServed marks one item served or unserved and re-derives status.
func (s *OrderService) SetItemServed(ctx context.Context, id string, index int, served bool) (models.Order, error) {
	return s.mutate(ctx, id, index, func(o *models.Order) {
		lifecycle.SetItemServed(o, index, served)
	})
}

// ToggleComponentDone flips one combo component's cooked state.
func (s *OrderService) ToggleComponentDone(ctx context.Context, id string, index int, componentID string) (models.Order, error) {
	return s.mutate(ctx, id, index, func(o *models.Order) {
		lifecycle.ToggleComponentDone(o, index, componentID)
	})
}

// ToggleComponentServed flips one combo component's served state.
func (s *OrderService) ToggleComponentServed(ctx context.Context, id string, index int, componentID string) (models.Order, error) {
	return s.mutate(ctx, id, index, func(o *models.Order) {
		lifecycle.ToggleComponentServed(o, index, componentID)
	})
}

// Update replaces an order wholesale, re-deriving its status.
func (s *OrderService) Update(ctx context.Context, o models.Order) (models.Order, error) {
	if _, ok := s.orders.Get(o.ID); !ok {
		return models.Order{}, ErrOrderNotFound
	}
	o.Status = lifecycle.NextStatus(o.Status, o.Items)
	o.UpdatedAt = time.Now().UTC()
	s.orders.Update(ctx, o)
	return o, nil
}

// Delete removes an order locally and remotely.
func (s *OrderService) Delete(ctx context.Context, id string) error {
	if _, ok := s.orders.Get(id); !ok {
		return ErrOrderNotFound
	}
	s.orders.Delete(ctx, id)
	return nil
}

// ArchiveTable closes out every open order on a table: each one is
// relabelled with the archive label, forced delivered and indexed for
// history search.
func (s *OrderService) ArchiveTable(ctx context.Context, table, label string) []models.Order {
	txn := s.tracer.StartTransaction("orders.archive_table")
	defer s.tracer.EndTransaction(txn)

	var archived []models.Order
	for _, o := range s.orders.GetAll() {
		if o.Table != table {
			continue
		}
		lifecycle.Archive(&o, label)
		o.UpdatedAt = time.Now().UTC()
		s.orders.Update(ctx, o)
		archived = append(archived, o)

		if err := s.elastic.IndexOrder(ctx, &o); err != nil {
			log.Warn().Err(err).Str("order_id", o.ID).Msg("Failed to index archived order")
		}
	}
	return archived
}

// PruneHistory drops delivered orders older than the retention window.
func (s *OrderService) PruneHistory(ctx context.Context) int {
	settings := s.settings.Get()
	cutoff := time.Now().UTC().AddDate(0, 0, -settings.HistoryRetainDays)

	list := s.orders.GetAll()
	kept := make([]models.Order, 0, len(list))
	pruned := 0
	for _, o := range list {
		if o.Status == models.StatusDelivered && o.UpdatedAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, o)
	}
	if pruned > 0 {
		s.orders.Save(kept)
		log.Info().Int("pruned", pruned).Msg("Pruned delivered orders past retention")
	}
	return pruned
}

// SearchHistory queries the archived order index.
func (s *OrderService) SearchHistory(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error) {
	return s.elastic.SearchOrders(ctx, query)
}

func (s *OrderService) mutate(ctx context.Context, id string, index int, fn func(*models.Order)) (models.Order, error) {
	o, ok := s.orders.Get(id)
	if !ok {
		return models.Order{}, ErrOrderNotFound
	}
	if index < 0 || index >= len(o.Items) {
		return models.Order{}, errors.Errorf("item index %d out of range", index)
	}

	fn(&o)
	o.UpdatedAt = time.Now().UTC()
	s.orders.Update(ctx, o)
	return o, nil
}

// printTickets fans tickets out to department printers. Failures are logged
// and never surface to the caller.
func (s *OrderService) printTickets(o models.Order, settings models.Settings) {
	for _, t := range collab.BuildTickets(o, settings) {
		if err := s.printer.Print(context.Background(), t); err != nil {
			log.Warn().Err(err).Str("department", t.Department).Msg("Failed to print ticket")
		}
	}
}

// seedCompletion pre-marks items routed to departments that do not cook,
// the bar ticket for instance is done the moment it prints.
func seedCompletion(items []models.OrderItem, settings models.Settings) {
	for i := range items {
		if items[i].Separator {
			continue
		}
		dept := settings.DepartmentFor(items[i].MenuItem.Category)
		if !dept.Precompleted {
			continue
		}
		items[i].Completed = true
		if items[i].MenuItem.IsCombo() {
			items[i].ComponentsDone = append([]string(nil), items[i].MenuItem.ComponentIDs...)
		}
	}
}
