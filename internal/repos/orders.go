package repos

import (
	"context"
	"encoding/json"

	"example.com/tableside/internal/events"
	"example.com/tableside/internal/identity"
	"example.com/tableside/internal/models"
	"example.com/tableside/internal/overlay"
	"example.com/tableside/internal/remote"
	"example.com/tableside/internal/store"

	"github.com/rs/zerolog/log"
)

const ordersKey = "entities/orders"

// orderMeta is the opaque object smuggled through the first order item at
// push time, carrying the attributes the remote orders schema has no
// columns for. It must never reach rendered item data.
type orderMeta struct {
	Waiter      string              `json:"waiter,omitempty"`
	Fulfillment *models.Fulfillment `json:"fulfillment,omitempty"`
}

// wireItem is the remote shape of one order item: the local item plus the
// optional side-channel object.
type wireItem struct {
	models.OrderItem
	Meta *orderMeta `json:"_meta,omitempty"`
}

// Orders is the orders repository. On top of the uniform contract it runs
// the metadata side-channel on every push/pull and the reconciliation
// overlay on every pull, and it registers the store compactor that drops
// delivered orders under capacity pressure.
type Orders struct {
	st  *store.Store
	bus *events.Bus
	ids *identity.Manager
	rc  remote.Client
	ov  overlay.Overlay
}

// NewOrders creates the orders repository and installs its compactor.
func NewOrders(st *store.Store, bus *events.Bus, ids *identity.Manager, rc remote.Client, ov overlay.Overlay) *Orders {
	r := &Orders{st: st, bus: bus, ids: ids, rc: rc, ov: ov}
	st.RegisterCompactor(ordersKey, dropDelivered)
	return r
}

// Kind returns the orders entity kind.
func (r *Orders) Kind() events.Kind { return events.KindOrders }

// GetAll reads the local cache. Absence or corruption yields an empty list.
func (r *Orders) GetAll() []models.Order {
	raw, ok := r.st.Read(ordersKey)
	if !ok {
		return []models.Order{}
	}

	var list []models.Order
	if err := json.Unmarshal(raw, &list); err != nil {
		log.Warn().Err(err).Msg("Corrupt orders cache, falling back to empty list")
		return []models.Order{}
	}
	if list == nil {
		list = []models.Order{}
	}
	return list
}

// Get returns one order by id.
func (r *Orders) Get(id string) (models.Order, bool) {
	for _, o := range r.GetAll() {
		if o.ID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

// Save overwrites the local cache and emits exactly one change event.
func (r *Orders) Save(list []models.Order) {
	raw, err := json.Marshal(list)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal orders")
		return
	}
	r.st.Write(ordersKey, raw)
	r.bus.Publish(events.KindOrders)
}

// Add commits an order locally, refreshes the overlay and replicates.
func (r *Orders) Add(ctx context.Context, o models.Order) {
	r.upsertLocal(ctx, o)
	r.pushRemote(ctx, o)
}

// Update commits an order locally, refreshes the overlay and replicates.
func (r *Orders) Update(ctx context.Context, o models.Order) {
	r.upsertLocal(ctx, o)
	r.pushRemote(ctx, o)
}

// Delete removes an order locally and replicates the deletion.
func (r *Orders) Delete(ctx context.Context, id string) {
	list := r.GetAll()
	next := make([]models.Order, 0, len(list))
	for _, o := range list {
		if o.ID != id {
			next = append(next, o)
		}
	}
	r.Save(next)
	r.ov.Forget(ctx, id)

	sess, ok := r.session(ctx)
	if !ok {
		return
	}
	if err := r.rc.DeleteOrder(ctx, sess.TenantID, id); err != nil {
		log.Warn().Err(err).Str("order_id", id).Msg("Remote order delete failed, keeping local state")
	}
}

// PullRemote fetches the tenant's order rows, decodes the side-channel,
// patches missing optional attributes from the overlay and overwrites the
// local cache. A pull failure leaves the cache untouched.
func (r *Orders) PullRemote(ctx context.Context) error {
	sess, ok := r.session(ctx)
	if !ok {
		return nil
	}

	rows, err := r.rc.ListOrders(ctx, sess.TenantID)
	if err != nil {
		log.Warn().Err(err).Msg("Remote orders pull failed, local cache left untouched")
		return err
	}

	list := make([]models.Order, 0, len(rows))
	for _, row := range rows {
		o, err := decodeOrderRow(row)
		if err != nil {
			log.Warn().Err(err).Str("order_id", row.ID).Msg("Skipping malformed remote order row")
			continue
		}

		if attrs, ok := r.ov.Lookup(ctx, o.ID); ok {
			overlay.Patch(&o, attrs)
		}
		r.remember(ctx, o)

		list = append(list, o)
	}

	r.Save(list)
	return nil
}

func (r *Orders) upsertLocal(ctx context.Context, o models.Order) {
	list := r.GetAll()
	replaced := false
	for i, existing := range list {
		if existing.ID == o.ID {
			list[i] = o
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, o)
	}
	r.Save(list)
	r.remember(ctx, o)
}

// remember refreshes the overlay whenever non-empty optional attributes are
// observed, so a later pull that drops them can be patched back.
func (r *Orders) remember(ctx context.Context, o models.Order) {
	attrs := overlay.Attrs{Waiter: o.Waiter, Fulfillment: o.Fulfillment}
	if !attrs.Empty() {
		r.ov.Remember(ctx, o.ID, attrs)
	}
}

// pushRemote replicates one order. Best effort, never rolled back.
func (r *Orders) pushRemote(ctx context.Context, o models.Order) {
	sess, ok := r.session(ctx)
	if !ok {
		return
	}

	row, err := encodeOrderRow(o)
	if err != nil {
		log.Error().Err(err).Str("order_id", o.ID).Msg("Failed to encode order for push")
		return
	}
	if err := r.rc.UpsertOrder(ctx, sess.TenantID, row); err != nil {
		log.Warn().Err(err).Str("order_id", o.ID).Msg("Remote order push failed, keeping local state")
	}
}

func (r *Orders) session(ctx context.Context) (*identity.Session, bool) {
	if sess, ok := r.ids.Session(); ok {
		return sess, true
	}
	sess, err := r.ids.Ensure(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("No session yet, staying local-only")
		return nil, false
	}
	return sess, true
}

// encodeOrderRow maps an order to its remote row, attaching the
// side-channel object to the first wire item when there is anything to
// carry.
func encodeOrderRow(o models.Order) (remote.OrderRow, error) {
	items := make([]wireItem, len(o.Items))
	for i, item := range o.Items {
		items[i] = wireItem{OrderItem: item}
	}

	meta := orderMeta{Waiter: o.Waiter, Fulfillment: o.Fulfillment}
	if (meta.Waiter != "" || !meta.Fulfillment.Empty()) && len(items) > 0 {
		items[0].Meta = &meta
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return remote.OrderRow{}, err
	}

	return remote.OrderRow{
		ID:        o.ID,
		Location:  o.Table,
		Status:    string(o.Status),
		Items:     raw,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}, nil
}

// decodeOrderRow maps a remote row back to an order, lifting the
// side-channel object off the first item and stripping it before the items
// can reach the UI.
func decodeOrderRow(row remote.OrderRow) (models.Order, error) {
	var items []wireItem
	if len(row.Items) > 0 {
		if err := json.Unmarshal(row.Items, &items); err != nil {
			return models.Order{}, err
		}
	}

	o := models.Order{
		ID:        row.ID,
		Table:     row.Location,
		Status:    models.OrderStatus(row.Status),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		Items:     make([]models.OrderItem, len(items)),
	}

	for i, item := range items {
		o.Items[i] = item.OrderItem
		if item.Meta != nil {
			o.Waiter = item.Meta.Waiter
			o.Fulfillment = item.Meta.Fulfillment
		}
	}

	return o, nil
}

// dropDelivered is the capacity compactor: terminal orders are pruned so the
// active ones survive a full store.
func dropDelivered(value []byte) ([]byte, bool) {
	var list []models.Order
	if err := json.Unmarshal(value, &list); err != nil {
		return nil, false
	}

	active := make([]models.Order, 0, len(list))
	for _, o := range list {
		if o.Status != models.StatusDelivered {
			active = append(active, o)
		}
	}
	if len(active) == len(list) {
		return nil, false
	}

	compacted, err := json.Marshal(active)
	if err != nil {
		return nil, false
	}
	return compacted, true
}
