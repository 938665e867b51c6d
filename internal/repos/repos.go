// Package repos implements the per-entity-kind repositories: local-first
// reads and writes against the bounded store, with best-effort replication
// to the remote backend. The local mutation is the commit; the remote is a
// replicated copy.
package repos

import (
	"context"
	"encoding/json"

	"example.com/tableside/internal/events"
	"example.com/tableside/internal/identity"
	"example.com/tableside/internal/remote"
	"example.com/tableside/internal/store"

	"github.com/rs/zerolog/log"
)

// Entity is anything addressable by an opaque string id.
type Entity interface {
	EntityID() string
}

// Puller is the slice of a repository the sync scheduler drives.
type Puller interface {
	Kind() events.Kind
	PullRemote(ctx context.Context) error
}

// Repo is the uniform repository over one entity kind. Orders and settings
// have specialised repositories; everything else uses Repo directly.
type Repo[E Entity] struct {
	kind events.Kind
	key  string
	st   *store.Store
	bus  *events.Bus
	ids  *identity.Manager
	rc   remote.Client
}

func newRepo[E Entity](kind events.Kind, st *store.Store, bus *events.Bus, ids *identity.Manager, rc remote.Client) *Repo[E] {
	return &Repo[E]{
		kind: kind,
		key:  "entities/" + string(kind),
		st:   st,
		bus:  bus,
		ids:  ids,
		rc:   rc,
	}
}

// Kind returns the repository's entity kind.
func (r *Repo[E]) Kind() events.Kind { return r.kind }

// GetAll reads the local cache. Absence or corruption yields an empty list.
func (r *Repo[E]) GetAll() []E {
	raw, ok := r.st.Read(r.key)
	if !ok {
		return []E{}
	}

	var list []E
	if err := json.Unmarshal(raw, &list); err != nil {
		log.Warn().Err(err).Str("kind", string(r.kind)).Msg("Corrupt local cache, falling back to empty list")
		return []E{}
	}
	if list == nil {
		list = []E{}
	}
	return list
}

// Save overwrites the local cache and emits exactly one change event,
// whether or not the content changed. Idempotent.
func (r *Repo[E]) Save(list []E) {
	raw, err := json.Marshal(list)
	if err != nil {
		log.Error().Err(err).Str("kind", string(r.kind)).Msg("Failed to marshal entity list")
		return
	}
	r.st.Write(r.key, raw)
	r.bus.Publish(r.kind)
}

// Add appends (or replaces by id) an entity locally, then replicates.
func (r *Repo[E]) Add(ctx context.Context, e E) {
	r.upsertLocal(e)
	r.pushRemote(ctx, e)
}

// Update replaces an entity by id locally, then replicates.
func (r *Repo[E]) Update(ctx context.Context, e E) {
	r.upsertLocal(e)
	r.pushRemote(ctx, e)
}

// Delete removes an entity locally, then replicates the deletion.
func (r *Repo[E]) Delete(ctx context.Context, id string) {
	list := r.GetAll()
	next := make([]E, 0, len(list))
	for _, e := range list {
		if e.EntityID() != id {
			next = append(next, e)
		}
	}
	r.Save(next)

	sess, ok := r.session(ctx)
	if !ok {
		return
	}
	if err := r.rc.DeleteEntity(ctx, sess.TenantID, string(r.kind), id); err != nil {
		log.Warn().Err(err).Str("kind", string(r.kind)).Str("id", id).Msg("Remote delete failed, keeping local state")
	}
}

// PullRemote fetches the tenant's rows, maps them and overwrites the local
// cache. Failures leave the cache untouched: stale data beats a blank UI.
func (r *Repo[E]) PullRemote(ctx context.Context) error {
	sess, ok := r.session(ctx)
	if !ok {
		return nil
	}

	payloads, err := r.rc.ListEntities(ctx, sess.TenantID, string(r.kind))
	if err != nil {
		log.Warn().Err(err).Str("kind", string(r.kind)).Msg("Remote pull failed, local cache left untouched")
		return err
	}

	list := make([]E, 0, len(payloads))
	for _, payload := range payloads {
		var e E
		if err := json.Unmarshal(payload, &e); err != nil {
			log.Warn().Err(err).Str("kind", string(r.kind)).Msg("Skipping malformed remote row")
			continue
		}
		list = append(list, e)
	}

	r.Save(list)
	return nil
}

func (r *Repo[E]) upsertLocal(e E) {
	list := r.GetAll()
	replaced := false
	for i, existing := range list {
		if existing.EntityID() == e.EntityID() {
			list[i] = e
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, e)
	}
	r.Save(list)
}

// pushRemote replicates one entity. Best effort: on failure it logs and
// returns; the local commit is never rolled back.
func (r *Repo[E]) pushRemote(ctx context.Context, e E) {
	sess, ok := r.session(ctx)
	if !ok {
		return
	}

	payload, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("kind", string(r.kind)).Msg("Failed to marshal entity for push")
		return
	}
	if err := r.rc.UpsertEntity(ctx, sess.TenantID, string(r.kind), e.EntityID(), payload); err != nil {
		log.Warn().Err(err).Str("kind", string(r.kind)).Str("id", e.EntityID()).Msg("Remote push failed, keeping local state")
	}
}

// session returns the current principal, lazily retrying bootstrap. Without
// a session every remote operation is a no-op and the device runs
// local-only.
func (r *Repo[E]) session(ctx context.Context) (*identity.Session, bool) {
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
