package repos

import (
	"context"
	"encoding/json"

	"example.com/tableside/internal/events"
	"example.com/tableside/internal/identity"
	"example.com/tableside/internal/models"
	"example.com/tableside/internal/remote"
	"example.com/tableside/internal/store"

	"github.com/rs/zerolog/log"
)

const (
	settingsKey = "entities/settings"
	settingsID  = "settings"
)

// SettingsRepo holds the single settings document. Reads always return a
// complete document: absent or partial state is filled from the defaults so
// callers never branch on missing sections.
type SettingsRepo struct {
	st  *store.Store
	bus *events.Bus
	ids *identity.Manager
	rc  remote.Client
}

func NewSettings(st *store.Store, bus *events.Bus, ids *identity.Manager, rc remote.Client) *SettingsRepo {
	return &SettingsRepo{st: st, bus: bus, ids: ids, rc: rc}
}

// Kind returns the settings entity kind.
func (r *SettingsRepo) Kind() events.Kind { return events.KindSettings }

// Get reads the settings document, filling any missing sections with their
// defaults. Corrupt state yields the full defaults.
func (r *SettingsRepo) Get() models.Settings {
	raw, ok := r.st.Read(settingsKey)
	if !ok {
		return models.DefaultSettings()
	}

	var s models.Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		log.Warn().Err(err).Msg("Corrupt settings cache, falling back to defaults")
		return models.DefaultSettings()
	}
	s.FillDefaults()
	return s
}

// Save overwrites the local document and emits exactly one change event.
func (r *SettingsRepo) Save(s models.Settings) {
	raw, err := json.Marshal(s)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal settings")
		return
	}
	r.st.Write(settingsKey, raw)
	r.bus.Publish(events.KindSettings)
}

// Update commits the document locally and replicates it best effort.
func (r *SettingsRepo) Update(ctx context.Context, s models.Settings) {
	r.Save(s)

	sess, ok := r.session(ctx)
	if !ok {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := r.rc.UpsertEntity(ctx, sess.TenantID, string(events.KindSettings), settingsID, raw); err != nil {
		log.Warn().Err(err).Msg("Remote settings push failed, keeping local state")
	}
}

// PullRemote adopts the remote document when one exists. No remote rows
// means nothing to adopt, the local document stays as is.
func (r *SettingsRepo) PullRemote(ctx context.Context) error {
	sess, ok := r.session(ctx)
	if !ok {
		return nil
	}

	rows, err := r.rc.ListEntities(ctx, sess.TenantID, string(events.KindSettings))
	if err != nil {
		log.Warn().Err(err).Msg("Remote settings pull failed, local document left untouched")
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	var s models.Settings
	if err := json.Unmarshal(rows[0], &s); err != nil {
		log.Warn().Err(err).Msg("Skipping malformed remote settings document")
		return nil
	}
	s.FillDefaults()
	r.Save(s)
	return nil
}

func (r *SettingsRepo) session(ctx context.Context) (*identity.Session, bool) {
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
