package repos

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"example.com/tableside/internal/events"
	"example.com/tableside/internal/identity"
	"example.com/tableside/internal/models"
	"example.com/tableside/internal/store"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type settingsFixture struct {
	bus      *events.Bus
	st       *store.Store
	rc       *MockRemoteClient
	settings *SettingsRepo
}

func newSettingsFixture(t *testing.T) *settingsFixture {
	t.Helper()

	bus := events.NewBus()
	st, err := store.Open(filepath.Join(t.TempDir(), "store.db"), 0, bus)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	rc := new(MockRemoteClient)
	rc.On("SignIn", mock.Anything, mock.Anything).Return("principal-1", nil)
	rc.On("Register", mock.Anything, mock.Anything, mock.Anything).Return("principal-1", nil)

	ids := identity.NewManager(st, rc, "tenant-1")

	return &settingsFixture{
		bus:      bus,
		st:       st,
		rc:       rc,
		settings: NewSettings(st, bus, ids, rc),
	}
}

func TestGetOnEmptyStoreReturnsDefaults(t *testing.T) {
	f := newSettingsFixture(t)

	s := f.settings.Get()
	require.NotEmpty(t, s.Departments)
	require.NotEmpty(t, s.CategoryRouting)
	require.Positive(t, s.HistoryRetainDays)
}

func TestGetFillsMissingSections(t *testing.T) {
	f := newSettingsFixture(t)

	partial := models.Settings{Profile: models.BusinessProfile{Name: "Trattoria"}}
	raw, err := json.Marshal(partial)
	require.NoError(t, err)
	f.st.Write("entities/settings", raw)

	s := f.settings.Get()
	require.Equal(t, "Trattoria", s.Profile.Name)
	require.NotEmpty(t, s.Departments)
	require.Positive(t, s.HistoryRetainDays)
}

func TestGetOnCorruptStoreReturnsDefaults(t *testing.T) {
	f := newSettingsFixture(t)

	f.st.Write("entities/settings", []byte("{not json"))

	s := f.settings.Get()
	require.NotEmpty(t, s.Departments)
}

func TestUpdatePushesSettingsDocument(t *testing.T) {
	f := newSettingsFixture(t)

	f.rc.On("UpsertEntity", mock.Anything, "tenant-1", "settings", "settings", mock.Anything).Return(nil)

	s := f.settings.Get()
	s.Profile.Name = "Trattoria"
	f.settings.Update(context.Background(), s)

	require.Equal(t, "Trattoria", f.settings.Get().Profile.Name)
	f.rc.AssertCalled(t, "UpsertEntity", mock.Anything, "tenant-1", "settings", "settings", mock.Anything)
}

func TestPullRemoteWithNoRowsLeavesLocalAlone(t *testing.T) {
	f := newSettingsFixture(t)

	s := f.settings.Get()
	s.Profile.Name = "Trattoria"
	f.settings.Save(s)

	f.rc.On("ListEntities", mock.Anything, "tenant-1", "settings").Return([][]byte{}, nil)

	require.NoError(t, f.settings.PullRemote(context.Background()))
	require.Equal(t, "Trattoria", f.settings.Get().Profile.Name)
}

func TestPullRemoteAdoptsRemoteDocument(t *testing.T) {
	f := newSettingsFixture(t)

	remoteDoc := models.DefaultSettings()
	remoteDoc.Profile.Name = "Osteria"
	raw, err := json.Marshal(remoteDoc)
	require.NoError(t, err)

	f.rc.On("ListEntities", mock.Anything, "tenant-1", "settings").Return([][]byte{raw}, nil)

	require.NoError(t, f.settings.PullRemote(context.Background()))
	require.Equal(t, "Osteria", f.settings.Get().Profile.Name)
}

func TestGenericRepoAddUpdateDelete(t *testing.T) {
	f := newSettingsFixture(t)
	ctx := context.Background()

	f.rc.On("UpsertEntity", mock.Anything, "tenant-1", "menu_items", mock.Anything, mock.Anything).Return(nil)
	f.rc.On("DeleteEntity", mock.Anything, "tenant-1", "menu_items", "espresso").Return(nil)

	ids := identity.NewManager(f.st, f.rc, "tenant-1")
	menu := NewMenuItems(f.st, f.bus, ids, f.rc)

	menu.Add(ctx, models.MenuItem{ID: "espresso", Name: "Espresso", Price: 2.5})
	require.Len(t, menu.GetAll(), 1)

	menu.Update(ctx, models.MenuItem{ID: "espresso", Name: "Espresso", Price: 3})
	list := menu.GetAll()
	require.Len(t, list, 1)
	require.Equal(t, float64(3), list[0].Price)

	menu.Delete(ctx, "espresso")
	require.Empty(t, menu.GetAll())
}
