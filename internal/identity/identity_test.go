package identity

import (
	"context"
	"path/filepath"
	"testing"

	"example.com/tableside/internal/remote"
	"example.com/tableside/internal/store"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock remote client for testing
type MockRemoteClient struct {
	mock.Mock
}

func (m *MockRemoteClient) Register(ctx context.Context, tenantID string, creds remote.Credentials) (string, error) {
	args := m.Called(ctx, tenantID, creds)
	return args.String(0), args.Error(1)
}

func (m *MockRemoteClient) SignIn(ctx context.Context, creds remote.Credentials) (string, error) {
	args := m.Called(ctx, creds)
	return args.String(0), args.Error(1)
}

func (m *MockRemoteClient) UpsertOrder(ctx context.Context, tenantID string, row remote.OrderRow) error {
	return m.Called(ctx, tenantID, row).Error(0)
}

func (m *MockRemoteClient) DeleteOrder(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *MockRemoteClient) ListOrders(ctx context.Context, tenantID string) ([]remote.OrderRow, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]remote.OrderRow), args.Error(1)
}

func (m *MockRemoteClient) UpsertEntity(ctx context.Context, tenantID, kind, id string, payload []byte) error {
	return m.Called(ctx, tenantID, kind, id, payload).Error(0)
}

func (m *MockRemoteClient) DeleteEntity(ctx context.Context, tenantID, kind, id string) error {
	return m.Called(ctx, tenantID, kind, id).Error(0)
}

func (m *MockRemoteClient) ListEntities(ctx context.Context, tenantID, kind string) ([][]byte, error) {
	args := m.Called(ctx, tenantID, kind)
	return args.Get(0).([][]byte), args.Error(1)
}

func (m *MockRemoteClient) Close() error {
	return m.Called().Error(0)
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "store.db"), 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestEnsureRegistersNewPrincipal(t *testing.T) {
	st := openTestStore(t)

	rc := new(MockRemoteClient)
	rc.On("Register", mock.Anything, "tenant-1", mock.Anything).Return("principal-1", nil)

	m := NewManager(st, rc, "tenant-1")

	_, ok := m.Session()
	require.False(t, ok)

	sess, err := m.Ensure(context.Background())
	require.NoError(t, err)
	require.Equal(t, "principal-1", sess.PrincipalID)
	require.Equal(t, "tenant-1", sess.TenantID)
	require.Contains(t, sess.Email, "@tableside.local")

	rc.AssertNumberOfCalls(t, "Register", 1)
}

func TestEnsureIsIdempotentAfterSuccess(t *testing.T) {
	st := openTestStore(t)

	rc := new(MockRemoteClient)
	rc.On("Register", mock.Anything, "tenant-1", mock.Anything).Return("principal-1", nil)

	m := NewManager(st, rc, "tenant-1")

	first, err := m.Ensure(context.Background())
	require.NoError(t, err)
	second, err := m.Ensure(context.Background())
	require.NoError(t, err)

	require.Same(t, first, second)
	rc.AssertNumberOfCalls(t, "Register", 1)
}

func TestEnsureResumesStoredCredentials(t *testing.T) {
	st := openTestStore(t)

	rc := new(MockRemoteClient)
	rc.On("Register", mock.Anything, "tenant-1", mock.Anything).Return("principal-1", nil)

	m := NewManager(st, rc, "tenant-1")
	_, err := m.Ensure(context.Background())
	require.NoError(t, err)

	// A fresh manager over the same store resumes rather than
	// re-registering
	rc2 := new(MockRemoteClient)
	rc2.On("SignIn", mock.Anything, mock.Anything).Return("principal-1", nil)

	m2 := NewManager(st, rc2, "tenant-1")
	sess, err := m2.Ensure(context.Background())
	require.NoError(t, err)
	require.Equal(t, "principal-1", sess.PrincipalID)

	rc2.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsureDefersWhenBackendUnreachable(t *testing.T) {
	st := openTestStore(t)

	rc := new(MockRemoteClient)
	rc.On("Register", mock.Anything, "tenant-1", mock.Anything).Return("", remote.ErrUnavailable)

	m := NewManager(st, rc, "tenant-1")

	_, err := m.Ensure(context.Background())
	require.Error(t, err)

	_, ok := m.Session()
	require.False(t, ok)
}

func TestEnsureReplacesRejectedCredentials(t *testing.T) {
	st := openTestStore(t)
	st.Write("identity/credentials", []byte(`{"email":"device-old@tableside.local","secret":"s3cret"}`))

	rc := new(MockRemoteClient)
	rc.On("SignIn", mock.Anything, mock.Anything).Return("", remote.ErrInvalidCredentials)
	rc.On("Register", mock.Anything, "tenant-1", mock.Anything).Return("principal-2", nil)

	m := NewManager(st, rc, "tenant-1")

	sess, err := m.Ensure(context.Background())
	require.NoError(t, err)
	require.Equal(t, "principal-2", sess.PrincipalID)
}

func TestCorruptStoredCredentialsTreatedAsAbsent(t *testing.T) {
	st := openTestStore(t)
	st.Write("identity/credentials", []byte("{not json"))

	rc := new(MockRemoteClient)
	rc.On("Register", mock.Anything, "tenant-1", mock.Anything).Return("principal-1", nil)

	m := NewManager(st, rc, "tenant-1")

	sess, err := m.Ensure(context.Background())
	require.NoError(t, err)
	require.Equal(t, "principal-1", sess.PrincipalID)
	rc.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything)
}
