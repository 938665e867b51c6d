// Package identity establishes the stable per-device principal used to
// satisfy the backend's row-level access rules without an interactive login.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"example.com/tableside/internal/remote"
	"example.com/tableside/internal/store"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const credentialsKey = "identity/credentials"

// Session is the explicit principal/tenant context threaded into every
// repository and scheduler call. It replaces ambient global state.
type Session struct {
	PrincipalID string
	TenantID    string
	Email       string
}

type storedCredentials struct {
	remote.Credentials
	PrincipalID string `json:"principalId,omitempty"`
}

// Manager performs the bootstrap and holds the current session. Bootstrap
// failure is never fatal: Ensure is retried lazily on next use and until it
// succeeds all remote push/pull operations are no-ops.
type Manager struct {
	st       *store.Store
	rc       remote.Client
	tenantID string

	mu      sync.Mutex
	session *Session
}

// NewManager creates a manager bound to the local store and backend client.
func NewManager(st *store.Store, rc remote.Client, tenantID string) *Manager {
	return &Manager{st: st, rc: rc, tenantID: tenantID}
}

// Session returns the current session, or false if bootstrap has not
// succeeded yet.
func (m *Manager) Session() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, false
	}
	return m.session, true
}

// Ensure resumes a previously established principal or synthesizes and
// registers a new one. Idempotent: a device keeps the same principal for its
// lifetime, and repeated calls after success are cheap.
func (m *Manager) Ensure(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return m.session, nil
	}

	if creds, ok := m.loadCredentials(); ok {
		principalID, err := m.rc.SignIn(ctx, creds.Credentials)
		if err == nil {
			m.session = &Session{PrincipalID: principalID, TenantID: m.tenantID, Email: creds.Email}
			log.Info().Str("principal_id", principalID).Msg("Resumed device principal")
			return m.session, nil
		}
		if errors.Is(err, remote.ErrUnavailable) {
			return nil, errors.Wrap(err, "bootstrap deferred")
		}
		log.Warn().Err(err).Msg("Stored credentials rejected, registering a new principal")
	}

	creds := synthesizeCredentials()
	principalID, err := m.rc.Register(ctx, m.tenantID, creds.Credentials)
	if err != nil {
		return nil, errors.Wrap(err, "failed to register device principal")
	}

	creds.PrincipalID = principalID
	m.saveCredentials(creds)

	m.session = &Session{PrincipalID: principalID, TenantID: m.tenantID, Email: creds.Email}
	log.Info().Str("principal_id", principalID).Msg("Bootstrapped new device principal")
	return m.session, nil
}

func (m *Manager) loadCredentials() (storedCredentials, bool) {
	var creds storedCredentials
	raw, ok := m.st.Read(credentialsKey)
	if !ok {
		return creds, false
	}
	if err := json.Unmarshal(raw, &creds); err != nil || creds.Email == "" {
		// Corrupt credentials are treated as absent.
		return storedCredentials{}, false
	}
	return creds, true
}

func (m *Manager) saveCredentials(creds storedCredentials) {
	raw, err := json.Marshal(creds)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal device credentials")
		return
	}
	m.st.Write(credentialsKey, raw)
}

func synthesizeCredentials() storedCredentials {
	secret := make([]byte, 24)
	rand.Read(secret)

	return storedCredentials{
		Credentials: remote.Credentials{
			Email:  fmt.Sprintf("device-%s@tableside.local", uuid.New().String()),
			Secret: hex.EncodeToString(secret),
		},
	}
}
