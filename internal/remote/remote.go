// Package remote talks to the shared multi-device backend: per-tenant row
// storage with upsert semantics, principal registration, and the row-change
// feed. The engine treats all of it as best effort; local operation never
// depends on the backend being reachable.
package remote

import (
	"context"
	"time"

	"example.com/tableside/config"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

var (
	// ErrUnavailable is returned by every operation when the backend
	// connection could not be established. Callers treat it like any other
	// push/pull failure.
	ErrUnavailable = errors.New("remote backend unavailable")

	// ErrInvalidCredentials is returned by SignIn when the stored
	// credentials no longer match a principal.
	ErrInvalidCredentials = errors.New("credentials rejected")
)

// Credentials identify a device principal against the backend.
type Credentials struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

// OrderRow mirrors the fixed external orders schema. There are no columns
// for fulfillment metadata or the serving-staff name; those ride inside the
// Items JSON through the metadata side-channel.
type OrderRow struct {
	ID        string    `gorm:"primaryKey"`
	TenantID  string    `gorm:"index;not null"`
	Location  string    `gorm:"not null"`
	Status    string    `gorm:"not null"`
	Items     []byte    `gorm:"type:jsonb"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// EntityRow is the generic per-tenant row shape used by every entity kind
// other than orders.
type EntityRow struct {
	Kind      string    `gorm:"primaryKey"`
	ID        string    `gorm:"primaryKey"`
	TenantID  string    `gorm:"index;not null"`
	Payload   []byte    `gorm:"type:jsonb"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// PrincipalRow is a registered device principal.
type PrincipalRow struct {
	ID        string    `gorm:"primaryKey"`
	Email     string    `gorm:"uniqueIndex;not null"`
	Secret    string    `gorm:"not null"`
	TenantID  string    `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Client is the backend surface the repositories and identity bootstrap use.
// All writes are upserts keyed by id, so retries and concurrent pushes from
// other devices interleave safely (last write wins).
type Client interface {
	Register(ctx context.Context, tenantID string, creds Credentials) (string, error)
	SignIn(ctx context.Context, creds Credentials) (string, error)

	UpsertOrder(ctx context.Context, tenantID string, row OrderRow) error
	DeleteOrder(ctx context.Context, tenantID, id string) error
	ListOrders(ctx context.Context, tenantID string) ([]OrderRow, error)

	UpsertEntity(ctx context.Context, tenantID, kind, id string, payload []byte) error
	DeleteEntity(ctx context.Context, tenantID, kind, id string) error
	ListEntities(ctx context.Context, tenantID, kind string) ([][]byte, error)

	Close() error
}

// GormClient implements Client against a Postgres backend.
type GormClient struct {
	db      *gorm.DB
	enabled bool
}

// Connect opens the backend connection and runs migrations. On failure the
// caller is expected to continue with Unavailable().
func Connect(cfg config.RemoteConfig) (*GormClient, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to remote backend")
	}

	if err := db.AutoMigrate(&OrderRow{}, &EntityRow{}, &PrincipalRow{}); err != nil {
		return nil, errors.Wrap(err, "failed to run remote migrations")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying DB connection")
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &GormClient{db: db, enabled: true}, nil
}

// Unavailable returns a client whose every operation fails with
// ErrUnavailable. Used when the backend is unreachable at startup so the
// engine can keep running local-only.
func Unavailable() *GormClient {
	return &GormClient{enabled: false}
}

// Register creates a new principal for the given credentials.
func (c *GormClient) Register(ctx context.Context, tenantID string, creds Credentials) (string, error) {
	if !c.enabled {
		return "", ErrUnavailable
	}

	row := PrincipalRow{
		ID:       uuid.New().String(),
		Email:    creds.Email,
		Secret:   creds.Secret,
		TenantID: tenantID,
	}
	if err := c.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", errors.Wrap(err, "failed to register principal")
	}

	log.Info().Str("principal_id", row.ID).Msg("Registered new device principal")
	return row.ID, nil
}

// SignIn resumes an existing principal from its credentials.
func (c *GormClient) SignIn(ctx context.Context, creds Credentials) (string, error) {
	if !c.enabled {
		return "", ErrUnavailable
	}

	var row PrincipalRow
	err := c.db.WithContext(ctx).
		Where("email = ? AND secret = ?", creds.Email, creds.Secret).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to sign in principal")
	}
	return row.ID, nil
}

// UpsertOrder writes a whole order row keyed by id.
func (c *GormClient) UpsertOrder(ctx context.Context, tenantID string, row OrderRow) error {
	if !c.enabled {
		return ErrUnavailable
	}

	row.TenantID = tenantID
	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	return errors.Wrap(err, "failed to upsert order row")
}

// DeleteOrder removes an order row.
func (c *GormClient) DeleteOrder(ctx context.Context, tenantID, id string) error {
	if !c.enabled {
		return ErrUnavailable
	}

	err := c.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&OrderRow{}).Error
	return errors.Wrap(err, "failed to delete order row")
}

// ListOrders fetches the tenant's order rows.
func (c *GormClient) ListOrders(ctx context.Context, tenantID string) ([]OrderRow, error) {
	if !c.enabled {
		return nil, ErrUnavailable
	}

	var rows []OrderRow
	err := c.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list order rows")
	}
	return rows, nil
}

// UpsertEntity writes a generic entity row keyed by (kind, id).
func (c *GormClient) UpsertEntity(ctx context.Context, tenantID, kind, id string, payload []byte) error {
	if !c.enabled {
		return ErrUnavailable
	}

	row := EntityRow{Kind: kind, ID: id, TenantID: tenantID, Payload: payload}
	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	return errors.Wrapf(err, "failed to upsert %s row", kind)
}

// DeleteEntity removes a generic entity row.
func (c *GormClient) DeleteEntity(ctx context.Context, tenantID, kind, id string) error {
	if !c.enabled {
		return ErrUnavailable
	}

	err := c.db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ? AND id = ?", tenantID, kind, id).
		Delete(&EntityRow{}).Error
	return errors.Wrapf(err, "failed to delete %s row", kind)
}

// ListEntities fetches the tenant's rows of one kind as raw payloads.
func (c *GormClient) ListEntities(ctx context.Context, tenantID, kind string) ([][]byte, error) {
	if !c.enabled {
		return nil, ErrUnavailable
	}

	var rows []EntityRow
	err := c.db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ?", tenantID, kind).
		Order("updated_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s rows", kind)
	}

	payloads := make([][]byte, 0, len(rows))
	for _, row := range rows {
		payloads = append(payloads, row.Payload)
	}
	return payloads, nil
}

// Close closes the backend connection.
func (c *GormClient) Close() error {
	if !c.enabled {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
