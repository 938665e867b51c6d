// Package store provides the durable bounded key/value store that backs the
// entity repositories on the device. The local store is authoritative for
// what the UI sees right now; remote replication happens elsewhere.
package store

import (
	"database/sql"
	"fmt"
	"sync"

	"example.com/tableside/internal/events"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Compactor shrinks a value that does not fit the capacity quota. It returns
// the compacted value and whether compaction produced anything smaller worth
// retrying with.
type Compactor func(value []byte) (compacted []byte, ok bool)

// Store is a SQLite-backed key/value store with a byte capacity quota.
// Writes are synchronous and never return an error to the caller: a write
// that exceeds the quota runs the key's registered compactor once and
// retries, and if still over quota the write is abandoned and a
// store-pressure event is published.
type Store struct {
	db       *sql.DB
	maxBytes int64
	bus      *events.Bus

	mu         sync.Mutex
	compactors map[string]Compactor
}

// Open creates or opens the store database at the given path.
//
// The database is configured with WAL mode, NORMAL synchronous mode and a
// single writer connection. Safe to call multiple times on the same path.
func Open(path string, maxBytes int64, bus *events.Bus) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to store database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply store schema: %w", err)
	}

	return &Store{
		db:         db,
		maxBytes:   maxBytes,
		bus:        bus,
		compactors: make(map[string]Compactor),
	}, nil
}

// RegisterCompactor installs the corrective strategy applied when a write of
// the given key exceeds the capacity quota.
func (s *Store) RegisterCompactor(key string, fn Compactor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compactors[key] = fn
}

// Read returns the stored value for key. A missing value yields ok=false;
// callers map that to the entity's documented default.
func (s *Store) Read(key string) ([]byte, bool) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Warn().Err(err).Str("key", key).Msg("Failed to read from local store")
		}
		return nil, false
	}
	return value, true
}

// Write persists value under key. It never returns an error: on a capacity
// failure the key's compactor (if any) is applied once and the write retried;
// an unrecovered failure is abandoned silently apart from a store-pressure
// event, and the caller's in-memory value remains valid for the rest of the
// process.
func (s *Store) Write(key string, value []byte) {
	if s.fits(key, value) {
		s.put(key, value)
		return
	}

	s.mu.Lock()
	compact := s.compactors[key]
	s.mu.Unlock()

	if compact != nil {
		if compacted, ok := compact(value); ok && s.fits(key, compacted) {
			log.Warn().Str("key", key).
				Int("before", len(value)).
				Int("after", len(compacted)).
				Msg("Local store over capacity, persisted compacted value")
			s.put(key, compacted)
			return
		}
	}

	log.Warn().Str("key", key).Int("size", len(value)).Msg("Local store over capacity, write abandoned")
	if s.bus != nil {
		s.bus.PublishPressure(key)
	}
}

// Delete removes a key. Missing keys are not an error.
func (s *Store) Delete(key string) {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to delete from local store")
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// fits reports whether writing value under key keeps the store within its
// byte quota. A quota of zero or less means unbounded.
func (s *Store) fits(key string, value []byte) bool {
	if s.maxBytes <= 0 {
		return true
	}

	var others int64
	err := s.db.QueryRow(
		"SELECT COALESCE(SUM(LENGTH(value)), 0) FROM kv WHERE key != ?", key,
	).Scan(&others)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to compute local store usage")
		return true
	}

	return others+int64(len(value)) <= s.maxBytes
}

func (s *Store) put(key string, value []byte) {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		// Treated like a capacity failure: the in-memory value stays valid,
		// the UI is told the store is under pressure.
		log.Warn().Err(err).Str("key", key).Msg("Failed to write to local store")
		if s.bus != nil {
			s.bus.PublishPressure(key)
		}
	}
}
