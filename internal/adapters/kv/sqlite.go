package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/core"
)

// SQLiteStore is a SQLite implementation of the KVStore interface
type SQLiteStore struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

// NewSQLiteStore opens (or creates) the database at dbPath
func NewSQLiteStore(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// SQLite serializes writers anyway and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS kv_store (
			kv_key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_kv_expires_at ON kv_store(expires_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	store := &SQLiteStore{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFrequency(cleanupFreq),
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}

	go store.startCleanupTask()

	return store, nil
}

// Get retrieves the value stored under key
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM kv_store
		WHERE kv_key = ? AND (expires_at = 0 OR expires_at > ?)
	`, key, s.now().UnixMilli()).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query key %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key
func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO kv_store (kv_key, value, expires_at)
		VALUES (?, ?, ?)
	`, key, value, expiryMillis(s.now(), ttl))
	if err != nil {
		return fmt.Errorf("failed to store key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE kv_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// List returns the live keys with the given prefix, sorted
func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]string, error) {
	query := `SELECT kv_key FROM kv_store WHERE kv_key >= ? AND (expires_at = 0 OR expires_at > ?)`
	args := []interface{}{prefix, s.now().UnixMilli()}
	if upper := prefixUpperBound(prefix); upper != "" {
		query += ` AND kv_key < ?`
		args = append(args, upper)
	}
	query += ` ORDER BY kv_key`

	return queryKeys(ctx, s.db, query, args...)
}

// Cleanup removes expired entries
func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM kv_store
		WHERE expires_at != 0 AND expires_at <= ?
	`, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to clean up expired keys: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up expired keys", zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

func (s *SQLiteStore) startCleanupTask() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Cleanup(context.Background()); err != nil {
				s.logger.Error("Failed to clean up store", zap.Error(err))
			}
		case <-s.stopCh:
			return
		}
	}
}

// Close stops the background cleanup task and closes the database connection
func (s *SQLiteStore) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopCh)
		err = s.db.Close()
	})
	return err
}

// queryKeys runs a single-column key query
func queryKeys(ctx context.Context, db *sql.DB, query string, args ...interface{}) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}
