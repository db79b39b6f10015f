package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/core"
)

// MySQLStore is a MySQL implementation of the KVStore interface
type MySQLStore struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

// NewMySQLStore connects to dsn and creates the table if needed
func NewMySQLStore(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	// Binary collation keeps key comparisons byte-exact for prefix scans.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS kv_store (
			kv_key VARCHAR(512) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin PRIMARY KEY,
			value MEDIUMBLOB NOT NULL,
			expires_at BIGINT NOT NULL DEFAULT 0,
			INDEX idx_kv_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	store := &MySQLStore{
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
func (s *MySQLStore) Get(ctx context.Context, key string) ([]byte, error) {
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
func (s *MySQLStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_store (kv_key, value, expires_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			value = VALUES(value),
			expires_at = VALUES(expires_at)
	`, key, value, expiryMillis(s.now(), ttl))
	if err != nil {
		return fmt.Errorf("failed to store key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key
func (s *MySQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE kv_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// List returns the live keys with the given prefix, sorted
func (s *MySQLStore) List(ctx context.Context, prefix string) ([]string, error) {
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
func (s *MySQLStore) Cleanup(ctx context.Context) error {
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

func (s *MySQLStore) startCleanupTask() {
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
func (s *MySQLStore) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopCh)
		err = s.db.Close()
	})
	return err
}
