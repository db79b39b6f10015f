package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/adapters/kv"
	"github.com/proofofcorn/farmer-fred/internal/config"
	"github.com/proofofcorn/farmer-fred/internal/core"
)

// Store is a key-value backend that must be closed on shutdown
type Store interface {
	core.KVStore
	Close() error
}

// KVFactory creates key-value stores based on configuration
type KVFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewKVFactory creates a new key-value store factory
func NewKVFactory(cfg *config.Config, logger *zap.Logger) *KVFactory {
	return &KVFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore creates the configured key-value store
func (f *KVFactory) CreateStore() (Store, error) {
	kvCfg := f.cfg.GetKV()

	switch kvCfg.Type {
	case "memory":
		return kv.NewMemoryStore(f.logger, kvCfg.CleanupFrequency), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(kvCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		store, err := kv.NewSQLiteStore(kvCfg.SQLitePath, f.logger, kvCfg.CleanupFrequency)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "mysql":
		store, err := kv.NewMySQLStore(kvCfg.MySQLDSN, f.logger, kvCfg.CleanupFrequency)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported kv type: %s", kvCfg.Type)
	}
}
