package kv

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/core"
)

type memoryEntry struct {
	value     []byte
	expiresAt int64
}

// MemoryStore is an in-memory implementation of the KVStore interface
type MemoryStore struct {
	entries     map[string]memoryEntry
	mu          sync.RWMutex
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger, cleanupFreq time.Duration) *MemoryStore {
	store := &MemoryStore{
		entries:     make(map[string]memoryEntry),
		logger:      logger,
		cleanupFreq: cleanupFrequency(cleanupFreq),
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}

	go store.startCleanupTask()

	return store
}

func (s *MemoryStore) live(e memoryEntry) bool {
	return e.expiresAt == 0 || s.now().UnixMilli() < e.expiresAt
}

// Get retrieves the value stored under key
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || !s.live(e) {
		return nil, core.ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Put stores value under key
func (s *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.entries[key] = memoryEntry{value: stored, expiresAt: expiryMillis(s.now(), ttl)}
	return nil
}

// Delete removes a key
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// List returns the live keys with the given prefix, sorted
func (s *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := []string{}
	for key, e := range s.entries {
		if strings.HasPrefix(key, prefix) && s.live(e) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Cleanup removes expired entries
func (s *MemoryStore) Cleanup(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiredCount := 0
	for key, e := range s.entries {
		if !s.live(e) {
			delete(s.entries, key)
			expiredCount++
		}
	}

	s.logger.Debug("Cleaned up expired keys", zap.Int("expired_count", expiredCount))
	return nil
}

func (s *MemoryStore) startCleanupTask() {
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

// Close stops the background cleanup task; it is safe to call more than once
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	return nil
}
