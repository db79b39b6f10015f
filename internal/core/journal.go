package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Journal is the public activity log
type Journal struct {
	kv     KVStore
	logger *zap.Logger
	now    func() time.Time
}

// NewJournal creates a new journal
func NewJournal(kv KVStore, logger *zap.Logger) *Journal {
	return &Journal{kv: kv, logger: logger, now: time.Now}
}

// Append stores a new entry; keys sort chronologically
func (j *Journal) Append(ctx context.Context, category LogCategory, title, description string, aiDecision bool, principles ...string) (*LogEntry, error) {
	now := j.now()
	entry := &LogEntry{
		ID:          uuid.NewString(),
		Timestamp:   now,
		Category:    category,
		Title:       title,
		Description: description,
		AIDecision:  aiDecision,
		Principles:  principles,
	}
	key := fmt.Sprintf("%s%013d-%s", logKeyPrefix, now.UnixMilli(), entry.ID[:8])
	if err := putJSON(ctx, j.kv, key, entry, logTTL); err != nil {
		return nil, err
	}
	return entry, nil
}

// Recent returns up to limit entries, newest first. A limit of zero or less returns all.
func (j *Journal) Recent(ctx context.Context, limit int) ([]*LogEntry, error) {
	keys, err := j.kv.List(ctx, logKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list log entries: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	var entries []*LogEntry
	for _, key := range keys {
		if limit > 0 && len(entries) >= limit {
			break
		}
		data, err := j.kv.Get(ctx, key)
		if err != nil {
			if !isNotFound(err) {
				j.logger.Error("Failed to read log entry", zap.String("key", key), zap.Error(err))
			}
			continue
		}
		entry, err := DecodeLogEntry(data)
		if err != nil {
			j.logger.Warn("Skipping unreadable log entry", zap.String("key", key), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
