package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	maxFollowUpAttempts = 2
	leadFollowUpDelay   = 2 * 24 * time.Hour
	otherFollowUpDelay  = 4 * 24 * time.Hour
)

// FollowUpScheduler tracks outbound messages awaiting a reply
type FollowUpScheduler struct {
	kv        KVStore
	tasks     *TaskBoard
	blocklist ContactBlocklist
	logger    *zap.Logger
	now       func() time.Time
}

// NewFollowUpScheduler creates a new follow-up scheduler
func NewFollowUpScheduler(kv KVStore, tasks *TaskBoard, blocklist ContactBlocklist, logger *zap.Logger) *FollowUpScheduler {
	return &FollowUpScheduler{
		kv:        kv,
		tasks:     tasks,
		blocklist: blocklist,
		logger:    logger,
		now:       time.Now,
	}
}

// ScheduleFollowUp records that contact was written to and should get a reminder if
// they stay silent. It reports whether a record was written.
func (s *FollowUpScheduler) ScheduleFollowUp(ctx context.Context, contact string, category Category, subject string) (bool, error) {
	contact = strings.TrimSpace(contact)
	if contact == "" || s.blocklist.IsBlocked(contact) {
		s.logger.Info("Skipping follow-up for blocked address", zap.String("contact", contact))
		return false, nil
	}

	key := FollowUpKey(contact)
	existing, err := s.load(ctx, key)
	if err != nil {
		return false, err
	}
	if existing != nil && existing.Attempts >= maxFollowUpAttempts {
		s.logger.Debug("Follow-up attempts exhausted", zap.String("contact", contact))
		return false, nil
	}

	if category == "" {
		category = CategoryOther
	}
	delay := otherFollowUpDelay
	if category == CategoryLead {
		delay = leadFollowUpDelay
	}

	now := s.now()
	record := FollowUpRecord{
		Contact:       contact,
		Subject:       subject,
		SentAt:        now,
		FollowUpAfter: now.Add(delay),
		Category:      category,
	}
	if existing != nil {
		record.Attempts = existing.Attempts + 1
	}

	if err := putJSON(ctx, s.kv, key, record, followUpTTL); err != nil {
		return false, err
	}
	s.logger.Info("Scheduled follow-up",
		zap.String("contact", contact),
		zap.Time("due_at", record.FollowUpAfter),
		zap.Int("attempts", record.Attempts))
	return true, nil
}

// CheckOverdueFollowUps turns every due follow-up record into a task and removes the record
func (s *FollowUpScheduler) CheckOverdueFollowUps(ctx context.Context) ([]*Task, error) {
	keys, err := s.kv.List(ctx, followUpKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-ups: %w", err)
	}

	now := s.now()
	var created []*Task
	for _, key := range keys {
		record, err := s.load(ctx, key)
		if err != nil {
			s.logger.Error("Failed to load follow-up", zap.String("key", key), zap.Error(err))
			continue
		}
		if record == nil || record.FollowUpAfter.After(now) {
			continue
		}

		priority := PriorityMedium
		if record.Category == CategoryLead {
			priority = PriorityHigh
		}
		task := &Task{
			Type:     TaskFollowUp,
			Priority: priority,
			Title:    fmt.Sprintf("Follow up with %s", record.Contact),
			Description: fmt.Sprintf(
				"No reply received since %s. Original subject: %q. Attempt %d of %d. Send a gentle reminder.",
				record.SentAt.UTC().Format(time.RFC3339), record.Subject, record.Attempts+1, maxFollowUpAttempts),
		}
		if err := s.tasks.Create(ctx, task); err != nil {
			s.logger.Error("Failed to create follow-up task", zap.String("contact", record.Contact), zap.Error(err))
			continue
		}
		if err := s.kv.Delete(ctx, key); err != nil {
			s.logger.Error("Failed to delete follow-up", zap.String("key", key), zap.Error(err))
		}
		s.logger.Info("Created follow-up task", zap.String("contact", record.Contact), zap.String("task_id", task.ID))
		created = append(created, task)
	}
	return created, nil
}

// CancelFollowUp drops any pending follow-up for contact
func (s *FollowUpScheduler) CancelFollowUp(ctx context.Context, contact string) error {
	if err := s.kv.Delete(ctx, FollowUpKey(contact)); err != nil {
		return fmt.Errorf("failed to cancel follow-up: %w", err)
	}
	return nil
}

// load returns the record under key, or nil when absent or unreadable
func (s *FollowUpScheduler) load(ctx context.Context, key string) (*FollowUpRecord, error) {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read follow-up: %w", err)
	}
	record, err := DecodeFollowUpRecord(data)
	if err != nil {
		s.logger.Warn("Discarding unreadable follow-up", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	return record, nil
}
