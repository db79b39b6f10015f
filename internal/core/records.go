package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Key prefixes and TTLs for the records kept in the KV store
const (
	emailKeyPrefix     = "email:"
	followUpKeyPrefix  = "followup:"
	taskKeyPrefix      = "task:"
	alertKeyPrefix     = "alert-rate:"
	rateLimitKeyPrefix = "ratelimit:"
	logKeyPrefix       = "log:"
	dailyCheckPrefix   = "daily-check:"
	learningKeyPrefix  = "learning:"
	feedbackKeyPrefix  = "feedback:"
	budgetKey          = "budget"

	emailTTL      = 90 * 24 * time.Hour
	followUpTTL   = 30 * 24 * time.Hour
	taskTTL       = 30 * 24 * time.Hour
	logTTL        = 90 * 24 * time.Hour
	dailyCheckTTL = 30 * 24 * time.Hour
	learningTTL   = 365 * 24 * time.Hour
	feedbackTTL   = 180 * 24 * time.Hour
)

// EmailKey returns the store key for a message id
func EmailKey(id string) string {
	return emailKeyPrefix + id
}

// FollowUpKey returns the store key for a contact; contacts are case-insensitive
func FollowUpKey(contact string) string {
	return followUpKeyPrefix + strings.ToLower(strings.TrimSpace(contact))
}

// TaskKey returns the store key for a task id
func TaskKey(id string) string {
	return taskKeyPrefix + id
}

// AlertKey returns the marker key for an alert category
func AlertKey(category string) string {
	return alertKeyPrefix + category
}

// RateLimitKey returns the counter key for a sender
func RateLimitKey(sender string) string {
	return rateLimitKeyPrefix + strings.ToLower(strings.TrimSpace(sender))
}

// DailyCheckKey returns the key the daily check result for a day is kept under
func DailyCheckKey(day time.Time) string {
	return dailyCheckPrefix + day.UTC().Format("2006-01-02")
}

// LearningKey returns the store key for a learning id
func LearningKey(id string) string {
	return learningKeyPrefix + id
}

// FeedbackKey returns the store key for a feedback id
func FeedbackKey(id string) string {
	return feedbackKeyPrefix + id
}

// DecodeInboundMessage decodes a stored message, filling in defaults for missing fields
func DecodeInboundMessage(data []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	if msg.Status == "" {
		msg.Status = StatusUnread
	}
	if msg.Category == "" {
		msg.Category = CategoryOther
	}
	if msg.Subject == "" {
		msg.Subject = noSubject
	}
	return &msg, nil
}

// DecodeFollowUpRecord decodes a stored follow-up record
func DecodeFollowUpRecord(data []byte) (*FollowUpRecord, error) {
	var rec FollowUpRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode follow-up record: %w", err)
	}
	if rec.Category == "" {
		rec.Category = CategoryOther
	}
	if rec.Attempts < 0 {
		rec.Attempts = 0
	}
	if rec.Attempts > maxFollowUpAttempts {
		rec.Attempts = maxFollowUpAttempts
	}
	return &rec, nil
}

// DecodeTask decodes a stored task
func DecodeTask(data []byte) (*Task, error) {
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	if task.Type == "" {
		task.Type = TaskOther
	}
	if task.Priority == "" {
		task.Priority = PriorityMedium
	}
	if task.Status == "" {
		task.Status = TaskPending
	}
	if task.AssignedTo == "" {
		task.AssignedTo = defaultAssignee
	}
	return &task, nil
}

// DecodeRateLimitCounter decodes a stored rate-limit counter
func DecodeRateLimitCounter(data []byte) (*RateLimitCounter, error) {
	var counter RateLimitCounter
	if err := json.Unmarshal(data, &counter); err != nil {
		return nil, fmt.Errorf("failed to decode rate limit counter: %w", err)
	}
	if counter.Count < 0 {
		counter.Count = 0
	}
	return &counter, nil
}

// DecodeLogEntry decodes a stored journal entry
func DecodeLogEntry(data []byte) (*LogEntry, error) {
	var entry LogEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode log entry: %w", err)
	}
	if entry.Category == "" {
		entry.Category = LogAgent
	}
	return &entry, nil
}

// DecodeLearning decodes a stored learning
func DecodeLearning(data []byte) (*Learning, error) {
	var learning Learning
	if err := json.Unmarshal(data, &learning); err != nil {
		return nil, fmt.Errorf("failed to decode learning: %w", err)
	}
	if learning.Category == "" {
		learning.Category = LearningGeneral
	}
	if learning.Confidence == "" {
		learning.Confidence = ConfidenceMedium
	}
	return &learning, nil
}

// DecodeFeedback decodes a stored feedback entry
func DecodeFeedback(data []byte) (*Feedback, error) {
	var fb Feedback
	if err := json.Unmarshal(data, &fb); err != nil {
		return nil, fmt.Errorf("failed to decode feedback: %w", err)
	}
	if fb.Type == "" {
		fb.Type = FeedbackSuggestion
	}
	if fb.Status == "" {
		fb.Status = FeedbackPending
	}
	return &fb, nil
}

// DecodeBudget decodes the stored budget, falling back to the defaults
func DecodeBudget(data []byte) *Budget {
	budget := &Budget{Spent: defaultBudgetSpent, Allocated: defaultBudgetAllocated}
	if err := json.Unmarshal(data, budget); err != nil || budget.Allocated <= 0 {
		return &Budget{Spent: defaultBudgetSpent, Allocated: defaultBudgetAllocated}
	}
	return budget
}

// putJSON marshals v and stores it under key
func putJSON(ctx context.Context, kv KVStore, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := kv.Put(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

// isNotFound reports whether err means the key is absent
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
