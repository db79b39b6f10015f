package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/utils"
)

const (
	maxContextLearnings  = 5
	feedbackMinLength    = 10
	feedbackMaxLength    = 2000
	feedbackPreviewRunes = 200
	anonymousAuthor      = "Anonymous"
)

var (
	// ErrInvalidLearning is returned when a learning has no insight or source
	ErrInvalidLearning = errors.New("learning requires an insight and a source")
	// ErrMissingFeedback is returned when feedback has no content
	ErrMissingFeedback = errors.New("feedback requires content")
	// ErrFeedbackLength is returned when feedback content is too short or too long
	ErrFeedbackLength = fmt.Errorf("feedback content must be between %d and %d characters", feedbackMinLength, feedbackMaxLength)
)

// LearningSource names where an insight came from
type LearningSource string

const (
	SourceEmail       LearningSource = "email"
	SourceFeedback    LearningSource = "feedback"
	SourceDecision    LearningSource = "decision"
	SourceObservation LearningSource = "observation"
)

// LearningCategory groups insights by subject
type LearningCategory string

const (
	LearningCommunication LearningCategory = "communication"
	LearningFarming       LearningCategory = "farming"
	LearningPartnerships  LearningCategory = "partnerships"
	LearningCommunity     LearningCategory = "community"
	LearningOperations    LearningCategory = "operations"
	LearningGeneral       LearningCategory = "general"
)

// Confidence is how sure the agent is of an insight
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Learning is an insight the agent keeps and is reminded of when deciding
type Learning struct {
	ID           string           `json:"id"`
	Source       LearningSource   `json:"source"`
	SourceID     string           `json:"sourceId,omitempty"`
	Insight      string           `json:"insight"`
	Category     LearningCategory `json:"category"`
	Confidence   Confidence       `json:"confidence"`
	CreatedAt    time.Time        `json:"createdAt"`
	AppliedCount int              `json:"appliedCount"`
}

// LearningSummary counts learnings by origin
type LearningSummary struct {
	Total          int `json:"total"`
	FromEmails     int `json:"fromEmails"`
	FromFeedback   int `json:"fromFeedback"`
	HighConfidence int `json:"highConfidence"`
}

// SummarizeLearnings counts learnings by origin and confidence
func SummarizeLearnings(learnings []*Learning) LearningSummary {
	summary := LearningSummary{Total: len(learnings)}
	for _, l := range learnings {
		switch l.Source {
		case SourceEmail:
			summary.FromEmails++
		case SourceFeedback:
			summary.FromFeedback++
		}
		if l.Confidence == ConfidenceHigh {
			summary.HighConfidence++
		}
	}
	return summary
}

// GroupLearnings buckets learnings by category, keeping their order
func GroupLearnings(learnings []*Learning) map[LearningCategory][]*Learning {
	groups := make(map[LearningCategory][]*Learning)
	for _, l := range learnings {
		groups[l.Category] = append(groups[l.Category], l)
	}
	return groups
}

// regionMentions is checked in order; the first region named wins
var regionMentions = []struct {
	needle string
	name   string
}{
	{"nebraska", "Nebraska"},
	{"iowa", "Iowa"},
	{"texas", "Texas"},
}

// ExtractLearnings derives insights from a stored email by keyword
func ExtractLearnings(msg *InboundMessage) []*Learning {
	content := strings.ToLower(msg.Subject + " " + msg.Body)
	var learnings []*Learning

	if strings.Contains(content, "prefer") || strings.Contains(content, "would be better") {
		learnings = append(learnings, &Learning{
			Source:     SourceEmail,
			SourceID:   msg.ID,
			Insight:    fmt.Sprintf("Communication preference noted from %s: %q", msg.From, msg.Subject),
			Category:   LearningCommunication,
			Confidence: ConfidenceMedium,
		})
	}

	for _, r := range regionMentions {
		if strings.Contains(content, r.needle) {
			learnings = append(learnings, &Learning{
				Source:     SourceEmail,
				SourceID:   msg.ID,
				Insight:    fmt.Sprintf("Regional insight from %s about %s farming", msg.From, r.name),
				Category:   LearningFarming,
				Confidence: ConfidenceMedium,
			})
			break
		}
	}

	return learnings
}

// LearningStore keeps learnings and announces new ones in the journal
type LearningStore struct {
	kv      KVStore
	journal *Journal
	logger  *zap.Logger
	now     func() time.Time
}

// NewLearningStore creates a new learning store
func NewLearningStore(kv KVStore, journal *Journal, logger *zap.Logger) *LearningStore {
	return &LearningStore{kv: kv, journal: journal, logger: logger, now: time.Now}
}

// Record fills in defaults, stores the learning and logs it
func (s *LearningStore) Record(ctx context.Context, learning *Learning) error {
	if strings.TrimSpace(learning.Insight) == "" || learning.Source == "" {
		return ErrInvalidLearning
	}
	if learning.ID == "" {
		learning.ID = uuid.NewString()
	}
	if learning.Category == "" {
		learning.Category = LearningGeneral
	}
	if learning.Confidence == "" {
		learning.Confidence = ConfidenceMedium
	}
	learning.CreatedAt = s.now()

	if err := putJSON(ctx, s.kv, LearningKey(learning.ID), learning, learningTTL); err != nil {
		return err
	}

	description := fmt.Sprintf("Fred learned: %q\n\nSource: %s\nCategory: %s\nConfidence: %s",
		learning.Insight, learning.Source, learning.Category, learning.Confidence)
	if _, err := s.journal.Append(ctx, LogAgent, "New Learning Recorded", description, true); err != nil {
		s.logger.Error("Failed to log learning", zap.Error(err))
	}
	return nil
}

// LearnFromEmail records whatever ExtractLearnings finds in msg
func (s *LearningStore) LearnFromEmail(ctx context.Context, msg *InboundMessage) ([]*Learning, error) {
	learnings := ExtractLearnings(msg)
	for _, l := range learnings {
		if err := s.Record(ctx, l); err != nil {
			return nil, err
		}
	}
	return learnings, nil
}

// List returns every stored learning, newest first
func (s *LearningStore) List(ctx context.Context) ([]*Learning, error) {
	keys, err := s.kv.List(ctx, learningKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list learnings: %w", err)
	}

	learnings := make([]*Learning, 0, len(keys))
	for _, key := range keys {
		data, err := s.kv.Get(ctx, key)
		if err != nil {
			if !isNotFound(err) {
				s.logger.Error("Failed to read learning", zap.String("key", key), zap.Error(err))
			}
			continue
		}
		learning, err := DecodeLearning(data)
		if err != nil {
			s.logger.Warn("Skipping unreadable learning", zap.String("key", key), zap.Error(err))
			continue
		}
		learnings = append(learnings, learning)
	}

	sort.SliceStable(learnings, func(i, j int) bool {
		return learnings[i].CreatedAt.After(learnings[j].CreatedAt)
	})
	return learnings, nil
}

// FeedbackType is the kind of community feedback
type FeedbackType string

const (
	FeedbackSuggestion  FeedbackType = "suggestion"
	FeedbackBug         FeedbackType = "bug"
	FeedbackImprovement FeedbackType = "improvement"
	FeedbackQuestion    FeedbackType = "question"
	FeedbackPraise      FeedbackType = "praise"
)

// FeedbackStatus tracks review of a feedback entry
type FeedbackStatus string

const (
	FeedbackPending      FeedbackStatus = "pending"
	FeedbackReviewed     FeedbackStatus = "reviewed"
	FeedbackIncorporated FeedbackStatus = "incorporated"
	FeedbackDeclined     FeedbackStatus = "declined"
)

// Feedback is a note from the community about how the agent could improve
type Feedback struct {
	ID         string         `json:"id"`
	Author     string         `json:"author"`
	Type       FeedbackType   `json:"type"`
	Content    string         `json:"content"`
	Status     FeedbackStatus `json:"status"`
	CreatedAt  time.Time      `json:"createdAt"`
	ReviewedAt *time.Time     `json:"reviewedAt,omitempty"`
	LearningID string         `json:"learningId,omitempty"`
}

// FeedbackSummary counts feedback by status and type
type FeedbackSummary struct {
	Total        int                  `json:"total"`
	Pending      int                  `json:"pending"`
	Incorporated int                  `json:"incorporated"`
	ByType       map[FeedbackType]int `json:"byType"`
}

// SummarizeFeedback counts feedback by status and type
func SummarizeFeedback(entries []*Feedback) FeedbackSummary {
	summary := FeedbackSummary{
		Total: len(entries),
		ByType: map[FeedbackType]int{
			FeedbackSuggestion:  0,
			FeedbackImprovement: 0,
			FeedbackBug:         0,
			FeedbackQuestion:    0,
			FeedbackPraise:      0,
		},
	}
	for _, f := range entries {
		switch f.Status {
		case FeedbackPending:
			summary.Pending++
		case FeedbackIncorporated:
			summary.Incorporated++
		}
		summary.ByType[f.Type]++
	}
	return summary
}

// FeedbackStore keeps community feedback
type FeedbackStore struct {
	kv      KVStore
	journal *Journal
	logger  *zap.Logger
	now     func() time.Time
}

// NewFeedbackStore creates a new feedback store
func NewFeedbackStore(kv KVStore, journal *Journal, logger *zap.Logger) *FeedbackStore {
	return &FeedbackStore{kv: kv, journal: journal, logger: logger, now: time.Now}
}

// Submit validates and stores a new feedback entry and logs it to the community journal
func (s *FeedbackStore) Submit(ctx context.Context, author string, kind FeedbackType, content string) (*Feedback, error) {
	if content == "" {
		return nil, ErrMissingFeedback
	}
	if n := utf8.RuneCountInString(content); n < feedbackMinLength || n > feedbackMaxLength {
		return nil, ErrFeedbackLength
	}
	if strings.TrimSpace(author) == "" {
		author = anonymousAuthor
	}
	if kind == "" {
		kind = FeedbackSuggestion
	}

	fb := &Feedback{
		ID:        uuid.NewString(),
		Author:    author,
		Type:      kind,
		Content:   content,
		Status:    FeedbackPending,
		CreatedAt: s.now(),
	}
	if err := putJSON(ctx, s.kv, FeedbackKey(fb.ID), fb, feedbackTTL); err != nil {
		return nil, err
	}

	description := fmt.Sprintf("New %s from %s:\n\n%q", fb.Type, fb.Author, utils.Preview(fb.Content, feedbackPreviewRunes))
	if _, err := s.journal.Append(ctx, LogCommunity, "Community Feedback Received", description, false); err != nil {
		s.logger.Error("Failed to log feedback", zap.Error(err))
	}
	return fb, nil
}

// List returns every stored feedback entry, newest first
func (s *FeedbackStore) List(ctx context.Context) ([]*Feedback, error) {
	keys, err := s.kv.List(ctx, feedbackKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	entries := make([]*Feedback, 0, len(keys))
	for _, key := range keys {
		data, err := s.kv.Get(ctx, key)
		if err != nil {
			if !isNotFound(err) {
				s.logger.Error("Failed to read feedback", zap.String("key", key), zap.Error(err))
			}
			continue
		}
		fb, err := DecodeFeedback(data)
		if err != nil {
			s.logger.Warn("Skipping unreadable feedback", zap.String("key", key), zap.Error(err))
			continue
		}
		entries = append(entries, fb)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}
