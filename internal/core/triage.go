package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/utils"
)

const (
	// DefaultMaxBodySize caps the stored body, in bytes
	DefaultMaxBodySize = 10000

	alertPreviewLength  = 300
	rateLimitedPattern  = "sender_rate_limit_exceeded"
	rateLimitConfidence = 1.0
)

// TriageService is the core service for inbound mail: it rate limits, classifies,
// stores and then raises alerts, tasks and learnings
type TriageService struct {
	inbox       *Inbox
	limiter     *RateLimiter
	followUps   *FollowUpScheduler
	alerts      *AlertDispatcher
	tasks       *TaskBoard
	learnings   *LearningStore
	tp          *utils.TextProcessor
	logger      *zap.Logger
	maxBodySize int
	now         func() time.Time
}

// NewTriageService creates a new triage service
func NewTriageService(
	inbox *Inbox,
	limiter *RateLimiter,
	followUps *FollowUpScheduler,
	alerts *AlertDispatcher,
	tasks *TaskBoard,
	learnings *LearningStore,
	tp *utils.TextProcessor,
	logger *zap.Logger,
	maxBodySize int,
) *TriageService {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	return &TriageService{
		inbox:       inbox,
		limiter:     limiter,
		followUps:   followUps,
		alerts:      alerts,
		tasks:       tasks,
		learnings:   learnings,
		tp:          tp,
		logger:      logger,
		maxBodySize: maxBodySize,
		now:         time.Now,
	}
}

// HandleInbound triages one received email. Only a failure to store the message is
// returned; every other side effect is logged and skipped on error.
func (s *TriageService) HandleInbound(ctx context.Context, raw *RawInbound) (*InboundMessage, error) {
	normalized := Normalize(raw.From, raw.Subject, raw.Body)
	sender := normalized.From

	verdict, category := Classify(normalized.From, normalized.Subject, normalized.Body)

	// The redacted placeholder is shared by every unknown sender.
	knownSender := sender != redactedAddress
	if knownSender {
		if rate, err := s.limiter.CheckRateLimit(ctx, sender); err != nil {
			s.logger.Error("Rate limit check failed", zap.String("sender", sender), zap.Error(err))
		} else if !rate.Allowed {
			verdict = flagRateLimited(verdict)
			category = CategorySuspicious
		}
	}

	receivedAt := raw.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.now()
	}

	msg := &InboundMessage{
		ID:            uuid.NewString(),
		From:          sender,
		Subject:       normalized.Subject,
		Body:          s.tp.ProcessText(normalized.Body, s.maxBodySize),
		ReceivedAt:    receivedAt,
		Status:        StatusUnread,
		Category:      category,
		SecurityCheck: &verdict,
	}
	if err := s.inbox.Store(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store inbound message: %w", err)
	}

	// A message from a contact is a reply to anything we were waiting on.
	if knownSender {
		if err := s.followUps.CancelFollowUp(ctx, sender); err != nil {
			s.logger.Error("Failed to cancel follow-up", zap.String("sender", sender), zap.Error(err))
		}
	}

	s.logger.Info("Received email",
		zap.String("id", msg.ID),
		zap.String("sender", sender),
		zap.String("subject", msg.Subject),
		zap.String("category", string(category)),
		zap.Bool("safe", verdict.IsSafe))

	switch {
	case category == CategorySuspicious || !verdict.IsSafe:
		s.logger.Warn("Flagged email for security review",
			zap.String("sender", sender),
			zap.String("threat", string(verdict.Threat)),
			zap.Strings("patterns", verdict.FlaggedPatterns))
	case category == CategorySpam:
		s.logger.Debug("Ignoring spam", zap.String("sender", sender))
	default:
		s.raiseSideEffects(ctx, msg, normalized.Body)
	}

	return msg, nil
}

// raiseSideEffects alerts on high-value mail, records learnings and creates the response task
func (s *TriageService) raiseSideEffects(ctx context.Context, msg *InboundMessage, body string) {
	if learned, err := s.learnings.LearnFromEmail(ctx, msg); err != nil {
		s.logger.Error("Failed to record learnings", zap.String("email_id", msg.ID), zap.Error(err))
	} else if len(learned) > 0 {
		s.logger.Debug("Recorded learnings", zap.String("email_id", msg.ID), zap.Int("count", len(learned)))
	}

	priority := PriorityMedium
	if msg.Category.IsHighValue() {
		priority = PriorityHigh
		s.alerts.SendAlert(ctx,
			string(msg.Category),
			fmt.Sprintf("New %s: %s", msg.Category, msg.Subject),
			fmt.Sprintf("From: %s\nSubject: %s\n\nPreview: %s", msg.From, msg.Subject, utils.Clip(body, alertPreviewLength)))
	}

	task := &Task{
		Type:           TaskRespondEmail,
		Priority:       priority,
		Title:          fmt.Sprintf("Respond to %s: %s", msg.From, msg.Subject),
		Description:    fmt.Sprintf("Respond to %s email from %s. Subject: %q", msg.Category, msg.From, msg.Subject),
		RelatedEmailID: msg.ID,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		s.logger.Error("Failed to create response task", zap.String("email_id", msg.ID), zap.Error(err))
		return
	}
	s.logger.Info("Created response task",
		zap.String("task_id", task.ID),
		zap.String("priority", string(priority)),
		zap.String("category", string(msg.Category)))
}

// flagRateLimited marks a verdict for a sender over the rate limit. A stronger
// threat already found is kept.
func flagRateLimited(v SecurityVerdict) SecurityVerdict {
	if v.Threat == ThreatNone || v.Threat == ThreatSpam {
		v.Threat = ThreatRateLimit
	}
	v.Confidence = rateLimitConfidence
	v.FlaggedPatterns = append(append([]string{}, v.FlaggedPatterns...), rateLimitedPattern)
	v.IsSafe = false
	if v.Recommendation != RecommendBlock {
		v.Recommendation = RecommendFlag
	}
	return v
}
