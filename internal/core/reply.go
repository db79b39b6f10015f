package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/utils"
)

const replyPreviewRunes = 200

var (
	// ErrTaskCompleted is returned when a task has already been done
	ErrTaskCompleted = errors.New("task already completed")
	// ErrUnsupportedTask is returned for tasks that are not email responses
	ErrUnsupportedTask = errors.New("only email response tasks are supported")
	// ErrRelatedEmailNotFound is returned when the email a task answers is gone
	ErrRelatedEmailNotFound = errors.New("related email not found")
	// ErrUnparseableDraft is returned when the model reply holds no usable draft
	ErrUnparseableDraft = errors.New("model reply is not a usable draft")
	// ErrTransportUnavailable is returned when no outbound relay is configured
	ErrTransportUnavailable = errors.New("outbound email is not configured")
)

// DraftReply is a reply composed by the model
type DraftReply struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ParseDraftReply reads the JSON object in a model reply. Code fences and text
// around the object are ignored.
func ParseDraftReply(text string) (*DraftReply, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return nil, ErrUnparseableDraft
	}

	var draft DraftReply
	if err := json.Unmarshal([]byte(text[start:end+1]), &draft); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableDraft, err)
	}
	draft.Subject = strings.TrimSpace(draft.Subject)
	draft.Body = strings.TrimSpace(draft.Body)
	if draft.Subject == "" || draft.Body == "" {
		return nil, ErrUnparseableDraft
	}
	return &draft, nil
}

// DraftReply asks the model to compose a reply to msg for task
func (a *Agent) DraftReply(ctx context.Context, msg *InboundMessage, task *Task) (*DraftReply, error) {
	reply, err := a.complete(ctx, BuildReplyPrompt(msg, task))
	if err != nil {
		return nil, err
	}
	draft, err := ParseDraftReply(reply)
	if err != nil {
		a.logger.Warn("Discarding unusable draft", zap.String("task_id", task.ID), zap.Error(err))
		return nil, err
	}
	return draft, nil
}

// SentReply is a reply that went out for a task
type SentReply struct {
	TaskID            string `json:"task"`
	To                string `json:"to"`
	Subject           string `json:"subject"`
	Body              string `json:"body"`
	FollowUpScheduled bool   `json:"followUpScheduled"`
}

// ReplyService answers respond_email tasks with a drafted reply
type ReplyService struct {
	agent     *Agent
	inbox     *Inbox
	tasks     *TaskBoard
	journal   *Journal
	followUps *FollowUpScheduler
	transport MailTransport
	logger    *zap.Logger
}

// NewReplyService creates a new reply service. A nil transport makes every task fail
// with ErrTransportUnavailable.
func NewReplyService(
	agent *Agent,
	inbox *Inbox,
	tasks *TaskBoard,
	journal *Journal,
	followUps *FollowUpScheduler,
	transport MailTransport,
	logger *zap.Logger,
) *ReplyService {
	return &ReplyService{
		agent:     agent,
		inbox:     inbox,
		tasks:     tasks,
		journal:   journal,
		followUps: followUps,
		transport: transport,
		logger:    logger,
	}
}

// ProcessTask drafts and sends the reply a respond_email task asks for, then completes
// the task, marks the email replied, starts follow-up tracking and logs the outreach
func (s *ReplyService) ProcessTask(ctx context.Context, taskID string) (*SentReply, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == TaskCompleted {
		return nil, ErrTaskCompleted
	}
	if task.Type != TaskRespondEmail || task.RelatedEmailID == "" {
		return nil, ErrUnsupportedTask
	}
	if s.transport == nil {
		return nil, ErrTransportUnavailable
	}

	msg, err := s.inbox.Get(ctx, task.RelatedEmailID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrRelatedEmailNotFound
		}
		return nil, err
	}

	draft, err := s.agent.DraftReply(ctx, msg, task)
	if err != nil {
		return nil, err
	}

	if err := s.transport.Send(ctx, &OutboundMail{To: []string{msg.From}, Subject: draft.Subject, Body: draft.Body}); err != nil {
		return nil, fmt.Errorf("failed to send reply: %w", err)
	}

	// The reply is out; what follows is bookkeeping and only logged on failure.
	if _, err := s.tasks.UpdateStatus(ctx, task.ID, TaskCompleted); err != nil {
		s.logger.Error("Failed to complete task", zap.String("task_id", task.ID), zap.Error(err))
	}
	if err := s.inbox.MarkReplied(ctx, msg.ID); err != nil {
		s.logger.Error("Failed to mark email replied", zap.String("id", msg.ID), zap.Error(err))
	}
	scheduled, err := s.followUps.ScheduleFollowUp(ctx, msg.From, msg.Category, draft.Subject)
	if err != nil {
		s.logger.Error("Failed to schedule follow-up", zap.Error(err))
	}

	title := fmt.Sprintf("Email sent to %s", RedactEmail(msg.From))
	description := fmt.Sprintf("Subject: %s\n\n%s", draft.Subject, utils.Preview(draft.Body, replyPreviewRunes))
	if _, err := s.journal.Append(ctx, LogOutreach, title, description, true); err != nil {
		s.logger.Error("Failed to log outreach", zap.Error(err))
	}

	s.logger.Info("Sent task reply",
		zap.String("task_id", task.ID),
		zap.String("to", RedactEmail(msg.From)))

	return &SentReply{
		TaskID:            task.ID,
		To:                msg.From,
		Subject:           draft.Subject,
		Body:              draft.Body,
		FollowUpScheduled: scheduled,
	}, nil
}
