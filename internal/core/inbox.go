package core

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// InboxSummary counts stored messages
type InboxSummary struct {
	Total         int `json:"total"`
	Unread        int `json:"unread"`
	Leads         int `json:"leads"`
	NeedsResponse int `json:"needsResponse"`
}

// Inbox reads and updates stored inbound messages
type Inbox struct {
	kv     KVStore
	logger *zap.Logger
}

// NewInbox creates a new inbox
func NewInbox(kv KVStore, logger *zap.Logger) *Inbox {
	return &Inbox{kv: kv, logger: logger}
}

// Store writes a message under its id
func (i *Inbox) Store(ctx context.Context, msg *InboundMessage) error {
	return putJSON(ctx, i.kv, EmailKey(msg.ID), msg, emailTTL)
}

// Get loads a message by id
func (i *Inbox) Get(ctx context.Context, id string) (*InboundMessage, error) {
	data, err := i.kv.Get(ctx, EmailKey(id))
	if err != nil {
		return nil, err
	}
	return DecodeInboundMessage(data)
}

// ListMessages returns all stored messages, newest first
func (i *Inbox) ListMessages(ctx context.Context) ([]*InboundMessage, error) {
	keys, err := i.kv.List(ctx, emailKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]*InboundMessage, 0, len(keys))
	for _, key := range keys {
		data, err := i.kv.Get(ctx, key)
		if err != nil {
			if !isNotFound(err) {
				i.logger.Error("Failed to read message", zap.String("key", key), zap.Error(err))
			}
			continue
		}
		msg, err := DecodeInboundMessage(data)
		if err != nil {
			i.logger.Warn("Skipping unreadable message", zap.String("key", key), zap.Error(err))
			continue
		}
		messages = append(messages, msg)
	}

	sort.SliceStable(messages, func(a, b int) bool {
		return messages[a].ReceivedAt.After(messages[b].ReceivedAt)
	})
	return messages, nil
}

// UnreadMessages returns the unread messages, newest first
func (i *Inbox) UnreadMessages(ctx context.Context) ([]*InboundMessage, error) {
	all, err := i.ListMessages(ctx)
	if err != nil {
		return nil, err
	}
	unread := make([]*InboundMessage, 0, len(all))
	for _, msg := range all {
		if msg.Status == StatusUnread {
			unread = append(unread, msg)
		}
	}
	return unread, nil
}

// MarkRead flips a message to read; a missing message is not an error
func (i *Inbox) MarkRead(ctx context.Context, id string) error {
	return i.setStatus(ctx, id, StatusRead)
}

// MarkReplied flips a message to replied; a missing message is not an error
func (i *Inbox) MarkReplied(ctx context.Context, id string) error {
	return i.setStatus(ctx, id, StatusReplied)
}

func (i *Inbox) setStatus(ctx context.Context, id string, status MessageStatus) error {
	msg, err := i.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	msg.Status = status
	return i.Store(ctx, msg)
}

// add counts one message into the summary
func (s *InboxSummary) add(msg *InboundMessage) {
	s.Total++
	if msg.Status == StatusUnread {
		s.Unread++
	}
	if msg.Category == CategoryLead {
		s.Leads++
	}
	if msg.Status == StatusUnread || msg.Status == StatusRead {
		s.NeedsResponse++
	}
}

// SummarizeInbox counts messages by state
func SummarizeInbox(messages []*InboundMessage) InboxSummary {
	var summary InboxSummary
	for _, msg := range messages {
		summary.add(msg)
	}
	return summary
}
