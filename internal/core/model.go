package core

import (
	"time"
)

// ThreatKind names the kind of threat the security check found
type ThreatKind string

const (
	ThreatNone              ThreatKind = "none"
	ThreatPromptInjection   ThreatKind = "prompt_injection"
	ThreatRateLimit         ThreatKind = "rate_limit"
	ThreatSuspiciousPattern ThreatKind = "suspicious_pattern"
	ThreatSpam              ThreatKind = "spam"
)

// Recommendation is the action the security check suggests for a message
type Recommendation string

const (
	RecommendAllow Recommendation = "allow"
	RecommendFlag  Recommendation = "flag"
	RecommendBlock Recommendation = "block"
)

// Category is the content category assigned to an inbound message
type Category string

const (
	CategoryLead        Category = "lead"
	CategoryPartnership Category = "partnership"
	CategoryQuestion    Category = "question"
	CategorySpam        Category = "spam"
	CategoryOther       Category = "other"
	CategorySuspicious  Category = "suspicious"
)

// MessageStatus tracks what has happened to a stored inbound message
type MessageStatus string

const (
	StatusUnread   MessageStatus = "unread"
	StatusRead     MessageStatus = "read"
	StatusReplied  MessageStatus = "replied"
	StatusArchived MessageStatus = "archived"
)

// SecurityVerdict is the result of the security check on a message
type SecurityVerdict struct {
	IsSafe          bool           `json:"isSafe"`
	Threat          ThreatKind     `json:"threat"`
	Confidence      float64        `json:"confidence"`
	FlaggedPatterns []string       `json:"flaggedPatterns"`
	Recommendation  Recommendation `json:"recommendation"`
}

// RawInbound is an inbound email as delivered by the mail trigger, before triage
type RawInbound struct {
	From       string
	To         []string
	Subject    string
	Body       string
	ReceivedAt time.Time
}

// InboundMessage represents a stored, triaged email
type InboundMessage struct {
	ID            string           `json:"id"`
	From          string           `json:"from"`
	Subject       string           `json:"subject"`
	Body          string           `json:"body"`
	ReceivedAt    time.Time        `json:"receivedAt"`
	Status        MessageStatus    `json:"status"`
	Category      Category         `json:"category"`
	SecurityCheck *SecurityVerdict `json:"securityCheck,omitempty"`
}

// FollowUpRecord tracks an outbound message that is waiting for a reply
type FollowUpRecord struct {
	Contact       string    `json:"contact"`
	Subject       string    `json:"subject"`
	SentAt        time.Time `json:"sentAt"`
	FollowUpAfter time.Time `json:"followUpAfter"`
	Category      Category  `json:"category"`
	Attempts      int       `json:"attempts"`
}

// TaskType is the kind of work a task represents
type TaskType string

const (
	TaskRespondEmail TaskType = "respond_email"
	TaskFollowUp     TaskType = "follow_up"
	TaskResearch     TaskType = "research"
	TaskOutreach     TaskType = "outreach"
	TaskOther        TaskType = "other"
)

// Priority orders tasks
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// TaskStatus is the lifecycle state of a task
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// Task is a unit of work for the agent or a human
type Task struct {
	ID             string     `json:"id"`
	Type           TaskType   `json:"type"`
	Priority       Priority   `json:"priority"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	RelatedEmailID string     `json:"relatedEmailId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	DueAt          *time.Time `json:"dueAt,omitempty"`
	Status         TaskStatus `json:"status"`
	AssignedTo     string     `json:"assignedTo"`
}

// RateLimitCounter is the per-sender counter stored for the rate limiter
type RateLimitCounter struct {
	Count     int       `json:"count"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AlertMarker records the last alert sent for a category
type AlertMarker struct {
	Category string    `json:"category"`
	SentAt   time.Time `json:"sentAt"`
}

// LogCategory groups journal entries
type LogCategory string

const (
	LogAgent     LogCategory = "agent"
	LogOutreach  LogCategory = "outreach"
	LogWeather   LogCategory = "weather"
	LogDecision  LogCategory = "decision"
	LogCommunity LogCategory = "community"
)

// LogEntry is a public journal entry
type LogEntry struct {
	ID          string      `json:"id"`
	Timestamp   time.Time   `json:"timestamp"`
	Category    LogCategory `json:"category"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	AIDecision  bool        `json:"aiDecision"`
	Principles  []string    `json:"principles,omitempty"`
}

// Budget is the stored spend record
type Budget struct {
	Spent     float64 `json:"spent"`
	Allocated float64 `json:"allocated"`
}

// OutboundMail is a message handed to the mail transport
type OutboundMail struct {
	FromName string
	From     string
	To       []string
	Subject  string
	Body     string
}

// Message is a single turn sent to the completion service
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
