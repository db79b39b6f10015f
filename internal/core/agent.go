package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/utils"
)

const (
	defaultBudgetSpent     = 12.99
	defaultBudgetAllocated = 2500

	maxAcknowledgedTasks = 3
	emailSummaryLength   = 200
	respondTaskMarker    = "Respond to"
)

// DailyCheckResult is a parsed daily check plus what was done about it
type DailyCheckResult struct {
	AgentResponse
	ExecutedActions []string  `json:"executedActions"`
	FollowUpTasks   int       `json:"followUpTasks"`
	CheckedAt       time.Time `json:"checkedAt"`
}

// Agent talks to the completion service on behalf of the farmer
type Agent struct {
	completer    Completer
	constitution *Constitution
	logger       *zap.Logger
}

// NewAgent creates a new agent
func NewAgent(completer Completer, constitution *Constitution, logger *zap.Logger) *Agent {
	return &Agent{completer: completer, constitution: constitution, logger: logger}
}

// DailyCheck asks the model for today's decision
func (a *Agent) DailyCheck(ctx context.Context, actx *AgentContext, today time.Time) (AgentResponse, error) {
	reply, err := a.complete(ctx, BuildDailyCheckPrompt(actx, today))
	if err != nil {
		return AgentResponse{}, err
	}
	return ParseAgentResponse(reply), nil
}

// EvaluateAction asks the model to judge one proposed action
func (a *Agent) EvaluateAction(ctx context.Context, action string, actx *AgentContext) (AgentResponse, DecisionEvaluation, error) {
	eval := a.constitution.EvaluateDecision(action)
	reply, err := a.complete(ctx, BuildEvaluatePrompt(action, eval, actx))
	if err != nil {
		return AgentResponse{}, eval, err
	}
	return ParseAgentResponse(reply), eval, nil
}

// StatusReport asks the model for a free-text report
func (a *Agent) StatusReport(ctx context.Context, actx *AgentContext) (string, error) {
	return a.complete(ctx, BuildStatusReportPrompt(actx))
}

func (a *Agent) complete(ctx context.Context, prompt string) (string, error) {
	reply, err := a.completer.Complete(ctx, a.constitution.SystemPrompt(), []Message{{Role: RoleUser, Content: prompt}})
	if err != nil {
		a.logger.Error("Completion failed", zap.Error(err))
		return "", fmt.Errorf("completion failed: %w", err)
	}
	return reply, nil
}

// FarmerService runs the decision loop over the stored state
type FarmerService struct {
	agent     *Agent
	weather   *WeatherService
	inbox     *Inbox
	tasks     *TaskBoard
	journal   *Journal
	followUps *FollowUpScheduler
	learnings *LearningStore
	kv        KVStore
	logger    *zap.Logger
	now       func() time.Time
}

// NewFarmerService creates a new farmer service
func NewFarmerService(
	agent *Agent,
	weather *WeatherService,
	inbox *Inbox,
	tasks *TaskBoard,
	journal *Journal,
	followUps *FollowUpScheduler,
	learnings *LearningStore,
	kv KVStore,
	logger *zap.Logger,
) *FarmerService {
	return &FarmerService{
		agent:     agent,
		weather:   weather,
		inbox:     inbox,
		tasks:     tasks,
		journal:   journal,
		followUps: followUps,
		learnings: learnings,
		kv:        kv,
		logger:    logger,
		now:       time.Now,
	}
}

// Budget returns the stored budget or the defaults
func (f *FarmerService) Budget(ctx context.Context) *Budget {
	data, err := f.kv.Get(ctx, budgetKey)
	if err != nil {
		if !isNotFound(err) {
			f.logger.Error("Failed to read budget", zap.Error(err))
		}
		return &Budget{Spent: defaultBudgetSpent, Allocated: defaultBudgetAllocated}
	}
	return DecodeBudget(data)
}

// BuildAgentContext gathers weather, budget, open mail, open tasks, recent decisions
// and learnings. Read failures are logged and leave that part empty.
func (f *FarmerService) BuildAgentContext(ctx context.Context) *AgentContext {
	actx := &AgentContext{
		Budget:          NewBudgetStatus(f.Budget(ctx)),
		Emails:          []EmailSummary{},
		PendingTasks:    []AgentTask{},
		RecentDecisions: []Decision{},
	}

	for _, w := range f.weather.FetchAll(ctx) {
		actx.AllWeather = append(actx.AllWeather, WeatherData{
			Region:         w.Region,
			Temperature:    w.Temperature,
			Conditions:     w.Conditions,
			Forecast:       w.Forecast,
			PlantingViable: w.PlantingViable,
		})
	}
	if len(actx.AllWeather) > 0 {
		first := actx.AllWeather[0]
		actx.Weather = &first
	}

	if messages, err := f.inbox.ListMessages(ctx); err != nil {
		f.logger.Error("Failed to load messages for context", zap.Error(err))
	} else {
		for _, m := range messages {
			if m.Status == StatusArchived || m.Status == StatusReplied {
				continue
			}
			actx.Emails = append(actx.Emails, EmailSummary{
				From:           m.From,
				Subject:        m.Subject,
				Summary:        utils.Preview(m.Body, emailSummaryLength),
				RequiresAction: m.Status == StatusUnread || m.Category == CategoryLead,
				ReceivedAt:     m.ReceivedAt,
			})
		}
	}

	if tasks, err := f.tasks.List(ctx); err != nil {
		f.logger.Error("Failed to load tasks for context", zap.Error(err))
	} else {
		for _, t := range tasks {
			if t.Status == TaskCompleted {
				continue
			}
			description := t.Title
			if t.Description != "" {
				description += ": " + t.Description
			}
			actx.PendingTasks = append(actx.PendingTasks, AgentTask{
				ID:          t.ID,
				Description: description,
				Priority:    t.Priority,
				DueDate:     t.DueAt,
				Status:      t.Status,
			})
		}
	}

	if entries, err := f.journal.Recent(ctx, maxRecentDecisions); err != nil {
		f.logger.Error("Failed to load recent decisions", zap.Error(err))
	} else {
		for _, e := range entries {
			actx.RecentDecisions = append(actx.RecentDecisions, Decision{
				ID:         e.ID,
				Timestamp:  e.Timestamp,
				Action:     e.Title,
				Rationale:  e.Description,
				Principles: e.Principles,
				Autonomous: e.AIDecision,
			})
		}
	}

	if learnings, err := f.learnings.List(ctx); err != nil {
		f.logger.Error("Failed to load learnings", zap.Error(err))
	} else {
		for i, l := range learnings {
			if i == maxContextLearnings {
				break
			}
			actx.Learnings = append(actx.Learnings, fmt.Sprintf("[%s] %s", l.Category, l.Insight))
		}
	}

	return actx
}

// PerformDailyCheck runs the daily routine: ask the model, acknowledge urgent response
// tasks, turn overdue follow-ups into tasks, and record the outcome
func (f *FarmerService) PerformDailyCheck(ctx context.Context) (*DailyCheckResult, error) {
	now := f.now()
	actx := f.BuildAgentContext(ctx)

	resp, err := f.agent.DailyCheck(ctx, actx, now)
	if err != nil {
		return nil, err
	}

	result := &DailyCheckResult{
		AgentResponse:   resp,
		ExecutedActions: []string{},
		CheckedAt:       now,
	}

	if !resp.NeedsHumanApproval {
		result.ExecutedActions = f.acknowledgeUrgentTasks(ctx, actx.PendingTasks)
	}

	if created, err := f.followUps.CheckOverdueFollowUps(ctx); err != nil {
		f.logger.Error("Failed to check overdue follow-ups", zap.Error(err))
	} else {
		result.FollowUpTasks = len(created)
	}

	executed := "none"
	if len(result.ExecutedActions) > 0 {
		executed = strings.Join(result.ExecutedActions, ", ")
	}
	description := fmt.Sprintf("Decision: %s\n\nRationale: %s\n\nActions: %d\nNeeds approval: %t\nExecuted: %s",
		resp.Decision, resp.Rationale, len(resp.Actions), resp.NeedsHumanApproval, executed)
	if _, err := f.journal.Append(ctx, LogAgent, "Daily Check Complete", description, true); err != nil {
		f.logger.Error("Failed to log daily check", zap.Error(err))
	}

	if err := putJSON(ctx, f.kv, DailyCheckKey(now), result, dailyCheckTTL); err != nil {
		f.logger.Error("Failed to store daily check", zap.Error(err))
	}

	f.logger.Info("Daily check complete",
		zap.String("decision", resp.Decision),
		zap.Int("actions", len(resp.Actions)),
		zap.Bool("needs_approval", resp.NeedsHumanApproval),
		zap.Int("follow_up_tasks", result.FollowUpTasks))
	return result, nil
}

// acknowledgeUrgentTasks moves up to three pending high-priority response tasks to in_progress
func (f *FarmerService) acknowledgeUrgentTasks(ctx context.Context, pending []AgentTask) []string {
	executed := []string{}
	for _, t := range pending {
		if len(executed) >= maxAcknowledgedTasks {
			break
		}
		if t.Priority != PriorityHigh || t.Status != TaskPending || !strings.Contains(t.Description, respondTaskMarker) {
			continue
		}
		task, err := f.tasks.UpdateStatus(ctx, t.ID, TaskInProgress)
		if err != nil {
			f.logger.Error("Failed to update task", zap.String("task_id", t.ID), zap.Error(err))
			continue
		}
		executed = append(executed, "Acknowledged: "+task.Title)
	}
	return executed
}

// LastDailyCheck returns today's daily check, or nil when none ran yet
func (f *FarmerService) LastDailyCheck(ctx context.Context) *DailyCheckResult {
	data, err := f.kv.Get(ctx, DailyCheckKey(f.now()))
	if err != nil {
		if !isNotFound(err) {
			f.logger.Error("Failed to read daily check", zap.Error(err))
		}
		return nil
	}
	var result DailyCheckResult
	if err := json.Unmarshal(data, &result); err != nil {
		f.logger.Warn("Discarding unreadable daily check", zap.Error(err))
		return nil
	}
	return &result
}

// Decide evaluates a proposed action and logs the decision
func (f *FarmerService) Decide(ctx context.Context, action string) (*AgentResponse, error) {
	actx := f.BuildAgentContext(ctx)
	resp, eval, err := f.agent.EvaluateAction(ctx, action, actx)
	if err != nil {
		return nil, err
	}

	if _, err := f.journal.Append(ctx, LogDecision, action, resp.Rationale, !resp.NeedsHumanApproval, eval.RelevantPrinciples...); err != nil {
		f.logger.Error("Failed to log decision", zap.Error(err))
	}
	return &resp, nil
}

// ActState is what the agent saw when asked for its next action
type ActState struct {
	UnreadEmails int `json:"unreadEmails"`
	PendingTasks int `json:"pendingTasks"`
}

// ActResult is the single next action the agent chose
type ActResult struct {
	State              ActState      `json:"state"`
	Decision           string        `json:"decision"`
	Rationale          string        `json:"rationale"`
	Actions            []AgentAction `json:"actions"`
	NeedsHumanApproval bool          `json:"needsHumanApproval"`
	Timestamp          time.Time     `json:"timestamp"`
}

// Act asks the agent for its single most important next action, given the mail
// awaiting a response and its own pending tasks, and logs the choice
func (f *FarmerService) Act(ctx context.Context) (*ActResult, error) {
	messages, err := f.inbox.ListMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	var awaiting []*InboundMessage
	for _, m := range messages {
		if m.Status == StatusUnread || m.Status == StatusRead {
			awaiting = append(awaiting, m)
		}
	}

	tasks, err := f.tasks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	var pending []*Task
	for _, t := range tasks {
		if t.Status == TaskPending && t.AssignedTo == defaultAssignee {
			pending = append(pending, t)
		}
	}

	resp, _, err := f.agent.EvaluateAction(ctx, BuildActPrompt(awaiting, pending), f.BuildAgentContext(ctx))
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Fred evaluated current state and decided: %s\n\nRationale: %s", resp.Decision, resp.Rationale)
	if _, err := f.journal.Append(ctx, LogAgent, "Autonomous Action Decision", description, true); err != nil {
		f.logger.Error("Failed to log action decision", zap.Error(err))
	}

	f.logger.Info("Chose next action",
		zap.String("decision", resp.Decision),
		zap.Int("awaiting_emails", len(awaiting)),
		zap.Int("pending_tasks", len(pending)))

	return &ActResult{
		State:              ActState{UnreadEmails: len(awaiting), PendingTasks: len(pending)},
		Decision:           resp.Decision,
		Rationale:          resp.Rationale,
		Actions:            resp.Actions,
		NeedsHumanApproval: resp.NeedsHumanApproval,
		Timestamp:          f.now(),
	}, nil
}

// StatusReport returns a free-text report for the current state
func (f *FarmerService) StatusReport(ctx context.Context) (string, error) {
	return f.agent.StatusReport(ctx, f.BuildAgentContext(ctx))
}

// Weather returns the current weather for every region
func (f *FarmerService) Weather(ctx context.Context) []*RegionWeather {
	return f.weather.FetchAll(ctx)
}
