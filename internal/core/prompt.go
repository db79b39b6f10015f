package core

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/proofofcorn/farmer-fred/internal/utils"
)

const (
	maxRecentDecisions    = 5
	maxEmailsPerCategory  = 5
	emailPreviewLength    = 100
	decisionRationaleClip = 150
	maxActItems           = 3
	replyWordLimit        = 200
)

// WeatherData is the weather slice of the agent context
type WeatherData struct {
	Region         string `json:"region"`
	Temperature    int    `json:"temperature"`
	Conditions     string `json:"conditions"`
	Forecast       string `json:"forecast"`
	PlantingViable bool   `json:"plantingViable"`
}

// EmailSummary is a message as the agent sees it
type EmailSummary struct {
	From           string    `json:"from"`
	Subject        string    `json:"subject"`
	Summary        string    `json:"summary"`
	RequiresAction bool      `json:"requiresAction"`
	ReceivedAt     time.Time `json:"receivedAt"`
}

// BudgetStatus is the budget slice of the agent context
type BudgetStatus struct {
	Spent       float64 `json:"spent"`
	Allocated   float64 `json:"allocated"`
	Remaining   float64 `json:"remaining"`
	PercentUsed float64 `json:"percentUsed"`
}

// AgentTask is an open task as the agent sees it
type AgentTask struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Status      TaskStatus `json:"status"`
}

// Decision is a past journal entry fed back to the agent
type Decision struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	Rationale  string    `json:"rationale"`
	Principles []string  `json:"principles"`
	Autonomous bool      `json:"autonomous"`
}

// AgentContext is everything the agent is told before deciding
type AgentContext struct {
	Weather         *WeatherData   `json:"weather"`
	AllWeather      []WeatherData  `json:"allWeather,omitempty"`
	Emails          []EmailSummary `json:"emails"`
	Budget          BudgetStatus   `json:"budget"`
	PendingTasks    []AgentTask    `json:"pendingTasks"`
	RecentDecisions []Decision     `json:"recentDecisions"`
	Learnings       []string       `json:"learnings,omitempty"`
}

// NewBudgetStatus derives the remaining amount and usage ratio
func NewBudgetStatus(b *Budget) BudgetStatus {
	status := BudgetStatus{Spent: b.Spent, Allocated: b.Allocated, Remaining: b.Allocated - b.Spent}
	if b.Allocated > 0 {
		status.PercentUsed = b.Spent / b.Allocated
	}
	return status
}

// FormatContext renders the context block: weather, budget, emails, tasks, recent decisions, learnings
func FormatContext(ctx *AgentContext) string {
	var b strings.Builder

	if len(ctx.AllWeather) > 0 {
		b.WriteString("### Weather (All Regions)\n")
		for _, w := range ctx.AllWeather {
			fmt.Fprintf(&b, "**%s**: %d°F, %s. %s Planting viable: %s\n",
				w.Region, w.Temperature, w.Conditions, w.Forecast, yesNo(w.PlantingViable))
		}
		b.WriteString("\n")
	} else if ctx.Weather != nil {
		w := ctx.Weather
		fmt.Fprintf(&b, "### Weather - %s\n", w.Region)
		fmt.Fprintf(&b, "- Temperature: %d°F\n", w.Temperature)
		fmt.Fprintf(&b, "- Conditions: %s\n", w.Conditions)
		fmt.Fprintf(&b, "- Forecast: %s\n", w.Forecast)
		fmt.Fprintf(&b, "- Planting viable: %s\n\n", yesNo(w.PlantingViable))
	}

	b.WriteString("### Budget\n")
	fmt.Fprintf(&b, "- Spent: $%.2f\n", ctx.Budget.Spent)
	fmt.Fprintf(&b, "- Allocated: $%.2f\n", ctx.Budget.Allocated)
	fmt.Fprintf(&b, "- Remaining: $%.2f\n", ctx.Budget.Remaining)
	fmt.Fprintf(&b, "- Used: %.1f%%\n\n", ctx.Budget.PercentUsed*100)

	if len(ctx.Emails) > 0 {
		b.WriteString("### Recent Emails\n")
		for _, e := range ctx.Emails {
			fmt.Fprintf(&b, "- From: %s | Subject: %s | Requires action: %t\n", e.From, e.Subject, e.RequiresAction)
		}
		b.WriteString("\n")
	}

	if len(ctx.PendingTasks) > 0 {
		b.WriteString("### Pending Tasks\n")
		for _, t := range ctx.PendingTasks {
			fmt.Fprintf(&b, "- [%s] %s\n", t.Priority, t.Description)
		}
		b.WriteString("\n")
	}

	if len(ctx.RecentDecisions) > 0 {
		b.WriteString("### Recent Decisions\n")
		for _, d := range firstDecisions(ctx.RecentDecisions) {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", formatTimestamp(d.Timestamp), d.Action, autonomyLabel(d.Autonomous))
		}
		b.WriteString("\n")
	}

	if len(ctx.Learnings) > 0 {
		b.WriteString("### What You've Learned\n")
		for _, l := range ctx.Learnings {
			fmt.Fprintf(&b, "- %s\n", l)
		}
	}

	return b.String()
}

// BuildDailyCheckPrompt renders the daily check request with the reply format the parser expects
func BuildDailyCheckPrompt(ctx *AgentContext, today time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n## Daily Check - %s\n\n", today.UTC().Format("2006-01-02"))
	b.WriteString("You are performing your daily check routine. Review the current state and decide what actions to take.\n\n")
	b.WriteString(FormatContext(ctx))

	if len(ctx.RecentDecisions) > 0 {
		b.WriteString("\n### Your Recent Decisions - reference these for continuity\n")
		for _, d := range firstDecisions(ctx.RecentDecisions) {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", formatTimestamp(d.Timestamp), d.Action, autonomyLabel(d.Autonomous))
			if d.Rationale != "" {
				fmt.Fprintf(&b, "  Rationale: %s\n", utils.Clip(d.Rationale, decisionRationaleClip))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(`## Focus

- Do not re-evaluate partnerships if nothing has changed since the last check.
- Do not create tasks for things that are already in progress.
- If you have nothing new to act on, say so. "No new information, no new actions needed" is a valid decision.
- Only recommend actions that advance the planting timeline.

## Your Task
1. What changed since the last check? If nothing, say "no changes" and stop.
2. Are there any NEW actions needed today? Only list actions that advance the critical path.
3. For each action, determine if you can act autonomously or need approval.

Respond in this format:

DECISION: [Your main decision for today]

RATIONALE: [Why you made this decision, citing your principles]

ACTIONS:
- [Action 1]: [Details]
- [Action 2]: [Details]

NEEDS_APPROVAL: [Yes/No]
APPROVAL_REASON: [If yes, why]

NEXT_STEPS:
- [Step 1]
- [Step 2]
`)
	return b.String()
}

// BuildEvaluatePrompt renders the request to judge a single proposed action
func BuildEvaluatePrompt(action string, eval DecisionEvaluation, ctx *AgentContext) string {
	principles := "General"
	if len(eval.RelevantPrinciples) > 0 {
		principles = strings.Join(eval.RelevantPrinciples, ", ")
	}

	return fmt.Sprintf(`
## Action to Evaluate
%s

## Pre-evaluation
- Can act autonomously: %t
- Needs approval: %t
- Relevant principles: %s

## Current Context
%s

## Your Task
1. Evaluate this action against your constitution
2. Decide whether to proceed, defer, or escalate
3. Provide clear rationale citing your principles
4. List any actions you'll take

Use the DECISION / RATIONALE / ACTIONS / NEEDS_APPROVAL / APPROVAL_REASON / NEXT_STEPS format.
`, action, eval.CanActAutonomously, eval.NeedsApproval, principles, FormatContext(ctx))
}

// BuildActPrompt renders the request for the single most important next action
func BuildActPrompt(emails []*InboundMessage, tasks []*Task) string {
	var b strings.Builder
	b.WriteString("\nYou have:\n")
	fmt.Fprintf(&b, "- %d emails needing response\n", len(emails))
	fmt.Fprintf(&b, "- %d pending tasks\n\n", len(tasks))

	b.WriteString("Top emails:\n")
	for i, e := range emails {
		if i == maxActItems {
			break
		}
		fmt.Fprintf(&b, "- From: %s, Subject: %s\n", e.From, e.Subject)
	}

	b.WriteString("\nTop tasks:\n")
	for i, t := range tasks {
		if i == maxActItems {
			break
		}
		fmt.Fprintf(&b, "- [%s] %s\n", t.Priority, t.Title)
	}

	b.WriteString("\nWhat is your SINGLE most important action right now? Be specific about what you will do.\n")
	return b.String()
}

// BuildReplyPrompt renders the request to draft a reply to msg as JSON
func BuildReplyPrompt(msg *InboundMessage, task *Task) string {
	return fmt.Sprintf(`You received this email:
From: %s
Subject: %s
Message: %s

Your task: %s

Compose a professional, enthusiastic email response. Be specific about next steps. Keep it under %d words.

IMPORTANT: Respond ONLY with valid JSON in this exact format:
{"subject": "Re: ...", "body": "..."}

Do not include any other text or formatting.`, msg.From, msg.Subject, msg.Body, task.Description, replyWordLimit)
}

// BuildStatusReportPrompt renders the request for a free-text status report
func BuildStatusReportPrompt(ctx *AgentContext) string {
	return fmt.Sprintf(`
## Current Context
%s

## Your Task
Generate a concise status report for the Proof of Corn project. Include:
1. Current status across all regions
2. Key metrics (budget, timeline)
3. Recent decisions
4. Upcoming priorities
5. Any concerns or blockers

Format for the website log - professional but readable.
`, FormatContext(ctx))
}

var emailCategoryOrder = []Category{CategoryLead, CategoryPartnership, CategoryQuestion, CategoryOther, CategorySpam}

// FormatEmailsForAgent groups unread mail by category, most valuable first
func FormatEmailsForAgent(emails []*InboundMessage, now time.Time) string {
	if len(emails) == 0 {
		return "### Emails\nNo unread emails.\n"
	}

	byCategory := make(map[Category][]*InboundMessage)
	for _, e := range emails {
		category := e.Category
		if category == "" {
			category = CategoryOther
		}
		byCategory[category] = append(byCategory[category], e)
	}

	title := cases.Title(language.English)
	var b strings.Builder
	fmt.Fprintf(&b, "### Emails (%d unread)\n", len(emails))

	for _, category := range emailCategoryOrder {
		group := byCategory[category]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n#### %s (%d)\n", title.String(string(category)), len(group))

		if len(group) > maxEmailsPerCategory {
			group = group[:maxEmailsPerCategory]
		}
		for _, e := range group {
			hoursAgo := int(math.Round(now.Sub(e.ReceivedAt).Hours()))
			fmt.Fprintf(&b, "- From: %s (%dh ago)\n", e.From, hoursAgo)
			fmt.Fprintf(&b, "  Subject: %q\n", e.Subject)
			fmt.Fprintf(&b, "  Preview: %q\n", utils.Preview(e.Body, emailPreviewLength))
			fmt.Fprintf(&b, "  Status: %s\n", e.Status)
		}
	}

	return b.String()
}

func firstDecisions(decisions []Decision) []Decision {
	if len(decisions) > maxRecentDecisions {
		return decisions[:maxRecentDecisions]
	}
	return decisions
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func autonomyLabel(autonomous bool) string {
	if autonomous {
		return "autonomous"
	}
	return "approved"
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
