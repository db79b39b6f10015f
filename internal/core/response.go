package core

import (
	"regexp"
	"strings"

	"github.com/proofofcorn/farmer-fred/internal/utils"
)

// ActionType is the coarse kind of an action the agent proposes
type ActionType string

const (
	ActionEmail    ActionType = "email"
	ActionAlert    ActionType = "alert"
	ActionSchedule ActionType = "schedule"
	ActionLog      ActionType = "log"
)

const (
	labelDecision       = "DECISION:"
	labelRationale      = "RATIONALE:"
	labelActions        = "ACTIONS:"
	labelNeedsApproval  = "NEEDS_APPROVAL:"
	labelApprovalReason = "APPROVAL_REASON:"
	labelNextSteps      = "NEXT_STEPS:"

	noRationale          = "No rationale provided"
	decisionFallbackSize = 200
)

var sectionLabels = []string{
	labelDecision, labelRationale, labelActions, labelNeedsApproval, labelApprovalReason, labelNextSteps,
}

var approvalPattern = regexp.MustCompile(`(?i)NEEDS_APPROVAL:\s*(yes|no)`)

// actionBuckets is checked in order; the first keyword found decides the type
var actionBuckets = []struct {
	keyword string
	kind    ActionType
}{
	{"email", ActionEmail},
	{"alert", ActionAlert},
	{"schedule", ActionSchedule},
}

// AgentAction is one proposed action line
type AgentAction struct {
	Type        ActionType `json:"type"`
	Description string     `json:"description"`
}

// AgentResponse is the structured form of a model reply
type AgentResponse struct {
	Decision           string        `json:"decision"`
	Rationale          string        `json:"rationale"`
	Actions            []AgentAction `json:"actions"`
	NeedsHumanApproval bool          `json:"needsHumanApproval"`
	ApprovalReason     string        `json:"approvalReason,omitempty"`
	NextSteps          []string      `json:"nextSteps"`
}

// ParseAgentResponse extracts the labelled sections of a reply. Missing or malformed
// sections fall back to defaults; it never fails.
func ParseAgentResponse(text string) AgentResponse {
	resp := AgentResponse{
		Actions:   []AgentAction{},
		NextSteps: []string{},
	}

	if decision, ok := section(text, labelDecision); ok {
		decision = strings.TrimLeft(decision, " \t\r\n")
		if i := strings.IndexByte(decision, '\n'); i >= 0 {
			decision = decision[:i]
		}
		if i := strings.Index(decision, "RATIONALE"); i >= 0 {
			decision = decision[:i]
		}
		resp.Decision = strings.TrimSpace(decision)
	}
	if resp.Decision == "" {
		resp.Decision = utils.Clip(text, decisionFallbackSize)
	}

	if rationale, ok := section(text, labelRationale); ok {
		resp.Rationale = strings.TrimSpace(rationale)
	}
	if resp.Rationale == "" {
		resp.Rationale = noRationale
	}

	if actions, ok := section(text, labelActions); ok {
		for _, item := range bullets(actions) {
			resp.Actions = append(resp.Actions, AgentAction{Type: classifyAction(item), Description: item})
		}
	}

	if m := approvalPattern.FindStringSubmatch(text); m != nil {
		resp.NeedsHumanApproval = strings.EqualFold(m[1], "yes")
	}

	if reason, ok := section(text, labelApprovalReason); ok {
		resp.ApprovalReason = strings.TrimSpace(reason)
	}

	if steps, ok := section(text, labelNextSteps); ok {
		resp.NextSteps = append(resp.NextSteps, bullets(steps)...)
	}

	return resp
}

// section returns the text after label up to the next label that starts a line,
// or to the end of text
func section(text, label string) (string, bool) {
	start := strings.Index(text, label)
	if start < 0 {
		return "", false
	}
	body := text[start+len(label):]

	end := len(body)
	for _, other := range sectionLabels {
		if other == label {
			continue
		}
		if i := strings.Index(body, "\n"+other); i >= 0 && i < end {
			end = i
		}
	}
	return body[:end], true
}

// bullets returns the "-" prefixed lines of a block, without the dash
func bullets(block string) []string {
	var items []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") {
			continue
		}
		if item := strings.TrimSpace(line[1:]); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func classifyAction(description string) ActionType {
	lower := strings.ToLower(description)
	for _, bucket := range actionBuckets {
		if strings.Contains(lower, bucket.keyword) {
			return bucket.kind
		}
	}
	return ActionLog
}
