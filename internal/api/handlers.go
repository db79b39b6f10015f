package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/core"
	"github.com/proofofcorn/farmer-fred/internal/utils"
)

const (
	statusLogLimit   = 10
	logPageLimit     = 50
	sentPreviewRunes = 200
)

// Identity describes the running agent
type Identity struct {
	Name        string
	Version     string
	LLMProvider string
}

// Handler serves the HTTP API
type Handler struct {
	farmer       *core.FarmerService
	replies      *core.ReplyService
	inbox        *core.Inbox
	tasks        *core.TaskBoard
	journal      *core.Journal
	learnings    *core.LearningStore
	feedback     *core.FeedbackStore
	followUps    *core.FollowUpScheduler
	transport    core.MailTransport
	constitution *core.Constitution
	identity     Identity
	logger       *zap.Logger
	now          func() time.Time
}

// NewHandler creates a new handler. A nil transport disables /admin/send.
func NewHandler(
	farmer *core.FarmerService,
	replies *core.ReplyService,
	inbox *core.Inbox,
	tasks *core.TaskBoard,
	journal *core.Journal,
	learnings *core.LearningStore,
	feedback *core.FeedbackStore,
	followUps *core.FollowUpScheduler,
	transport core.MailTransport,
	constitution *core.Constitution,
	identity Identity,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		farmer:       farmer,
		replies:      replies,
		inbox:        inbox,
		tasks:        tasks,
		journal:      journal,
		learnings:    learnings,
		feedback:     feedback,
		followUps:    followUps,
		transport:    transport,
		constitution: constitution,
		identity:     identity,
		logger:       logger,
		now:          time.Now,
	}
}

type regionInfo struct {
	Name           string `json:"name"`
	Status         string `json:"status"`
	PlantingWindow string `json:"plantingWindow"`
}

type agentInfo struct {
	Name       string            `json:"name"`
	Version    string            `json:"version"`
	Origin     core.Origin       `json:"origin"`
	Principles []string          `json:"principles"`
	Regions    []regionInfo      `json:"regions"`
	Economics  core.RevenueShare `json:"economics"`
	Endpoints  map[string]string `json:"endpoints"`
}

func (h *Handler) agentInfo() agentInfo {
	info := agentInfo{
		Name:      h.identity.Name,
		Version:   h.identity.Version,
		Origin:    h.constitution.Origin,
		Economics: h.constitution.Economics.RevenueShare,
		Endpoints: map[string]string{
			"health":       "/health",
			"weather":      "/weather",
			"status":       "/status",
			"check":        "/check (POST)",
			"decide":       "/decide (POST)",
			"act":          "/act (POST)",
			"learnings":    "/learnings",
			"feedback":     "/feedback",
			"constitution": "/constitution",
			"log":          "/log",
			"tasks":        "/tasks",
		},
	}
	if info.Name == "" {
		info.Name = h.constitution.Name
	}
	if info.Version == "" {
		info.Version = h.constitution.Version
	}
	for _, p := range h.constitution.Principles {
		info.Principles = append(info.Principles, p.Name)
	}
	for _, r := range h.constitution.Regions {
		info.Regions = append(info.Regions, regionInfo{Name: r.Name, Status: r.Status, PlantingWindow: r.PlantingWindow})
	}
	return info
}

// Info returns the agent description
func (h *Handler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, h.agentInfo())
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   h.now().UTC(),
		"llmProvider": h.identity.LLMProvider,
	})
}

// Constitution returns the constitution as JSON, or as a page for browsers
func (h *Handler) Constitution(c *gin.Context) {
	if strings.Contains(c.GetHeader("Accept"), "text/html") {
		page, err := renderConstitution(h.constitution)
		if err != nil {
			h.logger.Error("Failed to render constitution", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render constitution"})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", page)
		return
	}
	c.JSON(http.StatusOK, h.constitution)
}

// SystemPrompt returns the prompt the agent runs with
func (h *Handler) SystemPrompt(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"prompt": h.constitution.SystemPrompt()})
}

type weatherView struct {
	*core.RegionWeather
	Evaluation core.PlantingEvaluation `json:"evaluation"`
}

// Weather returns current conditions and a planting evaluation per region
func (h *Handler) Weather(c *gin.Context) {
	weather := h.farmer.Weather(c.Request.Context())
	views := make([]weatherView, 0, len(weather))
	for _, w := range weather {
		views = append(views, weatherView{RegionWeather: w, Evaluation: core.EvaluatePlanting(w)})
	}
	c.JSON(http.StatusOK, gin.H{"weather": views, "timestamp": h.now().UTC()})
}

// Status returns the agent, weather, budget, recent log and today's check
func (h *Handler) Status(c *gin.Context) {
	ctx := c.Request.Context()

	logs, err := h.journal.Recent(ctx, statusLogLimit)
	if err != nil {
		h.logger.Error("Failed to read recent log", zap.Error(err))
	}

	var lastCheck *core.DailyCheckResult
	if check := h.farmer.LastDailyCheck(ctx); check != nil {
		lastCheck = publicCheck(check)
	}

	c.JSON(http.StatusOK, gin.H{
		"agent":          h.agentInfo(),
		"weather":        h.farmer.Weather(ctx),
		"budget":         core.NewBudgetStatus(h.farmer.Budget(ctx)),
		"recentLogs":     publicLogs(logs),
		"lastDailyCheck": lastCheck,
		"timestamp":      h.now().UTC(),
	})
}

// DailyCheck runs the daily routine now
func (h *Handler) DailyCheck(c *gin.Context) {
	result, err := h.farmer.PerformDailyCheck(c.Request.Context())
	if err != nil {
		h.logger.Error("Daily check failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Daily check failed"})
		return
	}
	c.JSON(http.StatusOK, publicCheck(result))
}

type decideRequest struct {
	Action string `json:"action"`
}

// Decide evaluates a proposed action
func (h *Handler) Decide(c *gin.Context) {
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Action) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'action' in request body"})
		return
	}

	resp, err := h.farmer.Decide(c.Request.Context(), req.Action)
	if err != nil {
		h.logger.Error("Decision failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Decision failed"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Act asks the agent for its single most important next action
func (h *Handler) Act(c *gin.Context) {
	result, err := h.farmer.Act(c.Request.Context())
	if err != nil {
		h.logger.Error("Action decision failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Action decision failed"})
		return
	}
	result.Decision = sanitize(result.Decision)
	result.Rationale = sanitize(result.Rationale)
	c.JSON(http.StatusOK, result)
}

// Learnings returns what the agent has learned, newest first
func (h *Handler) Learnings(c *gin.Context) {
	learnings, err := h.learnings.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list learnings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list learnings"})
		return
	}

	public := make([]*core.Learning, 0, len(learnings))
	for _, l := range learnings {
		p := *l
		p.Insight = sanitize(l.Insight)
		public = append(public, &p)
	}
	c.JSON(http.StatusOK, gin.H{
		"learnings":  public,
		"byCategory": core.GroupLearnings(public),
		"summary":    core.SummarizeLearnings(public),
		"timestamp":  h.now().UTC(),
	})
}

type learningRequest struct {
	Source     core.LearningSource   `json:"source"`
	SourceID   string                `json:"sourceId"`
	Insight    string                `json:"insight"`
	Category   core.LearningCategory `json:"category"`
	Confidence core.Confidence       `json:"confidence"`
}

// AddLearning records a new learning
func (h *Handler) AddLearning(c *gin.Context) {
	var req learningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	learning := &core.Learning{
		Source:     req.Source,
		SourceID:   req.SourceID,
		Insight:    req.Insight,
		Category:   req.Category,
		Confidence: req.Confidence,
	}
	if err := h.learnings.Record(c.Request.Context(), learning); err != nil {
		if errors.Is(err, core.ErrInvalidLearning) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: insight, source"})
			return
		}
		h.logger.Error("Failed to record learning", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record learning"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "learning": learning})
}

// Feedback returns community feedback with a summary
func (h *Handler) Feedback(c *gin.Context) {
	entries, err := h.feedback.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list feedback", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list feedback"})
		return
	}

	public := make([]*core.Feedback, 0, len(entries))
	for _, f := range entries {
		p := *f
		p.Content = sanitize(f.Content)
		public = append(public, &p)
	}
	c.JSON(http.StatusOK, gin.H{
		"feedback":  public,
		"summary":   core.SummarizeFeedback(entries),
		"timestamp": h.now().UTC(),
	})
}

type feedbackRequest struct {
	Author  string            `json:"author"`
	Type    core.FeedbackType `json:"type"`
	Content string            `json:"content"`
}

// AddFeedback stores a piece of community feedback
func (h *Handler) AddFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	fb, err := h.feedback.Submit(c.Request.Context(), req.Author, req.Type, req.Content)
	switch {
	case errors.Is(err, core.ErrMissingFeedback):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required field: content"})
		return
	case errors.Is(err, core.ErrFeedbackLength):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content must be between 10 and 2000 characters"})
		return
	case err != nil:
		h.logger.Error("Failed to store feedback", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store feedback"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"feedback": fb,
		"message":  "Thank you for helping Fred get smarter! Your feedback has been received.",
	})
}

// Log returns the most recent journal entries
func (h *Handler) Log(c *gin.Context) {
	logs, err := h.journal.Recent(c.Request.Context(), logPageLimit)
	if err != nil {
		h.logger.Error("Failed to read log", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read log"})
		return
	}
	public := publicLogs(logs)
	c.JSON(http.StatusOK, gin.H{"logs": public, "count": len(public)})
}

// ListTasks returns every task with a summary and the next pending one
func (h *Handler) ListTasks(c *gin.Context) {
	tasks, err := h.tasks.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list tasks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tasks"})
		return
	}

	public := make([]*core.Task, 0, len(tasks))
	var next *core.Task
	for _, t := range tasks {
		p := publicTask(t)
		public = append(public, p)
		if next == nil && p.Status == core.TaskPending {
			next = p
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":      public,
		"summary":    core.Summarize(tasks),
		"nextAction": next,
		"timestamp":  h.now().UTC(),
	})
}

type addTaskRequest struct {
	Type           core.TaskType `json:"type"`
	Priority       core.Priority `json:"priority"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	RelatedEmailID string        `json:"relatedEmailId"`
	DueAt          *time.Time    `json:"dueAt"`
	AssignedTo     string        `json:"assignedTo"`
}

// AddTask creates a task
func (h *Handler) AddTask(c *gin.Context) {
	var req addTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	task := &core.Task{
		Type:           req.Type,
		Priority:       req.Priority,
		Title:          req.Title,
		Description:    req.Description,
		RelatedEmailID: req.RelatedEmailID,
		DueAt:          req.DueAt,
		AssignedTo:     req.AssignedTo,
	}
	if err := h.tasks.Create(c.Request.Context(), task); err != nil {
		if errors.Is(err, core.ErrInvalidTask) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: title, type"})
			return
		}
		h.logger.Error("Failed to create task", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": publicTask(task)})
}

// Inbox returns every stored message, unredacted
func (h *Handler) Inbox(c *gin.Context) {
	messages, err := h.inbox.ListMessages(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list inbox", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list inbox"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"emails":    messages,
		"summary":   core.SummarizeInbox(messages),
		"timestamp": h.now().UTC(),
	})
}

// MarkRead marks a stored message read
func (h *Handler) MarkRead(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.inbox.Get(ctx, id); errors.Is(err, core.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Email not found"})
		return
	}
	if err := h.inbox.MarkRead(ctx, id); err != nil {
		h.logger.Error("Failed to mark email read", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type sendRequest struct {
	To             string `json:"to"`
	Subject        string `json:"subject"`
	Text           string `json:"text"`
	ReplyToEmailID string `json:"replyToEmailId"`
}

// SendEmail sends an outbound message, starts follow-up tracking and logs the outreach
func (h *Handler) SendEmail(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.To == "" || req.Subject == "" || req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: to, subject, text"})
		return
	}
	if h.transport == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Outbound email is not configured"})
		return
	}

	ctx := c.Request.Context()
	if err := h.transport.Send(ctx, &core.OutboundMail{To: []string{req.To}, Subject: req.Subject, Body: req.Text}); err != nil {
		h.logger.Error("Failed to send email", zap.String("to", core.RedactEmail(req.To)), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send email"})
		return
	}

	category := core.CategoryOther
	if req.ReplyToEmailID != "" {
		if original, err := h.inbox.Get(ctx, req.ReplyToEmailID); err == nil {
			category = original.Category
		}
		if err := h.inbox.MarkReplied(ctx, req.ReplyToEmailID); err != nil {
			h.logger.Error("Failed to mark email replied", zap.String("id", req.ReplyToEmailID), zap.Error(err))
		}
	}

	scheduled, err := h.followUps.ScheduleFollowUp(ctx, req.To, category, req.Subject)
	if err != nil {
		h.logger.Error("Failed to schedule follow-up", zap.Error(err))
	}

	title := fmt.Sprintf("Email sent to %s", core.RedactEmail(req.To))
	description := fmt.Sprintf("Subject: %s\n\n%s", req.Subject, utils.Preview(req.Text, sentPreviewRunes))
	if _, err := h.journal.Append(ctx, core.LogOutreach, title, description, false); err != nil {
		h.logger.Error("Failed to log outreach", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "followUpScheduled": scheduled})
}

type processTaskRequest struct {
	TaskID string `json:"taskId"`
}

// ProcessTask drafts and sends the reply for a respond_email task
func (h *Handler) ProcessTask(c *gin.Context) {
	var req processTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TaskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing taskId"})
		return
	}

	sent, err := h.replies.ProcessTask(c.Request.Context(), req.TaskID)
	if err != nil {
		status, message := processTaskError(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Failed to process task", zap.String("task_id", req.TaskID), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": message})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"task":    sent.TaskID,
		"email": gin.H{
			"to":      sent.To,
			"subject": sent.Subject,
			"body":    sent.Body,
		},
		"followUpScheduled": sent.FollowUpScheduled,
	})
}

func processTaskError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "Task not found"
	case errors.Is(err, core.ErrTaskCompleted):
		return http.StatusBadRequest, "Task already completed"
	case errors.Is(err, core.ErrUnsupportedTask):
		return http.StatusBadRequest, "Only email response tasks supported"
	case errors.Is(err, core.ErrRelatedEmailNotFound):
		return http.StatusNotFound, "Related email not found"
	case errors.Is(err, core.ErrTransportUnavailable):
		return http.StatusServiceUnavailable, "Outbound email is not configured"
	case errors.Is(err, core.ErrUnparseableDraft):
		return http.StatusBadGateway, "Failed to parse drafted reply"
	}
	return http.StatusBadGateway, "Failed to process task"
}

type statusRequest struct {
	Status core.TaskStatus `json:"status"`
}

// UpdateTaskStatus moves a task to a new status
func (h *Handler) UpdateTaskStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !validTaskStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	task, err := h.tasks.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		h.logger.Error("Failed to update task", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

func validTaskStatus(s core.TaskStatus) bool {
	switch s {
	case core.TaskPending, core.TaskInProgress, core.TaskCompleted:
		return true
	}
	return false
}

func publicTask(t *core.Task) *core.Task {
	p := *t
	p.Title = sanitize(t.Title)
	p.Description = sanitize(t.Description)
	return &p
}

func publicLogs(entries []*core.LogEntry) []*core.LogEntry {
	public := make([]*core.LogEntry, 0, len(entries))
	for _, e := range entries {
		p := *e
		p.Title = sanitize(e.Title)
		p.Description = sanitize(e.Description)
		public = append(public, &p)
	}
	return public
}

func publicCheck(r *core.DailyCheckResult) *core.DailyCheckResult {
	p := *r
	p.ExecutedActions = make([]string, 0, len(r.ExecutedActions))
	for _, a := range r.ExecutedActions {
		p.ExecutedActions = append(p.ExecutedActions, sanitize(a))
	}
	return &p
}
