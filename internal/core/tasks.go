package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultAssignee = "fred"

// ErrInvalidTask is returned when a task is missing required fields
var ErrInvalidTask = errors.New("task requires a title and type")

var priorityRank = map[Priority]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// TaskSummary counts tasks by state
type TaskSummary struct {
	Total        int `json:"total"`
	Pending      int `json:"pending"`
	InProgress   int `json:"inProgress"`
	Completed    int `json:"completed"`
	HighPriority int `json:"highPriority"`
}

// TaskBoard stores and lists tasks
type TaskBoard struct {
	kv     KVStore
	logger *zap.Logger
	now    func() time.Time
}

// NewTaskBoard creates a new task board
func NewTaskBoard(kv KVStore, logger *zap.Logger) *TaskBoard {
	return &TaskBoard{kv: kv, logger: logger, now: time.Now}
}

// Create fills in id, timestamps and defaults and stores the task
func (b *TaskBoard) Create(ctx context.Context, task *Task) error {
	if task.Title == "" || task.Type == "" {
		return ErrInvalidTask
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = b.now()
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
	return putJSON(ctx, b.kv, TaskKey(task.ID), task, taskTTL)
}

// Get loads a task by id
func (b *TaskBoard) Get(ctx context.Context, id string) (*Task, error) {
	data, err := b.kv.Get(ctx, TaskKey(id))
	if err != nil {
		return nil, err
	}
	return DecodeTask(data)
}

// List returns every stored task, open tasks first and then by priority
func (b *TaskBoard) List(ctx context.Context) ([]*Task, error) {
	keys, err := b.kv.List(ctx, taskKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]*Task, 0, len(keys))
	for _, key := range keys {
		data, err := b.kv.Get(ctx, key)
		if err != nil {
			if !isNotFound(err) {
				b.logger.Error("Failed to read task", zap.String("key", key), zap.Error(err))
			}
			continue
		}
		task, err := DecodeTask(data)
		if err != nil {
			b.logger.Warn("Skipping unreadable task", zap.String("key", key), zap.Error(err))
			continue
		}
		tasks = append(tasks, task)
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		ci, cj := tasks[i].Status == TaskCompleted, tasks[j].Status == TaskCompleted
		if ci != cj {
			return cj
		}
		return priorityRank[tasks[i].Priority] < priorityRank[tasks[j].Priority]
	})
	return tasks, nil
}

// UpdateStatus changes the status of a stored task
func (b *TaskBoard) UpdateStatus(ctx context.Context, id string, status TaskStatus) (*Task, error) {
	task, err := b.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Status = status
	if err := putJSON(ctx, b.kv, TaskKey(task.ID), task, taskTTL); err != nil {
		return nil, err
	}
	return task, nil
}

// Summarize counts the given tasks by state
func Summarize(tasks []*Task) TaskSummary {
	summary := TaskSummary{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case TaskPending:
			summary.Pending++
		case TaskInProgress:
			summary.InProgress++
		case TaskCompleted:
			summary.Completed++
		}
		if t.Priority == PriorityHigh && t.Status != TaskCompleted {
			summary.HighPriority++
		}
	}
	return summary
}
