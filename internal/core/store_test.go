package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskBoardCreateDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.tasks.Create(ctx, &Task{Title: "no type"}), ErrInvalidTask)
	assert.ErrorIs(t, f.tasks.Create(ctx, &Task{Type: TaskResearch}), ErrInvalidTask)

	task := &Task{Type: TaskResearch, Title: "Compare seed suppliers"}
	require.NoError(t, f.tasks.Create(ctx, task))
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, PriorityMedium, task.Priority)
	assert.Equal(t, TaskPending, task.Status)
	assert.Equal(t, defaultAssignee, task.AssignedTo)
	assert.True(t, task.CreatedAt.Equal(f.clock))

	_, err := f.tasks.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskBoardListOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, task := range []*Task{
		{Type: TaskOther, Title: "low", Priority: PriorityLow},
		{Type: TaskOther, Title: "done", Priority: PriorityHigh, Status: TaskCompleted},
		{Type: TaskOther, Title: "high", Priority: PriorityHigh},
		{Type: TaskOther, Title: "medium", Priority: PriorityMedium},
	} {
		require.NoError(t, f.tasks.Create(ctx, task))
	}

	tasks, err := f.tasks.List(ctx)
	require.NoError(t, err)
	var titles []string
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"high", "medium", "low", "done"}, titles)

	summary := Summarize(tasks)
	assert.Equal(t, TaskSummary{Total: 4, Pending: 3, Completed: 1, HighPriority: 1}, summary)
}

func TestTaskBoardUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := &Task{Type: TaskOutreach, Title: "Email the co-op", Priority: PriorityHigh}
	require.NoError(t, f.tasks.Create(ctx, task))

	updated, err := f.tasks.UpdateStatus(ctx, task.ID, TaskCompleted)
	require.NoError(t, err)
	assert.Equal(t, TaskCompleted, updated.Status)

	stored, err := f.tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, TaskCompleted, stored.Status)
	assert.Zero(t, Summarize([]*Task{stored}).HighPriority)

	_, err = f.tasks.UpdateStatus(ctx, "missing", TaskCompleted)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDecodeTaskDefaults(t *testing.T) {
	task, err := DecodeTask([]byte(`{"id":"t1","title":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, TaskOther, task.Type)
	assert.Equal(t, PriorityMedium, task.Priority)
	assert.Equal(t, TaskPending, task.Status)
	assert.Equal(t, defaultAssignee, task.AssignedTo)

	_, err = DecodeTask([]byte(`not json`))
	assert.Error(t, err)
}

func TestInboxListAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	older := &InboundMessage{ID: "m1", From: "a@example.com", Subject: "first", Status: StatusUnread, Category: CategoryLead, ReceivedAt: f.clock}
	newer := &InboundMessage{ID: "m2", From: "b@example.com", Subject: "second", Status: StatusUnread, Category: CategoryQuestion, ReceivedAt: f.clock.Add(time.Hour)}
	require.NoError(t, f.inbox.Store(ctx, older))
	require.NoError(t, f.inbox.Store(ctx, newer))

	messages, err := f.inbox.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m2", messages[0].ID)

	require.NoError(t, f.inbox.MarkRead(ctx, "m2"))
	require.NoError(t, f.inbox.MarkReplied(ctx, "m1"))
	require.NoError(t, f.inbox.MarkRead(ctx, "missing"))

	unread, err := f.inbox.UnreadMessages(ctx)
	require.NoError(t, err)
	assert.Empty(t, unread)

	messages, err = f.inbox.ListMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, InboxSummary{Total: 2, Unread: 0, Leads: 1, NeedsResponse: 1}, SummarizeInbox(messages))
}

func TestInboxSkipsUnreadableMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.kv.Put(ctx, EmailKey("broken"), []byte("{"), 0))
	require.NoError(t, f.inbox.Store(ctx, &InboundMessage{ID: "ok", Status: StatusUnread, ReceivedAt: f.clock}))

	messages, err := f.inbox.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "ok", messages[0].ID)
}

func TestJournalRecentNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		_, err := f.journal.Append(ctx, LogWeather, title, "", true)
		require.NoError(t, err)
		f.advance(time.Second)
	}

	recent, err := f.journal.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "three", recent[0].Title)
	assert.Equal(t, "two", recent[1].Title)

	all, err := f.journal.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Entries expire with the log TTL.
	f.advance(logTTL)
	all, err = f.journal.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDecodeLogEntryDefaultsCategory(t *testing.T) {
	entry, err := DecodeLogEntry([]byte(`{"id":"x","title":"t"}`))
	require.NoError(t, err)
	assert.Equal(t, LogAgent, entry.Category)
}

func TestDecodeBudgetFallsBack(t *testing.T) {
	assert.Equal(t, &Budget{Spent: defaultBudgetSpent, Allocated: defaultBudgetAllocated}, DecodeBudget([]byte("nope")))
	assert.Equal(t, &Budget{Spent: defaultBudgetSpent, Allocated: defaultBudgetAllocated}, DecodeBudget([]byte(`{"spent":5,"allocated":0}`)))
	assert.Equal(t, &Budget{Spent: 5, Allocated: 100}, DecodeBudget([]byte(`{"spent":5,"allocated":100}`)))
}
