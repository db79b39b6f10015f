package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFollowUp(t *testing.T, f *fixture, contact string) *FollowUpRecord {
	t.Helper()
	data, err := f.kv.Get(context.Background(), FollowUpKey(contact))
	require.NoError(t, err)
	rec, err := DecodeFollowUpRecord(data)
	require.NoError(t, err)
	return rec
}

func TestScheduleFollowUpAttemptSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	contact := "Joe@NelsonFarms.com"

	ok, err := f.followUps.ScheduleFollowUp(ctx, contact, CategoryLead, "Land in Humboldt")
	require.NoError(t, err)
	assert.True(t, ok)
	rec := loadFollowUp(t, f, contact)
	assert.Equal(t, 0, rec.Attempts)
	assert.True(t, f.clock.Add(2*24*time.Hour).Equal(rec.FollowUpAfter))
	assert.Equal(t, CategoryLead, rec.Category)

	ok, err = f.followUps.ScheduleFollowUp(ctx, contact, CategoryLead, "Land in Humboldt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, loadFollowUp(t, f, contact).Attempts)

	ok, err = f.followUps.ScheduleFollowUp(ctx, contact, CategoryLead, "Land in Humboldt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, maxFollowUpAttempts, loadFollowUp(t, f, contact).Attempts)

	// Once at the cap the record is left alone.
	before := loadFollowUp(t, f, contact)
	f.advance(time.Hour)
	ok, err = f.followUps.ScheduleFollowUp(ctx, contact, CategoryLead, "Land in Humboldt")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, loadFollowUp(t, f, contact))
}

func TestScheduleFollowUpDelayByCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.followUps.ScheduleFollowUp(ctx, "vendor@sensors.io", CategoryPartnership, "Soil sensors")
	require.NoError(t, err)
	assert.True(t, f.clock.Add(4*24*time.Hour).Equal(loadFollowUp(t, f, "vendor@sensors.io").FollowUpAfter))

	_, err = f.followUps.ScheduleFollowUp(ctx, "friend@example.com", "", "Hello")
	require.NoError(t, err)
	assert.Equal(t, CategoryOther, loadFollowUp(t, f, "friend@example.com").Category)
}

func TestScheduleFollowUpBlocklisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, contact := range []string{"noreply@vendor.com", "fred@proofofcorn.com", "MAILER-DAEMON@mx.example.org", ""} {
		ok, err := f.followUps.ScheduleFollowUp(ctx, contact, CategoryLead, "subject")
		require.NoError(t, err)
		assert.False(t, ok, contact)
		assert.False(t, f.kv.has(FollowUpKey(contact)), contact)
	}
}

func TestCheckOverdueFollowUps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.followUps.ScheduleFollowUp(ctx, "joe@nelsonfarms.com", CategoryLead, "Land in Humboldt")
	require.NoError(t, err)
	_, err = f.followUps.ScheduleFollowUp(ctx, "vendor@sensors.io", CategoryPartnership, "Soil sensors")
	require.NoError(t, err)

	// Not due yet.
	tasks, err := f.followUps.CheckOverdueFollowUps(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	f.advance(3 * 24 * time.Hour)

	tasks, err = f.followUps.CheckOverdueFollowUps(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	task := tasks[0]
	assert.Equal(t, TaskFollowUp, task.Type)
	assert.Equal(t, PriorityHigh, task.Priority)
	assert.Equal(t, "Follow up with joe@nelsonfarms.com", task.Title)
	assert.Contains(t, task.Description, `"Land in Humboldt"`)
	assert.Contains(t, task.Description, "Attempt 1 of 2")
	assert.False(t, f.kv.has(FollowUpKey("joe@nelsonfarms.com")))

	stored, err := f.tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, stored.Title)

	// Running again immediately finds nothing new.
	tasks, err = f.followUps.CheckOverdueFollowUps(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	f.advance(2 * 24 * time.Hour)
	tasks, err = f.followUps.CheckOverdueFollowUps(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, PriorityMedium, tasks[0].Priority)
}

func TestCancelFollowUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.followUps.ScheduleFollowUp(ctx, "joe@nelsonfarms.com", CategoryLead, "Land")
	require.NoError(t, err)
	require.NoError(t, f.followUps.CancelFollowUp(ctx, "JOE@nelsonfarms.com"))
	assert.False(t, f.kv.has(FollowUpKey("joe@nelsonfarms.com")))

	// Cancelling nothing is fine.
	require.NoError(t, f.followUps.CancelFollowUp(ctx, "nobody@example.com"))
}

func TestDecodeFollowUpRecordClampsAttempts(t *testing.T) {
	rec, err := DecodeFollowUpRecord([]byte(`{"contact":"a@b.com","attempts":7}`))
	require.NoError(t, err)
	assert.Equal(t, maxFollowUpAttempts, rec.Attempts)
	assert.Equal(t, CategoryOther, rec.Category)

	rec, err = DecodeFollowUpRecord([]byte(`{"contact":"a@b.com","attempts":-3}`))
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Attempts)
}
