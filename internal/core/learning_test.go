package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLearnings(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		body     string
		insights []string
	}{
		{
			name:     "preference",
			subject:  "Scheduling",
			body:     "I would prefer a call on Mondays.",
			insights: []string{`Communication preference noted from joe@nelsonfarms.com: "Scheduling"`},
		},
		{
			name:     "would be better",
			subject:  "Timing",
			body:     "Mornings would be better for me.",
			insights: []string{`Communication preference noted from joe@nelsonfarms.com: "Timing"`},
		},
		{
			name:     "first region wins",
			subject:  "Land in Iowa",
			body:     "We also farm in Nebraska and Texas.",
			insights: []string{"Regional insight from joe@nelsonfarms.com about Nebraska farming"},
		},
		{
			name:    "preference and region",
			subject: "Texas acreage",
			body:    "Email is preferred.",
			insights: []string{
				`Communication preference noted from joe@nelsonfarms.com: "Texas acreage"`,
				"Regional insight from joe@nelsonfarms.com about Texas farming",
			},
		},
		{
			name:    "nothing to learn",
			subject: "Hello",
			body:    "Nice project.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &InboundMessage{ID: "m1", From: "joe@nelsonfarms.com", Subject: tt.subject, Body: tt.body}
			learnings := ExtractLearnings(msg)

			var insights []string
			for _, l := range learnings {
				insights = append(insights, l.Insight)
				assert.Equal(t, SourceEmail, l.Source)
				assert.Equal(t, "m1", l.SourceID)
				assert.Equal(t, ConfidenceMedium, l.Confidence)
			}
			assert.Equal(t, tt.insights, insights)
		})
	}
}

func TestLearningStoreRecordAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.learnings.Record(ctx, &Learning{Insight: "  ", Source: SourceObservation})
	assert.ErrorIs(t, err, ErrInvalidLearning)
	err = f.learnings.Record(ctx, &Learning{Insight: "Frost lingers in April"})
	assert.ErrorIs(t, err, ErrInvalidLearning)

	older := &Learning{Insight: "Farmers answer faster by phone", Source: SourceFeedback, Confidence: ConfidenceHigh}
	require.NoError(t, f.learnings.Record(ctx, older))
	assert.NotEmpty(t, older.ID)
	assert.Equal(t, LearningGeneral, older.Category)

	f.advance(time.Hour)
	newer := &Learning{Insight: "Iowa soil warms late", Source: SourceObservation, Category: LearningFarming}
	require.NoError(t, f.learnings.Record(ctx, newer))
	assert.Equal(t, ConfidenceMedium, newer.Confidence)

	learnings, err := f.learnings.List(ctx)
	require.NoError(t, err)
	require.Len(t, learnings, 2)
	assert.Equal(t, newer.ID, learnings[0].ID)
	assert.Equal(t, older.ID, learnings[1].ID)

	summary := SummarizeLearnings(learnings)
	assert.Equal(t, LearningSummary{Total: 2, FromFeedback: 1, HighConfidence: 1}, summary)

	groups := GroupLearnings(learnings)
	assert.Len(t, groups[LearningFarming], 1)
	assert.Len(t, groups[LearningGeneral], 1)

	entries, err := f.journal.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "New Learning Recorded", entries[0].Title)
	assert.Contains(t, entries[0].Description, `Fred learned: "Iowa soil warms late"`)
	assert.Contains(t, entries[0].Description, "Category: farming")
}

func TestLearningStoreSkipsUnreadable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.kv.Put(ctx, LearningKey("bad"), []byte("{"), time.Hour))
	require.NoError(t, f.learnings.Record(ctx, &Learning{Insight: "Keep replies short", Source: SourceDecision}))

	learnings, err := f.learnings.List(ctx)
	require.NoError(t, err)
	require.Len(t, learnings, 1)
	assert.Equal(t, "Keep replies short", learnings[0].Insight)
}

func TestHandleInboundRecordsLearnings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.triage.HandleInbound(ctx, &RawInbound{
		From:    "joe@nelsonfarms.com",
		Subject: "Land in Iowa",
		Body:    "We have 80 acres. I prefer email.",
	})
	require.NoError(t, err)

	learnings, err := f.learnings.List(ctx)
	require.NoError(t, err)
	require.Len(t, learnings, 2)
	for _, l := range learnings {
		assert.Equal(t, msg.ID, l.SourceID)
	}

	// Spam teaches nothing.
	_, err = f.triage.HandleInbound(ctx, &RawInbound{
		From:    "deals@example.com",
		Subject: "Iowa SEO services",
		Body:    "Unsubscribe from our newsletter. We prefer crypto.",
	})
	require.NoError(t, err)
	learnings, err = f.learnings.List(ctx)
	require.NoError(t, err)
	assert.Len(t, learnings, 2)
}

func TestBuildAgentContextIncludesLearnings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < maxContextLearnings+2; i++ {
		require.NoError(t, f.learnings.Record(ctx, &Learning{
			Insight:  "insight " + strings.Repeat("x", i),
			Source:   SourceObservation,
			Category: LearningOperations,
		}))
		f.advance(time.Minute)
	}

	actx := f.farmer.BuildAgentContext(ctx)
	require.Len(t, actx.Learnings, maxContextLearnings)
	assert.Equal(t, "[operations] insight "+strings.Repeat("x", maxContextLearnings+1), actx.Learnings[0])

	out := FormatContext(actx)
	assert.Contains(t, out, "### What You've Learned\n- [operations] insight")
}

func TestFeedbackSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.feedback.Submit(ctx, "", "", "")
	assert.ErrorIs(t, err, ErrMissingFeedback)
	_, err = f.feedback.Submit(ctx, "", "", "too short")
	assert.ErrorIs(t, err, ErrFeedbackLength)
	_, err = f.feedback.Submit(ctx, "", "", strings.Repeat("a", feedbackMaxLength+1))
	assert.ErrorIs(t, err, ErrFeedbackLength)

	fb, err := f.feedback.Submit(ctx, " ", "", "Post weather updates every morning please.")
	require.NoError(t, err)
	assert.Equal(t, anonymousAuthor, fb.Author)
	assert.Equal(t, FeedbackSuggestion, fb.Type)
	assert.Equal(t, FeedbackPending, fb.Status)

	f.advance(time.Minute)
	praise, err := f.feedback.Submit(ctx, "Maya", FeedbackPraise, strings.Repeat("great ", 50))
	require.NoError(t, err)

	entries, err := f.journal.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, LogCommunity, entries[0].Category)
	assert.Equal(t, "Community Feedback Received", entries[0].Title)
	assert.True(t, strings.HasPrefix(entries[0].Description, "New praise from Maya:\n\n\"great great"))
	assert.Contains(t, entries[0].Description, "...")

	all, err := f.feedback.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, praise.ID, all[0].ID)

	summary := SummarizeFeedback(all)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Pending)
	assert.Equal(t, 0, summary.Incorporated)
	assert.Equal(t, 1, summary.ByType[FeedbackSuggestion])
	assert.Equal(t, 1, summary.ByType[FeedbackPraise])
	assert.Equal(t, 0, summary.ByType[FeedbackBug])
}
