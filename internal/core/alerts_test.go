package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSendAlertCooldown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.True(t, f.alerts.SendAlert(ctx, "lead", "New lead: Land", "From: joe"))
	assert.Equal(t, 1, f.transport.count())
	assert.Equal(t, "[Fred Alert] New lead: Land", f.transport.sent[0].Subject)
	assert.Equal(t, []string{"operator@proofofcorn.com"}, f.transport.sent[0].To)

	f.advance(5 * time.Hour)
	assert.False(t, f.alerts.SendAlert(ctx, "lead", "New lead: More land", "From: joe"))
	assert.Equal(t, 1, f.transport.count(), "no second send inside the cooldown")

	// Other categories have their own marker.
	assert.True(t, f.alerts.SendAlert(ctx, "partnership", "New partnership", "body"))
	assert.Equal(t, 2, f.transport.count())

	f.advance(time.Hour)
	assert.True(t, f.alerts.SendAlert(ctx, "lead", "New lead: Again", "body"))
	assert.Equal(t, 3, f.transport.count())
}

func TestSendAlertTransportFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.transport.err = errors.New("smtp down")

	assert.False(t, f.alerts.SendAlert(ctx, "lead", "New lead", "body"))
	assert.False(t, f.kv.has(AlertKey("lead")), "a failed send leaves no marker")

	f.transport.err = nil
	assert.True(t, f.alerts.SendAlert(ctx, "lead", "New lead", "body"))
}

func TestSendAlertDisabled(t *testing.T) {
	kv := newMemKV()
	noTransport := NewAlertDispatcher(kv, nil, "Fred", "fred@proofofcorn.com", "op@proofofcorn.com", time.Hour, zap.NewNop())
	assert.False(t, noTransport.SendAlert(context.Background(), "lead", "s", "b"))

	transport := &recordingTransport{}
	noRecipient := NewAlertDispatcher(kv, transport, "Fred", "fred@proofofcorn.com", "", time.Hour, zap.NewNop())
	assert.False(t, noRecipient.SendAlert(context.Background(), "lead", "s", "b"))
	assert.Zero(t, transport.count())
}
