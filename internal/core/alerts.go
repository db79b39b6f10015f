package core

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultAlertCooldown is how long one alert suppresses further alerts in its category
const DefaultAlertCooldown = 6 * time.Hour

// AlertDispatcher notifies the human operator about important inbound mail
type AlertDispatcher struct {
	kv        KVStore
	transport MailTransport
	fromName  string
	from      string
	to        string
	cooldown  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewAlertDispatcher creates a new alert dispatcher. A nil transport or empty
// recipient disables alerts.
func NewAlertDispatcher(
	kv KVStore,
	transport MailTransport,
	fromName string,
	from string,
	to string,
	cooldown time.Duration,
	logger *zap.Logger,
) *AlertDispatcher {
	if cooldown <= 0 {
		cooldown = DefaultAlertCooldown
	}
	return &AlertDispatcher{
		kv:        kv,
		transport: transport,
		fromName:  fromName,
		from:      from,
		to:        to,
		cooldown:  cooldown,
		logger:    logger,
		now:       time.Now,
	}
}

// SendAlert emails the operator unless an alert for category went out within
// the cooldown. It reports whether an alert was delivered and never fails.
func (a *AlertDispatcher) SendAlert(ctx context.Context, category, subject, body string) bool {
	if a.transport == nil || a.to == "" {
		return false
	}

	key := AlertKey(category)
	if _, err := a.kv.Get(ctx, key); err == nil {
		a.logger.Debug("Alert suppressed by cooldown", zap.String("category", category))
		return false
	} else if !isNotFound(err) {
		a.logger.Error("Failed to read alert marker", zap.String("category", category), zap.Error(err))
		return false
	}

	mail := &OutboundMail{
		FromName: a.fromName,
		From:     a.from,
		To:       []string{a.to},
		Subject:  "[Fred Alert] " + subject,
		Body:     body,
	}
	if err := a.transport.Send(ctx, mail); err != nil {
		a.logger.Error("Failed to send alert", zap.String("category", category), zap.Error(err))
		return false
	}

	marker := AlertMarker{Category: category, SentAt: a.now()}
	if err := putJSON(ctx, a.kv, key, marker, a.cooldown); err != nil {
		a.logger.Error("Failed to store alert marker", zap.String("category", category), zap.Error(err))
	}
	a.logger.Info("Sent alert", zap.String("category", category), zap.String("subject", subject))
	return true
}
