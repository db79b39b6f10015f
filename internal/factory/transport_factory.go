package factory

import (
	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/adapters/outbound"
	"github.com/proofofcorn/farmer-fred/internal/config"
	"github.com/proofofcorn/farmer-fred/internal/core"
)

// TransportFactory creates the outbound mail transport
type TransportFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTransportFactory creates a new transport factory
func NewTransportFactory(cfg *config.Config, logger *zap.Logger) *TransportFactory {
	return &TransportFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTransport returns the SMTP relay transport, or nil when smtp.host is unset.
// Alerts and admin sends are disabled without one.
func (f *TransportFactory) CreateTransport() core.MailTransport {
	smtpCfg := f.cfg.GetSMTP()
	if smtpCfg.Host == "" {
		f.logger.Warn("No SMTP relay configured, outbound mail disabled")
		return nil
	}

	f.logger.Info("Using SMTP relay", zap.String("address", smtpCfg.Address()))
	return outbound.NewSMTPTransport(
		smtpCfg.Host,
		smtpCfg.Port,
		smtpCfg.Username,
		smtpCfg.Password,
		smtpCfg.From,
		smtpCfg.FromName,
		smtpCfg.StartTLS,
		f.logger,
	)
}
