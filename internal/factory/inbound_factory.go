package factory

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/adapters/inbound"
	"github.com/proofofcorn/farmer-fred/internal/config"
	"github.com/proofofcorn/farmer-fred/internal/ports"
)

// InboundFactory creates inbound mail listeners based on configuration
type InboundFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	triager ports.Triager
}

// NewInboundFactory creates a new inbound factory
func NewInboundFactory(cfg *config.Config, logger *zap.Logger, triager ports.Triager) *InboundFactory {
	return &InboundFactory{
		cfg:     cfg,
		logger:  logger,
		triager: triager,
	}
}

// CreateListener creates an inbound listener for inbound.mode
func (f *InboundFactory) CreateListener() (ports.InboundListener, error) {
	inboundCfg := f.cfg.GetInbound()

	switch inboundCfg.Mode {
	case "smtp":
		return inbound.NewSMTPListener(f.triager, f.logger, inbound.Options{
			ListenAddress:   inboundCfg.ListenAddress,
			Domain:          inboundCfg.Domain,
			MaxMessageBytes: inboundCfg.MaxMessageBytes,
			MaxRecipients:   inboundCfg.MaxRecipients,
			ReadTimeout:     inboundCfg.ReadTimeout,
			WriteTimeout:    inboundCfg.WriteTimeout,
		}), nil
	case "cli":
		return inbound.NewCLIProcessor(f.triager, f.logger, os.Stdout, f.cfg.GetBool("cli.verbose")), nil
	default:
		return nil, fmt.Errorf("unsupported inbound mode: %s", inboundCfg.Mode)
	}
}
