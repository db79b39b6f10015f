package factory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/adapters/bedrock"
	"github.com/proofofcorn/farmer-fred/internal/adapters/gemini"
	"github.com/proofofcorn/farmer-fred/internal/adapters/openai"
	"github.com/proofofcorn/farmer-fred/internal/config"
	"github.com/proofofcorn/farmer-fred/internal/core"
)

// LLMFactory creates completion clients
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CompleterCloser is a completion client holding resources to release on shutdown
type CompleterCloser interface {
	core.Completer
	Close() error
}

// CreateCompleter creates a completion client for the configured provider. Every
// call is bounded by llm.timeout.
func (f *LLMFactory) CreateCompleter() (CompleterCloser, error) {
	llmConfig := f.cfg.GetLLM()

	var (
		client CompleterCloser
		err    error
	)
	switch llmConfig.Provider {
	case "bedrock":
		client, err = bedrock.NewFactory(f.cfg, f.logger).CreateClient()
	case "gemini":
		client, err = gemini.NewFactory(f.cfg, f.logger).CreateClient()
	case "openai":
		client, err = openai.NewFactory(f.cfg, f.logger).CreateClient()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Info("Created LLM client",
		zap.String("provider", llmConfig.Provider),
		zap.Duration("timeout", llmConfig.Timeout))
	return withTimeout(client, llmConfig.Timeout), nil
}

type timeoutCompleter struct {
	CompleterCloser
	timeout time.Duration
}

func withTimeout(c CompleterCloser, timeout time.Duration) CompleterCloser {
	if timeout <= 0 {
		return c
	}
	return &timeoutCompleter{CompleterCloser: c, timeout: timeout}
}

func (t *timeoutCompleter) Complete(ctx context.Context, system string, messages []core.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.CompleterCloser.Complete(ctx, system, messages)
}
