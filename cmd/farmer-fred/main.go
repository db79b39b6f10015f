package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/api"
	"github.com/proofofcorn/farmer-fred/internal/config"
	"github.com/proofofcorn/farmer-fred/internal/di"
	"github.com/proofofcorn/farmer-fred/internal/factory"
	"github.com/proofofcorn/farmer-fred/internal/ports"
	"github.com/proofofcorn/farmer-fred/internal/scheduler"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	server *api.Server,
	listener ports.InboundListener,
	sched *scheduler.Scheduler,
	completer factory.CompleterCloser,
	store factory.Store,
) error {
	defer logger.Sync()

	agentCfg := cfg.GetAgent()
	logger.Info("Starting agent",
		zap.String("name", agentCfg.Name),
		zap.String("version", agentCfg.Version),
		zap.String("llm_provider", cfg.GetLLM().Provider),
		zap.String("kv", cfg.GetKV().Type))

	// Start the HTTP API
	if err := server.Start(); err != nil {
		logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}

	// Start the inbound listener
	inboundEnabled := cfg.GetInbound().Enabled
	if inboundEnabled {
		if err := listener.Start(); err != nil {
			logger.Error("Failed to start inbound listener", zap.Error(err))
			_ = server.Stop()
			return err
		}
	}

	// Start the periodic jobs
	schedulerEnabled := cfg.GetScheduler().Enabled
	if schedulerEnabled {
		sched.Start()
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if schedulerEnabled {
		sched.Stop()
	}
	if inboundEnabled {
		if err := listener.Stop(); err != nil {
			logger.Error("Failed to stop inbound listener", zap.Error(err))
		}
	}
	if err := server.Stop(); err != nil {
		logger.Error("Failed to stop HTTP server", zap.Error(err))
	}

	// Close any resources that need closing
	if err := completer.Close(); err != nil {
		logger.Error("Failed to close LLM client", zap.Error(err))
	}
	if err := store.Close(); err != nil {
		logger.Error("Failed to close key-value store", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}
