package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/di"
	"github.com/proofofcorn/farmer-fred/internal/factory"
	"github.com/proofofcorn/farmer-fred/internal/ports"
)

func main() {
	// Parse command line flags
	flags := di.ParseFlags()

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
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
	flags *di.CLIFlags,
	logger *zap.Logger,
	listener ports.InboundListener,
	store factory.Store,
) error {
	defer logger.Sync()
	defer store.Close()

	// Read email from file or stdin
	var emailReader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			logger.Error("Failed to open input file", zap.Error(err), zap.String("file", flags.InputFile))
			return err
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	raw, err := io.ReadAll(emailReader)
	if err != nil {
		logger.Error("Failed to read email", zap.Error(err))
		return err
	}

	_, err = listener.ProcessMessage(context.Background(), flags.Sender, raw)
	return err
}
