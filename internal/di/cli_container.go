package di

import (
	"flag"

	"github.com/spf13/viper"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/config"
	"github.com/proofofcorn/farmer-fred/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Triage flags
	MaxBodySize int
	AgentEmail  string

	// Input flags
	InputFile  string
	Sender     string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Triage flags
	flag.IntVar(&flags.MaxBodySize, "max-body-size", 10000, "Maximum stored email body size in characters")
	flag.StringVar(&flags.AgentEmail, "agent-email", "fred@proofofcorn.com", "The agent's own address, never followed up")

	// Input flags
	flag.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	flag.StringVar(&flags.Sender, "from", "", "Envelope sender, overrides the From header")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			applyCLIMode(cfg.GetViper(), flags)
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := registerServices(container); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags. Records
// stay in memory and no mail is sent.
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("kv.type", "memory")
	v.Set("smtp.host", "")
	v.Set("agent.email", flags.AgentEmail)
	v.Set("inbound.max_body_size", flags.MaxBodySize)
	applyCLIMode(v, flags)

	return config.NewFromViper(v)
}

// applyCLIMode routes inbound mail to the console printer
func applyCLIMode(v *viper.Viper, flags *CLIFlags) {
	v.Set("inbound.mode", "cli")
	v.Set("cli.verbose", flags.Verbose)
}
