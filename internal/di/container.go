package di

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/api"
	"github.com/proofofcorn/farmer-fred/internal/blocklist"
	"github.com/proofofcorn/farmer-fred/internal/config"
	"github.com/proofofcorn/farmer-fred/internal/core"
	"github.com/proofofcorn/farmer-fred/internal/factory"
	"github.com/proofofcorn/farmer-fred/internal/logging"
	"github.com/proofofcorn/farmer-fred/internal/ports"
	"github.com/proofofcorn/farmer-fred/internal/scheduler"
	"github.com/proofofcorn/farmer-fred/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := registerServices(container); err != nil {
		return nil, err
	}

	// Register HTTP API
	if err := container.Provide(func(cfg *config.Config) api.Identity {
		return api.Identity{
			Name:        cfg.GetAgent().Name,
			Version:     cfg.GetAgent().Version,
			LLMProvider: cfg.GetLLM().Provider,
		}
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(api.NewHandler); err != nil {
		return nil, err
	}
	if err := container.Provide(func(h *api.Handler, cfg *config.Config, logger *zap.Logger) *gin.Engine {
		return api.NewRouter(h, cfg.GetAdmin().Password, cfg.GetServer().CORSOrigins, logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(router *gin.Engine, cfg *config.Config, logger *zap.Logger) *api.Server {
		serverCfg := cfg.GetServer()
		return api.NewServer(router, serverCfg.ListenAddress, serverCfg.ShutdownTimeout, logger)
	}); err != nil {
		return nil, err
	}

	// Register scheduler
	if err := container.Provide(func(
		cfg *config.Config,
		farmer *core.FarmerService,
		followUps *core.FollowUpScheduler,
		logger *zap.Logger,
	) *scheduler.Scheduler {
		schedCfg := cfg.GetScheduler()
		return scheduler.New([]scheduler.Job{
			scheduler.DailyCheckJob(farmer, schedCfg.DailyCheckInterval),
			scheduler.FollowUpJob(followUps, schedCfg.FollowUpInterval),
		}, schedCfg.RunOnStart, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// registerServices registers the stores, adapters and core services shared by
// the server and the CLI
func registerServices(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewKVFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewTransportFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewWeatherFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewInboundFactory); err != nil {
		return err
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory) (factory.CompleterCloser, error) {
		return f.CreateCompleter()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(c factory.CompleterCloser) core.Completer {
		return c
	}); err != nil {
		return err
	}

	// Register key-value store
	if err := container.Provide(func(f *factory.KVFactory) (factory.Store, error) {
		return f.CreateStore()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(s factory.Store) core.KVStore {
		return s
	}); err != nil {
		return err
	}

	// Register outbound transport, nil when no relay is configured
	if err := container.Provide(func(f *factory.TransportFactory) core.MailTransport {
		return f.CreateTransport()
	}); err != nil {
		return err
	}

	// Register follow-up blocklist
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (core.ContactBlocklist, error) {
		patterns := append([]string{}, blocklist.DefaultPatterns...)
		patterns = append(patterns, cfg.GetFollowUp().BlockedPatterns...)
		checker, err := blocklist.NewChecker(patterns, []string{cfg.GetAgent().Email}, logger)
		if err != nil {
			return nil, err
		}
		return checker, nil
	}); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}

	// Register records
	if err := container.Provide(core.NewTaskBoard); err != nil {
		return err
	}
	if err := container.Provide(core.NewInbox); err != nil {
		return err
	}
	if err := container.Provide(core.NewJournal); err != nil {
		return err
	}
	if err := container.Provide(core.NewRateLimiter); err != nil {
		return err
	}
	if err := container.Provide(core.NewFollowUpScheduler); err != nil {
		return err
	}
	if err := container.Provide(core.NewLearningStore); err != nil {
		return err
	}
	if err := container.Provide(core.NewFeedbackStore); err != nil {
		return err
	}

	// Register alert dispatcher
	if err := container.Provide(func(
		cfg *config.Config,
		kv core.KVStore,
		transport core.MailTransport,
		logger *zap.Logger,
	) *core.AlertDispatcher {
		smtpCfg := cfg.GetSMTP()
		alertsCfg := cfg.GetAlerts()
		return core.NewAlertDispatcher(kv, transport, smtpCfg.FromName, smtpCfg.From, alertsCfg.To, alertsCfg.Cooldown, logger)
	}); err != nil {
		return err
	}

	// Register triage
	if err := container.Provide(func(
		cfg *config.Config,
		inbox *core.Inbox,
		limiter *core.RateLimiter,
		followUps *core.FollowUpScheduler,
		alerts *core.AlertDispatcher,
		tasks *core.TaskBoard,
		learnings *core.LearningStore,
		tp *utils.TextProcessor,
		logger *zap.Logger,
	) *core.TriageService {
		return core.NewTriageService(inbox, limiter, followUps, alerts, tasks, learnings, tp, logger, cfg.GetInbound().MaxBodySize)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(s *core.TriageService) ports.Triager {
		return s
	}); err != nil {
		return err
	}

	// Register inbound listener
	if err := container.Provide(func(f *factory.InboundFactory) (ports.InboundListener, error) {
		return f.CreateListener()
	}); err != nil {
		return err
	}

	// Register weather and the agent
	if err := container.Provide(func(f *factory.WeatherFactory) (*core.WeatherService, error) {
		return f.CreateWeatherService()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(cfg *config.Config, weather *core.WeatherService) *core.Constitution {
		agentCfg := cfg.GetAgent()
		return core.NewConstitution(agentCfg.Name, agentCfg.Version, weather.Regions())
	}); err != nil {
		return err
	}
	if err := container.Provide(core.NewAgent); err != nil {
		return err
	}
	if err := container.Provide(core.NewFarmerService); err != nil {
		return err
	}
	if err := container.Provide(core.NewReplyService); err != nil {
		return err
	}

	return nil
}
