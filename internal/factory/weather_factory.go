package factory

import (
	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/adapters/weather"
	"github.com/proofofcorn/farmer-fred/internal/config"
	"github.com/proofofcorn/farmer-fred/internal/core"
)

// WeatherFactory creates the weather service for the watched regions
type WeatherFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewWeatherFactory creates a new weather factory
func NewWeatherFactory(cfg *config.Config, logger *zap.Logger) *WeatherFactory {
	return &WeatherFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateWeatherService creates the weather service. Without an API key every
// region reports unknown conditions.
func (f *WeatherFactory) CreateWeatherService() (*core.WeatherService, error) {
	weatherCfg, err := f.cfg.GetWeather()
	if err != nil {
		return nil, err
	}

	var source core.WeatherSource
	if weatherCfg.APIKey != "" {
		source = weather.NewOpenWeatherClient(weatherCfg.APIKey, weatherCfg.BaseURL, weatherCfg.Timeout, f.logger)
	} else {
		f.logger.Warn("No weather API key configured")
	}
	return core.NewWeatherService(source, weatherCfg.Regions, f.logger), nil
}
