package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/core"
)

// DefaultBaseURL is the OpenWeatherMap 2.5 API root
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

// currentResponse is the part of the current weather payload we read
type currentResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// OpenWeatherClient implements core.WeatherSource against OpenWeatherMap
type OpenWeatherClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
	now        func() time.Time
}

// NewOpenWeatherClient creates a new OpenWeatherMap client
func NewOpenWeatherClient(apiKey, baseURL string, timeout time.Duration, logger *zap.Logger) *OpenWeatherClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OpenWeatherClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger,
		now:        time.Now,
	}
}

// FetchRegion returns the current conditions for a region in imperial units
func (c *OpenWeatherClient) FetchRegion(ctx context.Context, region core.Region) (*core.RegionWeather, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(region.Lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(region.Lon, 'f', -1, 64))
	query.Set("appid", c.apiKey)
	query.Set("units", "imperial")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API error: %d", resp.StatusCode)
	}

	var payload currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}

	conditions := "Unknown"
	if len(payload.Weather) > 0 && payload.Weather[0].Description != "" {
		conditions = payload.Weather[0].Description
	}

	c.logger.Debug("Fetched weather",
		zap.String("region", region.Name),
		zap.Float64("temp", payload.Main.Temp),
		zap.String("conditions", conditions))

	return core.NewRegionWeather(region.Name, payload.Main.Temp, payload.Main.Humidity, conditions, c.now()), nil
}
