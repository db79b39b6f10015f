package core

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

const (
	frostThresholdF      = 36
	germinationSoilTempF = 50
	optimalSoilTempF     = 60
)

// PlantingRecommendation is the outcome of a planting evaluation
type PlantingRecommendation string

const (
	RecommendPlant PlantingRecommendation = "PLANT"
	RecommendWait  PlantingRecommendation = "WAIT"
	RecommendHold  PlantingRecommendation = "HOLD"
)

// Region is a growing region the agent watches
type Region struct {
	Name           string  `json:"name" mapstructure:"name"`
	Lat            float64 `json:"lat" mapstructure:"lat"`
	Lon            float64 `json:"lon" mapstructure:"lon"`
	Status         string  `json:"status" mapstructure:"status"`
	PlantingWindow string  `json:"plantingWindow" mapstructure:"planting_window"`
}

// RegionWeather holds current conditions and the derived planting signals for a region
type RegionWeather struct {
	Region           string `json:"region"`
	Temperature      int    `json:"temperature"`
	Humidity         int    `json:"humidity"`
	Conditions       string `json:"conditions"`
	Forecast         string `json:"forecast"`
	PlantingViable   bool   `json:"plantingViable"`
	FrostRisk        bool   `json:"frostRisk"`
	SoilTempEstimate int    `json:"soilTempEstimate"`
}

// PlantingEvaluation is a recommendation with the reason behind it
type PlantingEvaluation struct {
	Recommendation PlantingRecommendation `json:"recommendation"`
	Reason         string                 `json:"reason"`
}

// NewRegionWeather derives frost risk, soil temperature and viability from raw readings
func NewRegionWeather(region string, tempF, humidity float64, conditions string, at time.Time) *RegionWeather {
	soil := EstimateSoilTemperature(tempF, at.Month())
	frost := tempF < frostThresholdF

	forecast := fmt.Sprintf("Current: %d°F. Conditions: %s.", roundHalfUp(tempF), conditions)
	if frost {
		forecast = fmt.Sprintf("Current: %d°F. FROST RISK present.", roundHalfUp(tempF))
	}

	return &RegionWeather{
		Region:           region,
		Temperature:      roundHalfUp(tempF),
		Humidity:         roundHalfUp(humidity),
		Conditions:       conditions,
		Forecast:         forecast,
		PlantingViable:   soil >= germinationSoilTempF && !frost,
		FrostRisk:        frost,
		SoilTempEstimate: roundHalfUp(soil),
	}
}

// UnknownWeather is the stand-in record used when a region cannot be fetched
func UnknownWeather(region string) *RegionWeather {
	return &RegionWeather{
		Region:     region,
		Conditions: "Unknown (API error)",
		Forecast:   "Unable to fetch forecast",
		FrostRisk:  true,
	}
}

// EstimateSoilTemperature approximates soil temperature from air temperature.
// Soil lags the air: warmer in winter, cooler in summer.
func EstimateSoilTemperature(airF float64, month time.Month) float64 {
	switch {
	case month == time.December || month <= time.March:
		return airF + 10
	case month <= time.June:
		return airF + 5
	case month <= time.September:
		return airF - 5
	default:
		return airF + 5
	}
}

// EvaluatePlanting turns weather into a PLANT / WAIT / HOLD recommendation
func EvaluatePlanting(w *RegionWeather) PlantingEvaluation {
	switch {
	case w.FrostRisk:
		return PlantingEvaluation{
			Recommendation: RecommendHold,
			Reason:         "Frost risk detected. Wait for stable temperatures above 36°F.",
		}
	case w.SoilTempEstimate < germinationSoilTempF:
		return PlantingEvaluation{
			Recommendation: RecommendWait,
			Reason:         fmt.Sprintf("Soil temperature estimated at %d°F. Corn needs 50°F+ for germination.", w.SoilTempEstimate),
		}
	case w.SoilTempEstimate < optimalSoilTempF:
		return PlantingEvaluation{
			Recommendation: RecommendWait,
			Reason:         fmt.Sprintf("Soil at %d°F. Optimal is 60°F+. Planting possible but germination will be slow.", w.SoilTempEstimate),
		}
	default:
		return PlantingEvaluation{
			Recommendation: RecommendPlant,
			Reason:         fmt.Sprintf("Conditions favorable. Soil temp ~%d°F, no frost risk. Good planting window.", w.SoilTempEstimate),
		}
	}
}

// WeatherService fetches weather for every configured region
type WeatherService struct {
	source  WeatherSource
	regions []Region
	logger  *zap.Logger
}

// NewWeatherService creates a new weather service. A nil source yields unknown records.
func NewWeatherService(source WeatherSource, regions []Region, logger *zap.Logger) *WeatherService {
	return &WeatherService{source: source, regions: regions, logger: logger}
}

// Regions returns the configured regions
func (s *WeatherService) Regions() []Region {
	return s.regions
}

// FetchAll returns one record per region, in region order. Failed regions get UnknownWeather.
func (s *WeatherService) FetchAll(ctx context.Context) []*RegionWeather {
	results := make([]*RegionWeather, 0, len(s.regions))
	for _, region := range s.regions {
		if s.source == nil {
			results = append(results, UnknownWeather(region.Name))
			continue
		}
		w, err := s.source.FetchRegion(ctx, region)
		if err != nil {
			s.logger.Error("Failed to fetch weather", zap.String("region", region.Name), zap.Error(err))
			results = append(results, UnknownWeather(region.Name))
			continue
		}
		results = append(results, w)
	}
	return results
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
