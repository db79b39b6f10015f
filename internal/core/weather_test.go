package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEstimateSoilTemperature(t *testing.T) {
	tests := []struct {
		month time.Month
		want  float64
	}{
		{time.January, 60},
		{time.March, 60},
		{time.April, 55},
		{time.June, 55},
		{time.July, 45},
		{time.September, 45},
		{time.October, 55},
		{time.November, 55},
		{time.December, 60},
	}
	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateSoilTemperature(50, tt.month))
		})
	}
}

func TestNewRegionWeather(t *testing.T) {
	april := time.Date(2026, time.April, 20, 0, 0, 0, 0, time.UTC)

	cold := NewRegionWeather("Iowa", 31.6, 80.4, "light snow", april)
	assert.Equal(t, 32, cold.Temperature)
	assert.Equal(t, 80, cold.Humidity)
	assert.True(t, cold.FrostRisk)
	assert.False(t, cold.PlantingViable)
	assert.Equal(t, "Current: 32°F. FROST RISK present.", cold.Forecast)

	warm := NewRegionWeather("South Texas", 72.5, 40, "clear sky", april)
	assert.Equal(t, 73, warm.Temperature)
	assert.Equal(t, 78, warm.SoilTempEstimate)
	assert.False(t, warm.FrostRisk)
	assert.True(t, warm.PlantingViable)
	assert.Equal(t, "Current: 73°F. Conditions: clear sky.", warm.Forecast)

	// 36°F is not frost, but the soil is still too cold.
	edge := NewRegionWeather("Iowa", 36, 50, "cloudy", april)
	assert.False(t, edge.FrostRisk)
	assert.Equal(t, 41, edge.SoilTempEstimate)
	assert.False(t, edge.PlantingViable)
}

func TestEvaluatePlanting(t *testing.T) {
	hold := EvaluatePlanting(&RegionWeather{FrostRisk: true, SoilTempEstimate: 70})
	assert.Equal(t, RecommendHold, hold.Recommendation)
	assert.Contains(t, hold.Reason, "Frost risk detected")

	cold := EvaluatePlanting(&RegionWeather{SoilTempEstimate: 45})
	assert.Equal(t, RecommendWait, cold.Recommendation)
	assert.Equal(t, "Soil temperature estimated at 45°F. Corn needs 50°F+ for germination.", cold.Reason)

	slow := EvaluatePlanting(&RegionWeather{SoilTempEstimate: 55})
	assert.Equal(t, RecommendWait, slow.Recommendation)
	assert.Contains(t, slow.Reason, "germination will be slow")

	plant := EvaluatePlanting(&RegionWeather{SoilTempEstimate: 60})
	assert.Equal(t, RecommendPlant, plant.Recommendation)
	assert.Contains(t, plant.Reason, "Soil temp ~60°F")
}

func TestFetchAllFallsBackToUnknown(t *testing.T) {
	source := &stubWeather{
		temps: map[string]float64{"Iowa": 40},
		fail:  map[string]bool{"South Texas": true},
	}
	svc := NewWeatherService(source, testRegions, zap.NewNop())

	all := svc.FetchAll(context.Background())
	require.Len(t, all, 2)

	assert.Equal(t, "Iowa", all[0].Region)
	assert.Equal(t, 40, all[0].Temperature)
	assert.Equal(t, 45, all[0].SoilTempEstimate)
	assert.False(t, all[0].PlantingViable)

	assert.Equal(t, UnknownWeather("South Texas"), all[1])
	assert.Equal(t, RecommendHold, EvaluatePlanting(all[1]).Recommendation)
}

func TestFetchAllWithoutSource(t *testing.T) {
	svc := NewWeatherService(nil, testRegions, zap.NewNop())
	all := svc.FetchAll(context.Background())
	require.Len(t, all, 2)
	for _, w := range all {
		assert.Equal(t, "Unknown (API error)", w.Conditions)
		assert.True(t, w.FrostRisk)
	}
	assert.Equal(t, testRegions, svc.Regions())
}
