package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/core"
)

var _ core.WeatherSource = (*OpenWeatherClient)(nil)

var iowa = core.Region{Name: "Iowa", Lat: 41.878, Lon: -93.098}

func TestFetchRegion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "41.878", r.URL.Query().Get("lat"))
		assert.Equal(t, "-93.098", r.URL.Query().Get("lon"))
		assert.Equal(t, "owm-key", r.URL.Query().Get("appid"))
		assert.Equal(t, "imperial", r.URL.Query().Get("units"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"main":{"temp":72.5,"humidity":40.4},"weather":[{"description":"clear sky"}]}`))
	}))
	defer server.Close()

	client := NewOpenWeatherClient("owm-key", server.URL+"/", time.Second, zap.NewNop())
	client.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }

	w, err := client.FetchRegion(context.Background(), iowa)
	require.NoError(t, err)
	assert.Equal(t, "Iowa", w.Region)
	assert.Equal(t, 73, w.Temperature)
	assert.Equal(t, 40, w.Humidity)
	assert.Equal(t, "clear sky", w.Conditions)
	assert.False(t, w.FrostRisk)
	assert.True(t, w.PlantingViable)
}

func TestFetchRegionMissingDescription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"main":{"temp":30,"humidity":80},"weather":[]}`))
	}))
	defer server.Close()

	w, err := NewOpenWeatherClient("k", server.URL, time.Second, zap.NewNop()).FetchRegion(context.Background(), iowa)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", w.Conditions)
	assert.True(t, w.FrostRisk)
}

func TestFetchRegionErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("appid") == "bad" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := NewOpenWeatherClient("bad", server.URL, time.Second, zap.NewNop()).FetchRegion(context.Background(), iowa)
	assert.EqualError(t, err, "weather API error: 401")

	_, err = NewOpenWeatherClient("good", server.URL, time.Second, zap.NewNop()).FetchRegion(context.Background(), iowa)
	assert.ErrorContains(t, err, "failed to decode")
}

func TestWeatherServiceFallsBackPerRegion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lat") == "26.2" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"main":{"temp":60,"humidity":50},"weather":[{"description":"haze"}]}`))
	}))
	defer server.Close()

	regions := []core.Region{iowa, {Name: "South Texas", Lat: 26.2, Lon: -98.2}}
	svc := core.NewWeatherService(NewOpenWeatherClient("k", server.URL, time.Second, zap.NewNop()), regions, zap.NewNop())

	results := svc.FetchAll(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, "haze", results[0].Conditions)
	assert.Equal(t, "Unknown (API error)", results[1].Conditions)
}
