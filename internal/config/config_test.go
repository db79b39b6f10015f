package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proofofcorn/farmer-fred/internal/core"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	assert.Equal(t, "bedrock", cfg.GetLLM().Provider)
	assert.Equal(t, "memory", cfg.GetKV().Type)
	assert.Equal(t, 10*time.Minute, cfg.GetKV().CleanupFrequency)
	assert.Equal(t, core.DefaultAlertCooldown, cfg.GetAlerts().Cooldown)
	assert.Equal(t, 10000, cfg.GetInbound().MaxBodySize)
	assert.Equal(t, int64(1024*1024), cfg.GetInbound().MaxMessageBytes)
	assert.Equal(t, "fred@proofofcorn.com", cfg.GetAgent().Email)
	assert.Equal(t, []string{"*"}, cfg.GetServer().CORSOrigins)
	assert.Empty(t, cfg.GetAdmin().Password)
	assert.Equal(t, "smtp.example.org:587", SMTPConfig{Host: "smtp.example.org", Port: 587}.Address())

	weather, err := cfg.GetWeather()
	require.NoError(t, err)
	require.Len(t, weather.Regions, 3)
	assert.Equal(t, "Iowa", weather.Regions[0].Name)
	assert.Equal(t, 41.878, weather.Regions[0].Lat)
	assert.Equal(t, "April 15 - May 15", weather.Regions[0].PlantingWindow)
}

func TestMalformedDurationFallsBack(t *testing.T) {
	v := NewEmptyViper()
	v.Set("alerts.cooldown", "soon")
	v.Set("scheduler.follow_up_interval", "-1h")
	cfg := NewFromViper(v)

	assert.Equal(t, core.DefaultAlertCooldown, cfg.GetAlerts().Cooldown)
	assert.Equal(t, 6*time.Hour, cfg.GetScheduler().FollowUpInterval)
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
llm:
  provider: openai
openai:
  model_name: gpt-4o-mini
alerts:
  to: ops@proofofcorn.com
  cooldown: 2h
weather:
  regions:
    - name: Nebraska
      lat: 41.5
      lon: -99.9
      status: active
      planting_window: May
followup:
  blocked_patterns:
    - "@newsletter\\."
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := NewFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.GetLLM().Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.GetOpenAI().ModelName)
	assert.Equal(t, 1024, cfg.GetOpenAI().MaxTokens)
	assert.Equal(t, "ops@proofofcorn.com", cfg.GetAlerts().To)
	assert.Equal(t, 2*time.Hour, cfg.GetAlerts().Cooldown)
	assert.Equal(t, []string{`@newsletter\.`}, cfg.GetFollowUp().BlockedPatterns)

	weather, err := cfg.GetWeather()
	require.NoError(t, err)
	require.Len(t, weather.Regions, 1)
	assert.Equal(t, core.Region{Name: "Nebraska", Lat: 41.5, Lon: -99.9, Status: "active", PlantingWindow: "May"}, weather.Regions[0])
}

func TestNewFromFileMissing(t *testing.T) {
	_, err := NewFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
