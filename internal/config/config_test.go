// File: internal/config/config_test.go
package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/screenpilot/api/schemas"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "screenpilot", cfg.Logger.ServiceName)
	assert.Equal(t, 10, cfg.Engine.MaxReplans)
	assert.Equal(t, 3, cfg.Engine.StuckThreshold)
	assert.Equal(t, 4, cfg.Engine.MaxStepsPerPlan)
	assert.Equal(t, 5, cfg.Engine.RefineIterations)
	assert.Equal(t, 500, cfg.Engine.CropRadius)
	assert.Equal(t, 3, cfg.Engine.ZoomFactor)
	assert.Equal(t, 2, cfg.Engine.TransportRetries)
	assert.Equal(t, "gemini-2.5-pro", cfg.Oracle.PlannerModel)
	assert.Equal(t, "gemini-2.5-flash", cfg.Oracle.VisionModel)

	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero replans", func(c *Config) { c.Engine.MaxReplans = 0 }},
		{"zero stuck threshold", func(c *Config) { c.Engine.StuckThreshold = 0 }},
		{"zero steps per plan", func(c *Config) { c.Engine.MaxStepsPerPlan = 0 }},
		{"zero refine iterations", func(c *Config) { c.Engine.RefineIterations = 0 }},
		{"zoom below one", func(c *Config) { c.Engine.ZoomFactor = 0 }},
		{"no transport retries", func(c *Config) { c.Engine.TransportRetries = 0 }},
		{"bad confidence knob", func(c *Config) { c.Engine.MinClickConfidence = "certain" }},
		{"zero query rate", func(c *Config) { c.Oracle.QueriesPerMinute = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEngineConfig_MinConfidence(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, schemas.ConfidenceMedium, cfg.Engine.MinConfidence())

	cfg.Engine.MinClickConfidence = "high"
	assert.Equal(t, schemas.ConfidenceHigh, cfg.Engine.MinConfidence())

	cfg.Engine.MinClickConfidence = "low"
	assert.Equal(t, schemas.ConfidenceLow, cfg.Engine.MinConfidence())
}

func TestNewConfigFromViper_Overrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("engine.max_replans", 2)
	v.Set("engine.min_click_confidence", "high")

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Engine.MaxReplans)
	assert.Equal(t, schemas.ConfidenceHigh, cfg.Engine.MinConfidence())
}
