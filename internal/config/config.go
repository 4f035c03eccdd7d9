// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/screenpilot/api/schemas"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Oracle  OracleConfig  `mapstructure:"oracle" yaml:"oracle"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Screen  ScreenConfig  `mapstructure:"screen" yaml:"screen"`
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// OracleConfig configures the vision/planning model client.
type OracleConfig struct {
	APIKey           string        `mapstructure:"api_key" yaml:"-"`
	PlannerModel     string        `mapstructure:"planner_model" yaml:"planner_model"`
	VisionModel      string        `mapstructure:"vision_model" yaml:"vision_model"`
	APITimeout       time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature      float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens        int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxRetryElapsed  time.Duration `mapstructure:"max_retry_elapsed" yaml:"max_retry_elapsed"`
	QueriesPerMinute float64       `mapstructure:"queries_per_minute" yaml:"queries_per_minute"`
}

// BrowserConfig holds settings for the structured automation transport.
type BrowserConfig struct {
	// AttachURL connects to an already running browser's DevTools endpoint.
	// Empty means launch a new instance.
	AttachURL         string        `mapstructure:"attach_url" yaml:"attach_url"`
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
}

// ScreenConfig tunes screen capture and OS-level actuation.
type ScreenConfig struct {
	CaptureDir     string        `mapstructure:"capture_dir" yaml:"capture_dir"`
	DisplayIndex   int           `mapstructure:"display_index" yaml:"display_index"`
	PostActionWait time.Duration `mapstructure:"post_action_wait" yaml:"post_action_wait"`
	TypeDelay      time.Duration `mapstructure:"type_delay" yaml:"type_delay"`
}

// EngineConfig bounds the planning loop, the refinement search and the
// dispatcher's retry behavior.
type EngineConfig struct {
	MaxReplans       int           `mapstructure:"max_replans" yaml:"max_replans"`
	StuckThreshold   int           `mapstructure:"stuck_threshold" yaml:"stuck_threshold"`
	MaxStepsPerPlan  int           `mapstructure:"max_steps_per_plan" yaml:"max_steps_per_plan"`
	RefineIterations int           `mapstructure:"refine_iterations" yaml:"refine_iterations"`
	CropRadius       int           `mapstructure:"crop_radius" yaml:"crop_radius"`
	ZoomFactor       int           `mapstructure:"zoom_factor" yaml:"zoom_factor"`
	TransportRetries int           `mapstructure:"transport_retries" yaml:"transport_retries"`
	RetryBackoff     time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
	// MinClickConfidence is the single policy knob deciding whether an
	// unconfirmed (medium) point is still good enough to click.
	MinClickConfidence string `mapstructure:"min_click_confidence" yaml:"min_click_confidence"`
}

// MinConfidence returns the acceptance tier for pixel clicks.
func (e EngineConfig) MinConfidence() schemas.ConfidenceTier {
	switch e.MinClickConfidence {
	case "high":
		return schemas.ConfidenceHigh
	case "low":
		return schemas.ConfidenceLow
	default:
		return schemas.ConfidenceMedium
	}
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "screenpilot")
	v.SetDefault("logger.log_file", "screenpilot.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Oracle --
	v.SetDefault("oracle.planner_model", "gemini-2.5-pro")
	v.SetDefault("oracle.vision_model", "gemini-2.5-flash")
	v.SetDefault("oracle.api_timeout", "90s")
	v.SetDefault("oracle.temperature", 0.2)
	v.SetDefault("oracle.max_tokens", 4096)
	v.SetDefault("oracle.max_retry_elapsed", "2m")
	v.SetDefault("oracle.queries_per_minute", 30.0)

	// -- Browser --
	v.SetDefault("browser.attach_url", "")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.action_timeout", "15s")

	// -- Screen --
	v.SetDefault("screen.capture_dir", "screenshots")
	v.SetDefault("screen.display_index", 0)
	v.SetDefault("screen.post_action_wait", "2s")
	v.SetDefault("screen.type_delay", "50ms")

	// -- Engine --
	v.SetDefault("engine.max_replans", 10)
	v.SetDefault("engine.stuck_threshold", 3)
	v.SetDefault("engine.max_steps_per_plan", 4)
	v.SetDefault("engine.refine_iterations", 5)
	v.SetDefault("engine.crop_radius", 500)
	v.SetDefault("engine.zoom_factor", 3)
	v.SetDefault("engine.transport_retries", 2)
	v.SetDefault("engine.retry_backoff", "500ms")
	v.SetDefault("engine.min_click_confidence", "medium")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults alone.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a validated configuration from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// API key comes from the environment, never from the config file.
	_ = v.BindEnv("oracle.api_key", "SCREENPILOT_ORACLE_API_KEY", "GEMINI_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Engine.MaxReplans <= 0 {
		return fmt.Errorf("engine.max_replans must be a positive integer")
	}
	if c.Engine.StuckThreshold <= 0 {
		return fmt.Errorf("engine.stuck_threshold must be a positive integer")
	}
	if c.Engine.MaxStepsPerPlan <= 0 {
		return fmt.Errorf("engine.max_steps_per_plan must be a positive integer")
	}
	if c.Engine.RefineIterations <= 0 {
		return fmt.Errorf("engine.refine_iterations must be a positive integer")
	}
	if c.Engine.ZoomFactor < 1 {
		return fmt.Errorf("engine.zoom_factor must be at least 1")
	}
	if c.Engine.TransportRetries < 1 {
		return fmt.Errorf("engine.transport_retries must be at least 1")
	}
	switch c.Engine.MinClickConfidence {
	case "high", "medium", "low":
	default:
		return fmt.Errorf("engine.min_click_confidence must be one of high, medium, low")
	}
	if c.Oracle.QueriesPerMinute <= 0 {
		return fmt.Errorf("oracle.queries_per_minute must be positive")
	}
	return nil
}
