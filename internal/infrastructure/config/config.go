package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for ScreenPilot.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Agent     AgentConfig     `yaml:"agent"`
	Capture   CaptureConfig   `yaml:"capture"`
	Tracker   TrackerConfig   `yaml:"tracker"`
	Runner    RunnerConfig    `yaml:"runner"`
	Input     InputConfig     `yaml:"input"`
	API       APIConfig       `yaml:"api"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AgentConfig identifies this agent instance.
type AgentConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// CaptureConfig contains screen capture settings.
type CaptureConfig struct {
	// Display is the index of the display to capture.
	Display int `yaml:"display"`
	// Grayscale converts frames and templates to grayscale before
	// matching, roughly tripling matcher throughput.
	Grayscale bool `yaml:"grayscale"`
}

// TrackerConfig contains template tracking settings.
type TrackerConfig struct {
	// TemplateDir is the directory of template images, one per target.
	TemplateDir string `yaml:"template_dir"`
	// Confidence is the minimum match score to accept a sighting.
	Confidence float64 `yaml:"confidence"`
	// SearchMargin is the pixel margin around the last known position
	// searched before falling back to the pyramid.
	SearchMargin int `yaml:"search_margin"`
	// DownscaleFactor sizes the coarse search pyramid (0 disables it).
	DownscaleFactor float64 `yaml:"downscale_factor"`
	// CoarseFactor relaxes the confidence threshold on the downscaled
	// pass; the refinement pass re-verifies at full confidence.
	CoarseFactor float64 `yaml:"coarse_factor"`
	// FullScan enables the full-frame fallback when the pyramid misses.
	FullScan bool `yaml:"full_scan"`
	// FPS is the target perception frame rate.
	FPS float64 `yaml:"fps"`
	// Workers bounds the matcher pool; 0 matches sequentially.
	Workers int `yaml:"workers"`
}

// RunnerConfig contains policy loop settings.
type RunnerConfig struct {
	// Policy is the name of the registered behavior to run.
	Policy string `yaml:"policy"`
	// FPS is the target decision frame rate.
	FPS float64 `yaml:"fps"`
	// DashGapMS is the pause between dash double-taps, in milliseconds.
	DashGapMS int `yaml:"dash_gap_ms"`
}

// InputConfig contains key binding settings.
type InputConfig struct {
	Bindings BindingsConfig `yaml:"bindings"`
}

// BindingsConfig maps movement intents to physical keys.
type BindingsConfig struct {
	Left     string `yaml:"left"`
	Right    string `yaml:"right"`
	Up       string `yaml:"up"`
	Down     string `yaml:"down"`
	FastDown string `yaml:"fast_down"`
}

// APIConfig contains HTTP status API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// TelemetryConfig contains InfluxDB telemetry settings.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SCREENPILOT_SECTION_KEY
// For example: SCREENPILOT_CAPTURE_DISPLAY, SCREENPILOT_TELEMETRY_TOKEN
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			ID:   "screenpilot-001",
			Name: "ScreenPilot",
		},
		Capture: CaptureConfig{
			Display:   0,
			Grayscale: true,
		},
		Tracker: TrackerConfig{
			TemplateDir:     "./templates",
			Confidence:      0.85,
			SearchMargin:    150,
			DownscaleFactor: 0.5,
			CoarseFactor:    0.9,
			FullScan:        false,
			FPS:             30,
			Workers:         0,
		},
		Runner: RunnerConfig{
			Policy:    "dodge",
			FPS:       30,
			DashGapMS: 30,
		},
		Input: InputConfig{
			Bindings: BindingsConfig{
				Left:     "a",
				Right:    "d",
				Up:       "space",
				Down:     "s",
				FastDown: "b",
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8710,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SCREENPILOT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCREENPILOT_CAPTURE_DISPLAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Capture.Display = n
		}
	}
	if v := os.Getenv("SCREENPILOT_TRACKER_TEMPLATE_DIR"); v != "" {
		cfg.Tracker.TemplateDir = v
	}
	if v := os.Getenv("SCREENPILOT_RUNNER_POLICY"); v != "" {
		cfg.Runner.Policy = v
	}
	if v := os.Getenv("SCREENPILOT_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("SCREENPILOT_API_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = n
		}
	}
	if v := os.Getenv("SCREENPILOT_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}
	if v := os.Getenv("SCREENPILOT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Agent.ID == "" {
		errs = append(errs, "agent.id is required")
	}
	if c.Capture.Display < 0 {
		errs = append(errs, "capture.display must not be negative")
	}
	if c.Tracker.TemplateDir == "" {
		errs = append(errs, "tracker.template_dir is required")
	}
	if c.Tracker.Confidence <= 0 || c.Tracker.Confidence > 1 {
		errs = append(errs, "tracker.confidence must be in (0, 1]")
	}
	if c.Tracker.SearchMargin < 0 {
		errs = append(errs, "tracker.search_margin must not be negative")
	}
	if c.Tracker.DownscaleFactor < 0 || c.Tracker.DownscaleFactor >= 1 {
		errs = append(errs, "tracker.downscale_factor must be in [0, 1)")
	}
	if c.Tracker.CoarseFactor <= 0 || c.Tracker.CoarseFactor > 1 {
		errs = append(errs, "tracker.coarse_factor must be in (0, 1]")
	}
	if c.Tracker.FPS <= 0 {
		errs = append(errs, "tracker.fps must be positive")
	}
	if c.Tracker.Workers < 0 {
		errs = append(errs, "tracker.workers must not be negative")
	}
	if c.Runner.Policy == "" {
		errs = append(errs, "runner.policy is required")
	}
	if c.Runner.FPS <= 0 {
		errs = append(errs, "runner.fps must be positive")
	}
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.Telemetry.Enabled {
		if c.Telemetry.URL == "" {
			errs = append(errs, "telemetry.url is required when telemetry is enabled")
		}
		if c.Telemetry.Bucket == "" {
			errs = append(errs, "telemetry.bucket is required when telemetry is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetDashGap returns the dash double-tap gap as a Duration.
func (c *Config) GetDashGap() time.Duration {
	return time.Duration(c.Runner.DashGapMS) * time.Millisecond
}
