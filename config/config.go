// Package config provides configuration loading and management for oxy-volume.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Window parameters used when the renderer surfaces a window
	Window struct {
		Title  string `yaml:"title"`
		Width  int    `yaml:"width"`
		Height int    `yaml:"height"`
	} `yaml:"window"`

	Renderer struct {
		// Backend selects the renderer backend: "headless" or "wgpu"
		Backend string `yaml:"backend"`

		// BytesPerVoxel is the voxel format of the first renderer (1, 2 or 4)
		BytesPerVoxel int `yaml:"bytesPerVoxel"`

		// Layers is the number of layers of the first renderer
		Layers int `yaml:"layers"`

		// FrameLimit caps the render loop in frames per second, 0 renders only on request
		FrameLimit float64 `yaml:"frameLimit"`

		// Profiling logs frame statistics once per second
		Profiling bool `yaml:"profiling"`
	} `yaml:"renderer"`

	Handoff struct {
		// WaitTimeout bounds how long a producer waits for the render loop to consume a frame
		WaitTimeout time.Duration `yaml:"waitTimeout"`

		// StrictTimeouts makes an expired wait an error for the producer
		StrictTimeouts bool `yaml:"strictTimeouts"`
	} `yaml:"handoff"`

	Pool struct {
		// Capacity is the number of frames that may be outstanding at once
		Capacity int `yaml:"capacity"`
	} `yaml:"pool"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Address string `yaml:"address"`
	} `yaml:"metrics"`

	// Demo parameters for the synthetic producers of the demo command
	Demo struct {
		Channels int           `yaml:"channels"`
		Size     int           `yaml:"size"`
		Frames   int           `yaml:"frames"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"demo"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Window.Title = "oxy-volume"
	cfg.Window.Width = 768
	cfg.Window.Height = 768

	cfg.Renderer.Backend = "headless"
	cfg.Renderer.BytesPerVoxel = 1
	cfg.Renderer.Layers = 1
	cfg.Renderer.FrameLimit = 0
	cfg.Renderer.Profiling = false

	cfg.Handoff.WaitTimeout = 2 * time.Second
	cfg.Handoff.StrictTimeouts = false

	cfg.Pool.Capacity = 20

	cfg.Logging.Level = "notice"

	cfg.Metrics.Enabled = false
	cfg.Metrics.Address = ":9090"

	cfg.Demo.Channels = 2
	cfg.Demo.Size = 128
	cfg.Demo.Frames = 50
	cfg.Demo.Interval = 20 * time.Millisecond

	return cfg
}

// Validate checks value ranges that cannot be clamped silently.
func (c *Config) Validate() error {
	switch c.Renderer.Backend {
	case "headless", "wgpu":
	default:
		return fmt.Errorf("%w: unknown renderer backend %q", ErrInvalidConfig, c.Renderer.Backend)
	}
	switch c.Renderer.BytesPerVoxel {
	case 1, 2, 4:
	default:
		return fmt.Errorf("%w: bytesPerVoxel must be 1, 2 or 4, got %d", ErrInvalidConfig, c.Renderer.BytesPerVoxel)
	}
	if c.Renderer.Layers < 1 {
		return fmt.Errorf("%w: layers must be at least 1, got %d", ErrInvalidConfig, c.Renderer.Layers)
	}
	if c.Pool.Capacity < 1 {
		return fmt.Errorf("%w: pool capacity must be at least 1, got %d", ErrInvalidConfig, c.Pool.Capacity)
	}
	if c.Handoff.WaitTimeout < 0 {
		return fmt.Errorf("%w: negative wait timeout %s", ErrInvalidConfig, c.Handoff.WaitTimeout)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
