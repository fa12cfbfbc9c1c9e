// internal/config/config.go
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type ProviderConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Transport string `yaml:"transport,omitempty"` // raw, event, json
}

type Config struct {
	Gateway struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"gateway"`
	Providers struct {
		Claude ProviderConfig `yaml:"claude"`
		GPT    ProviderConfig `yaml:"gpt"`
		Gemini ProviderConfig `yaml:"gemini"`
	} `yaml:"providers"`
	Defaults struct {
		RequestTimeout int  `yaml:"request_timeout"` // seconds, per pitch fetch
		JudgeTimeout   int  `yaml:"judge_timeout"`   // seconds
		RetryAttempts  int  `yaml:"retry_attempts"`
		RetryDelay     int  `yaml:"retry_delay"`     // milliseconds
		StaggerDelay   int  `yaml:"stagger_delay"`   // milliseconds between provider launches
		RevealInterval int  `yaml:"reveal_interval"` // milliseconds per word for JSON providers
		BatchInterval  int  `yaml:"batch_interval"`  // milliseconds between UI updates
		HealthChecks   bool `yaml:"health_checks"`
	} `yaml:"defaults"`
}

func Load() (*Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = os.ExpandEnv("$HOME/.config")
	}

	path := filepath.Join(configDir, "pitcharena", "config.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		// Return defaults if no config file
		return defaultConfig(), nil
	}

	// Expand environment variables in config
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for unset values
	applyDefaults(&cfg)

	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Gateway.BaseURL = "http://localhost:8787"
	cfg.Providers.Claude.Enabled = true
	cfg.Providers.Claude.Transport = "raw"
	cfg.Providers.GPT.Enabled = true
	cfg.Providers.GPT.Transport = "event"
	cfg.Providers.Gemini.Enabled = true
	cfg.Providers.Gemini.Transport = "json"
	cfg.Defaults.RequestTimeout = 60
	cfg.Defaults.JudgeTimeout = 45
	cfg.Defaults.RetryAttempts = 3
	cfg.Defaults.RetryDelay = 1000 // 1 second
	cfg.Defaults.StaggerDelay = 150
	cfg.Defaults.RevealInterval = 40
	cfg.Defaults.BatchInterval = 50
	cfg.Defaults.HealthChecks = true
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Gateway.BaseURL == "" {
		cfg.Gateway.BaseURL = "http://localhost:8787"
	}
	// An all-disabled provider block means the section was omitted
	if !cfg.Providers.Claude.Enabled && !cfg.Providers.GPT.Enabled && !cfg.Providers.Gemini.Enabled {
		cfg.Providers.Claude.Enabled = true
		cfg.Providers.GPT.Enabled = true
		cfg.Providers.Gemini.Enabled = true
	}
	if cfg.Providers.Claude.Transport == "" {
		cfg.Providers.Claude.Transport = "raw"
	}
	if cfg.Providers.GPT.Transport == "" {
		cfg.Providers.GPT.Transport = "event"
	}
	if cfg.Providers.Gemini.Transport == "" {
		cfg.Providers.Gemini.Transport = "json"
	}
	if cfg.Defaults.RequestTimeout == 0 {
		cfg.Defaults.RequestTimeout = 60
	}
	if cfg.Defaults.JudgeTimeout == 0 {
		cfg.Defaults.JudgeTimeout = 45
	}
	if cfg.Defaults.RetryAttempts == 0 {
		cfg.Defaults.RetryAttempts = 3
	}
	if cfg.Defaults.RetryDelay == 0 {
		cfg.Defaults.RetryDelay = 1000
	}
	if cfg.Defaults.StaggerDelay == 0 {
		cfg.Defaults.StaggerDelay = 150
	}
	if cfg.Defaults.RevealInterval == 0 {
		cfg.Defaults.RevealInterval = 40
	}
	if cfg.Defaults.BatchInterval == 0 {
		cfg.Defaults.BatchInterval = 50
	}
}

func ConfigPath() string {
	configDir, _ := os.UserConfigDir()
	if configDir == "" {
		configDir = os.ExpandEnv("$HOME/.config")
	}
	return filepath.Join(configDir, "pitcharena", "config.yaml")
}
