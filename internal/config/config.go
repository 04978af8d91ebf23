package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	JWTSecret   string `yaml:"jwt_secret"`

	Store struct {
		Mode       string `yaml:"mode"` // "remote" or "sqlite"
		BaseURL    string `yaml:"base_url"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"store"`

	Advisor struct {
		OpenAIKey string `yaml:"openai_key"`
	} `yaml:"advisor"`
}

// Load reads the YAML configuration file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Port:        8080,
		MetricsPort: 9090,
	}
	cfg.Store.Mode = "sqlite"
	cfg.Store.SQLitePath = "toolcrib.db"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if v := os.Getenv("TOOLCRIB_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("TOOLCRIB_STORE_URL"); v != "" {
		cfg.Store.Mode = "remote"
		cfg.Store.BaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Advisor.OpenAIKey = v
	}

	if cfg.Store.Mode == "remote" && cfg.Store.BaseURL == "" {
		return nil, fmt.Errorf("store mode is remote but no base_url configured")
	}
	return cfg, nil
}
