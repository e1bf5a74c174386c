package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML strings like "30s" or "5m" via time.ParseDuration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard-library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the runtime configuration for the CLI, loaded from a YAML file
// with environment fallbacks for the model credentials.
type Config struct {
	OpenAI struct {
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"openai"`
	Records struct {
		// Driver selects the record store: sqlite, file or memory.
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"records"`
	Redis struct {
		Addr     string   `yaml:"addr"`
		Password string   `yaml:"password"`
		DB       int      `yaml:"db"`
		TTL      Duration `yaml:"ttl"`
	} `yaml:"redis"`
	MetricsAddr    string   `yaml:"metrics_addr"`
	GatewayTimeout Duration `yaml:"gateway_timeout"`
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.OpenAI.Model = "gpt-4o-mini"
	cfg.Records.Driver = "sqlite"
	cfg.Records.Path = "voxagent.db"
	cfg.GatewayTimeout = Duration(15 * time.Second)
	return cfg
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" && cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = base
	}
	return cfg, nil
}
