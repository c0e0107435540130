// Package config holds the HTTP surface configuration for the pool gateway:
// listener timeouts, per-route rate limits, CORS and observability toggles.
// Pool economics live in the service's own configuration file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RateLimitConfig struct {
	ID                string  `yaml:"id"`
	RequestsPerMinute float64 `yaml:"requestsPerMinute"`
	Burst             int     `yaml:"burst"`
}

type ObservabilityConfig struct {
	ServiceName   string `yaml:"serviceName"`
	MetricsPrefix string `yaml:"metricsPrefix"`
	LogRequests   bool   `yaml:"logRequests"`
	Enabled       bool   `yaml:"enabled"`
}

type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowedMethods   []string `yaml:"allowedMethods"`
	AllowedHeaders   []string `yaml:"allowedHeaders"`
	AllowCredentials bool     `yaml:"allowCredentials"`
}

type Config struct {
	ReadTimeout   time.Duration       `yaml:"readTimeout"`
	WriteTimeout  time.Duration       `yaml:"writeTimeout"`
	IdleTimeout   time.Duration       `yaml:"idleTimeout"`
	RateLimits    []RateLimitConfig   `yaml:"rateLimits"`
	Observability ObservabilityConfig `yaml:"observability"`
	CORS          CORSConfig          `yaml:"cors"`
}

// Load reads the gateway configuration. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		Observability: ObservabilityConfig{
			ServiceName:   "prizepool-gateway",
			MetricsPrefix: "gateway",
			LogRequests:   true,
			Enabled:       true,
		},
	}
	if path == "" {
		return cfg, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	seen := make(map[string]struct{}, len(cfg.RateLimits))
	for i, limit := range cfg.RateLimits {
		id := strings.TrimSpace(limit.ID)
		if id == "" {
			return fmt.Errorf("rateLimits[%d].id cannot be empty", i)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("rateLimits[%d].id %q duplicated", i, id)
		}
		seen[id] = struct{}{}
		if limit.RequestsPerMinute <= 0 {
			return fmt.Errorf("rateLimits[%d].requestsPerMinute must be positive", i)
		}
	}
	return nil
}
