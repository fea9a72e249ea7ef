// Package config loads server configuration from YAML with environment
// overrides for deployment knobs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable the server reads at startup. The universe seed
// is part of world identity: changing it on an existing database produces a
// different universe than the persisted sectors came from.
type Config struct {
	Seed         int64         `yaml:"seed"`
	TickInterval time.Duration `yaml:"tick_interval"`
	DBPath       string        `yaml:"db_path"`

	ListenAddr string `yaml:"listen_addr"` // websocket + HTTP
	APIRate    int    `yaml:"api_rate"`    // status requests per second per client
	APIBurst   int    `yaml:"api_burst"`

	RegenWindow time.Duration `yaml:"regen_window"`
}

func defaults() Config {
	return Config{
		Seed:         42,
		TickInterval: time.Second,
		DBPath:       "data/voidlanes.db",
		ListenAddr:   ":8080",
		APIRate:      5,
		APIBurst:     10,
		RegenWindow:  6 * time.Hour,
	}
}

// Load reads a YAML config file, falling back to defaults when path is
// empty, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("VOIDLANES_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = seed
		}
	}
	if v := os.Getenv("VOIDLANES_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("VOIDLANES_ADDR"); v != "" {
		c.ListenAddr = v
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %v", c.TickInterval)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.APIRate <= 0 || c.APIBurst <= 0 {
		return fmt.Errorf("api_rate and api_burst must be positive")
	}
	return nil
}
