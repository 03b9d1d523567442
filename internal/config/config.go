// Package config holds the runtime configuration of the query core's CLI
// surface: which backend to open, how to reach it, and the default
// project namespace.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is loaded from .cortexdb/config.yml with environment variable
// overrides.
type Config struct {
	Backend  string         `yaml:"backend" mapstructure:"backend"` // "datalog" or "graph"
	Project  string         `yaml:"project" mapstructure:"project"`
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// PostgresConfig configures the graph backend's connection.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     string `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	DBName   string `yaml:"dbname" mapstructure:"dbname"`
	SSLMode  string `yaml:"sslmode" mapstructure:"sslmode"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
}

// Default returns a configuration with sensible defaults: the embedded
// Datalog backend, a "default" project, info-level logs on stdout.
func Default() *Config {
	return &Config{
		Backend: "datalog",
		Project: "default",
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			DBName:  "cortexdb",
			SSLMode: "disable",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load merges the default configuration with whatever viper has read
// from the config file and environment.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.Backend != "datalog" && cfg.Backend != "graph" {
		return nil, fmt.Errorf("unknown backend %q (want datalog or graph)", cfg.Backend)
	}
	return cfg, nil
}
