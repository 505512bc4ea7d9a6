// Package config loads RustQL's optional YAML configuration file via
// github.com/spf13/viper, the way tuannm99-novasql/internal/config.go loads
// its NovaSqlConfig: a viper.New() instance with an explicit config file
// path, unmarshaled into a mapstructure-tagged struct.
//
// RustQL has no storage/server sections to configure (single-process,
// in-memory, no network per spec.md §1/§5) - only the two knobs
// cmd/rustql actually needs: where the JSON database file lives and what
// prompt the shell shows. Non-transactional statements always persist
// immediately (spec.md §3); that is not a configurable toggle, so there is
// no autocommit field to set.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is RustQL's shell configuration, loaded from an optional YAML
// file (e.g. rustql.yaml).
type Config struct {
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`

	Shell struct {
		Prompt string `mapstructure:"prompt"`
	} `mapstructure:"shell"`
}

// Default returns the configuration cmd/rustql uses when no -config flag
// is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Database.Path = "db.json"
	cfg.Shell.Prompt = "rustql> "
	return cfg
}

// Load reads path as YAML and unmarshals it over Default(), so a config
// file that only sets one field leaves the others at their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
