// Package config loads the invscout run configuration: target hosts,
// connection credentials, source version and output settings. Values come
// from an optional YAML file with command line flags layered on top.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Connection holds the SSH settings.
type Connection struct {
	User           string `yaml:"user"`
	PrivateKeyPath string `yaml:"private_key_path"`
	Password       string `yaml:"password"`
	Port           int    `yaml:"port"`
	Become         bool   `yaml:"become"`
}

// Config is the full run configuration.
type Config struct {
	Hosts       []string   `yaml:"hosts"`
	Connection  Connection `yaml:"connection"`
	FromVersion string     `yaml:"from_version"`
	Output      string     `yaml:"output"`
	Format      string     `yaml:"format"`
	SkipDir     string     `yaml:"skip_dir"`
	Journal     string     `yaml:"journal"`
	Prescan     bool       `yaml:"prescan"`
	Verbose     bool       `yaml:"verbose"`
}

// Load reads a config file, or returns defaults when the path is empty or
// the default file does not exist. An explicitly named file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = "invscout.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// DefaultConfig returns the defaults used when no config file exists.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values.
func (c *Config) applyDefaults() {
	if c.Connection.Port == 0 {
		c.Connection.Port = 22
	}
	if c.Output == "" {
		c.Output = "inventory.yml"
	}
	if c.Format == "" {
		c.Format = "yaml"
	}
	if c.SkipDir == "" {
		c.SkipDir = "configs/skip"
	}
}
