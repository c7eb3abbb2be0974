// Package config loads replica configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// RelPath is the config file location relative to the XDG config dirs.
const RelPath = "movelog/config.yaml"

// Config is the replica configuration.
type Config struct {
	Replica ReplicaConfig `yaml:"replica"`
	Store   StoreConfig   `yaml:"store"`
	Redis   RedisConfig   `yaml:"redis"`

	// Rules is the path to a CUE rules file. Empty means the default rules.
	Rules string `yaml:"rules"`
}

// ReplicaConfig identifies this replica to the digest registry.
type ReplicaConfig struct {
	Name string `yaml:"name"`
}

// StoreConfig locates the sqlite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig addresses the digest registry.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	TTLHours  int    `yaml:"ttl_hours"`
}

// TTL returns how long published digests live.
func (c *RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// DefaultStorePath is the sqlite database under the XDG data home.
func DefaultStorePath() string {
	return filepath.Join(xdg.DataHome, "movelog", "movelog.db")
}

// Load reads a config file. Fields it leaves out take their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes config YAML. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Resolve loads path when it is set, and otherwise the file found in the
// XDG config dirs. With neither it returns Default.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	found, err := xdg.SearchConfigFile(RelPath)
	if err != nil {
		return Default(), nil
	}
	return Load(found)
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must not be negative")
	}
	if c.Redis.TTLHours < 0 {
		return fmt.Errorf("redis.ttl_hours must not be negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Replica.Name == "" {
		if host, err := os.Hostname(); err == nil && host != "" {
			c.Replica.Name = host
		} else {
			c.Replica.Name = "local"
		}
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath()
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "movelog:digest:"
	}
	if c.Redis.TTLHours == 0 {
		c.Redis.TTLHours = 24
	}
}
