// Package config loads the runtime configuration from a YAML file with
// environment-variable overrides for the values that differ per deployment.
package config

import (
	"os"
	"strconv"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Auth struct {
		LoginURL        string `yaml:"login_url"`
		LoginsPerMinute int    `yaml:"logins_per_minute"`
		LoginBurst      int    `yaml:"login_burst"`
	} `yaml:"auth"`
	Session struct {
		WarningThresholdMinutes int   `yaml:"warning_threshold_minutes"`
		CheckIntervalSeconds    int64 `yaml:"check_interval_seconds"`
	} `yaml:"session"`
	Storage struct {
		// Path to the local SQLite file; empty means in-memory only.
		Path string `yaml:"path"`
		// Base64-free raw key string; 16, 24 or 32 bytes enable obfuscation.
		CipherKey string `yaml:"cipher_key"`
	} `yaml:"storage"`
}

// Environment overrides, applied after the file is read.
const (
	envLoginURL  = "TRAWELLS_LOGIN_URL"
	envCipherKey = "TRAWELLS_CIPHER_KEY"
	envStorage   = "TRAWELLS_STORAGE_PATH"
	envWarning   = "TRAWELLS_WARNING_MINUTES"
	envInterval  = "TRAWELLS_CHECK_SECONDS"
)

// Default constructs a config with the built-in defaults and environment
// overrides applied, for running without a file at all.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

// LoadConfig reads configuration from the specified YAML file, then fills
// defaults and applies environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open config file")
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, pkgerrors.Wrap(err, "decode config file")
	}

	config.applyDefaults()
	config.applyEnv()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Auth.LoginsPerMinute == 0 {
		c.Auth.LoginsPerMinute = 10
	}
	if c.Auth.LoginBurst == 0 {
		c.Auth.LoginBurst = 3
	}
	if c.Session.WarningThresholdMinutes == 0 {
		c.Session.WarningThresholdMinutes = 5
	}
	if c.Session.CheckIntervalSeconds == 0 {
		c.Session.CheckIntervalSeconds = 60
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envLoginURL); v != "" {
		c.Auth.LoginURL = v
	}
	if v := os.Getenv(envCipherKey); v != "" {
		c.Storage.CipherKey = v
	}
	if v := os.Getenv(envStorage); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv(envWarning); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Session.WarningThresholdMinutes = n
		}
	}
	if v := os.Getenv(envInterval); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Session.CheckIntervalSeconds = n
		}
	}
}

// CheckInterval returns the session check interval as a duration.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.Session.CheckIntervalSeconds) * time.Second
}
