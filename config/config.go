package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Addr string `yaml:"addr"`
}

type Database struct {
	// DSN must include the database name and parseTime=true.
	DSN            string `yaml:"dsn"`
	MaxConnections int    `yaml:"maxConnections"`
}

type Auth struct {
	// SigningSecret is base64-encoded.
	SigningSecret   string `yaml:"signingSecret"`
	TokenTTLSeconds int64  `yaml:"tokenTtlSeconds"`
}

type Monitoring struct {
	WindowSeconds          int    `yaml:"windowSeconds"`
	LocationCadenceMinutes int    `yaml:"locationCadenceMinutes"`
	GeoBaseURL             string `yaml:"geoBaseUrl"`
}

type Config struct {
	Server     Server     `yaml:"server"`
	Database   Database   `yaml:"database"`
	Auth       Auth       `yaml:"auth"`
	Monitoring Monitoring `yaml:"monitoring"`
}

var (
	once    sync.Once
	loaded  *Config
	loadErr error
)

// Load reads the YAML config file once and applies environment overrides.
// The path defaults to ./timetrack.yaml and can be set via TIMETRACK_CONFIG;
// a missing file is fine as long as the required values arrive via env.
func Load() (*Config, error) {
	once.Do(func() {
		cfg := &Config{}
		cfg.Server.Addr = "0.0.0.0:8090"
		cfg.Database.MaxConnections = 10
		cfg.Auth.TokenTTLSeconds = 8 * 3600
		cfg.Monitoring.WindowSeconds = 60

		path := os.Getenv("TIMETRACK_CONFIG")
		if path == "" {
			path = "timetrack.yaml"
		}
		if raw, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				loadErr = fmt.Errorf("unmarshal config %s: %w", path, err)
				return
			}
		} else if !os.IsNotExist(err) {
			loadErr = fmt.Errorf("read config %s: %w", path, err)
			return
		}

		if v := os.Getenv("DSN"); v != "" {
			cfg.Database.DSN = v
		}
		if v := os.Getenv("TIMETRACK_ADDR"); v != "" {
			cfg.Server.Addr = v
		}
		if v := os.Getenv("TIMETRACK_SIGNING_SECRET"); v != "" {
			cfg.Auth.SigningSecret = v
		}
		if v := os.Getenv("TIMETRACK_WINDOW_SECONDS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				cfg.Monitoring.WindowSeconds = n
			}
		}

		if cfg.Database.DSN == "" {
			loadErr = fmt.Errorf("database DSN is required (config %s or DSN env)", path)
			return
		}
		if cfg.Auth.SigningSecret == "" {
			loadErr = fmt.Errorf("auth signing secret is required")
			return
		}

		loaded = cfg
	})

	return loaded, loadErr
}
