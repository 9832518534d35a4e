// Package config loads tracker settings from defaults, an optional YAML file
// and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "tracker.yaml"

// Config holds settings for both the API server and the client commands.
type Config struct {
	// Client
	APIBaseURL      string        `yaml:"api_base_url"`
	User            string        `yaml:"user"`
	PrefsPath       string        `yaml:"prefs_path"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ResolverTimeout time.Duration `yaml:"resolver_timeout"`

	// Server
	ListenPort string        `yaml:"listen_port"`
	DBPath     string        `yaml:"db_path"`
	RedisURL   string        `yaml:"redis_url"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`

	// Shared
	JWTSecret string `yaml:"jwt_secret"`
	LogLevel  string `yaml:"log_level"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		APIBaseURL:      "http://localhost:8080",
		PrefsPath:       "./data/prefs.db",
		RequestTimeout:  30 * time.Second,
		ResolverTimeout: 10 * time.Second,
		ListenPort:      "8080",
		DBPath:          "./data/tracker.db",
		CacheTTL:        5 * time.Minute,
		LogLevel:        "info",
	}
}

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// Level returns the parsed log level.
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.APIBaseURL, "TRACKER_API_URL")
	setString(&cfg.User, "TRACKER_USER")
	setString(&cfg.PrefsPath, "PREFS_PATH")
	setDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT")
	setDuration(&cfg.ResolverTimeout, "RESOLVER_TIMEOUT")
	setString(&cfg.ListenPort, "PORT")
	setString(&cfg.DBPath, "DB_PATH")
	setString(&cfg.RedisURL, "REDIS_URL")
	setDuration(&cfg.CacheTTL, "CACHE_TTL")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.LogLevel, "LOG_LEVEL")
}

func validate(cfg *Config) error {
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_base_url must be an http(s) URL, got %q", cfg.APIBaseURL)
	}
	if cfg.ListenPort == "" {
		return errors.New("listen_port is required")
	}
	if _, err := strconv.Atoi(cfg.ListenPort); err != nil {
		return fmt.Errorf("listen_port must be numeric, got %q", cfg.ListenPort)
	}
	if cfg.RequestTimeout <= 0 {
		return errors.New("request_timeout must be > 0")
	}
	if cfg.ResolverTimeout <= 0 {
		return errors.New("resolver_timeout must be > 0")
	}
	if cfg.CacheTTL < 0 {
		return errors.New("cache_ttl must be >= 0")
	}
	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
