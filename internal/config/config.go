package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"sessionsnap/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Studio     StudioConfig     `yaml:"studio"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Exports    ExportConfig     `yaml:"exports"`
}

// StudioConfig describes the bookable day and how the studio presents itself.
type StudioConfig struct {
	Name         string `yaml:"name"`
	CalendarLink string `yaml:"calendar_link"`
	Currency     string `yaml:"currency"`
	Timezone     string `yaml:"timezone"`
	// Language of generated share messages: "en" or "pt".
	Language     string `yaml:"language"`
	StartHour    int    `yaml:"start_hour"`
	EndHour      int    `yaml:"end_hour"`
	BufferHours  int    `yaml:"buffer_hours"`
	DraftTTL     string `yaml:"draft_ttl"`

	ShareRateLimitMessages int `yaml:"share_rate_limit_messages"`
	ShareRateLimitWindow   int `yaml:"share_rate_limit_window"`
}

// Location resolves Timezone, falling back to time.Local.
func (s StudioConfig) Location() *time.Location {
	if s.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// DraftTTLDuration parses DraftTTL, falling back to models.DefaultDraftTTL.
func (s StudioConfig) DraftTTLDuration() time.Duration {
	d, err := time.ParseDuration(s.DraftTTL)
	if err != nil || d <= 0 {
		return models.DefaultDraftTTL
	}
	return d
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `yaml:"prometheus_enabled"`
	PrometheusPort    int    `yaml:"prometheus_port"`
	HealthCheckPort   int    `yaml:"health_check_port"`
	LogLevel          string `yaml:"log_level"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if err := c.Studio.Validate(); err != nil {
		return err
	}

	return ValidateAPIKeys(c.API.Auth.APIKeys)
}

var supportedLanguages = map[string]bool{"en": true, "pt": true}

func (s StudioConfig) Validate() error {
	if s.StartHour < 0 || s.EndHour > 24 || s.StartHour >= s.EndHour {
		return fmt.Errorf("invalid studio hours %d-%d", s.StartHour, s.EndHour)
	}
	if s.BufferHours < 0 {
		return fmt.Errorf("buffer hours must not be negative, got %d", s.BufferHours)
	}
	if s.Language != "" && !supportedLanguages[s.Language] {
		return fmt.Errorf("unsupported studio language %q", s.Language)
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("invalid studio timezone %q: %w", s.Timezone, err)
		}
	}
	return nil
}

func ValidateAPIKeys(keys []APIClientKey) error {
	seen := make(map[string]bool)
	for _, k := range keys {
		if k.Key == "" {
			return fmt.Errorf("api key '%s' is empty", k.Name)
		}
		if seen[k.Key] {
			return fmt.Errorf("duplicate api key for client '%s'", k.Name)
		}
		seen[k.Key] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth enabled by default when API is enabled
	if !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	// Studio defaults
	if c.Studio.StartHour == 0 && c.Studio.EndHour == 0 {
		c.Studio.StartHour = models.DefaultStartHour
		c.Studio.EndHour = models.DefaultEndHour
	}
	if c.Studio.BufferHours == 0 {
		c.Studio.BufferHours = models.DefaultBufferHours
	}
	if c.Studio.Language == "" {
		c.Studio.Language = "en"
	}
	if c.Studio.Currency == "" {
		c.Studio.Currency = "R$"
	}
	if c.Studio.ShareRateLimitMessages == 0 {
		c.Studio.ShareRateLimitMessages = models.ShareRateLimitMessages
	}
	if c.Studio.ShareRateLimitWindow == 0 {
		c.Studio.ShareRateLimitWindow = int(models.ShareRateLimitWindow / time.Second)
	}

	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = 7
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
