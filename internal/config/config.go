// Package config loads service settings from defaults, an optional
// respcare.yaml and RESPCARE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvPrefix       = "RESPCARE"
	DefaultFile     = "respcare"
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is the full service configuration.
type Config struct {
	PatientID   string            `mapstructure:"patient_id"`
	Log         LogConfig         `mapstructure:"log"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Thresholds  ThresholdConfig   `mapstructure:"thresholds"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Emergency   EmergencyConfig   `mapstructure:"emergency"`
	Palette     PaletteConfig     `mapstructure:"palette"`
	Attachments AttachmentsConfig `mapstructure:"attachments"`
	Export      ExportConfig      `mapstructure:"export"`
	Demo        DemoConfig        `mapstructure:"demo"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects and configures the observation persistence backend.
type StorageConfig struct {
	Backend        string `mapstructure:"backend"`
	FilePath       string `mapstructure:"file_path"`
	PostgresDSN    string `mapstructure:"postgres_dsn"`
	PostgresTable  string `mapstructure:"postgres_table"`
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisPassword  string `mapstructure:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db"`
	RedisKeyPrefix string `mapstructure:"redis_key_prefix"`
}

type ThresholdConfig struct {
	File          string `mapstructure:"file"`
	DiastolicMode string `mapstructure:"diastolic_mode"`
}

// NotifyConfig configures the outbound webhook. An empty URL disables it.
type NotifyConfig struct {
	WebhookURL   string        `mapstructure:"webhook_url"`
	Envelope     string        `mapstructure:"envelope"`
	Token        string        `mapstructure:"token"`
	Template     string        `mapstructure:"template"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
	DedupeWindow time.Duration `mapstructure:"dedupe_window"`
	Escalation   time.Duration `mapstructure:"escalation"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type EmergencyConfig struct {
	Name  string `mapstructure:"name"`
	Phone string `mapstructure:"phone"`
	Note  string `mapstructure:"note"`
}

type PaletteConfig struct {
	Normal  string `mapstructure:"normal"`
	Warning string `mapstructure:"warning"`
	Danger  string `mapstructure:"danger"`
}

type AttachmentsConfig struct {
	Path string `mapstructure:"path"`
}

type ExportConfig struct {
	FontPath string `mapstructure:"font_path"`
	Timezone string `mapstructure:"timezone"`
}

// DemoConfig controls synthetic data seeding.
type DemoConfig struct {
	SeedOnEmpty bool  `mapstructure:"seed_on_empty"`
	Days        int   `mapstructure:"days"`
	PerDay      int   `mapstructure:"per_day"`
	Seed        int64 `mapstructure:"seed"`
}

// New returns a viper instance with defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("patient_id", "patient-demo")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.file_path", "data/observations.json")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.postgres_table", "vital_observations")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.redis_key_prefix", "respcare:observations:")
	v.SetDefault("thresholds.file", "")
	v.SetDefault("thresholds.diastolic_mode", "dedicated")
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.envelope", "alert")
	v.SetDefault("notify.token", "")
	v.SetDefault("notify.template", "")
	v.SetDefault("notify.cooldown", 0)
	v.SetDefault("notify.dedupe_window", 0)
	v.SetDefault("notify.escalation", 0)
	v.SetDefault("notify.timeout", 5*time.Second)
	v.SetDefault("emergency.name", "")
	v.SetDefault("emergency.phone", "")
	v.SetDefault("emergency.note", "")
	v.SetDefault("palette.normal", "#2e7d32")
	v.SetDefault("palette.warning", "#f9a825")
	v.SetDefault("palette.danger", "#c62828")
	v.SetDefault("attachments.path", "data/attachments.json")
	v.SetDefault("export.font_path", "")
	v.SetDefault("export.timezone", "UTC")
	v.SetDefault("demo.seed_on_empty", false)
	v.SetDefault("demo.days", 7)
	v.SetDefault("demo.per_day", 6)
	v.SetDefault("demo.seed", 1)
	return v
}

// Load reads configuration. An explicit path must exist; otherwise
// respcare.yaml is looked up in the working directory and is optional.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = New()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(DefaultFile)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil")
	}
	if strings.TrimSpace(c.PatientID) == "" {
		return errors.New("config: patient_id is required")
	}
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.FilePath == "" {
			return errors.New("config: storage.file_path is required for the file backend")
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("config: storage.postgres_dsn is required for the postgres backend")
		}
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("config: storage.redis_addr is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown storage.backend %q", c.Storage.Backend)
	}
	switch c.Thresholds.DiastolicMode {
	case "dedicated", "systolic":
	default:
		return fmt.Errorf("config: unknown thresholds.diastolic_mode %q", c.Thresholds.DiastolicMode)
	}
	if c.Demo.Days < 0 || c.Demo.PerDay < 0 {
		return errors.New("config: demo.days and demo.per_day must not be negative")
	}
	if _, err := time.LoadLocation(c.Export.Timezone); err != nil {
		return fmt.Errorf("config: export.timezone: %w", err)
	}
	return nil
}
