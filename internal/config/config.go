package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	S3            S3Config            `mapstructure:"s3"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Progression   ProgressionConfig   `mapstructure:"progression"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"` // gin mode: debug, release, test
}

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // mongo or memory
	URI    string `mapstructure:"uri"`
	Name   string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	BucketName      string        `mapstructure:"bucket_name"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
}

// Enabled reports whether enough settings are present to build a client.
func (c S3Config) Enabled() bool {
	return c.BucketName != "" && c.Region != ""
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type LogConfig struct {
	Mode  string `mapstructure:"mode"` // dev or prod
	Level string `mapstructure:"level"`
}

// RedisConfig selects the distributed per-user lock when Address is set.
type RedisConfig struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// ProgressionConfig tunes the difficulty engine.
type ProgressionConfig struct {
	HighPainThreshold int    `mapstructure:"high_pain_threshold"`
	LowPainWindow     int    `mapstructure:"low_pain_window"`
	AutoApply         bool   `mapstructure:"auto_apply"`
	Timezone          string `mapstructure:"timezone"`
}

// Location resolves Timezone, falling back to UTC for an empty value.
func (c ProgressionConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

type ObservabilityConfig struct {
	ServiceName    string  `mapstructure:"service_name"`
	Environment    string  `mapstructure:"environment"`
	Version        string  `mapstructure:"version"`
	SentryDSN      string  `mapstructure:"sentry_dsn"`
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure   bool    `mapstructure:"otlp_insecure"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS, jwt.expiration -> JWT_EXPIRATION
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil // env vars and defaults are enough
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	if err = config.validate(); err != nil {
		return
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", DriverMongo)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "rehab_app")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("s3.presign_expiry", "15m")
	v.SetDefault("jwt.expiration", "1h")
	v.SetDefault("log.mode", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "10s")
	v.SetDefault("progression.high_pain_threshold", 4)
	v.SetDefault("progression.low_pain_window", 3)
	v.SetDefault("progression.auto_apply", false)
	v.SetDefault("progression.timezone", "UTC")
	v.SetDefault("observability.service_name", "rehab-app")
	v.SetDefault("observability.environment", "development")
	v.SetDefault("observability.tracing_enabled", false)
	v.SetDefault("observability.sample_ratio", 0.1)
	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	v.SetDefault("jwt.secret", "")
	v.SetDefault("observability.sentry_dsn", "")
	v.SetDefault("observability.otlp_endpoint", "")
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Progression.HighPainThreshold < 1 || c.Progression.HighPainThreshold > 10 {
		return fmt.Errorf("progression.high_pain_threshold must be within 1..10, got %d", c.Progression.HighPainThreshold)
	}
	if c.Progression.LowPainWindow < 1 {
		return fmt.Errorf("progression.low_pain_window must be positive, got %d", c.Progression.LowPainWindow)
	}
	if _, err := c.Progression.Location(); err != nil {
		return fmt.Errorf("progression.timezone: %w", err)
	}
	return nil
}
