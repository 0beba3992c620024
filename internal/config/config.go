package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	AuthModeDevelopment = "development"
	AuthModeJWT         = "jwt"
	AuthModeNone        = "none"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	Workers            int    `mapstructure:"WORKERS"`
	MaxBodySize        string `mapstructure:"MAX_BODY_SIZE"`
	MatchingConfigPath string `mapstructure:"MATCHING_CONFIG_PATH"`

	QualityGates       bool    `mapstructure:"QUALITY_GATES"`
	MaxInvalidDateRate float64 `mapstructure:"MAX_INVALID_DATE_RATE"`
	MaxUnmatchedRate   float64 `mapstructure:"MAX_UNMATCHED_RATE"`
	MaxParseFailRate   float64 `mapstructure:"MAX_PARSE_FAIL_RATE"`

	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	AuthMode      string `mapstructure:"AUTH_MODE"`
	AuthJWTSecret string `mapstructure:"AUTH_JWT_SECRET"`
	AuthIssuer    string `mapstructure:"AUTH_ISSUER"`
	AuthAudience  string `mapstructure:"AUTH_AUDIENCE"`

	MetricsEnabled bool `mapstructure:"METRICS_ENABLED"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"WORKERS", "MAX_BODY_SIZE", "MATCHING_CONFIG_PATH",
	"QUALITY_GATES", "MAX_INVALID_DATE_RATE", "MAX_UNMATCHED_RATE", "MAX_PARSE_FAIL_RATE",
	"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_USE_SSL",
	"KAFKA_BROKERS", "KAFKA_TOPIC",
	"AUTH_MODE", "AUTH_JWT_SECRET", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"METRICS_ENABLED",
}

// Load reads configuration from the environment and an optional .env file.
// DATABASE_URL is optional: without it decoding runs fully in memory.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("WORKERS", 4)
	v.SetDefault("MAX_BODY_SIZE", "10M")
	v.SetDefault("QUALITY_GATES", false)
	v.SetDefault("MAX_INVALID_DATE_RATE", 2.0)
	v.SetDefault("MAX_UNMATCHED_RATE", 10.0)
	v.SetDefault("MAX_PARSE_FAIL_RATE", 5.0)
	v.SetDefault("MINIO_BUCKET", "edi-archive")
	v.SetDefault("KAFKA_TOPIC", "edi.decoded")
	v.SetDefault("AUTH_MODE", "") // "" -> inferred, see ResolvedAuthMode
	v.SetDefault("METRICS_ENABLED", true)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) HasDatabase() bool { return c.DatabaseURL != "" }
func (c *Config) HasArchive() bool  { return c.MinioEndpoint != "" }
func (c *Config) HasKafka() bool    { return strings.TrimSpace(c.KafkaBrokers) != "" }

// ResolvedAuthMode returns AUTH_MODE when set. Otherwise:
//   - ENV=development -> "development" (every request gets admin)
//   - AUTH_JWT_SECRET set -> "jwt"
//   - otherwise -> "none"
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return AuthModeDevelopment
	}
	if c.AuthJWTSecret != "" {
		return AuthModeJWT
	}
	return AuthModeNone
}

// Validate checks ranges and refuses an unauthenticated production server.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be at least 1, got %d", c.DBMaxConns)
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS (%d), got %d", c.DBMaxConns, c.DBMinConns)
	}
	for name, rate := range map[string]float64{
		"MAX_INVALID_DATE_RATE": c.MaxInvalidDateRate,
		"MAX_UNMATCHED_RATE":    c.MaxUnmatchedRate,
		"MAX_PARSE_FAIL_RATE":   c.MaxParseFailRate,
	} {
		if rate < 0 || rate > 100 {
			return fmt.Errorf("%s must be a percentage between 0 and 100, got %g", name, rate)
		}
	}

	switch c.LogLevel {
	case "", "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.LogLevel)
	}

	switch mode := c.ResolvedAuthMode(); mode {
	case AuthModeJWT:
		if c.AuthJWTSecret == "" {
			return fmt.Errorf("AUTH_JWT_SECRET is required when AUTH_MODE is %q", AuthModeJWT)
		}
	case AuthModeNone:
		if c.IsProduction() {
			return fmt.Errorf("refusing to serve without authentication in production; set AUTH_JWT_SECRET")
		}
	case AuthModeDevelopment:
	default:
		return fmt.Errorf("AUTH_MODE must be \"development\", \"jwt\", or \"none\", got %q", mode)
	}

	if c.HasArchive() && (c.MinioAccessKey == "" || c.MinioSecretKey == "") {
		return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set")
	}
	return nil
}
