// Package envconfig loads engine and operator settings from the environment.
//
// Keys are read from CREDAUTH_-prefixed variables (CREDAUTH_LOCKOUT_WINDOW,
// CREDAUTH_HASHER_ITERATIONS, ...). An optional .env file is loaded first and
// never overrides variables that are already set.
package envconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/credauth"
	"github.com/MrEthical07/credauth/credential"
	"github.com/MrEthical07/credauth/password"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "CREDAUTH"

// Settings is the full environment-backed configuration, keyed by
// CREDAUTH_* variables.
type Settings struct {
	Identifier   IdentifierSettings `mapstructure:"identifier"`
	Credential   CredentialSettings `mapstructure:"credential"`
	Hasher       HasherSettings     `mapstructure:"hasher"`
	Lockout      LockoutSettings    `mapstructure:"lockout"`
	StoreTimeout time.Duration      `mapstructure:"store_timeout"`
	Audit        AuditSettings      `mapstructure:"audit"`
	Metrics      MetricsSettings    `mapstructure:"metrics"`
	Redis        RedisSettings      `mapstructure:"redis"`
	Postgres     PostgresSettings   `mapstructure:"postgres"`
	Log          LogSettings        `mapstructure:"log"`
}

// IdentifierSettings maps to credauth.IdentifierConfig.
type IdentifierSettings struct {
	RequireMX       bool          `mapstructure:"require_mx"`
	DNSTimeout      time.Duration `mapstructure:"dns_timeout"`
	MaxHandleLength int           `mapstructure:"max_handle_length"`
}

// CredentialSettings names the database-mode rule: hex_digest or
// legacy_complexity.
type CredentialSettings struct {
	DatabaseFormat string `mapstructure:"database_format"`
}

// HasherSettings maps to credauth.HasherConfig. Digest is a password.Digest
// name such as sha512.
type HasherSettings struct {
	Iterations int    `mapstructure:"iterations"`
	Digest     string `mapstructure:"digest"`
}

// LockoutSettings maps to credauth.LockoutConfig.
type LockoutSettings struct {
	Window      time.Duration `mapstructure:"window"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// AuditSettings maps to credauth.AuditConfig.
type AuditSettings struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
	DropIfFull bool `mapstructure:"drop_if_full"`
}

// MetricsSettings maps to credauth.MetricsConfig.
type MetricsSettings struct {
	Enabled    bool `mapstructure:"enabled"`
	Histograms bool `mapstructure:"histograms"`
}

// RedisSettings configures the Redis credential store. An empty Addr means
// no external server.
type RedisSettings struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// PostgresSettings configures the SQL credential store. An empty DSN means
// no database.
type PostgresSettings struct {
	DSN string `mapstructure:"dsn"`
}

// LogSettings selects the zap logger.
type LogSettings struct {
	Level string `mapstructure:"level"`
	// Format is json or console.
	Format string `mapstructure:"format"`
}

var keys = []string{
	"identifier.require_mx",
	"identifier.dns_timeout",
	"identifier.max_handle_length",
	"credential.database_format",
	"hasher.iterations",
	"hasher.digest",
	"lockout.window",
	"lockout.max_attempts",
	"store_timeout",
	"audit.enabled",
	"audit.buffer_size",
	"audit.drop_if_full",
	"metrics.enabled",
	"metrics.histograms",
	"redis.addr",
	"redis.password",
	"redis.db",
	"redis.prefix",
	"postgres.dsn",
	"log.level",
	"log.format",
}

// Load reads settings from the environment. envFiles are passed to
// godotenv; a missing file is not an error.
func Load(envFiles ...string) (*Settings, error) {
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)

	setDefaults(v)

	if err := bindEnvs(v, keys); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	d := credauth.DefaultConfig()

	v.SetDefault("identifier.require_mx", d.Identifier.RequireMX)
	v.SetDefault("identifier.dns_timeout", d.Identifier.DNSTimeout.String())
	v.SetDefault("identifier.max_handle_length", d.Identifier.MaxHandleLength)

	v.SetDefault("credential.database_format", d.Credential.DatabaseFormat.String())

	v.SetDefault("hasher.iterations", d.Hasher.Iterations)
	v.SetDefault("hasher.digest", string(d.Hasher.Digest))

	v.SetDefault("lockout.window", d.Lockout.Window.String())
	v.SetDefault("lockout.max_attempts", d.Lockout.MaxAttempts)

	v.SetDefault("store_timeout", d.StoreTimeout.String())

	v.SetDefault("audit.enabled", d.Audit.Enabled)
	v.SetDefault("audit.buffer_size", d.Audit.BufferSize)
	v.SetDefault("audit.drop_if_full", d.Audit.DropIfFull)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.histograms", d.Metrics.EnableLatencyHistograms)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "ca")

	v.SetDefault("postgres.dsn", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envPrefix+"_"+envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

// ParseFormat maps a credential format name to its value.
func ParseFormat(name string) (credential.Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case credential.FormatHexDigest.String():
		return credential.FormatHexDigest, nil
	case credential.FormatLegacyComplexity.String():
		return credential.FormatLegacyComplexity, nil
	default:
		return 0, fmt.Errorf("unknown credential format %q", name)
	}
}

// EngineConfig converts the settings into a validated engine config.
func (s *Settings) EngineConfig() (credauth.Config, error) {
	format, err := ParseFormat(s.Credential.DatabaseFormat)
	if err != nil {
		return credauth.Config{}, err
	}

	cfg := credauth.DefaultConfig()
	cfg.Identifier.RequireMX = s.Identifier.RequireMX
	cfg.Identifier.DNSTimeout = s.Identifier.DNSTimeout
	cfg.Identifier.MaxHandleLength = s.Identifier.MaxHandleLength
	cfg.Credential.DatabaseFormat = format
	cfg.Hasher.Iterations = s.Hasher.Iterations
	cfg.Hasher.Digest = password.Digest(strings.ToLower(s.Hasher.Digest))
	cfg.Lockout.Window = s.Lockout.Window
	cfg.Lockout.MaxAttempts = s.Lockout.MaxAttempts
	cfg.StoreTimeout = s.StoreTimeout
	cfg.Audit.Enabled = s.Audit.Enabled
	cfg.Audit.BufferSize = s.Audit.BufferSize
	cfg.Audit.DropIfFull = s.Audit.DropIfFull
	cfg.Metrics.Enabled = s.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = s.Metrics.Histograms

	if err := cfg.Validate(); err != nil {
		return credauth.Config{}, fmt.Errorf("invalid engine config: %w", err)
	}
	return cfg, nil
}

// Logger builds a zap logger from the log settings.
func (s *Settings) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(s.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	if s.Log.Format == "console" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
