package credauth

import (
	"errors"
	"time"

	"github.com/MrEthical07/credauth/credential"
	"github.com/MrEthical07/credauth/identifier"
	"github.com/MrEthical07/credauth/password"
)

// Config is the complete Engine configuration. Obtain one from
// DefaultConfig, adjust fields, and pass it to Builder.WithConfig.
type Config struct {
	Identifier IdentifierConfig
	Credential CredentialConfig
	Hasher     HasherConfig
	Lockout    LockoutConfig
	// StoreTimeout bounds every CredentialStore call made during an attempt.
	StoreTimeout time.Duration
	Audit        AuditConfig
	Metrics      MetricsConfig
}

// IdentifierConfig tunes identifier validation.
type IdentifierConfig struct {
	// RequireMX rejects email identifiers whose domain has no MX record.
	RequireMX       bool
	DNSTimeout      time.Duration
	MaxHandleLength int
}

// CredentialConfig selects the credential shape rule per mode.
type CredentialConfig struct {
	// DatabaseFormat is the rule applied in ModeDatabase.
	DatabaseFormat credential.Format
}

// HasherConfig selects the key-stretching cost and primitive.
type HasherConfig struct {
	Iterations int
	Digest     password.Digest
}

// LockoutConfig sets the trailing window and the failed-attempt threshold at
// which an identifier is locked.
type LockoutConfig struct {
	Window      time.Duration
	MaxAttempts int
}

// AuditConfig controls the optional async structured audit stream.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and the latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Defaults applied by DefaultConfig.
const (
	DefaultLockoutWindow      = time.Hour
	DefaultLockoutMaxAttempts = 7
	DefaultStoreTimeout       = 5 * time.Second
)

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Identifier: IdentifierConfig{
			RequireMX:       true,
			DNSTimeout:      identifier.DefaultDNSTimeout,
			MaxHandleLength: identifier.DefaultMaxHandleLength,
		},
		Credential: CredentialConfig{
			DatabaseFormat: credential.FormatHexDigest,
		},
		Hasher: HasherConfig{
			Iterations: password.DefaultIterations,
			Digest:     password.DigestSHA512,
		},
		Lockout: LockoutConfig{
			Window:      DefaultLockoutWindow,
			MaxAttempts: DefaultLockoutMaxAttempts,
		},
		StoreTimeout: DefaultStoreTimeout,
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field in c.
func (c *Config) Validate() error {
	// Identifier
	if c.Identifier.MaxHandleLength <= 0 {
		return errors.New("Identifier MaxHandleLength must be > 0")
	}
	if c.Identifier.RequireMX && c.Identifier.DNSTimeout <= 0 {
		return errors.New("Identifier DNSTimeout must be > 0 when RequireMX is true")
	}

	// Credential
	// Custom formats are checked against registered rules in Build.
	if c.Credential.DatabaseFormat == 0 || c.Credential.DatabaseFormat == credential.FormatNone {
		return errors.New("Credential DatabaseFormat must name a credential rule")
	}

	// Hasher
	if c.Hasher.Iterations < 1 {
		return errors.New("Hasher Iterations must be >= 1")
	}
	if _, err := c.Hasher.Digest.Constructor(); err != nil {
		return errors.New("Hasher Digest is not supported")
	}

	// Lockout
	if c.Lockout.Window <= 0 {
		return errors.New("Lockout Window must be > 0")
	}
	if c.Lockout.MaxAttempts < 1 {
		return errors.New("Lockout MaxAttempts must be >= 1")
	}

	if c.StoreTimeout <= 0 {
		return errors.New("StoreTimeout must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
