package credauth

import (
	"fmt"

	"github.com/MrEthical07/credauth/credential"
	"github.com/MrEthical07/credauth/identifier"
	"github.com/MrEthical07/credauth/internal/audit"
	"github.com/MrEthical07/credauth/internal/limiters"
	"github.com/MrEthical07/credauth/internal/metrics"
	"github.com/MrEthical07/credauth/password"
	"go.uber.org/zap"
)

// Builder assembles an Engine. A Builder is single-use: Build may succeed
// at most once.
type Builder struct {
	config Config

	store     CredentialStore
	resolver  identifier.MXResolver
	auditSink AuditSink
	logger    *zap.Logger
	rules     map[credential.Format]credential.Rule

	built bool
}

// New returns a Builder preloaded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied; later changes to it
// do not reach the Builder.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCredentialStore sets the required store collaborator.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithResolver overrides the MX resolver used for email identifiers.
// Defaults to net.DefaultResolver.
func (b *Builder) WithResolver(resolver identifier.MXResolver) *Builder {
	b.resolver = resolver
	return b
}

// WithAuditSink sets where structured audit events go when Audit.Enabled is
// set. Defaults to a no-op sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. Defaults to zap.NewNop.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithCredentialRule installs or replaces the rule for a credential format.
func (b *Builder) WithCredentialRule(format credential.Format, rule credential.Rule) *Builder {
	if b.rules == nil {
		b.rules = make(map[credential.Format]credential.Rule)
	}
	b.rules[format] = rule
	return b
}

// WithMetricsEnabled toggles outcome counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Authenticate latency histogram. It has no
// effect unless metrics are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, ErrStoreRequired
	}

	stretcher, err := password.NewStretcher(password.Config{
		Iterations: cfg.Hasher.Iterations,
		Digest:     cfg.Hasher.Digest,
	})
	if err != nil {
		return nil, err
	}

	credentials := credential.NewValidator()
	for format, rule := range b.rules {
		credentials.Register(format, rule)
	}
	if !credentials.Registered(cfg.Credential.DatabaseFormat) {
		return nil, fmt.Errorf("%w: database format %s", credential.ErrUnknownFormat, cfg.Credential.DatabaseFormat)
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store := newTimedStore(b.store, cfg.StoreTimeout)

	e := &Engine{
		config: cfg,
		store:  store,
		identifiers: identifier.NewValidator(identifier.Config{
			MaxHandleLength: cfg.Identifier.MaxHandleLength,
			RequireMX:       cfg.Identifier.RequireMX,
			DNSTimeout:      cfg.Identifier.DNSTimeout,
		}, b.resolver),
		credentials: credentials,
		stretcher:   stretcher,
		lockout: limiters.NewLockoutPolicy(store, limiters.LockoutConfig{
			Window:      cfg.Lockout.Window,
			MaxAttempts: cfg.Lockout.MaxAttempts,
		}),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: metrics.New(metrics.Config{
			Enabled:                 cfg.Metrics.Enabled,
			EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
		}),
		logger: logger,
	}

	b.built = true
	return e, nil
}
