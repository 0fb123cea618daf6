package credauth

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/credauth/credential"
	"github.com/MrEthical07/credauth/identifier"
	"github.com/MrEthical07/credauth/internal/audit"
	"github.com/MrEthical07/credauth/internal/flows"
	"github.com/MrEthical07/credauth/internal/limiters"
	"github.com/MrEthical07/credauth/internal/metrics"
	"github.com/MrEthical07/credauth/password"
	"go.uber.org/zap"
)

// Engine decides authentication attempts. It is immutable after Build and
// safe for concurrent use.
type Engine struct {
	config      Config
	store       CredentialStore
	identifiers *identifier.Validator
	credentials *credential.Validator
	stretcher   *password.Stretcher
	lockout     *limiters.LockoutPolicy
	audit       *audit.Dispatcher
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// modeRules is the per-mode rule selection.
type modeRules struct {
	kind           identifier.Kind
	format         credential.Format
	skipCredential bool
}

func rulesFor(mode Mode, cfg Config) (modeRules, error) {
	switch mode {
	case ModeDatabase:
		return modeRules{
			kind:   identifier.KindEmail,
			format: cfg.Credential.DatabaseFormat,
		}, nil
	case ModeFederated:
		return modeRules{
			kind:           identifier.KindDirectory,
			format:         credential.FormatNone,
			skipCredential: true,
		}, nil
	default:
		return modeRules{}, fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))
	}
}

// Authenticate runs one attempt for identifier and credential under mode.
//
// The returned error is nil for every outcome except OutcomeOther, where it
// wraps ErrStoreUnavailable, ErrAmbiguousRecord, ErrLockoutUnavailable,
// ErrInvalidMode or ErrEngineNotReady. Exactly one audit line is written through the
// CredentialStore for every call on a built Engine.
func (e *Engine) Authenticate(ctx context.Context, identifier, credential string, mode Mode) (Result, error) {
	if e == nil || e.store == nil {
		return Result{Outcome: OutcomeOther, Mode: mode}, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	rules, modeErr := rulesFor(mode, e.config)

	d := flows.RunAuthenticate(ctx, identifier, credential, e.authenticateDeps(rules, modeErr, mode))

	res := Result{
		Outcome:    Outcome(d.Outcome),
		Identifier: d.Identifier,
		Mode:       mode,
		Reason:     d.Reason,
		Duration:   time.Since(start),
	}

	e.logger.Debug("credauth: authentication decided",
		zap.String("identifier", res.Identifier),
		zap.Stringer("mode", mode),
		zap.Stringer("outcome", res.Outcome),
		zap.String("reason", res.Reason),
		zap.String("request_id", requestIDFromContext(ctx)),
		zap.Duration("duration", res.Duration),
	)

	if res.Outcome == OutcomeOther {
		err := d.Err
		if err == nil {
			err = ErrStoreUnavailable
		}
		return res, err
	}
	return res, nil
}

func (e *Engine) authenticateDeps(rules modeRules, modeErr error, mode Mode) flows.AuthenticateDeps {
	return flows.AuthenticateDeps{
		SkipCredential: rules.skipCredential,
		ModeErr:        modeErr,

		ValidateIdentifier: func(ctx context.Context, raw string) (string, error) {
			return e.identifiers.Validate(ctx, raw, rules.kind)
		},
		ValidateCredential: func(c string) error {
			return e.credentials.Validate(c, rules.format)
		},
		IsLocked: e.lockout.IsLocked,
		FetchRecord: func(ctx context.Context, id string) (flows.AuthenticateRecord, error) {
			rec, err := e.store.FetchCredentialRecord(ctx, id)
			if err != nil {
				return flows.AuthenticateRecord{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
			}
			return flows.AuthenticateRecord{
				Matches:    rec.Matches,
				SaltSource: rec.SaltSource,
				StoredHash: rec.StoredHash,
			}, nil
		},
		Verify: e.stretcher.Verify,
		IncrementFailure: func(ctx context.Context, id, message string) error {
			return e.store.IncrementFailedAttempt(ctx, id, message)
		},
		RecordAudit: func(ctx context.Context, id string, o flows.AuthOutcome, message string) error {
			return e.store.RecordAuditEvent(ctx, id, Outcome(o), message)
		},

		MetricInc: e.metricInc,
		Observe: func(d time.Duration) {
			e.metrics.Observe(metrics.AuthenticateLatency, d)
		},
		EmitAudit: func(ctx context.Context, d flows.AuthenticateDecision) {
			e.emitAudit(ctx, mode, d)
		},
		Warn: func(msg, id string, err error) {
			e.logger.Warn(msg,
				zap.String("identifier", id),
				zap.Stringer("mode", mode),
				zap.Error(err),
			)
		},

		Metrics: flows.AuthenticateMetrics{
			Outcome: [flows.AuthOther + 1]int{
				int(metrics.AuthPassed),
				int(metrics.AuthPasswordIncorrect),
				int(metrics.AuthIdentifierNotFound),
				int(metrics.AuthIdentifierBadStructure),
				int(metrics.AuthCredentialBadStructure),
				int(metrics.AuthLocked),
				int(metrics.AuthOther),
			},
			AuditStoreFailure: int(metrics.AuditStoreFailure),
			FailureRecorded:   int(metrics.FailedAttemptRecorded),
		},
		Errors: flows.AuthenticateErrors{
			EngineNotReady:     ErrEngineNotReady,
			StoreUnavailable:   ErrStoreUnavailable,
			AmbiguousRecord:    ErrAmbiguousRecord,
			LockoutUnavailable: ErrLockoutUnavailable,
		},
	}
}

func (e *Engine) metricInc(id int) {
	e.metrics.Inc(metrics.ID(id))
}

// ValidateIdentifier reports whether identifier is structurally valid for
// mode. It performs the MX lookup for email identifiers when configured but
// has no other side effects.
func (e *Engine) ValidateIdentifier(ctx context.Context, identifier string, mode Mode) bool {
	if e == nil || e.identifiers == nil {
		return false
	}
	rules, err := rulesFor(mode, e.config)
	if err != nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err = e.identifiers.Validate(ctx, identifier, rules.kind)
	return err == nil
}

// ValidateCredentialFormat reports whether credential has the shape required
// by mode. Modes that check no credential accept any value.
func (e *Engine) ValidateCredentialFormat(credential string, mode Mode) bool {
	if e == nil || e.credentials == nil {
		return false
	}
	rules, err := rulesFor(mode, e.config)
	if err != nil {
		return false
	}
	return e.credentials.Validate(credential, rules.format) == nil
}

// IsLocked reports whether identifier is currently locked out. The
// identifier is normalized but not otherwise validated.
func (e *Engine) IsLocked(ctx context.Context, id string) (bool, error) {
	if e == nil || e.lockout == nil {
		return false, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return e.lockout.IsLocked(ctx, identifier.Normalize(id))
}

// Close drains the async audit stream. It is safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of structured audit events dropped because
// the buffer was full or the caller's context ended.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return metrics.New(metrics.Config{}).Snapshot()
	}
	return e.metrics.Snapshot()
}
