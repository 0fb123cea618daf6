package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AuthOutcome is the flow-local outcome code. Values match the public
// Outcome codes one to one.
type AuthOutcome int

// Flow outcomes, in Outcome code order.
const (
	AuthPassed AuthOutcome = iota
	AuthPasswordIncorrect
	AuthIdentifierNotFound
	AuthIdentifierBadStructure
	AuthCredentialBadStructure
	AuthLocked
	AuthOther
)

// AuthenticateRecord is the flow-local credential record shape.
type AuthenticateRecord struct {
	Matches    int
	SaltSource string
	StoredHash string
}

// AuthenticateDecision is the terminal result of one attempt.
type AuthenticateDecision struct {
	Outcome    AuthOutcome
	Identifier string
	Message    string
	Reason     string
	Err        error
}

// AuthenticateMetrics carries metric IDs used by the authenticate flow,
// indexed by outcome.
type AuthenticateMetrics struct {
	Outcome           [AuthOther + 1]int
	AuditStoreFailure int
	FailureRecorded   int
}

// AuthenticateErrors carries host-level sentinel errors.
type AuthenticateErrors struct {
	EngineNotReady     error
	StoreUnavailable   error
	AmbiguousRecord    error
	LockoutUnavailable error
}

// AuthenticateDeps captures the collaborators of one authentication attempt.
type AuthenticateDeps struct {
	// SkipCredential ends the attempt as passed once the record is found.
	SkipCredential bool
	// ModeErr short-circuits the attempt to AuthOther.
	ModeErr error

	ValidateIdentifier func(context.Context, string) (string, error)
	ValidateCredential func(string) error
	IsLocked           func(context.Context, string) (bool, error)
	FetchRecord        func(context.Context, string) (AuthenticateRecord, error)
	Verify             func(saltSource, credential, storedHash string) bool
	IncrementFailure   func(context.Context, string, string) error
	RecordAudit        func(context.Context, string, AuthOutcome, string) error

	Now       func() time.Time
	MetricInc func(int)
	Observe   func(time.Duration)
	EmitAudit func(context.Context, AuthenticateDecision)
	Warn      func(msg string, identifier string, err error)

	Metrics AuthenticateMetrics
	Errors  AuthenticateErrors
}

// Audit messages written through the credential store. They never contain
// the submitted credential.
const (
	msgPassed                 = "authentication passed"
	msgPasswordIncorrect      = "incorrect credential"
	msgIdentifierNotFound     = "identifier not found"
	msgIdentifierBad          = "identifier rejected"
	msgCredentialBad          = "credential rejected"
	msgLocked                 = "identifier locked after repeated failures"
	msgOther                  = "authentication aborted"
	msgFailedAttemptRecording = "failed authentication attempt"
)

// RunAuthenticate drives Start → IdentifierValidated → LockoutChecked →
// RecordFetched → Compared and records exactly one audit event for the
// terminal state it reaches.
func RunAuthenticate(ctx context.Context, rawIdentifier, credential string, deps AuthenticateDeps) AuthenticateDecision {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.Observe == nil {
		deps.Observe = func(time.Duration) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, AuthenticateDecision) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, string, error) {}
	}

	start := deps.Now()
	decision := authenticate(ctx, rawIdentifier, credential, &deps)
	if decision.Message == "" {
		decision.Message = defaultMessage(decision.Outcome)
	}

	if deps.RecordAudit != nil {
		if err := deps.RecordAudit(ctx, decision.Identifier, decision.Outcome, decision.Message); err != nil {
			deps.MetricInc(deps.Metrics.AuditStoreFailure)
			deps.Warn("credauth: audit record write failed", decision.Identifier, err)
		}
	}

	deps.MetricInc(deps.Metrics.Outcome[decision.Outcome])
	deps.Observe(deps.Now().Sub(start))
	deps.EmitAudit(ctx, decision)

	return decision
}

func authenticate(ctx context.Context, rawIdentifier, credential string, deps *AuthenticateDeps) AuthenticateDecision {
	fallbackID := strings.ToLower(strings.TrimSpace(rawIdentifier))

	if deps.ModeErr != nil {
		return AuthenticateDecision{Outcome: AuthOther, Identifier: fallbackID, Reason: "invalid_mode", Err: deps.ModeErr}
	}
	if deps.ValidateIdentifier == nil ||
		deps.IsLocked == nil ||
		deps.FetchRecord == nil ||
		(!deps.SkipCredential && (deps.ValidateCredential == nil || deps.Verify == nil)) {
		return AuthenticateDecision{Outcome: AuthOther, Identifier: fallbackID, Reason: "not_ready", Err: deps.Errors.EngineNotReady}
	}

	// Start → IdentifierValidated
	id, err := deps.ValidateIdentifier(ctx, rawIdentifier)
	if err != nil {
		return AuthenticateDecision{
			Outcome:    AuthIdentifierBadStructure,
			Identifier: fallbackID,
			Message:    msgIdentifierBad + ": " + err.Error(),
			Reason:     "identifier_invalid",
		}
	}

	// IdentifierValidated → LockoutChecked
	locked, err := deps.IsLocked(ctx, id)
	if err != nil {
		deps.Warn("credauth: lockout check failed", id, err)
		return AuthenticateDecision{Outcome: AuthOther, Identifier: id, Reason: "lockout_unavailable", Err: wrapUnless(err, deps.Errors.LockoutUnavailable)}
	}
	if locked {
		return AuthenticateDecision{Outcome: AuthLocked, Identifier: id, Reason: "lockout"}
	}

	// LockoutChecked → RecordFetched
	rec, err := deps.FetchRecord(ctx, id)
	if err != nil {
		deps.Warn("credauth: credential record fetch failed", id, err)
		return AuthenticateDecision{Outcome: AuthOther, Identifier: id, Reason: "store_unavailable", Err: wrapUnless(err, deps.Errors.StoreUnavailable)}
	}
	switch {
	case rec.Matches == 0:
		return AuthenticateDecision{Outcome: AuthIdentifierNotFound, Identifier: id, Reason: "not_found"}
	case rec.Matches != 1:
		err := fmt.Errorf("%w: %d records", deps.Errors.AmbiguousRecord, rec.Matches)
		deps.Warn("credauth: credential record count outside {0,1}", id, err)
		return AuthenticateDecision{Outcome: AuthOther, Identifier: id, Reason: "ambiguous_record", Err: err}
	}

	if deps.SkipCredential {
		return AuthenticateDecision{Outcome: AuthPassed, Identifier: id, Reason: "federated"}
	}

	if err := deps.ValidateCredential(credential); err != nil {
		return AuthenticateDecision{
			Outcome:    AuthCredentialBadStructure,
			Identifier: id,
			Message:    msgCredentialBad + ": " + err.Error(),
			Reason:     "credential_invalid",
		}
	}

	// RecordFetched → Compared
	if deps.Verify(rec.SaltSource, credential, rec.StoredHash) {
		return AuthenticateDecision{Outcome: AuthPassed, Identifier: id}
	}

	if deps.IncrementFailure != nil {
		if err := deps.IncrementFailure(ctx, id, msgFailedAttemptRecording); err != nil {
			deps.Warn("credauth: failed attempt could not be recorded", id, err)
			return AuthenticateDecision{Outcome: AuthOther, Identifier: id, Reason: "failure_unrecorded", Err: wrapUnless(err, deps.Errors.StoreUnavailable)}
		}
		deps.MetricInc(deps.Metrics.FailureRecorded)
	}

	return AuthenticateDecision{Outcome: AuthPasswordIncorrect, Identifier: id, Reason: "credential_mismatch"}
}

func wrapUnless(err, sentinel error) error {
	if sentinel == nil || errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func defaultMessage(o AuthOutcome) string {
	switch o {
	case AuthPassed:
		return msgPassed
	case AuthPasswordIncorrect:
		return msgPasswordIncorrect
	case AuthIdentifierNotFound:
		return msgIdentifierNotFound
	case AuthIdentifierBadStructure:
		return msgIdentifierBad
	case AuthCredentialBadStructure:
		return msgCredentialBad
	case AuthLocked:
		return msgLocked
	default:
		return msgOther
	}
}
