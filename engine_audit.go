package credauth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/credauth/internal/audit"
	"github.com/MrEthical07/credauth/internal/flows"
	"github.com/google/uuid"
)

const (
	auditEventAuthPassed                 = "auth_passed"
	auditEventAuthPasswordIncorrect      = "auth_password_incorrect"
	auditEventAuthIdentifierNotFound     = "auth_identifier_not_found"
	auditEventAuthIdentifierBadStructure = "auth_identifier_bad_structure"
	auditEventAuthCredentialBadStructure = "auth_credential_bad_structure"
	auditEventAuthLocked                 = "auth_locked"
	auditEventAuthOther                  = "auth_other"
)

// auditCode is the stable error tag carried by structured audit events.
type auditCode string

const (
	auditErrStoreUnavailable   auditCode = "store_unavailable"
	auditErrAmbiguousRecord    auditCode = "ambiguous_record"
	auditErrLockoutUnavailable auditCode = "lockout_unavailable"
	auditErrInvalidMode        auditCode = "invalid_mode"
	auditErrNotReady           auditCode = "engine_not_ready"
	auditErrTimeout            auditCode = "timeout"
	auditErrInternal           auditCode = "internal_error"
)

func auditEventType(o Outcome) string {
	switch o {
	case OutcomePassed:
		return auditEventAuthPassed
	case OutcomePasswordIncorrect:
		return auditEventAuthPasswordIncorrect
	case OutcomeIdentifierNotFound:
		return auditEventAuthIdentifierNotFound
	case OutcomeIdentifierBadStructure:
		return auditEventAuthIdentifierBadStructure
	case OutcomeCredentialBadStructure:
		return auditEventAuthCredentialBadStructure
	case OutcomeLocked:
		return auditEventAuthLocked
	default:
		return auditEventAuthOther
	}
}

func (e *Engine) emitAudit(ctx context.Context, mode Mode, d flows.AuthenticateDecision) {
	if e == nil || e.audit == nil {
		return
	}

	outcome := Outcome(d.Outcome)
	event := audit.Event{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		EventType:  auditEventType(outcome),
		Identifier: d.Identifier,
		Mode:       mode.String(),
		Outcome:    outcome.String(),
		Code:       outcome.Code(),
		IP:         clientIPFromContext(ctx),
		RequestID:  requestIDFromContext(ctx),
		Success:    outcome.Passed(),
	}
	if code := auditErrorCode(d.Err); code != "" {
		event.Error = string(code)
	}
	if d.Reason != "" {
		event.Metadata = map[string]string{
			"reason": d.Reason,
		}
	}
	if mode == ModeDatabase && e.stretcher != nil {
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		event.Metadata["digest"] = string(e.stretcher.Digest())
		event.Metadata["iterations"] = strconv.Itoa(e.stretcher.Iterations())
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) auditCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return auditErrTimeout
	case errors.Is(err, ErrLockoutUnavailable):
		return auditErrLockoutUnavailable
	case errors.Is(err, ErrAmbiguousRecord):
		return auditErrAmbiguousRecord
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrStoreUnavailable
	case errors.Is(err, ErrInvalidMode):
		return auditErrInvalidMode
	case errors.Is(err, ErrEngineNotReady):
		return auditErrNotReady
	default:
		return auditErrInternal
	}
}
