package credauth

import (
	"context"
	"time"
)

// Mode selects the authentication scheme in effect and, with it, the
// identifier and credential rules applied to an attempt.
type Mode int

const (
	// ModeDatabase authenticates against a locally stored verification hash.
	// Identifiers are email addresses; credentials are pre-hashed digests.
	ModeDatabase Mode = iota
	// ModeFederated trusts an upstream identity provider. Identifiers are
	// directory handles and no credential is checked.
	ModeFederated
)

// String returns the lower-case mode name.
func (m Mode) String() string {
	switch m {
	case ModeDatabase:
		return "database"
	case ModeFederated:
		return "federated"
	default:
		return "unknown"
	}
}

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeDatabase, ModeFederated:
		return true
	default:
		return false
	}
}

// Outcome is the terminal result of one authentication attempt. Its numeric
// value is the stable outcome code.
type Outcome int

// Outcome codes 0 through 6.
const (
	OutcomePassed Outcome = iota
	OutcomePasswordIncorrect
	OutcomeIdentifierNotFound
	OutcomeIdentifierBadStructure
	OutcomeCredentialBadStructure
	OutcomeLocked
	OutcomeOther
)

// Code returns the stable integer code for o.
func (o Outcome) Code() int {
	return int(o)
}

// Passed reports whether the attempt authenticated the caller.
func (o Outcome) Passed() bool {
	return o == OutcomePassed
}

func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomePasswordIncorrect:
		return "password_incorrect"
	case OutcomeIdentifierNotFound:
		return "identifier_not_found"
	case OutcomeIdentifierBadStructure:
		return "identifier_bad_structure"
	case OutcomeCredentialBadStructure:
		return "credential_bad_structure"
	case OutcomeLocked:
		return "locked"
	default:
		return "other"
	}
}

// Result describes one completed attempt.
type Result struct {
	Outcome Outcome
	// Identifier is the normalized identifier the attempt was recorded
	// against.
	Identifier string
	Mode       Mode
	// Reason is a short machine-readable tag explaining the outcome, for
	// example "lockout" or "ambiguous_record".
	Reason   string
	Duration time.Duration
}

// CredentialRecord is what the credential store knows about an identifier.
type CredentialRecord struct {
	// Matches is the number of stored records for the identifier. Only
	// exactly one match can authenticate.
	Matches    int
	SaltSource string
	StoredHash string
}

// CredentialStore supplies stored credential material and failed-attempt
// counts, and persists audit lines and failed attempts.
//
// Implementations must be safe for concurrent use. IncrementFailedAttempt
// must be atomic with respect to concurrent attempts on the same identifier.
type CredentialStore interface {
	FetchCredentialRecord(ctx context.Context, identifier string) (CredentialRecord, error)
	CountRecentFailedAttempts(ctx context.Context, identifier string, window time.Duration) (int, error)
	RecordAuditEvent(ctx context.Context, identifier string, outcome Outcome, message string) error
	IncrementFailedAttempt(ctx context.Context, identifier, message string) error
}
