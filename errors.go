package credauth

import (
	"errors"

	"github.com/MrEthical07/credauth/internal/limiters"
)

var (
	// ErrStoreUnavailable wraps credential store failures on the decision path.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrAmbiguousRecord is returned when the store reports a record count
	// other than zero or one for an identifier.
	ErrAmbiguousRecord = errors.New("ambiguous credential record")
	// ErrLockoutUnavailable is returned when the failed-attempt count cannot
	// be read. The attempt is never treated as unlocked.
	ErrLockoutUnavailable = limiters.ErrLockoutUnavailable
	// ErrInvalidMode is returned for a Mode outside the defined set.
	ErrInvalidMode = errors.New("invalid authentication mode")
	// ErrEngineNotReady is returned when the Engine was not built through Builder.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrStoreRequired is returned by Build when no CredentialStore was provided.
	ErrStoreRequired = errors.New("credential store required")
	// ErrBuilderUsed is returned when Build is called twice on one Builder.
	ErrBuilderUsed = errors.New("builder already used")
)
