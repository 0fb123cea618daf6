package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// LockoutConfig holds the trailing window and the failed-attempt threshold.
type LockoutConfig struct {
	Window      time.Duration
	MaxAttempts int
}

var (
	// ErrLockoutUnavailable indicates the failed-attempt counter could not be read.
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")
)

// FailureCounter reports how many failed attempts were recorded against an
// identifier within the trailing window.
type FailureCounter interface {
	CountRecentFailedAttempts(ctx context.Context, identifier string, window time.Duration) (int, error)
}

// LockoutPolicy decides whether an identifier has exhausted its failed-attempt
// budget. It reads the counter on every call and caches nothing.
type LockoutPolicy struct {
	counter FailureCounter
	config  LockoutConfig
}

// NewLockoutPolicy creates a lockout policy over counter.
func NewLockoutPolicy(counter FailureCounter, cfg LockoutConfig) *LockoutPolicy {
	return &LockoutPolicy{counter: counter, config: cfg}
}

// IsLocked returns true iff the recent failure count is at or above
// MaxAttempts. A counter error is returned wrapped in ErrLockoutUnavailable
// and must never be read as "not locked".
func (p *LockoutPolicy) IsLocked(ctx context.Context, identifier string) (bool, error) {
	count, err := p.FailureCount(ctx, identifier)
	if err != nil {
		return false, err
	}
	return count >= p.config.MaxAttempts, nil
}

// FailureCount returns the current failure count for identifier.
func (p *LockoutPolicy) FailureCount(ctx context.Context, identifier string) (int, error) {
	if p == nil || p.counter == nil {
		return 0, fmt.Errorf("%w: no counter configured", ErrLockoutUnavailable)
	}

	count, err := p.counter.CountRecentFailedAttempts(ctx, identifier, p.config.Window)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLockoutUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return count, nil
}
