package credauth

import (
	"context"
	"time"
)

// timedStore bounds every CredentialStore call with a per-call deadline so
// that a stalled backend cannot hold an attempt open.
type timedStore struct {
	next    CredentialStore
	timeout time.Duration
}

func newTimedStore(next CredentialStore, timeout time.Duration) *timedStore {
	return &timedStore{next: next, timeout: timeout}
}

func (s *timedStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *timedStore) FetchCredentialRecord(ctx context.Context, identifier string) (CredentialRecord, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.next.FetchCredentialRecord(ctx, identifier)
}

func (s *timedStore) CountRecentFailedAttempts(ctx context.Context, identifier string, window time.Duration) (int, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.next.CountRecentFailedAttempts(ctx, identifier, window)
}

func (s *timedStore) RecordAuditEvent(ctx context.Context, identifier string, outcome Outcome, message string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.next.RecordAuditEvent(ctx, identifier, outcome, message)
}

func (s *timedStore) IncrementFailedAttempt(ctx context.Context, identifier, message string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.next.IncrementFailedAttempt(ctx, identifier, message)
}
