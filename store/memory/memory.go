// Package memory is an in-process CredentialStore for tests, examples and
// single-node deployments.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/credauth"
	"github.com/MrEthical07/credauth/identifier"
	"github.com/MrEthical07/credauth/password"
	"github.com/google/uuid"
)

// ErrEmptyIdentifier is returned by Enroll for a blank identifier.
var ErrEmptyIdentifier = errors.New("memory: identifier required")

// AuditEntry is one persisted audit line.
type AuditEntry struct {
	Identifier string
	Outcome    credauth.Outcome
	Message    string
	At         time.Time
}

type credentialRow struct {
	saltSource string
	storedHash string
}

var _ credauth.CredentialStore = (*Store)(nil)

// Store keeps credential rows, failed-attempt timestamps and the audit log in
// memory behind a single mutex.
type Store struct {
	mu        sync.Mutex
	rows      map[string][]credentialRow
	failures  map[string][]time.Time
	audit     []AuditEntry
	now       func() time.Time
	retention time.Duration
}

// DefaultFailureRetention bounds how long failed-attempt timestamps are kept.
const DefaultFailureRetention = 24 * time.Hour

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithFailureRetention sets how long failed attempts are kept. Counts over a
// window longer than the retention see only the retained attempts.
func WithFailureRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		rows:      make(map[string][]credentialRow),
		failures:  make(map[string][]time.Time),
		now:       time.Now,
		retention: DefaultFailureRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enroll stores the verification hash for id under a fresh salt source and
// returns that salt source. The credential is hashed with stretcher and is
// not retained.
func (s *Store) Enroll(id, credential string, stretcher *password.Stretcher) (string, error) {
	saltSource := uuid.NewString()
	return saltSource, s.Put(id, saltSource, stretcher.Derive(saltSource, credential))
}

// Put stores a precomputed record for id, replacing existing rows.
func (s *Store) Put(id, saltSource, storedHash string) error {
	id = identifier.Normalize(id)
	if id == "" {
		return ErrEmptyIdentifier
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[id] = []credentialRow{{saltSource: saltSource, storedHash: storedHash}}
	return nil
}

// PutDuplicate appends an additional row for id so that fetches report more
// than one match.
func (s *Store) PutDuplicate(id, saltSource, storedHash string) {
	id = identifier.Normalize(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[id] = append(s.rows[id], credentialRow{saltSource: saltSource, storedHash: storedHash})
}

func (s *Store) FetchCredentialRecord(ctx context.Context, id string) (credauth.CredentialRecord, error) {
	if err := ctx.Err(); err != nil {
		return credauth.CredentialRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.rows[id]
	rec := credauth.CredentialRecord{Matches: len(rows)}
	if len(rows) == 1 {
		rec.SaltSource = rows[0].saltSource
		rec.StoredHash = rows[0].storedHash
	}
	return rec, nil
}

func (s *Store) CountRecentFailedAttempts(ctx context.Context, id string, window time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-window)
	n := 0
	for _, at := range s.failures[id] {
		if at.After(cutoff) {
			n++
		}
	}
	return n, nil
}

func (s *Store) RecordAuditEvent(ctx context.Context, id string, outcome credauth.Outcome, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.audit = append(s.audit, AuditEntry{
		Identifier: id,
		Outcome:    outcome,
		Message:    message,
		At:         s.now(),
	})
	return nil
}

func (s *Store) IncrementFailedAttempt(ctx context.Context, id, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-s.retention)
	history := s.failures[id]
	i := 0
	for i < len(history) && !history[i].After(cutoff) {
		i++
	}
	s.failures[id] = append(history[i:], now)
	return nil
}

// ResetFailures clears the failure history for id.
func (s *Store) ResetFailures(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.failures, identifier.Normalize(id))
}

// AuditLog returns a copy of every recorded audit entry in order.
func (s *Store) AuditLog() []AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}
