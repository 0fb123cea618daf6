// Package sqlstore implements credauth.CredentialStore on PostgreSQL through
// database/sql and the pgx stdlib driver. The schema is applied with goose
// from embedded migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/credauth"
	"github.com/MrEthical07/credauth/identifier"
	"github.com/MrEthical07/credauth/password"
	"github.com/MrEthical07/credauth/store/sqlstore/migrations"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// ErrEmptyIdentifier is returned by Put and Enroll for a blank identifier.
var ErrEmptyIdentifier = errors.New("identifier required")

// DBTX is the subset of database/sql used by the store. Both *sql.DB and
// *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ credauth.CredentialStore = (*Store)(nil)

// Store is a CredentialStore over a credentials, failed_attempts and
// audit_log schema. It is safe for concurrent use when db is.
type Store struct {
	db  DBTX
	now func() time.Time
}

// New returns a Store over db. The schema must already be migrated.
func New(db DBTX) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock replaces time.Now. It returns s.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Open connects to PostgreSQL through pgx and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

// Enroll derives and stores the verification hash for id under a fresh
// random salt source, returning the salt source.
func (s *Store) Enroll(ctx context.Context, id, credential string, stretcher *password.Stretcher) (string, error) {
	saltSource := uuid.NewString()
	if err := s.Put(ctx, id, saltSource, stretcher.Derive(saltSource, credential)); err != nil {
		return "", err
	}
	return saltSource, nil
}

// Put stores the credential row for id, replacing any existing row so that
// re-enrollment keeps exactly one record per identifier.
func (s *Store) Put(ctx context.Context, id, saltSource, storedHash string) error {
	id = identifier.Normalize(id)
	if id == "" {
		return ErrEmptyIdentifier
	}

	query :=
		`INSERT INTO credentials (identifier, salt_source, stored_hash)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (identifier) DO UPDATE
		 SET salt_source = EXCLUDED.salt_source, stored_hash = EXCLUDED.stored_hash`

	if _, err := s.db.ExecContext(ctx, query, id, saltSource, storedHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FetchCredentialRecord reads every row for id so that duplicates surface as
// Matches > 1.
func (s *Store) FetchCredentialRecord(ctx context.Context, id string) (credauth.CredentialRecord, error) {
	query :=
		`SELECT salt_source, stored_hash FROM credentials
		 WHERE identifier = $1`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return credauth.CredentialRecord{}, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var rec credauth.CredentialRecord
	for rows.Next() {
		var salt, hash string
		if err := rows.Scan(&salt, &hash); err != nil {
			return credauth.CredentialRecord{}, fmt.Errorf("db error: %w", err)
		}
		rec.Matches++
		if rec.Matches == 1 {
			rec.SaltSource, rec.StoredHash = salt, hash
		} else {
			rec.SaltSource, rec.StoredHash = "", ""
		}
	}
	if err := rows.Err(); err != nil {
		return credauth.CredentialRecord{}, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (s *Store) CountRecentFailedAttempts(ctx context.Context, id string, window time.Duration) (int, error) {
	query :=
		`SELECT COUNT(*) FROM failed_attempts
		 WHERE identifier = $1 AND attempted_at > $2`

	var n int
	if err := s.db.QueryRowContext(ctx, query, id, s.now().Add(-window)).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (s *Store) IncrementFailedAttempt(ctx context.Context, id, message string) error {
	query :=
		`INSERT INTO failed_attempts (identifier, message, attempted_at)
		 VALUES ($1, $2, $3)`

	if _, err := s.db.ExecContext(ctx, query, id, message, s.now()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) RecordAuditEvent(ctx context.Context, id string, outcome credauth.Outcome, message string) error {
	query :=
		`INSERT INTO audit_log (identifier, outcome, outcome_code, message, recorded_at)
		 VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.db.ExecContext(ctx, query, id, outcome.String(), outcome.Code(), message, s.now()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ResetFailures deletes the failed-attempt history for id.
func (s *Store) ResetFailures(ctx context.Context, id string) error {
	query := `DELETE FROM failed_attempts WHERE identifier = $1`

	if _, err := s.db.ExecContext(ctx, query, identifier.Normalize(id)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
