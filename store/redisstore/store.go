package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/credauth"
	"github.com/MrEthical07/credauth/identifier"
	"github.com/MrEthical07/credauth/password"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix           = "ca"
	defaultAuditCap         = 256
	defaultFailureRetention = 24 * time.Hour

	fieldSalt = "salt"
	fieldHash = "hash"
)

var (
	// ErrRedisUnavailable wraps every Redis command failure. The underlying
	// cause, including context cancellation, stays visible to errors.Is.
	ErrRedisUnavailable = errors.New("credential redis unavailable")
	// ErrEmptyIdentifier is returned by Put and Enroll for a blank identifier.
	ErrEmptyIdentifier  = errors.New("identifier required")
)

// Config tunes key naming and retention.
type Config struct {
	Prefix string
	// AuditCap is the number of audit lines kept per identifier.
	AuditCap int64
	// FailureRetention bounds how long failed attempts are kept. It must
	// exceed the largest lockout window in use.
	FailureRetention time.Duration
}

// AuditLine is the JSON shape of one persisted audit entry.
type AuditLine struct {
	ID      string `json:"id"`
	At      int64  `json:"at"`
	Outcome string `json:"outcome"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var _ credauth.CredentialStore = (*Store)(nil)

// Store is a CredentialStore backed by Redis hashes, sorted sets and lists.
type Store struct {
	redis  redis.UniversalClient
	config Config
	now    func() time.Time
}

// New returns a Store over redisClient, filling zero Config fields with
// defaults.
func New(redisClient redis.UniversalClient, cfg Config) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.AuditCap <= 0 {
		cfg.AuditCap = defaultAuditCap
	}
	if cfg.FailureRetention <= 0 {
		cfg.FailureRetention = defaultFailureRetention
	}
	return &Store{
		redis:  redisClient,
		config: cfg,
		now:    time.Now,
	}
}

// WithClock replaces time.Now for failure scoring. It returns s.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) credKey(id string) string {
	return s.config.Prefix + ":cred:" + id
}

func (s *Store) failKey(id string) string {
	return s.config.Prefix + ":fail:" + id
}

func (s *Store) auditKey(id string) string {
	return s.config.Prefix + ":audit:" + id
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

// Put stores a precomputed record for id.
func (s *Store) Put(ctx context.Context, id, saltSource, storedHash string) error {
	id = identifier.Normalize(id)
	if id == "" {
		return ErrEmptyIdentifier
	}
	if err := s.redis.HSet(ctx, s.credKey(id), fieldSalt, saltSource, fieldHash, storedHash).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return nil
}

// Delete removes every key held for id.
func (s *Store) Delete(ctx context.Context, id string) error {
	id = identifier.Normalize(id)
	if err := s.redis.Del(ctx, s.credKey(id), s.failKey(id), s.auditKey(id)).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) FetchCredentialRecord(ctx context.Context, id string) (credauth.CredentialRecord, error) {
	fields, err := s.redis.HGetAll(ctx, s.credKey(id)).Result()
	if err != nil {
		return credauth.CredentialRecord{}, fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return credauth.CredentialRecord{}, nil
	}
	return credauth.CredentialRecord{
		Matches:    1,
		SaltSource: fields[fieldSalt],
		StoredHash: fields[fieldHash],
	}, nil
}

func (s *Store) CountRecentFailedAttempts(ctx context.Context, id string, window time.Duration) (int, error) {
	from := strconv.FormatInt(s.now().Add(-window).UnixMilli(), 10)
	n, err := s.redis.ZCount(ctx, s.failKey(id), "("+from, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return int(n), nil
}

func (s *Store) IncrementFailedAttempt(ctx context.Context, id, _ string) error {
	now := s.now()
	key := s.failKey(id)
	cutoff := strconv.FormatInt(now.Add(-s.config.FailureRetention).UnixMilli(), 10)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: uuid.NewString()})
		pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
		pipe.PExpire(ctx, key, s.config.FailureRetention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return nil
}

// ResetFailures clears the failed-attempt history for id.
func (s *Store) ResetFailures(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.failKey(identifier.Normalize(id))).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) RecordAuditEvent(ctx context.Context, id string, outcome credauth.Outcome, message string) error {
	line, err := json.Marshal(AuditLine{
		ID:      uuid.NewString(),
		At:      s.now().Unix(),
		Outcome: outcome.String(),
		Code:    outcome.Code(),
		Message: message,
	})
	if err != nil {
		return err
	}

	key := s.auditKey(id)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, line)
		pipe.LTrim(ctx, key, 0, s.config.AuditCap-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return nil
}

// AuditLines returns the stored audit lines for id, newest first.
func (s *Store) AuditLines(ctx context.Context, id string) ([]AuditLine, error) {
	raw, err := s.redis.LRange(ctx, s.auditKey(identifier.Normalize(id)), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	out := make([]AuditLine, 0, len(raw))
	for _, r := range raw {
		var line AuditLine
		if err := json.Unmarshal([]byte(r), &line); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}
