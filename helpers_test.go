package credauth

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/credauth/password"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	testIterations = 16
	testSaltSource = "6f1c2b1e-8d0a-4c47-9a55-0e3c1d7b9f21"
	testEmail      = "jdoe@example.com"
	testHandle     = "jdoe-2"
)

var (
	goodCredential  = strings.Repeat("ab", 64)
	wrongCredential = strings.Repeat("cd", 64)
	errBackend      = errors.New("backend down")
)

type mxResolver struct {
	calls   atomic.Int32
	domains map[string]bool
}

func newMXResolver(domains ...string) *mxResolver {
	r := &mxResolver{domains: map[string]bool{}}
	for _, d := range domains {
		r.domains[d] = true
	}
	return r
}

func (r *mxResolver) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	r.calls.Add(1)
	if r.domains[name] {
		return []*net.MX{{Host: "mx." + name + ".", Pref: 10}}, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

type auditLine struct {
	identifier string
	outcome    Outcome
	message    string
}

type fakeStore struct {
	mu       sync.Mutex
	records  map[string][]CredentialRecord
	failures map[string]int
	audits   []auditLine
	fetches  atomic.Int32

	fetchErr     error
	countErr     error
	auditErr     error
	incrementErr error
	block        bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  map[string][]CredentialRecord{},
		failures: map[string]int{},
	}
}

func (s *fakeStore) enroll(t testing.TB, id, credential string) {
	t.Helper()
	hash, err := password.Derive(password.DigestSHA512, testSaltSource, credential, testIterations)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = append(s.records[id], CredentialRecord{SaltSource: testSaltSource, StoredHash: hash})
}

func (s *fakeStore) wait(ctx context.Context) error {
	if !s.block {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *fakeStore) FetchCredentialRecord(ctx context.Context, id string) (CredentialRecord, error) {
	s.fetches.Add(1)
	if err := s.wait(ctx); err != nil {
		return CredentialRecord{}, err
	}
	if s.fetchErr != nil {
		return CredentialRecord{}, s.fetchErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.records[id]
	rec := CredentialRecord{Matches: len(rows)}
	if len(rows) == 1 {
		rec.SaltSource = rows[0].SaltSource
		rec.StoredHash = rows[0].StoredHash
	}
	return rec, nil
}

func (s *fakeStore) CountRecentFailedAttempts(ctx context.Context, id string, _ time.Duration) (int, error) {
	if err := s.wait(ctx); err != nil {
		return 0, err
	}
	if s.countErr != nil {
		return 0, s.countErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[id], nil
}

func (s *fakeStore) RecordAuditEvent(_ context.Context, id string, outcome Outcome, message string) error {
	s.mu.Lock()
	s.audits = append(s.audits, auditLine{identifier: id, outcome: outcome, message: message})
	s.mu.Unlock()
	return s.auditErr
}

func (s *fakeStore) IncrementFailedAttempt(_ context.Context, id, _ string) error {
	if s.incrementErr != nil {
		return s.incrementErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[id]++
	return nil
}

func (s *fakeStore) auditLines() []auditLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auditLine, len(s.audits))
	copy(out, s.audits)
	return out
}

func (s *fakeStore) failureCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[id]
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Hasher.Iterations = testIterations
	cfg.StoreTimeout = time.Second
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func buildTestEngine(t testing.TB, cfg Config, store CredentialStore) *Engine {
	t.Helper()
	engine, err := New().
		WithConfig(cfg).
		WithCredentialStore(store).
		WithResolver(newMXResolver("example.com")).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func assertSingleAudit(t *testing.T, store *fakeStore, id string, outcome Outcome) {
	t.Helper()
	lines := store.auditLines()
	if len(lines) != 1 {
		t.Fatalf("expected exactly one audit line, got %d: %+v", len(lines), lines)
	}
	if lines[0].identifier != id || lines[0].outcome != outcome {
		t.Fatalf("unexpected audit line %+v, want %q/%s", lines[0], id, outcome)
	}
}
