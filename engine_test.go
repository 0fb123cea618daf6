package credauth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/credauth/credential"
)

func TestAuthenticateShortEmailRejectedWithoutFetch(t *testing.T) {
	store := newFakeStore()
	resolver := newMXResolver()
	engine, err := New().
		WithConfig(testConfig()).
		WithCredentialStore(store).
		WithResolver(resolver).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	res, err := engine.Authenticate(context.Background(), "a@b.co", goodCredential, ModeDatabase)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeIdentifierBadStructure {
		t.Fatalf("expected identifier bad structure, got %s", res.Outcome)
	}
	if store.fetches.Load() != 0 {
		t.Fatal("store fetch must not be attempted")
	}
	assertSingleAudit(t, store, "a@b.co", OutcomeIdentifierBadStructure)
}

func TestAuthenticateMissingMXRejected(t *testing.T) {
	store := newFakeStore()
	engine := buildTestEngine(t, testConfig(), store)

	res, err := engine.Authenticate(context.Background(), "jdoe@nomail.example", goodCredential, ModeDatabase)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeIdentifierBadStructure {
		t.Fatalf("expected identifier bad structure, got %s", res.Outcome)
	}
	if store.fetches.Load() != 0 {
		t.Fatal("store fetch must not be attempted")
	}
}

func TestAuthenticatePassed(t *testing.T) {
	store := newFakeStore()
	store.enroll(t, testEmail, goodCredential)
	engine := buildTestEngine(t, testConfig(), store)

	res, err := engine.Authenticate(context.Background(), "  JDoe@Example.com ", goodCredential, ModeDatabase)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomePassed || !res.Outcome.Passed() {
		t.Fatalf("expected passed, got %s", res.Outcome)
	}
	if res.Identifier != testEmail {
		t.Fatalf("expected normalized identifier, got %q", res.Identifier)
	}
	assertSingleAudit(t, store, testEmail, OutcomePassed)
	if store.failureCount(testEmail) != 0 {
		t.Fatal("success must not count as a failure")
	}
}

func TestAuthenticateCredentialCaseSensitive(t *testing.T) {
	store := newFakeStore()
	store.enroll(t, testEmail, goodCredential)
	engine := buildTestEngine(t, testConfig(), store)

	// the credential is hashed as submitted, so case changes the derived hash
	res, _ := engine.Authenticate(context.Background(), testEmail, strings.ToUpper(goodCredential), ModeDatabase)
	if res.Outcome != OutcomePasswordIncorrect {
		t.Fatalf("expected password incorrect, got %s", res.Outcome)
	}
}

func TestAuthenticatePasswordIncorrectIsCounted(t *testing.T) {
	store := newFakeStore()
	store.enroll(t, testEmail, goodCredential)
	engine := buildTestEngine(t, testConfig(), store)

	res, err := engine.Authenticate(context.Background(), testEmail, wrongCredential, ModeDatabase)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomePasswordIncorrect {
		t.Fatalf("expected password incorrect, got %s", res.Outcome)
	}
	n, err := store.CountRecentFailedAttempts(context.Background(), testEmail, time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("expected one recorded failure, got %d (%v)", n, err)
	}
	assertSingleAudit(t, store, testEmail, OutcomePasswordIncorrect)
}

func TestAuthenticateLocksAfterMaxAttempts(t *testing.T) {
	store := newFakeStore()
	store.enroll(t, testEmail, goodCredential)
	engine := buildTestEngine(t, testConfig(), store)
	ctx := context.Background()

	for i := 0; i < DefaultLockoutMaxAttempts; i++ {
		res, _ := engine.Authenticate(ctx, testEmail, wrongCredential, ModeDatabase)
		if res.Outcome != OutcomePasswordIncorrect {
			t.Fatalf("attempt %d: expected password incorrect, got %s", i+1, res.Outcome)
		}
	}

	locked, err := engine.IsLocked(ctx, testEmail)
	if err != nil || !locked {
		t.Fatalf("expected locked, got %v (%v)", locked, err)
	}

	res, err := engine.Authenticate(ctx, testEmail, goodCredential, ModeDatabase)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeLocked {
		t.Fatalf("expected locked even with correct credential, got %s", res.Outcome)
	}
	if got := len(store.auditLines()); got != DefaultLockoutMaxAttempts+1 {
		t.Fatalf("expected one audit line per attempt, got %d", got)
	}
	if store.failureCount(testEmail) != DefaultLockoutMaxAttempts {
		t.Fatal("locked attempt must not add a failure")
	}
}

func TestAuthenticateLockoutBoundary(t *testing.T) {
	store := newFakeStore()
	store.enroll(t, testEmail, goodCredential)
	engine := buildTestEngine(t, testConfig(), store)

	store.failures[testEmail] = DefaultLockoutMaxAttempts - 1
	res, _ := engine.Authenticate(context.Background(), testEmail, goodCredential, ModeDatabase)
	if res.Outcome != OutcomePassed {
		t.Fatalf("count below threshold must not lock, got %s", res.Outcome)
	}
}

func TestAuthenticateIdentifierNotFound(t *testing.T) {
	store := newFakeStore()
	engine := buildTestEngine(t, testConfig(), store)

	res, err := engine.Authenticate(context.Background(), testEmail, goodCredential, ModeDatabase)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeIdentifierNotFound {
		t.Fatalf("expected not found, got %s", res.Outcome)
	}
	if store.failureCount(testEmail) != 0 {
		t.Fatal("not found must not count toward lockout")
	}
	assertSingleAudit(t, store, testEmail, OutcomeIdentifierNotFound)
}

func TestAuthenticateAmbiguousRecord(t *testing.T) {
	store := newFakeStore()
	store.enroll(t, testEmail, goodCredential)
	store.enroll(t, testEmail, goodCredential)
	engine := buildTestEngine(t, testConfig(), store)

	res, err := engine.Authenticate(context.Background(), testEmail, goodCredential, ModeDatabase)
	if res.Outcome != OutcomeOther {
		t.Fatalf("expected other, got %s", res.Outcome)
	}
	if !errors.Is(err, ErrAmbiguousRecord) {
		t.Fatalf("expected ErrAmbiguousRecord, got %v", err)
	}
	assertSingleAudit(t, store, testEmail, OutcomeOther)
}

func TestAuthenticateCredentialBadStructure(t *testing.T) {
	store := newFakeStore()
	store.enroll(t, testEmail, goodCredential)
	engine := buildTestEngine(t, testConfig(), store)

	for _, c := range []string{goodCredential[:127], goodCredential + "a", strings.Repeat("g", 128), ""} {
		store.audits = nil
		res, err := engine.Authenticate(context.Background(), testEmail, c, ModeDatabase)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Outcome != OutcomeCredentialBadStructure {
			t.Fatalf("len=%d: expected credential bad structure, got %s", len(c), res.Outcome)
		}
		assertSingleAudit(t, store, testEmail, OutcomeCredentialBadStructure)
	}
	if store.failureCount(testEmail) != 0 {
		t.Fatal("malformed credential must not count toward lockout")
	}
}

func TestAuthenticateFederated(t *testing.T) {
	store := newFakeStore()
	store.enroll(t, testHandle, "")
	engine := buildTestEngine(t, testConfig(), store)

	res, err := engine.Authenticate(context.Background(), "JDoe-2", "", ModeFederated)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomePassed {
		t.Fatalf("expected passed, got %s", res.Outcome)
	}

	res, _ = engine.Authenticate(context.Background(), "2jdoe", "", ModeFederated)
	if res.Outcome != OutcomeIdentifierBadStructure {
		t.Fatalf("expected identifier bad structure, got %s", res.Outcome)
	}

	res, _ = engine.Authenticate(context.Background(), "nobody", "", ModeFederated)
	if res.Outcome != OutcomeIdentifierNotFound {
		t.Fatalf("expected not found, got %s", res.Outcome)
	}
}

func TestAuthenticateInvalidMode(t *testing.T) {
	store := newFakeStore()
	engine := buildTestEngine(t, testConfig(), store)

	res, err := engine.Authenticate(context.Background(), testEmail, goodCredential, Mode(42))
	if res.Outcome != OutcomeOther || !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected other with ErrInvalidMode, got %s / %v", res.Outcome, err)
	}
	if store.fetches.Load() != 0 {
		t.Fatal("invalid mode must not reach the store")
	}
	assertSingleAudit(t, store, testEmail, OutcomeOther)
}

func TestAuthenticateStoreFailures(t *testing.T) {
	cases := []struct {
		name   string
		setup  func(*fakeStore)
		target error
	}{
		{name: "fetch", setup: func(s *fakeStore) { s.fetchErr = errBackend }, target: ErrStoreUnavailable},
		{name: "count", setup: func(s *fakeStore) { s.countErr = errBackend }, target: ErrLockoutUnavailable},
		{name: "increment", setup: func(s *fakeStore) { s.incrementErr = errBackend }, target: ErrStoreUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			store.enroll(t, testEmail, goodCredential)
			tc.setup(store)
			engine := buildTestEngine(t, testConfig(), store)

			res, err := engine.Authenticate(context.Background(), testEmail, wrongCredential, ModeDatabase)
			if res.Outcome != OutcomeOther {
				t.Fatalf("expected other, got %s", res.Outcome)
			}
			if !errors.Is(err, tc.target) || !errors.Is(err, errBackend) {
				t.Fatalf("expected %v wrapping backend error, got %v", tc.target, err)
			}
			assertSingleAudit(t, store, testEmail, OutcomeOther)
		})
	}
}

func TestAuthenticateAuditFailureKeepsOutcome(t *testing.T) {
	store := newFakeStore()
	store.enroll(t, testEmail, goodCredential)
	store.auditErr = errBackend

	logger, logs := newObservedLogger()
	engine, err := New().
		WithConfig(testConfig()).
		WithCredentialStore(store).
		WithResolver(newMXResolver("example.com")).
		WithLogger(logger).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	res, err := engine.Authenticate(context.Background(), testEmail, goodCredential, ModeDatabase)
	if err != nil || res.Outcome != OutcomePassed {
		t.Fatalf("audit failure must not change outcome, got %s / %v", res.Outcome, err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricAuditStoreFailure]; got != 1 {
		t.Fatalf("expected audit store failure metric 1, got %d", got)
	}
	if logs.FilterMessage("credauth: audit record write failed").Len() != 1 {
		t.Fatal("expected audit failure warning")
	}
}

func TestAuthenticateStoreTimeout(t *testing.T) {
	store := newFakeStore()
	store.block = true
	cfg := testConfig()
	cfg.StoreTimeout = 20 * time.Millisecond
	engine := buildTestEngine(t, cfg, store)

	start := time.Now()
	res, err := engine.Authenticate(context.Background(), testEmail, goodCredential, ModeDatabase)
	if res.Outcome != OutcomeOther {
		t.Fatalf("expected other, got %s", res.Outcome)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("attempt was not bounded by StoreTimeout")
	}
}

func TestAuthenticateNeverLogsCredential(t *testing.T) {
	store := newFakeStore()
	store.enroll(t, testEmail, goodCredential)
	store.auditErr = errBackend
	logger, logs := newObservedLogger()
	engine, err := New().
		WithConfig(testConfig()).
		WithCredentialStore(store).
		WithResolver(newMXResolver("example.com")).
		WithLogger(logger).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	_, _ = engine.Authenticate(context.Background(), testEmail, goodCredential, ModeDatabase)
	_, _ = engine.Authenticate(context.Background(), testEmail, wrongCredential, ModeDatabase)

	for _, entry := range logs.All() {
		for k, v := range entry.ContextMap() {
			if s, ok := v.(string); ok && (strings.Contains(s, goodCredential) || strings.Contains(s, wrongCredential)) {
				t.Fatalf("log field %q leaked the credential", k)
			}
		}
	}
	for _, line := range store.auditLines() {
		if strings.Contains(line.message, goodCredential) || strings.Contains(line.message, wrongCredential) {
			t.Fatal("audit message leaked the credential")
		}
	}
}

func TestValidateIdentifier(t *testing.T) {
	engine := buildTestEngine(t, testConfig(), newFakeStore())
	ctx := context.Background()

	cases := []struct {
		id   string
		mode Mode
		want bool
	}{
		{"jdoe-2", ModeFederated, true},
		{"2jdoe", ModeFederated, false},
		{"", ModeFederated, false},
		{"j.doe_3", ModeFederated, true},
		{testEmail, ModeDatabase, true},
		{"a@b.co", ModeDatabase, false},
		{"jdoe@nomail.example", ModeDatabase, false},
		{"jdoe", Mode(9), false},
	}
	for _, tc := range cases {
		for i := 0; i < 2; i++ {
			if got := engine.ValidateIdentifier(ctx, tc.id, tc.mode); got != tc.want {
				t.Fatalf("ValidateIdentifier(%q, %s) = %v, want %v", tc.id, tc.mode, got, tc.want)
			}
		}
	}
}

func TestValidateCredentialFormat(t *testing.T) {
	engine := buildTestEngine(t, testConfig(), newFakeStore())

	cases := []struct {
		c    string
		mode Mode
		want bool
	}{
		{goodCredential, ModeDatabase, true},
		{strings.ToUpper(goodCredential), ModeDatabase, true},
		{goodCredential[:127], ModeDatabase, false},
		{goodCredential + "0", ModeDatabase, false},
		{goodCredential[:127] + "z", ModeDatabase, false},
		{"", ModeFederated, true},
		{goodCredential, Mode(9), false},
	}
	for _, tc := range cases {
		for i := 0; i < 2; i++ {
			if got := engine.ValidateCredentialFormat(tc.c, tc.mode); got != tc.want {
				t.Fatalf("ValidateCredentialFormat(len=%d, %s) = %v, want %v", len(tc.c), tc.mode, got, tc.want)
			}
		}
	}
}

func TestLegacyCredentialRule(t *testing.T) {
	store := newFakeStore()
	store.enroll(t, testEmail, "Abc123!")
	cfg := testConfig()
	cfg.Credential.DatabaseFormat = credential.FormatLegacyComplexity
	engine := buildTestEngine(t, cfg, store)

	res, _ := engine.Authenticate(context.Background(), testEmail, "Abc123!", ModeDatabase)
	if res.Outcome != OutcomePassed {
		t.Fatalf("expected passed, got %s", res.Outcome)
	}
	res, _ = engine.Authenticate(context.Background(), testEmail, "abcdefg", ModeDatabase)
	if res.Outcome != OutcomeCredentialBadStructure {
		t.Fatalf("expected credential bad structure, got %s", res.Outcome)
	}
}

func TestNilEngine(t *testing.T) {
	var engine *Engine
	res, err := engine.Authenticate(context.Background(), testEmail, goodCredential, ModeDatabase)
	if res.Outcome != OutcomeOther || !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected not ready, got %s / %v", res.Outcome, err)
	}
	if engine.ValidateIdentifier(context.Background(), "jdoe", ModeFederated) {
		t.Fatal("nil engine must not validate")
	}
	if _, err := engine.IsLocked(context.Background(), "jdoe"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
	engine.Close()
	if engine.AuditDropped() != 0 {
		t.Fatal("nil engine reports no drops")
	}
}

func TestSecurityReport(t *testing.T) {
	engine := buildTestEngine(t, testConfig(), newFakeStore())
	r := engine.SecurityReport()
	if r.Digest != "sha512" || r.Iterations != testIterations {
		t.Fatalf("unexpected hasher report: %+v", r)
	}
	if r.LockoutMaxAttempts != DefaultLockoutMaxAttempts || r.LockoutWindow != DefaultLockoutWindow {
		t.Fatalf("unexpected lockout report: %+v", r)
	}
	if !r.ConstantTimeCompare || r.DatabaseFormat != "hex_digest" {
		t.Fatalf("unexpected report: %+v", r)
	}
}
