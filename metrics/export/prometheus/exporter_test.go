package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/credauth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prometheus/common/expfmt"
)

type fakeSource struct {
	snapshot credauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() credauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

type nopStore struct{}

func (nopStore) FetchCredentialRecord(context.Context, string) (credauth.CredentialRecord, error) {
	return credauth.CredentialRecord{}, nil
}
func (nopStore) CountRecentFailedAttempts(context.Context, string, time.Duration) (int, error) {
	return 0, nil
}
func (nopStore) RecordAuditEvent(context.Context, string, credauth.Outcome, string) error { return nil }
func (nopStore) IncrementFailedAttempt(context.Context, string, string) error             { return nil }

func populated() fakeSource {
	return fakeSource{
		snapshot: credauth.MetricsSnapshot{
			Counters: map[credauth.MetricID]uint64{
				credauth.MetricAuthPassed: 7,
				credauth.MetricAuthLocked: 2,
			},
			Histograms: map[credauth.MetricID][]uint64{
				credauth.MetricAuthenticateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	}
}

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: credauth.MetricsSnapshot{
			Counters:   map[credauth.MetricID]uint64{},
			Histograms: map[credauth.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	out := NewExporterFromSource(populated()).Render()

	for _, want := range []string{
		"credauth_auth_passed_total 7",
		"credauth_auth_locked_total 2",
		"credauth_auth_other_total 0",
		`credauth_authenticate_latency_seconds_bucket{le="0.005"} 1`,
		`credauth_authenticate_latency_seconds_bucket{le="+Inf"} 36`,
		"credauth_authenticate_latency_seconds_count 36",
		"credauth_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestCollectorValues(t *testing.T) {
	exp := NewExporterFromSource(populated())

	// counters, one histogram, audit dropped
	if got := testutil.CollectAndCount(exp); got != 9+1+1 {
		t.Fatalf("collected %d metrics", got)
	}

	expected := `
# HELP credauth_auth_passed_total Authentications that passed.
# TYPE credauth_auth_passed_total counter
credauth_auth_passed_total 7
`
	if err := testutil.CollectAndCompare(exp, strings.NewReader(expected), "credauth_auth_passed_total"); err != nil {
		t.Fatal(err)
	}
}

func TestCollectorRegisters(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(NewExporterFromSource(populated())); err != nil {
		t.Fatalf("register: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var found bool
	for _, mf := range families {
		if mf.GetName() == "credauth_authenticate_latency_seconds" {
			found = true
			if got := mf.GetMetric()[0].GetHistogram().GetSampleCount(); got != 36 {
				t.Fatalf("sample count = %d", got)
			}
		}
	}
	if !found {
		t.Fatal("latency histogram missing")
	}
}

func TestRenderParsesAsExposition(t *testing.T) {
	out := NewExporterFromSource(populated()).Render()

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(out))
	if err != nil {
		t.Fatalf("render output does not parse: %v\n%s", err, out)
	}

	latency, ok := families["credauth_authenticate_latency_seconds"]
	if !ok {
		t.Fatalf("latency histogram missing:\n%s", out)
	}
	h := latency.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 36 {
		t.Fatalf("expected 36 samples, got %d", h.GetSampleCount())
	}
	buckets := h.GetBucket()
	if len(buckets) == 0 || buckets[0].GetUpperBound() != 0.005 || buckets[0].GetCumulativeCount() != 1 {
		t.Fatalf("unexpected first bucket: %v", buckets)
	}

	passed := families["credauth_auth_passed_total"]
	if passed == nil || passed.GetMetric()[0].GetCounter().GetValue() != 7 {
		t.Fatalf("unexpected passed counter: %v", passed)
	}
}

func TestRenderMatchesHandler(t *testing.T) {
	exp := NewExporterFromSource(populated())

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, line := range strings.Split(strings.TrimSpace(exp.Render()), "\n") {
		if !strings.Contains(body, line) {
			t.Fatalf("handler body missing rendered line %q", line)
		}
	}
}

func TestHandlerServesExposition(t *testing.T) {
	exp := NewExporterFromSource(populated())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(rec.Body.String(), "credauth_auth_passed_total 7") {
		t.Fatalf("body missing counter:\n%s", rec.Body.String())
	}
}

func TestExporterOverEngine(t *testing.T) {
	engine, err := credauth.New().
		WithCredentialStore(nopStore{}).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	_, _ = engine.Authenticate(t.Context(), "not an email", "", credauth.ModeDatabase)

	out := NewExporter(engine).Render()
	if !strings.Contains(out, "credauth_auth_identifier_bad_structure_total 1") {
		t.Fatalf("expected bad-structure count, got:\n%s", out)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewExporterFromSource(populated())

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
