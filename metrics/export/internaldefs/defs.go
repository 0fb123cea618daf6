package internaldefs

import (
	"github.com/MrEthical07/credauth"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   credauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   credauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: credauth.MetricAuthPassed, Name: "credauth_auth_passed_total", Help: "Authentications that passed."},
	{ID: credauth.MetricAuthPasswordIncorrect, Name: "credauth_auth_password_incorrect_total", Help: "Authentications rejected for a wrong credential."},
	{ID: credauth.MetricAuthIdentifierNotFound, Name: "credauth_auth_identifier_not_found_total", Help: "Authentications for identifiers with no stored record."},
	{ID: credauth.MetricAuthIdentifierBadStructure, Name: "credauth_auth_identifier_bad_structure_total", Help: "Authentications rejected for a malformed identifier."},
	{ID: credauth.MetricAuthCredentialBadStructure, Name: "credauth_auth_credential_bad_structure_total", Help: "Authentications rejected for a malformed credential."},
	{ID: credauth.MetricAuthLocked, Name: "credauth_auth_locked_total", Help: "Authentications refused because the identifier is locked out."},
	{ID: credauth.MetricAuthOther, Name: "credauth_auth_other_total", Help: "Authentications that failed on a collaborator or configuration error."},
	{ID: credauth.MetricAuditStoreFailure, Name: "credauth_audit_store_failure_total", Help: "Audit lines the credential store failed to persist."},
	{ID: credauth.MetricFailedAttemptRecorded, Name: "credauth_failed_attempt_recorded_total", Help: "Failed attempts persisted for lockout."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: credauth.MetricAuthenticateLatency, Name: "credauth_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// AuditDroppedName is the counter for structured audit events dropped by the
// dispatcher.
const (
	AuditDroppedName = "credauth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the finite upper bounds of the latency buckets,
// in seconds. The eighth bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names every bucket, +Inf included, as metric-name
// safe text.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding or truncating to 8.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
