package credauth

import "github.com/MrEthical07/credauth/internal/metrics"

// MetricID identifies one engine counter or histogram.
type MetricID = metrics.ID

// Outcome counters, one per Outcome.
const (
	MetricAuthPassed                 = metrics.AuthPassed
	MetricAuthPasswordIncorrect      = metrics.AuthPasswordIncorrect
	MetricAuthIdentifierNotFound     = metrics.AuthIdentifierNotFound
	MetricAuthIdentifierBadStructure = metrics.AuthIdentifierBadStructure
	MetricAuthCredentialBadStructure = metrics.AuthCredentialBadStructure
	MetricAuthLocked                 = metrics.AuthLocked
	MetricAuthOther                  = metrics.AuthOther
	// MetricAuditStoreFailure counts audit lines the credential store failed
	// to persist.
	MetricAuditStoreFailure = metrics.AuditStoreFailure
	// MetricFailedAttemptRecorded counts failed attempts persisted for lockout.
	MetricFailedAttemptRecorded = metrics.FailedAttemptRecorded
	// MetricAuthenticateLatency is the Authenticate latency histogram.
	MetricAuthenticateLatency = metrics.AuthenticateLatency
)

// MetricsSnapshot is a point-in-time copy of engine metrics.
type MetricsSnapshot = metrics.Snapshot

// OutcomeMetric returns the counter incremented for o.
func OutcomeMetric(o Outcome) MetricID {
	switch o {
	case OutcomePassed:
		return MetricAuthPassed
	case OutcomePasswordIncorrect:
		return MetricAuthPasswordIncorrect
	case OutcomeIdentifierNotFound:
		return MetricAuthIdentifierNotFound
	case OutcomeIdentifierBadStructure:
		return MetricAuthIdentifierBadStructure
	case OutcomeCredentialBadStructure:
		return MetricAuthCredentialBadStructure
	case OutcomeLocked:
		return MetricAuthLocked
	default:
		return MetricAuthOther
	}
}
