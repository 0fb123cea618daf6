package credauth

import "time"

// SecurityReport summarizes the effective security posture of an Engine.
type SecurityReport struct {
	Digest              string
	Iterations          int
	LockoutWindow       time.Duration
	LockoutMaxAttempts  int
	RequireMX           bool
	DatabaseFormat      string
	StoreTimeout        time.Duration
	ConstantTimeCompare bool
	AuditStreamEnabled  bool
	MetricsEnabled      bool
	LatencyHistogramsOn bool
}

// SecurityReport returns the effective settings of e. A nil Engine yields
// the zero report.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		Digest:              string(e.stretcher.Digest()),
		Iterations:          e.stretcher.Iterations(),
		LockoutWindow:       e.config.Lockout.Window,
		LockoutMaxAttempts:  e.config.Lockout.MaxAttempts,
		RequireMX:           e.config.Identifier.RequireMX,
		DatabaseFormat:      e.config.Credential.DatabaseFormat.String(),
		StoreTimeout:        e.config.StoreTimeout,
		ConstantTimeCompare: true,
		AuditStreamEnabled:  e.config.Audit.Enabled,
		MetricsEnabled:      e.config.Metrics.Enabled,
		LatencyHistogramsOn: e.config.Metrics.EnableLatencyHistograms,
	}
}
