package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of database operations",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "collection"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type", "detail"}, // database/auth/validation, short cause
	)

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"status", "type"}, // success/failure, login/refresh/2fa
	)

	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_decisions_total",
			Help: "Rate limiter decisions by limiter and outcome",
		},
		[]string{"limiter", "outcome"}, // login_bucket/api, allowed/denied
	)

	AccountLockouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "account_lockouts_total",
			Help: "Login attempts rejected because the account is locked",
		},
	)

	AccessDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_denied_total",
			Help: "Requests denied for lack of permission",
		},
		[]string{"permission"},
	)

	SessionTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_timeouts_total",
			Help: "Sessions ended by the idle monitor",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sessions_total",
			Help: "Sessions with a running idle monitor",
		},
	)

	AuditEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_total",
			Help: "Audit events by outcome",
		},
		[]string{"outcome"}, // written/dropped/failed
	)
)

// TrackDBOperation tracks database operation duration
func TrackDBOperation(operation, collection string) *prometheus.Timer {
	return prometheus.NewTimer(DBOperationDuration.WithLabelValues(operation, collection))
}

// TrackError increments the error counter
func TrackError(errorType, detail string) {
	ErrorsTotal.WithLabelValues(errorType, detail).Inc()
}

// TrackAuthAttempt records authentication attempts
func TrackAuthAttempt(status, authType string) {
	AuthAttempts.WithLabelValues(status, authType).Inc()
}

func TrackRateLimit(limiter string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	RateLimitDecisions.WithLabelValues(limiter, outcome).Inc()
}

func TrackLockout() {
	AccountLockouts.Inc()
}

func TrackAccessDenied(permission string) {
	AccessDenied.WithLabelValues(permission).Inc()
}

func TrackSessionTimeout() {
	SessionTimeouts.Inc()
}

// UpdateActiveSessions sets the current number of active sessions
func UpdateActiveSessions(count int) {
	ActiveSessions.Set(float64(count))
}

func TrackAuditEvent(outcome string) {
	AuditEvents.WithLabelValues(outcome).Inc()
}
