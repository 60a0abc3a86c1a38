// Package metrics defines and registers all custom Prometheus metrics for the
// Campo Vagas platform. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "agrovagas"

// ── Authentication metrics ────────────────────────────────────────────────────

// SignInsTotal counts sign-in attempts.
// Label:
//   - result: "ok" or an error kind (e.g. "invalid_credentials", "no_role_assigned")
var SignInsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signins_total",
		Help:      "Total number of sign-in attempts, by result.",
	},
	[]string{"result"},
)

// SignUpsTotal counts signup attempts.
// Labels:
//   - role: the role chosen at signup
//   - result: "ok", "pending_confirmation" or an error kind
var SignUpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of signup attempts, by role and result.",
	},
	[]string{"role", "result"},
)

// SignupStepFailuresTotal counts signup steps that failed after the identity
// was created.
// Label:
//   - step: "role_assignment" or "profile"
var SignupStepFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signup_step_failures_total",
		Help:      "Total number of partial signups, by failed step.",
	},
	[]string{"step"},
)

// ── Role resolution metrics ───────────────────────────────────────────────────

// RoleResolutionsTotal counts role resolutions.
// Label:
//   - outcome: "fast_path", "resolved", "not_found" or "failed"
var RoleResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_resolutions_total",
		Help:      "Total number of role resolutions, by outcome.",
	},
	[]string{"outcome"},
)

// RoleLookupDuration measures the fallback role store lookup.
var RoleLookupDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "role_lookup_duration_seconds",
		Help:      "Duration of fallback role assignment lookups.",
		Buckets:   prometheus.DefBuckets,
	},
)

// StaleResolutionsTotal counts resolutions discarded because a newer one was
// started before they completed.
var StaleResolutionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_resolutions_total",
		Help:      "Total number of superseded session resolutions that were discarded.",
	},
)

// ── Gate metrics ──────────────────────────────────────────────────────────────

// GateDecisionsTotal counts authorization gate decisions.
// Labels:
//   - area: the area name (e.g. "jobs", "post-job")
//   - state: "allowed", "denied_unauthenticated" or "denied_wrong_role"
var GateDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gate_decisions_total",
		Help:      "Total number of authorization gate decisions, by area and state.",
	},
	[]string{"area", "state"},
)
