package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "antinuke"

// Skip reasons reported on events that never reached a counter.
const (
	SkipDisabled     = "disabled"
	SkipConfig       = "config_unavailable"
	SkipUnattributed = "unattributed"
	SkipExempt       = "exempt"
	SkipCounter      = "counter_error"
)

// Registry groups the engine's collectors. A nil *Registry is valid and
// records nothing.
type Registry struct {
	eventsEvaluated  *prometheus.CounterVec
	eventsSkipped    *prometheus.CounterVec
	breaches         *prometheus.CounterVec
	punishments      *prometheus.CounterVec
	undoActions      *prometheus.CounterVec
	raidEjections    *prometheus.CounterVec
	reportsSent      prometheus.Counter
	reportFailures   prometheus.Counter
	auditFetches     *prometheus.CounterVec
	evaluateDuration *prometheus.HistogramVec
}

func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		eventsEvaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Administrative events received by category",
		}, []string{"category"}),
		eventsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_skipped_total",
			Help:      "Events dropped before counting, by category and reason",
		}, []string{"category", "reason"}),
		breaches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaches_total",
			Help:      "Threshold breaches by category",
		}, []string{"category"}),
		punishments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "punishments_total",
			Help:      "Punishment attempts by policy and outcome",
		}, []string{"policy", "outcome"}),
		undoActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undo_actions_total",
			Help:      "Reverted create actions by category and outcome",
		}, []string{"category", "outcome"}),
		raidEjections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "raid_ejections_total",
			Help:      "Members kicked during a join burst, by outcome",
		}, []string{"outcome"}),
		reportsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incident_reports_total",
			Help:      "Incident records delivered to a log channel",
		}),
		reportFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incident_report_failures_total",
			Help:      "Incident records that could not be delivered",
		}),
		auditFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_fetches_total",
			Help:      "Audit log lookups by result",
		}, []string{"result"}),
		evaluateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluate_duration_seconds",
			Help:      "Time from event receipt to handler completion",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"category"}),
	}

	if reg != nil {
		reg.MustRegister(
			r.eventsEvaluated,
			r.eventsSkipped,
			r.breaches,
			r.punishments,
			r.undoActions,
			r.raidEjections,
			r.reportsSent,
			r.reportFailures,
			r.auditFetches,
			r.evaluateDuration,
		)
	}
	return r
}

func (r *Registry) EventReceived(category string) {
	if r == nil {
		return
	}
	r.eventsEvaluated.WithLabelValues(category).Inc()
}

func (r *Registry) EventSkipped(category, reason string) {
	if r == nil {
		return
	}
	r.eventsSkipped.WithLabelValues(category, reason).Inc()
}

func (r *Registry) Breach(category string) {
	if r == nil {
		return
	}
	r.breaches.WithLabelValues(category).Inc()
}

func (r *Registry) Punishment(policy, outcome string) {
	if r == nil {
		return
	}
	r.punishments.WithLabelValues(policy, outcome).Inc()
}

func (r *Registry) Undo(category, outcome string) {
	if r == nil {
		return
	}
	r.undoActions.WithLabelValues(category, outcome).Inc()
}

func (r *Registry) RaidEjection(outcome string) {
	if r == nil {
		return
	}
	r.raidEjections.WithLabelValues(outcome).Inc()
}

func (r *Registry) ReportSent() {
	if r == nil {
		return
	}
	r.reportsSent.Inc()
}

func (r *Registry) ReportFailed() {
	if r == nil {
		return
	}
	r.reportFailures.Inc()
}

func (r *Registry) AuditFetch(result string) {
	if r == nil {
		return
	}
	r.auditFetches.WithLabelValues(result).Inc()
}

func (r *Registry) ObserveEvaluate(category string, d time.Duration) {
	if r == nil {
		return
	}
	r.evaluateDuration.WithLabelValues(category).Observe(d.Seconds())
}
