// Package metrics holds the Prometheus collectors of the banking service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "bank"

// Recorder owns a private registry so that tests and multiple app instances
// never collide on the global one.
type Recorder struct {
	registry *prometheus.Registry

	transfers         *prometheus.CounterVec
	transferAmount    prometheus.Histogram
	transferDuration  prometheus.Histogram
	selections        *prometheus.CounterVec
	selectionDuration prometheus.Histogram
	logins            *prometheus.CounterVec
	logouts           prometheus.Counter
	activeSessions    prometheus.Gauge
	registeredClients prometheus.Counter
	accountsCreated   prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "requests_total",
			Help:      "Transfer attempts by outcome.",
		}, []string{"outcome"}),
		transferAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "amount",
			Help:      "Amounts moved by successful transfers.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		transferDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "duration_seconds",
			Help:      "Time spent executing transfers.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "selections_total",
			Help:      "Recipient selections by outcome.",
		}, []string{"outcome"}),
		selectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "selection_duration_seconds",
			Help:      "Time spent selecting recipients.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logouts_total",
			Help:      "Completed logouts.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "active_sessions",
			Help:      "Open sessions, expired ones included until swept.",
		}),
		registeredClients: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clients",
			Name:      "registered_total",
			Help:      "Clients registered since start.",
		}),
		accountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounts",
			Name:      "created_total",
			Help:      "Accounts opened since start.",
		}),
	}

	r.registry.MustRegister(
		r.transfers,
		r.transferAmount,
		r.transferDuration,
		r.selections,
		r.selectionDuration,
		r.logins,
		r.logouts,
		r.activeSessions,
		r.registeredClients,
		r.accountsCreated,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return r
}

// Registry exposes the underlying registry, mostly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveTransfer records one transfer attempt. The amount is only recorded
// for successful transfers.
func (r *Recorder) ObserveTransfer(outcome string, amount decimal.Decimal, took time.Duration) {
	if r == nil {
		return
	}
	r.transfers.WithLabelValues(outcome).Inc()
	r.transferDuration.Observe(took.Seconds())
	if outcome == OutcomeSuccess {
		r.transferAmount.Observe(amount.InexactFloat64())
	}
}

// ObserveSelection records one recipient selection attempt.
func (r *Recorder) ObserveSelection(outcome string, took time.Duration) {
	if r == nil {
		return
	}
	r.selections.WithLabelValues(outcome).Inc()
	r.selectionDuration.Observe(took.Seconds())
}

// ObserveLogin records a login attempt.
func (r *Recorder) ObserveLogin(outcome string) {
	if r == nil {
		return
	}
	r.logins.WithLabelValues(outcome).Inc()
}

// ObserveLogout records a logout.
func (r *Recorder) ObserveLogout() {
	if r == nil {
		return
	}
	r.logouts.Inc()
}

// SetActiveSessions publishes the current session count.
func (r *Recorder) SetActiveSessions(n int) {
	if r == nil {
		return
	}
	r.activeSessions.Set(float64(n))
}

// ClientRegistered counts a new client.
func (r *Recorder) ClientRegistered() {
	if r == nil {
		return
	}
	r.registeredClients.Inc()
}

// AccountCreated counts a new account.
func (r *Recorder) AccountCreated() {
	if r == nil {
		return
	}
	r.accountsCreated.Inc()
}

// Outcome labels shared by the counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
