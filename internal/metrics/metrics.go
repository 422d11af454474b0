package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vetflow"

// Collectors groups the client-side instruments. A nil *Collectors is valid
// and records nothing.
type Collectors struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Invalidations   prometheus.Counter
	SessionChanges  *prometheus.CounterVec
	PaymentChecks   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg when reg is non-nil.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Backend requests by method, route and status class.",
		}, []string{"method", "route", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Backend request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "invalidations_total",
			Help:      "Authorization rejections that cleared the session.",
		}),
		SessionChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session status transitions by target status.",
		}, []string{"status"}),
		PaymentChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "checks_total",
			Help:      "Finished payment confirmation checks by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(c.Requests, c.RequestDuration, c.Invalidations, c.SessionChanges, c.PaymentChecks)
	}
	return c
}

func (c *Collectors) ObserveRequest(method, route, code string, seconds float64) {
	if c == nil {
		return
	}
	c.Requests.WithLabelValues(method, route, code).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(seconds)
}

func (c *Collectors) Invalidated() {
	if c == nil {
		return
	}
	c.Invalidations.Inc()
}

func (c *Collectors) SessionTransition(status string) {
	if c == nil {
		return
	}
	c.SessionChanges.WithLabelValues(status).Inc()
}

func (c *Collectors) PaymentOutcome(outcome string) {
	if c == nil {
		return
	}
	c.PaymentChecks.WithLabelValues(outcome).Inc()
}
