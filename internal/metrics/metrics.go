package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gobarber"

// Metrics holds the booking engine's counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	AppointmentsCreated  prometheus.Counter
	AppointmentsCanceled prometheus.Counter
	BookingRejections    *prometheus.CounterVec
	SideEffectFailures   *prometheus.CounterVec
	MailJobs             *prometheus.CounterVec
	RPCDuration          *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AppointmentsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_created_total",
			Help:      "Total number of appointments booked",
		}),
		AppointmentsCanceled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_canceled_total",
			Help:      "Total number of appointments canceled",
		}),
		BookingRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_rejections_total",
			Help:      "Create and cancel requests rejected by a precondition",
		}, []string{"reason"}),
		SideEffectFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Post-commit side effects that failed",
		}, []string{"effect"}),
		MailJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mail",
			Name:      "jobs_total",
			Help:      "Mail jobs handled by the worker, by outcome",
		}, []string{"outcome"}),
		RPCDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "request_duration_seconds",
			Help:      "Duration of unary RPCs",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "code"}),
	}
}

func (m *Metrics) Created() {
	if m == nil {
		return
	}
	m.AppointmentsCreated.Inc()
}

func (m *Metrics) Canceled() {
	if m == nil {
		return
	}
	m.AppointmentsCanceled.Inc()
}

func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.BookingRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) SideEffectFailed(effect string) {
	if m == nil {
		return
	}
	m.SideEffectFailures.WithLabelValues(effect).Inc()
}

func (m *Metrics) MailJob(outcome string) {
	if m == nil {
		return
	}
	m.MailJobs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRPC(method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.RPCDuration.WithLabelValues(method, code).Observe(d.Seconds())
}
