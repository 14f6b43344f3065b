package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meetingday/notifier/internal/domain/entity"
)

const namespace = "notifier"

// Metrics exports notification outcomes to prometheus. It satisfies service.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	dispatches    *prometheus.CounterVec
	channelSends  *prometheus.CounterVec
	ruleProcessed *prometheus.CounterVec
	sweepDuration *prometheus.HistogramVec
	sweepFailures *prometheus.CounterVec
	lastSweep     *prometheus.GaugeVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		dispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatches_total",
				Help:      "Notifications handled by the dispatcher by type and result",
			},
			[]string{"type", "result"},
		),
		channelSends: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "channel_sends_total",
				Help:      "Delivery attempts by channel (push|mail) and result",
			},
			[]string{"channel", "result"},
		),
		ruleProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_dispatched_total",
				Help:      "Notifications dispatched per rule",
			},
			[]string{"rule"},
		),
		sweepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sweep_duration_seconds",
				Help:      "Duration of notification sweeps",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"scope"},
		),
		sweepFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweep_failures_total",
				Help:      "Sweeps finished with at least one rule error",
			},
			[]string{"scope"},
		),
		lastSweep: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_sweep_timestamp_seconds",
				Help:      "Unix time of the last finished sweep",
			},
			[]string{"scope"},
		),
	}
}

func (m *Metrics) Dispatch(t entity.NotificationType, result string) {
	m.dispatches.WithLabelValues(t.String(), result).Inc()
}

func (m *Metrics) ChannelSend(channel, result string) {
	m.channelSends.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) RuleProcessed(rule string, count int) {
	m.ruleProcessed.WithLabelValues(rule).Add(float64(count))
}

func (m *Metrics) Sweep(scope string, elapsed time.Duration, err error) {
	m.sweepDuration.WithLabelValues(scope).Observe(elapsed.Seconds())
	if err != nil {
		m.sweepFailures.WithLabelValues(scope).Inc()
	}
	m.lastSweep.WithLabelValues(scope).SetToCurrentTime()
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
