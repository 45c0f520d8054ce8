package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the Prometheus metrics shared by the queue and the agent client.
// A nil *Collector is valid and records nothing.
type Collector struct {
	queueDepth         *prometheus.GaugeVec
	inFlight           *prometheus.GaugeVec
	requestsTotal      *prometheus.CounterVec
	processingDuration *prometheus.HistogramVec
	waitDuration       *prometheus.HistogramVec

	agentAttemptsTotal   *prometheus.CounterVec
	agentRequestDuration *prometheus.HistogramVec

	telegramMessagesTotal *prometheus.CounterVec
}

// NewCollector creates a collector registered with the default registry
func NewCollector() *Collector {
	return NewCollectorWithRegistry(nil)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// If registry is nil, uses the default global registry
func NewCollectorWithRegistry(registry *prometheus.Registry) *Collector {
	var factory promauto.Factory
	if registry == nil {
		factory = promauto.With(prometheus.DefaultRegisterer)
	} else {
		factory = promauto.With(registry)
	}

	return &Collector{
		queueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ai_queue_depth",
				Help: "Number of requests waiting in the AI request queue",
			},
			[]string{"queue"},
		),

		inFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ai_queue_in_flight",
				Help: "Requests currently being processed (never above 1 per queue)",
			},
			[]string{"queue"},
		),

		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_queue_requests_total",
				Help: "Total number of queued requests by outcome",
			},
			[]string{"queue", "outcome"},
		),

		processingDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai_queue_processing_duration_seconds",
				Help:    "Time spent processing a dequeued request",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"queue", "outcome"},
		),

		waitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai_queue_wait_duration_seconds",
				Help:    "Time a request spent queued before processing started",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"queue"},
		),

		agentAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_attempts_total",
				Help: "Total number of outbound agent call attempts",
			},
			[]string{"agent", "result"},
		),

		agentRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_request_duration_seconds",
				Help:    "Duration of a single outbound agent call attempt",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"agent"},
		),

		telegramMessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telegram_messages_total",
				Help: "Telegram updates handled by the relay bot",
			},
			[]string{"kind", "status"},
		),
	}
}

// SetQueueDepth records the number of pending requests
func (m *Collector) SetQueueDepth(queue string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// ProcessingStarted marks one request as in flight
func (m *Collector) ProcessingStarted(queue string, waited time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(queue).Inc()
	m.waitDuration.WithLabelValues(queue).Observe(waited.Seconds())
}

// ProcessingFinished records the outcome of one request ("success", "error", "fallback", "closed")
func (m *Collector) ProcessingFinished(queue, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(queue).Dec()
	m.requestsTotal.WithLabelValues(queue, outcome).Inc()
	m.processingDuration.WithLabelValues(queue, outcome).Observe(duration.Seconds())
}

// RecordRejected counts requests that never reached processing
func (m *Collector) RecordRejected(queue string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(queue, "closed").Inc()
}

// RecordAgentAttempt records one outbound agent attempt
func (m *Collector) RecordAgentAttempt(agent, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.agentAttemptsTotal.WithLabelValues(agent, result).Inc()
	m.agentRequestDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

// RecordTelegramMessage records one handled Telegram update
func (m *Collector) RecordTelegramMessage(kind, status string) {
	if m == nil {
		return
	}
	m.telegramMessagesTotal.WithLabelValues(kind, status).Inc()
}
