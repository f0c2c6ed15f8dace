// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_scribe"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Capture session metrics
	CapturesStarted     *prometheus.CounterVec
	CapturesActive      prometheus.Gauge
	CaptureStartFailed  *prometheus.CounterVec
	CapturesEnded       *prometheus.CounterVec
	CaptureDuration     prometheus.Histogram
	UserInterruptions   *prometheus.CounterVec
	CaptureLimitReached *prometheus.CounterVec

	// Result merge metrics
	ResultsMerged    *prometheus.CounterVec
	ResultsDiscarded *prometheus.CounterVec
	RecognizerErrors *prometheus.CounterVec

	// Utterance publish metrics
	UtterancesCompleted prometheus.Counter
	UtterancesDropped   *prometheus.CounterVec

	// Gateway metrics
	ConnectionsTotal  prometheus.Counter
	ConnectionsActive prometheus.Gauge

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// gRPC stream metrics. Direction is inbound for streams served by this
	// process and outbound for recognition streams it opens.
	StreamsTotal   *prometheus.CounterVec
	StreamsActive  *prometheus.GaugeVec
	StreamDuration *prometheus.HistogramVec
	StreamsFailed  *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		CapturesStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_started_total",
			Help:      "Total number of dictation capture sessions started",
		}, []string{"language", "mode"}),
		CapturesActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "captures_active",
			Help:      "Number of currently active capture sessions",
		}),
		CaptureStartFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_start_failed_total",
			Help:      "Total number of capture start requests rejected by the recognizer",
		}, []string{"reason"}),
		CapturesEnded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_ended_total",
			Help:      "Total number of capture sessions ended",
		}, []string{"reason"}),
		CaptureDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capture_duration_seconds",
			Help:      "Duration of capture sessions in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		UserInterruptions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_interruptions_total",
			Help:      "Total number of capture sessions stopped by direct buffer interaction",
		}, []string{"kind"}),
		CaptureLimitReached: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_limit_reached_total",
			Help:      "Total number of times capture limits were exceeded",
		}, []string{"limit_type"}),

		ResultsMerged: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_merged_total",
			Help:      "Total number of recognition results merged into a buffer",
		}, []string{"mode", "type"}),
		ResultsDiscarded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_discarded_total",
			Help:      "Total number of recognition results discarded",
		}, []string{"cause"}),
		RecognizerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognizer_errors_total",
			Help:      "Total number of recognizer errors surfaced to users",
		}, []string{"reason"}),

		UtterancesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_completed_total",
			Help:      "Total number of utterances published with a final transcript",
		}),
		UtterancesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_dropped_total",
			Help:      "Total number of utterances dropped without a final transcript",
		}, []string{"reason"}),

		ConnectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total number of dictation websocket connections",
		}),
		ConnectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of open dictation websocket connections",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		StreamsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_streams_total",
			Help:      "Total number of gRPC streams started",
		}, []string{"direction"}),
		StreamsActive: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "grpc_streams_active",
			Help:      "Number of currently active gRPC streams",
		}, []string{"direction"}),
		StreamDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_stream_duration_seconds",
			Help:      "Duration of gRPC streams in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 30, 60, 300},
		}, []string{"direction"}),
		StreamsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_streams_failed_total",
			Help:      "Total number of failed gRPC streams",
		}, []string{"direction"}),
	}
}

// RecordCaptureStarted records a capture session starting.
func (m *Metrics) RecordCaptureStarted(language, mode string) {
	m.CapturesStarted.WithLabelValues(language, mode).Inc()
	m.CapturesActive.Inc()
}

// RecordCaptureStartFailed records a start request rejected by the recognizer.
func (m *Metrics) RecordCaptureStartFailed(reason string) {
	m.CaptureStartFailed.WithLabelValues(reason).Inc()
}

// RecordCaptureEnded records a capture session ending.
func (m *Metrics) RecordCaptureEnded(reason string, durationSeconds float64) {
	m.CapturesActive.Dec()
	m.CapturesEnded.WithLabelValues(reason).Inc()
	m.CaptureDuration.Observe(durationSeconds)
}

// RecordUserInterruption records capture stopped by a buffer interaction.
func (m *Metrics) RecordUserInterruption(kind string) {
	m.UserInterruptions.WithLabelValues(kind).Inc()
}

// RecordLimitExceeded records when a capture limit is exceeded.
func (m *Metrics) RecordLimitExceeded(limitType string) {
	m.CaptureLimitReached.WithLabelValues(limitType).Inc()
}

// RecordResultMerged records a result applied to a buffer.
func (m *Metrics) RecordResultMerged(mode string, final bool) {
	resultType := "interim"
	if final {
		resultType = "final"
	}
	m.ResultsMerged.WithLabelValues(mode, resultType).Inc()
}

// RecordResultDiscarded records a result that was not applied.
func (m *Metrics) RecordResultDiscarded(cause string) {
	m.ResultsDiscarded.WithLabelValues(cause).Inc()
}

// RecordRecognizerError records a recognizer error.
func (m *Metrics) RecordRecognizerError(reason string) {
	m.RecognizerErrors.WithLabelValues(reason).Inc()
}

// RecordUtteranceCompleted records an utterance published with a final.
func (m *Metrics) RecordUtteranceCompleted() {
	m.UtterancesCompleted.Inc()
}

// RecordUtteranceDropped records an utterance dropped without a final.
func (m *Metrics) RecordUtteranceDropped(reason string) {
	m.UtterancesDropped.WithLabelValues(reason).Inc()
}

// RecordConnectionOpened records a gateway connection opening.
func (m *Metrics) RecordConnectionOpened() {
	m.ConnectionsTotal.Inc()
	m.ConnectionsActive.Inc()
}

// RecordConnectionClosed records a gateway connection closing.
func (m *Metrics) RecordConnectionClosed() {
	m.ConnectionsActive.Dec()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// Stream directions.
const (
	Inbound  = "inbound"
	Outbound = "outbound"
)

// RecordStreamStart records a new gRPC stream starting.
func (m *Metrics) RecordStreamStart(direction string) {
	m.StreamsTotal.WithLabelValues(direction).Inc()
	m.StreamsActive.WithLabelValues(direction).Inc()
}

// RecordStreamEnd records a gRPC stream ending.
func (m *Metrics) RecordStreamEnd(direction string, success bool, durationSeconds float64) {
	m.StreamsActive.WithLabelValues(direction).Dec()
	m.StreamDuration.WithLabelValues(direction).Observe(durationSeconds)
	if !success {
		m.StreamsFailed.WithLabelValues(direction).Inc()
	}
}
