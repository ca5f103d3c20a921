// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sign_landmark"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Capture session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionsEnded   *prometheus.CounterVec
	SessionDuration prometheus.Histogram
	SequenceLength  prometheus.Histogram
	CameraFailures  prometheus.Counter
	EmptyRecordings prometheus.Counter

	// Frame metrics
	FramesEncoded prometheus.Counter
	FramesDropped *prometheus.CounterVec
	HandsDropped  *prometheus.CounterVec
	EncodeLatency prometheus.Histogram

	// Backend metrics
	SubmissionsTotal  *prometheus.CounterVec
	SubmissionErrors  *prometheus.CounterVec
	SubmissionLatency *prometheus.HistogramVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// API metrics
	HTTPRequests     *prometheus.CounterVec
	HTTPLatency      *prometheus.HistogramVec
	ValidationErrors *prometheus.CounterVec
	PlaybackActive   prometheus.Gauge
	GRPCCalls        *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Capture session metrics
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_sessions_total",
			Help:      "Total number of capture sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capture_sessions_active",
			Help:      "Number of capture sessions counting down or recording",
		}),
		SessionsEnded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_sessions_ended_total",
			Help:      "Total number of capture sessions ended, by reason",
		}, []string{"reason"}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capture_session_duration_seconds",
			Help:      "Recording duration of capture sessions in seconds",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 10, 30},
		}),
		SequenceLength: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recorded_sequence_frames",
			Help:      "Number of frames in recorded sequences",
			Buckets:   []float64{10, 30, 60, 120, 180, 300, 600},
		}),
		CameraFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "camera_acquire_failures_total",
			Help:      "Total number of failed camera acquisitions",
		}),
		EmptyRecordings: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_recordings_total",
			Help:      "Total number of recordings in which no landmarks were detected",
		}),

		// Frame metrics
		FramesEncoded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_encoded_total",
			Help:      "Total number of frames encoded",
		}),
		FramesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Total number of frames replaced by a zero vector",
		}, []string{"reason"}),
		HandsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hands_dropped_total",
			Help:      "Total number of hand detections not written to the vector",
		}, []string{"reason"}),
		EncodeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_process_latency_seconds",
			Help:      "Time to read, detect and encode one frame",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.016, 0.033, 0.05, 0.1},
		}),

		// Backend metrics
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Total number of requests sent to the model-serving backend",
		}, []string{"kind"}),
		SubmissionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_errors_total",
			Help:      "Total number of failed backend requests",
		}, []string{"kind"}),
		SubmissionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_latency_seconds",
			Help:      "Backend request latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"kind"}),

		// Kafka publish metrics
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

		// API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP API requests",
		}, []string{"route", "code"}),
		HTTPLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP API request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"route"}),
		ValidationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_errors_total",
			Help:      "Total number of rejected landmark payloads",
		}, []string{"reason"}),
		PlaybackActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_streams_active",
			Help:      "Number of open playback websockets",
		}),
		GRPCCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_calls_total",
			Help:      "Total number of gRPC calls",
		}, []string{"method", "code"}),
	}
}

// RecordSessionStart records a capture session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a capture session leaving the recording states.
func (m *Metrics) RecordSessionEnd(reason string, frames int, durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionsEnded.WithLabelValues(reason).Inc()
	m.SessionDuration.Observe(durationSeconds)
	m.SequenceLength.Observe(float64(frames))
}

// RecordCameraFailure records a failed camera acquisition.
func (m *Metrics) RecordCameraFailure() {
	m.CameraFailures.Inc()
}

// RecordEmptyRecording records a recording with no detected landmarks.
func (m *Metrics) RecordEmptyRecording() {
	m.EmptyRecordings.Inc()
}

// RecordFrame records one processed frame.
func (m *Metrics) RecordFrame(latencySeconds float64) {
	m.FramesEncoded.Inc()
	m.EncodeLatency.Observe(latencySeconds)
}

// RecordFrameDropped records a frame replaced by a zero vector.
func (m *Metrics) RecordFrameDropped(reason string) {
	m.FramesDropped.WithLabelValues(reason).Inc()
}

// RecordHandsDropped records hand detections discarded by the encoder.
func (m *Metrics) RecordHandsDropped(reason string, n int) {
	if n > 0 {
		m.HandsDropped.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordSubmission records a backend request.
func (m *Metrics) RecordSubmission(kind string, err error, latencySeconds float64) {
	m.SubmissionsTotal.WithLabelValues(kind).Inc()
	m.SubmissionLatency.WithLabelValues(kind).Observe(latencySeconds)
	if err != nil {
		m.SubmissionErrors.WithLabelValues(kind).Inc()
	}
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordHTTPRequest records an HTTP API request.
func (m *Metrics) RecordHTTPRequest(route, code string, latencySeconds float64) {
	m.HTTPRequests.WithLabelValues(route, code).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(latencySeconds)
}

// RecordValidationError records a rejected landmark payload.
func (m *Metrics) RecordValidationError(reason string) {
	m.ValidationErrors.WithLabelValues(reason).Inc()
}

// RecordGRPCCall records a gRPC call.
func (m *Metrics) RecordGRPCCall(method, code string) {
	m.GRPCCalls.WithLabelValues(method, code).Inc()
}
