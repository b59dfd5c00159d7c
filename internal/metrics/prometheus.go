package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the TPMS radio service
type Metrics struct {
	// UDP ingest metrics
	DescriptorsReceived prometheus.Counter
	DescriptorsParsed   prometheus.Counter
	ParseErrors         prometheus.Counter
	QueueSize           prometheus.Gauge

	// Decode metrics
	FramesDecoded  *prometheus.CounterVec
	FrameSize      prometheus.Histogram
	SignalStrength prometheus.Histogram

	// Session metrics
	ReadingsRecorded prometheus.Counter
	SessionReadings  prometheus.Gauge

	// Export metrics
	Exports       *prometheus.CounterVec
	ExportErrors  *prometheus.CounterVec
	ExportLatency prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// UDP ingest metrics
		DescriptorsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tpms_descriptors_received_total",
			Help: "Total number of frame descriptors received over UDP",
		}),
		DescriptorsParsed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tpms_descriptors_parsed_total",
			Help: "Total number of frame descriptors successfully parsed",
		}),
		ParseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tpms_parse_errors_total",
			Help: "Total number of descriptor parsing errors",
		}),
		QueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tpms_packet_queue_size",
			Help: "Current number of descriptors in the processing queue",
		}),

		// Decode metrics
		FramesDecoded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tpms_frames_decoded_total",
			Help: "Total number of frames decoded, by protocol label",
		}, []string{"protocol"}),
		FrameSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tpms_frame_size_bytes",
			Help:    "Size of received raw frames in bytes",
			Buckets: prometheus.ExponentialBuckets(4, 2, 8), // 4B to 512B
		}),
		SignalStrength: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tpms_frame_rssi_dbm",
			Help:    "RSSI of received frames in dBm",
			Buckets: prometheus.LinearBuckets(-120, 10, 13), // -120 to 0 dBm
		}),

		// Session metrics
		ReadingsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tpms_readings_recorded_total",
			Help: "Total number of readings appended to the session",
		}),
		SessionReadings: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tpms_session_readings",
			Help: "Current number of readings held by the session recorder",
		}),

		// Export metrics
		Exports: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tpms_exports_total",
			Help: "Total number of session exports, by format",
		}, []string{"format"}),
		ExportErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tpms_export_errors_total",
			Help: "Total number of failed session exports, by format",
		}, []string{"format"}),
		ExportLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tpms_export_duration_seconds",
			Help:    "Duration of session export operations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tpms_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tpms_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tpms_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordDescriptorReceived increments the descriptors received counter
func (m *Metrics) RecordDescriptorReceived() {
	m.DescriptorsReceived.Inc()
}

// RecordDescriptorParsed increments the descriptors parsed counter
func (m *Metrics) RecordDescriptorParsed() {
	m.DescriptorsParsed.Inc()
}

// RecordParseError increments the parse errors counter
func (m *Metrics) RecordParseError() {
	m.ParseErrors.Inc()
}

// SetQueueSize sets the current queue size
func (m *Metrics) SetQueueSize(size int) {
	m.QueueSize.Set(float64(size))
}

// RecordFrameDecoded records one decoded frame with its protocol label,
// raw size, and signal strength.
func (m *Metrics) RecordFrameDecoded(protocol string, frameSize, rssi int) {
	m.FramesDecoded.WithLabelValues(protocol).Inc()
	m.FrameSize.Observe(float64(frameSize))
	if rssi != 0 {
		m.SignalStrength.Observe(float64(rssi))
	}
}

// RecordReading increments the recorded readings counter and updates the
// session size gauge.
func (m *Metrics) RecordReading(sessionSize int) {
	m.ReadingsRecorded.Inc()
	m.SessionReadings.Set(float64(sessionSize))
}

// RecordExport records a completed export for one format
func (m *Metrics) RecordExport(format string, durationSeconds float64) {
	m.Exports.WithLabelValues(format).Inc()
	m.ExportLatency.Observe(durationSeconds)
}

// RecordExportError records a failed export for one format
func (m *Metrics) RecordExportError(format string) {
	m.ExportErrors.WithLabelValues(format).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
