package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrmagicbg/tpms-radio-service/internal/config"
	"github.com/mrmagicbg/tpms-radio-service/internal/metrics"
	"github.com/mrmagicbg/tpms-radio-service/internal/protocol"
	"github.com/mrmagicbg/tpms-radio-service/internal/session"
)

// HTTPServer provides HTTP API endpoints for monitoring and session inspection
type HTTPServer struct {
	server      *http.Server
	logger      *slog.Logger
	config      *config.Config
	recorder    *session.Recorder
	recorderMu  *sync.Mutex
	frameServer *FrameServer
	metrics     *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger, appConfig *config.Config,
	recorder *session.Recorder, recorderMu *sync.Mutex, frameServer *FrameServer, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:      logger,
		config:      appConfig,
		recorder:    recorder,
		recorderMu:  recorderMu,
		frameServer: frameServer,
		metrics:     m,
		startTime:   time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Session monitoring endpoints
	mux.HandleFunc("/session", h.withMetrics("/session", h.handleSession))
	mux.HandleFunc("/readings", h.withMetrics("/readings", h.handleReadings))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Response writer wrapper to capture the status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	serverStats := h.frameServer.GetStatistics()

	h.recorderMu.Lock()
	readingCount := h.recorder.ReadingCount()
	sessionName := h.recorder.SessionName()
	h.recorderMu.Unlock()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "tpms-radio-service",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"frame_server": map[string]interface{}{
				"status":            "running",
				"packets_received":  serverStats.PacketsReceived,
				"packets_processed": serverStats.PacketsProcessed,
				"parse_errors":      serverStats.ParseErrors,
				"queue_size":        serverStats.QueueSize,
			},
			"session": map[string]interface{}{
				"status":   "recording",
				"name":     sessionName,
				"readings": readingCount,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleSession implements the /session endpoint
func (h *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.recorderMu.Lock()
	info := h.recorder.Info()
	summary := h.recorder.Summary()
	h.recorderMu.Unlock()

	response := map[string]interface{}{
		"session":   info,
		"summary":   summary,
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleReadings implements the /readings endpoint. An optional limit query
// parameter returns only the most recent N readings.
func (h *HTTPServer) handleReadings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	h.recorderMu.Lock()
	readings := h.recorder.Readings()
	h.recorderMu.Unlock()

	total := len(readings)
	if limit > 0 && limit < total {
		readings = readings[total-limit:]
	}

	response := map[string]interface{}{
		"total_readings": total,
		"returned":       len(readings),
		"timestamp":      time.Now().UTC(),
		"readings":       readingViews(readings),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// readingView is the JSON shape of a single reading in API responses
type readingView struct {
	Timestamp    time.Time `json:"timestamp"`
	SensorID     string    `json:"sensor_id"`
	PressurePSI  *float64  `json:"pressure_psi"`
	PressureKPa  *float64  `json:"pressure_kpa"`
	TemperatureC *float64  `json:"temperature_c"`
	BatteryLow   *bool     `json:"battery_low"`
	RSSI         int       `json:"rssi"`
	LQI          int       `json:"lqi"`
	Protocol     string    `json:"protocol"`
	Supplier     string    `json:"supplier,omitempty"`
	Status       string    `json:"pressure_status"`
	RawHex       string    `json:"raw_hex"`
}

func readingViews(readings []*protocol.Reading) []readingView {
	views := make([]readingView, 0, len(readings))
	for _, reading := range readings {
		views = append(views, readingView{
			Timestamp:    reading.Timestamp,
			SensorID:     reading.SensorID,
			PressurePSI:  reading.PressurePSI,
			PressureKPa:  reading.PressureKPa,
			TemperatureC: reading.TemperatureC,
			BatteryLow:   reading.BatteryLow,
			RSSI:         reading.RSSI,
			LQI:          reading.LQI,
			Protocol:     reading.Protocol,
			Supplier:     reading.Supplier,
			Status:       reading.PressureStatus(),
			RawHex:       reading.RawHex,
		})
	}
	return views
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sanitizedConfig := map[string]interface{}{
		"server": map[string]interface{}{
			"udp_port":     h.config.Server.UDPPort,
			"bind_address": h.config.Server.BindAddress,
			"buffer_size":  h.config.Server.BufferSize,
			"queue_size":   h.config.Server.QueueSize,
		},
		"export": map[string]interface{}{
			"log_dir":   h.config.Export.LogDir,
			"overwrite": h.config.Export.Overwrite,
			"interval":  h.config.Export.Interval,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	serverStats := h.frameServer.GetStatistics()
	uptime := time.Since(h.startTime)

	h.recorderMu.Lock()
	summary := h.recorder.Summary()
	h.recorderMu.Unlock()

	stats := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
		"udp": map[string]interface{}{
			"packets_received":  serverStats.PacketsReceived,
			"packets_processed": serverStats.PacketsProcessed,
			"parse_errors":      serverStats.ParseErrors,
			"queue_size":        serverStats.QueueSize,
			"queue_capacity":    serverStats.QueueCapacity,
		},
		"session": summary,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "TPMS Radio Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":                 "API documentation",
			"GET /health":           "Service health check",
			"GET /session":          "Current session info and summary statistics",
			"GET /readings?limit=N": "Recorded readings, optionally the most recent N",
			"GET /config":           "Get service configuration",
			"GET /stats":            "Get service statistics",
			"GET /metrics":          "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
