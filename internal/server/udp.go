package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/mrmagicbg/tpms-radio-service/internal/config"
	"github.com/mrmagicbg/tpms-radio-service/internal/metrics"
	"github.com/mrmagicbg/tpms-radio-service/internal/protocol"
	"github.com/mrmagicbg/tpms-radio-service/internal/session"
)

// FrameServer receives frame descriptors over UDP, decodes them and appends
// the resulting readings to the session recorder.
type FrameServer struct {
	conn     *net.UDPConn
	config   *config.Config
	logger   *slog.Logger
	decoder  *protocol.FrameDecoder
	recorder *session.Recorder
	metrics  *metrics.Metrics

	// recorderMu guards the recorder, which is not safe for concurrent use.
	// The HTTP server shares this lock for its read-only handlers.
	recorderMu *sync.Mutex

	// Concurrency management. The receiver has its own wait group so Stop
	// can drain it before closing the packet channel.
	ctx    context.Context
	cancel context.CancelFunc
	recvWg sync.WaitGroup
	wg     sync.WaitGroup

	// Packet processing
	packetChan chan *incomingPacket

	// Basic counters, mirrored into Prometheus metrics
	packetsReceived  uint64
	packetsProcessed uint64
	parseErrors      uint64
	mu               sync.RWMutex
}

// incomingPacket represents a received UDP packet with metadata
type incomingPacket struct {
	data       []byte
	remoteAddr *net.UDPAddr
	timestamp  time.Time
}

// NewFrameServer creates a new frame ingest server instance
func NewFrameServer(cfg *config.Config, logger *slog.Logger, decoder *protocol.FrameDecoder,
	recorder *session.Recorder, recorderMu *sync.Mutex, m *metrics.Metrics) *FrameServer {
	ctx, cancel := context.WithCancel(context.Background())

	return &FrameServer{
		config:     cfg,
		logger:     logger,
		decoder:    decoder,
		recorder:   recorder,
		recorderMu: recorderMu,
		metrics:    m,
		ctx:        ctx,
		cancel:     cancel,
		packetChan: make(chan *incomingPacket, cfg.Server.QueueSize),
	}
}

// Start begins listening for UDP packets
func (s *FrameServer) Start() error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", s.config.Server.BindAddress, s.config.Server.UDPPort))
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}

	s.conn = conn

	if err := s.conn.SetReadBuffer(s.config.Server.BufferSize); err != nil {
		s.logger.Warn("Failed to set UDP read buffer size",
			slog.Int("buffer_size", s.config.Server.BufferSize),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("Frame server started",
		slog.String("address", addr.String()),
		slog.Int("buffer_size", s.config.Server.BufferSize),
		slog.Int("queue_size", s.config.Server.QueueSize),
	)

	// The recorder is not safe for concurrent use, so exactly one goroutine
	// consumes the packet channel.
	s.wg.Add(1)
	go s.packetProcessor()

	if interval := s.config.Export.GetExportInterval(); interval > 0 {
		s.wg.Add(1)
		go s.exportLoop(interval)
	}

	s.recvWg.Add(1)
	go s.receiveLoop()

	return nil
}

// Stop gracefully stops the frame server and exports the session one final time.
func (s *FrameServer) Stop() error {
	s.logger.Info("Stopping frame server...")

	// Cancel context to signal shutdown
	s.cancel()

	// Close UDP connection to unblock the receive loop
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Warn("Error closing UDP connection", slog.String("error", err.Error()))
		}
	}

	// Wait for the receiver before closing the channel it sends on
	s.recvWg.Wait()

	// Close packet channel to signal the processor to stop
	close(s.packetChan)

	// Wait for the processor and export loop to finish
	s.wg.Wait()

	// Final export so nothing recorded during the run is lost
	s.exportSession("shutdown")

	s.mu.RLock()
	packetsReceived := s.packetsReceived
	packetsProcessed := s.packetsProcessed
	parseErrors := s.parseErrors
	s.mu.RUnlock()

	s.logger.Info("Frame server stopped",
		slog.Uint64("packets_received", packetsReceived),
		slog.Uint64("packets_processed", packetsProcessed),
		slog.Uint64("parse_errors", parseErrors),
	)

	return nil
}

// receiveLoop is the main packet receiving loop
func (s *FrameServer) receiveLoop() {
	defer s.recvWg.Done()

	buffer := make([]byte, s.config.Server.BufferSize)

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("Receive loop stopping due to context cancellation")
			return
		default:
			// Continue to receive packets
		}

		// Set read deadline to check for context cancellation periodically
		if err := s.conn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
			s.logger.Error("Failed to set read deadline", slog.String("error", err.Error()))
			continue
		}

		n, remoteAddr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			// Timeouts are expected during graceful shutdown
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}

			select {
			case <-s.ctx.Done():
				return
			default:
				s.logger.Error("Failed to read UDP packet", slog.String("error", err.Error()))
				continue
			}
		}

		s.mu.Lock()
		s.packetsReceived++
		s.mu.Unlock()
		s.metrics.RecordDescriptorReceived()

		// Copy the packet data, the buffer is reused
		packetData := make([]byte, n)
		copy(packetData, buffer[:n])

		packet := &incomingPacket{
			data:       packetData,
			remoteAddr: remoteAddr,
			timestamp:  time.Now(),
		}

		select {
		case s.packetChan <- packet:
			s.metrics.SetQueueSize(len(s.packetChan))
		default:
			s.logger.Warn("Packet processing queue full, dropping packet",
				slog.String("remote_addr", remoteAddr.String()),
				slog.Int("packet_size", n),
			)
		}
	}
}

// packetProcessor consumes descriptors from the packet channel. It is the
// only goroutine that mutates the recorder.
func (s *FrameServer) packetProcessor() {
	defer s.wg.Done()

	s.logger.Debug("Packet processor started")

	for packet := range s.packetChan {
		s.handlePacket(packet)
		s.metrics.SetQueueSize(len(s.packetChan))
	}

	s.logger.Debug("Packet processor stopped")
}

// handlePacket processes a single incoming frame descriptor
func (s *FrameServer) handlePacket(packet *incomingPacket) {
	desc, err := protocol.ParseDescriptor(packet.data)
	if err != nil {
		s.mu.Lock()
		s.parseErrors++
		s.mu.Unlock()
		s.metrics.RecordParseError()

		s.logger.Error("Failed to parse frame descriptor",
			slog.String("remote_addr", packet.remoteAddr.String()),
			slog.Int("packet_size", len(packet.data)),
			slog.String("error", err.Error()),
		)
		return
	}

	s.mu.Lock()
	s.packetsProcessed++
	s.mu.Unlock()
	s.metrics.RecordDescriptorParsed()

	switch desc.Header.PacketType {
	case protocol.PacketTypeFrame:
		s.processFrame(desc)
	case protocol.PacketTypeFlush:
		s.logger.Info("Flush packet received, exporting session",
			slog.String("remote_addr", packet.remoteAddr.String()),
		)
		s.exportSession("flush")
	default:
		// ParseDescriptor rejects unknown types, kept for safety
		s.logger.Error("Unknown packet type",
			slog.Int("packet_type", int(desc.Header.PacketType)),
		)
	}
}

// processFrame decodes a raw frame and records the resulting reading
func (s *FrameServer) processFrame(desc *protocol.FrameDescriptor) {
	reading := s.decoder.Decode(desc.Raw, int(desc.Header.RSSI), int(desc.Header.LQI))

	s.metrics.RecordFrameDecoded(reading.Protocol, len(desc.Raw), reading.RSSI)

	s.recorderMu.Lock()
	s.recorder.AddReading(reading)
	count := s.recorder.ReadingCount()
	s.recorderMu.Unlock()

	s.metrics.RecordReading(count)

	s.logger.Info("Reading recorded",
		slog.String("sensor_id", reading.SensorID),
		slog.String("protocol", reading.Protocol),
		slog.String("status", reading.PressureStatus()),
		slog.Int("rssi", reading.RSSI),
		slog.Int("session_readings", count),
	)
}

// exportLoop periodically writes the session to disk
func (s *FrameServer) exportLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Periodic session export enabled", slog.Duration("interval", interval))

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.exportSession("periodic")
		}
	}
}

// exportSession writes the session in both formats and records export metrics
func (s *FrameServer) exportSession(trigger string) {
	start := time.Now()

	s.recorderMu.Lock()
	count := s.recorder.ReadingCount()
	if count == 0 {
		s.recorderMu.Unlock()
		s.logger.Debug("Skipping export of empty session", slog.String("trigger", trigger))
		return
	}
	paths, err := s.recorder.ExportAll(s.config.Export.Overwrite)
	s.recorderMu.Unlock()

	duration := time.Since(start).Seconds()

	if err != nil {
		s.metrics.RecordExportError("csv")
		s.metrics.RecordExportError("json")
		s.logger.Error("Session export failed",
			slog.String("trigger", trigger),
			slog.String("error", err.Error()),
		)
		return
	}

	s.metrics.RecordExport("csv", duration)
	s.metrics.RecordExport("json", duration)

	s.logger.Info("Session exported",
		slog.String("trigger", trigger),
		slog.Int("readings", count),
		slog.String("csv", paths.CSV),
		slog.String("json", paths.JSON),
	)
}

// GetStatistics returns current server statistics
func (s *FrameServer) GetStatistics() ServerStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ServerStatistics{
		PacketsReceived:  s.packetsReceived,
		PacketsProcessed: s.packetsProcessed,
		ParseErrors:      s.parseErrors,
		QueueSize:        uint64(len(s.packetChan)),
		QueueCapacity:    uint64(cap(s.packetChan)),
	}
}

// ServerStatistics represents server performance metrics
type ServerStatistics struct {
	PacketsReceived  uint64 `json:"packets_received"`
	PacketsProcessed uint64 `json:"packets_processed"`
	ParseErrors      uint64 `json:"parse_errors"`
	QueueSize        uint64 `json:"queue_size"`
	QueueCapacity    uint64 `json:"queue_capacity"`
}
