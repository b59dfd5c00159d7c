package protocol

import (
	"encoding/binary"
	"fmt"
)

// Wire format constants for frame descriptors emitted by the capture process
const (
	// Packet types
	PacketTypeFrame = 0x01 // One demodulated radio frame
	PacketTypeFlush = 0x02 // Request an immediate session export

	// Descriptor structure sizes
	HeaderSize      = 5   // 1 + 2 + 1 + 1 bytes
	MaxFramePayload = 512 // Sanity cap on raw frame length
)

// Header represents the 5-byte frame descriptor header
// Layout: [PacketType:1][PacketLen:2][RSSI:1][LQI:1]
type Header struct {
	PacketType uint8  // 0x01=Frame, 0x02=Flush
	PacketLen  uint16 // Total descriptor size (header + raw frame)
	RSSI       int8   // Received signal strength, 0 when unset
	LQI        uint8  // Link quality, 0 when unset
}

// FrameDescriptor represents a fully parsed frame descriptor
type FrameDescriptor struct {
	Header *Header
	Raw    []byte // Raw frame bytes, nil for flush descriptors
}

// ParseHeader parses the 5-byte frame descriptor header
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("header too short: expected %d bytes, got %d", HeaderSize, len(data))
	}

	header := &Header{
		PacketType: data[0],
		PacketLen:  binary.BigEndian.Uint16(data[1:3]),
		RSSI:       int8(data[3]),
		LQI:        data[4],
	}

	return header, nil
}

// ParseDescriptor parses a complete frame descriptor (header + raw frame)
func ParseDescriptor(data []byte) (*FrameDescriptor, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	if int(header.PacketLen) != len(data) {
		return nil, fmt.Errorf("descriptor length mismatch: header says %d bytes, got %d bytes",
			header.PacketLen, len(data))
	}

	if err := ValidateHeader(header); err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	desc := &FrameDescriptor{Header: header}

	if header.PacketType == PacketTypeFrame {
		// Copy the raw frame (caller's buffer will be reused)
		desc.Raw = make([]byte, len(data)-HeaderSize)
		copy(desc.Raw, data[HeaderSize:])
	}

	return desc, nil
}

// ValidateHeader validates the descriptor header fields
func ValidateHeader(header *Header) error {
	if !IsValidPacketType(header.PacketType) {
		return fmt.Errorf("invalid packet type: 0x%02x", header.PacketType)
	}

	if header.PacketLen < HeaderSize {
		return fmt.Errorf("packet length too small: %d (minimum %d)", header.PacketLen, HeaderSize)
	}

	payloadSize := int(header.PacketLen) - HeaderSize
	switch header.PacketType {
	case PacketTypeFrame:
		if payloadSize == 0 {
			return fmt.Errorf("frame descriptor carries no frame bytes")
		}
		if payloadSize > MaxFramePayload {
			return fmt.Errorf("frame payload too large: %d bytes (maximum %d)",
				payloadSize, MaxFramePayload)
		}
	case PacketTypeFlush:
		if payloadSize != 0 {
			return fmt.Errorf("flush descriptor must be empty, got %d payload bytes", payloadSize)
		}
	}

	return nil
}

// IsValidPacketType checks if the packet type is valid
func IsValidPacketType(ptype uint8) bool {
	return ptype == PacketTypeFrame || ptype == PacketTypeFlush
}

// EncodeDescriptor builds the wire form of a frame descriptor. Used by the
// frame sender and tests; the service itself only parses.
func EncodeDescriptor(ptype uint8, rssi int8, lqi uint8, raw []byte) ([]byte, error) {
	if !IsValidPacketType(ptype) {
		return nil, fmt.Errorf("invalid packet type: 0x%02x", ptype)
	}
	if ptype == PacketTypeFlush && len(raw) != 0 {
		return nil, fmt.Errorf("flush descriptor must be empty, got %d payload bytes", len(raw))
	}
	if len(raw) > MaxFramePayload {
		return nil, fmt.Errorf("frame payload too large: %d bytes (maximum %d)", len(raw), MaxFramePayload)
	}

	buf := make([]byte, HeaderSize+len(raw))
	buf[0] = ptype
	binary.BigEndian.PutUint16(buf[1:3], uint16(HeaderSize+len(raw)))
	buf[3] = byte(rssi)
	buf[4] = lqi
	copy(buf[HeaderSize:], raw)

	return buf, nil
}

// String returns a human-readable representation of the header
func (h *Header) String() string {
	var packetType string

	switch h.PacketType {
	case PacketTypeFrame:
		packetType = "Frame"
	case PacketTypeFlush:
		packetType = "Flush"
	default:
		packetType = fmt.Sprintf("Unknown(0x%02x)", h.PacketType)
	}

	return fmt.Sprintf("Header{Type:%s, Len:%d, RSSI:%d, LQI:%d}",
		packetType, h.PacketLen, h.RSSI, h.LQI)
}
