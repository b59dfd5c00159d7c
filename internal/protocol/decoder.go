package protocol

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"
)

// Sanity ranges shared by all protocol decoders. Decoded values outside
// these ranges mean the candidate protocol did not actually match.
const (
	minSanePressureKPa = 50.0  // ~7 PSI
	maxSanePressureKPa = 500.0 // ~72 PSI
	minSaneTempC       = -40.0
	maxSaneTempC       = 125.0
)

// MinFrameBytes is the minimum raw frame length worth attempting to decode.
// Shorter frames go straight to the Unknown fallback.
const MinFrameBytes = 6

// protocolDecoder is one manufacturer-specific decode attempt.
// decode returns (nil, false) when the frame does not match; it never
// returns an error because a non-match is not a failure.
type protocolDecoder interface {
	name() string
	decode(data []byte) (*Reading, bool)
}

// FrameDecoder classifies and decodes raw TPMS frames, trying each known
// protocol in a fixed priority order. Decode is a pure function of its
// input and is safe for concurrent use.
type FrameDecoder struct {
	decoders []protocolDecoder
	logger   *slog.Logger
}

// NewFrameDecoder creates a decoder with the fixed protocol chain:
// Schrader, then Siemens/VDO, then the generic Manchester fallback.
func NewFrameDecoder(logger *slog.Logger) *FrameDecoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameDecoder{
		decoders: []protocolDecoder{
			schraderDecoder{},
			siemensDecoder{},
			genericManchesterDecoder{},
		},
		logger: logger,
	}
}

// Decode attempts to decode one raw frame into a Reading. It never fails:
// frames that match no known protocol produce an Unknown fallback reading
// carrying whatever can still be extracted.
func (d *FrameDecoder) Decode(raw []byte, rssi, lqi int) *Reading {
	rawHex := hexUpper(raw)

	if len(raw) < MinFrameBytes {
		d.logger.Debug("Frame too short, using fallback",
			slog.Int("frame_len", len(raw)),
		)
		return d.fallback(raw, rssi, lqi, rawHex)
	}

	for _, dec := range d.decoders {
		reading, ok := dec.decode(raw)
		if !ok {
			d.logger.Debug("Protocol decoder did not match",
				slog.String("decoder", dec.name()),
				slog.String("raw_hex", rawHex),
			)
			continue
		}

		reading.RSSI = rssi
		reading.LQI = lqi
		reading.RawHex = rawHex
		reading.normalize()

		d.logger.Debug("Frame decoded",
			slog.String("protocol", reading.Protocol),
			slog.String("sensor_id", reading.SensorID),
		)
		return reading
	}

	return d.fallback(raw, rssi, lqi, rawHex)
}

// fallback builds the Unknown reading: sensor id from the first 4 raw
// bytes when available, no pressure or temperature.
func (d *FrameDecoder) fallback(raw []byte, rssi, lqi int, rawHex string) *Reading {
	sensorID := "UNKNOWN"
	if len(raw) >= 4 {
		sensorID = hexUpper(raw[0:4])
	}

	reading := &Reading{
		SensorID:  sensorID,
		RSSI:      rssi,
		LQI:       lqi,
		Protocol:  ProtocolUnknown,
		RawHex:    rawHex,
		Timestamp: time.Now(),
	}
	return reading
}

// saneRanges reports whether decoded pressure and temperature fall inside
// the shared plausibility window.
func saneRanges(pressureKPa, temperatureC float64) bool {
	if pressureKPa <= minSanePressureKPa || pressureKPa >= maxSanePressureKPa {
		return false
	}
	if temperatureC <= minSaneTempC || temperatureC >= maxSaneTempC {
		return false
	}
	return true
}

// schraderDecoder decodes the Schrader protocol (EG53MA4, G4 family).
//
// Layout after Manchester decode:
//
//	Bytes 0-3: Sensor ID (big-endian 32-bit)
//	Byte  4:   Status flags (bit 7 = battery low)
//	Bytes 5-6: Pressure (big-endian 16-bit, kPa * 4)
//	Byte  7:   Temperature (°C + 40)
type schraderDecoder struct{}

func (schraderDecoder) name() string { return ProtocolSchrader }

func (schraderDecoder) decode(data []byte) (*Reading, bool) {
	decoded, err := ManchesterDecode(data)
	if err != nil || len(decoded) < 8 {
		return nil, false
	}

	sensorID := binary.BigEndian.Uint32(decoded[0:4])
	status := decoded[4]
	pressureKPa := float64(binary.BigEndian.Uint16(decoded[5:7])) / 4.0
	temperatureC := float64(decoded[7]) - 40.0
	batteryLow := status&0x80 != 0

	if !saneRanges(pressureKPa, temperatureC) {
		return nil, false
	}

	return &Reading{
		SensorID:         fmt.Sprintf("%08X", sensorID),
		PressureKPa:      &pressureKPa,
		TemperatureC:     &temperatureC,
		BatteryLow:       &batteryLow,
		Protocol:         ProtocolSchrader,
		Supplier:         "Schrader Electronics",
		TransmissionType: "Periodic (60s) + Event-driven",
	}, true
}

// siemensDecoder decodes the Siemens/VDO (Continental) protocol.
//
// Layout after Manchester decode:
//
//	Bytes 0-3: Sensor ID (big-endian 32-bit)
//	Bytes 4-5: Pressure (big-endian 16-bit, kPa encoded as raw/100 + 100)
//	Byte  6:   Temperature (°C + 50)
//	Byte  7:   Status flags (bit 0 = battery low)
type siemensDecoder struct{}

func (siemensDecoder) name() string { return ProtocolSiemens }

func (siemensDecoder) decode(data []byte) (*Reading, bool) {
	decoded, err := ManchesterDecode(data)
	if err != nil || len(decoded) < 8 {
		return nil, false
	}

	sensorID := binary.BigEndian.Uint32(decoded[0:4])
	pressureKPa := float64(binary.BigEndian.Uint16(decoded[4:6]))/100.0 + 100.0
	temperatureC := float64(decoded[6]) - 50.0
	batteryLow := decoded[7]&0x01 != 0

	if !saneRanges(pressureKPa, temperatureC) {
		return nil, false
	}

	return &Reading{
		SensorID:         fmt.Sprintf("%08X", sensorID),
		PressureKPa:      &pressureKPa,
		TemperatureC:     &temperatureC,
		BatteryLow:       &batteryLow,
		Protocol:         ProtocolSiemens,
		Supplier:         "Siemens/Continental",
		TransmissionType: "Periodic (60s) + Event-driven",
	}, true
}

// genericManchesterDecoder is a last-resort decode for Manchester-framed
// sensors with an unrecognized field layout. It trusts the leading 32-bit
// sensor id and applies a heuristic pressure conversion; treat its
// pressure and temperature as low confidence.
type genericManchesterDecoder struct{}

func (genericManchesterDecoder) name() string { return ProtocolGeneric }

func (genericManchesterDecoder) decode(data []byte) (*Reading, bool) {
	decoded, err := ManchesterDecode(data)
	if err != nil || len(decoded) < 6 {
		return nil, false
	}

	sensorID := binary.BigEndian.Uint32(decoded[0:4])
	pressureKPa := float64(decoded[4]) * 1.37 // common multiplier
	temperatureC := float64(decoded[5]) - 40.0

	if !saneRanges(pressureKPa, temperatureC) {
		return nil, false
	}

	return &Reading{
		SensorID:     fmt.Sprintf("%08X", sensorID),
		PressureKPa:  &pressureKPa,
		TemperatureC: &temperatureC,
		Protocol:     ProtocolGeneric,
	}, true
}

// hexUpper renders bytes as an uppercase hex string
func hexUpper(data []byte) string {
	return fmt.Sprintf("%X", data)
}
