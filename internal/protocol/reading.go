package protocol

import (
	"fmt"
	"time"
)

// Protocol labels for decoded readings
const (
	ProtocolSchrader = "Schrader"
	ProtocolSiemens  = "Siemens/VDO"
	ProtocolGeneric  = "Generic-Manchester"
	ProtocolUnknown  = "Unknown"
)

// Pressure status indicators derived from pressure_psi
const (
	StatusCritical = "CRITICAL"
	StatusLow      = "LOW"
	StatusNormal   = "NORMAL"
	StatusHigh     = "HIGH"
	StatusUnknown  = "UNKNOWN"
)

// KPaToPSI is the fixed conversion factor between kilopascal and PSI
const KPaToPSI = 0.145038

// Pressure status thresholds in PSI
const (
	criticalPressurePSI = 26.0
	lowPressurePSI      = 28.0
	highPressurePSI     = 44.0
)

// Reading represents a decoded TPMS sensor observation.
// Pressure, temperature, and battery fields are pointers: nil means the
// value could not be decoded, never zero.
type Reading struct {
	SensorID     string // 8-hex-digit serial, raw-hex fallback, or "UNKNOWN"
	PressureKPa  *float64
	PressurePSI  *float64
	TemperatureC *float64
	BatteryLow   *bool

	// Radio metadata carried through from the capture process
	RSSI int // Signal strength indicator, may be zero/unset
	LQI  int // Link quality indicator, may be zero/unset

	Protocol         string // One of the Protocol* labels
	Supplier         string // Fixed per protocol, empty when not applicable
	TransmissionType string // Fixed per protocol, empty when not applicable

	RawHex    string // Uppercase hex dump of the original frame
	Timestamp time.Time
}

// normalize fills in the derived pressure unit and the default timestamp.
// If either pressure unit is set, both are set and consistent under the
// fixed conversion factor afterwards.
func (r *Reading) normalize() {
	if r.PressureKPa != nil && r.PressurePSI == nil {
		psi := *r.PressureKPa * KPaToPSI
		r.PressurePSI = &psi
	} else if r.PressurePSI != nil && r.PressureKPa == nil {
		kpa := *r.PressurePSI / KPaToPSI
		r.PressureKPa = &kpa
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
}

// PressureStatus derives the status indicator from the PSI pressure.
// It is recomputed on every call, never cached.
func (r *Reading) PressureStatus() string {
	if r.PressurePSI == nil {
		return StatusUnknown
	}
	psi := *r.PressurePSI
	switch {
	case psi < criticalPressurePSI:
		return StatusCritical
	case psi < lowPressurePSI:
		return StatusLow
	case psi > highPressurePSI:
		return StatusHigh
	default:
		return StatusNormal
	}
}

// TemperatureF returns the derived Fahrenheit temperature, or nil when
// no temperature was decoded.
func (r *Reading) TemperatureF() *float64 {
	if r.TemperatureC == nil {
		return nil
	}
	f := *r.TemperatureC*9/5 + 32
	return &f
}

// String returns a human-readable representation of the reading
func (r *Reading) String() string {
	pressure := "n/a"
	if r.PressurePSI != nil {
		pressure = fmt.Sprintf("%.2f psi", *r.PressurePSI)
	}
	temp := "n/a"
	if r.TemperatureC != nil {
		temp = fmt.Sprintf("%.1f°C", *r.TemperatureC)
	}
	return fmt.Sprintf("Reading{Sensor:%s, Protocol:%s, Pressure:%s, Temp:%s, Status:%s}",
		r.SensorID, r.Protocol, pressure, temp, r.PressureStatus())
}
