package session

import (
	"math"

	"github.com/mrmagicbg/tpms-radio-service/internal/protocol"
)

// Summary holds the derived session statistics embedded in JSON exports
type Summary struct {
	TotalReadings     int               `json:"total_readings"`
	UniqueSensors     int               `json:"unique_sensors"`
	ProtocolsDetected []string          `json:"protocols_detected"`
	SuppliersDetected []string          `json:"suppliers_detected"`
	LowBatteryCount   int               `json:"low_battery_count"`
	LowPressureCount  int               `json:"low_pressure_count"`
	HighPressureCount int               `json:"high_pressure_count"`
	AvgRSSI           *float64          `json:"avg_rssi"`
	PressureStats     *PressureStats    `json:"pressure_stats,omitempty"`
	TemperatureStats  *TemperatureStats `json:"temperature_stats,omitempty"`
}

// PressureStats aggregates PSI pressure over readings where it is present
type PressureStats struct {
	MinPSI float64 `json:"min_psi"`
	MaxPSI float64 `json:"max_psi"`
	AvgPSI float64 `json:"avg_psi"`
}

// TemperatureStats aggregates Celsius temperature over readings where it
// is present
type TemperatureStats struct {
	MinC float64 `json:"min_c"`
	MaxC float64 `json:"max_c"`
	AvgC float64 `json:"avg_c"`
}

// Summary computes the session statistics from the accumulated readings.
// Detected protocol and supplier lists preserve first-seen order.
func (r *Recorder) Summary() Summary {
	summary := Summary{
		TotalReadings: len(r.readings),
	}
	if len(r.readings) == 0 {
		return summary
	}

	sensors := make(map[string]struct{})
	var protocols, suppliers []string
	seenProtocol := make(map[string]struct{})
	seenSupplier := make(map[string]struct{})

	var pressures, temps []float64
	var rssiSum float64
	var rssiCount int

	for _, reading := range r.readings {
		sensors[reading.SensorID] = struct{}{}

		if _, ok := seenProtocol[reading.Protocol]; !ok {
			seenProtocol[reading.Protocol] = struct{}{}
			protocols = append(protocols, reading.Protocol)
		}
		if reading.Supplier != "" {
			if _, ok := seenSupplier[reading.Supplier]; !ok {
				seenSupplier[reading.Supplier] = struct{}{}
				suppliers = append(suppliers, reading.Supplier)
			}
		}

		if reading.BatteryLow != nil && *reading.BatteryLow {
			summary.LowBatteryCount++
		}

		switch reading.PressureStatus() {
		case protocol.StatusLow, protocol.StatusCritical:
			summary.LowPressureCount++
		case protocol.StatusHigh:
			summary.HighPressureCount++
		}

		if reading.PressurePSI != nil {
			pressures = append(pressures, *reading.PressurePSI)
		}
		if reading.TemperatureC != nil {
			temps = append(temps, *reading.TemperatureC)
		}

		// Zero RSSI means the capture process had no metadata
		if reading.RSSI != 0 {
			rssiSum += float64(reading.RSSI)
			rssiCount++
		}
	}

	summary.UniqueSensors = len(sensors)
	summary.ProtocolsDetected = protocols
	summary.SuppliersDetected = suppliers

	if rssiCount > 0 {
		avg := round(rssiSum/float64(rssiCount), 1)
		summary.AvgRSSI = &avg
	}

	if len(pressures) > 0 {
		min, max, avg := minMaxAvg(pressures)
		summary.PressureStats = &PressureStats{
			MinPSI: min,
			MaxPSI: max,
			AvgPSI: round(avg, 2),
		}
	}

	if len(temps) > 0 {
		min, max, avg := minMaxAvg(temps)
		summary.TemperatureStats = &TemperatureStats{
			MinC: min,
			MaxC: max,
			AvgC: round(avg, 1),
		}
	}

	return summary
}

func minMaxAvg(values []float64) (min, max, avg float64) {
	min, max = values[0], values[0]
	var sum float64
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	return min, max, sum / float64(len(values))
}

func round(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}

func roundPtr(v *float64, decimals int) *float64 {
	if v == nil {
		return nil
	}
	r := round(*v, decimals)
	return &r
}
