package session

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Analysis holds aggregate statistics recomputed from a saved log file.
// CSV analysis recomputes the aggregates from rows; JSON analysis returns
// the summary the file itself embeds.
type Analysis struct {
	File          string   `json:"file"`
	Session       string   `json:"session,omitempty"`
	Created       string   `json:"created,omitempty"`
	TotalReadings int      `json:"total_readings"`
	UniqueSensors int      `json:"unique_sensors,omitempty"`
	Protocols     []string `json:"protocols,omitempty"`

	PressureStats    *AnalysisStats `json:"pressure_stats,omitempty"`
	TemperatureStats *AnalysisStats `json:"temperature_stats,omitempty"`
	SignalStats      *SignalStats   `json:"signal_stats,omitempty"`

	// Embedded summary from JSON logs, trusted as written
	Summary *Summary `json:"summary,omitempty"`
}

// AnalysisStats is a min/max/avg aggregate over one numeric column
type AnalysisStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// SignalStats aggregates radio metadata from CSV rows
type SignalStats struct {
	AvgRSSI float64 `json:"avg_rssi"`
}

// AnalyzeLogFile recomputes aggregate statistics from a previously written
// CSV or JSON session log, independent of any live recorder. Individual
// malformed rows or numeric cells are skipped, not fatal; a missing file
// or unsupported extension is an error.
func AnalyzeLogFile(path string) (*Analysis, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("log file not found: %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return analyzeCSV(path)
	case ".json":
		return analyzeJSON(path)
	default:
		return nil, fmt.Errorf("unsupported log file format: %s", filepath.Ext(path))
	}
}

// analyzeCSV reads every data row, parsing numeric fields defensively
func analyzeCSV(path string) (*Analysis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // tolerate ragged rows, skipped below

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header from %s: %w", path, err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	analysis := &Analysis{File: path}
	sensors := make(map[string]struct{})
	seenProtocol := make(map[string]struct{})
	var protocols []string
	var pressures, temps, rssis []float64

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed row, skip it
			continue
		}
		if len(row) < len(header) {
			continue
		}

		analysis.TotalReadings++

		if i, ok := col["sensor_id"]; ok {
			sensors[row[i]] = struct{}{}
		}
		if i, ok := col["protocol"]; ok && row[i] != "" {
			if _, seen := seenProtocol[row[i]]; !seen {
				seenProtocol[row[i]] = struct{}{}
				protocols = append(protocols, row[i])
			}
		}

		if v, ok := parseCell(row, col, "pressure_psi"); ok {
			pressures = append(pressures, v)
		}
		if v, ok := parseCell(row, col, "temperature_c"); ok {
			temps = append(temps, v)
		}
		if v, ok := parseCell(row, col, "rssi"); ok && v != 0 {
			rssis = append(rssis, v)
		}
	}

	analysis.UniqueSensors = len(sensors)
	analysis.Protocols = protocols

	if len(pressures) > 0 {
		min, max, avg := minMaxAvg(pressures)
		analysis.PressureStats = &AnalysisStats{Min: min, Max: max, Avg: round(avg, 2)}
	}
	if len(temps) > 0 {
		min, max, avg := minMaxAvg(temps)
		analysis.TemperatureStats = &AnalysisStats{Min: min, Max: max, Avg: round(avg, 1)}
	}
	if len(rssis) > 0 {
		_, _, avg := minMaxAvg(rssis)
		analysis.SignalStats = &SignalStats{AvgRSSI: round(avg, 1)}
	}

	return analysis, nil
}

// parseCell parses one numeric cell, reporting ok=false for absent or
// non-numeric values.
func parseCell(row []string, col map[string]int, name string) (float64, bool) {
	i, ok := col[name]
	if !ok || i >= len(row) || row[i] == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(row[i], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// analyzeJSON returns the summary block the file embeds, without
// recomputation.
func analyzeJSON(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file %s: %w", path, err)
	}

	var doc struct {
		Session      string   `json:"session"`
		Created      string   `json:"created"`
		ReadingCount int      `json:"reading_count"`
		Summary      *Summary `json:"summary"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON file %s: %w", path, err)
	}

	return &Analysis{
		File:          path,
		Session:       doc.Session,
		Created:       doc.Created,
		TotalReadings: doc.ReadingCount,
		Summary:       doc.Summary,
	}, nil
}
