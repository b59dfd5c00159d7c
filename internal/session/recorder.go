package session

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mrmagicbg/tpms-radio-service/internal/protocol"
)

// timestampLayout is the reading timestamp format used in exports
const timestampLayout = "2006-01-02 15:04:05"

// csvColumns is the fixed CSV export column order
var csvColumns = []string{
	"timestamp", "sensor_id", "pressure_psi", "pressure_kpa",
	"temperature_c", "temperature_f", "battery_low",
	"rssi", "lqi", "protocol", "supplier", "pressure_status",
}

// DefaultLogDir returns the default export directory under the invoking
// user's home directory.
func DefaultLogDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, "rpi-lab", "logs", "tpms"), nil
}

// Recorder accumulates decoded readings for one monitoring session and
// exports them to CSV and JSON.
//
// A Recorder is not safe for concurrent use: one producer is expected to
// feed readings and trigger exports, with any additional readers
// serialized externally.
type Recorder struct {
	logDir      string
	sessionName string
	created     time.Time
	csvPath     string
	jsonPath    string
	readings    []*protocol.Reading
	logger      *slog.Logger
}

// NewRecorder creates a session recorder writing into logDir, which is
// created if missing. An empty logDir selects the default location. The
// session name is derived from the creation time and fixed for the
// recorder's lifetime.
func NewRecorder(logDir string, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if logDir == "" {
		dir, err := DefaultLogDir()
		if err != nil {
			return nil, err
		}
		logDir = dir
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	created := time.Now()
	sessionName := fmt.Sprintf("tpms_session_%s", created.Format("20060102_150405"))

	r := &Recorder{
		logDir:      logDir,
		sessionName: sessionName,
		created:     created,
		csvPath:     filepath.Join(logDir, sessionName+".csv"),
		jsonPath:    filepath.Join(logDir, sessionName+".json"),
		logger:      logger,
	}

	logger.Info("Session recorder initialized",
		slog.String("session", sessionName),
		slog.String("log_dir", logDir),
	)

	return r, nil
}

// AddReading appends one reading to the session. Readings are kept in
// arrival order; there is no deduplication by sensor id.
func (r *Recorder) AddReading(reading *protocol.Reading) {
	r.readings = append(r.readings, reading)
}

// AddReadings appends multiple readings in order
func (r *Recorder) AddReadings(readings []*protocol.Reading) {
	r.readings = append(r.readings, readings...)
}

// SessionName returns the fixed session name
func (r *Recorder) SessionName() string {
	return r.sessionName
}

// ReadingCount returns the number of accumulated readings
func (r *Recorder) ReadingCount() int {
	return len(r.readings)
}

// Readings returns the accumulated readings in arrival order. The returned
// slice is a copy; the readings themselves are shared.
func (r *Recorder) Readings() []*protocol.Reading {
	out := make([]*protocol.Reading, len(r.readings))
	copy(out, r.readings)
	return out
}

// Info returns a snapshot of the session state for monitoring
func (r *Recorder) Info() Info {
	return Info{
		SessionName:  r.sessionName,
		Created:      r.created,
		ReadingCount: len(r.readings),
		CSVFile:      r.csvPath,
		JSONFile:     r.jsonPath,
		LogDir:       r.logDir,
	}
}

// Info represents session metadata for monitoring and APIs
type Info struct {
	SessionName  string    `json:"session_name"`
	Created      time.Time `json:"created"`
	ReadingCount int       `json:"reading_count"`
	CSVFile      string    `json:"csv_file"`
	JSONFile     string    `json:"json_file"`
	LogDir       string    `json:"log_dir"`
}

// WriteCSV writes all accumulated readings to the session CSV file and
// returns its path.
//
// With overwrite disabled an existing file is left untouched and its path
// returned. An empty session is a no-op that logs a warning and still
// returns the (possibly nonexistent) target path; callers that need to
// distinguish the cases must check file existence.
func (r *Recorder) WriteCSV(overwrite bool) (string, error) {
	if !overwrite {
		if _, err := os.Stat(r.csvPath); err == nil {
			r.logger.Warn("CSV file exists, skipping", slog.String("path", r.csvPath))
			return r.csvPath, nil
		}
	}

	if len(r.readings) == 0 {
		r.logger.Warn("No readings to write", slog.String("path", r.csvPath))
		return r.csvPath, nil
	}

	f, err := os.Create(r.csvPath)
	if err != nil {
		return "", fmt.Errorf("failed to create CSV file %s: %w", r.csvPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, reading := range r.readings {
		if err := w.Write(csvRow(reading)); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV file %s: %w", r.csvPath, err)
	}

	r.logger.Info("CSV log written",
		slog.String("path", r.csvPath),
		slog.Int("readings", len(r.readings)),
	)

	return r.csvPath, nil
}

// csvRow renders one reading as a CSV row. Absent optional values render
// as empty strings, never as a textual null.
func csvRow(reading *protocol.Reading) []string {
	return []string{
		reading.Timestamp.Format(timestampLayout),
		reading.SensorID,
		formatFloat(reading.PressurePSI, 2),
		formatFloat(reading.PressureKPa, 2),
		formatFloat(reading.TemperatureC, 1),
		formatFloat(reading.TemperatureF(), 1),
		formatBool(reading.BatteryLow),
		strconv.Itoa(reading.RSSI),
		strconv.Itoa(reading.LQI),
		reading.Protocol,
		reading.Supplier,
		reading.PressureStatus(),
	}
}

func formatFloat(v *float64, decimals int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64)
}

func formatBool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

// document is the JSON export layout
type document struct {
	Session      string          `json:"session"`
	Created      string          `json:"created"`
	ReadingCount int             `json:"reading_count"`
	Readings     []readingRecord `json:"readings"`
	Summary      Summary         `json:"summary"`
}

// readingRecord is one reading in the JSON export, with the derived
// pressure status embedded.
type readingRecord struct {
	Timestamp      string   `json:"timestamp"`
	SensorID       string   `json:"sensor_id"`
	PressureKPa    *float64 `json:"pressure_kpa"`
	PressurePSI    *float64 `json:"pressure_psi"`
	TemperatureC   *float64 `json:"temperature_c"`
	BatteryLow     *bool    `json:"battery_low"`
	RSSI           int      `json:"rssi"`
	LQI            int      `json:"lqi"`
	Protocol       string   `json:"protocol"`
	Supplier       string   `json:"supplier,omitempty"`
	PressureStatus string   `json:"pressure_status"`
	RawHex         string   `json:"raw_hex"`
}

// WriteJSON writes the session document (metadata, readings, summary) to
// the session JSON file and returns its path. Overwrite and empty-session
// semantics match WriteCSV.
func (r *Recorder) WriteJSON(overwrite bool) (string, error) {
	if !overwrite {
		if _, err := os.Stat(r.jsonPath); err == nil {
			r.logger.Warn("JSON file exists, skipping", slog.String("path", r.jsonPath))
			return r.jsonPath, nil
		}
	}

	if len(r.readings) == 0 {
		r.logger.Warn("No readings to write", slog.String("path", r.jsonPath))
		return r.jsonPath, nil
	}

	records := make([]readingRecord, 0, len(r.readings))
	for _, reading := range r.readings {
		records = append(records, readingRecord{
			Timestamp:      reading.Timestamp.Format(timestampLayout),
			SensorID:       reading.SensorID,
			PressureKPa:    roundPtr(reading.PressureKPa, 2),
			PressurePSI:    roundPtr(reading.PressurePSI, 2),
			TemperatureC:   roundPtr(reading.TemperatureC, 1),
			BatteryLow:     reading.BatteryLow,
			RSSI:           reading.RSSI,
			LQI:            reading.LQI,
			Protocol:       reading.Protocol,
			Supplier:       reading.Supplier,
			PressureStatus: reading.PressureStatus(),
			RawHex:         reading.RawHex,
		})
	}

	doc := document{
		Session:      r.sessionName,
		Created:      r.created.Format(time.RFC3339),
		ReadingCount: len(r.readings),
		Readings:     records,
		Summary:      r.Summary(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal session document: %w", err)
	}

	if err := os.WriteFile(r.jsonPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write JSON file %s: %w", r.jsonPath, err)
	}

	r.logger.Info("JSON log written",
		slog.String("path", r.jsonPath),
		slog.Int("readings", len(r.readings)),
	)

	return r.jsonPath, nil
}

// ExportPaths holds the file paths produced by ExportAll
type ExportPaths struct {
	CSV  string `json:"csv"`
	JSON string `json:"json"`
}

// ExportAll writes both export formats. The writes are independent: a CSV
// failure does not prevent the JSON attempt, and both errors are reported.
func (r *Recorder) ExportAll(overwrite bool) (ExportPaths, error) {
	var paths ExportPaths
	var errs []error

	csvPath, err := r.WriteCSV(overwrite)
	if err != nil {
		errs = append(errs, fmt.Errorf("csv export: %w", err))
	} else {
		paths.CSV = csvPath
	}

	jsonPath, err := r.WriteJSON(overwrite)
	if err != nil {
		errs = append(errs, fmt.Errorf("json export: %w", err))
	} else {
		paths.JSON = jsonPath
	}

	return paths, errors.Join(errs...)
}
