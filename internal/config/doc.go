// Package config provides configuration loading and validation for the TPMS radio service.
// It handles YAML-based configuration with per-section struct validation covering
// the UDP ingest server, HTTP API, session export, and logging.
package config
