// Package session provides TPMS reading accumulation for one capture run.
// It manages the append-only reading list, computes summary statistics, and
// exports sessions to CSV and JSON with offline re-analysis of saved logs.
package session
