// Package server implements the UDP ingest server for TPMS frame descriptors
// and the HTTP API for monitoring and session inspection. Received frames are
// decoded and appended to the session recorder by a single processing
// goroutine; the HTTP handlers read the same recorder under a shared lock.
package server
