// Package metrics defines the Prometheus instrumentation for the TPMS radio service.
// It covers frame ingest, per-protocol decode outcomes, session recording,
// export activity, and the HTTP monitoring API.
package metrics
