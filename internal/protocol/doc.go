// Package protocol implements TPMS radio frame decoding and the capture wire format.
// It handles Manchester bit decoding, multi-protocol field extraction with
// sanity-range gating, and parsing of frame descriptors from the capture process.
package protocol
