package protocol

import (
	"bytes"
	"testing"
)

func TestDecodeManchesterBits(t *testing.T) {
	tests := []struct {
		name     string
		bits     []byte
		expected []byte
	}{
		{
			name:     "clean pairs",
			bits:     []byte{1, 0, 0, 1, 1, 0, 0, 1}, // "10011001"
			expected: []byte{0, 1, 0, 1},
		},
		{
			name: "resync on invalid pair",
			// "10011100": 10 -> 0, 01 -> 1, then "11" forces a single-bit
			// skip and the trailing "10" pair is still consumed as 0
			bits:     []byte{1, 0, 0, 1, 1, 1, 0, 0},
			expected: []byte{0, 1, 0},
		},
		{
			name:     "all zeros never synchronize",
			bits:     []byte{0, 0, 0, 0, 0, 0},
			expected: []byte{},
		},
		{
			name:     "leading garbage then valid pairs",
			bits:     []byte{1, 1, 1, 0, 0, 1}, // skip, 10 -> 0, 01 -> 1
			expected: []byte{0, 1},
		},
		{
			name:     "single bit",
			bits:     []byte{1},
			expected: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := decodeManchesterBits(tt.bits)
			if !bytes.Equal(result, tt.expected) {
				t.Errorf("Expected bits %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestManchesterRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "schrader-like payload",
			data: []byte{0x12, 0x34, 0x56, 0x78, 0x00, 0x03, 0x20, 0x50, 0xAB},
		},
		{
			name: "all zero bytes",
			data: []byte{0x00, 0x00, 0x00, 0x00},
		},
		{
			name: "all ones",
			data: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := ManchesterEncode(tt.data)
			if len(encoded) != len(tt.data)*2 {
				t.Fatalf("Expected encoded length %d, got %d", len(tt.data)*2, len(encoded))
			}

			decoded, err := ManchesterDecode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !bytes.Equal(decoded, tt.data) {
				t.Errorf("Round trip mismatch: expected %X, got %X", tt.data, decoded)
			}
		})
	}
}

func TestManchesterDecodeFailures(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		errorMsg string
	}{
		{
			name:     "input too short",
			data:     []byte{0xAA},
			errorMsg: "input too short",
		},
		{
			name:     "empty input",
			data:     []byte{},
			errorMsg: "input too short",
		},
		{
			// 0x00 bytes expand to runs of zeros which never form a valid
			// pair, so nothing decodes
			name:     "unsynchronizable input",
			data:     []byte{0x00, 0x00, 0x00, 0x00},
			errorMsg: "need at least",
		},
		{
			// Valid pairs but only enough for 3 decoded bytes, below the
			// useful minimum. No raw-bytes passthrough happens.
			name:     "too few decoded bytes",
			data:     ManchesterEncode([]byte{0x01, 0x02, 0x03}),
			errorMsg: "need at least",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ManchesterDecode(tt.data)
			if err == nil {
				t.Fatalf("Expected error but got result %X", result)
			}
			if !containsStr(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error to contain %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}
