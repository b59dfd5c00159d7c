package protocol

import "fmt"

// MinDecodedBytes is the minimum number of Manchester-decoded bytes for a
// decode to be considered usable.
const MinDecodedBytes = 4

// ManchesterDecode decodes Manchester-encoded data at the bit level.
//
// Each logical bit is transmitted as a 2-bit pair: "10" decodes to 0 and
// "01" decodes to 1. Any other pairing ("00"/"11") is treated as a
// desynchronized bit and skipped by advancing a single input bit, so a
// corrupted pair does not abort the whole frame. Decoded bits are packed
// big-endian-within-byte; trailing bits short of a full byte are discarded.
//
// Decoding fails with an error when fewer than MinDecodedBytes result.
// The raw input is never substituted for decoded output: a frame that does
// not carry enough valid Manchester pairs simply does not decode.
func ManchesterDecode(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("input too short for Manchester decode: %d bytes", len(data))
	}

	bits := expandBits(data)
	decoded := decodeManchesterBits(bits)
	result := packBits(decoded)

	if len(result) < MinDecodedBytes {
		return nil, fmt.Errorf("Manchester decode produced %d bytes, need at least %d",
			len(result), MinDecodedBytes)
	}

	return result, nil
}

// ManchesterEncode encodes data into Manchester form (0 -> "10", 1 -> "01").
// Output is exactly twice the input length. Used by test tooling and the
// frame sender to produce well-formed synthetic frames.
func ManchesterEncode(data []byte) []byte {
	out := make([]byte, 0, len(data)*2)
	var cur byte
	var n int
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bit := (b >> uint(i)) & 1
			// 0 -> 10, 1 -> 01
			var pair byte
			if bit == 0 {
				pair = 0b10
			} else {
				pair = 0b01
			}
			cur = cur<<2 | pair
			n += 2
			if n == 8 {
				out = append(out, cur)
				cur, n = 0, 0
			}
		}
	}
	return out
}

// expandBits expands bytes into one bit per output element, MSB first.
func expandBits(data []byte) []byte {
	bits := make([]byte, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bits = append(bits, (b>>uint(i))&1)
		}
	}
	return bits
}

// decodeManchesterBits scans bit pairs left to right, emitting one logical
// bit per valid pair and resynchronizing on invalid pairs by consuming a
// single bit.
func decodeManchesterBits(bits []byte) []byte {
	decoded := make([]byte, 0, len(bits)/2)
	i := 0
	for i < len(bits)-1 {
		switch {
		case bits[i] == 1 && bits[i+1] == 0:
			decoded = append(decoded, 0)
			i += 2
		case bits[i] == 0 && bits[i+1] == 1:
			decoded = append(decoded, 1)
			i += 2
		default:
			// Desynchronized pair, skip one bit and retry
			i++
		}
	}
	return decoded
}

// packBits packs logical bits into bytes, big-endian within each byte.
// Trailing bits that do not fill a byte are discarded.
func packBits(bits []byte) []byte {
	out := make([]byte, 0, len(bits)/8)
	for i := 0; i+8 <= len(bits); i += 8 {
		var b byte
		for j := 0; j < 8; j++ {
			b = b<<1 | bits[i+j]
		}
		out = append(out, b)
	}
	return out
}
