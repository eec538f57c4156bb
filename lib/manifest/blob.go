// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"encoding/binary"
	"fmt"
)

// decodeBlob decodes a JSON "blob string" into a little-endian buffer
// of exactly size bytes. Each byte is written as three decimal
// digits, so "010000000" is the uint32 1. Shorter blobs leave the
// high bytes zero; an empty blob decodes to all zeros.
func decodeBlob(blob string, size int) ([]byte, error) {
	out := make([]byte, size)
	if len(blob)%3 != 0 {
		return nil, fmt.Errorf("%w: blob string %q length is not a multiple of 3", ErrMalformed, blob)
	}
	if len(blob)/3 > size {
		return nil, fmt.Errorf("%w: blob string %q encodes %d bytes, target holds %d", ErrMalformed, blob, len(blob)/3, size)
	}
	for i := 0; i < len(blob); i += 3 {
		value := 0
		for _, digit := range blob[i : i+3] {
			if digit < '0' || digit > '9' {
				return nil, fmt.Errorf("%w: blob string %q contains non-digit %q", ErrMalformed, blob, digit)
			}
			value = value*10 + int(digit-'0')
		}
		if value > 0xFF {
			return nil, fmt.Errorf("%w: blob string %q byte %d is %d", ErrMalformed, blob, i/3, value)
		}
		out[i/3] = byte(value)
	}
	return out, nil
}

// encodeBlob is the inverse of decodeBlob.
func encodeBlob(raw []byte) string {
	out := make([]byte, 0, len(raw)*3)
	for _, b := range raw {
		out = fmt.Appendf(out, "%03d", b)
	}
	return string(out)
}

func blobUint8(blob string) (uint8, error) {
	raw, err := decodeBlob(blob, 1)
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}

func blobUint32(blob string) (uint32, error) {
	raw, err := decodeBlob(blob, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw), nil
}

func blobUint64(blob string) (uint64, error) {
	raw, err := decodeBlob(blob, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(raw), nil
}

func blobSHA1(blob string) (SHA1, error) {
	var digest SHA1
	raw, err := decodeBlob(blob, SHA1Size)
	if err != nil {
		return digest, err
	}
	copy(digest[:], raw)
	return digest, nil
}

// EncodeBlobUint32 renders value as a blob string.
func EncodeBlobUint32(value uint32) string {
	return encodeBlob(binary.LittleEndian.AppendUint32(nil, value))
}

// EncodeBlobUint64 renders value as a blob string.
func EncodeBlobUint64(value uint64) string {
	return encodeBlob(binary.LittleEndian.AppendUint64(nil, value))
}

// EncodeBlobUint8 renders value as a blob string.
func EncodeBlobUint8(value uint8) string {
	return encodeBlob([]byte{value})
}

// EncodeBlobSHA1 renders digest as a blob string.
func EncodeBlobSHA1(digest SHA1) string {
	return encodeBlob(digest[:])
}
