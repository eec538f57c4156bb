// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"os"
)

// IsJSON reports whether data is a JSON manifest: an opening brace
// within the first four bytes, which leaves room for a byte-order
// mark. Binary manifests start with HeaderMagic, whose first four
// bytes contain no brace.
func IsJSON(data []byte) bool {
	for i := 0; i < 4 && i < len(data); i++ {
		if data[i] == '{' {
			return true
		}
	}
	return false
}

// Deserialize parses a binary or JSON manifest, detecting which with
// IsJSON.
func Deserialize(data []byte, options Options) (*Manifest, error) {
	if IsJSON(data) {
		return DeserializeJSON(data, options)
	}
	return DeserializeBinary(data, options)
}

// ReadFile reads and parses the manifest at path.
func ReadFile(path string, options Options) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	m, err := Deserialize(data, options)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}
