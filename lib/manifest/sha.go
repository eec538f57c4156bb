// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bureau-foundation/buildpatch/lib/binreader"
)

// SHA1Size is the size of a SHA1 digest in bytes.
const SHA1Size = sha1.Size

// SHA1 is a 20-byte SHA1 digest. Equality is byte equality.
type SHA1 [SHA1Size]byte

// ComputeSHA1 hashes data.
func ComputeSHA1(data []byte) SHA1 {
	return SHA1(sha1.Sum(data))
}

// ParseSHA1 parses a 40-character hex digest in either case.
func ParseSHA1(s string) (SHA1, error) {
	var digest SHA1
	if len(s) != SHA1Size*2 {
		return digest, fmt.Errorf("%w: SHA1 %q must be %d hex characters", ErrMalformed, s, SHA1Size*2)
	}
	if _, err := hex.Decode(digest[:], []byte(s)); err != nil {
		return digest, fmt.Errorf("%w: SHA1 %q: %w", ErrMalformed, s, err)
	}
	return digest, nil
}

func readSHA1(r *binreader.Reader) (SHA1, error) {
	var digest SHA1
	_, err := r.Read(digest[:])
	return digest, err
}

// String returns the uppercase hex form.
func (s SHA1) String() string {
	return s.HexString(true)
}

// HexString returns the hex form in the requested case.
func (s SHA1) HexString(upper bool) string {
	encoded := hex.EncodeToString(s[:])
	if upper {
		return strings.ToUpper(encoded)
	}
	return encoded
}

// IsZero reports whether every byte is zero. Manifests that predate
// per-chunk SHA1 tracking leave the field zeroed.
func (s SHA1) IsZero() bool {
	return s == SHA1{}
}

// MarshalText implements encoding.TextMarshaler.
func (s SHA1) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SHA1) UnmarshalText(text []byte) error {
	parsed, err := ParseSHA1(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
