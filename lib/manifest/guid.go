// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/bureau-foundation/buildpatch/lib/binreader"
)

// GUIDSize is the encoded size of a GUID in bytes.
const GUIDSize = 16

// GUID is a 128-bit chunk identifier stored as four 32-bit words. In
// the binary format each word is little-endian, so the raw bytes of a
// GUID are not the bytes of its hex string: word A = 0x0A0B0C0D is
// stored as 0D 0C 0B 0A. Chunk URLs and cache file names use the hex
// string, so this layout must be preserved exactly.
type GUID [4]uint32

// GUIDFromBytes decodes the 16-byte binary layout.
func GUIDFromBytes(raw []byte) (GUID, error) {
	if len(raw) != GUIDSize {
		return GUID{}, fmt.Errorf("%w: GUID must be %d bytes, got %d", ErrMalformed, GUIDSize, len(raw))
	}
	var g GUID
	for i := range g {
		g[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return g, nil
}

// ParseGUID parses the 32-character hex form (eight hex digits per
// word, no separators). Both cases are accepted.
func ParseGUID(s string) (GUID, error) {
	if len(s) != 32 {
		return GUID{}, fmt.Errorf("%w: GUID %q must be 32 hex characters", ErrMalformed, s)
	}
	var g GUID
	for i := range g {
		word, err := strconv.ParseUint(s[i*8:i*8+8], 16, 32)
		if err != nil {
			return GUID{}, fmt.Errorf("%w: GUID %q: %w", ErrMalformed, s, err)
		}
		g[i] = uint32(word)
	}
	return g, nil
}

// RandomGUID returns a GUID with random contents.
func RandomGUID() GUID {
	id := uuid.New()
	g, _ := GUIDFromBytes(id[:])
	return g
}

func readGUID(r *binreader.Reader) (GUID, error) {
	var raw [GUIDSize]byte
	if _, err := r.Read(raw[:]); err != nil {
		return GUID{}, err
	}
	return GUIDFromBytes(raw[:])
}

// Bytes returns the 16-byte binary layout.
func (g GUID) Bytes() [GUIDSize]byte {
	var raw [GUIDSize]byte
	for i, word := range g {
		binary.LittleEndian.PutUint32(raw[i*4:], word)
	}
	return raw
}

// String returns the 32-character uppercase hex form used in chunk
// URLs and cache file names.
func (g GUID) String() string {
	return g.HexString(true)
}

// HexString returns the 32-character hex form in the requested case.
func (g GUID) HexString(upper bool) string {
	if upper {
		return fmt.Sprintf("%08X%08X%08X%08X", g[0], g[1], g[2], g[3])
	}
	return fmt.Sprintf("%08x%08x%08x%08x", g[0], g[1], g[2], g[3])
}

// DashedString returns the lowercase 8-4-4-4-12 form.
func (g GUID) DashedString() string {
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%04x%08x",
		g[0], g[1]>>16, g[1]&0xffff, g[2]>>16, g[2]&0xffff, g[3])
}

// IsValid reports whether any word is non-zero.
func (g GUID) IsValid() bool {
	return g[0]|g[1]|g[2]|g[3] != 0
}

// MarshalText implements encoding.TextMarshaler.
func (g GUID) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. The dashed form
// is accepted as well as the plain hex form.
func (g *GUID) UnmarshalText(text []byte) error {
	parsed, err := ParseGUID(strings.ReplaceAll(string(text), "-", ""))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
