// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifesttest

import (
	"encoding/binary"
	"unicode/utf16"
)

// writer appends little-endian values in the manifest encoding.
type writer struct {
	buffer []byte
}

func (w *writer) bytes(raw []byte)  { w.buffer = append(w.buffer, raw...) }
func (w *writer) uint8(value uint8) { w.buffer = append(w.buffer, value) }
func (w *writer) uint32(value uint32) {
	w.buffer = binary.LittleEndian.AppendUint32(w.buffer, value)
}
func (w *writer) int32(value int32) { w.uint32(uint32(value)) }
func (w *writer) uint64(value uint64) {
	w.buffer = binary.LittleEndian.AppendUint64(w.buffer, value)
}
func (w *writer) int64(value int64) { w.uint64(uint64(value)) }

// fstring writes s as ASCII when it is pure ASCII and as UTF-16
// otherwise, with the terminating NUL the format requires.
func (w *writer) fstring(s string) {
	if s == "" {
		w.int32(0)
		return
	}
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		w.int32(int32(len(s) + 1))
		w.bytes([]byte(s))
		w.uint8(0)
		return
	}
	units := utf16.Encode([]rune(s))
	w.int32(-int32(len(units) + 1))
	for _, unit := range units {
		w.buffer = binary.LittleEndian.AppendUint16(w.buffer, unit)
	}
	w.buffer = binary.LittleEndian.AppendUint16(w.buffer, 0)
}

func (w *writer) fstrings(values []string) {
	w.int32(int32(len(values)))
	for _, value := range values {
		w.fstring(value)
	}
}

// section writes a length-prefixed sub-section: the size placeholder,
// the version byte, body, and padding unknown to any reader. The
// size is patched afterwards to cover everything.
func (w *writer) section(version uint8, padding int, body func()) {
	start := len(w.buffer)
	w.int32(0)
	w.uint8(version)
	body()
	for i := 0; i < padding; i++ {
		w.uint8(0xEE)
	}
	binary.LittleEndian.PutUint32(w.buffer[start:], uint32(len(w.buffer)-start))
}
