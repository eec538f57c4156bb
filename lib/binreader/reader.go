// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binreader

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf16"
)

// BoundsError reports a read that would run past the end of the
// buffer, or a count prefix that cannot possibly be satisfied by the
// bytes that remain.
type BoundsError struct {
	// Offset is the cursor position at which the read was attempted.
	Offset int64

	// Want is the number of bytes the read required.
	Want int64

	// Have is the number of bytes remaining after Offset.
	Have int64

	// What names the value being read ("uint32", "fstring", ...).
	What string
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("reading %s at offset %d: need %d bytes, have %d", e.What, e.Offset, e.Want, e.Have)
}

// Reader is a little-endian cursor over a byte slice. The zero value
// is an empty reader. A Reader is not safe for concurrent use.
type Reader struct {
	data     []byte
	position int64
}

// New returns a Reader positioned at the start of data. The slice is
// not copied; callers must not modify it while the reader is in use.
func New(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the total length of the underlying buffer.
func (r *Reader) Len() int64 { return int64(len(r.data)) }

// Position returns the current absolute cursor position.
func (r *Reader) Position() int64 { return r.position }

// Remaining returns the number of bytes between the cursor and the
// end of the buffer. It is zero (never negative) when the cursor has
// been positioned past the end.
func (r *Reader) Remaining() int64 {
	if r.position >= int64(len(r.data)) {
		return 0
	}
	return int64(len(r.data)) - r.position
}

// SetPosition moves the cursor to an absolute offset. Positioning
// exactly at the end of the buffer is allowed; beyond it is not.
func (r *Reader) SetPosition(position int64) error {
	if position < 0 || position > int64(len(r.data)) {
		return &BoundsError{Offset: position, Want: 0, Have: int64(len(r.data)) - position, What: "position"}
	}
	r.position = position
	return nil
}

// Seek implements io.Seeker semantics over the buffer.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = r.position
	case io.SeekEnd:
		base = int64(len(r.data))
	default:
		return r.position, fmt.Errorf("binreader: invalid whence %d", whence)
	}
	if err := r.SetPosition(base + offset); err != nil {
		return r.position, err
	}
	return r.position, nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if _, err := r.take(int64(n), "skip"); err != nil {
		return err
	}
	return nil
}

// take returns the next n bytes and advances past them.
func (r *Reader) take(n int64, what string) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, &BoundsError{Offset: r.position, Want: n, Have: r.Remaining(), What: what}
	}
	start := r.position
	r.position += n
	return r.data[start:r.position:r.position], nil
}

// Bytes returns a copy of the next n bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	raw, err := r.take(int64(n), "bytes")
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, raw)
	return out, nil
}

// Read copies the next len(p) bytes into p. Unlike [io.Reader], a
// short buffer is an error rather than a partial read.
func (r *Reader) Read(p []byte) (int, error) {
	raw, err := r.take(int64(len(p)), "bytes")
	if err != nil {
		return 0, err
	}
	return copy(p, raw), nil
}

// Uint8 reads one byte.
func (r *Reader) Uint8() (uint8, error) {
	raw, err := r.take(1, "uint8")
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}

// Bool8 reads one byte and reports whether it equals 1.
func (r *Reader) Bool8() (bool, error) {
	value, err := r.Uint8()
	return value == 1, err
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16() (uint16, error) {
	raw, err := r.take(2, "uint16")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(raw), nil
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	raw, err := r.take(4, "uint32")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw), nil
}

// Int32 reads a little-endian int32.
func (r *Reader) Int32() (int32, error) {
	value, err := r.Uint32()
	return int32(value), err
}

// Uint64 reads a little-endian uint64.
func (r *Reader) Uint64() (uint64, error) {
	raw, err := r.take(8, "uint64")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(raw), nil
}

// Int64 reads a little-endian int64.
func (r *Reader) Int64() (int64, error) {
	value, err := r.Uint64()
	return int64(value), err
}

// FString reads a length-prefixed string. The int32 prefix is
// positive for single-byte Latin-1 text, negative for UTF-16LE text
// measured in code units, and zero for the empty string. The stored
// text includes a terminating NUL, which is stripped.
func (r *Reader) FString() (string, error) {
	start := r.position
	length, err := r.Int32()
	if err != nil {
		return "", err
	}

	switch {
	case length == 0:
		return "", nil

	case length > 0:
		raw, err := r.take(int64(length), "fstring")
		if err != nil {
			r.position = start
			return "", err
		}
		if raw[len(raw)-1] == 0 {
			raw = raw[:len(raw)-1]
		}
		return latin1(raw), nil

	default:
		if length == math.MinInt32 {
			r.position = start
			return "", &BoundsError{Offset: start, Want: math.MaxInt32, Have: r.Remaining(), What: "fstring"}
		}
		units := int64(-length)
		raw, err := r.take(units*2, "utf16 fstring")
		if err != nil {
			r.position = start
			return "", err
		}
		decoded := make([]uint16, units)
		for i := range decoded {
			decoded[i] = binary.LittleEndian.Uint16(raw[i*2:])
		}
		if decoded[len(decoded)-1] == 0 {
			decoded = decoded[:len(decoded)-1]
		}
		return string(utf16.Decode(decoded)), nil
	}
}

// latin1 widens single-byte text to UTF-8. Plain ASCII is returned
// without per-rune conversion.
func latin1(raw []byte) string {
	ascii := true
	for _, b := range raw {
		if b >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(raw)
	}
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}

// Count reads an int32 element count and checks it against the
// remaining buffer, assuming each element occupies at least
// minElementSize bytes. A negative count, or one that cannot fit,
// is a bounds error rather than an allocation request.
func (r *Reader) Count(minElementSize int) (int, error) {
	start := r.position
	count, err := r.Int32()
	if err != nil {
		return 0, err
	}
	if minElementSize < 1 {
		minElementSize = 1
	}
	if count < 0 || int64(count)*int64(minElementSize) > r.Remaining() {
		r.position = start
		return 0, &BoundsError{Offset: start, Want: int64(count) * int64(minElementSize), Have: r.Remaining(), What: "array count"}
	}
	return int(count), nil
}

// FStringArray reads an int32 count followed by that many FStrings.
func (r *Reader) FStringArray() ([]string, error) {
	return ReadArray(r, 4, (*Reader).FString)
}

// ReadArray reads an int32 element count and then invokes read once
// per element, collecting the results in order. minElementSize is the
// smallest encoded size of one element and bounds the count before
// anything is allocated.
func ReadArray[T any](r *Reader, minElementSize int, read func(*Reader) (T, error)) ([]T, error) {
	count, err := r.Count(minElementSize)
	if err != nil {
		return nil, err
	}
	out := make([]T, count)
	for i := range out {
		element, err := read(r)
		if err != nil {
			return nil, fmt.Errorf("element %d of %d: %w", i, count, err)
		}
		out[i] = element
	}
	return out, nil
}
