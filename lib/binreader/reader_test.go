// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binreader

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"unicode/utf16"
)

func TestFixedWidthLittleEndian(t *testing.T) {
	data := []byte{
		0x7F,
		0x34, 0x12,
		0x78, 0x56, 0x34, 0x12,
		0xFF, 0xFF, 0xFF, 0xFF,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}
	r := New(data)

	u8, err := r.Uint8()
	if err != nil || u8 != 0x7F {
		t.Fatalf("Uint8 = %#x, %v", u8, err)
	}
	u16, err := r.Uint16()
	if err != nil || u16 != 0x1234 {
		t.Fatalf("Uint16 = %#x, %v", u16, err)
	}
	u32, err := r.Uint32()
	if err != nil || u32 != 0x12345678 {
		t.Fatalf("Uint32 = %#x, %v", u32, err)
	}
	i32, err := r.Int32()
	if err != nil || i32 != -1 {
		t.Fatalf("Int32 = %d, %v", i32, err)
	}
	u64, err := r.Uint64()
	if err != nil || u64 != 0x0102030405060708 {
		t.Fatalf("Uint64 = %#x, %v", u64, err)
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", r.Remaining())
	}
}

func TestReadPastEndIsBoundsError(t *testing.T) {
	r := New([]byte{1, 2, 3})
	_, err := r.Uint32()

	var bounds *BoundsError
	if !errors.As(err, &bounds) {
		t.Fatalf("expected *BoundsError, got %v", err)
	}
	if bounds.Offset != 0 || bounds.Want != 4 || bounds.Have != 3 {
		t.Errorf("bounds = %+v", bounds)
	}
	if r.Position() != 0 {
		t.Errorf("failed read moved cursor to %d", r.Position())
	}
}

func appendInt32(buffer []byte, value int32) []byte {
	return binary.LittleEndian.AppendUint32(buffer, uint32(value))
}

func TestFString(t *testing.T) {
	var data []byte

	// Empty.
	data = appendInt32(data, 0)

	// ASCII with terminator.
	data = appendInt32(data, 6)
	data = append(data, "hello\x00"...)

	// UTF-16 with terminator.
	units := utf16.Encode([]rune("héllo ✓\x00"))
	data = appendInt32(data, -int32(len(units)))
	for _, unit := range units {
		data = binary.LittleEndian.AppendUint16(data, unit)
	}

	// Latin-1 byte above 0x7F.
	data = appendInt32(data, 2)
	data = append(data, 0xE9, 0x00)

	r := New(data)
	for _, want := range []string{"", "hello", "héllo ✓", "é"} {
		got, err := r.FString()
		if err != nil {
			t.Fatalf("FString: %v", err)
		}
		if got != want {
			t.Errorf("FString = %q, want %q", got, want)
		}
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining = %d after all strings", r.Remaining())
	}
}

func TestFStringTruncated(t *testing.T) {
	data := appendInt32(nil, 10)
	data = append(data, "abc"...)

	r := New(data)
	if _, err := r.FString(); err == nil {
		t.Fatal("expected error for truncated string")
	}
	if r.Position() != 0 {
		t.Errorf("cursor = %d, want rewound to 0", r.Position())
	}
}

func TestReadArray(t *testing.T) {
	data := appendInt32(nil, 3)
	for _, value := range []uint32{10, 20, 30} {
		data = binary.LittleEndian.AppendUint32(data, value)
	}

	values, err := ReadArray(New(data), 4, (*Reader).Uint32)
	if err != nil {
		t.Fatalf("ReadArray: %v", err)
	}
	if len(values) != 3 || values[0] != 10 || values[1] != 20 || values[2] != 30 {
		t.Errorf("values = %v", values)
	}
}

func TestReadArrayRejectsImpossibleCount(t *testing.T) {
	tests := []struct {
		name  string
		count int32
	}{
		{"negative", -1},
		{"larger than buffer", 1 << 30},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			data := appendInt32(nil, test.count)
			data = append(data, 0, 0, 0, 0)
			_, err := ReadArray(New(data), 4, (*Reader).Uint32)
			var bounds *BoundsError
			if !errors.As(err, &bounds) {
				t.Fatalf("expected *BoundsError, got %v", err)
			}
		})
	}
}

func TestFStringArray(t *testing.T) {
	data := appendInt32(nil, 2)
	data = appendInt32(data, 2)
	data = append(data, "a\x00"...)
	data = appendInt32(data, 0)

	values, err := New(data).FStringArray()
	if err != nil {
		t.Fatalf("FStringArray: %v", err)
	}
	if len(values) != 2 || values[0] != "a" || values[1] != "" {
		t.Errorf("values = %q", values)
	}
}

func TestSeekAndPosition(t *testing.T) {
	r := New(make([]byte, 16))

	if err := r.SetPosition(16); err != nil {
		t.Fatalf("SetPosition(len): %v", err)
	}
	if err := r.SetPosition(17); err == nil {
		t.Error("SetPosition past end should fail")
	}
	if err := r.SetPosition(-1); err == nil {
		t.Error("SetPosition(-1) should fail")
	}

	position, err := r.Seek(4, io.SeekStart)
	if err != nil || position != 4 {
		t.Fatalf("Seek(start) = %d, %v", position, err)
	}
	position, err = r.Seek(2, io.SeekCurrent)
	if err != nil || position != 6 {
		t.Fatalf("Seek(current) = %d, %v", position, err)
	}
	position, err = r.Seek(-1, io.SeekEnd)
	if err != nil || position != 15 {
		t.Fatalf("Seek(end) = %d, %v", position, err)
	}
	if err := r.Skip(2); err == nil {
		t.Error("Skip past end should fail")
	}
}

func TestBytesCopies(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	r := New(data)
	out, err := r.Bytes(2)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	data[0] = 9
	if out[0] != 1 {
		t.Error("Bytes returned an alias of the underlying buffer")
	}
}
