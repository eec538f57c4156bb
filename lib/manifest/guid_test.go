// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"bytes"
	"errors"
	"testing"
)

func TestGUIDStringRoundTrip(t *testing.T) {
	const text = "A76EAD354E9F6F06D0E75CAC2AB1B56C"

	guid, err := ParseGUID(text)
	if err != nil {
		t.Fatalf("ParseGUID: %v", err)
	}
	if guid.String() != text {
		t.Errorf("String() = %s, want %s", guid.String(), text)
	}
	if guid[0] != 0xA76EAD35 || guid[3] != 0x2AB1B56C {
		t.Errorf("words = %08X", guid)
	}
}

func TestGUIDParseIsCaseInsensitive(t *testing.T) {
	upper, err := ParseGUID("A76EAD354E9F6F06D0E75CAC2AB1B56C")
	if err != nil {
		t.Fatalf("ParseGUID upper: %v", err)
	}
	lower, err := ParseGUID("a76ead354e9f6f06d0e75cac2ab1b56c")
	if err != nil {
		t.Fatalf("ParseGUID lower: %v", err)
	}
	if upper != lower {
		t.Error("upper and lower case parse to different GUIDs")
	}
	if lower.HexString(false) != "a76ead354e9f6f06d0e75cac2ab1b56c" {
		t.Errorf("HexString(false) = %s", lower.HexString(false))
	}
}

func TestGUIDParseRejects(t *testing.T) {
	for _, input := range []string{
		"",
		"A76EAD354E9F6F06D0E75CAC2AB1B56",
		"A76EAD354E9F6F06D0E75CAC2AB1B56CC",
		"Z76EAD354E9F6F06D0E75CAC2AB1B56C",
	} {
		if _, err := ParseGUID(input); !errors.Is(err, ErrMalformed) {
			t.Errorf("ParseGUID(%q) = %v, want ErrMalformed", input, err)
		}
	}
}

func TestGUIDBinaryLayoutIsPerWordLittleEndian(t *testing.T) {
	raw := []byte{
		0x35, 0xAD, 0x6E, 0xA7,
		0x06, 0x6F, 0x9F, 0x4E,
		0x5C, 0xE7, 0xD0, 0xD0,
		0x6C, 0xB5, 0xB1, 0x2A,
	}
	// The third word above is deliberately D0D0E75C to catch word
	// transposition as well as byte order.
	guid, err := GUIDFromBytes(raw)
	if err != nil {
		t.Fatalf("GUIDFromBytes: %v", err)
	}
	if guid.String() != "A76EAD354E9F6F06D0D0E75C2AB1B56C" {
		t.Errorf("String() = %s", guid.String())
	}
	encoded := guid.Bytes()
	if !bytes.Equal(encoded[:], raw) {
		t.Errorf("Bytes() = %x, want %x", encoded, raw)
	}
}

func TestGUIDDashedString(t *testing.T) {
	guid, _ := ParseGUID("A76EAD354E9F6F06D0E75CAC2AB1B56C")
	if got, want := guid.DashedString(), "a76ead35-4e9f-6f06-d0e7-5cac2ab1b56c"; got != want {
		t.Errorf("DashedString() = %s, want %s", got, want)
	}

	var parsed GUID
	if err := parsed.UnmarshalText([]byte(guid.DashedString())); err != nil {
		t.Fatalf("UnmarshalText dashed: %v", err)
	}
	if parsed != guid {
		t.Errorf("dashed round trip = %s, want %s", parsed, guid)
	}
}

func TestRandomGUIDIsValid(t *testing.T) {
	first, second := RandomGUID(), RandomGUID()
	if !first.IsValid() {
		t.Error("RandomGUID returned the zero GUID")
	}
	if first == second {
		t.Error("two RandomGUID calls returned the same value")
	}
	if (GUID{}).IsValid() {
		t.Error("zero GUID reports valid")
	}
}
