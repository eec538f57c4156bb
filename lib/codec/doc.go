// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding used for machine-readable
// command output.
//
// JSON is the default structured output of the buildpatch command.
// CBOR is offered beside it for consumers that want compact,
// byte-stable output: the encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2), so the same manifest summary always encodes to
// identical bytes and can be hashed or diffed.
//
//	data, err := codec.Marshal(summary)
//	err = codec.Unmarshal(data, &summary)
//
// Output types carry `json` struct tags only. fxamacker/cbor reads
// them when `cbor` tags are absent, so one tag controls field naming
// for both formats. Identifiers with a MarshalText method (GUIDs,
// SHA1 digests) encode as text strings, matching their JSON form.
package codec
