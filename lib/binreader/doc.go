// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binreader provides a positioned little-endian cursor over an
// in-memory byte buffer.
//
// The build manifest format is a sequence of length-prefixed,
// independently versioned sub-sections. Parsers record the position
// at the start of a sub-section, read its declared byte size, parse
// the fields they understand, and then jump to start+size so that
// fields appended by newer producers are skipped without error. The
// [Reader] exposes exactly the primitives that pattern needs: fixed
// width integers, length-prefixed strings ("FString"), counted arrays
// through a per-element factory, raw byte ranges, and absolute
// positioning.
//
// Every read that would run past the end of the buffer fails with a
// [*BoundsError] describing the offset, the requested size, and the
// bytes that were actually available. The reader never panics on
// malformed input.
package binreader
