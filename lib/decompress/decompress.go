// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package decompress defines the pluggable decompression strategy
// used for manifest payloads and chunk payloads, and provides the
// default zlib implementation.
//
// A strategy decompresses one complete compressed buffer into a
// destination sized to the declared uncompressed length. Callers
// compare the returned byte count against that declared length; a
// strategy never grows the destination.
package decompress

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// Func decompresses src into dst and returns the number of bytes
// written. state is an opaque value supplied alongside the function
// in the caller's options (a codec handle, a pool); strategies that
// need none ignore it.
//
// A stream that produces fewer than len(dst) bytes is not an error:
// the caller sees n < len(dst) and reports the size mismatch. A
// stream that produces more than len(dst) bytes returns
// io.ErrShortBuffer.
type Func func(state any, dst, src []byte) (int, error)

// zlibReaders pools zlib readers across calls. Resetting a reader
// reuses its inflate window instead of allocating 32 KiB per chunk.
var zlibReaders sync.Pool

// Zlib is the default strategy: a zlib (RFC 1950) stream as written
// by the build tooling. state is ignored.
func Zlib(_ any, dst, src []byte) (int, error) {
	source := bytes.NewReader(src)

	var reader io.ReadCloser
	if pooled, ok := zlibReaders.Get().(io.ReadCloser); ok {
		if err := pooled.(zlib.Resetter).Reset(source, nil); err != nil {
			return 0, fmt.Errorf("zlib header: %w", err)
		}
		reader = pooled
	} else {
		created, err := zlib.NewReader(source)
		if err != nil {
			return 0, fmt.Errorf("zlib header: %w", err)
		}
		reader = created
	}

	n, err := io.ReadFull(reader, dst)
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		// Short output; the caller reports the size mismatch.
		err = nil
	case err != nil:
		reader.Close()
		return n, fmt.Errorf("zlib inflate: %w", err)
	}

	if n == len(dst) {
		// The stream must end exactly here.
		var probe [1]byte
		extra, probeErr := reader.Read(probe[:])
		if extra > 0 {
			reader.Close()
			return n, io.ErrShortBuffer
		}
		if probeErr != nil && !errors.Is(probeErr, io.EOF) {
			reader.Close()
			return n, fmt.Errorf("zlib inflate: %w", probeErr)
		}
	}

	if err := reader.Close(); err != nil {
		return n, fmt.Errorf("zlib close: %w", err)
	}
	zlibReaders.Put(reader)
	return n, err
}
