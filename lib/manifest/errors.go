// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this module's parsing and
// fetching paths matches exactly one of these under errors.Is.
var (
	// ErrMalformed reports input that violates the format: bad magic,
	// truncated buffers, impossible counts, dangling references.
	ErrMalformed = errors.New("malformed data")

	// ErrUnsupported reports a well-formed input that uses a feature
	// this implementation deliberately does not handle: encryption,
	// pre-binary feature levels, chunk-less file-data builds.
	ErrUnsupported = errors.New("not supported")

	// ErrConfiguration reports a caller mistake: compressed data with
	// no decompressor, streaming without a chunk base URL.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrIntegrity reports a hash or size mismatch. The concrete
	// error is always an *IntegrityError.
	ErrIntegrity = errors.New("data integrity failure")

	// ErrTransport reports a failed chunk download. The concrete
	// error is always a *TransportError.
	ErrTransport = errors.New("transport failure")
)

// IntegrityError describes a verification failure with the expected
// and observed values rendered as strings.
type IntegrityError struct {
	// What names the verified quantity, e.g. "manifest payload SHA1"
	// or "chunk 0A1B... uncompressed size".
	What     string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s mismatch: expected %s, actual %s", e.What, e.Expected, e.Actual)
}

// Is reports whether target is ErrIntegrity.
func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

// TransportError describes a download that failed at the HTTP layer,
// either before a response arrived or with a non-2xx status. It is
// never retried internally.
type TransportError struct {
	// GUID is the chunk being fetched, zero for manifest downloads.
	GUID GUID
	URL  string

	// StatusCode is the HTTP status, or zero when no response was
	// received.
	StatusCode int

	// Err is the underlying client error, nil for status failures.
	Err error
}

func (e *TransportError) Error() string {
	what := "downloading " + e.URL
	if e.GUID.IsValid() {
		what = fmt.Sprintf("downloading chunk %s from %s", e.GUID, e.URL)
	}
	if e.Err != nil {
		return what + ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s: HTTP %d", what, e.StatusCode)
}

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Unwrap() error { return e.Err }

// malformed wraps err (which may be nil) as an ErrMalformed with a
// description of what was being read.
func malformed(what string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrMalformed, what)
	}
	return fmt.Errorf("%w: %s: %w", ErrMalformed, what, err)
}
