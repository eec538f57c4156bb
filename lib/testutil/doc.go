// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for buildpatch
// packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select against a timer) so that concurrency
// tests do not manage timers themselves. These are the only place
// in the test suite where real wall-clock timeouts are used.
//
// [ListFiles] and [WriteFiles] snapshot and seed directory trees, which
// is how the chunk cache and extraction tests assert on disk layout.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no buildpatch-internal dependencies.
package testutil
