// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"os"
)

// exitCoder is implemented by errors that carry their own exit status.
// Commands that already printed their result (verify listing
// mismatches) return one so no extra "error:" line is written.
type exitCoder interface {
	ExitCode() int
}

// Exit terminates the process for a non-nil err. Errors carrying an
// exit code exit silently with that code; any other error is reported
// through [Fatal]. A nil err returns normally.
func Exit(err error) {
	if err == nil {
		return
	}
	var coder exitCoder
	if errors.As(err, &coder) {
		os.Exit(coder.ExitCode())
	}
	Fatal(err)
}

// Fatal writes "error: err" to stderr and exits with code 1.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
