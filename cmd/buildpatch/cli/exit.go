// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "strconv"

// ExitError ends a command with a specific exit status after the
// command has reported its own result. main exits with Code and
// prints nothing further.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return "exit status " + strconv.Itoa(e.Code)
}

// ExitCode is the status the process exits with.
func (e *ExitError) ExitCode() int { return e.Code }
