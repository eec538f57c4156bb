// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package filestream

import "os"

// preallocate sizes file to size bytes.
func preallocate(file *os.File, size int64) error {
	return file.Truncate(size)
}
