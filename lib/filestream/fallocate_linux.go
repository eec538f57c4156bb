// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package filestream

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// preallocate reserves size bytes for file. Filesystems without
// fallocate support get a sparse file of the right length instead.
func preallocate(file *os.File, size int64) error {
	if size == 0 {
		return nil
	}
	err := unix.Fallocate(int(file.Fd()), 0, 0, size)
	if errors.Is(err, unix.EOPNOTSUPP) || errors.Is(err, unix.ENOSYS) {
		return file.Truncate(size)
	}
	return err
}
