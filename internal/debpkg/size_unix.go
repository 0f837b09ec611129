// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package debpkg

import (
	"os"
	"syscall"
)

// diskUsage is the space allocated to the file, as reported by du.
func diskUsage(fi os.FileInfo) int64 {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return int64(st.Blocks) * 512
	}
	return fi.Size()
}
