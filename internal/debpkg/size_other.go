// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package debpkg

import "os"

func diskUsage(fi os.FileInfo) int64 {
	return fi.Size()
}
