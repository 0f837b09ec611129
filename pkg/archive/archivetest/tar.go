// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package archivetest builds in-memory archives for tests.
package archivetest

import (
	"archive/tar"
	"bytes"
	"compress/gzip"

	"github.com/podman2deb/podman2deb/pkg/archive"
)

// TarFile writes entries to a tar archive, filling in regular file sizes.
func TarFile(entries []archive.TarEntry) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	tw := tar.NewWriter(buf)
	for _, entry := range entries {
		if entry.Header.Typeflag == tar.TypeReg || entry.Header.Typeflag == 0 {
			entry.Header.Size = int64(len(entry.Body))
		}
		if err := entry.WriteTo(tw); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

// TgzFile is TarFile compressed with gzip.
func TgzFile(entries []archive.TarEntry) (*bytes.Buffer, error) {
	buf, err := TarFile(entries)
	if err != nil {
		return nil, err
	}
	zbuf := new(bytes.Buffer)
	w := gzip.NewWriter(zbuf)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return zbuf, nil
}
