// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package archive extracts release archives into billy filesystems.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
)

// Format represents the archive type of a downloaded asset.
type Format int

const (
	UnknownFormat Format = iota
	TarGzFormat
	TarFormat
)

// FormatFromName infers the archive format from a file name.
func FormatFromName(name string) Format {
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return TarGzFormat
	case strings.HasSuffix(name, ".tar"):
		return TarFormat
	default:
		return UnknownFormat
	}
}

// Extract writes the contents of the archive in src to fs.
func Extract(src io.Reader, f Format, fs billy.Filesystem, opt ExtractOptions) error {
	switch f {
	case TarGzFormat:
		gzr, err := gzip.NewReader(src)
		if err != nil {
			return errors.Wrap(err, "initializing gzip reader")
		}
		defer gzr.Close()
		if err := ExtractTar(tar.NewReader(gzr), fs, opt); err != nil {
			return errors.Wrap(err, "extracting tar.gz")
		}
	case TarFormat:
		if err := ExtractTar(tar.NewReader(src), fs, opt); err != nil {
			return errors.Wrap(err, "extracting tar")
		}
	default:
		return errors.New("unsupported archive type")
	}
	return nil
}
