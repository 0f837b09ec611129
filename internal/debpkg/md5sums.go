// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package debpkg assembles the package tree into a .deb archive.
package debpkg

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ControlDir is the metadata directory at the root of the package tree.
const ControlDir = "DEBIAN"

// WriteMD5Sums records the digest of every regular file under usr/ in
// DEBIAN/md5sums and returns the installed size in KiB.
func WriteMD5Sums(pkgDir string) (int64, error) {
	if err := os.MkdirAll(filepath.Join(pkgDir, ControlDir), 0755); err != nil {
		return 0, errors.Wrap(err, "creating control dir")
	}
	f, err := os.Create(filepath.Join(pkgDir, ControlDir, "md5sums"))
	if err != nil {
		return 0, errors.Wrap(err, "creating md5sums")
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	var size int64
	root := filepath.Join(pkgDir, "usr")
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		size += diskUsage(fi)
		sum, err := md5File(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(pkgDir, path)
		if err != nil {
			return err
		}
		_, err = w.WriteString(sum + "  " + filepath.ToSlash(rel) + "\n")
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, "hashing package contents")
	}
	if err := w.Flush(); err != nil {
		return 0, errors.Wrap(err, "writing md5sums")
	}
	return size / 1024, f.Close()
}

func md5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "reading %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
