// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/tar"
	"io"
	"os"
	"path"
	"slices"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
)

// TarEntry represents an entry in a tar archive.
type TarEntry struct {
	*tar.Header
	Body []byte
}

// WriteTo writes the TarEntry to a tar writer.
func (e TarEntry) WriteTo(tw *tar.Writer) error {
	if err := tw.WriteHeader(e.Header); err != nil {
		return err
	}
	if _, err := tw.Write(e.Body); err != nil {
		return err
	}
	return nil
}

// ExtractOptions provides options modifying ExtractTar behavior.
type ExtractOptions struct {
	// SubDir is a directory within the TAR to extract relative to the provided filesystem.
	// Entries outside of SubDir are skipped.
	SubDir string
}

// relPath maps an archive name onto fs, reporting false for names outside subdir.
func relPath(subdir, name string) (string, bool) {
	name = path.Clean(strings.TrimPrefix(name, "/"))
	if subdir != "" {
		base := path.Clean(subdir)
		if name == base {
			return "", false
		}
		if !strings.HasPrefix(name, base+"/") {
			return "", false
		}
		name = strings.TrimPrefix(name, base+"/")
	}
	if name == "." || slices.Contains(strings.Split(name, "/"), "..") {
		return "", false
	}
	return name, true
}

// ExtractTar writes the contents of a tar to a filesystem.
//
// Regular files keep their permission bits. Symlink targets are written as
// recorded in the archive. Hard links are materialized as copies of their
// target, which must precede them in the archive.
func ExtractTar(tr *tar.Reader, fs billy.Filesystem, opt ExtractOptions) error {
	for {
		h, err := tr.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		p, ok := relPath(opt.SubDir, h.Name)
		if !ok {
			continue // Unread bodies are skipped by the next call to Next.
		}
		switch h.Typeflag {
		case tar.TypeDir:
			if err := fs.MkdirAll(p, h.FileInfo().Mode().Perm()|0700); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := fs.MkdirAll(path.Dir(p), 0755); err != nil {
				return err
			}
			if err := fs.Symlink(h.Linkname, p); err != nil {
				return errors.Wrapf(err, "linking %s", p)
			}
		case tar.TypeLink:
			target, ok := relPath(opt.SubDir, h.Linkname)
			if !ok {
				return errors.Errorf("hard link %s escapes extraction root", h.Name)
			}
			if err := copyFile(fs, target, p); err != nil {
				return errors.Wrapf(err, "linking %s", p)
			}
		case tar.TypeReg, tar.TypeRegA:
			if err := writeFile(fs, p, tr, h.FileInfo().Mode().Perm()); err != nil {
				return errors.Wrapf(err, "writing %s", p)
			}
		default:
			// Devices, fifos and extended header types have no place in a release tarball.
			continue
		}
	}
}

func writeFile(fs billy.Filesystem, p string, r io.Reader, mode os.FileMode) error {
	if err := fs.MkdirAll(path.Dir(p), 0755); err != nil {
		return err
	}
	f, err := fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func copyFile(fs billy.Filesystem, src, dst string) error {
	fi, err := fs.Stat(src)
	if err != nil {
		return err
	}
	f, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeFile(fs, dst, f, fi.Mode().Perm())
}
