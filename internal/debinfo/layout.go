// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package debinfo

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Layout is the working directory structure of a build.
type Layout struct {
	Root string
}

func (l Layout) Sources() string { return filepath.Join(l.Root, "sources") }
func (l Layout) Assets() string  { return filepath.Join(l.Root, "assets") }
func (l Layout) Pkg() string     { return filepath.Join(l.Root, "pkg") }
func (l Layout) Builds() string  { return filepath.Join(l.Root, "builds") }

// Source is the checkout directory of a component.
func (l Layout) Source(name Name) string {
	return filepath.Join(l.Sources(), string(name))
}

// Ensure creates the sources and assets directories.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.Sources(), l.Assets()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}
	return nil
}
