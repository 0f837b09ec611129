// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package debpkg

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/internal/execx"
	"github.com/podman2deb/podman2deb/pkg/registry/debian/control"
)

// HostArchitecture asks dpkg for the Debian name of the build architecture.
func HostArchitecture(ctx context.Context, runner execx.Runner) (string, error) {
	out, err := runner.Run(ctx, execx.Cmd{Args: []string{"dpkg", "--print-architecture"}})
	if err != nil {
		return "", errors.Wrap(err, "querying host architecture")
	}
	arch := strings.TrimSpace(out)
	if arch == "" {
		return "", errors.New("dpkg reported an empty architecture")
	}
	return arch, nil
}

// DebName is the file name of the archive built for c.
func DebName(c Control) string {
	return fmt.Sprintf("%s-%s-%s.deb", c.Package, c.Architecture, c.Version)
}

// verifyControl reads back the control file at path and checks it names the
// package described by c.
func verifyControl(path string, c Control) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "reading control file")
	}
	defer f.Close()
	cf, err := control.Parse(f)
	if err != nil {
		return errors.Wrap(err, "parsing control file")
	}
	if len(cf.Stanzas) != 1 {
		return errors.Errorf("control file has %d stanzas, want 1", len(cf.Stanzas))
	}
	for name, want := range map[string]string{"Package": c.Package, "Version": c.Version, "Architecture": c.Architecture} {
		v, ok := cf.Get(name)
		if got, err := v.AsSimple(); !ok || err != nil || got != want {
			return errors.Errorf("control file %s = %q, want %q", name, v.AsMultiline(), want)
		}
	}
	return nil
}

// Assemble writes DEBIAN/control for the tree at pkgDir and builds the
// archive into buildsDir, returning its path.
func Assemble(ctx context.Context, runner execx.Runner, pkgDir, buildsDir string, c Control) (string, error) {
	if err := os.MkdirAll(filepath.Join(pkgDir, ControlDir), 0755); err != nil {
		return "", errors.Wrap(err, "creating control dir")
	}
	f, err := os.Create(filepath.Join(pkgDir, ControlDir, "control"))
	if err != nil {
		return "", errors.Wrap(err, "creating control file")
	}
	if err := c.Render(f); err != nil {
		f.Close()
		return "", errors.Wrap(err, "writing control file")
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "writing control file")
	}
	if err := verifyControl(filepath.Join(pkgDir, ControlDir, "control"), c); err != nil {
		return "", err
	}
	if err := os.MkdirAll(buildsDir, 0755); err != nil {
		return "", errors.Wrap(err, "creating builds dir")
	}
	deb := filepath.Join(buildsDir, DebName(c))
	log.Printf("Building package [package=%s,version=%s,path=%s]\n", c.Package, c.Version, deb)
	if _, err := runner.Run(ctx, execx.Cmd{Args: []string{"dpkg-deb", "-b", pkgDir, deb}}); err != nil {
		return "", errors.Wrap(err, "building package")
	}
	return deb, nil
}
