// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package toolchain

import (
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/internal/execx"
)

// ErrNoCargo is returned when no rust installation is available.
var ErrNoCargo = errors.New(`rust needs to be installed on your system:
	curl --proto '=https' --tlsv1.2 -sSf https://sh.rustup.rs | sh
	. "$HOME/.cargo/env"`)

// Rust is a rustup-managed toolchain pinned per source directory.
type Rust struct {
	Tag string
	// LookPath defaults to exec.LookPath.
	LookPath func(string) (string, error)
}

// Prepare pins dir to the toolchain with rustup and returns the active compiler version.
func (r *Rust) Prepare(ctx context.Context, runner execx.Runner, dir string) (string, error) {
	lookPath := r.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath("cargo"); err != nil {
		return "", ErrNoCargo
	}
	if _, err := runner.Run(ctx, execx.Cmd{Dir: dir, Args: []string{"rustup", "override", "set", r.Tag}}); err != nil {
		return "", errors.Wrapf(err, "pinning rust %s", r.Tag)
	}
	out, err := runner.Run(ctx, execx.Cmd{Dir: dir, Args: []string{"rustc", "--version"}})
	if err != nil {
		return "", errors.Wrap(err, "checking rustc")
	}
	return strings.TrimSpace(out), nil
}
