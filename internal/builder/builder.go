// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package builder compiles and installs each component into the package tree.
package builder

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/internal/execx"
	"github.com/podman2deb/podman2deb/internal/plan"
	"github.com/podman2deb/podman2deb/internal/toolchain"
)

var banner = color.New(color.FgCyan, color.Bold).SprintFunc()

// Checkouter moves a source checkout to a tag.
type Checkouter interface {
	Checkout(ctx context.Context, path, tag string, submodules bool) error
}

// Builder runs the per-component build recipes.
type Builder struct {
	Runner     execx.Runner
	Checkout   Checkouter
	Downloader toolchain.Downloader
	PkgDir     string
	AssetsDir  string
	// Clean runs "make clean" before each build.
	Clean bool
	// Out receives the banner printed before each component.
	Out io.Writer
}

func (b *Builder) title(name string) {
	if b.Out == nil {
		return
	}
	line := strings.Repeat("#", 28)
	fmt.Fprintf(b.Out, "\n%s\n%s\n%s\n", banner(line), banner("# INSTALLING "+strings.ToUpper(name)), banner(line))
}

// prepare checks out the selected tag and optionally cleans the tree.
func (b *Builder) prepare(ctx context.Context, s plan.State, env []string) error {
	if s.Selection == nil {
		return errors.Errorf("%s: no release selected", s.Repo.Name)
	}
	log.Printf("Preparing source [repo=%s,tag=%s,path=%s]\n", s.Repo.Name, s.Selection.Tag, s.Path)
	if err := b.Checkout.Checkout(ctx, s.Path, s.Selection.Tag, s.Repo.UsesSubmodules()); err != nil {
		return errors.Wrapf(err, "checking out %s", s.Repo.Name)
	}
	if b.Clean {
		if _, err := b.make(ctx, s.Path, env, false, "clean"); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) env(extra ...[]string) []string {
	env := []string{"DESTDIR=" + b.PkgDir}
	for _, e := range extra {
		env = append(env, e...)
	}
	return env
}

func (b *Builder) make(ctx context.Context, dir string, env []string, privileged bool, args ...string) (string, error) {
	return b.Runner.Run(ctx, execx.Cmd{
		Dir:        dir,
		Args:       append([]string{"make"}, args...),
		Env:        env,
		Privileged: privileged,
	})
}

func (b *Builder) run(ctx context.Context, c execx.Cmd) error {
	_, err := b.Runner.Run(ctx, c)
	return err
}

// Mandown builds the man page generator used by the rust components and
// returns the path of its binary.
func (b *Builder) Mandown(ctx context.Context, s plan.State) (string, error) {
	env := b.env()
	b.title(string(s.Repo.Name))
	if err := b.prepare(ctx, s, env); err != nil {
		return "", err
	}
	if _, err := b.make(ctx, s.Path, env, false); err != nil {
		return "", err
	}
	mdn := filepath.Join(s.Path, "mdn")
	if err := b.run(ctx, execx.Cmd{Dir: s.Path, Args: []string{"chmod", "+x", mdn}}); err != nil {
		return "", err
	}
	return mdn, nil
}

func (b *Builder) rustComponent(ctx context.Context, s plan.State, rust *toolchain.Rust, mandown string, docs bool) error {
	env := b.env([]string{"MANDOWN=" + mandown})
	b.title(string(s.Repo.Name))
	if _, err := rust.Prepare(ctx, b.Runner, s.Path); err != nil {
		return err
	}
	if err := b.prepare(ctx, s, env); err != nil {
		return err
	}
	if _, err := b.make(ctx, s.Path, env, false); err != nil {
		return err
	}
	if docs {
		if _, err := b.make(ctx, s.Path, env, false, "docs"); err != nil {
			return err
		}
	}
	_, err := b.make(ctx, s.Path, env, true, "install")
	return err
}

// Netavark builds the container network stack.
func (b *Builder) Netavark(ctx context.Context, s plan.State, rust *toolchain.Rust, mandown string) error {
	return b.rustComponent(ctx, s, rust, mandown, true)
}

// AardvarkDNS builds the container DNS server.
func (b *Builder) AardvarkDNS(ctx context.Context, s plan.State, rust *toolchain.Rust, mandown string) error {
	return b.rustComponent(ctx, s, rust, mandown, false)
}

// ignorableToolsOutput matches make output from trees with nothing to do for install.tools.
var ignorableToolsOutput = []string{
	"No rule to make target 'install.tools'",
	"Nothing to be done for 'all'",
}

// Conmon builds the container monitor.
func (b *Builder) Conmon(ctx context.Context, s plan.State, g *toolchain.Go) error {
	env := b.env(g.Env())
	b.title(string(s.Repo.Name))
	if err := b.prepare(ctx, s, env); err != nil {
		return err
	}
	if _, err := b.make(ctx, s.Path, env, false); err != nil {
		return err
	}
	if fi, err := os.Stat(filepath.Join(s.Path, "tools")); err == nil && fi.IsDir() {
		out, err := b.make(ctx, s.Path, env, false, "install.tools")
		if err != nil && !containsAny(out, ignorableToolsOutput) {
			return err
		}
	}
	if _, err := b.make(ctx, s.Path, env, true, "podman"); err != nil {
		return err
	}
	md2man, err := findMD2Man(s.Path, env)
	if err != nil {
		return err
	}
	_, err = b.make(ctx, s.Path, append(env, "GOMD2MAN="+md2man), true, "install")
	return err
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// findMD2Man locates go-md2man on the toolchain PATH or where install.tools places it.
func findMD2Man(dir string, env []string) (string, error) {
	path, _ := execx.LookupEnv(env, "PATH")
	dirs := []string{path, filepath.Join(dir, "tools", "build")}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "go", "bin"))
	}
	p, err := execx.LookPath("go-md2man", strings.Join(dirs, string(os.PathListSeparator)))
	return p, errors.Wrap(err, "locating go-md2man")
}

// Passt builds the user-mode networking backend.
func (b *Builder) Passt(ctx context.Context, s plan.State) error {
	env := b.env()
	b.title(string(s.Repo.Name))
	if err := b.prepare(ctx, s, env); err != nil {
		return err
	}
	if _, err := b.make(ctx, s.Path, env, false); err != nil {
		return err
	}
	_, err := b.make(ctx, s.Path, env, true, "install")
	return err
}

// Runc builds the OCI runtime.
func (b *Builder) Runc(ctx context.Context, s plan.State, g *toolchain.Go) error {
	env := b.env(g.Env())
	b.title(string(s.Repo.Name))
	if err := b.prepare(ctx, s, env); err != nil {
		return err
	}
	if _, err := b.make(ctx, s.Path, env, false, "BUILDTAGS=selinux apparmor seccomp"); err != nil {
		return err
	}
	_, err := b.make(ctx, s.Path, env, true, "install")
	return err
}

// Podman builds the container engine.
func (b *Builder) Podman(ctx context.Context, s plan.State, g *toolchain.Go) error {
	env := b.env(g.Env())
	b.title(string(s.Repo.Name))
	if err := b.prepare(ctx, s, env); err != nil {
		return err
	}
	if _, err := b.make(ctx, s.Path, env, false, "BUILDTAGS=exclude_graphdriver_devicemapper apparmor selinux seccomp systemd"); err != nil {
		return err
	}
	_, err := b.make(ctx, s.Path, env, true, "install")
	return err
}
