// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package builder

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/internal/execx"
	"github.com/podman2deb/podman2deb/internal/plan"
)

// unameArch maps GOARCH to the machine names release assets are published under.
var unameArch = map[string]string{
	"amd64":   "x86_64",
	"arm64":   "aarch64",
	"arm":     "armv7l",
	"ppc64le": "ppc64le",
	"s390x":   "s390x",
	"riscv64": "riscv64",
}

// MachineArch returns the uname -m style name of the host architecture.
func MachineArch() string {
	if a, ok := unameArch[runtime.GOARCH]; ok {
		return a
	}
	return runtime.GOARCH
}

// Slirp4netns installs the released static binary for the selected tag.
func (b *Builder) Slirp4netns(ctx context.Context, s plan.State) error {
	if s.Selection == nil {
		return errors.Errorf("%s: no release selected", s.Repo.Name)
	}
	b.title(string(s.Repo.Name))
	name := fmt.Sprintf("slirp4netns-%s", MachineArch())
	url := fmt.Sprintf("%s/%s/%s", s.Repo.ReleaseBase(), s.Selection.Tag, name)
	asset := filepath.Join(b.AssetsDir, name+"-"+s.Selection.Tag)
	if err := b.Downloader.Download(ctx, url, asset); err != nil {
		return errors.Wrap(err, "downloading slirp4netns")
	}
	binDir := filepath.Join(b.PkgDir, "usr", "bin")
	dst := filepath.Join(binDir, "slirp4netns")
	for _, args := range [][]string{
		{"mkdir", "-p", binDir},
		{"cp", asset, dst},
		{"chown", "root:root", dst},
		{"chmod", "0755", dst},
	} {
		if err := b.run(ctx, execx.Cmd{Args: args, Privileged: true}); err != nil {
			return err
		}
	}
	return nil
}

const (
	registriesConf = "registries.conf"
	policyConf     = "default-policy.json"
)

// RegistriesLine renders the unqualified-search-registries setting.
func RegistriesLine(registries []string) string {
	return `unqualified-search-registries=["` + strings.Join(registries, `", "`) + `"]`
}

// ContainersConf installs the registry and signature policy configuration
// from the image repository into etc/containers and lists them as conffiles.
func (b *Builder) ContainersConf(ctx context.Context, s plan.State, registries []string) error {
	if s.Selection == nil {
		return errors.Errorf("%s: no release selected", s.Repo.Name)
	}
	if err := b.Checkout.Checkout(ctx, s.Path, s.Selection.Tag, s.Repo.UsesSubmodules()); err != nil {
		return errors.Wrapf(err, "checking out %s", s.Repo.Name)
	}
	confDir := filepath.Join(b.PkgDir, "etc", "containers")
	debDir := filepath.Join(b.PkgDir, "DEBIAN")
	for _, dir := range []string{confDir, debDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}
	conffiles, err := os.OpenFile(filepath.Join(debDir, "conffiles"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "opening conffiles")
	}
	defer conffiles.Close()
	for _, name := range []string{registriesConf, policyConf} {
		content, err := os.ReadFile(filepath.Join(s.Path, name))
		if os.IsNotExist(err) {
			log.Printf("Configuration file not present [repo=%s,file=%s]\n", s.Repo.Name, name)
			continue
		} else if err != nil {
			return errors.Wrapf(err, "reading %s", name)
		}
		if name == registriesConf && len(registries) > 0 {
			if len(content) > 0 && content[len(content)-1] != '\n' {
				content = append(content, '\n')
			}
			content = append(content, RegistriesLine(registries)+"\n"...)
		}
		dst := filepath.Join(confDir, name)
		if err := os.WriteFile(dst, content, 0644); err != nil {
			return errors.Wrapf(err, "writing %s", dst)
		}
		if err := b.run(ctx, execx.Cmd{Args: []string{"chown", "root:root", dst}, Privileged: true}); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(conffiles, "/etc/containers/%s\n", name); err != nil {
			return errors.Wrap(err, "writing conffiles")
		}
	}
	return conffiles.Close()
}

// CleanSources runs "make clean" in every directory holding a Makefile.
// Failures are logged and do not stop the sweep.
func (b *Builder) CleanSources(ctx context.Context, dirs []string, env []string) {
	for _, dir := range dirs {
		if _, err := os.Stat(filepath.Join(dir, "Makefile")); err != nil {
			continue
		}
		log.Printf("Cleaning [path=%s]\n", dir)
		if _, err := b.make(ctx, dir, env, false, "clean"); err != nil {
			log.Printf("Clean failed [path=%s]: %v\n", dir, err)
		}
	}
}
