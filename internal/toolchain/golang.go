// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package toolchain prepares the compilers components are built with.
//
// Toolchains expose their settings as environment entries to be passed to
// each command. The process environment is never modified.
package toolchain

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/pkg/archive"
)

// Downloader retrieves url into dst.
type Downloader interface {
	Download(ctx context.Context, url, dst string) error
}

// Go is an unpacked Go distribution with a private build cache.
type Go struct {
	Tag   string
	Root  string
	Cache string
}

// GoArchive is the name of the distribution tarball for tag on this host.
func GoArchive(tag string) string {
	return fmt.Sprintf("%s.linux-%s.tar.gz", tag, runtime.GOARCH)
}

// SetupGo downloads the Go distribution for tag into assetsDir and unpacks it
// there, reusing a previous download or extraction when present.
func SetupGo(ctx context.Context, d Downloader, assetsDir, downloadBase, tag string) (*Go, error) {
	name := GoArchive(tag)
	tarball := filepath.Join(assetsDir, name)
	if err := d.Download(ctx, downloadBase+"/"+name, tarball); err != nil {
		return nil, errors.Wrap(err, "downloading go")
	}
	dir := filepath.Join(assetsDir, tag)
	root := filepath.Join(dir, "go")
	if _, err := os.Stat(filepath.Join(root, "bin", "go")); err != nil {
		if err := extract(tarball, dir); err != nil {
			return nil, errors.Wrapf(err, "extracting %s", name)
		}
		log.Printf("Extracted go [tag=%s,path=%s]\n", tag, root)
	}
	cache, err := os.MkdirTemp("", "gocache-")
	if err != nil {
		return nil, errors.Wrap(err, "creating GOCACHE")
	}
	return &Go{Tag: tag, Root: root, Cache: cache}, nil
}

// extract unpacks tarball into a staging directory next to dir and moves it into place.
func extract(tarball, dir string) error {
	staging, err := os.MkdirTemp(filepath.Dir(dir), ".extract-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)
	f, err := os.Open(tarball)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := archive.Extract(f, archive.TarGzFormat, osfs.New(staging), archive.ExtractOptions{}); err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.Rename(staging, dir)
}

// Bin is the directory holding the go command.
func (g *Go) Bin() string { return filepath.Join(g.Root, "bin") }

// Env returns the environment entries selecting this toolchain.
func (g *Go) Env() []string {
	return []string{
		"PATH=" + g.Bin() + string(os.PathListSeparator) + os.Getenv("PATH"),
		"GOROOT=" + g.Root,
		"GOCACHE=" + g.Cache,
		"GO=" + filepath.Join(g.Bin(), "go"),
	}
}

// Close removes the build cache.
func (g *Go) Close() error {
	return os.RemoveAll(g.Cache)
}
