// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package workspace holds the configuration and directory layout shared by
// every command.
package workspace

import (
	"context"
	"flag"
	"log"

	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/internal/debinfo"
	"github.com/podman2deb/podman2deb/internal/plan"
	"github.com/podman2deb/podman2deb/internal/resolve"
	"github.com/podman2deb/podman2deb/internal/scm"
	"golang.org/x/sync/errgroup"
)

// DefaultConfig is the configuration file read when --config is not set.
const DefaultConfig = "config/debinfo.yaml"

// Options are the flags common to every command.
type Options struct {
	ConfigPath string
	WorkDir    string
	// Sudo prefixes privileged steps with "sudo -E".
	Sudo bool
	// Jobs bounds the number of repositories synced at once.
	Jobs int
}

// AddFlags registers the common flags on set.
func (o *Options) AddFlags(set *flag.FlagSet) {
	set.StringVar(&o.ConfigPath, "config", DefaultConfig, "path to the package configuration")
	set.StringVar(&o.WorkDir, "workdir", ".", "directory holding sources, assets, pkg, and builds")
	set.BoolVar(&o.Sudo, "sudo", false, "run privileged steps through sudo -E")
	set.IntVar(&o.Jobs, "jobs", 4, "number of repositories to sync in parallel")
}

// Validate ensures the options are usable.
func (o Options) Validate() error {
	if o.ConfigPath == "" {
		return errors.New("config is required")
	}
	if o.WorkDir == "" {
		return errors.New("workdir is required")
	}
	if o.Jobs < 1 {
		return errors.New("jobs must be at least 1")
	}
	return nil
}

// Syncer maintains a source checkout.
type Syncer interface {
	Sync(ctx context.Context, path string, opt scm.SyncOptions) error
}

// SourceControl maintains checkouts and reads their tags.
type SourceControl interface {
	Syncer
	resolve.SourceControl
}

// Workspace is a loaded configuration and its working directories.
type Workspace struct {
	Info   *debinfo.Info
	Layout debinfo.Layout
}

// Open loads the configuration and creates the working directories.
func Open(o Options) (*Workspace, error) {
	info, err := debinfo.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	l := debinfo.Layout{Root: o.WorkDir}
	if err := l.Ensure(); err != nil {
		return nil, err
	}
	return &Workspace{Info: info, Layout: l}, nil
}

// Sync clones every missing repository and, when update is set, fetches the
// tags of existing ones. At most parallelism repositories sync at once.
func (w *Workspace) Sync(ctx context.Context, s Syncer, update bool, parallelism int) error {
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for _, r := range w.Info.Repos {
		g.Go(func() error {
			log.Printf("Syncing repository [repo=%s,url=%s]\n", r.Name, r.GitURL)
			err := s.Sync(ctx, w.Layout.Source(r.Name), scm.SyncOptions{
				URL:        r.GitURL,
				Submodules: r.UsesSubmodules(),
				Update:     update,
			})
			return errors.Wrapf(err, "syncing %s", r.Name)
		})
	}
	return g.Wait()
}

// Resolve selects the release of every component for the anchor tag, or for
// the latest anchor release when tag is empty.
func (w *Workspace) Resolve(ctx context.Context, sc resolve.SourceControl, tag string) (*plan.Plan, error) {
	return plan.Resolve(ctx, w.Info, w.Layout, &resolve.Resolver{SCM: sc}, tag)
}
