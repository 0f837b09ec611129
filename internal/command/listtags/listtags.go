// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package listtags

import (
	"context"
	"flag"

	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/internal/command/workspace"
	"github.com/podman2deb/podman2deb/internal/debinfo"
	"github.com/podman2deb/podman2deb/internal/scm"
	"github.com/podman2deb/podman2deb/internal/version"
	"github.com/podman2deb/podman2deb/pkg/act/cli"
	"github.com/spf13/cobra"
)

// Config holds all configuration for the list-tags command.
type Config struct {
	workspace.Options
	// Update fetches new tags before listing.
	Update bool
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	return c.Options.Validate()
}

// Deps holds dependencies for the command.
type Deps struct {
	IO  cli.IO
	Git workspace.SourceControl
}

func (d *Deps) SetIO(cio cli.IO) { d.IO = cio }

// InitDeps initializes Deps.
func InitDeps(context.Context) (*Deps, error) {
	return &Deps{Git: scm.New()}, nil
}

// Handler returns the normalized release versions of the anchor component, ascending.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*[]string, error) {
	ws, err := workspace.Open(cfg.Options)
	if err != nil {
		return nil, err
	}
	repo, ok := ws.Info.Repo(debinfo.Anchor)
	if !ok {
		return nil, errors.Errorf("missing repository %q", debinfo.Anchor)
	}
	path := ws.Layout.Source(repo.Name)
	if err := deps.Git.Sync(ctx, path, scm.SyncOptions{URL: repo.GitURL, Submodules: repo.UsesSubmodules(), Update: cfg.Update}); err != nil {
		return nil, err
	}
	tags, err := deps.Git.ListTags(ctx, path)
	if err != nil {
		return nil, err
	}
	vs, err := version.Normalize(tags, version.NormalizeOptions{
		Flatten:      true,
		NoDuplicates: true,
		SkipError:    true,
		Prefix:       repo.Prefix,
	})
	if err != nil {
		return nil, err
	}
	out := version.Strings(vs)
	if out == nil {
		out = []string{}
	}
	return &out, nil
}

// Command creates a new list-tags command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "list-tags [--update]",
		Short: "List the podman releases available to build",
		Args:  cobra.NoArgs,
		RunE: cli.RunJSON(
			&cfg,
			cli.SkipArgs[Config],
			InitDeps,
			Handler,
		),
	}
	cmd.Flags().AddGoFlagSet(flagSet(cmd.Name(), &cfg))
	return cmd
}

// flagSet returns the command-line flags for the Config struct.
func flagSet(name string, cfg *Config) *flag.FlagSet {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	cfg.Options.AddFlags(set)
	set.BoolVar(&cfg.Update, "update", false, "fetch new tags before listing")
	return set
}
