// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package buildinfo

import (
	"context"
	"flag"
	"fmt"

	"github.com/podman2deb/podman2deb/internal/command/workspace"
	"github.com/podman2deb/podman2deb/internal/scm"
	"github.com/podman2deb/podman2deb/pkg/act"
	"github.com/podman2deb/podman2deb/pkg/act/cli"
	"github.com/spf13/cobra"
)

// Config holds all configuration for the build-info command.
type Config struct {
	workspace.Options
	// Tag is the podman release to anchor on. Empty selects the latest.
	Tag string
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

// Handler resolves the release of every component and prints the result.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*act.NoOutput, error) {
	ws, err := workspace.Open(cfg.Options)
	if err != nil {
		return nil, err
	}
	if err := ws.Sync(ctx, deps.Git, false, cfg.Jobs); err != nil {
		return nil, err
	}
	p, err := ws.Resolve(ctx, deps.Git, cfg.Tag)
	if err != nil {
		return nil, err
	}
	dump, err := p.Dump()
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(deps.IO.Out, string(dump))
	return &act.NoOutput{}, nil
}

// Command creates a new build-info command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "build-info [--tag <tag>]",
		Short: "Show the component releases a build would use",
		Args:  cobra.NoArgs,
		RunE: cli.RunE(
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
	set.StringVar(&cfg.Tag, "tag", "", "podman release to build, defaults to the latest")
	return set
}
