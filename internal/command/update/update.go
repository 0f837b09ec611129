// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"context"
	"flag"
	"fmt"

	"github.com/fatih/color"
	"github.com/podman2deb/podman2deb/internal/command/workspace"
	"github.com/podman2deb/podman2deb/internal/scm"
	"github.com/podman2deb/podman2deb/pkg/act"
	"github.com/podman2deb/podman2deb/pkg/act/cli"
	"github.com/spf13/cobra"
)

// Config holds all configuration for the update command.
type Config struct {
	workspace.Options
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	return c.Options.Validate()
}

// Deps holds dependencies for the command.
type Deps struct {
	IO  cli.IO
	Git workspace.Syncer
}

func (d *Deps) SetIO(cio cli.IO) { d.IO = cio }

// InitDeps initializes Deps.
func InitDeps(context.Context) (*Deps, error) {
	return &Deps{Git: scm.New()}, nil
}

// Handler clones missing repositories and fetches new tags for existing ones.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*act.NoOutput, error) {
	ws, err := workspace.Open(cfg.Options)
	if err != nil {
		return nil, err
	}
	if err := ws.Sync(ctx, deps.Git, true, cfg.Jobs); err != nil {
		return nil, err
	}
	fmt.Fprintf(deps.IO.Out, "%s %d repositories in %s\n", color.GreenString("Updated"), len(ws.Info.Repos), ws.Layout.Sources())
	return &act.NoOutput{}, nil
}

// Command creates a new update command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "update [--config <path>] [--workdir <dir>]",
		Short: "Clone or fetch the sources of every component",
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
	return set
}
