// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package clean

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/internal/builder"
	"github.com/podman2deb/podman2deb/internal/command/workspace"
	"github.com/podman2deb/podman2deb/internal/debinfo"
	"github.com/podman2deb/podman2deb/internal/execx"
	"github.com/podman2deb/podman2deb/internal/fetch"
	"github.com/podman2deb/podman2deb/internal/plan"
	"github.com/podman2deb/podman2deb/internal/resolve"
	"github.com/podman2deb/podman2deb/internal/scm"
	"github.com/podman2deb/podman2deb/internal/toolchain"
	"github.com/podman2deb/podman2deb/pkg/act"
	"github.com/podman2deb/podman2deb/pkg/act/cli"
	"github.com/spf13/cobra"
)

// Config holds all configuration for the clean command.
type Config struct {
	workspace.Options
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	return c.Options.Validate()
}

// Deps holds dependencies for the command.
type Deps struct {
	IO         cli.IO
	Git        resolve.SourceControl
	Downloader toolchain.Downloader
	NewRunner  func(sudo bool) execx.Runner
}

func (d *Deps) SetIO(cio cli.IO) { d.IO = cio }

// InitDeps initializes Deps.
func InitDeps(context.Context) (*Deps, error) {
	return &Deps{
		Git:        scm.New(),
		Downloader: fetch.New(os.Stderr),
		NewRunner:  func(sudo bool) execx.Runner { return &execx.ExecRunner{Sudo: sudo} },
	}, nil
}

// RemovePkg deletes the package tree, which holds root-owned files after a build.
func RemovePkg(ctx context.Context, runner execx.Runner, dir string) error {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	_, err := runner.Run(ctx, execx.Cmd{Args: []string{"rm", "-rf", dir}, Privileged: true})
	return errors.Wrap(err, "removing package tree")
}

// Handler removes the package tree and runs "make clean" in every checkout
// using the latest Go toolchain.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*act.NoOutput, error) {
	ws, err := workspace.Open(cfg.Options)
	if err != nil {
		return nil, err
	}
	runner := deps.NewRunner(cfg.Sudo)
	if err := RemovePkg(ctx, runner, ws.Layout.Pkg()); err != nil {
		return nil, err
	}
	goRepo, ok := ws.Info.Repo(debinfo.Go)
	if !ok {
		return nil, errors.Errorf("missing repository %q", debinfo.Go)
	}
	rr, err := plan.Repository(goRepo, ws.Layout.Source(debinfo.Go))
	if err != nil {
		return nil, err
	}
	r := &resolve.Resolver{SCM: deps.Git}
	sel, err := r.ResolveLatest(ctx, rr)
	if err != nil {
		return nil, errors.Wrap(err, "resolving latest go")
	}
	g, err := toolchain.SetupGo(ctx, deps.Downloader, ws.Layout.Assets(), goRepo.ReleaseBase(), sel.Tag)
	if err != nil {
		return nil, err
	}
	defer g.Close()
	var dirs []string
	for _, n := range debinfo.Names {
		dirs = append(dirs, ws.Layout.Source(n))
	}
	b := &builder.Builder{Runner: runner}
	b.CleanSources(ctx, dirs, g.Env())
	log.Printf("Cleaned workspace [workdir=%s,go=%s]\n", ws.Layout.Root, sel.Tag)
	return &act.NoOutput{}, nil
}

// Command creates a new clean command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "clean [--sudo]",
		Short: "Remove the package tree and clean every source checkout",
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
