// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"slices"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/internal/builder"
	"github.com/podman2deb/podman2deb/internal/command/clean"
	"github.com/podman2deb/podman2deb/internal/command/workspace"
	"github.com/podman2deb/podman2deb/internal/debinfo"
	"github.com/podman2deb/podman2deb/internal/debpkg"
	"github.com/podman2deb/podman2deb/internal/execx"
	"github.com/podman2deb/podman2deb/internal/fetch"
	"github.com/podman2deb/podman2deb/internal/plan"
	"github.com/podman2deb/podman2deb/internal/publish"
	"github.com/podman2deb/podman2deb/internal/scm"
	"github.com/podman2deb/podman2deb/internal/toolchain"
	"github.com/podman2deb/podman2deb/pkg/act/cli"
	"github.com/spf13/cobra"
)

// Config holds all configuration for the build command.
type Config struct {
	workspace.Options
	// Tag is the podman release to build. Empty selects the latest.
	Tag string
	// Clean runs "make clean" in each checkout before building it.
	Clean bool
	// Publish is an optional file://, gs://, or s3:// upload location.
	Publish string
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	if err := c.Options.Validate(); err != nil {
		return err
	}
	if c.Publish != "" {
		u, err := url.Parse(c.Publish)
		if err != nil || !slices.Contains([]string{"file", "gs", "s3"}, u.Scheme) {
			return errors.Errorf("publish location must be a file://, gs://, or s3:// URL: %q", c.Publish)
		}
	}
	return nil
}

// SourceControl maintains checkouts, reads their tags, and checks them out.
type SourceControl interface {
	workspace.SourceControl
	builder.Checkouter
}

// Deps holds dependencies for the command.
type Deps struct {
	IO         cli.IO
	Git        SourceControl
	Downloader toolchain.Downloader
	NewRunner  func(sudo bool) execx.Runner
	// LookPath locates host tools such as cargo. Defaults to exec.LookPath.
	LookPath func(string) (string, error)
	NewStore func(ctx context.Context, location string, run publish.Run) (publish.Store, error)
}

func (d *Deps) SetIO(cio cli.IO) { d.IO = cio }

// InitDeps initializes Deps.
func InitDeps(context.Context) (*Deps, error) {
	return &Deps{
		Git:        scm.New(),
		Downloader: fetch.New(os.Stderr),
		NewRunner:  func(sudo bool) execx.Runner { return &execx.ExecRunner{Sudo: sudo} },
		NewStore: func(ctx context.Context, location string, run publish.Run) (publish.Store, error) {
			return publish.StoreFromURL(ctx, location, run, publish.Options{S3Secure: true})
		},
	}, nil
}

// Result describes a completed build.
type Result struct {
	Deb  string
	Plan *plan.Plan
	// Published lists the uploaded object URLs.
	Published []string
}

var note = color.New(color.FgGreen, color.Bold).SprintFunc()

// Handler resolves, builds, and assembles the package.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*Result, error) {
	ws, err := workspace.Open(cfg.Options)
	if err != nil {
		return nil, err
	}
	runner := deps.NewRunner(cfg.Sudo)
	pkgDir := ws.Layout.Pkg()
	if err := clean.RemovePkg(ctx, runner, pkgDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(pkgDir, debpkg.ControlDir), 0755); err != nil {
		return nil, errors.Wrap(err, "creating package tree")
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
	b := &builder.Builder{
		Runner:     runner,
		Checkout:   deps.Git,
		Downloader: deps.Downloader,
		PkgDir:     pkgDir,
		AssetsDir:  ws.Layout.Assets(),
		Clean:      cfg.Clean,
		Out:        deps.IO.Out,
	}
	if err := buildComponents(ctx, b, ws, p, deps.LookPath); err != nil {
		return nil, err
	}
	arch, err := debpkg.HostArchitecture(ctx, runner)
	if err != nil {
		return nil, err
	}
	ctrl := debpkg.NewControl(ws.Info, p, arch)
	ctrl.InstalledSize, err = debpkg.WriteMD5Sums(pkgDir)
	if err != nil {
		return nil, err
	}
	deb, err := debpkg.Assemble(ctx, runner, pkgDir, ws.Layout.Builds(), ctrl)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(deps.IO.Out, "%s %s\n", note("Built"), deb)
	res := &Result{Deb: deb, Plan: p}
	if cfg.Publish != "" {
		res.Published, err = publishOutputs(ctx, deps, cfg.Publish, p, deb, dump)
		if err != nil {
			return nil, err
		}
		for _, u := range res.Published {
			fmt.Fprintf(deps.IO.Out, "%s %s\n", note("Published"), u)
		}
	}
	return res, nil
}

// buildComponents installs every resolved component into the package tree.
func buildComponents(ctx context.Context, b *builder.Builder, ws *workspace.Workspace, p *plan.Plan, lookPath func(string) (string, error)) error {
	state := func(n debinfo.Name) plan.State {
		s, _ := p.State(n)
		return s
	}
	if p.Has(debinfo.Image) {
		if err := b.ContainersConf(ctx, state(debinfo.Image), ws.Info.Registries); err != nil {
			return err
		}
	} else {
		log.Printf("Skipping containers configuration [repo=%s]\n", debinfo.Image)
	}
	if p.Has(debinfo.Mandown) {
		if !p.Has(debinfo.Rust) {
			return errors.Errorf("%s requires a %s release", debinfo.Mandown, debinfo.Rust)
		}
		mandown, err := b.Mandown(ctx, state(debinfo.Mandown))
		if err != nil {
			return err
		}
		rust := &toolchain.Rust{Tag: p.Tag(debinfo.Rust), LookPath: lookPath}
		if p.Has(debinfo.Netavark) {
			if err := b.Netavark(ctx, state(debinfo.Netavark), rust, mandown); err != nil {
				return err
			}
		}
		if p.Has(debinfo.AardvarkDNS) {
			if err := b.AardvarkDNS(ctx, state(debinfo.AardvarkDNS), rust, mandown); err != nil {
				return err
			}
		}
	}
	goRepo, _ := ws.Info.Repo(debinfo.Go)
	g, err := toolchain.SetupGo(ctx, b.Downloader, ws.Layout.Assets(), goRepo.ReleaseBase(), p.Tag(debinfo.Go))
	if err != nil {
		return err
	}
	defer g.Close()
	if p.Has(debinfo.Conmon) {
		if err := b.Conmon(ctx, state(debinfo.Conmon), g); err != nil {
			return err
		}
	}
	if p.Has(debinfo.Passt) {
		if err := b.Passt(ctx, state(debinfo.Passt)); err != nil {
			return err
		}
	}
	if p.Has(debinfo.Runc) {
		if err := b.Runc(ctx, state(debinfo.Runc), g); err != nil {
			return err
		}
	}
	if p.Has(debinfo.Slirp4netns) {
		if err := b.Slirp4netns(ctx, state(debinfo.Slirp4netns)); err != nil {
			return err
		}
	}
	return b.Podman(ctx, state(debinfo.Podman), g)
}

func publishOutputs(ctx context.Context, deps *Deps, location string, p *plan.Plan, deb string, dump []byte) ([]string, error) {
	store, err := deps.NewStore(ctx, location, publish.Run{Version: p.Version, ID: p.RunID})
	if err != nil {
		return nil, err
	}
	var urls []string
	u, err := publish.Upload(ctx, store, deb)
	if err != nil {
		return nil, err
	}
	urls = append(urls, u.String())
	u, err = publish.UploadReader(ctx, store, publish.BuildInfoAsset, bytes.NewReader(dump))
	if err != nil {
		return nil, err
	}
	return append(urls, u.String()), nil
}

// Command creates a new build command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "build [--tag <tag>] [--clean] [--publish <url>]",
		Short: "Build the podman release and its dependencies into a .deb",
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
	set.BoolVar(&cfg.Clean, "clean", false, "run make clean in each checkout before building")
	set.StringVar(&cfg.Publish, "publish", "", "upload the package and build info to a file://, gs://, or s3:// location")
	return set
}
