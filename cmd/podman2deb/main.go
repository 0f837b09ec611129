// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/podman2deb/podman2deb/internal/command/build"
	"github.com/podman2deb/podman2deb/internal/command/buildinfo"
	"github.com/podman2deb/podman2deb/internal/command/clean"
	"github.com/podman2deb/podman2deb/internal/command/listtags"
	"github.com/podman2deb/podman2deb/internal/command/update"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "podman2deb",
	Short: "Build podman and its runtime dependencies from source into a .deb",
	// Errors are reported once by main.
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.AddCommand(update.Command())
	rootCmd.AddCommand(clean.Command())
	rootCmd.AddCommand(listtags.Command())
	rootCmd.AddCommand(buildinfo.Command())
	rootCmd.AddCommand(build.Command())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
