// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package workspacetest provides in-memory source checkouts for command tests.
package workspacetest

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/internal/gitx/gitxtest"
	"github.com/podman2deb/podman2deb/internal/scm"
)

// untagged is the history cloned for components with no fixture.
const untagged = `
commits:
  - id: init
    message: "Initial commit"
    date: "2020-01-01T00:00:00Z"
    files:
      README: "untagged\n"
`

// Podman is a minimal anchor history with one release.
const Podman = `
commits:
  - id: c1
    message: "Release 4.9.0"
    date: "2024-01-22T10:00:00Z"
    annotated: [v4.9.0]
    files:
      Makefile: "all:\n"
  - id: c2
    parent: c1
    message: "Release 4.9.1-rc1"
    date: "2024-02-01T10:00:00Z"
    tag: v4.9.1-rc1
    files:
      VERSION: "4.9.1-rc1"
`

// Go is a toolchain history predating the anchor release.
const Go = `
commits:
  - id: c1
    message: "go1.21.6"
    date: "2024-01-09T10:00:00Z"
    tag: go1.21.6
    files:
      VERSION: "go1.21.6"
`

// Rust is a toolchain history predating the anchor release.
const Rust = `
commits:
  - id: c1
    message: "1.75.0"
    date: "2023-12-28T10:00:00Z"
    tag: 1.75.0
    files:
      VERSION: "1.75.0"
`

// Git is a scm.Git whose clones are created from YAML histories.
type Git struct {
	*scm.Git
	mu sync.Mutex
	// Cloned records each clone path in order.
	Cloned []string
	repos  map[string]*git.Repository
}

// NewGit returns a Git that clones fixtures[base name of path], or an
// untagged history when no fixture exists.
func NewGit(fixtures map[string]string) *Git {
	g := &Git{repos: make(map[string]*git.Repository)}
	g.Git = &scm.Git{
		Open: func(path string) (*git.Repository, error) {
			g.mu.Lock()
			defer g.mu.Unlock()
			r, ok := g.repos[path]
			if !ok {
				return nil, git.ErrRepositoryNotExists
			}
			return r, nil
		},
		Clone: func(ctx context.Context, path string, opt *git.CloneOptions) (*git.Repository, error) {
			spec, ok := fixtures[filepath.Base(path)]
			if !ok {
				spec = untagged
			}
			r, err := gitxtest.CreateRepoFromYAML(spec, &gitxtest.RepositoryOptions{
				Storer:   memory.NewStorage(),
				Worktree: memfs.New(),
				Remote:   opt.URL,
			})
			if err != nil {
				return nil, errors.Wrapf(err, "creating %s", path)
			}
			g.mu.Lock()
			defer g.mu.Unlock()
			g.repos[path] = r.Repository
			g.Cloned = append(g.Cloned, path)
			return r.Repository, nil
		},
	}
	return g
}
