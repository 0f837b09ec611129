// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package gitx provides git helpers for managing source checkouts.
package gitx

import (
	"context"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/internal/uri"
)

// ErrRemoteNotTracked is returned when an existing checkout does not track the desired remote.
var ErrRemoteNotTracked = errors.New("existing repository does not track desired remote")

// sameRemote compares remote URLs canonically, falling back to exact
// comparison for URLs that cannot be canonicalized (e.g. file://).
func sameRemote(a, b string) bool {
	ca, errA := uri.Canonicalize(a)
	cb, errB := uri.Canonicalize(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return ca == cb
}

// Tracks reports whether the repository's origin remote points at remoteURL.
func Tracks(repo *git.Repository, remoteURL string) (bool, error) {
	cfg, err := repo.Config()
	if err != nil {
		return false, err
	}
	remote, ok := cfg.Remotes[git.DefaultRemoteName]
	if !ok {
		return false, nil
	}
	for _, u := range remote.URLs {
		if sameRemote(u, remoteURL) {
			return true, nil
		}
	}
	return false, nil
}

// OpenPath opens the checkout at dir, requiring its origin to track remoteURL.
func OpenPath(dir, remoteURL string) (*git.Repository, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, err
	}
	ok, err := Tracks(repo, remoteURL)
	if err != nil {
		return nil, errors.Wrap(err, "reading repository config")
	}
	if !ok {
		return nil, ErrRemoteNotTracked
	}
	return repo, nil
}

// ClonePath clones opt.URL into dir using the git binary when one is on
// PATH and go-git otherwise.
func ClonePath(ctx context.Context, dir string, opt *git.CloneOptions) (*git.Repository, error) {
	return clonePath(ctx, dir, opt, NativeGitAvailable())
}

func clonePath(ctx context.Context, dir string, opt *git.CloneOptions, native bool) (*git.Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return nil, errors.Wrap(err, "creating sources directory")
	}
	if !native {
		log.Printf("Cloning with go-git [url=%s]\n", opt.URL)
		return git.PlainCloneContext(ctx, dir, false, opt)
	}
	args, err := nativeCloneArgs(opt)
	if err != nil {
		return nil, err
	}
	log.Printf("Cloning with git [url=%s]\n", opt.URL)
	cmd := exec.CommandContext(ctx, "git", append(args, "--", opt.URL, dir)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, errors.Wrapf(err, "git clone: %s", out)
	}
	return git.PlainOpen(dir)
}

// nativeCloneArgs translates the clone options podman2deb uses into git
// flags, rejecting the ones the binary cannot honor without extra setup.
func nativeCloneArgs(opt *git.CloneOptions) ([]string, error) {
	switch {
	case opt.Auth != nil:
		return nil, errors.New("unsupported clone option for native git: Auth")
	case opt.RemoteName != "" && opt.RemoteName != git.DefaultRemoteName:
		return nil, errors.Errorf("unsupported clone option for native git: RemoteName=%s", opt.RemoteName)
	case opt.InsecureSkipTLS || len(opt.CABundle) > 0:
		return nil, errors.New("unsupported clone option for native git: TLS settings")
	}
	args := []string{"clone"}
	if opt.RecurseSubmodules != git.NoRecurseSubmodules {
		args = append(args, "--recurse-submodules")
	}
	if opt.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(opt.Depth))
	}
	if opt.Tags == git.NoTags {
		args = append(args, "--no-tags")
	}
	if opt.ReferenceName != "" {
		args = append(args, "--branch", opt.ReferenceName.Short())
	}
	if opt.NoCheckout {
		args = append(args, "--no-checkout")
	}
	return args, nil
}

// FetchTags fetches all tags from origin. An up-to-date remote is not an error.
func FetchTags(ctx context.Context, repo *git.Repository) error {
	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: git.DefaultRemoteName,
		RefSpecs:   []config.RefSpec{"+refs/tags/*:refs/tags/*"},
		Tags:       git.AllTags,
		Force:      true,
	})
	if err == git.NoErrAlreadyUpToDate {
		return nil
	}
	return err
}

var (
	nativeGitAvailable     bool
	nativeGitAvailableOnce sync.Once
)

// NativeGitAvailable returns true if the native git command is available in PATH.
func NativeGitAvailable() bool {
	nativeGitAvailableOnce.Do(func() {
		_, err := exec.LookPath("git")
		nativeGitAvailable = err == nil
	})
	return nativeGitAvailable
}

// UpdateSubmodules initializes and updates submodules for the given repository.
// If the repository has no submodules, this is a no-op.
func UpdateSubmodules(ctx context.Context, repo *git.Repository, recurse git.SubmoduleRescursivity) error {
	wt, err := repo.Worktree()
	if err != nil {
		return errors.Wrap(err, "getting worktree")
	}
	subs, err := wt.Submodules()
	if err != nil {
		return errors.Wrap(err, "reading submodules")
	}
	if len(subs) == 0 {
		return nil
	}
	return subs.UpdateContext(ctx, &git.SubmoduleUpdateOptions{
		Init:              true,
		RecurseSubmodules: recurse,
	})
}
