// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package scm implements source control operations on local checkouts.
package scm

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/internal/gitx"
	"github.com/podman2deb/podman2deb/internal/iterx"
	"github.com/podman2deb/podman2deb/internal/resolve"
)

// Opener opens the repository checked out at path.
type Opener func(path string) (*git.Repository, error)

// Cloner clones a repository into path.
type Cloner func(ctx context.Context, path string, opt *git.CloneOptions) (*git.Repository, error)

// Git is a go-git backed source control collaborator.
type Git struct {
	Open  Opener
	Clone Cloner
}

var _ resolve.SourceControl = &Git{}

// New returns a Git operating on on-disk checkouts.
func New() *Git {
	return &Git{Open: git.PlainOpen, Clone: gitx.ClonePath}
}

// SyncOptions configures Sync.
type SyncOptions struct {
	URL        string
	Submodules bool
	// Update fetches all tags when the checkout already exists.
	Update bool
}

// Sync ensures a checkout of opt.URL exists at path.
func (g *Git) Sync(ctx context.Context, path string, opt SyncOptions) error {
	repo, err := g.Open(path)
	switch {
	case err == git.ErrRepositoryNotExists:
		log.Printf("Cloning [url=%s,path=%s]\n", opt.URL, path)
		co := &git.CloneOptions{URL: opt.URL, Tags: git.AllTags}
		if opt.Submodules {
			co.RecurseSubmodules = git.DefaultSubmoduleRecursionDepth
		}
		if _, err := g.Clone(ctx, path, co); err != nil {
			return errors.Wrapf(err, "cloning %s", opt.URL)
		}
		return nil
	case err != nil:
		return errors.Wrapf(err, "opening %s", path)
	}
	ok, err := gitx.Tracks(repo, opt.URL)
	if err != nil {
		return errors.Wrapf(err, "reading config of %s", path)
	}
	if !ok {
		return errors.Wrapf(gitx.ErrRemoteNotTracked, "%s does not track %s", path, opt.URL)
	}
	if !opt.Update {
		return nil
	}
	log.Printf("Fetching tags [url=%s,path=%s]\n", opt.URL, path)
	return errors.Wrapf(gitx.FetchTags(ctx, repo), "fetching %s", opt.URL)
}

// Exists reports whether path holds a git checkout.
func (g *Git) Exists(path string) bool {
	_, err := g.Open(path)
	return err == nil
}

// ListTags returns the short names of all tags in the repository at path.
func (g *Git) ListTags(ctx context.Context, path string) ([]string, error) {
	repo, err := g.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	refs, err := repo.Tags()
	if err != nil {
		return nil, errors.Wrap(err, "listing tags")
	}
	defer refs.Close()
	tags, err := iterx.Map(iterx.ToSeq2[*plumbing.Reference](refs, io.EOF), func(ref *plumbing.Reference) string {
		return ref.Name().Short()
	})
	return tags, errors.Wrap(err, "iterating tags")
}

func tagCommit(repo *git.Repository, tag string) (*object.Commit, error) {
	ref, err := repo.Tag(tag)
	if err != nil {
		return nil, errors.Wrapf(err, "looking up tag %s", tag)
	}
	to, err := repo.TagObject(ref.Hash())
	switch err {
	case nil:
		c, err := to.Commit()
		return c, errors.Wrapf(err, "peeling tag %s", tag)
	case plumbing.ErrObjectNotFound:
		c, err := repo.CommitObject(ref.Hash())
		return c, errors.Wrapf(err, "reading commit of tag %s", tag)
	default:
		return nil, errors.Wrapf(err, "reading tag %s", tag)
	}
}

// CommitTime returns the author time of the commit tag points to.
func (g *Git) CommitTime(ctx context.Context, path, tag string) (time.Time, error) {
	repo, err := g.Open(path)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "opening %s", path)
	}
	c, err := tagCommit(repo, tag)
	if err != nil {
		return time.Time{}, err
	}
	return c.Author.When, nil
}

// Checkout moves the worktree at path to tag, discarding untracked files.
// It is a no-op when HEAD already points at the tag's commit.
func (g *Git) Checkout(ctx context.Context, path, tag string, submodules bool) error {
	repo, err := g.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	c, err := tagCommit(repo, tag)
	if err != nil {
		return err
	}
	if head, err := repo.Head(); err == nil && head.Hash() == c.Hash {
		log.Printf("Already at tag [path=%s,tag=%s]\n", path, tag)
		return nil
	}
	wt, err := repo.Worktree()
	if err != nil {
		return errors.Wrap(err, "getting worktree")
	}
	if err := wt.Clean(&git.CleanOptions{Dir: true}); err != nil {
		return errors.Wrap(err, "cleaning worktree")
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: c.Hash, Force: true}); err != nil {
		return errors.Wrapf(err, "checking out %s", tag)
	}
	log.Printf("Checked out [path=%s,tag=%s,commit=%s]\n", path, tag, c.Hash)
	if !submodules {
		return nil
	}
	return errors.Wrap(gitx.UpdateSubmodules(ctx, repo, git.DefaultSubmoduleRecursionDepth), "updating submodules")
}
