// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package gitxtest builds git repositories from compact YAML descriptions of
// dated commits and release tags.
package gitxtest

import (
	"path"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FileContent maps worktree paths to file contents.
type FileContent map[string]string

// Commit describes one commit and the refs pointing at it.
type Commit struct {
	ID      string `yaml:"id"`
	Message string `yaml:"message"`
	// Date is the RFC 3339 author and committer time.
	Date   string `yaml:"date,omitempty"`
	Parent string `yaml:"parent,omitempty"`
	Branch string `yaml:"branch,omitempty"`
	// Tag and Tags create lightweight tags; Annotated creates tag objects
	// dated like the commit.
	Tag       string      `yaml:"tag,omitempty"`
	Tags      []string    `yaml:"tags,omitempty"`
	Annotated []string    `yaml:"annotated,omitempty"`
	Files     FileContent `yaml:"files"`
}

// GitHistory is the top-level YAML document.
type GitHistory struct {
	Commits []Commit `yaml:"commits"`
}

// Repository is a generated repository with the hash of each commit ID.
type Repository struct {
	*git.Repository
	Commits map[string]plumbing.Hash
}

// RepositoryOptions selects where the repository is stored. Both default to memory.
type RepositoryOptions struct {
	Storer   storage.Storer
	Worktree billy.Filesystem
	// Remote, when set, is recorded as the origin remote URL.
	Remote string
}

// CreateRepoFromYAML decodes a GitHistory and builds it. Unknown keys are errors.
func CreateRepoFromYAML(content string, opts *RepositoryOptions) (*Repository, error) {
	var history GitHistory
	d := yaml.NewDecoder(strings.NewReader(content))
	d.KnownFields(true)
	if err := d.Decode(&history); err != nil {
		return nil, errors.Wrap(err, "decoding history")
	}
	return CreateRepo(history.Commits, opts)
}

// CreateRepo builds a repository holding commits in order.
func CreateRepo(commits []Commit, opts *RepositoryOptions) (*Repository, error) {
	if opts == nil {
		opts = &RepositoryOptions{}
	}
	s, wfs := opts.Storer, opts.Worktree
	if s == nil {
		s = memory.NewStorage()
	}
	if wfs == nil {
		wfs = memfs.New()
	}
	r, err := git.Init(s, wfs)
	if err != nil {
		return nil, errors.Wrap(err, "initializing repo")
	}
	if opts.Remote != "" {
		if _, err := r.CreateRemote(&config.RemoteConfig{Name: git.DefaultRemoteName, URLs: []string{opts.Remote}}); err != nil {
			return nil, errors.Wrap(err, "creating remote")
		}
	}
	repo := &Repository{Repository: r, Commits: make(map[string]plumbing.Hash)}
	for _, c := range commits {
		if err := repo.add(c); err != nil {
			return nil, errors.Wrapf(err, "commit %s", c.ID)
		}
	}
	return repo, nil
}

func (r *Repository) add(c Commit) error {
	w, err := r.Worktree()
	if err != nil {
		return errors.Wrap(err, "accessing worktree")
	}
	for name, content := range c.Files {
		if err := util.WriteFile(w.Filesystem, name, []byte(content), 0644); err != nil {
			return errors.Wrapf(err, "writing %s", name)
		}
		if _, err := w.Add(path.Clean(name)); err != nil {
			return errors.Wrapf(err, "staging %s", name)
		}
	}
	sig := &object.Signature{Name: "Place Holder", Email: "placeholder@podman2deb.test"}
	if c.Date != "" {
		if sig.When, err = time.Parse(time.RFC3339, c.Date); err != nil {
			return errors.Wrap(err, "parsing date")
		}
	}
	var parents []plumbing.Hash
	if c.Parent != "" {
		p, ok := r.Commits[c.Parent]
		if !ok {
			return errors.Errorf("unknown parent %s", c.Parent)
		}
		parents = append(parents, p)
	}
	h, err := w.Commit(c.Message, &git.CommitOptions{
		Author:            sig,
		Committer:         sig,
		AllowEmptyCommits: true,
		Parents:           parents,
	})
	if err != nil {
		return errors.Wrap(err, "committing")
	}
	r.Commits[c.ID] = h
	if c.Branch != "" {
		ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(c.Branch), h)
		if err := r.Storer.SetReference(ref); err != nil {
			return errors.Wrap(err, "setting branch")
		}
	}
	lightweight := c.Tags
	if c.Tag != "" {
		lightweight = append([]string{c.Tag}, lightweight...)
	}
	for _, t := range lightweight {
		if _, err := r.CreateTag(t, h, nil); err != nil {
			return errors.Wrapf(err, "tagging %s", t)
		}
	}
	for _, t := range c.Annotated {
		if _, err := r.CreateTag(t, h, &git.CreateTagOptions{Tagger: sig, Message: "Release " + t}); err != nil {
			return errors.Wrapf(err, "tagging %s", t)
		}
	}
	return nil
}
