// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package resolve selects, for each dependency repository, the release tag
// closest to a reference point in time.
package resolve

import (
	"context"
	"log"
	"time"

	"github.com/podman2deb/podman2deb/internal/version"
)

// SourceControl provides the tag inventory of local repository checkouts.
//
// Tags are treated as immutable: CommitTime returns the same value for the
// same tag throughout a run.
type SourceControl interface {
	ListTags(ctx context.Context, path string) ([]string, error)
	CommitTime(ctx context.Context, path, tag string) (time.Time, error)
}

// Repository identifies a checkout to resolve against.
type Repository struct {
	Name   string
	Path   string
	Prefix string
	Policy TagSelectionPolicy
}

func (r Repository) policy() TagSelectionPolicy {
	if r.Policy == nil {
		return Default{}
	}
	return r.Policy
}

// Selection is a resolved tag and the time of the commit it references.
type Selection struct {
	Tag        string
	CommitTime time.Time
}

// Reference is the anchor point all dependencies are resolved against.
type Reference struct {
	Repository string
	Tag        string
	Time       time.Time
}

// Resolver resolves tags using a SourceControl.
type Resolver struct {
	SCM SourceControl
}

// ResolveLatest returns the highest non-prerelease version tag.
func (r *Resolver) ResolveLatest(ctx context.Context, repo Repository) (*Selection, error) {
	tags, err := r.SCM.ListTags(ctx, repo.Path)
	if err != nil {
		return nil, err
	}
	vs, err := normalizeDesc(tags, repo.Prefix)
	if err != nil {
		return nil, err
	}
	for _, v := range vs {
		if v.Prerelease != "" {
			continue
		}
		t, err := r.SCM.CommitTime(ctx, repo.Path, v.Raw)
		if err != nil {
			return nil, err
		}
		return &Selection{Tag: v.Raw, CommitTime: t}, nil
	}
	return nil, &NoTagFoundError{Repository: repo.Name, Candidates: version.Raws(vs)}
}

// ResolveClosest returns the best candidate tag, per the repository's
// policy, whose commit time does not exceed ref.
//
// When no candidate qualifies, a *NoClosestTagError is returned if
// triggerError is set. Otherwise the result is nil with a nil error,
// meaning the repository does not apply to this reference.
func (r *Resolver) ResolveClosest(ctx context.Context, repo Repository, ref time.Time, triggerError bool) (*Selection, error) {
	tags, err := r.SCM.ListTags(ctx, repo.Path)
	if err != nil {
		return nil, err
	}
	candidates, err := repo.policy().Candidates(tags, repo.Prefix)
	if err != nil {
		return nil, err
	}
	for _, tag := range candidates {
		t, err := r.SCM.CommitTime(ctx, repo.Path, tag)
		if err != nil {
			return nil, err
		}
		if !t.After(ref) {
			return &Selection{Tag: tag, CommitTime: t}, nil
		}
	}
	if triggerError {
		return nil, &NoClosestTagError{Repository: repo.Name, Reference: ref, Candidates: candidates}
	}
	log.Printf("No tag predates reference [repo=%s,policy=%s,ref=%s,candidates=%d]\n", repo.Name, repo.policy().Name(), ref.Format(time.RFC3339), len(candidates))
	return nil, nil
}

// Anchor builds the reference point from repo. An empty tag selects the latest release.
func (r *Resolver) Anchor(ctx context.Context, repo Repository, tag string) (Reference, error) {
	if tag == "" {
		sel, err := r.ResolveLatest(ctx, repo)
		if err != nil {
			return Reference{}, err
		}
		return Reference{Repository: repo.Name, Tag: sel.Tag, Time: sel.CommitTime}, nil
	}
	t, err := r.SCM.CommitTime(ctx, repo.Path, tag)
	if err != nil {
		return Reference{}, err
	}
	return Reference{Repository: repo.Name, Tag: tag, Time: t}, nil
}
