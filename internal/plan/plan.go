// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package plan resolves the release of every component that goes into a build.
package plan

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/internal/debinfo"
	"github.com/podman2deb/podman2deb/internal/resolve"
)

// State is the resolution outcome for one component.
type State struct {
	Repo debinfo.Repo
	Path string
	// Selection is nil when an optional component had no release at the anchor time.
	Selection *resolve.Selection
}

// Plan is the set of releases selected for one build.
type Plan struct {
	RunID  string
	Anchor resolve.Reference
	// Version is the package version, derived from the anchor tag.
	Version string
	States  []State
}

// State returns the state of name.
func (p *Plan) State(name debinfo.Name) (State, bool) {
	for _, s := range p.States {
		if s.Repo.Name == name {
			return s, true
		}
	}
	return State{}, false
}

// Has reports whether a release was selected for name.
func (p *Plan) Has(name debinfo.Name) bool {
	s, ok := p.State(name)
	return ok && s.Selection != nil
}

// Tag returns the tag selected for name, or "" when there is none.
func (p *Plan) Tag(name debinfo.Name) string {
	if s, ok := p.State(name); ok && s.Selection != nil {
		return s.Selection.Tag
	}
	return ""
}

// Resolved returns the states that have a selection, in configuration order.
func (p *Plan) Resolved() []State {
	var out []State
	for _, s := range p.States {
		if s.Selection != nil {
			out = append(out, s)
		}
	}
	return out
}

// PackageVersion derives the package version from a release tag.
func PackageVersion(tag string) string {
	return strings.TrimPrefix(tag, "v")
}

// Repository describes the checkout of r at path to the resolver.
func Repository(r debinfo.Repo, path string) (resolve.Repository, error) {
	p, err := r.TagPolicy()
	if err != nil {
		return resolve.Repository{}, err
	}
	return resolve.Repository{Name: string(r.Name), Path: path, Prefix: r.Prefix, Policy: p}, nil
}

// Resolve anchors the build at anchorTag of the anchor component, or its
// latest release when anchorTag is empty, and selects the closest release of
// every other component.
func Resolve(ctx context.Context, info *debinfo.Info, layout debinfo.Layout, r *resolve.Resolver, anchorTag string) (*Plan, error) {
	anchorRepo, ok := info.Repo(debinfo.Anchor)
	if !ok {
		return nil, errors.Errorf("missing repository %q", debinfo.Anchor)
	}
	ar, err := Repository(anchorRepo, layout.Source(debinfo.Anchor))
	if err != nil {
		return nil, err
	}
	ref, err := r.Anchor(ctx, ar, anchorTag)
	if err != nil {
		return nil, errors.Wrap(err, "resolving anchor")
	}
	log.Printf("Anchored build [repo=%s,tag=%s,time=%s]\n", ref.Repository, ref.Tag, ref.Time.Format(time.RFC3339))
	p := &Plan{
		RunID:   uuid.New().String(),
		Anchor:  ref,
		Version: PackageVersion(ref.Tag),
	}
	for _, n := range debinfo.Names {
		repo, ok := info.Repo(n)
		if !ok {
			return nil, errors.Errorf("missing repository %q", n)
		}
		s := State{Repo: repo, Path: layout.Source(n)}
		if n == debinfo.Anchor {
			s.Selection = &resolve.Selection{Tag: ref.Tag, CommitTime: ref.Time}
			p.States = append(p.States, s)
			continue
		}
		rr, err := Repository(repo, s.Path)
		if err != nil {
			return nil, err
		}
		s.Selection, err = r.ResolveClosest(ctx, rr, ref.Time, repo.IsMandatory())
		if err != nil {
			return nil, errors.Wrapf(err, "resolving %s", n)
		}
		p.States = append(p.States, s)
	}
	return p, nil
}

type dumpEntry struct {
	Date     *time.Time `json:"date"`
	Download *string    `json:"download"`
	GitURL   string     `json:"giturl"`
	Name     string     `json:"name"`
	Path     string     `json:"path"`
	Prefix   string     `json:"prefix"`
	Tag      *string    `json:"tag"`
}

// Dump renders the plan as a JSON object keyed by component name.
func (p *Plan) Dump() ([]byte, error) {
	out := make(map[string]dumpEntry, len(p.States))
	for _, s := range p.States {
		e := dumpEntry{
			GitURL: s.Repo.GitURL,
			Name:   string(s.Repo.Name),
			Path:   s.Path,
			Prefix: s.Repo.Prefix,
		}
		if s.Repo.Download != "" {
			e.Download = &s.Repo.Download
		}
		if s.Selection != nil {
			e.Tag = &s.Selection.Tag
			e.Date = &s.Selection.CommitTime
		}
		out[string(s.Repo.Name)] = e
	}
	b, err := json.MarshalIndent(out, "", "    ")
	return b, errors.Wrap(err, "encoding plan")
}
