// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"log"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/internal/version"
)

// TagSelectionPolicy orders a repository's tags into resolution candidates.
//
// Candidates returns the eligible tags, best first. The resolver probes them
// in that order and accepts the first committed at or before the reference.
type TagSelectionPolicy interface {
	Name() string
	Candidates(tags []string, prefix string) ([]string, error)
}

// Policy names accepted in configuration.
const (
	DefaultPolicyName      = "semver"
	DateOrderedPolicyName  = "date"
	MultiSegmentPolicyName = "multisegment"
)

// PolicyByName returns the policy registered under name. The empty name selects Default.
func PolicyByName(name string) (TagSelectionPolicy, error) {
	switch name {
	case "", DefaultPolicyName:
		return Default{}, nil
	case DateOrderedPolicyName:
		return DateOrdered{}, nil
	case MultiSegmentPolicyName:
		return MultiSegment{}, nil
	default:
		return nil, errors.Errorf("unknown tag selection policy %q (want one of %s)", name, PolicyNames())
	}
}

func normalizeDesc(tags []string, prefix string) ([]version.Version, error) {
	vs, err := version.Normalize(tags, version.NormalizeOptions{
		NoDuplicates: true,
		SkipError:    true,
		Prefix:       prefix,
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(vs)
	return vs, nil
}

// Default orders tags by version, highest first, and only admits plain
// releases. Prerelease and build-metadata tags are skipped entirely.
type Default struct{}

func (Default) Name() string { return DefaultPolicyName }

func (Default) Candidates(tags []string, prefix string) ([]string, error) {
	vs, err := normalizeDesc(tags, prefix)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, v := range vs {
		if v.IsRelease() {
			out = append(out, v.Raw)
		}
	}
	return out, nil
}

// DateOrdered ignores version semantics and orders raw tags by descending
// string value, for repositories tagged with dates.
type DateOrdered struct{}

func (DateOrdered) Name() string { return DateOrderedPolicyName }

func (DateOrdered) Candidates(tags []string, _ string) ([]string, error) {
	out := slices.Clone(tags)
	slices.Sort(out)
	slices.Reverse(out)
	return slices.Compact(out), nil
}

// MultiSegment handles repositories released with four-field tags. Fields
// past the third become numerically ordered build metadata for comparison
// and the original tag is returned for checkout.
type MultiSegment struct{}

func (MultiSegment) Name() string { return MultiSegmentPolicyName }

func (MultiSegment) Candidates(tags []string, prefix string) ([]string, error) {
	origins := make(map[string][]string, len(tags))
	var rewritten []string
	for _, t := range tags {
		r := version.JoinExtraSegments(t)
		if slices.Contains(origins[r], t) {
			continue
		}
		origins[r] = append(origins[r], t)
		rewritten = append(rewritten, r)
	}
	vs, err := normalizeDesc(rewritten, prefix)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, v := range vs {
		if v.Prerelease != "" {
			continue
		}
		switch orig := origins[v.Raw]; {
		case len(orig) != 1:
			// Distinct tags such as "1.2.3.4" and "1.2.3+4" collide after rewriting.
			log.Printf("Skipping ambiguous tag [tags=%s]\n", strings.Join(orig, ","))
		case orig[0] != v.Raw:
			out = append(out, orig[0])
		case v.Build == "":
			out = append(out, v.Raw)
		}
	}
	return out, nil
}

var (
	_ TagSelectionPolicy = Default{}
	_ TagSelectionPolicy = DateOrdered{}
	_ TagSelectionPolicy = MultiSegment{}
)

// PolicyNames lists the accepted policy names.
func PolicyNames() string {
	return strings.Join([]string{DefaultPolicyName, DateOrderedPolicyName, MultiSegmentPolicyName}, ", ")
}
