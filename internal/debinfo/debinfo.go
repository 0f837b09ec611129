// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package debinfo loads the package metadata and repository descriptors that
// drive a build.
package debinfo

import (
	"io"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/internal/resolve"
	"gopkg.in/yaml.v3"
)

// Name identifies one of the components bundled into the package.
type Name string

const (
	Podman      Name = "podman"
	Runc        Name = "runc"
	Conmon      Name = "conmon"
	Passt       Name = "passt"
	Netavark    Name = "netavark"
	AardvarkDNS Name = "aardvark_dns"
	Go          Name = "go"
	Image       Name = "image"
	Slirp4netns Name = "slirp4netns"
	Rust        Name = "rust"
	Mandown     Name = "mandown"
)

// Names lists every known component in resolution order, anchor first.
var Names = []Name{Podman, Runc, Conmon, Passt, Netavark, AardvarkDNS, Go, Image, Slirp4netns, Rust, Mandown}

// Anchor is the component whose release time every other component is matched against.
const Anchor = Podman

// defaultPolicy holds components whose tags do not order as three-part versions.
var defaultPolicy = map[Name]string{
	Passt:   resolve.DateOrderedPolicyName,
	Mandown: resolve.MultiSegmentPolicyName,
}

// Toolchains are required for every build and are cloned without submodules.
var toolchains = []Name{Go, Rust}

// Repo describes where a component's sources live and how its tags are read.
type Repo struct {
	Name   Name   `yaml:"name"`
	GitURL string `yaml:"giturl"`
	// Prefix is stripped from tags before they are parsed as versions.
	Prefix string `yaml:"prefix,omitempty"`
	// Download is the base URL for prebuilt release assets.
	Download   string `yaml:"download,omitempty"`
	Policy     string `yaml:"policy,omitempty"`
	Mandatory  *bool  `yaml:"mandatory,omitempty"`
	Submodules *bool  `yaml:"submodules,omitempty"`
}

// IsMandatory reports whether failing to resolve the component aborts the run.
func (r Repo) IsMandatory() bool {
	if r.Mandatory != nil {
		return *r.Mandatory
	}
	return slices.Contains(toolchains, r.Name)
}

// UsesSubmodules reports whether checkouts of the component recurse into submodules.
func (r Repo) UsesSubmodules() bool {
	if r.Submodules != nil {
		return *r.Submodules
	}
	return !slices.Contains(toolchains, r.Name)
}

// PolicyName is the configured tag selection policy, falling back to the component default.
func (r Repo) PolicyName() string {
	if r.Policy != "" {
		return r.Policy
	}
	if p, ok := defaultPolicy[r.Name]; ok {
		return p
	}
	return resolve.DefaultPolicyName
}

// TagPolicy returns the tag selection policy for the component.
func (r Repo) TagPolicy() (resolve.TagSelectionPolicy, error) {
	return resolve.PolicyByName(r.PolicyName())
}

// ReleaseBase is the URL release assets are downloaded from, one directory per tag.
func (r Repo) ReleaseBase() string {
	if r.Download != "" {
		return strings.TrimSuffix(r.Download, "/")
	}
	return strings.TrimSuffix(strings.TrimSuffix(r.GitURL, "/"), ".git") + "/releases/download"
}

// Info is the full build configuration.
type Info struct {
	Package      string   `yaml:"package"`
	Architecture string   `yaml:"architecture"`
	Version      string   `yaml:"version,omitempty"`
	Section      string   `yaml:"section"`
	Maintainer   string   `yaml:"maintainer"`
	Priority     string   `yaml:"priority"`
	Homepage     string   `yaml:"homepage,omitempty"`
	Description  string   `yaml:"description"`
	Depends      []string `yaml:"depends,omitempty"`
	// Registries populates unqualified-search-registries in registries.conf.
	Registries []string `yaml:"registries,omitempty"`
	Repos      []Repo   `yaml:"repos"`
}

// Repo returns the descriptor for name.
func (i *Info) Repo(name Name) (Repo, bool) {
	for _, r := range i.Repos {
		if r.Name == name {
			return r, true
		}
	}
	return Repo{}, false
}

// Validate checks the configuration is complete and consistent.
func (i *Info) Validate() error {
	for field, v := range map[string]string{
		"package":      i.Package,
		"architecture": i.Architecture,
		"maintainer":   i.Maintainer,
		"description":  i.Description,
	} {
		if v == "" {
			return errors.Errorf("missing required field %q", field)
		}
	}
	seen := make(map[Name]bool)
	for _, r := range i.Repos {
		if !slices.Contains(Names, r.Name) {
			return errors.Errorf("unknown repository %q", r.Name)
		}
		if seen[r.Name] {
			return errors.Errorf("duplicate repository %q", r.Name)
		}
		seen[r.Name] = true
		u, err := url.Parse(r.GitURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Errorf("repository %s: invalid giturl %q", r.Name, r.GitURL)
		}
		if _, err := r.TagPolicy(); err != nil {
			return errors.Wrapf(err, "repository %s", r.Name)
		}
	}
	for _, n := range Names {
		if !seen[n] {
			return errors.Errorf("missing repository %q", n)
		}
	}
	if r, _ := i.Repo(Go); r.Download == "" {
		return errors.Errorf("repository %s: missing download URL", Go)
	}
	return nil
}

// Parse decodes and validates a configuration document.
func Parse(r io.Reader) (*Info, error) {
	var info Info
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(&info); err != nil {
		return nil, errors.Wrap(err, "decoding configuration")
	}
	if err := info.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating configuration")
	}
	return &info, nil
}

// Load reads the configuration file at path.
func Load(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening configuration")
	}
	defer f.Close()
	return Parse(f)
}
