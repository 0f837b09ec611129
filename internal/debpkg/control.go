// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package debpkg

import (
	"cmp"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/internal/debinfo"
	"github.com/podman2deb/podman2deb/internal/plan"
	"github.com/podman2deb/podman2deb/pkg/registry/debian/control"
	"pault.ag/go/debian/dependency"
	"pault.ag/go/debian/version"
)

// BuildDep identifies one upstream release bundled into the package.
type BuildDep struct {
	Name   string
	Tag    string
	GitURL string
}

// Control is the binary package stanza written to DEBIAN/control.
type Control struct {
	Package       string
	Architecture  string
	Version       string
	Section       string
	Maintainer    string
	Priority      string
	InstalledSize int64
	// Description is the synopsis followed by the extended description lines.
	Description string
	BuildDeps   []BuildDep
	Depends     []string
	Homepage    string
}

// NewControl fills a Control from the configuration and a resolved plan.
func NewControl(info *debinfo.Info, p *plan.Plan, arch string) Control {
	c := Control{
		Package:      info.Package,
		Architecture: arch,
		Version:      p.Version,
		Section:      info.Section,
		Maintainer:   info.Maintainer,
		Priority:     info.Priority,
		Description:  info.Description,
		Depends:      info.Depends,
		Homepage:     info.Homepage,
	}
	if c.Architecture == "" {
		c.Architecture = info.Architecture
	}
	if c.Version == "" {
		c.Version = info.Version
	}
	for _, s := range p.Resolved() {
		c.BuildDeps = append(c.BuildDeps, BuildDep{
			Name:   string(s.Repo.Name),
			Tag:    s.Selection.Tag,
			GitURL: s.Repo.GitURL,
		})
	}
	slices.SortFunc(c.BuildDeps, func(a, b BuildDep) int { return cmp.Compare(a.Name, b.Name) })
	return c
}

// Validate checks the stanza is acceptable to dpkg.
func (c Control) Validate() error {
	for field, v := range map[string]string{
		"Package":      c.Package,
		"Architecture": c.Architecture,
		"Version":      c.Version,
		"Maintainer":   c.Maintainer,
		"Description":  strings.TrimSpace(c.Description),
	} {
		if v == "" {
			return errors.Errorf("missing %s", field)
		}
	}
	if _, err := version.Parse(c.Version); err != nil {
		return errors.Wrapf(err, "invalid Version %q", c.Version)
	}
	if _, err := dependency.ParseArch(c.Architecture); err != nil {
		return errors.Wrapf(err, "invalid Architecture %q", c.Architecture)
	}
	if len(c.Depends) > 0 {
		if _, err := dependency.Parse(strings.Join(c.Depends, ", ")); err != nil {
			return errors.Wrap(err, "invalid Depends")
		}
	}
	return nil
}

func (c Control) description() control.Field {
	lines := strings.Split(strings.TrimSpace(c.Description), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	body := lines[1:]
	if len(c.BuildDeps) > 0 {
		body = append(body, "", "Build dependencies:")
		for _, d := range c.BuildDeps {
			body = append(body, "* "+d.Name+": "+d.Tag+" "+d.GitURL)
		}
	}
	return control.Multiline("Description", lines[0], body...)
}

// Fields returns the stanza in the order dpkg-deb documents it.
func (c Control) Fields() []control.Field {
	return []control.Field{
		control.Simple("Package", c.Package),
		control.Simple("Architecture", c.Architecture),
		control.Simple("Version", c.Version),
		control.Simple("Section", c.Section),
		control.Simple("Maintainer", c.Maintainer),
		control.Simple("Priority", c.Priority),
		control.Simple("Installed-Size", strconv.FormatInt(c.InstalledSize, 10)),
		c.description(),
		control.Simple("Depends", strings.Join(c.Depends, ", ")),
		control.Simple("Homepage", c.Homepage),
	}
}

// Render writes the validated stanza to w.
func (c Control) Render(w io.Writer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return control.Write(w, c.Fields())
}
