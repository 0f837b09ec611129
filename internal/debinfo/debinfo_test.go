// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package debinfo

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/podman2deb/podman2deb/internal/resolve"
)

func TestLoadDefaultConfig(t *testing.T) {
	info, err := Load(filepath.Join("..", "..", "config", "debinfo.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if info.Package != "podman2deb" {
		t.Errorf("Package = %q, want podman2deb", info.Package)
	}
	var got []Name
	for _, r := range info.Repos {
		got = append(got, r.Name)
	}
	if diff := cmp.Diff(Names, got); diff != "" {
		t.Errorf("repository order mismatch (-want +got):\n%s", diff)
	}
	passt, _ := info.Repo(Passt)
	if p, _ := passt.TagPolicy(); p.Name() != resolve.DateOrderedPolicyName {
		t.Errorf("passt policy = %s, want %s", p.Name(), resolve.DateOrderedPolicyName)
	}
}

func minimalConfig(repos string) string {
	return `
package: podman2deb
architecture: amd64
section: admin
maintainer: someone
priority: optional
description: podman
repos:
` + repos
}

func allRepos(skip Name, extra string) string {
	var b strings.Builder
	for _, n := range Names {
		if n == skip {
			continue
		}
		b.WriteString("  - name: " + string(n) + "\n    giturl: https://example.com/" + string(n) + "\n")
		if n == Go {
			b.WriteString("    download: https://go.dev/dl\n")
		}
	}
	return b.String() + extra
}

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		name    string
		config  string
		wantErr string
	}{
		{name: "complete", config: minimalConfig(allRepos("", ""))},
		{name: "missing repo", config: minimalConfig(allRepos(Rust, "")), wantErr: `missing repository "rust"`},
		{name: "duplicate repo", config: minimalConfig(allRepos("", "  - name: runc\n    giturl: https://example.com/runc\n")), wantErr: `duplicate repository "runc"`},
		{name: "unknown repo", config: minimalConfig(allRepos("", "  - name: buildah\n    giturl: https://example.com/buildah\n")), wantErr: `unknown repository "buildah"`},
		{name: "unknown field", config: minimalConfig(allRepos("", "")) + "flavor: vanilla\n", wantErr: "field flavor not found"},
		{name: "bad policy", config: minimalConfig(allRepos(Mandown, "  - name: mandown\n    giturl: https://example.com/mandown\n    policy: lexical\n")), wantErr: "repository mandown"},
		{name: "bad giturl", config: minimalConfig(allRepos(Image, "  - name: image\n    giturl: not a url\n")), wantErr: "invalid giturl"},
		{name: "missing package", config: strings.Replace(minimalConfig(allRepos("", "")), "package: podman2deb\n", "", 1), wantErr: `missing required field "package"`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.config))
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Parse() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Parse() error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestRepoDefaults(t *testing.T) {
	yes, no := true, false
	for _, tc := range []struct {
		repo           Repo
		wantMandatory  bool
		wantSubmodules bool
		wantPolicy     string
	}{
		{Repo{Name: Podman}, false, true, resolve.DefaultPolicyName},
		{Repo{Name: Go}, true, false, resolve.DefaultPolicyName},
		{Repo{Name: Rust}, true, false, resolve.DefaultPolicyName},
		{Repo{Name: Passt}, false, true, resolve.DateOrderedPolicyName},
		{Repo{Name: Mandown}, false, true, resolve.MultiSegmentPolicyName},
		{Repo{Name: Runc, Mandatory: &yes, Submodules: &no, Policy: "date"}, true, false, resolve.DateOrderedPolicyName},
	} {
		t.Run(string(tc.repo.Name), func(t *testing.T) {
			if got := tc.repo.IsMandatory(); got != tc.wantMandatory {
				t.Errorf("IsMandatory() = %v, want %v", got, tc.wantMandatory)
			}
			if got := tc.repo.UsesSubmodules(); got != tc.wantSubmodules {
				t.Errorf("UsesSubmodules() = %v, want %v", got, tc.wantSubmodules)
			}
			if got := tc.repo.PolicyName(); got != tc.wantPolicy {
				t.Errorf("PolicyName() = %q, want %q", got, tc.wantPolicy)
			}
		})
	}
}

func TestReleaseBase(t *testing.T) {
	for _, tc := range []struct {
		repo Repo
		want string
	}{
		{Repo{GitURL: "https://github.com/rootless-containers/slirp4netns"}, "https://github.com/rootless-containers/slirp4netns/releases/download"},
		{Repo{GitURL: "https://github.com/rootless-containers/slirp4netns.git"}, "https://github.com/rootless-containers/slirp4netns/releases/download"},
		{Repo{GitURL: "https://github.com/golang/go", Download: "https://go.dev/dl/"}, "https://go.dev/dl"},
	} {
		if got := tc.repo.ReleaseBase(); got != tc.want {
			t.Errorf("ReleaseBase(%+v) = %q, want %q", tc.repo, got, tc.want)
		}
	}
}

func TestLayout(t *testing.T) {
	l := Layout{Root: t.TempDir()}
	if err := l.Ensure(); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if got, want := l.Source(AardvarkDNS), filepath.Join(l.Root, "sources", "aardvark_dns"); got != want {
		t.Errorf("Source() = %q, want %q", got, want)
	}
}
