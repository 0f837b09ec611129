// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/internal/debinfo"
	"github.com/podman2deb/podman2deb/internal/resolve"
)

type fakeSCM struct {
	tags  map[string][]string
	times map[string]map[string]time.Time
}

func (f *fakeSCM) ListTags(ctx context.Context, path string) ([]string, error) {
	return f.tags[filepath.Base(path)], nil
}

func (f *fakeSCM) CommitTime(ctx context.Context, path, tag string) (time.Time, error) {
	t, ok := f.times[filepath.Base(path)][tag]
	if !ok {
		return time.Time{}, errors.Errorf("no tag %s", tag)
	}
	return t, nil
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func testInfo(t *testing.T) *debinfo.Info {
	t.Helper()
	info := &debinfo.Info{Package: "podman2deb", Architecture: "amd64", Maintainer: "m", Description: "d"}
	for _, n := range debinfo.Names {
		r := debinfo.Repo{Name: n, GitURL: "https://example.com/" + string(n), Prefix: "v"}
		switch n {
		case debinfo.Go:
			r.Prefix = "go"
			r.Download = "https://go.dev/dl"
		case debinfo.Rust, debinfo.Passt:
			r.Prefix = ""
		}
		info.Repos = append(info.Repos, r)
	}
	if err := info.Validate(); err != nil {
		t.Fatal(err)
	}
	return info
}

func testSCM() *fakeSCM {
	f := &fakeSCM{tags: map[string][]string{}, times: map[string]map[string]time.Time{}}
	add := func(repo, tag, date string) {
		f.tags[repo] = append(f.tags[repo], tag)
		if f.times[repo] == nil {
			f.times[repo] = map[string]time.Time{}
		}
		f.times[repo][tag] = day(date)
	}
	add("podman", "v4.8.0", "2023-11-28")
	add("podman", "v4.9.0", "2024-01-22")
	add("podman", "v5.0.0-rc1", "2024-02-20")
	add("runc", "v1.1.10", "2023-11-01")
	add("runc", "v1.1.12", "2024-01-31")
	add("conmon", "v2.1.10", "2023-12-01")
	add("passt", "2023_12_30.f091893", "2023-12-30")
	add("passt", "2024_02_20.1e6f92b", "2024-02-20")
	add("netavark", "v1.9.0", "2023-11-20")
	add("aardvark_dns", "v1.9.0", "2023-11-20")
	add("go", "go1.21.4", "2023-11-07")
	add("go", "go1.21.5", "2023-12-05")
	add("go", "go1.22.0", "2024-02-06")
	add("image", "v5.29.0", "2023-11-22")
	add("slirp4netns", "v1.2.3", "2024-02-01")
	add("rust", "1.74.0", "2023-11-16")
	add("rust", "1.75.0", "2023-12-28")
	add("mandown", "v0.1.3.1", "2023-09-01")
	return f
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	layout := debinfo.Layout{Root: "/work"}
	r := &resolve.Resolver{SCM: testSCM()}
	t.Run("explicit anchor", func(t *testing.T) {
		p, err := Resolve(ctx, testInfo(t), layout, r, "v4.8.0")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if p.Version != "4.8.0" {
			t.Errorf("Version = %q, want 4.8.0", p.Version)
		}
		want := map[debinfo.Name]string{
			debinfo.Podman:      "v4.8.0",
			debinfo.Runc:        "v1.1.10",
			debinfo.Conmon:      "",
			debinfo.Passt:       "",
			debinfo.Netavark:    "v1.9.0",
			debinfo.AardvarkDNS: "v1.9.0",
			debinfo.Image:       "v5.29.0",
			debinfo.Slirp4netns: "",
			debinfo.Mandown:     "v0.1.3.1",
			debinfo.Go:          "go1.21.4",
			debinfo.Rust:        "1.74.0",
		}
		for n, tag := range want {
			if got := p.Tag(n); got != tag {
				t.Errorf("Tag(%s) = %q, want %q", n, got, tag)
			}
			if p.Has(n) != (tag != "") {
				t.Errorf("Has(%s) = %v", n, p.Has(n))
			}
		}
	})
	t.Run("mandatory missing", func(t *testing.T) {
		scm := testSCM()
		scm.tags["go"] = []string{"go1.21.5", "go1.22.0"}
		_, err := Resolve(ctx, testInfo(t), layout, &resolve.Resolver{SCM: scm}, "v4.8.0")
		var nct *resolve.NoClosestTagError
		if !errors.As(err, &nct) {
			t.Fatalf("Resolve() error = %v, want NoClosestTagError", err)
		}
		if nct.Repository != "go" {
			t.Errorf("Repository = %q, want go", nct.Repository)
		}
	})
	t.Run("latest anchor", func(t *testing.T) {
		p, err := Resolve(ctx, testInfo(t), layout, r, "")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		want := map[debinfo.Name]string{
			debinfo.Podman:      "v4.9.0",
			debinfo.Runc:        "v1.1.10",
			debinfo.Conmon:      "v2.1.10",
			debinfo.Passt:       "2023_12_30.f091893",
			debinfo.Go:          "go1.21.5",
			debinfo.Rust:        "1.75.0",
			debinfo.Slirp4netns: "",
		}
		for n, tag := range want {
			if got := p.Tag(n); got != tag {
				t.Errorf("Tag(%s) = %q, want %q", n, got, tag)
			}
		}
		if p.Version != "4.9.0" {
			t.Errorf("Version = %q, want 4.9.0", p.Version)
		}
		if p.RunID == "" {
			t.Error("RunID is empty")
		}
		if got, want := len(p.Resolved()), len(debinfo.Names)-1; got != want {
			t.Errorf("len(Resolved()) = %d, want %d", got, want)
		}
	})
}

func TestDump(t *testing.T) {
	p, err := Resolve(context.Background(), testInfo(t), debinfo.Layout{Root: "/work"}, &resolve.Resolver{SCM: testSCM()}, "")
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Dump()
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	var got map[string]map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"date":     "2023-12-05T00:00:00Z",
		"download": "https://go.dev/dl",
		"giturl":   "https://example.com/go",
		"name":     "go",
		"path":     "/work/sources/go",
		"prefix":   "go",
		"tag":      "go1.21.5",
	}
	if diff := cmp.Diff(want, got["go"]); diff != "" {
		t.Errorf("Dump()[go] mismatch (-want +got):\n%s", diff)
	}
	if got["slirp4netns"]["tag"] != nil {
		t.Errorf("Dump()[slirp4netns].tag = %v, want null", got["slirp4netns"]["tag"])
	}
	if len(got) != len(debinfo.Names) {
		t.Errorf("Dump() has %d entries, want %d", len(got), len(debinfo.Names))
	}
}

func TestPackageVersion(t *testing.T) {
	for tag, want := range map[string]string{"v4.9.3": "4.9.3", "4.9.3": "4.9.3", "v5.0.0-rc1": "5.0.0-rc1"} {
		if got := PackageVersion(tag); got != want {
			t.Errorf("PackageVersion(%q) = %q, want %q", tag, got, want)
		}
	}
}
