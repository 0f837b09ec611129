// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package toolchain

import (
	"archive/tar"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/internal/execx"
	"github.com/podman2deb/podman2deb/pkg/archive"
	"github.com/podman2deb/podman2deb/pkg/archive/archivetest"
)

type fakeDownloader struct {
	urls []string
	body []byte
}

func (f *fakeDownloader) Download(ctx context.Context, url, dst string) error {
	f.urls = append(f.urls, url)
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	return os.WriteFile(dst, f.body, 0644)
}

func goTarball(t *testing.T) []byte {
	t.Helper()
	buf, err := archivetest.TgzFile([]archive.TarEntry{
		{Header: &tar.Header{Name: "go/", Typeflag: tar.TypeDir, Mode: 0755}},
		{Header: &tar.Header{Name: "go/bin/go", Typeflag: tar.TypeReg, Mode: 0755}, Body: []byte("#!/bin/sh\n")},
		{Header: &tar.Header{Name: "go/VERSION", Typeflag: tar.TypeReg, Mode: 0644}, Body: []byte("go1.22.0\n")},
	})
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSetupGo(t *testing.T) {
	assets := t.TempDir()
	d := &fakeDownloader{body: goTarball(t)}
	g, err := SetupGo(context.Background(), d, assets, "https://go.dev/dl", "go1.22.0")
	if err != nil {
		t.Fatalf("SetupGo() error = %v", err)
	}
	wantURL := "https://go.dev/dl/go1.22.0.linux-" + runtime.GOARCH + ".tar.gz"
	if diff := cmp.Diff([]string{wantURL}, d.urls); diff != "" {
		t.Errorf("download URLs mismatch (-want +got):\n%s", diff)
	}
	if want := filepath.Join(assets, "go1.22.0", "go"); g.Root != want {
		t.Errorf("Root = %q, want %q", g.Root, want)
	}
	if fi, err := os.Stat(filepath.Join(g.Bin(), "go")); err != nil || fi.Mode()&0100 == 0 {
		t.Errorf("go binary missing or not executable: %v", err)
	}
	env := g.Env()
	for _, key := range []string{"PATH", "GOROOT", "GOCACHE", "GO"} {
		if _, ok := execx.LookupEnv(env, key); !ok {
			t.Errorf("Env() missing %s", key)
		}
	}
	if v, _ := execx.LookupEnv(env, "GO"); v != filepath.Join(g.Root, "bin", "go") {
		t.Errorf("GO = %q", v)
	}
	if _, ok := os.LookupEnv("GOCACHE"); ok && os.Getenv("GOCACHE") == g.Cache {
		t.Error("SetupGo() modified the process environment")
	}
	if err := g.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(g.Cache); !os.IsNotExist(err) {
		t.Errorf("GOCACHE %s not removed", g.Cache)
	}
	// A second setup reuses the extracted tree.
	marker := filepath.Join(g.Root, "marker")
	if err := os.WriteFile(marker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	g2, err := SetupGo(context.Background(), d, assets, "https://go.dev/dl", "go1.22.0")
	if err != nil {
		t.Fatalf("SetupGo() again error = %v", err)
	}
	defer g2.Close()
	if _, err := os.Stat(marker); err != nil {
		t.Error("second SetupGo() re-extracted the distribution")
	}
}

func TestSetupGoCorruptArchive(t *testing.T) {
	d := &fakeDownloader{body: []byte("not a tarball")}
	if _, err := SetupGo(context.Background(), d, t.TempDir(), "https://go.dev/dl", "go1.22.0"); err == nil {
		t.Error("SetupGo() with corrupt archive succeeded")
	}
}

func TestRustPrepare(t *testing.T) {
	t.Run("pins toolchain", func(t *testing.T) {
		runner := &execx.FakeRunner{Respond: func(c execx.Cmd) (string, error) {
			if c.Args[0] == "rustc" {
				return "rustc 1.75.0 (82e1608df 2023-12-21)\n", nil
			}
			return "", nil
		}}
		r := &Rust{Tag: "1.75.0", LookPath: func(string) (string, error) { return "/usr/bin/cargo", nil }}
		got, err := r.Prepare(context.Background(), runner, "/src/netavark")
		if err != nil {
			t.Fatalf("Prepare() error = %v", err)
		}
		if got != "rustc 1.75.0 (82e1608df 2023-12-21)" {
			t.Errorf("Prepare() = %q", got)
		}
		want := []string{
			"/src/netavark$ rustup override set 1.75.0",
			"/src/netavark$ rustc --version",
		}
		if diff := cmp.Diff(want, runner.Commands()); diff != "" {
			t.Errorf("commands mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("no cargo", func(t *testing.T) {
		runner := &execx.FakeRunner{}
		r := &Rust{Tag: "1.75.0", LookPath: func(string) (string, error) { return "", exec.ErrNotFound }}
		if _, err := r.Prepare(context.Background(), runner, "/src/netavark"); !errors.Is(err, ErrNoCargo) {
			t.Errorf("Prepare() error = %v, want ErrNoCargo", err)
		}
		if len(runner.Cmds) != 0 {
			t.Errorf("ran %d commands without cargo", len(runner.Cmds))
		}
	})
}
