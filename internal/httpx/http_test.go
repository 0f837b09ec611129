// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package httpx

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/go-cmp/cmp"
	"github.com/podman2deb/podman2deb/internal/httpx/httpxtest"
)

func TestWithUserAgent(t *testing.T) {
	var gotUA, gotAccept string
	mock := &httpxtest.MockClient{
		Calls: []httpxtest.Call{
			{URL: "https://example.com/go.tar.gz", Response: &http.Response{StatusCode: http.StatusOK, Body: httpxtest.Body("")}},
		},
		URLValidator: httpxtest.NewURLValidator(t),
		OnRequest: func(req *http.Request) {
			gotUA = req.Header.Get("User-Agent")
			gotAccept = req.Header.Get("Accept")
		},
	}
	c := WithUserAgent(mock, "podman2deb/test")
	c.Header.Set("Accept", "application/octet-stream")
	req, _ := http.NewRequest(http.MethodGet, "https://example.com/go.tar.gz", nil)
	req.Header.Set("Accept", "*/*")
	if _, err := c.Do(req); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if gotUA != "podman2deb/test" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "podman2deb/test")
	}
	if gotAccept != "*/*" {
		t.Errorf("Accept = %q, want request header to win", gotAccept)
	}
}

func TestFSHandler(t *testing.T) {
	fs := memfs.New()
	if err := util.WriteFile(fs, "releases/slirp4netns-x86_64", []byte("binary"), 0755); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(FSHandler(fs))
	defer srv.Close()
	for _, tc := range []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/releases/slirp4netns-x86_64", http.StatusOK, "binary"},
		{"/releases/missing", http.StatusNotFound, ""},
		{"/releases", http.StatusNotFound, ""},
		{"/../releases/slirp4netns-x86_64", http.StatusOK, "binary"},
	} {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tc.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.wantCode {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantCode)
			}
			if tc.wantCode != http.StatusOK {
				return
			}
			body, _ := io.ReadAll(resp.Body)
			if diff := cmp.Diff(tc.wantBody, string(body)); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
	resp, err := http.Post(srv.URL+"/releases/slirp4netns-x86_64", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}
