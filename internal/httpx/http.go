// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package httpx provides a minimal HTTP client interface and helpers for
// serving release mirrors.
package httpx

import (
	"net/http"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
)

// BasicClient is the subset of http.Client used for downloads.
type BasicClient interface {
	Do(*http.Request) (*http.Response, error)
}

var _ BasicClient = http.DefaultClient

// HeaderClient sets default headers on every request it sends. Headers
// already present on a request take precedence.
type HeaderClient struct {
	BasicClient
	Header http.Header
}

var _ BasicClient = &HeaderClient{}

// WithUserAgent wraps c so that requests identify themselves as agent.
func WithUserAgent(c BasicClient, agent string) *HeaderClient {
	return &HeaderClient{BasicClient: c, Header: http.Header{"User-Agent": {agent}}}
}

// Do applies the default headers and sends the request.
func (c *HeaderClient) Do(req *http.Request) (*http.Response, error) {
	for k, vs := range c.Header {
		if req.Header.Get(k) == "" {
			req.Header[k] = vs
		}
	}
	return c.BasicClient.Do(req)
}

// FSHandler serves the regular files of fs read-only. Directories and
// missing paths are reported as not found.
func FSHandler(fs billy.Filesystem) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		name := path.Clean("/" + r.URL.Path)
		fi, err := fs.Stat(name)
		switch {
		case os.IsNotExist(err), err == nil && !fi.Mode().IsRegular():
			http.NotFound(w, r)
			return
		case err != nil:
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		f, err := fs.Open(name)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		defer f.Close()
		http.ServeContent(w, r, name, fi.ModTime(), f)
	})
}
