// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package uri normalizes git remote URLs so checkouts can be matched against
// the configured repositories regardless of transport spelling.
package uri

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnsupported is returned for remotes that have no canonical HTTPS form.
var ErrUnsupported = errors.New("unsupported remote")

// scpLike matches the "user@host:path" shorthand accepted by git.
var scpLike = regexp.MustCompile(`^(?:[\w.-]+@)?([\w.-]+):([^/].*)$`)

// forges host projects at exactly two path segments and treat them case-insensitively.
var forges = map[string]bool{
	"github.com":    true,
	"gitlab.com":    true,
	"bitbucket.org": true,
}

// Canonicalize returns the HTTPS form of a git remote. Credentials, query,
// fragment and a trailing ".git" on well-known forges are dropped.
func Canonicalize(remote string) (string, error) {
	if remote == "" {
		return "", errors.Wrap(ErrUnsupported, "empty remote")
	}
	var host, path string
	if m := scpLike.FindStringSubmatch(remote); m != nil && !strings.Contains(remote, "://") {
		host, path = m[1], "/"+m[2]
	} else {
		u, err := url.Parse(remote)
		if err != nil {
			return "", errors.Wrap(ErrUnsupported, remote)
		}
		switch u.Scheme {
		case "https", "http", "git":
		case "ssh":
			if u.Port() != "" {
				return "", errors.Wrapf(ErrUnsupported, "%s: custom ssh port", remote)
			}
		default:
			return "", errors.Wrapf(ErrUnsupported, "%s: scheme %q", remote, u.Scheme)
		}
		host, path = u.Hostname(), u.Path
	}
	host = strings.ToLower(host)
	if host == "" {
		return "", errors.Wrapf(ErrUnsupported, "%s: no host", remote)
	}
	path = strings.TrimRight(path, "/")
	if strings.HasSuffix(path, "/.") || strings.HasSuffix(path, "/..") {
		return "", errors.Wrapf(ErrUnsupported, "%s: relative path", remote)
	}
	if forges[host] {
		segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
		if len(segs) < 2 || segs[0] == "" || segs[1] == "" {
			return "", errors.Wrapf(ErrUnsupported, "%s: no project", remote)
		}
		path = "/" + strings.ToLower(segs[0]+"/"+strings.TrimSuffix(segs[1], ".git"))
	}
	return (&url.URL{Scheme: "https", Host: host, Path: path}).String(), nil
}
