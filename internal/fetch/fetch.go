// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package fetch downloads release assets into the local asset cache.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenk/backoff"
	"github.com/cheggaaa/pb"
	"github.com/pkg/errors"
	"github.com/podman2deb/podman2deb/internal/httpx"
)

// ErrNotFound is returned when the server has no asset at the requested URL.
var ErrNotFound = errors.New("asset not found")

// StatusError is a non-retryable HTTP failure.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Fetcher retrieves remote files with retries.
type Fetcher struct {
	Client httpx.BasicClient
	// Progress receives a progress bar for each download when non-nil.
	Progress io.Writer
	// Retries bounds the number of attempts after the first failure.
	Retries uint64
	// InitialInterval is the first retry delay. Zero uses the backoff default.
	InitialInterval time.Duration
}

// New returns a Fetcher using http.DefaultClient.
func New(progress io.Writer) *Fetcher {
	return &Fetcher{
		Client:   httpx.WithUserAgent(http.DefaultClient, "podman2deb"),
		Progress: progress,
		Retries:  4,
	}
}

func (f *Fetcher) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if f.InitialInterval > 0 {
		b.InitialInterval = f.InitialInterval
	}
	b.MaxElapsedTime = 5 * time.Minute
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, f.Retries), ctx)
}

// Download writes the body at url to dst. An existing dst is left in place.
func (f *Fetcher) Download(ctx context.Context, url, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		log.Printf("Using cached asset [path=%s]\n", dst)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.Wrap(err, "creating asset directory")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	var permanent error
	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		err := f.download(req, dst)
		var se *StatusError
		if errors.As(err, &se) {
			permanent = err
			return nil
		}
		if err != nil {
			log.Printf("Download failed [url=%s,attempt=%d]: %v\n", url, attempt, err)
		}
		return err
	}, f.policy(ctx))
	if permanent != nil {
		return permanent
	}
	if err != nil {
		return errors.Wrapf(err, "downloading %s", url)
	}
	log.Printf("Downloaded [url=%s,path=%s]\n", url, dst)
	return nil
}

func (f *Fetcher) download(req *http.Request, dst string) error {
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode >= 500:
		return errors.Errorf("server error %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return errors.Wrap(err, "creating temporary file")
	}
	defer os.Remove(tmp.Name())
	var body io.Reader = resp.Body
	if f.Progress != nil && resp.ContentLength > 0 {
		bar := pb.New64(resp.ContentLength)
		bar.SetUnits(pb.U_BYTES)
		bar.Output = f.Progress
		bar.Prefix(filepath.Base(dst) + " ")
		bar.Start()
		defer bar.Finish()
		body = bar.NewProxyReader(resp.Body)
	}
	n, err := io.Copy(tmp, body)
	if err != nil {
		tmp.Close()
		return errors.Wrap(err, "reading body")
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		tmp.Close()
		return errors.Errorf("short body: got %d of %d bytes", n, resp.ContentLength)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
