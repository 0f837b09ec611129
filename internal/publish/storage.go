// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package publish uploads build outputs to a file, GCS, or S3 location.
package publish

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// BuildInfoAsset is the name of the uploaded resolution dump.
const BuildInfoAsset = "build-info.json"

// ErrAssetNotFound indicates the asset requested to be read could not be found.
var ErrAssetNotFound = errors.New("asset not found")

// Run identifies the uploads of one build.
type Run struct {
	// Version is the package version built.
	Version string
	ID      string
}

func (r Run) path(name string) []string {
	return []string{r.Version, r.ID, name}
}

// Store is a storage location for build outputs.
type Store interface {
	Reader(ctx context.Context, name string) (io.ReadCloser, error)
	Writer(ctx context.Context, name string) (io.WriteCloser, error)
	URL(name string) *url.URL
}

// Options configures backend clients.
type Options struct {
	// GCS are passed to the GCS client.
	GCS []option.ClientOption
	// S3Secure selects HTTPS for S3 endpoints.
	S3Secure bool
}

// StoreFromURL constructs the store for a "file://", "gs://", or "s3://" location.
func StoreFromURL(ctx context.Context, location string, run Run, opts Options) (Store, error) {
	if location == "" {
		return nil, errors.New("no upload location provided")
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, errors.Wrap(err, "parsing as url")
	}
	switch u.Scheme {
	case "gs":
		s, err := NewGCSStore(ctx, location, run, opts.GCS...)
		return s, errors.Wrap(err, "creating GCS store")
	case "s3":
		s, err := NewS3Store(location, run, opts.S3Secure)
		return s, errors.Wrap(err, "creating S3 store")
	case "file":
		if err := os.MkdirAll(u.Path, 0755); err != nil {
			return nil, errors.Wrap(err, "creating upload dir")
		}
		return NewFilesystemStore(osfs.New(u.Path), run), nil
	default:
		return nil, errors.Errorf("unsupported scheme: '%s'", u.Scheme)
	}
}

// Upload copies the local file at src into the store.
func Upload(ctx context.Context, s Store, src string) (*url.URL, error) {
	r, err := os.Open(src)
	if err != nil {
		return nil, errors.Wrap(err, "opening upload source")
	}
	defer r.Close()
	name := filepath.Base(src)
	return UploadReader(ctx, s, name, r)
}

// UploadReader copies r into the store under name.
func UploadReader(ctx context.Context, s Store, name string, r io.Reader) (*url.URL, error) {
	w, err := s.Writer(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, "creating writer")
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "uploading %s", name)
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrapf(err, "uploading %s", name)
	}
	return s.URL(name), nil
}

// GCSStore uploads to a GCS bucket.
type GCSStore struct {
	gcsClient *gcs.Client
	bucket    string
	prefix    string
	run       Run
}

// NewGCSStore creates a store rooted at a "gs://bucket/prefix" location.
func NewGCSStore(ctx context.Context, location string, run Run, opts ...option.ClientOption) (*GCSStore, error) {
	c, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating GCS client")
	}
	s := &GCSStore{gcsClient: c, run: run}
	s.bucket, s.prefix, _ = strings.Cut(strings.TrimPrefix(location, "gs://"), "/")
	return s, nil
}

func (s *GCSStore) resourcePath(name string) string {
	return path.Join(append([]string{s.prefix}, s.run.path(name)...)...)
}

func (s *GCSStore) URL(name string) *url.URL {
	return &url.URL{Scheme: "gs", Path: path.Join(s.bucket, s.resourcePath(name))}
}

// Reader returns a reader for the named object.
func (s *GCSStore) Reader(ctx context.Context, name string) (io.ReadCloser, error) {
	p := s.resourcePath(name)
	r, err := s.gcsClient.Bucket(s.bucket).Object(p).NewReader(ctx)
	if err != nil {
		if err == gcs.ErrObjectNotExist {
			err = stderrors.Join(err, ErrAssetNotFound)
		}
		return nil, errors.Wrapf(err, "creating GCS reader for %s", p)
	}
	return r, nil
}

// Writer returns a writer for the named object.
func (s *GCSStore) Writer(ctx context.Context, name string) (io.WriteCloser, error) {
	return s.gcsClient.Bucket(s.bucket).Object(s.resourcePath(name)).NewWriter(ctx), nil
}

var _ Store = &GCSStore{}

// S3Store uploads to an S3-compatible bucket.
type S3Store struct {
	client *minio.Client
	host   string
	bucket string
	prefix string
	run    Run
}

// NewS3Store creates a store rooted at an "s3://endpoint/bucket/prefix"
// location. Credentials are read from the AWS_* environment variables.
func NewS3Store(location string, run Run, secure bool) (*S3Store, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, errors.Wrap(err, "parsing as url")
	}
	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if u.Host == "" || bucket == "" {
		return nil, errors.Errorf("endpoint and bucket required: %s", location)
	}
	c, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewEnvAWS(),
		Secure: secure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating S3 client")
	}
	return &S3Store{client: c, host: u.Host, bucket: bucket, prefix: strings.TrimSuffix(prefix, "/"), run: run}, nil
}

func (s *S3Store) resourcePath(name string) string {
	return path.Join(append([]string{s.prefix}, s.run.path(name)...)...)
}

func (s *S3Store) URL(name string) *url.URL {
	return &url.URL{Scheme: "s3", Host: s.host, Path: "/" + path.Join(s.bucket, s.resourcePath(name))}
}

// Reader returns a reader for the named object.
func (s *S3Store) Reader(ctx context.Context, name string) (io.ReadCloser, error) {
	p := s.resourcePath(name)
	if _, err := s.client.StatObject(ctx, s.bucket, p, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			err = stderrors.Join(err, ErrAssetNotFound)
		}
		return nil, errors.Wrapf(err, "stat %s", p)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, p, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "creating S3 reader for %s", p)
	}
	return obj, nil
}

type s3Writer struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *s3Writer) Close() error {
	w.pw.Close()
	return <-w.done
}

// Writer streams the named object to the bucket. The upload completes on Close.
func (s *S3Store) Writer(ctx context.Context, name string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	w := &s3Writer{pw: pw, done: make(chan error, 1)}
	p := s.resourcePath(name)
	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, p, pr, -1, minio.PutObjectOptions{
			ContentType: contentType(name),
		})
		pr.CloseWithError(err)
		w.done <- errors.Wrapf(err, "uploading %s", p)
	}()
	return w, nil
}

var _ Store = &S3Store{}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".deb":
		return "application/vnd.debian.binary-package"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// FilesystemStore stores outputs in a billy.Filesystem.
type FilesystemStore struct {
	fs  billy.Filesystem
	run Run
}

// NewFilesystemStore creates a store rooted at fs.
func NewFilesystemStore(fs billy.Filesystem, run Run) *FilesystemStore {
	return &FilesystemStore{fs: fs, run: run}
}

func (s *FilesystemStore) resourcePath(name string) string {
	return filepath.Join(s.run.path(name)...)
}

func (s *FilesystemStore) URL(name string) *url.URL {
	return &url.URL{Scheme: "file", Path: filepath.Join(s.fs.Root(), s.resourcePath(name))}
}

// Reader returns a reader for the named file.
func (s *FilesystemStore) Reader(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := s.fs.Open(s.resourcePath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = stderrors.Join(err, ErrAssetNotFound)
		}
		return nil, errors.Wrapf(err, "creating reader for %s", name)
	}
	return f, nil
}

// Writer returns a writer for the named file.
func (s *FilesystemStore) Writer(ctx context.Context, name string) (io.WriteCloser, error) {
	f, err := s.fs.Create(s.resourcePath(name))
	if err != nil {
		return nil, errors.Wrapf(err, "creating writer for %s", name)
	}
	return f, nil
}

var _ Store = &FilesystemStore{}
