// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

// Package objstore defines the adapter contract the engine uses to talk to
// a versioned remote object store, independent of any particular backend.
package objstore

import (
	"context"
	"time"

	"github.com/zeebo/errs"
)

// Error is the class of errors returned directly by this package (as
// opposed to errors surfaced from a specific Store implementation).
var Error = errs.Class("objstore")

// ErrNoSuchObject is returned by GetObject/NewStreamingDownload when the
// requested key/version does not exist.
var ErrNoSuchObject = Error.New("no such object")

// Object is the result of a GetObject call: a fully buffered body plus its
// version metadata.
type Object struct {
	VersionID     string
	Body          []byte
	ContentLength int64
	LastModified  time.Time
}

// ObjectVersion describes one entry returned by ListVersions.
type ObjectVersion struct {
	Key          string
	VersionID    string
	LastModified time.Time
}

// StreamingUpload is a multipart upload in progress.
type StreamingUpload interface {
	// NextChunk uploads one part. Chunks must be at least the store's
	// minimum part size except for the final chunk.
	NextChunk(ctx context.Context, chunk []byte) error
	// Finish completes the multipart upload and returns its version id.
	Finish(ctx context.Context) (versionID string, err error)
	// Abort cancels the multipart upload, releasing any uploaded parts.
	Abort(ctx context.Context) error
}

// StreamingDownload reads an object's body back in chunks, in order.
type StreamingDownload interface {
	// NextChunk returns the next chunk of the body, or io.EOF once
	// exhausted.
	NextChunk(ctx context.Context) ([]byte, error)
	// Close releases any resources held by the download.
	Close() error
}

// Store is the full adapter contract the engine depends on. Concrete
// backends (S3-compatible, local-disk, in-memory) implement this
// interface; the engine itself is agnostic to which one is wired in.
type Store interface {
	// Connect verifies the store is reachable and that versioning is
	// enabled on the target bucket/container, refusing otherwise.
	Connect(ctx context.Context) error

	// GetObject fetches an object's body in full. An empty versionID
	// fetches the latest version.
	GetObject(ctx context.Context, key string, versionID string) (*Object, error)

	// PutObject writes body as a new version of key and returns the
	// resulting version id.
	PutObject(ctx context.Context, key string, body []byte, metadata map[string]string) (string, error)

	// DeleteObject permanently removes one version of key. With an
	// empty versionID it instead adds a delete marker as the newest
	// version, so the key reads as absent while its earlier versions
	// stay listed and retrievable by id.
	DeleteObject(ctx context.Context, key string, versionID string) error

	// ListVersions returns every version of every object under
	// keyPrefix, sorted ascending by LastModified.
	ListVersions(ctx context.Context, keyPrefix string) ([]ObjectVersion, error)

	// NewStreamingUpload begins a multipart upload of key.
	NewStreamingUpload(ctx context.Context, key string) (StreamingUpload, error)

	// NewStreamingDownload begins a chunked read of key. An empty
	// versionID reads the latest version.
	NewStreamingDownload(ctx context.Context, key string, versionID string) (StreamingDownload, error)

	// DeleteFailedUploads aborts any stale multipart uploads left
	// behind by a previous, interrupted run.
	DeleteFailedUploads(ctx context.Context) error
}
