// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package memstore

import (
	"context"
	"io"

	"github.com/robehickman/rrbackup/objstore"
)

// upload tracks an in-progress multipart upload.
type upload struct {
	key     string
	chunks  [][]byte
	aborted bool
	done    bool
}

type streamingUpload struct {
	store *Store
	id    string
}

// NewStreamingUpload begins tracking a multipart upload of key.
func (s *Store) NewStreamingUpload(ctx context.Context, key string) (objstore.StreamingUpload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := formatVersionID(s.seq)
	s.uploads[id] = &upload{key: key}
	return &streamingUpload{store: s, id: id}, nil
}

func (u *streamingUpload) NextChunk(ctx context.Context, chunk []byte) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	up, ok := u.store.uploads[u.id]
	if !ok || up.done || up.aborted {
		return Error.New("upload %s is not active", u.id)
	}

	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	up.chunks = append(up.chunks, buf)
	return nil
}

func (u *streamingUpload) Finish(ctx context.Context) (string, error) {
	u.store.mu.Lock()
	up, ok := u.store.uploads[u.id]
	if !ok || up.done || up.aborted {
		u.store.mu.Unlock()
		return "", Error.New("upload %s is not active", u.id)
	}

	var full []byte
	for _, c := range up.chunks {
		full = append(full, c...)
	}
	up.done = true
	delete(u.store.uploads, u.id)
	u.store.mu.Unlock()

	return u.store.PutObject(ctx, up.key, full, nil)
}

func (u *streamingUpload) Abort(ctx context.Context) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	up, ok := u.store.uploads[u.id]
	if !ok {
		return nil
	}
	up.aborted = true
	delete(u.store.uploads, u.id)
	return nil
}

// DeleteFailedUploads aborts every multipart upload still tracked, as if
// they had been abandoned by an earlier, interrupted run.
func (s *Store) DeleteFailedUploads(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.uploads {
		delete(s.uploads, id)
	}
	return nil
}

type streamingDownload struct {
	chunks    [][]byte
	chunkSize int
	body      []byte
	offset    int
}

// NewStreamingDownload begins a chunked read of key at versionID (or the
// latest version if versionID is empty), split into chunkSize-sized
// chunks (default 1 MiB) to mimic a real multipart download.
func (s *Store) NewStreamingDownload(ctx context.Context, key string, versionID string) (objstore.StreamingDownload, error) {
	obj, err := s.GetObject(ctx, key, versionID)
	if err != nil {
		return nil, err
	}
	return &streamingDownload{body: obj.Body, chunkSize: 1 << 20}, nil
}

func (d *streamingDownload) NextChunk(ctx context.Context) ([]byte, error) {
	if d.offset >= len(d.body) {
		return nil, io.EOF
	}
	end := d.offset + d.chunkSize
	if end > len(d.body) {
		end = len(d.body)
	}
	chunk := d.body[d.offset:end]
	d.offset = end
	return chunk, nil
}

func (d *streamingDownload) Close() error { return nil }
