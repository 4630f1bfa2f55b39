// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

// Package memstore is an in-memory objstore.Store used by the engine's own
// tests. It preserves every PutObject as a new version, exactly like a
// versioned bucket would, so reconciliation and garbage collection logic
// can be exercised without a network dependency.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zeebo/errs"

	"github.com/robehickman/rrbackup/objstore"
)

// Error is the class of errors returned by this adapter.
var Error = errs.Class("memstore")

type version struct {
	id       string
	body     []byte
	metadata map[string]string
	modified time.Time
	deleted  bool
}

// Store is an in-memory, versioned objstore.Store.
type Store struct {
	mu       sync.Mutex
	objects  map[string][]*version
	uploads  map[string]*upload
	seq      int64
	now      func() time.Time
	connected bool
}

// New returns an empty in-memory store. clock lets tests control
// LastModified ordering deterministically; pass nil to use time.Now.
func New(clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		objects: make(map[string][]*version),
		uploads: make(map[string]*upload),
		now:     clock,
	}
}

// Connect marks the store usable. memstore always "supports versioning".
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *Store) GetObject(ctx context.Context, key string, versionID string) (*objstore.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, ok := s.objects[key]
	if !ok || len(versions) == 0 {
		return nil, objstore.ErrNoSuchObject
	}

	v, err := pickVersion(versions, versionID)
	if err != nil {
		return nil, err
	}
	if v.deleted {
		return nil, objstore.ErrNoSuchObject
	}

	body := make([]byte, len(v.body))
	copy(body, v.body)

	return &objstore.Object{
		VersionID:     v.id,
		Body:          body,
		ContentLength: int64(len(body)),
		LastModified:  v.modified,
	}, nil
}

func pickVersion(versions []*version, versionID string) (*version, error) {
	if versionID == "" {
		return versions[len(versions)-1], nil
	}
	for _, v := range versions {
		if v.id == versionID {
			return v, nil
		}
	}
	return nil, objstore.ErrNoSuchObject
}

func (s *Store) PutObject(ctx context.Context, key string, body []byte, metadata map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := formatVersionID(s.seq)

	stored := make([]byte, len(body))
	copy(stored, body)

	s.objects[key] = append(s.objects[key], &version{
		id:       id,
		body:     stored,
		metadata: metadata,
		modified: s.now(),
	})
	return id, nil
}

func (s *Store) DeleteObject(ctx context.Context, key string, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, ok := s.objects[key]
	if !ok || len(versions) == 0 {
		return objstore.ErrNoSuchObject
	}

	if versionID == "" {
		s.seq++
		s.objects[key] = append(versions, &version{
			id:       formatVersionID(s.seq),
			deleted:  true,
			modified: s.now(),
		})
		return nil
	}

	for i, v := range versions {
		if v.id == versionID {
			s.objects[key] = append(versions[:i:i], versions[i+1:]...)
			return nil
		}
	}
	return objstore.ErrNoSuchObject
}

func (s *Store) ListVersions(ctx context.Context, keyPrefix string) ([]objstore.ObjectVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []objstore.ObjectVersion
	for key, versions := range s.objects {
		if !hasPrefix(key, keyPrefix) {
			continue
		}
		for _, v := range versions {
			out = append(out, objstore.ObjectVersion{
				Key:          key,
				VersionID:    v.id,
				LastModified: v.modified,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastModified.Before(out[j].LastModified)
	})
	return out, nil
}

func hasPrefix(s, prefix string) bool {
	if len(prefix) == 0 {
		return true
	}
	if len(s) < len(prefix) {
		return false
	}
	return s[:len(prefix)] == prefix
}

func formatVersionID(seq int64) string {
	const digits = "0123456789abcdef"
	if seq == 0 {
		return "v0"
	}
	buf := make([]byte, 0, 20)
	for seq > 0 {
		buf = append([]byte{digits[seq%16]}, buf...)
		seq /= 16
	}
	return "v" + string(buf)
}
