// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package manifest_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robehickman/rrbackup/manifest"
	"github.com/robehickman/rrbackup/objstore/memstore"
	"github.com/robehickman/rrbackup/pipeline"
	"github.com/robehickman/rrbackup/rrerr"
)

func TestApplyDiffsNewChangedDeleted(t *testing.T) {
	files := []manifest.Record{
		{Path: "/a.txt", Hash: "h1"},
		{Path: "/b.txt", Hash: "h2"},
	}
	diff := manifest.Diff{
		Records: []manifest.DiffRecord{
			{Record: manifest.Record{Path: "/b.txt", Hash: "h2-new"}, Status: manifest.StatusChanged},
			{Record: manifest.Record{Path: "/c.txt", Hash: "h3"}, Status: manifest.StatusNew},
			{Record: manifest.Record{Path: "/a.txt"}, Status: manifest.StatusDeleted},
		},
	}

	result := manifest.ApplyDiffs([]manifest.Diff{diff}, files)

	byPath := map[string]manifest.Record{}
	for _, r := range result {
		byPath[r.Path] = r
	}
	require.Len(t, result, 2)
	assert.Equal(t, "h2-new", byPath["/b.txt"].Hash)
	assert.Equal(t, "h3", byPath["/c.txt"].Hash)
	_, aPresent := byPath["/a.txt"]
	assert.False(t, aPresent)
}

func TestApplyDiffsDuplicatePathTreatedAsUpdate(t *testing.T) {
	files := []manifest.Record{{Path: "/a.txt", Hash: "old"}}
	diff := manifest.Diff{
		Records: []manifest.DiffRecord{
			{Record: manifest.Record{Path: "/a.txt", Hash: "new"}, Status: manifest.StatusNew},
		},
	}

	result := manifest.ApplyDiffs([]manifest.Diff{diff}, files)
	require.Len(t, result, 1)
	assert.Equal(t, "new", result[0].Hash)
}

func TestRebuildUpToVersion(t *testing.T) {
	diffs := []manifest.Diff{
		{VersionID: "v1", Records: []manifest.DiffRecord{{Record: manifest.Record{Path: "/a.txt"}, Status: manifest.StatusNew}}},
		{VersionID: "v2", Records: []manifest.DiffRecord{{Record: manifest.Record{Path: "/b.txt"}, Status: manifest.StatusNew}}},
	}

	result, err := manifest.Rebuild(diffs, "v1")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "/a.txt", result[0].Path)

	_, err = manifest.Rebuild(diffs, "nope")
	assert.True(t, rrerr.UnknownVersion.Has(err))
}

func TestGetResolutionFreshCache(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(nil)

	diff := []manifest.DiffRecord{{Record: manifest.Record{Path: "/a.txt", Hash: "h1"}, Status: manifest.StatusNew}}
	body, err := manifest.EncodeDiff(diff, pipeline.Options{ChunkSize: 5 << 20})
	require.NoError(t, err)
	_, err = store.PutObject(ctx, "manifest_diffs", body, nil)
	require.NoError(t, err)

	cachePath := filepath.Join(t.TempDir(), "manifest.json")

	first, err := manifest.Get(ctx, store, "manifest_diffs", cachePath, "")
	require.NoError(t, err)
	require.Len(t, first.Files, 1)
	assert.Equal(t, "h1", first.Files[0].Hash)

	second, err := manifest.Get(ctx, store, "manifest_diffs", cachePath, "")
	require.NoError(t, err)
	assert.Equal(t, first.LastModified.Unix(), second.LastModified.Unix())
}

func TestGetResolutionLocalPresentRemoteMissing(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(nil)
	cachePath := filepath.Join(t.TempDir(), "manifest.json")

	require.NoError(t, manifest.WriteCache(cachePath, manifest.Cache{LastModified: time.Unix(1, 0)}))

	_, err := manifest.Get(ctx, store, "manifest_diffs", cachePath, "")
	assert.True(t, rrerr.LocalPresentRemoteMissing.Has(err))
}
