// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package scan_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robehickman/rrbackup/scan"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0700))
	require.NoError(t, os.WriteFile(full, []byte(content), 0600))
}

func TestWalkFindsFilesAndNormalisesPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "hello")
	writeFile(t, dir, "sub/b.txt", "world")

	result, err := scan.Walk(dir, nil, true)
	require.NoError(t, err)
	require.Len(t, result.Files, 2)

	var paths []string
	for _, f := range result.Files {
		paths = append(paths, f.Path)
	}
	assert.ElementsMatch(t, []string{"/a.txt", "/sub/b.txt"}, paths)
}

func TestWalkHonoursIgnoreGlobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.txt", "1")
	writeFile(t, dir, "skip.swp", "2")

	result, err := scan.Walk(dir, []string{"*.swp"}, true)
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "/keep.txt", result.Files[0].Path)
}

func TestFindChangesClassifiesCorrectly(t *testing.T) {
	current := []scan.FileInfo{
		{Path: "/unchanged.txt", LastMod: 100},
		{Path: "/changed.txt", LastMod: 200},
		{Path: "/new.txt", LastMod: 300},
	}
	prior := []scan.PriorFile{
		{Path: "/unchanged.txt", LastMod: 100},
		{Path: "/changed.txt", LastMod: 150},
		{Path: "/deleted.txt", LastMod: 400},
	}

	changes := scan.FindChanges(current, prior)

	require.Len(t, changes, 3)
	assert.Equal(t, scan.StatusChanged, changes["/changed.txt"].Status)
	assert.Equal(t, scan.StatusNew, changes["/new.txt"].Status)
	assert.Equal(t, scan.StatusDeleted, changes["/deleted.txt"].Status)
	_, unchangedPresent := changes["/unchanged.txt"]
	assert.False(t, unchangedPresent)
}

func TestHashFilesComputesShaForNewAndChanged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "hello")

	diff := map[string]scan.DiffEntry{
		"/a.txt": {Path: "/a.txt", Status: scan.StatusNew},
		"/gone.txt": {Path: "/gone.txt", Status: scan.StatusDeleted},
	}

	hashed := scan.HashFiles(diff, dir)
	assert.NotEmpty(t, hashed["/a.txt"].Hash)
	assert.Empty(t, hashed["/gone.txt"].Hash)
}

func TestHashFilesDropsUnreadableEntries(t *testing.T) {
	dir := t.TempDir()

	diff := map[string]scan.DiffEntry{
		"/missing.txt": {Path: "/missing.txt", Status: scan.StatusNew},
	}

	hashed := scan.HashFiles(diff, dir)
	_, present := hashed["/missing.txt"]
	assert.False(t, present)
}
