// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

// Package scan walks a local directory tree into the flat file list the
// commit engine diffs against the manifest.
package scan

import (
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/zeebo/errs"
)

// Error is the class of errors returned by this package.
var Error = errs.Class("scan")

// FileInfo is one entry produced by a directory walk: a logical path
// (forward-slash, rooted at "/") plus its creation and modification
// times, second-resolution, as recorded by the filesystem.
type FileInfo struct {
	Path     string
	Created  int64 // unix seconds
	LastMod  int64 // unix seconds
}

// Result is the outcome of a Walk: the files found, plus any paths that
// could not be read (permission errors, races), which are collected
// rather than aborting the scan.
type Result struct {
	Files      []FileInfo
	ReadErrors []string
}

// Walk recursively lists every regular file under basePath, normalising
// paths to forward-slash and rooted at "/". ignoreGlobs are matched
// against the logical (rooted) path using doublestar's fnmatch-compatible
// wildcard semantics. When visitMountpoints is false, any directory that
// is itself a mount point is skipped entirely.
func Walk(basePath string, ignoreGlobs []string, visitMountpoints bool) (Result, error) {
	var result Result

	rootDev, hasRootDev := deviceOf(basePath)

	var recur func(diskPath, logicalPath string)
	recur = func(diskPath, logicalPath string) {
		entries, err := os.ReadDir(diskPath)
		if err != nil {
			result.ReadErrors = append(result.ReadErrors, diskPath)
			return
		}

		for _, entry := range entries {
			childDisk := filepath.Join(diskPath, entry.Name())
			childLogical := joinLogical(logicalPath, entry.Name())

			if matchesAny(childLogical, ignoreGlobs) {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				result.ReadErrors = append(result.ReadErrors, childDisk)
				continue
			}

			if info.IsDir() {
				if !visitMountpoints && hasRootDev {
					if dev, ok := deviceOf(childDisk); ok && dev != rootDev {
						continue
					}
				}
				recur(childDisk, childLogical)
				continue
			}

			if !info.Mode().IsRegular() {
				continue
			}

			fh, err := os.Open(childDisk)
			if err != nil {
				result.ReadErrors = append(result.ReadErrors, childDisk)
				continue
			}
			_ = fh.Close()

			created, lastMod := fileTimes(info)
			result.Files = append(result.Files, FileInfo{
				Path:    childLogical,
				Created: created,
				LastMod: lastMod,
			})
		}
	}

	recur(basePath, "/")

	sort.Slice(result.Files, func(i, j int) bool {
		return lexicographicLess(result.Files[i].Path, result.Files[j].Path)
	})

	return result, nil
}

// joinLogical appends name to the forward-slash rooted parent path.
func joinLogical(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

func matchesAny(logicalPath string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, logicalPath); ok {
			return true
		}
		// doublestar.Match requires "/" separators and treats "*" as
		// not crossing them; fnmatch-style ignore globs like "*.swp"
		// are meant to match anywhere, so also try against the base name.
		if ok, _ := doublestar.Match(g, path.Base(logicalPath)); ok {
			return true
		}
	}
	return false
}

// lexicographicLess orders by (dirname, basename), matching the commit
// engine's required sort order.
func lexicographicLess(a, b string) bool {
	da, ba := path.Dir(a), path.Base(a)
	db, bb := path.Dir(b), path.Base(b)
	if da != db {
		return da < db
	}
	return ba < bb
}

// SortByDirThenBase sorts a slice of logical paths in place by
// (dirname, basename), matching the commit/restore order requirement.
func SortByDirThenBase(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		return lexicographicLess(paths[i], paths[j])
	})
}
