// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

// Package manifest implements the file manifest: the reconstructed view
// of "what the latest commit contains", built by folding a chain of
// diffs, and the reconciliation logic that keeps a local cache of it in
// sync with the remote diff chain.
package manifest

import (
	"time"

	"github.com/zeebo/errs"

	"github.com/robehickman/rrbackup/rrerr"
)

// Error is the class of errors returned by this package for conditions
// that aren't one of the named rrerr classes.
var Error = errs.Class("manifest")

// Status values a DiffRecord can carry. Move detection is a non-goal:
// a renamed file is represented as a delete of the old path plus a new
// upload of the new one.
const (
	StatusNew     = "new"
	StatusChanged = "changed"
	StatusDeleted = "deleted"
)

// Record is one file's entry in a resolved manifest.
type Record struct {
	Path      string
	Hash      string
	RealPath  string // the path originally uploaded under, for dedup references
	VersionID string // remote object version holding this file's content
	Empty     bool   // true for zero-length files, which have no backing object
	HashNames bool   // true if RealPath's remote key is sha256(RealPath), not RealPath itself
	Created   int64
	LastMod   int64
}

// DiffRecord is one line of a diff: a Record plus the change it
// represents relative to the manifest it is folded onto.
type DiffRecord struct {
	Record
	Status string
}

// Diff is one published unit of change: the ordered list of DiffRecords
// that diff-chain entry contains, plus the remote metadata identifying
// it once published.
type Diff struct {
	Records      []DiffRecord
	VersionID    string
	LastModified time.Time
}

// Manifest is the resolved file list current as of the last diff folded
// into it.
type Manifest struct {
	Files []Record
}

// ApplyDiffs folds a sequence of diffs onto a starting file list. Per
// diff: deleted and changed paths are removed from the running manifest
// (a duplicate path appearing in the incoming diff is also treated as
// an update, i.e. removed before the new entries are added), then
// new/changed entries from the diff are appended with their Status
// stripped.
func ApplyDiffs(diffs []Diff, files []Record) []Record {
	manifest := append([]Record(nil), files...)

	for _, diff := range diffs {
		inManifest := make(map[string]bool, len(manifest))
		for _, r := range manifest {
			inManifest[r.Path] = true
		}

		remove := make(map[string]bool)
		for _, d := range diff.Records {
			switch d.Status {
			case StatusDeleted, StatusChanged:
				remove[d.Path] = true
			}
			if inManifest[d.Path] {
				remove[d.Path] = true
			}
		}

		var next []Record
		for _, r := range manifest {
			if remove[r.Path] {
				continue
			}
			next = append(next, r)
		}
		for _, d := range diff.Records {
			switch d.Status {
			case StatusNew, StatusChanged:
				next = append(next, d.Record)
			}
		}
		manifest = next
	}

	return manifest
}

// Rebuild folds diffs, in order, up to and including the one whose
// VersionID matches versionID. An empty versionID rebuilds the full
// chain. Returns rrerr.UnknownVersion if versionID is non-empty and no
// diff in the chain matches it.
func Rebuild(diffs []Diff, versionID string) ([]Record, error) {
	if versionID == "" {
		return ApplyDiffs(diffs, nil), nil
	}

	for i, d := range diffs {
		if d.VersionID == versionID {
			return ApplyDiffs(diffs[:i+1], nil), nil
		}
	}
	return nil, rrerr.UnknownVersion.New("version %q not found in diff chain", versionID)
}
