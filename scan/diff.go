// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package scan

// Status values a DiffEntry can carry relative to a prior file list.
const (
	StatusNew     = "new"
	StatusChanged = "changed"
	StatusDeleted = "deleted"
)

// DiffEntry is one path's change relative to a prior scan, plus its
// content hash once computed by HashFiles.
type DiffEntry struct {
	Path    string
	Created int64
	LastMod int64
	Status  string
	Hash    string // set by HashFiles for new/changed entries
}

// PriorFile is the minimal shape FindChanges needs from a prior file
// list (typically adapted from the current manifest's records).
type PriorFile struct {
	Path    string
	LastMod int64
}

// FindChanges compares the current file list against the prior state and
// returns one DiffEntry per path that differs: changed (present in both,
// last_mod differs), new (absent from prior), or deleted (present in
// prior, absent from current). Unchanged paths are omitted entirely.
func FindChanges(current []FileInfo, prior []PriorFile) map[string]DiffEntry {
	priorByPath := make(map[string]PriorFile, len(prior))
	for _, p := range prior {
		priorByPath[p.Path] = p
	}

	changes := make(map[string]DiffEntry)

	for _, f := range current {
		p, existed := priorByPath[f.Path]
		if existed {
			delete(priorByPath, f.Path)
			if p.LastMod != f.LastMod {
				changes[f.Path] = DiffEntry{
					Path:    f.Path,
					Created: f.Created,
					LastMod: f.LastMod,
					Status:  StatusChanged,
				}
			}
			continue
		}
		changes[f.Path] = DiffEntry{
			Path:    f.Path,
			Created: f.Created,
			LastMod: f.LastMod,
			Status:  StatusNew,
		}
	}

	for _, p := range priorByPath {
		changes[p.Path] = DiffEntry{Path: p.Path, Status: StatusDeleted}
	}

	return changes
}
