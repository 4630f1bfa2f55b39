// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package engine

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/robehickman/rrbackup/internal/sync2"
	"github.com/robehickman/rrbackup/manifest"
	"github.com/robehickman/rrbackup/pipeline"
	"github.com/robehickman/rrbackup/rrerr"
	"github.com/robehickman/rrbackup/scan"
)

// Restore reconstructs the manifest at versionID (or its head, if
// versionID is empty) into targetDir. ignoreGlobs are matched with
// doublestar against each record's full logical path only; unlike the
// scanner, there is no base-name fallback match.
func (e *Engine) Restore(ctx context.Context, versionID, targetDir string, ignoreGlobs []string) error {
	if e.cfg.WriteOnly {
		return rrerr.WriteOnly.New("restore requires a non-write-only configuration")
	}

	chain, err := manifest.LoadChain(ctx, e.store, e.cfg.RemoteManifestDiffFile, e.cfg.CryptPassword)
	if err != nil {
		return err
	}
	records, err := manifest.Rebuild(chain, versionID)
	if err != nil {
		return err
	}

	paths := make([]string, len(records))
	byPath := make(map[string]manifest.Record, len(records))
	for i, r := range records {
		paths[i] = r.Path
		byPath[r.Path] = r
	}
	scan.SortByDirThenBase(paths)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(8)
	for _, path := range paths {
		if matchesAnyGlob(path, ignoreGlobs) {
			continue
		}
		rec := byPath[path]
		group.Go(func() error {
			return e.restoreOne(groupCtx, rec, targetDir)
		})
	}
	return group.Wait()
}

func matchesAnyGlob(path string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, path); ok {
			return true
		}
	}
	return false
}

func (e *Engine) restoreOne(ctx context.Context, rec manifest.Record, targetDir string) error {
	outPath := filepath.Join(targetDir, filepath.FromSlash(rec.Path))
	if err := os.MkdirAll(filepath.Dir(outPath), 0700); err != nil {
		return Error.Wrap(err)
	}

	if rec.Empty {
		fh, err := os.Create(outPath)
		if err != nil {
			return Error.Wrap(err)
		}
		return Error.Wrap(fh.Close())
	}

	key := e.remoteKey(rec.RealPath, rec.HashNames)
	download, err := e.store.NewStreamingDownload(ctx, key, rec.VersionID)
	if err != nil {
		return err
	}
	defer download.Close()

	pr, pw := io.Pipe()
	go func() {
		for {
			chunk, chunkErr := download.NextChunk(ctx)
			if chunkErr == io.EOF {
				_ = pw.Close()
				return
			}
			if chunkErr != nil {
				_ = pw.CloseWithError(chunkErr)
				return
			}
			if _, werr := pw.Write(chunk); werr != nil {
				return
			}
		}
	}()

	decoded, _, err := pipeline.DecodeStream(pr, e.cfg.CryptPassword)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return Error.Wrap(err)
	}
	defer out.Close()

	if _, err := sync2.Copy(ctx, out, decoded); err != nil {
		return Error.Wrap(err)
	}
	return nil
}
