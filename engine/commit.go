// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package engine

import (
	"context"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/robehickman/rrbackup/internal/errs2"
	"github.com/robehickman/rrbackup/manifest"
	"github.com/robehickman/rrbackup/pipeline"
	"github.com/robehickman/rrbackup/rlock"
	"github.com/robehickman/rrbackup/rrerr"
	"github.com/robehickman/rrbackup/scan"
)

// Backup runs one commit: scanning the local tree, diffing it against
// the current manifest, uploading new content, and publishing a new
// diff-chain entry. It is a no-op (no remote writes) if nothing changed.
func (e *Engine) Backup(ctx context.Context) error {
	if e.cfg.ReadOnly {
		return rrerr.ReadOnly.New("backup requires a non-read-only configuration")
	}

	lock, err := rlock.Acquire(e.cfg.LocalLockFile)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			e.log.Error("failed to release commit lock", zap.Error(releaseErr))
		}
	}()

	if err := e.store.DeleteFailedUploads(ctx); err != nil {
		return err
	}
	if err := e.GarbageCollect(ctx, GCSimple); err != nil {
		return err
	}

	cache, err := manifest.Get(ctx, e.store, e.cfg.RemoteManifestDiffFile, e.cfg.LocalManifestFile, e.cfg.CryptPassword)
	if err != nil {
		return err
	}

	scanResult, err := scan.Walk(e.cfg.BasePath, e.cfg.IgnoreFiles, e.cfg.VisitMountpoints)
	if err != nil {
		return err
	}
	for _, path := range scanResult.ReadErrors {
		e.log.Warn("skipping unreadable path during scan", zap.String("path", path))
	}

	prior := make([]scan.PriorFile, 0, len(cache.Files))
	for _, r := range cache.Files {
		prior = append(prior, scan.PriorFile{Path: r.Path, LastMod: r.LastMod})
	}

	changes := scan.FindChanges(scanResult.Files, prior)
	if len(changes) == 0 {
		return nil
	}

	paths := make([]string, 0, len(changes))
	for p := range changes {
		paths = append(paths, p)
	}
	scan.SortByDirThenBase(paths)

	currentFiles := cache.Files
	headTime := cache.LastModified
	for _, chunkPaths := range splitIntoChunks(paths, e.cfg.SplitChunkSize) {
		currentFiles, headTime, err = e.commitChunk(ctx, chunkPaths, changes, currentFiles, headTime)
		if err != nil {
			return err
		}
	}
	return nil
}

func splitIntoChunks(paths []string, size int) [][]string {
	if size <= 0 || size >= len(paths) {
		return [][]string{paths}
	}
	var chunks [][]string
	for i := 0; i < len(paths); i += size {
		end := i + size
		if end > len(paths) {
			end = len(paths)
		}
		chunks = append(chunks, paths[i:end])
	}
	return chunks
}

// pendingUpload is a file queued for upload within the current chunk.
type pendingUpload struct {
	path      string
	status    string
	hashNames bool
}

// commitChunk implements one atomic sub-commit: a single chunk's worth
// of changes, ending in one new diff-chain entry. expectedHead is the
// LastModified of the diff-chain head as last observed by this run;
// commitChunk refuses to publish if another process has advanced the
// chain since, returning the new head's LastModified on success.
func (e *Engine) commitChunk(ctx context.Context, chunkPaths []string, changes map[string]scan.DiffEntry, manifestFiles []manifest.Record, expectedHead time.Time) ([]manifest.Record, time.Time, error) {
	hashIndex := make(map[string]manifest.Record, len(manifestFiles))
	for _, r := range manifestFiles {
		if r.Hash != "" {
			hashIndex[r.Hash] = r
		}
	}
	byPath := make(map[string]manifest.Record, len(manifestFiles))
	for _, r := range manifestFiles {
		byPath[r.Path] = r
	}

	diffSubset := make(map[string]scan.DiffEntry, len(chunkPaths))
	for _, p := range chunkPaths {
		diffSubset[p] = changes[p]
	}
	diffSubset = scan.HashFiles(diffSubset, e.cfg.BasePath)

	var newDiff []manifest.DiffRecord
	var uploadQueue []pendingUpload
	type duplicateRef struct {
		path      string
		status    string
		masterOf  string // path this duplicate resolves against once uploaded
	}
	var deferredDuplicates []duplicateRef
	pendingHashes := make(map[string]string) // hash -> path queued for upload this chunk

	for _, path := range chunkPaths {
		entry, ok := diffSubset[path]
		if !ok {
			continue
		}

		if entry.Status == scan.StatusDeleted {
			if matchesSkipDelete(path, e.cfg.SkipDelete) {
				continue
			}
			newDiff = append(newDiff, manifest.DiffRecord{
				Record: manifest.Record{Path: path},
				Status: manifest.StatusDeleted,
			})
			continue
		}

		diskPath := joinBase(e.cfg.BasePath, path)
		info, statErr := os.Stat(diskPath)
		if statErr != nil {
			continue // raced out from under us between scan and hash
		}

		if info.Size() == 0 {
			newDiff = append(newDiff, manifest.DiffRecord{
				Record: manifest.Record{Path: path, Empty: true, Created: entry.Created, LastMod: entry.LastMod},
				Status: toManifestStatus(entry.Status),
			})
			continue
		}

		if master, ok := hashIndex[entry.Hash]; ok {
			newDiff = append(newDiff, manifest.DiffRecord{
				Record: manifest.Record{
					Path: path, Hash: entry.Hash, RealPath: master.RealPath,
					VersionID: master.VersionID, HashNames: master.HashNames,
					Created: entry.Created, LastMod: entry.LastMod,
				},
				Status: toManifestStatus(entry.Status),
			})
			continue
		}

		if masterPath, ok := pendingHashes[entry.Hash]; ok {
			deferredDuplicates = append(deferredDuplicates, duplicateRef{path: path, status: toManifestStatus(entry.Status), masterOf: masterPath})
			continue
		}

		rule, err := e.resolveFilePipeline(path)
		if err != nil {
			return nil, time.Time{}, err
		}
		hashNames := pipeline.HasHashNames(rule.Transforms)
		uploadQueue = append(uploadQueue, pendingUpload{path: path, status: toManifestStatus(entry.Status), hashNames: hashNames})
		pendingHashes[entry.Hash] = path
	}

	if len(uploadQueue) > 0 {
		gcEntries := make([]GCLogEntry, 0, len(uploadQueue))
		for _, u := range uploadQueue {
			gcEntries = append(gcEntries, GCLogEntry{Path: u.path, RealPath: u.path, HashNames: u.hashNames})
		}
		if err := e.PublishGCLog(ctx, gcEntries); err != nil {
			return nil, time.Time{}, err
		}
	}

	type uploadOutcome struct {
		rec manifest.Record
		ok  bool
	}
	outcomes := make([]uploadOutcome, len(uploadQueue))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(8)
	for i, u := range uploadQueue {
		i, u := i, u
		group.Go(func() error {
			entry := diffSubset[u.path]
			rec, ok, err := e.uploadFile(groupCtx, u.path, entry)
			if err != nil {
				return err
			}
			outcomes[i] = uploadOutcome{rec: rec, ok: ok}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, time.Time{}, err
	}

	uploadResults := make(map[string]manifest.Record, len(uploadQueue))
	for i, u := range uploadQueue {
		if !outcomes[i].ok {
			continue // file vanished mid-upload or raced away
		}
		uploadResults[u.path] = outcomes[i].rec
		newDiff = append(newDiff, manifest.DiffRecord{Record: outcomes[i].rec, Status: u.status})
	}

	for _, dup := range deferredDuplicates {
		master, ok := uploadResults[dup.masterOf]
		if !ok {
			continue // the master upload itself vanished; nothing to reference
		}
		entry := diffSubset[dup.path]
		newDiff = append(newDiff, manifest.DiffRecord{
			Record: manifest.Record{
				Path: dup.path, Hash: entry.Hash, RealPath: master.RealPath,
				VersionID: master.VersionID, HashNames: master.HashNames,
				Created: entry.Created, LastMod: entry.LastMod,
			},
			Status: dup.status,
		})
	}

	if len(newDiff) == 0 {
		return manifestFiles, expectedHead, nil
	}

	versions, err := e.store.ListVersions(ctx, e.cfg.RemoteManifestDiffFile)
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(versions) > 0 {
		actualHead := versions[len(versions)-1].LastModified
		if !actualHead.Equal(expectedHead) {
			return nil, time.Time{}, rrerr.VersionMismatch.New(
				"diff chain head changed since it was last read (expected last_modified=%s, found=%s); another process committed concurrently",
				expectedHead, actualHead)
		}
	}

	body, err := manifest.EncodeDiff(newDiff, e.metaOptions())
	if err != nil {
		return nil, time.Time{}, err
	}
	versionID, err := e.store.PutObject(ctx, e.cfg.RemoteManifestDiffFile, body, nil)
	if err != nil {
		return nil, time.Time{}, err
	}
	published, err := e.store.GetObject(ctx, e.cfg.RemoteManifestDiffFile, versionID)
	if err != nil {
		return nil, time.Time{}, err
	}

	diff := manifest.Diff{Records: newDiff, VersionID: versionID, LastModified: published.LastModified}
	updatedFiles := manifest.ApplyDiffs([]manifest.Diff{diff}, manifestFiles)
	if err := manifest.WriteCache(e.cfg.LocalManifestFile, manifest.Cache{Files: updatedFiles, LastModified: diff.LastModified}); err != nil {
		return nil, time.Time{}, err
	}

	if len(uploadQueue) > 0 {
		time.Sleep(time.Second)
		if err := e.store.DeleteObject(ctx, e.cfg.RemoteGCLogFile, ""); err != nil {
			return nil, time.Time{}, err
		}
	}

	return updatedFiles, diff.LastModified, nil
}

// uploadFile streams one file's content through its matched pipeline
// into the store. ok is false when the file vanished between being
// queued and being read, which is treated as a benign race, not an
// error.
func (e *Engine) uploadFile(ctx context.Context, path string, entry scan.DiffEntry) (manifest.Record, bool, error) {
	diskPath := joinBase(e.cfg.BasePath, path)

	fh, err := os.Open(diskPath)
	if err != nil {
		return manifest.Record{}, false, nil
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return manifest.Record{}, false, nil
	}
	if info.Size() == 0 {
		return manifest.Record{Path: path, Empty: true, Created: entry.Created, LastMod: entry.LastMod}, true, nil
	}

	rule, err := e.resolveFilePipeline(path)
	if err != nil {
		return manifest.Record{}, false, err
	}
	hashNames := pipeline.HasHashNames(rule.Transforms)
	key := e.remoteKey(path, hashNames)

	kdf, err := e.kdfParams(ctx)
	if err != nil {
		return manifest.Record{}, false, err
	}

	upload, err := e.store.NewStreamingUpload(ctx, key)
	if err != nil {
		return manifest.Record{}, false, err
	}

	versionID, uploadErr := e.driveUpload(ctx, upload, fh, rule.Transforms, kdf)
	if uploadErr != nil {
		_ = upload.Abort(ctx)
		if errs2.IsCanceled(uploadErr) {
			return manifest.Record{}, false, uploadErr
		}
		e.log.Warn("aborting upload after mid-stream error", zap.String("path", path), zap.Error(uploadErr))
		return manifest.Record{}, false, nil
	}

	return manifest.Record{
		Path: path, Hash: entry.Hash, RealPath: path, VersionID: versionID,
		HashNames: hashNames, Created: entry.Created, LastMod: entry.LastMod,
	}, true, nil
}

func joinBase(base, path string) string {
	return base + path
}

func toManifestStatus(s string) string {
	switch s {
	case scan.StatusNew:
		return manifest.StatusNew
	case scan.StatusChanged:
		return manifest.StatusChanged
	default:
		return s
	}
}

func matchesSkipDelete(path string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, path); ok {
			return true
		}
	}
	return false
}
