// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package engine

import (
	"context"
	"encoding/json"

	"github.com/zeebo/errs"

	"github.com/robehickman/rrbackup/internal/errs2"
	"github.com/robehickman/rrbackup/manifest"
	"github.com/robehickman/rrbackup/objstore"
	"github.com/robehickman/rrbackup/rrerr"
)

// GCMode selects how thoroughly GarbageCollect checks the invariant that
// every remote object version is referenced by some manifest version.
type GCMode int

const (
	// GCSimple is the cheap post-crash sweep driven by the GC-log
	// breadcrumb left by an interrupted commit.
	GCSimple GCMode = iota
	// GCFull is the audit mode: it enumerates the entire remote bucket
	// and the entire diff chain and reconciles them directly.
	GCFull
)

// GCLogEntry is one pending-upload record published to the GC-log
// breadcrumb before a commit chunk's uploads begin, so garbage
// collection can recognise objects whose upload completed but whose
// diff-chain publication did not.
type GCLogEntry struct {
	Path      string `json:"path"`
	RealPath  string `json:"real_path"`
	HashNames bool   `json:"hash_names"`
	Empty     bool   `json:"empty"`
}

// PublishGCLog uploads pending as the new GC-log breadcrumb.
func (e *Engine) PublishGCLog(ctx context.Context, pending []GCLogEntry) error {
	body, err := json.Marshal(pending)
	if err != nil {
		return Error.Wrap(err)
	}
	encoded, err := encodeMetaObject(ctx, e, body)
	if err != nil {
		return err
	}
	_, err = e.store.PutObject(ctx, e.cfg.RemoteGCLogFile, encoded, nil)
	return err
}

// GarbageCollect runs the invariant-restoring sweep in the requested
// mode.
func (e *Engine) GarbageCollect(ctx context.Context, mode GCMode) error {
	switch mode {
	case GCSimple:
		return e.gcSimple(ctx)
	case GCFull:
		return e.gcFull(ctx)
	default:
		return rrerr.InvalidGCMode.New("unrecognised garbage collection mode %v", mode)
	}
}

func (e *Engine) gcSimple(ctx context.Context) error {
	obj, err := e.store.GetObject(ctx, e.cfg.RemoteGCLogFile, "")
	if err == objstore.ErrNoSuchObject {
		return nil
	}
	if err != nil {
		return err
	}

	body, err := decodeMetaObject(e, obj.Body)
	if err != nil {
		return err
	}
	var entries []GCLogEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return Error.Wrap(err)
	}

	cache, err := manifest.Get(ctx, e.store, e.cfg.RemoteManifestDiffFile, e.cfg.LocalManifestFile, e.cfg.CryptPassword)
	if err != nil {
		return err
	}
	byPath := make(map[string]manifest.Record, len(cache.Files))
	for _, r := range cache.Files {
		byPath[r.Path] = r
	}

	gcLogTimestamp := obj.LastModified

	for _, entry := range entries {
		if rec, ok := byPath[entry.Path]; ok && rec.Empty {
			continue
		}

		key := e.remoteKey(entry.RealPath, entry.HashNames)
		versions, err := e.store.ListVersions(ctx, key)
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			continue
		}
		latest := versions[len(versions)-1]
		if latest.LastModified.Before(gcLogTimestamp) {
			continue
		}

		rec, inManifest := byPath[entry.Path]
		garbage := !inManifest || rec.VersionID != latest.VersionID
		if !garbage {
			continue
		}
		if err := e.deleteOrLogGarbage(ctx, key, latest.VersionID); err != nil {
			return err
		}
	}

	return e.store.DeleteObject(ctx, e.cfg.RemoteGCLogFile, "")
}

func pairKey(key, versionID string) string { return key + "\x00" + versionID }

func (e *Engine) gcFull(ctx context.Context) error {
	remote, err := e.store.ListVersions(ctx, "")
	if err != nil {
		return err
	}
	remoteSet := make(map[string]bool, len(remote))
	for _, v := range remote {
		remoteSet[pairKey(v.Key, v.VersionID)] = true
	}

	chain, err := manifest.LoadChain(ctx, e.store, e.cfg.RemoteManifestDiffFile, e.cfg.CryptPassword)
	if err != nil {
		return err
	}

	reservedKeys := map[string]bool{
		e.cfg.RemoteGCLogFile:            true,
		e.cfg.RemoteGarbageObjectLogFile: true,
		e.cfg.RemoteSaltFile:             true,
	}

	referenced := make(map[string]bool)
	for _, diff := range chain {
		for _, rec := range diff.Records {
			if rec.Status == manifest.StatusDeleted || rec.Empty {
				continue
			}
			key := e.remoteKey(rec.RealPath, rec.HashNames)
			referenced[pairKey(key, rec.VersionID)] = true
		}
		referenced[pairKey(e.cfg.RemoteManifestDiffFile, diff.VersionID)] = true
	}

	var missing []string
	for ref := range referenced {
		if !remoteSet[ref] {
			missing = append(missing, ref)
		}
	}
	if len(missing) > 0 {
		return rrerr.MissingObjects.New("manifest references %d objects absent from the remote store", len(missing))
	}

	// Sequential: deleteOrLogGarbage may fall back to appendGarbageLog,
	// whose read-modify-write of the garbage log is not safe to run
	// concurrently against itself.
	for _, v := range remote {
		if reservedKeys[v.Key] {
			continue
		}
		if referenced[pairKey(v.Key, v.VersionID)] {
			continue
		}
		if err := e.deleteOrLogGarbage(ctx, v.Key, v.VersionID); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) deleteOrLogGarbage(ctx context.Context, key, versionID string) error {
	if e.cfg.AllowDeleteVersions && !e.cfg.ReadOnly {
		return e.store.DeleteObject(ctx, key, versionID)
	}
	return e.appendGarbageLog(ctx, key, versionID)
}

// garbageLogEntry is one line of the deferred-deletion log.
type garbageLogEntry struct {
	Key       string `json:"key"`
	VersionID string `json:"version_id"`
}

func (e *Engine) appendGarbageLog(ctx context.Context, key, versionID string) error {
	var entries []garbageLogEntry
	obj, err := e.store.GetObject(ctx, e.cfg.RemoteGarbageObjectLogFile, "")
	if err == nil {
		body, err := decodeMetaObject(e, obj.Body)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &entries); err != nil {
			return Error.Wrap(err)
		}
	} else if err != objstore.ErrNoSuchObject {
		return err
	}

	entries = append(entries, garbageLogEntry{Key: key, VersionID: versionID})

	body, err := json.Marshal(entries)
	if err != nil {
		return Error.Wrap(err)
	}
	encoded, err := encodeMetaObject(ctx, e, body)
	if err != nil {
		return err
	}
	_, err = e.store.PutObject(ctx, e.cfg.RemoteGarbageObjectLogFile, encoded, nil)
	return err
}

// CleanGCLog flattens the deferred-deletion log, deleting every entry
// it names, then clears the log. It refuses to run without delete
// permission, matching the permission model in deleteOrLogGarbage.
func (e *Engine) CleanGCLog(ctx context.Context) error {
	if !e.cfg.AllowDeleteVersions || e.cfg.ReadOnly {
		return rrerr.ReadOnly.New("clean_gc_log requires allow_delete_versions and a non-read-only configuration")
	}

	obj, err := e.store.GetObject(ctx, e.cfg.RemoteGarbageObjectLogFile, "")
	if err == objstore.ErrNoSuchObject {
		return nil
	}
	if err != nil {
		return err
	}

	body, err := decodeMetaObject(e, obj.Body)
	if err != nil {
		return err
	}
	var entries []garbageLogEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return Error.Wrap(err)
	}

	var group errs2.Group
	for _, entry := range entries {
		entry := entry
		group.Go(func() error {
			return e.store.DeleteObject(ctx, entry.Key, entry.VersionID)
		})
	}
	if combined := errs.Combine(group.Wait()...); combined != nil {
		return combined
	}

	return e.store.DeleteObject(ctx, e.cfg.RemoteGarbageObjectLogFile, "")
}
