// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package manifest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/robehickman/rrbackup/objstore"
	"github.com/robehickman/rrbackup/pipeline"
	"github.com/robehickman/rrbackup/rrerr"
)

// wireRecord/wireDiff are the JSON shapes stored in each diff-chain
// object; Diff.VersionID/LastModified are filled in from the object
// store's own version metadata, not serialised into the body.
type wireRecord struct {
	Path      string `json:"path"`
	Hash      string `json:"hash,omitempty"`
	RealPath  string `json:"real_path,omitempty"`
	VersionID string `json:"version_id,omitempty"`
	Empty     bool   `json:"empty,omitempty"`
	HashNames bool   `json:"hash_names,omitempty"`
	Created   int64  `json:"created,omitempty"`
	LastMod   int64  `json:"last_mod,omitempty"`
	Status    string `json:"status"`
}

func toWire(d DiffRecord) wireRecord {
	return wireRecord{
		Path: d.Path, Hash: d.Hash, RealPath: d.RealPath, VersionID: d.VersionID,
		Empty: d.Empty, HashNames: d.HashNames, Created: d.Created, LastMod: d.LastMod,
		Status: d.Status,
	}
}

func fromWire(w wireRecord) DiffRecord {
	return DiffRecord{
		Record: Record{
			Path: w.Path, Hash: w.Hash, RealPath: w.RealPath, VersionID: w.VersionID,
			Empty: w.Empty, HashNames: w.HashNames, Created: w.Created, LastMod: w.LastMod,
		},
		Status: w.Status,
	}
}

// EncodeDiff serialises a diff's records (not its remote-assigned
// VersionID/LastModified, which the store fills in) through the meta
// pipeline, ready to PutObject.
func EncodeDiff(records []DiffRecord, opts pipeline.Options) ([]byte, error) {
	wire := make([]wireRecord, len(records))
	for i, r := range records {
		wire[i] = toWire(r)
	}
	body, err := json.Marshal(wire)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return pipeline.EncodeOneShot(body, opts, nil)
}

// DecodeDiff reverses EncodeDiff.
func DecodeDiff(object []byte, password string) ([]DiffRecord, error) {
	body, _, err := pipeline.DecodeOneShot(object, password)
	if err != nil {
		return nil, err
	}
	var wire []wireRecord
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, Error.Wrap(err)
	}
	records := make([]DiffRecord, len(wire))
	for i, w := range wire {
		records[i] = fromWire(w)
	}
	return records, nil
}

// LoadChain fetches every version of the diff-chain object, decodes
// each, and returns them ordered by the store's own ascending
// LastModified ordering (which ListVersions already guarantees).
func LoadChain(ctx context.Context, store objstore.Store, key, password string) ([]Diff, error) {
	versions, err := store.ListVersions(ctx, key)
	if err != nil {
		return nil, err
	}

	diffs := make([]Diff, 0, len(versions))
	for _, v := range versions {
		obj, err := store.GetObject(ctx, key, v.VersionID)
		if err != nil {
			return nil, err
		}
		records, err := DecodeDiff(obj.Body, password)
		if err != nil {
			return nil, err
		}
		diffs = append(diffs, Diff{
			Records:      records,
			VersionID:    v.VersionID,
			LastModified: v.LastModified,
		})
	}
	return diffs, nil
}

// Cache is the local, disk-persisted view of the manifest: the resolved
// file list plus the LastModified timestamp of the diff-chain head it
// was built from.
type Cache struct {
	Files        []Record  `json:"files"`
	LastModified time.Time `json:"last_modified"`
}

// ReadCache loads the local cache file. ok is false if the file does
// not exist (not an error condition - the caller should rebuild from the
// remote chain instead).
func ReadCache(path string) (cache Cache, ok bool, err error) {
	body, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Cache{}, false, nil
		}
		return Cache{}, false, Error.Wrap(err)
	}
	if err := json.Unmarshal(body, &cache); err != nil {
		return Cache{}, false, Error.Wrap(err)
	}
	return cache, true, nil
}

// WriteCache writes the cache atomically: path+".tmp" then rename over
// path.
func WriteCache(path string, cache Cache) error {
	body, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return Error.Wrap(err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return Error.Wrap(err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0600); err != nil {
		return Error.Wrap(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return Error.Wrap(err)
	}
	return nil
}

// Get resolves the current manifest following the reconciliation order:
//  1. no local cache -> rebuild from the full remote chain (empty if the
//     chain itself is empty).
//  2. cache exists but the remote chain has no head -> LocalPresentRemoteMissing.
//  3. cache's LastModified equals the head's -> return the cache as-is.
//  4. head is newer and the cache matches the second-to-last diff's
//     timestamp -> apply just the trailing diff, persist, and return.
//  5. any other divergence -> ReconciliationFailure.
func Get(ctx context.Context, store objstore.Store, diffChainKey, localCachePath, password string) (Cache, error) {
	cache, cacheExists, err := ReadCache(localCachePath)
	if err != nil {
		return Cache{}, err
	}

	chain, err := LoadChain(ctx, store, diffChainKey, password)
	if err != nil {
		return Cache{}, err
	}

	if !cacheExists {
		if len(chain) == 0 {
			return Cache{}, nil
		}
		files := ApplyDiffs(chain, nil)
		head := chain[len(chain)-1]
		rebuilt := Cache{Files: files, LastModified: head.LastModified}
		if err := WriteCache(localCachePath, rebuilt); err != nil {
			return Cache{}, err
		}
		return rebuilt, nil
	}

	if len(chain) == 0 {
		return Cache{}, rrerr.LocalPresentRemoteMissing.New("local manifest cache exists but remote diff chain is empty")
	}

	head := chain[len(chain)-1]
	if sameSecond(cache.LastModified, head.LastModified) {
		return cache, nil
	}

	if head.LastModified.Truncate(time.Second).After(cache.LastModified.Truncate(time.Second)) && len(chain) >= 2 {
		secondToLast := chain[len(chain)-2]
		if sameSecond(secondToLast.LastModified, cache.LastModified) {
			updated := Cache{
				Files:        ApplyDiffs([]Diff{head}, cache.Files),
				LastModified: head.LastModified,
			}
			if err := WriteCache(localCachePath, updated); err != nil {
				return Cache{}, err
			}
			return updated, nil
		}
	}

	return Cache{}, rrerr.ReconciliationFailure.New(
		"local manifest cache (last_modified=%s) does not match remote diff chain head (last_modified=%s)",
		cache.LastModified, head.LastModified)
}

// sameSecond reports whether a and b fall in the same second, the object
// store's native timestamp precision.
func sameSecond(a, b time.Time) bool {
	return a.Truncate(time.Second).Equal(b.Truncate(time.Second))
}
