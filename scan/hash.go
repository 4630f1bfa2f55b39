// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package scan

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
)

const hashBlockSize = 64 * 1024

// HashFile computes the hex SHA-256 of a file's contents, reading in
// 64 KiB blocks.
func HashFile(diskPath string) (string, error) {
	fh, err := os.Open(diskPath)
	if err != nil {
		return "", Error.Wrap(err)
	}
	defer fh.Close()

	sum := sha256.New()
	buf := make([]byte, hashBlockSize)
	if _, err := io.CopyBuffer(sum, fh, buf); err != nil {
		return "", Error.Wrap(err)
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}

// HashFiles computes the content hash of every new/changed entry in
// diff, resolving each logical path against basePath on disk, and
// returns the updated map with Hash populated. Entries whose file can no
// longer be read are dropped, not returned as errors: a race where the
// file vanished between scan and hash is the caller's concern to retry
// on the next commit, not to fail on.
func HashFiles(diff map[string]DiffEntry, basePath string) map[string]DiffEntry {
	out := make(map[string]DiffEntry, len(diff))
	for path, entry := range diff {
		if entry.Status != StatusNew && entry.Status != StatusChanged {
			out[path] = entry
			continue
		}
		hash, err := HashFile(filepath.Join(basePath, filepath.FromSlash(path)))
		if err != nil {
			continue
		}
		entry.Hash = hash
		out[path] = entry
	}
	return out
}
