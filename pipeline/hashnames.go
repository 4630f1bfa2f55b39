// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashPath returns the lowercase hex SHA-256 of a logical path, used as
// the remote storage key when a file's pipeline includes hash_names. The
// reverse mapping (hash -> real_path) is kept in the manifest, not
// derivable from the hash alone.
func HashPath(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}

// RemoteKey computes the storage key for a file given its logical path
// and whether its pipeline includes hash_names.
func RemoteKey(path string, hashNames bool) string {
	if hashNames {
		return HashPath(path)
	}
	return path
}
