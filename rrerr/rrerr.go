// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

// Package rrerr classifies the fatal error conditions the engine can raise,
// so callers can distinguish "this run cannot proceed" from ordinary I/O
// errors without string matching.
package rrerr

import "github.com/zeebo/errs"

var (
	// Locked is returned when the local lock file is already held by
	// another backup invocation, or cannot be created or locked.
	Locked = errs.Class("repository locked")

	// ReadOnly is returned when a write operation is attempted against
	// a repository opened read-only.
	ReadOnly = errs.Class("repository read only")

	// WriteOnly is returned when a read operation is attempted against
	// a repository opened write-only.
	WriteOnly = errs.Class("repository write only")

	// LocalPresentRemoteMissing is returned when a local manifest cache
	// exists but the remote diff chain is empty.
	LocalPresentRemoteMissing = errs.Class("local manifest references missing remote version")

	// ReconciliationFailure is returned when the local and remote
	// manifest diff chains cannot be reconciled automatically.
	ReconciliationFailure = errs.Class("manifest reconciliation failed")

	// UnknownVersion is returned when a caller asks to restore a
	// version id the manifest has no record of.
	UnknownVersion = errs.Class("unknown version")

	// NoPipelineMatch is returned when no file_pipeline rule's glob
	// matches a file being committed.
	NoPipelineMatch = errs.Class("no matching pipeline")

	// MissingObjects is returned by garbage collection when objects
	// referenced by the manifest are absent from the remote store.
	MissingObjects = errs.Class("manifest references missing objects")

	// InvalidGCMode is returned when an unrecognised garbage
	// collection mode is requested.
	InvalidGCMode = errs.Class("invalid garbage collection mode")

	// InvalidPipelineHeader is returned when an object's pipeline
	// header cannot be parsed.
	InvalidPipelineHeader = errs.Class("invalid pipeline header")

	// VersionMismatch is returned when an optimistic-concurrency check
	// on the remote manifest object fails.
	VersionMismatch = errs.Class("version mismatch")
)
