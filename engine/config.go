// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

// Package engine implements the commit, restore, and garbage collection
// operations that drive an objstore.Store through the pipeline codec
// using a reconciled manifest.
package engine

import (
	"github.com/robehickman/rrbackup/internal/memory"
)

// FilePipelineRule maps files matching Glob onto an ordered transform
// stack. The first matching rule in Config.FilePipeline wins.
type FilePipelineRule struct {
	Glob       string
	Transforms []string
}

// Config holds every tunable named in the engine's configuration
// surface. It is a plain struct, not a config-file reader: parsing a
// config file into this shape is the caller's concern.
type Config struct {
	BasePath string

	RemoteManifestDiffFile    string
	RemoteGCLogFile           string
	RemoteGarbageObjectLogFile string
	RemoteBasePath            string
	RemoteSaltFile            string

	LocalManifestFile string
	LocalLockFile     string

	ChunkSize int64

	ReadOnly            bool
	WriteOnly           bool
	AllowDeleteVersions bool

	MetaPipeline []string
	FilePipeline []FilePipelineRule

	IgnoreFiles      []string
	SkipDelete       []string
	VisitMountpoints bool

	SplitChunkSize int

	CryptPassword string
}

// DefaultConfig returns the engine's defaults, matching the original
// tool's out-of-the-box behaviour: a 5 MiB chunk size, unencrypted meta
// objects, and every file routed through compress+encrypt+hash_names.
func DefaultConfig(basePath string) Config {
	return Config{
		BasePath: basePath,

		RemoteManifestDiffFile:     "manifest_diffs",
		RemoteGCLogFile:            "gc_log",
		RemoteGarbageObjectLogFile: "garbage_objects",
		RemoteBasePath:             "files",
		RemoteSaltFile:             "salt_file",

		LocalManifestFile: basePath + "/.rrbackup/manifest.json",
		LocalLockFile:     basePath + "/.rrbackup/rrbackup_lock",

		ChunkSize: 5 * memory.MiB.Int64(),

		FilePipeline: []FilePipelineRule{
			{Glob: "**", Transforms: []string{"compress", "encrypt", "hash_names"}},
		},

		IgnoreFiles:      []string{"/.rrbackup/**"},
		VisitMountpoints: true,
	}
}
