// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

//go:build unix

package scan

import (
	"os"
	"syscall"
)

// fileTimes extracts creation and modification times at second
// resolution from a file's stat_t, falling back to ModTime for both if
// the platform doesn't expose ctim.
func fileTimes(info os.FileInfo) (created, lastMod int64) {
	lastMod = info.ModTime().Unix()
	created = lastMod

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return created, lastMod
	}
	created = stat.Ctim.Sec
	return created, lastMod
}

// deviceOf returns the device id backing path, used to detect mount
// point boundaries.
func deviceOf(path string) (uint64, bool) {
	var stat syscall.Stat_t
	if err := syscall.Stat(path, &stat); err != nil {
		return 0, false
	}
	return uint64(stat.Dev), true
}
