// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

// Package rlock implements the advisory, non-blocking exclusive lock
// used to keep two commit/gc invocations from touching the same local
// working directory at once.
package rlock

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/robehickman/rrbackup/rrerr"
)

// Lock holds an open, flock'd file descriptor. Release closes it and
// drops the lock.
type Lock struct {
	file *os.File
}

// Acquire takes a non-blocking exclusive lock on path, creating it if
// necessary. Returns rrerr.Locked if another process already holds it.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, rrerr.Locked.Wrap(err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, rrerr.Locked.Wrap(err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = file.Close()
		if err == unix.EWOULDBLOCK {
			return nil, rrerr.Locked.New("local repository is locked by another process")
		}
		return nil, rrerr.Locked.Wrap(err)
	}

	return &Lock{file: file}, nil
}

// Release drops the lock and removes the lock file.
func (l *Lock) Release() error {
	path := l.file.Name()
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		_ = l.file.Close()
		return rrerr.Locked.Wrap(err)
	}
	if err := l.file.Close(); err != nil {
		return rrerr.Locked.Wrap(err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return rrerr.Locked.Wrap(err)
	}
	return nil
}
