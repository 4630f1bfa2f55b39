// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package rlock_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robehickman/rrbackup/rlock"
	"github.com/robehickman/rrbackup/rrerr"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rrbackup.lock")

	lock, err := rlock.Acquire(path)
	require.NoError(t, err)

	require.NoError(t, lock.Release())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAcquireFailsWhenAlreadyHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rrbackup.lock")

	first, err := rlock.Acquire(path)
	require.NoError(t, err)
	defer first.Release()

	_, err = rlock.Acquire(path)
	assert.True(t, rrerr.Locked.Has(err))
}
