// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information

package sync2_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/robehickman/rrbackup/internal/memory"
	"github.com/robehickman/rrbackup/internal/sync2"
)

// TestCopyRestoresFullContent mirrors restoreOne's final decoded-body
// copy: a live context lets the whole payload land in the destination.
func TestCopyRestoresFullContent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := io.LimitReader(rand.Reader, 32*memory.KB.Int64())
	var restored bytes.Buffer

	n, err := sync2.Copy(ctx, &restored, payload)

	assert.NoError(t, err)
	assert.EqualValues(t, 32*memory.KB.Int64(), n)
	assert.EqualValues(t, 32*memory.KB.Int64(), restored.Len())
}

// TestCopyAbortsRestoreOnCanceledContext mirrors restoreOne being asked
// to stop mid-file once the enclosing Restore's context is canceled.
func TestCopyAbortsRestoreOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	payload := io.LimitReader(rand.Reader, 32*memory.KB.Int64())
	var restored bytes.Buffer

	n, err := sync2.Copy(ctx, &restored, payload)

	assert.EqualError(t, err, context.Canceled.Error())
	assert.EqualValues(t, 0, n)
}
