// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package errs2_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robehickman/rrbackup/internal/errs2"
)

func TestIsCanceled(t *testing.T) {
	parentCtx, cancel := context.WithCancel(context.Background())
	childCtx, childCancel := context.WithTimeout(parentCtx, 30*time.Second)
	defer childCancel()

	cancel()

	parentErr := parentCtx.Err()
	childErr := childCtx.Err()

	require.Equal(t, context.Canceled, parentErr)
	require.Equal(t, context.Canceled, childErr)

	require.True(t, errs2.IsCanceled(parentErr))
	require.True(t, errs2.IsCanceled(childErr))

	require.False(t, errs2.IsCanceled(nil))
	require.False(t, errs2.IsCanceled(context.DeadlineExceeded))
}
