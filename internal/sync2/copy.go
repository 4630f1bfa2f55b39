// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information

// Package sync2 contains extra synchronization primitives.
package sync2

import (
	"context"
	"io"
)

// Copy implements copying with cancellation.
func Copy(ctx context.Context, dst io.Writer, src io.Reader) (written int64, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		written, err = io.Copy(dst, src)
	}()

	select {
	case <-done:
		return written, err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
