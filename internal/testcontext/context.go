// Copyright (C) 2018 Storj Labs, Inc.
// See LICENSE for copying information.

// Package testcontext provides a per-test scratch directory and a way to
// run background goroutines that must finish (or be reported) before the
// test does.
package testcontext

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// Context combines a context.Context, a temp directory, and tracked
// background goroutines scoped to a single test.
type Context struct {
	context.Context
	t testing.TB

	cancel context.CancelFunc

	once sync.Once
	dir  string

	wg sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

// New creates a new test context with no deadline.
func New(t testing.TB) *Context {
	ctx, cancel := context.WithCancel(context.Background())
	return &Context{Context: ctx, t: t, cancel: cancel}
}

// NewWithTimeout creates a new test context that cancels itself after
// timeout, failing the test if any tracked goroutine is still running then.
func NewWithTimeout(t testing.TB, timeout time.Duration) *Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return &Context{Context: ctx, t: t, cancel: cancel}
}

// Dir returns a subdirectory of the test's scratch directory, creating it
// and its parents if necessary.
func (ctx *Context) Dir(subdir ...string) string {
	ctx.once.Do(ctx.init)
	dir := filepath.Join(append([]string{ctx.dir}, subdir...)...)
	if err := os.MkdirAll(dir, 0700); err != nil {
		ctx.t.Fatal(err)
	}
	return dir
}

// File returns a path inside the test's scratch directory, creating the
// parent directories if necessary, without creating the file itself.
func (ctx *Context) File(pathParts ...string) string {
	if len(pathParts) == 0 {
		ctx.t.Fatal("file requires at least one path component")
	}
	dir := ctx.Dir(pathParts[:len(pathParts)-1]...)
	return filepath.Join(dir, pathParts[len(pathParts)-1])
}

func (ctx *Context) init() {
	dir, err := os.MkdirTemp("", "rrbackup-test")
	if err != nil {
		ctx.t.Fatal(err)
	}
	ctx.dir = dir
}

// Go runs fn in a goroutine tracked by Cleanup; any error it returns fails
// the test once Cleanup runs.
func (ctx *Context) Go(fn func() error) {
	ctx.wg.Add(1)
	go func() {
		defer ctx.wg.Done()
		if err := fn(); err != nil {
			ctx.mu.Lock()
			ctx.errs = append(ctx.errs, err)
			ctx.mu.Unlock()
		}
	}()
}

// Cleanup waits for tracked goroutines (until the context's deadline, if
// any), reports their errors, cancels the context, and removes the
// scratch directory.
func (ctx *Context) Cleanup() {
	done := make(chan struct{})
	go func() {
		ctx.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Context.Done():
		ctx.t.Error("test context canceled before background goroutines finished")
	}

	ctx.cancel()

	ctx.mu.Lock()
	for _, err := range ctx.errs {
		ctx.t.Error(err)
	}
	ctx.mu.Unlock()

	if ctx.dir != "" {
		if err := os.RemoveAll(ctx.dir); err != nil {
			ctx.t.Error(err)
		}
	}
}
