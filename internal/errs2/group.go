// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package errs2

import "sync"

// Group is a collection of goroutines working on subtasks that may fail,
// collecting every error instead of stopping at the first one the way
// golang.org/x/sync/errgroup does.
type Group struct {
	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
}

// Go calls fn in a new goroutine, appending its error (if any) to the
// group's result once it returns.
func (group *Group) Go(fn func() error) {
	group.wg.Add(1)
	go func() {
		defer group.wg.Done()
		if err := fn(); err != nil {
			group.mu.Lock()
			group.errs = append(group.errs, err)
			group.mu.Unlock()
		}
	}()
}

// Wait blocks until every goroutine started with Go has returned, and
// returns every error they produced, in no particular order.
func (group *Group) Wait() []error {
	group.wg.Wait()
	group.mu.Lock()
	defer group.mu.Unlock()
	return group.errs
}
