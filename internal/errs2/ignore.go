// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package errs2

import (
	"context"
	"errors"
)

// IsCanceled returns true when err is, or wraps, context.Canceled. It
// unwraps both the standard library's chain and zeebo/errs classes and
// combined errors, since both are used throughout the engine.
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	return false
}
