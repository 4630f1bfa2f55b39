// Copyright (C) 2018 Storj Labs, Inc.
// See LICENSE for copying information.

// Package memory contains helper functions for memory size formatting.
package memory

import "fmt"

// Size represents a size in bytes.
type Size int64

// byte size units.
const (
	B  Size = 1
	KB Size = 1000 * B
	MB Size = 1000 * KB
	GB Size = 1000 * MB
	TB Size = 1000 * GB

	KiB Size = 1 << 10
	MiB Size = 1 << 20
	GiB Size = 1 << 30
	TiB Size = 1 << 40
)

// Int returns the size as an int.
func (size Size) Int() int { return int(size) }

// Int32 returns the size as an int32.
func (size Size) Int32() int32 { return int32(size) }

// Int64 returns the size as an int64.
func (size Size) Int64() int64 { return int64(size) }

// String converts size to a string using the largest suitable binary unit.
func (size Size) String() string {
	switch {
	case size == 0:
		return "0"
	case size < 0:
		return "-" + (-size).String()
	case size < KiB:
		return fmt.Sprintf("%d B", int64(size))
	case size < MiB:
		return fmt.Sprintf("%.1f KiB", float64(size)/float64(KiB))
	case size < GiB:
		return fmt.Sprintf("%.1f MiB", float64(size)/float64(MiB))
	case size < TiB:
		return fmt.Sprintf("%.1f GiB", float64(size)/float64(GiB))
	default:
		return fmt.Sprintf("%.1f TiB", float64(size)/float64(TiB))
	}
}
