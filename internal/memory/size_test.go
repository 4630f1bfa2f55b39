// Copyright (C) 2018 Storj Labs, Inc.
// See LICENSE for copying information.

package memory_test

import (
	"testing"

	"github.com/robehickman/rrbackup/internal/memory"
)

func TestSize(t *testing.T) {
	var tests = []struct {
		size memory.Size
		text string
	}{
		{1 * memory.TiB, "1.0 TiB"},
		{1 * memory.GiB, "1.0 GiB"},
		{1 * memory.MiB, "1.0 MiB"},
		{1 * memory.KiB, "1.0 KiB"},
		{1, "1 B"},
		{500, "500 B"},
		{0, "0"},
		{5 * memory.MiB, "5.0 MiB"},
	}

	for i, test := range tests {
		if got := test.size.String(); got != test.text {
			t.Errorf("%d. invalid text got %v expected %v", i, got, test.text)
		}
	}
}

func TestSizeConversions(t *testing.T) {
	size := 5 * memory.MiB
	if size.Int64() != 5*1024*1024 {
		t.Errorf("unexpected Int64 value: %d", size.Int64())
	}
	if size.Int() != 5*1024*1024 {
		t.Errorf("unexpected Int value: %d", size.Int())
	}
}
