// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package memstore_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robehickman/rrbackup/objstore"
	"github.com/robehickman/rrbackup/objstore/memstore"
)

func tickingClock() func() time.Time {
	base := time.Unix(1700000000, 0)
	return func() time.Time {
		base = base.Add(time.Second)
		return base
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(tickingClock())
	require.NoError(t, s.Connect(ctx))

	id1, err := s.PutObject(ctx, "files/abc", []byte("hello"), nil)
	require.NoError(t, err)

	id2, err := s.PutObject(ctx, "files/abc", []byte("world"), nil)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	latest, err := s.GetObject(ctx, "files/abc", "")
	require.NoError(t, err)
	assert.Equal(t, "world", string(latest.Body))
	assert.Equal(t, id2, latest.VersionID)

	older, err := s.GetObject(ctx, "files/abc", id1)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(older.Body))
}

func TestGetObjectMissing(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(nil)

	_, err := s.GetObject(ctx, "files/nope", "")
	assert.ErrorIs(t, err, objstore.ErrNoSuchObject)
}

func TestListVersionsSortedAscending(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(tickingClock())

	_, err := s.PutObject(ctx, "files/a", []byte("1"), nil)
	require.NoError(t, err)
	_, err = s.PutObject(ctx, "files/b", []byte("2"), nil)
	require.NoError(t, err)
	_, err = s.PutObject(ctx, "files/a", []byte("3"), nil)
	require.NoError(t, err)

	versions, err := s.ListVersions(ctx, "files/")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	for i := 1; i < len(versions); i++ {
		assert.True(t, versions[i-1].LastModified.Before(versions[i].LastModified))
	}
}

func TestDeleteObjectCreatesDeleteMarker(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(tickingClock())

	_, err := s.PutObject(ctx, "files/a", []byte("1"), nil)
	require.NoError(t, err)
	require.NoError(t, s.DeleteObject(ctx, "files/a", ""))

	_, err = s.GetObject(ctx, "files/a", "")
	assert.ErrorIs(t, err, objstore.ErrNoSuchObject)
}

func TestStreamingUploadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(tickingClock())

	up, err := s.NewStreamingUpload(ctx, "files/big")
	require.NoError(t, err)

	require.NoError(t, up.NextChunk(ctx, []byte("part1-")))
	require.NoError(t, up.NextChunk(ctx, []byte("part2")))

	versionID, err := up.Finish(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, versionID)

	obj, err := s.GetObject(ctx, "files/big", versionID)
	require.NoError(t, err)
	assert.Equal(t, "part1-part2", string(obj.Body))
}

func TestStreamingUploadAbort(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(nil)

	up, err := s.NewStreamingUpload(ctx, "files/big")
	require.NoError(t, err)
	require.NoError(t, up.NextChunk(ctx, []byte("x")))
	require.NoError(t, up.Abort(ctx))

	err = up.NextChunk(ctx, []byte("y"))
	assert.Error(t, err)

	require.NoError(t, s.DeleteFailedUploads(ctx))
}

func TestStreamingDownloadChunks(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(nil)

	_, err := s.PutObject(ctx, "files/a", []byte("abcdef"), nil)
	require.NoError(t, err)

	dl, err := s.NewStreamingDownload(ctx, "files/a", "")
	require.NoError(t, err)
	defer dl.Close()

	var all []byte
	for {
		chunk, err := dl.NextChunk(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		all = append(all, chunk...)
	}
	assert.Equal(t, "abcdef", string(all))
}
