// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package pipeline_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robehickman/rrbackup/cryptutil"
	"github.com/robehickman/rrbackup/pipeline"
)

func testKDF(t *testing.T) *cryptutil.KDFParams {
	salt, err := cryptutil.NewSalt()
	require.NoError(t, err)
	params := cryptutil.InteractiveParams(salt)
	return &params
}

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	kdf := testKDF(t)
	header, err := pipeline.NewHeader([]string{pipeline.TransformCompress, pipeline.TransformEncrypt}, 5<<20, kdf)
	require.NoError(t, err)

	encoded, err := header.Encode()
	require.NoError(t, err)

	decoded, err := pipeline.DecodeHeader(bytes.NewReader(encoded))
	require.NoError(t, err)

	assert.Equal(t, header.ChunkSize, decoded.ChunkSize)
	assert.NotNil(t, decoded.Compress)
	assert.NotNil(t, decoded.Encrypt)
	assert.Equal(t, kdf.Algorithm, decoded.Encrypt.Algorithm)
}

func TestNewHeaderUnknownTransform(t *testing.T) {
	_, err := pipeline.NewHeader([]string{"not-a-transform"}, 5<<20, nil)
	assert.Error(t, err)
}

func TestNewHeaderEncryptRequiresKDF(t *testing.T) {
	_, err := pipeline.NewHeader([]string{pipeline.TransformEncrypt}, 5<<20, nil)
	assert.Error(t, err)
}

func TestOneShotRoundTripPlain(t *testing.T) {
	opts := pipeline.Options{ChunkSize: 5 << 20}
	object, err := pipeline.EncodeOneShot([]byte("hello world"), opts, nil)
	require.NoError(t, err)

	plaintext, _, err := pipeline.DecodeOneShot(object, "")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(plaintext))
}

func TestOneShotRoundTripCompress(t *testing.T) {
	opts := pipeline.Options{Transforms: []string{pipeline.TransformCompress}, ChunkSize: 5 << 20}
	data := []byte(strings.Repeat("aaaaaaaaaa", 500))
	object, err := pipeline.EncodeOneShot(data, opts, nil)
	require.NoError(t, err)
	assert.Less(t, len(object), len(data))

	plaintext, header, err := pipeline.DecodeOneShot(object, "")
	require.NoError(t, err)
	assert.Equal(t, data, plaintext)
	assert.NotNil(t, header.Compress)
}

func TestOneShotRoundTripCompressEncrypt(t *testing.T) {
	kdf := testKDF(t)
	opts := pipeline.Options{
		Transforms: []string{pipeline.TransformCompress, pipeline.TransformEncrypt},
		ChunkSize:  5 << 20,
		Password:   "hunter2",
	}
	data := []byte(strings.Repeat("payload-", 200))
	object, err := pipeline.EncodeOneShot(data, opts, kdf)
	require.NoError(t, err)

	plaintext, header, err := pipeline.DecodeOneShot(object, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, data, plaintext)
	assert.NotNil(t, header.Encrypt)

	_, _, err = pipeline.DecodeOneShot(object, "wrong-password")
	assert.Error(t, err)
}

func TestStreamRoundTripCompressEncrypt(t *testing.T) {
	kdf := testKDF(t)
	opts := pipeline.Options{
		Transforms: []string{pipeline.TransformCompress, pipeline.TransformEncrypt},
		ChunkSize:  5 << 20,
		Password:   "hunter2",
	}
	data := strings.Repeat("streamed chunk data ", 2000)

	encoded, _, err := pipeline.EncodeStream(strings.NewReader(data), opts, kdf)
	require.NoError(t, err)

	decoded, header, err := pipeline.DecodeStream(encoded, "hunter2")
	require.NoError(t, err)
	assert.NotNil(t, header.Encrypt)

	out, err := io.ReadAll(decoded)
	require.NoError(t, err)
	assert.Equal(t, data, string(out))
}

func TestRemoteKeyHashNames(t *testing.T) {
	assert.Equal(t, "/a/b.txt", pipeline.RemoteKey("/a/b.txt", false))

	hashed := pipeline.RemoteKey("/a/b.txt", true)
	assert.Len(t, hashed, 64)
	assert.Equal(t, pipeline.HashPath("/a/b.txt"), hashed)
}
