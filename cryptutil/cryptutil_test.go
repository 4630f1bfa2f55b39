// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package cryptutil_test

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robehickman/rrbackup/cryptutil"
)

func testParams(t *testing.T) cryptutil.KDFParams {
	salt, err := cryptutil.NewSalt()
	require.NoError(t, err)
	return cryptutil.InteractiveParams(salt)
}

func TestDeriveKeyRejectsEmptyPassword(t *testing.T) {
	_, err := cryptutil.DeriveKey("", testParams(t))
	assert.Error(t, err)
}

func TestDeriveKeyDeterministic(t *testing.T) {
	params := testParams(t)

	k1, err := cryptutil.DeriveKey("hunter2", params)
	require.NoError(t, err)
	k2, err := cryptutil.DeriveKey("hunter2", params)
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.Len(t, k1, cryptutil.KeySize)
}

func TestDeriveKeyDifferentSaltsDiffer(t *testing.T) {
	params1 := testParams(t)
	params2 := testParams(t)

	k1, err := cryptutil.DeriveKey("hunter2", params1)
	require.NoError(t, err)
	k2, err := cryptutil.DeriveKey("hunter2", params2)
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
}

func TestEncryptDecryptOneShotRoundTrip(t *testing.T) {
	params := testParams(t)
	key, err := cryptutil.DeriveKey("hunter2", params)
	require.NoError(t, err)

	ad := []byte(`{"V":"1"}`)
	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	ciphertext, err := cryptutil.EncryptOneShot(plaintext, key, ad)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	recovered, err := cryptutil.DecryptOneShot(ciphertext, key, ad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, recovered)
}

func TestDecryptOneShotWrongAssociatedDataFails(t *testing.T) {
	params := testParams(t)
	key, err := cryptutil.DeriveKey("hunter2", params)
	require.NoError(t, err)

	ciphertext, err := cryptutil.EncryptOneShot([]byte("data"), key, []byte(`{"V":"1"}`))
	require.NoError(t, err)

	_, err = cryptutil.DecryptOneShot(ciphertext, key, []byte(`{"V":"2"}`))
	assert.Error(t, err)
}

func TestEncryptDecryptReaderRoundTrip(t *testing.T) {
	params := testParams(t)
	key, err := cryptutil.DeriveKey("hunter2", params)
	require.NoError(t, err)

	ad := []byte(`{"V":"1"}`)
	plaintext := strings.Repeat("streamed payload data ", 1000)

	encReader, err := cryptutil.EncryptReader(strings.NewReader(plaintext), key, ad)
	require.NoError(t, err)

	decReader, err := cryptutil.DecryptReader(encReader, key, ad)
	require.NoError(t, err)

	recovered, err := io.ReadAll(decReader)
	require.NoError(t, err)
	assert.Equal(t, plaintext, string(recovered))
}
