// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package cryptutil

import (
	"bytes"
	"io"

	"github.com/minio/sio"
)

// sioConfig builds the minio/sio configuration used for every encrypted
// object. associatedData is the serialised pipeline header: binding it as
// extra authenticated data prevents header tampering, including silently
// downgrading transforms.
func sioConfig(key []byte, associatedData []byte) sio.Config {
	return sio.Config{
		Key:         key,
		CipherSuite: []byte{sio.CHACHA20_POLY1305},
		ExtraData:   associatedData,
	}
}

// EncryptOneShot encrypts the full plaintext in memory, prepending the
// DARE stream header produced by minio/sio to the returned ciphertext.
func EncryptOneShot(plaintext, key, associatedData []byte) ([]byte, error) {
	var buf bytes.Buffer
	_, err := sio.Encrypt(&buf, bytes.NewReader(plaintext), sioConfig(key, associatedData))
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return buf.Bytes(), nil
}

// DecryptOneShot reverses EncryptOneShot.
func DecryptOneShot(ciphertext, key, associatedData []byte) ([]byte, error) {
	var buf bytes.Buffer
	_, err := sio.Decrypt(&buf, bytes.NewReader(ciphertext), sioConfig(key, associatedData))
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return buf.Bytes(), nil
}

// EncryptReader wraps src so that reading from it yields the DARE stream
// header followed by encrypted chunks, each independently authenticated
// against associatedData.
func EncryptReader(src io.Reader, key, associatedData []byte) (io.Reader, error) {
	r, err := sio.EncryptReader(src, sioConfig(key, associatedData))
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return r, nil
}

// DecryptReader reverses EncryptReader: src must begin with the DARE
// stream header.
func DecryptReader(src io.Reader, key, associatedData []byte) (io.Reader, error) {
	r, err := sio.DecryptReader(src, sioConfig(key, associatedData))
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return r, nil
}
