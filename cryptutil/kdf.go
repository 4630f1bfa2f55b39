// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

// Package cryptutil implements the key derivation and authenticated
// encryption used by the "encrypt" pipeline transform.
package cryptutil

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/zeebo/errs"
	"golang.org/x/crypto/argon2"
)

// Error is the class of errors returned by this package.
var Error = errs.Class("cryptutil")

const (
	// SaltSize is the length in bytes of a freshly generated KDF salt.
	SaltSize = 16
	// KeySize is the length in bytes of derived keys, matching the
	// key size required by the AEAD cipher suite in aead.go.
	KeySize = 32

	// AlgorithmArgon2i is the only key-derivation algorithm currently
	// recognised; stored in the header so future algorithms can be
	// added without breaking old objects.
	AlgorithmArgon2i = "argon2i"
)

// KDFParams are the Argon2i parameters recorded in every encrypted
// object's pipeline header (the "A"/"O"/"M"/"S" fields), so that objects
// written under one set of parameters stay decryptable if the defaults
// change later.
type KDFParams struct {
	Algorithm string
	Ops       uint32
	Mem       uint32 // KiB
	Salt      []byte
}

// InteractiveParams returns Argon2i parameters roughly equivalent to
// libsodium's "interactive" limits: fast enough for routine commits, still
// resistant to offline brute force.
func InteractiveParams(salt []byte) KDFParams {
	return KDFParams{
		Algorithm: AlgorithmArgon2i,
		Ops:       3,
		Mem:       32 * 1024,
		Salt:      salt,
	}
}

// NewSalt generates a fresh random salt of SaltSize bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, Error.Wrap(err)
	}
	return salt, nil
}

// DeriveKey derives a KeySize-byte key from password and params using
// Argon2i. An empty password is rejected.
func DeriveKey(password string, params KDFParams) ([]byte, error) {
	if password == "" {
		return nil, Error.New("empty password is not permitted")
	}
	if params.Algorithm != AlgorithmArgon2i {
		return nil, Error.New("unsupported key derivation algorithm %q", params.Algorithm)
	}
	if len(params.Salt) == 0 {
		return nil, Error.New("missing salt")
	}
	return argon2.Key([]byte(password), params.Salt, params.Ops, params.Mem, 1, KeySize), nil
}

// SaltBase64 returns the salt, base64-encoded for embedding in a JSON
// header.
func (p KDFParams) SaltBase64() string {
	return base64.StdEncoding.EncodeToString(p.Salt)
}

// DecodeSalt reverses SaltBase64.
func DecodeSalt(encoded string) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return salt, nil
}
