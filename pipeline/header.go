// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

// Package pipeline implements the compress/encrypt/hash_names transform
// stack applied to every object the engine writes, and the fixed header
// format that makes each object self-describing.
package pipeline

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/zeebo/errs"

	"github.com/robehickman/rrbackup/cryptutil"
	"github.com/robehickman/rrbackup/rrerr"
)

// Error is the class of errors returned by this package.
var Error = errs.Class("pipeline")

// headerVersion is bumped whenever the header's wire shape changes.
const headerVersion = 1

// Header is the minimal, deterministic JSON structure written as the
// first bytes of every object, both so the object is self-describing
// without consulting the manifest and so it can be fed verbatim as AEAD
// associated data.
type Header struct {
	Version   int    `json:"V"`
	ChunkSize int64  `json:"S"`
	Compress  *bool  `json:"C,omitempty"`
	Encrypt   *EncryptParams `json:"E,omitempty"`
	HashNames *bool  `json:"H,omitempty"`
}

// EncryptParams are the Argon2i parameters needed to decrypt, carried
// inside the header so objects stay decryptable after config changes.
type EncryptParams struct {
	Algorithm string `json:"A"`
	Ops       uint32 `json:"O"`
	Mem       uint32 `json:"M"`
	Salt      string `json:"S"`
}

func boolPtr(b bool) *bool { return &b }

// NewHeader builds a header for the given transform stack and chunk size.
// kdf is only consulted (and required) when "encrypt" is in transforms.
func NewHeader(transforms []string, chunkSize int64, kdf *cryptutil.KDFParams) (Header, error) {
	h := Header{Version: headerVersion, ChunkSize: chunkSize}
	for _, name := range transforms {
		switch name {
		case TransformCompress:
			h.Compress = boolPtr(true)
		case TransformEncrypt:
			if kdf == nil {
				return Header{}, Error.New("encrypt transform requires KDF parameters")
			}
			h.Encrypt = &EncryptParams{
				Algorithm: kdf.Algorithm,
				Ops:       kdf.Ops,
				Mem:       kdf.Mem,
				Salt:      kdf.SaltBase64(),
			}
		case TransformHashNames:
			h.HashNames = boolPtr(true)
		default:
			return Header{}, Error.New("unknown transform %q", name)
		}
	}
	return h, nil
}

// KDFParams reconstructs the KDF parameters embedded in the header, or
// nil if the header has no encrypt field.
func (h Header) KDFParams() (*cryptutil.KDFParams, error) {
	if h.Encrypt == nil {
		return nil, nil
	}
	salt, err := cryptutil.DecodeSalt(h.Encrypt.Salt)
	if err != nil {
		return nil, err
	}
	return &cryptutil.KDFParams{
		Algorithm: h.Encrypt.Algorithm,
		Ops:       h.Encrypt.Ops,
		Mem:       h.Encrypt.Mem,
		Salt:      salt,
	}, nil
}

// Transforms returns the ordered list of out-direction transform names
// this header declares: compress, then encrypt. hash_names is not
// included since it operates on the object key, not the content stream.
func (h Header) Transforms() []string {
	var out []string
	if h.Compress != nil && *h.Compress {
		out = append(out, TransformCompress)
	}
	if h.Encrypt != nil {
		out = append(out, TransformEncrypt)
	}
	return out
}

// Encode serialises the header as its canonical wire bytes:
// [4-byte big-endian length][JSON bytes].
func (h Header) Encode() ([]byte, error) {
	body, err := json.Marshal(h)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out[:4], uint32(len(body)))
	copy(out[4:], body)
	return out, nil
}

// AssociatedData returns the bytes fed as AEAD associated data: the
// serialised header JSON, without the length prefix.
func (h Header) AssociatedData() ([]byte, error) {
	body, err := json.Marshal(h)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return body, nil
}

// DecodeHeader reads a header from the front of r and returns the
// decoded Header, leaving r positioned just past it.
func DecodeHeader(r io.Reader) (Header, error) {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return Header{}, rrerr.InvalidPipelineHeader.New("reading header length: %v", err)
	}
	length := binary.BigEndian.Uint32(lengthBuf[:])

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Header{}, rrerr.InvalidPipelineHeader.New("reading header body: %v", err)
	}

	var h Header
	if err := json.Unmarshal(body, &h); err != nil {
		return Header{}, rrerr.InvalidPipelineHeader.Wrap(err)
	}
	if h.Version != headerVersion {
		return Header{}, rrerr.InvalidPipelineHeader.New("unsupported header version %d", h.Version)
	}
	return h, nil
}
