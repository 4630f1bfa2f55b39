// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package pipeline

import (
	"bytes"
	"io"

	"github.com/robehickman/rrbackup/cryptutil"
)

// Options configures a single object's encode/decode.
type Options struct {
	Transforms []string
	ChunkSize  int64
	Password   string // required if Transforms includes "encrypt"
}

// EncodeOneShot applies the out-direction transform stack (compress, then
// encrypt) to plaintext and returns the full on-wire object: the header
// followed by the transformed payload.
func EncodeOneShot(plaintext []byte, opts Options, kdf *cryptutil.KDFParams) ([]byte, error) {
	header, err := NewHeader(opts.Transforms, opts.ChunkSize, kdf)
	if err != nil {
		return nil, err
	}

	payload := plaintext
	if header.Compress != nil {
		payload, err = CompressOneShot(payload)
		if err != nil {
			return nil, err
		}
	}
	if header.Encrypt != nil {
		ad, err := header.AssociatedData()
		if err != nil {
			return nil, err
		}
		key, err := cryptutil.DeriveKey(opts.Password, *mustKDFParams(header))
		if err != nil {
			return nil, err
		}
		payload, err = cryptutil.EncryptOneShot(payload, key, ad)
		if err != nil {
			return nil, err
		}
	}

	headerBytes, err := header.Encode()
	if err != nil {
		return nil, err
	}
	return append(headerBytes, payload...), nil
}

// DecodeOneShot reverses EncodeOneShot, reading the header from the front
// of object and returning the recovered plaintext plus the header itself
// (callers need it for e.g. hash_names/key-layout decisions elsewhere).
func DecodeOneShot(object []byte, password string) ([]byte, Header, error) {
	r := bytes.NewReader(object)
	header, err := DecodeHeader(r)
	if err != nil {
		return nil, Header{}, err
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, Header{}, Error.Wrap(err)
	}

	if header.Encrypt != nil {
		ad, err := header.AssociatedData()
		if err != nil {
			return nil, Header{}, err
		}
		kdf, err := header.KDFParams()
		if err != nil {
			return nil, Header{}, err
		}
		key, err := cryptutil.DeriveKey(password, *kdf)
		if err != nil {
			return nil, Header{}, err
		}
		payload, err = cryptutil.DecryptOneShot(payload, key, ad)
		if err != nil {
			return nil, Header{}, Error.Wrap(err)
		}
	}
	if header.Compress != nil {
		payload, err = DecompressOneShot(payload)
		if err != nil {
			return nil, Header{}, err
		}
	}
	return payload, header, nil
}

func mustKDFParams(h Header) *cryptutil.KDFParams {
	kdf, _ := h.KDFParams()
	return kdf
}

// EncodeStream returns an io.Reader yielding the full on-wire object
// (header followed by the transformed payload) built by streaming src
// through the configured transforms, so callers can drive a multipart
// upload in chunk_size reads without buffering the whole object.
func EncodeStream(src io.Reader, opts Options, kdf *cryptutil.KDFParams) (io.Reader, Header, error) {
	header, err := NewHeader(opts.Transforms, opts.ChunkSize, kdf)
	if err != nil {
		return nil, Header{}, err
	}

	payload := src
	if header.Compress != nil {
		payload = compressPipe(payload)
	}
	if header.Encrypt != nil {
		ad, err := header.AssociatedData()
		if err != nil {
			return nil, Header{}, err
		}
		key, err := cryptutil.DeriveKey(opts.Password, *mustKDFParams(header))
		if err != nil {
			return nil, Header{}, err
		}
		payload, err = cryptutil.EncryptReader(payload, key, ad)
		if err != nil {
			return nil, Header{}, err
		}
	}

	headerBytes, err := header.Encode()
	if err != nil {
		return nil, Header{}, err
	}
	return io.MultiReader(bytes.NewReader(headerBytes), payload), header, nil
}

// DecodeStream reads the header from the front of src and returns an
// io.Reader yielding the recovered plaintext, applying the inverse
// transform stack the header declares.
func DecodeStream(src io.Reader, password string) (io.Reader, Header, error) {
	header, err := DecodeHeader(src)
	if err != nil {
		return nil, Header{}, err
	}

	var payload io.Reader = src
	if header.Encrypt != nil {
		ad, err := header.AssociatedData()
		if err != nil {
			return nil, Header{}, err
		}
		kdf, err := header.KDFParams()
		if err != nil {
			return nil, Header{}, err
		}
		key, err := cryptutil.DeriveKey(password, *kdf)
		if err != nil {
			return nil, Header{}, err
		}
		payload, err = cryptutil.DecryptReader(payload, key, ad)
		if err != nil {
			return nil, Header{}, err
		}
	}
	if header.Compress != nil {
		payload = DecompressReader(payload)
	}
	return payload, header, nil
}

// compressPipe streams src through the bzip2 compressor using an
// in-memory pipe, since the compressor's Go API is a Writer and src is a
// Reader.
func compressPipe(src io.Reader) io.Reader {
	pr, pw := io.Pipe()
	go func() {
		cw, err := CompressWriter(pw)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(cw, src); err != nil {
			_ = cw.Close()
			_ = pw.CloseWithError(err)
			return
		}
		if err := cw.Close(); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.Close()
	}()
	return pr
}
