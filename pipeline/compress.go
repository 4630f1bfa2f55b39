// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package pipeline

import (
	"bytes"
	stdbzip2 "compress/bzip2"
	"io"

	"github.com/dsnet/compress/bzip2"
)

// CompressOneShot bzip2-compresses data in memory. The standard library
// only ships a bzip2 reader, so compression uses dsnet/compress/bzip2.
func CompressOneShot(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, nil)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, Error.Wrap(err)
	}
	if err := w.Close(); err != nil {
		return nil, Error.Wrap(err)
	}
	return buf.Bytes(), nil
}

// DecompressOneShot reverses CompressOneShot.
func DecompressOneShot(data []byte) ([]byte, error) {
	out, err := io.ReadAll(stdbzip2.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return out, nil
}

// compressWriteCloser adapts dsnet/compress/bzip2's Writer, which also
// implements io.Closer, as an io.WriteCloser for use in transform chains.
type compressWriteCloser struct {
	w *bzip2.Writer
}

// CompressWriter wraps dst so writes to the result are bzip2-compressed
// into dst. The caller must Close the result to flush the final block.
func CompressWriter(dst io.Writer) (io.WriteCloser, error) {
	w, err := bzip2.NewWriter(dst, nil)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return &compressWriteCloser{w: w}, nil
}

func (c *compressWriteCloser) Write(p []byte) (int, error) { return c.w.Write(p) }
func (c *compressWriteCloser) Close() error                { return c.w.Close() }

// DecompressReader wraps src so reads from the result are the
// decompressed bzip2 stream read from src.
func DecompressReader(src io.Reader) io.Reader {
	return stdbzip2.NewReader(src)
}
