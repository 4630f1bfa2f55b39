// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package engine

import (
	"context"
	"io"

	"github.com/robehickman/rrbackup/cryptutil"
	"github.com/robehickman/rrbackup/objstore"
	"github.com/robehickman/rrbackup/pipeline"
)

// driveUpload encodes src through the pipeline built from transforms and
// streams it into upload in ChunkSize reads, matching the object
// store's multipart lower bound. On mid-stream error the caller is
// responsible for calling upload.Abort.
func (e *Engine) driveUpload(ctx context.Context, upload objstore.StreamingUpload, src io.Reader, transforms []string, kdf *cryptutil.KDFParams) (string, error) {
	opts := pipeline.Options{Transforms: transforms, ChunkSize: e.cfg.ChunkSize, Password: e.cfg.CryptPassword}

	encoded, _, err := pipeline.EncodeStream(src, opts, kdf)
	if err != nil {
		return "", err
	}

	for {
		chunk, readErr := readChunk(encoded, e.cfg.ChunkSize)
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", Error.Wrap(readErr)
		}
		if err := upload.NextChunk(ctx, chunk); err != nil {
			return "", err
		}
	}

	return upload.Finish(ctx)
}

// readChunk reads up to size bytes from r. It returns io.EOF only once
// no further bytes are available; a final short read before EOF is
// returned as a non-empty chunk with a nil error.
func readChunk(r io.Reader, size int64) ([]byte, error) {
	buf := make([]byte, size)
	n, err := io.ReadFull(r, buf)
	switch err {
	case nil:
		return buf, nil
	case io.EOF:
		return nil, io.EOF
	case io.ErrUnexpectedEOF:
		return buf[:n], nil
	default:
		return nil, err
	}
}
