// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package engine

import (
	"context"

	"github.com/robehickman/rrbackup/pipeline"
)

// encodeMetaObject runs body through the configured meta pipeline
// (compress/encrypt, never hash_names, which only applies to file
// content keys) ready to PutObject to one of the fixed meta keys.
func encodeMetaObject(ctx context.Context, e *Engine, body []byte) ([]byte, error) {
	kdf, err := e.kdfParams(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.EncodeOneShot(body, e.metaOptions(), kdf)
}

// decodeMetaObject reverses encodeMetaObject.
func decodeMetaObject(e *Engine, object []byte) ([]byte, error) {
	body, _, err := pipeline.DecodeOneShot(object, e.cfg.CryptPassword)
	return body, err
}
