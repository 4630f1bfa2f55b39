// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package engine

import (
	"context"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/robehickman/rrbackup/cryptutil"
	"github.com/robehickman/rrbackup/objstore"
	"github.com/robehickman/rrbackup/pipeline"
	"github.com/robehickman/rrbackup/rrerr"
)

// Error is the class of errors returned by this package for conditions
// that aren't one of the named rrerr classes.
var Error = errs.Class("engine")

// Engine ties a Config and a Store together, implementing commit,
// restore, and garbage collection against them.
type Engine struct {
	cfg   Config
	store objstore.Store
	log   *zap.Logger
}

// New builds an Engine. A nil logger is replaced by zap.NewNop(), so
// tests that don't care about log output may pass nil.
func New(cfg Config, store objstore.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, store: store, log: logger}
}

// metaOptions returns the pipeline.Options used for fixed-key meta
// objects: the manifest diff chain, the GC log, and the garbage object
// log.
func (e *Engine) metaOptions() pipeline.Options {
	return pipeline.Options{
		Transforms: e.cfg.MetaPipeline,
		ChunkSize:  e.cfg.ChunkSize,
		Password:   e.cfg.CryptPassword,
	}
}

// resolveFilePipeline returns the first FilePipelineRule whose glob
// matches path, per Config.FilePipeline's ordering.
func (e *Engine) resolveFilePipeline(path string) (FilePipelineRule, error) {
	for _, rule := range e.cfg.FilePipeline {
		ok, err := doublestar.Match(rule.Glob, path)
		if err != nil {
			return FilePipelineRule{}, Error.Wrap(err)
		}
		if ok {
			return rule, nil
		}
	}
	return FilePipelineRule{}, rrerr.NoPipelineMatch.New("no file_pipeline rule matches %q", path)
}

// remoteKey computes the storage key for path, prefixed with
// RemoteBasePath. hashNames mirrors whether the matched file_pipeline
// rule includes the hash_names transform.
func (e *Engine) remoteKey(path string, hashNames bool) string {
	key := pipeline.RemoteKey(path, hashNames)
	return joinRemote(e.cfg.RemoteBasePath, key)
}

func joinRemote(base, key string) string {
	if base == "" {
		return key
	}
	if len(key) > 0 && key[0] == '/' {
		return base + key
	}
	return base + "/" + key
}

// needsEncryption reports whether any configured pipeline (meta or
// per-file) uses the encrypt transform, in which case a KDF salt must
// be bootstrapped.
func (e *Engine) needsEncryption() bool {
	for _, t := range e.cfg.MetaPipeline {
		if t == pipeline.TransformEncrypt {
			return true
		}
	}
	for _, rule := range e.cfg.FilePipeline {
		for _, t := range rule.Transforms {
			if t == pipeline.TransformEncrypt {
				return true
			}
		}
	}
	return false
}

// kdfParams loads the KDF salt from the remote store, generating and
// publishing one on first use.
func (e *Engine) kdfParams(ctx context.Context) (*cryptutil.KDFParams, error) {
	if !e.needsEncryption() {
		return nil, nil
	}

	obj, err := e.store.GetObject(ctx, e.cfg.RemoteSaltFile, "")
	if err == nil {
		params := cryptutil.InteractiveParams(obj.Body)
		return &params, nil
	}
	if err != objstore.ErrNoSuchObject {
		return nil, err
	}

	salt, err := cryptutil.NewSalt()
	if err != nil {
		return nil, err
	}
	if _, err := e.store.PutObject(ctx, e.cfg.RemoteSaltFile, salt, nil); err != nil {
		return nil, err
	}
	params := cryptutil.InteractiveParams(salt)
	return &params, nil
}
