// Package odb implements the object database the tree layer consumes:
// a filesystem-backed store with git-style sharded layout, optional
// zstd compression of tree objects, and an LRU read cache, plus an
// in-memory store for tests and staging.
package odb

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/treedata/treeobj"
	"github.com/treedata/treeobj/internal/compression"
)

// DB is a filesystem-backed object store.
//
// Layout:
//
//	dir/objects/ab/cdef...       blob, raw bytes
//	dir/objects/ab/cdef....dir   serialized tree, zstd when enabled
//
// Blobs stay raw on disk so checkout can reflink/hardlink/symlink
// directly to them; only tree objects are compressed.
type DB struct {
	fs    afero.Fs
	dir   string
	cache *lruCache
	codec *compression.Codec
}

var _ treeobj.PathStore = (*DB)(nil)

type config struct {
	cacheSize        int
	compressionLevel int
	compression      bool
}

// Option configures Open.
type Option func(*config)

// WithCacheSize bounds the in-memory object cache; 0 disables it.
func WithCacheSize(n int) Option {
	return func(c *config) { c.cacheSize = n }
}

// WithCompression enables zstd compression of tree objects at the
// given level (1 fastest, 3 best).
func WithCompression(level int) Option {
	return func(c *config) {
		c.compression = true
		c.compressionLevel = level
	}
}

// Open creates or opens an object database rooted at dir.
func Open(fs afero.Fs, dir string, opts ...Option) (*DB, error) {
	cfg := config{cacheSize: 256}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := fs.MkdirAll(filepath.Join(dir, "objects"), 0o755); err != nil {
		return nil, fmt.Errorf("odb: create %s: %w", dir, err)
	}
	codec, err := compression.NewCodec(cfg.compressionLevel, cfg.compression)
	if err != nil {
		return nil, fmt.Errorf("odb: %w", err)
	}
	return &DB{
		fs:    fs,
		dir:   dir,
		cache: newLRUCache(cfg.cacheSize),
		codec: codec,
	}, nil
}

// Path returns the filesystem location of an object. Checkout uses it
// as the link source, so it is stable for the lifetime of the object.
func (db *DB) Path(oid treeobj.Digest) string {
	s := string(oid)
	if len(s) < 4 {
		return filepath.Join(db.dir, "objects", s)
	}
	return filepath.Join(db.dir, "objects", s[:2], s[2:])
}

func (db *DB) Add(ctx context.Context, data []byte) (treeobj.Digest, error) {
	oid := treeobj.HashBytes(data)
	if err := db.Put(ctx, oid, data); err != nil {
		return "", err
	}
	return oid, nil
}

func (db *DB) Put(ctx context.Context, oid treeobj.Digest, data []byte) error {
	path := db.Path(oid)
	if _, err := db.fs.Stat(path); err == nil {
		return nil // idempotent per digest
	}
	if err := db.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("odb: put %s: %w", oid.Short(), err)
	}
	out := data
	if oid.IsTree() {
		out = db.codec.Compress(data)
	}
	if err := afero.WriteFile(db.fs, path, out, 0o444); err != nil {
		return fmt.Errorf("odb: put %s: %w", oid.Short(), err)
	}
	db.cache.Add(oid, data)
	return nil
}

func (db *DB) Get(ctx context.Context, oid treeobj.Digest) ([]byte, error) {
	if data, ok := db.cache.Get(oid); ok {
		return data, nil
	}
	raw, err := afero.ReadFile(db.fs, db.Path(oid))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("odb: %s: %w", oid.Short(), treeobj.ErrNotFound)
		}
		return nil, fmt.Errorf("odb: get %s: %w", oid.Short(), err)
	}
	data := raw
	if oid.IsTree() {
		if data, err = db.codec.Decompress(raw); err != nil {
			return nil, fmt.Errorf("odb: get %s: %w", oid.Short(), err)
		}
	}
	db.cache.Add(oid, data)
	return data, nil
}

func (db *DB) Has(ctx context.Context, oid treeobj.Digest) (bool, error) {
	if db.cache.Has(oid) {
		return true, nil
	}
	_, err := db.fs.Stat(db.Path(oid))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (db *DB) Stat(ctx context.Context, oid treeobj.Digest) (int64, bool) {
	info, err := db.fs.Stat(db.Path(oid))
	if err != nil {
		return 0, false
	}
	return info.Size(), true
}

func (db *DB) Remove(ctx context.Context, oid treeobj.Digest) error {
	db.cache.Remove(oid)
	err := db.fs.Remove(db.Path(oid))
	if os.IsNotExist(err) {
		return fmt.Errorf("odb: %s: %w", oid.Short(), treeobj.ErrNotFound)
	}
	return err
}

func (db *DB) Oids(ctx context.Context) iter.Seq2[treeobj.Digest, error] {
	return func(yield func(treeobj.Digest, error) bool) {
		objectsDir := filepath.Join(db.dir, "objects")
		shards, err := afero.ReadDir(db.fs, objectsDir)
		if err != nil {
			yield("", fmt.Errorf("odb: enumerate: %w", err))
			return
		}
		for _, shard := range shards {
			if !shard.IsDir() {
				continue
			}
			infos, err := afero.ReadDir(db.fs, filepath.Join(objectsDir, shard.Name()))
			if err != nil {
				if !yield("", fmt.Errorf("odb: enumerate %s: %w", shard.Name(), err)) {
					return
				}
				continue
			}
			for _, info := range infos {
				if !yield(treeobj.Digest(shard.Name()+info.Name()), nil) {
					return
				}
			}
		}
	}
}

func (db *DB) Check(ctx context.Context, oid treeobj.Digest, checkHash bool) error {
	if !checkHash {
		ok, err := db.Has(ctx, oid)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("odb: %s: %w", oid.Short(), treeobj.ErrNotFound)
		}
		return nil
	}
	data, err := db.Get(ctx, oid)
	if err != nil {
		return err
	}
	want := treeobj.HashBytes(data)
	if oid.IsTree() {
		want += treeobj.TreeSuffix
	}
	if want != oid {
		return &treeobj.ObjectFormatError{Oid: oid, Reason: "content does not match digest"}
	}
	return nil
}

func (db *DB) ResolvePrefix(ctx context.Context, prefix string) (treeobj.Digest, error) {
	if prefix == "" {
		return "", fmt.Errorf("odb: empty prefix: %w", treeobj.ErrUnknownOID)
	}
	var matches []treeobj.Digest
	for oid, err := range db.Oids(ctx) {
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(string(oid), prefix) {
			matches = append(matches, oid)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("odb: %q: %w", prefix, treeobj.ErrUnknownOID)
	case 1:
		return matches[0], nil
	default:
		return "", &treeobj.AmbiguousOIDError{Prefix: prefix, Matches: matches}
	}
}
