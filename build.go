package treeobj

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
)

// Build snapshots a filesystem path into the store. A regular file
// becomes a single blob; a directory becomes a tree whose blobs and
// serialized form are all added to the store, with the tree digest
// finalized. File hashing runs on a bounded worker pool.
func Build(ctx context.Context, store ObjectStore, fsys afero.Fs, root string) (Object, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("build %q: %w", root, err)
	}

	if !info.IsDir() {
		data, err := afero.ReadFile(fsys, root)
		if err != nil {
			return nil, err
		}
		if _, err := store.Add(ctx, data); err != nil {
			return nil, err
		}
		return NewBlob(data), nil
	}

	type item struct {
		path string
		key  string
		info os.FileInfo
	}
	var items []item
	err = afero.Walk(fsys, root, func(path string, fi fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		items = append(items, item{path: path, key: filepath.ToSlash(rel), info: fi})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("build %q: %w", root, err)
	}

	entries := make([]Entry, len(items))
	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(runtime.GOMAXPROCS(0))
	for i, it := range items {
		p.Go(func(ctx context.Context) error {
			meta, e, err := buildFile(ctx, store, fsys, it.path, it.info)
			if err != nil {
				return fmt.Errorf("build %q: %w", it.key, err)
			}
			entries[i] = Entry{Key: it.key, Meta: meta, Digest: e}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	t := NewTree()
	for _, e := range entries {
		t.Add(e.Key, e.Meta, e.Digest)
	}
	if _, err := t.Save(ctx, store); err != nil {
		return nil, err
	}
	return t, nil
}

func buildFile(ctx context.Context, store ObjectStore, fsys afero.Fs, path string, info os.FileInfo) (Meta, Digest, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return Meta{}, "", err
	}
	oid, err := store.Add(ctx, data)
	if err != nil {
		return Meta{}, "", err
	}
	meta := Meta{Mode: info.Mode(), Size: info.Size(), ModTime: info.ModTime().UnixNano()}
	return meta, oid, nil
}
