package treeobj

import (
	"context"
	"fmt"
	"sort"
)

type mergeConfig struct {
	force bool
}

// MergeOption configures Merge.
type MergeOption func(*mergeConfig)

// WithTheirs skips conflict detection; on overlap the second tree wins.
func WithTheirs() MergeOption {
	return func(c *mergeConfig) { c.force = true }
}

// Merge combines two stored trees into a new in-memory tree. Without a
// base it is a two-way merge: any non-root key modified between a and b
// is a conflict, and the result is a's entries plus b's added and
// modified entries. With a base it is a three-way merge: a key is a
// conflict only when both sides changed it relative to the base with
// different results. The merged tree is digest-invalid until finalized
// with Digest or Save.
func Merge(ctx context.Context, store ObjectStore, base *Tree, a, b Digest, opts ...MergeOption) (*Tree, error) {
	cfg := mergeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	treeA, err := LoadTree(ctx, store, a)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", a.Short(), err)
	}
	treeB, err := LoadTree(ctx, store, b)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", b.Short(), err)
	}

	if base == nil {
		return mergeTwoWay(ctx, store, treeA, treeB, cfg.force)
	}
	return mergeThreeWay(ctx, store, base, treeA, treeB, cfg.force)
}

func mergeTwoWay(ctx context.Context, store ObjectStore, a, b *Tree, force bool) (*Tree, error) {
	d, err := Diff(ctx, a, b, store)
	if err != nil {
		return nil, err
	}
	if !force {
		if paths := d.ModifiedPaths(); len(paths) > 0 {
			return nil, &ConflictError{Paths: paths}
		}
	}

	merged, err := flatten(ctx, a, store, -1)
	if err != nil {
		return nil, err
	}
	for _, c := range d.Added {
		merged.Add(c.New.Key, c.New.Meta, c.New.Digest)
	}
	for _, c := range d.Modified {
		if c.New.Key == RootKey {
			continue
		}
		merged.Add(c.New.Key, c.New.Meta, c.New.Digest)
	}
	return merged, nil
}

func mergeThreeWay(ctx context.Context, store ObjectStore, base, a, b *Tree, force bool) (*Tree, error) {
	da, err := Diff(ctx, base, a, store)
	if err != nil {
		return nil, err
	}
	db, err := Diff(ctx, base, b, store)
	if err != nil {
		return nil, err
	}

	changesA := changeSet(da)
	changesB := changeSet(db)

	if !force {
		var conflicts []string
		for key, ca := range changesA {
			cb, ok := changesB[key]
			if !ok {
				continue
			}
			if sideDigest(ca.New) != sideDigest(cb.New) {
				conflicts = append(conflicts, key)
			}
		}
		if len(conflicts) > 0 {
			sort.Strings(conflicts)
			return nil, &ConflictError{Paths: conflicts}
		}
	}

	merged, err := flatten(ctx, base, store, -1)
	if err != nil {
		return nil, err
	}
	for _, changes := range []map[string]Change{changesA, changesB} {
		for key, c := range changes {
			if c.New == nil {
				// Deleted on that side; tolerate double deletes.
				_ = merged.Remove(key)
				continue
			}
			merged.Add(key, c.New.Meta, c.New.Digest)
		}
	}
	return merged, nil
}

// changeSet indexes a diff's non-root added, modified and deleted
// entries by key.
func changeSet(d *DiffResult) map[string]Change {
	set := make(map[string]Change)
	for _, group := range [][]Change{d.Added, d.Modified, d.Deleted} {
		for _, c := range group {
			if key := c.Key(); key != RootKey {
				set[key] = c
			}
		}
	}
	return set
}

func sideDigest(side *DiffEntry) Digest {
	if side == nil {
		return ""
	}
	return side.Digest
}
