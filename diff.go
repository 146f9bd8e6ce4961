package treeobj

import (
	"context"
	"fmt"
	"path"
)

// DiffEntry is one side of a classified change.
type DiffEntry struct {
	Key    string
	Meta   Meta
	Digest Digest

	// InCache reports whether the store currently holds the object.
	// Informational only; absence never fails a diff.
	InCache bool
}

// Change pairs the old and new sides of a classified key. Exactly one
// side is nil for added and deleted entries.
type Change struct {
	Old *DiffEntry
	New *DiffEntry
}

// Key returns the path key of whichever side is present.
func (c Change) Key() string {
	if c.Old != nil {
		return c.Old.Key
	}
	return c.New.Key
}

// DiffResult classifies the union of two trees' keys into four disjoint
// sets, each in sorted key order.
type DiffResult struct {
	Added     []Change
	Deleted   []Change
	Modified  []Change
	Unchanged []Change
}

// ModifiedPaths returns the non-root modified keys, the set Merge treats
// as conflicts.
func (d *DiffResult) ModifiedPaths() []string {
	var paths []string
	for _, c := range d.Modified {
		if key := c.Key(); key != RootKey {
			paths = append(paths, key)
		}
	}
	return paths
}

type diffConfig struct {
	maxDepth int // -1 means unbounded
}

// DiffOption configures Diff.
type DiffOption func(*diffConfig)

// WithMaxDepth bounds how deep directory entries are expanded into
// leaf-level changes. Depth 0 keeps directory entries as single
// modified/added/deleted records. The default expands fully.
func WithMaxDepth(depth int) DiffOption {
	return func(c *diffConfig) { c.maxDepth = depth }
}

// Diff compares two trees structurally with a single merge-walk over
// their shared sorted key order. A nil tree is treated as empty.
// Directory entries whose digests differ are expanded to leaf level by
// loading sub-trees from the store.
func Diff(ctx context.Context, oldTree, newTree *Tree, store ObjectStore, opts ...DiffOption) (*DiffResult, error) {
	cfg := diffConfig{maxDepth: -1}
	for _, opt := range opts {
		opt(&cfg)
	}

	oldFlat, err := flatten(ctx, oldTree, store, cfg.maxDepth)
	if err != nil {
		return nil, err
	}
	newFlat, err := flatten(ctx, newTree, store, cfg.maxDepth)
	if err != nil {
		return nil, err
	}

	res := &DiffResult{}
	classify := func(old, new *Entry) error {
		var oldSide, newSide *DiffEntry
		if old != nil {
			oldSide = diffSide(ctx, store, *old)
		}
		if new != nil {
			newSide = diffSide(ctx, store, *new)
		}
		change := Change{Old: oldSide, New: newSide}
		switch {
		case old == nil:
			res.Added = append(res.Added, change)
		case new == nil:
			res.Deleted = append(res.Deleted, change)
		case old.Digest != new.Digest:
			res.Modified = append(res.Modified, change)
		default:
			res.Unchanged = append(res.Unchanged, change)
		}
		return nil
	}

	// Root entry first: the trees themselves.
	if err := classifyRoot(oldTree, newTree, classify); err != nil {
		return nil, err
	}

	oldKeys := sortedKeys(oldFlat)
	newKeys := sortedKeys(newFlat)
	i, j := 0, 0
	for i < len(oldKeys) || j < len(newKeys) {
		var cmp int
		switch {
		case i >= len(oldKeys):
			cmp = 1
		case j >= len(newKeys):
			cmp = -1
		default:
			cmp = compareKeys(oldKeys[i], newKeys[j])
		}

		var err error
		switch {
		case cmp < 0:
			e := oldFlat.entries[oldKeys[i]]
			err = classify(&e, nil)
			i++
		case cmp > 0:
			e := newFlat.entries[newKeys[j]]
			err = classify(nil, &e)
			j++
		default:
			oe := oldFlat.entries[oldKeys[i]]
			ne := newFlat.entries[newKeys[j]]
			err = classify(&oe, &ne)
			i++
			j++
		}
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func classifyRoot(oldTree, newTree *Tree, classify func(old, new *Entry) error) error {
	rootEntry := func(t *Tree) (*Entry, error) {
		if t == nil {
			return nil, nil
		}
		oid, err := t.Digest()
		if err != nil {
			return nil, err
		}
		return &Entry{Key: RootKey, Digest: oid}, nil
	}
	oldRoot, err := rootEntry(oldTree)
	if err != nil {
		return err
	}
	newRoot, err := rootEntry(newTree)
	if err != nil {
		return err
	}
	if oldRoot == nil && newRoot == nil {
		return nil
	}
	return classify(oldRoot, newRoot)
}

func diffSide(ctx context.Context, store ObjectStore, e Entry) *DiffEntry {
	side := &DiffEntry{Key: e.Key, Meta: e.Meta, Digest: e.Digest}
	if store != nil {
		// Absence is informational, never an error.
		ok, err := store.Has(ctx, e.Digest)
		if err == nil {
			side.InCache = ok
		}
	}
	return side
}

func sortedKeys(t *Tree) []string {
	keys := make([]string, 0, t.Len())
	for key := range t.Entries() {
		keys = append(keys, key)
	}
	return keys
}

// flatten expands directory entries into their sub-trees' leaves, with
// keys joined onto the directory's key, up to maxDepth levels. A nil
// tree flattens to empty; a nil store disables expansion.
func flatten(ctx context.Context, t *Tree, store ObjectStore, maxDepth int) (*Tree, error) {
	flat := NewTree()
	if t == nil {
		return flat, nil
	}
	if err := flattenInto(ctx, flat, t, store, "", maxDepth); err != nil {
		return nil, err
	}
	return flat, nil
}

func flattenInto(ctx context.Context, flat, t *Tree, store ObjectStore, prefix string, depth int) error {
	for key, e := range t.Entries() {
		if key == RootKey {
			continue
		}
		full := key
		if prefix != "" {
			full = path.Join(prefix, key)
		}
		if e.Meta.IsDir() && depth != 0 && store != nil {
			sub, err := LoadTree(ctx, store, e.Digest)
			if err != nil {
				return fmt.Errorf("expand %q: %w", full, err)
			}
			if err := flattenInto(ctx, flat, sub, store, full, depth-1); err != nil {
				return err
			}
			continue
		}
		flat.Add(full, e.Meta, e.Digest)
	}
	return nil
}
