package treeobj

import (
	"io/fs"
	"iter"
	"sort"
	"strings"
)

// RootKey addresses a tree's own root entry.
const RootKey = ""

// Meta describes the non-content attributes of a filesystem entry.
// It round-trips through tree serialization unchanged.
type Meta struct {
	Mode    fs.FileMode
	Size    int64
	ModTime int64 // unix nanoseconds
}

// IsDir reports whether the entry refers to a sub-tree.
func (m Meta) IsDir() bool { return m.Mode.IsDir() }

// Entry is one (path key, metadata, digest) record within a tree.
type Entry struct {
	Key    string
	Meta   Meta
	Digest Digest
}

// Tree is a Merkle-style directory snapshot: an ordered map from
// slash-separated path key to entry. Keys are ordered lexicographically
// by path segment, not by raw string. A Tree is not internally
// synchronized; concurrent mutation must be serialized by the caller.
type Tree struct {
	entries map[string]Entry

	// Derived structures, never authoritative. trie is rebuilt lazily
	// on the next query after a mutation; oid is the finalized digest,
	// empty while the tree is digest-invalid.
	trie *trieNode
	oid  Digest
}

// NewTree returns an empty, digest-invalid tree.
func NewTree() *Tree {
	return &Tree{entries: make(map[string]Entry)}
}

// Len returns the number of entries.
func (t *Tree) Len() int { return len(t.entries) }

// Add inserts or overwrites the entry at key. Any cached index and any
// previously finalized digest become invalid.
func (t *Tree) Add(key string, meta Meta, oid Digest) {
	t.entries[key] = Entry{Key: key, Meta: meta, Digest: oid}
	t.invalidate()
}

// Get returns the entry at key, ErrNotFound if absent.
func (t *Tree) Get(key string) (Entry, error) {
	e, ok := t.entries[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// Remove deletes the entry at key, ErrNotFound if absent.
func (t *Tree) Remove(key string) error {
	if _, ok := t.entries[key]; !ok {
		return ErrNotFound
	}
	delete(t.entries, key)
	t.invalidate()
	return nil
}

// Entries iterates entries sorted by key. The sequence is restartable:
// ranging again after a mutation reflects the new state.
func (t *Tree) Entries() iter.Seq2[string, Entry] {
	return func(yield func(string, Entry) bool) {
		t.index().walk(func(key string) bool {
			return yield(key, t.entries[key])
		})
	}
}

// Descendants iterates the entries at or below prefix, sorted by key.
func (t *Tree) Descendants(prefix string) iter.Seq2[string, Entry] {
	return func(yield func(string, Entry) bool) {
		node := t.index().descend(prefix)
		if node == nil {
			return
		}
		node.walk(func(key string) bool {
			return yield(key, t.entries[key])
		})
	}
}

// HasDescendants reports whether any entry lives at or below prefix.
func (t *Tree) HasDescendants(prefix string) bool {
	return t.index().descend(prefix) != nil
}

// Digest recomputes the tree's content digest from its current entries
// and caches it, marking the tree digest-valid. The result is a pure
// function of the (key, metadata, digest) triples in sorted key order.
func (t *Tree) Digest() (Digest, error) {
	if t.oid != "" {
		return t.oid, nil
	}
	data, err := t.Bytes()
	if err != nil {
		return "", err
	}
	t.oid = HashBytes(data) + TreeSuffix
	return t.oid, nil
}

// Oid returns the finalized digest, or empty while digest-invalid.
func (t *Tree) Oid() Digest { return t.oid }

// Clone returns an independent copy sharing no state with t. Apply a
// patch batch to a clone and swap on success to get atomic batches.
func (t *Tree) Clone() *Tree {
	c := NewTree()
	for k, e := range t.entries {
		c.entries[k] = e
	}
	c.oid = t.oid
	return c
}

func (t *Tree) invalidate() {
	t.trie = nil
	t.oid = ""
}

// index returns the derived path trie, rebuilding it if a mutation
// invalidated the cached one.
func (t *Tree) index() *trieNode {
	if t.trie == nil {
		t.trie = buildTrie(t.entries)
	}
	return t.trie
}

// compareKeys orders keys lexicographically by segment sequence. This
// differs from raw string order when a segment contains bytes below '/'.
func compareKeys(a, b string) int {
	as, bs := splitKey(a), splitKey(b)
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] != bs[i] {
			if as[i] < bs[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}

func splitKey(key string) []string {
	if key == RootKey {
		return nil
	}
	return strings.Split(key, "/")
}

// trieNode is a prefix trie over path segments. In-order traversal of
// sorted children yields keys in segment-lexicographic order, so the
// trie backs both ordered iteration and ancestor/descendant queries.
type trieNode struct {
	children map[string]*trieNode
	names    []string // sorted child names
	key      string   // set when a tree entry terminates here
	terminal bool
}

func buildTrie(entries map[string]Entry) *trieNode {
	root := &trieNode{children: make(map[string]*trieNode)}
	for key := range entries {
		node := root
		for _, seg := range splitKey(key) {
			child, ok := node.children[seg]
			if !ok {
				child = &trieNode{children: make(map[string]*trieNode)}
				node.children[seg] = child
			}
			node = child
		}
		node.terminal = true
		node.key = key
	}
	root.freeze()
	return root
}

func (n *trieNode) freeze() {
	n.names = n.names[:0]
	for name := range n.children {
		n.names = append(n.names, name)
	}
	sort.Strings(n.names)
	for _, name := range n.names {
		n.children[name].freeze()
	}
}

// walk visits terminal nodes in sorted key order. It stops early when
// the visitor returns false.
func (n *trieNode) walk(visit func(key string) bool) bool {
	if n.terminal {
		if !visit(n.key) {
			return false
		}
	}
	for _, name := range n.names {
		if !n.children[name].walk(visit) {
			return false
		}
	}
	return true
}

// descend returns the node at prefix, or nil when no entry lives at or
// below it.
func (n *trieNode) descend(prefix string) *trieNode {
	node := n
	for _, seg := range splitKey(prefix) {
		child, ok := node.children[seg]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}
