package treeobj

import (
	"context"
	"errors"
	"io/fs"
	"testing"
)

func blobMeta(size int64) Meta {
	return Meta{Mode: 0o644, Size: size}
}

func TestTreeAddGetRemove(t *testing.T) {
	tr := NewTree()
	d1 := HashBytes([]byte("one"))

	tr.Add("a/b", blobMeta(3), d1)
	e, err := tr.Get("a/b")
	if err != nil {
		t.Fatal(err)
	}
	if e.Digest != d1 {
		t.Errorf("got %s want %s", e.Digest, d1)
	}

	// Overwrite is allowed.
	d2 := HashBytes([]byte("two"))
	tr.Add("a/b", blobMeta(3), d2)
	if e, _ := tr.Get("a/b"); e.Digest != d2 {
		t.Errorf("overwrite: got %s want %s", e.Digest, d2)
	}
	if tr.Len() != 1 {
		t.Errorf("Len = %d, want 1", tr.Len())
	}

	if _, err := tr.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: got %v, want ErrNotFound", err)
	}
	if err := tr.Remove("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove missing: got %v, want ErrNotFound", err)
	}
	if err := tr.Remove("a/b"); err != nil {
		t.Fatal(err)
	}
	if tr.Len() != 0 {
		t.Errorf("Len = %d after remove, want 0", tr.Len())
	}
}

func TestTreeIterationOrder(t *testing.T) {
	d := HashBytes([]byte("x"))
	tr := NewTree()
	for _, key := range []string{"b", "a/z", "a", "a/b/c", "aa", "a/b"} {
		tr.Add(key, blobMeta(1), d)
	}

	want := []string{"a", "a/b", "a/b/c", "a/z", "aa", "b"}
	var got []string
	for key := range tr.Entries() {
		got = append(got, key)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d keys, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("key[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTreeIterationReflectsMutation(t *testing.T) {
	d := HashBytes([]byte("x"))
	tr := NewTree()
	tr.Add("a", blobMeta(1), d)

	seq := tr.Entries()
	count := 0
	for range seq {
		count++
	}
	if count != 1 {
		t.Fatalf("first pass: %d entries, want 1", count)
	}

	tr.Add("b", blobMeta(1), d)
	count = 0
	for range seq {
		count++
	}
	if count != 2 {
		t.Errorf("after mutation: %d entries, want 2", count)
	}
}

func TestCompareKeys(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "a", -1},
		{"a", "a", 0},
		{"a", "a/b", -1},
		{"a/b", "aa", -1}, // segment order, not string order ('/' < 'a')
		{"a!b", "a/b", 1}, // '!' < '/' as strings, but "a!b" is one segment
		{"b", "a/z/z", 1},
	}
	for _, tt := range tests {
		if got := compareKeys(tt.a, tt.b); got != tt.want {
			t.Errorf("compareKeys(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestTreeDigestDeterministic(t *testing.T) {
	d1 := HashBytes([]byte("one"))
	d2 := HashBytes([]byte("two"))

	a := NewTree()
	a.Add("x", blobMeta(3), d1)
	a.Add("y", blobMeta(3), d2)

	b := NewTree()
	b.Add("y", blobMeta(3), d2)
	b.Add("x", blobMeta(3), d1)

	oidA, err := a.Digest()
	if err != nil {
		t.Fatal(err)
	}
	oidB, err := b.Digest()
	if err != nil {
		t.Fatal(err)
	}
	if oidA != oidB {
		t.Errorf("same entries, different digests: %s vs %s", oidA, oidB)
	}
	if !oidA.IsTree() {
		t.Errorf("tree digest %s lacks tree suffix", oidA)
	}
}

func TestTreeDigestInvalidation(t *testing.T) {
	d := HashBytes([]byte("x"))
	tr := NewTree()
	tr.Add("a", blobMeta(1), d)

	before, err := tr.Digest()
	if err != nil {
		t.Fatal(err)
	}
	if tr.Oid() != before {
		t.Errorf("Oid = %s, want %s", tr.Oid(), before)
	}

	tr.Add("b", blobMeta(1), d)
	if tr.Oid() != "" {
		t.Errorf("Oid = %s after mutation, want empty", tr.Oid())
	}
	after, err := tr.Digest()
	if err != nil {
		t.Fatal(err)
	}
	if after == before {
		t.Error("digest unchanged after adding an entry")
	}
}

func TestTreeDescendants(t *testing.T) {
	d := HashBytes([]byte("x"))
	tr := NewTree()
	for _, key := range []string{"a/b", "a/c/d", "b", "ab"} {
		tr.Add(key, blobMeta(1), d)
	}

	var got []string
	for key := range tr.Descendants("a") {
		got = append(got, key)
	}
	want := []string{"a/b", "a/c/d"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}

	if !tr.HasDescendants("a/c") {
		t.Error("HasDescendants(a/c) = false")
	}
	if tr.HasDescendants("zz") {
		t.Error("HasDescendants(zz) = true")
	}
}

func TestTreeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	tr := NewTree()
	tr.Add("file.txt", Meta{Mode: 0o644, Size: 5, ModTime: 1700000000000000000}, HashBytes([]byte("hello")))
	tr.Add("sub", Meta{Mode: fs.ModeDir | 0o755}, HashBytes([]byte("subtree"))+TreeSuffix)
	tr.Add("z/nested.bin", Meta{Mode: 0o755, Size: 9}, HashBytes([]byte("contents")))

	oid, err := tr.Save(ctx, store)
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadTree(ctx, store, oid)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != tr.Len() {
		t.Fatalf("loaded %d entries, want %d", loaded.Len(), tr.Len())
	}
	for key, want := range tr.Entries() {
		got, err := loaded.Get(key)
		if err != nil {
			t.Fatalf("loaded tree missing %q", key)
		}
		if got != want {
			t.Errorf("entry %q = %+v, want %+v", key, got, want)
		}
	}
	if loaded.Oid() != oid {
		t.Errorf("loaded Oid = %s, want %s", loaded.Oid(), oid)
	}
}

func TestLoadRejectsCorruptObjects(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	// Bytes stored under an oid they do not hash to.
	bogus := HashBytes([]byte("original")) + TreeSuffix
	if err := store.Put(ctx, bogus, []byte("tampered")); err != nil {
		t.Fatal(err)
	}
	var formatErr *ObjectFormatError
	if _, err := Load(ctx, store, bogus); !errors.As(err, &formatErr) {
		t.Errorf("tampered tree: got %v, want ObjectFormatError", err)
	}

	// Correctly addressed but malformed tree bytes.
	junk := []byte("not a tree at all")
	oid := HashBytes(junk) + TreeSuffix
	if err := store.Put(ctx, oid, junk); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(ctx, store, oid); !errors.As(err, &formatErr) {
		t.Errorf("malformed tree: got %v, want ObjectFormatError", err)
	}

	// Tampered blob.
	blobOid := HashBytes([]byte("real"))
	if err := store.Put(ctx, blobOid, []byte("fake")); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(ctx, store, blobOid); !errors.As(err, &formatErr) {
		t.Errorf("tampered blob: got %v, want ObjectFormatError", err)
	}
}

func TestTreeClone(t *testing.T) {
	d := HashBytes([]byte("x"))
	tr := NewTree()
	tr.Add("a", blobMeta(1), d)

	c := tr.Clone()
	c.Add("b", blobMeta(1), d)
	if tr.Len() != 1 {
		t.Errorf("mutating clone changed original: Len = %d", tr.Len())
	}
	if c.Len() != 2 {
		t.Errorf("clone Len = %d, want 2", c.Len())
	}
}
