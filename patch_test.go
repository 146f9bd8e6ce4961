package treeobj

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
)

func patchFixture(t *testing.T) (context.Context, *testStore, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "local/file.txt", []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	return context.Background(), newTestStore(), fsys
}

func TestPatchAdd(t *testing.T) {
	ctx, store, fsys := patchFixture(t)

	tr := NewTree()
	err := tr.Apply(ctx, store, fsys, []Op{{Op: OpAdd, Path: "local/file.txt", To: "foo"}})
	if err != nil {
		t.Fatal(err)
	}

	e, err := tr.Get("foo")
	if err != nil {
		t.Fatal(err)
	}
	want := HashBytes([]byte("payload"))
	if e.Digest != want {
		t.Errorf("foo digest = %s, want %s", e.Digest, want)
	}
	if ok, _ := store.Has(ctx, want); !ok {
		t.Error("content not added to store")
	}

	// Adding onto an occupied key fails.
	err = tr.Apply(ctx, store, fsys, []Op{{Op: OpAdd, Path: "local/file.txt", To: "foo"}})
	if !errors.Is(err, ErrExists) {
		t.Errorf("second add: got %v, want ErrExists", err)
	}

	// Modify overwrites without complaint.
	if err := afero.WriteFile(fsys, "local/file.txt", []byte("payload v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	err = tr.Apply(ctx, store, fsys, []Op{{Op: OpModify, Path: "local/file.txt", To: "foo"}})
	if err != nil {
		t.Fatal(err)
	}
	if e, _ := tr.Get("foo"); e.Digest != HashBytes([]byte("payload v2")) {
		t.Error("modify did not overwrite")
	}
}

func TestPatchMoveAndTest(t *testing.T) {
	ctx, store, fsys := patchFixture(t)

	d1 := HashBytes([]byte("one"))
	tr := NewTree()
	tr.Add("a/b", blobMeta(3), d1)

	err := tr.Apply(ctx, store, fsys, []Op{{Op: OpMove, Path: "a/b", To: "a/c"}})
	if err != nil {
		t.Fatal(err)
	}
	if e, err := tr.Get("a/c"); err != nil || e.Digest != d1 {
		t.Errorf("a/c = (%v, %v), want digest %s", e, err, d1)
	}
	if _, err := tr.Get("a/b"); !errors.Is(err, ErrNotFound) {
		t.Error("a/b still present after move")
	}

	err = tr.Apply(ctx, store, fsys, []Op{{Op: OpTest, Path: "a/b"}})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("test a/b: got %v, want ErrNotFound", err)
	}
}

func TestPatchCopy(t *testing.T) {
	ctx, store, fsys := patchFixture(t)

	d1 := HashBytes([]byte("one"))
	tr := NewTree()
	tr.Add("src", blobMeta(3), d1)

	err := tr.Apply(ctx, store, fsys, []Op{{Op: OpCopy, Path: "src", To: "dup"}})
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"src", "dup"} {
		if e, err := tr.Get(key); err != nil || e.Digest != d1 {
			t.Errorf("%s = (%v, %v)", key, e, err)
		}
	}
}

func TestPatchFailFastKeepsPartialState(t *testing.T) {
	ctx, store, fsys := patchFixture(t)

	d1 := HashBytes([]byte("one"))
	tr := NewTree()
	tr.Add("keep", blobMeta(3), d1)

	ops := []Op{
		{Op: OpCopy, Path: "keep", To: "copied"},  // applies
		{Op: OpRemove, Path: "missing"},           // fails here
		{Op: OpRemove, Path: "keep"},              // never runs
	}
	err := tr.Apply(ctx, store, fsys, ops)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}

	// Prior op stuck, later op never ran.
	if _, err := tr.Get("copied"); err != nil {
		t.Error("first op rolled back; fail-fast must keep partial state")
	}
	if _, err := tr.Get("keep"); err != nil {
		t.Error("op after the failure ran")
	}
}

func TestPatchAddRemoveRoundTrip(t *testing.T) {
	ctx, store, fsys := patchFixture(t)

	d1 := HashBytes([]byte("one"))
	tr := NewTree()
	tr.Add("existing", blobMeta(3), d1)
	before, err := tr.Digest()
	if err != nil {
		t.Fatal(err)
	}

	err = tr.Apply(ctx, store, fsys, []Op{{Op: OpAdd, Path: "local/file.txt", To: "temp"}})
	if err != nil {
		t.Fatal(err)
	}
	err = tr.Apply(ctx, store, fsys, []Op{{Op: OpRemove, Path: "temp"}})
	if err != nil {
		t.Fatal(err)
	}

	after, err := tr.Digest()
	if err != nil {
		t.Fatal(err)
	}
	if after != before {
		t.Errorf("digest %s after add+remove, want original %s", after, before)
	}
}

func TestParsePatch(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"valid", `[{"op":"remove","path":"a"},{"op":"move","path":"a","to":"b"}]`, false},
		{"missing to", `[{"op":"copy","path":"a"}]`, true},
		{"missing path", `[{"op":"test"}]`, true},
		{"unknown op", `[{"op":"frobnicate","path":"a"}]`, true},
		{"not json", `{]`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePatch([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}
