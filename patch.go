package treeobj

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
)

// OpKind names a patch operation.
type OpKind string

const (
	OpAdd    OpKind = "add"
	OpModify OpKind = "modify"
	OpRemove OpKind = "remove"
	OpMove   OpKind = "move"
	OpCopy   OpKind = "copy"
	OpTest   OpKind = "test"
)

// Op is one patch operation. For add and modify, Path names a file on
// the local filesystem whose content enters the store, and To is the
// tree key it lands under. For move and copy, Path is the source key
// and To the destination key. For remove and test, Path is the key.
type Op struct {
	Op   OpKind `json:"op"`
	Path string `json:"path"`
	To   string `json:"to,omitempty"`
}

// ParsePatch decodes the external JSON form of a patch batch: an
// ordered list of {"op","path","to"} records.
func ParsePatch(data []byte) ([]Op, error) {
	var ops []Op
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("parse patch: %w", err)
	}
	for i, op := range ops {
		switch op.Op {
		case OpAdd, OpModify, OpMove, OpCopy:
			if op.To == "" {
				return nil, fmt.Errorf("parse patch: op %d (%s): missing \"to\"", i, op.Op)
			}
		case OpRemove, OpTest:
		default:
			return nil, fmt.Errorf("parse patch: op %d: unknown op %q", i, op.Op)
		}
		if op.Path == "" {
			return nil, fmt.Errorf("parse patch: op %d (%s): missing \"path\"", i, op.Op)
		}
	}
	return ops, nil
}

// Apply runs a patch batch against the tree, strictly in list order.
// A failing operation aborts the batch at that point; operations
// already applied are not rolled back. Callers wanting atomicity apply
// to a Clone and swap on success. After a successful batch the tree is
// digest-invalid until Digest is called again.
func (t *Tree) Apply(ctx context.Context, store ObjectStore, fsys afero.Fs, ops []Op) error {
	for i, op := range ops {
		if err := t.apply(ctx, store, fsys, op); err != nil {
			return fmt.Errorf("patch op %d (%s %q): %w", i, op.Op, op.Path, err)
		}
	}
	return nil
}

func (t *Tree) apply(ctx context.Context, store ObjectStore, fsys afero.Fs, op Op) error {
	switch op.Op {
	case OpAdd, OpModify:
		if op.Op == OpAdd {
			if _, err := t.Get(op.To); err == nil {
				return ErrExists
			}
		}
		data, err := afero.ReadFile(fsys, op.Path)
		if err != nil {
			return err
		}
		info, err := fsys.Stat(op.Path)
		if err != nil {
			return err
		}
		oid, err := store.Add(ctx, data)
		if err != nil {
			return err
		}
		meta := Meta{Mode: info.Mode(), Size: info.Size(), ModTime: info.ModTime().UnixNano()}
		t.Add(op.To, meta, oid)
		return nil

	case OpRemove:
		return t.Remove(op.Path)

	case OpMove, OpCopy:
		e, err := t.Get(op.Path)
		if err != nil {
			return err
		}
		t.Add(op.To, e.Meta, e.Digest)
		if op.Op == OpMove {
			return t.Remove(op.Path)
		}
		return nil

	case OpTest:
		_, err := t.Get(op.Path)
		return err

	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
}
