package treeobj

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
)

// Wire format for tree objects, framed the same way blobs and trees are
// framed in git-style stores: an ascii header "tree {size}\x00" followed
// by fixed-layout entries sorted by key.
//
// Entry layout: {mode u32}{size u64}{mtime i64}{digest 32 bytes}{keylen u16}{key}
//
// The digest field holds the raw hash; whether the referenced object is
// a blob or a sub-tree is recovered from the entry mode.

const treeHeader = "tree "

// Object is a loaded store object: either a *Blob or a *Tree.
type Object interface {
	Oid() Digest
}

// Blob is raw file content loaded from the store.
type Blob struct {
	Data []byte

	oid Digest
}

// Oid returns the blob's content digest.
func (b *Blob) Oid() Digest { return b.oid }

// NewBlob wraps raw content as a loaded object.
func NewBlob(data []byte) *Blob {
	return &Blob{Data: data, oid: HashBytes(data)}
}

// Bytes returns the canonical serialization of the tree. The encoding
// is deterministic for a given entry set.
func (t *Tree) Bytes() ([]byte, error) {
	var body bytes.Buffer
	for key, e := range t.Entries() {
		raw, err := hex.DecodeString(e.Digest.Hex())
		if err != nil || len(raw) != 32 {
			return nil, fmt.Errorf("entry %q: bad digest %q", key, e.Digest)
		}
		binary.Write(&body, binary.BigEndian, uint32(e.Meta.Mode))
		binary.Write(&body, binary.BigEndian, uint64(e.Meta.Size))
		binary.Write(&body, binary.BigEndian, e.Meta.ModTime)
		body.Write(raw)
		binary.Write(&body, binary.BigEndian, uint16(len(key)))
		body.WriteString(key)
	}

	header := fmt.Sprintf("%s%d\x00", treeHeader, body.Len())
	buf := make([]byte, 0, len(header)+body.Len())
	buf = append(buf, header...)
	buf = append(buf, body.Bytes()...)
	return buf, nil
}

// Save finalizes the tree's digest and writes the serialized tree to
// the store. Writing the same tree twice is a no-op.
func (t *Tree) Save(ctx context.Context, store ObjectStore) (Digest, error) {
	data, err := t.Bytes()
	if err != nil {
		return "", err
	}
	oid, err := t.Digest()
	if err != nil {
		return "", err
	}
	if err := store.Put(ctx, oid, data); err != nil {
		return "", fmt.Errorf("save tree: %w", err)
	}
	return oid, nil
}

// Load fetches an object from the store by oid. Tree oids are decoded
// into a *Tree, anything else into a *Blob. It fails with
// *ObjectFormatError when the bytes are malformed or do not hash back
// to the oid.
func Load(ctx context.Context, store ObjectStore, oid Digest) (Object, error) {
	data, err := store.Get(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !oid.IsTree() {
		if HashBytes(data) != oid {
			return nil, &ObjectFormatError{Oid: oid, Reason: "content does not match digest"}
		}
		return &Blob{Data: data, oid: oid}, nil
	}
	if HashBytes(data)+TreeSuffix != oid {
		return nil, &ObjectFormatError{Oid: oid, Reason: "content does not match digest"}
	}
	t, err := DecodeTree(data)
	if err != nil {
		return nil, &ObjectFormatError{Oid: oid, Reason: err.Error()}
	}
	t.oid = oid
	return t, nil
}

// LoadTree is Load restricted to tree objects.
func LoadTree(ctx context.Context, store ObjectStore, oid Digest) (*Tree, error) {
	obj, err := Load(ctx, store, oid)
	if err != nil {
		return nil, err
	}
	t, ok := obj.(*Tree)
	if !ok {
		return nil, &ObjectFormatError{Oid: oid, Reason: "not a tree object"}
	}
	return t, nil
}

// DecodeTree parses the canonical tree serialization.
func DecodeTree(data []byte) (*Tree, error) {
	idx := bytes.IndexByte(data, 0)
	if idx == -1 {
		return nil, fmt.Errorf("missing header terminator")
	}
	header := string(data[:idx])
	if !strings.HasPrefix(header, treeHeader) {
		return nil, fmt.Errorf("not a tree header: %q", header)
	}
	size, err := strconv.Atoi(strings.TrimPrefix(header, treeHeader))
	if err != nil {
		return nil, fmt.Errorf("bad tree header: %q", header)
	}
	body := data[idx+1:]
	if size != len(body) {
		return nil, fmt.Errorf("tree size %d does not match body length %d", size, len(body))
	}

	t := NewTree()
	r := bytes.NewReader(body)
	for r.Len() > 0 {
		var mode uint32
		var sz uint64
		var mtime int64
		if err := binary.Read(r, binary.BigEndian, &mode); err != nil {
			return nil, fmt.Errorf("entry mode: %w", err)
		}
		if err := binary.Read(r, binary.BigEndian, &sz); err != nil {
			return nil, fmt.Errorf("entry size: %w", err)
		}
		if err := binary.Read(r, binary.BigEndian, &mtime); err != nil {
			return nil, fmt.Errorf("entry mtime: %w", err)
		}
		var raw [32]byte
		if _, err := io.ReadFull(r, raw[:]); err != nil {
			return nil, fmt.Errorf("entry digest: %w", err)
		}
		var keyLen uint16
		if err := binary.Read(r, binary.BigEndian, &keyLen); err != nil {
			return nil, fmt.Errorf("entry key length: %w", err)
		}
		keyBuf := make([]byte, keyLen)
		if _, err := io.ReadFull(r, keyBuf); err != nil {
			return nil, fmt.Errorf("entry key: %w", err)
		}

		meta := Meta{Mode: fs.FileMode(mode), Size: int64(sz), ModTime: mtime}
		oid := Digest(hex.EncodeToString(raw[:]))
		if meta.IsDir() {
			oid += TreeSuffix
		}
		t.Add(string(keyBuf), meta, oid)
	}
	return t, nil
}
