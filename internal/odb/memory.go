package odb

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"

	"github.com/treedata/treeobj"
)

// MemDB is an in-memory object store: the staging area for builds that
// may never be written out, and the fixture for tests. Reads are safe
// concurrently; writes are idempotent per digest.
type MemDB struct {
	mu      sync.RWMutex
	objects map[treeobj.Digest][]byte
}

var _ treeobj.ObjectStore = (*MemDB)(nil)

func NewMemDB() *MemDB {
	return &MemDB{objects: make(map[treeobj.Digest][]byte)}
}

func (m *MemDB) Add(ctx context.Context, data []byte) (treeobj.Digest, error) {
	oid := treeobj.HashBytes(data)
	return oid, m.Put(ctx, oid, data)
}

func (m *MemDB) Put(ctx context.Context, oid treeobj.Digest, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[oid]; ok {
		return nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[oid] = cp
	return nil
}

func (m *MemDB) Get(ctx context.Context, oid treeobj.Digest) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[oid]
	if !ok {
		return nil, fmt.Errorf("odb: %s: %w", oid.Short(), treeobj.ErrNotFound)
	}
	return data, nil
}

func (m *MemDB) Has(ctx context.Context, oid treeobj.Digest) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[oid]
	return ok, nil
}

func (m *MemDB) Stat(ctx context.Context, oid treeobj.Digest) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[oid]
	if !ok {
		return 0, false
	}
	return int64(len(data)), true
}

func (m *MemDB) Remove(ctx context.Context, oid treeobj.Digest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[oid]; !ok {
		return fmt.Errorf("odb: %s: %w", oid.Short(), treeobj.ErrNotFound)
	}
	delete(m.objects, oid)
	return nil
}

func (m *MemDB) Oids(ctx context.Context) iter.Seq2[treeobj.Digest, error] {
	m.mu.RLock()
	oids := make([]treeobj.Digest, 0, len(m.objects))
	for oid := range m.objects {
		oids = append(oids, oid)
	}
	m.mu.RUnlock()
	sort.Slice(oids, func(i, j int) bool { return oids[i] < oids[j] })

	return func(yield func(treeobj.Digest, error) bool) {
		for _, oid := range oids {
			if !yield(oid, nil) {
				return
			}
		}
	}
}

func (m *MemDB) Check(ctx context.Context, oid treeobj.Digest, checkHash bool) error {
	data, err := m.Get(ctx, oid)
	if err != nil {
		return err
	}
	if !checkHash {
		return nil
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

func (m *MemDB) ResolvePrefix(ctx context.Context, prefix string) (treeobj.Digest, error) {
	if prefix == "" {
		return "", fmt.Errorf("odb: empty prefix: %w", treeobj.ErrUnknownOID)
	}
	var matches []treeobj.Digest
	for oid, err := range m.Oids(ctx) {
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
