package treeobj

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"
)

// testStore is a minimal in-memory ObjectStore fixture, safe for the
// pooled writers in Build and Transfer.
type testStore struct {
	mu      sync.Mutex
	objects map[Digest][]byte
}

var _ ObjectStore = (*testStore)(nil)

func newTestStore() *testStore {
	return &testStore{objects: make(map[Digest][]byte)}
}

func (s *testStore) Add(ctx context.Context, data []byte) (Digest, error) {
	oid := HashBytes(data)
	return oid, s.Put(ctx, oid, data)
}

func (s *testStore) Put(ctx context.Context, oid Digest, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[oid]; ok {
		return nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[oid] = cp
	return nil
}

func (s *testStore) Get(ctx context.Context, oid Digest) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[oid]
	if !ok {
		return nil, fmt.Errorf("%s: %w", oid.Short(), ErrNotFound)
	}
	return data, nil
}

func (s *testStore) Has(ctx context.Context, oid Digest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[oid]
	return ok, nil
}

func (s *testStore) Stat(ctx context.Context, oid Digest) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[oid]
	if !ok {
		return 0, false
	}
	return int64(len(data)), true
}

func (s *testStore) Remove(ctx context.Context, oid Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[oid]; !ok {
		return fmt.Errorf("%s: %w", oid.Short(), ErrNotFound)
	}
	delete(s.objects, oid)
	return nil
}

func (s *testStore) Oids(ctx context.Context) iter.Seq2[Digest, error] {
	s.mu.Lock()
	defer s.mu.Unlock()
	oids := make([]Digest, 0, len(s.objects))
	for oid := range s.objects {
		oids = append(oids, oid)
	}
	sort.Slice(oids, func(i, j int) bool { return oids[i] < oids[j] })
	return func(yield func(Digest, error) bool) {
		for _, oid := range oids {
			if !yield(oid, nil) {
				return
			}
		}
	}
}

func (s *testStore) Check(ctx context.Context, oid Digest, checkHash bool) error {
	data, err := s.Get(ctx, oid)
	if err != nil {
		return err
	}
	if !checkHash {
		return nil
	}
	want := HashBytes(data)
	if oid.IsTree() {
		want += TreeSuffix
	}
	if want != oid {
		return &ObjectFormatError{Oid: oid, Reason: "content does not match digest"}
	}
	return nil
}

func (s *testStore) ResolvePrefix(ctx context.Context, prefix string) (Digest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []Digest
	for oid := range s.objects {
		if strings.HasPrefix(string(oid), prefix) {
			matches = append(matches, oid)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%q: %w", prefix, ErrUnknownOID)
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousOIDError{Prefix: prefix, Matches: matches}
	}
}
