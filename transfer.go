package treeobj

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"
)

// DefaultTransferWorkers bounds parallel object copies in Transfer.
const DefaultTransferWorkers = 8

// Closure resolves the full set of objects reachable from the given
// oids: the oids themselves plus, for trees, every referenced blob and
// sub-tree, recursively.
func Closure(ctx context.Context, store ObjectStore, oids ...Digest) ([]Digest, error) {
	seen := make(map[Digest]struct{})
	var out []Digest
	var visit func(oid Digest) error
	visit = func(oid Digest) error {
		if _, ok := seen[oid]; ok {
			return nil
		}
		seen[oid] = struct{}{}
		out = append(out, oid)
		if !oid.IsTree() {
			return nil
		}
		t, err := LoadTree(ctx, store, oid)
		if err != nil {
			return fmt.Errorf("closure of %s: %w", oid.Short(), err)
		}
		for _, e := range t.Entries() {
			if err := visit(e.Digest); err != nil {
				return err
			}
		}
		return nil
	}
	for _, oid := range oids {
		if err := visit(oid); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Transfer copies the closures of the given oids from src to dst,
// in parallel and idempotent per digest. It returns the number of
// objects actually written.
func Transfer(ctx context.Context, src, dst ObjectStore, oids ...Digest) (int, error) {
	closure, err := Closure(ctx, src, oids...)
	if err != nil {
		return 0, err
	}

	var copied atomic.Int64
	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(DefaultTransferWorkers)
	for _, oid := range closure {
		p.Go(func(ctx context.Context) error {
			if ok, err := dst.Has(ctx, oid); err != nil {
				return err
			} else if ok {
				return nil
			}
			data, err := src.Get(ctx, oid)
			if err != nil {
				return fmt.Errorf("transfer %s: %w", oid.Short(), err)
			}
			if err := dst.Put(ctx, oid, data); err != nil {
				return fmt.Errorf("transfer %s: %w", oid.Short(), err)
			}
			copied.Add(1)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return int(copied.Load()), err
	}
	return int(copied.Load()), nil
}

// DiskUsage sums the stored sizes of every object reachable from oid.
func DiskUsage(ctx context.Context, store ObjectStore, oid Digest) (int64, error) {
	closure, err := Closure(ctx, store, oid)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, o := range closure {
		if size, ok := store.Stat(ctx, o); ok {
			total += size
		}
	}
	return total, nil
}
