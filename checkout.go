package treeobj

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// PromptFunc decides whether checkout may overwrite an existing path.
// Non-interactive callers supply a pure function.
type PromptFunc func(path, reason string) bool

// ProgressFunc is invoked once per completed entry.
type ProgressFunc func(key string)

type checkoutConfig struct {
	relink     bool
	force      bool
	strategies []LinkKind
	prompt     PromptFunc
	progress   ProgressFunc
}

// CheckoutOption configures Checkout.
type CheckoutOption func(*checkoutConfig)

// WithRelink replaces existing destination files even when their
// content already matches, switching them to the configured link type.
func WithRelink() CheckoutOption {
	return func(c *checkoutConfig) { c.relink = true }
}

// WithForce overwrites differing destination files without prompting.
func WithForce() CheckoutOption {
	return func(c *checkoutConfig) { c.force = true }
}

// WithLinkStrategy sets the ordered strategy preference. The first
// kind the filesystem pair supports is used per file; without this
// option only copy is used.
func WithLinkStrategy(kinds ...LinkKind) CheckoutOption {
	return func(c *checkoutConfig) { c.strategies = kinds }
}

// WithPrompt installs the overwrite confirmation callback. Without it
// differing destinations are left untouched unless force is set.
func WithPrompt(fn PromptFunc) CheckoutOption {
	return func(c *checkoutConfig) { c.prompt = fn }
}

// WithProgress installs a per-entry completion callback.
func WithProgress(fn ProgressFunc) CheckoutOption {
	return func(c *checkoutConfig) { c.progress = fn }
}

// CheckoutSummary counts per-entry outcomes of one checkout run.
type CheckoutSummary struct {
	Entries   int // leaves walked
	Completed int // newly materialized
	Skipped   int // already satisfied
	Denied    int // overwrite refused by the prompt
}

// Checkout materializes a tree or a single object onto a filesystem.
// The walk is depth-first with directories created before their
// children. Cancellation is checked before each leaf; entries already
// materialized are left in place. Per-entry prompt denials skip only
// that entry, while store and filesystem failures, and strategy
// exhaustion (*LinkError), abort the whole checkout.
func Checkout(ctx context.Context, dest string, fsys FileSystem, obj Object, store ObjectStore, opts ...CheckoutOption) (*CheckoutSummary, error) {
	cfg := checkoutConfig{strategies: []LinkKind{LinkCopy}}
	for _, opt := range opts {
		opt(&cfg)
	}

	leaves, err := checkoutLeaves(ctx, obj, store)
	if err != nil {
		return &CheckoutSummary{}, err
	}

	sum := &CheckoutSummary{Entries: len(leaves)}
	for _, e := range leaves {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := checkoutLeaf(ctx, dest, fsys, store, e, &cfg, sum); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

// checkoutLeaves resolves the object into the flat list of files to
// materialize. A single blob behaves as a one-entry tree rooted at the
// destination itself.
func checkoutLeaves(ctx context.Context, obj Object, store ObjectStore) ([]Entry, error) {
	switch o := obj.(type) {
	case *Blob:
		return []Entry{{
			Key:    RootKey,
			Meta:   Meta{Mode: 0o644, Size: int64(len(o.Data))},
			Digest: o.Oid(),
		}}, nil
	case *Tree:
		flat, err := flatten(ctx, o, store, -1)
		if err != nil {
			return nil, err
		}
		var leaves []Entry
		for _, e := range flat.Entries() {
			leaves = append(leaves, e)
		}
		return leaves, nil
	default:
		return nil, fmt.Errorf("treeobj: cannot check out %T", obj)
	}
}

func checkoutLeaf(ctx context.Context, dest string, fsys FileSystem, store ObjectStore, e Entry, cfg *checkoutConfig, sum *CheckoutSummary) error {
	target := dest
	if e.Key != RootKey {
		target = filepath.Join(dest, filepath.FromSlash(e.Key))
	}
	if dir := filepath.Dir(target); dir != "" {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("checkout %q: %w", e.Key, err)
		}
	}

	if _, err := fsys.Stat(target); err == nil {
		existing, err := afero.ReadFile(fsys, target)
		if err != nil {
			return fmt.Errorf("checkout %q: %w", e.Key, err)
		}
		if HashBytes(existing) == e.Digest {
			if !cfg.relink {
				sum.Skipped++
				if cfg.progress != nil {
					cfg.progress(e.Key)
				}
				return nil
			}
		} else if !cfg.force {
			if cfg.prompt == nil || !cfg.prompt(target, "destination exists and differs") {
				sum.Denied++
				return nil
			}
		}
		if err := fsys.Remove(target); err != nil {
			return fmt.Errorf("checkout %q: %w", e.Key, err)
		}
	}

	if err := materialize(ctx, fsys, store, e, target, cfg.strategies); err != nil {
		return err
	}
	sum.Completed++
	if cfg.progress != nil {
		cfg.progress(e.Key)
	}
	return nil
}

// materialize tries each configured strategy in order; a strategy that
// fails for a filesystem-specific reason is skipped. Only exhausting
// every strategy is fatal.
func materialize(ctx context.Context, fsys FileSystem, store ObjectStore, e Entry, target string, strategies []LinkKind) error {
	perm := e.Meta.Mode.Perm()
	if perm == 0 {
		perm = 0o644
	}

	var lastErr error
	for _, kind := range strategies {
		var err error
		if kind == LinkCopy {
			err = copyFromStore(ctx, fsys, store, e.Digest, target, perm)
		} else {
			err = linkFromStore(fsys, store, kind, e.Digest, target)
		}
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return &LinkError{Key: e.Key, Tried: strategies, Err: lastErr}
}

func copyFromStore(ctx context.Context, fsys FileSystem, store ObjectStore, oid Digest, target string, perm fs.FileMode) error {
	data, err := store.Get(ctx, oid)
	if err != nil {
		return err
	}
	return afero.WriteFile(fsys, target, data, perm)
}

func linkFromStore(fsys FileSystem, store ObjectStore, kind LinkKind, oid Digest, target string) error {
	ps, ok := store.(PathStore)
	if !ok {
		return ErrLinkNotSupported
	}
	return fsys.Link(kind, ps.Path(oid), target)
}
