package treeobj

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a path key or object id does not exist.
	ErrNotFound = errors.New("treeobj: not found")

	// ErrExists is returned by a patch "add" targeting an occupied key.
	ErrExists = errors.New("treeobj: already exists")

	// ErrUnknownOID is returned when a short object id matches nothing.
	ErrUnknownOID = errors.New("treeobj: unknown object id")
)

// AmbiguousOIDError is returned when a short object id matches more than
// one object in the store.
type AmbiguousOIDError struct {
	Prefix  string
	Matches []Digest
}

func (e *AmbiguousOIDError) Error() string {
	return fmt.Sprintf("treeobj: ambiguous object id %q (%d matches)", e.Prefix, len(e.Matches))
}

// ConflictError is returned by Merge when both sides modified the same
// paths and force was not set.
type ConflictError struct {
	Paths []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("treeobj: merge conflict: %s", strings.Join(e.Paths, ", "))
}

// ObjectFormatError is returned when the stored bytes for an object are
// malformed or do not hash to the object id they are stored under.
type ObjectFormatError struct {
	Oid    Digest
	Reason string
}

func (e *ObjectFormatError) Error() string {
	return fmt.Sprintf("treeobj: object %s: %s", e.Oid.Short(), e.Reason)
}

// LinkError is returned by Checkout when every configured link strategy
// failed for an entry.
type LinkError struct {
	Key   string
	Tried []LinkKind
	Err   error
}

func (e *LinkError) Error() string {
	kinds := make([]string, len(e.Tried))
	for i, k := range e.Tried {
		kinds[i] = k.String()
	}
	return fmt.Sprintf("treeobj: link %q: exhausted strategies [%s]: %v", e.Key, strings.Join(kinds, " "), e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }
