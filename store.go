package treeobj

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"iter"
	"strings"
)

// TreeSuffix marks object ids that refer to serialized trees rather than
// raw file content. Blobs are stored byte-for-byte so checkout can link
// to them; trees carry the suffix so an oid alone identifies its kind.
const TreeSuffix = ".dir"

// Digest is a content-derived object id: hex sha256 of the object bytes,
// with TreeSuffix appended for tree objects.
type Digest string

// IsTree reports whether the digest refers to a serialized tree.
func (d Digest) IsTree() bool {
	return strings.HasSuffix(string(d), TreeSuffix)
}

// Hex returns the bare hex portion of the digest.
func (d Digest) Hex() string {
	return strings.TrimSuffix(string(d), TreeSuffix)
}

// Short returns an abbreviated form for display.
func (d Digest) Short() string {
	if d.IsTree() {
		return string(d)
	}
	if len(d) > 9 {
		return string(d[:9])
	}
	return string(d)
}

// HashBytes computes the blob digest of raw content.
func HashBytes(data []byte) Digest {
	h := sha256.Sum256(data)
	return Digest(hex.EncodeToString(h[:]))
}

// HashReader computes the blob digest of streamed content.
func HashReader(r io.Reader) (Digest, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, err
	}
	return Digest(hex.EncodeToString(h.Sum(nil))), n, nil
}

// ObjectStore is the object database the tree layer runs on top of.
// Implementations must provide idempotent writes per digest and safe
// concurrent reads; retry policy, if any, lives in the implementation.
type ObjectStore interface {
	// Add stores raw content and returns its blob digest.
	Add(ctx context.Context, data []byte) (Digest, error)

	// Put stores data under a caller-computed oid (tree persistence).
	// Writing the same oid twice is a no-op.
	Put(ctx context.Context, oid Digest, data []byte) error

	// Get retrieves the bytes for an oid, ErrNotFound if absent.
	Get(ctx context.Context, oid Digest) ([]byte, error)

	// Has reports whether the store currently holds the oid.
	Has(ctx context.Context, oid Digest) (bool, error)

	// Stat returns the stored size of an oid.
	Stat(ctx context.Context, oid Digest) (size int64, ok bool)

	// Remove deletes an object, ErrNotFound if absent.
	Remove(ctx context.Context, oid Digest) error

	// Oids enumerates every object in the store.
	Oids(ctx context.Context) iter.Seq2[Digest, error]

	// Check verifies an object is readable; with checkHash it also
	// verifies the content hashes back to the oid, returning
	// *ObjectFormatError on mismatch.
	Check(ctx context.Context, oid Digest, checkHash bool) error

	// ResolvePrefix expands a short oid to a full one, failing with
	// ErrUnknownOID when nothing matches and *AmbiguousOIDError when
	// several objects do.
	ResolvePrefix(ctx context.Context, prefix string) (Digest, error)
}

// PathStore is implemented by stores whose objects live at stable
// filesystem paths. Checkout uses it for reflink/hardlink/symlink
// strategies; without it only copy is available.
type PathStore interface {
	ObjectStore
	Path(oid Digest) string
}
