package treeobj

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// LinkKind selects how checkout materializes a file from the store.
type LinkKind int

const (
	LinkReflink LinkKind = iota
	LinkHardlink
	LinkSymlink
	LinkCopy
)

var linkKindNames = map[LinkKind]string{
	LinkReflink:  "reflink",
	LinkHardlink: "hardlink",
	LinkSymlink:  "symlink",
	LinkCopy:     "copy",
}

func (k LinkKind) String() string {
	if name, ok := linkKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("link(%d)", int(k))
}

// ParseLinkKind maps a strategy name to its LinkKind.
func ParseLinkKind(name string) (LinkKind, error) {
	for kind, n := range linkKindNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("treeobj: unknown link kind %q", name)
}

// ErrLinkNotSupported is returned by Link when the filesystem pair
// cannot provide the requested kind. Checkout skips to the next
// configured strategy on this error.
var ErrLinkNotSupported = errors.New("treeobj: link kind not supported")

// FileSystem is the filesystem collaborator: afero for read, write,
// stat and remove, plus link creation between paths.
type FileSystem interface {
	afero.Fs
	Link(kind LinkKind, src, dst string) error
}

// NewOsFS returns a FileSystem backed by the host filesystem.
func NewOsFS() FileSystem {
	return &osFS{Fs: afero.NewOsFs()}
}

type osFS struct {
	afero.Fs
}

func (f *osFS) Link(kind LinkKind, src, dst string) error {
	switch kind {
	case LinkHardlink:
		return os.Link(src, dst)
	case LinkSymlink:
		return os.Symlink(src, dst)
	case LinkReflink:
		return reflink(src, dst)
	case LinkCopy:
		return copyFile(src, dst)
	default:
		return ErrLinkNotSupported
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// NewMemFS returns an in-memory FileSystem. Only the copy checkout
// strategy works against it; every Link kind is unsupported.
func NewMemFS() FileSystem {
	return &memFS{Fs: afero.NewMemMapFs()}
}

type memFS struct {
	afero.Fs
}

func (f *memFS) Link(kind LinkKind, src, dst string) error {
	return ErrLinkNotSupported
}
