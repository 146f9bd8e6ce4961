//go:build linux

package treeobj

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// reflink clones src into dst with FICLONE. Filesystems without
// copy-on-write support (and cross-device pairs) report
// ErrLinkNotSupported so checkout can fall through to the next
// strategy.
func reflink(src, dst string) error {
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
	if err := unix.IoctlFileClone(int(out.Fd()), int(in.Fd())); err != nil {
		out.Close()
		os.Remove(dst)
		if errors.Is(err, unix.EOPNOTSUPP) || errors.Is(err, unix.EINVAL) || errors.Is(err, unix.EXDEV) {
			return ErrLinkNotSupported
		}
		return err
	}
	return out.Close()
}
