//go:build !linux

package treeobj

func reflink(src, dst string) error {
	return ErrLinkNotSupported
}
