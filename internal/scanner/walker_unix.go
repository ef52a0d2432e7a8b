//go:build unix

package scanner

import "golang.org/x/sys/unix"

// dirIdentity returns the device and inode of the directory path resolves to.
func dirIdentity(path string) (dirKey, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return dirKey{}, err
	}
	return dirKey{dev: uint64(st.Dev), ino: uint64(st.Ino)}, nil //nolint:gosec,unconvert // Dev is signed on some platforms
}

