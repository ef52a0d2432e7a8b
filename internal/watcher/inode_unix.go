//go:build unix

package watcher

import "syscall"

func getInode(sys any) uint64 {
	if stat, ok := sys.(*syscall.Stat_t); ok {
		return uint64(stat.Ino) //nolint:unconvert // Ino is uint32 on some platforms
	}
	return 0
}
