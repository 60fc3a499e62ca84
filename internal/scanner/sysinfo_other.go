//go:build !unix

package scanner

import "io/fs"

// getSysInfo no tiene inode portable fuera de unix.
func getSysInfo(info fs.FileInfo) (uint64, uint64) {
	return 0, 0
}
