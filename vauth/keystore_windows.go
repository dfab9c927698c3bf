//go:build windows

package vauth

import "os"

// writable reports whether the current principal has write access to path.
// Windows has no faccessat equivalent, so probe with an open for write.
func writable(path string) bool {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
