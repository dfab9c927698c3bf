//go:build !windows

package vauth

import "golang.org/x/sys/unix"

// writable reports whether the current principal has write access to path.
func writable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}
