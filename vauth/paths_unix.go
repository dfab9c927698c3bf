//go:build !windows

package vauth

import "path/filepath"

func defaultKeyBaseDir() string {
	return filepath.Join("/etc", "veyon", "keys")
}

func defaultStateDir() string {
	return filepath.Join("/var/lib", "veyon")
}
