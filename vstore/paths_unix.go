//go:build !windows

package vstore

import "path/filepath"

func defaultConfigPath() string {
	return filepath.Join("/etc", "veyon", "veyon.conf")
}
