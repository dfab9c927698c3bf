//go:build windows

package vstore

import (
	"os"
	"path/filepath"
)

func defaultConfigPath() string {
	pd := os.Getenv("PROGRAMDATA")
	if pd == "" {
		pd = `C:\ProgramData`
	}
	return filepath.Join(pd, "Veyon", "veyon.conf")
}
