//go:build windows

package vauth

import (
	"os"
	"path/filepath"
)

func programData() string {
	pd := os.Getenv("PROGRAMDATA")
	if pd == "" {
		pd = `C:\ProgramData`
	}
	return pd
}

func defaultKeyBaseDir() string {
	return filepath.Join(programData(), "Veyon", "keys")
}

func defaultStateDir() string {
	return filepath.Join(programData(), "Veyon")
}
