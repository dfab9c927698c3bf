package vauth

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/HappyCodeDay/veyon/vdef"
)

// KeyStore resolves per-role, per-scope key file locations and installs key
// material with atomic replace semantics.
type KeyStore struct {
	systemBase string
}

// NewKeyStore creates a key store using the platform default base directory
// for the system scope.
func NewKeyStore() *KeyStore {
	return &KeyStore{systemBase: defaultKeyBaseDir()}
}

// NewKeyStoreWithBase creates a key store with an explicit system base
// directory. This allows tests to use temporary directories.
func NewKeyStoreWithBase(base string) *KeyStore {
	return &KeyStore{systemBase: base}
}

// ResolvePath returns the location of a key file. Deterministic and free of
// I/O: the same (role, kind, scope) always yields the same path.
func (s *KeyStore) ResolvePath(role vdef.Role, kind vdef.KeyKind, scope vdef.Scope) string {
	base := scope.DestDir()
	if base == "" {
		base = s.systemBase
	}
	return filepath.Join(base, kind.String(), role.String(), "key")
}

// Install writes key material to its resolved location, replacing any
// existing key atomically. An existing destination is checked for
// replaceability before any destructive action. Directory creation is
// implicit and idempotent.
func (s *KeyStore) Install(kind vdef.KeyKind, role vdef.Role, scope vdef.Scope, data []byte) error {
	path := s.ResolvePath(role, kind, scope)

	if err := os.MkdirAll(filepath.Dir(path), dirPerm(kind)); err != nil {
		return fmt.Errorf("veyon: create key directory: %w", err)
	}
	if err := ensureReplaceable(path); err != nil {
		return err
	}
	if err := atomicWriteFile(path, data, filePerm(kind)); err != nil {
		return fmt.Errorf("veyon: write %s key for role %s: %w", kind, role, err)
	}
	return nil
}

// Remove deletes the key file for (role, kind, scope). Removing a key that
// does not exist is not an error.
func (s *KeyStore) Remove(kind vdef.KeyKind, role vdef.Role, scope vdef.Scope) error {
	path := s.ResolvePath(role, kind, scope)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("veyon: remove %s key for role %s: %w", kind, role, err)
	}
	return nil
}

func filePerm(kind vdef.KeyKind) os.FileMode {
	if kind == vdef.KeyPrivate {
		return 0o640
	}
	return 0o644
}

func dirPerm(kind vdef.KeyKind) os.FileMode {
	if kind == vdef.KeyPrivate {
		return 0o750
	}
	return 0o755
}

// ensureReplaceable verifies that an existing file at path can be replaced.
// If the file is write-protected, owner write permission is restored first;
// failure to do so aborts the install before anything is modified.
func ensureReplaceable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("veyon: stat existing key: %w", err)
	}
	if writable(path) {
		return nil
	}
	if err := os.Chmod(path, info.Mode().Perm()|0o200); err != nil {
		return fmt.Errorf("veyon: existing key file %s is not replaceable: %w", path, err)
	}
	return nil
}

// atomicWriteFile writes data to a temp file in the same directory and
// renames it over the target path.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}
