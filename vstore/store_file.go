package vstore

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/HappyCodeDay/veyon/vdef"
)

// LocalStore persists a configuration tree to a single file. Values under
// protected keys are encrypted at rest. Saves are atomic (temp file plus
// rename in the destination directory).
type LocalStore struct {
	path    string
	protect map[string]bool
}

// NewLocalStore creates a store at the scope's default configuration path.
func NewLocalStore(scope vdef.Scope) *LocalStore {
	path := defaultConfigPath()
	if !scope.IsSystem() {
		path = filepath.Join(scope.DestDir(), "veyon.conf")
	}
	return NewLocalStoreWithPath(path)
}

// NewLocalStoreWithPath creates a store at an explicit path. The path can
// start with ~ to indicate the user's home directory.
func NewLocalStoreWithPath(path string) *LocalStore {
	return &LocalStore{
		path:    expandPath(path),
		protect: make(map[string]bool),
	}
}

// Protect marks flattened keys whose values are encrypted at rest.
func (s *LocalStore) Protect(keys ...string) {
	for _, key := range keys {
		s.protect[key] = true
	}
}

// Path returns the storage location for display purposes.
func (s *LocalStore) Path() string {
	return s.path
}

// Load reads the stored configuration tree. A missing file yields an empty
// tree, not an error.
func (s *LocalStore) Load() (Section, error) {
	kv, err := loadKeyValue(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(Section), nil
		}
		return nil, fmt.Errorf("veyon: load configuration: %w", err)
	}

	flat := make(map[string]string, len(kv))
	for key, value := range kv {
		if s.protect[key] {
			plain, err := decryptValue(value)
			if err != nil {
				return nil, fmt.Errorf("veyon: decrypt configuration value %q: %w", key, err)
			}
			value = plain
		}
		flat[key] = string(value)
	}
	return sectionFromFlat(flat), nil
}

// Flush persists the configuration tree, replacing the stored state.
func (s *LocalStore) Flush(tree Section) error {
	flat := tree.flatten()
	kv := make(keyValue, len(flat))
	for key, value := range flat {
		data := []byte(value)
		if s.protect[key] {
			encrypted, err := encryptValue(data)
			if err != nil {
				return fmt.Errorf("veyon: encrypt configuration value %q: %w", key, err)
			}
			data = encrypted
		}
		kv[key] = data
	}

	if err := saveKeyValue(s.path, kv); err != nil {
		return fmt.Errorf("veyon: flush configuration: %w", err)
	}
	return nil
}

// expandPath expands ~ and environment variables in a path.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.Expand(path, os.Getenv)
}

// keyValue holds the flattened key-value pairs of a config file.
// Format:
//
//	key=T{text value}
//	key=T{
//	multi-line text
//	}
//	key=B{base64encoded}
//	key=B{
//	base64encoded
//	over multiple lines
//	}
//
// Text encoding uses T{...}, binary encoding uses B{...} with base64.
// Text is used when the value contains only printable ASCII and no braces.
// Leading/trailing newlines in text are trimmed.
type keyValue map[string][]byte

// needsBinaryEncoding returns true if the value should use base64 encoding.
func needsBinaryEncoding(data []byte) bool {
	for _, b := range data {
		// Non-printable ASCII (except newline, tab, carriage return)
		if b < 0x20 && b != '\n' && b != '\t' && b != '\r' {
			return true
		}
		// DEL or high bytes
		if b >= 0x7f {
			return true
		}
		// Brace characters that would conflict with the format
		if b == '{' || b == '}' {
			return true
		}
	}
	return false
}

func isMultiline(data []byte) bool {
	return bytes.Contains(data, []byte{'\n'})
}

func loadKeyValue(path string) (keyValue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readKeyValue(f)
}

func readKeyValue(r io.Reader) (keyValue, error) {
	kv := make(keyValue)
	scanner := bufio.NewScanner(r)

	var multiLineKey string
	var multiLineValue bytes.Buffer
	var isBinary bool

	for scanner.Scan() {
		line := scanner.Text()

		if multiLineKey != "" {
			if line == "}" {
				var value []byte
				if isBinary {
					decoded, err := base64.StdEncoding.DecodeString(multiLineValue.String())
					if err != nil {
						return nil, fmt.Errorf("decode base64 for key %q: %w", multiLineKey, err)
					}
					value = decoded
				} else {
					value = bytes.Trim(multiLineValue.Bytes(), "\n")
				}
				bb := make([]byte, len(value))
				copy(bb, value)
				kv[multiLineKey] = bb
				multiLineKey = ""
				multiLineValue.Reset()
			} else {
				if multiLineValue.Len() > 0 {
					multiLineValue.WriteByte('\n')
				}
				multiLineValue.WriteString(line)
			}
			continue
		}

		// Skip empty lines and comments.
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if len(value) == 0 {
			continue
		}

		if value == "T{" {
			multiLineKey = key
			isBinary = false
			continue
		}
		if value == "B{" {
			multiLineKey = key
			isBinary = true
			continue
		}

		if strings.HasPrefix(value, "T{") && strings.HasSuffix(value, "}") {
			kv[key] = []byte(value[2 : len(value)-1])
		} else if strings.HasPrefix(value, "B{") && strings.HasSuffix(value, "}") {
			decoded, err := base64.StdEncoding.DecodeString(value[2 : len(value)-1])
			if err != nil {
				return nil, fmt.Errorf("decode base64 for key %q: %w", key, err)
			}
			kv[key] = decoded
		}
	}

	return kv, scanner.Err()
}

func saveKeyValue(path string, kv keyValue) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := writeKeyValue(tmp, kv); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if err := tmp.Chmod(0o600); err != nil {
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

func writeKeyValue(w io.Writer, kv keyValue) error {
	keyList := make([]string, 0, len(kv))
	for key := range kv {
		keyList = append(keyList, key)
	}
	sort.Strings(keyList)

	for _, key := range keyList {
		value := kv[key]
		binary := needsBinaryEncoding(value)
		multiline := false

		if binary {
			// Binary is multiline if encoded length > 60
			encoded := base64.StdEncoding.EncodeToString(value)
			multiline = len(encoded) > 60
		} else {
			multiline = isMultiline(value)
		}

		var err error
		if binary {
			if multiline {
				err = writeBinaryMultiline(w, key, value)
			} else {
				err = writeBinarySingleLine(w, key, value)
			}
		} else {
			if multiline {
				err = writeTextMultiline(w, key, value)
			} else {
				err = writeTextSingleLine(w, key, value)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeTextSingleLine(w io.Writer, key string, value []byte) error {
	_, err := fmt.Fprintf(w, "%s=T{%s}\n\n", key, value)
	return err
}

func writeTextMultiline(w io.Writer, key string, value []byte) error {
	_, err := fmt.Fprintf(w, "%s=T{\n%s\n}\n\n", key, value)
	return err
}

func writeBinarySingleLine(w io.Writer, key string, value []byte) error {
	encoded := base64.StdEncoding.EncodeToString(value)
	_, err := fmt.Fprintf(w, "%s=B{%s}\n\n", key, encoded)
	return err
}

func writeBinaryMultiline(w io.Writer, key string, value []byte) error {
	encoded := base64.StdEncoding.EncodeToString(value)
	if _, err := fmt.Fprintf(w, "%s=B{\n", key); err != nil {
		return err
	}

	// Break into 60-character lines
	for i := 0; i < len(encoded); i += 60 {
		end := i + 60
		if end > len(encoded) {
			end = len(encoded)
		}
		if _, err := fmt.Fprintf(w, "%s\n", encoded[i:end]); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "}\n\n")
	return err
}
