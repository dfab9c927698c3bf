package vstore

import (
	"sort"
	"strings"
)

// Entry is one node of the configuration tree: either a Scalar leaf value
// or a nested Section. The tagged split keeps hierarchical listing and merge
// semantics without runtime type inspection of arbitrary values.
type Entry interface {
	isEntry()
}

// Scalar is a leaf string value.
type Scalar string

func (Scalar) isEntry() {}

// Section is a mapping of keys to scalar values or nested sections.
type Section map[string]Entry

func (Section) isEntry() {}

// KeyValue is one flattened configuration entry. Key components are joined
// with "/".
type KeyValue struct {
	Key   string
	Value string
}

// Value returns the scalar stored under key within the section addressed by
// parentKey ("" for the root, components joined with "/").
func (s Section) Value(parentKey, key string) (string, bool) {
	sec := s.section(parentKey, false)
	if sec == nil {
		return "", false
	}
	v, ok := sec[key].(Scalar)
	if !ok {
		return "", false
	}
	return string(v), true
}

// SetValue stores a scalar under key within the section addressed by
// parentKey, creating intermediate sections as needed. A scalar in the path
// is replaced by a section.
func (s Section) SetValue(parentKey, key, value string) {
	s.section(parentKey, true)[key] = Scalar(value)
}

// RemoveValue deletes the entry under key within the section addressed by
// parentKey. Removing a missing entry is a no-op.
func (s Section) RemoveValue(parentKey, key string) {
	if sec := s.section(parentKey, false); sec != nil {
		delete(sec, key)
	}
}

// section navigates to the section addressed by parentKey. With create set,
// missing or scalar path components are replaced by fresh sections;
// otherwise nil is returned when the path does not resolve.
func (s Section) section(parentKey string, create bool) Section {
	cur := s
	if parentKey == "" {
		return cur
	}
	for _, part := range strings.Split(parentKey, "/") {
		next, ok := cur[part].(Section)
		if !ok {
			if !create {
				return nil
			}
			next = make(Section)
			cur[part] = next
		}
		cur = next
	}
	return cur
}

// Merge recursively merges other into s. Scalars from other win; sections
// merge into sections; a scalar and a section at the same key are resolved
// in favor of other.
func (s Section) Merge(other Section) {
	for key, entry := range other {
		switch v := entry.(type) {
		case Scalar:
			s[key] = v
		case Section:
			existing, ok := s[key].(Section)
			if !ok {
				existing = make(Section)
				s[key] = existing
			}
			existing.Merge(v)
		}
	}
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	out := make(Section, len(s))
	for key, entry := range s {
		switch v := entry.(type) {
		case Scalar:
			out[key] = v
		case Section:
			out[key] = v.Clone()
		}
	}
	return out
}

// List returns all scalar entries as flattened key/value pairs, sorted by key.
func (s Section) List() []KeyValue {
	flat := s.flatten()
	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]KeyValue, 0, len(keys))
	for _, key := range keys {
		out = append(out, KeyValue{Key: key, Value: flat[key]})
	}
	return out
}

// flatten converts the tree into a flat map of "a/b/c" keys.
func (s Section) flatten() map[string]string {
	flat := make(map[string]string)
	s.flattenInto(flat, "")
	return flat
}

func (s Section) flattenInto(flat map[string]string, prefix string) {
	for key, entry := range s {
		full := key
		if prefix != "" {
			full = prefix + "/" + key
		}
		switch v := entry.(type) {
		case Scalar:
			flat[full] = string(v)
		case Section:
			v.flattenInto(flat, full)
		}
	}
}

// sectionFromFlat rebuilds a tree from flattened "a/b/c" keys.
func sectionFromFlat(flat map[string]string) Section {
	root := make(Section)
	for key, value := range flat {
		parent := ""
		leaf := key
		if i := strings.LastIndex(key, "/"); i >= 0 {
			parent, leaf = key[:i], key[i+1:]
		}
		root.SetValue(parent, leaf, value)
	}
	return root
}
