package vstore

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	s := NewLocalStoreWithPath(filepath.Join(t.TempDir(), "veyon.conf"))
	tree, err := s.Load()
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if len(tree) != 0 {
		t.Fatalf("missing file yielded non-empty tree: %v", tree)
	}
}

func TestFlushLoadRoundTrip(t *testing.T) {
	s := NewLocalStoreWithPath(filepath.Join(t.TempDir(), "veyon.conf"))

	tree := make(Section)
	tree.SetValue("Service", "Autostart", "true")
	tree.SetValue("Service", "Arguments", "-v -log")
	tree.SetValue("Network", "Port", "11100")
	tree.SetValue("Notes", "Text", "line one\nline two")

	if err := s.Flush(tree); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(loaded.List(), tree.List()) {
		t.Fatalf("round trip mismatch:\n got %v\nwant %v", loaded.List(), tree.List())
	}
}

func TestFlushReplacesStoredState(t *testing.T) {
	s := NewLocalStoreWithPath(filepath.Join(t.TempDir(), "veyon.conf"))

	first := make(Section)
	first.SetValue("Service", "Autostart", "true")
	first.SetValue("Obsolete", "Key", "x")
	if err := s.Flush(first); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	second := make(Section)
	second.SetValue("Service", "Autostart", "false")
	if err := s.Flush(second); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := loaded.Value("Obsolete", "Key"); ok {
		t.Fatal("stale entry survived Flush")
	}
}

func TestProtectedValueEncryptedAtRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veyon.conf")
	s := NewLocalStoreWithPath(path)
	s.Protect("Authentication/EncodedLogonACL")

	const secret = "acl payload that must not appear in the file"
	tree := make(Section)
	tree.SetValue("Authentication", "EncodedLogonACL", secret)
	tree.SetValue("Service", "Autostart", "true")

	if err := s.Flush(tree); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, []byte(secret)) {
		t.Fatal("protected value stored in plaintext")
	}
	if !bytes.Contains(raw, []byte("Service/Autostart=T{true}")) {
		t.Fatalf("unprotected value not stored in plaintext:\n%s", raw)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v, _ := loaded.Value("Authentication", "EncodedLogonACL"); v != secret {
		t.Fatalf("protected value after round trip = %q, want %q", v, secret)
	}
}

func TestReadKeyValueFormats(t *testing.T) {
	input := strings.Join([]string{
		"# comment line",
		"",
		"Simple/Key=T{value}",
		"Multi/Key=T{",
		"first",
		"second",
		"}",
		"Binary/Key=B{aGVsbG8=}",
		"no equals sign here",
		"Empty/Key=",
	}, "\n")

	kv, err := readKeyValue(strings.NewReader(input))
	if err != nil {
		t.Fatalf("readKeyValue: %v", err)
	}
	if got := string(kv["Simple/Key"]); got != "value" {
		t.Fatalf("Simple/Key = %q", got)
	}
	if got := string(kv["Multi/Key"]); got != "first\nsecond" {
		t.Fatalf("Multi/Key = %q", got)
	}
	if got := string(kv["Binary/Key"]); got != "hello" {
		t.Fatalf("Binary/Key = %q", got)
	}
	if _, ok := kv["Empty/Key"]; ok {
		t.Fatal("empty value produced an entry")
	}
	if len(kv) != 3 {
		t.Fatalf("entry count = %d, want 3", len(kv))
	}
}

func TestWriteKeyValueEncodingSelection(t *testing.T) {
	kv := keyValue{
		"Plain":  []byte("text"),
		"Braces": []byte("a{b}c"),
		"Bytes":  []byte{0x00, 0x01, 0xff},
	}

	var buf bytes.Buffer
	if err := writeKeyValue(&buf, kv); err != nil {
		t.Fatalf("writeKeyValue: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "Plain=T{text}") {
		t.Fatalf("plain text not T-encoded:\n%s", out)
	}
	if !strings.Contains(out, "Braces=B{") {
		t.Fatalf("brace value not B-encoded:\n%s", out)
	}
	if !strings.Contains(out, "Bytes=B{") {
		t.Fatalf("binary value not B-encoded:\n%s", out)
	}

	back, err := readKeyValue(&buf)
	if err != nil {
		t.Fatalf("readKeyValue: %v", err)
	}
	for key, want := range kv {
		if !bytes.Equal(back[key], want) {
			t.Fatalf("%s round trip = %q, want %q", key, back[key], want)
		}
	}
}

func TestWriteBinaryMultiline(t *testing.T) {
	long := bytes.Repeat([]byte{0xab}, 100)
	kv := keyValue{"Long": long}

	var buf bytes.Buffer
	if err := writeKeyValue(&buf, kv); err != nil {
		t.Fatalf("writeKeyValue: %v", err)
	}
	if !strings.Contains(buf.String(), "Long=B{\n") {
		t.Fatalf("long binary value not written multiline:\n%s", buf.String())
	}

	back, err := readKeyValue(&buf)
	if err != nil {
		t.Fatalf("readKeyValue: %v", err)
	}
	if !bytes.Equal(back["Long"], long) {
		t.Fatal("multiline binary round trip mismatch")
	}
}

func TestEncryptDecryptValue(t *testing.T) {
	plain := []byte("secret configuration value")

	first, err := encryptValue(plain)
	if err != nil {
		t.Fatalf("encryptValue: %v", err)
	}
	second, err := encryptValue(plain)
	if err != nil {
		t.Fatalf("encryptValue: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Fatal("encryption is deterministic across calls")
	}

	out, err := decryptValue(first)
	if err != nil {
		t.Fatalf("decryptValue: %v", err)
	}
	if !bytes.Equal(out, plain) {
		t.Fatalf("decrypted value = %q, want %q", out, plain)
	}

	if _, err := decryptValue([]byte("short")); err == nil {
		t.Fatal("truncated ciphertext decrypted")
	}
	first[len(first)-1] ^= 0xff
	if _, err := decryptValue(first); err == nil {
		t.Fatal("tampered ciphertext decrypted")
	}
}
