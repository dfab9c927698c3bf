package veyon

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HappyCodeDay/veyon/vauth"
	"github.com/HappyCodeDay/veyon/vdef"
)

type fakeController struct {
	autostart []bool
	arguments []string
	firewall  []bool
	failAll   bool
}

func (f *fakeController) SetServiceAutostart(enable bool) error {
	f.autostart = append(f.autostart, enable)
	if f.failAll {
		return fmt.Errorf("autostart failed")
	}
	return nil
}

func (f *fakeController) SetServiceArguments(args string) error {
	f.arguments = append(f.arguments, args)
	if f.failAll {
		return fmt.Errorf("arguments failed")
	}
	return nil
}

func (f *fakeController) EnableFirewallException(enable bool) error {
	f.firewall = append(f.firewall, enable)
	if f.failAll {
		return fmt.Errorf("firewall failed")
	}
	return nil
}

type recordingSink struct {
	information []string
	critical    []string
}

func (s *recordingSink) Information(title, text string) {
	s.information = append(s.information, text)
}

func (s *recordingSink) Critical(title, text string) {
	s.critical = append(s.critical, text)
}

type fixture struct {
	c      *Configurator
	system *fakeController
	sink   *recordingSink
	opts   Options
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()
	dir := t.TempDir()
	system := &fakeController{}
	sink := &recordingSink{}
	opts := Options{
		KeyBaseDir:   filepath.Join(dir, "keys"),
		ConfigPath:   filepath.Join(dir, "veyon.conf"),
		RegistryPath: filepath.Join(dir, "trust.db"),
		Sink:         sink,
		Logger:       log.New(io.Discard, "", 0),
		System:       system,
	}
	if mutate != nil {
		mutate(&opts)
	}

	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return &fixture{c: c, system: system, sink: sink, opts: opts}
}

func TestApplyConfiguration(t *testing.T) {
	f := newFixture(t, nil)

	delta := NewConfig()
	delta.SetAutostartService(true)
	delta.SetServiceArguments("-v")
	delta.SetFirewallExceptionEnabled(true)
	delta.SetValue(sectionAuth, keyLogonACL, "legacy plain acl")
	delta.SetEncodedLogonACL("encoded acl")

	if err := f.c.ApplyConfiguration(delta); err != nil {
		t.Fatalf("ApplyConfiguration: %v", err)
	}

	if len(f.system.autostart) != 1 || !f.system.autostart[0] {
		t.Fatalf("autostart calls = %v", f.system.autostart)
	}
	if len(f.system.arguments) != 1 || f.system.arguments[0] != "-v" {
		t.Fatalf("argument calls = %v", f.system.arguments)
	}
	if len(f.system.firewall) != 1 || !f.system.firewall[0] {
		t.Fatalf("firewall calls = %v", f.system.firewall)
	}
	if len(f.sink.critical) != 0 {
		t.Fatalf("unexpected critical messages: %v", f.sink.critical)
	}

	// The legacy plain-text ACL is dropped; the encoded form is kept.
	if _, ok := f.c.Config().Value(sectionAuth, keyLogonACL); ok {
		t.Fatal("plain logon ACL persisted")
	}
	if got := f.c.Config().EncodedLogonACL(); got != "encoded acl" {
		t.Fatalf("encoded ACL = %q", got)
	}

	// A fresh configurator over the same configuration file sees the
	// applied state. The registry database is still locked by f.c, so the
	// reopened instance gets its own.
	ropts := f.opts
	ropts.RegistryPath = filepath.Join(t.TempDir(), "trust.db")
	reopened, err := New(ropts)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if !reopened.Config().AutostartService() {
		t.Fatal("applied configuration not persisted")
	}
	if got := reopened.Config().EncodedLogonACL(); got != "encoded acl" {
		t.Fatalf("persisted encoded ACL = %q", got)
	}
}

func TestApplyContinuesOnServiceFailures(t *testing.T) {
	f := newFixture(t, nil)
	f.system.failAll = true

	delta := NewConfig()
	delta.SetAutostartService(true)

	// Service-level failures are reported but do not abort the apply.
	if err := f.c.ApplyConfiguration(delta); err != nil {
		t.Fatalf("ApplyConfiguration: %v", err)
	}
	if len(f.sink.critical) != 3 {
		t.Fatalf("critical messages = %v, want 3", f.sink.critical)
	}
	if len(f.system.firewall) != 1 {
		t.Fatal("later service settings skipped after earlier failure")
	}

	ropts := f.opts
	ropts.RegistryPath = filepath.Join(t.TempDir(), "trust.db")
	reopened, err := New(ropts)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if !reopened.Config().AutostartService() {
		t.Fatal("configuration not flushed despite service failures")
	}
}

func TestApplyAbortsOnFlushFailure(t *testing.T) {
	f := newFixture(t, nil)

	// Replace the configuration file with a directory so the atomic
	// rename in the store cannot succeed.
	os.Remove(f.opts.ConfigPath)
	if err := os.Mkdir(f.opts.ConfigPath, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := f.c.ApplyConfiguration(NewConfig()); err == nil {
		t.Fatal("ApplyConfiguration succeeded despite flush failure")
	}
	found := false
	for _, msg := range f.sink.critical {
		if strings.Contains(msg, "configuration") {
			found = true
		}
	}
	if !found {
		t.Fatalf("flush failure not reported: %v", f.sink.critical)
	}
}

func TestSilentModeSuppressesSink(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Silent = true })
	f.system.failAll = true

	if err := f.c.ApplyConfiguration(NewConfig()); err != nil {
		t.Fatalf("ApplyConfiguration: %v", err)
	}
	if len(f.sink.critical) != 0 {
		t.Fatalf("silent mode reached the sink: %v", f.sink.critical)
	}
}

func TestListConfiguration(t *testing.T) {
	f := newFixture(t, nil)
	f.c.Config().SetAutostartService(true)
	f.c.Config().SetServiceArguments("-v")

	var buf bytes.Buffer
	if err := f.c.ListConfiguration(&buf); err != nil {
		t.Fatalf("ListConfiguration: %v", err)
	}
	want := "Service/Arguments=-v\nService/Autostart=true\n"
	if buf.String() != want {
		t.Fatalf("ListConfiguration output:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestKeyLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	role := vdef.RoleTeacher

	if f.c.HasUsableKey(role) {
		t.Fatal("usable key before creation")
	}
	if result := f.c.Verify(role, vauth.Credential{Message: []byte("x"), Signature: []byte("y")}); result.Accepted || result.Reason != vauth.ReasonNoKeyConfigured {
		t.Fatalf("verify before creation = %+v", result)
	}

	if err := f.c.CreateKeyPair(role, 0); err != nil {
		t.Fatalf("CreateKeyPair: %v", err)
	}
	if !f.c.HasUsableKey(role) {
		t.Fatal("no usable key after creation")
	}
	if len(f.sink.information) != 1 {
		t.Fatalf("information messages = %v, want 1", f.sink.information)
	}

	rec, err := f.c.Registry().Current(role, f.opts.Scope)
	if err != nil {
		t.Fatalf("registry Current: %v", err)
	}
	if rec == nil || rec.Source != vauth.SourceGenerated {
		t.Fatalf("registry record = %+v, want generated source", rec)
	}

	// Round trip a credential through the stored key pair.
	priv, err := vdef.LoadPrivateKey(f.c.keys.ResolvePath(role, vdef.KeyPrivate, f.opts.Scope))
	if err != nil {
		t.Fatalf("LoadPrivateKey: %v", err)
	}
	message := []byte("session challenge")
	sig, err := priv.Sign(message)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if result := f.c.Verify(role, vauth.Credential{Message: message, Signature: sig}); !result.Accepted {
		t.Fatalf("valid credential rejected: %v", result.Reason)
	}
	if result := f.c.Verify(role, vauth.Credential{Message: []byte("other"), Signature: sig}); result.Accepted || result.Reason != vauth.ReasonSignatureInvalid {
		t.Fatalf("forged credential result = %+v", result)
	}

	if err := f.c.DeleteKey(role); err != nil {
		t.Fatalf("DeleteKey: %v", err)
	}
	if f.c.HasUsableKey(role) {
		t.Fatal("usable key after deletion")
	}
	if result := f.c.Verify(role, vauth.Credential{Message: message, Signature: sig}); result.Accepted || result.Reason != vauth.ReasonNoKeyConfigured {
		t.Fatalf("verify after deletion = %+v", result)
	}
}

func TestCreateKeyPairUnsupportedStrength(t *testing.T) {
	f := newFixture(t, nil)

	err := f.c.CreateKeyPair(vdef.RoleAdmin, 999)
	if !errors.Is(err, vdef.ErrKeyGenerationFailed) {
		t.Fatalf("CreateKeyPair(999): got %v, want ErrKeyGenerationFailed", err)
	}
	if len(f.sink.critical) != 1 {
		t.Fatalf("critical messages = %v, want 1", f.sink.critical)
	}
	if f.c.HasUsableKey(vdef.RoleAdmin) {
		t.Fatal("usable key after failed generation")
	}
}

func TestImportPublicKey(t *testing.T) {
	f := newFixture(t, nil)
	role := vdef.RoleSupporter

	pair, err := vdef.GenerateKeyPair(vdef.DefaultKeyBits)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	wire, err := pair.Public.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	source := filepath.Join(t.TempDir(), "supporter.pub")
	if err := os.WriteFile(source, wire, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := f.c.ImportPublicKey(role, source); err != nil {
		t.Fatalf("ImportPublicKey: %v", err)
	}
	pub, err := f.c.CurrentPublicKey(role)
	if err != nil {
		t.Fatalf("CurrentPublicKey: %v", err)
	}
	if !pub.Equal(pair.Public) {
		t.Fatal("imported key differs from source")
	}

	rec, err := f.c.Registry().Current(role, f.opts.Scope)
	if err != nil {
		t.Fatalf("registry Current: %v", err)
	}
	if rec == nil || rec.Source != vauth.SourceImported {
		t.Fatalf("registry record = %+v, want imported source", rec)
	}

	// An invalid source aborts with the installed key untouched.
	bad := filepath.Join(t.TempDir(), "bad.pub")
	if err := os.WriteFile(bad, []byte("nonsense"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := f.c.ImportPublicKey(role, bad); !errors.Is(err, vdef.ErrInvalidKeyFile) {
		t.Fatalf("import of invalid source: got %v, want ErrInvalidKeyFile", err)
	}
	if len(f.sink.critical) != 1 {
		t.Fatalf("critical messages = %v, want 1", f.sink.critical)
	}
	pub, err = f.c.CurrentPublicKey(role)
	if err != nil {
		t.Fatalf("CurrentPublicKey after failed import: %v", err)
	}
	if !pub.Equal(pair.Public) {
		t.Fatal("failed import changed the installed key")
	}
}
