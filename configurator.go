package veyon

import (
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/HappyCodeDay/veyon/vauth"
	"github.com/HappyCodeDay/veyon/vdef"
	"github.com/HappyCodeDay/veyon/vreport"
	"github.com/HappyCodeDay/veyon/vstore"
	"github.com/HappyCodeDay/veyon/vsystem"
)

const applicationName = "Veyon"

// Options configures a Configurator. The zero value targets the
// system-wide installation with interactive reporting disabled only by a
// nil Sink.
type Options struct {
	// Silent suppresses interactive prompts; failures are logged only.
	Silent bool

	// Scope selects the system-wide installation or a destination
	// directory override.
	Scope vdef.Scope

	// KeyBaseDir overrides the system key directory. Used by tests.
	KeyBaseDir string

	// ConfigPath overrides the configuration file path. Used by tests.
	ConfigPath string

	// RegistryPath overrides the trust registry database path.
	RegistryPath string

	// Sink receives user-visible messages when not silent.
	Sink vreport.Sink

	// Logger receives every reported message. Defaults to the standard logger.
	Logger *log.Logger

	// System overrides the platform service controller. Used by tests.
	System vsystem.Controller
}

// Configurator is the configuration-apply core: it merges configuration
// changes, applies system-level service settings, and manages the
// role-based DSA keys used to authenticate remote-control sessions.
type Configurator struct {
	scope    vdef.Scope
	store    *vstore.LocalStore
	keys     *vauth.KeyStore
	auth     *vauth.RoleAuthority
	verifier *vauth.Authenticator
	importer *vauth.TrustImporter
	registry *vauth.TrustRegistry
	system   vsystem.Controller
	reporter *vreport.Reporter
	logger   *log.Logger
	current  *Config
}

// New creates a configurator and loads the current configuration for the
// requested scope.
func New(opts Options) (*Configurator, error) {
	var keys *vauth.KeyStore
	if opts.KeyBaseDir != "" {
		keys = vauth.NewKeyStoreWithBase(opts.KeyBaseDir)
	} else {
		keys = vauth.NewKeyStore()
	}

	registryPath := opts.RegistryPath
	if !opts.Scope.IsSystem() && registryPath == "" {
		registryPath = filepath.Join(opts.Scope.DestDir(), "trust.db")
	}
	registry, err := vauth.OpenTrustRegistry(registryPath)
	if err != nil {
		return nil, err
	}

	var store *vstore.LocalStore
	if opts.ConfigPath != "" {
		store = vstore.NewLocalStoreWithPath(opts.ConfigPath)
	} else {
		store = vstore.NewLocalStore(opts.Scope)
	}
	store.Protect(LogonACLConfigKey)

	tree, err := store.Load()
	if err != nil {
		registry.Close()
		return nil, err
	}

	system := opts.System
	if system == nil {
		system = vsystem.New()
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	auth := vauth.NewRoleAuthority(keys)
	c := &Configurator{
		scope:    opts.Scope,
		store:    store,
		keys:     keys,
		auth:     auth,
		verifier: vauth.NewAuthenticator(auth),
		importer: vauth.NewTrustImporter(keys, registry),
		registry: registry,
		system:   system,
		reporter: vreport.New(vreport.Options{
			Silent: opts.Silent,
			Sink:   opts.Sink,
			Logger: opts.Logger,
		}),
		logger:  logger,
		current: ConfigFromTree(tree),
	}
	return c, nil
}

// Close releases the trust registry.
func (c *Configurator) Close() error {
	return c.registry.Close()
}

// Config returns the current (merged) configuration.
func (c *Configurator) Config() *Config {
	return c.current
}

// Registry exposes the trust registry for fleet management frontends.
func (c *Configurator) Registry() *vauth.TrustRegistry {
	return c.registry
}

func (c *Configurator) applyError(msg string) {
	c.reporter.Critical(applicationName+" Configurator", msg)
}

// ApplyConfiguration merges the given configuration into the current one,
// applies the resulting system-level service settings and flushes the
// merged configuration to the local store.
//
// Service autostart, argument and firewall failures are reported once and
// skipped; they do not abort the apply. A flush failure aborts.
func (c *Configurator) ApplyConfiguration(delta *Config) error {
	c.current.Merge(delta)

	if err := c.system.SetServiceAutostart(c.current.AutostartService()); err != nil {
		c.applyError(fmt.Sprintf("Could not modify the autostart property for the %s Service.", applicationName))
	}
	if err := c.system.SetServiceArguments(c.current.ServiceArguments()); err != nil {
		c.applyError(fmt.Sprintf("Could not modify the service arguments for the %s Service.", applicationName))
	}
	if err := c.system.EnableFirewallException(c.current.FirewallExceptionEnabled()); err != nil {
		c.applyError(fmt.Sprintf("Could not change the firewall configuration for the %s Service.", applicationName))
	}

	// The plain-text ACL is legacy; only the encoded value is persisted,
	// encrypted by the store.
	c.current.RemoveValue(sectionAuth, keyLogonACL)

	if err := c.store.Flush(c.current.Tree()); err != nil {
		c.applyError(fmt.Sprintf("Could not write the %s configuration.", applicationName))
		return err
	}
	return nil
}

// ListConfiguration writes all configuration entries as key=value lines.
func (c *Configurator) ListConfiguration(w io.Writer) error {
	for _, kv := range c.current.List() {
		if _, err := fmt.Fprintf(w, "%s=%s\n", kv.Key, kv.Value); err != nil {
			return err
		}
	}
	return nil
}

// CreateKeyPair generates and installs a fresh DSA key pair for the role.
// A generation or save failure is reported and aborts the operation, since
// the security of role authentication depends on it.
func (c *Configurator) CreateKeyPair(role vdef.Role, bits int) error {
	priv := c.keys.ResolvePath(role, vdef.KeyPrivate, c.scope)
	pub := c.keys.ResolvePath(role, vdef.KeyPublic, c.scope)
	c.logger.Printf("creating new key pair in %s and %s", priv, pub)

	var replaced vdef.Fingerprint
	if prevKey, err := c.auth.CurrentPublicKey(role, c.scope); err == nil {
		replaced = prevKey.Fingerprint()
	}

	pair, err := c.keys.CreateKeyPair(role, c.scope, bits)
	if err != nil {
		c.applyError(fmt.Sprintf("Could not create a key pair for role %s.", role))
		return err
	}

	if err := c.registry.RecordInstall(role, c.scope, pair.Public.Fingerprint(), vauth.SourceGenerated, replaced); err != nil {
		return err
	}

	c.reporter.Information(applicationName+" Configurator",
		fmt.Sprintf("Saved key pair for role %s in %s and %s. The private key file is readable by its owner and group only.", role, priv, pub))
	return nil
}

// ImportPublicKey validates an externally supplied public key file and
// installs it as the authoritative key for the role. An invalid source is
// reported and aborts the operation with the existing key untouched.
func (c *Configurator) ImportPublicKey(role vdef.Role, sourcePath string) error {
	if err := c.importer.ImportPublicKey(role, sourcePath, c.scope); err != nil {
		c.applyError(fmt.Sprintf("File %s is not a valid public key file or could not be installed for role %s.", sourcePath, role))
		return err
	}
	c.reporter.Information(applicationName+" Configurator",
		fmt.Sprintf("Imported public key for role %s.", role))
	return nil
}

// DeleteKey removes both halves of a role's key pair. The role reverts to
// having no usable key until a new pair is generated or imported.
func (c *Configurator) DeleteKey(role vdef.Role) error {
	if err := c.keys.Remove(vdef.KeyPrivate, role, c.scope); err != nil {
		return err
	}
	return c.keys.Remove(vdef.KeyPublic, role, c.scope)
}

// HasUsableKey reports whether the role has a valid public key installed.
func (c *Configurator) HasUsableKey(role vdef.Role) bool {
	return c.auth.HasUsableKey(role, c.scope)
}

// CurrentPublicKey returns the role's installed public key.
func (c *Configurator) CurrentPublicKey(role vdef.Role) (*vdef.PublicKey, error) {
	return c.auth.CurrentPublicKey(role, c.scope)
}

// Verify checks a peer-presented credential against the role's current
// public key. Consumed by the session-establishment layer.
func (c *Configurator) Verify(role vdef.Role, cred vauth.Credential) vauth.Result {
	return c.verifier.Verify(role, c.scope, cred)
}
