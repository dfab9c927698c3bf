package veyon

import (
	"strconv"

	"github.com/HappyCodeDay/veyon/vstore"
)

// Well-known configuration keys.
const (
	sectionService = "Service"
	sectionAuth    = "Authentication"

	keyAutostart         = "Autostart"
	keyArguments         = "Arguments"
	keyFirewallException = "FirewallException"
	keyEncodedLogonACL   = "EncodedLogonACL"
	keyLogonACL          = "LogonACL"
)

// LogonACLConfigKey is the flattened key of the encoded logon ACL; its
// value is encrypted at rest by the local store.
const LogonACLConfigKey = sectionAuth + "/" + keyEncodedLogonACL

// Config is the hierarchical application configuration: a tagged tree of
// scalar values and nested sections.
type Config struct {
	tree vstore.Section
}

// NewConfig creates an empty configuration.
func NewConfig() *Config {
	return &Config{tree: make(vstore.Section)}
}

// ConfigFromTree wraps an existing tree. The tree is not copied.
func ConfigFromTree(tree vstore.Section) *Config {
	if tree == nil {
		tree = make(vstore.Section)
	}
	return &Config{tree: tree}
}

// Tree returns the underlying configuration tree.
func (c *Config) Tree() vstore.Section {
	return c.tree
}

// Merge merges other into c; values from other win.
func (c *Config) Merge(other *Config) {
	if other != nil {
		c.tree.Merge(other.tree)
	}
}

// Value returns the scalar under parent/key.
func (c *Config) Value(parent, key string) (string, bool) {
	return c.tree.Value(parent, key)
}

// SetValue stores a scalar under parent/key.
func (c *Config) SetValue(parent, key, value string) {
	c.tree.SetValue(parent, key, value)
}

// RemoveValue deletes the entry under parent/key.
func (c *Config) RemoveValue(parent, key string) {
	c.tree.RemoveValue(parent, key)
}

// List returns all entries as sorted flattened key/value pairs.
func (c *Config) List() []vstore.KeyValue {
	return c.tree.List()
}

func (c *Config) boolValue(parent, key string) bool {
	v, ok := c.tree.Value(parent, key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// AutostartService reports whether the service starts at boot.
func (c *Config) AutostartService() bool {
	return c.boolValue(sectionService, keyAutostart)
}

// SetAutostartService sets the autostart flag.
func (c *Config) SetAutostartService(enable bool) {
	c.tree.SetValue(sectionService, keyAutostart, strconv.FormatBool(enable))
}

// ServiceArguments returns the arguments the service is started with.
func (c *Config) ServiceArguments() string {
	v, _ := c.tree.Value(sectionService, keyArguments)
	return v
}

// SetServiceArguments sets the service arguments.
func (c *Config) SetServiceArguments(args string) {
	c.tree.SetValue(sectionService, keyArguments, args)
}

// FirewallExceptionEnabled reports whether the service firewall exception
// is enabled.
func (c *Config) FirewallExceptionEnabled() bool {
	return c.boolValue(sectionService, keyFirewallException)
}

// SetFirewallExceptionEnabled sets the firewall exception flag.
func (c *Config) SetFirewallExceptionEnabled(enable bool) {
	c.tree.SetValue(sectionService, keyFirewallException, strconv.FormatBool(enable))
}

// EncodedLogonACL returns the encoded logon access control list.
func (c *Config) EncodedLogonACL() string {
	v, _ := c.tree.Value(sectionAuth, keyEncodedLogonACL)
	return v
}

// SetEncodedLogonACL sets the encoded logon access control list.
func (c *Config) SetEncodedLogonACL(acl string) {
	c.tree.SetValue(sectionAuth, keyEncodedLogonACL, acl)
}
