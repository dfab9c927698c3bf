package vauth

import (
	"github.com/HappyCodeDay/veyon/vdef"
)

// RoleAuthority answers whether roles have usable key material. It is a
// pure read-side aggregator over the KeyStore and never mutates anything.
type RoleAuthority struct {
	store *KeyStore
}

// NewRoleAuthority creates a read-side view over a key store.
func NewRoleAuthority(store *KeyStore) *RoleAuthority {
	return &RoleAuthority{store: store}
}

// HasUsableKey reports whether the role has a valid public key installed.
// Missing, truncated or corrupt key files read as false, never a panic.
func (a *RoleAuthority) HasUsableKey(role vdef.Role, scope vdef.Scope) bool {
	pub, err := a.CurrentPublicKey(role, scope)
	return err == nil && pub.Valid()
}

// CurrentPublicKey loads the role's installed public key. Returns an error
// wrapping vdef.ErrKeyNotFound if no key is installed, or
// vdef.ErrInvalidKeyFile if the installed file does not parse.
func (a *RoleAuthority) CurrentPublicKey(role vdef.Role, scope vdef.Scope) (*vdef.PublicKey, error) {
	return vdef.LoadPublicKey(a.store.ResolvePath(role, vdef.KeyPublic, scope))
}

// HasPrivateKey reports whether the role has a valid private key installed.
func (a *RoleAuthority) HasPrivateKey(role vdef.Role, scope vdef.Scope) bool {
	priv, err := vdef.LoadPrivateKey(a.store.ResolvePath(role, vdef.KeyPrivate, scope))
	return err == nil && priv.Valid()
}
