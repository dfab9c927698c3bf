package vauth

import (
	"fmt"

	"github.com/HappyCodeDay/veyon/vdef"
)

// TrustImporter validates externally supplied public key files and installs
// them as the authoritative key for a role. The registry is optional; when
// present, every successful import is recorded.
type TrustImporter struct {
	store    *KeyStore
	registry *TrustRegistry
}

// NewTrustImporter creates an importer over a key store. registry may be nil.
func NewTrustImporter(store *KeyStore, registry *TrustRegistry) *TrustImporter {
	return &TrustImporter{store: store, registry: registry}
}

// ImportPublicKey validates the source file as a DSA public key and installs
// it for the role, atomically replacing any previously trusted key.
// Validation strictly precedes any filesystem change: an invalid source
// leaves the existing key untouched. The replacement is irreversible through
// this API; callers needing rollback must snapshot the old key first.
func (t *TrustImporter) ImportPublicKey(role vdef.Role, sourcePath string, scope vdef.Scope) error {
	pub, err := vdef.LoadPublicKey(sourcePath)
	if err != nil {
		return fmt.Errorf("veyon: import for role %s: %w", role, err)
	}

	// Canonical wire encoding, not the source file bytes, so that the
	// installed key is byte-stable regardless of source formatting.
	wire, err := pub.Marshal()
	if err != nil {
		return fmt.Errorf("veyon: import for role %s: %w", role, err)
	}

	var replaced vdef.Fingerprint
	if prev, err := vdef.LoadPublicKey(t.store.ResolvePath(role, vdef.KeyPublic, scope)); err == nil {
		replaced = prev.Fingerprint()
	}

	if err := t.store.Install(vdef.KeyPublic, role, scope, wire); err != nil {
		return err
	}

	if t.registry != nil {
		if err := t.registry.RecordInstall(role, scope, pub.Fingerprint(), SourceImported, replaced); err != nil {
			return fmt.Errorf("veyon: record import for role %s: %w", role, err)
		}
	}
	return nil
}
