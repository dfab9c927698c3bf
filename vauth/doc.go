// Package vauth implements the role-key authentication core: per-role,
// per-scope key storage, key pair generation, public key trust import, and
// credential verification.
//
// # Key Storage
//
// Keys are stored on the filesystem under a scope-determined base directory
// (/etc/veyon/keys on Unix systems, %PROGRAMDATA%\Veyon\keys on Windows, or
// an explicit destination directory override for packaging). Each role owns
// exactly one private-key path and one public-key path:
//
//	<base>/private/<role>/key
//	<base>/public/<role>/key
//
// Private key files are written with mode 0640 (owner read/write, group
// read, no world access). Key replacement is atomic: material is written to
// a temporary file in the destination directory and renamed over the target.
//
// # Trust Registry
//
// The TrustRegistry keeps a bbolt-backed audit trail of key installations
// per (role, scope) and the client fingerprints authorized for each role.
// The registry is advisory; the authoritative trust anchor is always the
// key file at its resolved path.
//
// # Security Considerations
//
// Private keys are stored unencrypted; restricting access relies on file
// permissions. Consider group ownership so that only members of a dedicated
// group can read a role's private key.
package vauth
