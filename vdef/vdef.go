package vdef

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

var (
	// ErrKeyGenerationFailed is returned when the DSA generation primitive fails.
	ErrKeyGenerationFailed = fmt.Errorf("veyon: key generation failed")

	// ErrInvalidKeyFile is returned when key material cannot be parsed or fails
	// structural validation.
	ErrInvalidKeyFile = fmt.Errorf("veyon: invalid key file")

	// ErrKeyNotFound is returned when no key file exists at the resolved location.
	ErrKeyNotFound = fmt.Errorf("veyon: key not found")

	// ErrNoKeyConfigured is returned when a role has no usable public key.
	ErrNoKeyConfigured = fmt.Errorf("veyon: no key configured for role")

	// ErrUnknownRole is returned when a role name cannot be resolved.
	ErrUnknownRole = fmt.Errorf("veyon: unknown role")
)

// KeyStrengthError is returned when an unsupported bit strength is requested.
type KeyStrengthError struct {
	Bits int
}

func (e KeyStrengthError) Error() string {
	return fmt.Sprintf("%s: unsupported key strength %d bits", ErrKeyGenerationFailed, e.Bits)
}

func (e KeyStrengthError) Unwrap() error {
	return ErrKeyGenerationFailed
}

// Role is an authorization tier determining remote-control privilege level.
type Role int

const (
	RoleNone Role = iota
	RoleTeacher
	RoleAdmin
	RoleSupporter
	RoleOther
)

// AllRoles lists every role that may own key material.
func AllRoles() []Role {
	return []Role{RoleTeacher, RoleAdmin, RoleSupporter, RoleOther}
}

func (r Role) String() string {
	switch r {
	case RoleTeacher:
		return "teacher"
	case RoleAdmin:
		return "admin"
	case RoleSupporter:
		return "supporter"
	case RoleOther:
		return "other"
	default:
		return "none"
	}
}

// Valid reports whether the role may own key material.
func (r Role) Valid() bool {
	return r > RoleNone && r <= RoleOther
}

// ParseRole resolves a role name as used in key paths and CLI arguments.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "teacher":
		return RoleTeacher, nil
	case "admin":
		return RoleAdmin, nil
	case "supporter":
		return RoleSupporter, nil
	case "other":
		return RoleOther, nil
	}
	return RoleNone, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// KeyKind distinguishes the two halves of a key pair.
type KeyKind int

const (
	KeyPrivate KeyKind = iota
	KeyPublic
)

func (k KeyKind) String() string {
	if k == KeyPrivate {
		return "private"
	}
	return "public"
}

// Scope selects where key material and configuration live: the system-wide
// installation, or an explicit destination directory override used for
// packaging and provisioning images.
type Scope struct {
	destDir string
}

// ScopeSystem is the system-wide installation scope.
func ScopeSystem() Scope {
	return Scope{}
}

// ScopeDestDir overrides the base directory, e.g. for building an install image.
func ScopeDestDir(dir string) Scope {
	return Scope{destDir: dir}
}

// IsSystem reports whether this is the system-wide scope.
func (s Scope) IsSystem() bool {
	return s.destDir == ""
}

// DestDir returns the override directory, or "" for the system scope.
func (s Scope) DestDir() string {
	return s.destDir
}

func (s Scope) String() string {
	if s.IsSystem() {
		return "system"
	}
	return "destdir:" + s.destDir
}

const fingerprintSize = 32

// Fingerprint is the SHA-256 hash of a public key's wire encoding.
// It is encoded as lowercase hex for display and storage keys.
type Fingerprint [fingerprintSize]byte

// FingerprintHash computes the fingerprint of raw key bytes.
func FingerprintHash(raw []byte) Fingerprint {
	return sha256.Sum256(raw)
}

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// IsZero returns true if the fingerprint is all zeros (unset).
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

// MarshalBinary implements encoding.BinaryMarshaler for efficient CBOR encoding.
func (f Fingerprint) MarshalBinary() ([]byte, error) {
	return f[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for CBOR decoding.
func (f *Fingerprint) UnmarshalBinary(data []byte) error {
	if len(data) != fingerprintSize {
		return FingerprintSizeError{Got: len(data)}
	}
	copy(f[:], data)
	return nil
}

// FingerprintSizeError is returned when a fingerprint has an invalid byte length.
type FingerprintSizeError struct {
	Got int
}

func (e FingerprintSizeError) Error() string {
	return fmt.Sprintf("veyon: fingerprint must be %d bytes, got %d", fingerprintSize, e.Got)
}

// ParseFingerprint parses a hex-encoded fingerprint.
func ParseFingerprint(s string) (Fingerprint, error) {
	var fp Fingerprint
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fp, fmt.Errorf("veyon: invalid fingerprint: %w", err)
	}
	if len(raw) != fingerprintSize {
		return fp, FingerprintSizeError{Got: len(raw)}
	}
	copy(fp[:], raw)
	return fp, nil
}
