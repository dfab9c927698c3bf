package vauth

import (
	"github.com/HappyCodeDay/veyon/vdef"
)

// Credential is a peer-presented proof of identity: the challenge bytes the
// transport chose and the peer's DSA signature over them. The challenge
// format itself is owned by the session layer.
type Credential struct {
	Message   []byte
	Signature []byte
}

// RejectReason explains why a credential was rejected.
type RejectReason int

const (
	ReasonNone RejectReason = iota

	// ReasonNoKeyConfigured: the role has no installed key, or the
	// installed key file does not parse.
	ReasonNoKeyConfigured

	// ReasonSignatureInvalid: the signature does not verify against the
	// role's current public key.
	ReasonSignatureInvalid
)

func (r RejectReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNoKeyConfigured:
		return "no key configured"
	case ReasonSignatureInvalid:
		return "signature invalid"
	default:
		return "unknown"
	}
}

// Result is the outcome of a credential verification.
type Result struct {
	Accepted bool
	Reason   RejectReason
}

// Authenticator verifies peer credentials against a role's stored public
// key. It holds no mutable state and is safe for concurrent use across
// roles. A key file disappearing or turning unreadable between calls reads
// as ReasonNoKeyConfigured, never an error or panic.
type Authenticator struct {
	authority *RoleAuthority
}

// NewAuthenticator creates an authenticator over a role authority.
func NewAuthenticator(authority *RoleAuthority) *Authenticator {
	return &Authenticator{authority: authority}
}

// Verify checks the presented credential against the role's current public
// key and returns an accept or reject outcome.
func (a *Authenticator) Verify(role vdef.Role, scope vdef.Scope, cred Credential) Result {
	pub, err := a.authority.CurrentPublicKey(role, scope)
	if err != nil || !pub.Valid() {
		return Result{Reason: ReasonNoKeyConfigured}
	}
	if !pub.Verify(cred.Message, cred.Signature) {
		return Result{Reason: ReasonSignatureInvalid}
	}
	return Result{Accepted: true}
}
