package vauth

import (
	"github.com/HappyCodeDay/veyon/vdef"
)

// CreateKeyPair generates a fresh DSA key pair for a role and installs both
// halves at their resolved locations. The private key is installed first;
// a failure at any step surfaces the error and leaves no half-written file
// at either location.
func (s *KeyStore) CreateKeyPair(role vdef.Role, scope vdef.Scope, bits int) (*vdef.KeyPair, error) {
	if bits == 0 {
		bits = vdef.DefaultKeyBits
	}
	pair, err := vdef.GenerateKeyPair(bits)
	if err != nil {
		return nil, err
	}

	privPEM, err := pair.Private.Marshal()
	if err != nil {
		return nil, err
	}
	pubWire, err := pair.Public.Marshal()
	if err != nil {
		return nil, err
	}

	if err := s.Install(vdef.KeyPrivate, role, scope, privPEM); err != nil {
		return nil, err
	}
	if err := s.Install(vdef.KeyPublic, role, scope, pubWire); err != nil {
		return nil, err
	}
	return pair, nil
}
