package vdef

import (
	"crypto/dsa"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"

	"golang.org/x/crypto/ssh"
)

// DefaultKeyBits is the key strength used when none is requested.
const DefaultKeyBits = 1024

// privateKeyPEMType matches OpenSSL's traditional DSA private key encoding.
const privateKeyPEMType = "DSA PRIVATE KEY"

// dsaPrivateKeyASN1 mirrors OpenSSL's traditional DSA private key structure.
type dsaPrivateKeyASN1 struct {
	Version int
	P, Q, G *big.Int
	Y, X    *big.Int
}

// dsaSignature is the ASN.1 structure of a DSA signature.
type dsaSignature struct {
	R, S *big.Int
}

// PrivateKey is in-memory DSA private key material. A PrivateKey is either
// fully valid or unusable; no partially parsed state is exposed. Instances
// are never mutated after construction.
type PrivateKey struct {
	key dsa.PrivateKey
}

// PublicKey is in-memory DSA public key material, produced by derivation
// from a private key or by parsing a stored key file.
type PublicKey struct {
	key dsa.PublicKey
}

// KeyPair owns a freshly generated private key and its derived public half.
// The public key is a copy of the derived parameters, not an alias into the
// private key.
type KeyPair struct {
	Private *PrivateKey
	Public  *PublicKey
}

// GeneratePrivateKey produces a fresh DSA private key of the requested
// strength using a cryptographically secure random source. Supported
// strengths are 1024, 2048 and 3072 bits.
func GeneratePrivateKey(bits int) (*PrivateKey, error) {
	var sizes dsa.ParameterSizes
	switch bits {
	case 1024:
		sizes = dsa.L1024N160
	case 2048:
		sizes = dsa.L2048N256
	case 3072:
		sizes = dsa.L3072N256
	default:
		return nil, KeyStrengthError{Bits: bits}
	}

	priv := new(PrivateKey)
	if err := dsa.GenerateParameters(&priv.key.Parameters, rand.Reader, sizes); err != nil {
		return nil, fmt.Errorf("%w: generate parameters: %v", ErrKeyGenerationFailed, err)
	}
	if err := dsa.GenerateKey(&priv.key, rand.Reader); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailed, err)
	}
	return priv, nil
}

// GenerateKeyPair generates a private key and derives its public half.
func GenerateKeyPair(bits int) (*KeyPair, error) {
	priv, err := GeneratePrivateKey(bits)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Private: priv, Public: priv.Public()}, nil
}

// Public derives the public key. The result does not alias the private key.
func (p *PrivateKey) Public() *PublicKey {
	pub := new(PublicKey)
	pub.key.Parameters = dsa.Parameters{
		P: new(big.Int).Set(p.key.P),
		Q: new(big.Int).Set(p.key.Q),
		G: new(big.Int).Set(p.key.G),
	}
	pub.key.Y = new(big.Int).Set(p.key.Y)
	return pub
}

// Valid reports whether the key passes structural validation: a complete
// DSA parameter set with non-zero components.
func (p *PrivateKey) Valid() bool {
	if p == nil {
		return false
	}
	if !validParameters(&p.key.Parameters) {
		return false
	}
	return isPositive(p.key.Y) && isPositive(p.key.X)
}

// Valid reports whether the key passes structural validation.
func (p *PublicKey) Valid() bool {
	if p == nil {
		return false
	}
	return validParameters(&p.key.Parameters) && isPositive(p.key.Y)
}

func validParameters(params *dsa.Parameters) bool {
	return isPositive(params.P) && isPositive(params.Q) && isPositive(params.G)
}

func isPositive(n *big.Int) bool {
	return n != nil && n.Sign() > 0
}

// Bits returns the key strength in bits.
func (p *PrivateKey) Bits() int {
	if p == nil || p.key.P == nil {
		return 0
	}
	return p.key.P.BitLen()
}

// Bits returns the key strength in bits.
func (p *PublicKey) Bits() int {
	if p == nil || p.key.P == nil {
		return 0
	}
	return p.key.P.BitLen()
}

// Marshal encodes the private key as PEM in OpenSSL's traditional DSA format.
func (p *PrivateKey) Marshal() ([]byte, error) {
	if !p.Valid() {
		return nil, ErrInvalidKeyFile
	}
	der, err := asn1.Marshal(dsaPrivateKeyASN1{
		Version: 0,
		P:       p.key.P,
		Q:       p.key.Q,
		G:       p.key.G,
		Y:       p.key.Y,
		X:       p.key.X,
	})
	if err != nil {
		return nil, fmt.Errorf("veyon: marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: privateKeyPEMType, Bytes: der}), nil
}

// ParsePrivateKey parses a PEM-encoded DSA private key and validates it.
func ParsePrivateKey(data []byte) (*PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != privateKeyPEMType {
		return nil, fmt.Errorf("%w: not a DSA private key PEM block", ErrInvalidKeyFile)
	}
	var raw dsaPrivateKeyASN1
	rest, err := asn1.Unmarshal(block.Bytes, &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFile, err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: trailing data after key structure", ErrInvalidKeyFile)
	}

	priv := new(PrivateKey)
	priv.key.Parameters = dsa.Parameters{P: raw.P, Q: raw.Q, G: raw.G}
	priv.key.Y = raw.Y
	priv.key.X = raw.X
	if !priv.Valid() {
		return nil, fmt.Errorf("%w: incomplete DSA parameter set", ErrInvalidKeyFile)
	}
	return priv, nil
}

// LoadPrivateKey reads and parses a private key file.
func LoadPrivateKey(path string) (*PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, path)
		}
		return nil, fmt.Errorf("veyon: read private key: %w", err)
	}
	return ParsePrivateKey(data)
}

// Marshal encodes the public key as an OpenSSH authorized-keys line (ssh-dss).
func (p *PublicKey) Marshal() ([]byte, error) {
	if !p.Valid() {
		return nil, ErrInvalidKeyFile
	}
	sshPub, err := ssh.NewPublicKey(&p.key)
	if err != nil {
		return nil, fmt.Errorf("veyon: marshal public key: %w", err)
	}
	return ssh.MarshalAuthorizedKey(sshPub), nil
}

// ParsePublicKey parses an OpenSSH authorized-keys encoded DSA public key.
// Any malformed, truncated or non-DSA input yields ErrInvalidKeyFile.
func ParsePublicKey(data []byte) (*PublicKey, error) {
	sshPub, _, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFile, err)
	}
	cryptoPub, ok := sshPub.(ssh.CryptoPublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported key encoding", ErrInvalidKeyFile)
	}
	dsaPub, ok := cryptoPub.CryptoPublicKey().(*dsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not a DSA key", ErrInvalidKeyFile)
	}

	pub := new(PublicKey)
	pub.key = *dsaPub
	if !pub.Valid() {
		return nil, fmt.Errorf("%w: incomplete DSA parameter set", ErrInvalidKeyFile)
	}
	return pub, nil
}

// LoadPublicKey reads and parses a public key file.
func LoadPublicKey(path string) (*PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, path)
		}
		return nil, fmt.Errorf("veyon: read public key: %w", err)
	}
	return ParsePublicKey(data)
}

// Fingerprint returns the fingerprint of the public key's wire encoding.
// Invalid keys have a zero fingerprint.
func (p *PublicKey) Fingerprint() Fingerprint {
	wire, err := p.Marshal()
	if err != nil {
		return Fingerprint{}
	}
	return FingerprintHash(wire)
}

// Equal reports whether two public keys share the same DSA parameters and
// public component.
func (p *PublicKey) Equal(o *PublicKey) bool {
	if p == nil || o == nil {
		return p == o
	}
	return bigEqual(p.key.P, o.key.P) &&
		bigEqual(p.key.Q, o.key.Q) &&
		bigEqual(p.key.G, o.key.G) &&
		bigEqual(p.key.Y, o.key.Y)
}

func bigEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

// Sign signs a message with the private key and returns an ASN.1 encoded
// signature. The message digest is chosen by subgroup size: SHA-1 for
// 160-bit subgroups, SHA-256 otherwise.
func (p *PrivateKey) Sign(message []byte) ([]byte, error) {
	if !p.Valid() {
		return nil, ErrInvalidKeyFile
	}
	r, s, err := dsa.Sign(rand.Reader, &p.key, digest(&p.key.Parameters, message))
	if err != nil {
		return nil, fmt.Errorf("veyon: sign: %w", err)
	}
	return asn1.Marshal(dsaSignature{R: r, S: s})
}

// Verify checks an ASN.1 encoded signature over message. Malformed
// signatures verify as false, never as an error.
func (p *PublicKey) Verify(message, signature []byte) bool {
	if !p.Valid() {
		return false
	}
	var sig dsaSignature
	rest, err := asn1.Unmarshal(signature, &sig)
	if err != nil || len(rest) != 0 || sig.R == nil || sig.S == nil {
		return false
	}
	return dsa.Verify(&p.key, digest(&p.key.Parameters, message), sig.R, sig.S)
}

func digest(params *dsa.Parameters, message []byte) []byte {
	if params.Q != nil && params.Q.BitLen() > 160 {
		sum := sha256.Sum256(message)
		return sum[:]
	}
	sum := sha1.Sum(message)
	return sum[:]
}
