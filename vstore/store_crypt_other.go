//go:build !windows

package vstore

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// Embedded key for encryption. This provides obfuscation rather than
// strong security since anyone with access to the binary can extract it.
// The goal is to keep access-control values out of plain text.
var embeddedKey = [32]byte{
	0x4e, 0xa1, 0x37, 0xd8, 0x6b, 0x02, 0xf5, 0x9c,
	0x81, 0x2e, 0xc4, 0x5f, 0xaa, 0x13, 0x78, 0xe0,
	0x95, 0x3a, 0xd1, 0x66, 0x0f, 0xb8, 0x24, 0xc9,
	0x72, 0x8d, 0x50, 0xeb, 0x1c, 0xa7, 0x3e, 0x94,
}

// encryptValue encrypts data using nacl/secretbox with the embedded key.
// Returns nonce (24 bytes) + ciphertext.
func encryptValue(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, &embeddedKey), nil
}

// decryptValue decrypts data encrypted with encryptValue.
func decryptValue(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 24+secretbox.Overhead {
		return nil, fmt.Errorf("ciphertext too short")
	}

	var nonce [24]byte
	copy(nonce[:], ciphertext[:24])

	plaintext, ok := secretbox.Open(nil, ciphertext[24:], &nonce, &embeddedKey)
	if !ok {
		return nil, fmt.Errorf("decrypt failed")
	}

	return plaintext, nil
}
