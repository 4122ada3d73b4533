package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
)

// EncryptionKeyBits is the modulus size for campaign encryption key pairs.
// The ledger account layout assumes the ciphertext size this produces.
const EncryptionKeyBits = 2048

// CiphertextSize is the exact byte length of an encrypted answer. A
// 2048-bit RSA-OAEP ciphertext is always 256 bytes; the ledger rejects
// anything else.
const CiphertextSize = EncryptionKeyBits / 8

// Ciphertext is a fixed-size encrypted answer.
type Ciphertext [CiphertextSize]byte

// EncryptAnswer encrypts a canonical answer string under the campaign's
// encryption public key using RSA-OAEP with SHA-256. OAEP limits the
// plaintext to modulus size minus overhead (190 bytes for 2048/SHA-256),
// which comfortably fits canonical answer strings.
func EncryptAnswer(answer []byte, key *rsa.PublicKey) (Ciphertext, error) {
	var ct Ciphertext
	if key.Size() != CiphertextSize {
		return ct, fmt.Errorf("encryption key must be %d bits, got %d", EncryptionKeyBits, key.N.BitLen())
	}
	raw, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, key, answer, nil)
	if err != nil {
		return ct, fmt.Errorf("encrypting answer: %w", err)
	}
	copy(ct[:], raw)
	return ct, nil
}

// DecryptAnswer recovers the plaintext answer. Only the authority holds the
// private key; this is used for tabulation and never affects ledger state.
func DecryptAnswer(ct Ciphertext, key *rsa.PrivateKey) ([]byte, error) {
	answer, err := rsa.DecryptOAEP(sha256.New(), nil, key, ct[:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting answer: %w", err)
	}
	return answer, nil
}

// NewCiphertextFromBytes creates a Ciphertext from a byte slice. The slice
// must be exactly CiphertextSize bytes.
func NewCiphertextFromBytes(data []byte) (Ciphertext, error) {
	var ct Ciphertext
	if len(data) != CiphertextSize {
		return ct, fmt.Errorf("ciphertext must be %d bytes, got %d", CiphertextSize, len(data))
	}
	copy(ct[:], data)
	return ct, nil
}

// Bytes returns the ciphertext as a byte slice.
func (ct Ciphertext) Bytes() []byte {
	return ct[:]
}
