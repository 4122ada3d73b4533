package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// MaxPublicKeySize is the largest serialized public key the ledger accepts.
// A PKIX-encoded 2048-bit RSA key is 294 bytes.
const MaxPublicKeySize = 300

// GenerateBlindSignatureKeyPair creates the RSA key pair a campaign uses
// for blind-signature issuance. Generated once per campaign, never rotated
// mid-campaign.
func GenerateBlindSignatureKeyPair() (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, BlindSignatureKeyBits)
	if err != nil {
		return nil, fmt.Errorf("generating blind signature key: %w", err)
	}
	return key, nil
}

// GenerateEncryptionKeyPair creates the RSA key pair a campaign uses for
// answer encryption.
func GenerateEncryptionKeyPair() (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, EncryptionKeyBits)
	if err != nil {
		return nil, fmt.Errorf("generating encryption key: %w", err)
	}
	return key, nil
}

// MarshalPublicKey serializes an RSA public key as PKIX DER. The result is
// what gets stored in the campaign account; only public keys ever leave
// the authority's custody.
func MarshalPublicKey(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshaling public key: %w", err)
	}
	if len(der) > MaxPublicKeySize {
		return nil, fmt.Errorf("serialized public key is %d bytes, limit %d", len(der), MaxPublicKeySize)
	}
	return der, nil
}

// ParsePublicKey deserializes a PKIX DER RSA public key.
func ParsePublicKey(der []byte) (*rsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("expected RSA public key, got %T", key)
	}
	return rsaKey, nil
}

// PublicKeyFingerprint returns a short hex identifier for a serialized
// public key, used in logs and as a map key.
func PublicKeyFingerprint(der []byte) string {
	sum := sha3.Sum256(der)
	return hex.EncodeToString(sum[:8])
}
