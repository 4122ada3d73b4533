package crypto

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/blindsign/blindrsa"
)

// BlindSignatureKeyBits is the modulus size for blind-signature key pairs.
const BlindSignatureKeyBits = 2048

// blindVariant is the RSABSSA variant in use. The no-prefix deterministic
// variant signs the input message bytes directly, so a finalized signature
// verifies against the exact canonical answer string a submitter presents.
const blindVariant = blindrsa.SHA384PSSDeterministic

// ErrSignatureInvalid is returned when an unblinded signature does not
// validate against the original message under the issuer's public key.
// This covers both a dishonest issuer and a mismatched blinding inverse.
var ErrSignatureInvalid = errors.New("blind signature verification failed")

// BlindSession holds the client-side state of one blind-signature exchange.
// The flow is Blind -> (issuer signs) -> Finalize. A session is single-use:
// the blinding factor created by Blind can only unblind the signature for
// that exact blinded message.
type BlindSession struct {
	issuerKey *rsa.PublicKey
	client    blindrsa.Client
	state     blindrsa.State
	message   []byte
	blinded   bool
}

// NewBlindSession creates a session bound to the issuer's public key.
// The scheme hashes messages with SHA-384 and uses PSS padding, matching
// the RSA-BSSA construction.
func NewBlindSession(issuerKey *rsa.PublicKey) *BlindSession {
	return &BlindSession{issuerKey: issuerKey}
}

// Blind prepares and blinds the message, returning the blinded message to
// send to the issuer. The blinding factor is drawn from random and never
// leaves this session, which is what makes the issuer unable to correlate
// the blinded request with the final signature.
func (s *BlindSession) Blind(random io.Reader, message []byte) ([]byte, error) {
	client, err := blindrsa.NewClient(blindVariant, s.issuerKey)
	if err != nil {
		return nil, fmt.Errorf("initializing blind rsa client: %w", err)
	}
	prepared, err := client.Prepare(random, message)
	if err != nil {
		return nil, fmt.Errorf("preparing message: %w", err)
	}
	blindedMsg, state, err := client.Blind(random, prepared)
	if err != nil {
		return nil, fmt.Errorf("blinding message: %w", err)
	}
	s.client = client
	s.state = state
	s.message = append([]byte(nil), prepared...)
	s.blinded = true
	return blindedMsg, nil
}

// Finalize unblinds the issuer's blind signature and verifies the result
// against the original message. An invalid signature is surfaced as
// ErrSignatureInvalid, never silently accepted.
func (s *BlindSession) Finalize(blindSignature []byte) ([]byte, error) {
	if !s.blinded {
		return nil, errors.New("session has no blinded message")
	}
	signature, err := s.client.Finalize(s.state, blindSignature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	if err := s.client.Verify(s.message, signature); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return signature, nil
}

// VerifyBlindSignature checks a finalized signature against a message and
// the issuer's public key. Anyone auditing published results can run this
// without any session state.
func VerifyBlindSignature(issuerKey *rsa.PublicKey, message, signature []byte) error {
	verifier, err := blindrsa.NewVerifier(blindVariant, issuerKey)
	if err != nil {
		return fmt.Errorf("initializing blind rsa verifier: %w", err)
	}
	if err := verifier.Verify(message, signature); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return nil
}

// BlindSign is the issuer-side step: it signs a blinded message with the
// private key. The issuer sees only an opaque blob, so it signs
// unconditionally; token checks happen one layer up.
func BlindSign(issuerKey *rsa.PrivateKey, blindedMessage []byte) ([]byte, error) {
	signer := blindrsa.NewSigner(issuerKey)
	blindSignature, err := signer.BlindSign(blindedMessage)
	if err != nil {
		return nil, fmt.Errorf("signing blinded message: %w", err)
	}
	return blindSignature, nil
}
