// Package client implements the respondent side of the survey protocol.
//
// The full flow for one submission:
//
//  1. Encode the answers into the canonical answer string
//  2. Blind the string and request a blind signature (gated by a token)
//  3. Finalize: unblind and verify the signature locally
//  4. Encrypt the string under the campaign encryption key
//  5. Commit: hash the string into the 32-byte commitment
//  6. Submit the (commitment, ciphertext) pair
//
// Steps 2 is the only network round trip; everything else is local. After
// publication the client can verify inclusion of its commitment against
// the published Merkle root.
package client

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/meomun1/anonsurvey/crypto"
	"github.com/meomun1/anonsurvey/merkle"
)

// Signer requests a blind signature from the issuing authority. The
// blinded message reveals nothing about the answer content.
type Signer interface {
	RequestBlindSignature(ctx context.Context, token string, blindedMessage []byte) ([]byte, error)
}

// Submission is a fully prepared response, ready to hand to the
// collection service.
type Submission struct {
	// Message is the canonical answer string the commitment and signature
	// bind. It stays with the client; only commitment and ciphertext are
	// submitted.
	Message    []byte
	Commitment crypto.Commitment
	Ciphertext crypto.Ciphertext
	// Signature is the finalized blind signature over Message, verifiable
	// by anyone under the campaign's blind-signature public key.
	Signature []byte
}

// CampaignKeys holds the public halves of a campaign's key pairs, as
// served by the authority.
type CampaignKeys struct {
	BlindSignature *rsa.PublicKey
	Encryption     *rsa.PublicKey
}

// ParseCampaignKeys parses the PKIX-serialized campaign public keys.
func ParseCampaignKeys(blindDER, encDER []byte) (*CampaignKeys, error) {
	blindKey, err := crypto.ParsePublicKey(blindDER)
	if err != nil {
		return nil, fmt.Errorf("blind signature key: %w", err)
	}
	encKey, err := crypto.ParsePublicKey(encDER)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	return &CampaignKeys{BlindSignature: blindKey, Encryption: encKey}, nil
}

// BuildSubmission runs the whole respondent flow for one answer set. The
// token is consumed by the signer's issuing authority; an invalid or
// reused token fails the blind-signature request and nothing is encrypted
// or committed.
func BuildSubmission(ctx context.Context, signer Signer, token string, keys *CampaignKeys, answers crypto.AnswerSet) (*Submission, error) {
	canonical, err := crypto.CanonicalAnswerString(answers)
	if err != nil {
		return nil, fmt.Errorf("encoding answers: %w", err)
	}
	message := []byte(canonical)

	session := crypto.NewBlindSession(keys.BlindSignature)
	blinded, err := session.Blind(rand.Reader, message)
	if err != nil {
		return nil, err
	}

	blindSignature, err := signer.RequestBlindSignature(ctx, token, blinded)
	if err != nil {
		return nil, fmt.Errorf("requesting blind signature: %w", err)
	}

	signature, err := session.Finalize(blindSignature)
	if err != nil {
		return nil, err
	}

	ciphertext, err := crypto.EncryptAnswer(message, keys.Encryption)
	if err != nil {
		return nil, err
	}

	return &Submission{
		Message:    message,
		Commitment: crypto.Commit(message),
		Ciphertext: ciphertext,
		Signature:  signature,
	}, nil
}

// VerifySubmission re-checks a submission: the signature against the
// campaign key and the commitment against the message.
func VerifySubmission(blindKey *rsa.PublicKey, sub *Submission) error {
	if err := crypto.VerifyBlindSignature(blindKey, sub.Message, sub.Signature); err != nil {
		return err
	}
	if !crypto.VerifyCommitment(sub.Message, sub.Commitment) {
		return fmt.Errorf("commitment does not bind the message")
	}
	return nil
}

// VerifyInclusion checks a commitment's inclusion proof against a
// published root.
func VerifyInclusion(commitment crypto.Commitment, proof merkle.Proof, root merkle.Root) bool {
	return merkle.VerifyProof([merkle.HashSize]byte(commitment), proof, root)
}
