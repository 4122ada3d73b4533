package testutil

import (
	"crypto/rsa"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meomun1/anonsurvey/crypto"
	"github.com/meomun1/anonsurvey/issuer"
	"github.com/meomun1/anonsurvey/ledger"
)

// =====================================
// Cryptographic Generators
// =====================================

// GenerateTestIdentity creates an Ed25519 identity and fails the test on
// error.
func GenerateTestIdentity(t *testing.T) (crypto.PublicKey, crypto.PrivateKey) {
	t.Helper()
	pub, priv, err := crypto.GenerateIdentity()
	require.NoError(t, err)
	return pub, priv
}

// TestCommitment returns a deterministic 32-byte commitment filled with
// the given byte.
func TestCommitment(fill byte) crypto.Commitment {
	var c crypto.Commitment
	for i := range c {
		c[i] = fill
	}
	return c
}

// TestCommitments returns n distinct deterministic commitments.
func TestCommitments(n int) []crypto.Commitment {
	out := make([]crypto.Commitment, n)
	for i := range out {
		out[i] = TestCommitment(byte(i + 1))
	}
	return out
}

// TestCiphertext returns a deterministic fixed-size ciphertext filled
// with the given byte.
func TestCiphertext(fill byte) crypto.Ciphertext {
	var ct crypto.Ciphertext
	for i := range ct {
		ct[i] = fill
	}
	return ct
}

// TestCiphertexts returns n distinct deterministic ciphertexts.
func TestCiphertexts(n int) []crypto.Ciphertext {
	out := make([]crypto.Ciphertext, n)
	for i := range out {
		out[i] = TestCiphertext(byte(i + 1))
	}
	return out
}

// TestAnswerSet returns a valid answer set for commitment and encryption
// round-trips.
func TestAnswerSet() crypto.AnswerSet {
	return crypto.AnswerSet{
		SurveyID:   "S1",
		CourseCode: "COURSE-101",
		ScopeID:    "2026-fall",
		Answers:    []int{5, 4, 3, 2, 1},
	}
}

var (
	campaignKeysOnce sync.Once
	campaignKeys     *issuer.CampaignKeys
	campaignKeysErr  error
)

// TestCampaignKeys returns RSA blind-signing and encryption key pairs.
// Key generation is expensive, so the pair is generated once per test
// binary and shared; tests must not mutate it.
func TestCampaignKeys(t *testing.T) *issuer.CampaignKeys {
	t.Helper()
	campaignKeysOnce.Do(func() {
		var blind, enc *rsa.PrivateKey
		blind, campaignKeysErr = crypto.GenerateBlindSignatureKeyPair()
		if campaignKeysErr != nil {
			return
		}
		enc, campaignKeysErr = crypto.GenerateEncryptionKeyPair()
		if campaignKeysErr != nil {
			return
		}
		campaignKeys = &issuer.CampaignKeys{BlindSigning: blind, Encryption: enc}
	})
	require.NoError(t, campaignKeysErr)
	return campaignKeys
}

// =====================================
// Ledger Builders
// =====================================

// TestCampaignParams returns valid creation parameters for campaignID
// with DER-encoded key material from the shared test keys.
func TestCampaignParams(t *testing.T, campaignID string) ledger.CreateCampaignParams {
	t.Helper()
	blindDER, encDER, err := TestCampaignKeys(t).PublicKeys()
	require.NoError(t, err)
	return ledger.CreateCampaignParams{
		CampaignID:              campaignID,
		Semester:                "2026-fall",
		CampaignType:            ledger.CourseSurvey,
		BlindSignaturePublicKey: blindDER,
		EncryptionPublicKey:     encDER,
	}
}

// CreateDraftCampaign creates a campaign in the draft status.
func CreateDraftCampaign(t *testing.T, l *ledger.Ledger, authority crypto.PublicKey, campaignID string) ledger.Handle {
	t.Helper()
	handle, err := l.CreateCampaign(authority, TestCampaignParams(t, campaignID))
	require.NoError(t, err)
	return handle
}

// CreateOpenCampaign creates a campaign and advances it to the open
// status where responses and token batches are accepted.
func CreateOpenCampaign(t *testing.T, l *ledger.Ledger, authority crypto.PublicKey, campaignID string) ledger.Handle {
	t.Helper()
	handle := CreateDraftCampaign(t, l, authority, campaignID)
	require.NoError(t, l.OpenCampaign(authority, handle))
	require.NoError(t, l.CloseInput(authority, handle))
	return handle
}
