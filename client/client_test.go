package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meomun1/anonsurvey/crypto"
	"github.com/meomun1/anonsurvey/issuer"
	"github.com/meomun1/anonsurvey/merkle"
	"github.com/meomun1/anonsurvey/testutil"
	"github.com/meomun1/anonsurvey/tokens"
)

// localSigner implements Signer against an in-process issuer, no HTTP.
type localSigner struct {
	issuer *issuer.Issuer
}

func (s *localSigner) RequestBlindSignature(ctx context.Context, token string, blindedMessage []byte) ([]byte, error) {
	return s.issuer.RequestBlindSignature(ctx, token, blindedMessage)
}

func setupFlow(t *testing.T) (*localSigner, *tokens.Manager, *CampaignKeys) {
	t.Helper()
	manager := tokens.NewManager(tokens.NewInMemoryStore())
	iss := issuer.New(manager, nil)

	campaignKeys := testutil.TestCampaignKeys(t)
	blindDER, encDER, err := campaignKeys.PublicKeys()
	require.NoError(t, err)
	require.NoError(t, iss.AdoptCampaignKeys("C1", campaignKeys))

	keys, err := ParseCampaignKeys(blindDER, encDER)
	require.NoError(t, err)

	return &localSigner{issuer: iss}, manager, keys
}

func TestBuildSubmission_FullFlow(t *testing.T) {
	signer, manager, keys := setupFlow(t)
	ctx := context.Background()

	issued, err := manager.IssueBatch(ctx, "C1", []string{"alice"})
	require.NoError(t, err)

	answers := testutil.TestAnswerSet()
	sub, err := BuildSubmission(ctx, signer, issued[0].Value, keys, answers)
	require.NoError(t, err)

	canonical, err := crypto.CanonicalAnswerString(answers)
	require.NoError(t, err)
	assert.Equal(t, []byte(canonical), sub.Message)
	assert.Equal(t, crypto.Commit(sub.Message), sub.Commitment)

	// The signature verifies under the campaign key and the ciphertext
	// decrypts on the authority side.
	require.NoError(t, VerifySubmission(keys.BlindSignature, sub))

	plaintext, err := crypto.DecryptAnswer(sub.Ciphertext, testutil.TestCampaignKeys(t).Encryption)
	require.NoError(t, err)
	assert.Equal(t, sub.Message, plaintext)

	// The token was consumed by the blind-signature request.
	token, err := manager.Validate(ctx, issued[0].Value)
	require.NoError(t, err)
	assert.True(t, token.Used)
}

func TestBuildSubmission_TokenSingleUse(t *testing.T) {
	signer, manager, keys := setupFlow(t)
	ctx := context.Background()

	issued, err := manager.IssueBatch(ctx, "C1", []string{"alice"})
	require.NoError(t, err)

	_, err = BuildSubmission(ctx, signer, issued[0].Value, keys, testutil.TestAnswerSet())
	require.NoError(t, err)

	_, err = BuildSubmission(ctx, signer, issued[0].Value, keys, testutil.TestAnswerSet())
	assert.ErrorIs(t, err, tokens.ErrTokenAlreadyUsed)
}

func TestBuildSubmission_InvalidAnswers(t *testing.T) {
	signer, _, keys := setupFlow(t)

	answers := testutil.TestAnswerSet()
	answers.Answers = []int{7}
	_, err := BuildSubmission(context.Background(), signer, "irrelevant", keys, answers)
	assert.Error(t, err)
}

type failingSigner struct{}

func (failingSigner) RequestBlindSignature(context.Context, string, []byte) ([]byte, error) {
	return nil, errors.New("issuer unavailable")
}

func TestBuildSubmission_SignerFailure(t *testing.T) {
	_, _, keys := setupFlow(t)

	_, err := BuildSubmission(context.Background(), failingSigner{}, "token", keys, testutil.TestAnswerSet())
	assert.ErrorContains(t, err, "requesting blind signature")
}

func TestVerifySubmission_TamperedMessage(t *testing.T) {
	signer, manager, keys := setupFlow(t)
	ctx := context.Background()

	issued, err := manager.IssueBatch(ctx, "C1", []string{"alice"})
	require.NoError(t, err)

	sub, err := BuildSubmission(ctx, signer, issued[0].Value, keys, testutil.TestAnswerSet())
	require.NoError(t, err)

	sub.Message[len(sub.Message)-1] ^= 0x01
	assert.Error(t, VerifySubmission(keys.BlindSignature, sub))
}

func TestParseCampaignKeys_Garbage(t *testing.T) {
	_, err := ParseCampaignKeys([]byte("bad"), []byte("bad"))
	assert.Error(t, err)
}

func TestVerifyInclusion(t *testing.T) {
	commitments := testutil.TestCommitments(4)
	leaves := make([][merkle.HashSize]byte, len(commitments))
	for i, c := range commitments {
		leaves[i] = [merkle.HashSize]byte(c)
	}

	root, err := merkle.BuildRoot(leaves)
	require.NoError(t, err)
	proof, err := merkle.Prove(leaves, 2)
	require.NoError(t, err)

	assert.True(t, VerifyInclusion(commitments[2], proof, root))
	assert.False(t, VerifyInclusion(commitments[1], proof, root))
}
