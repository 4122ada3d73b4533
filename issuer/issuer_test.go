package issuer

import (
	"context"
	"crypto/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meomun1/anonsurvey/crypto"
	"github.com/meomun1/anonsurvey/tokens"
)

var (
	sharedKeysOnce sync.Once
	sharedKeys     *CampaignKeys
)

// sharedCampaignKeys generates one RSA key set for the whole test binary.
func sharedCampaignKeys(t *testing.T) *CampaignKeys {
	t.Helper()
	sharedKeysOnce.Do(func() {
		blind, err := crypto.GenerateBlindSignatureKeyPair()
		if err != nil {
			panic(err)
		}
		enc, err := crypto.GenerateEncryptionKeyPair()
		if err != nil {
			panic(err)
		}
		sharedKeys = &CampaignKeys{BlindSigning: blind, Encryption: enc}
	})
	return sharedKeys
}

// newTestIssuer wires an issuer with the shared keys registered for
// campaignID, skipping per-test key generation.
func newTestIssuer(t *testing.T, campaignID string) (*Issuer, *tokens.Manager) {
	t.Helper()
	manager := tokens.NewManager(tokens.NewInMemoryStore())
	iss := New(manager, nil)
	require.NoError(t, iss.AdoptCampaignKeys(campaignID, sharedCampaignKeys(t)))
	return iss, manager
}

func TestCampaignKeys_PublicKeysSerialize(t *testing.T) {
	keys := sharedCampaignKeys(t)

	blindDER, encDER, err := keys.PublicKeys()
	require.NoError(t, err)
	assert.NotEmpty(t, blindDER)
	assert.NotEmpty(t, encDER)
	assert.LessOrEqual(t, len(blindDER), crypto.MaxPublicKeySize)
	assert.LessOrEqual(t, len(encDER), crypto.MaxPublicKeySize)

	parsed, err := crypto.ParsePublicKey(blindDER)
	require.NoError(t, err)
	assert.True(t, keys.BlindSigning.PublicKey.Equal(parsed))
}

func TestGenerateCampaignKeys_OncePerCampaign(t *testing.T) {
	iss, _ := newTestIssuer(t, "C-other")

	keys, err := iss.GenerateCampaignKeys("C-fresh")
	require.NoError(t, err)
	require.NotNil(t, keys)

	got, err := iss.CampaignKeys("C-fresh")
	require.NoError(t, err)
	assert.Same(t, keys, got)

	// No rotation mid-campaign.
	_, err = iss.GenerateCampaignKeys("C-fresh")
	assert.Error(t, err)
}

func TestCampaignKeys_Unknown(t *testing.T) {
	iss, _ := newTestIssuer(t, "C1")
	_, err := iss.CampaignKeys("C-unknown")
	assert.Error(t, err)
}

func TestRequestBlindSignature_ConsumesToken(t *testing.T) {
	iss, manager := newTestIssuer(t, "C1")
	ctx := context.Background()

	issued, err := manager.IssueBatch(ctx, "C1", []string{"alice"})
	require.NoError(t, err)
	value := issued[0].Value

	message := []byte("S1|COURSE-101|2026-fall|54321")
	session := crypto.NewBlindSession(&sharedCampaignKeys(t).BlindSigning.PublicKey)
	blinded, err := session.Blind(rand.Reader, message)
	require.NoError(t, err)

	blindSig, err := iss.RequestBlindSignature(ctx, value, blinded)
	require.NoError(t, err)

	signature, err := session.Finalize(blindSig)
	require.NoError(t, err)
	assert.NoError(t, crypto.VerifyBlindSignature(&sharedCampaignKeys(t).BlindSigning.PublicKey, message, signature))

	// The token is spent; a second signature request fails.
	_, err = iss.RequestBlindSignature(ctx, value, blinded)
	assert.ErrorIs(t, err, tokens.ErrTokenAlreadyUsed)

	token, err := manager.Validate(ctx, value)
	require.NoError(t, err)
	assert.True(t, token.Used)
	assert.False(t, token.Completed)
}

func TestRequestBlindSignature_UnknownToken(t *testing.T) {
	iss, _ := newTestIssuer(t, "C1")

	_, err := iss.RequestBlindSignature(context.Background(), "bogus", []byte("blinded"))
	assert.ErrorIs(t, err, tokens.ErrTokenNotFound)
}

func TestRequestBlindSignature_NoKeysLeavesTokenUnused(t *testing.T) {
	iss, manager := newTestIssuer(t, "C1")
	ctx := context.Background()

	issued, err := manager.IssueBatch(ctx, "C-without-keys", []string{"alice"})
	require.NoError(t, err)
	value := issued[0].Value

	_, err = iss.RequestBlindSignature(ctx, value, []byte("blinded"))
	require.Error(t, err)

	// The key lookup failed before the CAS, the token survives.
	token, err := manager.Validate(ctx, value)
	require.NoError(t, err)
	assert.False(t, token.Used)
}

func TestRequestBlindSignature_MalformedMessageLeavesTokenUnused(t *testing.T) {
	iss, manager := newTestIssuer(t, "C1")
	ctx := context.Background()

	issued, err := manager.IssueBatch(ctx, "C1", []string{"alice"})
	require.NoError(t, err)
	value := issued[0].Value

	// A blinded message that is not modulus-sized is rejected up front.
	_, err = iss.RequestBlindSignature(ctx, value, []byte("too short"))
	require.Error(t, err)

	token, err := manager.Validate(ctx, value)
	require.NoError(t, err)
	assert.False(t, token.Used)

	// The same token still buys a signature for a well-formed request.
	session := crypto.NewBlindSession(&sharedCampaignKeys(t).BlindSigning.PublicKey)
	blinded, err := session.Blind(rand.Reader, []byte("S1|COURSE-101|2026-fall|54321"))
	require.NoError(t, err)

	_, err = iss.RequestBlindSignature(ctx, value, blinded)
	require.NoError(t, err)
}

func TestCompleteToken(t *testing.T) {
	iss, manager := newTestIssuer(t, "C1")
	ctx := context.Background()

	issued, err := manager.IssueBatch(ctx, "C1", []string{"alice"})
	require.NoError(t, err)
	value := issued[0].Value

	// Completion requires the blind-signing step first.
	assert.ErrorIs(t, iss.CompleteToken(ctx, value), tokens.ErrTokenNotUsed)

	require.NoError(t, manager.MarkUsed(ctx, value))
	require.NoError(t, iss.CompleteToken(ctx, value))
	assert.ErrorIs(t, iss.CompleteToken(ctx, value), tokens.ErrTokenAlreadyCompleted)
}

func TestDecryptResponses(t *testing.T) {
	iss, _ := newTestIssuer(t, "C1")
	keys := sharedCampaignKeys(t)

	answers := [][]byte{
		[]byte("S1|COURSE-101|2026-fall|54321"),
		[]byte("S1|COURSE-101|2026-fall|11111"),
	}
	cts := make([]crypto.Ciphertext, len(answers))
	for i, a := range answers {
		ct, err := crypto.EncryptAnswer(a, &keys.Encryption.PublicKey)
		require.NoError(t, err)
		cts[i] = ct
	}

	got, err := iss.DecryptResponses("C1", cts)
	require.NoError(t, err)
	assert.Equal(t, answers, got)

	_, err = iss.DecryptResponses("C-unknown", cts)
	assert.Error(t, err)
}
