// Package issuer implements the authority side of the blind-signature
// protocol: campaign key custody and token-gated signing.
//
// The issuer signs blinded messages without ever seeing their content. The
// only thing it checks before signing is the single-use token, whose
// unused -> used flip happens through the token store's compare-and-swap,
// so a spent token cannot obtain a second signature.
package issuer

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"sync"

	"github.com/meomun1/anonsurvey/crypto"
	"github.com/meomun1/anonsurvey/tokens"
)

// CampaignKeys is the private key material the authority holds for one
// campaign. Private keys never leave this process.
type CampaignKeys struct {
	BlindSigning *rsa.PrivateKey
	Encryption   *rsa.PrivateKey
}

// PublicKeys returns the PKIX-serialized public halves, the only part that
// is ever included in ledger submissions.
func (k *CampaignKeys) PublicKeys() (blindDER, encDER []byte, err error) {
	blindDER, err = crypto.MarshalPublicKey(&k.BlindSigning.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	encDER, err = crypto.MarshalPublicKey(&k.Encryption.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	return blindDER, encDER, nil
}

// Issuer holds campaign keys and issues blind signatures against valid
// tokens.
type Issuer struct {
	tokens *tokens.Manager
	log    *slog.Logger

	mu   sync.RWMutex
	keys map[string]*CampaignKeys
}

// New creates an issuer over the given token manager.
func New(tokenManager *tokens.Manager, log *slog.Logger) *Issuer {
	if log == nil {
		log = slog.Default()
	}
	return &Issuer{
		tokens: tokenManager,
		log:    log,
		keys:   make(map[string]*CampaignKeys),
	}
}

// GenerateCampaignKeys creates and stores fresh blind-signature and
// encryption key pairs for a campaign. Called once at campaign creation;
// keys are never rotated mid-campaign.
func (i *Issuer) GenerateCampaignKeys(campaignID string) (*CampaignKeys, error) {
	blindKey, err := crypto.GenerateBlindSignatureKeyPair()
	if err != nil {
		return nil, err
	}
	encKey, err := crypto.GenerateEncryptionKeyPair()
	if err != nil {
		return nil, err
	}

	keys := &CampaignKeys{BlindSigning: blindKey, Encryption: encKey}

	i.mu.Lock()
	defer i.mu.Unlock()
	if _, exists := i.keys[campaignID]; exists {
		return nil, fmt.Errorf("keys for campaign %q already exist", campaignID)
	}
	i.keys[campaignID] = keys
	return keys, nil
}

// AdoptCampaignKeys registers externally created key material for a
// campaign, for restoring persisted keys on startup.
func (i *Issuer) AdoptCampaignKeys(campaignID string, keys *CampaignKeys) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, exists := i.keys[campaignID]; exists {
		return fmt.Errorf("keys for campaign %q already exist", campaignID)
	}
	i.keys[campaignID] = keys
	return nil
}

// CampaignKeys returns the stored key material for a campaign.
func (i *Issuer) CampaignKeys(campaignID string) (*CampaignKeys, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	keys, ok := i.keys[campaignID]
	if !ok {
		return nil, fmt.Errorf("no keys for campaign %q", campaignID)
	}
	return keys, nil
}

// RequestBlindSignature consumes an unused token and signs the blinded
// message with the campaign's blind-signing key. The token state is
// re-checked through the store's CAS immediately before signing; a reused
// token fails here, not in the signature math.
func (i *Issuer) RequestBlindSignature(ctx context.Context, tokenValue string, blindedMessage []byte) ([]byte, error) {
	t, err := i.tokens.Validate(ctx, tokenValue)
	if err != nil {
		return nil, err
	}

	keys, err := i.CampaignKeys(t.CampaignID)
	if err != nil {
		return nil, err
	}

	// Reject malformed requests before the CAS so they cannot burn the
	// token. After MarkUsed the signing step has no failure mode left
	// short of corrupted key material.
	if got, want := len(blindedMessage), keys.BlindSigning.Size(); got != want {
		return nil, fmt.Errorf("blinded message must be %d bytes, got %d", want, got)
	}

	if err := i.tokens.MarkUsed(ctx, tokenValue); err != nil {
		return nil, err
	}

	signature, err := crypto.BlindSign(keys.BlindSigning, blindedMessage)
	if err != nil {
		return nil, err
	}

	i.log.Info("issued blind signature", "campaign", t.CampaignID)
	return signature, nil
}

// CompleteToken records a successful submission against a used token.
func (i *Issuer) CompleteToken(ctx context.Context, tokenValue string) error {
	return i.tokens.MarkCompleted(ctx, tokenValue)
}

// DecryptResponses recovers the plaintext answers of a campaign for
// tabulation. This never touches ledger state.
func (i *Issuer) DecryptResponses(campaignID string, cts []crypto.Ciphertext) ([][]byte, error) {
	keys, err := i.CampaignKeys(campaignID)
	if err != nil {
		return nil, err
	}
	answers := make([][]byte, 0, len(cts))
	for idx, ct := range cts {
		answer, err := crypto.DecryptAnswer(ct, keys.Encryption)
		if err != nil {
			return nil, fmt.Errorf("decrypting response %d: %w", idx, err)
		}
		answers = append(answers, answer)
	}
	return answers, nil
}
