// Package tokens manages the single-use bearer credentials that gate the
// blind-signing and submission flow.
//
// A token scopes one participant to one campaign and transitions
// unused -> used -> completed, monotonically. The used flip happens when
// the participant begins the blind-signing flow and must be a
// compare-and-swap: two concurrent requests on the same token must not
// both succeed. The durable store is the source of truth for that swap; a
// cache layer in front of it only accelerates reads and is invalidated on
// every write.
//
// Tokens never expire on their own. An issued but unused token stays
// unused until an administrator deletes it.
package tokens

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TokenValueSize is the entropy, in bytes, behind each token value. The
// hex form on the wire is twice this length.
const TokenValueSize = 32

// Stable error code strings, part of the external contract.
var (
	ErrTokenNotFound         = errors.New("TokenNotFound")
	ErrTokenAlreadyUsed      = errors.New("TokenAlreadyUsed")
	ErrTokenAlreadyCompleted = errors.New("TokenAlreadyCompleted")
	ErrTokenNotUsed          = errors.New("TokenNotUsed")
)

// Token is one single-use credential.
type Token struct {
	// Value is the opaque, cryptographically unguessable bearer value.
	Value      string
	CampaignID string
	Recipient  string
	BatchID    string

	Used      bool
	Completed bool

	CreatedAt   time.Time
	UsedAt      time.Time
	CompletedAt time.Time
}

// IssuedToken pairs a recipient with the token minted for them.
type IssuedToken struct {
	Recipient string `json:"recipient"`
	Value     string `json:"token"`
}

// Store is the durable token store. MarkUsed and MarkCompleted are atomic
// compare-and-swaps on the state flags.
type Store interface {
	Insert(ctx context.Context, t *Token) error
	Get(ctx context.Context, value string) (*Token, error)
	// MarkUsed flips unused -> used. Returns ErrTokenAlreadyCompleted or
	// ErrTokenAlreadyUsed on a spent token, ErrTokenNotFound otherwise.
	MarkUsed(ctx context.Context, value string) error
	// MarkCompleted flips used -> completed. Returns ErrTokenNotUsed when
	// the blind-signing step never happened.
	MarkCompleted(ctx context.Context, value string) error
	// Delete permanently disables a token. Administrative use only.
	Delete(ctx context.Context, value string) error
	ListByCampaign(ctx context.Context, campaignID string) ([]*Token, error)
	Close() error
}

// Manager issues and tracks tokens against a durable store, with an
// optional read cache.
type Manager struct {
	store Store
	cache *readCache
}

// NewManager creates a token manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, cache: newReadCache()}
}

// NewValue mints a fresh token value from the system CSPRNG.
func NewValue() (string, error) {
	buf := make([]byte, TokenValueSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading randomness: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IssueBatch mints one token per recipient for a campaign. Each batch gets
// its own id for administrative bookkeeping.
func (m *Manager) IssueBatch(ctx context.Context, campaignID string, recipients []string) ([]IssuedToken, error) {
	if len(recipients) == 0 {
		return nil, errors.New("no recipients")
	}

	batchID := uuid.NewString()
	issued := make([]IssuedToken, 0, len(recipients))
	for _, recipient := range recipients {
		value, err := NewValue()
		if err != nil {
			return nil, err
		}
		t := &Token{
			Value:      value,
			CampaignID: campaignID,
			Recipient:  recipient,
			BatchID:    batchID,
			CreatedAt:  time.Now(),
		}
		if err := m.store.Insert(ctx, t); err != nil {
			return nil, fmt.Errorf("inserting token for %s: %w", recipient, err)
		}
		issued = append(issued, IssuedToken{Recipient: recipient, Value: value})
	}
	return issued, nil
}

// Validate looks a token up, serving repeated reads from the cache. The
// cache never answers state-flag questions authoritatively; callers that
// need the swap use MarkUsed.
func (m *Manager) Validate(ctx context.Context, value string) (*Token, error) {
	if t, ok := m.cache.get(value); ok {
		return t, nil
	}
	t, err := m.store.Get(ctx, value)
	if err != nil {
		return nil, err
	}
	m.cache.put(t)
	return t, nil
}

// MarkUsed flips the token to used through the durable store's CAS and
// invalidates the cache entry.
func (m *Manager) MarkUsed(ctx context.Context, value string) error {
	m.cache.invalidate(value)
	return m.store.MarkUsed(ctx, value)
}

// MarkCompleted flips the token to completed after a successful
// submission.
func (m *Manager) MarkCompleted(ctx context.Context, value string) error {
	m.cache.invalidate(value)
	return m.store.MarkCompleted(ctx, value)
}

// Delete permanently disables a token.
func (m *Manager) Delete(ctx context.Context, value string) error {
	m.cache.invalidate(value)
	return m.store.Delete(ctx, value)
}

// ListByCampaign returns every token issued for a campaign.
func (m *Manager) ListByCampaign(ctx context.Context, campaignID string) ([]*Token, error) {
	return m.store.ListByCampaign(ctx, campaignID)
}
