package tokens

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore implements Store for testing without a database. The mutex
// gives the same compare-and-swap guarantee the SQL UPDATE provides.
type InMemoryStore struct {
	mu     sync.Mutex
	tokens map[string]*Token
}

// NewInMemoryStore creates an in-memory token store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tokens: make(map[string]*Token)}
}

// Insert stores a token in memory.
func (s *InMemoryStore) Insert(ctx context.Context, t *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *t
	s.tokens[t.Value] = &copy
	return nil
}

// Get returns a copy of the stored token.
func (s *InMemoryStore) Get(ctx context.Context, value string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[value]
	if !ok {
		return nil, ErrTokenNotFound
	}
	copy := *t
	return &copy, nil
}

// MarkUsed flips unused -> used under the store lock.
func (s *InMemoryStore) MarkUsed(ctx context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[value]
	if !ok {
		return ErrTokenNotFound
	}
	if t.Completed {
		return ErrTokenAlreadyCompleted
	}
	if t.Used {
		return ErrTokenAlreadyUsed
	}
	t.Used = true
	t.UsedAt = time.Now()
	return nil
}

// MarkCompleted flips used -> completed under the store lock.
func (s *InMemoryStore) MarkCompleted(ctx context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[value]
	if !ok {
		return ErrTokenNotFound
	}
	if t.Completed {
		return ErrTokenAlreadyCompleted
	}
	if !t.Used {
		return ErrTokenNotUsed
	}
	t.Completed = true
	t.CompletedAt = time.Now()
	return nil
}

// Delete removes a token from memory.
func (s *InMemoryStore) Delete(ctx context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[value]; !ok {
		return ErrTokenNotFound
	}
	delete(s.tokens, value)
	return nil
}

// ListByCampaign returns all tokens for a campaign.
func (s *InMemoryStore) ListByCampaign(ctx context.Context, campaignID string) ([]*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*Token
	for _, t := range s.tokens {
		if t.CampaignID == campaignID {
			copy := *t
			result = append(result, &copy)
		}
	}
	return result, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
