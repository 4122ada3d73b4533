package tokens

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValue(t *testing.T) {
	first, err := NewValue()
	require.NoError(t, err)
	assert.Len(t, first, TokenValueSize*2)

	second, err := NewValue()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestIssueBatch(t *testing.T) {
	m := NewManager(NewInMemoryStore())
	ctx := context.Background()

	issued, err := m.IssueBatch(ctx, "C1", []string{"alice", "bob", "carol"})
	require.NoError(t, err)
	require.Len(t, issued, 3)

	seen := map[string]bool{}
	for _, it := range issued {
		assert.False(t, seen[it.Value], "token values must be unique")
		seen[it.Value] = true

		token, err := m.Validate(ctx, it.Value)
		require.NoError(t, err)
		assert.Equal(t, "C1", token.CampaignID)
		assert.Equal(t, it.Recipient, token.Recipient)
		assert.False(t, token.Used)
		assert.False(t, token.Completed)
	}

	listed, err := m.ListByCampaign(ctx, "C1")
	require.NoError(t, err)
	assert.Len(t, listed, 3)

	// All tokens of one call share a batch id.
	assert.Equal(t, listed[0].BatchID, listed[1].BatchID)

	_, err = m.IssueBatch(ctx, "C1", nil)
	assert.Error(t, err)
}

func TestTokenStateMachine_Monotonic(t *testing.T) {
	m := NewManager(NewInMemoryStore())
	ctx := context.Background()

	issued, err := m.IssueBatch(ctx, "C1", []string{"alice"})
	require.NoError(t, err)
	value := issued[0].Value

	// completed before used is rejected.
	assert.ErrorIs(t, m.MarkCompleted(ctx, value), ErrTokenNotUsed)

	require.NoError(t, m.MarkUsed(ctx, value))
	assert.ErrorIs(t, m.MarkUsed(ctx, value), ErrTokenAlreadyUsed)

	require.NoError(t, m.MarkCompleted(ctx, value))
	assert.ErrorIs(t, m.MarkCompleted(ctx, value), ErrTokenAlreadyCompleted)

	// A completed token can never be flipped back to used.
	assert.ErrorIs(t, m.MarkUsed(ctx, value), ErrTokenAlreadyCompleted)

	token, err := m.Validate(ctx, value)
	require.NoError(t, err)
	assert.True(t, token.Used)
	assert.True(t, token.Completed)
	assert.False(t, token.UsedAt.IsZero())
	assert.False(t, token.CompletedAt.IsZero())
}

func TestMarkUsed_ConcurrentSingleWinner(t *testing.T) {
	m := NewManager(NewInMemoryStore())
	ctx := context.Background()

	issued, err := m.IssueBatch(ctx, "C1", []string{"alice"})
	require.NoError(t, err)
	value := issued[0].Value

	const attempts = 32
	results := make([]error, attempts)
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = m.MarkUsed(ctx, value)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrTokenAlreadyUsed)
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent MarkUsed must win")
}

func TestValidate_CacheInvalidatedOnWrite(t *testing.T) {
	m := NewManager(NewInMemoryStore())
	ctx := context.Background()

	issued, err := m.IssueBatch(ctx, "C1", []string{"alice"})
	require.NoError(t, err)
	value := issued[0].Value

	// Prime the cache with the unused state.
	token, err := m.Validate(ctx, value)
	require.NoError(t, err)
	require.False(t, token.Used)

	require.NoError(t, m.MarkUsed(ctx, value))

	// The write must not leave the stale unused entry behind.
	token, err = m.Validate(ctx, value)
	require.NoError(t, err)
	assert.True(t, token.Used)
}

func TestValidate_UnknownToken(t *testing.T) {
	m := NewManager(NewInMemoryStore())
	_, err := m.Validate(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestDelete(t *testing.T) {
	m := NewManager(NewInMemoryStore())
	ctx := context.Background()

	issued, err := m.IssueBatch(ctx, "C1", []string{"alice"})
	require.NoError(t, err)
	value := issued[0].Value

	// Prime the cache, then make sure deletion drops both layers.
	_, err = m.Validate(ctx, value)
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, value))

	_, err = m.Validate(ctx, value)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	assert.ErrorIs(t, m.Delete(ctx, value), ErrTokenNotFound)
}

func TestStoreErrors_CarryStableCodes(t *testing.T) {
	// The sentinel messages are the stable code strings the HTTP layer
	// reports.
	assert.Equal(t, "TokenNotFound", ErrTokenNotFound.Error())
	assert.Equal(t, "TokenAlreadyUsed", ErrTokenAlreadyUsed.Error())
	assert.Equal(t, "TokenAlreadyCompleted", ErrTokenAlreadyCompleted.Error())
	assert.Equal(t, "TokenNotUsed", ErrTokenNotUsed.Error())
}
