package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meomun1/anonsurvey/crypto"
)

func queuedPair(fill byte) (crypto.Commitment, crypto.Ciphertext) {
	var c crypto.Commitment
	var ct crypto.Ciphertext
	for i := range c {
		c[i] = fill
	}
	for i := range ct {
		ct[i] = fill
	}
	return c, ct
}

func TestSubmissionQueue_OrderPreserved(t *testing.T) {
	q := NewSubmissionQueue()

	for i := byte(1); i <= 3; i++ {
		c, ct := queuedPair(i)
		pending := q.Enqueue("C1", c, ct, "t")
		assert.Equal(t, int(i), pending)
	}
	assert.Equal(t, 3, q.Pending("C1"))

	pairs := q.Drain("C1")
	assert.Len(t, pairs, 3)
	for i, p := range pairs {
		expected, _ := queuedPair(byte(i + 1))
		assert.Equal(t, expected, p.commitment)
	}

	assert.Equal(t, 0, q.Pending("C1"))
	assert.Empty(t, q.Drain("C1"))
}

func TestSubmissionQueue_PerCampaignIsolation(t *testing.T) {
	q := NewSubmissionQueue()

	c, ct := queuedPair(1)
	q.Enqueue("C1", c, ct, "t1")
	q.Enqueue("C2", c, ct, "t2")

	assert.Len(t, q.Drain("C1"), 1)
	assert.Equal(t, 1, q.Pending("C2"))
}

func TestSubmissionQueue_RequeuePreservesOrder(t *testing.T) {
	q := NewSubmissionQueue()

	c1, ct1 := queuedPair(1)
	c2, ct2 := queuedPair(2)
	c3, ct3 := queuedPair(3)

	q.Enqueue("C1", c1, ct1, "t1")
	q.Enqueue("C1", c2, ct2, "t2")
	drained := q.Drain("C1")

	// A submission arrives while the failed batch is in flight.
	q.Enqueue("C1", c3, ct3, "t3")
	q.Requeue("C1", drained)

	pairs := q.Drain("C1")
	assert.Len(t, pairs, 3)
	assert.Equal(t, c1, pairs[0].commitment)
	assert.Equal(t, c2, pairs[1].commitment)
	assert.Equal(t, c3, pairs[2].commitment)

	// Requeueing nothing is a no-op.
	q.Requeue("C1", nil)
	assert.Equal(t, 0, q.Pending("C1"))
}
