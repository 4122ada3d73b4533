package services

import (
	"sync"

	"github.com/meomun1/anonsurvey/crypto"
)

// pendingPair is one accepted submission waiting for the next ledger
// batch.
type pendingPair struct {
	commitment crypto.Commitment
	ciphertext crypto.Ciphertext
	token      string
}

// SubmissionQueue buffers accepted (commitment, ciphertext) pairs per
// campaign until the authority flushes them to the ledger in one batch.
// Insertion order inside a campaign is preserved; it becomes the Merkle
// leaf order once the batch lands on the ledger.
type SubmissionQueue struct {
	mu      sync.Mutex
	pending map[string][]pendingPair
}

// NewSubmissionQueue creates an empty queue.
func NewSubmissionQueue() *SubmissionQueue {
	return &SubmissionQueue{pending: make(map[string][]pendingPair)}
}

// Enqueue appends a pair to a campaign's pending list and returns the new
// pending count.
func (q *SubmissionQueue) Enqueue(campaignID string, commitment crypto.Commitment, ciphertext crypto.Ciphertext, token string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[campaignID] = append(q.pending[campaignID], pendingPair{
		commitment: commitment,
		ciphertext: ciphertext,
		token:      token,
	})
	return len(q.pending[campaignID])
}

// Drain removes and returns all pending pairs for a campaign. Callers that
// fail to persist the batch must Requeue it, otherwise the submissions are
// lost.
func (q *SubmissionQueue) Drain(campaignID string) []pendingPair {
	q.mu.Lock()
	defer q.mu.Unlock()
	pairs := q.pending[campaignID]
	delete(q.pending, campaignID)
	return pairs
}

// Requeue puts drained pairs back at the front, preserving their order.
func (q *SubmissionQueue) Requeue(campaignID string, pairs []pendingPair) {
	if len(pairs) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[campaignID] = append(pairs, q.pending[campaignID]...)
}

// Pending returns the number of queued pairs for a campaign.
func (q *SubmissionQueue) Pending(campaignID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending[campaignID])
}
