// Package merkle builds binary Merkle trees over ordered 32-byte leaves and
// produces inclusion proofs against their roots.
//
// The tree covers the commitments of a campaign in insertion order; the
// same algorithm folds per-campaign roots into a university-wide root.
// Leaf order is load-bearing: proofs are only valid against a root computed
// from the exact same ordering.
//
// When a level holds an odd number of nodes the last node is duplicated
// before hashing. This tie-break is a protocol constant; an implementation
// that promotes the odd node unhashed instead would produce incompatible
// roots for every odd-sized level.
package merkle

import (
	"crypto/sha256"
	"errors"
	"fmt"
)

// HashSize is the byte length of every node in the tree.
const HashSize = 32

// OddLevelRule names the tie-break applied to odd-sized levels. Kept as an
// exported constant so interoperating implementations can assert on it.
const OddLevelRule = "duplicate-last-node"

// Root is the 32-byte digest summarizing an ordered leaf set.
type Root [HashSize]byte

// ErrNoLeaves is returned when a tree operation is attempted over an empty
// leaf list.
var ErrNoLeaves = errors.New("merkle: no leaves")

// ProofStep is one level of an inclusion proof: the sibling hash and which
// side it sits on.
type ProofStep struct {
	Sibling [HashSize]byte `json:"sibling"`
	// Left is true when the sibling is the left input of the parent hash.
	Left bool `json:"left"`
}

// Proof is the ordered sibling path from a leaf up to the root.
type Proof struct {
	Index int         `json:"index"`
	Steps []ProofStep `json:"steps"`
}

func hashPair(left, right [HashSize]byte) [HashSize]byte {
	h := sha256.New()
	h.Write(left[:])
	h.Write(right[:])
	var out [HashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// BuildRoot computes the root over leaves in the given order. A single leaf
// is its own root.
func BuildRoot(leaves [][HashSize]byte) (Root, error) {
	if len(leaves) == 0 {
		return Root{}, ErrNoLeaves
	}

	level := make([][HashSize]byte, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([][HashSize]byte, len(level)/2)
		for i := range next {
			next[i] = hashPair(level[2*i], level[2*i+1])
		}
		level = next
	}

	return Root(level[0]), nil
}

// Prove returns the inclusion proof for leaves[index] against the root
// BuildRoot computes over the same ordering.
func Prove(leaves [][HashSize]byte, index int) (Proof, error) {
	if len(leaves) == 0 {
		return Proof{}, ErrNoLeaves
	}
	if index < 0 || index >= len(leaves) {
		return Proof{}, fmt.Errorf("merkle: index %d out of range for %d leaves", index, len(leaves))
	}

	proof := Proof{Index: index}
	level := make([][HashSize]byte, len(leaves))
	copy(level, leaves)
	pos := index

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}

		var step ProofStep
		if pos%2 == 0 {
			step = ProofStep{Sibling: level[pos+1], Left: false}
		} else {
			step = ProofStep{Sibling: level[pos-1], Left: true}
		}
		proof.Steps = append(proof.Steps, step)

		next := make([][HashSize]byte, len(level)/2)
		for i := range next {
			next[i] = hashPair(level[2*i], level[2*i+1])
		}
		level = next
		pos /= 2
	}

	return proof, nil
}

// VerifyProof recomputes the path from leaf through the proof and compares
// against the claimed root.
func VerifyProof(leaf [HashSize]byte, proof Proof, root Root) bool {
	current := leaf
	for _, step := range proof.Steps {
		if step.Left {
			current = hashPair(step.Sibling, current)
		} else {
			current = hashPair(current, step.Sibling)
		}
	}
	return current == [HashSize]byte(root)
}

// FoldRoots combines per-campaign roots into a single university-wide root
// using the same tree construction, each campaign root acting as a leaf.
func FoldRoots(campaignRoots []Root) (Root, error) {
	leaves := make([][HashSize]byte, len(campaignRoots))
	for i, r := range campaignRoots {
		leaves[i] = [HashSize]byte(r)
	}
	return BuildRoot(leaves)
}

// Bytes returns the root as a byte slice.
func (r Root) Bytes() []byte {
	return r[:]
}

// IsZero reports whether the root is all zeroes, the unpublished state.
func (r Root) IsZero() bool {
	return r == Root{}
}
