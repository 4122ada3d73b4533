package merkle

import (
	"crypto/sha256"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLeaves(n int) [][HashSize]byte {
	leaves := make([][HashSize]byte, n)
	for i := range leaves {
		leaves[i] = sha256.Sum256([]byte(fmt.Sprintf("leaf-%d", i)))
	}
	return leaves
}

func TestBuildRoot_SingleLeaf(t *testing.T) {
	leaves := testLeaves(1)

	root, err := BuildRoot(leaves)
	require.NoError(t, err)
	assert.Equal(t, Root(leaves[0]), root)
}

func TestBuildRoot_TwoLeaves(t *testing.T) {
	leaves := testLeaves(2)

	root, err := BuildRoot(leaves)
	require.NoError(t, err)

	h := sha256.New()
	h.Write(leaves[0][:])
	h.Write(leaves[1][:])
	var expected Root
	copy(expected[:], h.Sum(nil))
	assert.Equal(t, expected, root)
}

func TestBuildRoot_OddCountDuplicatesLast(t *testing.T) {
	leaves := testLeaves(3)

	root, err := BuildRoot(leaves)
	require.NoError(t, err)

	// Three leaves must hash exactly like four with the last doubled.
	padded := append(testLeaves(3), leaves[2])
	paddedRoot, err := BuildRoot(padded)
	require.NoError(t, err)
	assert.Equal(t, paddedRoot, root)
}

func TestBuildRoot_Empty(t *testing.T) {
	_, err := BuildRoot(nil)
	assert.ErrorIs(t, err, ErrNoLeaves)
}

func TestBuildRoot_OrderSensitive(t *testing.T) {
	leaves := testLeaves(4)

	root, err := BuildRoot(leaves)
	require.NoError(t, err)

	swapped := testLeaves(4)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	swappedRoot, err := BuildRoot(swapped)
	require.NoError(t, err)

	assert.NotEqual(t, root, swappedRoot)
}

func TestProve_AllIndices(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 7, 8, 10, 13} {
		leaves := testLeaves(n)
		root, err := BuildRoot(leaves)
		require.NoError(t, err)

		for i := 0; i < n; i++ {
			proof, err := Prove(leaves, i)
			require.NoError(t, err, "n=%d i=%d", n, i)
			assert.True(t, VerifyProof(leaves[i], proof, root), "n=%d i=%d", n, i)
		}
	}
}

func TestVerifyProof_WrongLeaf(t *testing.T) {
	leaves := testLeaves(5)
	root, err := BuildRoot(leaves)
	require.NoError(t, err)

	proof, err := Prove(leaves, 2)
	require.NoError(t, err)

	wrong := sha256.Sum256([]byte("not in the tree"))
	assert.False(t, VerifyProof(wrong, proof, root))
}

func TestVerifyProof_WrongRoot(t *testing.T) {
	leaves := testLeaves(5)
	proof, err := Prove(leaves, 0)
	require.NoError(t, err)

	assert.False(t, VerifyProof(leaves[0], proof, Root{}))
}

func TestVerifyProof_ProofForDifferentIndex(t *testing.T) {
	leaves := testLeaves(6)
	root, err := BuildRoot(leaves)
	require.NoError(t, err)

	proof, err := Prove(leaves, 3)
	require.NoError(t, err)

	assert.False(t, VerifyProof(leaves[4], proof, root))
}

func TestProve_IndexOutOfRange(t *testing.T) {
	leaves := testLeaves(3)

	_, err := Prove(leaves, -1)
	assert.Error(t, err)

	_, err = Prove(leaves, 3)
	assert.Error(t, err)

	_, err = Prove(nil, 0)
	assert.ErrorIs(t, err, ErrNoLeaves)
}

func TestLeafMutationChangesRoot(t *testing.T) {
	leaves := testLeaves(8)
	root, err := BuildRoot(leaves)
	require.NoError(t, err)

	leaves[5][0] ^= 0x01
	mutated, err := BuildRoot(leaves)
	require.NoError(t, err)

	assert.NotEqual(t, root, mutated)
}

func TestFoldRoots(t *testing.T) {
	var campaignRoots []Root
	for _, n := range []int{2, 3, 5} {
		r, err := BuildRoot(testLeaves(n))
		require.NoError(t, err)
		campaignRoots = append(campaignRoots, r)
	}

	finalRoot, err := FoldRoots(campaignRoots)
	require.NoError(t, err)
	assert.False(t, finalRoot.IsZero())

	// The fold is the same construction with campaign roots as leaves.
	leaves := make([][HashSize]byte, len(campaignRoots))
	for i, r := range campaignRoots {
		leaves[i] = [HashSize]byte(r)
	}
	direct, err := BuildRoot(leaves)
	require.NoError(t, err)
	assert.Equal(t, direct, finalRoot)

	_, err = FoldRoots(nil)
	assert.ErrorIs(t, err, ErrNoLeaves)
}

func TestRoot_IsZero(t *testing.T) {
	assert.True(t, Root{}.IsZero())

	r, err := BuildRoot(testLeaves(1))
	require.NoError(t, err)
	assert.False(t, r.IsZero())
}
