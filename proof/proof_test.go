package proof

import (
	"testing"

	"github.com/forestrie/go-merkletree/merklehash"
	"github.com/stretchr/testify/require"
)

func buildTwoLevelProof(h merklehash.Hash) (Proof, []byte) {
	leaf := []byte("data1")
	sibling := h.Sum([]byte("data2"))
	leafDigest := h.Sum(leaf)
	root := h.Sum(append(append([]byte{}, leafDigest...), sibling...))

	p := Proof{
		Leaf:           leaf,
		LeafIndex:      0,
		Height:         1,
		Siblings:       [][]byte{sibling},
		SiblingIsRight: []bool{true},
	}
	return p, root
}

func TestVerifyAcceptsValidProof(t *testing.T) {
	h := merklehash.SHA256()
	p, root := buildTwoLevelProof(h)
	require.True(t, Verify(h, root, p))
}

func TestVerifyRejectsTamperedSibling(t *testing.T) {
	h := merklehash.SHA256()
	p, root := buildTwoLevelProof(h)
	p.Siblings[0] = h.Sum([]byte("not-data2"))
	require.False(t, Verify(h, root, p))
}

func TestVerifySingleLeafTreeHasEmptyPath(t *testing.T) {
	h := merklehash.SHA256()
	leaf := []byte("only-leaf")
	root := h.Sum(leaf)
	p := Proof{Leaf: leaf, LeafIndex: 0, Height: 0}
	require.True(t, Verify(h, root, p))
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	h := merklehash.SHA256()
	p, _ := buildTwoLevelProof(h)

	encoded := Serialize(p)
	decoded, err := Deserialize(encoded)
	require.NoError(t, err)
	require.Equal(t, p, decoded)
}

func TestDeserializeRejectsBadMagic(t *testing.T) {
	h := merklehash.SHA256()
	p, _ := buildTwoLevelProof(h)
	encoded := Serialize(p)
	encoded[0] = 'X'

	_, err := Deserialize(encoded)
	require.Error(t, err)
}

func TestDeserializeRejectsBadVersion(t *testing.T) {
	h := merklehash.SHA256()
	p, _ := buildTwoLevelProof(h)
	encoded := Serialize(p)
	encoded[4] = 9

	_, err := Deserialize(encoded)
	require.Error(t, err)
}

func TestDeserializeRejectsSiblingCountMismatch(t *testing.T) {
	p := Proof{Leaf: []byte("x"), LeafIndex: 0, Height: 2, Siblings: [][]byte{{1}}, SiblingIsRight: []bool{true}}
	encoded := Serialize(p)
	_, err := Deserialize(encoded)
	require.Error(t, err)
}
