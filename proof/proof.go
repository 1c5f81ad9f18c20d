// Package proof defines the self-describing Merkle inclusion proof record,
// its bit-exact wire format, and its stateless verifier.
package proof

// Proof carries everything needed to recompute a root from a single leaf:
// the leaf payload, its position, the tree height, and the ordered
// sibling path with per-step orientation bits.
//
// Siblings and SiblingIsRight always have the same length, equal to
// Height. For a single-leaf tree (Height == 0) both are empty.
type Proof struct {
	Leaf           []byte
	LeafIndex      uint64
	Height         uint32
	Siblings       [][]byte
	SiblingIsRight []bool
}
