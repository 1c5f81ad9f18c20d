package proof

import (
	"bytes"

	"github.com/forestrie/go-merkletree/merklehash"
)

// Verify recomputes the root from p using h and compares it against root.
// It is pure and stateless: calling it repeatedly with the same arguments
// always yields the same answer.
func Verify(h merklehash.Hash, root []byte, p Proof) bool {
	if int(p.Height) != len(p.Siblings) || len(p.Siblings) != len(p.SiblingIsRight) {
		return false
	}

	digest := h.Sum(p.Leaf)
	for i := 0; i < len(p.Siblings); i++ {
		sibling := p.Siblings[i]
		var combined []byte
		if p.SiblingIsRight[i] {
			combined = concat(digest, sibling)
		} else {
			combined = concat(sibling, digest)
		}
		digest = h.Sum(combined)
	}
	return bytes.Equal(digest, root)
}

func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
