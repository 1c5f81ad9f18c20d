package streambuild

import (
	"context"
	"fmt"

	"github.com/forestrie/go-merkletree/leafsource"
	"github.com/forestrie/go-merkletree/merkleerr"
	"github.com/forestrie/go-merkletree/merklehash"
	"github.com/forestrie/go-merkletree/pairing"
	"github.com/forestrie/go-merkletree/proof"
	"github.com/forestrie/go-merkletree/treecache"
)

// ProveFromStream generates an inclusion proof for leafIndex without
// holding the full tree in memory: it hashes every leaf of seq once to
// derive level 0, then walks the proof path one level at a time. Below
// cache's band it folds digests level by level, the same as the streaming
// builder; once the walk reaches cache's band start, folding stops
// entirely and every remaining sibling is read from the cache in O(1).
// cache may be nil, in which case every level is folded from the leaves
// up.
//
// When cache is non-nil its band must reach height-1 (the level directly
// below the root) — a gap between the band and the root would leave no
// digest source for the levels in between, since folding has already
// stopped.
//
// seq must be the identical leaf sequence the tree was built over;
// leafCount and height describe that tree (as returned by Build).
func ProveFromStream(
	ctx context.Context, seq leafsource.Sequence, h merklehash.Hash,
	leafCount, height, leafIndex int, cache *treecache.Cache,
) (proof.Proof, error) {
	if seq == nil {
		return proof.Proof{}, fmt.Errorf("%w: leaf producer is nil", merkleerr.ErrInvalidArgument)
	}
	if leafIndex < 0 || leafIndex >= leafCount {
		return proof.Proof{}, fmt.Errorf("%w: leaf index %d out of range for %d leaves",
			merkleerr.ErrInvalidArgument, leafIndex, leafCount)
	}
	if seq.Len() != leafCount {
		return proof.Proof{}, fmt.Errorf("%w: leaf sequence length %d does not match leafCount %d",
			merkleerr.ErrInvalidArgument, seq.Len(), leafCount)
	}

	bandStart := height
	if cache != nil {
		band := cache.Header().Band
		if height > 0 && band.End < height-1 {
			return proof.Proof{}, fmt.Errorf(
				"%w: cache band [%d,%d] does not reach height-1 (%d), leaving a gap in the path to the root",
				merkleerr.ErrInvalidArgument, band.Start, band.End, height-1)
		}
		bandStart = band.Start
	}

	// Level 0 must always be rehashed from the source; nothing upstream of
	// this call retains it.
	level0 := make([][]byte, leafCount)
	for i := 0; i < leafCount; i++ {
		if err := checkCancelled(ctx); err != nil {
			return proof.Proof{}, err
		}
		level0[i] = h.Sum(seq.At(i))
	}

	levelSizes := pairing.Levels(leafCount)

	siblings := make([][]byte, height)
	orientations := make([]bool, height)

	current := level0
	idx := leafIndex
	for lvl := 0; lvl < height; lvl++ {
		levelSize := levelSizes[lvl]
		sibIdx := pairing.SiblingIndex(idx, levelSize)
		orientations[lvl] = pairing.SiblingIsRight(idx)

		if lvl >= bandStart {
			sib, ok := cache.Get(lvl, sibIdx)
			if !ok {
				return proof.Proof{}, fmt.Errorf(
					"%w: cache has no digest for level %d index %d within its band [%d,%d]",
					merkleerr.ErrInconsistentState, lvl, sibIdx, cache.Header().Band.Start, cache.Header().Band.End)
			}
			siblings[lvl] = append([]byte{}, sib...)
		} else {
			siblings[lvl] = current[sibIdx]
			current = nextLevel(current, levelSize, h)
		}
		idx = pairing.ParentIndex(idx)
	}

	return proof.Proof{
		Leaf:           seq.At(leafIndex),
		LeafIndex:      uint64(leafIndex),
		Height:         uint32(height),
		Siblings:       siblings,
		SiblingIsRight: orientations,
	}, nil
}

// nextLevel folds levelSize digests in current into their parents,
// applying duplication padding to an unpaired final digest.
func nextLevel(current [][]byte, levelSize int, h merklehash.Hash) [][]byte {
	parentCount := (levelSize + 1) / 2
	parents := make([][]byte, parentCount)
	for i := 0; i < parentCount; i++ {
		left := current[i*2]
		var right []byte
		if i*2+1 < levelSize {
			right = current[i*2+1]
		} else {
			right = left
		}
		parents[i] = h.Sum(concat(left, right))
	}
	return parents
}
