// Package merkletree builds and retains every internal hash of a complete
// binary Merkle tree in memory, giving O(height) proof generation with no
// rehashing after construction.
//
// Internal digests are stored as a flat arena indexed by (level, index)
// rather than as pointer-linked nodes: each level is a single []byte,
// digests packed contiguously, which keeps
// construction and proof extraction allocation-light and cache-friendly.
package merkletree

import (
	"fmt"

	"github.com/forestrie/go-merkletree/leafsource"
	"github.com/forestrie/go-merkletree/merkleerr"
	"github.com/forestrie/go-merkletree/merklehash"
	"github.com/forestrie/go-merkletree/pairing"
	"github.com/forestrie/go-merkletree/proof"
	"github.com/forestrie/go-merkletree/treecache"
)

// Tree is an immutable, fully materialized Merkle tree. Construct with
// Build; a Tree has no exported mutators.
type Tree struct {
	hash      merklehash.Hash
	leaves    [][]byte
	leafCount int
	height    int
	// levels[k] holds leafCount-at-level(k) digests, hash.Size() bytes
	// each, packed contiguously. levels[height] always has exactly one
	// digest: the root.
	levels [][]byte
	cache  *treecache.Cache
}

// Build materializes a tree over every leaf in seq using h. It fails if
// seq is nil or has no leaves.
func Build(seq leafsource.Sequence, h merklehash.Hash, opts ...Option) (*Tree, error) {
	if seq == nil {
		return nil, fmt.Errorf("%w: leaf producer is nil", merkleerr.ErrInvalidArgument)
	}
	n := seq.Len()
	if n < 1 {
		return nil, fmt.Errorf("%w: leaf count must be >= 1, got %d", merkleerr.ErrInvalidArgument, n)
	}

	var cfg options
	for _, opt := range opts {
		opt(&cfg)
	}

	height := pairing.Height(n)
	levelSizes := pairing.Levels(n)
	size := h.Size()

	t := &Tree{
		hash:      h,
		leaves:    make([][]byte, n),
		leafCount: n,
		height:    height,
		levels:    make([][]byte, height+1),
	}
	for i := 0; i < n; i++ {
		t.leaves[i] = seq.At(i)
	}

	t.levels[0] = make([]byte, levelSizes[0]*size)
	for i := 0; i < n; i++ {
		digest := h.Sum(t.leaves[i])
		copy(t.levels[0][i*size:(i+1)*size], digest)
	}
	for lvl := 1; lvl <= height; lvl++ {
		t.levels[lvl] = make([]byte, levelSizes[lvl]*size)
	}

	var cb *treecache.Builder
	if cfg.cacheRequested {
		band := cfg.band
		if !cfg.explicitBand {
			var err error
			band, err = treecache.TopLevels(height, cfg.topLevels)
			if err != nil {
				return nil, err
			}
		}
		var err error
		cb, err = treecache.NewBuilder(h.Name(), size, height, uint64(n), band, levelSizes)
		if err != nil {
			return nil, err
		}
	}

	recordIfCached := func(lvl, idx int, digest []byte) {
		if cb == nil {
			return
		}
		if lvl >= cb.Band().Start && lvl <= cb.Band().End {
			cb.Set(lvl, idx, digest)
		}
	}
	for i := 0; i < n; i++ {
		recordIfCached(0, i, t.levels[0][i*size:(i+1)*size])
	}

	for lvl := 0; lvl < height; lvl++ {
		childSize := levelSizes[lvl]
		for idx := 0; idx*2 < childSize; idx++ {
			left := t.digestAt(lvl, idx*2)
			var right []byte
			if idx*2+1 < childSize {
				right = t.digestAt(lvl, idx*2+1)
			} else {
				right = left // duplication padding
			}
			parent := h.Sum(concatDigests(left, right))
			copy(t.levels[lvl+1][idx*size:(idx+1)*size], parent)
			recordIfCached(lvl+1, idx, parent)
		}
	}

	if cb != nil {
		t.cache = cb.Finish()
	}

	return t, nil
}

// digestAt returns the digest stored at (level, index).
func (t *Tree) digestAt(level, index int) []byte {
	size := t.hash.Size()
	return t.levels[level][index*size : (index+1)*size]
}

// RootHash returns the digest of the root node.
func (t *Tree) RootHash() []byte {
	return t.digestAt(t.height, 0)
}

// Metadata returns (root, height, leafCount).
func (t *Tree) Metadata() (root []byte, height int, leafCount int) {
	return t.RootHash(), t.height, t.leafCount
}

// Leaf returns the raw payload retained for the leaf at index.
func (t *Tree) Leaf(index int) ([]byte, error) {
	if index < 0 || index >= t.leafCount {
		return nil, fmt.Errorf("%w: leaf index %d out of range for %d leaves",
			merkleerr.ErrInvalidArgument, index, t.leafCount)
	}
	return t.leaves[index], nil
}

// LevelDigest returns the digest stored at (level, index), an O(1) read
// into the arena.
func (t *Tree) LevelDigest(level, index int) ([]byte, error) {
	if level < 0 || level > t.height {
		return nil, fmt.Errorf("%w: level %d out of range for height %d", merkleerr.ErrInvalidArgument, level, t.height)
	}
	size := t.hash.Size()
	levelSize := len(t.levels[level]) / size
	if index < 0 || index >= levelSize {
		return nil, fmt.Errorf("%w: index %d out of range for level %d (size %d)",
			merkleerr.ErrInvalidArgument, index, level, levelSize)
	}
	return t.digestAt(level, index), nil
}

// GenerateProof walks from the leaf at index to the root, recording the
// sibling digest and orientation bit at each level. It fails when index is
// out of range.
func (t *Tree) GenerateProof(index int) (proof.Proof, error) {
	if index < 0 || index >= t.leafCount {
		return proof.Proof{}, fmt.Errorf("%w: leaf index %d out of range for %d leaves",
			merkleerr.ErrInvalidArgument, index, t.leafCount)
	}

	siblings := make([][]byte, t.height)
	orientations := make([]bool, t.height)

	idx := index
	for lvl := 0; lvl < t.height; lvl++ {
		levelSize := len(t.levels[lvl]) / t.hash.Size()
		sibIdx := pairing.SiblingIndex(idx, levelSize)
		sib := t.digestAt(lvl, sibIdx)
		// copy so callers can mutate the proof without aliasing the tree's arena.
		cp := make([]byte, len(sib))
		copy(cp, sib)
		siblings[lvl] = cp
		orientations[lvl] = pairing.SiblingIsRight(idx)
		idx = pairing.ParentIndex(idx)
	}

	leaf, err := t.Leaf(index)
	if err != nil {
		return proof.Proof{}, err
	}

	return proof.Proof{
		Leaf:           leaf,
		LeafIndex:      uint64(index),
		Height:         uint32(t.height),
		Siblings:       siblings,
		SiblingIsRight: orientations,
	}, nil
}

// HasCache reports whether Build was asked to populate a cache.
func (t *Tree) HasCache() bool { return t.cache != nil }

// CacheMetadata returns the header of the populated cache. It fails with
// merkleerr.ErrInconsistentState if no cache was requested.
func (t *Tree) CacheMetadata() (treecache.Header, error) {
	if t.cache == nil {
		return treecache.Header{}, fmt.Errorf("%w: no cache was configured for this tree", merkleerr.ErrInconsistentState)
	}
	return t.cache.Header(), nil
}

// CacheStatistics returns the current lookup counters for the populated
// cache. It fails with merkleerr.ErrInconsistentState if no cache was
// requested.
func (t *Tree) CacheStatistics() (treecache.Snapshot, error) {
	if t.cache == nil {
		return treecache.Snapshot{}, fmt.Errorf("%w: no cache was configured for this tree", merkleerr.ErrInconsistentState)
	}
	return t.cache.Stats(), nil
}

// SaveCache persists the populated cache to path. It fails with
// merkleerr.ErrInconsistentState if no cache was requested.
func (t *Tree) SaveCache(path string) error {
	if t.cache == nil {
		return fmt.Errorf("%w: no cache to save for this tree", merkleerr.ErrInconsistentState)
	}
	return t.cache.SaveFile(path)
}

// Cache returns the populated cache directly, or nil if none was
// requested. Exposed so streambuild.ProveFromStream can reuse a cache
// built alongside an in-memory tree.
func (t *Tree) Cache() *treecache.Cache { return t.cache }

func concatDigests(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
