// Package treecache implements the partial-tree cache: a named, versioned
// snapshot of a contiguous band of upper tree levels, serializable to and
// loadable from a bytewise-defined file format, used to accelerate proof
// generation from streamed data without re-hashing the full leaf set.
package treecache

import (
	"fmt"
	"sync/atomic"

	"github.com/forestrie/go-merkletree/merkleerr"
)

// Band is a contiguous, inclusive range of tree levels, [Start, End], with
// 0 <= Start <= End <= height. A band from TopLevels ends at height-1 and
// so excludes the root (at level == height), which is conveyed separately
// by whoever holds the cache; an explicit band may end at height, in which
// case its last level holds the root.
type Band struct {
	Start int
	End   int
}

// TopLevels resolves a "top K levels" request into a Band for a tree of
// the given height: (height-K, height-1). It fails if k is out of range.
func TopLevels(height, k int) (Band, error) {
	if k <= 0 || k > height {
		return Band{}, fmt.Errorf(
			"%w: top_levels_to_cache %d out of range for height %d", merkleerr.ErrInvalidArgument, k, height)
	}
	return Band{Start: height - k, End: height - 1}, nil
}

func validateBand(b Band, height int) error {
	if b.Start < 0 || b.End < b.Start || b.End > height {
		return fmt.Errorf("%w: cache band [%d, %d] invalid for height %d",
			merkleerr.ErrInvalidArgument, b.Start, b.End, height)
	}
	return nil
}

// Stats are the mutable lookup counters carried alongside an otherwise
// immutable Cache. They are safe to read and update concurrently: each
// field is a separate atomic counter so a shared Cache needs no mutex on
// the read-mostly proof-serving path.
type Stats struct {
	hits         atomic.Int64
	misses       atomic.Int64
	totalLookups atomic.Int64
}

// Snapshot is a point-in-time, non-atomic copy of Stats for reporting.
type Snapshot struct {
	Hits         int64
	Misses       int64
	TotalLookups int64
}

// HitRate returns hits / total_lookups * 100, or 0 when no lookups have
// been made.
func (s Snapshot) HitRate() float64 {
	if s.TotalLookups == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.TotalLookups) * 100
}

func (s *Stats) snapshot() Snapshot {
	return Snapshot{
		Hits:         s.hits.Load(),
		Misses:       s.misses.Load(),
		TotalLookups: s.totalLookups.Load(),
	}
}

func (s *Stats) reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.totalLookups.Store(0)
}

// Header describes the tree a Cache band was taken from.
type Header struct {
	HashName   string
	DigestSize int
	Height     int
	LeafCount  uint64
	Band       Band
}

// Cache holds the immutable digests for a contiguous band of upper tree
// levels plus a mutable statistics block. The zero value is not usable;
// construct with NewBuilder or Load.
type Cache struct {
	header Header
	// levels[i] holds the dense digest array for level header.Band.Start+i,
	// each digest header.DigestSize bytes, immutable after Finish/Load.
	levels [][]byte
	stats  Stats
}

// Header returns the immutable metadata describing this cache's band.
func (c *Cache) Header() Header { return c.header }

// Stats returns a snapshot of the current lookup counters.
func (c *Cache) Stats() Snapshot { return c.stats.snapshot() }

// ResetStats zeroes the lookup counters. Persisted cache data is
// unaffected; statistics are never part of the on-disk format.
func (c *Cache) ResetStats() { c.stats.reset() }

// Get looks up the digest for (level, index), recording a hit or a miss.
// ok is false when level is outside the cached band or index is outside
// that level's range; such a lookup is counted as a miss.
func (c *Cache) Get(level, index int) (digest []byte, ok bool) {
	c.stats.totalLookups.Add(1)

	if level < c.header.Band.Start || level > c.header.Band.End {
		c.stats.misses.Add(1)
		return nil, false
	}
	levelBytes := c.levels[level-c.header.Band.Start]
	size := c.header.DigestSize
	if index < 0 || (index+1)*size > len(levelBytes) {
		c.stats.misses.Add(1)
		return nil, false
	}

	c.stats.hits.Add(1)
	return levelBytes[index*size : (index+1)*size], true
}
