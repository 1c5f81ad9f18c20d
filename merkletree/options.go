package merkletree

import "github.com/forestrie/go-merkletree/treecache"

// options gathers the optional cache configuration for Build. Its zero
// value requests no cache.
type options struct {
	cacheRequested bool
	explicitBand   bool
	band           treecache.Band
	topLevels      int
}

// Option configures a Build call.
type Option func(*options)

// WithCacheBand requests that the cache snapshot the given inclusive
// level band, [start, end].
func WithCacheBand(start, end int) Option {
	return func(o *options) {
		o.cacheRequested = true
		o.explicitBand = true
		o.band = treecache.Band{Start: start, End: end}
	}
}

// WithCacheTopLevels requests that the cache snapshot the top k levels
// below the root (resolved to a band once the tree height is known).
func WithCacheTopLevels(k int) Option {
	return func(o *options) {
		o.cacheRequested = true
		o.explicitBand = false
		o.topLevels = k
	}
}
