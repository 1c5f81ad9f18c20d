// Package merklehash names the digest algorithms the tree builders and
// verifiers consume.
//
// Hash is a small, closed capability: a name for compatibility checks, a
// fixed digest size, and a pure function from bytes to digest. The three
// required variants (SHA256, SHA512, BLAKE3) are constructors, not a
// registry; callers needing a fourth algorithm implement the interface
// directly rather than registering with this package.
package merklehash

// Hash computes a fixed-width digest over a contiguous byte slice.
//
// Implementations must be deterministic: calling Sum twice with the same
// input must return byte-identical output. The parent combiner used by the
// tree builders is always Sum(left || right); no length prefixing or
// domain separation is applied, so the digest size is significant to the
// on-disk root.
type Hash interface {
	// Name identifies the algorithm. Compared byte-for-byte for
	// compatibility checks (e.g. when loading a cache file); case and
	// punctuation matter.
	Name() string

	// Size returns the fixed digest length in bytes.
	Size() int

	// Sum returns the digest of b. The returned slice has length Size()
	// and must not alias b.
	Sum(b []byte) []byte
}
