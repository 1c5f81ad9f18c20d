// Package streambuild constructs a Merkle root from a lazy leaf source by
// spilling each level's digests to a scratch file, keeping peak memory
// O(1) in the leaf count. It returns only the root, height, leaf count,
// and (when requested) a partial-tree cache of the top levels — callers
// needing repeated proofs pair that cache with ProveFromStream, or use
// merkletree.Build instead.
package streambuild

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/forestrie/go-merkletree/leafsource"
	"github.com/forestrie/go-merkletree/merkleerr"
	"github.com/forestrie/go-merkletree/merklehash"
	"github.com/forestrie/go-merkletree/pairing"
	"github.com/forestrie/go-merkletree/treecache"
)

// Result is the small, immutable outcome of a streaming build.
type Result struct {
	Root      []byte
	Height    int
	LeafCount int
	// Cache is the populated partial-tree cache when one was requested
	// via WithCacheTopLevels or WithCacheBand, nil otherwise. It is the
	// only per-node artifact that survives the build; pair it with
	// ProveFromStream to generate proofs without re-hashing the upper
	// levels.
	Cache *treecache.Cache
}

// Option configures a Build call.
type Option func(*config)

type config struct {
	baseDir        string
	log            *zap.SugaredLogger
	cacheRequested bool
	explicitBand   bool
	band           treecache.Band
	topLevels      int
}

// WithScratchDir overrides the parent directory scratch directories are
// created under (default os.TempDir()).
func WithScratchDir(dir string) Option {
	return func(c *config) { c.baseDir = dir }
}

// WithLogger attaches a logger for suspension-point and cleanup
// diagnostics. A nil logger (the default) disables logging entirely.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *config) { c.log = log }
}

// WithCacheTopLevels requests that the build populate a partial-tree
// cache with the top k levels below the root, resolved to a band once
// the leaf count (and therefore the height) is known. The cache is
// returned in Result.Cache.
func WithCacheTopLevels(k int) Option {
	return func(c *config) {
		c.cacheRequested = true
		c.explicitBand = false
		c.topLevels = k
	}
}

// WithCacheBand requests that the build populate a partial-tree cache
// with the inclusive level band [start, end]. The band is validated
// against the tree height once the leaf count is known.
func WithCacheBand(start, end int) Option {
	return func(c *config) {
		c.cacheRequested = true
		c.explicitBand = true
		c.band = treecache.Band{Start: start, End: end}
	}
}

// Build drives the AcceptingLeaves -> BuildingLevels -> Done state
// machine: it hashes leaves as they arrive from src, appends each digest
// to a level-0 scratch file, then
// iteratively folds each level's file into the next until one digest
// remains (the root). Scratch files are always removed before Build
// returns, on every exit path.
//
// Build fails with merkleerr.ErrInvalidArgument if src is nil, with
// merkleerr.ErrEmptyInput if src yields no leaves, and with
// merkleerr.ErrCancelled if ctx is cancelled at a suspension point
// (pulling the next leaf, writing a frame, or reading a frame).
func Build(ctx context.Context, src leafsource.Source, h merklehash.Hash, opts ...Option) (Result, error) {
	if src == nil {
		return Result{}, fmt.Errorf("%w: leaf producer is nil", merkleerr.ErrInvalidArgument)
	}

	cfg := config{baseDir: os.TempDir()}
	for _, opt := range opts {
		opt(&cfg)
	}

	dir, err := newScratchDir(cfg.baseDir, cfg.log)
	if err != nil {
		return Result{}, err
	}
	defer dir.close()

	leafCount, err := acceptLeaves(ctx, dir, src, h)
	if err != nil {
		return Result{}, err
	}
	if leafCount == 0 {
		return Result{}, fmt.Errorf("%w: streaming build observed zero leaves", merkleerr.ErrEmptyInput)
	}

	cb, err := newCacheBuilder(cfg, leafCount, h)
	if err != nil {
		return Result{}, err
	}

	root, height, err := buildLevels(ctx, dir, leafCount, h, cb, cfg.log)
	if err != nil {
		return Result{}, err
	}

	res := Result{Root: root, Height: height, LeafCount: leafCount}
	if cb != nil {
		res.Cache = cb.Finish()
	}
	return res, nil
}

// newCacheBuilder resolves the requested cache band now that the leaf
// count (and so the height) is known, or returns nil when no cache was
// requested.
func newCacheBuilder(cfg config, leafCount int, h merklehash.Hash) (*treecache.Builder, error) {
	if !cfg.cacheRequested {
		return nil, nil
	}
	height := pairing.Height(leafCount)
	band := cfg.band
	if !cfg.explicitBand {
		var err error
		band, err = treecache.TopLevels(height, cfg.topLevels)
		if err != nil {
			return nil, err
		}
	}
	return treecache.NewBuilder(h.Name(), h.Size(), height, uint64(leafCount), band, pairing.Levels(leafCount))
}

// acceptLeaves is the AcceptingLeaves state: it pulls every leaf from src,
// hashes it, and appends the digest to the level-0 scratch file.
func acceptLeaves(ctx context.Context, dir *scratchDir, src leafsource.Source, h merklehash.Hash) (int, error) {
	w, err := dir.levelWriter(0)
	if err != nil {
		return 0, err
	}
	defer w.Close()

	count := 0
	for {
		if err := checkCancelled(ctx); err != nil {
			return 0, err
		}
		leaf, ok, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return 0, wrapCancellation(ctx.Err())
			}
			return 0, fmt.Errorf("%w: pulling next leaf: %v", merkleerr.ErrIOFailure, err)
		}
		if !ok {
			break
		}

		if err := checkCancelled(ctx); err != nil {
			return 0, err
		}
		digest := h.Sum(leaf)
		if err := writeFrame(w, digest); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

// buildLevels is the BuildingLevels(k) state: it repeatedly folds level k
// into level k+1 until exactly one digest remains, which is the root.
// When cb is non-nil, every digest whose level falls inside cb's band is
// recorded as it is read back off its scratch file; every non-root level
// is fully read by exactly one fold, so the band is always completely
// populated by the time the root is reached.
func buildLevels(ctx context.Context, dir *scratchDir, leafCount int, h merklehash.Hash, cb *treecache.Builder, log *zap.SugaredLogger) ([]byte, int, error) {
	height := 0
	count := leafCount

	for count > 1 {
		if err := checkCancelled(ctx); err != nil {
			return nil, 0, err
		}

		next, err := foldLevel(ctx, dir, height, h, cb)
		if err != nil {
			return nil, 0, err
		}
		dir.deleteLevel(height)
		if log != nil {
			log.Debugw("folded merkle tree level", "level", height, "nodes", count, "parents", next)
		}

		height++
		count = next
	}

	root, err := readSingleDigest(dir, height)
	if err != nil {
		return nil, 0, err
	}
	dir.deleteLevel(height)
	if cb != nil {
		cb.Set(height, 0, root)
	}
	return root, height, nil
}

// foldLevel reads level's scratch file two digests at a time, writing the
// parent hash to level+1's scratch file, applying duplication padding to
// an unpaired final digest. It returns the number of parents written.
func foldLevel(ctx context.Context, dir *scratchDir, level int, h merklehash.Hash, cb *treecache.Builder) (int, error) {
	r, err := dir.levelReader(level)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	w, err := dir.levelWriter(level + 1)
	if err != nil {
		return 0, err
	}
	defer w.Close()

	parents := 0
	childIdx := 0
	for {
		if err := checkCancelled(ctx); err != nil {
			return 0, err
		}
		left, ok, err := readFrame(r)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		if cb != nil {
			cb.Set(level, childIdx, left)
		}
		childIdx++

		if err := checkCancelled(ctx); err != nil {
			return 0, err
		}
		right, ok, err := readFrame(r)
		if err != nil {
			return 0, err
		}
		if !ok {
			right = left // duplication padding: unpaired last node hashed with itself
		} else {
			if cb != nil {
				cb.Set(level, childIdx, right)
			}
			childIdx++
		}

		parent := h.Sum(concat(left, right))
		if err := writeFrame(w, parent); err != nil {
			return 0, err
		}
		parents++
	}
	return parents, nil
}

// readSingleDigest reads the one remaining digest from level's scratch
// file — the terminal state of buildLevels.
func readSingleDigest(dir *scratchDir, level int) ([]byte, error) {
	r, err := dir.levelReader(level)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	digest, ok, err := readFrame(r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: level %d scratch file had no digest", merkleerr.ErrIOFailure, level)
	}
	return digest, nil
}

func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return wrapCancellation(err)
	}
	return nil
}

func wrapCancellation(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", merkleerr.ErrCancelled, err)
}

func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
