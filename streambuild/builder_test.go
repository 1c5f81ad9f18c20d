package streambuild

import (
	"context"
	"os"
	"testing"

	"github.com/forestrie/go-merkletree/leafsource"
	"github.com/forestrie/go-merkletree/merkleerr"
	"github.com/forestrie/go-merkletree/merklehash"
	"github.com/forestrie/go-merkletree/merkletree"
	"github.com/forestrie/go-merkletree/proof"
	"github.com/forestrie/go-merkletree/testutil"
	"github.com/forestrie/go-merkletree/treecache"
	"github.com/stretchr/testify/require"
)

func leaves(n int, prefix string) [][]byte {
	return testutil.GenerateLeaves(n, prefix)
}

func TestBuildFailsOnEmptyInput(t *testing.T) {
	src := leafsource.FromSequence(leafsource.FromSlice(nil))
	_, err := Build(context.Background(), src, merklehash.SHA256(), WithScratchDir(t.TempDir()))
	require.Error(t, err)
}

func TestBuildRejectsNilSource(t *testing.T) {
	_, err := Build(context.Background(), nil, merklehash.SHA256(), WithScratchDir(t.TempDir()))
	require.Error(t, err)
}

func TestBuildWithLoggerLogsLevelFolds(t *testing.T) {
	data := leaves(9, "logged")
	src := leafsource.FromSequence(leafsource.FromSlice(data))
	res, err := Build(context.Background(), src, merklehash.SHA256(),
		WithScratchDir(t.TempDir()), WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)
	require.Equal(t, 9, res.LeafCount)
}

func TestStreamingMatchesInMemoryRoot(t *testing.T) {
	data := leaves(75, "data")

	tr, err := merkletree.Build(leafsource.FromSlice(data), merklehash.SHA256())
	require.NoError(t, err)
	wantRoot, wantHeight, wantCount := tr.Metadata()

	res, err := Build(context.Background(), leafsource.FromSequence(leafsource.FromSlice(data)), merklehash.SHA256(), WithScratchDir(t.TempDir()))
	require.NoError(t, err)

	require.Equal(t, wantRoot, res.Root)
	require.Equal(t, wantHeight, res.Height)
	require.Equal(t, wantCount, res.LeafCount)
}

func TestStreamingProofsMatchInMemoryProofs(t *testing.T) {
	data := leaves(75, "data")

	tr, err := merkletree.Build(leafsource.FromSlice(data), merklehash.SHA256())
	require.NoError(t, err)
	root, height, count := tr.Metadata()

	wantProof, err := tr.GenerateProof(30)
	require.NoError(t, err)

	gotProof, err := ProveFromStream(context.Background(), leafsource.FromSlice(data), merklehash.SHA256(), count, height, 30, nil)
	require.NoError(t, err)

	require.Equal(t, wantProof, gotProof)
	require.True(t, proof.Verify(merklehash.SHA256(), root, gotProof))
}

func TestSingleLeafStreamingBuild(t *testing.T) {
	res, err := Build(context.Background(), leafsource.FromSequence(leafsource.FromSlice([][]byte{[]byte("only")})), merklehash.SHA256(), WithScratchDir(t.TempDir()))
	require.NoError(t, err)
	require.Equal(t, 0, res.Height)
	require.Equal(t, 1, res.LeafCount)
	require.Equal(t, merklehash.SHA256().Sum([]byte("only")), res.Root)
}

func TestCancellationAbortsBuildAndCleansScratch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	_, err := Build(ctx, leafsource.FromSequence(leafsource.FromSlice(leaves(10, "x"))), merklehash.SHA256(), WithScratchDir(dir))
	require.ErrorIs(t, err, merkleerr.ErrCancelled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "scratch directory must be removed on cancellation")
}

func TestSuccessfulBuildRemovesScratchFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := Build(context.Background(), leafsource.FromSequence(leafsource.FromSlice(leaves(10, "x"))), merklehash.SHA256(), WithScratchDir(dir))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "scratch directory must be removed on success")
}

func TestStreamingBuildPopulatesCache(t *testing.T) {
	data := leaves(100, "block")

	res, err := Build(context.Background(), leafsource.FromSequence(leafsource.FromSlice(data)), merklehash.SHA256(),
		WithScratchDir(t.TempDir()), WithCacheTopLevels(3))
	require.NoError(t, err)
	require.NotNil(t, res.Cache)

	hdr := res.Cache.Header()
	require.Equal(t, merklehash.NameSHA256, hdr.HashName)
	require.Equal(t, res.Height, hdr.Height)
	require.Equal(t, treecache.Band{Start: res.Height - 3, End: res.Height - 1}, hdr.Band)

	withoutCache, err := ProveFromStream(context.Background(), leafsource.FromSlice(data), merklehash.SHA256(), res.LeafCount, res.Height, 50, nil)
	require.NoError(t, err)

	withCache, err := ProveFromStream(context.Background(), leafsource.FromSlice(data), merklehash.SHA256(), res.LeafCount, res.Height, 50, res.Cache)
	require.NoError(t, err)

	require.Equal(t, withoutCache, withCache)
	require.True(t, proof.Verify(merklehash.SHA256(), res.Root, withCache))

	snap := res.Cache.Stats()
	require.Greater(t, snap.Hits, int64(0))
}

func TestStreamingCacheMatchesInMemoryCacheDigests(t *testing.T) {
	data := leaves(75, "data")

	tr, err := merkletree.Build(leafsource.FromSlice(data), merklehash.SHA256(), merkletree.WithCacheTopLevels(2))
	require.NoError(t, err)
	_, height, _ := tr.Metadata()

	res, err := Build(context.Background(), leafsource.FromSequence(leafsource.FromSlice(data)), merklehash.SHA256(),
		WithScratchDir(t.TempDir()), WithCacheTopLevels(2))
	require.NoError(t, err)
	require.NotNil(t, res.Cache)

	for lvl := height - 2; lvl < height; lvl++ {
		for idx := 0; ; idx++ {
			want, ok := tr.Cache().Get(lvl, idx)
			if !ok {
				break
			}
			got, ok := res.Cache.Get(lvl, idx)
			require.True(t, ok, "level %d index %d", lvl, idx)
			require.Equal(t, want, got, "level %d index %d", lvl, idx)
		}
	}
}

func TestCacheAccelerationHitsRecorded(t *testing.T) {
	data := leaves(100, "block")

	tr, err := merkletree.Build(leafsource.FromSlice(data), merklehash.SHA256(), merkletree.WithCacheTopLevels(3))
	require.NoError(t, err)
	root, height, count := tr.Metadata()

	withoutCache, err := ProveFromStream(context.Background(), leafsource.FromSlice(data), merklehash.SHA256(), count, height, 50, nil)
	require.NoError(t, err)

	cache := tr.Cache()
	require.NotNil(t, cache)
	cache.ResetStats()

	withCache, err := ProveFromStream(context.Background(), leafsource.FromSlice(data), merklehash.SHA256(), count, height, 50, cache)
	require.NoError(t, err)

	require.Equal(t, withoutCache, withCache)
	require.True(t, proof.Verify(merklehash.SHA256(), root, withCache))

	snap := cache.Stats()
	require.Greater(t, snap.Hits, int64(0))
}

func TestProveFromStreamRejectsOutOfRangeIndex(t *testing.T) {
	data := leaves(10, "x")
	_, err := ProveFromStream(context.Background(), leafsource.FromSlice(data), merklehash.SHA256(), 10, 4, 10, (*treecache.Cache)(nil))
	require.ErrorIs(t, err, merkleerr.ErrInvalidArgument)
}

func TestProveFromStreamRejectsNilSequence(t *testing.T) {
	_, err := ProveFromStream(context.Background(), nil, merklehash.SHA256(), 10, 4, 0, nil)
	require.ErrorIs(t, err, merkleerr.ErrInvalidArgument)
}
