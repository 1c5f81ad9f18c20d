package pairing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeightBoundaries(t *testing.T) {
	require.Equal(t, 0, Height(1))
	require.Equal(t, 1, Height(2))
	require.Equal(t, 2, Height(3))
	require.Equal(t, 2, Height(4))
	require.Equal(t, 3, Height(5))
}

func TestLevelsTerminatesAtOneNode(t *testing.T) {
	for n := 1; n <= 21; n++ {
		levels := Levels(n)
		require.Equal(t, n, levels[0])
		require.Equal(t, 1, levels[len(levels)-1])
		require.Equal(t, Height(n), len(levels)-1)
		for i := 1; i < len(levels); i++ {
			prev := levels[i-1]
			require.Equal(t, (prev+1)/2, levels[i])
		}
	}
}

func TestSiblingIndexDuplicatesLastOddNode(t *testing.T) {
	// level size 3: indices 0,1 pair normally; index 2 has no sibling.
	require.Equal(t, 1, SiblingIndex(0, 3))
	require.Equal(t, 0, SiblingIndex(1, 3))
	require.Equal(t, 2, SiblingIndex(2, 3))
	require.True(t, IsDuplicate(2, 3))
	require.False(t, IsDuplicate(0, 3))
	require.False(t, IsDuplicate(1, 3))
}

func TestSiblingIndexEvenLevelNeverDuplicates(t *testing.T) {
	for i := 0; i < 4; i++ {
		require.False(t, IsDuplicate(i, 4))
	}
}

func TestSiblingIsRightOrientation(t *testing.T) {
	require.True(t, SiblingIsRight(0))
	require.False(t, SiblingIsRight(1))
	require.True(t, SiblingIsRight(2))
	require.False(t, SiblingIsRight(3))
}

func TestParentIndex(t *testing.T) {
	require.Equal(t, 0, ParentIndex(0))
	require.Equal(t, 0, ParentIndex(1))
	require.Equal(t, 1, ParentIndex(2))
	require.Equal(t, 1, ParentIndex(3))
}
