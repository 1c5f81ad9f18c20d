package leafsource

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromSequenceReplaysInOrder(t *testing.T) {
	seq := FromSlice([][]byte{[]byte("a"), []byte("b"), []byte("c")})
	src := FromSequence(seq)

	ctx := context.Background()
	var got [][]byte
	for {
		leaf, ok, err := src.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, leaf)
	}
	require.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, got)
}

func TestFromReaderDecodesLengthFramedLeaves(t *testing.T) {
	var buf bytes.Buffer
	for _, leaf := range [][]byte{[]byte("data1"), []byte("data2")} {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(leaf)))
		buf.Write(lenBuf[:])
		buf.Write(leaf)
	}

	src := FromReader(&buf)
	ctx := context.Background()

	leaf, ok, err := src.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("data1"), leaf)

	leaf, ok, err = src.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("data2"), leaf)

	_, ok, err = src.Next(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFromSequenceObservesCancellation(t *testing.T) {
	seq := FromSlice([][]byte{[]byte("a")})
	src := FromSequence(seq)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := src.Next(ctx)
	require.Error(t, err)
}
