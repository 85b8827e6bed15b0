package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("U%04d", i)
	}
	return ids
}

func TestChunk_SplitsPreservingOrder(t *testing.T) {
	ids := makeIDs(1200)
	chunks := Chunk(ids, 500)
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], 500)
	require.Len(t, chunks[1], 500)
	require.Len(t, chunks[2], 200)

	var joined []string
	for _, c := range chunks {
		joined = append(joined, c...)
	}
	require.Equal(t, ids, joined)
}

func TestChunk_ExactMultipleAndSmall(t *testing.T) {
	require.Len(t, Chunk(makeIDs(1000), 500), 2)
	require.Equal(t, [][]string{{"a", "b"}}, Chunk([]string{"a", "b"}, 500))
	require.Nil(t, Chunk(nil, 500))
	require.Nil(t, Chunk([]string{"a"}, 0))
}

func TestChunk_AppendDoesNotClobberNextChunk(t *testing.T) {
	ids := makeIDs(4)
	chunks := Chunk(ids, 2)
	_ = append(chunks[0], "X")
	require.Equal(t, "U0002", chunks[1][0])
}

func TestNewPacer(t *testing.T) {
	require.Nil(t, NewPacer(0))
	require.Nil(t, NewPacer(-1))
	p := NewPacer(1000)
	require.NotNil(t, p)
	require.NoError(t, p.Wait(context.Background()))
}
