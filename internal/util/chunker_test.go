package util

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkText(t *testing.T) {
	text := "abcdefghijklmnopqrstuvwxyz"
	chunks, err := ChunkText(text, 10, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"abcdefghij", "ijklmnopqr", "qrstuvwxyz"}, chunks)
}

func TestChunkTextScenarioLengths(t *testing.T) {
	text := strings.Repeat("x", 2500)
	chunks, err := ChunkText(text, 1000, 200)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], 1000)
	require.Len(t, chunks[1], 1000)
	require.Len(t, chunks[2], 900)
}

func TestChunkTextEdgeCases(t *testing.T) {
	chunks, err := ChunkText("", 10, 2)
	require.NoError(t, err)
	require.NotNil(t, chunks)
	require.Empty(t, chunks)

	chunks, err = ChunkText("  short  ", 100, 20)
	require.NoError(t, err)
	require.Equal(t, []string{"short"}, chunks)

	chunks, err = ChunkText("abcde     ", 5, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"abcde"}, chunks, "whitespace-only windows are skipped")
}

func TestChunkTextRejectsBadParameters(t *testing.T) {
	for _, tc := range []struct{ size, overlap int }{{0, 0}, {-1, 0}, {10, 10}, {10, 11}, {10, -1}} {
		_, err := ChunkText("text", tc.size, tc.overlap)
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrInvalidParameter), "size=%d overlap=%d", tc.size, tc.overlap)
	}
}

func TestChunkBoundsCoverTextWithOverlap(t *testing.T) {
	for _, n := range []int{1, 9, 10, 11, 57, 1000, 2500} {
		bounds, err := ChunkBounds(n, 10, 3)
		require.NoError(t, err)
		require.Equal(t, 0, bounds[0][0])
		require.Equal(t, n, bounds[len(bounds)-1][1])
		for i := 0; i+1 < len(bounds); i++ {
			require.Equal(t, 10, bounds[i][1]-bounds[i][0], "non-terminal window has full size")
			require.Equal(t, 3, bounds[i][1]-bounds[i+1][0], "consecutive windows share the overlap")
		}
	}
}

func TestChunkTextDeterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	a, err := ChunkText(text, 120, 30)
	require.NoError(t, err)
	b, err := ChunkText(text, 120, 30)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestChunkTextCountsRunes(t *testing.T) {
	chunks, err := ChunkText("héllo wörld", 5, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"héllo", "wörl", "d"}, chunks)
}
