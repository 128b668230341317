package unormalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashFilenameStable(t *testing.T) {
	h1 := HashFilename("Documents", false)
	h2 := HashFilename("Documents", false)
	require.Equal(t, h1, h2)
	require.Equal(t, uint32(len("Documents")+1), h1&NameLenHashMask)
}

func TestHashFilenameCaseFold(t *testing.T) {
	require.Equal(t, HashFilename("README.TXT", true), HashFilename("readme.txt", true))
	require.NotEqual(t, HashFilename("README.TXT", false), HashFilename("readme.txt", false))
}

func TestCompareCaseFold(t *testing.T) {
	require.Equal(t, 0, Compare("Hello", "hello", true))
	require.NotEqual(t, 0, Compare("Hello", "hello", false))
}

func TestCompareOrdering(t *testing.T) {
	require.Negative(t, Compare("abc", "abd", false))
	require.Positive(t, Compare("abd", "abc", false))
}

func TestNormalizeFoldNFD(t *testing.T) {
	composed := "é" // é, precomposed
	decomposed := "é"
	require.True(t, Equal(composed, decomposed, false))
}
