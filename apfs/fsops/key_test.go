package fsops

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-apfs/apfs/types"
)

func TestBuildKeyRoundTrip(t *testing.T) {
	key := inodeKey(0x1234)
	id, typ, err := keyHeader(key)
	require.NoError(t, err)
	require.Equal(t, uint64(0x1234), id)
	require.Equal(t, types.ApfsTypeInode, typ)
}

func TestKeyHeaderTooShort(t *testing.T) {
	_, _, err := keyHeader([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestFileExtentKeyEncodesLogicalAddr(t *testing.T) {
	key := fileExtentKey(7, 4096)
	id, typ, err := keyHeader(key)
	require.NoError(t, err)
	require.Equal(t, uint64(7), id)
	require.Equal(t, types.ApfsTypeFileExtent, typ)
	require.Equal(t, uint64(4096), types.LE.Uint64(key[8:16]))
}

func TestDirRecPlainKeyNullTerminates(t *testing.T) {
	key := dirRecPlainKey(42, "hello")
	require.Equal(t, uint16(6), types.LE.Uint16(key[8:10]))
	require.Equal(t, byte(0), key[len(key)-1])
}
