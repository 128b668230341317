package fsops

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-apfs/apfs/types"
)

func buildInodeValue(t *testing.T, mode types.ModeT, bsdFlags uint32) []byte {
	t.Helper()
	b := make([]byte, inodeFixedSize)
	le := types.LE
	le.PutUint64(b[0:8], 2)         // ParentId
	le.PutUint64(b[8:16], 99)       // PrivateId
	le.PutUint64(b[16:24], 1)       // CreateTime
	le.PutUint64(b[24:32], 2)       // ModTime
	le.PutUint64(b[32:40], 3)       // ChangeTime
	le.PutUint64(b[40:48], 4)       // AccessTime
	le.PutUint64(b[48:56], 0)       // InternalFlags
	le.PutUint32(b[56:60], 1)       // NchildrenOrNlink
	le.PutUint32(b[60:64], 0)       // DefaultProtectionClass
	le.PutUint32(b[64:68], 0)       // WriteGenerationCounter
	le.PutUint32(b[68:72], bsdFlags)
	le.PutUint32(b[72:76], 501) // Owner
	le.PutUint32(b[76:80], 20)  // Group
	le.PutUint16(b[80:82], uint16(mode))
	le.PutUint16(b[82:84], 0)   // Pad1
	le.PutUint64(b[84:92], 0)   // UncompressedSize
	return b
}

func TestDecodeInodeRegularFile(t *testing.T) {
	raw := buildInodeValue(t, types.SIfreg|0644, 0)
	in, err := decodeInode(99, raw)
	require.NoError(t, err)
	require.Equal(t, uint64(99), in.ID)
	require.Equal(t, uint64(2), in.ParentId)
	require.True(t, in.IsRegular())
	require.False(t, in.IsDir())
	require.False(t, in.IsCompressed())
}

func TestDecodeInodeDirectory(t *testing.T) {
	raw := buildInodeValue(t, types.SIfdir|0755, 0)
	in, err := decodeInode(100, raw)
	require.NoError(t, err)
	require.True(t, in.IsDir())
}

func TestDecodeInodeCompressed(t *testing.T) {
	raw := buildInodeValue(t, types.SIfreg|0644, ufCompressed)
	in, err := decodeInode(101, raw)
	require.NoError(t, err)
	require.True(t, in.IsCompressed())
}

func TestDecodeInodeTooShort(t *testing.T) {
	_, err := decodeInode(1, make([]byte, 10))
	require.Error(t, err)
}
