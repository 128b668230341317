package fsops

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-apfs/apfs/types"
)

func TestDecodeXattrEmbedded(t *testing.T) {
	key := xattrKey(55, "com.apple.quarantine")
	val := make([]byte, 4)
	types.LE.PutUint16(val[0:2], uint16(types.XattrDataEmbedded))
	types.LE.PutUint16(val[2:4], 3)
	val = append(val, []byte("abc")...)

	x, err := decodeXattr(key, val)
	require.NoError(t, err)
	require.Equal(t, "com.apple.quarantine", x.Name)
	require.True(t, x.Embedded)
	require.Equal(t, []byte("abc"), x.Data)
}

func TestDecodeXattrStream(t *testing.T) {
	key := xattrKey(55, "com.apple.decmpfs")
	val := make([]byte, 4+8+40)
	types.LE.PutUint16(val[0:2], uint16(types.XattrDataStream))
	types.LE.PutUint64(val[4:12], 77)
	types.LE.PutUint64(val[12:20], 4096) // Size

	x, err := decodeXattr(key, val)
	require.NoError(t, err)
	require.False(t, x.Embedded)
	require.Equal(t, uint64(77), x.DstreamID)
	require.Equal(t, uint64(4096), x.DataStream.Size)
}
