package btree

import (
	"testing"

	"github.com/deploymenttheory/go-apfs/apfs/types"
	"github.com/stretchr/testify/require"
)

// buildFixedLeaf constructs a single-node, fixed-kv, root+leaf btree_node_phys_t
// holding three uint64 -> uint64 entries, with keys growing forward from the
// keys area and values growing backward from the values area, matching the
// on-disk layout described in spec.md §4.4.
func buildFixedLeaf(t *testing.T) []byte {
	t.Helper()
	const blockSize = 512
	raw := make([]byte, blockSize)
	le := types.LE

	le.PutUint16(raw[32:34], uint16(types.BtnodeRoot|types.BtnodeLeaf|types.BtnodeFixedKvSize))
	le.PutUint16(raw[34:36], 0) // level
	le.PutUint32(raw[36:40], 3) // nkeys
	le.PutUint16(raw[40:42], 0) // table_space.off
	le.PutUint16(raw[42:44], 12) // table_space.len

	data := raw[types.BtreeNodePhysFixedSize:]

	// kvoff TOC: 3 entries * 4 bytes
	le.PutUint16(data[0:2], 0)
	le.PutUint16(data[2:4], 8)
	le.PutUint16(data[4:6], 8)
	le.PutUint16(data[6:8], 16)
	le.PutUint16(data[8:10], 16)
	le.PutUint16(data[10:12], 24)

	// keys, 8 bytes each, base = 12
	le.PutUint64(data[12:20], 10)
	le.PutUint64(data[20:28], 20)
	le.PutUint64(data[28:36], 30)

	// values area ends at len(data) - btree_info_t trailer
	valsEnd := len(data) - types.BtreeInfoSize
	le.PutUint64(data[valsEnd-8:valsEnd], 100)
	le.PutUint64(data[valsEnd-16:valsEnd-8], 200)
	le.PutUint64(data[valsEnd-24:valsEnd-16], 300)

	// btree_info_t trailer
	info := raw[len(raw)-types.BtreeInfoSize:]
	le.PutUint32(info[0:4], uint32(types.BtreeUint64Keys))
	le.PutUint32(info[4:8], blockSize)
	le.PutUint32(info[8:12], 8)
	le.PutUint32(info[12:16], 8)
	le.PutUint32(info[16:20], 8)
	le.PutUint32(info[20:24], 8)
	le.PutUint64(info[24:32], 3)
	le.PutUint64(info[32:40], 1)

	return raw
}

func TestDecodeNodeFixedLeaf(t *testing.T) {
	raw := buildFixedLeaf(t)
	n, err := DecodeNode(raw)
	require.NoError(t, err)
	require.True(t, n.IsRoot())
	require.True(t, n.IsLeaf())
	require.Equal(t, uint32(3), n.NKeys)
	require.NotNil(t, n.Info)
	require.Equal(t, uint32(8), n.Info.Fixed.KeySize)

	k0, err := n.keyAt(0, n.Info.Fixed.KeySize)
	require.NoError(t, err)
	require.Equal(t, uint64(10), types.LE.Uint64(k0))

	k2, err := n.keyAt(2, n.Info.Fixed.KeySize)
	require.NoError(t, err)
	require.Equal(t, uint64(30), types.LE.Uint64(k2))

	v1, err := n.valAt(1, n.Info.Fixed.ValSize)
	require.NoError(t, err)
	require.Equal(t, uint64(200), types.LE.Uint64(v1))
}
