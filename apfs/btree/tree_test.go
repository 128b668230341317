package btree

import (
	"testing"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/types"
	"github.com/stretchr/testify/require"
)

// mapNodeSource is a NodeSource fixture for trees that never descend past
// their root node in these tests.
type mapNodeSource map[types.OidT]*Node

func (m mapNodeSource) GetNode(oid types.OidT) (*Node, error) {
	n, ok := m[oid]
	if !ok {
		return nil, apfserr.Wrap(apfserr.NotFound, "mapNodeSource.GetNode", "", "no such node")
	}
	return n, nil
}

func u64CompareFunc(a, b []byte, _ uint64) (int, error) {
	return CompareU64(a, b)
}

func TestTreeLookupSingleLeaf(t *testing.T) {
	raw := buildFixedLeaf(t)
	root, err := DecodeNode(raw)
	require.NoError(t, err)

	tr, err := New(root, 1, mapNodeSource{}, u64CompareFunc, 0)
	require.NoError(t, err)

	keyBuf := make([]byte, 8)
	types.LE.PutUint64(keyBuf, 20)

	k, v, err := tr.Lookup(keyBuf, ModeEQ)
	require.NoError(t, err)
	require.Equal(t, uint64(20), types.LE.Uint64(k))
	require.Equal(t, uint64(200), types.LE.Uint64(v))

	types.LE.PutUint64(keyBuf, 25)
	k, v, err = tr.Lookup(keyBuf, ModeLE)
	require.NoError(t, err)
	require.Equal(t, uint64(20), types.LE.Uint64(k))
	require.Equal(t, uint64(200), types.LE.Uint64(v))

	k, v, err = tr.Lookup(keyBuf, ModeGE)
	require.NoError(t, err)
	require.Equal(t, uint64(30), types.LE.Uint64(k))
	require.Equal(t, uint64(300), types.LE.Uint64(v))

	types.LE.PutUint64(keyBuf, 20)
	_, _, err = tr.Lookup(keyBuf, ModeLT)
	require.NoError(t, err)
}

func TestTreeFirst(t *testing.T) {
	raw := buildFixedLeaf(t)
	root, err := DecodeNode(raw)
	require.NoError(t, err)

	tr, err := New(root, 1, mapNodeSource{}, u64CompareFunc, 0)
	require.NoError(t, err)

	k, v, err := tr.First()
	require.NoError(t, err)
	require.Equal(t, uint64(10), types.LE.Uint64(k))
	require.Equal(t, uint64(100), types.LE.Uint64(v))
}

func TestIteratorWalksAllEntries(t *testing.T) {
	raw := buildFixedLeaf(t)
	root, err := DecodeNode(raw)
	require.NoError(t, err)

	tr, err := New(root, 1, mapNodeSource{}, u64CompareFunc, 0)
	require.NoError(t, err)

	it := NewIterator(tr, nil)
	var got []uint64
	for i := 0; i < 3; i++ {
		_, v, err := it.Next()
		require.NoError(t, err)
		got = append(got, types.LE.Uint64(v))
	}
	require.Equal(t, []uint64{100, 200, 300}, got)

	_, _, err = it.Next()
	require.Error(t, err)
}
