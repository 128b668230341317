package fsops

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/btree"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// fakeReader is a minimal container.Reader backed by an in-memory block
// map, enough to exercise ReadFile's extent-walking logic without a real
// device or checksum-verified container.
type fakeReader struct {
	blockSize int
	blocks    map[types.Paddr][]byte
}

func (r *fakeReader) ReadBlock(paddr types.Paddr) ([]byte, error) {
	b, ok := r.blocks[paddr]
	if !ok {
		return nil, apfserr.Wrap(apfserr.NotFound, "fakeReader.ReadBlock", "", "no such block")
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (r *fakeReader) ReadBlockChecked(paddr types.Paddr) ([]byte, error) {
	return r.ReadBlock(paddr)
}

func (r *fakeReader) GetNode(types.OidT) (*btree.Node, error) {
	return nil, apfserr.Wrap(apfserr.Unsupported, "fakeReader.GetNode", "", "not needed by this fixture")
}

// rawFileExtentCompare orders raw (FILE_EXTENT) keys by straight byte
// comparison: the test fixtures share a single object id, so the 8-byte
// header ties and the trailing logical-address bytes decide the order
// just like the real comparator's trailing-u64 branch would.
func rawFileExtentCompare(search, entry []byte, _ uint64) (int, error) {
	return bytes.Compare(search, entry), nil
}

// buildFileExtentLeaf constructs a single-node, fixed-kv leaf holding one
// (FILE_EXTENT, objID) record at logicalAddr.
func buildFileExtentLeaf(t *testing.T, objID, logicalAddr, lenAndFlags, physBlockNum, cryptoID uint64) []byte {
	t.Helper()
	const blockSize = 512
	raw := make([]byte, blockSize)
	le := types.LE

	le.PutUint16(raw[32:34], uint16(types.BtnodeRoot|types.BtnodeLeaf|types.BtnodeFixedKvSize))
	le.PutUint16(raw[34:36], 0)
	le.PutUint32(raw[36:40], 1)
	le.PutUint16(raw[40:42], 0)
	le.PutUint16(raw[42:44], 4)

	data := raw[types.BtreeNodePhysFixedSize:]
	le.PutUint16(data[0:2], 0)
	le.PutUint16(data[2:4], 24) // voff: value ends exactly at valsEnd, 24 bytes long

	copy(data[4:12], fileExtentKey(objID, logicalAddr))
	le.PutUint64(data[12:20], logicalAddr)

	valsEnd := len(data) - types.BtreeInfoSize
	le.PutUint64(data[valsEnd-24:valsEnd-16], lenAndFlags)
	le.PutUint64(data[valsEnd-16:valsEnd-8], physBlockNum)
	le.PutUint64(data[valsEnd-8:valsEnd], cryptoID)

	info := raw[len(raw)-types.BtreeInfoSize:]
	le.PutUint32(info[0:4], 0)
	le.PutUint32(info[4:8], blockSize)
	le.PutUint32(info[8:12], 16)
	le.PutUint32(info[12:16], 24)
	le.PutUint32(info[16:20], 16)
	le.PutUint32(info[20:24], 24)
	le.PutUint64(info[24:32], 1)
	le.PutUint64(info[32:40], 1)

	return raw
}

func TestReadFileWholeBlockUnencrypted(t *testing.T) {
	root, err := btree.DecodeNode(buildFileExtentLeaf(t, 5, 0, 512, 10, 0))
	require.NoError(t, err)
	tree, err := btree.New(root, 1, &fakeReader{}, rawFileExtentCompare, 0)
	require.NoError(t, err)

	reader := &fakeReader{blockSize: 512, blocks: map[types.Paddr][]byte{
		10: bytes.Repeat([]byte{0xAB}, 512),
	}}
	s := StreamSource{Reader: reader, RootTree: tree, BlockSize: 512}

	buf := make([]byte, 512)
	n, err := ReadFile(s, 5, 512, 0, buf)
	require.NoError(t, err)
	require.Equal(t, 512, n)
	require.Equal(t, bytes.Repeat([]byte{0xAB}, 512), buf)
}

func TestReadFilePartialBlock(t *testing.T) {
	root, err := btree.DecodeNode(buildFileExtentLeaf(t, 5, 0, 512, 10, 0))
	require.NoError(t, err)
	tree, err := btree.New(root, 1, &fakeReader{}, rawFileExtentCompare, 0)
	require.NoError(t, err)

	block := make([]byte, 512)
	for i := range block {
		block[i] = byte(i)
	}
	reader := &fakeReader{blockSize: 512, blocks: map[types.Paddr][]byte{10: block}}
	s := StreamSource{Reader: reader, RootTree: tree, BlockSize: 512}

	buf := make([]byte, 50)
	n, err := ReadFile(s, 5, 512, 100, buf)
	require.NoError(t, err)
	require.Equal(t, 50, n)
	require.Equal(t, block[100:150], buf)
}

func TestReadFileStopsAtStreamSize(t *testing.T) {
	root, err := btree.DecodeNode(buildFileExtentLeaf(t, 5, 0, 512, 10, 0))
	require.NoError(t, err)
	tree, err := btree.New(root, 1, &fakeReader{}, rawFileExtentCompare, 0)
	require.NoError(t, err)

	reader := &fakeReader{blockSize: 512, blocks: map[types.Paddr][]byte{
		10: bytes.Repeat([]byte{1}, 512),
	}}
	s := StreamSource{Reader: reader, RootTree: tree, BlockSize: 512}

	buf := make([]byte, 100)
	n, err := ReadFile(s, 5, 20, 10, buf)
	require.NoError(t, err)
	require.Equal(t, 10, n)
}
