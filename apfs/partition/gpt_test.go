package partition

import (
	"hash/crc32"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-apfs/apfs/blockdevice"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

const sectorSize = 512

// buildGPTImage constructs a minimal whole-disk image: protective MBR,
// primary GPT header, and a single-entry partition table naming an
// Apple_APFS partition starting at LBA 40.
func buildGPTImage(t *testing.T) []byte {
	t.Helper()
	le := types.LE

	const headerSize = 92
	const entrySize = 128
	const numEntries = 128
	const entryTableLBA = 2
	const apfsFirstLBA = 40
	const apfsLastLBA = 139

	diskSectors := int64(200)
	img := make([]byte, diskSectors*sectorSize)

	header := make([]byte, sectorSize)
	copy(header[0:8], gptSignature[:])
	le.PutUint32(header[8:12], 0x00010000) // revision 1.0
	le.PutUint32(header[12:16], headerSize)
	le.PutUint64(header[24:32], 1)  // CurrentLBA
	le.PutUint64(header[32:40], 0)  // BackupLBA (unused by the test)
	le.PutUint64(header[40:48], 34) // FirstUsableLBA
	le.PutUint64(header[48:56], uint64(diskSectors-34))
	le.PutUint64(header[72:80], entryTableLBA)
	le.PutUint32(header[80:84], numEntries)
	le.PutUint32(header[84:88], entrySize)

	crcBuf := make([]byte, headerSize)
	copy(crcBuf, header[:headerSize])
	le.PutUint32(crcBuf[16:20], 0)
	le.PutUint32(header[16:20], crc32.ChecksumIEEE(crcBuf))

	copy(img[sectorSize:2*sectorSize], header)

	entryTable := make([]byte, numEntries*entrySize)
	apfsTypeGUID, err := types.ParseUUID(ApplePartitionTypeGUID)
	require.NoError(t, err)
	putMixedEndianGUID(entryTable[0:16], apfsTypeGUID)
	le.PutUint64(entryTable[32:40], apfsFirstLBA)
	le.PutUint64(entryTable[40:48], apfsLastLBA)
	name := utf16.Encode([]rune("Container disk1"))
	for i, u := range name {
		le.PutUint16(entryTable[56+i*2:58+i*2], u)
	}
	copy(img[entryTableLBA*sectorSize:], entryTable)

	return img
}

// putMixedEndianGUID is decodeMixedEndianGUID's inverse, used only to
// build the test fixture.
func putMixedEndianGUID(b []byte, u types.UUID) {
	b[0], b[1], b[2], b[3] = u[3], u[2], u[1], u[0]
	b[4], b[5] = u[5], u[4]
	b[6], b[7] = u[7], u[6]
	copy(b[8:16], u[8:16])
}

func TestReadHeaderValidatesCRC(t *testing.T) {
	img := buildGPTImage(t)
	dev := blockdevice.NewMemDevice(img)

	h, err := ReadHeader(dev)
	require.NoError(t, err)
	require.Equal(t, uint64(34), h.FirstUsableLBA)
	require.Equal(t, uint32(128), h.NumberOfPartitionEntries)
}

func TestReadHeaderRejectsBadCRC(t *testing.T) {
	img := buildGPTImage(t)
	img[sectorSize+16] ^= 0xff // corrupt a byte of the stored CRC
	dev := blockdevice.NewMemDevice(img)

	_, err := ReadHeader(dev)
	require.Error(t, err)
}

func TestLocate(t *testing.T) {
	img := buildGPTImage(t)
	dev := blockdevice.NewMemDevice(img)

	offset, length, err := Locate(dev)
	require.NoError(t, err)
	require.Equal(t, int64(40*sectorSize), offset)
	require.Equal(t, int64(100*sectorSize), length)
}

func TestReadEntriesDecodesName(t *testing.T) {
	img := buildGPTImage(t)
	dev := blockdevice.NewMemDevice(img)

	h, err := ReadHeader(dev)
	require.NoError(t, err)
	entries, err := ReadEntries(dev, h)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Container disk1", entries[0].NameString())
}
