// Package partition locates an APFS container within a GPT-partitioned
// whole-disk image or raw device, so callers never have to know a byte
// offset in advance: they hand apfs/partition a blockdevice.Device and get
// back the byte range of the Apple_APFS partition, ready to pass as the
// mainOff/mainLen region to apfs.MountContainer, which bounds the device
// to it before calling apfs/container.Mount.
package partition

import (
	"bytes"
	"hash/crc32"
	"unicode/utf16"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/blockdevice"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// ApplePartitionTypeGUID is the GPT partition type GUID Apple assigns to
// APFS containers.
const ApplePartitionTypeGUID = "7C3457EF-0000-11AA-AA11-00306543ECAC"

// gptSignature is the 8-byte magic at the start of a GPT header ("EFI PART").
var gptSignature = [8]byte{'E', 'F', 'I', ' ', 'P', 'A', 'R', 'T'}

// Header is a decoded GPT header (UEFI spec 2.10 table 5-6).
type Header struct {
	Revision                 uint32
	HeaderSize               uint32
	CurrentLBA               uint64
	BackupLBA                uint64
	FirstUsableLBA           uint64
	LastUsableLBA            uint64
	DiskGUID                 types.UUID
	PartitionEntryLBA        uint64
	NumberOfPartitionEntries uint32
	SizeOfPartitionEntry     uint32
}

// Entry is a decoded GPT partition entry.
type Entry struct {
	PartitionTypeGUID   types.UUID
	UniquePartitionGUID types.UUID
	FirstLBA            uint64
	LastLBA             uint64
	AttributeFlags      uint64
	Name                string
}

// NameString returns the partition's UTF-16LE name, trimmed at its first
// NUL code unit.
func (e Entry) NameString() string { return e.Name }

// ByteRange returns the entry's inclusive LBA range translated to a
// [offset, offset+length) byte range at the given sector size.
func (e Entry) ByteRange(sectorSize int) (offset int64, length int64) {
	offset = int64(e.FirstLBA) * int64(sectorSize)
	length = (int64(e.LastLBA) - int64(e.FirstLBA) + 1) * int64(sectorSize)
	return offset, length
}

// ReadHeader reads and validates the primary GPT header at LBA 1.
func ReadHeader(dev blockdevice.Device) (*Header, error) {
	sectorSize := dev.SectorSize()
	if sectorSize == 0 {
		sectorSize = 512
	}
	buf := make([]byte, sectorSize)
	if err := dev.ReadAt(buf, int64(sectorSize)); err != nil {
		return nil, apfserr.Wrap(apfserr.IOError, "partition.ReadHeader", "", err.Error())
	}
	if !bytes.Equal(buf[0:8], gptSignature[:]) {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "partition.ReadHeader", "", "missing EFI PART signature")
	}

	le := types.LE
	headerSize := le.Uint32(buf[12:16])
	storedCRC := le.Uint32(buf[16:20])

	crcBuf := make([]byte, headerSize)
	copy(crcBuf, buf[:headerSize])
	le.PutUint32(crcBuf[16:20], 0)
	if crc32.ChecksumIEEE(crcBuf) != storedCRC {
		return nil, apfserr.Wrap(apfserr.ChecksumMismatch, "partition.ReadHeader", "", "GPT header CRC32 mismatch")
	}

	h := &Header{
		Revision:                 le.Uint32(buf[8:12]),
		HeaderSize:               headerSize,
		CurrentLBA:               le.Uint64(buf[24:32]),
		BackupLBA:                le.Uint64(buf[32:40]),
		FirstUsableLBA:           le.Uint64(buf[40:48]),
		LastUsableLBA:            le.Uint64(buf[48:56]),
		DiskGUID:                 decodeMixedEndianGUID(buf[56:72]),
		PartitionEntryLBA:        le.Uint64(buf[72:80]),
		NumberOfPartitionEntries: le.Uint32(buf[80:84]),
		SizeOfPartitionEntry:     le.Uint32(buf[84:88]),
	}
	return h, nil
}

// ReadEntries reads h's partition entry array and decodes every non-empty
// entry (a zero type GUID marks an unused slot and is skipped).
func ReadEntries(dev blockdevice.Device, h *Header) ([]Entry, error) {
	sectorSize := dev.SectorSize()
	if sectorSize == 0 {
		sectorSize = 512
	}
	entrySize := int(h.SizeOfPartitionEntry)
	if entrySize == 0 {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "partition.ReadEntries", "", "zero-size partition entry")
	}
	total := int(h.NumberOfPartitionEntries) * entrySize
	buf := make([]byte, total)
	if err := dev.ReadAt(buf, int64(h.PartitionEntryLBA)*int64(sectorSize)); err != nil {
		return nil, apfserr.Wrap(apfserr.IOError, "partition.ReadEntries", "", err.Error())
	}

	le := types.LE
	var entries []Entry
	for i := 0; i < int(h.NumberOfPartitionEntries); i++ {
		raw := buf[i*entrySize : (i+1)*entrySize]
		typeGUID := decodeMixedEndianGUID(raw[0:16])
		if typeGUID.IsZero() {
			continue
		}
		nameUnits := make([]uint16, 36)
		for j := range nameUnits {
			nameUnits[j] = le.Uint16(raw[56+j*2 : 58+j*2])
		}
		entries = append(entries, Entry{
			PartitionTypeGUID:   typeGUID,
			UniquePartitionGUID: decodeMixedEndianGUID(raw[16:32]),
			FirstLBA:            le.Uint64(raw[32:40]),
			LastLBA:             le.Uint64(raw[40:48]),
			AttributeFlags:      le.Uint64(raw[48:56]),
			Name:                decodeUTF16Name(nameUnits),
		})
	}
	return entries, nil
}

// Locate scans dev's GPT partition table for the first
// Apple_APFS partition and returns its byte range, ready to pass to
// apfs.MountContainer as mainOff/mainLen.
func Locate(dev blockdevice.Device) (offset int64, length int64, err error) {
	h, err := ReadHeader(dev)
	if err != nil {
		return 0, 0, err
	}
	entries, err := ReadEntries(dev, h)
	if err != nil {
		return 0, 0, err
	}
	want, err := types.ParseUUID(ApplePartitionTypeGUID)
	if err != nil {
		return 0, 0, err
	}
	for _, e := range entries {
		if e.PartitionTypeGUID == want {
			off, ln := e.ByteRange(dev.SectorSize())
			return off, ln, nil
		}
	}
	return 0, 0, apfserr.Wrap(apfserr.NotFound, "partition.Locate", "", "no Apple_APFS partition in GPT table")
}

// decodeMixedEndianGUID converts a GPT on-disk GUID (whose first three
// fields are little-endian) into the big-endian canonical byte order
// types.UUID and google/uuid expect.
func decodeMixedEndianGUID(b []byte) types.UUID {
	var u types.UUID
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	copy(u[8:16], b[8:16])
	return u
}

// decodeUTF16Name decodes a NUL-terminated UTF-16LE partition name.
func decodeUTF16Name(units []uint16) string {
	for i, u := range units {
		if u == 0 {
			units = units[:i]
			break
		}
	}
	return string(utf16.Decode(units))
}
