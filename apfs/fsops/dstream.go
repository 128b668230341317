package fsops

import (
	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/btree"
	"github.com/deploymenttheory/go-apfs/apfs/container"
	apfscrypto "github.com/deploymenttheory/go-apfs/apfs/crypto"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// StreamSource is everything ReadFile needs to resolve and decrypt a
// file's extents, independent of which mounted volume it came from.
type StreamSource struct {
	Reader    container.Reader
	RootTree  *btree.Tree // the volume's filesystem tree; used unless Sealed
	FextTree  *btree.Tree // the sealed-volume file-extent tree; used when Sealed
	Sealed    bool
	BlockSize int
	VEK       []byte // nil on an unencrypted volume
}

type resolvedExtent struct {
	logicalStart uint64
	size         uint64 // bytes
	physBlock    types.Paddr
	cryptoID     uint64
}

// lookupExtent finds the extent covering (or immediately preceding) the
// given logical file offset, per spec.md §4.9.
func (s StreamSource) lookupExtent(objID, offset uint64) (resolvedExtent, error) {
	if s.Sealed {
		key := fextTreeKey(objID, offset)
		k, v, err := s.FextTree.Lookup(key, btree.ModeLE)
		if err != nil {
			return resolvedExtent{}, err
		}
		if len(k) < 16 || len(v) < 16 {
			return resolvedExtent{}, apfserr.Wrap(apfserr.InvalidFormat, "fsops.lookupExtent", "", "fext tree entry too short")
		}
		privateID := types.LE.Uint64(k[0:8])
		if privateID != objID {
			return resolvedExtent{}, apfserr.Wrap(apfserr.NotFound, "fsops.lookupExtent", "", "fext entry belongs to a different stream")
		}
		logicalAddr := types.LE.Uint64(k[8:16])
		lenAndFlags := types.LE.Uint64(v[0:8])
		return resolvedExtent{
			logicalStart: logicalAddr,
			size:         lenAndFlags & types.JFileExtentLenMask,
			physBlock:    types.Paddr(types.LE.Uint64(v[8:16])),
			cryptoID:     0, // sealed-volume encryption isn't defined on disk yet
		}, nil
	}

	k, v, err := s.RootTree.Lookup(fileExtentKey(objID, offset), btree.ModeLE)
	if err != nil {
		return resolvedExtent{}, err
	}
	id, typ, herr := keyHeader(k)
	if herr != nil {
		return resolvedExtent{}, herr
	}
	if id != objID || typ != types.ApfsTypeFileExtent {
		return resolvedExtent{}, apfserr.Wrap(apfserr.NotFound, "fsops.lookupExtent", "", "no file extent at or before offset")
	}
	if len(k) < 16 || len(v) < 24 {
		return resolvedExtent{}, apfserr.Wrap(apfserr.InvalidFormat, "fsops.lookupExtent", "", "file extent record too short")
	}
	logicalAddr := types.LE.Uint64(k[8:16])
	lenAndFlags := types.LE.Uint64(v[0:8])
	return resolvedExtent{
		logicalStart: logicalAddr,
		size:         lenAndFlags & types.JFileExtentLenMask,
		physBlock:    types.Paddr(types.LE.Uint64(v[8:16])),
		cryptoID:     types.LE.Uint64(v[16:24]),
	}, nil
}

func fextTreeKey(privateID, logicalAddr uint64) []byte {
	b := make([]byte, 16)
	types.LE.PutUint64(b[0:8], privateID)
	types.LE.PutUint64(b[8:16], logicalAddr)
	return b
}

// ReadFile fills buf with up to len(buf) bytes of objID's data stream
// starting at offset, stopping early (with a short read, no error) if the
// stream ends first. It mirrors the per-extent loop spec.md §4.9
// describes: resolve the extent covering the read position, serve a run
// of whole blocks directly or a single block through a scratch buffer for
// an unaligned remainder, and zero-fill holes (extents with no physical
// block).
func ReadFile(s StreamSource, objID uint64, streamSize uint64, offset uint64, buf []byte) (int, error) {
	if offset >= streamSize {
		return 0, nil
	}
	want := len(buf)
	if uint64(want) > streamSize-offset {
		want = int(streamSize - offset)
	}

	blockSize := uint64(s.BlockSize)
	read := 0
	for read < want {
		curOffset := offset + uint64(read)
		ext, err := s.lookupExtent(objID, curOffset)
		if err != nil {
			return read, err
		}

		extentOffset := curOffset - ext.logicalStart
		if extentOffset >= ext.size {
			return read, apfserr.Wrap(apfserr.InvalidFormat, "fsops.ReadFile", "", "extent lookup landed before the read position")
		}

		curSize := uint64(want - read)
		if extentOffset+curSize > ext.size {
			curSize = ext.size - extentOffset
		}
		if curSize == 0 {
			break
		}

		blkIdx := extentOffset / blockSize
		blkOffs := extentOffset % blockSize

		dst := buf[read : uint64(read)+curSize]

		if ext.physBlock == 0 {
			for i := range dst {
				dst[i] = 0
			}
			read += int(curSize)
			continue
		}

		if blkOffs == 0 && curSize >= blockSize {
			wholeBlocks := curSize / blockSize
			curSize = wholeBlocks * blockSize
			n, err := s.readBlocks(ext.physBlock+types.Paddr(blkIdx), wholeBlocks, ext.cryptoID+blkIdx, dst[:curSize])
			if err != nil {
				return read, err
			}
			read += n
			continue
		}

		block, err := s.readOneBlock(ext.physBlock+types.Paddr(blkIdx), ext.cryptoID+blkIdx)
		if err != nil {
			return read, err
		}
		if blkOffs+curSize > blockSize {
			curSize = blockSize - blkOffs
		}
		copy(dst[:curSize], block[blkOffs:blkOffs+curSize])
		read += int(curSize)
	}
	return read, nil
}

func (s StreamSource) readBlocks(start types.Paddr, count uint64, cryptoTweak uint64, dst []byte) (int, error) {
	n := 0
	for i := uint64(0); i < count; i++ {
		block, err := s.readOneBlock(start+types.Paddr(i), cryptoTweak+i)
		if err != nil {
			return n, err
		}
		copy(dst[n:n+len(block)], block)
		n += len(block)
	}
	return n, nil
}

func (s StreamSource) readOneBlock(paddr types.Paddr, cryptoTweak uint64) ([]byte, error) {
	raw, err := s.Reader.ReadBlock(paddr)
	if err != nil {
		return nil, err
	}
	if s.VEK == nil || cryptoTweak == 0 {
		return raw, nil
	}
	csFactor := uint64(s.BlockSize) / apfscrypto.SectorSize
	startSector := cryptoTweak * csFactor
	out := append([]byte(nil), raw...)
	if err := apfscrypto.DecryptXTS(s.VEK[:16], s.VEK[16:32], startSector, out); err != nil {
		return nil, err
	}
	return out, nil
}
