package container

import (
	"fmt"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/blockdevice"
	"github.com/deploymenttheory/go-apfs/apfs/btree"
	"github.com/deploymenttheory/go-apfs/apfs/checksum"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// Reader is the physical block access surface apfs/volume needs to
// resolve volume-scoped physical objects the same way the container
// resolves its own: checksum-verified block reads plus the
// btree.NodeSource it already implements for physical trees.
type Reader interface {
	btree.NodeSource
	ReadBlock(paddr types.Paddr) ([]byte, error)
	ReadBlockChecked(paddr types.Paddr) ([]byte, error)
}

// physicalReader reads checksum-verified blocks straight off the main
// device, with a partition byte offset applied ahead of every access and
// tier-2 addresses (the Fusion high bit) routed to a secondary device.
// It implements btree.NodeSource for every physical, container-scoped
// B-tree (the object map itself, and any tree whose oid equals its own
// paddr).
type physicalReader struct {
	dev        blockdevice.Device
	tier2      blockdevice.Device // nil on non-Fusion containers
	blockSize  int
	partOffset int64
	tier2Off   int64
}

const fusionTier2Flag = types.FusionTier2DeviceByteAddr

func (r *physicalReader) ReadBlock(paddr types.Paddr) ([]byte, error) {
	dev := r.dev
	base := r.partOffset
	addr := int64(paddr)
	if addr < 0 {
		return nil, apfserr.Wrap(apfserr.OutOfRange, "container.physicalReader.ReadBlock", "", "negative block address")
	}
	if uint64(addr)&uint64(fusionTier2Flag) != 0 {
		if r.tier2 == nil {
			return nil, apfserr.Wrap(apfserr.Unsupported, "container.physicalReader.ReadBlock", "", "tier-2 address without a fusion device")
		}
		dev = r.tier2
		base = r.tier2Off
		addr &^= int64(fusionTier2Flag)
	}

	buf := make([]byte, r.blockSize)
	if err := dev.ReadAt(buf, base+addr*int64(r.blockSize)); err != nil {
		return nil, apfserr.Wrap(apfserr.IOError, "container.physicalReader.ReadBlock", fmt.Sprintf("paddr=%d", paddr), err.Error())
	}
	return buf, nil
}

func (r *physicalReader) ReadBlockChecked(paddr types.Paddr) ([]byte, error) {
	buf, err := r.ReadBlock(paddr)
	if err != nil {
		return nil, err
	}
	if !checksum.VerifyBlock(buf) {
		return nil, apfserr.Wrap(apfserr.ChecksumMismatch, "container.physicalReader.ReadBlockChecked", fmt.Sprintf("paddr=%d", paddr), "fletcher-64 mismatch")
	}
	return buf, nil
}

// GetNode implements btree.NodeSource for physical trees: the oid passed
// in is itself the block's paddr.
func (r *physicalReader) GetNode(oid types.OidT) (*btree.Node, error) {
	raw, err := r.ReadBlockChecked(types.Paddr(oid))
	if err != nil {
		return nil, fmt.Errorf("container.physicalReader.GetNode: %w", err)
	}
	return btree.DecodeNode(raw)
}
