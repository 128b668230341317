// Package container implements container mount (spec.md §4.6): locating
// the latest checkpoint, loading ephemeral objects it references, and
// lazily instantiating the container object map and key manager.
package container

import (
	"fmt"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/blockdevice"
	"github.com/deploymenttheory/go-apfs/apfs/checksum"
	"github.com/deploymenttheory/go-apfs/apfs/keybag"
	"github.com/deploymenttheory/go-apfs/apfs/omap"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// Container is a mounted APFS container.
type Container struct {
	reader    *physicalReader
	superblock *types.NxSuperblockT
	blockSize int

	ephemeral map[types.OidT][]byte
	omap      *omap.OMap

	keyManager *keybag.Manager

	lastScanSkips error
}

// Options configures Mount. Tier2 is nil unless the container is Fusion.
type Options struct {
	PartitionOffset int64
	Tier2           blockdevice.Device
	Tier2Offset     int64

	// Xid, if non-zero, pins Mount to that exact checkpoint transaction
	// id instead of the greatest xid in the descriptor ring (spec.md
	// §6.2's optional mount_container xid argument).
	Xid uint64
}

// Mount implements spec.md §4.6's six-step mount algorithm.
func Mount(dev blockdevice.Device, opts Options) (*Container, error) {
	r := &physicalReader{dev: dev, tier2: opts.Tier2, blockSize: types.NxDefaultBlockSize, partOffset: opts.PartitionOffset, tier2Off: opts.Tier2Offset}

	// Step 1: read block 0, validate magic, re-read at the real block
	// size if it differs from the 4096-byte default guess.
	raw, err := r.ReadBlock(0)
	if err != nil {
		return nil, fmt.Errorf("container.Mount: reading block 0: %w", err)
	}
	sb, err := decodeNxSuperblock(raw)
	if err != nil || sb.NxMagic != types.NxMagic {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "container.Mount", "", "block 0 is not an nx_superblock_t")
	}
	if int(sb.NxBlockSize) != r.blockSize {
		r.blockSize = int(sb.NxBlockSize)
		raw, err = r.ReadBlock(0)
		if err != nil {
			return nil, fmt.Errorf("container.Mount: re-reading block 0 at block size %d: %w", r.blockSize, err)
		}
		sb, err = decodeNxSuperblock(raw)
		if err != nil {
			return nil, fmt.Errorf("container.Mount: %w", err)
		}
	}

	// Step 2: verify checksum and Fusion requirements.
	if !checksum.VerifyBlock(raw) {
		return nil, apfserr.Wrap(apfserr.ChecksumMismatch, "container.Mount", "", "block 0 checksum invalid")
	}
	if sb.NxIncompatibleFeatures&types.NxIncompatFusion != 0 && opts.Tier2 == nil {
		return nil, apfserr.Wrap(apfserr.Unsupported, "container.Mount", "", "fusion container requires a tier-2 device")
	}

	c := &Container{reader: r, superblock: sb, blockSize: r.blockSize}

	// Step 3: scan the checkpoint-descriptor ring and adopt the
	// greatest-xid superblock.
	blocks, err := c.scanCheckpointDescriptorRing()
	if err != nil {
		return nil, fmt.Errorf("container.Mount: %w", err)
	}
	latest, err := adoptCheckpoint(blocks, opts.Xid)
	if err != nil {
		return nil, fmt.Errorf("container.Mount: %w", err)
	}
	c.superblock = latest

	// Step 4: walk the checkpoint map ring, loading ephemeral objects
	// (the spaceman among them).
	eph, err := c.loadEphemeralMappings(blocks)
	if err != nil {
		return nil, fmt.Errorf("container.Mount: %w", err)
	}
	c.ephemeral = eph

	// Step 5: cache the object map's physical oid; the B-tree mounts
	// lazily on first Resolve call.
	if c.superblock.NxOmapOid != 0 {
		omapRaw, err := r.ReadBlockChecked(types.Paddr(c.superblock.NxOmapOid))
		if err != nil {
			return nil, fmt.Errorf("container.Mount: reading object map: %w", err)
		}
		omapPhys, err := decodeOmapPhys(omapRaw)
		if err != nil {
			return nil, fmt.Errorf("container.Mount: %w", err)
		}
		c.omap = omap.New(omapPhys, r)
	}

	// Step 6: initialize the key manager if the container carries a
	// keylocker.
	if c.superblock.NxKeylocker.BlockCount > 0 {
		c.keyManager = keybag.NewManager(dev, r.blockSize, c.superblock.NxUuid, c.superblock.NxKeylocker.StartPaddr, c.superblock.NxKeylocker.BlockCount)
	}

	return c, nil
}

// Superblock returns the adopted checkpoint's container superblock.
func (c *Container) Superblock() *types.NxSuperblockT { return c.superblock }

// BlockSize returns the container's logical block size.
func (c *Container) BlockSize() int { return c.blockSize }

// ObjectMap returns the container's lazily-mounted object map, or nil if
// the container has none (shouldn't happen on a valid container).
func (c *Container) ObjectMap() *omap.OMap { return c.omap }

// KeyManager returns the container's key manager, or nil if the
// container carries no keylocker (i.e. no volume can be encrypted).
func (c *Container) KeyManager() *keybag.Manager { return c.keyManager }

// ScanSkips returns the aggregated per-slot errors the checkpoint
// descriptor ring scan swallowed rather than failing the mount over, or
// nil if every slot read and decoded cleanly.
func (c *Container) ScanSkips() error { return c.lastScanSkips }

// Reader exposes the physical block reader for package-internal use by
// apfs/volume, which needs to resolve volume-scoped physical objects
// (the volume's own object map, whose oid is itself a paddr) the same
// way the container resolves its own.
func (c *Container) Reader() Reader { return c.reader }

// VolumeOid returns the virtual oid of the volume in slot index,
// apfserr.OutOfRange if index is out of range, or apfserr.NotFound if
// the slot is empty.
func (c *Container) VolumeOid(index int) (types.OidT, error) {
	if index < 0 || index >= int(c.superblock.NxMaxFileSystems) || index >= len(c.superblock.NxFsOid) {
		return 0, apfserr.Wrap(apfserr.OutOfRange, "container.Container.VolumeOid", "", "volume slot out of range")
	}
	oid := c.superblock.NxFsOid[index]
	if oid == 0 {
		return 0, apfserr.Wrap(apfserr.NotFound, "container.Container.VolumeOid", "", "empty volume slot")
	}
	return oid, nil
}

// VolumeCount returns the number of occupied volume slots.
func (c *Container) VolumeCount() int {
	n := 0
	for i := 0; i < int(c.superblock.NxMaxFileSystems) && i < len(c.superblock.NxFsOid); i++ {
		if c.superblock.NxFsOid[i] != 0 {
			n++
		}
	}
	return n
}
