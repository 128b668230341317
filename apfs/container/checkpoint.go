package container

import (
	"fmt"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// checkpointBlock is one decoded block from the checkpoint-descriptor
// ring, tagged with its index so the scan can recover the mapping-block
// ordering after reading the ring concurrently.
type checkpointBlock struct {
	index int
	sb    *types.NxSuperblockT
	cm    *types.CheckpointMapPhysT
}

// scanCheckpointDescriptorRing reads every block in
// [xp_desc_base, xp_desc_base+xp_desc_blocks) in parallel and classifies
// each one as either a superblock or a checkpoint-mapping block,
// matching spec.md §4.6 step 3-4. Concurrent reads are safe here because
// blockdevice.Device requires positional, not cursor-based, access.
// Per-slot read/checksum failures are collected rather than failing the
// whole scan: the ring routinely holds stale entries from superseded
// checkpoints.
func (c *Container) scanCheckpointDescriptorRing() ([]checkpointBlock, error) {
	descBlocks := int(c.superblock.NxXpDescBlocks &^ 0x80000000)
	if c.superblock.NxXpDescBlocks&0x80000000 != 0 {
		return nil, apfserr.Wrap(apfserr.Unsupported, "container.scanCheckpointDescriptorRing", "", "non-contiguous checkpoint descriptor area")
	}
	descBase := c.superblock.NxXpDescBase

	blocks := make([]checkpointBlock, descBlocks)
	errs := make([]error, descBlocks)

	p := pool.New().WithMaxGoroutines(8)
	for i := 0; i < descBlocks; i++ {
		i := i
		p.Go(func() {
			raw, err := c.reader.ReadBlockChecked(descBase + types.Paddr(i))
			if err != nil {
				errs[i] = fmt.Errorf("descriptor slot %d: %w", i, err)
				return
			}
			if sb, serr := decodeNxSuperblock(raw); serr == nil && sb.NxMagic == types.NxMagic {
				blocks[i] = checkpointBlock{index: i, sb: sb}
				return
			}
			if cm, cerr := decodeCheckpointMapPhys(raw); cerr == nil {
				blocks[i] = checkpointBlock{index: i, cm: cm}
				return
			}
		})
	}
	p.Wait()

	c.lastScanSkips = multierr.Combine(errs...)
	return blocks, nil
}

// adoptCheckpoint picks the superblock with the given xid, or, if wantXid
// is zero, the superblock with the greatest xid in the ring (spec.md
// §6.2's optional mount_container xid argument).
func adoptCheckpoint(blocks []checkpointBlock, wantXid uint64) (*types.NxSuperblockT, error) {
	var best *types.NxSuperblockT
	for _, b := range blocks {
		if b.sb == nil {
			continue
		}
		if wantXid != 0 {
			if uint64(b.sb.NxO.OXid) == wantXid {
				return b.sb, nil
			}
			continue
		}
		if best == nil || b.sb.NxO.OXid > best.NxO.OXid {
			best = b.sb
		}
	}
	if best == nil {
		if wantXid != 0 {
			return nil, apfserr.Wrap(apfserr.NotFound, "container.adoptCheckpoint", "", "requested checkpoint xid not found in descriptor ring")
		}
		return nil, apfserr.Wrap(apfserr.NotFound, "container.adoptCheckpoint", "", "no valid checkpoint superblock found")
	}
	return best, nil
}

// loadEphemeralMappings walks the checkpoint-mapping blocks belonging to
// the adopted checkpoint's descriptor window (NxXpDescIndex, wrapping
// across NxXpDescLen slots) and loads every mapping's object bytes from
// the checkpoint data area, keyed by ephemeral oid.
func (c *Container) loadEphemeralMappings(blocks []checkpointBlock) (map[types.OidT][]byte, error) {
	result := make(map[types.OidT][]byte)

	descIndex := int(c.superblock.NxXpDescIndex)
	descLen := int(c.superblock.NxXpDescLen)
	descBlocks := len(blocks)
	if descBlocks == 0 {
		return result, nil
	}

	for n := 0; n < descLen; n++ {
		idx := (descIndex + n) % descBlocks
		b := blocks[idx]
		if b.cm == nil {
			continue
		}
		for _, m := range b.cm.CpmMap {
			data, err := c.reader.ReadBlockChecked(m.CpmPaddr)
			if err != nil {
				continue
			}
			result[m.CpmOid] = data
		}
		if b.cm.CpmFlags&types.CheckpointMapLast != 0 {
			break
		}
	}

	return result, nil
}
