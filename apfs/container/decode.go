package container

import (
	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

func decodeObjPhys(b []byte) types.ObjPhysT {
	le := types.LE
	var o types.ObjPhysT
	copy(o.OChecksum[:], b[0:8])
	o.OOid = types.OidT(le.Uint64(b[8:16]))
	o.OXid = types.XidT(le.Uint64(b[16:24]))
	o.OType = le.Uint32(b[24:28])
	o.OSubtype = le.Uint32(b[28:32])
	return o
}

// decodeNxSuperblock parses a raw block into an nx_superblock_t.
func decodeNxSuperblock(raw []byte) (*types.NxSuperblockT, error) {
	const fixedSize = 1408
	if len(raw) < fixedSize {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "container.decodeNxSuperblock", "", "block too small for nx_superblock_t")
	}
	le := types.LE
	sb := &types.NxSuperblockT{
		NxO:                          decodeObjPhys(raw[0:32]),
		NxMagic:                      le.Uint32(raw[32:36]),
		NxBlockSize:                  le.Uint32(raw[36:40]),
		NxBlockCount:                 le.Uint64(raw[40:48]),
		NxFeatures:                   le.Uint64(raw[48:56]),
		NxReadonlyCompatibleFeatures: le.Uint64(raw[56:64]),
		NxIncompatibleFeatures:       le.Uint64(raw[64:72]),
		NxUuid:                       types.ReadUUID(raw, 72),
		NxNextOid:                    types.OidT(le.Uint64(raw[88:96])),
		NxNextXid:                    types.XidT(le.Uint64(raw[96:104])),
		NxXpDescBlocks:               le.Uint32(raw[104:108]),
		NxXpDataBlocks:               le.Uint32(raw[108:112]),
		NxXpDescBase:                 types.Paddr(le.Uint64(raw[112:120])),
		NxXpDataBase:                 types.Paddr(le.Uint64(raw[120:128])),
		NxXpDescNext:                 le.Uint32(raw[128:132]),
		NxXpDataNext:                 le.Uint32(raw[132:136]),
		NxXpDescIndex:                le.Uint32(raw[136:140]),
		NxXpDescLen:                  le.Uint32(raw[140:144]),
		NxXpDataIndex:                le.Uint32(raw[144:148]),
		NxXpDataLen:                  le.Uint32(raw[148:152]),
		NxSpacemanOid:                types.OidT(le.Uint64(raw[152:160])),
		NxOmapOid:                    types.OidT(le.Uint64(raw[160:168])),
		NxReaperOid:                  types.OidT(le.Uint64(raw[168:176])),
		NxTestType:                   le.Uint32(raw[176:180]),
		NxMaxFileSystems:             le.Uint32(raw[180:184]),
	}
	for i := 0; i < types.NxMaxFileSystems; i++ {
		off := 184 + i*8
		sb.NxFsOid[i] = types.OidT(le.Uint64(raw[off : off+8]))
	}
	countersOff := 184 + types.NxMaxFileSystems*8
	for i := 0; i < types.NxNumCounters; i++ {
		off := countersOff + i*8
		sb.NxCounters[i] = le.Uint64(raw[off : off+8])
	}
	off := countersOff + types.NxNumCounters*8
	sb.NxBlockedOutPrange = types.Prange{StartPaddr: types.Paddr(le.Uint64(raw[off : off+8])), BlockCount: le.Uint64(raw[off+8 : off+16])}
	off += 16
	sb.NxEvictMappingTreeOid = types.OidT(le.Uint64(raw[off : off+8]))
	off += 8
	sb.NxFlags = le.Uint64(raw[off : off+8])
	off += 8
	sb.NxEfiJumpstart = types.Paddr(le.Uint64(raw[off : off+8]))
	off += 8
	sb.NxFusionUuid = types.ReadUUID(raw, off)
	off += 16
	sb.NxKeylocker = types.Prange{StartPaddr: types.Paddr(le.Uint64(raw[off : off+8])), BlockCount: le.Uint64(raw[off+8 : off+16])}
	off += 16
	for i := 0; i < types.NxEphInfoCount; i++ {
		sb.NxEphemeralInfo[i] = le.Uint64(raw[off : off+8])
		off += 8
	}
	sb.NxTestOid = types.OidT(le.Uint64(raw[off : off+8]))
	off += 8
	sb.NxFusionMtOid = types.OidT(le.Uint64(raw[off : off+8]))
	off += 8
	sb.NxFusionWbcOid = types.OidT(le.Uint64(raw[off : off+8]))
	off += 8
	sb.NxFusionWbc = types.Prange{StartPaddr: types.Paddr(le.Uint64(raw[off : off+8])), BlockCount: le.Uint64(raw[off+8 : off+16])}
	off += 16
	sb.NxNewestMountedVersion = le.Uint64(raw[off : off+8])
	off += 8
	sb.NxMkbLocker = types.Prange{StartPaddr: types.Paddr(le.Uint64(raw[off : off+8])), BlockCount: le.Uint64(raw[off+8 : off+16])}

	return sb, nil
}

const checkpointMappingSize = 40

func decodeCheckpointMapPhys(raw []byte) (*types.CheckpointMapPhysT, error) {
	if len(raw) < 40 {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "container.decodeCheckpointMapPhys", "", "block too small")
	}
	le := types.LE
	cm := &types.CheckpointMapPhysT{
		CpmO:     decodeObjPhys(raw[0:32]),
		CpmFlags: le.Uint32(raw[32:36]),
		CpmCount: le.Uint32(raw[36:40]),
	}
	cm.CpmMap = make([]types.CheckpointMappingT, 0, cm.CpmCount)
	base := 40
	for i := uint32(0); i < cm.CpmCount; i++ {
		off := base + int(i)*checkpointMappingSize
		if off+checkpointMappingSize > len(raw) {
			return nil, apfserr.Wrap(apfserr.InvalidFormat, "container.decodeCheckpointMapPhys", "", "mapping array overruns block")
		}
		cm.CpmMap = append(cm.CpmMap, types.CheckpointMappingT{
			CpmType:    le.Uint32(raw[off : off+4]),
			CpmSubtype: le.Uint32(raw[off+4 : off+8]),
			CpmSize:    le.Uint32(raw[off+8 : off+12]),
			CpmPad:     le.Uint32(raw[off+12 : off+16]),
			CpmFsOid:   types.OidT(le.Uint64(raw[off+16 : off+24])),
			CpmOid:     types.OidT(le.Uint64(raw[off+24 : off+32])),
			CpmPaddr:   types.Paddr(le.Uint64(raw[off+32 : off+40])),
		})
	}
	return cm, nil
}

func decodeOmapPhys(raw []byte) (*types.OmapPhysT, error) {
	if len(raw) < 88 {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "container.decodeOmapPhys", "", "block too small for omap_phys_t")
	}
	le := types.LE
	return &types.OmapPhysT{
		OmO:                decodeObjPhys(raw[0:32]),
		OmFlags:            le.Uint32(raw[32:36]),
		OmSnapCount:        le.Uint32(raw[36:40]),
		OmTreeType:         le.Uint32(raw[40:44]),
		OmSnapshotTreeType: le.Uint32(raw[44:48]),
		OmTreeOid:          types.OidT(le.Uint64(raw[48:56])),
		OmSnapshotTreeOid:  types.OidT(le.Uint64(raw[56:64])),
		OmMostRecentSnap:   types.XidT(le.Uint64(raw[64:72])),
		OmPendingRevertMin: types.XidT(le.Uint64(raw[72:80])),
		OmPendingRevertMax: types.XidT(le.Uint64(raw[80:88])),
	}, nil
}
