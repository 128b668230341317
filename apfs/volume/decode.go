package volume

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

func decodeWrappedMetaCryptoState(b []byte) types.WrappedMetaCryptoStateT {
	le := types.LE
	return types.WrappedMetaCryptoStateT{
		MajorVersion:    le.Uint16(b[0:2]),
		MinorVersion:    le.Uint16(b[2:4]),
		Cpflags:         le.Uint32(b[4:8]),
		PersistentClass: types.CpKeyClassT(le.Uint32(b[8:12])),
		KeyOsVersion:    types.CpKeyOsVersionT(le.Uint32(b[12:16])),
		KeyRevision:     types.CpKeyRevisionT(le.Uint16(b[16:18])),
		Unused:          le.Uint16(b[18:20]),
	}
}

func decodeOmapPhys(raw []byte) (*types.OmapPhysT, error) {
	if len(raw) < 88 {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "volume.decodeOmapPhys", "", "block too small for omap_phys_t")
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

func decodeModifiedBy(b []byte) types.ApfsModifiedByT {
	le := types.LE
	var m types.ApfsModifiedByT
	copy(m.Id[:], b[0:types.ApfsModifiedNamelen])
	off := types.ApfsModifiedNamelen
	m.Timestamp = le.Uint64(b[off : off+8])
	m.LastXid = types.XidT(le.Uint64(b[off+8 : off+16]))
	return m
}

const modifiedBySize = types.ApfsModifiedNamelen + 16

// decodeApfsSuperblock parses a raw block into an apfs_superblock_t.
func decodeApfsSuperblock(raw []byte) (*types.ApfsSuperblockT, error) {
	const fixedSize = 272 + modifiedBySize*(1+types.ApfsMaxHist)
	if len(raw) < fixedSize {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "volume.decodeApfsSuperblock", "", "block too small for apfs_superblock_t")
	}
	le := types.LE
	sb := &types.ApfsSuperblockT{
		ApfsO:                          decodeObjPhys(raw[0:32]),
		ApfsMagic:                      le.Uint32(raw[32:36]),
		ApfsFsIndex:                    le.Uint32(raw[36:40]),
		ApfsFeatures:                   le.Uint64(raw[40:48]),
		ApfsReadonlyCompatibleFeatures: le.Uint64(raw[48:56]),
		ApfsIncompatibleFeatures:       le.Uint64(raw[56:64]),
		ApfsUnmountTime:                le.Uint64(raw[64:72]),
		ApfsFsReserveBlockCount:        le.Uint64(raw[72:80]),
		ApfsFsQuotaBlockCount:          le.Uint64(raw[80:88]),
		ApfsFsAllocCount:               le.Uint64(raw[88:96]),
		ApfsMetaCrypto:                 decodeWrappedMetaCryptoState(raw[96:116]),
		ApfsRootTreeType:               le.Uint32(raw[116:120]),
		ApfsExtentreftreeType:          le.Uint32(raw[120:124]),
		ApfsSnapMetatreeType:           le.Uint32(raw[124:128]),
		ApfsOmapOid:                    types.OidT(le.Uint64(raw[128:136])),
		ApfsRootTreeOid:                types.OidT(le.Uint64(raw[136:144])),
		ApfsExtentrefTreeOid:           types.OidT(le.Uint64(raw[144:152])),
		ApfsSnapMetaTreeOid:            types.OidT(le.Uint64(raw[152:160])),
		ApfsRevertToXid:                types.XidT(le.Uint64(raw[160:168])),
		ApfsRevertToSblockOid:          types.OidT(le.Uint64(raw[168:176])),
		ApfsNextObjId:                  le.Uint64(raw[176:184]),
		ApfsNumFiles:                   le.Uint64(raw[184:192]),
		ApfsNumDirectories:             le.Uint64(raw[192:200]),
		ApfsNumSymlinks:                le.Uint64(raw[200:208]),
		ApfsNumOtherFsobjects:          le.Uint64(raw[208:216]),
		ApfsNumSnapshots:               le.Uint64(raw[216:224]),
		ApfsTotalBlocksAlloced:         le.Uint64(raw[224:232]),
		ApfsTotalBlocksFreed:           le.Uint64(raw[232:240]),
		ApfsVolUuid:                    types.ReadUUID(raw, 240),
		ApfsLastModTime:                le.Uint64(raw[256:264]),
		ApfsFsFlags:                    le.Uint64(raw[264:272]),
	}
	off := 272
	sb.ApfsFormattedBy = decodeModifiedBy(raw[off : off+modifiedBySize])
	off += modifiedBySize
	for i := 0; i < types.ApfsMaxHist; i++ {
		sb.ApfsModifiedBy[i] = decodeModifiedBy(raw[off : off+modifiedBySize])
		off += modifiedBySize
	}
	if off+types.ApfsVolnameLen > len(raw) {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "volume.decodeApfsSuperblock", "", "block too small for apfs_volname")
	}
	copy(sb.ApfsVolname[:], raw[off:off+types.ApfsVolnameLen])
	off += types.ApfsVolnameLen

	sb.ApfsNextDocId = le.Uint32(raw[off : off+4])
	off += 4
	sb.ApfsRole = le.Uint16(raw[off : off+2])
	off += 2
	sb.Reserved = le.Uint16(raw[off : off+2])
	off += 2
	sb.ApfsRootToXid = types.XidT(le.Uint64(raw[off : off+8]))
	off += 8
	sb.ApfsErStateOid = types.OidT(le.Uint64(raw[off : off+8]))
	off += 8
	sb.ApfsCloneinfoIdEpoch = le.Uint64(raw[off : off+8])
	off += 8
	sb.ApfsCloneinfoXid = le.Uint64(raw[off : off+8])
	off += 8
	sb.ApfsSnapMetaExtOid = types.OidT(le.Uint64(raw[off : off+8]))
	off += 8
	sb.ApfsVolumeGroupId = types.ReadUUID(raw, off)
	off += 16
	sb.ApfsIntegrityMetaOid = types.OidT(le.Uint64(raw[off : off+8]))
	off += 8
	sb.ApfsFextTreeOid = types.OidT(le.Uint64(raw[off : off+8]))
	off += 8
	sb.ApfsFextTreeType = le.Uint32(raw[off : off+4])
	off += 4
	sb.ReservedType = le.Uint32(raw[off : off+4])
	off += 4
	if off+8 <= len(raw) {
		sb.ReservedOid = types.OidT(le.Uint64(raw[off : off+8]))
	}

	return sb, nil
}
