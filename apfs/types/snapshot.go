package types

// JSnapMetadataValT is the value half of a (APFS_TYPE_SNAP_METADATA, xid)
// record: everything needed to resolve a snapshot's point-in-time
// volume superblock and extent-reference tree.
type JSnapMetadataValT struct {
	ExtentrefTreeOid  OidT
	SblockOid         OidT
	CreateTime        uint64
	ChangeTime        uint64
	Inum              uint64
	ExtentrefTreeType uint32
	Flags             uint32
	NameLen           uint16
	Name              []byte
}
