package fsops

import (
	"time"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/btree"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// ufCompressed is BSD_UF_COMPRESSED (chflags(2)): a file whose data is
// actually held in its com.apple.decmpfs extended attribute rather than in
// its data stream. It isn't an APFS on-disk structure, so it has no home
// in apfs/types - it's a generic Unix flag APFS happens to overload.
const ufCompressed = 0x00000020

// compressedAttrName is the extended attribute a compressed file's real
// bytes (or a reference to them) are stored under.
const compressedAttrName = "com.apple.decmpfs"

// Inode is a decoded (INODE, id) record: the fixed j_inode_val_t fields
// plus its parsed extended fields.
type Inode struct {
	ID uint64
	types.JInodeValT
	Ext []XField
}

const inodeFixedSize = 92

// ReadInode looks up (INODE, id) with an exact match and decodes it.
func ReadInode(tree *btree.Tree, id uint64) (*Inode, error) {
	_, val, err := tree.Lookup(inodeKey(id), btree.ModeEQ)
	if err != nil {
		return nil, err
	}
	return decodeInode(id, val)
}

func decodeInode(id uint64, raw []byte) (*Inode, error) {
	if len(raw) < inodeFixedSize {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "fsops.decodeInode", "", "value shorter than j_inode_val_t")
	}
	le := types.LE
	v := types.JInodeValT{
		ParentId:               le.Uint64(raw[0:8]),
		PrivateId:              le.Uint64(raw[8:16]),
		CreateTime:             le.Uint64(raw[16:24]),
		ModTime:                le.Uint64(raw[24:32]),
		ChangeTime:             le.Uint64(raw[32:40]),
		AccessTime:             le.Uint64(raw[40:48]),
		InternalFlags:          le.Uint64(raw[48:56]),
		NchildrenOrNlink:       int32(le.Uint32(raw[56:60])),
		DefaultProtectionClass: types.CpKeyClassT(le.Uint32(raw[60:64])),
		WriteGenerationCounter: le.Uint32(raw[64:68]),
		BsdFlags:               le.Uint32(raw[68:72]),
		Owner:                  types.UidT(le.Uint32(raw[72:76])),
		Group:                  types.GidT(le.Uint32(raw[76:80])),
		Mode:                   types.ModeT(le.Uint16(raw[80:82])),
		Pad1:                   le.Uint16(raw[82:84]),
		UncompressedSize:       le.Uint64(raw[84:92]),
	}
	xfRaw := raw[inodeFixedSize:]
	xfields, err := ParseXFields(xfRaw)
	if err != nil {
		return nil, err
	}
	v.XFields = xfRaw
	return &Inode{ID: id, JInodeValT: v, Ext: xfields}, nil
}

// FileType returns the inode's S_IFMT bits.
func (in *Inode) FileType() types.ModeT { return in.Mode & types.SIfmt }

// IsDir reports whether the inode is a directory.
func (in *Inode) IsDir() bool { return in.FileType() == types.SIfdir }

// IsSymlink reports whether the inode is a symbolic link.
func (in *Inode) IsSymlink() bool { return in.FileType() == types.SIflnk }

// IsRegular reports whether the inode is a regular file.
func (in *Inode) IsRegular() bool { return in.FileType() == types.SIfreg }

// IsCompressed reports whether the inode's data is actually stored in its
// com.apple.decmpfs extended attribute, per spec.md §4.8.
func (in *Inode) IsCompressed() bool { return in.BsdFlags&ufCompressed != 0 }

// CreatedAt, ModifiedAt, ChangedAt, AccessedAt convert the inode's
// nanosecond-since-epoch timestamps to time.Time.
func (in *Inode) CreatedAt() time.Time  { return time.Unix(0, int64(in.CreateTime)) }
func (in *Inode) ModifiedAt() time.Time { return time.Unix(0, int64(in.ModTime)) }
func (in *Inode) ChangedAt() time.Time  { return time.Unix(0, int64(in.ChangeTime)) }
func (in *Inode) AccessedAt() time.Time { return time.Unix(0, int64(in.AccessTime)) }

// DataStreamID is the object identifier this inode's data stream is
// stored under (private_id, unless overridden by an INO_EXT_TYPE_DSTREAM
// extended field - APFS never does that for the default stream, so
// private_id is always the answer here).
func (in *Inode) DataStreamID() uint64 { return in.PrivateId }

// Dstream returns the inode's default data stream descriptor decoded
// from its INO_EXT_TYPE_DSTREAM extended field, or false if it carries
// none (directories, symlinks and never-written regular files have no
// such field).
func (in *Inode) Dstream() (types.JDstreamT, bool) {
	f, ok := FindXField(in.Ext, InoExtTypeDstream)
	if !ok || len(f.Data) < 40 {
		return types.JDstreamT{}, false
	}
	return decodeDstream(f.Data), true
}

// InoExtTypeDstream is INO_EXT_TYPE_DSTREAM (types.InoExtTypeDstream),
// repeated here so callers outside apfs/types don't need a second import
// just to call Dstream's FindXField lookup by name.
const InoExtTypeDstream = types.InoExtTypeDstream
