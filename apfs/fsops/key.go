// Package fsops implements the filesystem record layer (spec.md §4.8-4.9):
// inode lookup, directory listing and name resolution, extended-attribute
// access, and the data-stream reader that walks a file's extents. Every
// operation here is a sequence of btree.Tree.Lookup/Iterator calls against
// a mounted volume's trees; fsops owns only the key/value encodings, not
// the tree mechanics.
package fsops

import (
	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// buildKey encodes the 8-byte (type, object id) header used by every
// filesystem-tree key.
func buildKey(objType types.JObjTypes, objID uint64) []byte {
	hdr := (uint64(objType) << types.ObjTypeShift) | (objID & types.ObjIdMask)
	b := make([]byte, 8)
	types.LE.PutUint64(b, hdr)
	return b
}

// inodeKey builds a search key for the fixed-size (INODE, id) record.
func inodeKey(id uint64) []byte {
	return buildKey(types.ApfsTypeInode, id)
}

// dstreamIdKey builds a search key for the (DSTREAM_ID, id) record.
func dstreamIdKey(id uint64) []byte {
	return buildKey(types.ApfsTypeDstreamId, id)
}

// fileExtentKey builds a search key for a (FILE_EXTENT, id) record at a
// given logical offset.
func fileExtentKey(id, logicalAddr uint64) []byte {
	b := make([]byte, 16)
	copy(b, buildKey(types.ApfsTypeFileExtent, id))
	types.LE.PutUint64(b[8:16], logicalAddr)
	return b
}

// dirRecPlainKey builds a search key for the plain (name-only) directory
// record key format.
func dirRecPlainKey(parentID uint64, name string) []byte {
	nameBytes := append([]byte(name), 0)
	b := make([]byte, 10+len(nameBytes))
	copy(b, buildKey(types.ApfsTypeDirRec, parentID))
	types.LE.PutUint16(b[8:10], uint16(len(nameBytes)))
	copy(b[10:], nameBytes)
	return b
}

// dirRecHashedKey builds a search key for the hashed directory record key
// format, given a precomputed name_len_and_hash value.
func dirRecHashedKey(parentID uint64, nameLenAndHash uint32, name string) []byte {
	nameBytes := append([]byte(name), 0)
	b := make([]byte, 12+len(nameBytes))
	copy(b, buildKey(types.ApfsTypeDirRec, parentID))
	types.LE.PutUint32(b[8:12], nameLenAndHash)
	copy(b[12:], nameBytes)
	return b
}

// xattrKey builds a search key for the (XATTR, id) record with the given
// attribute name.
func xattrKey(id uint64, name string) []byte {
	nameBytes := append([]byte(name), 0)
	b := make([]byte, 10+len(nameBytes))
	copy(b, buildKey(types.ApfsTypeXattr, id))
	types.LE.PutUint16(b[8:10], uint16(len(nameBytes)))
	copy(b[10:], nameBytes)
	return b
}

// SnapMetaKey builds a search key for the (SNAP_METADATA, xid) record in
// a volume's snapshot-metadata tree.
func SnapMetaKey(xid uint64) []byte {
	return buildKey(types.ApfsTypeSnapMetadata, xid)
}

// keyHeader decodes the leading 8-byte header shared by every
// filesystem-tree key, returning the object id and record type.
func keyHeader(key []byte) (objID uint64, objType types.JObjTypes, err error) {
	if len(key) < 8 {
		return 0, 0, apfserr.Wrap(apfserr.InvalidFormat, "fsops.keyHeader", "", "key shorter than 8 bytes")
	}
	raw := types.LE.Uint64(key[0:8])
	return raw & types.ObjIdMask, types.JObjTypes((raw & types.ObjTypeMask) >> types.ObjTypeShift), nil
}
