package btree

import (
	"bytes"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// CompareU64 orders two 8-byte little-endian keys numerically. It's used
// directly by any tree carrying BTREE_UINT64_KEYS, and as the first
// comparison step of the object map's (oid, xid) comparator.
func CompareU64(a, b []byte) (int, error) {
	if len(a) < 8 || len(b) < 8 {
		return 0, apfserr.Wrap(apfserr.InvalidFormat, "btree.CompareU64", "", "key shorter than 8 bytes")
	}
	av := types.LE.Uint64(a[:8])
	bv := types.LE.Uint64(b[:8])
	switch {
	case av < bv:
		return -1, nil
	case av > bv:
		return 1, nil
	default:
		return 0, nil
	}
}

// CompareBytes orders two keys lexically by their raw bytes, shorter-is-
// smaller on a common prefix. Used for plain-name directory entries and
// other byte-string keyed trees.
func CompareBytes(a, b []byte) (int, error) {
	return bytes.Compare(a, b), nil
}

// CompareU64Func adapts CompareU64 to the CompareFunc shape New expects,
// for trees (like the extent-reference tree) that carry no comparator
// context.
func CompareU64Func(search, entry []byte, _ uint64) (int, error) {
	return CompareU64(search, entry)
}
