// Package btree implements the node layout, lookup, and iteration
// contract every index in an APFS container is built from: the object
// map, filesystem trees, extent-reference trees, snapshot-metadata trees,
// and free-space queues.
package btree

import (
	"fmt"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// Node is a decoded btree_node_phys_t: the fixed header plus views into
// its owning block's table-of-contents, keys area, and values area.
type Node struct {
	OOid  types.OidT
	OXid  types.XidT
	OType uint32

	Flags types.BtnFlagsT
	Level uint16
	NKeys uint32

	TableSpace    types.NlocT
	FreeSpace     types.NlocT
	KeyFreeList   types.NlocT
	ValFreeList   types.NlocT

	raw []byte // the full block, including the 32-byte obj header

	// Info is only populated for root nodes (it's the btree_info_t
	// trailer stored at the end of the root's block).
	Info *types.BtreeInfoT
}

// IsRoot reports whether this node carries BTNODE_ROOT.
func (n *Node) IsRoot() bool { return n.Flags&types.BtnodeRoot != 0 }

// IsLeaf reports whether this node carries BTNODE_LEAF.
func (n *Node) IsLeaf() bool { return n.Flags&types.BtnodeLeaf != 0 }

func (n *Node) fixedKV() bool { return n.Flags&types.BtnodeFixedKvSize != 0 }

func (n *Node) hashed() bool { return n.Flags&types.BtnodeHashed != 0 }

// DecodeNode parses a raw block (block size bytes, checksum already
// verified by the caller/cache) into a Node.
func DecodeNode(raw []byte) (*Node, error) {
	if len(raw) < types.BtreeNodePhysFixedSize {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "btree.DecodeNode", "", "block shorter than fixed node header")
	}
	le := types.LE

	n := &Node{
		OOid:  types.OidT(le.Uint64(raw[8:16])),
		OXid:  types.XidT(le.Uint64(raw[16:24])),
		OType: le.Uint32(raw[24:28]),
		Flags: types.BtnFlagsT(le.Uint16(raw[32:34])),
		Level: le.Uint16(raw[34:36]),
		NKeys: le.Uint32(raw[36:40]),
		TableSpace: types.NlocT{
			Off: le.Uint16(raw[40:42]),
			Len: le.Uint16(raw[42:44]),
		},
		FreeSpace: types.NlocT{
			Off: le.Uint16(raw[44:46]),
			Len: le.Uint16(raw[46:48]),
		},
		KeyFreeList: types.NlocT{
			Off: le.Uint16(raw[48:50]),
			Len: le.Uint16(raw[50:52]),
		},
		ValFreeList: types.NlocT{
			Off: le.Uint16(raw[52:54]),
			Len: le.Uint16(raw[54:56]),
		},
		raw: raw,
	}

	if n.IsRoot() {
		if len(raw) < types.BtreeInfoSize {
			return nil, apfserr.Wrap(apfserr.InvalidFormat, "btree.DecodeNode", "", "block too small for btree_info_t trailer")
		}
		info := decodeBtreeInfo(raw[len(raw)-types.BtreeInfoSize:])
		n.Info = &info
	}

	return n, nil
}

func decodeBtreeInfo(b []byte) types.BtreeInfoT {
	le := types.LE
	return types.BtreeInfoT{
		Fixed: types.BtreeInfoFixedT{
			Flags:    types.BtreeFlagsT(le.Uint32(b[0:4])),
			NodeSize: le.Uint32(b[4:8]),
			KeySize:  le.Uint32(b[8:12]),
			ValSize:  le.Uint32(b[12:16]),
		},
		LongestKey: le.Uint32(b[16:20]),
		LongestVal: le.Uint32(b[20:24]),
		KeyCount:   le.Uint64(b[24:32]),
		NodeCount:  le.Uint64(b[32:40]),
	}
}

// nodeData is the portion of the block following the fixed header: the
// table of contents, the keys area, and the values area all live here.
func (n *Node) nodeData() []byte {
	return n.raw[types.BtreeNodePhysFixedSize:]
}

// keysBase is the byte offset, within nodeData, where the keys area
// begins: immediately after the table of contents.
func (n *Node) keysBase() int {
	return int(n.TableSpace.Off) + int(n.TableSpace.Len)
}

// valsEnd is the byte offset, within nodeData, one past the end of the
// values area. Root nodes reserve a trailing btree_info_t.
func (n *Node) valsEnd() int {
	end := len(n.nodeData())
	if n.IsRoot() {
		end -= types.BtreeInfoSize
	}
	return end
}

const kvoffSize = 4 // sizeof(kvoff_t): k(2) + v(2)
const kvlocSize = 8 // sizeof(kvloc_t): k{off,len}(4) + v{off,len}(4)

// keyAt returns the index-th key's bytes.
func (n *Node) keyAt(index int, rootKeySize uint32) ([]byte, error) {
	data := n.nodeData()
	if index < 0 || uint32(index) >= n.NKeys {
		return nil, apfserr.Wrap(apfserr.OutOfRange, "btree.Node.keyAt", "", "key index out of range")
	}

	base := n.keysBase()

	if n.fixedKV() {
		tocStart := index * kvoffSize
		if tocStart+kvoffSize > len(data) {
			return nil, apfserr.Wrap(apfserr.InvalidFormat, "btree.Node.keyAt", "", "kvoff entry overruns node")
		}
		koff := types.LE.Uint16(data[tocStart : tocStart+2])
		start := base + int(koff)
		end := start + int(rootKeySize)
		if start < 0 || end > len(data) {
			return nil, apfserr.Wrap(apfserr.InvalidFormat, "btree.Node.keyAt", "", "key bytes out of range")
		}
		return data[start:end], nil
	}

	tocStart := index * kvlocSize
	if tocStart+kvlocSize > len(data) {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "btree.Node.keyAt", "", "kvloc entry overruns node")
	}
	koff := types.LE.Uint16(data[tocStart : tocStart+2])
	klen := types.LE.Uint16(data[tocStart+2 : tocStart+4])
	start := base + int(koff)
	end := start + int(klen)
	if start < 0 || end > len(data) {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "btree.Node.keyAt", "", "key bytes out of range")
	}
	return data[start:end], nil
}

// valAt returns the index-th value's bytes, or nil if the slot is a
// deleted/ghost entry (v_off == BtOffInvalid).
func (n *Node) valAt(index int, rootValSize uint32) ([]byte, error) {
	data := n.nodeData()
	if index < 0 || uint32(index) >= n.NKeys {
		return nil, apfserr.Wrap(apfserr.OutOfRange, "btree.Node.valAt", "", "value index out of range")
	}

	end := n.valsEnd()

	var voff, vlen uint16
	if n.fixedKV() {
		tocStart := index * kvoffSize
		if tocStart+kvoffSize > len(data) {
			return nil, apfserr.Wrap(apfserr.InvalidFormat, "btree.Node.valAt", "", "kvoff entry overruns node")
		}
		voff = types.LE.Uint16(data[tocStart+2 : tocStart+4])
		if n.IsLeaf() {
			vlen = uint16(rootValSize)
		} else {
			vlen = 8
			if n.hashed() {
				vlen += types.BtreeNodeHashSize
			}
		}
	} else {
		tocStart := index * kvlocSize
		if tocStart+kvlocSize > len(data) {
			return nil, apfserr.Wrap(apfserr.InvalidFormat, "btree.Node.valAt", "", "kvloc entry overruns node")
		}
		voff = types.LE.Uint16(data[tocStart+4 : tocStart+6])
		vlen = types.LE.Uint16(data[tocStart+6 : tocStart+8])
	}

	if voff == types.BtOffInvalid {
		return nil, nil
	}

	start := end - int(voff)
	stop := start + int(vlen)
	if start < 0 || stop > len(data) || start > stop {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "btree.Node.valAt", "", "value bytes out of range")
	}
	return data[start:stop], nil
}

// ChildOid decodes an interior node's index-th value as a child reference,
// applying the HASHED tree's root-relative adjustment when rootOid and
// the tree's hashed flag require it. The 32-byte content hash, if present,
// is returned but not verified (spec.md §9).
func (n *Node) ChildOid(index int, rootValSize uint32, rootOid types.OidT, hashed bool) (types.OidT, []byte, error) {
	v, err := n.valAt(index, rootValSize)
	if err != nil {
		return 0, nil, fmt.Errorf("btree.Node.ChildOid: %w", err)
	}
	if v == nil || len(v) < 8 {
		return 0, nil, apfserr.Wrap(apfserr.InvalidFormat, "btree.Node.ChildOid", "", "missing child value")
	}
	oid := types.OidT(types.LE.Uint64(v[0:8]))
	if hashed {
		oid += rootOid
	}
	var hash []byte
	if len(v) >= 8+types.BtreeNodeHashSize {
		hash = v[8 : 8+types.BtreeNodeHashSize]
	}
	return oid, hash, nil
}
