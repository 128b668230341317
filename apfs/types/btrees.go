package types

// B-Trees (pages 144-159)
// Most metadata in an APFS container is stored in B-trees.

// BtnFlagsT represents the flags used by a B-tree node.
// Reference: page 149
type BtnFlagsT uint16

const (
	// BtnodeRoot indicates the B-tree node is a root node.
	BtnodeRoot BtnFlagsT = 0x0001

	// BtnodeLeaf indicates the B-tree node is a leaf node.
	BtnodeLeaf BtnFlagsT = 0x0002

	// BtnodeFixedKvSize indicates the key and value entries within
	// each node have fixed sizes recorded in the root's btree_info.
	BtnodeFixedKvSize BtnFlagsT = 0x0004

	// BtnodeHashed indicates the nodes in this tree store a hash of
	// their child nodes alongside the child's object identifier.
	BtnodeHashed BtnFlagsT = 0x0008

	// BtnodeNoheader indicates the node doesn't store its object
	// header (used in some ephemeral trees).
	BtnodeNoheader BtnFlagsT = 0x0010

	// BtnodeCheckKoffInval indicates the key-offset-invalid bit is in use.
	BtnodeCheckKoffInval BtnFlagsT = 0x8000
)

// BtreeFlagsT represents the flags used by the tree-wide btree_info_t.
// Reference: page 154
type BtreeFlagsT uint32

const (
	// BtreeUint64Keys indicates the tree's keys are solely uint64 values
	// and can be compared directly rather than through the generic
	// tree-specific comparator.
	BtreeUint64Keys BtreeFlagsT = 0x00000001

	// BtreeSequentialInsert indicates keys are inserted in order.
	BtreeSequentialInsert BtreeFlagsT = 0x00000002

	// BtreeAllowGhosts indicates zero-length values are allowed.
	BtreeAllowGhosts BtreeFlagsT = 0x00000004

	// BtreeEphemeral indicates the tree stores ephemeral objects, not
	// physical or virtual ones.
	BtreeEphemeral BtreeFlagsT = 0x00000008

	// BtreePhysical indicates the tree's nodes are physical objects.
	BtreePhysical BtreeFlagsT = 0x00000010

	// BtreeNonpersistent indicates the tree isn't persisted across
	// unmounting.
	BtreeNonpersistent BtreeFlagsT = 0x00000020

	// BtreeKvNonaligned indicates the tree's keys and values aren't
	// required to be 8-byte aligned.
	BtreeKvNonaligned BtreeFlagsT = 0x00000040

	// BtreeHashed indicates the nodes store a hash alongside a child's
	// object identifier. Mirrors BtnodeHashed at the tree-info level.
	BtreeHashed BtreeFlagsT = 0x00000080

	// BtreeNoheader indicates the nodes don't store an object header.
	BtreeNoheader BtreeFlagsT = 0x00000100
)

// BtoffInvalid is defined in primitives.go as BtOffInvalid.

// NxBtreeNodeSizeDefault is the default B-tree node size, in bytes.
// Reference: page 154
const NxBtreeNodeSizeDefault = 4096

// BtreeNodeMinEntryCount is the minimum number of entries a node is
// expected to hold.
// Reference: page 155
const BtreeNodeMinEntryCount = 4

// KvlocT is the location, within a node, of a key and a value, used when
// BtnodeFixedKvSize is not set.
// Reference: page 151
type KvlocT struct {
	K NlocT
	V NlocT
}

// KvoffT is the location, within a node, of a fixed-size key and value,
// used when BtnodeFixedKvSize is set: lengths come from the root's
// btree_info_t instead of being stored per entry.
// Reference: page 151
type KvoffT struct {
	K uint16
	V uint16
}

// BtreeInfoFixedT is the part of a B-tree's information that never changes.
// Reference: page 152
type BtreeInfoFixedT struct {
	Flags   BtreeFlagsT
	NodeSize uint32
	KeySize  uint32
	ValSize  uint32
}

// BtreeInfoT is additional information about a B-tree, stored as a
// trailer at the end of the block that stores the root node.
// Reference: page 152
type BtreeInfoT struct {
	Fixed      BtreeInfoFixedT
	LongestKey uint32
	LongestVal uint32
	KeyCount   uint64
	NodeCount  uint64
}

// BtreeInfoSize is sizeof(btree_info_t): 16 (fixed) + 4 + 4 + 8 + 8.
const BtreeInfoSize = 40

// BtreeNodePhysFixedSize is sizeof(btree_node_phys_t) excluding its
// variable-length btn_data: 32-byte obj_phys_t header plus
// flags(2) + level(2) + nkeys(4) + 4 nloc_t fields (4 bytes each).
// Reference: page 148-149
const BtreeNodePhysFixedSize = 32 + 2 + 2 + 4 + 4*4 // 56

// BtnIndexNodeValT is an interior-node's value: a child's object
// identifier, optionally followed by a 32-byte hash of that child when
// the tree is hashed.
// Reference: page 153
type BtnIndexNodeValT struct {
	ChildOid OidT
}

// BtreeNodeHashSize is the size, in bytes, of a hashed tree's child hash.
// Reference: page 153
const BtreeNodeHashSize = 32
