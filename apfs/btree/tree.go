package btree

import (
	"fmt"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// Mode selects which entry Lookup returns relative to a search key, per
// spec.md §4.4: exact match, or the nearest entry in one of four
// directions when an exact match either doesn't exist or isn't wanted.
type Mode int

const (
	ModeEQ Mode = iota
	ModeLE
	ModeLT
	ModeGE
	ModeGT
)

// CompareFunc orders a search key against an entry's key. It returns a
// negative number if searchKey < entryKey, zero if equal, and positive
// if searchKey > entryKey. ctx carries tree-specific comparison state
// (e.g. a filesystem tree's incompatible-feature flags).
type CompareFunc func(searchKey, entryKey []byte, ctx uint64) (int, error)

// NodeSource resolves an object identifier to its decoded node. Container
// trees resolve oids directly against the block device; volume trees
// resolve them through the container's object map; both are represented
// uniformly here so Tree doesn't need to know which.
type NodeSource interface {
	GetNode(oid types.OidT) (*Node, error)
}

// Tree is a mounted B-tree: a root node plus everything needed to
// interpret its entries and descend into children.
type Tree struct {
	Root    *Node
	RootOid types.OidT
	Source  NodeSource
	Cmp     CompareFunc
	Ctx     uint64
}

// New mounts a tree given its already-resolved root node.
func New(root *Node, rootOid types.OidT, source NodeSource, cmp CompareFunc, ctx uint64) (*Tree, error) {
	if root.Info == nil {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "btree.New", "", "root node missing btree_info_t")
	}
	return &Tree{Root: root, RootOid: rootOid, Source: source, Cmp: cmp, Ctx: ctx}, nil
}

func (t *Tree) hashed() bool {
	return t.Root.Info.Fixed.Flags&types.BtreeHashed != 0
}

func (t *Tree) keySize() uint32 { return t.Root.Info.Fixed.KeySize }
func (t *Tree) valSize() uint32 { return t.Root.Info.Fixed.ValSize }

// findGE performs the binary search spec.md §4.4 describes: the smallest
// index whose key is >= searchKey, and whether that index's key is an
// exact match.
func (t *Tree) findGE(n *Node, searchKey []byte) (index int, equal bool, err error) {
	beg, end := 0, int(n.NKeys)-1
	for beg <= end {
		mid := (beg + end) >> 1
		ekey, kerr := n.keyAt(mid, t.keySize())
		if kerr != nil {
			return 0, false, kerr
		}
		cmp, cerr := t.Cmp(searchKey, ekey, t.Ctx)
		if cerr != nil {
			return 0, false, cerr
		}
		switch {
		case cmp < 0:
			end = mid - 1
		case cmp > 0:
			beg = mid + 1
		default:
			return mid, true, nil
		}
	}
	return beg, false, nil
}

// findLE mirrors find_ge but lands on the largest index whose key is <=
// searchKey when there is no exact match.
func (t *Tree) findLE(n *Node, searchKey []byte) (index int, equal bool, err error) {
	index, equal, err = t.findGE(n, searchKey)
	if err == nil && !equal && index > 0 {
		index--
	}
	return index, equal, err
}

func (t *Tree) childAt(n *Node, index int) (types.OidT, error) {
	oid, _, err := n.ChildOid(index, t.valSize(), t.RootOid, t.hashed())
	return oid, err
}

// Lookup searches the tree for searchKey under the given mode and
// returns the matched entry's own key and value. It implements the
// neighbor-candidate descent spec.md §4.4 describes: while walking
// interior nodes toward the leaf that would hold an exact match, it also
// remembers an adjacent child that might hold the nearest LT/GT/GE
// neighbor, and falls back to it if the leaf found by direct descent
// doesn't satisfy mode.
func (t *Tree) Lookup(searchKey []byte, mode Mode) (key, value []byte, err error) {
	if t.Root == nil {
		return nil, nil, apfserr.Wrap(apfserr.InvalidFormat, "btree.Tree.Lookup", "", "tree has no root")
	}

	node := t.Root
	var neighbor types.OidT
	haveNeighbor := false

	for {
		for node.Level > 0 {
			index, equal, ferr := t.findLE(node, searchKey)
			if ferr != nil {
				return nil, nil, fmt.Errorf("btree.Tree.Lookup: %w", ferr)
			}

			haveNeighbor = false
			if index > 0 && mode == ModeLT {
				nb, nerr := t.childAt(node, index-1)
				if nerr != nil {
					return nil, nil, fmt.Errorf("btree.Tree.Lookup: %w", nerr)
				}
				neighbor, haveNeighbor = nb, true
			} else if index+1 < int(node.NKeys) && (mode == ModeGE || mode == ModeGT) {
				nb, nerr := t.childAt(node, index+1)
				if nerr != nil {
					return nil, nil, fmt.Errorf("btree.Tree.Lookup: %w", nerr)
				}
				neighbor, haveNeighbor = nb, true
			}
			_ = equal

			childOid, cerr := t.childAt(node, index)
			if cerr != nil {
				return nil, nil, fmt.Errorf("btree.Tree.Lookup: %w", cerr)
			}
			child, gerr := t.Source.GetNode(childOid)
			if gerr != nil {
				return nil, nil, fmt.Errorf("btree.Tree.Lookup: descend to child %d: %w", childOid, gerr)
			}
			node = child
		}

		index, equal, ferr := t.findGE(node, searchKey)
		if ferr != nil {
			return nil, nil, fmt.Errorf("btree.Tree.Lookup: %w", ferr)
		}

		landed := false
		if !equal {
			switch mode {
			case ModeEQ:
				return nil, nil, apfserr.Wrap(apfserr.NotFound, "btree.Tree.Lookup", "", "no exact match")
			case ModeLE, ModeLT:
				if index > 0 {
					index--
					landed = true
				}
			case ModeGE, ModeGT:
				if index < int(node.NKeys) {
					landed = true
				}
			}
		} else {
			switch mode {
			case ModeLT:
				if index > 0 {
					index--
					landed = true
				}
			case ModeGT:
				if index+1 < int(node.NKeys) {
					index++
					landed = true
				}
			default:
				landed = true
			}
		}

		if landed {
			if node.NKeys == 0 {
				return nil, nil, apfserr.Wrap(apfserr.NotFound, "btree.Tree.Lookup", "", "empty node")
			}
			fk, kerr := node.keyAt(index, t.keySize())
			if kerr != nil {
				return nil, nil, fmt.Errorf("btree.Tree.Lookup: %w", kerr)
			}
			fv, verr := node.valAt(index, t.valSize())
			if verr != nil {
				return nil, nil, fmt.Errorf("btree.Tree.Lookup: %w", verr)
			}
			return fk, fv, nil
		}

		if !haveNeighbor {
			return nil, nil, apfserr.Wrap(apfserr.NotFound, "btree.Tree.Lookup", "", "no matching neighbor")
		}
		nbNode, gerr := t.Source.GetNode(neighbor)
		if gerr != nil {
			return nil, nil, fmt.Errorf("btree.Tree.Lookup: descend to neighbor %d: %w", neighbor, gerr)
		}
		node = nbNode
		haveNeighbor = false
	}
}

// First descends along the leftmost child at every level and returns the
// first key/value pair in the tree, per BTree::LookupFirst.
func (t *Tree) First() (key, value []byte, err error) {
	if t.Root == nil {
		return nil, nil, apfserr.Wrap(apfserr.InvalidFormat, "btree.Tree.First", "", "tree has no root")
	}
	node := t.Root
	for node.Level > 0 {
		childOid, cerr := t.childAt(node, 0)
		if cerr != nil {
			return nil, nil, fmt.Errorf("btree.Tree.First: %w", cerr)
		}
		child, gerr := t.Source.GetNode(childOid)
		if gerr != nil {
			return nil, nil, fmt.Errorf("btree.Tree.First: %w", gerr)
		}
		node = child
	}
	if node.NKeys == 0 {
		return nil, nil, apfserr.Wrap(apfserr.NotFound, "btree.Tree.First", "", "empty tree")
	}
	fk, err := node.keyAt(0, t.keySize())
	if err != nil {
		return nil, nil, err
	}
	fv, err := node.valAt(0, t.valSize())
	if err != nil {
		return nil, nil, err
	}
	return fk, fv, nil
}

// Iterator walks a tree's leaves in key order starting from a position
// established by Lookup or First, re-descending from the root for each
// step (no parent-pointer threading, matching the node-cache-backed
// traversal style the container/volume layers provide).
type Iterator struct {
	tree    *Tree
	lastKey []byte
	done    bool
}

// NewIterator returns an iterator positioned just before startKey (or at
// the beginning of the tree if startKey is nil).
func NewIterator(t *Tree, startKey []byte) *Iterator {
	return &Iterator{tree: t, lastKey: startKey}
}

// Next returns the next entry whose key is > the last one returned (or
// the first entry in the tree, if this is the first call and no start
// key was given).
func (it *Iterator) Next() (key, value []byte, err error) {
	if it.done {
		return nil, nil, apfserr.Wrap(apfserr.NotFound, "btree.Iterator.Next", "", "iterator exhausted")
	}
	if it.lastKey == nil {
		k, v, err := it.tree.First()
		if err != nil {
			it.done = true
			return nil, nil, err
		}
		it.lastKey = k
		return k, v, nil
	}
	k, v, err := it.tree.Lookup(it.lastKey, ModeGT)
	if err != nil {
		it.done = true
		return nil, nil, err
	}
	it.lastKey = k
	return k, v, nil
}
