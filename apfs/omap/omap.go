// Package omap implements lookups against an object map B-tree: the
// (oid, xid) -> (paddr, size, flags) index every virtual object in a
// container or volume is resolved through.
package omap

import (
	"fmt"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/btree"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// Mapping is a resolved object map entry.
type Mapping struct {
	Flags uint32
	Size  uint32
	Paddr types.Paddr
}

func (m Mapping) Encrypted() bool { return m.Flags&types.OmapValEncrypted != 0 }
func (m Mapping) Noheader() bool  { return m.Flags&types.OmapValNoheader != 0 }
func (m Mapping) Deleted() bool   { return m.Flags&types.OmapValDeleted != 0 }

// OMap is a mounted object map: its own phys header plus the lazily
// instantiated mapping B-tree, per spec.md §4.6 step 5.
type OMap struct {
	Phys   *types.OmapPhysT
	source btree.NodeSource
	tree   *btree.Tree
}

// New wraps an already-decoded omap_phys_t. The mapping tree's root node
// is fetched from source on first use, not eagerly.
func New(phys *types.OmapPhysT, source btree.NodeSource) *OMap {
	return &OMap{Phys: phys, source: source}
}

func (o *OMap) ensureTree() (*btree.Tree, error) {
	if o.tree != nil {
		return o.tree, nil
	}
	root, err := o.source.GetNode(o.Phys.OmTreeOid)
	if err != nil {
		return nil, fmt.Errorf("omap.OMap.ensureTree: %w", err)
	}
	tr, err := btree.New(root, o.Phys.OmTreeOid, o.source, Compare, 0)
	if err != nil {
		return nil, fmt.Errorf("omap.OMap.ensureTree: %w", err)
	}
	o.tree = tr
	return tr, nil
}

// Compare orders object-map keys by oid first, then xid, per spec.md
// §4.4's comparator table.
func Compare(search, entry []byte, _ uint64) (int, error) {
	if len(search) < 16 || len(entry) < 16 {
		return 0, apfserr.Wrap(apfserr.InvalidFormat, "omap.Compare", "", "key shorter than 16 bytes")
	}
	sOid := types.LE.Uint64(search[0:8])
	eOid := types.LE.Uint64(entry[0:8])
	if sOid != eOid {
		if sOid < eOid {
			return -1, nil
		}
		return 1, nil
	}
	sXid := types.LE.Uint64(search[8:16])
	eXid := types.LE.Uint64(entry[8:16])
	switch {
	case sXid < eXid:
		return -1, nil
	case sXid > eXid:
		return 1, nil
	default:
		return 0, nil
	}
}

func encodeKey(oid types.OidT, xid types.XidT) []byte {
	buf := make([]byte, 16)
	types.LE.PutUint64(buf[0:8], uint64(oid))
	types.LE.PutUint64(buf[8:16], uint64(xid))
	return buf
}

func decodeValue(b []byte) (Mapping, error) {
	if len(b) < 16 {
		return Mapping{}, apfserr.Wrap(apfserr.InvalidFormat, "omap.decodeValue", "", "value shorter than 16 bytes")
	}
	return Mapping{
		Flags: types.LE.Uint32(b[0:4]),
		Size:  types.LE.Uint32(b[4:8]),
		Paddr: types.Paddr(types.LE.Uint64(b[8:16])),
	}, nil
}

// Resolve looks up oid's mapping as of xid. Passing xid == ^XidT(0)
// ("latest") performs an LE lookup so the most recent mapping not newer
// than the live transaction is returned, matching spec.md §4.4's note on
// the object-map comparator.
func (o *OMap) Resolve(oid types.OidT, xid types.XidT) (Mapping, error) {
	tr, err := o.ensureTree()
	if err != nil {
		return Mapping{}, err
	}

	mode := btree.ModeEQ
	if xid == ^types.XidT(0) {
		mode = btree.ModeLE
	}

	k, v, err := tr.Lookup(encodeKey(oid, xid), mode)
	if err != nil {
		return Mapping{}, fmt.Errorf("omap.OMap.Resolve: oid=%d xid=%d: %w", oid, xid, err)
	}
	if len(k) < 8 || types.OidT(types.LE.Uint64(k[0:8])) != oid {
		// An LE search with no entry for this exact oid lands on the
		// previous oid's last entry instead; that's not a mapping for
		// the object the caller asked about.
		return Mapping{}, apfserr.Wrap(apfserr.NotFound, "omap.OMap.Resolve", fmt.Sprintf("oid=%d", oid), "no mapping for this object identifier")
	}
	return decodeValue(v)
}

// Latest resolves oid to its most recent mapping, the form volume and
// container mounts use for "xid = 0 meaning latest" per spec.md §4.7.
func (o *OMap) Latest(oid types.OidT) (Mapping, error) {
	return o.Resolve(oid, ^types.XidT(0))
}
