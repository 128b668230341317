// Package volume implements volume mount (spec.md §4.7): resolving an
// apfs_superblock through the container object map, deriving the volume
// encryption key when needed, and initializing the volume's own object
// map and filesystem B-trees.
package volume

import (
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/btree"
	"github.com/deploymenttheory/go-apfs/apfs/container"
	"github.com/deploymenttheory/go-apfs/apfs/keybag"
	"github.com/deploymenttheory/go-apfs/apfs/omap"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// Volume is a mounted APFS volume.
type Volume struct {
	reader     container.Reader
	superblock *types.ApfsSuperblockT

	omap *omap.OMap

	rootTree     *btree.Tree
	extentRef    *btree.Tree
	snapMetaTree *btree.Tree
	fextTree     *btree.Tree

	vek []byte
}

// PasswordPrompt resolves a password for an encrypted volume, given the
// volume UUID and an optional hint (empty if the volume has none). It is
// the seam through which the surrounding application collects
// credentials; apfs/volume never prompts directly.
type PasswordPrompt func(volumeUUID types.UUID, hint string) (string, error)

// Options configures Mount.
type Options struct {
	// Password, if non-empty, is tried before falling back to Prompt.
	Password string
	Prompt   PasswordPrompt
}

// PeekSuperblock resolves and decodes volume slot fsid's apfs_superblock_t
// without deriving its encryption key or mounting its B-trees. It's cheap
// enough to call once per slot to build a volume listing (name, role,
// flags) without committing to a password prompt for every encrypted
// volume along the way.
func PeekSuperblock(c *container.Container, fsid int) (*types.ApfsSuperblockT, error) {
	oid, err := c.VolumeOid(fsid)
	if err != nil {
		return nil, fmt.Errorf("volume.PeekSuperblock: %w", err)
	}

	om := c.ObjectMap()
	if om == nil {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "volume.PeekSuperblock", "", "container has no object map")
	}
	mapping, err := om.Latest(oid)
	if err != nil {
		return nil, fmt.Errorf("volume.PeekSuperblock: resolving volume superblock: %w", err)
	}

	raw, err := c.Reader().ReadBlockChecked(mapping.Paddr)
	if err != nil {
		return nil, fmt.Errorf("volume.PeekSuperblock: %w", err)
	}
	sb, err := decodeApfsSuperblock(raw)
	if err != nil {
		return nil, fmt.Errorf("volume.PeekSuperblock: %w", err)
	}
	if sb.ApfsMagic != types.ApfsMagic {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "volume.PeekSuperblock", "", "block is not an apfs_superblock_t")
	}
	return sb, nil
}

// Mount resolves volume slot fsid through c's object map at "latest" xid
// and initializes its trees, per spec.md §4.7 steps 1-5.
func Mount(c *container.Container, fsid int, opts Options) (*Volume, error) {
	sb, err := PeekSuperblock(c, fsid)
	if err != nil {
		return nil, err
	}

	v := &Volume{reader: c.Reader(), superblock: sb}

	if sb.ApfsFsFlags&types.ApfsFsUnencrypted == 0 {
		vek, err := deriveVEK(c.KeyManager(), sb.ApfsVolUuid, opts)
		if err != nil {
			return nil, fmt.Errorf("volume.Mount: %w", err)
		}
		v.vek = vek
	}

	if sb.ApfsOmapOid != 0 {
		omapRaw, err := v.reader.ReadBlockChecked(types.Paddr(sb.ApfsOmapOid))
		if err != nil {
			return nil, fmt.Errorf("volume.Mount: reading volume object map: %w", err)
		}
		omapPhys, err := decodeOmapPhys(omapRaw)
		if err != nil {
			return nil, fmt.Errorf("volume.Mount: %w", err)
		}
		v.omap = omap.New(omapPhys, v.reader)
	} else {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "volume.Mount", "", "volume has no object map")
	}

	ctx := sb.ApfsIncompatibleFeatures

	v.rootTree, err = v.mountVirtualTree(sb.ApfsRootTreeOid, FsKeyCompare, ctx)
	if err != nil {
		return nil, fmt.Errorf("volume.Mount: root tree: %w", err)
	}
	if sb.ApfsExtentrefTreeOid != 0 {
		v.extentRef, err = v.mountPhysicalTree(sb.ApfsExtentrefTreeOid, btree.CompareU64Func)
		if err != nil {
			return nil, fmt.Errorf("volume.Mount: extent-ref tree: %w", err)
		}
	}
	if sb.ApfsSnapMetaTreeOid != 0 {
		v.snapMetaTree, err = v.mountVirtualTree(sb.ApfsSnapMetaTreeOid, FsKeyCompare, ctx)
		if err != nil {
			return nil, fmt.Errorf("volume.Mount: snapshot-meta tree: %w", err)
		}
	}
	if sb.ApfsIncompatibleFeatures&types.ApfsIncompatSealedVolume != 0 && sb.ApfsFextTreeOid != 0 {
		v.fextTree, err = v.mountPhysicalTree(sb.ApfsFextTreeOid, FextKeyCompare)
		if err != nil {
			return nil, fmt.Errorf("volume.Mount: fext tree: %w", err)
		}
	}

	return v, nil
}

func deriveVEK(km *keybag.Manager, volUUID types.UUID, opts Options) ([]byte, error) {
	if km == nil {
		return nil, apfserr.Wrap(apfserr.Unsupported, "volume.deriveVEK", "", "container has no key manager")
	}
	if opts.Password != "" {
		vek, err := km.DeriveVEK(volUUID, opts.Password)
		if err == nil {
			return vek, nil
		}
	}
	if opts.Prompt == nil {
		return nil, apfserr.Wrap(apfserr.Unsupported, "volume.deriveVEK", "", "volume is encrypted and no password prompt was supplied")
	}
	hint, _, _ := km.GetPasswordHint(volUUID)
	password, err := opts.Prompt(volUUID, hint)
	if err != nil {
		return nil, fmt.Errorf("volume.deriveVEK: %w", err)
	}
	return km.DeriveVEK(volUUID, password)
}

// mountVirtualTree fetches a virtual object's root node by resolving its
// oid through the volume's object map, then wraps it in a btree.Tree
// using source as the node loader for subsequent descents.
func (v *Volume) mountVirtualTree(oid types.OidT, cmp btree.CompareFunc, ctx uint64) (*btree.Tree, error) {
	mapping, err := v.omap.Latest(oid)
	if err != nil {
		return nil, err
	}
	src := &virtualTreeSource{reader: v.reader, omap: v.omap}
	root, err := src.reader.GetNode(types.OidT(mapping.Paddr))
	if err != nil {
		return nil, err
	}
	return btree.New(root, oid, src, cmp, ctx)
}

// mountPhysicalTree fetches a tree whose oid is already a paddr.
func (v *Volume) mountPhysicalTree(oid types.OidT, cmp btree.CompareFunc) (*btree.Tree, error) {
	root, err := v.reader.GetNode(oid)
	if err != nil {
		return nil, err
	}
	return btree.New(root, oid, v.reader, cmp, 0)
}

// virtualTreeSource resolves child oids of a virtual tree (the root
// filesystem tree, the snapshot-metadata tree) through the volume's
// object map on every node fetch, since interior-node child references
// in a virtual tree are themselves virtual oids, not paddrs.
type virtualTreeSource struct {
	reader container.Reader
	omap   *omap.OMap
}

func (s *virtualTreeSource) GetNode(oid types.OidT) (*btree.Node, error) {
	mapping, err := s.omap.Latest(oid)
	if err != nil {
		return nil, fmt.Errorf("volume.virtualTreeSource.GetNode: %w", err)
	}
	return s.reader.GetNode(types.OidT(mapping.Paddr))
}

// Superblock returns the mounted apfs_superblock_t.
func (v *Volume) Superblock() *types.ApfsSuperblockT { return v.superblock }

// Name returns the volume's name, trimmed of its NUL terminator.
func (v *Volume) Name() string {
	return strings.TrimRight(string(v.superblock.ApfsVolname[:]), "\x00")
}

// Sealed reports whether this is a sealed (signed, read-only) volume.
func (v *Volume) Sealed() bool {
	return v.superblock.ApfsIncompatibleFeatures&types.ApfsIncompatSealedVolume != 0
}

// VEK returns the derived volume encryption key, or nil if the volume is
// unencrypted.
func (v *Volume) VEK() []byte { return v.vek }

// RootTree returns the volume's filesystem B-tree.
func (v *Volume) RootTree() *btree.Tree { return v.rootTree }

// ExtentRefTree returns the volume's extent-reference B-tree, or nil if
// it was not present.
func (v *Volume) ExtentRefTree() *btree.Tree { return v.extentRef }

// SnapshotMetaTree returns the volume's snapshot-metadata B-tree.
func (v *Volume) SnapshotMetaTree() *btree.Tree { return v.snapMetaTree }

// FextTree returns the sealed-volume file-extent B-tree, or nil on
// volumes without APFS_INCOMPAT_SEALED_VOLUME.
func (v *Volume) FextTree() *btree.Tree { return v.fextTree }

// Reader exposes the underlying physical reader for apfs/fsops.
func (v *Volume) Reader() container.Reader { return v.reader }

// ObjectMap returns the volume's own object map.
func (v *Volume) ObjectMap() *omap.OMap { return v.omap }
