package apfs

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-apfs/apfs/fsops"
	"github.com/deploymenttheory/go-apfs/apfs/types"
	"github.com/deploymenttheory/go-apfs/apfs/volume"
)

// Volume is a mounted APFS volume, ready for inode, directory, file and
// extended-attribute reads.
type Volume struct {
	v   *volume.Volume
	src fsops.StreamSource
	ctx uint64
}

// Name returns the volume's name.
func (vol *Volume) Name() string { return vol.v.Name() }

// Superblock returns the mounted volume's apfs_superblock_t.
func (vol *Volume) Superblock() *types.ApfsSuperblockT { return vol.v.Superblock() }

// ListSnapshots enumerates every (SNAP_METADATA, xid) record in the
// volume's snapshot-metadata tree, or nil if the volume carries none.
func (vol *Volume) ListSnapshots() ([]fsops.SnapshotRecord, error) {
	tree := vol.v.SnapshotMetaTree()
	if tree == nil {
		return nil, nil
	}
	recs, err := fsops.ListSnapshots(tree)
	if err != nil {
		return nil, fmt.Errorf("apfs.Volume.ListSnapshots: %w", err)
	}
	return recs, nil
}

// GetInode decodes the (INODE, id) record for id.
func (vol *Volume) GetInode(id uint64) (*fsops.Inode, error) {
	in, err := fsops.ReadInode(vol.v.RootTree(), id)
	if err != nil {
		return nil, fmt.Errorf("apfs.Volume.GetInode: %w", err)
	}
	return in, nil
}

// ListDirectory returns every directory record whose parent is parentID.
func (vol *Volume) ListDirectory(parentID uint64) ([]fsops.DirEntry, error) {
	entries, err := fsops.ListDirectory(vol.v.RootTree(), parentID, vol.ctx)
	if err != nil {
		return nil, fmt.Errorf("apfs.Volume.ListDirectory: %w", err)
	}
	return entries, nil
}

// LookupName resolves a single child name under parentID.
func (vol *Volume) LookupName(parentID uint64, name string) (*fsops.DirEntry, error) {
	d, err := fsops.LookupName(vol.v.RootTree(), parentID, name, vol.ctx)
	if err != nil {
		return nil, fmt.Errorf("apfs.Volume.LookupName: %w", err)
	}
	return d, nil
}

// ReadFile reads up to len(buf) bytes of inode's default data stream
// starting at offset, returning the number of bytes actually read. An
// inode with no DSTREAM extended field (a directory, a target-less
// symlink, or a never-written regular file) reads as empty.
func (vol *Volume) ReadFile(inode *fsops.Inode, offset uint64, buf []byte) (int, error) {
	ds, ok := inode.Dstream()
	if !ok {
		return 0, nil
	}
	n, err := fsops.ReadFile(vol.src, inode.DataStreamID(), ds.Size, offset, buf)
	if err != nil {
		log.WithFields(logrus.Fields{"inode": inode.ID, "offset": offset}).WithError(err).Debug("read_file failed")
		return n, fmt.Errorf("apfs.Volume.ReadFile: %w", err)
	}
	return n, nil
}

// ListXattr returns the names of every extended attribute attached to
// inode id.
func (vol *Volume) ListXattr(inodeID uint64) ([]string, error) {
	xs, err := fsops.ListXattrs(vol.v.RootTree(), inodeID)
	if err != nil {
		return nil, fmt.Errorf("apfs.Volume.ListXattr: %w", err)
	}
	names := make([]string, len(xs))
	for i, x := range xs {
		names[i] = x.Name
	}
	return names, nil
}

// GetXattr reads extended attribute name's value off inode id, following
// its data stream when the value isn't embedded.
func (vol *Volume) GetXattr(inodeID uint64, name string) ([]byte, error) {
	x, err := fsops.GetXattr(vol.v.RootTree(), inodeID, name)
	if err != nil {
		return nil, fmt.Errorf("apfs.Volume.GetXattr: %w", err)
	}
	if x.Embedded {
		return x.Data, nil
	}
	buf := make([]byte, x.DataStream.Size)
	n, err := fsops.ReadFile(vol.src, x.DstreamID, x.DataStream.Size, 0, buf)
	if err != nil {
		return nil, fmt.Errorf("apfs.Volume.GetXattr: reading xattr stream: %w", err)
	}
	return buf[:n], nil
}
