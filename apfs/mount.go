// Package apfs is the driver's public entry point: mount a container from
// a block device, enumerate and mount its volumes, and read files and
// directories out of a mounted volume. It wires together
// apfs/container, apfs/volume, apfs/fsops and apfs/partition into the
// small surface described by the read-only APFS driver this module
// implements, so a caller never has to reach into an internal package
// directly.
package apfs

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/blockdevice"
	"github.com/deploymenttheory/go-apfs/apfs/btree"
	"github.com/deploymenttheory/go-apfs/apfs/container"
	"github.com/deploymenttheory/go-apfs/apfs/fsops"
	"github.com/deploymenttheory/go-apfs/apfs/partition"
	"github.com/deploymenttheory/go-apfs/apfs/types"
	"github.com/deploymenttheory/go-apfs/apfs/volume"
)

var log = logrus.WithField("component", "apfs")

// MountConfig collects mount-time tunables. The zero value is usable;
// construct one with the With* options when a caller needs to override a
// default.
type MountConfig struct {
	laxMode bool
}

// MountOption configures a MountConfig.
type MountOption func(*MountConfig)

// WithLaxMode lets MountContainer proceed when the checkpoint descriptor
// ring scan hit unreadable or checksum-failing slots (logged at Warn);
// without it such a scan fails the mount. It affects nothing else:
// checksum and decode failures on any other read are returned as usual.
func WithLaxMode() MountOption {
	return func(c *MountConfig) { c.laxMode = true }
}

// Container is a mounted APFS container: a checkpoint, its object map,
// and its key manager, ready to enumerate and mount volumes from.
type Container struct {
	c        *container.Container
	mainDev  blockdevice.Device
	tier2Dev blockdevice.Device
	closers  []closer
	cfg      MountConfig
}

type closer interface{ Close() error }

// MountContainer mounts the container found at [mainOff, mainOff+mainLen)
// of mainDev. tier2Dev, tier2Off and tier2Len are ignored (pass nil/0/0)
// unless the container is Fusion. xid, if non-zero, pins the mount to
// that exact checkpoint transaction id instead of the latest one.
func MountContainer(mainDev blockdevice.Device, mainOff, mainLen int64, tier2Dev blockdevice.Device, tier2Off, tier2Len int64, xid uint64, opts ...MountOption) (*Container, error) {
	var cfg MountConfig
	for _, o := range opts {
		o(&cfg)
	}

	entry := log.WithFields(logrus.Fields{"mainOff": mainOff, "mainLen": mainLen, "xid": xid})
	entry.Info("mounting container")

	boundMain, err := boundDevice(mainDev, mainOff, mainLen)
	if err != nil {
		return nil, fmt.Errorf("apfs.MountContainer: %w", err)
	}

	var boundTier2 blockdevice.Device
	if tier2Dev != nil {
		boundTier2, err = boundDevice(tier2Dev, tier2Off, tier2Len)
		if err != nil {
			return nil, fmt.Errorf("apfs.MountContainer: %w", err)
		}
	}

	copts := container.Options{Tier2: boundTier2, Xid: xid}
	cc, err := container.Mount(boundMain, copts)
	if err != nil {
		entry.WithError(err).Warn("container mount failed")
		return nil, fmt.Errorf("apfs.MountContainer: %w", err)
	}

	entry.WithFields(logrus.Fields{"blockSize": cc.BlockSize(), "volumes": cc.VolumeCount()}).Info("container mounted")

	if skips := cc.ScanSkips(); skips != nil {
		if !cfg.laxMode {
			entry.WithError(skips).Warn("checkpoint descriptor ring had unreadable slots")
			return nil, fmt.Errorf("apfs.MountContainer: %w: %v", apfserr.Wrap(apfserr.IOError, "apfs.MountContainer", "", "strict mode rejects a checkpoint scan with unreadable slots"), skips)
		}
		entry.WithError(skips).Warn("lax mode: ignoring unreadable checkpoint descriptor slots")
	}

	var closers []closer
	if fc, ok := mainDev.(closer); ok {
		closers = append(closers, fc)
	}
	if tier2Dev != nil {
		if fc, ok := tier2Dev.(closer); ok {
			closers = append(closers, fc)
		}
	}

	return &Container{c: cc, mainDev: mainDev, tier2Dev: tier2Dev, closers: closers, cfg: cfg}, nil
}

// MountFromPath opens path, locates an APFS container inside it via its
// GPT partition table if one is present, and mounts it. It's the
// convenience path cmd/apfsdump takes for "just point me at a disk
// image".
func MountFromPath(path string, xid uint64, opts ...MountOption) (*Container, error) {
	f, err := blockdevice.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("apfs.MountFromPath: %w", err)
	}

	off, length, perr := partition.Locate(f)
	if perr != nil {
		log.WithField("path", path).Debug("no GPT partition table found, treating file as a bare container")
		off, length = 0, f.Size()
	} else {
		log.WithFields(logrus.Fields{"path": path, "offset": off, "length": length}).Info("located Apple_APFS partition")
	}

	return MountContainer(f, off, length, nil, 0, 0, xid, opts...)
}

// Unmount releases a mounted container's underlying device handles in
// reverse construction order.
func (c *Container) Unmount() error {
	log.Info("unmounting container")
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Unmount is the package-level form of Container.Unmount, matching
// spec.md §6.2's free function signature.
func Unmount(c *Container) error { return c.Unmount() }

// VolumeCount returns the number of occupied volume slots in the
// container's file-system array.
func (c *Container) VolumeCount() int { return c.c.VolumeCount() }

// MaxVolumeSlots returns the size of the container's file-system array
// (nx_max_file_systems), the upper bound a caller should use when
// enumerating slots by index - VolumeCount only counts the occupied
// ones, and slots can be sparse.
func (c *Container) MaxVolumeSlots() int { return int(c.c.Superblock().NxMaxFileSystems) }

// Superblock returns the mounted checkpoint's container superblock.
func (c *Container) Superblock() *types.NxSuperblockT { return c.c.Superblock() }

// VolumeInfo summarizes a volume's superblock metadata without deriving
// its encryption key, enough to list volumes before committing to any
// password prompts.
type VolumeInfo struct {
	Index           int
	Name            string
	Role            uint16
	Encrypted       bool
	CaseInsensitive bool
	Sealed          bool
}

// GetVolumeInfo peeks at volume slot i's superblock.
func (c *Container) GetVolumeInfo(i int) (VolumeInfo, error) {
	sb, err := volume.PeekSuperblock(c.c, i)
	if err != nil {
		return VolumeInfo{}, fmt.Errorf("apfs.Container.GetVolumeInfo: %w", err)
	}
	return VolumeInfo{
		Index:           i,
		Name:            trimName(sb.ApfsVolname[:]),
		Role:            sb.ApfsRole,
		Encrypted:       sb.ApfsFsFlags&0x00000001 == 0,
		CaseInsensitive: sb.ApfsIncompatibleFeatures&0x00000001 != 0,
		Sealed:          sb.ApfsIncompatibleFeatures&types.ApfsIncompatSealedVolume != 0,
	}, nil
}

func trimName(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

// MountVolume mounts volume slot i. passphrase is tried for an encrypted
// volume; snapXid, if non-zero, requests mounting a snapshot rather than
// the live volume (apfs/volume does not yet support snapshot reads, so a
// non-zero snapXid not present in the volume's snapshot-metadata tree
// reports apfserr.NotFound, and one that is present reports
// apfserr.Unsupported).
func (c *Container) MountVolume(i int, passphrase string, snapXid uint64) (*Volume, error) {
	entry := log.WithFields(logrus.Fields{"slot": i, "snapXid": snapXid})
	entry.Info("mounting volume")

	vopts := volume.Options{Password: passphrase}
	v, err := volume.Mount(c.c, i, vopts)
	if err != nil {
		entry.WithError(err).Warn("volume mount failed")
		return nil, fmt.Errorf("apfs.Container.MountVolume: %w", err)
	}

	if snapXid != 0 {
		if _, serr := lookupSnapshot(v, snapXid); serr != nil {
			return nil, serr
		}
		return nil, apfserr.Wrap(apfserr.Unsupported, "apfs.Container.MountVolume", "", "mounting a snapshot's point-in-time filesystem view is not implemented")
	}

	entry.WithField("name", v.Name()).Info("volume mounted")

	src := fsops.StreamSource{
		Reader:    v.Reader(),
		RootTree:  v.RootTree(),
		FextTree:  v.FextTree(),
		Sealed:    v.Sealed(),
		BlockSize: c.c.BlockSize(),
		VEK:       v.VEK(),
	}
	ctx := v.Superblock().ApfsIncompatibleFeatures

	return &Volume{v: v, src: src, ctx: ctx}, nil
}

// lookupSnapshot resolves xid against v's snapshot-metadata tree,
// reporting apfserr.NotFound if no (SNAP_METADATA, xid) record exists.
func lookupSnapshot(v *volume.Volume, xid uint64) (bool, error) {
	tree := v.SnapshotMetaTree()
	if tree == nil {
		return false, apfserr.Wrap(apfserr.NotFound, "apfs.lookupSnapshot", "", "volume has no snapshot-metadata tree")
	}
	_, _, err := tree.Lookup(fsops.SnapMetaKey(xid), btree.ModeEQ)
	if err != nil {
		return false, apfserr.Wrap(apfserr.NotFound, "apfs.lookupSnapshot", "", "snapshot xid not found")
	}
	return true, nil
}

// boundDevice clips dev to [off, off+length), so container.Mount's
// PartitionOffset is always zero and every physical address the
// container layer computes is relative to the region a caller named via
// mainOff/mainLen, regardless of what kind of Device backs it.
func boundDevice(dev blockdevice.Device, off, length int64) (blockdevice.Device, error) {
	if off == 0 && (length == 0 || length == dev.Size()) {
		return dev, nil
	}
	if off < 0 || length <= 0 || off+length > dev.Size() {
		return nil, apfserr.Wrap(apfserr.OutOfRange, "apfs.boundDevice", "", "requested region exceeds device size")
	}
	return &regionDevice{inner: dev, offset: off, length: length}, nil
}

// regionDevice scopes reads to the byte sub-range [offset, offset+length)
// of any Device implementation. blockdevice.NewFileDeviceRegion, by
// contrast, only wraps an *os.File and applies no starting offset.
type regionDevice struct {
	inner  blockdevice.Device
	offset int64
	length int64
}

func (d *regionDevice) ReadAt(buf []byte, byteOffset int64) error {
	if byteOffset < 0 || byteOffset+int64(len(buf)) > d.length {
		return apfserr.Wrap(apfserr.OutOfRange, "apfs.regionDevice.ReadAt", "", "read beyond partition region")
	}
	return d.inner.ReadAt(buf, d.offset+byteOffset)
}

func (d *regionDevice) Size() int64 { return d.length }

func (d *regionDevice) SectorSize() int { return d.inner.SectorSize() }
