package services

import (
	"context"
	"fmt"

	"github.com/deploymenttheory/go-apfs/apfs"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// volumeService implements the VolumeService interface on top of a
// ContainerService that also satisfies volumeOpener.
type volumeService struct {
	containerService ContainerService
}

// NewVolumeService creates a new volume service instance
func NewVolumeService(containerService ContainerService) VolumeService {
	return &volumeService{containerService: containerService}
}

func (vs *volumeService) open(ctx context.Context, containerPath string, volumeID uint64) (*apfs.Volume, error) {
	vo, ok := vs.containerService.(volumeOpener)
	if !ok {
		return nil, fmt.Errorf("volume service requires a volume-opening container service")
	}
	return vo.openVolume(ctx, containerPath, volumeID)
}

// OpenVolume opens a specific volume by ID
func (vs *volumeService) OpenVolume(ctx context.Context, containerPath string, volumeID uint64) (VolumeInfo, error) {
	info, err := vs.containerService.OpenContainer(ctx, containerPath)
	if err != nil {
		return VolumeInfo{}, err
	}
	for _, v := range info.Volumes {
		if v.ObjectID == volumeID {
			if _, err := vs.open(ctx, containerPath, volumeID); err != nil {
				return VolumeInfo{}, fmt.Errorf("mounting volume %d: %w", volumeID, err)
			}
			return v, nil
		}
	}
	return VolumeInfo{}, fmt.Errorf("no volume with ID %d in %s", volumeID, containerPath)
}

// OpenVolumeByName opens a volume by name
func (vs *volumeService) OpenVolumeByName(ctx context.Context, containerPath string, volumeName string) (VolumeInfo, error) {
	info, err := vs.containerService.OpenContainer(ctx, containerPath)
	if err != nil {
		return VolumeInfo{}, err
	}
	for _, v := range info.Volumes {
		if v.Name == volumeName {
			return vs.OpenVolume(ctx, containerPath, v.ObjectID)
		}
	}
	return VolumeInfo{}, fmt.Errorf("no volume named %q in %s", volumeName, containerPath)
}

// ReadVolumeSuperblock reads the volume superblock
func (vs *volumeService) ReadVolumeSuperblock(ctx context.Context, containerPath string, volumeID uint64) (*types.ApfsSuperblockT, error) {
	v, err := vs.open(ctx, containerPath, volumeID)
	if err != nil {
		return nil, err
	}
	return v.Superblock(), nil
}

// GetVolumeStatistics calculates volume statistics from a recursive walk
// of the directory tree under the root directory, not a full B-tree scan
// of every inode record.
func (vs *volumeService) GetVolumeStatistics(ctx context.Context, containerPath string, volumeID uint64) (FileSystemStats, error) {
	v, err := vs.open(ctx, containerPath, volumeID)
	if err != nil {
		return FileSystemStats{}, err
	}

	var stats FileSystemStats
	var walk func(parentID uint64) error
	walk = func(parentID uint64) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		entries, err := v.ListDirectory(parentID)
		if err != nil {
			return err
		}
		for _, e := range entries {
			in, err := v.GetInode(e.FileID)
			if err != nil {
				continue
			}
			switch {
			case in.IsDir():
				stats.TotalDirectories++
				if err := walk(e.FileID); err != nil {
					return err
				}
			case in.IsSymlink():
				stats.TotalSymlinks++
			default:
				stats.TotalFiles++
				if ds, ok := in.Dstream(); ok {
					stats.TotalSize += ds.Size
				}
			}
		}
		return nil
	}

	if err := walk(types.RootDirInoNum); err != nil {
		return stats, fmt.Errorf("walking volume for statistics: %w", err)
	}
	return stats, nil
}

// ListSnapshots enumerates volume snapshots recorded in the volume's
// snapshot-metadata tree.
func (vs *volumeService) ListSnapshots(ctx context.Context, containerPath string, volumeID uint64) ([]SnapshotInfo, error) {
	v, err := vs.open(ctx, containerPath, volumeID)
	if err != nil {
		return nil, err
	}

	recs, err := v.ListSnapshots()
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	snaps := make([]SnapshotInfo, 0, len(recs))
	for _, r := range recs {
		snaps = append(snaps, SnapshotInfo{
			ObjectID:  r.Xid,
			Name:      r.Name,
			CreatedAt: r.CreatedAt,
			VolumeID:  volumeID,
		})
	}
	return snaps, nil
}

// Close is a no-op: volumes are owned and closed by the ContainerService
// that mounted them.
func (vs *volumeService) Close() error { return nil }
