package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/deploymenttheory/go-apfs/apfs"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// containerHandle is one mounted container plus whatever volumes have
// been mounted off it so far, keyed by slot index.
type containerHandle struct {
	devicePath string
	mc         *apfs.Container
	openedAt   time.Time

	mu      sync.Mutex
	volumes map[int]*apfs.Volume
}

func (h *containerHandle) volume(i int) (*apfs.Volume, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if v, ok := h.volumes[i]; ok {
		return v, nil
	}
	v, err := h.mc.MountVolume(i, "", 0)
	if err != nil {
		return nil, err
	}
	h.volumes[i] = v
	return v, nil
}

// openVolume implements volumeOpener, letting filesystemService,
// volumeService and extractionService reach a mounted *apfs.Volume
// through the ContainerService interface they're already handed.
func (cs *containerService) openVolume(ctx context.Context, containerPath string, volumeID uint64) (*apfs.Volume, error) {
	if _, err := cs.OpenContainer(ctx, containerPath); err != nil {
		return nil, err
	}
	cs.mu.RLock()
	handle := cs.openContainers[containerPath]
	cs.mu.RUnlock()
	return handle.volume(int(volumeID))
}

// containerService implements the ContainerService interface on top of
// the apfs package's Mount API facade.
type containerService struct {
	mu             sync.RWMutex
	openContainers map[string]*containerHandle
}

// NewContainerService creates a new container service instance
func NewContainerService() ContainerService {
	return &containerService{
		openContainers: make(map[string]*containerHandle),
	}
}

// DiscoverContainers finds APFS containers on accessible devices
func (cs *containerService) DiscoverContainers(ctx context.Context) ([]ContainerInfo, error) {
	var containers []ContainerInfo

	searchPaths := []string{
		"/dev/disk*",
		"/Volumes/*",
		"*.dmg",
		"*.img",
	}

	for _, pattern := range searchPaths {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}

		for _, path := range matches {
			select {
			case <-ctx.Done():
				return containers, ctx.Err()
			default:
			}

			if info, err := cs.OpenContainer(ctx, path); err == nil {
				containers = append(containers, info)
			}
		}
	}

	if containers == nil {
		containers = []ContainerInfo{}
	}

	return containers, nil
}

// OpenContainer opens a container at the specified path
func (cs *containerService) OpenContainer(ctx context.Context, devicePath string) (ContainerInfo, error) {
	cs.mu.RLock()
	handle, exists := cs.openContainers[devicePath]
	cs.mu.RUnlock()
	if exists {
		return cs.buildContainerInfo(handle)
	}

	mc, err := apfs.MountFromPath(devicePath, 0)
	if err != nil {
		return ContainerInfo{}, fmt.Errorf("failed to mount container %s: %w", devicePath, err)
	}

	handle = &containerHandle{
		devicePath: devicePath,
		mc:         mc,
		openedAt:   time.Now(),
		volumes:    make(map[int]*apfs.Volume),
	}

	cs.mu.Lock()
	cs.openContainers[devicePath] = handle
	cs.mu.Unlock()

	return cs.buildContainerInfo(handle)
}

// ReadSuperblock reads and parses the container superblock
func (cs *containerService) ReadSuperblock(ctx context.Context, devicePath string) (*types.NxSuperblockT, error) {
	if _, err := cs.OpenContainer(ctx, devicePath); err != nil {
		return nil, err
	}

	cs.mu.RLock()
	handle := cs.openContainers[devicePath]
	cs.mu.RUnlock()
	return handle.mc.Superblock(), nil
}

// ListVolumes enumerates all volumes in the container
func (cs *containerService) ListVolumes(ctx context.Context, devicePath string) ([]VolumeInfo, error) {
	info, err := cs.OpenContainer(ctx, devicePath)
	if err != nil {
		return nil, err
	}
	return info.Volumes, nil
}

// GetSpaceManagerInfo retrieves space management information
func (cs *containerService) GetSpaceManagerInfo(ctx context.Context, devicePath string) (SpaceManagerInfo, error) {
	info, err := cs.OpenContainer(ctx, devicePath)
	if err != nil {
		return SpaceManagerInfo{}, err
	}
	return info.SpaceManager, nil
}

// VerifyCheckpoints validates container checkpoints by re-requesting
// the mounted checkpoint's transaction id: apfs.MountFromPath already
// fails the mount if the descriptor ring couldn't be scanned.
func (cs *containerService) VerifyCheckpoints(ctx context.Context, devicePath string) error {
	if _, err := cs.OpenContainer(ctx, devicePath); err != nil {
		return fmt.Errorf("checkpoint verification failed: %w", err)
	}
	cs.mu.RLock()
	handle := cs.openContainers[devicePath]
	cs.mu.RUnlock()
	if handle.mc.Superblock().NxNextXid == 0 {
		return fmt.Errorf("invalid checkpoint data: zero next transaction id")
	}
	return nil
}

// Close closes the container and releases resources
func (cs *containerService) Close() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	var firstErr error
	for path, handle := range cs.openContainers {
		if err := handle.mc.Unmount(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing container %s: %w", path, err)
		}
	}
	cs.openContainers = make(map[string]*containerHandle)
	return firstErr
}

// buildContainerInfo creates a complete ContainerInfo from a container handle
func (cs *containerService) buildContainerInfo(handle *containerHandle) (ContainerInfo, error) {
	sb := handle.mc.Superblock()

	info := ContainerInfo{
		DevicePath:      handle.devicePath,
		BlockSize:       sb.NxBlockSize,
		BlockCount:      sb.NxBlockCount,
		VolumeCount:     uint32(handle.mc.VolumeCount()),
		CheckpointID:    sb.NxNextXid,
		Features:        extractFeatures(sb),
		Encrypted:       sb.NxKeylocker.BlockCount > 0,
		CaseInsensitive: false,
	}

	volumes, err := cs.buildVolumeList(handle)
	if err != nil {
		return info, fmt.Errorf("failed to build volume list: %w", err)
	}
	info.Volumes = volumes

	info.SpaceManager = SpaceManagerInfo{BlockSize: sb.NxBlockSize}

	return info, nil
}

// buildVolumeList peeks every occupied volume slot's superblock via
// apfs.Container.GetVolumeInfo, which never derives an encryption key or
// touches a volume's own B-trees.
func (cs *containerService) buildVolumeList(handle *containerHandle) ([]VolumeInfo, error) {
	var volumes []VolumeInfo

	for i := 0; i < handle.mc.MaxVolumeSlots(); i++ {
		vi, err := handle.mc.GetVolumeInfo(i)
		if err != nil {
			continue
		}
		volumes = append(volumes, VolumeInfo{
			ObjectID:      uint64(i),
			Name:          vi.Name,
			Role:          roleName(vi.Role),
			Encrypted:     vi.Encrypted,
			CaseSensitive: !vi.CaseInsensitive,
			LastModified:  handle.openedAt,
		})
	}

	return volumes, nil
}

// extractFeatures lists the container-level features this driver
// understands and actually exercises, not every bit APFS defines.
func extractFeatures(sb *types.NxSuperblockT) []string {
	features := []string{"APFS"}
	if sb.NxIncompatibleFeatures&types.NxIncompatFusion != 0 {
		features = append(features, "Fusion")
	}
	if sb.NxKeylocker.BlockCount > 0 {
		features = append(features, "Encrypted")
	}
	return features
}

// roleName renders a volume role bitmask the way Disk Utility names it.
func roleName(role uint16) string {
	switch role {
	case 0x0001:
		return "System"
	case 0x0002:
		return "User"
	case 0x0004:
		return "Recovery"
	case 0x0008:
		return "VM"
	case 0x0010:
		return "Preboot"
	case 0x0020:
		return "Installer"
	case 0x0000:
		return "None"
	default:
		return "Unknown"
	}
}
